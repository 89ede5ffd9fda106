// Package metrics exposes Prometheus instruments for the stepping loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/trackloop/internal/global"
)

// StepMetrics records step results and per-action timings.
// Safe for concurrent use.
type StepMetrics struct {
	steps       prometheus.Counter
	initialized prometheus.Counter
	alive       prometheus.Gauge
	queued      prometheus.Gauge
	actionTime  *prometheus.HistogramVec
}

// New registers the instruments with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *StepMetrics {
	f := promauto.With(reg)
	return &StepMetrics{
		steps: f.NewCounter(prometheus.CounterOpts{
			Name: "trackloop_steps_total",
			Help: "Total number of steps taken",
		}),
		initialized: f.NewCounter(prometheus.CounterOpts{
			Name: "trackloop_tracks_initialized_total",
			Help: "Total number of initializers turned into live tracks",
		}),
		alive: f.NewGauge(prometheus.GaugeOpts{
			Name: "trackloop_tracks_alive",
			Help: "Occupied track slots after the last step",
		}),
		queued: f.NewGauge(prometheus.GaugeOpts{
			Name: "trackloop_initializers_queued",
			Help: "Initializers waiting for a slot after the last step",
		}),
		actionTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trackloop_action_duration_seconds",
			Help:    "Wall time of one action over all track slots",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"action"}),
	}
}

// ObserveStep records one StepResult.
func (m *StepMetrics) ObserveStep(r global.StepResult) {
	m.steps.Inc()
	m.initialized.Add(float64(r.Active))
	m.alive.Set(float64(r.Alive))
	m.queued.Set(float64(r.Queued))
}

// ObserveAction records the wall time of one action execution. Its
// signature matches global.ActionObserver.
func (m *StepMetrics) ObserveAction(label string, elapsed time.Duration) {
	m.actionTime.WithLabelValues(label).Observe(elapsed.Seconds())
}
