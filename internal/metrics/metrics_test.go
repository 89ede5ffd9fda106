package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackloop/internal/global"
)

func TestObserveStep(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveStep(global.StepResult{Active: 4, Alive: 4, Queued: 2})
	m.ObserveStep(global.StepResult{Active: 2, Alive: 3, Queued: 0})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.initialized))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.alive))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queued))
}

func TestObserveAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	var observer global.ActionObserver = m.ObserveAction
	observer("along-step", 3*time.Millisecond)
	observer("along-step", 5*time.Millisecond)
	observer("pre-step", time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.actionTime))

	expected := `
# HELP trackloop_steps_total Total number of steps taken
# TYPE trackloop_steps_total counter
trackloop_steps_total 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "trackloop_steps_total"))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
