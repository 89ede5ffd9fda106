package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/trackloop/internal/metrics"
	"github.com/roach88/trackloop/internal/problem"
	"github.com/roach88/trackloop/internal/store"
	"github.com/roach88/trackloop/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Threads     int
	MetricsAddr string
	Sync        bool

	// IDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs transport.RunIDGenerator

	// Registry receives the step metrics (for testing).
	// If nil, a fresh registry is used.
	Registry *prometheus.Registry
}

// RunSummary is the output of the run command.
type RunSummary struct {
	RunID       string             `json:"run_id"`
	Problem     string             `json:"problem"`
	ProblemHash string             `json:"problem_hash"`
	Primaries   int                `json:"primaries"`
	Steps       int                `json:"steps"`
	TotalActive int                `json:"total_active"`
	MaxAlive    int                `json:"max_alive"`
	MaxQueued   int                `json:"max_queued"`
	Diagnostics map[string]any     `json:"diagnostics"`
	ActionTimes map[string]float64 `json:"action_seconds,omitempty"`
}

// runFlagKeys maps run flags to config keys.
var runFlagKeys = map[string]string{
	"db":           "database",
	"threads":      "threads",
	"metrics-addr": "metrics_addr",
	"sync":         "sync",
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <problem.cue>",
		Short: "Transport the primaries of a problem",
		Long: `Load a CUE problem file, build its geometry, physics and diagnostics,
and step every primary and secondary to completion.

With --db the run, each step and the diagnostic results are recorded in a
SQLite database. With --metrics-addr step metrics are served for Prometheus
while the run is in progress.

Examples:
  trackloop run ./problems/slab.cue
  trackloop run ./problems/slab.cue --db ./runs.db --threads 4
  trackloop run ./problems/slab.cue --metrics-addr :9090 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProblem(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run database")
	cmd.Flags().IntVar(&opts.Threads, "threads", 1, "worker threads per action")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "accumulate per-action wall time")

	return cmd
}

func runProblem(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.loadConfig(cmd.Flags(), runFlagKeys)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	def, err := problem.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load problem", err)
	}
	p, err := problem.Build(def, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build problem", err)
	}
	formatter.VerboseLog("Loaded problem %q (%s)", def.Name, p.Hash)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	stepper, err := p.NewStepper(cfg.Threads, cfg.Sync, m.ObserveAction)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create stepper", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer shutdown()
	}

	in := transport.Input{
		Stepper:   stepper,
		MaxSteps:  def.MaxSteps,
		BatchSize: def.BatchSize,
		IDs:       opts.IDs,
		Observer:  m,
		Logger:    logger,
	}
	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		in.Recorder = st
	}

	tr, err := transport.New(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create transporter", err)
	}

	primaries := p.Generator.All()
	res, err := tr.Run(ctx, transport.RunInfo{ProblemName: def.Name, ProblemHash: p.Hash}, primaries)
	if err != nil {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeRunFailed, err.Error(), map[string]any{
				"run_id": res.RunID,
				"steps":  len(res.Steps),
			})
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	summary := summarize(res, def.Name, p.Hash, len(primaries))
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	printSummary(formatter, summary)
	return nil
}

func summarize(res transport.Result, name, hash string, primaries int) RunSummary {
	s := RunSummary{
		RunID:       res.RunID,
		Problem:     name,
		ProblemHash: hash,
		Primaries:   primaries,
		Steps:       len(res.Steps),
		Diagnostics: res.Diagnostics,
	}
	for _, r := range res.Steps {
		s.TotalActive += r.Active
		s.MaxAlive = max(s.MaxAlive, r.Alive)
		s.MaxQueued = max(s.MaxQueued, r.Queued)
	}
	if len(res.ActionTimes) > 0 {
		s.ActionTimes = make(map[string]float64, len(res.ActionTimes))
		for label, d := range res.ActionTimes {
			s.ActionTimes[label] = d.Seconds()
		}
	}
	return s
}

func printSummary(f *OutputFormatter, s RunSummary) {
	w := f.Writer
	fmt.Fprintf(w, "Run %s completed\n", s.RunID)
	fmt.Fprintf(w, "  problem:      %s (%s)\n", s.Problem, s.ProblemHash)
	fmt.Fprintf(w, "  primaries:    %d\n", s.Primaries)
	fmt.Fprintf(w, "  steps:        %d\n", s.Steps)
	fmt.Fprintf(w, "  initialized:  %d\n", s.TotalActive)
	fmt.Fprintf(w, "  max alive:    %d\n", s.MaxAlive)
	fmt.Fprintf(w, "  max queued:   %d\n", s.MaxQueued)

	labels := make([]string, 0, len(s.Diagnostics))
	for label := range s.Diagnostics {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	for _, label := range labels {
		fmt.Fprintf(w, "  diagnostic:   %s\n", label)
	}

	if f.Verbose && len(s.ActionTimes) > 0 {
		actions := make([]string, 0, len(s.ActionTimes))
		for label := range s.ActionTimes {
			actions = append(actions, label)
		}
		slices.Sort(actions)
		for _, label := range actions {
			fmt.Fprintf(w, "  %-24s %.6fs\n", label, s.ActionTimes[label])
		}
	}
}

// serveMetrics starts an HTTP server exposing reg on /metrics. The
// returned function shuts it down.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// commandContext returns the command's context, or a background context
// when the command is executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
