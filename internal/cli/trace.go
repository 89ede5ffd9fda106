package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/trackloop/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	List       bool
	Diagnostic string // optional - show only this diagnostic
}

// TraceStep is one step of a recorded run.
type TraceStep struct {
	Step   int `json:"step"`
	Active int `json:"active"`
	Alive  int `json:"alive"`
	Queued int `json:"queued"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run         store.Run      `json:"run"`
	Steps       []TraceStep    `json:"steps"`
	Diagnostics map[string]any `json:"diagnostics"`
	Stats       TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Steps       int `json:"steps"`
	TotalActive int `json:"total_active"`
	MaxAlive    int `json:"max_alive"`
	MaxQueued   int `json:"max_queued"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show the step history of a recorded run",
		Long: `Read a run recorded with "trackloop run --db" and print its step
results, diagnostic results and summary statistics.

Without a run id the most recent run is shown. With --list every run in
the database is listed instead.

Examples:
  trackloop trace --db ./runs.db
  trackloop trace --db ./runs.db 0191e4a2-7c1d-7b3e-9a40-3f5d2c1b0a99
  trackloop trace --db ./runs.db --diagnostic energy-diagnostic
  trackloop trace --db ./runs.db --list --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")
	cmd.Flags().StringVar(&opts.Diagnostic, "diagnostic", "", "show only the diagnostic with this label")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, st, formatter)
	}

	var run store.Run
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, runID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		msg := "no runs recorded"
		if runID != "" {
			msg = fmt.Sprintf("run not found: %s", runID)
		}
		_ = formatter.Error(ErrCodeRunNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result, err := buildTrace(ctx, st, run, opts.Diagnostic)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd.OutOrStdout(), result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTrace reads the steps and diagnostics of run.
func buildTrace(ctx context.Context, st *store.Store, run store.Run, label string) (TraceResult, error) {
	records, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return TraceResult{}, err
	}
	result := TraceResult{
		Run:         run,
		Steps:       make([]TraceStep, 0, len(records)),
		Diagnostics: make(map[string]any),
	}
	for _, rec := range records {
		result.Steps = append(result.Steps, TraceStep{
			Step:   rec.Step,
			Active: rec.Active,
			Alive:  rec.Alive,
			Queued: rec.Queued,
		})
		result.Stats.TotalActive += rec.Active
		result.Stats.MaxAlive = max(result.Stats.MaxAlive, rec.Alive)
		result.Stats.MaxQueued = max(result.Stats.MaxQueued, rec.Queued)
	}
	result.Stats.Steps = len(records)

	diags, err := st.ReadDiagnostics(ctx, run.ID)
	if err != nil {
		return TraceResult{}, err
	}
	for _, d := range diags {
		if label != "" && d.Label != label {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(d.Result), &v); err != nil {
			return TraceResult{}, fmt.Errorf("diagnostic %q: %w", d.Label, err)
		}
		result.Diagnostics[d.Label] = v
	}
	if label != "" && len(result.Diagnostics) == 0 {
		return TraceResult{}, fmt.Errorf("run %s has no diagnostic %q", run.ID, label)
	}
	return result, nil
}

func listRuns(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(f.Writer, "%s  %-10s %-20s %d steps\n", r.ID, r.Status, r.ProblemName, r.NumSteps)
	}
	return nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(w io.Writer, result TraceResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: result, RunID: result.Run.ID})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	run := result.Run
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Problem: %s (%s)\n", run.ProblemName, run.ProblemHash)
	fmt.Fprintf(w, "Status: %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	switch {
	case len(result.Steps) == 0:
		fmt.Fprintln(w, "  (no steps)")
	case verbose:
		fmt.Fprintln(w, "  step  active  alive  queued")
		for _, s := range result.Steps {
			fmt.Fprintf(w, "  %4d  %6d  %5d  %6d\n", s.Step, s.Active, s.Alive, s.Queued)
		}
	default:
		last := result.Steps[len(result.Steps)-1]
		fmt.Fprintf(w, "  %d steps, last: active=%d alive=%d queued=%d\n",
			len(result.Steps), last.Active, last.Alive, last.Queued)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Diagnostics ===")
	if len(result.Diagnostics) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, label := range slices.Sorted(maps.Keys(result.Diagnostics)) {
		data, _ := json.Marshal(result.Diagnostics[label])
		fmt.Fprintf(w, "  %s: %s\n", label, data)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Steps:        %d\n", result.Stats.Steps)
	fmt.Fprintf(w, "  Initialized:  %d\n", result.Stats.TotalActive)
	fmt.Fprintf(w, "  Max alive:    %d\n", result.Stats.MaxAlive)
	fmt.Fprintf(w, "  Max queued:   %d\n", result.Stats.MaxQueued)
}
