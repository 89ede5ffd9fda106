package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/transport"
)

type runResponse struct {
	Status string     `json:"status"`
	Data   RunSummary `json:"data"`
	Error  *CLIError  `json:"error"`
}

func runSlab(t *testing.T, dbPath string, ids ...string) RunSummary {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDs:         transport.NewFixedGenerator(ids...),
	}
	out, _, err := execute(newRunCommand(opts), slabProblem, "--db", dbPath)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRunSlabJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	summary := runSlab(t, dbPath, "run-1")

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "slab", summary.Problem)
	assert.NotEmpty(t, summary.ProblemHash)
	assert.Equal(t, 16, summary.Primaries)
	assert.Positive(t, summary.Steps)
	assert.GreaterOrEqual(t, summary.TotalActive, 16)
	assert.LessOrEqual(t, summary.MaxAlive, 64)
	assert.Contains(t, summary.Diagnostics, "step-diagnostic")
	assert.Contains(t, summary.Diagnostics, "energy-diagnostic")
	assert.Contains(t, summary.Diagnostics, "process-diagnostic")
	assert.Empty(t, summary.ActionTimes)
}

func TestRunIsReproducible(t *testing.T) {
	dir := t.TempDir()
	first := runSlab(t, filepath.Join(dir, "a.db"), "run-1")
	second := runSlab(t, filepath.Join(dir, "b.db"), "run-1")
	assert.Equal(t, first, second)
}

func TestRunThreadsDoNotChangeResults(t *testing.T) {
	single := runSlab(t, filepath.Join(t.TempDir(), "runs.db"), "run-1")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDs:         transport.NewFixedGenerator("run-1"),
	}
	out, _, err := execute(newRunCommand(opts), slabProblem, "--threads", "4")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, single, resp.Data)
}

func TestRunText(t *testing.T) {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text", Verbose: true},
		IDs:         transport.NewFixedGenerator("run-text"),
	}
	out, _, err := execute(newRunCommand(opts), slabProblem, "--sync")
	require.NoError(t, err)

	assert.Contains(t, out, "Run run-text completed")
	assert.Contains(t, out, "primaries:    16")
	assert.Contains(t, out, "diagnostic:   energy-diagnostic")
	// --sync with verbose prints per-action timings.
	assert.Contains(t, out, "along-step")
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDs:         transport.NewFixedGenerator("run-1"),
		Registry:    reg,
	}
	out, _, err := execute(newRunCommand(opts), slabProblem)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] = c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(resp.Data.Steps), values["trackloop_steps_total"])
	assert.Equal(t, float64(resp.Data.TotalActive), values["trackloop_tracks_initialized_total"])
}

func TestRunFailure(t *testing.T) {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDs:         transport.NewFixedGenerator("run-bad"),
	}
	out, _, err := execute(newRunCommand(opts), unlimitedProblem)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "run failed")
	assert.Contains(t, err.Error(), "along-step")

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunFailed, resp.Error.Code)
}

func TestRunNonExistentProblem(t *testing.T) {
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "/nonexistent/problem.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load problem")
}

func TestRunInvalidConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "trackloop.yaml", "threads: 0\n")
	opts := &RootOptions{Format: "text", ConfigFile: cfgPath}

	_, _, err := execute(NewRunCommand(opts), slabProblem)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunMissingArgs(t *testing.T) {
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	res := transport.Result{
		RunID: "r",
		Steps: []global.StepResult{
			{Active: 3, Alive: 3, Queued: 2},
			{Active: 2, Alive: 4, Queued: 0},
			{Active: 0, Alive: 0, Queued: 0},
		},
	}
	s := summarize(res, "p", "h", 5)

	assert.Equal(t, 3, s.Steps)
	assert.Equal(t, 5, s.TotalActive)
	assert.Equal(t, 4, s.MaxAlive)
	assert.Equal(t, 2, s.MaxQueued)
	assert.Nil(t, s.ActionTimes)
}
