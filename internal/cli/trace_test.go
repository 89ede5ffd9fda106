package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackloop/internal/store"
)

type traceResponse struct {
	Status string      `json:"status"`
	RunID  string      `json:"run_id"`
	Data   TraceResult `json:"data"`
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestTraceRunByID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	summary := runSlab(t, dbPath, "run-1")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "run-1")
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)

	run := resp.Data.Run
	assert.Equal(t, "slab", run.ProblemName)
	assert.Equal(t, summary.ProblemHash, run.ProblemHash)
	assert.Equal(t, store.RunCompleted, run.Status)
	assert.Equal(t, 64, run.NumTrackSlots)
	assert.Equal(t, 16, run.NumPrimaries)
	assert.Equal(t, summary.Steps, run.NumSteps)

	require.Len(t, resp.Data.Steps, summary.Steps)
	for i, s := range resp.Data.Steps {
		assert.Equal(t, i, s.Step)
	}
	assert.Equal(t, TraceStats{
		Steps:       summary.Steps,
		TotalActive: summary.TotalActive,
		MaxAlive:    summary.MaxAlive,
		MaxQueued:   summary.MaxQueued,
	}, resp.Data.Stats)
	assert.Equal(t, summary.Diagnostics, resp.Data.Diagnostics)
}

func TestTraceLatestRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runSlab(t, dbPath, "run-1")
	runSlab(t, dbPath, "run-2")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run: run-2")
	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "=== Steps ===")
	assert.Contains(t, out, "=== Stats ===")
	assert.Contains(t, out, "energy-diagnostic:")
}

func TestTraceVerboseListsSteps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runSlab(t, dbPath, "run-1")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text", Verbose: true}), "--db", dbPath, "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "step  active  alive  queued")
	assert.Contains(t, out, "     0      16")
}

func TestTraceDiagnosticFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runSlab(t, dbPath, "run-1")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--diagnostic", "process-diagnostic", "run-1")
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data.Diagnostics, 1)
	assert.Contains(t, resp.Data.Diagnostics, "process-diagnostic")

	_, _, err = execute(NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--diagnostic", "missing", "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no diagnostic "missing"`)
}

func TestTraceListRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runSlab(t, dbPath, "run-1")
	runSlab(t, dbPath, "run-2")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--list")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "run-1", resp.Data[0].ID)
	assert.Equal(t, "run-2", resp.Data[1].ID)

	out, _, err = execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "completed")
}

func TestTraceRunNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runSlab(t, dbPath, "run-1")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
	assert.Contains(t, out, ErrCodeRunNotFound)
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no runs recorded")

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTraceFailedRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
	}
	_, _, err := execute(newRunCommand(opts), unlimitedProblem, "--db", dbPath)
	require.Error(t, err)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: failed")
	assert.Contains(t, out, "Error: ")
	assert.Contains(t, out, "along-step")
}
