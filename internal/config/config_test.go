package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.Database)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 4\nlog_level: debug\ndatabase: runs.db\nsync: true\n"), 0o644))
	t.Setenv("TRACKLOOP_LOG_FORMAT", "json")
	t.Setenv("TRACKLOOP_THREADS", "8")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Threads, "environment overrides file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "runs.db", cfg.Database)
	assert.True(t, cfg.Sync)
}

func TestLoad_WorkingDirFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trackloop.yaml"), []byte("metrics_addr: \":9090\"\n"), 0o644))
	t.Chdir(dir)

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestNewViper_MissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACKLOOP_THREADS", "0")
	t.Setenv("TRACKLOOP_LOG_LEVEL", "loud")

	v, err := NewViper("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "threads", verrs[0].Field)
	assert.Equal(t, "log_level", verrs[1].Field)
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestValidate_MetricsAddr(t *testing.T) {
	cfg := Default()
	cfg.MetricsAddr = "9090"
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "metrics_addr", errs[0].Field)
}

func TestLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Default()
			cfg.LogLevel = tt.level
			assert.Equal(t, tt.want, cfg.Level())
		})
	}

	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.Logger(&buf).Warn("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.Logger(&buf).Info("hidden")
	assert.Empty(t, buf.String())
}
