package transport

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepQuota(t *testing.T) {
	q := NewStepQuota(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check("run-1"))
	}
	err := q.Check("run-1")
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "run run-1 exceeded max steps: 4 steps > 3 limit", err.Error())
	assert.Equal(t, 4, q.Current())

	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check("run-1"))
}

func TestStepQuota_Unlimited(t *testing.T) {
	q := NewStepQuota(NoMaxSteps)
	for i := 0; i < 10000; i++ {
		require.NoError(t, q.Check(""))
	}
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
