package global

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackloop/internal/track"
)

func TestLaunch_VisitsEverySlotOnce(t *testing.T) {
	s := newTestStepper(t, stepperConfig{slots: 103, capacity: 1, threads: 4})

	visits := make([]atomic.Int32, 103)
	err := Launch(bg, s.State(), "visit", func(slot track.TrackSlotID) error {
		visits[slot].Add(1)
		return nil
	})
	require.NoError(t, err)
	for i := range visits {
		assert.Equal(t, int32(1), visits[i].Load(), "slot %d", i)
	}
}

func TestLaunch_ReturnsLowestSlotFault(t *testing.T) {
	s := newTestStepper(t, stepperConfig{slots: 16, capacity: 1, threads: 4})

	err := Launch(bg, s.State(), "faulty", func(slot track.TrackSlotID) error {
		if slot == 11 || slot == 5 || slot == 14 {
			return errors.New("boom")
		}
		return nil
	})
	require.Error(t, err)

	var ke *KernelContextError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, track.TrackSlotID(5), ke.Slot)
	assert.Equal(t, "faulty", ke.Action)
}

func TestLaunch_RecoversPanics(t *testing.T) {
	s := newTestStepper(t, stepperConfig{slots: 4, capacity: 1, threads: 2})

	err := Launch(bg, s.State(), "panicky", func(slot track.TrackSlotID) error {
		if slot == 2 {
			panic("bad slot")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad slot")
}

func TestStepper_KernelFaultCarriesTrackContext(t *testing.T) {
	s := newTestStepper(t, stepperConfig{
		slots:    4,
		capacity: 4,
		threads:  2,
		rules: map[scriptKey]scriptRule{
			{0, 3, 1}: {fail: true},
			{0, 2, 1}: {panic: true},
		},
	})

	_, err := s.AdvancePrimaries(bg, makePrimaries(0, 0, 4))
	require.Error(t, err)

	var ke *KernelContextError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, "physics-interact", ke.Action)
	assert.Equal(t, track.TrackSlotID(2), ke.Slot)
	assert.Equal(t, track.TrackID(2), ke.TrackID)
	assert.Contains(t, err.Error(), `action "physics-interact" failed`)
}
