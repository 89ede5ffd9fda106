package track

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initWithTrack(id TrackID) Initializer {
	return Initializer{Sim: SimInitializer{TrackID: id, ParentID: NoTrack}}
}

func TestInitializerQueue_FIFO(t *testing.T) {
	q := NewInitializerQueue(4)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(initWithTrack(TrackID(i)), NoSlot))
	}
	assert.Equal(t, 3, q.Size())

	got, parent := q.Front(0)
	assert.Equal(t, TrackID(0), got.Sim.TrackID)
	assert.Equal(t, NoSlot, parent)

	q.PopFront(2)
	assert.Equal(t, 1, q.Size())
	got, _ = q.Front(0)
	assert.Equal(t, TrackID(2), got.Sim.TrackID)
}

func TestInitializerQueue_WrapsAround(t *testing.T) {
	q := NewInitializerQueue(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(initWithTrack(TrackID(i)), NoSlot))
	}
	q.PopFront(2)
	require.NoError(t, q.Push(initWithTrack(3), TrackSlotID(7)))
	require.NoError(t, q.Push(initWithTrack(4), NoSlot))

	snap := q.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, TrackID(2), snap[0].Sim.TrackID)
	assert.Equal(t, TrackID(3), snap[1].Sim.TrackID)
	assert.Equal(t, TrackID(4), snap[2].Sim.TrackID)

	_, parent := q.Front(1)
	assert.Equal(t, TrackSlotID(7), parent)
}

func TestInitializerQueue_ReserveOverflowLeavesQueueUnchanged(t *testing.T) {
	q := NewInitializerQueue(5)
	require.NoError(t, q.Push(initWithTrack(0), NoSlot))
	require.NoError(t, q.Push(initWithTrack(1), NoSlot))

	_, err := q.Reserve(4)
	require.Error(t, err)
	assert.True(t, IsCapacityError(err))
	assert.Contains(t, err.Error(), "insufficient initializer capacity (5) with size (2)")
	assert.Equal(t, 2, q.Size())

	start, err := q.Reserve(3)
	require.NoError(t, err)
	assert.Equal(t, 2, start)
	assert.Equal(t, 5, q.Size())
	assert.Equal(t, 0, q.Room())
}

func TestInitializerQueue_ConcurrentSetAfterReserve(t *testing.T) {
	q := NewInitializerQueue(64)
	start, err := q.Reserve(64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < 64; i += 4 {
				q.Set(start+i, initWithTrack(TrackID(i)), TrackSlotID(i))
			}
		}(w)
	}
	wg.Wait()

	for i, init := range q.Snapshot() {
		assert.Equal(t, TrackID(i), init.Sim.TrackID)
	}
}

func TestInitializerQueue_FrontOutOfRangePanics(t *testing.T) {
	q := NewInitializerQueue(2)
	assert.Panics(t, func() { q.Front(0) })
}

func TestInitializerQueue_Clear(t *testing.T) {
	q := NewInitializerQueue(2)
	require.NoError(t, q.Push(initWithTrack(0), NoSlot))
	q.Clear()
	assert.True(t, q.Empty())
	assert.Equal(t, 2, q.Room())
}
