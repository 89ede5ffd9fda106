package track

import (
	"errors"
	"fmt"
)

// CapacityError is returned when an append would overflow the
// initializer queue. The queue is unchanged when it is returned.
type CapacityError struct {
	Capacity  int
	Size      int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient initializer capacity (%d) with size (%d) for %d new initializers",
		e.Capacity, e.Size, e.Requested)
}

// IsCapacityError reports whether err is (or wraps) a CapacityError.
func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// InitializerQueue is a bounded FIFO ring of pending initializers, paired
// with the slot of each initializer's parent (NoSlot for primaries).
//
// Appends happen in two phases: Reserve claims a contiguous logical range
// at the back (single goroutine), then Set fills positions in that range.
// Set on distinct positions is safe from concurrent goroutines. Consumption
// is always from the front, oldest first.
type InitializerQueue struct {
	items   []Initializer
	parents []TrackSlotID
	head    int
	size    int
}

// NewInitializerQueue allocates a queue holding at most capacity initializers.
func NewInitializerQueue(capacity int) *InitializerQueue {
	return &InitializerQueue{
		items:   make([]Initializer, capacity),
		parents: make([]TrackSlotID, capacity),
	}
}

// Capacity returns the fixed maximum number of queued initializers.
func (q *InitializerQueue) Capacity() int { return len(q.items) }

// Size returns the number of queued initializers.
func (q *InitializerQueue) Size() int { return q.size }

// Empty reports whether nothing is queued.
func (q *InitializerQueue) Empty() bool { return q.size == 0 }

// Room returns how many more initializers fit.
func (q *InitializerQueue) Room() int { return len(q.items) - q.size }

// Reserve grows the queue by n positions at the back and returns the logical
// index of the first new position. The new positions must be filled with Set
// before they are read.
func (q *InitializerQueue) Reserve(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("negative reservation %d", n)
	}
	if q.size+n > len(q.items) {
		return 0, &CapacityError{Capacity: len(q.items), Size: q.size, Requested: n}
	}
	start := q.size
	q.size += n
	return start, nil
}

// Set stores an initializer at logical position i (0 is the oldest).
func (q *InitializerQueue) Set(i int, init Initializer, parent TrackSlotID) {
	k := q.index(i)
	q.items[k] = init
	q.parents[k] = parent
}

// Front returns the initializer at logical position i and its parent slot.
func (q *InitializerQueue) Front(i int) (Initializer, TrackSlotID) {
	k := q.index(i)
	return q.items[k], q.parents[k]
}

// Push appends a single initializer.
func (q *InitializerQueue) Push(init Initializer, parent TrackSlotID) error {
	i, err := q.Reserve(1)
	if err != nil {
		return err
	}
	q.Set(i, init, parent)
	return nil
}

// PopFront discards the n oldest initializers.
func (q *InitializerQueue) PopFront(n int) {
	if n > q.size {
		n = q.size
	}
	for i := 0; i < n; i++ {
		k := q.index(i)
		q.items[k] = Initializer{}
		q.parents[k] = NoSlot
	}
	if len(q.items) > 0 {
		q.head = (q.head + n) % len(q.items)
	}
	q.size -= n
}

// Clear drops every queued initializer.
func (q *InitializerQueue) Clear() {
	q.PopFront(q.size)
	q.head = 0
}

// Snapshot copies the queued initializers, oldest first.
func (q *InitializerQueue) Snapshot() []Initializer {
	out := make([]Initializer, q.size)
	for i := range out {
		out[i], _ = q.Front(i)
	}
	return out
}

func (q *InitializerQueue) index(i int) int {
	if i < 0 || i >= q.size {
		panic(fmt.Sprintf("initializer index %d out of range [0, %d)", i, q.size))
	}
	return (q.head + i) % len(q.items)
}
