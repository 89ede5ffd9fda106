package track

import "fmt"

// ResizableData is fixed-capacity storage with a dynamic logical size.
// The backing array is allocated once; Resize never reallocates.
type ResizableData[T any] struct {
	storage []T
	size    int
}

// NewResizableData allocates storage for capacity elements with size zero.
func NewResizableData[T any](capacity int) ResizableData[T] {
	return ResizableData[T]{storage: make([]T, capacity)}
}

// Capacity returns the fixed number of elements that can be stored.
func (d *ResizableData[T]) Capacity() int { return len(d.storage) }

// Size returns the number of elements in use.
func (d *ResizableData[T]) Size() int { return d.size }

// Empty reports whether no elements are in use.
func (d *ResizableData[T]) Empty() bool { return d.size == 0 }

// Resize changes the logical size. Growing past capacity is an error and
// leaves the size unchanged.
func (d *ResizableData[T]) Resize(n int) error {
	if n < 0 || n > len(d.storage) {
		return fmt.Errorf("resize to %d outside capacity %d", n, len(d.storage))
	}
	d.size = n
	return nil
}

// Data returns the in-use elements. The slice aliases the storage.
func (d *ResizableData[T]) Data() []T { return d.storage[:d.size] }

// At returns a pointer to element i of the in-use range.
func (d *ResizableData[T]) At(i int) *T {
	if i >= d.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", i, d.size))
	}
	return &d.storage[i]
}

// Push appends one element, failing when full.
func (d *ResizableData[T]) Push(v T) error {
	if d.size == len(d.storage) {
		return fmt.Errorf("push past capacity %d", len(d.storage))
	}
	d.storage[d.size] = v
	d.size++
	return nil
}

// DropFront removes the first n in-use elements, shifting the rest down.
func (d *ResizableData[T]) DropFront(n int) {
	if n <= 0 {
		return
	}
	if n > d.size {
		n = d.size
	}
	copy(d.storage, d.storage[n:d.size])
	d.size -= n
}
