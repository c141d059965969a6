// Package queue provides the buffers used across the engine: a bounded
// ring of recent history and a locked FIFO for handing work between
// goroutines.
package queue

// Ring is a fixed-capacity buffer that overwrites its oldest entry when
// full. It is not safe for concurrent use.
type Ring[T any] struct {
	items  []T
	oldest int
	size   int
}

// NewRing creates an empty ring holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push adds v as the newest entry, evicting the oldest one when full.
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.items) {
		r.items[(r.oldest+r.size)%len(r.items)] = v
		r.size++
		return
	}
	r.items[r.oldest] = v
	r.oldest = (r.oldest + 1) % len(r.items)
}

// Len is the number of stored entries.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap is the maximum number of entries.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// At returns the i-th entry counting from the oldest.
func (r *Ring[T]) At(i int) (T, bool) {
	if i < 0 || i >= r.size {
		var zero T
		return zero, false
	}
	return r.items[(r.oldest+i)%len(r.items)], true
}

// Oldest returns the oldest entry.
func (r *Ring[T]) Oldest() (T, bool) {
	return r.At(0)
}

// Newest returns the most recently pushed entry.
func (r *Ring[T]) Newest() (T, bool) {
	return r.At(r.size - 1)
}

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.oldest = 0
	r.size = 0
}
