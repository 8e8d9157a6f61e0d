package agent

// History is an append-only series primed with a number of zero values, used
// for the autoregressive state and action memories.
type History[T any] struct {
	buf []T
}

// NewHistory returns a History primed with `prime` zero values of T.
func NewHistory[T any](prime int) *History[T] {
	return &History[T]{buf: make([]T, prime)}
}

// Push appends a value.
func (h *History[T]) Push(v T) {
	h.buf = append(h.buf, v)
}

// Last returns the value `offset` positions from the end; offset 0 is the
// most recent value.
func (h *History[T]) Last(offset int) T {
	return h.buf[len(h.buf)-1-offset]
}

// Len returns the number of stored values.
func (h *History[T]) Len() int { return len(h.buf) }
