package eval

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// Handle refers to a value owned by a Stash. It becomes stale when the stash is reset.
type Handle struct {
	index      int
	generation uint32
}

// Stash owns every value produced during one evaluation.
// Resetting it releases those values and invalidates their handles.
type Stash struct {
	values     []tensor.Value
	generation uint32
}

// NewStash returns an empty stash.
func NewStash() *Stash {
	return &Stash{generation: 1}
}

// Put takes ownership of v.
func (s *Stash) Put(v tensor.Value) Handle {
	s.values = append(s.values, v)
	return Handle{index: len(s.values) - 1, generation: s.generation}
}

// Get resolves a handle.
func (s *Stash) Get(h Handle) (tensor.Value, error) {
	if h.generation != s.generation || h.index >= len(s.values) {
		return nil, errors.Wrapf(tensor.ErrStaleHandle, "handle %d of generation %d (current %d)", h.index, h.generation, s.generation)
	}
	return s.values[h.index], nil
}

// Len returns the number of values owned.
func (s *Stash) Len() int { return len(s.values) }

// Reset drops all values and starts a new generation.
func (s *Stash) Reset() {
	clear(s.values)
	s.values = s.values[:0]
	s.generation++
}
