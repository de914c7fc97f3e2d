package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// CellFunc computes one cell from its coordinates (one per indexed dimension, canonical order).
type CellFunc func(coords []int) (float64, error)

// Generate builds a value without mapped dimensions by evaluating fn for every coordinate tuple
// in row-major order.
func Generate(t tensor.ValueType, fn CellFunc, f tensor.ValueBuilderFactory) (tensor.Value, error) {
	if t.IsError() || t.CountMappedDimensions() > 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidType, "generate: %s must only have indexed dimensions", t)
	}
	dims := t.IndexedDimensions()
	results := make([]float64, t.DenseSubspaceSize())
	coords := make([]int, len(dims))
	for i := range results {
		v, err := fn(coords)
		if err != nil {
			return nil, err
		}
		results[i] = v
		for d := len(coords) - 1; d >= 0; d-- {
			coords[d]++
			if coords[d] < int(dims[d].Size) {
				break
			}
			coords[d] = 0
		}
	}
	if t.IsDouble() {
		return tensor.DoubleValue(results[0]), nil
	}
	b := f.NewValueBuilder(t, 1)
	storeDoubles(b.AddSubspace(nil), results)
	return b.Build(), nil
}
