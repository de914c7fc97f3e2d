// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides value types and values for tensor expressions.
//
// # Overview
//
// A value type is either the error type, a double scalar, or a tensor type: a cell type plus a
// set of named dimensions. Indexed dimensions have a size; mapped dimensions are keyed by string
// labels. Dimensions are kept sorted by name, so
//
//	tensor<float>(y[3],x{})
//
// and tensor<float>(x{},y[3]) are the same type.
//
// A value stores its cells as dense subspaces, one per combination of mapped labels, laid out
// row-major over the indexed dimensions.
//
// # Basic Usage
//
//	t := tensor.FromSpec("tensor(x[2],y[3])")
//	v := tensor.NewDenseValue(t, tensor.CellsOf([]float64{1, 2, 3, 4, 5, 6}))
//	spec := tensor.SpecFromValue(v)
//
// # Cell Types
//
// Cells may be double, float, bfloat16, int8, int16, int32 or int64. Computed results only use
// float or double: smaller types decay to float, int32 and int64 decay to double.
package tensor
