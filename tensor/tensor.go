// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/tensoreval/internal/tensor"
)

// CellType is the storage type of tensor cells.
type CellType = tensor.CellType

// Cell types.
const (
	Double   CellType = tensor.Double
	Float    CellType = tensor.Float
	BFloat16 CellType = tensor.BFloat16
	Int8     CellType = tensor.Int8
	Int16    CellType = tensor.Int16
	Int32    CellType = tensor.Int32
	Int64    CellType = tensor.Int64
)

// BF16 is a bfloat16 cell.
type BF16 = tensor.BF16

// Dimension is a named tensor dimension.
type Dimension = tensor.Dimension

// ValueType is the type of a value.
type ValueType = tensor.ValueType

// Value is an immutable typed value.
type Value = tensor.Value

// Index maps labels of the mapped dimensions to dense subspaces.
type Index = tensor.Index

// IndexView iterates subspaces matching a partial address.
type IndexView = tensor.IndexView

// TypedCells is a contiguous cell array of one cell type.
type TypedCells = tensor.TypedCells

// DoubleValue is a double scalar.
type DoubleValue = tensor.DoubleValue

// DenseValue is a value without mapped dimensions.
type DenseValue = tensor.DenseValue

// ValueBuilderFactory creates builders for values of a given type.
type ValueBuilderFactory = tensor.ValueBuilderFactory

// ValueBuilder collects subspaces of a value under construction.
type ValueBuilder = tensor.ValueBuilder

// TensorSpec is a value in address to cell form, used for files and comparisons.
type TensorSpec = tensor.TensorSpec

// Address maps dimension names to labels.
type Address = tensor.Address

// Label is the coordinate of a cell along one dimension.
type Label = tensor.Label

// TypeError describes operands that are incompatible for an operation.
type TypeError = tensor.TypeError

// Errors.
var (
	ErrInvalidType         = tensor.ErrInvalidType
	ErrMalformedTypeSpec   = tensor.ErrMalformedTypeSpec
	ErrUnsupportedCellType = tensor.ErrUnsupportedCellType
	ErrCellCount           = tensor.ErrCellCount
)

// Value builder factories.
var (
	SimpleFactory ValueBuilderFactory = tensor.SimpleValueBuilderFactory{}
	FastFactory   ValueBuilderFactory = tensor.FastValueBuilderFactory{}
)

// Types.
var (
	FromSpec       = tensor.FromSpec
	ParseValueType = tensor.ParseValueType
	ParseCellType  = tensor.ParseCellType
	TensorType     = tensor.TensorType
	DoubleType     = tensor.DoubleType
	ErrorType      = tensor.ErrorType
	Indexed        = tensor.Indexed
	Mapped         = tensor.Mapped
	JoinTypes      = tensor.JoinTypes
	UnifyCellTypes = tensor.UnifyCellTypes
)

// Values.
var (
	NewDenseValue = tensor.NewDenseValue
	NewCells      = tensor.NewCells
	CopyValue     = tensor.CopyValue
	AsDouble      = tensor.AsDouble
)

// Specs.
var (
	NewTensorSpec = tensor.NewTensorSpec
	SpecFromValue = tensor.SpecFromValue
	ValueFromSpec = tensor.ValueFromSpec
	ParseSpecYAML = tensor.ParseSpecYAML
	MappedLabel   = tensor.MappedLabel
	IndexedLabel  = tensor.IndexedLabel
)

// CellsOf wraps a slice as typed cells without copying.
func CellsOf[T tensor.Cell](data []T) TypedCells {
	return tensor.CellsOf(data)
}

// Typed returns the cells as a slice of T. T must match the cell type.
func Typed[T tensor.Cell](c TypedCells) []T {
	return tensor.Typed[T](c)
}
