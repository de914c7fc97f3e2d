// Package tensor provides the value model of the evaluation engine: cell types, value types,
// concrete values with their sparse index, value builders and the TensorSpec interchange format.
package tensor

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number is the constraint for cell types that convert natively to and from float64.
type Number interface {
	constraints.Float | constraints.Signed
}

// Cell is a constraint covering every supported element encoding.
type Cell interface {
	Number | BF16
}

// CellType represents runtime type information for tensor cells.
type CellType int

// Supported cell types.
const (
	Double CellType = iota
	Float
	BFloat16
	Int8
	Int16
	Int32
	Int64
)

// AllCellTypes lists every supported cell type.
var AllCellTypes = []CellType{Double, Float, BFloat16, Int8, Int16, Int32, Int64}

// Size returns the byte size of one cell.
func (ct CellType) Size() int {
	switch ct {
	case Double, Int64:
		return 8
	case Float, Int32:
		return 4
	case BFloat16, Int16:
		return 2
	case Int8:
		return 1
	default:
		panic("unknown cell type")
	}
}

// String returns the name used in type specs.
func (ct CellType) String() string {
	switch ct {
	case Double:
		return "double"
	case Float:
		return "float"
	case BFloat16:
		return "bfloat16"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// ParseCellType resolves a cell type name as written inside `tensor<...>`.
func ParseCellType(name string) (CellType, bool) {
	for _, ct := range AllCellTypes {
		if ct.String() == name {
			return ct, true
		}
	}
	return Double, false
}

// IsFloat reports whether the cell type is a floating point encoding.
func (ct CellType) IsFloat() bool {
	return ct == Double || ct == Float || ct == BFloat16
}

// Decay returns the cell type used to store values computed from cells of this type.
// Only float and double are produced by computation.
func (ct CellType) Decay() CellType {
	switch ct {
	case Double, Int32, Int64:
		return Double
	default:
		return Float
	}
}

// UnifyCellTypes picks the common computed cell type of two operands.
func UnifyCellTypes(a, b CellType) CellType {
	a, b = a.Decay(), b.Decay()
	if a == Double || b == Double {
		return Double
	}
	return Float
}

// CellTypeOf infers the CellType of a generic cell type T.
func CellTypeOf[T Cell]() CellType {
	var zero T
	switch any(zero).(type) {
	case float64:
		return Double
	case float32:
		return Float
	case BF16:
		return BFloat16
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		panic("unsupported cell type")
	}
}

// CellMeta describes the cell type of a value together with whether the value is statically
// known to be a plain double scalar.
type CellMeta struct {
	CellType CellType
	IsScalar bool
}

// Decay normalizes the meta data of a computed result.
func (m CellMeta) Decay() CellMeta {
	if m.IsScalar {
		return CellMeta{CellType: Double, IsScalar: true}
	}
	return CellMeta{CellType: m.CellType.Decay()}
}

// Map returns the meta data of the result of applying a unary function.
func (m CellMeta) Map() CellMeta {
	return m.Decay()
}

// Reduce returns the meta data of a reduce result.
func (m CellMeta) Reduce(scalarResult bool) CellMeta {
	if scalarResult {
		return CellMeta{CellType: Double, IsScalar: true}
	}
	return m.Decay()
}

// JoinCellMeta returns the meta data of joining values with the given meta data.
// A scalar operand does not influence the cell type of a tensor operand.
func JoinCellMeta(a, b CellMeta) CellMeta {
	switch {
	case a.IsScalar && b.IsScalar:
		return CellMeta{CellType: Double, IsScalar: true}
	case a.IsScalar:
		return b.Decay()
	case b.IsScalar:
		return a.Decay()
	}
	return CellMeta{CellType: UnifyCellTypes(a.CellType, b.CellType)}
}

// BF16 is a brain floating point cell: the upper 16 bits of an IEEE 754 float32.
type BF16 uint16

// BF16FromFloat32 converts with round-to-nearest-even.
func BF16FromFloat32(f float32) BF16 {
	bits := math.Float32bits(f)
	if f != f { // NaN
		return BF16(bits>>16 | 0x40)
	}
	bits += 0x7fff + (bits>>16)&1
	return BF16(bits >> 16)
}

// Float32 widens the cell to float32 without loss.
func (b BF16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// ToDouble converts any cell to float64.
func ToDouble[T Cell](v T) float64 {
	if b, ok := any(v).(BF16); ok {
		return float64(b.Float32())
	}
	return toDoubleNumber(v)
}

// FromDouble converts a float64 into cell type T.
func FromDouble[T Cell](v float64) T {
	var zero T
	if _, ok := any(zero).(BF16); ok {
		return any(BF16FromFloat32(float32(v))).(T)
	}
	return fromDoubleNumber[T](v)
}

func toDoubleNumber[T Cell](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	}
	panic("unsupported cell type")
}

func fromDoubleNumber[T Cell](v float64) T {
	var out any
	var zero T
	switch any(zero).(type) {
	case float64:
		out = v
	case float32:
		out = float32(v)
	case int8:
		out = int8(v)
	case int16:
		out = int16(v)
	case int32:
		out = int32(v)
	case int64:
		out = int64(v)
	default:
		panic("unsupported cell type")
	}
	return out.(T)
}
