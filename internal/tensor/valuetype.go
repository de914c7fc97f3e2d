package tensor

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MappedSize is the Size of a mapped dimension.
const MappedSize = math.MaxUint32

// Dimension is a named tensor dimension: indexed with a fixed size, or mapped.
type Dimension struct {
	Name string
	Size uint32
}

// Indexed returns an indexed dimension of the given size.
func Indexed(name string, size uint32) Dimension {
	return Dimension{Name: name, Size: size}
}

// Mapped returns a mapped dimension.
func Mapped(name string) Dimension {
	return Dimension{Name: name, Size: MappedSize}
}

// IsMapped reports whether the dimension is keyed by labels.
func (d Dimension) IsMapped() bool { return d.Size == MappedSize }

// IsIndexed reports whether the dimension has a fixed size.
func (d Dimension) IsIndexed() bool { return d.Size != MappedSize }

// IsTrivial reports whether the dimension is indexed with size 1.
func (d Dimension) IsTrivial() bool { return d.Size == 1 }

func (d Dimension) String() string {
	if d.IsMapped() {
		return d.Name + "{}"
	}
	return fmt.Sprintf("%s[%d]", d.Name, d.Size)
}

// ValueType is a cell type plus a set of dimensions kept sorted by name.
// The zero value is the double scalar type.
type ValueType struct {
	cellType CellType
	dims     []Dimension
	err      bool
}

// ErrorType returns the invalid type sentinel.
func ErrorType() ValueType {
	return ValueType{err: true}
}

// DoubleType returns the scalar type.
func DoubleType() ValueType {
	return ValueType{}
}

// TensorType builds a type from a cell type and dimensions given in any order.
// Duplicate names and zero-sized indexed dimensions yield the error type.
// A type without dimensions is always the double scalar.
func TensorType(ct CellType, dims ...Dimension) ValueType {
	if len(dims) == 0 {
		return DoubleType()
	}
	sorted := append([]Dimension(nil), dims...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i, d := range sorted {
		if d.Size == 0 || d.Name == "" {
			return ErrorType()
		}
		if i > 0 && sorted[i-1].Name == d.Name {
			return ErrorType()
		}
	}
	return ValueType{cellType: ct, dims: sorted}
}

// CellType returns the cell type.
func (t ValueType) CellType() CellType { return t.cellType }

// CellMeta returns the cell meta data of values of this type.
func (t ValueType) CellMeta() CellMeta {
	return CellMeta{CellType: t.cellType, IsScalar: t.IsDouble()}
}

// IsError reports whether this is the invalid type sentinel.
func (t ValueType) IsError() bool { return t.err }

// IsDouble reports whether this is the double scalar type.
func (t ValueType) IsDouble() bool { return !t.err && len(t.dims) == 0 }

// HasDimensions reports whether the type has at least one dimension.
func (t ValueType) HasDimensions() bool { return len(t.dims) > 0 }

// IsDense reports whether the type has dimensions and all of them are indexed.
func (t ValueType) IsDense() bool {
	return !t.err && len(t.dims) > 0 && t.CountMappedDimensions() == 0
}

// IsSparse reports whether the type has dimensions and all of them are mapped.
func (t ValueType) IsSparse() bool {
	return !t.err && len(t.dims) > 0 && t.CountIndexedDimensions() == 0
}

// IsMixed reports whether the type has both mapped and indexed dimensions.
func (t ValueType) IsMixed() bool {
	return t.CountMappedDimensions() > 0 && t.CountIndexedDimensions() > 0
}

// Dimensions returns the dimensions in canonical order. The slice must not be modified.
func (t ValueType) Dimensions() []Dimension { return t.dims }

// CountMappedDimensions returns the number of mapped dimensions.
func (t ValueType) CountMappedDimensions() int {
	n := 0
	for _, d := range t.dims {
		if d.IsMapped() {
			n++
		}
	}
	return n
}

// CountIndexedDimensions returns the number of indexed dimensions.
func (t ValueType) CountIndexedDimensions() int {
	return len(t.dims) - t.CountMappedDimensions()
}

// MappedDimensions returns the mapped dimensions in canonical order.
func (t ValueType) MappedDimensions() []Dimension {
	return t.filter(Dimension.IsMapped)
}

// IndexedDimensions returns the indexed dimensions in canonical order.
func (t ValueType) IndexedDimensions() []Dimension {
	return t.filter(Dimension.IsIndexed)
}

// NontrivialIndexedDimensions returns the indexed dimensions with size > 1.
func (t ValueType) NontrivialIndexedDimensions() []Dimension {
	return t.filter(func(d Dimension) bool { return d.IsIndexed() && !d.IsTrivial() })
}

func (t ValueType) filter(keep func(Dimension) bool) []Dimension {
	var out []Dimension
	for _, d := range t.dims {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// DenseSubspaceSize returns the product of all indexed dimension sizes (1 if none).
func (t ValueType) DenseSubspaceSize() int {
	n := 1
	for _, d := range t.dims {
		if d.IsIndexed() {
			n *= int(d.Size)
		}
	}
	return n
}

// DimensionIndex returns the position of the named dimension, or -1.
func (t ValueType) DimensionIndex(name string) int {
	for i, d := range t.dims {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// Dimension returns the named dimension.
func (t ValueType) Dimension(name string) (Dimension, bool) {
	if idx := t.DimensionIndex(name); idx >= 0 {
		return t.dims[idx], true
	}
	return Dimension{}, false
}

// DimensionNames returns the dimension names in canonical order.
func (t ValueType) DimensionNames() []string {
	names := make([]string, len(t.dims))
	for i, d := range t.dims {
		names[i] = d.Name
	}
	return names
}

// MappedDimensionNames returns the names of the mapped dimensions.
func (t ValueType) MappedDimensionNames() []string {
	var names []string
	for _, d := range t.dims {
		if d.IsMapped() {
			names = append(names, d.Name)
		}
	}
	return names
}

// IndexedStride returns the row-major stride of an indexed dimension within one dense subspace.
func (t ValueType) IndexedStride(name string) (int, bool) {
	stride := 1
	for i := len(t.dims) - 1; i >= 0; i-- {
		d := t.dims[i]
		if d.IsMapped() {
			continue
		}
		if d.Name == name {
			return stride, true
		}
		stride *= int(d.Size)
	}
	return 0, false
}

// Equal compares cell type and dimension sets.
func (t ValueType) Equal(other ValueType) bool {
	if t.err || other.err {
		return t.err == other.err
	}
	if t.cellType != other.cellType || len(t.dims) != len(other.dims) {
		return false
	}
	for i := range t.dims {
		if t.dims[i] != other.dims[i] {
			return false
		}
	}
	return true
}

// String renders the type spec, e.g. "tensor<float>(x[3],y{})".
func (t ValueType) String() string {
	if t.err {
		return "error"
	}
	if len(t.dims) == 0 {
		return "double"
	}
	var sb strings.Builder
	sb.WriteString("tensor")
	if t.cellType != Double {
		sb.WriteString("<")
		sb.WriteString(t.cellType.String())
		sb.WriteString(">")
	}
	sb.WriteString("(")
	for i, d := range t.dims {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(d.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// WithCellType returns the same dimensions with another cell type.
func (t ValueType) WithCellType(ct CellType) ValueType {
	if t.err || len(t.dims) == 0 {
		return t
	}
	return ValueType{cellType: ct, dims: t.dims}
}

// Map returns the type of applying a unary function to every cell.
func (t ValueType) Map() ValueType {
	if t.err {
		return t
	}
	return t.WithCellType(t.CellMeta().Map().CellType)
}

// Reduce removes the named dimensions. No names means all dimensions.
func (t ValueType) Reduce(dims ...string) (ValueType, error) {
	if t.err {
		return ErrorType(), &TypeError{Op: "reduce", Lhs: t, Details: "operand is the error type"}
	}
	if len(dims) == 0 {
		return DoubleType(), nil
	}
	drop := make(map[string]bool, len(dims))
	for _, name := range dims {
		if t.DimensionIndex(name) < 0 {
			return ErrorType(), &TypeError{Op: "reduce", Lhs: t, Details: fmt.Sprintf("unknown dimension %q", name)}
		}
		drop[name] = true
	}
	var kept []Dimension
	for _, d := range t.dims {
		if !drop[d.Name] {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return DoubleType(), nil
	}
	return ValueType{cellType: t.CellMeta().Reduce(false).CellType, dims: kept}, nil
}

// JoinTypes returns the type of joining values of types a and b.
// A shared indexed dimension must have equal sizes unless one of them is trivial.
func JoinTypes(a, b ValueType) (ValueType, error) {
	if a.err || b.err {
		return ErrorType(), &TypeError{Op: "join", Lhs: a, Rhs: &b, Details: "operand is the error type"}
	}
	meta := JoinCellMeta(a.CellMeta(), b.CellMeta())
	dims := make([]Dimension, 0, len(a.dims)+len(b.dims))
	i, j := 0, 0
	for i < len(a.dims) || j < len(b.dims) {
		switch {
		case j == len(b.dims) || (i < len(a.dims) && a.dims[i].Name < b.dims[j].Name):
			dims = append(dims, a.dims[i])
			i++
		case i == len(a.dims) || b.dims[j].Name < a.dims[i].Name:
			dims = append(dims, b.dims[j])
			j++
		default:
			d, err := joinDimension(a.dims[i], b.dims[j])
			if err != nil {
				return ErrorType(), &TypeError{Op: "join", Lhs: a, Rhs: &b, Details: err.Error()}
			}
			dims = append(dims, d)
			i++
			j++
		}
	}
	if len(dims) == 0 {
		return DoubleType(), nil
	}
	return ValueType{cellType: meta.CellType, dims: dims}, nil
}

func joinDimension(a, b Dimension) (Dimension, error) {
	switch {
	case a.Size == b.Size:
		return a, nil
	case a.IsMapped() || b.IsMapped():
		return Dimension{}, fmt.Errorf("dimension %q is mapped in one operand and indexed in the other", a.Name)
	case a.IsTrivial():
		return b, nil
	case b.IsTrivial():
		return a, nil
	default:
		return Dimension{}, fmt.Errorf("dimension %q has sizes %d and %d", a.Name, a.Size, b.Size)
	}
}
