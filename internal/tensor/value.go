package tensor

// Value is a concrete tensor: one dense cell block per subspace, plus an Index mapping
// mapped-dimension label combinations to subspaces. Subspace i occupies cells
// [i*DenseSubspaceSize, (i+1)*DenseSubspaceSize).
type Value interface {
	Type() ValueType
	Cells() TypedCells
	Index() Index
}

// Index enumerates the subspaces of a value.
type Index interface {
	// Size returns the number of subspaces.
	Size() int
	// CreateView returns a view that looks up subspaces by the labels of the mapped
	// dimensions at the given positions (positions within the value's own mapped dimensions).
	CreateView(dims []int) IndexView
}

// IndexView iterates the subspaces matching a partial address.
type IndexView interface {
	// Lookup starts a new iteration over subspaces whose labels at the view dimensions
	// equal labels.
	Lookup(labels []string)
	// Next returns the next matching subspace, writing the labels of the mapped dimensions
	// not part of the view (in order) into addrOut.
	Next(addrOut []string) (subspace int, ok bool)
}

// AsDouble returns the value of a scalar, or the sum of all cells of a tensor.
func AsDouble(v Value) float64 {
	cells := v.Cells()
	if v.Type().IsDouble() {
		if cells.Len() == 0 {
			return 0
		}
		return cells.Get(0)
	}
	sum := 0.0
	for i, n := 0, cells.Len(); i < n; i++ {
		sum += cells.Get(i)
	}
	return sum
}

// DoubleValue is a scalar value.
type DoubleValue float64

// Type implements Value.
func (v DoubleValue) Type() ValueType { return DoubleType() }

// Cells implements Value.
func (v DoubleValue) Cells() TypedCells { return CellsOf([]float64{float64(v)}) }

// Index implements Value.
func (v DoubleValue) Index() Index { return TrivialIndex{} }

// TrivialIndex is the index of values without mapped dimensions: exactly one subspace.
type TrivialIndex struct{}

// Size implements Index.
func (TrivialIndex) Size() int { return 1 }

// CreateView implements Index.
func (TrivialIndex) CreateView(_ []int) IndexView { return &trivialView{} }

type trivialView struct {
	done bool
}

func (v *trivialView) Lookup(_ []string) { v.done = false }

func (v *trivialView) Next(_ []string) (int, bool) {
	if v.done {
		return 0, false
	}
	v.done = true
	return 0, true
}

// DenseValue is an owning value without mapped dimensions.
type DenseValue struct {
	typ   ValueType
	cells TypedCells
}

// NewDenseValue wraps cells as a value of a type without mapped dimensions.
func NewDenseValue(t ValueType, cells TypedCells) *DenseValue {
	return &DenseValue{typ: t, cells: cells}
}

// Type implements Value.
func (v *DenseValue) Type() ValueType { return v.typ }

// Cells implements Value.
func (v *DenseValue) Cells() TypedCells { return v.cells }

// Index implements Value.
func (v *DenseValue) Index() Index { return TrivialIndex{} }

// ValueView borrows the cells and index of another value under a possibly different type
// with the same cell layout. It is only valid while the borrowed value is alive and unmodified.
type ValueView struct {
	typ   ValueType
	cells TypedCells
	index Index
}

// NewValueView creates a view of cells and index under type t.
func NewValueView(t ValueType, cells TypedCells, index Index) *ValueView {
	return &ValueView{typ: t, cells: cells, index: index}
}

// Type implements Value.
func (v *ValueView) Type() ValueType { return v.typ }

// Cells implements Value.
func (v *ValueView) Cells() TypedCells { return v.cells }

// Index implements Value.
func (v *ValueView) Index() Index { return v.index }

// SubspaceCells returns the cells of subspace i.
func SubspaceCells(v Value, i int) TypedCells {
	dss := v.Type().DenseSubspaceSize()
	return v.Cells().Slice(i*dss, (i+1)*dss)
}

// Subspaces enumerates every subspace with its full mapped address.
func Subspaces(v Value, fn func(subspace int, labels []string)) {
	view := v.Index().CreateView(nil)
	view.Lookup(nil)
	labels := make([]string, v.Type().CountMappedDimensions())
	for {
		idx, ok := view.Next(labels)
		if !ok {
			return
		}
		fn(idx, labels)
	}
}
