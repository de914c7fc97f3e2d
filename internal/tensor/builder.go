package tensor

import (
	"encoding/binary"
	"strings"
)

// ValueBuilderFactory allocates output storage for every operation.
// Implementations are interchangeable: they only differ in index structure and allocation
// strategy, never in the values they produce.
type ValueBuilderFactory interface {
	// NewValueBuilder returns a builder for a value of type t. expectedSubspaces is a hint.
	NewValueBuilder(t ValueType, expectedSubspaces int) ValueBuilder
	// Name identifies the factory in logs and tests.
	Name() string
}

// ValueBuilder accumulates subspaces of one value.
type ValueBuilder interface {
	// AddSubspace returns zeroed cells for the subspace with the given mapped labels
	// (one per mapped dimension, in canonical order). Adding an existing address returns the
	// cells already allocated for it. The returned cells are only valid until the next call.
	AddSubspace(labels []string) TypedCells
	// Build finishes the value. A type without mapped dimensions always gets one subspace.
	Build() Value
}

// AddSubspace is a typed wrapper around ValueBuilder.AddSubspace.
func AddSubspace[T Cell](b ValueBuilder, labels []string) []T {
	return Typed[T](b.AddSubspace(labels))
}

// CopyValue builds a copy of v through factory f.
func CopyValue(v Value, f ValueBuilderFactory) Value {
	t := v.Type()
	if t.IsDouble() {
		return DoubleValue(AsDouble(v))
	}
	b := f.NewValueBuilder(t, v.Index().Size())
	Subspaces(v, func(subspace int, labels []string) {
		b.AddSubspace(labels).CopyFrom(SubspaceCells(v, subspace))
	})
	return b.Build()
}

// SimpleValueBuilderFactory is the reference factory: separate allocation per subspace and a
// linear-scan index.
type SimpleValueBuilderFactory struct{}

// Name implements ValueBuilderFactory.
func (SimpleValueBuilderFactory) Name() string { return "simple" }

// NewValueBuilder implements ValueBuilderFactory.
func (SimpleValueBuilderFactory) NewValueBuilder(t ValueType, expectedSubspaces int) ValueBuilder {
	return &simpleBuilder{typ: t, labels: make([][]string, 0, expectedSubspaces)}
}

type simpleBuilder struct {
	typ    ValueType
	labels [][]string
	blocks []TypedCells
}

func (b *simpleBuilder) AddSubspace(labels []string) TypedCells {
	for i, existing := range b.labels {
		if equalLabels(existing, labels) {
			return b.blocks[i]
		}
	}
	b.labels = append(b.labels, append([]string(nil), labels...))
	block := NewCells(b.typ.CellType(), b.typ.DenseSubspaceSize())
	b.blocks = append(b.blocks, block)
	return block
}

func (b *simpleBuilder) Build() Value {
	if b.typ.IsDouble() {
		if len(b.blocks) == 0 {
			return DoubleValue(0)
		}
		return DoubleValue(b.blocks[0].Get(0))
	}
	if b.typ.CountMappedDimensions() == 0 && len(b.blocks) == 0 {
		b.AddSubspace(nil)
	}
	dss := b.typ.DenseSubspaceSize()
	cells := NewCells(b.typ.CellType(), dss*len(b.blocks))
	for i, block := range b.blocks {
		cells.Slice(i*dss, (i+1)*dss).CopyFrom(block)
	}
	if b.typ.CountMappedDimensions() == 0 {
		return NewDenseValue(b.typ, cells)
	}
	return &mappedValue{typ: b.typ, cells: cells, index: &simpleIndex{labels: b.labels}}
}

type mappedValue struct {
	typ   ValueType
	cells TypedCells
	index Index
}

func (v *mappedValue) Type() ValueType   { return v.typ }
func (v *mappedValue) Cells() TypedCells { return v.cells }
func (v *mappedValue) Index() Index      { return v.index }

type simpleIndex struct {
	labels [][]string
}

func (idx *simpleIndex) Size() int { return len(idx.labels) }

func (idx *simpleIndex) CreateView(dims []int) IndexView {
	return &simpleView{index: idx, dims: dims}
}

type simpleView struct {
	index  *simpleIndex
	dims   []int
	lookup []string
	pos    int
}

func (v *simpleView) Lookup(labels []string) {
	v.lookup = append(v.lookup[:0], labels...)
	v.pos = 0
}

func (v *simpleView) Next(addrOut []string) (int, bool) {
	for v.pos < len(v.index.labels) {
		idx := v.pos
		v.pos++
		labels := v.index.labels[idx]
		if !matchAt(labels, v.dims, v.lookup) {
			continue
		}
		writeRest(labels, v.dims, addrOut)
		return idx, true
	}
	return 0, false
}

// FastValueBuilderFactory is the production factory: one contiguous cell buffer and a hashed index.
type FastValueBuilderFactory struct{}

// Name implements ValueBuilderFactory.
func (FastValueBuilderFactory) Name() string { return "fast" }

// NewValueBuilder implements ValueBuilderFactory.
func (FastValueBuilderFactory) NewValueBuilder(t ValueType, expectedSubspaces int) ValueBuilder {
	if expectedSubspaces < 1 {
		expectedSubspaces = 1
	}
	dss := t.DenseSubspaceSize()
	return &fastBuilder{
		typ:    t,
		dss:    dss,
		cells:  NewCells(t.CellType(), dss*expectedSubspaces),
		keys:   make(map[string]int, expectedSubspaces),
		labels: make([][]string, 0, expectedSubspaces),
	}
}

type fastBuilder struct {
	typ    ValueType
	dss    int
	cells  TypedCells
	used   int
	keys   map[string]int
	labels [][]string
}

func (b *fastBuilder) AddSubspace(labels []string) TypedCells {
	key := encodeLabels(labels, nil)
	if idx, ok := b.keys[key]; ok {
		return b.cells.Slice(idx*b.dss, (idx+1)*b.dss)
	}
	idx := len(b.labels)
	b.keys[key] = idx
	b.labels = append(b.labels, append([]string(nil), labels...))
	need := (idx + 1) * b.dss
	if need > b.cells.Len() {
		grown := NewCells(b.typ.CellType(), 2*need)
		grown.Slice(0, b.used).CopyFrom(b.cells.Slice(0, b.used))
		b.cells = grown
	}
	b.used = need
	return b.cells.Slice(idx*b.dss, need)
}

func (b *fastBuilder) Build() Value {
	if b.typ.CountMappedDimensions() == 0 && len(b.labels) == 0 {
		b.AddSubspace(nil)
	}
	cells := b.cells.Slice(0, b.used)
	if b.typ.IsDouble() {
		return DoubleValue(cells.Get(0))
	}
	if b.typ.CountMappedDimensions() == 0 {
		return NewDenseValue(b.typ, cells)
	}
	return &mappedValue{typ: b.typ, cells: cells, index: &fastIndex{keys: b.keys, labels: b.labels}}
}

type fastIndex struct {
	keys   map[string]int
	labels [][]string
}

func (idx *fastIndex) Size() int { return len(idx.labels) }

func (idx *fastIndex) CreateView(dims []int) IndexView {
	switch {
	case len(dims) == 0:
		return &simpleView{index: &simpleIndex{labels: idx.labels}}
	case len(idx.labels) > 0 && len(dims) == len(idx.labels[0]):
		return &fullView{index: idx}
	}
	groups := make(map[string][]int)
	for i, labels := range idx.labels {
		key := encodeLabels(labels, dims)
		groups[key] = append(groups[key], i)
	}
	return &partialView{index: idx, dims: dims, groups: groups}
}

// fullView resolves a complete address with one hash lookup.
type fullView struct {
	index *fastIndex
	match int
	found bool
}

func (v *fullView) Lookup(labels []string) {
	v.match, v.found = v.index.keys[encodeLabels(labels, nil)]
}

func (v *fullView) Next(_ []string) (int, bool) {
	if !v.found {
		return 0, false
	}
	v.found = false
	return v.match, true
}

// partialView groups subspaces by the labels of the view dimensions.
type partialView struct {
	index   *fastIndex
	dims    []int
	groups  map[string][]int
	current []int
}

func (v *partialView) Lookup(labels []string) {
	v.current = v.groups[encodeLabels(labels, nil)]
}

func (v *partialView) Next(addrOut []string) (int, bool) {
	if len(v.current) == 0 {
		return 0, false
	}
	idx := v.current[0]
	v.current = v.current[1:]
	writeRest(v.index.labels[idx], v.dims, addrOut)
	return idx, true
}

// encodeLabels builds a hash key from labels, restricted to positions when non-nil.
func encodeLabels(labels []string, positions []int) string {
	var sb strings.Builder
	var buf [binary.MaxVarintLen64]byte
	write := func(label string) {
		n := binary.PutUvarint(buf[:], uint64(len(label)))
		sb.Write(buf[:n])
		sb.WriteString(label)
	}
	if positions == nil {
		for _, label := range labels {
			write(label)
		}
	} else {
		for _, pos := range positions {
			write(labels[pos])
		}
	}
	return sb.String()
}

func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func matchAt(labels []string, dims []int, lookup []string) bool {
	for i, pos := range dims {
		if labels[pos] != lookup[i] {
			return false
		}
	}
	return true
}

// writeRest copies the labels at positions not listed in dims (sorted) into out.
func writeRest(labels []string, dims []int, out []string) {
	k, j := 0, 0
	for pos, label := range labels {
		if j < len(dims) && dims[j] == pos {
			j++
			continue
		}
		if k < len(out) {
			out[k] = label
		}
		k++
	}
}
