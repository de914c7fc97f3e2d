package tensor

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var factories = []ValueBuilderFactory{SimpleValueBuilderFactory{}, FastValueBuilderFactory{}}

func forEachFactory(t *testing.T, fn func(t *testing.T, f ValueBuilderFactory)) {
	t.Helper()
	for _, f := range factories {
		t.Run(f.Name(), func(t *testing.T) { fn(t, f) })
	}
}

func TestBuilder_Dense(t *testing.T) {
	forEachFactory(t, func(t *testing.T, f ValueBuilderFactory) {
		typ := FromSpec("tensor<float>(x[2],y[2])")
		b := f.NewValueBuilder(typ, 1)
		cells := AddSubspace[float32](b, nil)
		require.Len(t, cells, 4)
		copy(cells, []float32{1, 2, 3, 4})
		v := b.Build()
		assert.True(t, v.Type().Equal(typ))
		assert.Equal(t, 1, v.Index().Size())
		assert.Equal(t, []float32{1, 2, 3, 4}, Typed[float32](v.Cells()))
	})
}

func TestBuilder_EmptyDenseGetsZeroSubspace(t *testing.T) {
	forEachFactory(t, func(t *testing.T, f ValueBuilderFactory) {
		v := f.NewValueBuilder(FromSpec("tensor(x[3])"), 0).Build()
		assert.Equal(t, []float64{0, 0, 0}, Typed[float64](v.Cells()))
	})
}

func TestBuilder_EmptySparse(t *testing.T) {
	forEachFactory(t, func(t *testing.T, f ValueBuilderFactory) {
		v := f.NewValueBuilder(FromSpec("tensor(x{},y[2])"), 0).Build()
		assert.Equal(t, 0, v.Index().Size())
		assert.Equal(t, 0, v.Cells().Len())
	})
}

func TestBuilder_DuplicateAddressReturnsSameSubspace(t *testing.T) {
	forEachFactory(t, func(t *testing.T, f ValueBuilderFactory) {
		b := f.NewValueBuilder(FromSpec("tensor(x{})"), 2)
		AddSubspace[float64](b, []string{"a"})[0] = 1
		AddSubspace[float64](b, []string{"b"})[0] = 2
		cells := AddSubspace[float64](b, []string{"a"})
		assert.Equal(t, 1.0, cells[0])
		cells[0] = 5
		v := b.Build()
		assert.Equal(t, 2, v.Index().Size())
		spec := SpecFromValue(v)
		want := NewTensorSpec("tensor(x{})").
			Add(Address{"x": MappedLabel("a")}, 5).
			Add(Address{"x": MappedLabel("b")}, 2)
		assert.True(t, want.Equal(spec), want.Diff(spec))
	})
}

func TestBuilder_DoubleResult(t *testing.T) {
	forEachFactory(t, func(t *testing.T, f ValueBuilderFactory) {
		b := f.NewValueBuilder(DoubleType(), 1)
		AddSubspace[float64](b, nil)[0] = 2.5
		v := b.Build()
		assert.True(t, v.Type().IsDouble())
		assert.Equal(t, 2.5, AsDouble(v))
	})
}

func TestIndexView_PartialLookup(t *testing.T) {
	forEachFactory(t, func(t *testing.T, f ValueBuilderFactory) {
		b := f.NewValueBuilder(FromSpec("tensor(x{},y{})"), 4)
		for _, addr := range [][]string{{"a", "1"}, {"a", "2"}, {"b", "1"}, {"c", "3"}} {
			AddSubspace[float64](b, addr)
		}
		v := b.Build()

		view := v.Index().CreateView([]int{1})
		view.Lookup([]string{"1"})
		var rest []string
		out := make([]string, 1)
		for {
			_, ok := view.Next(out)
			if !ok {
				break
			}
			rest = append(rest, out[0])
		}
		sort.Strings(rest)
		assert.Equal(t, []string{"a", "b"}, rest)

		full := v.Index().CreateView([]int{0, 1})
		full.Lookup([]string{"c", "3"})
		idx, ok := full.Next(nil)
		require.True(t, ok)
		assert.Equal(t, 3, idx)
		_, ok = full.Next(nil)
		assert.False(t, ok)

		full.Lookup([]string{"c", "1"})
		_, ok = full.Next(nil)
		assert.False(t, ok)
	})
}

func TestCopyValue_AcrossFactories(t *testing.T) {
	spec := NewTensorSpec("tensor<float>(x{},y[2])").
		Add(Address{"x": MappedLabel("a"), "y": IndexedLabel(0)}, 1).
		Add(Address{"x": MappedLabel("a"), "y": IndexedLabel(1)}, 2).
		Add(Address{"x": MappedLabel("b"), "y": IndexedLabel(1)}, 3)
	v, err := ValueFromSpec(spec, SimpleValueBuilderFactory{})
	require.NoError(t, err)
	cp := CopyValue(v, FastValueBuilderFactory{})
	got := SpecFromValue(cp)
	want := spec.Add(Address{"x": MappedLabel("b"), "y": IndexedLabel(0)}, 0)
	assert.True(t, want.Equal(got), want.Diff(got))
}

func TestValueView_BorrowsCells(t *testing.T) {
	v := NewDenseValue(FromSpec("tensor(x[1],y[3])"), CellsOf([]float64{1, 2, 3}))
	view := NewValueView(FromSpec("tensor(y[3])"), v.Cells(), v.Index())
	assert.Equal(t, v.Cells().DataPointer(), view.Cells().DataPointer())
	assert.Equal(t, 6.0, AsDouble(view))
}
