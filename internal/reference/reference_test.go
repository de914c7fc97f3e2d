package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

func TestGen(t *testing.T) {
	spec := Gen{Type: "tensor(x{},y[2])", Labels: map[string][]string{"x": {"p", "q"}}}.Spec()
	want := tensor.NewTensorSpec("tensor(x{},y[2])").
		Add(tensor.Address{"x": tensor.MappedLabel("p"), "y": tensor.IndexedLabel(0)}, 1).
		Add(tensor.Address{"x": tensor.MappedLabel("p"), "y": tensor.IndexedLabel(1)}, 2).
		Add(tensor.Address{"x": tensor.MappedLabel("q"), "y": tensor.IndexedLabel(0)}, 3).
		Add(tensor.Address{"x": tensor.MappedLabel("q"), "y": tensor.IndexedLabel(1)}, 4)
	assert.True(t, want.Equal(spec), want.Diff(spec))
}

func TestJoin_Broadcast(t *testing.T) {
	a := Gen{Type: "tensor(x[3])"}.Spec()
	b := Gen{Type: "tensor(x[1],y[2])", Seq: N(4)}.Spec()
	got := Join(a, b, ops.Mul.Fn)
	want := tensor.NewTensorSpec("tensor(x[3],y[2])")
	for x := 0; x < 3; x++ {
		for y := 0; y < 2; y++ {
			want.Add(tensor.Address{"x": tensor.IndexedLabel(x), "y": tensor.IndexedLabel(y)}, float64((x+1)*(y+5)))
		}
	}
	assert.True(t, want.Equal(got), want.Diff(got))
}

func TestJoin_SparseOverlap(t *testing.T) {
	a := Gen{Type: "tensor(x{})", Labels: map[string][]string{"x": {"a", "b"}}}.Spec()
	b := Gen{Type: "tensor(x{})", Labels: map[string][]string{"x": {"b", "c"}}}.Spec()
	got := Join(a, b, ops.Add.Fn)
	want := tensor.NewTensorSpec("tensor(x{})").Add(tensor.Address{"x": tensor.MappedLabel("b")}, 3)
	assert.True(t, want.Equal(got), want.Diff(got))
}

func TestJoin_InvalidTypes(t *testing.T) {
	got := Join(Gen{Type: "tensor(x[2])"}.Spec(), Gen{Type: "tensor(x[3])"}.Spec(), ops.Add.Fn)
	assert.Equal(t, "error", got.Type())
}

func TestReduce(t *testing.T) {
	a := Gen{Type: "tensor(x[2],y[3])"}.Spec()
	got := Reduce(a, ops.AggrSum, "y")
	want := tensor.NewTensorSpec("tensor(x[2])").
		Add(tensor.Address{"x": tensor.IndexedLabel(0)}, 6).
		Add(tensor.Address{"x": tensor.IndexedLabel(1)}, 15)
	assert.True(t, want.Equal(got), want.Diff(got))

	all := Reduce(a, ops.AggrMax)
	assert.True(t, tensor.NewTensorSpec("double").Add(tensor.Address{}, 6).Equal(all))
}

func TestReduce_EmptyIntoDense(t *testing.T) {
	empty := tensor.NewTensorSpec("tensor(x{},y[2])")
	got := Reduce(empty, ops.AggrSum, "x")
	want := tensor.NewTensorSpec("tensor(y[2])").
		Add(tensor.Address{"y": tensor.IndexedLabel(0)}, 0).
		Add(tensor.Address{"y": tensor.IndexedLabel(1)}, 0)
	assert.True(t, want.Equal(got), want.Diff(got))

	sparse := Reduce(tensor.NewTensorSpec("tensor(x{},y{})"), ops.AggrSum, "x")
	assert.Equal(t, 0, sparse.Len())
}

func TestMapAndCellCast(t *testing.T) {
	a := Gen{Type: "tensor<int8>(x[2])"}.Spec()
	got := Map(a, ops.Neg.Fn)
	assert.Equal(t, "tensor<float>(x[2])", got.Type())
	assert.Equal(t, -2.0, got.Cells()[1].Value)

	cast := CellCast(Gen{Type: "tensor(x[1])", Seq: func(int) float64 { return 2.75 }}.Spec(), tensor.Int8)
	assert.Equal(t, "tensor<int8>(x[1])", cast.Type())
	assert.Equal(t, 2.0, cast.Cells()[0].Value)
}

func TestLambda(t *testing.T) {
	got := Lambda(tensor.FromSpec("tensor(x[2],y[2])"), func(c []int) float64 {
		return float64(c[0]*10 + c[1])
	})
	want := tensor.NewTensorSpec("tensor(x[2],y[2])").
		Add(tensor.Address{"x": tensor.IndexedLabel(0), "y": tensor.IndexedLabel(0)}, 0).
		Add(tensor.Address{"x": tensor.IndexedLabel(0), "y": tensor.IndexedLabel(1)}, 1).
		Add(tensor.Address{"x": tensor.IndexedLabel(1), "y": tensor.IndexedLabel(0)}, 10).
		Add(tensor.Address{"x": tensor.IndexedLabel(1), "y": tensor.IndexedLabel(1)}, 11)
	assert.True(t, want.Equal(got), want.Diff(got))
}
