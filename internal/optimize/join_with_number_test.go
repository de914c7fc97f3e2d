package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/optimize"
	"github.com/born-ml/tensoreval/internal/reference"
	"github.com/born-ml/tensoreval/internal/tensor"
)

func joinWithNumber(t *testing.T, p *eval.Program) *optimize.JoinWithNumber {
	t.Helper()
	found := eval.FindAll[*optimize.JoinWithNumber](p)
	require.Len(t, found, 1)
	return found[0]
}

func TestJoinWithNumber(t *testing.T) {
	layouts := []string{"tensor<float>(x[4])", "tensor(x[4])", "tensor<float>(x{},y[3])"}
	for _, f := range factories {
		for _, layout := range layouts {
			for _, primary := range []optimize.Primary{optimize.PrimaryLHS, optimize.PrimaryRHS} {
				for _, mutable := range []bool{false, true} {
					name := f.Name() + "/" + layout + "/" + primary.String()
					if mutable {
						name += "/mutable"
					}
					t.Run(name, func(t *testing.T) {
						tensorParam, numberParam := param(0, layout), param(1, "double")
						root := join(t, tensorParam, numberParam, ops.Sub)
						if primary == optimize.PrimaryRHS {
							root = join(t, numberParam, tensorParam, ops.Div)
						}
						params := values(t, f,
							reference.Gen{Type: layout, Seq: reference.Div16(reference.N(1))},
							reference.Gen{Type: "double", Seq: func(int) float64 { return 2.5 }},
						)
						var opts []eval.Option
						if mutable {
							opts = append(opts, eval.WithMutableParams(0))
						}
						p, got := compare(t, root, f, params, opts...)

						jwn := joinWithNumber(t, p)
						assert.Equal(t, primary, jwn.Primary)
						assert.Equal(t, mutable, jwn.Inplace)
						same := got.Cells().DataPointer() == params[0].Cells().DataPointer()
						assert.Equal(t, mutable, same)
					})
				}
			}
		}
	}
}

func TestJoinWithNumber_NotInplace(t *testing.T) {
	f := tensor.FastValueBuilderFactory{}
	number := param(1, "double")

	t.Run("cell type changes", func(t *testing.T) {
		root := join(t, param(0, "tensor<int8>(x[4])"), number, ops.Mul)
		params := values(t, f, reference.Gen{Type: "tensor<int8>(x[4])"}, reference.Gen{Type: "double"})
		p, got := compare(t, root, f, params, eval.WithMutableParams(0))
		assert.False(t, joinWithNumber(t, p).Inplace)
		assert.Equal(t, tensor.Float, got.Type().CellType())
	})

	t.Run("parameter read twice", func(t *testing.T) {
		x := param(0, "tensor(x[4])")
		root := join(t, join(t, x, number, ops.Sub), x, ops.Add)
		params := values(t, f, reference.Gen{Type: "tensor(x[4])"}, reference.Gen{Type: "double"})
		p, _ := compare(t, root, f, params, eval.WithMutableParams(0))
		assert.False(t, joinWithNumber(t, p).Inplace)
	})

	t.Run("view of immutable parameter", func(t *testing.T) {
		root := join(t, reduce(t, param(0, "tensor<float>(x[4],y[1])"), ops.AggrSum, "y"), number, ops.Sub)
		params := values(t, f, reference.Gen{Type: "tensor<float>(x[4],y[1])"}, reference.Gen{Type: "double"})
		p, got := compare(t, root, f, params)
		assert.Len(t, eval.FindAll[*optimize.ReplaceType](p), 1)
		assert.False(t, joinWithNumber(t, p).Inplace)
		assert.NotEqual(t, params[0].Cells().DataPointer(), got.Cells().DataPointer())
	})
}

func TestJoinWithNumber_IdentityCastKeepsOperandsIntact(t *testing.T) {
	f := tensor.FastValueBuilderFactory{}
	vec := tensor.FromSpec("tensor(x[2])")
	number := param(1, "double")
	ten := values(t, f, reference.Gen{Type: "double", Seq: func(int) float64 { return 10 }})[0]

	t.Run("constant", func(t *testing.T) {
		c := tensor.NewDenseValue(vec, tensor.CellsOf([]float64{1, 2}))
		root := join(t, eval.NewCellCast(eval.NewConst(c), tensor.Double), number, ops.Add)
		p, err := eval.Compile(root, eval.WithFactory(f), eval.WithOptimizer(optimize.New()))
		require.NoError(t, err)
		assert.False(t, joinWithNumber(t, p).Inplace)
		for run := 0; run < 3; run++ {
			got, err := p.Eval(ten)
			require.NoError(t, err)
			assert.Equal(t, []float64{11, 12}, tensor.Typed[float64](got.Cells()), "run %d", run)
		}
		assert.Equal(t, []float64{1, 2}, tensor.Typed[float64](c.Cells()))
	})

	t.Run("immutable parameter", func(t *testing.T) {
		root := join(t, eval.NewCellCast(param(0, "tensor(x[2])"), tensor.Double), number, ops.Add)
		x := tensor.NewDenseValue(vec, tensor.CellsOf([]float64{1, 2}))
		p, _ := compare(t, root, f, []tensor.Value{x, ten})
		assert.False(t, joinWithNumber(t, p).Inplace)
		assert.Equal(t, []float64{1, 2}, tensor.Typed[float64](x.Cells()))
	})

	t.Run("mutable parameter", func(t *testing.T) {
		root := join(t, eval.NewCellCast(param(0, "tensor(x[2])"), tensor.Double), number, ops.Add)
		x := tensor.NewDenseValue(vec, tensor.CellsOf([]float64{1, 2}))
		p, got := compare(t, root, f, []tensor.Value{x, ten}, eval.WithMutableParams(0))
		assert.True(t, joinWithNumber(t, p).Inplace)
		assert.Equal(t, x.Cells().DataPointer(), got.Cells().DataPointer())
	})
}

func TestJoinWithNumber_InplaceIntermediates(t *testing.T) {
	f := tensor.FastValueBuilderFactory{}
	number := param(1, "double")

	t.Run("map result", func(t *testing.T) {
		root := join(t, number, eval.NewMap(param(0, "tensor(x[4])"), ops.Neg), ops.Sub)
		params := values(t, f, reference.Gen{Type: "tensor(x[4])"}, reference.Gen{Type: "double"})
		p, _ := compare(t, root, f, params)
		jwn := joinWithNumber(t, p)
		assert.Equal(t, optimize.PrimaryRHS, jwn.Primary)
		assert.True(t, jwn.Inplace)
	})

	t.Run("view of mutable parameter", func(t *testing.T) {
		root := join(t, reduce(t, param(0, "tensor<float>(x[4],y[1])"), ops.AggrSum, "y"), number, ops.Sub)
		params := values(t, f, reference.Gen{Type: "tensor<float>(x[4],y[1])"}, reference.Gen{Type: "double"})
		p, got := compare(t, root, f, params, eval.WithMutableParams(0))
		assert.True(t, joinWithNumber(t, p).Inplace)
		assert.Equal(t, params[0].Cells().DataPointer(), got.Cells().DataPointer())
	})
}

func TestDetectJoinWithNumber_Declines(t *testing.T) {
	both := join(t, param(0, "tensor(x[2])"), param(1, "tensor(x[2])"), ops.Add)
	assert.Nil(t, optimize.DetectJoinWithNumber(both, eval.ProveMutability(both)))
	scalars := join(t, param(0, "double"), param(1, "double"), ops.Add)
	assert.Nil(t, optimize.DetectJoinWithNumber(scalars, eval.ProveMutability(scalars)))
}
