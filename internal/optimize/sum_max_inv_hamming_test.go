package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/optimize"
	"github.com/born-ml/tensoreval/internal/reference"
)

func int8Bits(bias int) reference.Seq {
	return func(i int) float64 { return float64(((i+bias)*37)%256 - 128) }
}

type hammingTree struct {
	lhs, rhs          string
	vector            string
	inner, mid, outer ops.Aggr
	midDim, outerDim  string
}

func (h hammingTree) build(t *testing.T) eval.Node {
	t.Helper()
	dist := reduce(t, join(t, param(0, h.lhs), param(1, h.rhs), ops.Hamming), h.inner, h.vector)
	best := reduce(t, eval.NewMap(dist, ops.InvOnePlus), h.mid, h.midDim)
	return reduce(t, best, h.outer, h.outerDim)
}

func TestSumMaxInvHamming(t *testing.T) {
	tests := []struct {
		name       string
		tree       hammingTree
		query, doc int
	}{
		{"query on left", hammingTree{"tensor<int8>(x[3],z[8])", "tensor<int8>(y[5],z[8])", "z", ops.AggrSum, ops.AggrMax, ops.AggrSum, "y", "x"}, 3, 5},
		{"query on right", hammingTree{"tensor<int8>(y[5],z[8])", "tensor<int8>(x[3],z[8])", "z", ops.AggrSum, ops.AggrMax, ops.AggrSum, "y", "x"}, 3, 5},
		{"roles swapped", hammingTree{"tensor<int8>(x[3],z[8])", "tensor<int8>(y[5],z[8])", "z", ops.AggrSum, ops.AggrMax, ops.AggrSum, "x", "y"}, 5, 3},
		{"mapped query", hammingTree{"tensor<int8>(x{},z[8])", "tensor<int8>(y[5],z[8])", "z", ops.AggrSum, ops.AggrMax, ops.AggrSum, "y", "x"}, 0, 5},
		{"mapped query and documents", hammingTree{"tensor<int8>(y{},z[8])", "tensor<int8>(x{},z[8])", "z", ops.AggrSum, ops.AggrMax, ops.AggrSum, "y", "x"}, 0, 0},
	}
	for _, f := range factories {
		for _, tt := range tests {
			t.Run(f.Name()+"/"+tt.name, func(t *testing.T) {
				params := values(t, f,
					reference.Gen{Type: tt.tree.lhs, Seq: int8Bits(0)},
					reference.Gen{Type: tt.tree.rhs, Seq: int8Bits(11)},
				)
				p, _ := compare(t, tt.tree.build(t), f, params)
				found := eval.FindAll[*optimize.SumMaxInvHamming](p)
				require.Len(t, found, 1)
				assert.Equal(t, tt.query, found[0].QuerySize)
				assert.Equal(t, tt.doc, found[0].DocumentSize)
				assert.Equal(t, 8, found[0].VectorSize)
				assert.Len(t, p.Instructions(), 3)
			})
		}
	}
}

func TestSumMaxInvHamming_Declines(t *testing.T) {
	base := hammingTree{"tensor<int8>(x[3],z[8])", "tensor<int8>(y[5],z[8])", "z", ops.AggrSum, ops.AggrMax, ops.AggrSum, "y", "x"}
	outerMax := base
	outerMax.outer = ops.AggrMax
	midMin := base
	midMin.mid = ops.AggrMin
	vectorFirst := base
	vectorFirst.lhs, vectorFirst.rhs, vectorFirst.vector = "tensor<int8>(a[8],x[3])", "tensor<int8>(a[8],y[5])", "a"
	floatCells := base
	floatCells.lhs, floatCells.rhs = "tensor<float>(x[3],z[8])", "tensor<float>(y[5],z[8])"
	mappedVector := base
	mappedVector.lhs, mappedVector.rhs = "tensor<int8>(x[3],z{})", "tensor<int8>(y[5],z{})"

	tests := map[string]hammingTree{
		"sum becomes max":        outerMax,
		"max becomes min":        midMin,
		"vector dimension first": vectorFirst,
		"float cells":            floatCells,
		"mapped vector":          mappedVector,
	}
	f := factories[1]
	for name, tree := range tests {
		t.Run(name, func(t *testing.T) {
			params := values(t, f,
				reference.Gen{Type: tree.lhs, Seq: int8Bits(0)},
				reference.Gen{Type: tree.rhs, Seq: int8Bits(11)},
			)
			p, _ := compare(t, tree.build(t), f, params)
			assert.Empty(t, eval.FindAll[*optimize.SumMaxInvHamming](p))
		})
	}
}
