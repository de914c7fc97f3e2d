package optimize

import (
	"math/bits"

	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// SumMaxInvHamming fuses
//
//	reduce(reduce(map(reduce(hamming(query, document), sum, z), inv_one_plus), max, y), sum, x)
//
// for int8 operands query(x, z) and document(y, z) with z indexed and innermost in both. x and
// y may be indexed or mapped; every subspace of a mapped operand is one vector.
type SumMaxInvHamming struct {
	QuerySize    int // 0 when x is mapped.
	DocumentSize int // 0 when y is mapped.
	VectorSize   int

	lhs, rhs   eval.Node
	queryIsRhs bool
}

func (n *SumMaxInvHamming) ResultType() tensor.ValueType { return tensor.DoubleType() }
func (n *SumMaxInvHamming) Children() []eval.Node        { return []eval.Node{n.lhs, n.rhs} }
func (n *SumMaxInvHamming) Name() string                 { return KernelSumMaxInvHamming }

func (n *SumMaxInvHamming) Compile(_ *eval.CompileContext) (eval.Instruction, error) {
	return n, nil
}

func (n *SumMaxInvHamming) Execute(st *eval.State) error {
	lhs, rhs, err := st.Pop2()
	if err != nil {
		return err
	}
	if n.queryIsRhs {
		lhs, rhs = rhs, lhs
	}
	query := tensor.Typed[int8](lhs.Cells())
	docs := tensor.Typed[int8](rhs.Cells())
	queries, documents := len(query)/n.VectorSize, len(docs)/n.VectorSize
	var sum float64
	for q := 0; q < queries; q++ {
		qv := query[q*n.VectorSize : (q+1)*n.VectorSize]
		var best float32
		for d := 0; d < documents; d++ {
			dv := docs[d*n.VectorSize : (d+1)*n.VectorSize]
			dist := 0
			for k, b := range qv {
				dist += bits.OnesCount8(uint8(b ^ dv[k]))
			}
			sim := float32(1 / (1 + float64(dist)))
			if d == 0 || sim > best {
				best = sim
			}
		}
		sum += float64(best)
	}
	st.Push(tensor.DoubleValue(sum))
	return nil
}

// hammingOperand checks one side of the hamming join: int8 with exactly two dimensions, the
// indexed vector dimension last. It returns the other dimension.
func hammingOperand(t tensor.ValueType, vector string) (tensor.Dimension, bool) {
	dims := t.Dimensions()
	if t.CellType() != tensor.Int8 || len(dims) != 2 || dims[1].Name != vector || !dims[1].IsIndexed() {
		return tensor.Dimension{}, false
	}
	return dims[0], true
}

func staticSize(d tensor.Dimension) int {
	if d.IsMapped() {
		return 0
	}
	return int(d.Size)
}

func singleReduce(n eval.Node, aggr ops.Aggr) (*eval.Reduce, bool) {
	r, ok := n.(*eval.Reduce)
	if !ok || r.Aggr != aggr || len(r.Dims) != 1 {
		return nil, false
	}
	return r, true
}

// DetectSumMaxInvHamming matches the exact nesting documented on SumMaxInvHamming. Any other
// aggregator, function or dimension role declines.
func DetectSumMaxInvHamming(n eval.Node, _ *eval.MutabilityProof) eval.Node {
	sumX, ok := singleReduce(n, ops.AggrSum)
	if !ok {
		return nil
	}
	maxY, ok := singleReduce(sumX.Child, ops.AggrMax)
	if !ok {
		return nil
	}
	inv, ok := maxY.Child.(*eval.Map)
	if !ok || inv.Op != ops.InvOnePlus {
		return nil
	}
	sumZ, ok := singleReduce(inv.Child, ops.AggrSum)
	if !ok {
		return nil
	}
	join, ok := sumZ.Child.(*eval.Join)
	if !ok || join.Op != ops.Hamming {
		return nil
	}
	z := sumZ.Dims[0]
	lhsOther, ok := hammingOperand(join.Lhs.ResultType(), z)
	if !ok {
		return nil
	}
	rhsOther, ok := hammingOperand(join.Rhs.ResultType(), z)
	if !ok {
		return nil
	}
	lhsVec, _ := join.Lhs.ResultType().Dimension(z)
	rhsVec, _ := join.Rhs.ResultType().Dimension(z)
	if lhsVec != rhsVec || lhsOther.Name == rhsOther.Name {
		return nil
	}
	x, y := sumX.Dims[0], maxY.Dims[0]
	fused := &SumMaxInvHamming{VectorSize: int(lhsVec.Size), lhs: join.Lhs, rhs: join.Rhs}
	switch {
	case lhsOther.Name == x && rhsOther.Name == y:
		fused.QuerySize, fused.DocumentSize = staticSize(lhsOther), staticSize(rhsOther)
	case rhsOther.Name == x && lhsOther.Name == y:
		fused.QuerySize, fused.DocumentSize = staticSize(rhsOther), staticSize(lhsOther)
		fused.queryIsRhs = true
	default:
		return nil
	}
	return fused
}
