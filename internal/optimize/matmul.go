package optimize

import (
	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// DenseMatMul computes reduce(A*B, sum, d) for two dense matrices sharing only d.
// Lhs is the operand whose other dimension comes first in the result.
type DenseMatMul struct {
	LhsSize        int
	CommonSize     int
	RhsSize        int
	LhsCommonInner bool
	RhsCommonInner bool

	matMulNode
}

// DenseMultiMatMul is DenseMatMul repeated over a common prefix of batch dimensions.
type DenseMultiMatMul struct {
	LhsSize        int
	CommonSize     int
	RhsSize        int
	MatMulCnt      int
	LhsCommonInner bool
	RhsCommonInner bool

	matMulNode
}

// matMulNode holds what both matmul kernels share.
type matMulNode struct {
	lhs, rhs eval.Node
	swapped  bool
	shape    matMulShape
	typ      tensor.ValueType
	kernel   matMulKernel
}

func (n *matMulNode) ResultType() tensor.ValueType { return n.typ }
func (n *matMulNode) Children() []eval.Node        { return []eval.Node{n.lhs, n.rhs} }

func (n *matMulNode) execute(st *eval.State) error {
	lhs, rhs, err := st.Pop2()
	if err != nil {
		return err
	}
	if n.swapped {
		lhs, rhs = rhs, lhs
	}
	b := st.Factory.NewValueBuilder(n.typ, 1)
	n.kernel(b.AddSubspace(nil), lhs.Cells(), rhs.Cells(), &n.shape)
	st.Push(b.Build())
	return nil
}

func (n *DenseMatMul) Name() string                                             { return KernelDenseMatMul }
func (n *DenseMatMul) Execute(st *eval.State) error                             { return n.execute(st) }
func (n *DenseMatMul) Compile(_ *eval.CompileContext) (eval.Instruction, error) { return n, nil }

func (n *DenseMultiMatMul) Name() string                 { return KernelDenseMultiMatMul }
func (n *DenseMultiMatMul) Execute(st *eval.State) error { return n.execute(st) }
func (n *DenseMultiMatMul) Compile(_ *eval.CompileContext) (eval.Instruction, error) {
	return n, nil
}

// sumOfProducts matches reduce(join(lhs, rhs, mul), sum, d) and returns its parts.
func sumOfProducts(n eval.Node) (reduce *eval.Reduce, join *eval.Join, dim string, ok bool) {
	reduce, ok = n.(*eval.Reduce)
	if !ok || reduce.Aggr != ops.AggrSum || len(reduce.Dims) != 1 {
		return nil, nil, "", false
	}
	join, ok = reduce.Child.(*eval.Join)
	if !ok || !isMul(join.Op) {
		return nil, nil, "", false
	}
	lt, rt := join.Lhs.ResultType(), join.Rhs.ResultType()
	if !lt.IsDense() || !rt.IsDense() || !isFloatCells(lt.CellType()) || !isFloatCells(rt.CellType()) {
		return nil, nil, "", false
	}
	return reduce, join, reduce.Dims[0], true
}

// matMulOperand splits the dimensions of one dense operand into a batch prefix and the last
// two dimensions, which must be the common one and exactly one other.
func matMulOperand(t tensor.ValueType, common string) (batch []tensor.Dimension, other tensor.Dimension, commonInner bool, ok bool) {
	dims := t.Dimensions()
	if len(dims) < 2 {
		return nil, tensor.Dimension{}, false, false
	}
	a, b := dims[len(dims)-2], dims[len(dims)-1]
	switch common {
	case b.Name:
		return dims[:len(dims)-2], a, true, true
	case a.Name:
		return dims[:len(dims)-2], b, false, true
	}
	return nil, tensor.Dimension{}, false, false
}

func sameDimensions(a, b []tensor.Dimension) bool {
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

func detectMatMul(n eval.Node, batched bool) (*matMulNode, bool) {
	reduce, join, dim, ok := sumOfProducts(n)
	if !ok {
		return nil, false
	}
	lt, rt := join.Lhs.ResultType(), join.Rhs.ResultType()
	lhsBatch, lhsOther, lhsInner, ok := matMulOperand(lt, dim)
	if !ok {
		return nil, false
	}
	rhsBatch, rhsOther, rhsInner, ok := matMulOperand(rt, dim)
	if !ok {
		return nil, false
	}
	if batched != (len(lhsBatch) > 0) || !sameDimensions(lhsBatch, rhsBatch) {
		return nil, false
	}
	common, _ := lt.Dimension(dim)
	rhsCommon, _ := rt.Dimension(dim)
	if common.IsTrivial() || common != rhsCommon || lhsOther.Name == rhsOther.Name {
		return nil, false
	}
	if !batched && (lhsOther.IsTrivial() || rhsOther.IsTrivial()) {
		return nil, false
	}
	m := &matMulNode{lhs: join.Lhs, rhs: join.Rhs, typ: reduce.ResultType()}
	if rhsOther.Name < lhsOther.Name {
		m.swapped = true
		lhsOther, rhsOther = rhsOther, lhsOther
		lhsInner, rhsInner = rhsInner, lhsInner
		lt, rt = rt, lt
	}
	batches := 1
	for _, d := range lhsBatch {
		batches *= int(d.Size)
	}
	m.shape = matMulShape{
		batches:        batches,
		lhsSize:        int(lhsOther.Size),
		commonSize:     int(common.Size),
		rhsSize:        int(rhsOther.Size),
		lhsCommonInner: lhsInner,
		rhsCommonInner: rhsInner,
	}
	m.kernel = selectMatMul(lt.CellType(), rt.CellType())
	return m, true
}

// DetectDenseMatMul matches reduce(A*B, sum, d) where A and B are dense matrices with d as
// their only common dimension.
func DetectDenseMatMul(n eval.Node, _ *eval.MutabilityProof) eval.Node {
	m, ok := detectMatMul(n, false)
	if !ok {
		return nil
	}
	return &DenseMatMul{
		LhsSize:        m.shape.lhsSize,
		CommonSize:     m.shape.commonSize,
		RhsSize:        m.shape.rhsSize,
		LhsCommonInner: m.shape.lhsCommonInner,
		RhsCommonInner: m.shape.rhsCommonInner,
		matMulNode:     *m,
	}
}

// DetectDenseMultiMatMul matches reduce(A*B, sum, d) where A and B start with the same batch
// dimensions and end with a matrix sharing d.
func DetectDenseMultiMatMul(n eval.Node, _ *eval.MutabilityProof) eval.Node {
	m, ok := detectMatMul(n, true)
	if !ok {
		return nil
	}
	return &DenseMultiMatMul{
		LhsSize:        m.shape.lhsSize,
		CommonSize:     m.shape.commonSize,
		RhsSize:        m.shape.rhsSize,
		MatMulCnt:      m.shape.batches,
		LhsCommonInner: m.shape.lhsCommonInner,
		RhsCommonInner: m.shape.rhsCommonInner,
		matMulNode:     *m,
	}
}
