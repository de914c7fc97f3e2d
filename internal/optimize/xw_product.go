package optimize

import "github.com/born-ml/tensoreval/internal/eval"

// DenseXWProduct computes reduce(x*W, sum, d) for a dense vector x over d and a dense matrix W
// over d and one result dimension.
type DenseXWProduct struct {
	VectorSize  int
	ResultSize  int
	CommonInner bool

	matMulNode
}

func (n *DenseXWProduct) Name() string                 { return KernelDenseXWProduct }
func (n *DenseXWProduct) Execute(st *eval.State) error { return n.execute(st) }
func (n *DenseXWProduct) Compile(_ *eval.CompileContext) (eval.Instruction, error) {
	return n, nil
}

// DetectDenseXWProduct matches a vector-matrix product in either operand order.
func DetectDenseXWProduct(n eval.Node, _ *eval.MutabilityProof) eval.Node {
	reduce, join, dim, ok := sumOfProducts(n)
	if !ok {
		return nil
	}
	vecType, matType := join.Lhs.ResultType(), join.Rhs.ResultType()
	vectorOnRight := false
	if len(vecType.Dimensions()) == 2 {
		vecType, matType = matType, vecType
		vectorOnRight = true
	}
	vecDims, matDims := vecType.Dimensions(), matType.Dimensions()
	if len(vecDims) != 1 || len(matDims) != 2 || vecDims[0].Name != dim {
		return nil
	}
	common, ok := matType.Dimension(dim)
	if !ok || common != vecDims[0] || common.IsTrivial() {
		return nil
	}
	result := matDims[0]
	commonInner := matDims[1].Name == dim
	if !commonInner {
		result = matDims[1]
	}
	if result.IsTrivial() {
		return nil
	}
	return &DenseXWProduct{
		VectorSize:  int(common.Size),
		ResultSize:  int(result.Size),
		CommonInner: commonInner,
		matMulNode: matMulNode{
			lhs:     join.Lhs,
			rhs:     join.Rhs,
			swapped: vectorOnRight,
			typ:     reduce.ResultType(),
			shape: matMulShape{
				batches:        1,
				lhsSize:        1,
				commonSize:     int(common.Size),
				rhsSize:        int(result.Size),
				lhsCommonInner: true,
				rhsCommonInner: commonInner,
			},
			kernel: selectMatMul(vecType.CellType(), matType.CellType()),
		},
	}
}
