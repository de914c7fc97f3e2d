package optimize

import (
	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Primary names the tensor operand of a join with a number.
type Primary int

// Primary operands.
const (
	PrimaryLHS Primary = iota
	PrimaryRHS
)

func (p Primary) String() string {
	if p == PrimaryRHS {
		return "rhs"
	}
	return "lhs"
}

// JoinWithNumber joins a tensor with a double scalar. When Inplace is set the tensor operand's
// cells are overwritten and the operand itself becomes the result.
type JoinWithNumber struct {
	Primary Primary
	Inplace bool

	lhs, rhs eval.Node
	op       *ops.Op2
	typ      tensor.ValueType
}

func (n *JoinWithNumber) ResultType() tensor.ValueType { return n.typ }
func (n *JoinWithNumber) Children() []eval.Node        { return []eval.Node{n.lhs, n.rhs} }
func (n *JoinWithNumber) Name() string                 { return KernelJoinWithNumber }

func (n *JoinWithNumber) Compile(_ *eval.CompileContext) (eval.Instruction, error) {
	return n, nil
}

func (n *JoinWithNumber) Execute(st *eval.State) error {
	lhs, rhs, err := st.Pop2()
	if err != nil {
		return err
	}
	primary, number := lhs, tensor.AsDouble(rhs)
	if n.Primary == PrimaryRHS {
		primary, number = rhs, tensor.AsDouble(lhs)
	}
	numberOnLeft := n.Primary == PrimaryRHS
	if n.Inplace {
		cells := primary.Cells()
		selectJoinNumber(cells.Type, cells.Type)(cells, cells, number, numberOnLeft, n.op.Fn)
		st.Push(primary)
		return nil
	}
	src := primary.Cells().Widen()
	kernel := selectJoinNumber(src.Type, n.typ.CellType())
	dss := n.typ.DenseSubspaceSize()
	b := st.Factory.NewValueBuilder(n.typ, primary.Index().Size())
	tensor.Subspaces(primary, func(subspace int, labels []string) {
		kernel(b.AddSubspace(labels), src.Slice(subspace*dss, (subspace+1)*dss), number, numberOnLeft, n.op.Fn)
	})
	st.Push(b.Build())
	return nil
}

// DetectJoinWithNumber matches join(tensor, number) and join(number, tensor).
func DetectJoinWithNumber(n eval.Node, proof *eval.MutabilityProof) eval.Node {
	join, ok := n.(*eval.Join)
	if !ok {
		return nil
	}
	lt, rt := join.Lhs.ResultType(), join.Rhs.ResultType()
	if lt.IsDouble() == rt.IsDouble() {
		return nil
	}
	out := join.ResultType()
	primary, primaryNode, primaryType := PrimaryLHS, join.Lhs, lt
	if lt.IsDouble() {
		primary, primaryNode, primaryType = PrimaryRHS, join.Rhs, rt
	}
	return &JoinWithNumber{
		Primary: primary,
		Inplace: proof.IsMutable(primaryNode) && primaryType.CellType() == out.CellType(),
		lhs:     join.Lhs,
		rhs:     join.Rhs,
		op:      join.Op,
		typ:     out,
	}
}
