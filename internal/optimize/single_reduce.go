package optimize

import (
	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// DenseSingleReduce reduces one contiguous run of dimensions of a dense value, seen as an
// [outer][reduce][inner] block.
type DenseSingleReduce struct {
	OuterSize  int
	ReduceSize int
	InnerSize  int
	Aggr       ops.Aggr

	child  eval.Node
	typ    tensor.ValueType
	kernel reduceKernel
}

func (n *DenseSingleReduce) ResultType() tensor.ValueType { return n.typ }
func (n *DenseSingleReduce) Children() []eval.Node        { return []eval.Node{n.child} }
func (n *DenseSingleReduce) Name() string                 { return KernelDenseSingleReduce }

func (n *DenseSingleReduce) Compile(_ *eval.CompileContext) (eval.Instruction, error) {
	return n, nil
}

func (n *DenseSingleReduce) Execute(st *eval.State) error {
	v, err := st.Pop()
	if err != nil {
		return err
	}
	b := st.Factory.NewValueBuilder(n.typ, 1)
	n.kernel(b.AddSubspace(nil), v.Cells(), n.OuterSize, n.ReduceSize, n.InnerSize, n.Aggr)
	st.Push(b.Build())
	return nil
}

// ReplaceType re-labels the cells of its child with another type of the same layout. The
// result borrows the child's storage.
type ReplaceType struct {
	child eval.Node
	typ   tensor.ValueType
}

func (n *ReplaceType) ResultType() tensor.ValueType { return n.typ }
func (n *ReplaceType) Children() []eval.Node        { return []eval.Node{n.child} }
func (n *ReplaceType) ViewOf() eval.Node            { return n.child }
func (n *ReplaceType) Name() string                 { return "replace_type" }

func (n *ReplaceType) Compile(_ *eval.CompileContext) (eval.Instruction, error) {
	return n, nil
}

func (n *ReplaceType) Execute(st *eval.State) error {
	v, err := st.Pop()
	if err != nil {
		return err
	}
	st.Push(tensor.NewValueView(n.typ, v.Cells(), v.Index()))
	return nil
}

// DetectDenseSingleReduce matches a simple aggregation over adjacent dimensions of a dense
// value that leaves at least one dimension. Reducing only trivial dimensions becomes a
// ReplaceType.
func DetectDenseSingleReduce(n eval.Node, _ *eval.MutabilityProof) eval.Node {
	reduce, ok := n.(*eval.Reduce)
	if !ok || !reduce.Aggr.IsSimple() || reduce.ResultType().IsDouble() {
		return nil
	}
	in := reduce.Child.ResultType()
	if !in.IsDense() || !isFloatCells(in.CellType()) {
		return nil
	}
	reduced := make(map[string]bool, len(reduce.Dims))
	for _, d := range reduce.Dims {
		reduced[d] = true
	}
	outer, size, inner := 1, 1, 1
	state := 0 // 0 before the reduced run, 1 inside it, 2 after it
	for _, d := range in.NontrivialIndexedDimensions() {
		switch {
		case reduced[d.Name] && state == 2:
			return nil
		case reduced[d.Name]:
			state = 1
			size *= int(d.Size)
		case state == 0:
			outer *= int(d.Size)
		default:
			state = 2
			inner *= int(d.Size)
		}
	}
	if size == 1 {
		return &ReplaceType{child: reduce.Child, typ: reduce.ResultType()}
	}
	return &DenseSingleReduce{
		OuterSize:  outer,
		ReduceSize: size,
		InnerSize:  inner,
		Aggr:       reduce.Aggr,
		child:      reduce.Child,
		typ:        reduce.ResultType(),
		kernel:     selectReduce(in.CellType()),
	}
}
