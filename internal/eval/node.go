package eval

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Node is one operation of an expression tree. Every node carries its result type, computed
// when the node is created.
type Node interface {
	ResultType() tensor.ValueType
	Children() []Node
	// Compile returns the instruction computing this node. When it runs, the results of
	// Children() are on top of the stack, last child topmost.
	Compile(c *CompileContext) (Instruction, error)
}

// ViewNode is implemented by nodes whose result may borrow the storage of one child. ViewOf
// returns that child, or nil when the result is freshly allocated.
type ViewNode interface {
	Node
	ViewOf() Node
}

// Param reads evaluation parameter Index.
type Param struct {
	Index int
	typ   tensor.ValueType
}

// NewParam declares parameter idx of type t.
func NewParam(idx int, t tensor.ValueType) *Param {
	return &Param{Index: idx, typ: t}
}

func (n *Param) ResultType() tensor.ValueType { return n.typ }
func (n *Param) Children() []Node             { return nil }

func (n *Param) Compile(_ *CompileContext) (Instruction, error) {
	return &paramInstruction{index: n.Index}, nil
}

// Const is a constant value. Its storage is never mutated.
type Const struct {
	Value tensor.Value
}

// NewConst wraps a value.
func NewConst(v tensor.Value) *Const {
	return &Const{Value: v}
}

func (n *Const) ResultType() tensor.ValueType { return n.Value.Type() }
func (n *Const) Children() []Node             { return nil }

func (n *Const) Compile(_ *CompileContext) (Instruction, error) {
	return &constInstruction{value: n.Value}, nil
}

// Join combines two child results cell by cell.
type Join struct {
	Lhs, Rhs Node
	Op       *ops.Op2
	typ      tensor.ValueType
}

// NewJoin creates a join node, failing with tensor.ErrInvalidType on incompatible children.
func NewJoin(lhs, rhs Node, op *ops.Op2) (*Join, error) {
	t, err := tensor.JoinTypes(lhs.ResultType(), rhs.ResultType())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Join{Lhs: lhs, Rhs: rhs, Op: op, typ: t}, nil
}

func (n *Join) ResultType() tensor.ValueType { return n.typ }
func (n *Join) Children() []Node             { return []Node{n.Lhs, n.Rhs} }

func (n *Join) Compile(c *CompileContext) (Instruction, error) {
	plans, err := c.JoinPlans(n.Lhs.ResultType(), n.Rhs.ResultType())
	if err != nil {
		return nil, err
	}
	return &joinInstruction{op: n.Op, plans: plans}, nil
}

// Map applies a unary function to every cell of the child result.
type Map struct {
	Child Node
	Op    *ops.Op1
}

// NewMap creates a map node.
func NewMap(child Node, op *ops.Op1) *Map {
	return &Map{Child: child, Op: op}
}

func (n *Map) ResultType() tensor.ValueType { return n.Child.ResultType().Map() }
func (n *Map) Children() []Node             { return []Node{n.Child} }

func (n *Map) Compile(_ *CompileContext) (Instruction, error) {
	return &mapInstruction{op: n.Op}, nil
}

// Reduce aggregates away dimensions of the child result. No dimensions means all of them.
type Reduce struct {
	Child Node
	Aggr  ops.Aggr
	Dims  []string
	typ   tensor.ValueType
}

// NewReduce creates a reduce node, failing with tensor.ErrInvalidType on unknown dimensions.
func NewReduce(child Node, aggr ops.Aggr, dims ...string) (*Reduce, error) {
	t, err := child.ResultType().Reduce(dims...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Reduce{Child: child, Aggr: aggr, Dims: dims, typ: t}, nil
}

func (n *Reduce) ResultType() tensor.ValueType { return n.typ }
func (n *Reduce) Children() []Node             { return []Node{n.Child} }

// ReducesAll reports whether every dimension of the child is reduced.
func (n *Reduce) ReducesAll() bool {
	return len(n.Dims) == 0 || len(n.Dims) == len(n.Child.ResultType().Dimensions())
}

func (n *Reduce) Compile(c *CompileContext) (Instruction, error) {
	plans, err := c.ReducePlans(n.Child.ResultType(), n.Dims)
	if err != nil {
		return nil, err
	}
	return &reduceInstruction{aggr: n.Aggr, plans: plans}, nil
}

// CellCast converts the child result to another cell type.
type CellCast struct {
	Child    Node
	CellType tensor.CellType
}

// NewCellCast creates a cell cast node.
func NewCellCast(child Node, ct tensor.CellType) *CellCast {
	return &CellCast{Child: child, CellType: ct}
}

func (n *CellCast) ResultType() tensor.ValueType {
	return n.Child.ResultType().WithCellType(n.CellType)
}
func (n *CellCast) Children() []Node { return []Node{n.Child} }

// ViewOf returns the child when the cast keeps the cell type, since the child's value is then
// passed through unchanged.
func (n *CellCast) ViewOf() Node {
	if n.Child.ResultType().CellType() == n.CellType {
		return n.Child
	}
	return nil
}

func (n *CellCast) Compile(_ *CompileContext) (Instruction, error) {
	return &cellCastInstruction{cellType: n.CellType}, nil
}

// CompileContext carries what instructions need at compile time.
type CompileContext struct {
	Factory tensor.ValueBuilderFactory
	Plans   *plan.Cache
	options *options
}

// JoinPlans returns (possibly cached) join plans.
func (c *CompileContext) JoinPlans(lhs, rhs tensor.ValueType) (*plan.JoinPlans, error) {
	if c.Plans != nil {
		return c.Plans.JoinPlans(lhs, rhs)
	}
	return plan.NewJoinPlans(lhs, rhs)
}

// ReducePlans returns (possibly cached) reduce plans.
func (c *CompileContext) ReducePlans(in tensor.ValueType, dims []string) (*plan.ReducePlans, error) {
	if c.Plans != nil {
		return c.Plans.ReducePlans(in, dims)
	}
	return plan.NewReducePlans(in, dims)
}

// Walk visits n and its descendants in post order.
func Walk(n Node, visit func(Node)) {
	for _, child := range n.Children() {
		Walk(child, visit)
	}
	visit(n)
}
