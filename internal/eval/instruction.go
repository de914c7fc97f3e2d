package eval

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Instruction is one step of a compiled program. It pops its inputs from the state and pushes
// exactly one result.
type Instruction interface {
	Name() string
	Execute(st *State) error
}

// State is the evaluation stack of one program run.
type State struct {
	Factory tensor.ValueBuilderFactory
	params  []tensor.Value
	stash   *Stash
	stack   []Handle
}

func newState(f tensor.ValueBuilderFactory, stash *Stash) *State {
	return &State{Factory: f, stash: stash}
}

func (st *State) reset(params []tensor.Value) {
	st.params = params
	st.stack = st.stack[:0]
}

// Param returns evaluation parameter i.
func (st *State) Param(i int) (tensor.Value, error) {
	if i < 0 || i >= len(st.params) {
		return nil, errors.Errorf("parameter %d out of range (%d given)", i, len(st.params))
	}
	return st.params[i], nil
}

// Params returns all evaluation parameters.
func (st *State) Params() []tensor.Value { return st.params }

// Push hands v to the stash and puts it on top of the stack.
func (st *State) Push(v tensor.Value) {
	st.stack = append(st.stack, st.stash.Put(v))
}

// Peek returns the value n positions below the top of the stack (0 is the top).
func (st *State) Peek(n int) (tensor.Value, error) {
	if n >= len(st.stack) {
		return nil, errors.Errorf("stack underflow: peek %d of %d", n, len(st.stack))
	}
	return st.stash.Get(st.stack[len(st.stack)-1-n])
}

// Pop removes and returns the top of the stack.
func (st *State) Pop() (tensor.Value, error) {
	v, err := st.Peek(0)
	if err != nil {
		return nil, err
	}
	st.stack = st.stack[:len(st.stack)-1]
	return v, nil
}

// Pop2 removes the two topmost values, returning them in push order.
func (st *State) Pop2() (lhs, rhs tensor.Value, err error) {
	if rhs, err = st.Pop(); err != nil {
		return nil, nil, err
	}
	if lhs, err = st.Pop(); err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

// Replace pops n values and pushes v in their place.
func (st *State) Replace(n int, v tensor.Value) error {
	if n > len(st.stack) {
		return errors.Errorf("stack underflow: replace %d of %d", n, len(st.stack))
	}
	st.stack = st.stack[:len(st.stack)-n]
	st.Push(v)
	return nil
}

// Depth returns the number of values on the stack.
func (st *State) Depth() int { return len(st.stack) }

type paramInstruction struct {
	index int
}

func (i *paramInstruction) Name() string { return "param" }

func (i *paramInstruction) Execute(st *State) error {
	v, err := st.Param(i.index)
	if err != nil {
		return err
	}
	st.Push(v)
	return nil
}

type constInstruction struct {
	value tensor.Value
}

func (i *constInstruction) Name() string { return "const" }

func (i *constInstruction) Execute(st *State) error {
	st.Push(i.value)
	return nil
}

type joinInstruction struct {
	op    *ops.Op2
	plans *plan.JoinPlans
}

func (i *joinInstruction) Name() string { return "join" }

func (i *joinInstruction) Execute(st *State) error {
	lhs, rhs, err := st.Pop2()
	if err != nil {
		return err
	}
	st.Push(ops.JoinWithPlans(lhs, rhs, i.op, i.plans, st.Factory))
	return nil
}

type mapInstruction struct {
	op *ops.Op1
}

func (i *mapInstruction) Name() string { return "map" }

func (i *mapInstruction) Execute(st *State) error {
	v, err := st.Pop()
	if err != nil {
		return err
	}
	st.Push(ops.Map(v, i.op, st.Factory))
	return nil
}

type reduceInstruction struct {
	aggr  ops.Aggr
	plans *plan.ReducePlans
}

func (i *reduceInstruction) Name() string { return "reduce" }

func (i *reduceInstruction) Execute(st *State) error {
	v, err := st.Pop()
	if err != nil {
		return err
	}
	st.Push(ops.ReduceWithPlans(v, i.aggr, i.plans, st.Factory))
	return nil
}

type cellCastInstruction struct {
	cellType tensor.CellType
}

func (i *cellCastInstruction) Name() string { return "cell_cast" }

func (i *cellCastInstruction) Execute(st *State) error {
	v, err := st.Pop()
	if err != nil {
		return err
	}
	st.Push(ops.CellCast(v, i.cellType, st.Factory))
	return nil
}
