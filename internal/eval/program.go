package eval

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Optimizer rewrites an expression tree before it is compiled. Rewrites must preserve the
// result of the tree (up to floating point rounding) and its result type.
type Optimizer interface {
	Optimize(root Node, proof *MutabilityProof) Node
}

type options struct {
	factory       tensor.ValueBuilderFactory
	optimizer     Optimizer
	plans         *plan.Cache
	logger        log.Logger
	mutableParams []int
}

// Option configures Compile.
type Option func(*options)

// WithFactory selects the value builder factory (default fast).
func WithFactory(f tensor.ValueBuilderFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithOptimizer enables tree rewriting before compilation.
func WithOptimizer(opt Optimizer) Option {
	return func(o *options) { o.optimizer = opt }
}

// WithPlanCache shares join and reduce plans between programs.
func WithPlanCache(c *plan.Cache) Option {
	return func(o *options) { o.plans = c }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMutableParams allows the program to overwrite the given parameters in place.
func WithMutableParams(idx ...int) Option {
	return func(o *options) { o.mutableParams = append(o.mutableParams, idx...) }
}

// Program is a compiled expression: a flat instruction list executed over a value stack.
// A Program is immutable after Compile and may be run concurrently with separate contexts.
type Program struct {
	root         Node
	instructions []Instruction
	paramTypes   []tensor.ValueType
	factory      tensor.ValueBuilderFactory
}

// Compile optimizes (when an optimizer is set) and linearizes the tree under root.
func Compile(root Node, opts ...Option) (*Program, error) {
	o := &options{
		factory: tensor.FastValueBuilderFactory{},
		logger:  log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.optimizer != nil {
		proof := ProveMutability(root, o.mutableParams...)
		root = o.optimizer.Optimize(root, proof)
	}
	p, err := compileProgram(root, o)
	if err != nil {
		return nil, err
	}
	level.Debug(o.logger).Log("msg", "compiled program", "instructions", len(p.instructions), "result", root.ResultType())
	return p, nil
}

func compileProgram(root Node, o *options) (*Program, error) {
	if root.ResultType().IsError() {
		return nil, errors.Wrap(tensor.ErrInvalidType, "expression has error type")
	}
	ctx := &CompileContext{Factory: o.factory, Plans: o.plans, options: &options{
		factory: o.factory,
		plans:   o.plans,
		logger:  o.logger,
	}}
	p := &Program{root: root, factory: o.factory}
	var firstErr error
	var emit func(n Node)
	emit = func(n Node) {
		if firstErr != nil {
			return
		}
		for _, child := range n.Children() {
			emit(child)
		}
		if param, ok := n.(*Param); ok {
			if err := p.declareParam(param); err != nil {
				firstErr = err
				return
			}
		}
		inst, err := n.Compile(ctx)
		if err != nil {
			firstErr = errors.Wrapf(err, "compile %T", n)
			return
		}
		p.instructions = append(p.instructions, inst)
	}
	emit(root)
	if firstErr != nil {
		return nil, firstErr
	}
	return p, nil
}

func (p *Program) declareParam(n *Param) error {
	if n.Index < 0 {
		return errors.Errorf("negative parameter index %d", n.Index)
	}
	for len(p.paramTypes) <= n.Index {
		p.paramTypes = append(p.paramTypes, tensor.ErrorType())
	}
	prev := p.paramTypes[n.Index]
	if prev.IsError() {
		p.paramTypes[n.Index] = n.ResultType()
		return nil
	}
	if !prev.Equal(n.ResultType()) {
		return &tensor.TypeError{Op: "param", Lhs: prev, Rhs: ptr(n.ResultType()), Details: "conflicting declarations"}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// Root returns the (possibly optimized) expression tree.
func (p *Program) Root() Node { return p.root }

// Instructions returns the compiled instruction list.
func (p *Program) Instructions() []Instruction { return p.instructions }

// ResultType returns the type of the program result.
func (p *Program) ResultType() tensor.ValueType { return p.root.ResultType() }

// ParamTypes returns the declared parameter types. Unreferenced slots hold the error type.
func (p *Program) ParamTypes() []tensor.ValueType { return p.paramTypes }

// Context holds the per-run state of a program. A context must not be shared between
// goroutines.
type Context struct {
	stash *Stash
	state *State
}

// NewContext creates a context for running p.
func (p *Program) NewContext() *Context {
	stash := NewStash()
	return &Context{stash: stash, state: newState(p.factory, stash)}
}

// Run evaluates the program. The result (and every intermediate value) stays valid until the
// next Run with the same context.
func (p *Program) Run(ctx *Context, params ...tensor.Value) (tensor.Value, error) {
	if len(params) < len(p.paramTypes) {
		return nil, errors.Errorf("program needs %d parameters, got %d", len(p.paramTypes), len(params))
	}
	for i, t := range p.paramTypes {
		if !t.IsError() && !params[i].Type().Equal(t) {
			return nil, &tensor.TypeError{Op: "param", Lhs: t, Rhs: ptr(params[i].Type()), Details: "parameter type mismatch"}
		}
	}
	ctx.stash.Reset()
	ctx.state.reset(params)
	for _, inst := range p.instructions {
		if err := inst.Execute(ctx.state); err != nil {
			return nil, errors.Wrapf(err, "instruction %s", inst.Name())
		}
	}
	if ctx.state.Depth() != 1 {
		return nil, errors.Errorf("program left %d values on the stack", ctx.state.Depth())
	}
	return ctx.state.Pop()
}

// Eval runs the program with a fresh context.
func (p *Program) Eval(params ...tensor.Value) (tensor.Value, error) {
	return p.Run(p.NewContext(), params...)
}

// FindAll returns every instruction of type T in p.
func FindAll[T Instruction](p *Program) []T {
	var found []T
	for _, inst := range p.instructions {
		if t, ok := inst.(T); ok {
			found = append(found, t)
		}
	}
	return found
}
