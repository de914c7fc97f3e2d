package eval

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Kernel is a compiled scalar function. It receives the cell coordinates followed by the
// values of the bound parameters.
type Kernel func(args []float64) float64

// Lambda generates a dense value by evaluating a scalar function for every cell.
//
// The compiled Kernel is used when every bound parameter is a double at run time. Otherwise
// Body is evaluated per cell as a nested program whose parameters are the coordinates (as
// doubles) followed by the bound values.
type Lambda struct {
	Bindings []int
	Kernel   Kernel
	Body     Node
	typ      tensor.ValueType
}

// NewLambda creates a lambda producing values of type t, which must have only indexed
// dimensions. At least one of kernel and body is required.
func NewLambda(t tensor.ValueType, bindings []int, kernel Kernel, body Node) (*Lambda, error) {
	if t.IsError() || t.CountMappedDimensions() > 0 {
		return nil, errors.Wrapf(tensor.ErrInvalidType, "lambda type %s must be dense", t)
	}
	if kernel == nil && body == nil {
		return nil, errors.New("lambda needs a kernel or a body")
	}
	if body != nil && !body.ResultType().IsDouble() {
		return nil, errors.Wrapf(tensor.ErrInvalidType, "lambda body yields %s, want double", body.ResultType())
	}
	return &Lambda{Bindings: bindings, Kernel: kernel, Body: body, typ: t}, nil
}

func (n *Lambda) ResultType() tensor.ValueType { return n.typ }
func (n *Lambda) Children() []Node             { return nil }

func (n *Lambda) Compile(c *CompileContext) (Instruction, error) {
	inst := &lambdaInstruction{node: n, rank: len(n.typ.Dimensions())}
	if n.Body != nil {
		body, err := compileProgram(n.Body, c.options)
		if err != nil {
			return nil, errors.Wrap(err, "lambda body")
		}
		inst.body = body
	}
	return inst, nil
}

type lambdaInstruction struct {
	node *Lambda
	rank int
	body *Program
}

func (i *lambdaInstruction) Name() string {
	if i.body == nil {
		return "lambda_compiled"
	}
	return "lambda"
}

func (i *lambdaInstruction) Execute(st *State) error {
	bound := make([]tensor.Value, len(i.node.Bindings))
	allDouble := true
	for j, idx := range i.node.Bindings {
		v, err := st.Param(idx)
		if err != nil {
			return err
		}
		bound[j] = v
		allDouble = allDouble && v.Type().IsDouble()
	}
	var fn ops.CellFunc
	switch {
	case i.node.Kernel != nil && allDouble:
		args := make([]float64, i.rank+len(bound))
		for j, v := range bound {
			args[i.rank+j] = tensor.AsDouble(v)
		}
		fn = func(coords []int) (float64, error) {
			for j, c := range coords {
				args[j] = float64(c)
			}
			return i.node.Kernel(args), nil
		}
	case i.body != nil:
		ctx := i.body.NewContext()
		params := make([]tensor.Value, i.rank+len(bound))
		copy(params[i.rank:], bound)
		fn = func(coords []int) (float64, error) {
			for j, c := range coords {
				params[j] = tensor.DoubleValue(c)
			}
			v, err := i.body.Run(ctx, params...)
			if err != nil {
				return 0, err
			}
			return tensor.AsDouble(v), nil
		}
	default:
		return errors.Wrap(tensor.ErrInvalidType, "lambda kernel needs double bindings and no body is available")
	}
	v, err := ops.Generate(i.node.typ, fn, st.Factory)
	if err != nil {
		return err
	}
	st.Push(v)
	return nil
}
