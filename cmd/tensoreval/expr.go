package main

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// exprFile is an expression with its parameter values:
//
//	params:
//	  - type: tensor(a[2],d[3])
//	    cells: [...]
//	mutable: [0]
//	expr:
//	  reduce:
//	    aggr: sum
//	    dims: [d]
//	    arg:
//	      join: {op: mul, lhs: {param: 0}, rhs: {param: 1}}
type exprFile struct {
	Params  []*tensor.TensorSpec `yaml:"params"`
	Mutable []int                `yaml:"mutable"`
	Expr    exprNode             `yaml:"expr"`
}

// exprNode holds exactly one of its fields.
type exprNode struct {
	Param    *int               `yaml:"param"`
	Const    *tensor.TensorSpec `yaml:"const"`
	Join     *joinExpr          `yaml:"join"`
	Map      *mapExpr           `yaml:"map"`
	Reduce   *reduceExpr        `yaml:"reduce"`
	CellCast *cellCastExpr      `yaml:"cell_cast"`
	Lambda   *lambdaExpr        `yaml:"lambda"`
}

type joinExpr struct {
	Op  string   `yaml:"op"`
	Lhs exprNode `yaml:"lhs"`
	Rhs exprNode `yaml:"rhs"`
}

type mapExpr struct {
	Op  string   `yaml:"op"`
	Arg exprNode `yaml:"arg"`
}

type reduceExpr struct {
	Aggr string   `yaml:"aggr"`
	Dims []string `yaml:"dims"`
	Arg  exprNode `yaml:"arg"`
}

type cellCastExpr struct {
	Cell string   `yaml:"cell"`
	Arg  exprNode `yaml:"arg"`
}

// lambdaExpr generates a dense value. Inside body, params 0..rank-1 are the cell coordinates
// and the following ones are the bound outer params.
type lambdaExpr struct {
	Type     string   `yaml:"type"`
	Bindings []int    `yaml:"bindings"`
	Body     exprNode `yaml:"body"`
}

// expression is a decoded exprFile.
type expression struct {
	Root    eval.Node
	Params  []*tensor.TensorSpec
	Mutable []int
}

func parseExpression(data []byte) (*expression, error) {
	var f exprFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse expression")
	}
	types := make([]tensor.ValueType, len(f.Params))
	for i, spec := range f.Params {
		types[i] = tensor.FromSpec(spec.Type())
	}
	root, err := f.Expr.build(types)
	if err != nil {
		return nil, err
	}
	return &expression{Root: root, Params: f.Params, Mutable: f.Mutable}, nil
}

func (e *exprNode) build(params []tensor.ValueType) (eval.Node, error) {
	switch {
	case e.Param != nil:
		idx := *e.Param
		if idx < 0 || idx >= len(params) {
			return nil, errors.Errorf("param %d out of range", idx)
		}
		return eval.NewParam(idx, params[idx]), nil
	case e.Const != nil:
		v, err := tensor.ValueFromSpec(e.Const, tensor.FastValueBuilderFactory{})
		if err != nil {
			return nil, errors.Wrap(err, "const")
		}
		return eval.NewConst(v), nil
	case e.Join != nil:
		op, ok := ops.Op2ByName(e.Join.Op)
		if !ok {
			return nil, errors.Errorf("unknown binary function %q", e.Join.Op)
		}
		lhs, err := e.Join.Lhs.build(params)
		if err != nil {
			return nil, err
		}
		rhs, err := e.Join.Rhs.build(params)
		if err != nil {
			return nil, err
		}
		return eval.NewJoin(lhs, rhs, op)
	case e.Map != nil:
		op, ok := ops.Op1ByName(e.Map.Op)
		if !ok {
			return nil, errors.Errorf("unknown unary function %q", e.Map.Op)
		}
		arg, err := e.Map.Arg.build(params)
		if err != nil {
			return nil, err
		}
		return eval.NewMap(arg, op), nil
	case e.Reduce != nil:
		aggr, ok := ops.ParseAggr(e.Reduce.Aggr)
		if !ok {
			return nil, errors.Errorf("unknown aggregator %q", e.Reduce.Aggr)
		}
		arg, err := e.Reduce.Arg.build(params)
		if err != nil {
			return nil, err
		}
		return eval.NewReduce(arg, aggr, e.Reduce.Dims...)
	case e.CellCast != nil:
		ct, ok := tensor.ParseCellType(e.CellCast.Cell)
		if !ok {
			return nil, errors.Errorf("unknown cell type %q", e.CellCast.Cell)
		}
		arg, err := e.CellCast.Arg.build(params)
		if err != nil {
			return nil, err
		}
		return eval.NewCellCast(arg, ct), nil
	case e.Lambda != nil:
		t, err := tensor.ParseValueType(e.Lambda.Type)
		if err != nil {
			return nil, err
		}
		inner := make([]tensor.ValueType, 0, len(t.Dimensions())+len(e.Lambda.Bindings))
		for range t.Dimensions() {
			inner = append(inner, tensor.DoubleType())
		}
		for _, idx := range e.Lambda.Bindings {
			if idx < 0 || idx >= len(params) {
				return nil, errors.Errorf("lambda binding %d out of range", idx)
			}
			inner = append(inner, params[idx])
		}
		body, err := e.Lambda.Body.build(inner)
		if err != nil {
			return nil, errors.Wrap(err, "lambda body")
		}
		return eval.NewLambda(t, e.Lambda.Bindings, nil, body)
	}
	return nil, errors.New("empty expression node")
}
