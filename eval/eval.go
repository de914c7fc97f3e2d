// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package eval compiles and evaluates tensor expressions.
//
// An expression is a tree of nodes built bottom-up. Every constructor computes the node's
// result type and rejects incompatible operands with tensor.ErrInvalidType:
//
//	x := eval.NewParam(0, tensor.FromSpec("tensor(a[2],d[3])"))
//	y := eval.NewParam(1, tensor.FromSpec("tensor(b[5],d[3])"))
//	prod, _ := eval.NewJoin(x, y, eval.Mul)
//	root, _ := eval.NewReduce(prod, eval.Sum, "d")
//
//	p, _ := eval.Compile(root, eval.WithOptimizer(eval.NewOptimizer()))
//	result, _ := p.Eval(a, b)
//
// With an optimizer, recognized subtrees (matrix products, single reductions, joins with a
// number and similar) run as specialized kernels. Results match the generic path.
package eval

import (
	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/optimize"
	"github.com/born-ml/tensoreval/internal/plan"
)

// Expression nodes.
type (
	Node     = eval.Node
	Param    = eval.Param
	Const    = eval.Const
	Join     = eval.Join
	Map      = eval.Map
	Reduce   = eval.Reduce
	CellCast = eval.CellCast
	Lambda   = eval.Lambda
	Kernel   = eval.Kernel
)

// Compiled programs.
type (
	Program     = eval.Program
	Context     = eval.Context
	Instruction = eval.Instruction
	Option      = eval.Option
)

// Cell functions and aggregators.
type (
	Op1  = ops.Op1
	Op2  = ops.Op2
	Aggr = ops.Aggr
)

// Optimizer rewrites expressions into specialized kernels.
type Optimizer = optimize.Optimizer

// OptimizerOption configures an Optimizer.
type OptimizerOption = optimize.Option

// PlanCache shares join and reduce plans between programs.
type PlanCache = plan.Cache

// Node constructors.
var (
	NewParam    = eval.NewParam
	NewConst    = eval.NewConst
	NewJoin     = eval.NewJoin
	NewMap      = eval.NewMap
	NewReduce   = eval.NewReduce
	NewCellCast = eval.NewCellCast
	NewLambda   = eval.NewLambda
)

// Compilation.
var (
	Compile           = eval.Compile
	WithFactory       = eval.WithFactory
	WithOptimizer     = eval.WithOptimizer
	WithPlanCache     = eval.WithPlanCache
	WithLogger        = eval.WithLogger
	WithMutableParams = eval.WithMutableParams
)

// Optimizer construction.
var (
	NewOptimizer    = optimize.New
	WithRegisterer  = optimize.WithRegisterer
	WithDisabled    = optimize.WithDisabled
	OptimizerLogger = optimize.WithLogger
	NewPlanCache    = plan.NewCache
)

// Binary cell functions.
var (
	Add     = ops.Add
	Sub     = ops.Sub
	Mul     = ops.Mul
	Div     = ops.Div
	Pow     = ops.Pow
	Min     = ops.Min
	Max     = ops.Max
	Hamming = ops.Hamming
)

// Unary cell functions.
var (
	Neg        = ops.Neg
	Abs        = ops.Abs
	Exp        = ops.Exp
	Sqrt       = ops.Sqrt
	Relu       = ops.Relu
	InvOnePlus = ops.InvOnePlus
)

// Aggregators.
const (
	Avg     Aggr = ops.AggrAvg
	Count   Aggr = ops.AggrCount
	Prod    Aggr = ops.AggrProd
	Sum     Aggr = ops.AggrSum
	Median  Aggr = ops.AggrMedian
	Maximum Aggr = ops.AggrMax
	Minimum Aggr = ops.AggrMin
)
