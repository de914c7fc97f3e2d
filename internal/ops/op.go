// Package ops implements the always-correct generic operations over values: join, reduce, map,
// cell cast and dense generation from a per-cell function.
package ops

import (
	"math"
	"math/bits"
)

// Op2 is a named binary cell function. Optimizers match functions by identity, so the
// predefined operations below must be used (not re-created) when a rewrite should apply.
type Op2 struct {
	Name string
	Fn   func(a, b float64) float64
}

// NewOp2 defines a custom binary function.
func NewOp2(name string, fn func(a, b float64) float64) *Op2 {
	return &Op2{Name: name, Fn: fn}
}

func (o *Op2) String() string { return o.Name }

// Predefined binary functions.
var (
	Add = NewOp2("add", func(a, b float64) float64 { return a + b })
	Sub = NewOp2("sub", func(a, b float64) float64 { return a - b })
	Mul = NewOp2("mul", func(a, b float64) float64 { return a * b })
	Div = NewOp2("div", func(a, b float64) float64 { return a / b })
	Mod = NewOp2("mod", math.Mod)
	Pow = NewOp2("pow", math.Pow)
	Min = NewOp2("min", math.Min)
	Max = NewOp2("max", math.Max)

	// Hamming counts the differing bits of the operands taken as int8.
	Hamming = NewOp2("hamming", func(a, b float64) float64 {
		return float64(bits.OnesCount8(uint8(int8(a)) ^ uint8(int8(b))))
	})
)

// Op2ByName resolves a predefined binary function.
func Op2ByName(name string) (*Op2, bool) {
	for _, op := range []*Op2{Add, Sub, Mul, Div, Mod, Pow, Min, Max, Hamming} {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

// Op1 is a named unary cell function.
type Op1 struct {
	Name string
	Fn   func(a float64) float64
}

// NewOp1 defines a custom unary function.
func NewOp1(name string, fn func(a float64) float64) *Op1 {
	return &Op1{Name: name, Fn: fn}
}

func (o *Op1) String() string { return o.Name }

// Predefined unary functions.
var (
	Neg     = NewOp1("neg", func(a float64) float64 { return -a })
	Abs     = NewOp1("abs", math.Abs)
	Exp     = NewOp1("exp", math.Exp)
	Log     = NewOp1("log", math.Log)
	Sqrt    = NewOp1("sqrt", math.Sqrt)
	Square  = NewOp1("square", func(a float64) float64 { return a * a })
	Relu    = NewOp1("relu", func(a float64) float64 { return math.Max(a, 0) })
	Sigmoid = NewOp1("sigmoid", func(a float64) float64 { return 1 / (1 + math.Exp(-a)) })

	// InvOnePlus is 1/(1+x), the similarity transform applied to hamming distances.
	InvOnePlus = NewOp1("inv_one_plus", func(a float64) float64 { return 1 / (1 + a) })
)

// Op1ByName resolves a predefined unary function.
func Op1ByName(name string) (*Op1, bool) {
	for _, op := range []*Op1{Neg, Abs, Exp, Log, Sqrt, Square, Relu, Sigmoid, InvOnePlus} {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}
