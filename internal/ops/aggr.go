package ops

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Aggr identifies a reduce aggregator.
type Aggr int

// Supported aggregators.
const (
	AggrAvg Aggr = iota
	AggrCount
	AggrProd
	AggrSum
	AggrMax
	AggrMedian
	AggrMin
)

var aggrNames = map[Aggr]string{
	AggrAvg:    "avg",
	AggrCount:  "count",
	AggrProd:   "prod",
	AggrSum:    "sum",
	AggrMax:    "max",
	AggrMedian: "median",
	AggrMin:    "min",
}

func (a Aggr) String() string {
	if name, ok := aggrNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Aggr(%d)", int(a))
}

// ParseAggr resolves an aggregator name.
func ParseAggr(name string) (Aggr, bool) {
	for a, n := range aggrNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// IsSimple reports whether partial results can be combined with the aggregator itself,
// which lets reductions be split and reordered.
func (a Aggr) IsSimple() bool {
	switch a {
	case AggrSum, AggrProd, AggrMax, AggrMin:
		return true
	default:
		return false
	}
}

// IsIdent reports whether aggregating a single sample returns that sample.
func (a Aggr) IsIdent() bool {
	return a != AggrCount
}

// Aggregator accumulates samples for one output cell. The zero result, with no samples, is 0.
type Aggregator struct {
	aggr   Aggr
	n      int
	acc    float64
	values []float64
}

// NewAggregator returns an empty aggregator.
func NewAggregator(a Aggr) Aggregator {
	return Aggregator{aggr: a}
}

// Sample adds one value.
func (g *Aggregator) Sample(v float64) {
	switch g.aggr {
	case AggrSum, AggrAvg:
		g.acc += v
	case AggrProd:
		if g.n == 0 {
			g.acc = v
		} else {
			g.acc *= v
		}
	case AggrMax:
		if g.n == 0 || v > g.acc {
			g.acc = v
		}
	case AggrMin:
		if g.n == 0 || v < g.acc {
			g.acc = v
		}
	case AggrMedian:
		g.values = append(g.values, v)
	}
	g.n++
}

// Result returns the aggregate of all samples.
func (g *Aggregator) Result() float64 {
	if g.n == 0 {
		return 0
	}
	switch g.aggr {
	case AggrAvg:
		return g.acc / float64(g.n)
	case AggrCount:
		return float64(g.n)
	case AggrMedian:
		return median(g.values)
	default:
		return g.acc
	}
}

func median(values []float64) float64 {
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	sorted := append([]float64(nil), values...)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Combine merges two partial results of a simple aggregator.
func (a Aggr) Combine(x, y float64) float64 {
	switch a {
	case AggrSum:
		return x + y
	case AggrProd:
		return x * y
	case AggrMax:
		return math.Max(x, y)
	case AggrMin:
		return math.Min(x, y)
	default:
		panic(fmt.Sprintf("combine: %s is not a simple aggregator", a))
	}
}
