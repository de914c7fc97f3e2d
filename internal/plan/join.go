package plan

import (
	"fmt"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// Source tells which operand(s) contribute an output dimension.
type Source int

// Dimension sources.
const (
	SourceLHS Source = iota + 1
	SourceRHS
	SourceBoth
)

func (s Source) String() string {
	switch s {
	case SourceLHS:
		return "LHS"
	case SourceRHS:
		return "RHS"
	case SourceBoth:
		return "BOTH"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// DenseJoinPlan is the loop structure joining the dense subspaces of two operands.
type DenseJoinPlan struct {
	LhsSize   int
	RhsSize   int
	OutSize   int
	LoopCnt   []int
	LhsStride []int
	RhsStride []int
}

// NewDenseJoinPlan builds the plan for the indexed dimensions of lhs and rhs.
// The types are expected to be joinable (see tensor.JoinTypes). Trivial dimensions produce no
// loop, and adjacent dimensions with the same source share one loop.
func NewDenseJoinPlan(lhs, rhs tensor.ValueType) DenseJoinPlan {
	p := DenseJoinPlan{
		LhsSize: lhs.DenseSubspaceSize(),
		RhsSize: rhs.DenseSubspaceSize(),
	}
	var sources []Source
	mergeDimensions(lhs.IndexedDimensions(), rhs.IndexedDimensions(), func(a, b *tensor.Dimension) {
		var src Source
		size := 1
		if a != nil && !a.IsTrivial() {
			src |= SourceLHS
			size = int(a.Size)
		}
		if b != nil && !b.IsTrivial() {
			src |= SourceRHS
			size = int(b.Size)
		}
		if src == 0 {
			return
		}
		if n := len(sources); n > 0 && sources[n-1] == src {
			p.LoopCnt[n-1] *= size
			return
		}
		sources = append(sources, src)
		p.LoopCnt = append(p.LoopCnt, size)
	})
	inLhs := make([]bool, len(sources))
	inRhs := make([]bool, len(sources))
	p.OutSize = 1
	for i, src := range sources {
		inLhs[i] = src&SourceLHS != 0
		inRhs[i] = src&SourceRHS != 0
		p.OutSize *= p.LoopCnt[i]
	}
	p.LhsStride = computeStrides(p.LoopCnt, inLhs)
	p.RhsStride = computeStrides(p.LoopCnt, inRhs)
	return p
}

// Execute calls f(lhsIdx, rhsIdx) once per output cell in output row-major order, starting
// from the given subspace offsets.
func (p *DenseJoinPlan) Execute(lhsOffset, rhsOffset int, f func(lhsIdx, rhsIdx int)) {
	runNestedLoop(lhsOffset, rhsOffset, p.LoopCnt, p.LhsStride, p.RhsStride, f)
}

// SparseJoinPlan classifies the mapped dimensions of a join.
type SparseJoinPlan struct {
	Sources    []Source
	LhsOverlap []int
	RhsOverlap []int
}

// NewSparseJoinPlan builds the plan for the mapped dimensions of lhs and rhs.
func NewSparseJoinPlan(lhs, rhs tensor.ValueType) SparseJoinPlan {
	var p SparseJoinPlan
	lhsPos, rhsPos := 0, 0
	mergeDimensions(lhs.MappedDimensions(), rhs.MappedDimensions(), func(a, b *tensor.Dimension) {
		switch {
		case a != nil && b != nil:
			p.Sources = append(p.Sources, SourceBoth)
			p.LhsOverlap = append(p.LhsOverlap, lhsPos)
			p.RhsOverlap = append(p.RhsOverlap, rhsPos)
			lhsPos++
			rhsPos++
		case a != nil:
			p.Sources = append(p.Sources, SourceLHS)
			lhsPos++
		default:
			p.Sources = append(p.Sources, SourceRHS)
			rhsPos++
		}
	})
	return p
}

// HasOverlap reports whether any mapped dimension is shared.
func (p *SparseJoinPlan) HasOverlap() bool {
	return len(p.LhsOverlap) > 0
}

// BuildAddress assembles the output address from a full lhs address and the rhs labels
// that are not part of the overlap.
func (p *SparseJoinPlan) BuildAddress(lhs, rhsRest, out []string) {
	l, r := 0, 0
	for i, src := range p.Sources {
		switch src {
		case SourceLHS, SourceBoth:
			out[i] = lhs[l]
			l++
		case SourceRHS:
			out[i] = rhsRest[r]
			r++
		}
	}
}

// mergeDimensions walks two name-sorted dimension lists in merged order, passing nil for the
// side that lacks a dimension.
func mergeDimensions(a, b []tensor.Dimension, f func(a, b *tensor.Dimension)) {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].Name < b[j].Name):
			f(&a[i], nil)
			i++
		case i == len(a) || b[j].Name < a[i].Name:
			f(nil, &b[j])
			j++
		default:
			f(&a[i], &b[j])
			i++
			j++
		}
	}
}
