package plan

import (
	"github.com/born-ml/tensoreval/internal/tensor"
)

// DenseReducePlan is the loop structure aggregating the dense cells of one subspace.
// OutStride is 0 on loops over reduced dimensions.
type DenseReducePlan struct {
	InSize    int
	OutSize   int
	LoopCnt   []int
	InStride  []int
	OutStride []int
}

// NewDenseReducePlan builds the plan for reducing the named dimensions of in.
// Trivial dimensions produce no loop; adjacent loops that are both reduced or both kept merge.
func NewDenseReducePlan(in tensor.ValueType, dims []string) DenseReducePlan {
	reduced := make(map[string]bool, len(dims))
	for _, name := range dims {
		reduced[name] = true
	}
	all := len(dims) == 0
	p := DenseReducePlan{InSize: in.DenseSubspaceSize(), OutSize: 1}
	var kept []bool
	for _, d := range in.IndexedDimensions() {
		if d.IsTrivial() {
			continue
		}
		keep := !all && !reduced[d.Name]
		if keep {
			p.OutSize *= int(d.Size)
		}
		if n := len(kept); n > 0 && kept[n-1] == keep {
			p.LoopCnt[n-1] *= int(d.Size)
			continue
		}
		kept = append(kept, keep)
		p.LoopCnt = append(p.LoopCnt, int(d.Size))
	}
	member := make([]bool, len(kept))
	for i := range member {
		member[i] = true
	}
	p.InStride = computeStrides(p.LoopCnt, member)
	p.OutStride = computeStrides(p.LoopCnt, kept)
	return p
}

// Execute calls f(inIdx, outIdx) once per input cell, starting from the given offsets.
func (p *DenseReducePlan) Execute(inOffset, outOffset int, f func(inIdx, outIdx int)) {
	runNestedLoop(inOffset, outOffset, p.LoopCnt, p.InStride, p.OutStride, f)
}

// SparseReducePlan lists the positions of the mapped dimensions that survive a reduce.
type SparseReducePlan struct {
	KeepDims      []int
	NumReduceDims int
}

// NewSparseReducePlan builds the plan for reducing the named dimensions of in.
func NewSparseReducePlan(in tensor.ValueType, dims []string) SparseReducePlan {
	reduced := make(map[string]bool, len(dims))
	for _, name := range dims {
		reduced[name] = true
	}
	var p SparseReducePlan
	for i, d := range in.MappedDimensions() {
		if len(dims) == 0 || reduced[d.Name] {
			p.NumReduceDims++
			continue
		}
		p.KeepDims = append(p.KeepDims, i)
	}
	return p
}

// KeepLabels copies the surviving labels of an input address into out.
func (p *SparseReducePlan) KeepLabels(labels, out []string) {
	for i, pos := range p.KeepDims {
		out[i] = labels[pos]
	}
}
