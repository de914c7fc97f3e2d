package optimize

import (
	"golang.org/x/exp/constraints"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// isFloatCells reports whether the specialized kernels support ct.
func isFloatCells(ct tensor.CellType) bool {
	return ct == tensor.Float || ct == tensor.Double
}

// matMulShape describes a batch of row-major products. The common dimension is innermost in an
// operand when its flag is set; otherwise the operand's other dimension is.
type matMulShape struct {
	batches        int
	lhsSize        int
	commonSize     int
	rhsSize        int
	lhsCommonInner bool
	rhsCommonInner bool
}

type matMulKernel func(dst, lhs, rhs tensor.TypedCells, s *matMulShape)

func selectMatMul(lct, rct tensor.CellType) matMulKernel {
	switch {
	case lct == tensor.Float && rct == tensor.Float:
		return matMul[float32, float32, float32]
	case lct == tensor.Float:
		return matMul[float32, float64, float64]
	case rct == tensor.Float:
		return matMul[float64, float32, float64]
	default:
		return matMul[float64, float64, float64]
	}
}

// matMul sums products in common-dimension order. Each product is rounded to the output cell
// type first, like the join it replaces.
func matMul[L, R, O constraints.Float](dst, lhs, rhs tensor.TypedCells, s *matMulShape) {
	d := tensor.Typed[O](dst)
	a := tensor.Typed[L](lhs)
	b := tensor.Typed[R](rhs)
	lhsRow, lhsCol := s.commonSize, 1
	if !s.lhsCommonInner {
		lhsRow, lhsCol = 1, s.lhsSize
	}
	rhsRow, rhsCol := s.commonSize, 1
	if !s.rhsCommonInner {
		rhsRow, rhsCol = 1, s.rhsSize
	}
	lhsBlock := s.lhsSize * s.commonSize
	rhsBlock := s.rhsSize * s.commonSize
	outBlock := s.lhsSize * s.rhsSize
	for batch := 0; batch < s.batches; batch++ {
		ab := a[batch*lhsBlock : (batch+1)*lhsBlock]
		bb := b[batch*rhsBlock : (batch+1)*rhsBlock]
		db := d[batch*outBlock : (batch+1)*outBlock]
		for i := 0; i < s.lhsSize; i++ {
			for j := 0; j < s.rhsSize; j++ {
				var sum float64
				for k := 0; k < s.commonSize; k++ {
					sum += float64(O(float64(ab[i*lhsRow+k*lhsCol]) * float64(bb[j*rhsRow+k*rhsCol])))
				}
				db[i*s.rhsSize+j] = O(sum)
			}
		}
	}
}

type joinNumberKernel func(dst, src tensor.TypedCells, number float64, numberOnLeft bool, fn func(a, b float64) float64)

func selectJoinNumber(ict, oct tensor.CellType) joinNumberKernel {
	switch ict {
	case tensor.Double:
		return selectJoinNumberOut[float64](oct)
	case tensor.Float, tensor.BFloat16:
		return selectJoinNumberOut[float32](oct)
	case tensor.Int8:
		return selectJoinNumberOut[int8](oct)
	case tensor.Int16:
		return selectJoinNumberOut[int16](oct)
	case tensor.Int32:
		return selectJoinNumberOut[int32](oct)
	default:
		return selectJoinNumberOut[int64](oct)
	}
}

func selectJoinNumberOut[I tensor.Number](oct tensor.CellType) joinNumberKernel {
	if oct == tensor.Float {
		return joinNumber[I, float32]
	}
	return joinNumber[I, float64]
}

func joinNumber[I tensor.Number, O constraints.Float](dst, src tensor.TypedCells, number float64, numberOnLeft bool, fn func(a, b float64) float64) {
	d := tensor.Typed[O](dst)
	s := tensor.Typed[I](src)
	if numberOnLeft {
		for i, v := range s {
			d[i] = O(fn(number, float64(v)))
		}
		return
	}
	for i, v := range s {
		d[i] = O(fn(float64(v), number))
	}
}

type reduceKernel func(dst, src tensor.TypedCells, outer, reduce, inner int, aggr ops.Aggr)

func selectReduce(ct tensor.CellType) reduceKernel {
	if ct == tensor.Float {
		return reduceCells[float32]
	}
	return reduceCells[float64]
}

// reduceCells aggregates the middle axis of an [outer][reduce][inner] block. Samples are fed
// in layout order, matching the generic reducer.
func reduceCells[T constraints.Float](dst, src tensor.TypedCells, outer, reduce, inner int, aggr ops.Aggr) {
	d := tensor.Typed[T](dst)
	s := tensor.Typed[T](src)
	for o := 0; o < outer; o++ {
		base := o * reduce * inner
		for i := 0; i < inner; i++ {
			g := ops.NewAggregator(aggr)
			for r := 0; r < reduce; r++ {
				g.Sample(float64(s[base+r*inner+i]))
			}
			d[o*inner+i] = T(g.Result())
		}
	}
}
