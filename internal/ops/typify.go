package ops

import (
	"fmt"

	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Cell type dispatch happens once per operation: each selector below resolves a runtime cell
// type to an instantiation of a generic kernel, so the inner loops run on concrete Go types.
// BFloat16 inputs are widened to float32 (TypedCells.Widen) before dispatch, and computed
// outputs are always float or double.

type joinKernel func(dst, lhs, rhs tensor.TypedCells, lhsOffset, rhsOffset int, dense *plan.DenseJoinPlan, fn func(a, b float64) float64)

func selectJoin(lct, rct, oct tensor.CellType) joinKernel {
	switch lct {
	case tensor.Double:
		return selectJoinRhs[float64](rct, oct)
	case tensor.Float, tensor.BFloat16:
		return selectJoinRhs[float32](rct, oct)
	case tensor.Int8:
		return selectJoinRhs[int8](rct, oct)
	case tensor.Int16:
		return selectJoinRhs[int16](rct, oct)
	case tensor.Int32:
		return selectJoinRhs[int32](rct, oct)
	case tensor.Int64:
		return selectJoinRhs[int64](rct, oct)
	}
	panic(fmt.Sprintf("join: unsupported cell type %s", lct))
}

func selectJoinRhs[L tensor.Number](rct, oct tensor.CellType) joinKernel {
	switch rct {
	case tensor.Double:
		return selectJoinOut[L, float64](oct)
	case tensor.Float, tensor.BFloat16:
		return selectJoinOut[L, float32](oct)
	case tensor.Int8:
		return selectJoinOut[L, int8](oct)
	case tensor.Int16:
		return selectJoinOut[L, int16](oct)
	case tensor.Int32:
		return selectJoinOut[L, int32](oct)
	case tensor.Int64:
		return selectJoinOut[L, int64](oct)
	}
	panic(fmt.Sprintf("join: unsupported cell type %s", rct))
}

func selectJoinOut[L, R tensor.Number](oct tensor.CellType) joinKernel {
	switch oct {
	case tensor.Double:
		return joinCells[L, R, float64]
	case tensor.Float:
		return joinCells[L, R, float32]
	}
	panic(fmt.Sprintf("join: unsupported result cell type %s", oct))
}

func joinCells[L, R, O tensor.Number](dst, lhs, rhs tensor.TypedCells, lhsOffset, rhsOffset int, dense *plan.DenseJoinPlan, fn func(a, b float64) float64) {
	out := tensor.Typed[O](dst)
	lc := tensor.Typed[L](lhs)
	rc := tensor.Typed[R](rhs)
	k := 0
	dense.Execute(lhsOffset, rhsOffset, func(l, r int) {
		out[k] = O(fn(float64(lc[l]), float64(rc[r])))
		k++
	})
}

type sampleKernel func(cells tensor.TypedCells, inOffset, outOffset int, dense *plan.DenseReducePlan, aggrs []Aggregator)

func selectSample(ct tensor.CellType) sampleKernel {
	switch ct {
	case tensor.Double:
		return sampleCells[float64]
	case tensor.Float, tensor.BFloat16:
		return sampleCells[float32]
	case tensor.Int8:
		return sampleCells[int8]
	case tensor.Int16:
		return sampleCells[int16]
	case tensor.Int32:
		return sampleCells[int32]
	case tensor.Int64:
		return sampleCells[int64]
	}
	panic(fmt.Sprintf("reduce: unsupported cell type %s", ct))
}

func sampleCells[T tensor.Number](cells tensor.TypedCells, inOffset, outOffset int, dense *plan.DenseReducePlan, aggrs []Aggregator) {
	in := tensor.Typed[T](cells)
	dense.Execute(inOffset, outOffset, func(i, o int) {
		aggrs[o].Sample(float64(in[i]))
	})
}

type mapKernel func(dst, src tensor.TypedCells, fn func(float64) float64)

func selectMap(ict, oct tensor.CellType) mapKernel {
	switch ict {
	case tensor.Double:
		return selectMapOut[float64](oct)
	case tensor.Float, tensor.BFloat16:
		return selectMapOut[float32](oct)
	case tensor.Int8:
		return selectMapOut[int8](oct)
	case tensor.Int16:
		return selectMapOut[int16](oct)
	case tensor.Int32:
		return selectMapOut[int32](oct)
	case tensor.Int64:
		return selectMapOut[int64](oct)
	}
	panic(fmt.Sprintf("map: unsupported cell type %s", ict))
}

func selectMapOut[I tensor.Number](oct tensor.CellType) mapKernel {
	switch oct {
	case tensor.Double:
		return mapCells[I, float64]
	case tensor.Float:
		return mapCells[I, float32]
	}
	panic(fmt.Sprintf("map: unsupported result cell type %s", oct))
}

func mapCells[I, O tensor.Number](dst, src tensor.TypedCells, fn func(float64) float64) {
	out := tensor.Typed[O](dst)
	for i, v := range tensor.Typed[I](src) {
		out[i] = O(fn(float64(v)))
	}
}

// storeDoubles writes computed results into cells of any type.
func storeDoubles(dst tensor.TypedCells, src []float64) {
	switch dst.Type {
	case tensor.Double:
		copy(tensor.Typed[float64](dst), src)
	case tensor.Float:
		convertInto(tensor.Typed[float32](dst), src)
	case tensor.Int8:
		convertInto(tensor.Typed[int8](dst), src)
	case tensor.Int16:
		convertInto(tensor.Typed[int16](dst), src)
	case tensor.Int32:
		convertInto(tensor.Typed[int32](dst), src)
	case tensor.Int64:
		convertInto(tensor.Typed[int64](dst), src)
	case tensor.BFloat16:
		out := tensor.Typed[tensor.BF16](dst)
		for i, v := range src {
			out[i] = tensor.BF16FromFloat32(float32(v))
		}
	}
}

func convertInto[O tensor.Number](dst []O, src []float64) {
	for i, v := range src {
		dst[i] = O(v)
	}
}
