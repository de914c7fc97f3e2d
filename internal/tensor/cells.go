package tensor

import (
	"fmt"
	"unsafe"
)

// TypedCells is a type-tagged view of a contiguous cell buffer.
// The data field holds a slice of the Go type matching Type.
type TypedCells struct {
	Type CellType
	data any
}

// CellsOf wraps a typed slice.
func CellsOf[T Cell](data []T) TypedCells {
	return TypedCells{Type: CellTypeOf[T](), data: data}
}

// NewCells allocates zeroed cells of the given type.
func NewCells(ct CellType, n int) TypedCells {
	switch ct {
	case Double:
		return CellsOf(make([]float64, n))
	case Float:
		return CellsOf(make([]float32, n))
	case BFloat16:
		return CellsOf(make([]BF16, n))
	case Int8:
		return CellsOf(make([]int8, n))
	case Int16:
		return CellsOf(make([]int16, n))
	case Int32:
		return CellsOf(make([]int32, n))
	case Int64:
		return CellsOf(make([]int64, n))
	default:
		panic(fmt.Sprintf("new cells: unknown cell type %d", ct))
	}
}

// Typed returns the underlying slice.
// Panics if T does not match the cell type.
func Typed[T Cell](c TypedCells) []T {
	data, ok := c.data.([]T)
	if !ok {
		panic(fmt.Sprintf("cells have type %s, not %s", c.Type, CellTypeOf[T]()))
	}
	return data
}

// Len returns the number of cells.
func (c TypedCells) Len() int {
	switch data := c.data.(type) {
	case []float64:
		return len(data)
	case []float32:
		return len(data)
	case []BF16:
		return len(data)
	case []int8:
		return len(data)
	case []int16:
		return len(data)
	case []int32:
		return len(data)
	case []int64:
		return len(data)
	default:
		return 0
	}
}

// Slice returns cells [from, to) sharing the same backing storage.
func (c TypedCells) Slice(from, to int) TypedCells {
	switch data := c.data.(type) {
	case []float64:
		return TypedCells{Type: c.Type, data: data[from:to]}
	case []float32:
		return TypedCells{Type: c.Type, data: data[from:to]}
	case []BF16:
		return TypedCells{Type: c.Type, data: data[from:to]}
	case []int8:
		return TypedCells{Type: c.Type, data: data[from:to]}
	case []int16:
		return TypedCells{Type: c.Type, data: data[from:to]}
	case []int32:
		return TypedCells{Type: c.Type, data: data[from:to]}
	case []int64:
		return TypedCells{Type: c.Type, data: data[from:to]}
	default:
		return c
	}
}

// Get reads cell i as float64.
// This is a per-cell type switch; kernels use Typed instead.
func (c TypedCells) Get(i int) float64 {
	switch data := c.data.(type) {
	case []float64:
		return data[i]
	case []float32:
		return float64(data[i])
	case []BF16:
		return float64(data[i].Float32())
	case []int8:
		return float64(data[i])
	case []int16:
		return float64(data[i])
	case []int32:
		return float64(data[i])
	case []int64:
		return float64(data[i])
	default:
		panic("get: empty cells")
	}
}

// Set writes cell i from a float64.
func (c TypedCells) Set(i int, v float64) {
	switch data := c.data.(type) {
	case []float64:
		data[i] = v
	case []float32:
		data[i] = float32(v)
	case []BF16:
		data[i] = BF16FromFloat32(float32(v))
	case []int8:
		data[i] = int8(v)
	case []int16:
		data[i] = int16(v)
	case []int32:
		data[i] = int32(v)
	case []int64:
		data[i] = int64(v)
	default:
		panic("set: empty cells")
	}
}

// CopyFrom copies cells from src, converting when the cell types differ.
func (c TypedCells) CopyFrom(src TypedCells) {
	if c.Type == src.Type {
		switch data := c.data.(type) {
		case []float64:
			copy(data, src.data.([]float64))
		case []float32:
			copy(data, src.data.([]float32))
		case []BF16:
			copy(data, src.data.([]BF16))
		case []int8:
			copy(data, src.data.([]int8))
		case []int16:
			copy(data, src.data.([]int16))
		case []int32:
			copy(data, src.data.([]int32))
		case []int64:
			copy(data, src.data.([]int64))
		}
		return
	}
	for i, n := 0, src.Len(); i < n; i++ {
		c.Set(i, src.Get(i))
	}
}

// Widen returns cells that generic kernels can read with native conversions.
// BFloat16 cells are widened to float32; all other cells are returned as-is.
func (c TypedCells) Widen() TypedCells {
	data, ok := c.data.([]BF16)
	if !ok {
		return c
	}
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = v.Float32()
	}
	return CellsOf(out)
}

// DataPointer returns the address of the first cell, or nil for empty cells.
// Two TypedCells with the same DataPointer share storage.
func (c TypedCells) DataPointer() unsafe.Pointer {
	switch data := c.data.(type) {
	case []float64:
		return unsafe.Pointer(unsafe.SliceData(data))
	case []float32:
		return unsafe.Pointer(unsafe.SliceData(data))
	case []BF16:
		return unsafe.Pointer(unsafe.SliceData(data))
	case []int8:
		return unsafe.Pointer(unsafe.SliceData(data))
	case []int16:
		return unsafe.Pointer(unsafe.SliceData(data))
	case []int32:
		return unsafe.Pointer(unsafe.SliceData(data))
	case []int64:
		return unsafe.Pointer(unsafe.SliceData(data))
	default:
		return nil
	}
}
