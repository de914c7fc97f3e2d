package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellType_Decay(t *testing.T) {
	tests := []struct {
		in   CellType
		want CellType
	}{
		{Double, Double},
		{Float, Float},
		{BFloat16, Float},
		{Int8, Float},
		{Int16, Float},
		{Int32, Double},
		{Int64, Double},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Decay())
		})
	}
}

func TestUnifyCellTypes(t *testing.T) {
	assert.Equal(t, Float, UnifyCellTypes(Float, Float))
	assert.Equal(t, Float, UnifyCellTypes(Int8, BFloat16))
	assert.Equal(t, Double, UnifyCellTypes(Float, Double))
	assert.Equal(t, Double, UnifyCellTypes(Int8, Int32))
}

func TestJoinCellMeta_ScalarKeepsTensorCellType(t *testing.T) {
	scalar := CellMeta{CellType: Double, IsScalar: true}
	float := CellMeta{CellType: Float}
	assert.Equal(t, CellMeta{CellType: Float}, JoinCellMeta(float, scalar))
	assert.Equal(t, CellMeta{CellType: Float}, JoinCellMeta(scalar, float))
	assert.Equal(t, CellMeta{CellType: Double, IsScalar: true}, JoinCellMeta(scalar, scalar))
	assert.Equal(t, CellMeta{CellType: Float}, JoinCellMeta(CellMeta{CellType: Int8}, scalar))
}

func TestParseCellType(t *testing.T) {
	for _, ct := range AllCellTypes {
		got, ok := ParseCellType(ct.String())
		assert.True(t, ok)
		assert.Equal(t, ct, got)
	}
	_, ok := ParseCellType("float16")
	assert.False(t, ok)
}

func TestBF16_RoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -2, 0.5, 3.140625, 65536} {
		assert.Equal(t, v, BF16FromFloat32(v).Float32())
	}
	// 1 + 2^-8 is halfway between two bfloat16 values and rounds to even.
	assert.Equal(t, float32(1), BF16FromFloat32(1+1.0/256).Float32())
	assert.True(t, math.IsNaN(float64(BF16FromFloat32(float32(math.NaN())).Float32())))
}

func TestCellTypeOf(t *testing.T) {
	assert.Equal(t, Double, CellTypeOf[float64]())
	assert.Equal(t, Float, CellTypeOf[float32]())
	assert.Equal(t, BFloat16, CellTypeOf[BF16]())
	assert.Equal(t, Int8, CellTypeOf[int8]())
	assert.Equal(t, Int64, CellTypeOf[int64]())
}

func TestTypedCells_CopyFromConverts(t *testing.T) {
	src := CellsOf([]float64{1.5, -2, 3})
	dst := NewCells(Int8, 3)
	dst.CopyFrom(src)
	assert.Equal(t, []int8{1, -2, 3}, Typed[int8](dst))

	wide := CellsOf([]BF16{BF16FromFloat32(2), BF16FromFloat32(-0.5)}).Widen()
	assert.Equal(t, Float, wide.Type)
	assert.Equal(t, []float32{2, -0.5}, Typed[float32](wide))
}

func TestTypedCells_SliceSharesStorage(t *testing.T) {
	cells := NewCells(Float, 6)
	part := cells.Slice(2, 4)
	part.Set(0, 7)
	assert.Equal(t, 7.0, cells.Get(2))
	assert.Equal(t, 2, part.Len())
	assert.NotEqual(t, cells.DataPointer(), part.DataPointer())
	assert.Equal(t, cells.Slice(2, 3).DataPointer(), part.DataPointer())
}
