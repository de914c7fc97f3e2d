package ops_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/reference"
	"github.com/born-ml/tensoreval/internal/tensor"
)

var allAggrs = []ops.Aggr{ops.AggrAvg, ops.AggrCount, ops.AggrProd, ops.AggrSum, ops.AggrMax, ops.AggrMedian, ops.AggrMin}

func TestReduce_MatchesReference(t *testing.T) {
	cases := []struct {
		layout string
		dims   [][]string
	}{
		{"tensor(x[3],y[4])", [][]string{{"x"}, {"y"}, {}, {"x", "y"}}},
		{"tensor(x{},y[3],z[2])", [][]string{{"x"}, {"y"}, {"z"}, {"x", "z"}, {}}},
		{"tensor(x{},y{})", [][]string{{"x"}, {"y"}, {}}},
		{"tensor(x[1],y[5])", [][]string{{"x"}, {"y"}}},
		{"double", [][]string{{}}},
	}
	for _, f := range factories {
		for _, c := range cases {
			for _, ct := range testCellTypes {
				gen := reference.Gen{Type: withCellType(c.layout, ct), Seq: reference.Div16(reference.N(2))}
				t.Run(f.Name()+"/"+gen.Type, func(t *testing.T) {
					v := makeValue(t, gen, f)
					for _, dims := range c.dims {
						for _, aggr := range allAggrs {
							got, err := ops.Reduce(v, aggr, dims, f)
							require.NoError(t, err)
							want := reference.Reduce(tensor.SpecFromValue(v), aggr, dims...)
							gotSpec := tensor.SpecFromValue(got)
							assert.True(t, want.Equal(gotSpec), "%s over %v: %s", aggr, dims, want.Diff(gotSpec))
						}
					}
				})
			}
		}
	}
}

func TestReduce_EmptyInput(t *testing.T) {
	for _, f := range factories {
		empty := makeValue(t, reference.Gen{Type: "tensor(x{},y[2])", Labels: map[string][]string{"x": nil}}, f)

		dense, err := ops.Reduce(empty, ops.AggrSum, []string{"x"}, f)
		require.NoError(t, err)
		assert.Equal(t, "tensor(y[2])", dense.Type().String())
		assert.Equal(t, []float64{0, 0}, tensor.Typed[float64](dense.Cells()))

		scalar, err := ops.Reduce(empty, ops.AggrMax, nil, f)
		require.NoError(t, err)
		assert.Equal(t, 0.0, tensor.AsDouble(scalar))

		sparse := makeValue(t, reference.Gen{Type: "tensor(x{},z{})", Labels: map[string][]string{"x": nil}}, f)
		got, err := ops.Reduce(sparse, ops.AggrSum, []string{"x"}, f)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Index().Size())
	}
}

func TestReduce_UnknownDimension(t *testing.T) {
	f := tensor.FastValueBuilderFactory{}
	v := makeValue(t, reference.Gen{Type: "tensor(x[2])"}, f)
	_, err := ops.Reduce(v, ops.AggrSum, []string{"y"}, f)
	assert.True(t, errors.Is(err, tensor.ErrInvalidType))
}

func TestAggregator(t *testing.T) {
	for _, aggr := range allAggrs {
		g := ops.NewAggregator(aggr)
		assert.Equal(t, 0.0, g.Result(), aggr.String())
	}

	sample := func(aggr ops.Aggr, values ...float64) float64 {
		g := ops.NewAggregator(aggr)
		for _, v := range values {
			g.Sample(v)
		}
		return g.Result()
	}
	assert.Equal(t, 2.0, sample(ops.AggrAvg, 1, 2, 3))
	assert.Equal(t, 3.0, sample(ops.AggrCount, 1, 2, 3))
	assert.Equal(t, 24.0, sample(ops.AggrProd, 2, 3, 4))
	assert.Equal(t, -1.0, sample(ops.AggrMax, -3, -1, -2))
	assert.Equal(t, -3.0, sample(ops.AggrMin, -3, -1, -2))
	assert.Equal(t, 2.5, sample(ops.AggrMedian, 4, 1, 3, 2))
	assert.Equal(t, 3.0, sample(ops.AggrMedian, 5, 1, 3))
	assert.True(t, math.IsNaN(sample(ops.AggrMedian, 1, math.NaN(), 3)))
}

func TestAggr_Properties(t *testing.T) {
	simple := map[ops.Aggr]bool{ops.AggrSum: true, ops.AggrProd: true, ops.AggrMax: true, ops.AggrMin: true}
	for _, aggr := range allAggrs {
		assert.Equal(t, simple[aggr], aggr.IsSimple(), aggr.String())
		assert.Equal(t, aggr != ops.AggrCount, aggr.IsIdent(), aggr.String())
		parsed, ok := ops.ParseAggr(aggr.String())
		require.True(t, ok)
		assert.Equal(t, aggr, parsed)
	}
	assert.Equal(t, 5.0, ops.AggrMax.Combine(5, 2))
	assert.Equal(t, 7.0, ops.AggrSum.Combine(5, 2))
	assert.Panics(t, func() { ops.AggrAvg.Combine(1, 2) })
}
