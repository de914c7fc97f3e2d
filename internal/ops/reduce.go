package ops

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Reduce aggregates away the named dimensions of v (all dimensions when dims is empty).
func Reduce(v tensor.Value, aggr Aggr, dims []string, f tensor.ValueBuilderFactory) (tensor.Value, error) {
	plans, err := plan.NewReducePlans(v.Type(), dims)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ReduceWithPlans(v, aggr, plans, f), nil
}

// ReduceWithPlans runs a reduce with precomputed plans for the input type.
// Input subspaces whose surviving labels coincide feed the same output aggregators.
func ReduceWithPlans(v tensor.Value, aggr Aggr, plans *plan.ReducePlans, f tensor.ValueBuilderFactory) tensor.Value {
	out := plans.OutType
	cells := v.Cells().Widen()
	sample := selectSample(cells.Type)
	dense := &plans.Dense
	sparse := &plans.Sparse
	outDss := dense.OutSize

	var (
		groupLabels [][]string
		groupIndex  = make(map[string]int)
		aggrs       []Aggregator
	)
	addGroup := func(labels []string) int {
		key := strings.Join(labels, "\x00")
		if g, ok := groupIndex[key]; ok {
			return g
		}
		g := len(groupLabels)
		groupIndex[key] = g
		groupLabels = append(groupLabels, append([]string(nil), labels...))
		for i := 0; i < outDss; i++ {
			aggrs = append(aggrs, NewAggregator(aggr))
		}
		return g
	}
	kept := make([]string, len(sparse.KeepDims))
	tensor.Subspaces(v, func(subspace int, labels []string) {
		sparse.KeepLabels(labels, kept)
		g := addGroup(kept)
		sample(cells, subspace*dense.InSize, g*outDss, dense, aggrs)
	})
	if len(groupLabels) == 0 && out.CountMappedDimensions() == 0 {
		addGroup(nil)
	}
	if out.IsDouble() {
		return tensor.DoubleValue(aggrs[0].Result())
	}
	b := f.NewValueBuilder(out, len(groupLabels))
	results := make([]float64, outDss)
	for g, labels := range groupLabels {
		for i := range results {
			results[i] = aggrs[g*outDss+i].Result()
		}
		storeDoubles(b.AddSubspace(labels), results)
	}
	return b.Build()
}
