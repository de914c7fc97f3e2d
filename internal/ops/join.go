package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Join combines two values cell by cell under op. The output type is tensor.JoinTypes of the
// operand types; incompatible types fail before anything is allocated.
func Join(lhs, rhs tensor.Value, op *Op2, f tensor.ValueBuilderFactory) (tensor.Value, error) {
	plans, err := plan.NewJoinPlans(lhs.Type(), rhs.Type())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return JoinWithPlans(lhs, rhs, op, plans, f), nil
}

// JoinWithPlans runs a join with precomputed plans for the operand types.
//
// Subspaces are paired by iterating the lhs index and looking up rhs subspaces whose labels
// for the shared mapped dimensions are equal. An operand without subspaces yields an empty
// result (or a zero-filled dense one when the output has no mapped dimensions).
func JoinWithPlans(lhs, rhs tensor.Value, op *Op2, plans *plan.JoinPlans, f tensor.ValueBuilderFactory) tensor.Value {
	out := plans.OutType
	lhsCells := lhs.Cells().Widen()
	rhsCells := rhs.Cells().Widen()
	kernel := selectJoin(lhsCells.Type, rhsCells.Type, out.CellType())
	dense := &plans.Dense
	if out.CountMappedDimensions() == 0 {
		b := f.NewValueBuilder(out, 1)
		kernel(b.AddSubspace(nil), lhsCells, rhsCells, 0, 0, dense, op.Fn)
		return b.Build()
	}
	sparse := &plans.Sparse
	lhsIndex, rhsIndex := lhs.Index(), rhs.Index()
	b := f.NewValueBuilder(out, max(lhsIndex.Size(), rhsIndex.Size()))
	lhsLabels := make([]string, lhs.Type().CountMappedDimensions())
	rhsRest := make([]string, rhs.Type().CountMappedDimensions()-len(sparse.RhsOverlap))
	overlap := make([]string, len(sparse.LhsOverlap))
	outLabels := make([]string, out.CountMappedDimensions())
	lhsView := lhsIndex.CreateView(nil)
	rhsView := rhsIndex.CreateView(sparse.RhsOverlap)
	lhsView.Lookup(nil)
	for {
		li, ok := lhsView.Next(lhsLabels)
		if !ok {
			break
		}
		for i, pos := range sparse.LhsOverlap {
			overlap[i] = lhsLabels[pos]
		}
		rhsView.Lookup(overlap)
		for {
			ri, ok := rhsView.Next(rhsRest)
			if !ok {
				break
			}
			sparse.BuildAddress(lhsLabels, rhsRest, outLabels)
			kernel(b.AddSubspace(outLabels), lhsCells, rhsCells, li*dense.LhsSize, ri*dense.RhsSize, dense, op.Fn)
		}
	}
	return b.Build()
}
