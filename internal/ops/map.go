package ops

import (
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Map applies op to every cell. The result keeps the subspace structure of v.
func Map(v tensor.Value, op *Op1, f tensor.ValueBuilderFactory) tensor.Value {
	in := v.Type()
	out := in.Map()
	if in.IsDouble() {
		return tensor.DoubleValue(op.Fn(tensor.AsDouble(v)))
	}
	cells := v.Cells().Widen()
	kernel := selectMap(cells.Type, out.CellType())
	dss := in.DenseSubspaceSize()
	b := f.NewValueBuilder(out, v.Index().Size())
	tensor.Subspaces(v, func(subspace int, labels []string) {
		kernel(b.AddSubspace(labels), cells.Slice(subspace*dss, (subspace+1)*dss), op.Fn)
	})
	return b.Build()
}

// CellCast converts v to another cell type, keeping dimensions and subspaces.
func CellCast(v tensor.Value, ct tensor.CellType, f tensor.ValueBuilderFactory) tensor.Value {
	in := v.Type()
	if in.IsDouble() || in.CellType() == ct {
		return v
	}
	out := in.WithCellType(ct)
	b := f.NewValueBuilder(out, v.Index().Size())
	tensor.Subspaces(v, func(subspace int, labels []string) {
		b.AddSubspace(labels).CopyFrom(tensor.SubspaceCells(v, subspace))
	})
	return b.Build()
}
