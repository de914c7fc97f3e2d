// Package reference implements tensor operations directly on TensorSpec cells. It is slow and
// obviously correct, and serves as the oracle the engine is tested against.
package reference

import (
	"sort"

	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Join combines every pair of cells whose shared dimensions agree. An indexed dimension of
// size 1 on one side matches every index of the other side.
func Join(a, b *tensor.TensorSpec, fn func(x, y float64) float64) *tensor.TensorSpec {
	at, bt := tensor.FromSpec(a.Type()), tensor.FromSpec(b.Type())
	out, err := tensor.JoinTypes(at, bt)
	if err != nil {
		return tensor.NewTensorSpec(out.String())
	}
	result := tensor.NewTensorSpec(out.String())
	for _, ca := range a.Cells() {
		for _, cb := range b.Cells() {
			addr, ok := joinAddress(out, at, bt, ca.Address, cb.Address)
			if ok {
				result.Add(addr, fn(ca.Value, cb.Value))
			}
		}
	}
	return result
}

func joinAddress(out, at, bt tensor.ValueType, a, b tensor.Address) (tensor.Address, bool) {
	addr := make(tensor.Address, len(out.Dimensions()))
	for _, d := range out.Dimensions() {
		la, inA := a[d.Name]
		lb, inB := b[d.Name]
		switch {
		case inA && inB && d.IsMapped():
			if la.Name != lb.Name {
				return nil, false
			}
			addr[d.Name] = la
		case inA && inB:
			da, _ := at.Dimension(d.Name)
			db, _ := bt.Dimension(d.Name)
			switch {
			case da.Size == db.Size:
				if la.Index != lb.Index {
					return nil, false
				}
				addr[d.Name] = la
			case da.IsTrivial():
				addr[d.Name] = lb
			default:
				addr[d.Name] = la
			}
		case inA:
			addr[d.Name] = la
		default:
			addr[d.Name] = lb
		}
	}
	return addr, true
}

// Reduce aggregates away dims (all dimensions when dims is empty).
func Reduce(a *tensor.TensorSpec, aggr ops.Aggr, dims ...string) *tensor.TensorSpec {
	in := tensor.FromSpec(a.Type())
	out, err := in.Reduce(dims...)
	if err != nil {
		return tensor.NewTensorSpec(out.String())
	}
	groups := make(map[string]*group)
	var keys []string
	for _, c := range a.Cells() {
		addr := make(tensor.Address)
		for _, d := range out.Dimensions() {
			addr[d.Name] = c.Address[d.Name]
		}
		k := addressKey(out, addr)
		g, ok := groups[k]
		if !ok {
			g = &group{addr: addr, aggr: ops.NewAggregator(aggr)}
			groups[k] = g
			keys = append(keys, k)
		}
		g.aggr.Sample(c.Value)
	}
	result := tensor.NewTensorSpec(out.String())
	sort.Strings(keys)
	for _, k := range keys {
		g := groups[k]
		result.Add(g.addr, g.aggr.Result())
	}
	if len(keys) == 0 && out.CountMappedDimensions() == 0 {
		fillDense(result, out, func([]int) float64 { return 0 })
	}
	return result
}

type group struct {
	addr tensor.Address
	aggr ops.Aggregator
}

// Map applies fn to every cell.
func Map(a *tensor.TensorSpec, fn func(float64) float64) *tensor.TensorSpec {
	out := tensor.FromSpec(a.Type()).Map()
	result := tensor.NewTensorSpec(out.String())
	for _, c := range a.Cells() {
		result.Add(c.Address, fn(c.Value))
	}
	return result
}

// CellCast changes the cell type, rounding every value to the new type.
func CellCast(a *tensor.TensorSpec, ct tensor.CellType) *tensor.TensorSpec {
	in := tensor.FromSpec(a.Type())
	if in.IsDouble() {
		return a
	}
	out := in.WithCellType(ct)
	result := tensor.NewTensorSpec(out.String())
	cell := tensor.NewCells(ct, 1)
	for _, c := range a.Cells() {
		cell.Set(0, c.Value)
		result.Add(c.Address, cell.Get(0))
	}
	return result
}

// Lambda evaluates fn for every coordinate of a type without mapped dimensions.
func Lambda(t tensor.ValueType, fn func(coords []int) float64) *tensor.TensorSpec {
	result := tensor.NewTensorSpec(t.String())
	fillDense(result, t, fn)
	return result
}

func fillDense(spec *tensor.TensorSpec, t tensor.ValueType, fn func(coords []int) float64) {
	dims := t.IndexedDimensions()
	coords := make([]int, len(dims))
	var rec func(i int)
	rec = func(i int) {
		if i == len(dims) {
			addr := make(tensor.Address, len(dims))
			for j, d := range dims {
				addr[d.Name] = tensor.IndexedLabel(coords[j])
			}
			spec.Add(addr, fn(coords))
			return
		}
		for c := 0; c < int(dims[i].Size); c++ {
			coords[i] = c
			rec(i + 1)
		}
	}
	rec(0)
}

func addressKey(t tensor.ValueType, addr tensor.Address) string {
	key := ""
	for _, d := range t.Dimensions() {
		key += d.Name + "=" + addr[d.Name].String() + ";"
	}
	return key
}
