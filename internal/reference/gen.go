package reference

import (
	"github.com/born-ml/tensoreval/internal/tensor"
)

// DefaultLabels are used for mapped dimensions without explicit labels.
var DefaultLabels = []string{"a", "b", "c"}

// Seq returns cell values by position.
type Seq func(i int) float64

// N is a sequence of small integers 1..7 offset by bias, exactly representable in every cell
// type.
func N(bias int) Seq {
	return func(i int) float64 { return float64((i+bias)%7 + 1) }
}

// Div16 scales a sequence down so that cells have fractional parts.
func Div16(s Seq) Seq {
	return func(i int) float64 { return s(i) / 16 }
}

// Gen describes a generated test tensor.
type Gen struct {
	Type   string
	Labels map[string][]string
	Seq    Seq
}

// Spec fills every dense cell of every label combination, numbering cells in canonical
// address order.
func (g Gen) Spec() *tensor.TensorSpec {
	t := tensor.FromSpec(g.Type)
	spec := tensor.NewTensorSpec(t.String())
	if t.IsError() {
		return spec
	}
	seq := g.Seq
	if seq == nil {
		seq = N(0)
	}
	dims := t.Dimensions()
	addr := make(tensor.Address, len(dims))
	i := 0
	var rec func(d int)
	rec = func(d int) {
		if d == len(dims) {
			spec.Add(addr, seq(i))
			i++
			return
		}
		dim := dims[d]
		if dim.IsMapped() {
			labels, ok := g.Labels[dim.Name]
			if !ok {
				labels = DefaultLabels
			}
			for _, l := range labels {
				addr[dim.Name] = tensor.MappedLabel(l)
				rec(d + 1)
			}
			return
		}
		for x := 0; x < int(dim.Size); x++ {
			addr[dim.Name] = tensor.IndexedLabel(x)
			rec(d + 1)
		}
	}
	rec(0)
	return spec
}
