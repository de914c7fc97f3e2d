package tensor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
)

// Label addresses one dimension: a string for mapped dimensions, a position for indexed ones.
type Label struct {
	Name  string
	Index int
	IsMap bool
}

// MappedLabel returns a label for a mapped dimension.
func MappedLabel(name string) Label { return Label{Name: name, IsMap: true} }

// IndexedLabel returns a label for an indexed dimension.
func IndexedLabel(index int) Label { return Label{Index: index} }

func (l Label) String() string {
	if l.IsMap {
		return strconv.Quote(l.Name)
	}
	return strconv.Itoa(l.Index)
}

// Address maps dimension names to labels.
type Address map[string]Label

// key renders the address canonically (sorted by dimension name).
func (a Address) key() string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + a[name].String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// SpecCell is one explicitly addressed cell.
type SpecCell struct {
	Address Address
	Value   float64
}

// TensorSpec is a sparse, backend-independent description of a tensor used for tests and
// tooling. Cells added to the same address are summed.
type TensorSpec struct {
	typ   string
	cells map[string]*SpecCell
}

// NewTensorSpec creates an empty spec of the given type.
func NewTensorSpec(typeSpec string) *TensorSpec {
	return &TensorSpec{typ: typeSpec, cells: make(map[string]*SpecCell)}
}

// Type returns the type spec.
func (s *TensorSpec) Type() string { return s.typ }

// Add adds v to the cell at addr.
func (s *TensorSpec) Add(addr Address, v float64) *TensorSpec {
	key := addr.key()
	if cell, ok := s.cells[key]; ok {
		cell.Value += v
		return s
	}
	cp := make(Address, len(addr))
	for k, l := range addr {
		cp[k] = l
	}
	s.cells[key] = &SpecCell{Address: cp, Value: v}
	return s
}

// Cells returns all cells ordered by canonical address.
func (s *TensorSpec) Cells() []SpecCell {
	keys := make([]string, 0, len(s.cells))
	for k := range s.cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]SpecCell, len(keys))
	for i, k := range keys {
		out[i] = *s.cells[k]
	}
	return out
}

// Len returns the number of cells.
func (s *TensorSpec) Len() int { return len(s.cells) }

func (s *TensorSpec) comparable() map[string]float64 {
	out := make(map[string]float64, len(s.cells)+1)
	for k, c := range s.cells {
		out[k] = c.Value
	}
	return out
}

var specCompare = cmp.Options{
	cmpopts.EquateApprox(1e-6, 1e-9),
	cmpopts.EquateNaNs(),
	cmpopts.EquateEmpty(),
}

// Equal compares type and cells, allowing for floating point rounding in cell values.
func (s *TensorSpec) Equal(other *TensorSpec) bool {
	return normalizeTypeSpec(s.typ) == normalizeTypeSpec(other.typ) &&
		cmp.Equal(s.comparable(), other.comparable(), specCompare)
}

// Diff returns a human readable difference, or "" if the specs are equal.
func (s *TensorSpec) Diff(other *TensorSpec) string {
	if a, b := normalizeTypeSpec(s.typ), normalizeTypeSpec(other.typ); a != b {
		return fmt.Sprintf("type: %s != %s", a, b)
	}
	return cmp.Diff(s.comparable(), other.comparable(), specCompare)
}

// String renders the spec for logs and test failures.
func (s *TensorSpec) String() string {
	var sb strings.Builder
	sb.WriteString(s.typ)
	sb.WriteString(" {")
	for i, c := range s.Cells() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %g", c.Address.key(), c.Value)
	}
	sb.WriteString("}")
	return sb.String()
}

func normalizeTypeSpec(spec string) string {
	if t, err := ParseValueType(spec); err == nil {
		return t.String()
	}
	return spec
}

// SpecFromValue converts a value to its TensorSpec. Every cell of every subspace is listed.
func SpecFromValue(v Value) *TensorSpec {
	t := v.Type()
	spec := NewTensorSpec(t.String())
	dims := t.Dimensions()
	indexed := t.IndexedDimensions()
	mappedNames := t.MappedDimensionNames()
	dss := t.DenseSubspaceSize()
	coords := make([]int, len(indexed))
	Subspaces(v, func(subspace int, labels []string) {
		cells := SubspaceCells(v, subspace)
		for i := range coords {
			coords[i] = 0
		}
		for cell := 0; cell < dss; cell++ {
			addr := make(Address, len(dims))
			for i, name := range mappedNames {
				addr[name] = MappedLabel(labels[i])
			}
			for i, d := range indexed {
				addr[d.Name] = IndexedLabel(coords[i])
			}
			spec.Add(addr, cells.Get(cell))
			for i := len(coords) - 1; i >= 0; i-- {
				coords[i]++
				if coords[i] < int(indexed[i].Size) {
					break
				}
				coords[i] = 0
			}
		}
	})
	return spec
}

// ValueFromSpec builds a value from a spec. Dense cells missing from the spec are zero.
func ValueFromSpec(spec *TensorSpec, f ValueBuilderFactory) (Value, error) {
	t, err := ParseValueType(spec.typ)
	if err != nil {
		return nil, err
	}
	if t.IsError() {
		return nil, errors.Wrap(ErrInvalidType, "cannot build a value of the error type")
	}
	if t.IsDouble() {
		sum := 0.0
		for _, c := range spec.cells {
			sum += c.Value
		}
		return DoubleValue(sum), nil
	}
	mapped := t.MappedDimensions()
	indexed := t.IndexedDimensions()
	type pending struct {
		labels []string
		cells  []SpecCell
	}
	groups := make(map[string]*pending)
	var order []string
	for _, c := range spec.Cells() {
		if len(c.Address) != len(t.Dimensions()) {
			return nil, errors.Errorf("cell %s does not address every dimension of %s", c.Address.key(), t)
		}
		labels := make([]string, len(mapped))
		for i, d := range mapped {
			l, ok := c.Address[d.Name]
			if !ok || !l.IsMap {
				return nil, errors.Errorf("cell %s: missing mapped label for %q", c.Address.key(), d.Name)
			}
			labels[i] = l.Name
		}
		key := encodeLabels(labels, nil)
		g, ok := groups[key]
		if !ok {
			g = &pending{labels: labels}
			groups[key] = g
			order = append(order, key)
		}
		g.cells = append(g.cells, c)
	}
	b := f.NewValueBuilder(t, len(groups))
	for _, key := range order {
		g := groups[key]
		cells := b.AddSubspace(g.labels)
		for _, c := range g.cells {
			offset := 0
			for _, d := range indexed {
				l, ok := c.Address[d.Name]
				if !ok || l.IsMap || l.Index < 0 || l.Index >= int(d.Size) {
					return nil, errors.Errorf("cell %s: bad index label for %q", c.Address.key(), d.Name)
				}
				offset = offset*int(d.Size) + l.Index
			}
			cells.Set(offset, c.Value)
		}
	}
	return b.Build(), nil
}
