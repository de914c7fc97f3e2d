package tensor

import (
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// specDocument is the YAML form of a TensorSpec:
//
//	type: tensor(x{},y[2])
//	cells:
//	  - address: {x: foo, y: 1}
//	    value: 3
type specDocument struct {
	Type  string         `yaml:"type"`
	Cells []specDocEntry `yaml:"cells"`
}

type specDocEntry struct {
	Address map[string]string `yaml:"address,omitempty"`
	Value   float64           `yaml:"value"`
}

// MarshalYAML implements yaml.Marshaler.
func (s *TensorSpec) MarshalYAML() (interface{}, error) {
	doc := specDocument{Type: s.typ}
	for _, c := range s.Cells() {
		entry := specDocEntry{Value: c.Value}
		if len(c.Address) > 0 {
			entry.Address = make(map[string]string, len(c.Address))
			for name, l := range c.Address {
				if l.IsMap {
					entry.Address[name] = l.Name
				} else {
					entry.Address[name] = strconv.Itoa(l.Index)
				}
			}
		}
		doc.Cells = append(doc.Cells, entry)
	}
	return doc, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Labels are interpreted according to the
// dimension kinds of the declared type.
func (s *TensorSpec) UnmarshalYAML(node *yaml.Node) error {
	var doc specDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}
	t, err := ParseValueType(doc.Type)
	if err != nil {
		return err
	}
	*s = *NewTensorSpec(t.String())
	for _, entry := range doc.Cells {
		addr := make(Address, len(entry.Address))
		for name, label := range entry.Address {
			d, ok := t.Dimension(name)
			if !ok {
				return errors.Errorf("unknown dimension %q in type %s", name, t)
			}
			if d.IsMapped() {
				addr[name] = MappedLabel(label)
				continue
			}
			idx, err := strconv.Atoi(label)
			if err != nil {
				return errors.Wrapf(err, "dimension %q", name)
			}
			addr[name] = IndexedLabel(idx)
		}
		s.Add(addr, entry.Value)
	}
	return nil
}

// ParseSpecYAML decodes a TensorSpec from YAML.
func ParseSpecYAML(data []byte) (*TensorSpec, error) {
	spec := NewTensorSpec("double")
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, errors.Wrap(err, "parse tensor spec")
	}
	return spec, nil
}
