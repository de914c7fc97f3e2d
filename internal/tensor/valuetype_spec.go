package tensor

import (
	"strconv"

	"github.com/pkg/errors"
)

// FromSpec parses a textual type spec such as "tensor<float>(x[3],y{})".
// Malformed specs yield the error type; use ParseValueType to learn why.
func FromSpec(spec string) ValueType {
	t, err := ParseValueType(spec)
	if err != nil {
		return ErrorType()
	}
	return t
}

// ParseValueType parses a type spec, reporting malformed input as ErrMalformedTypeSpec.
// The spec "error" parses to the error type without an error.
func ParseValueType(spec string) (ValueType, error) {
	p := &specParser{src: spec}
	t, err := p.parse()
	if err != nil {
		return ErrorType(), errors.Wrapf(ErrMalformedTypeSpec, "%q at offset %d: %v", spec, p.pos, err)
	}
	return t, nil
}

type specParser struct {
	src string
	pos int
}

func (p *specParser) parse() (ValueType, error) {
	p.skipSpace()
	word := p.ident()
	switch word {
	case "error":
		return p.finish(ErrorType())
	case "double":
		return p.finish(DoubleType())
	case "tensor":
	default:
		return ValueType{}, errors.Errorf("expected 'tensor', 'double' or 'error', got %q", word)
	}
	ct := Double
	p.skipSpace()
	if p.eat('<') {
		p.skipSpace()
		name := p.ident()
		var ok bool
		if ct, ok = ParseCellType(name); !ok {
			return ValueType{}, errors.Errorf("unknown cell type %q", name)
		}
		p.skipSpace()
		if !p.eat('>') {
			return ValueType{}, errors.New("expected '>'")
		}
		p.skipSpace()
	}
	if !p.eat('(') {
		return ValueType{}, errors.New("expected '('")
	}
	var dims []Dimension
	p.skipSpace()
	if !p.eat(')') {
		for {
			d, err := p.dimension()
			if err != nil {
				return ValueType{}, err
			}
			dims = append(dims, d)
			p.skipSpace()
			if p.eat(')') {
				break
			}
			if !p.eat(',') {
				return ValueType{}, errors.New("expected ',' or ')'")
			}
		}
	}
	t := TensorType(ct, dims...)
	if t.IsError() {
		return ValueType{}, errors.New("duplicate dimension or zero size")
	}
	return p.finish(t)
}

func (p *specParser) dimension() (Dimension, error) {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return Dimension{}, errors.New("expected dimension name")
	}
	p.skipSpace()
	switch {
	case p.eat('{'):
		p.skipSpace()
		if !p.eat('}') {
			return Dimension{}, errors.New("expected '}'")
		}
		return Mapped(name), nil
	case p.eat('['):
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		size, err := strconv.ParseUint(p.src[start:p.pos], 10, 32)
		if err != nil || size == 0 || size >= MappedSize {
			return Dimension{}, errors.Errorf("bad size for dimension %q", name)
		}
		p.skipSpace()
		if !p.eat(']') {
			return Dimension{}, errors.New("expected ']'")
		}
		return Indexed(name, uint32(size)), nil
	default:
		return Dimension{}, errors.Errorf("expected '{' or '[' after %q", name)
	}
}

func (p *specParser) finish(t ValueType) (ValueType, error) {
	p.skipSpace()
	if p.pos != len(p.src) {
		return ValueType{}, errors.New("trailing characters")
	}
	return t, nil
}

func (p *specParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		isAlpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isAlpha && !(isDigit && p.pos > start) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *specParser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *specParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}
