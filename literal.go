package confstore

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLiteral parses the bracket-, parenthesis- and brace-delimited
// literal forms accepted by the casting subsystem: sequences, sets and
// mappings of quoted strings, numbers, booleans and nested literals.
// It is a literal parser only; nothing here evaluates expressions, so
// configuration text can never execute code.
func parseLiteral(input string) (any, error) {
	p := &literalParser{input: input}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing data at offset %d in %q", p.pos, input)
	}
	return v, nil
}

type literalParser struct {
	input string
	pos   int
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) value() (any, error) {
	switch c := p.peek(); c {
	case 0:
		return nil, fmt.Errorf("unexpected end of literal")
	case '[':
		return p.sequence(']')
	case '(':
		return p.sequence(')')
	case '{':
		return p.braced()
	case '\'', '"':
		return p.quoted(c)
	default:
		return p.scalar()
	}
}

// sequence parses "[...]" or "(...)" into a []any.
func (p *literalParser) sequence(close byte) (any, error) {
	p.pos++ // opening bracket
	out := []any{}
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case close:
			p.pos++
			return out, nil
		default:
			return nil, fmt.Errorf("expected %q or %q at offset %d", ",", string(close), p.pos)
		}
	}
}

// braced parses "{...}": a mapping when the first element is followed
// by a colon, otherwise a set. An empty "{}" is a mapping, as in the
// source syntax.
func (p *literalParser) braced() (any, error) {
	p.pos++ // opening brace
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return map[string]any{}, nil
	}

	first, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() == ':' {
		return p.mapping(first)
	}
	return p.set(first)
}

func (p *literalParser) mapping(firstKey any) (any, error) {
	out := map[string]any{}
	key := firstKey
	for {
		p.skipSpace()
		if p.peek() != ':' {
			return nil, fmt.Errorf("expected %q at offset %d", ":", p.pos)
		}
		p.pos++
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[keyString(key)] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' { // trailing comma
				p.pos++
				return out, nil
			}
			key, err = p.value()
			if err != nil {
				return nil, err
			}
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, fmt.Errorf("expected %q or %q at offset %d", ",", "}", p.pos)
		}
	}
}

func (p *literalParser) set(first any) (any, error) {
	out := map[any]struct{}{}
	add := func(v any) error {
		if !hashable(v) {
			return fmt.Errorf("unhashable set element %T", v)
		}
		out[v] = struct{}{}
		return nil
	}
	if err := add(first); err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if p.peek() == '}' { // trailing comma
				p.pos++
				return out, nil
			}
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			if err := add(v); err != nil {
				return nil, err
			}
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, fmt.Errorf("expected %q or %q at offset %d", ",", "}", p.pos)
		}
	}
}

func (p *literalParser) quoted(quote byte) (any, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("unterminated escape in string literal")
			}
			switch e := p.input[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, fmt.Errorf("unterminated string literal")
}

// scalar parses an unquoted token: a number, boolean or null marker.
// Bare words are errors, matching the source syntax.
func (p *literalParser) scalar() (any, error) {
	start := p.pos
	for p.pos < len(p.input) && !isDelimiter(p.input[p.pos]) {
		p.pos++
	}
	token := p.input[start:p.pos]
	if token == "" {
		return nil, fmt.Errorf("empty literal token at offset %d", start)
	}
	switch token {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "none", "null":
		return nil, nil
	}
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("invalid literal token %q", token)
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ',', ':', ']', ')', '}':
		return true
	}
	return false
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func hashable(v any) bool {
	switch v.(type) {
	case nil, string, bool, int64, float64:
		return true
	}
	return false
}
