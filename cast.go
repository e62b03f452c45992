package confstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// kind is the closed set of reference types a default value can carry.
// Coercion is driven by this tag, never by inspecting the raw value.
type kind int

const (
	kindString kind = iota
	kindBool
	kindInt
	kindFloat
	kindSequence
	kindSet
	kindMapping
)

func (k kind) String() string {
	switch k {
	case kindBool:
		return "bool"
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindSequence:
		return "sequence"
	case kindSet:
		return "set"
	case kindMapping:
		return "map"
	default:
		return "string"
	}
}

// kindOf infers the reference kind from a default value's dynamic type.
// Unknown types fall back to string, which makes casting a no-op.
func kindOf(v any) kind {
	if v == nil {
		return kindString
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return kindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindInt
	case reflect.Float32, reflect.Float64:
		return kindFloat
	case reflect.Slice, reflect.Array:
		return kindSequence
	case reflect.Map:
		elem := rv.Type().Elem()
		if elem.Kind() == reflect.Struct && elem.NumField() == 0 {
			return kindSet
		}
		return kindMapping
	default:
		return kindString
	}
}

// castValue coerces a raw value to the kind of the reference default.
// A raw value already of the target kind passes through unchanged, so
// casting is idempotent. The returned error text carries the type name
// and offending input.
func castValue(raw, ref any) (any, error) {
	k := kindOf(ref)
	if k == kindString {
		return raw, nil
	}

	str, isStr := raw.(string)
	if !isStr {
		if kindOf(raw) == k {
			return raw, nil
		}
		return nil, fmt.Errorf("%s(%v)", k, raw)
	}

	switch k {
	case kindBool:
		switch strings.ToLower(str) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("bool(%q)", str)

	case kindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("int(%q)", str)
		}
		return convertNumeric(n, ref), nil

	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, fmt.Errorf("float(%q)", str)
		}
		return convertNumeric(f, ref), nil

	case kindSequence:
		if delimited(str, "[", "]") || delimited(str, "(", ")") {
			v, err := parseLiteral(str)
			if err != nil {
				return nil, fmt.Errorf("sequence(%q): %v", str, err)
			}
			seq, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("sequence(%q)", str)
			}
			return seq, nil
		}
		parts := strings.Split(str, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil

	case kindSet:
		if delimited(str, "{", "}") {
			v, err := parseLiteral(str)
			if err != nil {
				return nil, fmt.Errorf("set(%q): %v", str, err)
			}
			switch parsed := v.(type) {
			case map[any]struct{}:
				return parsed, nil
			case map[string]any:
				// "{}" parses as an empty mapping; an empty set reads
				// the same on disk.
				if len(parsed) == 0 {
					return map[any]struct{}{}, nil
				}
			}
			return nil, fmt.Errorf("set(%q)", str)
		}
		out := make(map[any]struct{})
		for _, p := range strings.Split(str, ",") {
			out[p] = struct{}{}
		}
		return out, nil

	case kindMapping:
		if delimited(str, "{", "}") {
			v, err := parseLiteral(str)
			if err != nil {
				return nil, fmt.Errorf("map(%q): %v", str, err)
			}
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("map(%q)", str)
			}
			return m, nil
		}
		out := make(map[string]any)
		for _, p := range strings.Split(str, ",") {
			kv := strings.SplitN(p, ":", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("map(%q)", str)
			}
			out[kv[0]] = kv[1]
		}
		return out, nil
	}
	return raw, nil
}

func delimited(s, open, close string) bool {
	return strings.HasPrefix(s, open) && strings.HasSuffix(s, close)
}

// convertNumeric converts a parsed number to the concrete numeric type
// of the reference default, so cast output compares equal to defaults.
func convertNumeric(n any, ref any) any {
	return reflect.ValueOf(n).Convert(reflect.TypeOf(ref)).Interface()
}

// castOrKeep applies the strict/lenient cast policy: failures are fatal
// under strict casting, otherwise the original value is kept and a
// diagnostic is emitted.
func (s *Store) castOrKeep(raw, ref any) (any, error) {
	v, err := castValue(raw, ref)
	if err != nil {
		if s.strictCast {
			return nil, fmt.Errorf("%w: %v", ErrCast, err)
		}
		s.warn("cast failed: %v", err)
		return raw, nil
	}
	return v, nil
}

// Cast coerces stored values to the types of their defaults. With key
// and sectionName both empty, every defaulted key in every section is
// cast; with only sectionName, that one section; with key, that single
// key (in sectionName, or the current section when sectionName is
// empty). Keys without a declared default are left untouched.
func (s *Store) Cast(key, sectionName string) error {
	if key != "" {
		if sectionName == "" {
			sectionName = s.section
		}
		return s.castKey(sectionName, key)
	}
	if sectionName != "" {
		return s.castSection(sectionName)
	}
	for _, name := range s.data.names {
		if err := s.castSection(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) castSection(name string) error {
	sec, ok := s.data.get(name)
	if !ok {
		return nil
	}
	def, ok := s.defaults.get(name)
	if !ok {
		return nil
	}
	for _, k := range sec.keys {
		ref, declared := def.get(k)
		if !declared {
			continue
		}
		v, err := s.castOrKeep(sec.values[k], ref)
		if err != nil {
			return err
		}
		sec.values[k] = v
	}
	return nil
}

func (s *Store) castKey(sectionName, key string) error {
	sec, ok := s.data.get(sectionName)
	if !ok {
		return fmt.Errorf("section %q not present", sectionName)
	}
	raw, ok := sec.get(key)
	if !ok {
		return fmt.Errorf("key %q not present in section %q", key, sectionName)
	}
	def, ok := s.defaults.get(sectionName)
	if !ok {
		return nil
	}
	ref, declared := def.get(key)
	if !declared {
		return nil
	}
	v, err := s.castOrKeep(raw, ref)
	if err != nil {
		return err
	}
	sec.set(key, v)
	return nil
}
