package confstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// haveSections reports whether every top-level value in data is itself
// a mapping, i.e. whether the data is already section-shaped.
func haveSections(data map[string]any) bool {
	for _, v := range data {
		if !isMapping(v) {
			return false
		}
	}
	return true
}

func isMapping(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Map
}

// normalizeSections is the single ingestion choke point for in-memory
// mappings. It wraps flat data under sectionName (or the reserved
// default section when autoSection allows it), stringifies section
// names and keys, and lower-cases keys. Fixups are reported through the
// warn sink unless strict conversion is enabled, in which case they are
// errors.
//
// Section names from unordered map input are sorted so the resulting
// order, and therefore the saved file layout, is deterministic.
func (s *Store) normalizeSections(data map[string]any, sectionName string, autoSection bool) (*sections, error) {
	var extra string
	if haveSections(data) {
		if sectionName != "" {
			if _, ok := data[sectionName]; !ok {
				extra = sectionName
			}
		}
	} else {
		if sectionName == "" {
			if !autoSection {
				return nil, ErrShape
			}
			sectionName = DefaultSection
		}
		data = map[string]any{sectionName: data}
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	out := newSections()
	if extra != "" {
		out.ensure(extra)
	}
	for _, name := range names {
		sec := out.ensure(name)
		inner, err := s.normalizeMapping(data[name])
		if err != nil {
			return nil, err
		}
		for _, k := range inner.keys {
			sec.set(k, inner.values[k])
		}
	}
	return out, nil
}

// normalizeMapping converts one section's raw value into a section with
// stringified, lower-cased keys. Keys are sorted for determinism since
// the input map carries no order.
func (s *Store) normalizeMapping(raw any) (*section, error) {
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: section value is %T, not a mapping", ErrShape, raw)
	}

	type entry struct {
		key   string
		value any
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		key, err := s.stringifyKey(k)
		if err != nil {
			return nil, err
		}
		key, err = s.normalizeKey(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{key: key, value: iter.Value().Interface()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := newSection()
	for _, e := range entries {
		out.set(e.key, e.value)
	}
	return out, nil
}

// stringifyKey converts a non-string section name or key to its string
// form, with a diagnostic.
func (s *Store) stringifyKey(k any) (string, error) {
	if str, ok := k.(string); ok {
		return str, nil
	}
	if s.strictConvert {
		return "", fmt.Errorf("%w: %v (%T) is not a string", ErrConvert, k, k)
	}
	str := fmt.Sprint(k)
	s.warn("key must be string: %v -> %q", k, str)
	return str, nil
}

// normalizeKey lower-cases a key, with a diagnostic when the input was
// not already lower case.
func (s *Store) normalizeKey(key string) (string, error) {
	lower := strings.ToLower(key)
	if key != lower {
		if s.strictConvert {
			return "", fmt.Errorf("%w: key %q is not lower case", ErrConvert, key)
		}
		s.warn("key must be lowercase: %q -> %q", key, lower)
	}
	return lower, nil
}
