package confstore

import "reflect"

// section holds the key/value pairs of a single section, preserving the
// order in which keys were first inserted so that saved files keep a
// stable layout. Re-assigning an existing key overwrites in place and
// never duplicates.
type section struct {
	keys   []string
	values map[string]any
}

func newSection() *section {
	return &section{values: make(map[string]any)}
}

func (s *section) set(key string, value any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *section) get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *section) len() int {
	return len(s.keys)
}

func (s *section) copy() *section {
	out := newSection()
	for _, k := range s.keys {
		out.set(k, copyValue(s.values[k]))
	}
	return out
}

func (s *section) toMap() map[string]any {
	out := make(map[string]any, len(s.keys))
	for _, k := range s.keys {
		out[k] = copyValue(s.values[k])
	}
	return out
}

// sections is the two-level ordered mapping backing a Store: section
// name to key/value pairs. The reserved default section always exists
// and is always first; other sections follow in the order first
// observed.
type sections struct {
	names []string
	m     map[string]*section
}

func newSections() *sections {
	s := &sections{m: make(map[string]*section)}
	s.ensure(DefaultSection)
	return s
}

// ensure returns the named section, creating it empty if absent.
func (s *sections) ensure(name string) *section {
	if sec, ok := s.m[name]; ok {
		return sec
	}
	sec := newSection()
	s.names = append(s.names, name)
	s.m[name] = sec
	return sec
}

func (s *sections) get(name string) (*section, bool) {
	sec, ok := s.m[name]
	return sec, ok
}

func (s *sections) has(name string) bool {
	_, ok := s.m[name]
	return ok
}

func (s *sections) copy() *sections {
	out := newSections()
	for _, name := range s.names {
		src := s.m[name]
		dst := out.ensure(name)
		for _, k := range src.keys {
			dst.set(k, copyValue(src.values[k]))
		}
	}
	return out
}

func (s *sections) toMap() map[string]map[string]any {
	out := make(map[string]map[string]any, len(s.names))
	for _, name := range s.names {
		out[name] = s.m[name].toMap()
	}
	return out
}

// copyValue deep-copies slices, maps and sets so that exported or
// copied data never aliases the store's internal state.
func copyValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = copyValue(e)
		}
		return out
	case map[any]struct{}:
		out := make(map[any]struct{}, len(val))
		for k := range val {
			out[k] = struct{}{}
		}
		return out
	}

	// Fallback for uncommon slice/map types
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	}
	return v
}
