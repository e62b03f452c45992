package confstore

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"

	"confstore/fileio"
)

// load produces a fully merged section mapping from exactly one of a
// storage path or an in-memory mapping, layered over the instance's
// defaults:
//
//  1. the raw input is parsed (file) or normalized (mapping),
//  2. the sections to materialize are the requested (or observed)
//     sections, the reserved default section, and every defaulted
//     section,
//  3. each section is seeded with a copy of its defaults,
//  4. raw keys are overlaid with casting and strict key policy applied,
//  5. defaulted keys absent from the raw input keep their default.
func (s *Store) load(path string, data map[string]any, sectionName string, notFoundOK bool) (*sections, error) {
	var raw *sections
	var err error
	switch {
	case path != "" && data != nil:
		return nil, ErrSource
	case path != "":
		raw, err = s.readINI(path, notFoundOK)
	case data != nil:
		raw, err = s.normalizeSections(data, sectionName, true)
	default:
		return nil, ErrSource
	}
	if err != nil {
		return nil, err
	}

	out := newSections()
	if sectionName != "" {
		out.ensure(sectionName)
	} else {
		for _, name := range raw.names {
			out.ensure(name)
		}
	}
	for _, name := range s.defaults.names {
		out.ensure(name)
	}

	for _, name := range out.names {
		sec, _ := out.get(name)
		def, hasDef := s.defaults.get(name)
		defEmpty := !hasDef || def.len() == 0
		if hasDef {
			for _, k := range def.keys {
				sec.set(k, copyValue(def.values[k]))
			}
		}

		rawSec, ok := raw.get(name)
		if !ok {
			continue
		}
		for _, k := range rawSec.keys {
			v := rawSec.values[k]
			if ref, seeded := sec.get(k); seeded {
				if s.cast {
					v, err = s.castOrKeep(v, ref)
					if err != nil {
						return nil, err
					}
				}
			} else if s.strictKey && !defEmpty {
				return nil, fmt.Errorf("%w: %q in section %q", ErrKeyPolicy, k, name)
			}
			sec.set(k, v)
		}
	}
	return out, nil
}

// readINI parses the durable INI representation at path into a raw
// section mapping. The file is opened through the fileio collaborator,
// so compressed config files (.gz/.xz/.bz2) and non-UTF-8 encodings
// load transparently. Keys are lower-cased at this ingestion boundary.
func (s *Store) readINI(path string, notFoundOK bool) (*sections, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if notFoundOK {
				return newSections(), nil
			}
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	text, err := fileio.New(path).ReadText(s.encoding)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := ini.Load(text)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	out := newSections()
	for _, iniSec := range cfg.Sections() {
		sec := out.ensure(iniSec.Name())
		for _, key := range iniSec.Keys() {
			name, err := s.normalizeKey(key.Name())
			if err != nil {
				return nil, err
			}
			sec.set(name, key.Value())
		}
	}
	return out, nil
}
