package confstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"confstore/fileio"
)

// FromFile builds a Store from a nested-mapping file in TOML, JSON or
// YAML form, for importing configuration kept in richer formats. The
// format is taken from the extension first (compression suffixes are
// skipped), with content detection as fallback. The parsed mapping goes
// through the same normalization and default merge as NewFromMap.
func FromFile(path string, opts ...Option) (*Store, error) {
	s, o, err := newStore(opts)
	if err != nil {
		return nil, err
	}

	text, err := fileio.New(path).ReadText(o.encoding)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(text)
		if format == "" {
			return nil, fmt.Errorf("unable to determine config format for file %q", path)
		}
	}

	data := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(text, &data); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file %q: %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(text))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file %q: %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(text, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file %q: %w", path, err)
		}
	}

	if !haveSections(data) {
		data = map[string]any{s.section: data}
	}
	merged, err := s.load("", data, "", false)
	if err != nil {
		return nil, err
	}
	s.data = merged
	return s, nil
}

// detectFileFormat determines the mapping format from the file
// extension, looking past compression suffixes (config.toml.gz).
func detectFileFormat(path string) string {
	name := path
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".xz", ".bz2":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect the format by parsing.
// JSON is strictest, YAML is a superset of JSON, TOML goes last.
func detectFormatFromContent(data []byte) string {
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return ""
}

// Scan decodes one section (or, for an empty name, the full section
// mapping) into the target struct or map. The target must be a non-nil
// pointer. Fields map through the "ini" struct tag; string values are
// converted weakly, including durations and comma-separated slices.
func (s *Store) Scan(sectionName string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	var sectionData map[string]any
	if sectionName == "" {
		full := s.Map()
		sectionData = make(map[string]any, len(full))
		for name, sec := range full {
			sectionData[name] = sec
		}
	} else {
		sec, ok := s.data.get(sectionName)
		if !ok {
			// Decode an empty map: absent sections leave the target as-is.
			sectionData = map[string]any{}
		} else {
			sectionData = sec.toMap()
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "ini",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(sectionData); err != nil {
		return fmt.Errorf("failed to scan section %q into %T: %w", sectionName, target, err)
	}
	return nil
}
