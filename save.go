package confstore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"confstore/fileio"
)

// Canonical save modes. Save also accepts the usual aliases
// ("w", "overwrite", "a", "i", "l", "cancel", "no", ...) in any case.
const (
	ModeWrite       = "write"
	ModeAdd         = "add"
	ModeInteractive = "interactive"
	ModeLeave       = "leave"
)

type saveOptions struct {
	section      string
	encoding     string
	mode         string
	keepOriginal bool
}

// SaveOption configures a Save call.
type SaveOption func(*saveOptions)

// SaveSection restricts the payload to a single section.
func SaveSection(name string) SaveOption {
	return func(o *saveOptions) { o.section = name }
}

// SaveEncoding overrides the store's encoding for this write.
func SaveEncoding(name string) SaveOption {
	return func(o *saveOptions) { o.encoding = name }
}

// SaveMode sets the conflict-resolution mode. Defaults to ModeAdd.
func SaveMode(mode string) SaveOption {
	return func(o *saveOptions) { o.mode = mode }
}

// KeepOriginal controls whether an existing destination is copied to a
// timestamped backup before being overwritten. Defaults to true.
func KeepOriginal(keep bool) SaveOption {
	return func(o *saveOptions) { o.keepOriginal = keep }
}

// resolveMode canonicalizes a mode string or alias.
func resolveMode(mode string) (string, error) {
	switch strings.ToLower(mode) {
	case "w", "write", "overwrite":
		return ModeWrite, nil
	case "a", "add":
		return ModeAdd, nil
	case "i", "interactive":
		return ModeInteractive, nil
	case "l", "leave", "c", "cancel", "n", "no":
		return ModeLeave, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, mode)
}

// Save writes the section mapping, or one section of it, to path
// (falling back to the path the store was loaded from). When the
// destination already exists the mode decides the outcome: write
// discards it, add merges the payload onto its current content key by
// key, interactive prompts for a mode, and leave returns without
// writing. Destructive modes first copy the original aside unless
// KeepOriginal(false) is given.
func (s *Store) Save(path string, opts ...SaveOption) error {
	o := saveOptions{mode: ModeAdd, keepOriginal: true, encoding: s.encoding}
	for _, opt := range opts {
		opt(&o)
	}

	if path == "" {
		path = s.path
	}
	if path == "" {
		return fmt.Errorf("save: no destination path")
	}

	mode, err := resolveMode(o.mode)
	if err != nil {
		return err
	}

	payload := s.data
	if o.section != "" {
		src, ok := s.data.get(o.section)
		if !ok {
			return fmt.Errorf("save: section %q not present", o.section)
		}
		payload = newSections()
		dst := payload.ensure(o.section)
		for _, k := range src.keys {
			dst.set(k, copyValue(src.values[k]))
		}
	}

	out := payload
	if fileExists(path) {
		if mode == ModeInteractive {
			resp, err := s.prompt(filepath.Base(path))
			if err != nil {
				return fmt.Errorf("interactive save: %w", err)
			}
			mode, err = resolveMode(resp)
			if err != nil {
				return err
			}
			if mode == ModeInteractive {
				return fmt.Errorf("%w %q", ErrUnknownMode, resp)
			}
		}

		var base *sections
		switch mode {
		case ModeWrite:
			base = newSections()
		case ModeAdd:
			// Merge, never replace: content outside the payload's
			// sections and keys survives.
			base, err = s.load(path, nil, "", true)
			if err != nil {
				return err
			}
		case ModeLeave:
			return nil
		}

		for _, name := range payload.names {
			src, _ := payload.get(name)
			dst := base.ensure(name)
			for _, k := range src.keys {
				dst.set(k, copyValue(src.values[k]))
			}
		}
		out = base

		if o.keepOriginal {
			if err := backupFile(path); err != nil {
				return fmt.Errorf("backup %s: %w", path, err)
			}
		}
	}

	return s.writeINI(path, out, o.encoding)
}

// writeINI renders the section mapping in the durable INI shape and
// writes it through the fileio collaborator, compressing and encoding
// per the path suffix and encoding name.
func (s *Store) writeINI(path string, data *sections, encoding string) error {
	cfg := ini.Empty()
	for _, name := range data.names {
		sec := data.m[name]
		target := cfg.Section(name)
		for _, k := range sec.keys {
			target.Key(k).SetValue(valueText(sec.values[k]))
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := fileio.New(path).WriteText(buf.Bytes(), encoding); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// valueText renders a value to its on-disk textual form; the durable
// format is text-only. Sequences, sets and mappings render in the
// literal grammar the cast subsystem parses, so a cast-enabled reload
// recovers them instead of seeing a dead string.
func valueText(v any) string {
	if str, ok := v.(string); ok {
		return str
	}
	switch kindOf(v) {
	case kindSequence, kindSet, kindMapping:
		return literalText(v)
	}
	return fmt.Sprint(v)
}

// literalText renders a value as a literal parseLiteral accepts. Set
// and mapping elements are sorted so the rendering is deterministic.
func literalText(v any) string {
	switch val := v.(type) {
	case nil:
		return "none"
	case string:
		return quoteLiteral(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float32, float64:
		s := fmt.Sprint(val)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = literalText(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		parts := make([]string, 0, rv.Len())
		set := kindOf(v) == kindSet
		iter := rv.MapRange()
		for iter.Next() {
			if set {
				parts = append(parts, literalText(iter.Key().Interface()))
			} else {
				key := quoteLiteral(keyString(iter.Key().Interface()))
				parts = append(parts, key+": "+literalText(iter.Value().Interface()))
			}
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func quoteLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '\'':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// backupFile copies path to a sibling named after it with a timestamp
// suffix.
func backupFile(path string) error {
	backup := filepath.Join(
		filepath.Dir(path),
		fmt.Sprintf("%s_%s", filepath.Base(path), time.Now().Format("20060102150405")),
	)

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(backup)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// stdinPrompt is the default PromptFunc: a blocking console read.
func stdinPrompt(filename string) (string, error) {
	fmt.Fprintf(os.Stdout, "'%s' already exists --> (over[w]rite/[a]dd/[l]eave/[c]ancel)?: ", filename)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
