package confstore

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
)

// DefaultSection is the reserved section name whose keys act as
// fallback values for all other sections in the INI format. It always
// exists in both the config data and the default data, even if empty.
const DefaultSection = "DEFAULT"

// WarnFunc receives non-fatal diagnostics (lenient cast failures, key
// normalization fixups). The default sink logs at warning level via
// logrus.
type WarnFunc func(format string, args ...any)

// PromptFunc resolves the interactive save mode. It receives the name
// of the existing destination file and returns the chosen mode string
// (write/add/leave or an alias). Injectable so the save path stays
// testable without a console.
type PromptFunc func(filename string) (string, error)

// Store owns a two-level section -> key -> value mapping merged against
// a default mapping of the same shape, plus a current-section pointer
// for item-style access. Instances are single-threaded; each owns its
// mappings exclusively.
type Store struct {
	data     *sections
	defaults *sections
	section  string
	path     string
	encoding string

	cast          bool
	strictCast    bool
	strictKey     bool
	strictConvert bool

	warn   WarnFunc
	prompt PromptFunc
}

type options struct {
	section       string
	encoding      string
	notFoundOK    bool
	defaults      map[string]any
	cast          bool
	strictCast    bool
	strictKey     bool
	strictConvert bool
	warn          WarnFunc
	prompt        PromptFunc
}

// Option configures store construction.
type Option func(*options)

// WithSection sets the current section. Defaults to DefaultSection.
func WithSection(name string) Option {
	return func(o *options) { o.section = name }
}

// WithEncoding sets the character encoding used when reading and
// writing the backing file. Empty means UTF-8.
func WithEncoding(name string) Option {
	return func(o *options) { o.encoding = name }
}

// WithNotFoundOK makes a missing configuration file yield an empty
// default-section mapping instead of ErrNotFound.
func WithNotFoundOK(ok bool) Option {
	return func(o *options) { o.notFoundOK = ok }
}

// WithDefaults declares the default mapping. A flat mapping is wrapped
// under the current section; a section-shaped mapping is used as-is.
// Default values establish the known key set for strict key checking
// and the reference type for casting.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) { o.defaults = defaults }
}

// WithCast enables coercing loaded and assigned values to the type of
// the corresponding default value.
func WithCast(cast bool) Option {
	return func(o *options) { o.cast = cast }
}

// WithStrictCast makes cast failures fatal instead of diagnostics.
func WithStrictCast(strict bool) Option {
	return func(o *options) { o.strictCast = strict }
}

// WithStrictKey rejects keys that are not declared in a non-empty
// default section.
func WithStrictKey(strict bool) Option {
	return func(o *options) { o.strictKey = strict }
}

// WithStrictConvert turns section/key normalization fixups (non-string
// names, upper-case keys) into errors instead of diagnostics.
func WithStrictConvert(strict bool) Option {
	return func(o *options) { o.strictConvert = strict }
}

// WithWarnFunc replaces the diagnostic sink.
func WithWarnFunc(fn WarnFunc) Option {
	return func(o *options) { o.warn = fn }
}

// WithPromptFunc replaces the interactive save prompt.
func WithPromptFunc(fn PromptFunc) Option {
	return func(o *options) { o.prompt = fn }
}

func defaultWarn(format string, args ...any) {
	logrus.Warnf(format, args...)
}

// newStore builds a Store with its policy flags and normalized default
// mapping, without loading any data.
func newStore(opts []Option) (*Store, options, error) {
	o := options{
		section: DefaultSection,
		warn:    defaultWarn,
		prompt:  stdinPrompt,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		section:       o.section,
		encoding:      o.encoding,
		cast:          o.cast,
		strictCast:    o.strictCast,
		strictKey:     o.strictKey,
		strictConvert: o.strictConvert,
		warn:          o.warn,
		prompt:        o.prompt,
	}

	defaults := o.defaults
	if defaults == nil {
		defaults = map[string]any{}
	}
	if !haveSections(defaults) {
		defaults = map[string]any{o.section: defaults}
	}
	normalized, err := s.normalizeSections(defaults, "", false)
	if err != nil {
		return nil, o, fmt.Errorf("invalid defaults: %w", err)
	}
	s.defaults = normalized
	return s, o, nil
}

// New reads the configuration file at path and merges it against the
// declared defaults. A missing file is an error unless WithNotFoundOK
// was given.
func New(path string, opts ...Option) (*Store, error) {
	s, o, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	data, err := s.load(path, nil, "", o.notFoundOK)
	if err != nil {
		return nil, err
	}
	s.data = data
	s.path = path
	return s, nil
}

// NewFromMap builds a Store from an in-memory mapping. A flat mapping
// is wrapped under the current section; a section-shaped mapping is
// merged section by section.
func NewFromMap(data map[string]any, opts ...Option) (*Store, error) {
	s, _, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrSource
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

// NewEmpty builds a Store containing only the reserved default section
// and the current section, both empty. Defaults are kept for later
// casting and key checks but are not merged in.
func NewEmpty(opts ...Option) (*Store, error) {
	s, _, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	s.data = newSections()
	s.data.ensure(s.section)
	return s, nil
}

// Section returns the current section name.
func (s *Store) Section() string {
	return s.section
}

// SelectSection moves the current-section pointer. The section is
// created on first write, not here.
func (s *Store) SelectSection(name string) {
	s.section = name
}

// Path returns the backing file path, if the store was loaded from one.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key in the current section.
func (s *Store) Get(key string) (any, bool) {
	sec, ok := s.data.get(s.section)
	if !ok {
		return nil, false
	}
	return sec.get(key)
}

// MustGet is like Get but panics if the key is absent.
func (s *Store) MustGet(key string) any {
	v, ok := s.Get(key)
	if !ok {
		panic(fmt.Sprintf("confstore: key %q not present in section %q", key, s.section))
	}
	return v
}

// Set assigns key in the current section, creating the section on
// first write. The key is normalized to lower case. If the key is
// declared in the defaults and casting is enabled, the value is coerced
// to the default's type. Under strict key checking, new undeclared keys
// are rejected when the section's default mapping is non-empty; keys
// already present may always be overwritten.
func (s *Store) Set(key string, value any) error {
	key, err := s.normalizeKey(key)
	if err != nil {
		return err
	}

	sec, ok := s.data.get(s.section)
	if !ok {
		if s.strictKey {
			return fmt.Errorf("%w: section %q", ErrKeyPolicy, s.section)
		}
		sec = s.data.ensure(s.section)
	}

	def, _ := s.defaults.get(s.section)
	if def != nil {
		if ref, declared := def.get(key); declared {
			if s.cast {
				value, err = s.castOrKeep(value, ref)
				if err != nil {
					return err
				}
			}
			sec.set(key, value)
			return nil
		}
	}
	if s.strictKey && def != nil && def.len() > 0 {
		if _, exists := sec.get(key); !exists {
			return fmt.Errorf("%w: %q in section %q", ErrKeyPolicy, key, s.section)
		}
	}
	sec.set(key, value)
	return nil
}

// Map returns the full section mapping as a plain nested map. The
// result is a defensive copy; mutating it does not affect the store.
func (s *Store) Map() map[string]map[string]any {
	return s.data.toMap()
}

// SectionMap returns the current section's mapping as a plain map,
// defensively copied.
func (s *Store) SectionMap() map[string]any {
	sec, ok := s.data.get(s.section)
	if !ok {
		return map[string]any{}
	}
	return sec.toMap()
}

// Equal reports whether two stores hold exactly the same section
// mapping.
func (s *Store) Equal(o *Store) bool {
	if o == nil {
		return false
	}
	return reflect.DeepEqual(s.Map(), o.Map())
}

// EqualMap reports whether the store's full section mapping matches m.
// If the reserved default section is empty, equality also holds against
// a mapping that omits the default section entirely.
func (s *Store) EqualMap(m map[string]map[string]any) bool {
	data := s.Map()
	if reflect.DeepEqual(data, m) {
		return true
	}
	if len(data[DefaultSection]) == 0 {
		delete(data, DefaultSection)
		return reflect.DeepEqual(data, m)
	}
	return false
}

// Copy produces an independent Store with identical data, defaults and
// policy flags. No nested mapping is shared with the source.
func (s *Store) Copy() *Store {
	return &Store{
		data:          s.data.copy(),
		defaults:      s.defaults.copy(),
		section:       s.section,
		encoding:      s.encoding,
		cast:          s.cast,
		strictCast:    s.strictCast,
		strictKey:     s.strictKey,
		strictConvert: s.strictConvert,
		warn:          s.warn,
		prompt:        s.prompt,
	}
}

// String renders the full section mapping.
func (s *Store) String() string {
	return fmt.Sprintf("Store(%v)", s.Map())
}
