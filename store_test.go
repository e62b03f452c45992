package confstore

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleData mirrors a small but representative config: a populated
// default section and two named sections sharing keys.
func sampleData() map[string]any {
	return map[string]any{
		"DEFAULT": map[string]any{"x": "dx"},
		"a":       map[string]any{"x": "ax", "y": "ay", "n": "1"},
		"b":       map[string]any{"x": "bx", "y": "by", "n": "2"},
	}
}

func sampleStore(t *testing.T) *Store {
	t.Helper()
	cfg, err := NewFromMap(sampleData())
	require.NoError(t, err)
	return cfg
}

// writeSample persists the sample store to a fresh file and returns the
// path alongside the store.
func writeSample(t *testing.T) (string, *Store) {
	t.Helper()
	cfg := sampleStore(t)
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, cfg.Save(path, SaveMode(ModeWrite)))
	return path, cfg
}

// collectWarnings returns an option routing diagnostics into the given
// slice so tests can assert on them.
func collectWarnings(into *[]string) Option {
	return WithWarnFunc(func(format string, args ...any) {
		*into = append(*into, format)
	})
}

func TestConstruction(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		cfg, err := NewEmpty()
		require.NoError(t, err)
		assert.Equal(t, DefaultSection, cfg.Section())
		assert.Equal(t, map[string]map[string]any{DefaultSection: {}}, cfg.Map())
	})

	t.Run("EmptyWithSection", func(t *testing.T) {
		cfg, err := NewEmpty(WithSection("server"))
		require.NoError(t, err)
		assert.Equal(t, map[string]map[string]any{
			DefaultSection: {},
			"server":       {},
		}, cfg.Map())
	})

	t.Run("FromFlatMap", func(t *testing.T) {
		cfg, err := NewFromMap(map[string]any{"k": "v"}, WithSection("s"))
		require.NoError(t, err)
		assert.Equal(t, map[string]map[string]any{
			DefaultSection: {},
			"s":            {"k": "v"},
		}, cfg.Map())
	})

	t.Run("FromFlatMapDefaultsToReservedSection", func(t *testing.T) {
		cfg, err := NewFromMap(map[string]any{"k": "v"})
		require.NoError(t, err)
		assert.Equal(t, map[string]map[string]any{
			DefaultSection: {"k": "v"},
		}, cfg.Map())
	})

	t.Run("NilMapIsUsageError", func(t *testing.T) {
		_, err := NewFromMap(nil)
		assert.ErrorIs(t, err, ErrSource)
	})

	t.Run("FlatDefaultsWrapUnderSection", func(t *testing.T) {
		cfg, err := NewEmpty(
			WithSection("a"),
			WithDefaults(map[string]any{"n": 11}),
		)
		require.NoError(t, err)
		def, ok := cfg.defaults.get("a")
		require.True(t, ok)
		v, ok := def.get("n")
		require.True(t, ok)
		assert.Equal(t, 11, v)
	})
}

func TestGetSet(t *testing.T) {
	t.Run("GetFromCurrentSection", func(t *testing.T) {
		cfg := sampleStore(t)
		cfg.SelectSection("a")
		v, ok := cfg.Get("x")
		require.True(t, ok)
		assert.Equal(t, "ax", v)

		cfg.SelectSection("b")
		assert.Equal(t, "bx", cfg.MustGet("x"))
	})

	t.Run("GetMissing", func(t *testing.T) {
		cfg := sampleStore(t)
		_, ok := cfg.Get("nope")
		assert.False(t, ok)
		assert.Panics(t, func() { cfg.MustGet("nope") })
	})

	t.Run("SetOverwritesNeverDuplicates", func(t *testing.T) {
		cfg := sampleStore(t)
		cfg.SelectSection("a")
		require.NoError(t, cfg.Set("x", "new"))
		assert.Equal(t, "new", cfg.MustGet("x"))
		sec, _ := cfg.data.get("a")
		assert.Equal(t, []string{"n", "x", "y"}, sortedCopy(sec.keys))
	})

	t.Run("SetCreatesSectionOnFirstWrite", func(t *testing.T) {
		cfg := sampleStore(t)
		cfg.SelectSection("fresh")
		_, ok := cfg.Get("k")
		assert.False(t, ok)
		require.NoError(t, cfg.Set("k", "v"))
		assert.Equal(t, "v", cfg.MustGet("k"))
	})

	t.Run("SetLowercasesKey", func(t *testing.T) {
		var warnings []string
		cfg, err := NewEmpty(collectWarnings(&warnings))
		require.NoError(t, err)
		require.NoError(t, cfg.Set("PORT", 80))
		assert.Equal(t, 80, cfg.MustGet("port"))
		assert.NotEmpty(t, warnings)
	})

	t.Run("StrictKeyRejectsUndeclared", func(t *testing.T) {
		cfg, err := NewEmpty(
			WithSection("a"),
			WithDefaults(map[string]any{"n": 11}),
			WithStrictKey(true),
		)
		require.NoError(t, err)
		assert.NoError(t, cfg.Set("n", 5))
		assert.ErrorIs(t, cfg.Set("other", 1), ErrKeyPolicy)
	})

	t.Run("StrictKeyAllowsOverwritingExisting", func(t *testing.T) {
		cfg, err := NewEmpty(
			WithSection("a"),
			WithDefaults(map[string]any{"n": 11}),
			WithStrictKey(true),
		)
		require.NoError(t, err)
		// An undeclared key already present in the data may be
		// re-assigned; only introducing a new one is rejected.
		sec, _ := cfg.data.get("a")
		sec.set("rogue", "old")
		require.NoError(t, cfg.Set("rogue", "new"))
		assert.Equal(t, "new", cfg.MustGet("rogue"))
		assert.ErrorIs(t, cfg.Set("fresh", 1), ErrKeyPolicy)
	})

	t.Run("StrictKeyEmptyDefaultsUnrestricted", func(t *testing.T) {
		cfg, err := NewEmpty(WithSection("a"), WithStrictKey(true))
		require.NoError(t, err)
		// No defaults declared for "a": any key may be added.
		assert.NoError(t, cfg.Set("anything", 1))
	})

	t.Run("CastOnSet", func(t *testing.T) {
		cfg, err := NewEmpty(
			WithSection("a"),
			WithDefaults(map[string]any{"n": 11}),
			WithCast(true),
		)
		require.NoError(t, err)
		require.NoError(t, cfg.Set("n", "5"))
		assert.Equal(t, 5, cfg.MustGet("n"))
	})

	t.Run("CastOnSetLenientKeepsOriginal", func(t *testing.T) {
		var warnings []string
		cfg, err := NewEmpty(
			WithSection("a"),
			WithDefaults(map[string]any{"n": 11}),
			WithCast(true),
			collectWarnings(&warnings),
		)
		require.NoError(t, err)
		require.NoError(t, cfg.Set("n", "not-a-number"))
		assert.Equal(t, "not-a-number", cfg.MustGet("n"))
		assert.NotEmpty(t, warnings)
	})

	t.Run("CastOnSetStrictFails", func(t *testing.T) {
		cfg, err := NewEmpty(
			WithSection("a"),
			WithDefaults(map[string]any{"n": 11}),
			WithCast(true),
			WithStrictCast(true),
		)
		require.NoError(t, err)
		assert.ErrorIs(t, cfg.Set("n", "not-a-number"), ErrCast)
	})
}

func TestMapExport(t *testing.T) {
	t.Run("MapIsDefensiveCopy", func(t *testing.T) {
		cfg := sampleStore(t)
		m := cfg.Map()
		m["a"]["x"] = "mutated"
		delete(m, "b")
		cfg.SelectSection("a")
		assert.Equal(t, "ax", cfg.MustGet("x"))
		assert.True(t, cfg.data.has("b"))
	})

	t.Run("SectionMap", func(t *testing.T) {
		cfg := sampleStore(t)
		cfg.SelectSection("b")
		assert.Equal(t, map[string]any{"x": "bx", "y": "by", "n": "2"}, cfg.SectionMap())
	})

	t.Run("SectionMapMissingSection", func(t *testing.T) {
		cfg := sampleStore(t)
		cfg.SelectSection("ghost")
		assert.Empty(t, cfg.SectionMap())
	})
}

func TestEquality(t *testing.T) {
	t.Run("EqualStores", func(t *testing.T) {
		a := sampleStore(t)
		b := sampleStore(t)
		assert.True(t, a.Equal(b))
		require.NoError(t, b.Set("extra", "1"))
		assert.False(t, a.Equal(b))
		assert.False(t, a.Equal(nil))
	})

	t.Run("EqualMap", func(t *testing.T) {
		cfg := sampleStore(t)
		assert.True(t, cfg.EqualMap(map[string]map[string]any{
			"DEFAULT": {"x": "dx"},
			"a":       {"x": "ax", "y": "ay", "n": "1"},
			"b":       {"x": "bx", "y": "by", "n": "2"},
		}))
	})

	t.Run("EmptyDefaultSectionRelaxation", func(t *testing.T) {
		cfg, err := NewFromMap(map[string]any{
			"a": map[string]any{"k": "v"},
		})
		require.NoError(t, err)
		assert.True(t, cfg.EqualMap(map[string]map[string]any{
			"a": {"k": "v"},
		}))
		assert.True(t, cfg.EqualMap(map[string]map[string]any{
			"DEFAULT": {},
			"a":       {"k": "v"},
		}))
	})

	t.Run("NoRelaxationWhenDefaultPopulated", func(t *testing.T) {
		cfg := sampleStore(t)
		assert.False(t, cfg.EqualMap(map[string]map[string]any{
			"a": {"x": "ax", "y": "ay", "n": "1"},
			"b": {"x": "bx", "y": "by", "n": "2"},
		}))
	})
}

func TestCopy(t *testing.T) {
	cfg, err := NewFromMap(sampleData(),
		WithSection("a"),
		WithDefaults(map[string]any{"a": map[string]any{"n": 11}}),
		WithCast(true),
		WithStrictKey(false),
	)
	require.NoError(t, err)

	cp := cfg.Copy()
	assert.True(t, cfg.Equal(cp))
	assert.Equal(t, cfg.Section(), cp.Section())
	assert.Equal(t, cfg.cast, cp.cast)
	assert.Equal(t, cfg.strictCast, cp.strictCast)
	assert.Equal(t, cfg.strictKey, cp.strictKey)

	// Mutating the copy must not leak into the source.
	require.NoError(t, cp.Set("y", "changed"))
	assert.Equal(t, "ay", cfg.MustGet("y"))
	assert.False(t, cfg.Equal(cp))

	// Defaults are deep-copied too.
	def, _ := cp.defaults.get("a")
	def.set("n", 99)
	srcDef, _ := cfg.defaults.get("a")
	v, _ := srcDef.get("n")
	assert.Equal(t, 11, v)
}

func sortedCopy(keys []string) []string {
	out := make([]string, len(keys))
	copy(out, keys)
	sort.Strings(out)
	return out
}
