package confstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want kind
	}{
		{"Nil", nil, kindString},
		{"String", "s", kindString},
		{"Bool", true, kindBool},
		{"Int", 7, kindInt},
		{"Int64", int64(7), kindInt},
		{"Uint", uint(7), kindInt},
		{"Float", 1.5, kindFloat},
		{"SliceAny", []any{1}, kindSequence},
		{"SliceString", []string{"a"}, kindSequence},
		{"Set", map[any]struct{}{"a": {}}, kindSet},
		{"Mapping", map[string]any{"a": 1}, kindMapping},
		{"StringSet", map[string]struct{}{"a": {}}, kindSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kindOf(tt.val))
		})
	}
}

func TestCastValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		ref     any
		want    any
		wantErr bool
	}{
		{"StringNoOp", "anything", "ref", "anything", false},
		{"BoolTrue", "true", false, true, false},
		{"BoolTrueUpper", "TRUE", false, true, false},
		{"BoolOne", "1", false, true, false},
		{"BoolFalse", "false", true, false, false},
		{"BoolZero", "0", true, false, false},
		{"BoolInvalid", "yes", false, nil, true},
		{"Int", "42", 0, 42, false},
		{"IntTyped", "42", int64(0), int64(42), false},
		{"IntSpaces", " 42 ", 0, 42, false},
		{"IntInvalid", "4x", 0, nil, true},
		{"Float", "2.5", 0.0, 2.5, false},
		{"FloatFromInt", "3", 0.0, 3.0, false},
		{"FloatInvalid", "x.y", 0.0, nil, true},
		{"SequenceSplit", "a,b,c", []any{}, []any{"a", "b", "c"}, false},
		{"SequenceLiteral", "[1, 2]", []any{}, []any{int64(1), int64(2)}, false},
		{"SequenceParenLiteral", "(1, 'two')", []any{}, []any{int64(1), "two"}, false},
		{"SequenceBadLiteral", "[1, oops]", []any{}, nil, true},
		{"SetSplit", "x,y", map[any]struct{}{}, map[any]struct{}{"x": {}, "y": {}}, false},
		{"SetLiteral", "{1, 2}", map[any]struct{}{}, map[any]struct{}{int64(1): {}, int64(2): {}}, false},
		{"SetLiteralIsDict", "{'a': 1}", map[any]struct{}{}, nil, true},
		{"SetEmptyBraces", "{}", map[any]struct{}{}, map[any]struct{}{}, false},
		{"MapEmptyBraces", "{}", map[string]any{}, map[string]any{}, false},
		{"MapSplit", "a:1,b:2", map[string]any{}, map[string]any{"a": "1", "b": "2"}, false},
		{"MapLiteral", "{'a': 1}", map[string]any{}, map[string]any{"a": int64(1)}, false},
		{"MapSplitNoColon", "a=1", map[string]any{}, nil, true},
		{"MapLiteralIsSet", "{1, 2}", map[string]any{}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := castValue(tt.raw, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCastIdempotence(t *testing.T) {
	// A value already of the target kind passes through unchanged, so
	// casting twice equals casting once.
	tests := []struct {
		name string
		raw  string
		ref  any
	}{
		{"Int", "7", 0},
		{"Bool", "true", false},
		{"Float", "1.25", 0.0},
		{"Sequence", "a,b", []any{}},
		{"Set", "a,b", map[any]struct{}{}},
		{"Mapping", "a:1", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once, err := castValue(tt.raw, tt.ref)
			require.NoError(t, err)
			twice, err := castValue(once, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestCastMethod(t *testing.T) {
	build := func(t *testing.T, opts ...Option) *Store {
		t.Helper()
		base := []Option{WithDefaults(map[string]any{
			"a": map[string]any{"n": 0, "flag": false},
			"b": map[string]any{"ratio": 0.0},
		})}
		cfg, err := NewFromMap(map[string]any{
			"a": map[string]any{"n": "5", "flag": "true", "free": "text"},
			"b": map[string]any{"ratio": "0.5"},
		}, append(base, opts...)...)
		require.NoError(t, err)
		return cfg
	}

	t.Run("AllSections", func(t *testing.T) {
		cfg := build(t)
		require.NoError(t, cfg.Cast("", ""))
		assert.True(t, cfg.EqualMap(map[string]map[string]any{
			DefaultSection: {},
			"a":            {"n": 5, "flag": true, "free": "text"},
			"b":            {"ratio": 0.5},
		}))
	})

	t.Run("SingleSection", func(t *testing.T) {
		cfg := build(t)
		require.NoError(t, cfg.Cast("", "a"))
		cfg.SelectSection("a")
		assert.Equal(t, 5, cfg.MustGet("n"))
		cfg.SelectSection("b")
		// Untouched: only section "a" was cast.
		assert.Equal(t, "0.5", cfg.MustGet("ratio"))
	})

	t.Run("SingleKeyInCurrentSection", func(t *testing.T) {
		cfg := build(t)
		cfg.SelectSection("a")
		require.NoError(t, cfg.Cast("n", ""))
		assert.Equal(t, 5, cfg.MustGet("n"))
		assert.Equal(t, "true", cfg.MustGet("flag"))
	})

	t.Run("KeyWithoutDefaultUntouched", func(t *testing.T) {
		cfg := build(t)
		cfg.SelectSection("a")
		require.NoError(t, cfg.Cast("free", ""))
		assert.Equal(t, "text", cfg.MustGet("free"))
	})

	t.Run("MissingKeyIsError", func(t *testing.T) {
		cfg := build(t)
		assert.Error(t, cfg.Cast("ghost", "a"))
		assert.Error(t, cfg.Cast("n", "ghost"))
	})

	t.Run("StrictCastPropagates", func(t *testing.T) {
		cfg := build(t, WithStrictCast(true))
		cfg.SelectSection("a")
		require.NoError(t, cfg.Set("n", "broken"))
		assert.ErrorIs(t, cfg.Cast("", ""), ErrCast)
	})

	t.Run("LenientKeepsAndWarns", func(t *testing.T) {
		var warnings []string
		cfg := build(t, collectWarnings(&warnings))
		cfg.SelectSection("a")
		require.NoError(t, cfg.Set("n", "broken"))
		require.NoError(t, cfg.Cast("", ""))
		assert.Equal(t, "broken", cfg.MustGet("n"))
		assert.NotEmpty(t, warnings)
	})
}
