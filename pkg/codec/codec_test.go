package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_LooseValues(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 7, int64(7)},
		{"uint8", uint8(3), int64(3)},
		{"float32", float32(1.5), 1.5},
		{"string keyed map", map[string]any{"a": 1}, map[string]any{"a": int64(1)}},
		{"int keyed map", map[int64]any{8: []any{1.0, 2}}, map[any]any{int64(8): []any{1.0, int64(2)}}},
		{"mixed keys", map[any]any{"a": 1, int64(2): "b"}, map[any]any{"a": int64(1), int64(2): "b"}},
		{"nil map", map[string]any(nil), nil},
		{"nested", []any{map[string]any{"x": []any{int8(1)}}}, []any{map[string]any{"x": []any{int64(1)}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.in)
			require.NoError(t, err)

			var out any
			require.NoError(t, Unmarshal(data, &out))
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	m := map[string]any{"z": 1, "a": 2, "m": map[string]any{"y": 1, "b": 2}}

	first, err := Marshal(m)
	require.NoError(t, err)

	for range 10 {
		again, err := Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	var out any
	assert.Error(t, Unmarshal([]byte{0xc1}, &out))
}

func TestDecodeJSONObject(t *testing.T) {
	values, err := DecodeJSONObject([]byte(`{"key": 8, "big": 9007199254740993, "value": 1.5, "whole": 8.0, "tags": [1, "a"], "nested": {"n": 2}}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"key":    int64(8),
		"big":    int64(9007199254740993),
		"value":  1.5,
		"whole":  8.0,
		"tags":   []any{int64(1), "a"},
		"nested": map[string]any{"n": int64(2)},
	}, values)

	for _, raw := range []string{"", "[1]", "null", "{"} {
		_, err := DecodeJSONObject([]byte(raw))
		assert.Error(t, err, "%q", raw)
	}
}
