package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalCanonical_SortedKeys tests that object keys are emitted in
// sorted order regardless of insertion order.
func TestMarshalCanonical_SortedKeys(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"zeta":  int64(1),
		"alpha": "x",
		"mid":   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"x","mid":true,"zeta":1}`, string(b))
}

// TestMarshalCanonical_NoHTMLEscaping tests that < > & survive unescaped.
func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	b, err := MarshalCanonical("a<b&c>d")
	require.NoError(t, err)
	assert.Equal(t, `"a<b&c>d"`, string(b))
}

// TestMarshalCanonical_NFCNormalization tests that decomposed and composed
// forms of the same string marshal identically.
func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	composed, err := MarshalCanonical("café")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

// TestMarshalCanonical_FloatsForbidden tests the no-float rule.
func TestMarshalCanonical_FloatsForbidden(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"dt": 0.25})
	assert.Error(t, err)
}

// TestMarshalCanonical_NullForbidden tests the no-null rule.
func TestMarshalCanonical_NullForbidden(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

// TestMarshalCanonical_NestedArrays tests arrays of mixed scalar values.
func TestMarshalCanonical_NestedArrays(t *testing.T) {
	b, err := MarshalCanonical([]any{"a", int64(2), false, []any{}})
	require.NoError(t, err)
	assert.Equal(t, `["a",2,false,[]]`, string(b))
}
