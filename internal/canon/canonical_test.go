package canon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeysAndDropsWhitespace(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": []any{true, "x"}, "aa": 2.5})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,"x"],"aa":2.5,"b":1}`, string(got))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before
	// U+FB01 (0xFB01) in UTF-16 but after it in UTF-8.
	got, err := Marshal(map[string]any{"ﬁ": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"ﬁ\":1}", string(got))
}

func TestMarshal_StringEscaping(t *testing.T) {
	got, err := Marshal("<a&b>\"\\\n\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"<a&b>\\\"\\\\\\n\\u0001 \"", string(got))
}

func TestMarshal_NFC(t *testing.T) {
	decomposed, err := Marshal("e\u0301")
	require.NoError(t, err)
	composed, err := Marshal("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshal_Struct(t *testing.T) {
	type step struct {
		Step   int     `json:"step"`
		Energy float64 `json:"energy"`
		Label  string  `json:"label"`
	}
	got, err := Marshal([]step{{Step: 1, Energy: 0.5, Label: "x"}})
	require.NoError(t, err)
	assert.Equal(t, `[{"energy":0.5,"label":"x","step":1}]`, string(got))
}

func TestMarshal_Rejects(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorContains(t, err, "null")

	_, err = Marshal(math.NaN())
	assert.ErrorContains(t, err, "non-finite")

	_, err = Marshal(map[string]any{"k": nil})
	assert.ErrorContains(t, err, `object["k"]`)

	_, err = Marshal(map[string]*int{"k": nil})
	assert.Error(t, err)
}

func TestHash_DomainSeparated(t *testing.T) {
	a, err := Hash(DomainProblem, map[string]any{"x": 1})
	require.NoError(t, err)
	b, err := Hash(DomainTrace, map[string]any{"x": 1})
	require.NoError(t, err)
	c, err := Hash(DomainProblem, map[string]any{"x": 1})
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}
