package canonicalize_test

import (
	"testing"

	"github.com/Mindburn-Labs/plang/pkg/canonicalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJCS_SortsKeysAndFixesSeparators(t *testing.T) {
	out, err := canonicalize.JCS(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))
}

func TestJCS_NoHTMLEscaping(t *testing.T) {
	out, err := canonicalize.JCS(map[string]string{"k": "<a&b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a&b>"}`, string(out))
}

func TestJCS_RespectsStructTags(t *testing.T) {
	type record struct {
		Zed   string `json:"zed"`
		Alpha int    `json:"alpha"`
	}
	out, err := canonicalize.JCS(record{Zed: "z", Alpha: 7})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":7,"zed":"z"}`, string(out))
}

func TestCanonicalHash_StableAndSensitive(t *testing.T) {
	h1, err := canonicalize.CanonicalHash(map[string]any{"x": 1, "y": "a"})
	require.NoError(t, err)
	h2, err := canonicalize.CanonicalHash(map[string]any{"y": "a", "x": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "key order must not affect the hash")

	h3, err := canonicalize.CanonicalHash(map[string]any{"x": 2, "y": "a"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "changing one value must change the hash")
}

func TestJCS_RejectsUnmarshalable(t *testing.T) {
	_, err := canonicalize.JCS(make(chan int))
	assert.Error(t, err)
}
