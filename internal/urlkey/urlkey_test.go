package urlkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256HexKnownVector(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"[:64], SHA256Hex(""))
}

func TestSHA256HexDeterministic(t *testing.T) {
	t.Parallel()
	a := SHA256Hex("<html>hello</html>")
	b := SHA256Hex("<html>hello</html>")
	assert.Equal(t, a, b)
}

// Cosmetic query variation (blocklisted params, reordering) collapses to
// the identical KV key.
func TestBuildKVKeyIdenticalCanonicalKey(t *testing.T) {
	t.Parallel()
	a, err := BuildKVKey("https://example.com/p?b=2&a=1&to_html=1")
	require.NoError(t, err)
	b, err := BuildKVKey("https://example.com/p?a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "to_html:v1:example.com:/p?a=1&b=2", a)
}

func TestBuildKVKeyStripsAllBlockedParams(t *testing.T) {
	t.Parallel()
	key, err := BuildKVKey("https://example.com/page?cache_invalidate=1&x-lovablehtml-render=1")
	require.NoError(t, err)
	assert.Equal(t, "to_html:v1:example.com:/page", key)
}

func TestBuildKVKeyPreservesTrailingSlash(t *testing.T) {
	t.Parallel()
	key, err := BuildKVKey("https://example.com/dir/")
	require.NoError(t, err)
	assert.Equal(t, "to_html:v1:example.com:/dir/", key)
}

func TestBuildKVKeyInvalidURL(t *testing.T) {
	t.Parallel()
	_, err := BuildKVKey("http://[::1")
	assert.Error(t, err)
}

func TestBuildObjectKeyUniqueAcrossPublishes(t *testing.T) {
	t.Parallel()
	digest := SHA256Hex("<html>same content</html>")
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Millisecond)

	k1, err := BuildObjectKey("https://example.com/page", digest, t1)
	require.NoError(t, err)
	k2, err := BuildObjectKey("https://example.com/page", digest, t2)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestBuildObjectKeyShapeAndSafeChars(t *testing.T) {
	t.Parallel()
	digest := SHA256Hex("x")
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	key, err := BuildObjectKey("https://Example.COM/Some Path/../weird?a=1", digest, now)
	require.NoError(t, err)
	assert.Contains(t, key, "v1/example.com/")
	assert.NotContains(t, key, " ")
	assert.NotContains(t, key, ":")
}

func TestBuildObjectKeyRootPath(t *testing.T) {
	t.Parallel()
	digest := SHA256Hex("y")
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	key, err := BuildObjectKey("https://example.com/", digest, now)
	require.NoError(t, err)
	assert.Contains(t, key, "/root_")
}
