package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostOf(t *testing.T) {
	t.Parallel()
	host, err := hostOf("https://example.com/path?x=1")
	assert.NoError(t, err)
	assert.Equal(t, "example.com", host)
}

func TestHostOfRejectsHostless(t *testing.T) {
	t.Parallel()
	_, err := hostOf("/relative/path")
	assert.Error(t, err)
}

func TestHostOfRejectsUnparseable(t *testing.T) {
	t.Parallel()
	_, err := hostOf("http://[::1")
	assert.Error(t, err)
}

func TestNavigationTimeoutIsTwiceHardTimeout(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(30000), NavigationTimeout.Milliseconds())
}
