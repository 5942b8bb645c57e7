package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogDisabled(t *testing.T) {
	Disable()
	assert.False(t, Enabled())
	Log("test", "dropped %d", 1) // must not panic
}

func TestLogWritesCategory(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(&buf)
	defer Disable()

	Log("match", "cursor at %d", 3)
	out := buf.String()
	assert.Contains(t, out, "cursor at 3")
	assert.Contains(t, out, "cat=match")
}

func TestLogEvery(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(&buf)
	defer Disable()

	for i := 0; i < 10; i++ {
		LogEvery(5, "pitch", "frame")
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "frame (every 5"))
}
