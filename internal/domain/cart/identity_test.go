package cart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionIDFormat(t *testing.T) {
	id := NewSessionID()

	parts := strings.Split(id, "_")
	assert.Len(t, parts, 3)
	assert.Equal(t, "sess", parts[0])
	assert.Len(t, parts[1], 32)
}

func TestNewSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}
