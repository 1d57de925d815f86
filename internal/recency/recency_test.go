package recency

import (
	"testing"
	"time"

	"github.com/naripok/complete-coordinator/internal/assert"
)

func TestTouchAndLastSeen(t *testing.T) {
	m := New()
	now := time.Now()

	_, ok := m.LastSeen(1, "foo")
	assert.False(t, ok, "untouched word has no recency")

	m.Touch(1, "foo", now)
	seen, ok := m.LastSeen(1, "foo")
	assert.True(t, ok, "touched word is recorded")
	assert.True(t, seen.Equal(now), "recorded timestamp round-trips")
}

func TestTouchIsPerBuffer(t *testing.T) {
	m := New()
	now := time.Now()
	m.Touch(1, "foo", now)

	_, ok := m.LastSeen(2, "foo")
	assert.False(t, ok, "same word in a different buffer is a different key")
}
