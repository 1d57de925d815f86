// Package recency tracks per-(buffer, word) last-seen timestamps used
// as ranking input by providers. Writes are
// append-only and ordering-insensitive; reads never block writers.
package recency

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// defaultTTL bounds memory growth for long sessions; recency is only
// useful as a short-term signal, so entries older than this are
// evicted rather than kept forever.
const defaultTTL = 30 * time.Minute

// Map is the recency map, backed by an in-memory TTL
// cache instead of a hand-rolled map.
type Map struct {
	cache *cache.Cache
}

// New creates an empty recency map.
func New() *Map {
	return &Map{cache: cache.New(defaultTTL, defaultTTL/2)}
}

func key(bufnr int, word string) string {
	return fmt.Sprintf("%d\x00%s", bufnr, word)
}

// Touch records that word was seen in bufnr at now.
func (m *Map) Touch(bufnr int, word string, now time.Time) {
	m.cache.Set(key(bufnr, word), now, cache.DefaultExpiration)
}

// LastSeen implements types.Recency.
func (m *Map) LastSeen(bufnr int, word string) (time.Time, bool) {
	v, ok := m.cache.Get(key(bufnr, word))
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}
