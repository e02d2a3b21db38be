package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/annisgo/pkg/aql"
)

// PlanCache caches built plans under a key derived from the corpus name and
// the raw query text. The query façade does not use it: every query is
// planned afresh.
type PlanCache struct {
	mu      sync.RWMutex
	entries map[string]cachedPlan
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
}

type cachedPlan struct {
	plan      *Plan
	alternatives []*Plan
	storedAt  time.Time
}

// NewPlanCache creates a cache; maxSize <= 0 defaults to 1000 entries and
// ttl <= 0 defaults to 5 minutes.
func NewPlanCache(maxSize int, ttl time.Duration) *PlanCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanCache{entries: make(map[string]cachedPlan), maxSize: maxSize, ttl: ttl}
}

// Key computes a deterministic cache key for a corpus name and raw AQL text.
func (c *PlanCache) Key(corpus, query string) string {
	h := sha256.New()
	fmt.Fprintf(h, "CORPUS:%s;QUERY:%s;", corpus, query)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached alternatives for key, if present and unexpired.
func (c *PlanCache) Get(key string) ([]*Plan, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Since(e.storedAt) > c.ttl {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.alternatives, true
}

// Set stores plans (one per DNF alternative) under key.
func (c *PlanCache) Set(key string, alternatives []*Plan) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictExpired()
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
	}
	c.entries[key] = cachedPlan{alternatives: alternatives, storedAt: time.Now()}
}

func (c *PlanCache) evictExpired() {
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}

func (c *PlanCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldestTime) {
			oldestKey, oldestTime = k, e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stats returns cache hit/miss counters and current size.
func (c *PlanCache) Stats() (hits, misses int64, size int) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// Clear empties the cache and resets counters.
func (c *PlanCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedPlan)
	c.hits, c.misses = 0, 0
}

var _ = aql.Expr{}
