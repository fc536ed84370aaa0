package pki

import (
	"sync"
	"time"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// resultCache memoizes verification results per (document, signature) pair.
// Caching is best-effort: concurrent callers may compute the same result
// redundantly, and entries expire after the revocation TTL so stale
// revocation data forces a recompute.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	documentID types.ID
	sigDigest  string
}

type cacheEntry struct {
	result   Result
	cachedAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// get returns the cached result for the pair if it is still fresh.
func (c *resultCache) get(documentID types.ID, sigDigest string, now time.Time) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[cacheKey{documentID, sigDigest}]
	if !ok {
		return Result{}, false
	}
	if c.ttl > 0 && now.Sub(entry.cachedAt) > c.ttl {
		return Result{}, false
	}
	return entry.result, true
}

// put stores a result and drops entries past the TTL. Results with unknown
// revocation status are not cached: the next evaluation should retry the
// authority.
func (c *resultCache) put(documentID types.ID, sigDigest string, result Result, now time.Time) {
	if result.Revocation == RevocationUnknown {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl > 0 {
		for key, entry := range c.entries {
			if now.Sub(entry.cachedAt) > c.ttl {
				delete(c.entries, key)
			}
		}
	}
	c.entries[cacheKey{documentID, sigDigest}] = cacheEntry{result: result, cachedAt: now}
}
