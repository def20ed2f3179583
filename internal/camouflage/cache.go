package camouflage

import "time"

// CacheStats summarizes analysis cache behavior for diagnostics.
type CacheStats struct {
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

type cacheEntry struct {
	result AnalysisResult
}

// analysisCache deduplicates environment analysis by quantized position.
// Entries live for a fixed TTL measured from the analysis timestamp, and
// the cache is bounded: exceeding the bound evicts the earliest-inserted
// entry, not the least recently used one.
type analysisCache struct {
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	order      []string

	hits      uint64
	misses    uint64
	evictions uint64
}

func newAnalysisCache(ttl time.Duration, maxEntries int) *analysisCache {
	return &analysisCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *analysisCache) get(key string, now time.Time) (AnalysisResult, bool) {
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return AnalysisResult{}, false
	}
	if c.expired(entry, now) {
		c.remove(key)
		c.misses++
		return AnalysisResult{}, false
	}
	c.hits++
	return entry.result.Clone(), true
}

func (c *analysisCache) put(key string, result AnalysisResult) {
	if existing, ok := c.entries[key]; ok {
		// Refresh in place; the slot keeps its original insertion order.
		existing.result = result.Clone()
		return
	}
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{result: result.Clone()}
	c.order = append(c.order, key)
}

func (c *analysisCache) evictOldest() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			c.evictions++
			return
		}
	}
}

func (c *analysisCache) evictExpired(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			c.remove(key)
			removed++
		}
	}
	return removed
}

func (c *analysisCache) expired(entry *cacheEntry, now time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return now.Sub(entry.result.AnalyzedAt) >= c.ttl
}

func (c *analysisCache) remove(key string) {
	delete(c.entries, key)
	for i, existing := range c.order {
		if existing == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *analysisCache) clear() {
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
}

func (c *analysisCache) stats() CacheStats {
	return CacheStats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
