package textproc

// resultCache is a bounded insertion-ordered map from input string to
// rewritten string. When the cache grows past its limit the oldest quarter
// of entries is dropped in one batch, bounding memory without the churn of
// per-insert eviction.
type resultCache struct {
	limit int
	order []string
	m     map[string]string
}

func newResultCache(limit int) *resultCache {
	return &resultCache{
		limit: limit,
		m:     make(map[string]string, limit),
	}
}

func (c *resultCache) get(key string) (string, bool) {
	v, ok := c.m[key]
	return v, ok
}

func (c *resultCache) put(key, val string) {
	if _, exists := c.m[key]; !exists {
		c.order = append(c.order, key)
	}
	c.m[key] = val

	if len(c.m) > c.limit {
		c.evictOldest()
	}
}

func (c *resultCache) evictOldest() {
	n := c.limit / 4
	if n < 1 {
		n = 1
	}
	if n > len(c.order) {
		n = len(c.order)
	}
	for _, key := range c.order[:n] {
		delete(c.m, key)
	}
	c.order = append(c.order[:0], c.order[n:]...)
}

func (c *resultCache) len() int { return len(c.m) }
