package build

import "sync"

// CompletionCache remembers task ids known to be complete. Share one between
// builds to skip completeness checks already done; it is safe for concurrent
// use.
type CompletionCache struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewCompletionCache() *CompletionCache {
	return &CompletionCache{ids: make(map[string]struct{})}
}

func (c *CompletionCache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

func (c *CompletionCache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[id] = struct{}{}
}

func (c *CompletionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
