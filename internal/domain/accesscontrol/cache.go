package accesscontrol

import "sync"

type cacheKey struct {
	role RoleCode
	perm PermissionCode
}

// decisionCache is the advisory (role, permission) -> bool cache fed by
// backing-store lookups. Entries are idempotent for a given key, so last
// write wins and no eviction is needed: the role and permission spaces are
// small and finite, and the cache lives for the process lifetime.
type decisionCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]bool
}

func newDecisionCache() *decisionCache {
	return &decisionCache{entries: make(map[cacheKey]bool)}
}

func (c *decisionCache) get(role RoleCode, perm PermissionCode) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	granted, ok := c.entries[cacheKey{role, perm}]
	return granted, ok
}

func (c *decisionCache) set(role RoleCode, perm PermissionCode, granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{role, perm}] = granted
}

func (c *decisionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
