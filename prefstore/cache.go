package prefstore

import (
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tenantCacheSize bounds each tenant's cache. Values are small (flattened
// scalar maps) but the store backing them is sensitive to connection
// pressure, so even a small cache pays off.
const tenantCacheSize = 16

// TenantCache provides one bounded LRU cache per tenant, created lazily.
// Tenants are disjoint: invalidating one never touches another, and reads
// on distinct tenants do not contend.
type TenantCache struct {
	mu      sync.Mutex
	size    int
	tenants map[string]*tenantCache
}

type tenantCache struct {
	// mu guards population and clearing so concurrent readers never
	// observe a half-invalidated cache.
	mu    sync.Mutex
	cache *lru.Cache[string, any]
}

func NewTenantCache() *TenantCache {
	return &TenantCache{
		size:    tenantCacheSize,
		tenants: make(map[string]*tenantCache),
	}
}

func (tc *TenantCache) forTenant(tenant string) *tenantCache {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, ok := tc.tenants[tenant]
	if !ok {
		cache, _ := lru.New[string, any](tc.size)
		entry = &tenantCache{cache: cache}
		tc.tenants[tenant] = entry
		log.Printf("Created cache for tenant %q", tenant)
	}
	return entry
}

// Get returns the cached value for key, calling loader on a miss and
// caching its result. Loader errors are not cached.
func (tc *TenantCache) Get(tenant, key string, loader func() (any, error)) (any, error) {
	entry := tc.forTenant(tenant)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if val, ok := entry.cache.Get(key); ok {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}
	entry.cache.Add(key, val)
	return val, nil
}

// Invalidate clears all entries for the tenant. Every write path through
// the store must call this; the coarse granularity is a deliberate
// simplification.
func (tc *TenantCache) Invalidate(tenant string) {
	tc.mu.Lock()
	entry, ok := tc.tenants[tenant]
	tc.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	entry.cache.Purge()
	entry.mu.Unlock()
}
