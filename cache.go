package objectstore

import (
	"time"

	"github.com/agilira/balios"
)

// metaCachePrefix namespaces metadata entries in the shared key space, so a
// live instance and its metadata record don't collide under the same key
// (§4.12 "Keys are UUIDs (and metadata keys such as meta:<uuid>)").
const metaCachePrefix = "meta:"

// cacheEntry is what lives behind a UUID key: the live instance. Eviction
// and TTL bookkeeping are balios's job, not ours.
type cacheEntry struct {
	instance any
}

// Cache is the identity map UUID -> live instance + metadata described in
// §4.12, backed directly by github.com/agilira/balios - the engine's
// production exercise of "may substitute any key-value cache with TTL"
// (§1).
//
// Cache misses fall through to disk; the engine never treats a cache miss
// as authoritative absence.
type Cache struct {
	backend balios.Cache
}

// NewCache wraps a balios.Cache configured with the given TTL. A TTL of 0
// disables expiry (entries live until explicit invalidation).
func NewCache(maxSize int, ttlSeconds float64) *Cache {
	cfg := balios.Config{
		MaxSize: maxSize,
	}

	if ttlSeconds > 0 {
		cfg.TTL = time.Duration(ttlSeconds * float64(time.Second))
	}

	return &Cache{backend: balios.NewCache(cfg)}
}

// LoadInstance returns the cached live instance for uuid, if present and
// not evicted.
func (c *Cache) LoadInstance(uuid string) (any, bool) {
	v, ok := c.backend.Get(uuid)
	if !ok {
		return nil, false
	}

	entry, ok := v.(cacheEntry)
	if !ok {
		return nil, false
	}

	return entry.instance, true
}

// StoreInstance populates the cache with a freshly loaded or stored
// instance.
func (c *Cache) StoreInstance(uuid string, instance any) {
	c.backend.Set(uuid, cacheEntry{instance: instance})
}

// LoadMetadata returns the cached metadata for uuid, if present.
func (c *Cache) LoadMetadata(uuid string) (*Metadata, bool) {
	v, ok := c.backend.Get(metaCachePrefix + uuid)
	if !ok {
		return nil, false
	}

	m, ok := v.(*Metadata)
	return m, ok
}

// StoreMetadata populates the cache with freshly read metadata.
func (c *Cache) StoreMetadata(uuid string, m *Metadata) {
	c.backend.Set(metaCachePrefix+uuid, m)
}

// Invalidate removes both the instance and metadata entries for uuid -
// called by store, delete, and setLifetime (§4.12).
func (c *Cache) Invalidate(uuid string) {
	c.backend.Delete(uuid)
	c.backend.Delete(metaCachePrefix + uuid)
}

// Clear empties the entire cache (the façade's clearCache operation).
func (c *Cache) Clear() {
	c.backend.Clear()
}

// Stats exposes the underlying cache's hit/miss/eviction counters.
func (c *Cache) Stats() balios.CacheStats {
	return c.backend.Stats()
}

// Close releases cache resources (e.g. a background cleanup goroutine).
func (c *Cache) Close() error {
	return c.backend.Close()
}
