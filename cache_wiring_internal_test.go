package objectstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type cacheWiringUser struct {
	UUID string `objstore:"-"`
	Name string `objstore:"name"`
}

// Test_ReadMetaUnlocked_Hits_The_Cache_On_A_Repeat_Read confirms
// GetLifetime's two calls against the same uuid only decode metadata off
// disk once; the second is served from the cache Store wires through
// readMetaUnlocked.
func Test_ReadMetaUnlocked_Hits_The_Cache_On_A_Repeat_Read(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("User", (*cacheWiringUser)(nil))

	s, err := New(Options{Root: t.TempDir(), Registry: registry})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	uuid, err := s.Store(&cacheWiringUser{Name: "Dana"})
	require.NoError(t, err)

	before := s.cache.Stats()

	_, err = s.GetLifetime(uuid)
	require.NoError(t, err)

	afterFirst := s.cache.Stats()
	require.Greater(t, afterFirst.Misses, before.Misses, "first read should populate the cache on a miss")

	_, err = s.GetLifetime(uuid)
	require.NoError(t, err)

	afterSecond := s.cache.Stats()
	require.Greater(t, afterSecond.Hits, afterFirst.Hits, "second read should be served from the cache")
	require.Equal(t, afterFirst.Misses, afterSecond.Misses, "second read must not touch disk again")
}

// Test_ReadNodeLocked_Metadata_Cache_Is_Invalidated_By_SetLifetime confirms
// a cached metadata entry doesn't go stale across a write: SetLifetime must
// invalidate it so the next Load sees the new TTL, not a cached copy of the
// old one.
func Test_ReadNodeLocked_Metadata_Cache_Is_Invalidated_By_SetLifetime(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("User", (*cacheWiringUser)(nil))

	s, err := New(Options{Root: t.TempDir(), Registry: registry})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	uuid, err := s.Store(&cacheWiringUser{Name: "Eli"})
	require.NoError(t, err)

	// Populate the metadata cache entry.
	_, err = s.GetLifetime(uuid)
	require.NoError(t, err)

	ttl := 3600.0
	_, err = s.SetLifetime(uuid, &ttl)
	require.NoError(t, err)

	_, ok := s.cache.LoadMetadata(uuid)
	require.False(t, ok, "SetLifetime must invalidate the cached metadata entry")

	remaining, err := s.GetLifetime(uuid)
	require.NoError(t, err)
	require.NotNil(t, remaining)
	require.InDelta(t, ttl, *remaining, 1)
}
