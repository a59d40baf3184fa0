package lockmgr_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/objectstore/internal/lockmgr"
	"github.com/calvinalkan/objectstore/pkg/fs"
)

func newManager(t *testing.T, dir string) *lockmgr.Manager {
	t.Helper()

	locker := fs.NewLocker(fs.NewReal())

	return lockmgr.New(locker, func(uuid string) string {
		return filepath.Join(dir, uuid+".lock")
	})
}

// Test_AcquireExclusive_Is_ReEntrant_Within_The_Same_Process covers §4.5's
// re-entrant exclusive acquisition: a second AcquireExclusive by the same
// Manager succeeds immediately instead of blocking on itself.
func Test_AcquireExclusive_Is_ReEntrant_Within_The_Same_Process(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newManager(t, dir)

	require.NoError(t, m.AcquireExclusive("u1", time.Second))
	require.NoError(t, m.AcquireExclusive("u1", time.Second))

	require.NoError(t, m.Release("u1"))
	require.True(t, m.IsLockedByThisProcess("u1"), "one release should leave the re-entrant hold in place")

	require.NoError(t, m.Release("u1"))
	require.False(t, m.IsLockedByThisProcess("u1"))
}

// Test_AcquireExclusive_Blocks_A_Different_Manager covers scenario 5: one
// Manager (process A) holds an exclusive lock; a second, independent
// Manager (process B) times out acquiring it, then succeeds once A releases.
func Test_AcquireExclusive_Blocks_A_Different_Manager(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := newManager(t, dir)
	b := newManager(t, dir)

	require.NoError(t, a.AcquireExclusive("u1", time.Second))

	err := b.AcquireExclusive("u1", 200*time.Millisecond)
	require.Error(t, err)

	release := make(chan struct{})

	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = a.Release("u1")
		close(release)
	}()

	require.NoError(t, b.AcquireExclusive("u1", 2*time.Second))
	<-release

	require.NoError(t, b.Release("u1"))
}

// Test_IsLockedByOther_Reflects_A_Foreign_Holder covers the probe used by
// the façade to report contention without blocking.
func Test_IsLockedByOther_Reflects_A_Foreign_Holder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := newManager(t, dir)
	b := newManager(t, dir)

	require.False(t, b.IsLockedByOther("u1"))

	require.NoError(t, a.AcquireExclusive("u1", time.Second))
	require.True(t, b.IsLockedByOther("u1"))

	require.NoError(t, a.Release("u1"))
	require.False(t, b.IsLockedByOther("u1"))
}

// Test_ReleaseAllActive_Releases_Every_Held_Lock covers shutdown cleanup.
func Test_ReleaseAllActive_Releases_Every_Held_Lock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := newManager(t, dir)
	b := newManager(t, dir)

	require.NoError(t, a.AcquireExclusive("u1", time.Second))
	require.NoError(t, a.AcquireExclusive("u2", time.Second))

	require.NoError(t, a.ReleaseAllActive())

	require.False(t, a.IsLockedByThisProcess("u1"))
	require.False(t, a.IsLockedByThisProcess("u2"))

	require.NoError(t, b.AcquireExclusive("u1", time.Second))
	require.NoError(t, b.AcquireExclusive("u2", time.Second))
}
