// Package lockmgr implements the per-process lock registry described in
// spec §4.5, layered on top of github.com/calvinalkan/objectstore/pkg/fs's
// flock(2) primitives.
//
// pkg/fs.Locker only knows how to flock a single path. Manager adds the
// domain semantics the object store's façade actually needs: re-entrant
// exclusive acquisition by the same process, a registry answering
// isLockedByThisProcess/isLockedByOther, and releaseAllActive for shutdown.
package lockmgr

import (
	"fmt"
	"sync"
	"time"

	"github.com/calvinalkan/objectstore/pkg/fs"
)

// Mode is the lock mode held on a UUID.
type Mode int

const (
	// Shared permits other shared holders but blocks exclusive acquisition.
	Shared Mode = iota
	// Exclusive blocks every other holder, shared or exclusive.
	Exclusive
)

// DefaultTimeout is the lock acquisition timeout used when a caller doesn't
// specify one (§5 "default 10" seconds).
const DefaultTimeout = 10 * time.Second

type held struct {
	lock  *fs.Lock
	mode  Mode
	count int // re-entrant acquisitions (shared or exclusive) by this process
}

// Manager coordinates per-UUID locks across processes (via flock) and
// tracks, within this process, which UUIDs it currently holds and in what
// mode.
type Manager struct {
	locker *fs.Locker
	paths  func(uuid string) string

	mu    sync.Mutex
	state map[string]*held
}

// New returns a Manager that locks files resolved by pathFor(uuid), using
// locker for the underlying flock primitives.
func New(locker *fs.Locker, pathFor func(uuid string) string) *Manager {
	return &Manager{
		locker: locker,
		paths:  pathFor,
		state:  make(map[string]*held),
	}
}

// AcquireShared obtains a shared lock on uuid, blocking up to timeout.
// Re-entrant: if this process already holds any lock on uuid, it succeeds
// immediately without touching the kernel again.
func (m *Manager) AcquireShared(uuid string, timeout time.Duration) error {
	m.mu.Lock()
	if h, ok := m.state[uuid]; ok {
		h.count++
		m.mu.Unlock()

		return nil
	}
	m.mu.Unlock()

	lock, err := m.locker.RLockWithTimeout(m.paths(uuid), timeout)
	if err != nil {
		return translateTimeout(uuid, timeout, err)
	}

	m.mu.Lock()
	m.state[uuid] = &held{lock: lock, mode: Shared, count: 1}
	m.mu.Unlock()

	return nil
}

// AcquireExclusive obtains an exclusive lock on uuid, blocking up to
// timeout. Re-entrant: repeated exclusive acquisitions by this process
// succeed without blocking (§4.5 "Implementation contract").
//
// A shared lock already held by this process is NOT silently upgraded -
// per §4.5 "Upgrade", the caller must release and reacquire exclusively.
func (m *Manager) AcquireExclusive(uuid string, timeout time.Duration) error {
	m.mu.Lock()
	if h, ok := m.state[uuid]; ok && h.mode == Exclusive {
		h.count++
		m.mu.Unlock()

		return nil
	}
	m.mu.Unlock()

	lock, err := m.locker.LockWithTimeout(m.paths(uuid), timeout)
	if err != nil {
		return translateTimeout(uuid, timeout, err)
	}

	m.mu.Lock()
	m.state[uuid] = &held{lock: lock, mode: Exclusive, count: 1}
	m.mu.Unlock()

	return nil
}

// Release releases one level of this process's hold on uuid. Once the
// re-entrant count reaches zero, the underlying flock is released.
func (m *Manager) Release(uuid string) error {
	m.mu.Lock()
	h, ok := m.state[uuid]
	if !ok {
		m.mu.Unlock()
		return nil
	}

	h.count--
	if h.count > 0 {
		m.mu.Unlock()
		return nil
	}

	delete(m.state, uuid)
	m.mu.Unlock()

	return h.lock.Close()
}

// ReleaseAllActive releases every lock this process currently holds,
// regardless of re-entrant count. Intended for shutdown (§5 "Resource
// cleanup").
func (m *Manager) ReleaseAllActive() error {
	m.mu.Lock()
	locks := make([]*fs.Lock, 0, len(m.state))
	for uuid, h := range m.state {
		locks = append(locks, h.lock)
		delete(m.state, uuid)
	}
	m.mu.Unlock()

	var firstErr error

	for _, lock := range locks {
		if err := lock.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// IsLockedByThisProcess reports whether this process currently holds any
// lock (shared or exclusive) on uuid.
func (m *Manager) IsLockedByThisProcess(uuid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.state[uuid]

	return ok
}

// IsLockedByOther attempts a non-blocking exclusive probe and reports
// whether some other process (or this process, if it doesn't already hold
// it) currently holds the lock.
func (m *Manager) IsLockedByOther(uuid string) bool {
	if m.IsLockedByThisProcess(uuid) {
		return false
	}

	lock, err := m.locker.TryLock(m.paths(uuid))
	if err != nil {
		return true
	}

	_ = lock.Close()

	return false
}

func translateTimeout(uuid string, timeout time.Duration, err error) error {
	return fmt.Errorf("lockmgr: acquiring lock for %s: %w", uuid, err)
}
