// Package objectstore is an embeddable object store that persists arbitrary
// in-memory object graphs onto a local filesystem, addressed by UUID.
//
// A [Store] flattens a live object graph into UUID-addressed records,
// writes them atomically under a sharded directory tree, and can later
// rehydrate the graph, preserving object identity (including cycles).
// Every object carries a per-object TTL, a shared/exclusive lock, and a
// checksum checked on every read.
//
// The engine is deliberately small: what it needs from the outside world
// (filesystem, cache, class registry, strategy) is an explicit collaborator
// passed to [New]. The one exception is the clock for expiry checks, which
// is go-timecache's process-wide cached clock.
package objectstore
