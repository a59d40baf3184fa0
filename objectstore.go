package objectstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/agilira/balios"
	"github.com/agilira/go-timecache"

	"github.com/calvinalkan/objectstore/internal/lockmgr"
	"github.com/calvinalkan/objectstore/pkg/fs"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// Logger is the minimal structured-logging surface the store accepts,
// matching github.com/agilira/balios's Logger so a single implementation
// can back both the cache and the engine.
type Logger = balios.Logger

// Options configures a [Store]. Root is the only required field; every
// other collaborator has a sensible default, per §9 "explicit dependencies"
// - nothing here is a package-level global.
type Options struct {
	// Root is the storage root directory. Required.
	Root string

	// FS is the filesystem capability interface. Default: fs.NewReal().
	FS fs.FS

	// Strategy is the pluggable codec/checksum/depth/policy bundle.
	// Default: DefaultJSONStrategy().
	Strategy Strategy

	// Registry maps class names to Go types. Default: an empty
	// NewTypeRegistry() - callers should Register their types before use.
	Registry *TypeRegistry

	// ClassMap is consulted during rehydration for renamed classes.
	ClassMap ClassMap

	// Reflector accesses instance fields. Default: NewStructReflector().
	Reflector Reflector

	// Cache is the identity-map cache. Default: NewCache(10000, 0) (no
	// cache-level TTL; object TTL is still enforced against metadata).
	Cache *Cache

	// Dispatcher receives lifecycle events. Default: NewDispatcher().
	Dispatcher *Dispatcher

	// Logger receives structured diagnostics. Default: balios.NoOpLogger{}.
	Logger Logger

	// LockTimeout bounds lock acquisition (§5, default 10s).
	LockTimeout time.Duration

	// CacheMaxSize bounds the default cache's entry count, ignored if Cache
	// is set explicitly.
	CacheMaxSize int
}

func (o *Options) setDefaults() {
	if o.FS == nil {
		o.FS = fs.NewReal()
	}

	if o.Strategy == nil {
		o.Strategy = DefaultJSONStrategy()
	}

	if o.Registry == nil {
		o.Registry = NewTypeRegistry()
	}

	if o.Reflector == nil {
		o.Reflector = NewStructReflector()
	}

	if o.Dispatcher == nil {
		o.Dispatcher = NewDispatcher()
	}

	if o.Logger == nil {
		o.Logger = balios.NoOpLogger{}
	}

	if o.LockTimeout <= 0 {
		o.LockTimeout = lockmgr.DefaultTimeout
	}

	if o.Cache == nil {
		maxSize := o.CacheMaxSize
		if maxSize <= 0 {
			maxSize = 10000
		}

		o.Cache = NewCache(maxSize, 0)
	}
}

// Store is the ObjectStorage façade (§4.11): the single entry point
// consumers use to store, load, and manage UUID-addressed object graphs.
type Store struct {
	root        string
	fsys        fs.FS
	strategy    Strategy
	registry    *TypeRegistry
	classMap    ClassMap
	refl        Reflector
	cache       *Cache
	dispatcher  *Dispatcher
	logger      Logger
	lockTimeout time.Duration

	paths   *PathResolver
	writer  *fs.AtomicWriter
	locks   *lockmgr.Manager
	state   *StateHandler
	uuidgen *UUIDGenerator
}

// New constructs a Store. The root directory is created if it doesn't
// exist.
func New(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("objectstore: Root is required")
	}

	opts.setDefaults()

	if err := opts.FS.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, NewErrIO("mkdirRoot", err)
	}

	paths := NewPathResolver(opts.Root, opts.Strategy.ShardDepth())
	locker := fs.NewLocker(opts.FS)

	s := &Store{
		root:        opts.Root,
		fsys:        opts.FS,
		strategy:    opts.Strategy,
		registry:    opts.Registry,
		classMap:    opts.ClassMap,
		refl:        opts.Reflector,
		cache:       opts.Cache,
		dispatcher:  opts.Dispatcher,
		logger:      opts.Logger,
		lockTimeout: opts.LockTimeout,
		paths:       paths,
		writer:      fs.NewAtomicWriter(opts.FS),
		locks:       lockmgr.New(locker, paths.LockPath),
		state:       NewStateHandler(paths.SafeModePath(), opts.Dispatcher),
		uuidgen:     NewUUIDGenerator(),
	}

	return s, nil
}

// Dispatcher returns the event dispatcher, so callers can Subscribe.
func (s *Store) Dispatcher() *Dispatcher { return s.dispatcher }

// StateHandler exposes safe-mode control (enable/disable/watch).
func (s *Store) StateHandler() *StateHandler { return s.state }

func (s *Store) now() float64 {
	return float64(timecache.CachedTimeNano()) / 1e9
}

// Shutdown releases every lock this process holds and closes the cache, per
// §5 "Resource cleanup".
func (s *Store) Shutdown() error {
	_ = s.state.StopWatching()

	if err := s.locks.ReleaseAllActive(); err != nil {
		return err
	}

	return s.cache.Close()
}

// StoreOptions configures a single store() call (§4.9, §9's Open Question
// resolution: lifetime inheritance is opt-in per call, default false).
type StoreOptions struct {
	// TTL is the root's time-to-live in seconds. Nil means no expiry, 0
	// means immediately expired (§8 boundary behavior).
	TTL *float64

	// InheritLifetime propagates TTL to every node reached while flattening
	// this root. Default false.
	InheritLifetime bool
}

// Store flattens root into UUID-addressed records and persists them
// atomically (§4.11 "store"). Returns the root's UUID.
func (s *Store) Store(root any, opts ...StoreOptions) (string, error) {
	var o StoreOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	if s.state.Enabled() {
		return "", NewErrSafeMode("store")
	}

	nodes, rootUUID, err := flattenGraph(root, s.registry, s.refl, s.uuidgen, s.strategy.MaxDepth())
	if err != nil {
		return "", fmtWrap("flatten", err)
	}

	parents := computeParents(nodes)

	var acquired []string

	defer func() {
		for _, uuid := range acquired {
			_ = s.locks.Release(uuid)
		}
	}()

	now := s.now()
	policy := s.strategy.ChildWritePolicy()

	for _, node := range nodes {
		isRoot := node.UUID == rootUUID

		if policy == ChildWriteNever && !isRoot {
			continue
		}

		if err := s.locks.AcquireExclusive(node.UUID, s.lockTimeout); err != nil {
			s.dispatcher.Dispatch(Event{Name: EventLockTimeout, UUID: node.UUID})
			return "", s.translateLockErr(node.UUID, err)
		}

		acquired = append(acquired, node.UUID)

		existingMeta, existed := s.readMetaUnlocked(node.UUID)

		if policy == ChildWriteIfNotExist && !isRoot && existed {
			continue
		}

		if err := s.writeNode(node, parents[node.UUID], isRoot, o, existingMeta, existed, now); err != nil {
			return "", err
		}

		s.cache.Invalidate(node.UUID)
		s.dispatcher.Dispatch(Event{Name: EventObjectStored, UUID: node.UUID})
	}

	return rootUUID, nil
}

func computeParents(nodes []flatNode) map[string][]string {
	parents := make(map[string][]string, len(nodes))

	for _, n := range nodes {
		for _, child := range n.Children {
			parents[child] = append(parents[child], n.UUID)
		}
	}

	return parents
}

func (s *Store) writeNode(node flatNode, parentsOf []string, isRoot bool, o StoreOptions, existing *Metadata, existed bool, now float64) error {
	data, err := s.strategy.Serialize(node.Fields, 0)
	if err != nil {
		return NewErrSerialization(node.UUID, err)
	}

	checksum := s.strategy.Checksum(data)

	createdAt := now
	if existed && existing != nil {
		createdAt = existing.CreatedAt
	}

	var ttl *float64

	switch {
	case isRoot && o.TTL != nil:
		ttl = o.TTL
	case s.strategy.InheritLifetime(o.InheritLifetime) && o.TTL != nil:
		ttl = o.TTL
	case existed && existing != nil:
		ttl = existing.TTL
	}

	meta := &Metadata{
		UUID:      node.UUID,
		Class:     node.Class,
		Checksum:  checksum,
		CreatedAt: createdAt,
		UpdatedAt: now,
		TTL:       ttl,
		Children:  node.Children,
		Parents:   parentsOf,
	}

	metaBytes, err := MarshalMetadata(meta)
	if err != nil {
		return NewErrSerialization(node.UUID, err)
	}

	dir := s.paths.Dir(node.UUID)
	if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
		return NewErrIO("mkdir", err)
	}

	if err := s.writer.WriteWithDefaults(s.paths.ObjectPath(node.UUID), bytesReader(data)); err != nil {
		return NewErrIO("writeObject", err)
	}

	if err := s.writer.WriteWithDefaults(s.paths.MetaPath(node.UUID), bytesReader(metaBytes)); err != nil {
		return NewErrIO("writeMeta", err)
	}

	return nil
}

// readMetaUnlocked reads and decodes metadata without acquiring a lock -
// callers that need lock safety acquire one before calling this.
func (s *Store) readMetaUnlocked(uuid string) (*Metadata, bool) {
	if m, ok := s.cache.LoadMetadata(uuid); ok {
		return m, true
	}

	data, err := s.fsys.ReadFile(s.paths.MetaPath(uuid))
	if err != nil {
		return nil, false
	}

	m, err := UnmarshalMetadata(data)
	if err != nil {
		return nil, false
	}

	s.cache.StoreMetadata(uuid, m)

	return m, true
}

func (s *Store) translateLockErr(uuid string, err error) error {
	if errors.Is(err, fs.ErrWouldBlock) {
		return NewErrLockTimeout(uuid, s.lockTimeout.Seconds())
	}

	return NewErrIO("lock", err)
}

// Load reads uuid and rehydrates its full graph, restoring identity across
// cycles and shared references (§4.11 "load", §4.8).
func (s *Store) Load(uuid string) (any, error) {
	if !ValidateUUID(uuid) {
		return nil, NewErrInvalidUUID(uuid)
	}

	if inst, ok := s.cache.LoadInstance(uuid); ok {
		return inst, nil
	}

	reader := func(nodeUUID string) (*Metadata, map[string]any, error) {
		return s.readNodeLocked(nodeUUID)
	}

	inst, err := rehydrateGraph(uuid, s.registry, s.refl, s.classMap, reader)
	if err != nil {
		return nil, err
	}

	s.cache.StoreInstance(uuid, inst)
	s.dispatcher.Dispatch(Event{Name: EventObjectLoaded, UUID: uuid})

	return inst, nil
}

func (s *Store) readNodeLocked(uuid string) (*Metadata, map[string]any, error) {
	if err := s.locks.AcquireShared(uuid, s.lockTimeout); err != nil {
		s.dispatcher.Dispatch(Event{Name: EventLockTimeout, UUID: uuid})
		return nil, nil, s.translateLockErr(uuid, err)
	}
	defer func() { _ = s.locks.Release(uuid) }()

	meta, ok := s.cache.LoadMetadata(uuid)
	if !ok {
		metaData, err := s.fsys.ReadFile(s.paths.MetaPath(uuid))
		if err != nil {
			return nil, nil, NewErrNotFound(uuid)
		}

		meta, err = UnmarshalMetadata(metaData)
		if err != nil {
			return nil, nil, NewErrIntegrity(uuid, "unreadable metadata: "+err.Error())
		}

		s.cache.StoreMetadata(uuid, meta)
	}

	if meta.Expired(s.now()) {
		s.dispatcher.Dispatch(Event{Name: EventObjectExpired, UUID: uuid})
		return nil, nil, NewErrObjectExpired(uuid)
	}

	objData, err := s.fsys.ReadFile(s.paths.ObjectPath(uuid))
	if err != nil {
		return nil, nil, NewErrIntegrity(uuid, "missing object file")
	}

	if s.strategy.Checksum(objData) != meta.Checksum {
		return nil, nil, NewErrIntegrity(uuid, "checksum mismatch")
	}

	fields, err := s.strategy.Unserialize(objData)
	if err != nil {
		return nil, nil, NewErrSerialization(uuid, err)
	}

	return meta, fields, nil
}

// Exists reports whether both the object and metadata files exist for uuid.
// Does not acquire a lock and does not trigger expiry-based deletion
// (§4.11).
func (s *Store) Exists(uuid string) (bool, error) {
	if !ValidateUUID(uuid) {
		return false, NewErrInvalidUUID(uuid)
	}

	objOK, err := s.fsys.Exists(s.paths.ObjectPath(uuid))
	if err != nil {
		return false, NewErrIO("exists", err)
	}

	metaOK, err := s.fsys.Exists(s.paths.MetaPath(uuid))
	if err != nil {
		return false, NewErrIO("exists", err)
	}

	return objOK && metaOK, nil
}

// DeleteOptions configures a single delete() call.
type DeleteOptions struct {
	// Force suppresses NotFound when uuid doesn't exist - delete then
	// reports success (§8 "delete(u); delete(u, force=true)" idempotence).
	Force bool
}

// Delete removes uuid's directory (object, meta, lock) under an exclusive
// lock (§4.11 "delete").
func (s *Store) Delete(uuid string, opts ...DeleteOptions) (bool, error) {
	var o DeleteOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	if !ValidateUUID(uuid) {
		return false, NewErrInvalidUUID(uuid)
	}

	if s.state.Enabled() {
		return false, NewErrSafeMode("delete")
	}

	if err := s.locks.AcquireExclusive(uuid, s.lockTimeout); err != nil {
		s.dispatcher.Dispatch(Event{Name: EventLockTimeout, UUID: uuid})
		return false, s.translateLockErr(uuid, err)
	}
	defer func() { _ = s.locks.Release(uuid) }()

	exists, err := s.Exists(uuid)
	if err != nil {
		return false, err
	}

	if !exists {
		if o.Force {
			return true, nil
		}

		return false, NewErrNotFound(uuid)
	}

	if err := s.fsys.RemoveAll(s.paths.Dir(uuid)); err != nil {
		return false, NewErrIO("delete", err)
	}

	s.cache.Invalidate(uuid)
	s.dispatcher.Dispatch(Event{Name: EventObjectDeleted, UUID: uuid})

	return true, nil
}

// GetLifetime returns the remaining seconds before uuid expires, or nil if
// it has no TTL (§4.11 "getLifetime").
func (s *Store) GetLifetime(uuid string) (*float64, error) {
	if !ValidateUUID(uuid) {
		return nil, NewErrInvalidUUID(uuid)
	}

	meta, ok := s.readMetaUnlocked(uuid)
	if !ok {
		return nil, NewErrNotFound(uuid)
	}

	return meta.RemainingLifetime(s.now()), nil
}

// SetLifetime updates uuid's TTL under an exclusive lock on its metadata,
// restarting the expiry window from now (§4.11 "setLifetime").
func (s *Store) SetLifetime(uuid string, ttl *float64) (bool, error) {
	if !ValidateUUID(uuid) {
		return false, NewErrInvalidUUID(uuid)
	}

	if s.state.Enabled() {
		return false, NewErrSafeMode("setLifetime")
	}

	if err := s.locks.AcquireExclusive(uuid, s.lockTimeout); err != nil {
		s.dispatcher.Dispatch(Event{Name: EventLockTimeout, UUID: uuid})
		return false, s.translateLockErr(uuid, err)
	}
	defer func() { _ = s.locks.Release(uuid) }()

	meta, ok := s.readMetaUnlocked(uuid)
	if !ok {
		return false, NewErrNotFound(uuid)
	}

	meta.TTL = ttl
	meta.UpdatedAt = s.now()

	data, err := MarshalMetadata(meta)
	if err != nil {
		return false, NewErrSerialization(uuid, err)
	}

	if err := s.writer.WriteWithDefaults(s.paths.MetaPath(uuid), bytesReader(data)); err != nil {
		return false, NewErrIO("writeMeta", err)
	}

	s.cache.Invalidate(uuid)

	return true, nil
}

// Expired reports whether uuid's TTL has elapsed (§4.11 "expired").
func (s *Store) Expired(uuid string) (bool, error) {
	if !ValidateUUID(uuid) {
		return false, NewErrInvalidUUID(uuid)
	}

	meta, ok := s.readMetaUnlocked(uuid)
	if !ok {
		return false, NewErrNotFound(uuid)
	}

	return meta.Expired(s.now()), nil
}

// CheckIssue is a single problem found by Check.
type CheckIssue struct {
	UUID   string
	Kind   string // "orphan_object" | "orphan_meta" | "checksum_mismatch" | "missing_child" | "expired"
	Detail string
}

// Check walks the entire sharded tree and reports integrity issues without
// failing the call itself - expired records and missing sibling files are
// reported, not raised (§4.11 "check", §7 propagation policy).
func (s *Store) Check() ([]CheckIssue, error) {
	uuids, err := s.listAllUUIDs()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		known[u] = true
	}

	var issues []CheckIssue

	now := s.now()

	for _, uuid := range uuids {
		objOK, _ := s.fsys.Exists(s.paths.ObjectPath(uuid))
		metaOK, _ := s.fsys.Exists(s.paths.MetaPath(uuid))

		if !metaOK {
			issues = append(issues, CheckIssue{UUID: uuid, Kind: "orphan_object", Detail: "object file has no metadata sibling"})
			continue
		}

		if !objOK {
			issues = append(issues, CheckIssue{UUID: uuid, Kind: "orphan_meta", Detail: "metadata file has no object sibling"})
			continue
		}

		metaData, err := s.fsys.ReadFile(s.paths.MetaPath(uuid))
		if err != nil {
			issues = append(issues, CheckIssue{UUID: uuid, Kind: "orphan_meta", Detail: err.Error()})
			continue
		}

		meta, err := UnmarshalMetadata(metaData)
		if err != nil {
			issues = append(issues, CheckIssue{UUID: uuid, Kind: "checksum_mismatch", Detail: "unreadable metadata: " + err.Error()})
			continue
		}

		objData, err := s.fsys.ReadFile(s.paths.ObjectPath(uuid))
		if err == nil && s.strategy.Checksum(objData) != meta.Checksum {
			issues = append(issues, CheckIssue{UUID: uuid, Kind: "checksum_mismatch", Detail: "checksum does not match object bytes"})
		}

		for _, child := range meta.Children {
			if !known[child] {
				issues = append(issues, CheckIssue{UUID: uuid, Kind: "missing_child", Detail: "references missing child " + child})
			}
		}

		if meta.Expired(now) {
			issues = append(issues, CheckIssue{UUID: uuid, Kind: "expired", Detail: "TTL elapsed"})
		}
	}

	return issues, nil
}

// StoreStats is returned by Stats (§4.11 "stats").
type StoreStats struct {
	ObjectCount  int
	TotalBytes   int64
	ExpiredCount int
}

// Stats returns object count, total on-disk bytes (object+meta), and the
// count of expired records.
func (s *Store) Stats() (StoreStats, error) {
	uuids, err := s.listAllUUIDs()
	if err != nil {
		return StoreStats{}, err
	}

	var stats StoreStats

	now := s.now()
	stats.ObjectCount = len(uuids)

	for _, uuid := range uuids {
		if info, err := s.fsys.Stat(s.paths.ObjectPath(uuid)); err == nil {
			stats.TotalBytes += info.Size()
		}

		if info, err := s.fsys.Stat(s.paths.MetaPath(uuid)); err == nil {
			stats.TotalBytes += info.Size()
		}

		if meta, ok := s.readMetaUnlocked(uuid); ok && meta.Expired(now) {
			stats.ExpiredCount++
		}
	}

	return stats, nil
}

// List walks the sharded tree and returns UUIDs whose metadata class
// matches class, if non-empty. limit <= 0 means unbounded (§4.11 "list").
func (s *Store) List(class string, limit int) ([]string, error) {
	uuids, err := s.listAllUUIDs()
	if err != nil {
		return nil, err
	}

	var out []string

	for _, uuid := range uuids {
		if class != "" {
			meta, ok := s.readMetaUnlocked(uuid)
			if !ok || meta.Class != class {
				continue
			}
		}

		out = append(out, uuid)

		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}

// ClearCache empties the in-memory identity cache.
func (s *Store) ClearCache() {
	s.cache.Clear()
}

func (s *Store) listAllUUIDs() ([]string, error) {
	uuids, err := listShardedUUIDs(s.fsys, s.root, s.strategy.ShardDepth())
	if err != nil {
		return nil, NewErrIO("list", err)
	}

	return uuids, nil
}

func listShardedUUIDs(fsys fs.FS, dir string, remaining int) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	if remaining == 0 {
		var uuids []string

		for _, e := range entries {
			if e.IsDir() && ValidateUUID(e.Name()) {
				uuids = append(uuids, e.Name())
			}
		}

		return uuids, nil
	}

	var uuids []string

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		sub, err := listShardedUUIDs(fsys, filepath.Join(dir, e.Name()), remaining-1)
		if err != nil {
			return nil, err
		}

		uuids = append(uuids, sub...)
	}

	return uuids, nil
}
