package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ChildWritePolicy controls whether a referenced child node is re-written
// on every store that traverses it (§4.9, §9 "adopt the richer one").
type ChildWritePolicy int

const (
	// ChildWriteAlways re-writes every child record on every store.
	ChildWriteAlways ChildWritePolicy = iota
	// ChildWriteNever writes only the root record; children are assumed
	// already persisted.
	ChildWriteNever
	// ChildWriteIfNotExist writes a child record only if it doesn't already
	// exist on disk.
	ChildWriteIfNotExist
)

func (p ChildWritePolicy) String() string {
	switch p {
	case ChildWriteAlways:
		return "ALWAYS"
	case ChildWriteNever:
		return "NEVER"
	case ChildWriteIfNotExist:
		return "IF_NOT_EXIST"
	default:
		return "UNKNOWN"
	}
}

// Strategy is the pluggable policy bundle controlling codec, checksum,
// recursion depth, shard depth, child-write policy, and lifetime
// inheritance (§4.9).
//
// The engine holds the strategy by reference; swapping it between writes is
// permitted but may make previously written records unreadable unless the
// new strategy can decode the old format.
type Strategy interface {
	// InheritLifetime reports whether a child stored under a parent with a
	// TTL should inherit the parent's remaining TTL. Per §9's Open Question
	// resolution, this is opt-in per store call, not a strategy-wide switch
	// - implementations typically just return the store call's own flag.
	InheritLifetime(inherit bool) bool

	// ChecksumAlgorithm names the content hash used for metadata.checksum,
	// e.g. "sha256".
	ChecksumAlgorithm() string

	// Checksum returns the "<algorithm>:<digest>" checksum of data.
	Checksum(data []byte) string

	// Serialize encodes a flattened node's fields (primitives and
	// {"$ref": uuid} markers) into on-disk bytes.
	Serialize(fields map[string]any, depth int) ([]byte, error)

	// Unserialize is the inverse of Serialize.
	Unserialize(data []byte) (map[string]any, error)

	// MaxDepth bounds flattening recursion (§4.7 step 3).
	MaxDepth() int

	// ShardDepth is the path resolver's directory shard depth, in [0, 4].
	ShardDepth() int

	// ChildWritePolicy controls re-writing of already-visited children.
	ChildWritePolicy() ChildWritePolicy
}

// JSONStrategy is the default [Strategy]: JSON codec via encoding/json,
// sha256 checksums via crypto/sha256 (no ecosystem hashing library appears
// anywhere in the example pack this engine's dependency stack was drawn
// from, so the stdlib hash is used directly - see DESIGN.md).
type JSONStrategy struct {
	// MaxDepthValue bounds flattening recursion. Zero means unbounded is
	// NOT honored - callers must set a positive value; DefaultJSONStrategy
	// uses 64.
	MaxDepthValue int

	// ShardDepthValue is the directory shard depth, clamped to [0, 4] by
	// [NewPathResolver].
	ShardDepthValue int

	// ChildWritePolicyValue controls re-writing of already-visited children.
	ChildWritePolicyValue ChildWritePolicy

	// InheritLifetimeDefault records the default for lifetime inheritance.
	// InheritLifetime does not consult it: it returns the store call's own
	// flag.
	InheritLifetimeDefault bool
}

// DefaultJSONStrategy returns a JSONStrategy with sensible defaults: max
// depth 64, shard depth 2, child-write policy ALWAYS, no lifetime
// inheritance (per §9's Open Question resolution).
func DefaultJSONStrategy() *JSONStrategy {
	return &JSONStrategy{
		MaxDepthValue:           64,
		ShardDepthValue:         2,
		ChildWritePolicyValue:   ChildWriteAlways,
		InheritLifetimeDefault:  false,
	}
}

func (s *JSONStrategy) InheritLifetime(inherit bool) bool {
	return inherit
}

func (s *JSONStrategy) ChecksumAlgorithm() string { return "sha256" }

func (s *JSONStrategy) Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (s *JSONStrategy) Serialize(fields map[string]any, _ int) ([]byte, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}

	return data, nil
}

func (s *JSONStrategy) Unserialize(data []byte) (map[string]any, error) {
	var fields map[string]any

	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	return fields, nil
}

func (s *JSONStrategy) MaxDepth() int { return s.MaxDepthValue }

func (s *JSONStrategy) ShardDepth() int { return s.ShardDepthValue }

func (s *JSONStrategy) ChildWritePolicy() ChildWritePolicy { return s.ChildWritePolicyValue }

// refKey is the JSON key marking a reference to another record (§6 "Object
// record format").
const refKey = "$ref"

// isRefMarker reports whether v is a {"$ref": uuid} marker and returns the
// referenced UUID.
func isRefMarker(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}

	ref, ok := m[refKey]
	if !ok {
		return "", false
	}

	s, ok := ref.(string)
	return s, ok
}

func refMarker(uuid string) map[string]any {
	return map[string]any{refKey: uuid}
}
