package objectstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type chainNode struct {
	UUID string     `objstore:"-"`
	Next *chainNode `objstore:"next"`
}

// buildChain returns a linked list of depth nodes, root first.
func buildChain(depth int) *chainNode {
	root := &chainNode{}

	cur := root
	for i := 1; i < depth; i++ {
		cur.Next = &chainNode{}
		cur = cur.Next
	}

	return root
}

// Test_FlattenGraph_Inlines_Nodes_Past_MaxDepth covers the boundary
// behavior: a chain of depth N+1 yields N records plus one inlined tail.
func Test_FlattenGraph_Inlines_Nodes_Past_MaxDepth(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("ChainNode", (*chainNode)(nil))

	refl := NewStructReflector()
	uuidgen := NewUUIDGenerator()

	const maxDepth = 3

	root := buildChain(maxDepth + 1)

	nodes, rootUUID, err := flattenGraph(root, registry, refl, uuidgen, maxDepth)
	require.NoError(t, err)
	require.NotEmpty(t, rootUUID)

	// maxDepth separately addressable nodes (depth 0..maxDepth-1); the
	// (maxDepth+1)th node is past depth and gets inlined into its parent.
	require.Len(t, nodes, maxDepth)

	last := nodes[len(nodes)-1]

	nextField, ok := last.Fields["next"].(map[string]any)
	require.True(t, ok, "expected inlined map, got %T", last.Fields["next"])
	require.Equal(t, true, nextField["$inline"])
	require.Equal(t, "ChainNode", nextField["class"])
}

// Test_FlattenGraph_Assigns_One_UUID_Per_Self_Cycle covers the identity
// invariant at the flattener level: a self-referencing node is visited
// once and produces a single record whose own field references itself.
func Test_FlattenGraph_Assigns_One_UUID_Per_Self_Cycle(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("ChainNode", (*chainNode)(nil))

	refl := NewStructReflector()
	uuidgen := NewUUIDGenerator()

	root := &chainNode{}
	root.Next = root

	nodes, rootUUID, err := flattenGraph(root, registry, refl, uuidgen, 64)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	ref, ok := nodes[0].Fields["next"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, rootUUID, ref["$ref"])
}
