package objectstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type rehydrateNode struct {
	UUID string         `objstore:"-"`
	Name string         `objstore:"name"`
	Next *rehydrateNode `objstore:"next"`
}

// Test_RehydrateGraph_Resolves_A_Ref_Marker_To_A_Shared_Instance covers the
// identity guarantee across two records, one referencing the other.
func Test_RehydrateGraph_Resolves_A_Ref_Marker_To_A_Shared_Instance(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("RehydrateNode", (*rehydrateNode)(nil))

	refl := NewStructReflector()

	store := map[string]struct {
		meta   *Metadata
		fields map[string]any
	}{
		"root": {
			meta:   &Metadata{UUID: "root", Class: "RehydrateNode"},
			fields: map[string]any{"name": "root", "next": refMarker("child")},
		},
		"child": {
			meta:   &Metadata{UUID: "child", Class: "RehydrateNode"},
			fields: map[string]any{"name": "child", "next": nil},
		},
	}

	read := func(uuid string) (*Metadata, map[string]any, error) {
		e := store[uuid]
		return e.meta, e.fields, nil
	}

	inst, err := rehydrateGraph("root", registry, refl, nil, read)
	require.NoError(t, err)

	root, ok := inst.(*rehydrateNode)
	require.True(t, ok)
	require.Equal(t, "root", root.Name)
	require.NotNil(t, root.Next)
	require.Equal(t, "child", root.Next.Name)
}

// Test_RehydrateGraph_Unknown_Class_Populates_A_Placeholder covers the
// fallback path when the stored class isn't registered.
func Test_RehydrateGraph_Unknown_Class_Populates_A_Placeholder(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	refl := NewStructReflector()

	read := func(uuid string) (*Metadata, map[string]any, error) {
		return &Metadata{UUID: uuid, Class: "Ghost"}, map[string]any{"name": "Casper"}, nil
	}

	inst, err := rehydrateGraph("u1", registry, refl, nil, read)
	require.NoError(t, err)

	ph, ok := inst.(*Placeholder)
	require.True(t, ok)
	require.Equal(t, "Ghost", ph.Class)

	name, ok := ph.Get("name")
	require.True(t, ok)
	require.Equal(t, "Casper", name)
}

// Test_RehydrateGraph_Resolves_Inline_SubObjects covers the past-max-depth
// inlined shape produced by the flattener.
func Test_RehydrateGraph_Resolves_Inline_SubObjects(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("RehydrateNode", (*rehydrateNode)(nil))

	refl := NewStructReflector()

	read := func(uuid string) (*Metadata, map[string]any, error) {
		return &Metadata{UUID: uuid, Class: "RehydrateNode"}, map[string]any{
			"name": "root",
			"next": map[string]any{
				"$inline": true,
				"class":   "RehydrateNode",
				"fields":  map[string]any{"name": "inlined-child", "next": nil},
			},
		}, nil
	}

	inst, err := rehydrateGraph("root", registry, refl, nil, read)
	require.NoError(t, err)

	root, ok := inst.(*rehydrateNode)
	require.True(t, ok)
	require.NotNil(t, root.Next)
	require.Equal(t, "inlined-child", root.Next.Name)
}

// Test_RehydrateGraph_ClassMap_Renames_Before_Instantiation covers class
// rename resolution during rehydration.
func Test_RehydrateGraph_ClassMap_Renames_Before_Instantiation(t *testing.T) {
	t.Parallel()

	registry := NewTypeRegistry()
	registry.Register("NewName", (*rehydrateNode)(nil))

	refl := NewStructReflector()
	cm := ClassMap{"OldName": "NewName"}

	read := func(uuid string) (*Metadata, map[string]any, error) {
		return &Metadata{UUID: uuid, Class: "OldName"}, map[string]any{"name": "renamed", "next": nil}, nil
	}

	inst, err := rehydrateGraph("u1", registry, refl, cm, read)
	require.NoError(t, err)

	node, ok := inst.(*rehydrateNode)
	require.True(t, ok)
	require.Equal(t, "renamed", node.Name)
}
