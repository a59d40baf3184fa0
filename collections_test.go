package objectstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/objectstore"
)

// tagList and friend are the fixture types for the collection round-trip
// scenario: a slice of scalars, a slice of pointers to another registered
// class, and a map with a struct value all need to survive Store/Load.
type friend struct {
	UUID string `objstore:"-"`
	Name string `objstore:"name"`
}

type tagList struct {
	UUID    string            `objstore:"-"`
	Tags    []string          `objstore:"tags"`
	Scores  []int             `objstore:"scores"`
	Friends []*friend         `objstore:"friends"`
	Labels  map[string]string `objstore:"labels"`
}

func Test_Store_Load_RoundTrips_Slice_Of_Scalars(t *testing.T) {
	t.Parallel()

	registry := objectstore.NewTypeRegistry()
	registry.Register("TagList", (*tagList)(nil))

	store := newTestStore(t, func(o *objectstore.Options) { o.Registry = registry })

	uuid, err := store.Store(&tagList{Tags: []string{"a", "b", "c"}, Scores: []int{1, 2, 3}})
	require.NoError(t, err)

	loaded, err := store.Load(uuid)
	require.NoError(t, err)

	list, ok := loaded.(*tagList)
	require.True(t, ok, "expected *tagList, got %T", loaded)
	require.Equal(t, []string{"a", "b", "c"}, list.Tags)
	require.Equal(t, []int{1, 2, 3}, list.Scores)
}

func Test_Store_Load_RoundTrips_Slice_Of_Pointers_To_Child_Objects(t *testing.T) {
	t.Parallel()

	registry := objectstore.NewTypeRegistry()
	registry.Register("TagList", (*tagList)(nil))
	registry.Register("Friend", (*friend)(nil))

	store := newTestStore(t, func(o *objectstore.Options) { o.Registry = registry })

	uuid, err := store.Store(&tagList{Friends: []*friend{{Name: "Alice"}, {Name: "Bob"}}})
	require.NoError(t, err)

	loaded, err := store.Load(uuid)
	require.NoError(t, err)

	list, ok := loaded.(*tagList)
	require.True(t, ok, "expected *tagList, got %T", loaded)
	require.Len(t, list.Friends, 2)
	require.Equal(t, "Alice", list.Friends[0].Name)
	require.Equal(t, "Bob", list.Friends[1].Name)
}

func Test_Store_Load_RoundTrips_Map_Of_Strings(t *testing.T) {
	t.Parallel()

	registry := objectstore.NewTypeRegistry()
	registry.Register("TagList", (*tagList)(nil))

	store := newTestStore(t, func(o *objectstore.Options) { o.Registry = registry })

	uuid, err := store.Store(&tagList{Labels: map[string]string{"env": "prod", "team": "core"}})
	require.NoError(t, err)

	loaded, err := store.Load(uuid)
	require.NoError(t, err)

	list, ok := loaded.(*tagList)
	require.True(t, ok, "expected *tagList, got %T", loaded)
	require.Equal(t, map[string]string{"env": "prod", "team": "core"}, list.Labels)
}
