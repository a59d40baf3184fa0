package objectstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/objectstore"
)

type widget struct {
	UUID string `objstore:"-"`
	Name string `objstore:"name"`
}

func Test_TypeRegistry_Register_New_Allocates_Zero_Value(t *testing.T) {
	t.Parallel()

	r := objectstore.NewTypeRegistry()
	r.Register("Widget", (*widget)(nil))

	inst, ok := r.New("Widget")
	require.True(t, ok)

	w, ok := inst.(*widget)
	require.True(t, ok)
	require.Equal(t, "", w.Name)
}

func Test_TypeRegistry_New_Unknown_Class_Returns_False(t *testing.T) {
	t.Parallel()

	r := objectstore.NewTypeRegistry()

	_, ok := r.New("Nope")
	require.False(t, ok)
}

func Test_TypeRegistry_ClassNameOf_Uses_Registered_Name(t *testing.T) {
	t.Parallel()

	r := objectstore.NewTypeRegistry()
	r.Register("Widget", (*widget)(nil))

	require.Equal(t, "Widget", r.ClassNameOf(&widget{}))
}

func Test_TypeRegistry_ClassNameOf_Falls_Back_To_Go_Type_Name(t *testing.T) {
	t.Parallel()

	r := objectstore.NewTypeRegistry()

	require.Equal(t, "widget", r.ClassNameOf(&widget{}))
}

func Test_TypeRegistry_Instantiate_Resolves_Through_ClassMap(t *testing.T) {
	t.Parallel()

	r := objectstore.NewTypeRegistry()
	r.Register("NewWidget", (*widget)(nil))

	cm := objectstore.ClassMap{"OldWidget": "NewWidget"}

	inst, resolved, known := r.Instantiate("OldWidget", cm)
	require.True(t, known)
	require.Equal(t, "NewWidget", resolved)
	require.IsType(t, &widget{}, inst)
}

func Test_TypeRegistry_Instantiate_Unknown_Class_Returns_Placeholder(t *testing.T) {
	t.Parallel()

	r := objectstore.NewTypeRegistry()

	inst, resolved, known := r.Instantiate("Ghost", nil)
	require.False(t, known)
	require.Equal(t, "Ghost", resolved)

	ph, ok := inst.(*objectstore.Placeholder)
	require.True(t, ok)
	require.Equal(t, "Ghost", ph.Class)
}

func Test_TypeRegistry_Register_Same_Name_Twice_Overwrites(t *testing.T) {
	t.Parallel()

	type other struct {
		UUID string `objstore:"-"`
	}

	r := objectstore.NewTypeRegistry()
	r.Register("Thing", (*widget)(nil))
	r.Register("Thing", (*other)(nil))

	inst, ok := r.New("Thing")
	require.True(t, ok)
	require.IsType(t, &other{}, inst)
}

func Test_ClassMap_Resolve_Follows_A_Rename(t *testing.T) {
	t.Parallel()

	cm := objectstore.ClassMap{"Old": "New"}

	require.Equal(t, "New", cm.Resolve("Old"))
	require.Equal(t, "Untouched", cm.Resolve("Untouched"))
}

func Test_ClassMap_Resolve_Nil_Map_Is_Identity(t *testing.T) {
	t.Parallel()

	var cm objectstore.ClassMap

	require.Equal(t, "Anything", cm.Resolve("Anything"))
}
