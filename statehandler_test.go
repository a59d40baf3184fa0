package objectstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/objectstore"
)

func Test_StateHandler_Enable_Then_Disable_Lifecycle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "safeMode")
	h := objectstore.NewStateHandler(path, objectstore.NewDispatcher())

	require.False(t, h.Enabled())

	require.NoError(t, h.EnableSafeMode())
	require.True(t, h.Enabled())

	require.NoError(t, h.DisableSafeMode())
	require.False(t, h.Enabled())
}

func Test_StateHandler_Disable_When_Already_Disabled_Is_A_NoOp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "safeMode")
	h := objectstore.NewStateHandler(path, objectstore.NewDispatcher())

	require.NoError(t, h.DisableSafeMode())
	require.False(t, h.Enabled())
}

func Test_StateHandler_Enable_Dispatches_SafeModeEnabled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "safeMode")
	d := objectstore.NewDispatcher()

	var events []string
	d.Subscribe(func(e objectstore.Event) { events = append(events, e.Name) })

	h := objectstore.NewStateHandler(path, d)

	require.NoError(t, h.EnableSafeMode())
	require.NoError(t, h.DisableSafeMode())

	require.Equal(t, []string{objectstore.EventSafeModeEnabled, objectstore.EventSafeModeDisabled}, events)
}

func Test_StateHandler_Enabled_Treats_Zero_Content_As_Disabled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "safeMode")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	h := objectstore.NewStateHandler(path, objectstore.NewDispatcher())
	require.False(t, h.Enabled())
}

func Test_StateHandler_Enabled_Is_False_When_Flag_File_Does_Not_Exist(t *testing.T) {
	t.Parallel()

	h := objectstore.NewStateHandler(filepath.Join(t.TempDir(), "missing"), objectstore.NewDispatcher())
	require.False(t, h.Enabled())
}
