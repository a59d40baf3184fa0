package objectstore

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/agilira/argus"
	natefinch "github.com/natefinch/atomic"
)

// StateHandler owns the process-global safe-mode flag persisted at
// root/safeMode (§4.6).
//
// The flag file itself sits outside the mockable per-UUID fs.FS path - it's
// a single root-level file written with natefinch/atomic, the same library
// and the same "small top-level file, skip the capability interface"
// pattern the teacher uses for its own top-level config/state writes.
type StateHandler struct {
	path       string
	dispatcher *Dispatcher

	watcher *argus.Watcher
}

// NewStateHandler returns a handler for the safe-mode flag at path.
func NewStateHandler(path string, dispatcher *Dispatcher) *StateHandler {
	return &StateHandler{path: path, dispatcher: dispatcher}
}

// EnableSafeMode atomically writes a truthy flag and dispatches
// SAFE_MODE_ENABLED. Enabling twice is a no-op dispatch-wise only in the
// sense that the write always happens, but callers observe idempotent
// behavior (§8 "Enabling safe-mode twice is a no-op").
func (h *StateHandler) EnableSafeMode() error {
	if err := natefinch.WriteFile(h.path, strings.NewReader("1")); err != nil {
		return NewErrIO("enableSafeMode", err)
	}

	h.dispatcher.Dispatch(Event{Name: EventSafeModeEnabled})

	return nil
}

// DisableSafeMode removes the flag file and dispatches SAFE_MODE_DISABLED.
// Disabling when already disabled is a no-op.
func (h *StateHandler) DisableSafeMode() error {
	err := os.Remove(h.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewErrIO("disableSafeMode", err)
	}

	h.dispatcher.Dispatch(Event{Name: EventSafeModeDisabled})

	return nil
}

// Enabled reports whether safe mode is currently active: the flag file
// exists and its content is truthy (non-empty, non-"0" - §9's Open
// Question resolution).
func (h *StateHandler) Enabled() bool {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return false
	}

	trimmed := bytes.TrimSpace(data)

	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("0"))
}

// WatchOptions configures the optional cross-process safe-mode watcher.
type WatchOptions struct {
	// PollInterval is how often argus checks the flag file for changes.
	// Default: 1 second, minimum 100ms (mirrors argus's own floor).
	PollInterval time.Duration
}

// StartWatching observes root/safeMode for out-of-process changes via
// argus, so SAFE_MODE_ENABLED/DISABLED still fire when another process (or
// an operator with a text editor) toggles the flag directly. Opt-in: argus
// spawns a background poller goroutine, so callers that don't need
// cross-process notification skip this.
func (h *StateHandler) StartWatching(opts WatchOptions) error {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	lastEnabled := h.Enabled()

	watcher, err := argus.UniversalConfigWatcherWithConfig(h.path, func(map[string]interface{}) {
		enabled := h.Enabled()
		if enabled == lastEnabled {
			return
		}

		lastEnabled = enabled

		if enabled {
			h.dispatcher.Dispatch(Event{Name: EventSafeModeEnabled})
		} else {
			h.dispatcher.Dispatch(Event{Name: EventSafeModeDisabled})
		}
	}, argus.Config{PollInterval: opts.PollInterval})
	if err != nil {
		return NewErrIO("watchSafeMode", err)
	}

	h.watcher = watcher

	return watcher.Start()
}

// StopWatching stops the optional argus watcher, if one was started.
func (h *StateHandler) StopWatching() error {
	if h.watcher == nil {
		return nil
	}

	return h.watcher.Stop()
}
