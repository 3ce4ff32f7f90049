package platform

import (
	"errors"
	"time"
)

// ErrNotSupported is returned by probes on platforms without an
// implementation. Callers record the foreground state as unknown.
var ErrNotSupported = errors.New("platform: not supported")

// ActivityAPI defines the interface for platform-specific foreground
// activity probes
type ActivityAPI interface {
	// ForegroundWindow returns the process name and window title of the
	// currently focused window.
	ForegroundWindow() (*WindowInfo, error)

	// IdleDuration returns the time elapsed since the last user input.
	IdleDuration() (time.Duration, error)
}

// WindowInfo describes the focused window at the moment of a probe
type WindowInfo struct {
	ProcessName string `json:"processName"`
	WindowTitle string `json:"windowTitle"`
}
