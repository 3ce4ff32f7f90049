//go:build darwin

package platform

import "time"

// DarwinAPI implements ActivityAPI for macOS platform
type DarwinAPI struct{}

// NewDarwinAPI creates a new macOS API instance
func NewDarwinAPI() *DarwinAPI {
	return &DarwinAPI{}
}

// NewActivityAPI creates a new ActivityAPI instance for macOS
func NewActivityAPI() ActivityAPI {
	return NewDarwinAPI()
}

// ForegroundWindow reports the focused window on macOS.
// TODO: implement via NSWorkspace frontmostApplication and the
// Accessibility API (AXFocusedWindow) through cgo.
func (d *DarwinAPI) ForegroundWindow() (*WindowInfo, error) {
	return nil, ErrNotSupported
}

// IdleDuration reports time since last input on macOS.
// TODO: implement via CGEventSourceSecondsSinceLastEventType.
func (d *DarwinAPI) IdleDuration() (time.Duration, error) {
	return 0, ErrNotSupported
}
