//go:build linux

package platform

import "time"

// LinuxAPI implements ActivityAPI for Linux platform
type LinuxAPI struct{}

// NewLinuxAPI creates a new Linux API instance
func NewLinuxAPI() *LinuxAPI {
	return &LinuxAPI{}
}

// NewActivityAPI creates a new ActivityAPI instance for Linux
func NewActivityAPI() ActivityAPI {
	return NewLinuxAPI()
}

// ForegroundWindow reports the focused window on Linux.
// TODO: implement via X11 (XGetInputFocus + _NET_WM_PID) and the
// Wayland wlr-foreign-toplevel-management protocol.
func (l *LinuxAPI) ForegroundWindow() (*WindowInfo, error) {
	return nil, ErrNotSupported
}

// IdleDuration reports time since last input on Linux.
// TODO: implement via the XScreenSaver extension / org.freedesktop.ScreenSaver.
func (l *LinuxAPI) IdleDuration() (time.Duration, error) {
	return 0, ErrNotSupported
}
