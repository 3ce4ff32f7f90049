//go:build windows

package platform

import (
	"fmt"
	"path/filepath"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                        = windows.NewLazySystemDLL("user32.dll")
	kernel32                      = windows.NewLazySystemDLL("kernel32.dll")
	procGetForegroundWindow       = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW            = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessId  = user32.NewProc("GetWindowThreadProcessId")
	procGetLastInputInfo          = user32.NewProc("GetLastInputInfo")
	procOpenProcess               = kernel32.NewProc("OpenProcess")
	procCloseHandle               = kernel32.NewProc("CloseHandle")
	procQueryFullProcessImageName = kernel32.NewProc("QueryFullProcessImageNameW")
	procGetTickCount              = kernel32.NewProc("GetTickCount")
)

const processQueryLimitedInformation = 0x1000

type LASTINPUTINFO struct {
	cbSize uint32
	dwTime uint32
}

// WindowsAPI implements ActivityAPI for Windows platform
type WindowsAPI struct{}

// NewWindowsAPI creates a new Windows API instance
func NewWindowsAPI() *WindowsAPI {
	return &WindowsAPI{}
}

// NewActivityAPI creates a new ActivityAPI instance for Windows
func NewActivityAPI() ActivityAPI {
	return NewWindowsAPI()
}

// ForegroundWindow returns the process name and title of the currently
// focused window
func (w *WindowsAPI) ForegroundWindow() (*WindowInfo, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		// No focused window (lock screen, secure desktop)
		return nil, fmt.Errorf("no foreground window")
	}

	title := w.windowTitle(hwnd)

	var processID uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&processID)))
	if processID == 0 {
		return nil, fmt.Errorf("no process for foreground window")
	}

	processName, err := w.processName(processID)
	if err != nil {
		return nil, err
	}

	return &WindowInfo{
		ProcessName: processName,
		WindowTitle: title,
	}, nil
}

// IdleDuration returns the time elapsed since the last user input
func (w *WindowsAPI) IdleDuration() (time.Duration, error) {
	var info LASTINPUTINFO
	info.cbSize = uint32(unsafe.Sizeof(info))

	ret, _, _ := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, fmt.Errorf("GetLastInputInfo failed")
	}

	tick, _, _ := procGetTickCount.Call()

	// Both tick counts wrap at 32 bits roughly every 49 days; unsigned
	// subtraction stays correct across a single wrap.
	elapsed := uint32(tick) - info.dwTime
	return time.Duration(elapsed) * time.Millisecond, nil
}

func (w *WindowsAPI) windowTitle(hwnd uintptr) string {
	var buffer [512]uint16
	ret, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buffer[0])), uintptr(len(buffer)))
	if ret == 0 {
		// Windows without a title are legitimate
		return ""
	}
	return syscall.UTF16ToString(buffer[:ret])
}

func (w *WindowsAPI) processName(processID uint32) (string, error) {
	hProcess, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(processID))
	if hProcess == 0 {
		return "", fmt.Errorf("failed to open process %d", processID)
	}
	defer procCloseHandle.Call(hProcess)

	var buffer [windows.MAX_PATH]uint16
	size := uint32(len(buffer))
	ret, _, _ := procQueryFullProcessImageName.Call(
		hProcess,
		0,
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return "", fmt.Errorf("failed to query image name for process %d", processID)
	}

	exePath := windows.UTF16ToString(buffer[:size])
	if exePath == "" {
		return "", fmt.Errorf("empty image name for process %d", processID)
	}

	return filepath.Base(exePath), nil
}
