//go:build windows

package display

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

// dpiAwarenessContextPerMonitorV2 is DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2.
const dpiAwarenessContextPerMonitorV2 = ^uintptr(3) // (HANDLE)-4

const processPerMonitorDPIAware = 2

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
	procSetProcessDPIAware            = user32.NewProc("SetProcessDPIAware")
	procSetProcessDpiAwareness        = shcore.NewProc("SetProcessDpiAwareness")
	procGetSystemMetrics              = user32.NewProc("GetSystemMetrics")
)

const (
	smCXScreen = 0
	smCYScreen = 1
)

// ScreenSize returns the primary monitor size in physical pixels, or zeros
// when it cannot be read. Call EnableDPIAwareness first or Windows reports
// scaled values.
func ScreenSize() (w, h int) {
	if procGetSystemMetrics.Find() != nil {
		return 0, 0
	}
	cx, _, _ := procGetSystemMetrics.Call(smCXScreen)
	cy, _, _ := procGetSystemMetrics.Call(smCYScreen)
	return int(cx), int(cy)
}

// EnableDPIAwareness opts the process into high-DPI rendering, trying the
// newest API first. It reports whether any call succeeded. Call it before
// any window is created.
func EnableDPIAwareness() bool {
	if procSetProcessDpiAwarenessContext.Find() == nil {
		if r, _, _ := procSetProcessDpiAwarenessContext.Call(dpiAwarenessContextPerMonitorV2); r != 0 {
			slog.Debug("dpi awareness enabled", "api", "SetProcessDpiAwarenessContext")
			return true
		}
	}
	if procSetProcessDpiAwareness.Find() == nil {
		// Returns an HRESULT; S_OK is 0.
		if r, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware); r == 0 {
			slog.Debug("dpi awareness enabled", "api", "SetProcessDpiAwareness")
			return true
		}
	}
	if procSetProcessDPIAware.Find() == nil {
		if r, _, _ := procSetProcessDPIAware.Call(); r != 0 {
			slog.Debug("dpi awareness enabled", "api", "SetProcessDPIAware")
			return true
		}
	}
	slog.Debug("dpi awareness unavailable")
	return false
}
