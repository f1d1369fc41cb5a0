//go:build !windows

package display

// EnableDPIAwareness is a no-op outside Windows.
func EnableDPIAwareness() bool { return false }

// ScreenSize is unknown outside Windows until a window exists.
func ScreenSize() (w, h int) { return 0, 0 }
