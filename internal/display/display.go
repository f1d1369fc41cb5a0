// Package display computes font and widget scaling for the screen the game
// runs on.
package display

import (
	"log/slog"
	"math"
	"os"
	"strconv"
)

// Metrics describes the display the game is rendered on.
type Metrics struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ScaleFactor float64 `json:"scale_factor"`
	Is4K        bool    `json:"is_4k"`
	Is8K        bool    `json:"is_8k"`
	FPSTarget   int     `json:"fps_target"`
}

// ScaleFactor returns the UI scale for a screen of w x h pixels.
func ScaleFactor(w, h int) float64 {
	switch {
	case is4K(w, h):
		return 2.0
	case w > 1920:
		return 1.5
	}
	return 1.0
}

func is4K(w, h int) bool { return w >= 3840 || h >= 2160 }

// Detect builds Metrics for a w x h screen. A positive override replaces the
// computed scale factor.
func Detect(w, h int, override float64) Metrics {
	m := Metrics{
		Width:       w,
		Height:      h,
		ScaleFactor: ScaleFactor(w, h),
		Is4K:        is4K(w, h),
		Is8K:        w >= 7680,
		FPSTarget:   60,
	}
	if m.Is8K {
		m.FPSTarget = 120
	}
	if override > 0 && !math.IsInf(override, 0) {
		m.ScaleFactor = override
	}
	return m
}

// FontSize scales base by factor. A non-positive or NaN factor leaves base
// unscaled.
func FontSize(base, factor float64) int {
	if math.IsNaN(factor) || factor <= 0 {
		return int(base)
	}
	return int(base * factor)
}

const fyneScaleEnv = "FYNE_SCALE"

// ApplyFyneScale exports the scale factor for the Fyne toolkit. It must run
// before the Fyne app is created and leaves an explicit FYNE_SCALE alone.
func ApplyFyneScale(m Metrics) {
	if os.Getenv(fyneScaleEnv) != "" {
		return
	}
	v := strconv.FormatFloat(m.ScaleFactor, 'f', -1, 64)
	if err := os.Setenv(fyneScaleEnv, v); err != nil {
		slog.Warn("could not set fyne scale", "error", err)
	}
}
