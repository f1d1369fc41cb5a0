package display

import (
	"image/color"
	"strconv"
	"strings"
)

// Theme is a colour palette in #rrggbb form.
type Theme struct {
	Name       string
	Background string
	Text       string
	Button     string
	ButtonText string
	Correct    string
	Wrong      string
}

var (
	Default = Theme{
		Name:       "default",
		Background: "#f8f9fa",
		Text:       "#212529",
		Button:     "#007bff",
		ButtonText: "#ffffff",
		Correct:    "#28a745",
		Wrong:      "#dc3545",
	}
	HighContrast = Theme{
		Name:       "high-contrast",
		Background: "#000000",
		Text:       "#ffffff",
		Button:     "#ffff00",
		ButtonText: "#000000",
		Correct:    "#00ff00",
		Wrong:      "#ff4040",
	}
)

// ThemeFor picks the palette for the high-contrast setting.
func ThemeFor(highContrast bool) Theme {
	if highContrast {
		return HighContrast
	}
	return Default
}

// HexColor parses a #rrggbb colour. Malformed input yields opaque black.
func HexColor(s string) color.NRGBA {
	c := color.NRGBA{A: 0xff}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return c
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return c
	}
	c.R, c.G, c.B = uint8(v>>16), uint8(v>>8), uint8(v)
	return c
}
