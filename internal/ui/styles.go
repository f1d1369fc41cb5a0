package ui

import (
	"math"

	"github.com/charmbracelet/lipgloss"

	"github.com/mathblast/mathblast/internal/display"
)

type styles struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	item     lipgloss.Style
	selected lipgloss.Style
	problem  lipgloss.Style
	correct  lipgloss.Style
	wrong    lipgloss.Style
	muted    lipgloss.Style
}

// padding maps the display scale factor to terminal cells: 1.0 gives 1x2,
// 2.0 gives 2x4.
func padding(scale float64) (v, h int) {
	if math.IsNaN(scale) || scale < 1 {
		scale = 1
	}
	v = int(math.Round(scale))
	return v, 2 * v
}

func newStyles(t display.Theme, m display.Metrics) styles {
	v, h := padding(m.ScaleFactor)
	text := lipgloss.Color(t.Text)
	return styles{
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Button)).
			Foreground(text).
			Padding(v, h),
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Button)).MarginBottom(1),
		item:     lipgloss.NewStyle().Foreground(text).PaddingLeft(2),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.ButtonText)).Background(lipgloss.Color(t.Button)).PaddingLeft(1).PaddingRight(1),
		problem:  lipgloss.NewStyle().Bold(true).Foreground(text).MarginTop(1).MarginBottom(1),
		correct:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Correct)),
		wrong:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Wrong)),
		muted:    lipgloss.NewStyle().Faint(true),
	}
}
