package display

const (
	MinFont   = 8
	MinWidget = 50
)

// Layout scales sizes designed for a BaseW x BaseH window down to smaller
// screens. Sizes never scale up.
type Layout struct {
	BaseW float64
	BaseH float64
}

// DefaultLayout is the window size the game screens are designed for.
var DefaultLayout = Layout{BaseW: 1200, BaseH: 800}

// Scale returns the shrink factor for a w x h screen, at most 1.
func (l Layout) Scale(w, h int) float64 {
	return min(float64(w)/l.BaseW, float64(h)/l.BaseH, 1.0)
}

// Font scales a base point size for a w x h screen at the given DPI scale.
func (l Layout) Font(base float64, w, h int, dpiScale float64) int {
	if dpiScale <= 0 {
		dpiScale = 1
	}
	ws := min(1.0, float64(w)/(l.BaseW*dpiScale))
	hs := min(1.0, float64(h)/(l.BaseH*dpiScale))
	return max(MinFont, int(base*min(ws, hs)))
}

// Widget scales a base widget size for a w x h screen.
func (l Layout) Widget(bw, bh float64, w, h int) (int, int) {
	ws := min(1.0, float64(w)/l.BaseW)
	hs := min(1.0, float64(h)/l.BaseH)
	return max(MinWidget, int(bw*ws)), max(MinWidget, int(bh*hs))
}
