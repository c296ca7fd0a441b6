package render

// Backdrop shrinks a decorative element from Max to Min over the first
// Range pixels of vertical scroll. It never affects the page content.
type Backdrop struct {
	Min   float64
	Max   float64
	Range float64
}

var (
	DefaultBackdrop = Backdrop{Min: 0.75, Max: 1.1, Range: 700}
	HeroBackdrop    = Backdrop{Min: 0.4, Max: 1.15, Range: 700}
)

// Scale returns the element scale for a scroll offset in pixels.
// backdrop.js computes the same formula in the browser.
func (b Backdrop) Scale(scrollY float64) float64 {
	if b.Range <= 0 {
		return b.Max
	}
	scrollY = max(scrollY, 0)
	return b.Max - (b.Max-b.Min)*min(scrollY/b.Range, 1)
}
