package tooltip

import "fmt"

// Point is a viewport coordinate.
type Point struct {
	X, Y float64
}

// Size is a box size in pixels.
type Size struct {
	W, H float64
}

// Rect is an axis-aligned box in viewport coordinates.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// ContainsRect reports whether inner lies fully inside r.
func (r Rect) ContainsRect(inner Rect) bool {
	return inner.X >= r.X && inner.Y >= r.Y &&
		inner.Right() <= r.Right() && inner.Bottom() <= r.Bottom()
}

// Intersects reports whether the two rects share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && r.Right() > o.X &&
		r.Y < o.Bottom() && r.Bottom() > o.Y
}

// Placement names where the tooltip landed relative to its target.
type Placement int

const (
	PlaceAbove Placement = iota
	PlaceBelow
	PlaceRight
	PlaceLeft
	PlaceClamped
)

func (p Placement) String() string {
	switch p {
	case PlaceAbove:
		return "above"
	case PlaceBelow:
		return "below"
	case PlaceRight:
		return "right"
	case PlaceLeft:
		return "left"
	case PlaceClamped:
		return "clamped"
	}
	return fmt.Sprintf("placement(%d)", int(p))
}

// Place positions a tooltip of the given size relative to target inside
// viewport. The default anchor is above the target; when that would
// overflow, below, right, and left are tried in that fixed order, and as a
// last resort the above position is clamped inside the viewport. The result
// depends only on the three rectangles and the gap, never on anything else
// on the page.
func Place(target Rect, tip Size, viewport Rect, gap float64) (Point, Placement) {
	centerX := target.X + target.W/2 - tip.W/2
	centerY := target.Y + target.H/2 - tip.H/2

	candidates := []struct {
		at Point
		p  Placement
	}{
		{Point{centerX, target.Y - gap - tip.H}, PlaceAbove},
		{Point{centerX, target.Bottom() + gap}, PlaceBelow},
		{Point{target.Right() + gap, centerY}, PlaceRight},
		{Point{target.X - gap - tip.W, centerY}, PlaceLeft},
	}

	for _, c := range candidates {
		box := Rect{c.at.X, c.at.Y, tip.W, tip.H}
		if viewport.ContainsRect(box) {
			return c.at, c.p
		}
	}

	return clamp(candidates[0].at, tip, viewport), PlaceClamped
}

func clamp(at Point, tip Size, viewport Rect) Point {
	if at.X < viewport.X {
		at.X = viewport.X
	}
	if at.X+tip.W > viewport.Right() {
		at.X = viewport.Right() - tip.W
	}
	if at.Y < viewport.Y {
		at.Y = viewport.Y
	}
	if at.Y+tip.H > viewport.Bottom() {
		at.Y = viewport.Bottom() - tip.H
	}
	return at
}

// EstimateSize models the rendered tooltip box from its text. There is no
// layout engine on this side of the bridge, so sizing is a deterministic
// approximation: average glyph width times length, wrapped at a maximum
// line width.
func EstimateSize(text string) Size {
	const (
		glyphW   = 7.2
		lineH    = 20.0
		padding  = 16.0
		maxWidth = 320.0
	)

	w := float64(len([]rune(text)))*glyphW + padding
	lines := 1.0
	if w > maxWidth {
		lines = float64(int((w-padding)/(maxWidth-padding))) + 1
		w = maxWidth
	}
	return Size{W: w, H: lines*lineH + padding/2}
}
