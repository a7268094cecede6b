package geom

import "fmt"

// Rect is an integer rectangle. Right and Bottom are exclusive.
type Rect struct {
	Left, Top, Right, Bottom int
}

// R is a convenience function to create a Rect.
func R(left, top, right, bottom int) Rect {
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// XYWH creates a Rect from an origin and a size.
func XYWH(x, y, w, h int) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns the horizontal extent. It is negative for inverted rectangles.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the vertical extent. It is negative for inverted rectangles.
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Valid reports whether r is neither inverted nor degenerate.
func (r Rect) Valid() bool {
	return !r.Empty()
}

// Area returns the number of covered pixels, 0 for empty rectangles.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Intersect returns the largest rectangle contained by both r and s.
// If they do not overlap the zero Rect is returned.
func (r Rect) Intersect(s Rect) Rect {
	out := Rect{
		Left:   max(r.Left, s.Left),
		Top:    max(r.Top, s.Top),
		Right:  min(r.Right, s.Right),
		Bottom: min(r.Bottom, s.Bottom),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Union returns the smallest rectangle that contains both r and s.
// Empty rectangles do not contribute.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	return Rect{
		Left:   min(r.Left, s.Left),
		Top:    min(r.Top, s.Top),
		Right:  max(r.Right, s.Right),
		Bottom: max(r.Bottom, s.Bottom),
	}
}

// Overlaps reports whether r and s share at least one pixel.
func (r Rect) Overlaps(s Rect) bool {
	return !r.Intersect(s).Empty()
}

// Contains reports whether s lies completely inside r.
func (r Rect) Contains(s Rect) bool {
	if s.Empty() {
		return true
	}
	return s.Left >= r.Left && s.Top >= r.Top && s.Right <= r.Right && s.Bottom <= r.Bottom
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// String returns the rectangle as [l, t, r, b].
func (r Rect) String() string {
	return fmt.Sprintf("[%d, %d, %d, %d]", r.Left, r.Top, r.Right, r.Bottom)
}
