package geom

import "golang.org/x/image/math/fixed"

// Ratio returns num/den as a 52.12 fixed-point value, 0 when den is not
// positive. It is used for scale-factor limit checks.
func Ratio(num, den int) fixed.Int52_12 {
	if den <= 0 {
		return 0
	}
	return fixed.Int52_12((int64(num) << 12) / int64(den))
}

// Factor returns n as a 52.12 fixed-point value.
func Factor(n int) fixed.Int52_12 {
	return fixed.Int52_12(int64(n) << 12)
}

// scale returns n*num/den rounded to the nearest integer.
func scale(n, num, den int) int {
	if den <= 0 {
		return 0
	}
	return fixed.Int52_12((int64(n) * int64(num) << 12) / int64(den)).Round()
}

// CropForDest intersects dst with scissor and moves the edges of crop by the
// same proportion so that the source still maps onto the trimmed destination
// under transform t. Both results are empty when dst misses the scissor.
func CropForDest(crop, dst, scissor Rect, t Transform) (Rect, Rect) {
	out := dst.Intersect(scissor)
	if out.Empty() || crop.Empty() {
		return Rect{}, Rect{}
	}
	if out == dst {
		return crop, dst
	}

	l := out.Left - dst.Left
	tp := out.Top - dst.Top
	r := dst.Right - out.Right
	b := dst.Bottom - out.Bottom
	dw, dh := dst.Width(), dst.Height()
	cw, ch := crop.Width(), crop.Height()

	var sl, st, sr, sb int
	if t.Has90() {
		// Undo the clockwise rotation: destination top came from the
		// (flipped) source left edge, right from top, bottom from right and
		// left from bottom.
		sl = scale(tp, cw, dh)
		sr = scale(b, cw, dh)
		st = scale(r, ch, dw)
		sb = scale(l, ch, dw)
	} else {
		sl = scale(l, cw, dw)
		sr = scale(r, cw, dw)
		st = scale(tp, ch, dh)
		sb = scale(b, ch, dh)
	}
	if t&FlipH != 0 {
		sl, sr = sr, sl
	}
	if t&FlipV != 0 {
		st, sb = sb, st
	}

	c := Rect{
		Left:   crop.Left + sl,
		Top:    crop.Top + st,
		Right:  crop.Right - sr,
		Bottom: crop.Bottom - sb,
	}
	if c.Empty() {
		return Rect{}, Rect{}
	}
	return c, out
}

// SplitAt cuts r at the vertical line x. Either half may be empty.
// The halves are disjoint and their union is r.
func SplitAt(r Rect, x int) (left, right Rect) {
	left = r.Intersect(Rect{Left: r.Left, Top: r.Top, Right: x, Bottom: r.Bottom})
	right = r.Intersect(Rect{Left: x, Top: r.Top, Right: r.Right, Bottom: r.Bottom})
	return left, right
}

// Halve splits a crop/destination pair into two side-by-side halves. With
// FlipH the left destination half is fed by the right crop half. When even
// is set the crop split column is rounded down to an even value. t must not
// contain Rot90.
func Halve(crop, dst Rect, t Transform, even bool) (cropL, dstL, cropR, dstR Rect) {
	dmid := dst.Left + dst.Width()/2
	cmid := crop.Left + crop.Width()/2
	if even {
		cmid = EvenDown(cmid)
	}
	dstL = Rect{Left: dst.Left, Top: dst.Top, Right: dmid, Bottom: dst.Bottom}
	dstR = Rect{Left: dmid, Top: dst.Top, Right: dst.Right, Bottom: dst.Bottom}
	first := Rect{Left: crop.Left, Top: crop.Top, Right: cmid, Bottom: crop.Bottom}
	second := Rect{Left: cmid, Top: crop.Top, Right: crop.Right, Bottom: crop.Bottom}
	if t&FlipH != 0 {
		return second, dstL, first, dstR
	}
	return first, dstL, second, dstR
}

// JoinEven snaps two horizontally adjacent crops to even coordinates. first
// is the crop whose right edge meets the left edge of second; after the call
// they share exactly one even column boundary with no overlap and no gap.
func JoinEven(first, second Rect) (Rect, Rect) {
	edge := EvenDown((first.Right + second.Left) / 2)
	first.Right, second.Left = edge, edge
	first.Left = EvenUp(first.Left)
	second.Right = EvenDown(second.Right)
	top := EvenUp(min(first.Top, second.Top))
	bottom := EvenDown(max(first.Bottom, second.Bottom))
	first.Top, second.Top = top, top
	first.Bottom, second.Bottom = bottom, bottom
	return first, second
}

// Even shrinks r so that every edge lies on an even coordinate.
func (r Rect) Even() Rect {
	return Rect{
		Left:   EvenUp(r.Left),
		Top:    EvenUp(r.Top),
		Right:  EvenDown(r.Right),
		Bottom: EvenDown(r.Bottom),
	}
}

// EvenDown rounds v down to an even value.
func EvenDown(v int) int { return v &^ 1 }

// EvenUp rounds v up to an even value.
func EvenUp(v int) int { return (v + 1) &^ 1 }
