// Package generator holds the built-in terrain generators a world can be
// filled with when no region data is imported: a flat grass plain and a
// gently rolling default landscape. Both are deterministic, so two worlds
// built from the same parameters hold identical blocks.
package generator

// lerp interpolates linearly between a and b.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// smooth is the smoothstep fade applied to lattice offsets before
// interpolation, removing the grid creases plain bilinear blending shows.
func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

// floorDiv splits v into a lattice cell and the non-negative offset within
// it, rounding towards negative infinity so that negative coordinates fall
// into the correct cell.
func floorDiv(v, period int64) (cell, offset int64) {
	cell = v / period
	offset = v % period
	if offset < 0 {
		cell--
		offset += period
	}
	return cell, offset
}
