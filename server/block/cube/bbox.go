package cube

import "github.com/go-gl/mathgl/mgl64"

// BBox is an axis aligned bounding box spanning from a minimum to a maximum
// corner. Boxes built through Box are assumed to be well formed, no corner
// reordering happens anywhere.
type BBox struct {
	min, max mgl64.Vec3
}

// Box creates a BBox with the two corners passed. The first three values
// must form the minimum corner.
func Box(x0, y0, z0, x1, y1, z1 float64) BBox {
	return BBox{min: mgl64.Vec3{x0, y0, z0}, max: mgl64.Vec3{x1, y1, z1}}
}

// Min returns the minimum corner of the box.
func (box BBox) Min() mgl64.Vec3 {
	return box.min
}

// Max returns the maximum corner of the box.
func (box BBox) Max() mgl64.Vec3 {
	return box.max
}

// Extend expands the box on the sides the vector points towards, covering
// both the old volume and the volume swept when moving by vec.
func (box BBox) Extend(vec mgl64.Vec3) BBox {
	for i, v := range vec {
		if v < 0 {
			box.min[i] += v
		} else {
			box.max[i] += v
		}
	}
	return box
}

// Translate moves the whole box by vec.
func (box BBox) Translate(vec mgl64.Vec3) BBox {
	return BBox{min: box.min.Add(vec), max: box.max.Add(vec)}
}

// Grow expands the box by x in all directions. A negative x shrinks it.
func (box BBox) Grow(x float64) BBox {
	v := mgl64.Vec3{x, x, x}
	return BBox{min: box.min.Sub(v), max: box.max.Add(v)}
}

// IntersectsWith checks if the box overlaps another box on all three axes.
func (box BBox) IntersectsWith(other BBox) bool {
	for i := range box.min {
		if other.max[i] <= box.min[i] || other.min[i] >= box.max[i] {
			return false
		}
	}
	return true
}
