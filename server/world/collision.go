package world

import (
	"math"
	"math/bits"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// epsilon pads block collision boxes and post-collision positions so that a
// box resting against a face does not collide with it again on the next
// sweep.
const epsilon = 1e-7

// Move sweeps box through the solid blocks of the world by delta and
// returns the displacement that was possible together with a flag per axis
// that hit a block. Each iteration casts the remaining delta as a ray
// against the Minkowski difference of every block box in range; the nearest
// hit clips the axes forming the hit surface and the sweep continues with
// the remaining delta.
func (w *World) Move(box cube.BBox, delta mgl64.Vec3) (mgl64.Vec3, bool, bool, bool) {
	length := delta.Len()
	if length == 0 {
		return mgl64.Vec3{}, false, false, false
	}
	normalised := delta.Mul(1 / length)

	extended := box.Extend(delta)
	bpMin, bpMax := blockRange(extended)

	boxes := w.collisionScratch[:0]
	for x := bpMin[0]; x <= bpMax[0]; x++ {
		for y := bpMin[1]; y <= bpMax[1]; y++ {
			for z := bpMin[2]; z <= bpMax[2]; z++ {
				id, ok := w.Block(cube.Pos{x, y, z})
				if !ok || !block.AttributesOf(id).Solid {
					continue
				}
				boxes = append(boxes, cube.Box(
					float64(x)+epsilon, float64(y)+epsilon, float64(z)+epsilon,
					float64(x)+1-epsilon, float64(y)+1-epsilon, float64(z)+1-epsilon,
				))
			}
		}
	}
	w.collisionScratch = boxes[:0]

	if len(boxes) == 0 {
		return delta, false, false, false
	}

	var (
		travelled        mgl64.Vec3
		hitX, hitY, hitZ bool
	)
	for {
		t := delta.Len()
		var hit uint8
		hitSides := 0

		for _, blockBox := range boxes {
			diff := cube.Box(
				box.Min()[0]-blockBox.Max()[0], box.Min()[1]-blockBox.Max()[1], box.Min()[2]-blockBox.Max()[2],
				box.Max()[0]-blockBox.Min()[0], box.Max()[1]-blockBox.Min()[1], box.Max()[2]-blockBox.Min()[2],
			)
			newT, newHit, ok := rayBox(normalised.Mul(-1), diff)
			if !ok {
				continue
			}
			if newT < t {
				t, hit, hitSides = newT, newHit, bits.OnesCount8(newHit)
			} else if newT == t {
				// Ties keep the hit touching the fewest axes: a flat face
				// takes precedence over the corner of a neighbouring block.
				if n := bits.OnesCount8(newHit); n < hitSides {
					hit, hitSides = newHit, n
				} else if n == hitSides {
					hit |= newHit
				}
			}
		}

		if hit == 0 {
			return travelled.Add(delta), hitX, hitY, hitZ
		}

		toCollision := normalised.Mul(t)
		travelled = travelled.Add(toCollision)
		delta = delta.Sub(toCollision)

		if hitSides == 1 {
			// Face hits may clip several axes at once when blocks tie at the
			// same distance.
			if hit&(1<<0) != 0 {
				clipAxis(&travelled, &delta, normalised, 0)
				hitX = true
			}
			if hit&(1<<1) != 0 {
				clipAxis(&travelled, &delta, normalised, 1)
				hitY = true
			}
			if hit&(1<<2) != 0 {
				clipAxis(&travelled, &delta, normalised, 2)
				hitZ = true
			}
		} else {
			// An exact corner hit clips a single axis so the sweep can slide
			// on along the others, preferring X over Z over Y.
			switch {
			case hit&(1<<0) != 0:
				clipAxis(&travelled, &delta, normalised, 0)
				hitX = true
			case hit&(1<<2) != 0:
				clipAxis(&travelled, &delta, normalised, 2)
				hitZ = true
			default:
				clipAxis(&travelled, &delta, normalised, 1)
				hitY = true
			}
		}

		box = box.Translate(toCollision)

		if length = delta.Len(); length == 0 {
			return travelled, hitX, hitY, hitZ
		}
		normalised = delta.Mul(1 / length)
	}
}

// clipAxis zeroes the remaining delta on an axis and backs the travelled
// distance off the face that was hit.
func clipAxis(travelled, delta *mgl64.Vec3, normalised mgl64.Vec3, axis int) {
	if normalised[axis] > 0 {
		travelled[axis] -= 2 * epsilon
	} else {
		travelled[axis] += 2 * epsilon
	}
	delta[axis] = 0
}

// blockRange returns the inclusive block coordinate range the box overlaps,
// padded by one block on every side.
func blockRange(box cube.BBox) (min, max [3]int32) {
	for i := 0; i < 3; i++ {
		min[i] = int32(math.Floor(box.Min()[i]-epsilon)) - 1
		max[i] = int32(math.Floor(box.Max()[i]+epsilon)) + 1
	}
	return min, max
}

// rayBox intersects a ray starting at the origin with box. It returns the
// distance along the ray to the surface and a bit per axis that forms the
// hit. Misses are an origin outside the box on an axis the ray does not
// move on, an exit before the entry and a surface behind the origin.
func rayBox(ray mgl64.Vec3, box cube.BBox) (float64, uint8, bool) {
	tNear := math.Inf(-1)
	tFar := math.Inf(1)
	var hit uint8

	for i := 0; i < 3; i++ {
		if ray[i] == 0 {
			if box.Min()[i] >= 0 || box.Max()[i] <= 0 {
				return 0, 0, false
			}
			continue
		}
		inverse := 1 / ray[i]
		var near float64
		if inverse >= 0 {
			near = box.Min()[i] * inverse
			tFar = math.Min(tFar, box.Max()[i]*inverse)
		} else {
			near = box.Max()[i] * inverse
			tFar = math.Min(tFar, box.Min()[i]*inverse)
		}
		if near > tNear {
			tNear, hit = near, 1<<i
		} else if near == tNear {
			hit |= 1 << i
		}
		if tNear > tFar {
			return 0, 0, false
		}
	}
	if tNear < 0 {
		return 0, 0, false
	}
	return tNear, hit, true
}
