// Package viewdiff enumerates the chunk cells entering and leaving a square
// view when its observer crosses into another chunk. Players and entities
// share the geometry: chunk streaming, entity spawning and entity despawning
// on chunk crossings are all driven by it.
package viewdiff

import "math"

// Rect is an inclusive chunk-coordinate rectangle used to clip the
// enumeration to the world grid.
type Rect struct {
	MinX, MinZ int32
	MaxX, MaxZ int32
}

// NoClip spans all of chunk space.
var NoClip = Rect{
	MinX: math.MinInt32, MinZ: math.MinInt32,
	MaxX: math.MaxInt32, MaxZ: math.MaxInt32,
}

// Contains reports whether the cell x, z lies within the rectangle.
func (r Rect) Contains(x, z int32) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// ForEach enumerates the chunk cells that enter or leave a square view of
// the given radius when its observer moves by deltaX, deltaZ. Coordinates
// are relative to the observer before the move and clipped to clip, which
// must contain the origin. Cells visible only after the move are reported
// with added true, cells visible only before it with added false; no cell
// is reported twice.
//
// When the old and new squares overlap, the difference on each axis is a
// strip at one end of the range. The x pass emits strips spanning the full
// z extent of the respective square, the z pass covers what remains by
// running only over the x overlap of the two squares.
func ForEach(deltaX, deltaZ, radius int32, clip Rect, fn func(x, z int32, added bool)) {
	bounds := radius*2 + 1

	absX, absZ := deltaX, deltaZ
	if absX < 0 {
		absX = -absX
	}
	if absZ < 0 {
		absZ = -absZ
	}

	oldMinX := max(clip.MinX, -radius)
	oldMinZ := max(clip.MinZ, -radius)
	oldMaxX := min(clip.MaxX, radius)
	oldMaxZ := min(clip.MaxZ, radius)

	if absX >= bounds || absZ >= bounds {
		// No overlap, emit both squares in full.
		for x := oldMinX; x <= oldMaxX; x++ {
			for z := oldMinZ; z <= oldMaxZ; z++ {
				fn(x, z, false)
			}
		}
		for x := max(deltaX-radius, clip.MinX); x <= min(deltaX+radius, clip.MaxX); x++ {
			for z := max(deltaZ-radius, clip.MinZ); z <= min(deltaZ+radius, clip.MaxZ); z++ {
				fn(x, z, true)
			}
		}
		return
	}

	if deltaX != 0 {
		newMinZ := max(deltaZ-radius, clip.MinZ)
		newMaxZ := min(deltaZ+radius, clip.MaxZ)

		if deltaX < 0 {
			for x := max(deltaX+radius+1, clip.MinX); x <= oldMaxX; x++ {
				for z := oldMinZ; z <= oldMaxZ; z++ {
					fn(x, z, false)
				}
			}
			for x := max(deltaX-radius, clip.MinX); x < -radius; x++ {
				for z := newMinZ; z <= newMaxZ; z++ {
					fn(x, z, true)
				}
			}
		} else {
			for x := oldMinX; x <= min(deltaX-radius-1, clip.MaxX); x++ {
				for z := oldMinZ; z <= oldMaxZ; z++ {
					fn(x, z, false)
				}
			}
			for x := radius + 1; x <= min(deltaX+radius, clip.MaxX); x++ {
				for z := newMinZ; z <= newMaxZ; z++ {
					fn(x, z, true)
				}
			}
		}
	}

	if deltaZ != 0 {
		overlapMinX := max(oldMinX, deltaX-radius)
		overlapMaxX := min(oldMaxX, deltaX+radius)

		if deltaZ < 0 {
			for z := max(deltaZ+radius+1, clip.MinZ); z <= oldMaxZ; z++ {
				for x := overlapMinX; x <= overlapMaxX; x++ {
					fn(x, z, false)
				}
			}
			for z := max(deltaZ-radius, clip.MinZ); z < -radius; z++ {
				for x := overlapMinX; x <= overlapMaxX; x++ {
					fn(x, z, true)
				}
			}
		} else {
			for z := oldMinZ; z <= min(deltaZ-radius-1, clip.MaxZ); z++ {
				for x := overlapMinX; x <= overlapMaxX; x++ {
					fn(x, z, false)
				}
			}
			for z := radius + 1; z <= min(deltaZ+radius, clip.MaxZ); z++ {
				for x := overlapMinX; x <= overlapMaxX; x++ {
					fn(x, z, true)
				}
			}
		}
	}
}
