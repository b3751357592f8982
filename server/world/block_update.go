package world

import (
	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/block/cube"
)

// maxUpdatePasses bounds the derived state recomputation around a placement.
// The rules can form cycles between neighbors, so the pass repeats until the
// seven inspected cells stop changing or the bound is hit.
const maxUpdatePasses = 16

// runUpdates recomputes the derived state of the block at pos and its six
// neighbors until they reach a fixed point. Cells that change are rewritten
// through their chunk so viewers receive the block updates.
func (w *World) runUpdates(pos cube.Pos) {
	cells := [7]cube.Pos{pos}
	for i, f := range cube.Faces {
		cells[i+1] = pos.Side(f)
	}
	for pass := 0; pass < maxUpdatePasses; pass++ {
		changed := false
		for _, c := range cells {
			id, ok := w.Block(c)
			if !ok {
				continue
			}
			if updated := w.updateBlock(id, c); updated != id {
				w.setBlockState(c, updated)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// updateBlock returns the state the block at pos takes given its neighbors,
// which is id itself when nothing derived changed.
func (w *World) updateBlock(id uint16, pos cube.Pos) uint16 {
	kind := block.KindOf(id)
	switch {
	case kind == block.GrassBlock || kind == block.Podzol || kind == block.Mycelium:
		above := w.blockAt(pos[0], pos[1]+1, pos[2])
		id, _ = block.With(id, "snowy", boolName(causesSnowy(above)))
		return id
	case kind == block.Rail:
		return w.updateRailShape(id, pos, false)
	case kind == block.PoweredRail || kind == block.DetectorRail || kind == block.ActivatorRail:
		return w.updateRailShape(id, pos, true)
	case kind.Is(block.TagStairs):
		return w.updateStairShape(id, pos)
	case kind.Is(block.TagFences):
		return w.updateConnections(id, pos, w.fenceConnects)
	case kind.Is(block.TagPanes):
		return w.updateConnections(id, pos, w.paneConnects)
	case kind == block.BrownMushroomBlock || kind == block.RedMushroomBlock || kind == block.MushroomStem:
		return w.updateMushroomFaces(id, pos)
	}
	return id
}

// causesSnowy reports whether a block above turns grass-like blocks snowy.
func causesSnowy(id uint16) bool {
	switch block.KindOf(id) {
	case block.Snow, block.SnowBlock, block.PowderSnow:
		return true
	}
	return false
}

func boolName(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// isRail reports a rail of any kind at the position.
func (w *World) isRail(x, y, z int32) bool {
	return block.Is(w.blockAt(x, y, z), block.TagRails)
}

func (w *World) updateRailShape(id uint16, pos cube.Pos, straight bool) uint16 {
	if shape := w.railShape(pos, straight); shape != "" {
		id, _ = block.With(id, "shape", shape)
	}
	return id
}

// railShape derives the shape a rail at pos takes from the rails around it,
// or "" when no neighboring rail suggests one. A neighbor counts when it
// holds a rail at the same level or one below; a rail above a neighbor bends
// this one upward. The south leg wins over north, then west, then east;
// straight excludes the curve shapes, which the powered rail kinds cannot
// take.
func (w *World) railShape(pos cube.Pos, straight bool) string {
	x, y, z := pos[0], pos[1], pos[2]
	north := w.isRail(x, y, z-1) || w.isRail(x, y-1, z-1)
	east := w.isRail(x+1, y, z) || w.isRail(x+1, y-1, z)
	south := w.isRail(x, y, z+1) || w.isRail(x, y-1, z+1)
	west := w.isRail(x-1, y, z) || w.isRail(x-1, y-1, z)

	switch {
	case south:
		if !straight {
			if east {
				return "south_east"
			}
			if west {
				return "south_west"
			}
		}
		if w.isRail(x, y+1, z-1) {
			return "ascending_north"
		}
		return "north_south"
	case north:
		if !straight {
			if east {
				return "north_east"
			}
			if west {
				return "north_west"
			}
		}
		if w.isRail(x, y+1, z+1) {
			return "ascending_south"
		}
		return "north_south"
	case west:
		if w.isRail(x+1, y+1, z) {
			return "ascending_east"
		}
		return "east_west"
	case east:
		if w.isRail(x-1, y+1, z) {
			return "ascending_west"
		}
		return "east_west"
	}
	switch {
	case w.isRail(x, y+1, z+1):
		return "ascending_south"
	case w.isRail(x, y+1, z-1):
		return "ascending_north"
	case w.isRail(x-1, y+1, z):
		return "ascending_west"
	case w.isRail(x+1, y+1, z):
		return "ascending_east"
	}
	return ""
}

func (w *World) updateStairShape(id uint16, pos cube.Pos) uint16 {
	name, _ := block.Value(id, "facing")
	facing, _ := cube.DirectionByName(name)
	half, _ := block.Value(id, "half")
	id, _ = block.With(id, "shape", w.stairShape(pos, facing, half))
	return id
}

// stairAt returns the stair properties of the state at the position.
func (w *World) stairAt(x, y, z int32) (facing cube.Direction, half, shape string, ok bool) {
	id := w.blockAt(x, y, z)
	if !block.Is(id, block.TagStairs) {
		return 0, "", "", false
	}
	name, _ := block.Value(id, "facing")
	facing, _ = cube.DirectionByName(name)
	half, _ = block.Value(id, "half")
	shape, _ = block.Value(id, "shape")
	return facing, half, shape, true
}

// sameStair reports a stair at the position with this facing and half.
func (w *World) sameStair(x, y, z int32, facing cube.Direction, half string) bool {
	oFacing, oHalf, _, ok := w.stairAt(x, y, z)
	return ok && oFacing == facing && oHalf == half
}

// dirOffset returns the x/z step of one block in the direction.
func dirOffset(d cube.Direction) [2]int32 {
	switch d {
	case cube.North:
		return [2]int32{0, -1}
	case cube.East:
		return [2]int32{1, 0}
	case cube.South:
		return [2]int32{0, 1}
	default:
		return [2]int32{-1, 0}
	}
}

// stairShape derives the shape of a stair from the stairs behind and in
// front of it. A perpendicular stair of the same half behind makes an outer
// corner and one in front an inner corner, unless the lateral neighbor
// already continues this stair straight on.
func (w *World) stairShape(pos cube.Pos, facing cube.Direction, half string) string {
	x, y, z := pos[0], pos[1], pos[2]
	behind := dirOffset(facing)
	front := dirOffset(facing.Opposite())
	left := dirOffset(facing.RotateLeft())
	right := dirOffset(facing.RotateRight())

	if rFacing, rHalf, rShape, ok := w.stairAt(x+behind[0], y, z+behind[1]); ok && rHalf == half {
		switch {
		case rFacing == facing.RotateLeft() && rShape != "inner_left" && rShape != "outer_right":
			if !w.sameStair(x+right[0], y, z+right[1], facing, half) {
				return "outer_left"
			}
		case rFacing == facing.RotateRight() && rShape != "inner_right" && rShape != "outer_left":
			if !w.sameStair(x+left[0], y, z+left[1], facing, half) {
				return "outer_right"
			}
		}
	}

	if rFacing, rHalf, rShape, ok := w.stairAt(x+front[0], y, z+front[1]); ok && rHalf == half {
		switch {
		case rFacing == facing.RotateLeft() && rShape != "inner_right" && rShape != "outer_left":
			if !w.sameStair(x+left[0], y, z+left[1], facing, half) {
				return "inner_left"
			}
		case rFacing == facing.RotateRight() && rShape != "inner_left" && rShape != "outer_right":
			if !w.sameStair(x+right[0], y, z+right[1], facing, half) {
				return "inner_right"
			}
		}
	}
	return "straight"
}

func (w *World) updateConnections(id uint16, pos cube.Pos, connects func(cube.Pos, cube.Direction) bool) uint16 {
	for _, d := range cube.Directions {
		id, _ = block.With(id, d.String(), boolName(connects(pos, d)))
	}
	return id
}

// fenceConnects reports whether a fence at pos reaches towards d: the
// neighbor is a fence too, or presents a sturdy face back.
func (w *World) fenceConnects(pos cube.Pos, d cube.Direction) bool {
	side := pos.Side(d.Face())
	id := w.blockAt(side[0], side[1], side[2])
	if block.Is(id, block.TagFences) {
		return true
	}
	return block.AttributesOf(id).SturdyFace(d.Face().Opposite())
}

// paneConnects reports whether a pane at pos reaches towards d: walls and
// other panes always connect, anything else connects with a sturdy face.
func (w *World) paneConnects(pos cube.Pos, d cube.Direction) bool {
	side := pos.Side(d.Face())
	id := w.blockAt(side[0], side[1], side[2])
	if block.Is(id, block.TagWalls|block.TagPanes) {
		return true
	}
	return block.AttributesOf(id).SturdyFace(d.Face().Opposite())
}

// updateMushroomFaces culls cap faces touching another block of the same
// mushroom kind, so adjacent blocks merge into one cap.
func (w *World) updateMushroomFaces(id uint16, pos cube.Pos) uint16 {
	kind := block.KindOf(id)
	for _, f := range cube.Faces {
		name := f.String()
		if v, _ := block.Value(id, name); v != "true" {
			continue
		}
		side := pos.Side(f)
		if block.KindOf(w.blockAt(side[0], side[1], side[2])) == kind {
			id, _ = block.With(id, name, "false")
		}
	}
	return id
}
