package world

import (
	"math"
	"testing"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// playerBox returns a player-sized box with its bottom center at the given
// coordinates.
func playerBox(x, y, z float64) cube.BBox {
	return cube.Box(x-0.3, y, z-0.3, x+0.3, y+1.8, z+0.3)
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func TestMoveFreeSpace(t *testing.T) {
	w := testWorld(t)
	box := playerBox(8.5, 10, 8.5)

	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{0.3, -0.1, 0.2})
	if hitX || hitY || hitZ {
		t.Fatalf("move through empty space hit something: %v %v %v", hitX, hitY, hitZ)
	}
	if moved != (mgl64.Vec3{0.3, -0.1, 0.2}) {
		t.Fatalf("move through empty space travelled %v, want the full delta", moved)
	}

	moved, hitX, hitY, hitZ = w.Move(box, mgl64.Vec3{})
	if moved != (mgl64.Vec3{}) || hitX || hitY || hitZ {
		t.Fatalf("zero delta moved %v (%v %v %v), want zero and no hits", moved, hitX, hitY, hitZ)
	}
}

func TestMoveFallOntoFloor(t *testing.T) {
	w := testWorld(t)
	w.SetBlock(cube.Pos{8, 9, 8}, block.Stone.DefaultState())
	box := playerBox(8.5, 11, 8.5)

	// The floor top is one block below the box: of the 1.5 fall only that
	// block is travelled.
	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{0, -1.5, 0})
	if !hitY || hitX || hitZ {
		t.Fatalf("fall onto floor hit %v %v %v, want y only", hitX, hitY, hitZ)
	}
	if !near(moved[1], -1) || moved[0] != 0 || moved[2] != 0 {
		t.Fatalf("fall onto floor travelled %v, want about (0, -1, 0)", moved)
	}

	// Falling again from the resting position collides immediately.
	box = box.Translate(moved)
	moved, _, hitY, _ = w.Move(box, mgl64.Vec3{0, -1.5, 0})
	if !hitY {
		t.Fatalf("fall from resting position did not hit the floor")
	}
	if !near(moved[1], 0) {
		t.Fatalf("fall from resting position travelled %v, want about zero", moved[1])
	}
}

func TestMoveSlideAlongWall(t *testing.T) {
	w := testWorld(t)
	for z := int32(7); z <= 10; z++ {
		w.SetBlock(cube.Pos{9, 10, z}, block.Stone.DefaultState())
		w.SetBlock(cube.Pos{9, 11, z}, block.Stone.DefaultState())
	}
	box := playerBox(8.5, 10, 8.5)

	// Moving diagonally into the wall clips x and keeps the full z travel.
	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{0.5, 0, 1})
	if !hitX || hitY || hitZ {
		t.Fatalf("slide along wall hit %v %v %v, want x only", hitX, hitY, hitZ)
	}
	if !near(moved[0], 0.2) {
		t.Fatalf("slide along wall travelled %v in x, want about 0.2", moved[0])
	}
	if !near(moved[2], 1) {
		t.Fatalf("slide along wall travelled %v in z, want about 1", moved[2])
	}
}

// TestMoveCornerPocket pushes a box diagonally into an inner corner formed
// by two walls. Both face hits tie at the same distance and both axes clip
// in a single sweep iteration.
func TestMoveCornerPocket(t *testing.T) {
	w := testWorld(t)
	for y := int32(10); y <= 11; y++ {
		w.SetBlock(cube.Pos{9, y, 8}, block.Stone.DefaultState())
		w.SetBlock(cube.Pos{8, y, 9}, block.Stone.DefaultState())
		w.SetBlock(cube.Pos{9, y, 9}, block.Stone.DefaultState())
	}
	box := playerBox(8.5, 10, 8.5)

	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{0.5, 0, 0.5})
	if !hitX || !hitZ || hitY {
		t.Fatalf("corner pocket hit %v %v %v, want x and z", hitX, hitY, hitZ)
	}
	if !near(moved[0], 0.2) || !near(moved[2], 0.2) {
		t.Fatalf("corner pocket travelled %v, want about (0.2, 0, 0.2)", moved)
	}
}

// TestMoveCornerBlock grazes the corner of a single block column. The exact
// corner hit clips only the preferred x axis and the box slides on in z.
func TestMoveCornerBlock(t *testing.T) {
	w := testWorld(t)
	w.SetBlock(cube.Pos{9, 10, 9}, block.Stone.DefaultState())
	w.SetBlock(cube.Pos{9, 11, 9}, block.Stone.DefaultState())
	box := playerBox(8.5, 10, 8.5)

	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{0.5, 0, 0.5})
	if !hitX || hitZ || hitY {
		t.Fatalf("corner graze hit %v %v %v, want x only", hitX, hitY, hitZ)
	}
	if !near(moved[0], 0.2) {
		t.Fatalf("corner graze travelled %v in x, want about 0.2", moved[0])
	}
	if !near(moved[2], 0.5) {
		t.Fatalf("corner graze travelled %v in z, want the full 0.5", moved[2])
	}
}

// TestMoveClipSlidesDownFace pushes a box diagonally down into the side of a
// block whose top is level with the box bottom. Only x clips: the box stops
// at the face and then falls the full drop beside the block.
func TestMoveClipSlidesDownFace(t *testing.T) {
	w := testWorld(t)
	w.SetBlock(cube.Pos{9, 9, 8}, block.Stone.DefaultState())
	box := playerBox(8.6, 10, 8.6)

	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{1, -1.5, 0})
	if !hitX || hitY || hitZ {
		t.Fatalf("diagonal clip hit %v %v %v, want x only", hitX, hitY, hitZ)
	}
	if !near(moved[0], 0.1) {
		t.Fatalf("diagonal clip travelled %v in x, want about 0.1", moved[0])
	}
	if !near(moved[1], -1.5) {
		t.Fatalf("diagonal clip travelled %v in y, want the full -1.5", moved[1])
	}
	if moved[2] != 0 {
		t.Fatalf("diagonal clip travelled %v in z, want 0", moved[2])
	}
}

// TestMoveOverFloor slides a box resting on a floor horizontally. The floor
// touches the box bottom but must not register as a collision.
func TestMoveOverFloor(t *testing.T) {
	w := testWorld(t)
	for x := int32(7); x <= 10; x++ {
		w.SetBlock(cube.Pos{x, 9, 8}, block.Stone.DefaultState())
	}
	box := playerBox(8.5, 10, 8.5)

	moved, hitX, hitY, hitZ := w.Move(box, mgl64.Vec3{1, 0, 0})
	if hitX || hitY || hitZ {
		t.Fatalf("slide over floor hit %v %v %v, want none", hitX, hitY, hitZ)
	}
	if !near(moved[0], 1) {
		t.Fatalf("slide over floor travelled %v in x, want 1", moved[0])
	}
}

// TestMoveNonSolidIgnored checks that rails, powder snow and other non-solid
// states do not block movement.
func TestMoveNonSolidIgnored(t *testing.T) {
	w := testWorld(t)
	w.SetBlock(cube.Pos{9, 10, 8}, block.Rail.DefaultState())
	w.SetBlock(cube.Pos{10, 10, 8}, block.PowderSnow.DefaultState())
	box := playerBox(8.5, 10, 8.5)

	moved, hitX, _, _ := w.Move(box, mgl64.Vec3{2, 0, 0})
	if hitX {
		t.Fatalf("non-solid blocks registered a collision")
	}
	if !near(moved[0], 2) {
		t.Fatalf("move through non-solid blocks travelled %v, want 2", moved[0])
	}
}
