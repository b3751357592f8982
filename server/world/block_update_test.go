package world

import (
	"io"
	"log/slog"
	"testing"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/block/cube"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorld(t *testing.T) *World {
	t.Helper()
	return Config{
		Log:   discardLogger(),
		SizeX: 2,
		SizeZ: 2,
		SizeY: 64,
	}.New()
}

// propAt reads a property of the block at pos, failing the test when the
// position is outside the world or the state lacks the property.
func propAt(t *testing.T, w *World, pos cube.Pos, prop string) string {
	t.Helper()
	id, ok := w.Block(pos)
	if !ok {
		t.Fatalf("position %v is outside the world", pos)
	}
	v, ok := block.Value(id, prop)
	if !ok {
		t.Fatalf("state %v at %v has no property %v", id, pos, prop)
	}
	return v
}

func TestSnowyCover(t *testing.T) {
	w := testWorld(t)
	grass := cube.Pos{8, 10, 8}
	above := cube.Pos{8, 11, 8}

	w.SetBlock(grass, block.GrassBlock.DefaultState())
	if got := propAt(t, w, grass, "snowy"); got != "false" {
		t.Fatalf("fresh grass block has snowy=%v, want false", got)
	}

	w.SetBlock(above, block.Snow.DefaultState())
	if got := propAt(t, w, grass, "snowy"); got != "true" {
		t.Fatalf("grass under snow has snowy=%v, want true", got)
	}

	w.SetBlock(above, block.Air.DefaultState())
	if got := propAt(t, w, grass, "snowy"); got != "false" {
		t.Fatalf("grass after snow removal has snowy=%v, want false", got)
	}

	// A full cube above does not count as snow cover.
	w.SetBlock(above, block.Stone.DefaultState())
	if got := propAt(t, w, grass, "snowy"); got != "false" {
		t.Fatalf("grass under stone has snowy=%v, want false", got)
	}

	// The rule holds at the grid corner, where some neighbor cells fall
	// outside the world.
	corner := cube.Pos{0, 10, 0}
	w.SetBlock(corner, block.Podzol.DefaultState())
	w.SetBlock(cube.Pos{0, 11, 0}, block.SnowBlock.DefaultState())
	if got := propAt(t, w, corner, "snowy"); got != "true" {
		t.Fatalf("podzol under a snow block has snowy=%v, want true", got)
	}
}

func TestRailCurves(t *testing.T) {
	w := testWorld(t)
	center := cube.Pos{8, 10, 8}
	south := cube.Pos{8, 10, 9}
	east := cube.Pos{9, 10, 8}

	w.SetBlock(center, block.Rail.DefaultState())
	if got := propAt(t, w, center, "shape"); got != "north_south" {
		t.Fatalf("lone rail has shape %v, want north_south", got)
	}

	w.SetBlock(south, block.Rail.DefaultState())
	if got := propAt(t, w, center, "shape"); got != "north_south" {
		t.Fatalf("rail with one south neighbor has shape %v, want north_south", got)
	}
	if got := propAt(t, w, south, "shape"); got != "north_south" {
		t.Fatalf("south rail has shape %v, want north_south", got)
	}

	// A second leg to the east bends the center rail into a curve. The east
	// rail itself only sees the center rail and runs east to west.
	w.SetBlock(east, block.Rail.DefaultState())
	if got := propAt(t, w, center, "shape"); got != "south_east" {
		t.Fatalf("cornered rail has shape %v, want south_east", got)
	}
	if got := propAt(t, w, east, "shape"); got != "east_west" {
		t.Fatalf("east rail has shape %v, want east_west", got)
	}
	if got := propAt(t, w, south, "shape"); got != "north_south" {
		t.Fatalf("south rail after corner has shape %v, want north_south", got)
	}
}

// TestPoweredRailStaysStraight places the same corner as TestRailCurves with
// a powered rail at the center, which cannot take curve shapes.
func TestPoweredRailStaysStraight(t *testing.T) {
	w := testWorld(t)
	center := cube.Pos{8, 10, 8}

	w.SetBlock(center, block.PoweredRail.DefaultState())
	w.SetBlock(cube.Pos{8, 10, 9}, block.Rail.DefaultState())
	w.SetBlock(cube.Pos{9, 10, 8}, block.Rail.DefaultState())

	if got := propAt(t, w, center, "shape"); got != "north_south" {
		t.Fatalf("cornered powered rail has shape %v, want north_south", got)
	}
	if got := propAt(t, w, center, "powered"); got != "false" {
		t.Fatalf("powered rail has powered=%v after updates, want false", got)
	}
}

func TestAscendingRail(t *testing.T) {
	w := testWorld(t)

	// A rail one block up on the south diagonal bends a new rail upward.
	w.SetBlock(cube.Pos{8, 11, 9}, block.Rail.DefaultState())
	center := cube.Pos{8, 10, 8}
	w.SetBlock(center, block.Rail.DefaultState())
	if got := propAt(t, w, center, "shape"); got != "ascending_south" {
		t.Fatalf("rail under a raised south rail has shape %v, want ascending_south", got)
	}

	// With a level leg to the south and a raised rail to the north, the
	// south leg picks the axis and the raised rail tilts it.
	center = cube.Pos{2, 10, 8}
	w.SetBlock(cube.Pos{2, 11, 7}, block.Rail.DefaultState())
	w.SetBlock(cube.Pos{2, 10, 9}, block.Rail.DefaultState())
	w.SetBlock(center, block.Rail.DefaultState())
	if got := propAt(t, w, center, "shape"); got != "ascending_north" {
		t.Fatalf("rail between a south leg and a raised north rail has shape %v, want ascending_north", got)
	}
}

func TestStairCorners(t *testing.T) {
	pos := cube.Pos{8, 10, 8}
	eastStairs, ok := block.With(block.OakStairs.DefaultState(), "facing", "east")
	if !ok {
		t.Fatalf("failed to build east-facing stairs")
	}

	// A perpendicular stair behind makes an outer corner.
	w := testWorld(t)
	w.SetBlock(pos, eastStairs)
	if got := propAt(t, w, pos, "shape"); got != "straight" {
		t.Fatalf("lone stair has shape %v, want straight", got)
	}
	w.SetBlock(cube.Pos{9, 10, 8}, block.OakStairs.DefaultState())
	if got := propAt(t, w, pos, "shape"); got != "outer_left" {
		t.Fatalf("stair with a perpendicular stair behind has shape %v, want outer_left", got)
	}
	if got := propAt(t, w, cube.Pos{9, 10, 8}, "shape"); got != "straight" {
		t.Fatalf("the stair behind has shape %v, want straight", got)
	}

	// One in front makes an inner corner.
	w = testWorld(t)
	w.SetBlock(pos, eastStairs)
	w.SetBlock(cube.Pos{7, 10, 8}, block.OakStairs.DefaultState())
	if got := propAt(t, w, pos, "shape"); got != "inner_left" {
		t.Fatalf("stair with a perpendicular stair in front has shape %v, want inner_left", got)
	}

	// A lateral stair continuing the run suppresses the corner.
	w = testWorld(t)
	w.SetBlock(cube.Pos{8, 10, 9}, eastStairs)
	w.SetBlock(pos, eastStairs)
	w.SetBlock(cube.Pos{9, 10, 8}, block.OakStairs.DefaultState())
	if got := propAt(t, w, pos, "shape"); got != "straight" {
		t.Fatalf("stair continued to the side has shape %v, want straight", got)
	}

	// Stairs of the other half do not pair up.
	w = testWorld(t)
	w.SetBlock(pos, eastStairs)
	topStairs, _ := block.With(block.OakStairs.DefaultState(), "half", "top")
	w.SetBlock(cube.Pos{9, 10, 8}, topStairs)
	if got := propAt(t, w, pos, "shape"); got != "straight" {
		t.Fatalf("bottom stair next to a top stair has shape %v, want straight", got)
	}
}

func TestFenceConnections(t *testing.T) {
	w := testWorld(t)
	pos := cube.Pos{8, 10, 8}

	w.SetBlock(pos, block.OakFence.DefaultState())
	for _, d := range cube.Directions {
		if got := propAt(t, w, pos, d.String()); got != "false" {
			t.Fatalf("lone fence has %v=%v, want false", d, got)
		}
	}

	// Full cubes present sturdy faces and connect.
	w.SetBlock(cube.Pos{9, 10, 8}, block.Stone.DefaultState())
	if got := propAt(t, w, pos, "east"); got != "true" {
		t.Fatalf("fence next to stone has east=%v, want true", got)
	}

	// Fences of any kind connect to each other.
	w.SetBlock(cube.Pos{8, 10, 9}, block.NetherBrickFence.DefaultState())
	if got := propAt(t, w, pos, "south"); got != "true" {
		t.Fatalf("fence next to fence has south=%v, want true", got)
	}
	if got := propAt(t, w, cube.Pos{8, 10, 9}, "north"); got != "true" {
		t.Fatalf("neighboring fence has north=%v, want true", got)
	}

	// Glass is solid but offers no sturdy face.
	w.SetBlock(cube.Pos{7, 10, 8}, block.Glass.DefaultState())
	if got := propAt(t, w, pos, "west"); got != "false" {
		t.Fatalf("fence next to glass has west=%v, want false", got)
	}

	// Panes and fences do not pair up.
	w.SetBlock(cube.Pos{8, 10, 7}, block.GlassPane.DefaultState())
	if got := propAt(t, w, pos, "north"); got != "false" {
		t.Fatalf("fence next to pane has north=%v, want false", got)
	}
	if got := propAt(t, w, cube.Pos{8, 10, 7}, "south"); got != "false" {
		t.Fatalf("pane next to fence has south=%v, want false", got)
	}

	// Removing the neighbor withdraws the arm.
	w.SetBlock(cube.Pos{9, 10, 8}, block.Air.DefaultState())
	if got := propAt(t, w, pos, "east"); got != "false" {
		t.Fatalf("fence after stone removal has east=%v, want false", got)
	}
}

func TestPaneConnections(t *testing.T) {
	w := testWorld(t)
	pos := cube.Pos{8, 10, 8}

	w.SetBlock(pos, block.GlassPane.DefaultState())
	for _, d := range cube.Directions {
		if got := propAt(t, w, pos, d.String()); got != "false" {
			t.Fatalf("lone pane has %v=%v, want false", d, got)
		}
	}

	w.SetBlock(cube.Pos{9, 10, 8}, block.IronBars.DefaultState())
	if got := propAt(t, w, pos, "east"); got != "true" {
		t.Fatalf("pane next to iron bars has east=%v, want true", got)
	}
	if got := propAt(t, w, cube.Pos{9, 10, 8}, "west"); got != "true" {
		t.Fatalf("iron bars next to pane have west=%v, want true", got)
	}

	w.SetBlock(cube.Pos{8, 10, 9}, block.Stone.DefaultState())
	if got := propAt(t, w, pos, "south"); got != "true" {
		t.Fatalf("pane next to stone has south=%v, want true", got)
	}

	w.SetBlock(cube.Pos{7, 10, 8}, block.Glass.DefaultState())
	if got := propAt(t, w, pos, "west"); got != "false" {
		t.Fatalf("pane next to glass has west=%v, want false", got)
	}
}

func TestMushroomCapMerge(t *testing.T) {
	w := testWorld(t)
	a := cube.Pos{8, 10, 8}
	b := cube.Pos{9, 10, 8}

	w.SetBlock(a, block.BrownMushroomBlock.DefaultState())
	for _, f := range cube.Faces {
		if got := propAt(t, w, a, f.String()); got != "true" {
			t.Fatalf("lone mushroom block has %v=%v, want true", f, got)
		}
	}

	// Two blocks of the same kind cull their touching faces.
	w.SetBlock(b, block.BrownMushroomBlock.DefaultState())
	if got := propAt(t, w, a, "east"); got != "false" {
		t.Fatalf("merged mushroom block has east=%v, want false", got)
	}
	if got := propAt(t, w, b, "west"); got != "false" {
		t.Fatalf("merged mushroom block has west=%v, want false", got)
	}
	if got := propAt(t, w, a, "west"); got != "true" {
		t.Fatalf("merged mushroom block has west=%v, want true", got)
	}

	// Different mushroom kinds keep their faces.
	w.SetBlock(cube.Pos{8, 11, 8}, block.RedMushroomBlock.DefaultState())
	if got := propAt(t, w, a, "up"); got != "true" {
		t.Fatalf("brown cap under red cap has up=%v, want true", got)
	}
	if got := propAt(t, w, cube.Pos{8, 11, 8}, "down"); got != "true" {
		t.Fatalf("red cap over brown cap has down=%v, want true", got)
	}
	w.SetBlock(cube.Pos{7, 10, 8}, block.MushroomStem.DefaultState())
	if got := propAt(t, w, a, "west"); got != "true" {
		t.Fatalf("cap next to stem has west=%v, want true", got)
	}
}
