package block

import (
	"testing"

	"github.com/basalt-mc/basalt/server/block/cube"
)

// TestVanillaGroundPrefix pins the ids of the leading run of kinds, which
// mirrors the vanilla registry for the common ground blocks.
func TestVanillaGroundPrefix(t *testing.T) {
	for _, c := range []struct {
		id   uint16
		name string
	}{
		{0, "minecraft:air"},
		{1, "minecraft:stone"},
		{2, "minecraft:granite"},
		{3, "minecraft:polished_granite"},
		{4, "minecraft:diorite"},
		{5, "minecraft:polished_diorite"},
		{6, "minecraft:andesite"},
		{7, "minecraft:polished_andesite"},
		{8, "minecraft:grass_block"},
		{9, "minecraft:grass_block"},
		{10, "minecraft:dirt"},
		{11, "minecraft:coarse_dirt"},
		{12, "minecraft:podzol"},
		{13, "minecraft:podzol"},
		{14, "minecraft:bedrock"},
	} {
		if got := KindOf(c.id).Name(); got != c.name {
			t.Fatalf("state %v belongs to %v, want %v", c.id, got, c.name)
		}
	}
	if got := GrassBlock.DefaultState(); got != 9 {
		t.Fatalf("grass block default state is %v, want 9 (snowy=false)", got)
	}
	if got := Air.DefaultState(); got != 0 {
		t.Fatalf("air default state is %v, want 0", got)
	}
}

// TestStateRoundTrip rebuilds every state's property map through Value and
// checks that StateID maps it back to the same id.
func TestStateRoundTrip(t *testing.T) {
	for id := uint16(0); int(id) < StateCount(); id++ {
		kind := KindOf(id)
		props := make(map[string]string)
		for _, p := range kinds[kind].props {
			v, ok := Value(id, p.Name)
			if !ok {
				t.Fatalf("state %v (%v) has no value for %v", id, kind.Name(), p.Name)
			}
			props[p.Name] = v
		}
		back, ok := StateID(kind.Name(), props)
		if !ok {
			t.Fatalf("state %v (%v): descriptor lookup failed for %v", id, kind.Name(), props)
		}
		if back != id {
			t.Fatalf("state %v (%v) round trips to %v", id, kind.Name(), back)
		}
	}
}

func TestStateIDDefaults(t *testing.T) {
	id, ok := StateID("minecraft:oak_fence", nil)
	if !ok {
		t.Fatalf("failed to look up default oak fence state")
	}
	if id != OakFence.DefaultState() {
		t.Fatalf("oak fence descriptor without properties resolved to %v, want default %v", id, OakFence.DefaultState())
	}

	// Partial descriptors fill the remaining axes with defaults.
	id, ok = StateID("minecraft:oak_stairs", map[string]string{"facing": "south"})
	if !ok {
		t.Fatalf("failed to look up south-facing oak stairs")
	}
	for prop, want := range map[string]string{"facing": "south", "half": "bottom", "shape": "straight"} {
		if v, _ := Value(id, prop); v != want {
			t.Fatalf("south-facing oak stairs have %v=%v, want %v", prop, v, want)
		}
	}

	if _, ok := StateID("minecraft:not_a_block", nil); ok {
		t.Fatalf("unknown kind name resolved to a state")
	}
	if _, ok := StateID("minecraft:oak_stairs", map[string]string{"facing": "up"}); ok {
		t.Fatalf("invalid property value resolved to a state")
	}
}

func TestWith(t *testing.T) {
	id := OakStairs.DefaultState()
	top, ok := With(id, "half", "top")
	if !ok {
		t.Fatalf("failed to flip stair half")
	}
	if v, _ := Value(top, "half"); v != "top" {
		t.Fatalf("half is %v after With, want top", v)
	}
	if v, _ := Value(top, "facing"); v != "north" {
		t.Fatalf("facing changed to %v when flipping half", v)
	}
	back, ok := With(top, "half", "bottom")
	if !ok || back != id {
		t.Fatalf("flipping half back gives %v, want %v", back, id)
	}

	if _, ok := With(id, "half", "sideways"); ok {
		t.Fatalf("With accepted an invalid value")
	}
	if _, ok := With(Stone.DefaultState(), "half", "top"); ok {
		t.Fatalf("With accepted a property the kind does not have")
	}
}

func TestTags(t *testing.T) {
	for _, c := range []struct {
		kind Kind
		tag  Tag
	}{
		{OakFence, TagFences},
		{NetherBrickFence, TagFences},
		{GlassPane, TagPanes},
		{IronBars, TagPanes},
		{Rail, TagRails},
		{PoweredRail, TagRails},
		{DetectorRail, TagRails},
		{ActivatorRail, TagRails},
		{OakStairs, TagStairs},
		{StoneStairs, TagStairs},
	} {
		if !c.kind.Is(c.tag) {
			t.Fatalf("%v is missing tag %v", c.kind.Name(), c.tag)
		}
		if !Is(c.kind.DefaultState(), c.tag) {
			t.Fatalf("default state of %v is missing tag %v", c.kind.Name(), c.tag)
		}
	}
	if Stone.Is(TagFences | TagWalls | TagPanes | TagRails | TagStairs) {
		t.Fatalf("stone has tags it should not have")
	}
}

func TestStairSturdiness(t *testing.T) {
	id, _ := StateID("minecraft:oak_stairs", map[string]string{"facing": "east", "half": "bottom"})
	a := AttributesOf(id)
	for _, f := range cube.Faces {
		want := f == cube.FaceEast || f == cube.FaceDown
		if a.SturdyFace(f) != want {
			t.Fatalf("east-facing bottom stair: sturdy %v = %v, want %v", f, a.SturdyFace(f), want)
		}
	}

	id, _ = With(id, "half", "top")
	a = AttributesOf(id)
	if !a.SturdyFace(cube.FaceUp) || a.SturdyFace(cube.FaceDown) {
		t.Fatalf("top stair half should be sturdy up, not down")
	}
}

func TestSnowLayers(t *testing.T) {
	one, _ := StateID("minecraft:snow", map[string]string{"layers": "1"})
	if a := AttributesOf(one); !a.Replaceable || a.SturdyFace(cube.FaceUp) {
		t.Fatalf("single snow layer should be replaceable and not sturdy up")
	}
	eight, _ := StateID("minecraft:snow", map[string]string{"layers": "8"})
	a := AttributesOf(eight)
	if a.Replaceable || !a.Solid {
		t.Fatalf("full snow stack should be solid and not replaceable")
	}
	for _, f := range cube.Faces {
		if !a.SturdyFace(f) {
			t.Fatalf("full snow stack should be sturdy on %v", f)
		}
	}
}

func TestAttributes(t *testing.T) {
	if !IsAir(0) || IsAir(Stone.DefaultState()) {
		t.Fatalf("air detection is wrong")
	}
	if a := AttributesOf(Bedrock.DefaultState()); a.Hardness >= 0 {
		t.Fatalf("bedrock hardness is %v, want negative", a.Hardness)
	}
	if a := AttributesOf(Glass.DefaultState()); a.SturdyFace(cube.FaceUp) {
		t.Fatalf("glass should not have sturdy faces")
	}
	if a := AttributesOf(Grass.DefaultState()); !a.Replaceable || a.Air {
		t.Fatalf("grass should be replaceable and not air")
	}
	if !AttributesOf(Stone.DefaultState()).Solid || AttributesOf(Rail.DefaultState()).Solid {
		t.Fatalf("stone should be solid and rails should not")
	}
	if AttributesOf(PowderSnow.DefaultState()).Solid {
		t.Fatalf("powder snow should not block movement")
	}
	k, ok := KindByName("minecraft:powder_snow")
	if !ok || k != PowderSnow {
		t.Fatalf("failed to look up powder snow by name")
	}
	if !Valid(uint16(StateCount()-1)) || Valid(uint16(StateCount())) {
		t.Fatalf("state id validity bounds are wrong")
	}
}
