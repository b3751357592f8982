package block

import "github.com/basalt-mc/basalt/server/block/cube"

// The block kinds of the registry, in registration order. Air must stay
// first so that the zero state id is air. The leading run mirrors the
// vanilla registry so common ground blocks keep their familiar ids.
var (
	Air = Register(Definition{
		Name:       "minecraft:air",
		Attributes: Attributes{Air: true, Replaceable: true},
	})
	Stone            = Register(full("minecraft:stone", 1.5))
	Granite          = Register(full("minecraft:granite", 1.5))
	PolishedGranite  = Register(full("minecraft:polished_granite", 1.5))
	Diorite          = Register(full("minecraft:diorite", 1.5))
	PolishedDiorite  = Register(full("minecraft:polished_diorite", 1.5))
	Andesite         = Register(full("minecraft:andesite", 1.5))
	PolishedAndesite = Register(full("minecraft:polished_andesite", 1.5))
	GrassBlock       = Register(snowy("minecraft:grass_block", 0.6))
	Dirt             = Register(full("minecraft:dirt", 0.5))
	CoarseDirt       = Register(full("minecraft:coarse_dirt", 0.5))
	Podzol           = Register(snowy("minecraft:podzol", 0.5))
	Bedrock          = Register(full("minecraft:bedrock", -1))

	OakPlanks   = Register(full("minecraft:oak_planks", 2))
	OakStairs   = Register(stairs("minecraft:oak_stairs", 2))
	Cobblestone = Register(full("minecraft:cobblestone", 2))
	StoneStairs = Register(stairs("minecraft:stone_stairs", 1.5))

	OakFence         = Register(fence("minecraft:oak_fence", 2))
	NetherBrickFence = Register(fence("minecraft:nether_brick_fence", 2))

	Glass     = Register(Definition{Name: "minecraft:glass", Attributes: Attributes{Hardness: 0.3, Solid: true}})
	GlassPane = Register(pane("minecraft:glass_pane", 0.3))
	IronBars  = Register(pane("minecraft:iron_bars", 5))

	Rail          = Register(rail("minecraft:rail", railShapes))
	PoweredRail   = Register(rail("minecraft:powered_rail", straightRailShapes))
	DetectorRail  = Register(rail("minecraft:detector_rail", straightRailShapes))
	ActivatorRail = Register(rail("minecraft:activator_rail", straightRailShapes))

	Snow = Register(Definition{
		Name:       "minecraft:snow",
		Properties: []Property{{Name: "layers", Values: []string{"1", "2", "3", "4", "5", "6", "7", "8"}}},
		Attributes: Attributes{Hardness: 0.1},
		Derive:     snowLayerAttributes,
	})
	SnowBlock  = Register(full("minecraft:snow_block", 0.2))
	PowderSnow = Register(Definition{Name: "minecraft:powder_snow", Attributes: Attributes{Hardness: 0.25}})
	Mycelium   = Register(snowy("minecraft:mycelium", 0.6))

	Grass = Register(Definition{
		Name:       "minecraft:grass",
		Attributes: Attributes{Replaceable: true},
	})

	BrownMushroomBlock = Register(mushroom("minecraft:brown_mushroom_block"))
	RedMushroomBlock   = Register(mushroom("minecraft:red_mushroom_block"))
	MushroomStem       = Register(mushroom("minecraft:mushroom_stem"))
)

// full is a plain full cube kind without properties.
func full(name string, hardness float64) Definition {
	return Definition{
		Name:       name,
		Attributes: Attributes{Hardness: hardness, Solid: true, Sturdy: sturdyAll},
	}
}

// snowy is a full cube with the snowy property driven by the block above.
func snowy(name string, hardness float64) Definition {
	return Definition{
		Name:       name,
		Properties: []Property{boolProp("snowy")},
		Defaults:   map[string]string{"snowy": "false"},
		Attributes: Attributes{Hardness: hardness, Solid: true, Sturdy: sturdyAll},
	}
}

func stairs(name string, hardness float64) Definition {
	return Definition{
		Name: name,
		Properties: []Property{
			{Name: "facing", Values: []string{"north", "east", "south", "west"}},
			{Name: "half", Values: []string{"top", "bottom"}},
			{Name: "shape", Values: []string{"straight", "inner_left", "inner_right", "outer_left", "outer_right"}},
		},
		Defaults:   map[string]string{"half": "bottom"},
		Attributes: Attributes{Hardness: hardness, Solid: true},
		Derive:     stairAttributes,
		Tags:       TagStairs,
	}
}

// stairAttributes marks the stair's full back face and the face of its half
// as sturdy.
func stairAttributes(base Attributes, props map[string]string) Attributes {
	if d, ok := cube.DirectionByName(props["facing"]); ok {
		base.Sturdy[d.Face()] = true
	}
	if props["half"] == "bottom" {
		base.Sturdy[cube.FaceDown] = true
	} else {
		base.Sturdy[cube.FaceUp] = true
	}
	return base
}

func fence(name string, hardness float64) Definition {
	return Definition{
		Name:       name,
		Properties: connections(),
		Defaults:   unconnected,
		Attributes: Attributes{Hardness: hardness, Solid: true},
		Tags:       TagFences,
	}
}

func pane(name string, hardness float64) Definition {
	return Definition{
		Name:       name,
		Properties: connections(),
		Defaults:   unconnected,
		Attributes: Attributes{Hardness: hardness, Solid: true},
		Tags:       TagPanes,
	}
}

// connections returns the four horizontal connection axes in the
// conventional alphabetical order.
func connections() []Property {
	return []Property{boolProp("east"), boolProp("north"), boolProp("south"), boolProp("west")}
}

// unconnected is the default state of connecting blocks: no arm reaches out.
var unconnected = map[string]string{"east": "false", "north": "false", "south": "false", "west": "false"}

var railShapes = []string{
	"north_south", "east_west",
	"ascending_east", "ascending_west", "ascending_north", "ascending_south",
	"south_east", "south_west", "north_west", "north_east",
}

// straightRailShapes excludes the curve shapes, which powered rail variants
// cannot take.
var straightRailShapes = railShapes[:6]

func rail(name string, shapes []string) Definition {
	props := []Property{{Name: "shape", Values: shapes}}
	if len(shapes) != len(railShapes) {
		props = append([]Property{boolProp("powered")}, props...)
	}
	return Definition{
		Name:       name,
		Properties: props,
		Defaults:   map[string]string{"powered": "false"},
		Attributes: Attributes{Hardness: 0.7},
		Tags:       TagRails,
	}
}

// snowLayerAttributes makes a single layer replaceable and a full stack of
// eight a full cube.
func snowLayerAttributes(base Attributes, props map[string]string) Attributes {
	switch props["layers"] {
	case "1":
		base.Replaceable = true
	case "8":
		base.Solid = true
		base.Sturdy = sturdyAll
	}
	base.Sturdy[cube.FaceDown] = true
	return base
}

func mushroom(name string) Definition {
	return Definition{
		Name: name,
		Properties: []Property{
			boolProp("down"), boolProp("east"), boolProp("north"),
			boolProp("south"), boolProp("up"), boolProp("west"),
		},
		Attributes: Attributes{Hardness: 0.2, Solid: true, Sturdy: sturdyAll},
	}
}
