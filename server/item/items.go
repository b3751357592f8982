package item

// The item kinds of the registry, in registration order. Air must stay first
// so that the zero kind marks the empty stack.
var (
	Air              = Register(Definition{Name: "minecraft:air"})
	Stone            = Register(placer("minecraft:stone"))
	Granite          = Register(placer("minecraft:granite"))
	PolishedGranite  = Register(placer("minecraft:polished_granite"))
	Diorite          = Register(placer("minecraft:diorite"))
	PolishedDiorite  = Register(placer("minecraft:polished_diorite"))
	Andesite         = Register(placer("minecraft:andesite"))
	PolishedAndesite = Register(placer("minecraft:polished_andesite"))
	GrassBlock       = Register(placer("minecraft:grass_block"))
	Dirt             = Register(placer("minecraft:dirt"))
	CoarseDirt       = Register(placer("minecraft:coarse_dirt"))
	Podzol           = Register(placer("minecraft:podzol"))
	Bedrock          = Register(placer("minecraft:bedrock"))

	OakPlanks   = Register(placer("minecraft:oak_planks"))
	OakStairs   = Register(placer("minecraft:oak_stairs"))
	Cobblestone = Register(placer("minecraft:cobblestone"))
	StoneStairs = Register(placer("minecraft:stone_stairs"))

	OakFence         = Register(placer("minecraft:oak_fence"))
	NetherBrickFence = Register(placer("minecraft:nether_brick_fence"))

	Glass     = Register(placer("minecraft:glass"))
	GlassPane = Register(placer("minecraft:glass_pane"))
	IronBars  = Register(placer("minecraft:iron_bars"))

	Rail          = Register(stacked("minecraft:rail", 16))
	PoweredRail   = Register(stacked("minecraft:powered_rail", 16))
	DetectorRail  = Register(stacked("minecraft:detector_rail", 16))
	ActivatorRail = Register(stacked("minecraft:activator_rail", 16))

	Snow       = Register(placer("minecraft:snow"))
	SnowBlock  = Register(placer("minecraft:snow_block"))
	PowderSnow = Register(Definition{Name: "minecraft:powder_snow_bucket", MaxStackSize: 1, Block: "minecraft:powder_snow"})
	Mycelium   = Register(placer("minecraft:mycelium"))

	BrownMushroomBlock = Register(placer("minecraft:brown_mushroom_block"))
	RedMushroomBlock   = Register(placer("minecraft:red_mushroom_block"))
	MushroomStem       = Register(placer("minecraft:mushroom_stem"))

	Stick = Register(Definition{Name: "minecraft:stick"})
	Apple = Register(Definition{Name: "minecraft:apple"})
)

// placer is a plain block item named after the block kind it places.
func placer(name string) Definition {
	return Definition{Name: name, Block: name}
}

// stacked is a placer with a smaller maximum stack size.
func stacked(name string, max int8) Definition {
	return Definition{Name: name, Block: name, MaxStackSize: max}
}
