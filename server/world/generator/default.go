package generator

import (
	"math"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/segmentio/fasthash/fnv1"
)

// Terrain shape parameters. Two value noise octaves stacked on the base
// height keep the surface within roughly [50, 78].
const (
	baseHeight = 64

	hillPeriod = 48
	hillAmp    = 11

	detailPeriod = 9
	detailAmp    = 3

	// Columns at or above this height get a snow cap.
	snowLine = 71

	dirtDepth = 3
)

// Default generates rolling grass hills from layered value noise, with snow
// capped peaks, a stone body, a bedrock floor and scattered grass tufts.
// All randomness derives from the seed, so identical (seed, chunk) inputs
// always produce identical chunks.
type Default struct {
	seed int64

	bedrock    uint16
	stone      uint16
	dirt       uint16
	grass      uint16
	snowyGrass uint16
	snowLayer  uint16
	tuft       uint16
}

// NewDefault returns the default generator for the given world seed. State
// ids are resolved once here, after the block registry has been populated.
func NewDefault(seed int64) *Default {
	g := &Default{
		seed:      seed,
		bedrock:   block.Bedrock.DefaultState(),
		stone:     block.Stone.DefaultState(),
		dirt:      block.Dirt.DefaultState(),
		grass:     block.GrassBlock.DefaultState(),
		snowLayer: block.Snow.DefaultState(),
		tuft:      block.Grass.DefaultState(),
	}
	g.snowyGrass, _ = block.With(g.grass, "snowy", "true")
	return g
}

// GenerateChunk fills one chunk column by column and then scatters its
// decoration.
func (g *Default) GenerateChunk(x, z int32, ch *chunk.Chunk) {
	maxY := int32(ch.SectionCount()*16 - 1)
	var heights [16][16]int32
	for bx := int32(0); bx < 16; bx++ {
		for bz := int32(0); bz < 16; bz++ {
			h := g.surfaceHeight(int64(x)*16+int64(bx), int64(z)*16+int64(bz))
			h = min(max(h, 2), maxY-1)
			heights[bx][bz] = h
			g.column(ch, uint8(bx), uint8(bz), h)
		}
	}
	g.decorate(x, z, ch, &heights)
}

// column writes one block column: bedrock at the bottom, stone up to the
// dirt cap and grass on the surface, snowed over above the snow line.
func (g *Default) column(ch *chunk.Chunk, x, z uint8, h int32) {
	set := func(y int32, id uint16) {
		ch.Section(int(y>>4)).SetBlock(x, uint8(y&15), z, id)
	}
	set(0, g.bedrock)
	y := int32(1)
	for ; y < h-dirtDepth; y++ {
		set(y, g.stone)
	}
	for ; y < h; y++ {
		set(y, g.dirt)
	}
	if h >= snowLine {
		set(h, g.snowyGrass)
		set(h+1, g.snowLayer)
	} else {
		set(h, g.grass)
	}
}

// surfaceHeight samples the stacked noise octaves at a world column.
func (g *Default) surfaceHeight(gx, gz int64) int32 {
	hill := g.noise(gx, gz, hillPeriod)
	detail := g.noise(gx, gz, detailPeriod)
	h := baseHeight + (hill*2-1)*hillAmp + (detail*2-1)*detailAmp
	return int32(math.Round(h))
}

// noise samples smoothed value noise in [0, 1] from the lattice with the
// given period.
func (g *Default) noise(gx, gz, period int64) float64 {
	cx, ox := floorDiv(gx, period)
	cz, oz := floorDiv(gz, period)
	tx := smooth(float64(ox) / float64(period))
	tz := smooth(float64(oz) / float64(period))
	n0 := lerp(g.corner(cx, cz, period), g.corner(cx+1, cz, period), tx)
	n1 := lerp(g.corner(cx, cz+1, period), g.corner(cx+1, cz+1, period), tx)
	return lerp(n0, n1, tz)
}

// corner hashes one lattice point to [0, 1]. The period is mixed in so the
// octaves stay uncorrelated.
func (g *Default) corner(cx, cz, period int64) float64 {
	h := fnv1.Init64
	h = fnv1.AddUint64(h, uint64(g.seed))
	h = fnv1.AddUint64(h, uint64(period))
	h = fnv1.AddUint64(h, uint64(cx))
	h = fnv1.AddUint64(h, uint64(cz))
	return float64(h&0xFFFFF) / float64(0xFFFFF)
}

// decorate scatters grass tufts over the chunk surface. Positions are drawn
// from a hash of (seed, chunk), never from neighbouring chunks, so chunks
// can be generated in any order.
func (g *Default) decorate(x, z int32, ch *chunk.Chunk, heights *[16][16]int32) {
	h := fnv1.Init64
	h = fnv1.AddUint64(h, uint64(g.seed))
	h = fnv1.AddUint64(h, uint64(uint32(x)))
	h = fnv1.AddUint64(h, uint64(uint32(z)))

	maxY := int32(ch.SectionCount()*16 - 1)
	tufts := 4 + int(h%8)
	for i := 0; i < tufts; i++ {
		h = fnv1.AddUint64(h, uint64(i))
		bx := uint8(h>>8) & 15
		bz := uint8(h>>16) & 15
		top := heights[bx][bz]
		if top >= maxY {
			continue
		}
		// Tufts only grow on bare grass, not on snow caps.
		if ch.Section(int(top>>4)).Block(bx, uint8(top&15), bz) != g.grass {
			continue
		}
		above := ch.Section(int((top + 1) >> 4))
		if above.Block(bx, uint8((top+1)&15), bz) != 0 {
			continue
		}
		above.SetBlock(bx, uint8((top+1)&15), bz, g.tuft)
	}
}
