package generator

import (
	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/world/chunk"
)

// Flat generates the classic superflat layout: one layer of bedrock, three
// of dirt and a grass surface at y 4.
type Flat struct {
	bedrock uint16
	dirt    uint16
	grass   uint16
}

// NewFlat returns a flat generator. State ids are resolved once here, after
// the block registry has been populated.
func NewFlat() *Flat {
	return &Flat{
		bedrock: block.Bedrock.DefaultState(),
		dirt:    block.Dirt.DefaultState(),
		grass:   block.GrassBlock.DefaultState(),
	}
}

// GenerateChunk fills the bottom five block layers of the chunk.
func (f *Flat) GenerateChunk(_, _ int32, ch *chunk.Chunk) {
	s := ch.Section(0)
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			s.SetBlock(x, 0, z, f.bedrock)
			s.SetBlock(x, 1, z, f.dirt)
			s.SetBlock(x, 2, z, f.dirt)
			s.SetBlock(x, 3, z, f.dirt)
			s.SetBlock(x, 4, z, f.grass)
		}
	}
}
