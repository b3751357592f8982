package chunk

import "encoding/binary"

// SectionVolume is the cell count of a section, 16 cells per axis.
const SectionVolume = 16 * 16 * 16

// lightLen is the byte length of a half-nibble light array for one section.
const lightLen = SectionVolume / 2

// Section is a 16x16x16 cube of block states with a 4x4x4 biome grid and a
// count of its non-air cells. Light arrays are optional and only populated
// by world import.
type Section struct {
	nonAir uint16
	blocks PalettedContainer
	biomes PalettedContainer

	skyLight   []byte
	blockLight []byte
}

// NewSection returns a section filled with air and the zero biome.
func NewSection() Section {
	return Section{blocks: NewBlockContainer(0), biomes: NewBiomeContainer(0)}
}

// FilledSection returns a section whose every cell holds the given block
// state.
func FilledSection(block uint16) Section {
	s := NewSection()
	s.FillBlocks(block)
	return s
}

// Block returns the block state at x, y and z, each in [0, 16).
func (s *Section) Block(x, y, z uint8) uint16 {
	return s.blocks.Get(x, y, z)
}

// SetBlock writes a block state and returns the previous state with true if
// it differed. The non-air count tracks the change.
func (s *Section) SetBlock(x, y, z uint8, block uint16) (uint16, bool) {
	prev, changed := s.blocks.Set(x, y, z, block)
	if !changed {
		return 0, false
	}
	if prev == 0 {
		s.nonAir++
	} else if block == 0 {
		s.nonAir--
	}
	return prev, true
}

// FillBlocks replaces every cell with the given block state.
func (s *Section) FillBlocks(block uint16) {
	if block == 0 {
		s.nonAir = 0
	} else {
		s.nonAir = SectionVolume
	}
	s.blocks.Fill(block)
}

// NonAirCount returns the number of cells not holding air.
func (s *Section) NonAirCount() uint16 { return s.nonAir }

// SetSkyLight installs a 2048-byte half-nibble sky light array. A nil slice
// clears it. Slices of any other length panic.
func (s *Section) SetSkyLight(light []byte) {
	if light != nil && len(light) != lightLen {
		panic("chunk: sky light array must be 2048 bytes")
	}
	s.skyLight = light
}

// SetBlockLight installs a 2048-byte half-nibble block light array. A nil
// slice clears it.
func (s *Section) SetBlockLight(light []byte) {
	if light != nil && len(light) != lightLen {
		panic("chunk: block light array must be 2048 bytes")
	}
	s.blockLight = light
}

// EncodedSize returns an upper bound on the bytes Encode writes.
func (s *Section) EncodedSize() int {
	return 2 + s.blocks.EncodedSize() + s.biomes.EncodedSize()
}

// Encode writes the network form of the section, the non-air count followed
// by the block and biome containers, and returns the byte count written.
func (s *Section) Encode(b []byte) int {
	binary.BigEndian.PutUint16(b, s.nonAir)
	n := 2
	n += s.blocks.Encode(b[n:])
	n += s.biomes.Encode(b[n:])
	return n
}
