// Package chunk implements the column store of the world: paletted cell
// containers, 16x16x16 sections and chunk columns with cached network
// serialization and entity/player rosters.
package chunk

import (
	"encoding/binary"

	"github.com/basalt-mc/basalt/server/protocol"
)

// Geometry fixes the cell layout of a paletted container. Blocks use 16
// cells per axis packed 15 bits wide, biomes 4 cells per axis packed 4 bits
// wide.
type Geometry struct {
	// Side is the cell count per axis. It must be a power of two.
	Side int
	// DirectBits is the bit width of a cell in the direct tier. Values never
	// straddle a 64-bit word, so a word holds 64/DirectBits cells.
	DirectBits uint
}

// BlockGeometry and BiomeGeometry are the two layouts used by chunk
// sections.
var (
	BlockGeometry = Geometry{Side: 16, DirectBits: 15}
	BiomeGeometry = Geometry{Side: 4, DirectBits: 4}
)

func (g Geometry) capacity() int { return g.Side * g.Side * g.Side }

func (g Geometry) wordLen() int {
	per := 64 / int(g.DirectBits)
	return (g.capacity() + per - 1) / per
}

// paletteCap is the palette size of the array tier. A full palette with an
// unseen value forces promotion to the direct tier.
const paletteCap = 16

const (
	tierSingle = iota
	tierArray
	tierDirect
)

type paletteEntry struct {
	value uint16
	count uint16
}

// PalettedContainer stores one value per cell in three tiers. A container
// starts as a single repeated value, grows a 4-bit indexed palette on the
// first differing write and switches to direct bit-packed storage when a
// seventeenth distinct value appears. Transitions are one-way.
type PalettedContainer struct {
	geo  Geometry
	tier uint8

	single  uint16
	palette []paletteEntry
	cells   []byte // one nibble per cell, even cell in the high nibble
	words   []uint64
}

// NewBlockContainer returns a block-geometry container filled with v.
func NewBlockContainer(v uint16) PalettedContainer {
	return PalettedContainer{geo: BlockGeometry, single: v}
}

// NewBiomeContainer returns a biome-geometry container filled with v.
func NewBiomeContainer(v uint16) PalettedContainer {
	return PalettedContainer{geo: BiomeGeometry, single: v}
}

// arrayIndex returns the nibble index of a cell in the array tier. The x
// axis is mirrored within its row so that the packed bytes can be copied to
// the network verbatim, which expects big-endian nibble order.
func (c *PalettedContainer) arrayIndex(x, y, z uint8) int {
	s := c.geo.Side
	return int(y)*s*s + int(z)*s + (s - 1 - int(x))
}

func (c *PalettedContainer) directIndex(x, y, z uint8) int {
	s := c.geo.Side
	return int(y)*s*s + int(z)*s + int(x)
}

// Get returns the value of the cell at x, y and z, each in [0, Side).
func (c *PalettedContainer) Get(x, y, z uint8) uint16 {
	switch c.tier {
	case tierSingle:
		return c.single
	case tierArray:
		return c.palette[c.nibble(c.arrayIndex(x, y, z))].value
	default:
		return c.directGet(c.directIndex(x, y, z))
	}
}

// Set writes v to the cell at x, y and z and returns the previous value
// with true if it differed from v.
func (c *PalettedContainer) Set(x, y, z uint8, v uint16) (uint16, bool) {
	switch c.tier {
	case tierSingle:
		if c.single == v {
			return 0, false
		}
		old := c.single
		c.toArray()
		c.arraySet(c.arrayIndex(x, y, z), v)
		return old, true
	case tierArray:
		old, changed, fits := c.arraySet(c.arrayIndex(x, y, z), v)
		if fits {
			return old, changed
		}
		c.toDirect()
		return c.directSet(c.directIndex(x, y, z), v)
	default:
		return c.directSet(c.directIndex(x, y, z), v)
	}
}

// Fill replaces the whole container with the single value v. It reports
// whether the container changed representation or value.
func (c *PalettedContainer) Fill(v uint16) bool {
	if c.tier == tierSingle && c.single == v {
		return false
	}
	c.tier = tierSingle
	c.single = v
	c.palette, c.cells, c.words = nil, nil, nil
	return true
}

// toArray converts a single-tier container to the array tier with the
// current value occupying every cell.
func (c *PalettedContainer) toArray() {
	c.palette = make([]paletteEntry, 1, paletteCap)
	c.palette[0] = paletteEntry{value: c.single, count: uint16(c.geo.capacity())}
	c.cells = make([]byte, c.geo.capacity()/2)
	c.tier = tierArray
}

// arraySet updates the cell at nibble index n. The third return is false
// when the palette is full and v is not in it, in which case nothing was
// written.
func (c *PalettedContainer) arraySet(n int, v uint16) (old uint16, changed, fits bool) {
	slot := -1
	for i := range c.palette {
		if c.palette[i].count == 0 {
			// Dead entry, take it over for v.
			c.palette[i].value = v
		} else if c.palette[i].value != v {
			continue
		}
		slot = i
		break
	}
	if slot < 0 {
		if len(c.palette) == paletteCap {
			return 0, false, false
		}
		c.palette = append(c.palette, paletteEntry{value: v})
		slot = len(c.palette) - 1
	}
	prev, ok := c.setNibble(n, uint8(slot))
	if !ok {
		return 0, false, true
	}
	c.palette[slot].count++
	c.palette[prev].count--
	return c.palette[prev].value, true, true
}

func (c *PalettedContainer) nibble(n int) uint8 {
	pair := c.cells[n>>1]
	if n&1 == 0 {
		return pair >> 4
	}
	return pair & 0x0F
}

// setNibble writes a palette index and returns the previous index with true
// if it changed.
func (c *PalettedContainer) setNibble(n int, idx uint8) (uint8, bool) {
	shift := uint(n&1^1) * 4
	pair := c.cells[n>>1]
	next := pair&^(0x0F<<shift) | idx<<shift
	if next == pair {
		return 0, false
	}
	c.cells[n>>1] = next
	return pair >> shift & 0x0F, true
}

// toDirect expands the packed palette indices into the direct tier,
// unmirroring the x axis along the way.
func (c *PalettedContainer) toDirect() {
	s := c.geo.Side
	per := 64 / c.geo.DirectBits
	words := make([]uint64, c.geo.wordLen())
	for i := 0; i < c.geo.capacity(); i++ {
		n := i&^(s-1) | (s - 1 - i&(s-1))
		v := uint64(c.palette[c.nibble(n)].value)
		words[uint(i)/per] |= v << (c.geo.DirectBits * (uint(i) % per))
	}
	c.words = words
	c.palette, c.cells = nil, nil
	c.tier = tierDirect
}

func (c *PalettedContainer) directGet(i int) uint16 {
	per := 64 / c.geo.DirectBits
	shift := c.geo.DirectBits * (uint(i) % per)
	mask := uint64(1)<<c.geo.DirectBits - 1
	return uint16(c.words[uint(i)/per] >> shift & mask)
}

func (c *PalettedContainer) directSet(i int, v uint16) (uint16, bool) {
	per := 64 / c.geo.DirectBits
	word := uint(i) / per
	shift := c.geo.DirectBits * (uint(i) % per)
	mask := uint64(1)<<c.geo.DirectBits - 1
	old := uint16(c.words[word] >> shift & mask)
	if old == v {
		return 0, false
	}
	c.words[word] = c.words[word]&^(mask<<shift) | uint64(v)<<shift
	return old, true
}

// EncodedSize returns an upper bound on the bytes Encode writes.
func (c *PalettedContainer) EncodedSize() int {
	switch c.tier {
	case tierSingle:
		return 1 + 3 + 1
	case tierArray:
		return 1 + 1 + 3*len(c.palette) + 5 + len(c.cells)
	default:
		return 1 + 5 + len(c.words)*8
	}
}

// Encode writes the network form of the container to b, which must hold at
// least EncodedSize bytes, and returns the byte count written.
func (c *PalettedContainer) Encode(b []byte) int {
	switch c.tier {
	case tierSingle:
		b[0] = 0
		n := 1 + protocol.PutVarInt(b[1:], int32(c.single))
		b[n] = 0
		return n + 1
	case tierArray:
		b[0] = 4
		b[1] = byte(len(c.palette))
		n := 2
		for _, e := range c.palette {
			n += protocol.PutVarInt(b[n:], int32(e.value))
		}
		n += protocol.PutVarInt(b[n:], int32(len(c.cells)/8))
		n += copy(b[n:], c.cells)
		return n
	default:
		b[0] = byte(c.geo.DirectBits)
		n := 1 + protocol.PutVarInt(b[1:], int32(len(c.words)))
		for _, w := range c.words {
			binary.BigEndian.PutUint64(b[n:], w)
			n += 8
		}
		return n
	}
}
