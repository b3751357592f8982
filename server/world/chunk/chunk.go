package chunk

import (
	"encoding/binary"
	"math/bits"

	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/protocol/nbt"
)

// EntityRef is a stable handle into a chunk's entity roster.
type EntityRef int

// PlayerRef is a stable handle into a chunk's player roster.
type PlayerRef int

// NoEntityRef and NoPlayerRef mark records not attached to any chunk.
const (
	NoEntityRef EntityRef = -1
	NoPlayerRef PlayerRef = -1
)

// Chunk is one column of the world grid: a stack of sections, two packet
// buffers of the tick's broadcasts, rosters of the entities and players
// standing in the column and a cached network serialization of the block
// and light data.
type Chunk struct {
	sections []Section

	viewable       protocol.Buffer
	entityViewable protocol.Buffer

	entities roster
	players  roster

	validCache      bool
	cachedBlockData []byte
	cachedLightData []byte
}

// New returns a chunk of sizeY sections filled with air.
func New(sizeY int) *Chunk {
	c := &Chunk{sections: make([]Section, sizeY)}
	for i := range c.sections {
		c.sections[i] = NewSection()
	}
	return c
}

// SectionCount returns the number of sections stacked in the chunk.
func (c *Chunk) SectionCount() int { return len(c.sections) }

// Section returns the section at index i, counted from the bottom of the
// column. Mutating a section directly does not invalidate the serialization
// cache, so it is only safe before the chunk is first written, during world
// construction and import.
func (c *Chunk) Section(i int) *Section { return &c.sections[i] }

// Block returns the block state at the given column-relative y and
// world coordinates x and z, or false if y is outside the column.
func (c *Chunk) Block(x, y, z int32) (uint16, bool) {
	if y < 0 || int(y>>4) >= len(c.sections) {
		return 0, false
	}
	return c.sections[y>>4].Block(uint8(x&0xF), uint8(y&0xF), uint8(z&0xF)), true
}

// SetBlock writes a block state at the given position, x and z in world
// coordinates. On change it invalidates the serialization cache, appends a
// BlockUpdate to the chunk-viewable buffer and returns the previous state
// with true.
func (c *Chunk) SetBlock(x, y, z int32, block uint16) (uint16, bool) {
	prev, changed := c.sections[y>>4].SetBlock(uint8(x&0xF), uint8(y&0xF), uint8(z&0xF), block)
	if !changed {
		return 0, false
	}
	c.validCache = false
	_ = c.viewable.WritePacket(&protocol.BlockUpdate{
		Pos:   protocol.BlockPos{X: x, Y: y, Z: z},
		State: int32(block),
	})
	return prev, true
}

// Viewable returns the buffer of packets every viewer of the chunk must
// receive this tick.
func (c *Chunk) Viewable() *protocol.Buffer { return &c.viewable }

// EntityViewable returns the buffer of entity-scoped packets broadcast to
// viewers of the chunk this tick.
func (c *Chunk) EntityViewable() *protocol.Buffer { return &c.entityViewable }

// CopyViewable appends the chunk-viewable bytes to dst.
func (c *Chunk) CopyViewable(dst *protocol.Buffer) {
	dst.WriteFramed(c.viewable.Bytes())
}

// CopyEntityViewable appends the entity-viewable bytes to dst, leaving out
// the byte range [skipFrom, skipTo). The range lets a mover skip the packets
// it wrote about itself.
func (c *Chunk) CopyEntityViewable(dst *protocol.Buffer, skipFrom, skipTo int) {
	b := c.entityViewable.Bytes()
	if skipFrom >= skipTo {
		dst.WriteFramed(b)
		return
	}
	dst.WriteFramed(b[:skipFrom])
	dst.WriteFramed(b[skipTo:])
}

// ClearViewable resets both broadcast buffers at the end of a tick.
func (c *Chunk) ClearViewable() {
	c.viewable.Reset()
	c.entityViewable.Reset()
}

// AddEntity records a world entity index in the roster and returns its
// handle.
func (c *Chunk) AddEntity(idx int) EntityRef { return EntityRef(c.entities.add(idx)) }

// RemoveEntity releases a roster handle. Handles that do not match an
// occupied slot panic.
func (c *Chunk) RemoveEntity(ref EntityRef) { c.entities.remove(int(ref)) }

// AddPlayer records a world player index in the roster and returns its
// handle.
func (c *Chunk) AddPlayer(idx int) PlayerRef { return PlayerRef(c.players.add(idx)) }

// RemovePlayer releases a roster handle.
func (c *Chunk) RemovePlayer(ref PlayerRef) { c.players.remove(int(ref)) }

// Entities calls fn with each world entity index in the roster.
func (c *Chunk) Entities(fn func(idx int)) { c.entities.each(fn) }

// Players calls fn with each world player index in the roster.
func (c *Chunk) Players(fn func(idx int)) { c.players.each(fn) }

// HasPlayers reports whether any player stands in the chunk.
func (c *Chunk) HasPlayers() bool { return c.players.size > 0 }

// Write frames a full chunk data packet for the column at cx, cz into buf,
// rebuilding the cached body bytes if a block changed since the last call.
func (c *Chunk) Write(buf *protocol.Buffer, cx, cz int32) error {
	if !c.validCache {
		c.computeCache()
	}
	size := 8 + len(c.cachedBlockData) + len(c.cachedLightData)
	return buf.WriteCustom(protocol.IDLevelChunkWithLight, size, func(b []byte) (int, error) {
		n := protocol.PutInt32(b, cx)
		n += protocol.PutInt32(b[n:], cz)
		n += copy(b[n:], c.cachedBlockData)
		n += copy(b[n:], c.cachedLightData)
		return n, nil
	})
}

// computeCache rebuilds the cached block and light bodies of the chunk data
// packet. The outer frame is written per call in Write, only the bodies are
// kept.
func (c *Chunk) computeCache() {
	c.validCache = true

	size := 0
	for i := range c.sections {
		size += c.sections[i].EncodedSize()
	}
	sections := make([]byte, size)
	n := 0
	for i := range c.sections {
		n += c.sections[i].Encode(sections[n:])
	}

	data := nbt.AppendNamed(c.cachedBlockData[:0], "", &nbt.Compound{}) // heightmaps
	data = appendVarInt(data, int32(n))
	data = append(data, sections[:n]...)
	data = appendVarInt(data, 0) // no block entities
	data = append(data, 1)       // trust edges
	c.cachedBlockData = data

	all := uint64(1)<<(len(c.sections)+2) - 1
	var sky, block uint64
	for i := range c.sections {
		if c.sections[i].skyLight != nil {
			sky |= 1 << (i + 1)
		}
		if c.sections[i].blockLight != nil {
			block |= 1 << (i + 1)
		}
	}
	light := appendMask(c.cachedLightData[:0], sky)
	light = appendMask(light, block)
	light = appendMask(light, ^sky&all)
	light = appendMask(light, ^block&all)
	light = appendVarInt(light, int32(bits.OnesCount64(sky)))
	for i := range c.sections {
		if l := c.sections[i].skyLight; l != nil {
			light = appendVarInt(light, int32(len(l)))
			light = append(light, l...)
		}
	}
	light = appendVarInt(light, int32(bits.OnesCount64(block)))
	for i := range c.sections {
		if l := c.sections[i].blockLight; l != nil {
			light = appendVarInt(light, int32(len(l)))
			light = append(light, l...)
		}
	}
	c.cachedLightData = light
}

func appendVarInt(b []byte, v int32) []byte {
	var tmp [5]byte
	return append(b, tmp[:protocol.PutVarInt(tmp[:], v)]...)
}

// appendMask writes a one-element bit set, a varint length of 1 and the
// mask word big-endian.
func appendMask(b []byte, mask uint64) []byte {
	b = appendVarInt(b, 1)
	return binary.BigEndian.AppendUint64(b, mask)
}

// roster is a slab of world slab indices with stable slot handles. Vacant
// slots hold -1 and are reused before the slab grows.
type roster struct {
	slots []int
	free  []int
	size  int
}

func (r *roster) add(v int) int {
	if n := len(r.free); n > 0 {
		slot := r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[slot] = v
		r.size++
		return slot
	}
	r.slots = append(r.slots, v)
	r.size++
	return len(r.slots) - 1
}

func (r *roster) remove(slot int) {
	if slot < 0 || slot >= len(r.slots) || r.slots[slot] < 0 {
		panic("chunk: roster handle does not match an occupied slot")
	}
	r.slots[slot] = -1
	r.free = append(r.free, slot)
	r.size--
}

func (r *roster) each(fn func(v int)) {
	for _, v := range r.slots {
		if v >= 0 {
			fn(v)
		}
	}
}
