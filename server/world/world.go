// Package world implements the server world: a fixed grid of chunk columns
// with block access and derived block state rules, swept collision, the
// player and entity rosters with their per-chunk broadcast buffers, and the
// tick that drives all of it.
package world

import (
	"log/slog"

	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/basalt-mc/basalt/server/entity"
	"github.com/basalt-mc/basalt/server/player"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/brentp/intintmap"
	"github.com/go-gl/mathgl/mgl64"
)

// Generator fills freshly allocated chunks with their initial blocks.
type Generator interface {
	GenerateChunk(x, z int32, ch *chunk.Chunk)
}

// Config holds the construction parameters of a world.
type Config struct {
	// Log is the logger player lifecycle events are reported on. Nil
	// defaults to slog.Default().
	Log *slog.Logger
	// SizeX and SizeZ are the dimensions of the chunk grid. Values below 1
	// default to 16.
	SizeX, SizeZ int32
	// SizeY is the world height in blocks. It must be a multiple of 16 and
	// defaults to 384.
	SizeY int32
	// Generator fills the grid at construction. Nil leaves every chunk air.
	Generator Generator
	// GameMode is the game mode every player joins in: 0 survival,
	// 1 creative, 2 adventure, 3 spectator.
	GameMode uint8
	// Tick, if set, runs early in every tick, once disconnected players
	// have been evicted and queued entities added but before any player or
	// entity is ticked. The server admits joining connections here so that
	// all player work happens on the tick goroutine.
	Tick func(current int64)
}

// New allocates and generates the world. The full chunk grid is built up
// front, so chunk access never faults afterwards.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.SizeX < 1 {
		conf.SizeX = 16
	}
	if conf.SizeZ < 1 {
		conf.SizeZ = 16
	}
	if conf.SizeY < 16 {
		conf.SizeY = 384
	}
	sections := int(conf.SizeY) / 16
	w := &World{
		conf:       conf,
		log:        conf.Log,
		chunksX:    conf.SizeX,
		chunksZ:    conf.SizeZ,
		sizeY:      conf.SizeY,
		chunks:     make([]*chunk.Chunk, conf.SizeX*conf.SizeZ),
		emptyChunk: chunk.New(sections),
		networkIDs: intintmap.New(1024, 0.6),
		codec:      registryCodec(conf.SizeY),
	}
	for z := int32(0); z < w.chunksZ; z++ {
		for x := int32(0); x < w.chunksX; x++ {
			ch := chunk.New(sections)
			if conf.Generator != nil {
				conf.Generator.GenerateChunk(x, z, ch)
			}
			w.chunks[x+z*w.chunksX] = ch
		}
	}
	return w
}

// World is one running world: its chunk grid, its rosters and everything the
// tick touches. All of it is owned by the tick goroutine and none of the
// methods are safe for concurrent use.
type World struct {
	conf Config
	log  *slog.Logger

	chunksX, chunksZ int32
	sizeY            int32
	chunks           []*chunk.Chunk
	emptyChunk       *chunk.Chunk
	codec            []byte

	players     []*player.Player
	freePlayers []int

	entities     []*entity.Entity
	freeEntities []int
	pending      []*entity.Entity

	// networkIDs resolves the network ids clients name in interaction
	// packets to entity slab indices.
	networkIDs *intintmap.Map

	collisionScratch []cube.BBox
	despawnScratch   []int32

	current int64
}

// Size returns the dimensions of the chunk grid.
func (w *World) Size() (chunksX, chunksZ int32) {
	return w.chunksX, w.chunksZ
}

// GameMode returns the game mode players play in: 0 survival, 1 creative,
// 2 adventure, 3 spectator.
func (w *World) GameMode() uint8 { return w.conf.GameMode }

// Chunk returns the chunk at the given chunk coordinates, or nil outside the
// grid.
func (w *World) Chunk(x, z int32) *chunk.Chunk {
	if x < 0 || z < 0 || x >= w.chunksX || z >= w.chunksZ {
		return nil
	}
	return w.chunks[x+z*w.chunksX]
}

// EmptyChunk returns the shared all-air chunk streamed in place of cells
// outside the grid. It must never be written to.
func (w *World) EmptyChunk() *chunk.Chunk { return w.emptyChunk }

// CurrentTick returns the number of ticks the world has run.
func (w *World) CurrentTick() int64 { return w.current }

// Spawn returns the position players join at: the center of the grid, on
// top of its highest block.
func (w *World) Spawn() mgl64.Vec3 {
	x, z := w.chunksX*16/2, w.chunksZ*16/2
	for y := w.sizeY - 1; y >= 0; y-- {
		if w.blockAt(x, y, z) != 0 {
			return mgl64.Vec3{float64(x) + 0.5, float64(y + 1), float64(z) + 0.5}
		}
	}
	return mgl64.Vec3{float64(x) + 0.5, 0, float64(z) + 0.5}
}

// Block returns the state at pos and whether pos lies inside the world.
func (w *World) Block(pos cube.Pos) (uint16, bool) {
	ch := w.Chunk(pos[0]>>4, pos[2]>>4)
	if ch == nil {
		return 0, false
	}
	return ch.Block(pos[0], pos[1], pos[2])
}

// blockAt is Block with air standing in for positions outside the world.
func (w *World) blockAt(x, y, z int32) uint16 {
	id, _ := w.Block(cube.Pos{x, y, z})
	return id
}

// SetBlock writes a block state at pos and runs the derived state rules on
// it and its neighbours, so fences connect, rails bend and stairs take
// their corner shapes. Positions outside the world are ignored.
func (w *World) SetBlock(pos cube.Pos, state uint16) {
	if !w.setBlockState(pos, state) {
		return
	}
	w.runUpdates(pos)
}

// setBlockState writes a single state without running update rules and
// reports whether pos was inside the world.
func (w *World) setBlockState(pos cube.Pos, state uint16) bool {
	if pos[1] < 0 || pos[1] >= w.sizeY {
		return false
	}
	ch := w.Chunk(pos[0]>>4, pos[2]>>4)
	if ch == nil {
		return false
	}
	ch.SetBlock(pos[0], pos[1], pos[2], state)
	return true
}

// SpawnEntity queues e for addition at the start of the next tick, or later
// in the same tick when called from within one. Queueing keeps the entity
// slab stable while it is iterated.
func (w *World) SpawnEntity(e *entity.Entity) {
	w.pending = append(w.pending, e)
}

// EntityByNetworkID resolves a network id clients target in interaction
// packets, or nil when no live entity owns it.
func (w *World) EntityByNetworkID(id int32) *entity.Entity {
	idx, ok := w.networkIDs.Get(int64(id))
	if !ok {
		return nil
	}
	return w.entities[idx]
}

// Players calls fn for every player in the world.
func (w *World) Players(fn func(p *player.Player)) {
	for _, p := range w.players {
		if p != nil {
			fn(p)
		}
	}
}

// PlayerCount returns the number of players in the world.
func (w *World) PlayerCount() int {
	return len(w.players) - len(w.freePlayers)
}

// Broadcast appends pk to every player's packet buffer.
func (w *World) Broadcast(pk protocol.Packet) {
	for _, p := range w.players {
		if p != nil {
			p.WritePacket(pk)
		}
	}
}

// WriteSpawns appends the spawn packets of everything rostered in ch to
// buf, leaving out exclude. Part of the player.Level surface; players call
// it for chunks entering their entity view.
func (w *World) WriteSpawns(ch *chunk.Chunk, exclude *player.Player, buf *protocol.Buffer) {
	ch.Entities(func(idx int) {
		e := w.entities[idx]
		e.View().WriteSpawn(e, buf)
	})
	ch.Players(func(idx int) {
		if q := w.players[idx]; q != exclude {
			writePlayerSpawn(q, buf)
		}
	})
}

// WriteDespawns appends the despawn packets of everything rostered in ch,
// leaving out exclude. Plain id removals are collected into despawn so the
// caller can batch them into a single RemoveEntities packet.
func (w *World) WriteDespawns(ch *chunk.Chunk, exclude *player.Player, despawn *[]int32, buf *protocol.Buffer) {
	ch.Entities(func(idx int) {
		e := w.entities[idx]
		e.View().WriteDespawn(e, despawn, buf)
	})
	ch.Players(func(idx int) {
		if q := w.players[idx]; q != exclude {
			*despawn = append(*despawn, q.NetworkID())
		}
	})
}

// writePlayerSpawn appends the packets that make p's player entity appear on
// a client. The client must have seen p's tab list entry first or it drops
// the spawn silently.
func writePlayerSpawn(p *player.Player, buf *protocol.Buffer) {
	pos := p.Position()
	yaw, pitch := p.Rotation()
	bYaw := protocol.DegreesToByte(yaw)
	_ = buf.WritePacket(&protocol.AddPlayer{
		EntityID: p.NetworkID(),
		UUID:     p.UUID(),
		X:        pos[0], Y: pos[1], Z: pos[2],
		Yaw:      bYaw,
		Pitch:    protocol.DegreesToByte(pitch),
	})
	_ = buf.WritePacket(&protocol.RotateHead{EntityID: p.NetworkID(), HeadYaw: bYaw})
	p.WriteSpawnState(buf)
}

// chunkDistance returns the Chebyshev distance between two chunk positions,
// the metric of the square view areas.
func chunkDistance(aX, aZ, bX, bZ int32) int32 {
	dx, dz := aX-bX, aZ-bZ
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	return max(dx, dz)
}
