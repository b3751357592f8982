package world

import (
	"github.com/basalt-mc/basalt/server/entity"
	"github.com/basalt-mc/basalt/server/player"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Tick advances the world by one tick. The server calls it every 50ms from
// its tick loop; tests call it directly. The ordering is load bearing:
// rosters only change before players tick and while entities tick, so the
// spawn and despawn packets written on crossings always agree with the
// rosters the view tick copies out.
func (w *World) Tick() {
	w.evictPlayers()
	w.addPendingEntities()

	if w.conf.Tick != nil {
		w.conf.Tick(w.current)
	}

	for _, p := range w.players {
		if p != nil {
			p.Tick()
		}
	}

	for index, e := range w.entities {
		switch {
		case e == nil:
		case e.Closed():
			w.removeEntity(index, e)
		default:
			e.Tick()
			w.moveEntity(index, e)
		}
	}

	// Entities spawned during this tick join now, so their spawn packets
	// replicate before the buffers are copied out.
	w.addPendingEntities()

	for _, p := range w.players {
		if p != nil {
			p.ViewTick()
		}
	}

	for _, ch := range w.chunks {
		ch.ClearViewable()
	}
	w.current++
}

// evictPlayers removes players whose connection dropped. The roster slot,
// tab list entry and the spawned player entity are all withdrawn before
// anything else runs this tick.
func (w *World) evictPlayers() {
	for index, p := range w.players {
		if p == nil || p.Connected() {
			continue
		}
		w.players[index] = nil
		w.freePlayers = append(w.freePlayers, index)

		chunkX, chunkZ := p.ChunkPosition()
		p.Detach()

		w.Broadcast(&protocol.PlayerInfoRemove{UUIDs: []uuid.UUID{p.UUID()}})
		remove := &protocol.RemoveEntities{EntityIDs: []int32{p.NetworkID()}}
		for _, q := range w.players {
			if q == nil {
				continue
			}
			qX, qZ := q.ChunkPosition()
			if chunkDistance(qX, qZ, chunkX, chunkZ) <= q.EntityViewRadius() {
				q.WritePacket(remove)
			}
		}
		w.log.Info("Player left.", "name", p.Name(), "uuid", p.UUID())
	}
}

// addPendingEntities rosters the queued entities: slab slot, chunk roster,
// spawn broadcast to the chunk's viewers and network id registration.
func (w *World) addPendingEntities() {
	for _, e := range w.pending {
		index := len(w.entities)
		if n := len(w.freeEntities); n > 0 {
			index = w.freeEntities[n-1]
			w.freeEntities = w.freeEntities[:n-1]
			w.entities[index] = e
		} else {
			w.entities = append(w.entities, e)
		}

		chunkX, chunkZ := e.ChunkPosition()
		if ch := w.Chunk(chunkX, chunkZ); ch != nil {
			e.AttachChunk(ch, ch.AddEntity(index))
			e.View().WriteSpawn(e, ch.EntityViewable())
		}
		for _, id := range e.View().ExposedIDs() {
			w.networkIDs.Put(int64(id), int64(index))
		}
	}
	w.pending = w.pending[:0]
}

// removeEntity despawns a closed entity from the viewers of its chunk and
// frees its slab and roster slots.
func (w *World) removeEntity(index int, e *entity.Entity) {
	for _, id := range e.View().ExposedIDs() {
		w.networkIDs.Del(int64(id))
	}
	if ch := e.Chunk(); ch != nil {
		ch.RemoveEntity(e.ChunkRef())
		despawn := w.despawnScratch[:0]
		e.View().WriteDespawn(e, &despawn, ch.EntityViewable())
		if len(despawn) > 0 {
			_ = ch.EntityViewable().WritePacket(&protocol.RemoveEntities{EntityIDs: despawn})
		}
		w.despawnScratch = despawn[:0]
		e.AttachChunk(nil, chunk.NoEntityRef)
	}
	w.entities[index] = nil
	w.freeEntities = append(w.freeEntities, index)
}

// moveEntity integrates e's velocity with collision, publishes the movement
// to the viewers of its chunk and hands it across chunk rosters when it
// crossed a border.
func (w *World) moveEntity(index int, e *entity.Entity) {
	if vel := e.Velocity(); vel != (mgl64.Vec3{}) {
		moved, hitX, hitY, hitZ := w.Move(e.BBox(), vel)
		e.SetPosition(e.Position().Add(moved))
		if hitX {
			vel[0] = 0
		}
		if hitY {
			vel[1] = 0
		}
		if hitZ {
			vel[2] = 0
		}
		e.SetVelocity(vel)
	}

	if e.Chunk() != nil {
		e.View().UpdatePosition(e)
	}

	fromX, fromZ := e.LastChunkPosition()
	e.StorePosition()
	toX, toZ := e.LastChunkPosition()
	if fromX == toX && fromZ == toZ {
		return
	}

	if ch := e.Chunk(); ch != nil {
		ch.RemoveEntity(e.ChunkRef())
		e.AttachChunk(nil, chunk.NoEntityRef)
	}
	if ch := w.Chunk(toX, toZ); ch != nil {
		e.AttachChunk(ch, ch.AddEntity(index))
	}
	w.publishEntityCrossing(e, fromX, fromZ, toX, toZ)
}

// publishEntityCrossing writes e's spawn to players that gained it in view
// and its despawn to players that lost it. Players keeping it in view
// across the crossing receive nothing; the movement packets already
// published in the old chunk's buffer carry them over.
func (w *World) publishEntityCrossing(e *entity.Entity, fromX, fromZ, toX, toZ int32) {
	for _, q := range w.players {
		if q == nil {
			continue
		}
		qX, qZ := q.ChunkPosition()
		r := q.EntityViewRadius()
		wasIn := chunkDistance(qX, qZ, fromX, fromZ) <= r
		nowIn := chunkDistance(qX, qZ, toX, toZ) <= r
		switch {
		case nowIn && !wasIn:
			e.View().WriteSpawn(e, q.Buffer())
		case wasIn && !nowIn:
			despawn := w.despawnScratch[:0]
			e.View().WriteDespawn(e, &despawn, q.Buffer())
			if len(despawn) > 0 {
				_ = q.Buffer().WritePacket(&protocol.RemoveEntities{EntityIDs: despawn})
			}
			w.despawnScratch = despawn[:0]
		}
	}
}

// PublishCrossing announces p's move between chunk rosters: clients that
// gained p in view receive its spawn, clients that lost it receive its
// despawn. Part of the player.Level surface; the player calls it from its
// own tick after migrating rosters.
func (w *World) PublishCrossing(p *player.Player, fromX, fromZ int32) {
	toX, toZ := p.ChunkPosition()
	remove := &protocol.RemoveEntities{EntityIDs: []int32{p.NetworkID()}}
	for _, q := range w.players {
		if q == nil || q == p {
			continue
		}
		qX, qZ := q.ChunkPosition()
		r := q.EntityViewRadius()
		wasIn := chunkDistance(qX, qZ, fromX, fromZ) <= r
		nowIn := chunkDistance(qX, qZ, toX, toZ) <= r
		switch {
		case nowIn && !wasIn:
			writePlayerSpawn(p, q.Buffer())
		case wasIn && !nowIn:
			q.WritePacket(remove)
		}
	}
}
