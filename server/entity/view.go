package entity

import (
	"math"

	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// ViewController publishes one entity to clients. The world never inspects
// what a controller writes: it only arranges for WriteSpawn and WriteDespawn
// to reach the right players on chunk crossings and for UpdatePosition to run
// once per tick, and it registers the exposed ids in its network id index.
type ViewController interface {
	// WriteSpawn appends the packets that make the entity appear on a
	// client.
	WriteSpawn(e *Entity, buf *protocol.Buffer)
	// WriteDespawn removes the entity from a client. Network ids to remove
	// are appended to despawn and batched by the caller into a single
	// RemoveEntities packet; any other teardown packets go into buf.
	WriteDespawn(e *Entity, despawn *[]int32, buf *protocol.Buffer)
	// UpdatePosition publishes the position and rotation reached this tick
	// to the viewers of the entity's chunk.
	UpdatePosition(e *Entity)
	// ExposedIDs returns every network id the controller publishes.
	ExposedIDs() []int32
	// MainExposedID returns the id clients target to interact with the
	// entity, or false when the entity cannot be targeted.
	MainExposedID() (int32, bool)
}

// SimpleController publishes an entity as a single AddEntity spawn of a fixed
// kind, with movement encoded through a Synchronizer.
type SimpleController struct {
	id   int32
	uuid uuid.UUID
	kind int32
	sync Synchronizer
}

// NewSimpleController returns a controller spawning the entity as the
// registry kind passed, under a fresh network id.
func NewSimpleController(kind int32) *SimpleController {
	id := NextNetworkID()
	return &SimpleController{id: id, uuid: uuid.New(), kind: kind, sync: Synchronizer{ID: id}}
}

// WriteSpawn ...
func (c *SimpleController) WriteSpawn(e *Entity, buf *protocol.Buffer) {
	yaw, pitch := e.Rotation()
	pos := e.Position()
	_ = buf.WritePacket(&protocol.AddEntity{
		EntityID: c.id,
		UUID:     c.uuid,
		Kind:     c.kind,
		X:        pos[0], Y: pos[1], Z: pos[2],
		Pitch:   protocol.DegreesToByte(pitch),
		Yaw:     protocol.DegreesToByte(yaw),
		HeadYaw: protocol.DegreesToByte(yaw),
	})
}

// WriteDespawn ...
func (c *SimpleController) WriteDespawn(e *Entity, despawn *[]int32, buf *protocol.Buffer) {
	*despawn = append(*despawn, c.id)
}

// UpdatePosition ...
func (c *SimpleController) UpdatePosition(e *Entity) {
	if buf := e.viewable(); buf != nil {
		yaw, pitch := e.Rotation()
		c.sync.Sync(buf, e.Position(), yaw, pitch, false)
	}
}

// ExposedIDs ...
func (c *SimpleController) ExposedIDs() []int32 { return []int32{c.id} }

// MainExposedID ...
func (c *SimpleController) MainExposedID() (int32, bool) { return c.id, true }

// quantum is the resolution of relative movement packets: deltas travel as
// signed 16 bit counts of 1/4096th of a block.
const quantum = 4096.0

// Synchronizer tracks the position one published entity id last showed to
// clients and emits, per call, the smallest packet that carries it to the
// live position. The synced position advances by the quantized delta rather
// than snapping to the live position, so movement finer than 1/4096th of a
// block accumulates across ticks instead of being lost. An absolute
// TeleportEntity is forced on the first call, when a delta overflows the
// 16 bit range and at the latest every 21 calls, bounding drift.
type Synchronizer struct {
	// ID is the network id the emitted packets refer to.
	ID int32
	// Head selects an additional RotateHead alongside rotation changes.
	// Player-like entities need it for the client to render the head and
	// body separately.
	Head bool
	// Passengers holds network ids that visually follow this entity's
	// rotation, such as riders. They receive a MoveEntityRot whenever the
	// rotation changes.
	Passengers []int32

	synced       mgl64.Vec3
	spawned      bool
	teleportTime int
	yaw, pitch   uint8
}

// Sync publishes the position and rotation reached this tick into buf.
func (s *Synchronizer) Sync(buf *protocol.Buffer, pos mgl64.Vec3, yaw, pitch float32, onGround bool) {
	bYaw, bPitch := protocol.DegreesToByte(yaw), protocol.DegreesToByte(pitch)
	rotated := bYaw != s.yaw || bPitch != s.pitch

	if !s.spawned {
		s.spawned = true
		s.teleport(buf, pos, bYaw, bPitch, onGround)
		return
	}

	delta := pos.Sub(s.synced)
	s.teleportTime++

	if rotated {
		for _, id := range s.Passengers {
			_ = buf.WritePacket(&protocol.MoveEntityRot{EntityID: id, Yaw: bYaw, Pitch: bPitch, OnGround: onGround})
		}
	}

	if delta == (mgl64.Vec3{}) {
		if rotated {
			_ = buf.WritePacket(&protocol.MoveEntityRot{EntityID: s.ID, Yaw: bYaw, Pitch: bPitch, OnGround: onGround})
			s.rotateHead(buf, bYaw)
			s.yaw, s.pitch = bYaw, bPitch
		}
		return
	}

	q := delta.Mul(quantum)
	if q[0] <= math.MinInt16 || q[0] >= math.MaxInt16 ||
		q[1] <= math.MinInt16 || q[1] >= math.MaxInt16 ||
		q[2] <= math.MinInt16 || q[2] >= math.MaxInt16 || s.teleportTime > 20 {
		s.teleport(buf, pos, bYaw, bPitch, onGround)
		if rotated {
			s.rotateHead(buf, bYaw)
		}
		return
	}

	// Truncate towards zero so that the unsent remainder keeps the sign of
	// the movement and stays below one quantum per axis.
	dx, dy, dz := int16(q[0]), int16(q[1]), int16(q[2])
	s.synced = s.synced.Add(mgl64.Vec3{float64(dx), float64(dy), float64(dz)}.Mul(1 / quantum))

	if rotated {
		_ = buf.WritePacket(&protocol.MoveEntityPosRot{
			EntityID: s.ID,
			DX:       dx, DY: dy, DZ: dz,
			Yaw: bYaw, Pitch: bPitch,
			OnGround: onGround,
		})
		s.rotateHead(buf, bYaw)
		s.yaw, s.pitch = bYaw, bPitch
		return
	}
	_ = buf.WritePacket(&protocol.MoveEntityPos{EntityID: s.ID, DX: dx, DY: dy, DZ: dz, OnGround: onGround})
}

// SyncedPosition returns the position the clients currently display, which
// trails the live position by less than one quantum per axis between
// teleports.
func (s *Synchronizer) SyncedPosition() mgl64.Vec3 { return s.synced }

// teleport publishes an absolute position and resets the drift bookkeeping.
func (s *Synchronizer) teleport(buf *protocol.Buffer, pos mgl64.Vec3, yaw, pitch uint8, onGround bool) {
	_ = buf.WritePacket(&protocol.TeleportEntity{
		EntityID: s.ID,
		X:        pos[0], Y: pos[1], Z: pos[2],
		Yaw: yaw, Pitch: pitch,
		OnGround: onGround,
	})
	s.synced = pos
	s.teleportTime = 0
	s.yaw, s.pitch = yaw, pitch
}

func (s *Synchronizer) rotateHead(buf *protocol.Buffer, yaw uint8) {
	if s.Head {
		_ = buf.WritePacket(&protocol.RotateHead{EntityID: s.ID, HeadYaw: yaw})
	}
}
