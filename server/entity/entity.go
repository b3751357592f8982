package entity

import (
	"math"
	"sync/atomic"

	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
)

// networkID is the source of the entity ids sent to clients. Ids start at 1
// because several packets use id 0 to refer to the receiving player itself.
var networkID atomic.Int32

// NextNetworkID returns a fresh network id for use in spawn packets.
func NextNetworkID() int32 {
	return networkID.Add(1)
}

// Behaviour implements the domain logic of an entity, such as movement
// impulses, timers and reactions to blocks around it. The world calls Tick
// once per server tick, before collision is resolved and before the entity's
// view controller publishes the resulting position.
type Behaviour interface {
	Tick(e *Entity)
}

// NopBehaviour implements Behaviour and does nothing.
type NopBehaviour struct{}

// Tick ...
func (NopBehaviour) Tick(*Entity) {}

// Config holds the properties fixed over an entity's lifetime. Zero values
// produce an inert, invisible entity, so at least Kind and the collision
// extents should be set.
type Config struct {
	// Kind is the registry id of the entity type written in spawn packets.
	Kind int32
	// Width and Height span the entity's collision box. The box is centred
	// on the position along x and z and extends upwards from it.
	Width, Height float64
	// Behaviour is ticked every server tick. Nil behaves like NopBehaviour.
	Behaviour Behaviour
	// View publishes the entity to clients. If nil, a SimpleController for
	// Kind is created.
	View ViewController
}

// New creates an entity at the position passed. The entity is not part of any
// world until it is added to one.
func (conf Config) New(pos mgl64.Vec3) *Entity {
	e := &Entity{
		conf:         conf,
		view:         conf.View,
		position:     pos,
		lastPosition: pos,
		lastChunkX:   int32(math.Floor(pos[0])) >> 4,
		lastChunkZ:   int32(math.Floor(pos[2])) >> 4,
		ref:          chunk.NoEntityRef,
	}
	if e.view == nil {
		e.view = NewSimpleController(conf.Kind)
	}
	return e
}

// Entity is a world object with a position, a velocity and a view controller
// that publishes it to nearby clients. All other behaviour is supplied
// through Config.Behaviour. Entities are owned by the world tick goroutine
// and none of the methods below are safe for concurrent use.
type Entity struct {
	conf Config
	view ViewController

	position mgl64.Vec3
	velocity mgl64.Vec3
	yaw      float32
	pitch    float32

	lastPosition mgl64.Vec3
	lastChunkX   int32
	lastChunkZ   int32

	ch  *chunk.Chunk
	ref chunk.EntityRef

	closed bool
}

// Position returns the current position of the entity.
func (e *Entity) Position() mgl64.Vec3 { return e.position }

// SetPosition moves the entity without any collision checks. Chunk crossings
// implied by the move are picked up by the world on the next tick.
func (e *Entity) SetPosition(pos mgl64.Vec3) { e.position = pos }

// Velocity returns the movement applied to the entity every tick, in blocks
// per tick.
func (e *Entity) Velocity() mgl64.Vec3 { return e.velocity }

// SetVelocity sets the movement applied to the entity every tick.
func (e *Entity) SetVelocity(vel mgl64.Vec3) { e.velocity = vel }

// Rotation returns the yaw and pitch of the entity in degrees.
func (e *Entity) Rotation() (yaw, pitch float32) { return e.yaw, e.pitch }

// SetRotation sets the yaw and pitch of the entity in degrees.
func (e *Entity) SetRotation(yaw, pitch float32) {
	e.yaw, e.pitch = yaw, pitch
}

// BBox returns the collision box of the entity at its current position.
func (e *Entity) BBox() cube.BBox {
	half := e.conf.Width / 2
	return cube.Box(
		e.position[0]-half, e.position[1], e.position[2]-half,
		e.position[0]+half, e.position[1]+e.conf.Height, e.position[2]+half,
	)
}

// View returns the view controller publishing the entity to clients.
func (e *Entity) View() ViewController { return e.view }

// Tick runs the entity's behaviour hook. The world drives collision, view
// publication and chunk crossing after the hook has run.
func (e *Entity) Tick() {
	if e.conf.Behaviour != nil {
		e.conf.Behaviour.Tick(e)
	}
}

// Close marks the entity for removal. The world despawns it from viewers and
// drops it from its rosters at the next tick.
func (e *Entity) Close() error {
	e.closed = true
	return nil
}

// Closed reports whether Close was called.
func (e *Entity) Closed() bool { return e.closed }

// Chunk returns the chunk the entity is attached to, or nil when it stands
// outside the world grid.
func (e *Entity) Chunk() *chunk.Chunk { return e.ch }

// ChunkRef returns the roster handle of the entity within Chunk.
func (e *Entity) ChunkRef() chunk.EntityRef { return e.ref }

// AttachChunk binds the entity to a roster slot of ch. Passing a nil chunk
// with chunk.NoEntityRef detaches it.
func (e *Entity) AttachChunk(ch *chunk.Chunk, ref chunk.EntityRef) {
	e.ch, e.ref = ch, ref
}

// ChunkPosition returns the chunk coordinates the entity currently stands in.
func (e *Entity) ChunkPosition() (x, z int32) {
	return int32(math.Floor(e.position[0])) >> 4, int32(math.Floor(e.position[2])) >> 4
}

// LastChunkPosition returns the chunk coordinates committed at the end of the
// previous tick. A difference with ChunkPosition marks a chunk crossing.
func (e *Entity) LastChunkPosition() (x, z int32) {
	return e.lastChunkX, e.lastChunkZ
}

// StorePosition commits the current position as the reference for the next
// tick's chunk crossing checks.
func (e *Entity) StorePosition() {
	e.lastPosition = e.position
	e.lastChunkX = int32(math.Floor(e.lastPosition[0])) >> 4
	e.lastChunkZ = int32(math.Floor(e.lastPosition[2])) >> 4
}

// viewable returns the entity-viewable broadcast buffer of the entity's
// chunk, or nil when the entity stands outside the world grid.
func (e *Entity) viewable() *protocol.Buffer {
	if e.ch == nil {
		return nil
	}
	return e.ch.EntityViewable()
}
