// Package player implements the server side player: the packet buffer and
// connection handle, inventory and held item state, teleport confirmation
// tracking, keep alive probing and the per-tick work that publishes the
// player's surroundings to its client.
package player

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/basalt-mc/basalt/server/entity"
	"github.com/basalt-mc/basalt/server/item"
	"github.com/basalt-mc/basalt/server/item/inventory"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/basalt-mc/basalt/server/world/viewdiff"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Conn is the write side of a client connection. Send queues framed bytes
// for delivery and must copy them before returning; Close tears the
// connection down.
type Conn interface {
	Send(b []byte)
	Close()
}

// Level is the surface the player needs from the world it lives in.
type Level interface {
	// Size returns the dimensions of the chunk grid.
	Size() (chunksX, chunksZ int32)
	// GameMode returns the game mode players play in: 0 survival, 1 creative,
	// 2 adventure, 3 spectator.
	GameMode() uint8
	// Chunk returns the chunk at the given chunk coordinates, or nil outside
	// the grid.
	Chunk(x, z int32) *chunk.Chunk
	// EmptyChunk returns the shared empty chunk streamed for out of grid
	// cells.
	EmptyChunk() *chunk.Chunk
	// Block returns the block state at a world position, or false outside
	// the grid.
	Block(pos cube.Pos) (uint16, bool)
	// SetBlock writes a block state at a world position, running the block
	// update rules. Out of grid positions are ignored.
	SetBlock(pos cube.Pos, state uint16)
	// Move slides box by delta through the world's blocks and returns the
	// effective displacement together with the axes that were clipped.
	Move(box cube.BBox, delta mgl64.Vec3) (moved mgl64.Vec3, hitX, hitY, hitZ bool)
	// EntityByNetworkID resolves a network id clients target in interaction
	// packets, or nil when no entity owns it.
	EntityByNetworkID(id int32) *entity.Entity
	// WriteSpawns appends the spawn packets of everything rostered in ch to
	// buf, leaving out exclude.
	WriteSpawns(ch *chunk.Chunk, exclude *Player, buf *protocol.Buffer)
	// WriteDespawns appends the despawn packets of everything rostered in
	// ch, collecting plain entity removals into despawn for batching.
	WriteDespawns(ch *chunk.Chunk, exclude *Player, despawn *[]int32, buf *protocol.Buffer)
	// PublishCrossing announces the player's move between chunk rosters to
	// the other players: those that gained it in view receive its spawn,
	// those that lost it receive its despawn.
	PublishCrossing(p *Player, fromX, fromZ int32)
}

// The player collision box. Movement collides with the crawling height so
// that clients squeezing through gaps are not rubber banded by a taller box
// than the one they predict with.
const (
	width          = 0.6
	height         = 1.8
	crawlingHeight = 0.6
)

// Config holds what it takes to add a player to a world.
type Config struct {
	// Name is the profile name announced to the tab list.
	Name string
	// UUID is the profile id. The zero UUID gets replaced with a random one.
	UUID uuid.UUID
	// Conn is the player's connection. A nil Conn makes a detached player
	// whose buffered packets are discarded on flush, which tests use.
	Conn Conn
	// Handler receives the player's game events. Nil selects NopHandler.
	Handler Handler
	// Log records client anomalies that are tolerated rather than kicked
	// for. Nil defaults to slog.Default().
	Log *slog.Logger
	// ViewRadius and EntityViewRadius are the chunk radii streamed and
	// entity-published to this player.
	ViewRadius, EntityViewRadius int32
}

// New returns a player at pos in the given level. The world attaches it to a
// chunk roster and announces it separately.
func (conf Config) New(level Level, pos mgl64.Vec3) *Player {
	if conf.Handler == nil {
		conf.Handler = NopHandler{}
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.UUID == (uuid.UUID{}) {
		conf.UUID = uuid.New()
	}
	if conf.ViewRadius <= 0 {
		conf.ViewRadius = 8
	}
	conf.ViewRadius = min(max(conf.ViewRadius, 2), 32)
	if conf.EntityViewRadius <= 0 || conf.EntityViewRadius >= conf.ViewRadius {
		conf.EntityViewRadius = conf.ViewRadius - 1
	}
	id := entity.NextNetworkID()
	p := &Player{
		conf:      conf,
		level:     level,
		networkID: id,
		position:  pos,
		yaw:       0, pitch: 0,
		lastPosition: pos,
		lastChunkX:   int32(math.Floor(pos[0])) >> 4,
		lastChunkZ:   int32(math.Floor(pos[2])) >> 4,
		ref:          chunk.NoPlayerRef,
		inv:          inventory.New(),
		sync:         entity.Synchronizer{ID: id, Head: true},
	}
	p.handler = conf.Handler
	return p
}

// Player is one connected player in a world.
type Player struct {
	conf    Config
	level   Level
	handler Handler

	networkID int32
	index     int

	buf protocol.Buffer

	position     mgl64.Vec3
	lastPosition mgl64.Vec3
	yaw, pitch   float32
	onGround     bool

	ch                     *chunk.Chunk
	ref                    chunk.PlayerRef
	lastChunkX, lastChunkZ int32

	inv            *inventory.Inventory
	hotbarSlot     uint8
	heldItem       item.Kind
	sentEquipment  item.Stack
	attackStrength int
	using          *usingItem
	digging        *digging
	meta           metadata
	sync           entity.Synchronizer

	selfEvents         protocol.Buffer
	selfChunk          *chunk.Chunk
	selfFrom, selfTo   int
	pendingTeleport    *pendingTeleport
	ackSequence        int32
	hasAckSequence     bool
	staleAckLogged     bool
	keepAliveTimer     uint8
	keepAliveChallenge int64

	interactedWithEntity bool
	brand                string
}

type pendingTeleport struct {
	awaiting mgl64.Vec3
	id       int32
	ticks    int32
}

type usingItem struct {
	stack item.Stack
	slot  inventory.Slot
	ticks int
}

// Survival block breaks run off hardness alone, at thirty ticks per hardness
// point. Tool and enchantment modifiers are not applied.
const breakTicksPerHardness = 30

type digging struct {
	pos   protocol.BlockPos
	ticks int
	total int
	stage uint8
}

// Name returns the profile name.
func (p *Player) Name() string { return p.conf.Name }

// UUID returns the profile id.
func (p *Player) UUID() uuid.UUID { return p.conf.UUID }

// NetworkID returns the entity id under which the player is published.
func (p *Player) NetworkID() int32 { return p.networkID }

// Brand returns the client brand reported over the minecraft:brand channel,
// such as "vanilla", or an empty string before the client reports one.
func (p *Player) Brand() string { return p.brand }

// Index returns the world slab index assigned through Attach.
func (p *Player) Index() int { return p.index }

// Attach stores the world slab index rostered for this player in chunks.
func (p *Player) Attach(index int) { p.index = index }

// ViewRadius returns the chunk radius streamed to this player.
func (p *Player) ViewRadius() int32 { return p.conf.ViewRadius }

// EntityViewRadius returns the chunk radius within which entities are
// published to this player. It is always smaller than ViewRadius, so
// entities never spawn in chunks the client does not hold.
func (p *Player) EntityViewRadius() int32 { return p.conf.EntityViewRadius }

// Inventory returns the player's inventory window.
func (p *Player) Inventory() *inventory.Inventory { return p.inv }

// HotbarSlot returns the selected hotbar cell.
func (p *Player) HotbarSlot() int { return int(p.hotbarSlot) }

// HeldItem returns the stack in the selected hotbar cell.
func (p *Player) HeldItem() item.Stack {
	return p.inv.Item(inventory.Hotbar(int(p.hotbarSlot)))
}

// Position returns the position last confirmed by movement packets or
// teleports.
func (p *Player) Position() mgl64.Vec3 { return p.position }

// Rotation returns the yaw and pitch in degrees.
func (p *Player) Rotation() (yaw, pitch float32) { return p.yaw, p.pitch }

// OnGround returns the client reported on ground flag.
func (p *Player) OnGround() bool { return p.onGround }

// Connected reports whether the player still has a connection. The world
// evicts players once this turns false.
func (p *Player) Connected() bool { return p.conf.Conn != nil }

// Chunk returns the chunk whose roster the player is on, or nil outside the
// grid.
func (p *Player) Chunk() *chunk.Chunk { return p.ch }

// AttachChunk places the player on a chunk roster. Passing nil detaches it.
func (p *Player) AttachChunk(ch *chunk.Chunk, ref chunk.PlayerRef) {
	p.ch, p.ref = ch, ref
}

// Detach removes the player from its chunk roster. The world calls it when
// evicting the player.
func (p *Player) Detach() {
	if p.ch != nil {
		p.ch.RemovePlayer(p.ref)
		p.ch, p.ref = nil, chunk.NoPlayerRef
	}
}

// ChunkPosition returns the chunk coordinates containing the position.
func (p *Player) ChunkPosition() (x, z int32) {
	return int32(math.Floor(p.position[0])) >> 4, int32(math.Floor(p.position[2])) >> 4
}

// BBox returns the standing collision box at the current position.
func (p *Player) BBox() cube.BBox {
	const half = width / 2
	return cube.Box(
		p.position[0]-half, p.position[1], p.position[2]-half,
		p.position[0]+half, p.position[1]+height, p.position[2]+half,
	)
}

// crawlingBBox is the collision box movement packets are checked against.
func (p *Player) crawlingBBox() cube.BBox {
	const half = width / 2
	return cube.Box(
		p.position[0]-half, p.position[1], p.position[2]-half,
		p.position[0]+half, p.position[1]+crawlingHeight, p.position[2]+half,
	)
}

// Buffer returns the per-client packet buffer. Packets written here reach
// the client on the next flush.
func (p *Player) Buffer() *protocol.Buffer { return &p.buf }

// WritePacket frames pk into the per-client buffer.
func (p *Player) WritePacket(pk protocol.Packet) {
	_ = p.buf.WritePacket(pk)
}

// Flush hands the buffered packet bytes to the connection. Without a
// connection the bytes are dropped.
func (p *Player) Flush() {
	if p.conf.Conn != nil && p.buf.Len() > 0 {
		p.conf.Conn.Send(p.buf.Bytes())
	}
	p.buf.Reset()
}

// Message sends a chat message to the player.
func (p *Player) Message(msg string) {
	p.WritePacket(&protocol.SystemChat{Content: protocol.JSONText(msg)})
}

// Disconnect kicks the player with a chat message reason and drops the
// connection handle.
func (p *Player) Disconnect(reason string) {
	if p.conf.Conn == nil {
		return
	}
	p.WritePacket(&protocol.Disconnect{Reason: protocol.JSONText(reason)})
	p.Flush()
	p.conf.Conn.Close()
	p.conf.Conn = nil
}

// Handle replaces the player's handler at runtime. Passing nil restores
// NopHandler.
func (p *Player) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	p.handler = h
}

// Teleport moves the player to pos, keeping its rotation, and asks the
// client to confirm the new position.
func (p *Player) Teleport(pos mgl64.Vec3) {
	p.TeleportFull(0, 0, pos, protocol.TeleportRelativeYaw|protocol.TeleportRelativePitch)
}

// TeleportFull moves the player to pos with the given rotation. relative
// marks components the client applies as offsets rather than absolutes.
// The position takes effect immediately; movement packets are ignored until
// the client confirms the teleport id, and the request is repeated every 20
// ticks until it does.
func (p *Player) TeleportFull(yaw, pitch float32, pos mgl64.Vec3, relative uint8) {
	id := rand.Int32()
	p.pendingTeleport = &pendingTeleport{awaiting: pos, id: id, ticks: 20}
	p.position = pos
	p.WritePacket(&protocol.PlayerPosition{
		X: pos[0], Y: pos[1], Z: pos[2],
		Yaw: yaw, Pitch: pitch,
		Relative:   relative,
		TeleportID: id,
	})
}

// Tick runs the player's per-tick work: keep alive probing, held item and
// use tracking, inventory and metadata synchronization, teleport expiry and
// chunk crossing work. The buffer is flushed later, at the end of ViewTick.
func (p *Player) Tick() {
	p.handler.HandleTick(p)

	p.keepAliveTimer++
	if p.keepAliveTimer == 0 {
		if p.keepAliveChallenge != 0 {
			p.Disconnect("Timed out")
			return
		}
		p.keepAliveChallenge = rand.Int64()
		p.WritePacket(&protocol.KeepAlive{Challenge: p.keepAliveChallenge})
	}

	p.interactedWithEntity = false

	held := p.HeldItem().Kind()
	if held != p.heldItem {
		p.heldItem = held
		p.attackStrength = 0
		p.handler.HandleAttackStrengthReset(p)
	} else if p.attackStrength < math.MaxInt {
		p.attackStrength++
	}

	if u := p.using; u != nil {
		u.ticks++
		if u.slot == inventory.Hotbar(int(p.hotbarSlot)) && u.stack.Kind() == held {
			switch p.handler.HandleTickUsingItem(p, u.slot, u.ticks) {
			case UseContinue:
			case UseFinish:
				p.meta.setHandFlags(p.meta.handFlags &^ protocol.HandFlagActive)
				p.handler.HandleFinishUsingItem(p, u.slot, u.ticks)
				p.using = nil
			case UseAbort:
				p.abortUsingItem()
			}
		} else {
			p.abortUsingItem()
		}
	}

	p.tickDigging()

	p.inv.Sync(&p.buf)

	if stack := p.HeldItem(); !stack.Equal(p.sentEquipment) {
		p.sentEquipment = stack
		p.writeEquipment(&p.selfEvents, stack)
	}

	if t := p.pendingTeleport; t != nil {
		t.ticks--
		if t.ticks <= 0 {
			t.ticks = 20
			p.WritePacket(&protocol.PlayerPosition{
				X: t.awaiting[0], Y: t.awaiting[1], Z: t.awaiting[2],
				Relative:   protocol.TeleportRelativeYaw | protocol.TeleportRelativePitch,
				TeleportID: t.id,
			})
		}
	}

	p.meta.writeChanges(&p.selfEvents, p.networkID)

	p.publishPosition()
	p.crossChunks()

	p.lastPosition = p.position
}

// publishPosition writes this tick's movement packets and the staged
// animation, equipment and metadata broadcasts into the current chunk's
// entity viewable buffer and records their byte range so that the view tick
// does not echo them back to this player.
func (p *Player) publishPosition() {
	p.selfChunk, p.selfFrom, p.selfTo = nil, 0, 0
	if p.ch == nil {
		p.selfEvents.Reset()
		return
	}
	buf := p.ch.EntityViewable()
	from := buf.Len()
	p.sync.Sync(buf, p.position, p.yaw, p.pitch, p.onGround)
	if p.selfEvents.Len() > 0 {
		buf.WriteFramed(p.selfEvents.Bytes())
		p.selfEvents.Reset()
	}
	if to := buf.Len(); to > from {
		p.selfChunk, p.selfFrom, p.selfTo = p.ch, from, to
	}
}

// crossChunks migrates the player between chunk rosters when its position
// entered another chunk, streams the chunk data and entity spawns that became
// visible and despawns what left the view.
func (p *Player) crossChunks() {
	chunkX, chunkZ := p.ChunkPosition()
	if chunkX == p.lastChunkX && chunkZ == p.lastChunkZ {
		return
	}
	lastX, lastZ := p.lastChunkX, p.lastChunkZ
	p.lastChunkX, p.lastChunkZ = chunkX, chunkZ

	if p.ch != nil {
		p.ch.RemovePlayer(p.ref)
		p.ch, p.ref = nil, chunk.NoPlayerRef
	}
	if ch := p.level.Chunk(chunkX, chunkZ); ch != nil {
		p.ch, p.ref = ch, ch.AddPlayer(p.index)
	}

	p.WritePacket(&protocol.SetChunkCacheCenter{ChunkX: chunkX, ChunkZ: chunkZ})

	deltaX, deltaZ := chunkX-lastX, chunkZ-lastZ
	clip := p.gridClip(lastX, lastZ)

	// Chunk data is streamed one chunk beyond the radius copied each view
	// tick, so a crossing never exposes an unsent chunk.
	viewdiff.ForEach(deltaX, deltaZ, p.conf.ViewRadius+1, viewdiff.NoClip, func(x, z int32, added bool) {
		if !added {
			return
		}
		ch := p.level.Chunk(lastX+x, lastZ+z)
		if ch == nil {
			ch = p.level.EmptyChunk()
		}
		_ = ch.Write(&p.buf, lastX+x, lastZ+z)
	})

	var despawn []int32
	viewdiff.ForEach(deltaX, deltaZ, p.conf.EntityViewRadius, clip, func(x, z int32, added bool) {
		ch := p.level.Chunk(lastX+x, lastZ+z)
		if ch == nil {
			return
		}
		if added {
			p.level.WriteSpawns(ch, p, &p.buf)
		} else {
			p.level.WriteDespawns(ch, p, &despawn, &p.buf)
		}
	})
	if len(despawn) > 0 {
		p.WritePacket(&protocol.RemoveEntities{EntityIDs: despawn})
	}

	p.level.PublishCrossing(p, lastX, lastZ)
}

// gridClip returns the world grid as a rectangle relative to the chunk
// origin ox, oz.
func (p *Player) gridClip(ox, oz int32) viewdiff.Rect {
	chunksX, chunksZ := p.level.Size()
	return viewdiff.Rect{
		MinX: -ox, MinZ: -oz,
		MaxX: chunksX - 1 - ox, MaxZ: chunksZ - 1 - oz,
	}
}

// ViewTick copies the broadcast buffers of every chunk in view into the
// player's buffer, emits the pending block change ack and flushes the buffer
// to the connection. It runs after all movement of the tick has been
// published, so everything the tick wrote leaves in a single flush.
func (p *Player) ViewTick() {
	chunkX, chunkZ := p.ChunkPosition()
	chunksX, chunksZ := p.level.Size()

	view := p.conf.ViewRadius + 1
	for x := max(chunkX-view, 0); x < min(chunkX+view+1, chunksX); x++ {
		for z := max(chunkZ-view, 0); z < min(chunkZ+view+1, chunksZ); z++ {
			p.level.Chunk(x, z).CopyViewable(&p.buf)
		}
	}

	view = p.conf.EntityViewRadius
	for x := max(chunkX-view, 0); x < min(chunkX+view+1, chunksX); x++ {
		for z := max(chunkZ-view, 0); z < min(chunkZ+view+1, chunksZ); z++ {
			ch := p.level.Chunk(x, z)
			skipFrom, skipTo := 0, 0
			if ch == p.selfChunk {
				skipFrom, skipTo = p.selfFrom, p.selfTo
			}
			ch.CopyEntityViewable(&p.buf, skipFrom, skipTo)
		}
	}

	if p.hasAckSequence {
		p.WritePacket(&protocol.BlockChangedAck{Sequence: p.ackSequence})
		p.hasAckSequence = false
	}

	p.Flush()
}

// startDigging begins a block break at pos. Creative mode and blocks that
// break within a single tick destroy immediately; unbreakable blocks are
// ignored.
func (p *Player) startDigging(pos protocol.BlockPos) {
	p.stopDigging(true)
	state, ok := p.level.Block(cube.Pos{pos.X, pos.Y, pos.Z})
	if !ok || state == 0 {
		return
	}
	hardness := block.AttributesOf(state).Hardness
	if p.level.GameMode() == 1 || hardness == 0 {
		p.destroyBlock(pos)
		return
	}
	if hardness < 0 {
		return
	}
	p.digging = &digging{pos: pos, total: max(int(hardness*breakTicksPerHardness), 1)}
	p.broadcastDigging(pos, 0)
}

// tickDigging advances a running block break, publishing the crack overlay
// stage whenever it changes. The break completes when the client reports it
// finished, not on a server timer.
func (p *Player) tickDigging() {
	d := p.digging
	if d == nil {
		return
	}
	d.ticks++
	if stage := uint8(min(d.ticks*10/d.total, 9)); stage != d.stage {
		d.stage = stage
		p.broadcastDigging(d.pos, stage)
	}
}

// finishDigging completes the block break the client reports finished. A
// report for a position other than the one being dug only clears the overlay.
func (p *Player) finishDigging(pos protocol.BlockPos) {
	d := p.digging
	if d == nil {
		return
	}
	if d.pos != pos {
		p.stopDigging(true)
		return
	}
	p.digging = nil
	p.destroyBlock(pos)
}

// stopDigging drops a running block break. clear removes the overlay from
// viewers; a break that destroyed its block has no overlay left to remove.
func (p *Player) stopDigging(clear bool) {
	d := p.digging
	p.digging = nil
	if d != nil && clear {
		p.broadcastDigging(d.pos, 255)
	}
}

// broadcastDigging shows the crack overlay at stage to everyone with the
// block's chunk in view. Overlays are keyed by digger, so the echo to the
// digging client merges with its own prediction instead of fighting it.
func (p *Player) broadcastDigging(pos protocol.BlockPos, stage uint8) {
	if ch := p.level.Chunk(pos.X>>4, pos.Z>>4); ch != nil {
		_ = ch.Viewable().WritePacket(&protocol.BlockDestruction{
			EntityID: p.networkID,
			Pos:      pos,
			Progress: stage,
		})
	}
}

func (p *Player) writeEquipment(buf *protocol.Buffer, stack item.Stack) {
	_ = buf.WritePacket(&protocol.SetEquipment{
		EntityID: p.networkID,
		Entries:  []protocol.EquipmentEntry{{Slot: protocol.EquipmentMainHand, Item: stack.Proto()}},
	})
}

// WriteSpawnState appends the equipment and metadata a player entity carries,
// following its spawn packets, so clients gaining it in view mid-session see
// its held item and pose.
func (p *Player) WriteSpawnState(buf *protocol.Buffer) {
	if held := p.HeldItem(); !held.Empty() {
		p.writeEquipment(buf, held)
	}
	p.meta.writeCurrent(buf, p.networkID)
}

// abortUsingItem cancels a running held item use, if any.
func (p *Player) abortUsingItem() {
	if p.using != nil {
		p.handler.HandleAbortUsingItem(p)
		p.meta.setHandFlags(p.meta.handFlags &^ protocol.HandFlagActive)
		p.using = nil
	}
}

// beginUsingItem starts a held use of the current hotbar stack if the
// handler accepts it. A use already running on the same slot and item keeps
// going.
func (p *Player) beginUsingItem(hand protocol.Hand) bool {
	slot := inventory.Hotbar(int(p.hotbarSlot))
	stack := p.inv.Item(slot)
	if stack.Empty() {
		return false
	}
	if u := p.using; u != nil {
		if u.slot == slot && u.stack.Kind() == stack.Kind() {
			return true
		}
		p.abortUsingItem()
	}
	if p.handler.HandleUseItem(p, hand) {
		flags := p.meta.handFlags | protocol.HandFlagActive
		if hand == protocol.HandOff {
			flags |= protocol.HandFlagOffHand
		} else {
			flags &^= protocol.HandFlagOffHand
		}
		p.meta.setHandFlags(flags)
		p.using = &usingItem{stack: stack, slot: slot}
		return true
	}
	return false
}
