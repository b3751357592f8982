package player

import (
	"math"
	"testing"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/basalt-mc/basalt/server/entity"
	"github.com/basalt-mc/basalt/server/item"
	"github.com/basalt-mc/basalt/server/item/inventory"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
)

// fakeLevel is a minimal Level: a 4x4 chunk grid with a block map and
// pass-through movement that tests can replace per case.
type fakeLevel struct {
	chunks   map[[2]int32]*chunk.Chunk
	empty    *chunk.Chunk
	blocks   map[cube.Pos]uint16
	gameMode uint8
	moveFn   func(box cube.BBox, delta mgl64.Vec3) (mgl64.Vec3, bool, bool, bool)
}

func newFakeLevel() *fakeLevel {
	return &fakeLevel{
		chunks: map[[2]int32]*chunk.Chunk{},
		empty:  chunk.New(4),
		blocks: map[cube.Pos]uint16{},
	}
}

func (l *fakeLevel) Size() (int32, int32) { return 4, 4 }

func (l *fakeLevel) GameMode() uint8 { return l.gameMode }

func (l *fakeLevel) Chunk(x, z int32) *chunk.Chunk {
	if x < 0 || z < 0 || x >= 4 || z >= 4 {
		return nil
	}
	key := [2]int32{x, z}
	ch, ok := l.chunks[key]
	if !ok {
		ch = chunk.New(4)
		l.chunks[key] = ch
	}
	return ch
}

func (l *fakeLevel) EmptyChunk() *chunk.Chunk { return l.empty }

func (l *fakeLevel) Block(pos cube.Pos) (uint16, bool) {
	if pos[0] < 0 || pos[2] < 0 || pos[0] >= 64 || pos[2] >= 64 || pos[1] < 0 || pos[1] >= 64 {
		return 0, false
	}
	return l.blocks[pos], true
}

func (l *fakeLevel) SetBlock(pos cube.Pos, state uint16) { l.blocks[pos] = state }

func (l *fakeLevel) Move(box cube.BBox, delta mgl64.Vec3) (mgl64.Vec3, bool, bool, bool) {
	if l.moveFn != nil {
		return l.moveFn(box, delta)
	}
	return delta, false, false, false
}

func (l *fakeLevel) EntityByNetworkID(id int32) *entity.Entity { return nil }

func (l *fakeLevel) WriteSpawns(ch *chunk.Chunk, exclude *Player, buf *protocol.Buffer) {}

func (l *fakeLevel) WriteDespawns(ch *chunk.Chunk, exclude *Player, despawn *[]int32, buf *protocol.Buffer) {
}

func (l *fakeLevel) PublishCrossing(p *Player, fromX, fromZ int32) {}

type recordConn struct {
	flushes [][]byte
	closed  bool
}

func (c *recordConn) Send(b []byte) { c.flushes = append(c.flushes, append([]byte(nil), b...)) }
func (c *recordConn) Close()        { c.closed = true }

// newTestPlayer returns a player standing at (24, 10, 24), attached to its
// chunk the way the world attaches joining players.
func newTestPlayer(t *testing.T, conn Conn) (*Player, *fakeLevel) {
	t.Helper()
	l := newFakeLevel()
	p := Config{Name: "Steve", Conn: conn, ViewRadius: 2}.New(l, mgl64.Vec3{24, 10, 24})
	p.Attach(0)
	ch := l.Chunk(1, 1)
	p.AttachChunk(ch, ch.AddPlayer(0))
	return p, l
}

func movePosPayload(x, y, z float64, onGround bool) []byte {
	b := make([]byte, 25)
	n := protocol.PutFloat64(b, x)
	n += protocol.PutFloat64(b[n:], y)
	n += protocol.PutFloat64(b[n:], z)
	n += protocol.PutBool(b[n:], onGround)
	return b[:n]
}

func movePosRotPayload(x, y, z float64, yaw, pitch float32, onGround bool) []byte {
	b := make([]byte, 33)
	n := protocol.PutFloat64(b, x)
	n += protocol.PutFloat64(b[n:], y)
	n += protocol.PutFloat64(b[n:], z)
	n += protocol.PutFloat32(b[n:], yaw)
	n += protocol.PutFloat32(b[n:], pitch)
	n += protocol.PutBool(b[n:], onGround)
	return b[:n]
}

func TestAcceptTeleportation(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	dst := mgl64.Vec3{30, 12, 30}
	p.Teleport(dst)
	if p.pendingTeleport == nil {
		t.Fatalf("teleport left no pending confirmation")
	}
	id := p.pendingTeleport.id

	var b [5]byte
	n := protocol.PutVarInt(b[:], id+1)
	if err := p.HandlePacket(protocol.IDAcceptTeleportation, b[:n]); err == nil {
		t.Fatalf("wrong teleport id accepted without error")
	}
	if p.pendingTeleport == nil {
		t.Fatalf("wrong teleport id confirmed the teleport")
	}

	n = protocol.PutVarInt(b[:], id)
	if err := p.HandlePacket(protocol.IDAcceptTeleportation, b[:n]); err != nil {
		t.Fatalf("teleport confirmation errored: %v", err)
	}
	if p.pendingTeleport != nil {
		t.Fatalf("teleport still pending after confirmation")
	}
	if p.Position() != dst {
		t.Fatalf("position is %v after confirmation, want %v", p.Position(), dst)
	}

	// The re-send race makes duplicate accepts for a confirmed teleport
	// normal; they pass without effect.
	if err := p.HandlePacket(protocol.IDAcceptTeleportation, b[:n]); err != nil {
		t.Fatalf("duplicate confirmation errored: %v", err)
	}
}

func TestMovementIgnoredDuringTeleport(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	dst := mgl64.Vec3{30, 12, 30}
	p.Teleport(dst)

	if err := p.HandlePacket(protocol.IDMovePlayerPos, movePosPayload(31, 12, 30, true)); err != nil {
		t.Fatalf("move during teleport errored: %v", err)
	}
	if p.Position() != dst {
		t.Fatalf("move during pending teleport shifted the position to %v", p.Position())
	}
	if p.OnGround() {
		t.Fatalf("move during pending teleport applied the on ground flag")
	}

	var b [5]byte
	n := protocol.PutVarInt(b[:], p.pendingTeleport.id)
	if err := p.HandlePacket(protocol.IDAcceptTeleportation, b[:n]); err != nil {
		t.Fatalf("teleport confirmation errored: %v", err)
	}
	if err := p.HandlePacket(protocol.IDMovePlayerPos, movePosPayload(30.5, 12, 30, true)); err != nil {
		t.Fatalf("move after confirmation errored: %v", err)
	}
	if p.Position() != (mgl64.Vec3{30.5, 12, 30}) {
		t.Fatalf("position is %v after move, want (30.5, 12, 30)", p.Position())
	}
	if !p.OnGround() {
		t.Fatalf("on ground flag not applied after move")
	}
}

func TestMoveAppliesRotation(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	if err := p.HandlePacket(protocol.IDMovePlayerPosRot, movePosRotPayload(24.5, 10, 24, 90, 45, true)); err != nil {
		t.Fatalf("move errored: %v", err)
	}
	yaw, pitch := p.Rotation()
	if yaw != 90 || pitch != 45 {
		t.Fatalf("rotation is %v/%v, want 90/45", yaw, pitch)
	}
	if p.Position() != (mgl64.Vec3{24.5, 10, 24}) {
		t.Fatalf("position is %v, want (24.5, 10, 24)", p.Position())
	}
}

// TestMoveRubberBand sends a move over ten blocks long. The position must
// not change and the player is teleported back.
func TestMoveRubberBand(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	start := p.Position()

	if err := p.HandlePacket(protocol.IDMovePlayerPos, movePosPayload(35, 10, 24, true)); err != nil {
		t.Fatalf("oversized move errored: %v", err)
	}
	if p.Position() != start {
		t.Fatalf("oversized move shifted the position to %v", p.Position())
	}
	if p.pendingTeleport == nil {
		t.Fatalf("oversized move did not teleport the client back")
	}
	if p.pendingTeleport.awaiting != start {
		t.Fatalf("rubber band teleports to %v, want %v", p.pendingTeleport.awaiting, start)
	}
	if p.OnGround() {
		t.Fatalf("rejected move applied the on ground flag")
	}
}

// TestMoveCollisionCut reports a move that collision cuts materially short;
// the player is teleported onto the position that was actually reachable.
func TestMoveCollisionCut(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	l.moveFn = func(box cube.BBox, delta mgl64.Vec3) (mgl64.Vec3, bool, bool, bool) {
		return mgl64.Vec3{0, -0.125, 0}, false, true, false
	}

	if err := p.HandlePacket(protocol.IDMovePlayerPos, movePosPayload(24, 9, 24, true)); err != nil {
		t.Fatalf("move errored: %v", err)
	}
	if p.Position() != (mgl64.Vec3{24, 9.875, 24}) {
		t.Fatalf("position is %v after clipped move, want (24, 9.875, 24)", p.Position())
	}
	if p.pendingTeleport == nil {
		t.Fatalf("materially clipped move did not teleport the client")
	}
	if !p.OnGround() {
		t.Fatalf("accepted move did not apply the on ground flag")
	}
}

func TestInvalidMovementRejected(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	for _, c := range []struct {
		name    string
		id      byte
		payload []byte
	}{
		{"nan x", protocol.IDMovePlayerPos, movePosPayload(math.NaN(), 10, 24, false)},
		{"inf z", protocol.IDMovePlayerPos, movePosPayload(24, 10, math.Inf(1), false)},
		{"pitch over", protocol.IDMovePlayerPosRot, movePosRotPayload(24, 10, 24, 0, 91, false)},
		{"pitch under", protocol.IDMovePlayerPosRot, movePosRotPayload(24, 10, 24, 0, -91, false)},
		{"nan yaw", protocol.IDMovePlayerPosRot, movePosRotPayload(24, 10, 24, float32(math.NaN()), 0, false)},
	} {
		if err := p.HandlePacket(c.id, c.payload); err == nil {
			t.Fatalf("%v: invalid movement accepted", c.name)
		}
	}

	// The pitch boundary itself is legitimate.
	if err := p.HandlePacket(protocol.IDMovePlayerPosRot, movePosRotPayload(24, 10, 24, 0, 90, false)); err != nil {
		t.Fatalf("pitch 90 rejected: %v", err)
	}
}

func TestKeepAlive(t *testing.T) {
	rec := &recordConn{}
	p, _ := newTestPlayer(t, rec)

	// The probe fires when the tick counter wraps.
	p.keepAliveTimer = 255
	p.Tick()
	challenge := p.keepAliveChallenge
	if challenge == 0 {
		t.Fatalf("keep alive tick issued no challenge")
	}

	var b [8]byte
	protocol.PutInt64(b[:], challenge+1)
	if err := p.HandlePacket(protocol.IDServKeepAlive, b[:]); err != nil {
		t.Fatalf("wrong keep alive echo errored: %v", err)
	}
	if p.keepAliveChallenge != challenge {
		t.Fatalf("wrong echo cleared the challenge")
	}

	protocol.PutInt64(b[:], challenge)
	if err := p.HandlePacket(protocol.IDServKeepAlive, b[:]); err != nil {
		t.Fatalf("keep alive echo errored: %v", err)
	}
	if p.keepAliveChallenge != 0 {
		t.Fatalf("matching echo left the challenge standing")
	}

	// A second probe with the first still unanswered times the player out.
	p.keepAliveTimer = 255
	p.Tick()
	p.keepAliveTimer = 255
	p.Tick()
	if !rec.closed {
		t.Fatalf("unanswered keep alive did not disconnect the player")
	}
	if p.Connected() {
		t.Fatalf("timed out player still reports a connection")
	}
}

func TestHotbarSwitch(t *testing.T) {
	p, _ := newTestPlayer(t, nil)

	var b [2]byte
	protocol.PutInt16(b[:], 3)
	if err := p.HandlePacket(protocol.IDSetCarriedItem, b[:]); err != nil {
		t.Fatalf("hotbar switch errored: %v", err)
	}
	if got := p.HotbarSlot(); got != 3 {
		t.Fatalf("hotbar slot is %v, want 3", got)
	}

	protocol.PutInt16(b[:], 9)
	if err := p.HandlePacket(protocol.IDSetCarriedItem, b[:]); err == nil {
		t.Fatalf("hotbar slot 9 accepted")
	}
	protocol.PutInt16(b[:], -1)
	if err := p.HandlePacket(protocol.IDSetCarriedItem, b[:]); err == nil {
		t.Fatalf("hotbar slot -1 accepted")
	}
}

func TestBrandPayload(t *testing.T) {
	p, _ := newTestPlayer(t, nil)

	b := make([]byte, 64)
	n := protocol.PutString(b, "minecraft:brand")
	n += protocol.PutString(b[n:], "vanilla")
	if err := p.HandlePacket(protocol.IDServCustomPayload, b[:n]); err != nil {
		t.Fatalf("brand payload errored: %v", err)
	}
	if got := p.Brand(); got != "vanilla" {
		t.Fatalf("brand is %q, want vanilla", got)
	}

	// Unknown channels are ignored, whatever their payload.
	n = protocol.PutString(b, "some:channel")
	b[n] = 0xff
	if err := p.HandlePacket(protocol.IDServCustomPayload, b[:n+1]); err != nil {
		t.Fatalf("unknown channel errored: %v", err)
	}
	if got := p.Brand(); got != "vanilla" {
		t.Fatalf("unknown channel changed the brand to %q", got)
	}
}

func TestUnknownPacketIgnored(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	if err := p.HandlePacket(0x7f, nil); err != nil {
		t.Fatalf("unknown packet id errored: %v", err)
	}

	// Trailing bytes on a known non-greedy packet are a protocol violation.
	var b [6]byte
	n := protocol.PutVarInt(b[:], 1)
	b[n] = 0
	if err := p.HandlePacket(protocol.IDAcceptTeleportation, b[:n+1]); err == nil {
		t.Fatalf("trailing bytes accepted")
	}
}

func TestStatusOnlyMove(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	var b [1]byte
	protocol.PutBool(b[:], true)
	if err := p.HandlePacket(protocol.IDMovePlayerStatusOnly, b[:]); err != nil {
		t.Fatalf("status only move errored: %v", err)
	}
	if !p.OnGround() {
		t.Fatalf("status only move did not set on ground")
	}
}

func handActionPayload(action protocol.HandAction, pos protocol.BlockPos, seq int32) []byte {
	b := make([]byte, 32)
	n := protocol.PutVarInt(b, int32(action))
	n += protocol.PutBlockPos(b[n:], pos)
	n += protocol.PutUint8(b[n:], uint8(protocol.FaceUp))
	n += protocol.PutVarInt(b[n:], seq)
	return b[:n]
}

func TestStaleAckSequenceDropped(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	pos := protocol.BlockPos{X: 24, Y: 10, Z: 24}

	for _, c := range []struct {
		seq  int32
		want int32
	}{
		{11, 11},
		{5, 11},
		{12, 12},
	} {
		if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.AbortDestroyBlock, pos, c.seq)); err != nil {
			t.Fatalf("hand action with sequence %v errored: %v", c.seq, err)
		}
		if !p.hasAckSequence || p.ackSequence != c.want {
			t.Fatalf("after sequence %v the pending ack is %v, want %v", c.seq, p.ackSequence, c.want)
		}
	}

	// Once a view tick echoed the watermark, lower sequences are fresh again.
	p.hasAckSequence = false
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.AbortDestroyBlock, pos, 3)); err != nil {
		t.Fatalf("hand action after echo errored: %v", err)
	}
	if !p.hasAckSequence || p.ackSequence != 3 {
		t.Fatalf("fresh sequence after echo recorded %v, want 3", p.ackSequence)
	}
}

// packetFrames splits a packet buffer into frames and returns those carrying
// the given packet id.
func packetFrames(t *testing.T, buf *protocol.Buffer, id byte) [][]byte {
	t.Helper()
	var out [][]byte
	r := protocol.NewReader(buf.Bytes())
	for r.Remaining() > 0 {
		frame := r.Bytes(int(r.VarInt()))
		if err := r.Err(); err != nil {
			t.Fatalf("corrupt frame stream: %v", err)
		}
		if len(frame) > 0 && frame[0] == id {
			out = append(out, frame)
		}
	}
	return out
}

func decodeDestruction(t *testing.T, frame []byte) (entityID int32, pos protocol.BlockPos, progress uint8) {
	t.Helper()
	r := protocol.NewReader(frame[1:])
	entityID = r.VarInt()
	pos = r.BlockPos()
	progress = r.Uint8()
	if err := r.Err(); err != nil {
		t.Fatalf("corrupt block destruction frame: %v", err)
	}
	return entityID, pos, progress
}

func TestSwingBroadcast(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	ch := l.Chunk(1, 1)

	var b [5]byte
	n := protocol.PutVarInt(b[:], int32(protocol.HandMain))
	if err := p.HandlePacket(protocol.IDSwing, b[:n]); err != nil {
		t.Fatalf("swing errored: %v", err)
	}
	p.Tick()

	frames := packetFrames(t, ch.EntityViewable(), protocol.IDAnimateEntity)
	if len(frames) != 1 {
		t.Fatalf("swing staged %d animation frames, want 1", len(frames))
	}
	r := protocol.NewReader(frames[0][1:])
	if id := r.VarInt(); id != p.NetworkID() {
		t.Fatalf("animation is for entity %v, want %v", id, p.NetworkID())
	}
	if anim := r.Uint8(); anim != protocol.AnimationSwingMainArm {
		t.Fatalf("animation is %v, want the main arm swing", anim)
	}
	// The broadcast must sit inside the range skipped for the player itself.
	if p.selfChunk != ch || p.selfTo != ch.EntityViewable().Len() {
		t.Fatalf("swing broadcast not covered by the self skip range")
	}

	ch.ClearViewable()
	n = protocol.PutVarInt(b[:], int32(protocol.HandOff))
	if err := p.HandlePacket(protocol.IDSwing, b[:n]); err != nil {
		t.Fatalf("off hand swing errored: %v", err)
	}
	p.Tick()
	frames = packetFrames(t, ch.EntityViewable(), protocol.IDAnimateEntity)
	if len(frames) != 1 {
		t.Fatalf("off hand swing staged %d animation frames, want 1", len(frames))
	}
	r = protocol.NewReader(frames[0][1:])
	r.VarInt()
	if anim := r.Uint8(); anim != protocol.AnimationSwingOffHand {
		t.Fatalf("animation is %v, want the off hand swing", anim)
	}
}

func TestHeldItemChangeBroadcast(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	ch := l.Chunk(1, 1)

	p.Inventory().SetItem(inventory.Hotbar(0), item.NewStack(item.Stone, 1))
	p.Tick()
	frames := packetFrames(t, ch.EntityViewable(), protocol.IDSetEquipment)
	if len(frames) != 1 {
		t.Fatalf("held item change staged %d equipment frames, want 1", len(frames))
	}
	r := protocol.NewReader(frames[0][1:])
	if id := r.VarInt(); id != p.NetworkID() {
		t.Fatalf("equipment is for entity %v, want %v", id, p.NetworkID())
	}
	if slot := r.Uint8(); slot != protocol.EquipmentMainHand {
		t.Fatalf("equipment slot is %v, want the main hand", slot)
	}
	if !r.Bool() {
		t.Fatalf("equipment stack not present")
	}
	if kind := r.VarInt(); kind != int32(item.Stone) {
		t.Fatalf("equipment item is %v, want stone", kind)
	}

	// An unchanged held item stages nothing.
	ch.ClearViewable()
	p.Tick()
	if frames := packetFrames(t, ch.EntityViewable(), protocol.IDSetEquipment); len(frames) != 0 {
		t.Fatalf("unchanged held item staged %d equipment frames", len(frames))
	}

	// Switching to an empty hotbar cell clears the shown equipment.
	ch.ClearViewable()
	var slot [2]byte
	protocol.PutInt16(slot[:], 1)
	if err := p.HandlePacket(protocol.IDSetCarriedItem, slot[:]); err != nil {
		t.Fatalf("hotbar switch errored: %v", err)
	}
	p.Tick()
	frames = packetFrames(t, ch.EntityViewable(), protocol.IDSetEquipment)
	if len(frames) != 1 {
		t.Fatalf("switch to empty cell staged %d equipment frames, want 1", len(frames))
	}
	r = protocol.NewReader(frames[0][1:])
	r.VarInt()
	r.Uint8()
	if r.Bool() {
		t.Fatalf("equipment still present after switching to an empty cell")
	}
}

func TestSneakBroadcast(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	ch := l.Chunk(1, 1)

	b := make([]byte, 16)
	n := protocol.PutVarInt(b, p.NetworkID())
	n += protocol.PutVarInt(b[n:], int32(protocol.PressShiftKey))
	n += protocol.PutVarInt(b[n:], 0)
	if err := p.HandlePacket(protocol.IDPlayerMoveAction, b[:n]); err != nil {
		t.Fatalf("sneak action errored: %v", err)
	}
	p.Tick()
	frames := packetFrames(t, ch.EntityViewable(), protocol.IDSetEntityData)
	if len(frames) != 1 {
		t.Fatalf("sneak staged %d metadata frames, want 1", len(frames))
	}
	r := protocol.NewReader(frames[0][1:])
	if id := r.VarInt(); id != p.NetworkID() {
		t.Fatalf("metadata is for entity %v, want %v", id, p.NetworkID())
	}

	// The metadata is clean again: another tick stages nothing.
	ch.ClearViewable()
	p.Tick()
	if frames := packetFrames(t, ch.EntityViewable(), protocol.IDSetEntityData); len(frames) != 0 {
		t.Fatalf("clean metadata staged %d frames", len(frames))
	}

	// A spawn written for a late viewer carries the sneaking state.
	var spawn protocol.Buffer
	p.WriteSpawnState(&spawn)
	if frames := packetFrames(t, &spawn, protocol.IDSetEntityData); len(frames) != 1 {
		t.Fatalf("spawn state carries %d metadata frames, want 1", len(frames))
	}
}

func TestDiggingProgress(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	pos := protocol.BlockPos{X: 8, Y: 10, Z: 8}
	bp := cube.Pos{8, 10, 8}
	l.blocks[bp] = block.Stone.DefaultState()
	ch := l.Chunk(0, 0)

	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StartDestroyBlock, pos, 11)); err != nil {
		t.Fatalf("start digging errored: %v", err)
	}
	if p.digging == nil {
		t.Fatalf("start did not begin digging")
	}
	if got := p.digging.total; got != 45 {
		t.Fatalf("stone digs for %v ticks, want 45", got)
	}
	if !p.hasAckSequence || p.ackSequence != 11 {
		t.Fatalf("hand action did not record ack sequence 11")
	}
	frames := packetFrames(t, ch.Viewable(), protocol.IDBlockDestruction)
	if len(frames) != 1 {
		t.Fatalf("start staged %d overlay frames, want 1", len(frames))
	}
	if id, fpos, progress := decodeDestruction(t, frames[0]); id != p.NetworkID() || fpos != pos || progress != 0 {
		t.Fatalf("start overlay is entity %v pos %v progress %v", id, fpos, progress)
	}

	// Stage 1 of 45 ticks is reached on the fifth tick.
	ch.ClearViewable()
	for i := 0; i < 4; i++ {
		p.Tick()
	}
	if frames := packetFrames(t, ch.Viewable(), protocol.IDBlockDestruction); len(frames) != 0 {
		t.Fatalf("overlay advanced a stage after four ticks")
	}
	p.Tick()
	frames = packetFrames(t, ch.Viewable(), protocol.IDBlockDestruction)
	if len(frames) != 1 {
		t.Fatalf("fifth tick staged %d overlay frames, want 1", len(frames))
	}
	if _, _, progress := decodeDestruction(t, frames[0]); progress != 1 {
		t.Fatalf("overlay progress is %v, want 1", progress)
	}

	ch.ClearViewable()
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StopDestroyBlock, pos, 12)); err != nil {
		t.Fatalf("stop digging errored: %v", err)
	}
	if p.digging != nil {
		t.Fatalf("finished dig still running")
	}
	if got, _ := l.Block(bp); got != 0 {
		t.Fatalf("finished dig left block state %v", got)
	}
	if frames := packetFrames(t, ch.Viewable(), protocol.IDLevelEvent); len(frames) != 1 {
		t.Fatalf("finished dig staged %d break events, want 1", len(frames))
	}
}

func TestDiggingAbort(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	pos := protocol.BlockPos{X: 8, Y: 10, Z: 8}
	bp := cube.Pos{8, 10, 8}
	l.blocks[bp] = block.Stone.DefaultState()
	ch := l.Chunk(0, 0)

	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StartDestroyBlock, pos, 3)); err != nil {
		t.Fatalf("start digging errored: %v", err)
	}
	ch.ClearViewable()
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.AbortDestroyBlock, pos, 4)); err != nil {
		t.Fatalf("abort errored: %v", err)
	}
	if p.digging != nil {
		t.Fatalf("aborted dig still running")
	}
	if got, _ := l.Block(bp); got != block.Stone.DefaultState() {
		t.Fatalf("abort changed the block to state %v", got)
	}
	frames := packetFrames(t, ch.Viewable(), protocol.IDBlockDestruction)
	if len(frames) != 1 {
		t.Fatalf("abort staged %d overlay frames, want 1", len(frames))
	}
	if _, _, progress := decodeDestruction(t, frames[0]); progress <= 9 {
		t.Fatalf("abort staged overlay progress %v, want a clearing value", progress)
	}
}

// TestDiggingElsewhereStops reports a finished dig for a position other than
// the one being dug. The overlay is cleared and neither block is broken.
func TestDiggingElsewhereStops(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	dug := protocol.BlockPos{X: 8, Y: 10, Z: 8}
	l.blocks[cube.Pos{8, 10, 8}] = block.Stone.DefaultState()
	l.blocks[cube.Pos{9, 10, 8}] = block.Stone.DefaultState()

	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StartDestroyBlock, dug, 5)); err != nil {
		t.Fatalf("start digging errored: %v", err)
	}
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StopDestroyBlock, protocol.BlockPos{X: 9, Y: 10, Z: 8}, 6)); err != nil {
		t.Fatalf("stop errored: %v", err)
	}
	if p.digging != nil {
		t.Fatalf("mismatched stop left the dig running")
	}
	for _, bp := range []cube.Pos{{8, 10, 8}, {9, 10, 8}} {
		if got, _ := l.Block(bp); got != block.Stone.DefaultState() {
			t.Fatalf("mismatched stop broke the block at %v", bp)
		}
	}
}

func TestDiggingInstantAndUnbreakable(t *testing.T) {
	p, l := newTestPlayer(t, nil)
	ch := l.Chunk(0, 0)

	// Creative mode destroys the moment digging starts.
	l.gameMode = 1
	stone := cube.Pos{8, 10, 8}
	l.blocks[stone] = block.Stone.DefaultState()
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StartDestroyBlock, protocol.BlockPos{X: 8, Y: 10, Z: 8}, 1)); err != nil {
		t.Fatalf("creative start errored: %v", err)
	}
	if p.digging != nil {
		t.Fatalf("creative break went through digging")
	}
	if got, _ := l.Block(stone); got != 0 {
		t.Fatalf("creative break left block state %v", got)
	}

	// Zero hardness blocks break instantly in survival too.
	l.gameMode = 0
	grass := cube.Pos{9, 10, 8}
	l.blocks[grass] = block.Grass.DefaultState()
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StartDestroyBlock, protocol.BlockPos{X: 9, Y: 10, Z: 8}, 2)); err != nil {
		t.Fatalf("grass start errored: %v", err)
	}
	if p.digging != nil || l.blocks[grass] != 0 {
		t.Fatalf("zero hardness block did not break instantly")
	}

	// Unbreakable blocks are ignored.
	bed := cube.Pos{10, 10, 8}
	l.blocks[bed] = block.Bedrock.DefaultState()
	if err := p.HandlePacket(protocol.IDPlayerHandAction, handActionPayload(protocol.StartDestroyBlock, protocol.BlockPos{X: 10, Y: 10, Z: 8}, 3)); err != nil {
		t.Fatalf("bedrock start errored: %v", err)
	}
	if p.digging != nil {
		t.Fatalf("unbreakable block began digging")
	}
	if got, _ := l.Block(bed); got != block.Bedrock.DefaultState() {
		t.Fatalf("unbreakable block broke to state %v", got)
	}
	if frames := packetFrames(t, ch.Viewable(), protocol.IDBlockDestruction); len(frames) != 0 {
		t.Fatalf("instant breaks staged %d overlay frames", len(frames))
	}
}

func TestUnknownCommandReplies(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	b := make([]byte, 32)
	n := protocol.PutString(b, "gamemode creative")
	if err := p.HandlePacket(protocol.IDChatCommand, b[:n]); err != nil {
		t.Fatalf("chat command errored: %v", err)
	}

	r := protocol.NewReader(p.Buffer().Bytes())
	frame := r.Bytes(int(r.VarInt()))
	if err := r.Err(); err != nil || len(frame) == 0 {
		t.Fatalf("no reply framed: %v", err)
	}
	if frame[0] != protocol.IDSystemChat {
		t.Fatalf("reply has id %#x, want the system chat packet", frame[0])
	}
}
