package chunk

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/basalt-mc/basalt/server/protocol"
)

// TestChunkWriteEmpty pins the exact wire bytes of a small empty column.
func TestChunkWriteEmpty(t *testing.T) {
	c := New(4)
	var buf protocol.Buffer
	if err := c.Write(&buf, -3, 7); err != nil {
		t.Fatalf("failed to write chunk packet: %v", err)
	}

	// Sections serialize to 8 bytes each: a zero non-air count and two
	// single-tier containers of 3 bytes.
	var want []byte
	want = append(want, 86, protocol.IDLevelChunkWithLight)
	want = binary.BigEndian.AppendUint32(want, 0xFFFFFFFD) // cx -3
	want = binary.BigEndian.AppendUint32(want, 7)          // cz
	want = append(want, 0x0A, 0x00, 0x00, 0x00)            // empty heightmaps
	want = append(want, 32)                                // section data length
	for i := 0; i < 4; i++ {
		want = append(want, 0, 0, 0, 0, 0, 0, 0, 0)
	}
	want = append(want, 0, 1) // no block entities, trust edges
	for _, mask := range []uint64{0, 0, 0x3F, 0x3F} {
		want = append(want, 1)
		want = binary.BigEndian.AppendUint64(want, mask)
	}
	want = append(want, 0, 0) // no light entries

	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("chunk packet bytes\n got % x\nwant % x", buf.Bytes(), want)
	}
}

// TestChunkSetBlock checks cache invalidation and the broadcast of a block
// update into the chunk-viewable buffer.
func TestChunkSetBlock(t *testing.T) {
	c := New(24)
	var buf protocol.Buffer
	if err := c.Write(&buf, 0, 0); err != nil {
		t.Fatalf("failed to write chunk packet: %v", err)
	}
	if !c.validCache {
		t.Fatalf("writing did not validate the cache")
	}

	prev, changed := c.SetBlock(21, 70, -9, 1)
	if !changed || prev != 0 {
		t.Fatalf("set block returned (%v, %v), want (0, true)", prev, changed)
	}
	if c.validCache {
		t.Fatalf("block change left the serialization cache valid")
	}

	b := c.Viewable().Bytes()
	if len(b) == 0 || b[1] != protocol.IDBlockUpdate {
		t.Fatalf("chunk-viewable buffer holds % x, want one block update frame", b)
	}
	r := protocol.NewReader(b[2:])
	pos := r.BlockPos()
	state := r.VarInt()
	if err := r.Err(); err != nil {
		t.Fatalf("failed to decode block update: %v", err)
	}
	if pos != (protocol.BlockPos{X: 21, Y: 70, Z: -9}) || state != 1 {
		t.Fatalf("block update carries %v state %d, want {21 70 -9} state 1", pos, state)
	}

	if got, ok := c.Block(21, 70, -9); !ok || got != 1 {
		t.Fatalf("block reads back (%v, %v), want (1, true)", got, ok)
	}
	if _, ok := c.Block(21, -1, -9); ok {
		t.Fatalf("block below the column should not resolve")
	}
	if _, ok := c.Block(21, 24*16, -9); ok {
		t.Fatalf("block above the column should not resolve")
	}

	// An identical write must not emit another update.
	before := c.Viewable().Len()
	if _, changed := c.SetBlock(21, 70, -9, 1); changed {
		t.Fatalf("identical set reported a change")
	}
	if c.Viewable().Len() != before {
		t.Fatalf("identical set appended to the chunk-viewable buffer")
	}
}

// TestChunkLightEntries installs light arrays on two sections and checks
// the masks and entries of the serialized light body.
func TestChunkLightEntries(t *testing.T) {
	c := New(4)
	sky := make([]byte, 2048)
	sky[0] = 0xAB
	block := make([]byte, 2048)
	block[2047] = 0xCD
	c.Section(1).SetSkyLight(sky)
	c.Section(0).SetBlockLight(block)

	var buf protocol.Buffer
	if err := c.Write(&buf, 0, 0); err != nil {
		t.Fatalf("failed to write chunk packet: %v", err)
	}

	// Skip the 4-byte frame header, the coordinates and the block body to
	// reach the light body: heightmaps, section data, block entity count
	// and the trust edges flag.
	b := buf.Bytes()
	r := protocol.NewReader(b[4+8:])
	r.Bytes(4)
	r.Bytes(int(r.VarInt()))
	r.VarInt()
	r.Bool()

	masks := make([]uint64, 4)
	for i := range masks {
		if n := r.VarInt(); n != 1 {
			t.Fatalf("mask %d holds %d words, want 1", i, n)
		}
		masks[i] = r.Uint64()
	}
	if err := r.Err(); err != nil {
		t.Fatalf("failed to decode light masks: %v", err)
	}
	all := uint64(1)<<6 - 1
	if masks[0] != 1<<2 || masks[1] != 1<<1 {
		t.Fatalf("light masks are %b and %b, want bit 2 sky and bit 1 block", masks[0], masks[1])
	}
	if masks[2] != all&^(1<<2) || masks[3] != all&^(1<<1) {
		t.Fatalf("empty masks are %b and %b, want the complements", masks[2], masks[3])
	}

	if n := r.VarInt(); n != 1 {
		t.Fatalf("sky entry count is %d, want 1", n)
	}
	if n := r.VarInt(); n != 2048 {
		t.Fatalf("sky entry length is %d, want 2048", n)
	}
	if e := r.Bytes(2048); e[0] != 0xAB {
		t.Fatalf("sky entry starts with %#x, want 0xAB", e[0])
	}
	if n := r.VarInt(); n != 1 {
		t.Fatalf("block entry count is %d, want 1", n)
	}
	if n := r.VarInt(); n != 2048 {
		t.Fatalf("block entry length is %d, want 2048", n)
	}
	if e := r.Bytes(2048); e[2047] != 0xCD {
		t.Fatalf("block entry ends with %#x, want 0xCD", e[2047])
	}
	if err := r.Err(); err != nil {
		t.Fatalf("failed to decode light entries: %v", err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("%d trailing bytes after the light body", r.Remaining())
	}
}

// TestRosters exercises the stable handle contract of the chunk rosters.
func TestRosters(t *testing.T) {
	c := New(1)
	a := c.AddEntity(10)
	b := c.AddEntity(11)
	d := c.AddEntity(12)

	c.RemoveEntity(b)
	var seen []int
	c.Entities(func(idx int) { seen = append(seen, idx) })
	if len(seen) != 2 || seen[0] != 10 || seen[1] != 12 {
		t.Fatalf("roster iterates %v, want [10 12]", seen)
	}

	// The vacated slot is reused before the slab grows.
	e := c.AddEntity(13)
	if e != b {
		t.Fatalf("new handle is %v, want reused slot %v", e, b)
	}

	c.RemoveEntity(a)
	_ = d
	defer func() {
		if recover() == nil {
			t.Fatalf("removing a stale handle did not panic")
		}
	}()
	c.RemoveEntity(a)
}

// TestHasPlayers checks the player roster occupancy flag.
func TestHasPlayers(t *testing.T) {
	c := New(1)
	if c.HasPlayers() {
		t.Fatalf("fresh chunk reports players")
	}
	ref := c.AddPlayer(3)
	if !c.HasPlayers() {
		t.Fatalf("chunk with one player reports none")
	}
	c.RemovePlayer(ref)
	if c.HasPlayers() {
		t.Fatalf("chunk reports players after removal")
	}
}

// TestCopyEntityViewableExclusion writes three frames and skips the byte
// range of the middle one, the way a mover excludes its own packets.
func TestCopyEntityViewableExclusion(t *testing.T) {
	c := New(1)
	buf := c.EntityViewable()
	if err := buf.WritePacket(&protocol.KeepAlive{Challenge: 1}); err != nil {
		t.Fatalf("failed to write packet: %v", err)
	}
	from := buf.Len()
	if err := buf.WritePacket(&protocol.KeepAlive{Challenge: 2}); err != nil {
		t.Fatalf("failed to write packet: %v", err)
	}
	to := buf.Len()
	if err := buf.WritePacket(&protocol.KeepAlive{Challenge: 3}); err != nil {
		t.Fatalf("failed to write packet: %v", err)
	}

	var dst protocol.Buffer
	c.CopyEntityViewable(&dst, from, to)
	want := append([]byte{}, buf.Bytes()[:from]...)
	want = append(want, buf.Bytes()[to:]...)
	if !bytes.Equal(dst.Bytes(), want) {
		t.Fatalf("exclusion copy\n got % x\nwant % x", dst.Bytes(), want)
	}

	dst.Reset()
	c.CopyEntityViewable(&dst, 0, 0)
	if !bytes.Equal(dst.Bytes(), buf.Bytes()) {
		t.Fatalf("empty exclusion range should copy everything")
	}

	c.ClearViewable()
	if c.EntityViewable().Len() != 0 || c.Viewable().Len() != 0 {
		t.Fatalf("clear left bytes in the broadcast buffers")
	}
}
