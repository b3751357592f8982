package mcregion

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/protocol/nbt"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/klauspost/compress/zlib"
)

// writeRegion assembles a region file holding the given chunk trees keyed
// by save-space chunk coordinates, zlib compressed and padded to whole
// sectors.
func writeRegion(t *testing.T, path string, chunks map[[2]int32][]byte) {
	t.Helper()
	header := make([]byte, 2*sectorSize)
	var body bytes.Buffer
	sector := 2
	for pos, raw := range chunks {
		var comp bytes.Buffer
		zw := zlib.NewWriter(&comp)
		if _, err := zw.Write(raw); err != nil {
			t.Fatalf("failed to compress chunk: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("failed to compress chunk: %v", err)
		}

		payload := make([]byte, 5+comp.Len())
		binary.BigEndian.PutUint32(payload, uint32(comp.Len()+1))
		payload[4] = compressionZlib
		copy(payload[5:], comp.Bytes())
		sectors := (len(payload) + sectorSize - 1) / sectorSize

		loc := 4 * (int(pos[0]&31) + int(pos[1]&31)*regionSpan)
		header[loc] = byte(sector >> 16)
		header[loc+1] = byte(sector >> 8)
		header[loc+2] = byte(sector)
		header[loc+3] = byte(sectors)

		body.Write(payload)
		body.Write(make([]byte, sectors*sectorSize-len(payload)))
		sector += sectors
	}
	if err := os.WriteFile(path, append(header, body.Bytes()...), 0o644); err != nil {
		t.Fatalf("failed to write region file: %v", err)
	}
}

// chunkTree encodes a chunk NBT tree with the given yPos and sections.
func chunkTree(yPos int32, sections ...nbt.Value) []byte {
	root := nbt.NewCompound()
	root.Put("yPos", nbt.Int(yPos))
	root.Put("sections", nbt.ListOf(sections...))
	return nbt.AppendNamed(nil, "", root)
}

// sectionNBT builds one section compound. A nil data slice omits the data
// array, the single-fill form.
func sectionNBT(y int8, palette []nbt.Value, data []int64) *nbt.Compound {
	bs := nbt.NewCompound()
	bs.Put("palette", nbt.ListOf(palette...))
	if data != nil {
		bs.Put("data", nbt.LongArray(data))
	}
	sec := nbt.NewCompound()
	sec.Put("Y", nbt.Byte(y))
	sec.Put("block_states", bs)
	return sec
}

func paletteEntry(name string, props map[string]string) nbt.Value {
	e := nbt.NewCompound()
	e.Put("Name", nbt.String(name))
	if props != nil {
		pc := nbt.NewCompound()
		for k, v := range props {
			pc.Put(k, nbt.String(v))
		}
		e.Put("Properties", pc)
	}
	return e
}

// pack builds the long array of palette indices at the given bit width,
// never packing an entry across a word boundary.
func pack(indices []int, width int) []int64 {
	perWord := 64 / width
	words := make([]int64, (len(indices)+perWord-1)/perWord)
	for i, idx := range indices {
		words[i/perWord] |= int64(uint64(idx) << (uint(i%perWord) * uint(width)))
	}
	return words
}

// cell returns the vanilla data index of section coordinates.
func cell(x, y, z int) int {
	return y*256 + z*16 + x
}

// markGen is a fallback generator leaving a recognisable bedrock marker.
type markGen struct{}

func (markGen) GenerateChunk(_, _ int32, ch *chunk.Chunk) {
	ch.Section(0).SetBlock(0, 0, 0, block.Bedrock.DefaultState())
}

// TestImportChunk reads a two-section chunk back out of a region file and
// checks cells, fills and the fallback for absent chunks.
func TestImportChunk(t *testing.T) {
	stone := block.Stone.DefaultState()
	grass := block.GrassBlock.DefaultState()

	indices := make([]int, chunk.SectionVolume)
	indices[cell(1, 2, 3)] = 1
	indices[cell(5, 0, 9)] = 2
	sec0 := sectionNBT(0, []nbt.Value{
		paletteEntry("minecraft:air", nil),
		paletteEntry("minecraft:stone", nil),
		paletteEntry("minecraft:grass_block", map[string]string{"snowy": "false"}),
	}, pack(indices, 4))
	sec1 := sectionNBT(1, []nbt.Value{paletteEntry("minecraft:stone", nil)}, nil)

	dir := t.TempDir()
	writeRegion(t, filepath.Join(dir, "r.0.0.mca"), map[[2]int32][]byte{
		{0, 0}: chunkTree(0, sec0, sec1),
	})

	g, err := Config{Fallback: markGen{}}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}

	ch := chunk.New(4)
	g.GenerateChunk(0, 0, ch)
	if got, _ := ch.Block(1, 2, 3); got != stone {
		t.Fatalf("cell (1, 2, 3) imported as %d, want stone %d", got, stone)
	}
	if got, _ := ch.Block(5, 0, 9); got != grass {
		t.Fatalf("cell (5, 0, 9) imported as %d, want grass %d", got, grass)
	}
	if got, _ := ch.Block(0, 0, 0); got != 0 {
		t.Fatalf("cell (0, 0, 0) imported as %d, want air", got)
	}
	for _, y := range []int32{16, 24, 31} {
		if got, _ := ch.Block(15, y, 15); got != stone {
			t.Fatalf("filled section cell at y %d is %d, want stone", y, got)
		}
	}
	if n := ch.Section(1).NonAirCount(); n != chunk.SectionVolume {
		t.Fatalf("filled section counts %d non-air cells, want %d", n, chunk.SectionVolume)
	}
	if g.Imported() != 1 {
		t.Fatalf("imported %d chunks, want 1", g.Imported())
	}

	// A chunk the save has no data for goes to the fallback.
	ch = chunk.New(4)
	g.GenerateChunk(1, 0, ch)
	if got, _ := ch.Block(0, 0, 0); got != block.Bedrock.DefaultState() {
		t.Fatalf("absent chunk generated %d at origin, want the fallback marker", got)
	}
	if g.Imported() != 1 {
		t.Fatalf("fallback chunk counted as imported")
	}
}

// TestImportDirectPalette exercises the wide bit path with a 17-entry
// palette, 5 bits per cell.
func TestImportDirectPalette(t *testing.T) {
	names := []string{
		"minecraft:air", "minecraft:stone", "minecraft:granite",
		"minecraft:polished_granite", "minecraft:diorite",
		"minecraft:polished_diorite", "minecraft:andesite",
		"minecraft:polished_andesite", "minecraft:dirt",
		"minecraft:coarse_dirt", "minecraft:bedrock", "minecraft:oak_planks",
		"minecraft:cobblestone", "minecraft:glass", "minecraft:snow_block",
		"minecraft:mycelium", "minecraft:podzol",
	}
	palette := make([]nbt.Value, len(names))
	want := make([]uint16, len(names))
	for i, name := range names {
		palette[i] = paletteEntry(name, nil)
		k, ok := block.KindByName(name)
		if !ok {
			t.Fatalf("kind %q is not registered", name)
		}
		want[i] = k.DefaultState()
	}

	indices := make([]int, chunk.SectionVolume)
	for i := range names {
		indices[i] = i
	}
	tree := chunkTree(0, sectionNBT(0, palette, pack(indices, 5)))

	dir := t.TempDir()
	writeRegion(t, filepath.Join(dir, "r.0.0.mca"), map[[2]int32][]byte{{0, 0}: tree})
	g, err := Config{}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}

	ch := chunk.New(1)
	g.GenerateChunk(0, 0, ch)
	for i, id := range want {
		x, y, z := int32(i&15), int32(i>>8), int32(i>>4&15)
		if got, _ := ch.Block(x, y, z); got != id {
			t.Fatalf("cell %d imported as %d, want %d (%s)", i, got, id, names[i])
		}
	}
	if got, _ := ch.Block(1, 15, 1); got != 0 {
		t.Fatalf("unwritten cell imported as %d, want air", got)
	}
}

// TestImportUnknownBlocks maps palette entries outside the registry to air
// and reports them.
func TestImportUnknownBlocks(t *testing.T) {
	tree := chunkTree(0, sectionNBT(0, []nbt.Value{paletteEntry("minecraft:command_block", nil)}, nil))
	dir := t.TempDir()
	writeRegion(t, filepath.Join(dir, "r.0.0.mca"), map[[2]int32][]byte{{0, 0}: tree})

	g, err := Config{}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}
	ch := chunk.New(1)
	g.GenerateChunk(0, 0, ch)
	if n := ch.Section(0).NonAirCount(); n != 0 {
		t.Fatalf("unknown-palette section holds %d non-air cells, want 0", n)
	}
	unknown := g.UnknownBlocks()
	if len(unknown) != 1 || unknown[0] != "minecraft:command_block" {
		t.Fatalf("unknown blocks are %v, want [minecraft:command_block]", unknown)
	}
}

// TestImportCorruptChunkFallsBack hands unreadable chunks to the fallback
// generator instead of half-importing them.
func TestImportCorruptChunkFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.0.0.mca")
	writeRegion(t, path, map[[2]int32][]byte{
		{0, 0}: chunkTree(0, sectionNBT(0, []nbt.Value{paletteEntry("minecraft:stone", nil)}, nil)),
	})

	// Rewrite the compression id to the unsupported gzip.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read region file back: %v", err)
	}
	data[2*sectorSize+4] = 1
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to rewrite region file: %v", err)
	}

	g, err := Config{Fallback: markGen{}}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}
	ch := chunk.New(1)
	g.GenerateChunk(0, 0, ch)
	if got, _ := ch.Block(0, 0, 0); got != block.Bedrock.DefaultState() {
		t.Fatalf("corrupt chunk generated %d at origin, want the fallback marker", got)
	}
	if g.Imported() != 0 {
		t.Fatalf("corrupt chunk counted as imported")
	}
}

// TestImportOrigin windows the world onto negative save coordinates, where
// region files and location entries use wrapped indices.
func TestImportOrigin(t *testing.T) {
	tree := chunkTree(0, sectionNBT(0, []nbt.Value{paletteEntry("minecraft:stone", nil)}, nil))
	dir := t.TempDir()
	writeRegion(t, filepath.Join(dir, "r.-1.-1.mca"), map[[2]int32][]byte{{-1, -1}: tree})

	g, err := Config{OriginX: -1, OriginZ: -1}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}
	ch := chunk.New(1)
	g.GenerateChunk(0, 0, ch)
	if got, _ := ch.Block(0, 0, 0); got != block.Stone.DefaultState() {
		t.Fatalf("origin-mapped chunk generated %d, want stone", got)
	}
}

// TestImportYOffset maps sections relative to yPos: the lowest stored
// section becomes the bottom of the column and padding below it is
// dropped.
func TestImportYOffset(t *testing.T) {
	below := nbt.NewCompound()
	below.Put("Y", nbt.Byte(-5))
	tree := chunkTree(-4,
		below,
		sectionNBT(-4, []nbt.Value{paletteEntry("minecraft:stone", nil)}, nil),
		sectionNBT(0, []nbt.Value{paletteEntry("minecraft:dirt", nil)}, nil),
	)
	dir := t.TempDir()
	writeRegion(t, filepath.Join(dir, "r.0.0.mca"), map[[2]int32][]byte{{0, 0}: tree})

	g, err := Config{}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}
	ch := chunk.New(8)
	g.GenerateChunk(0, 0, ch)
	if got, _ := ch.Block(3, 7, 3); got != block.Stone.DefaultState() {
		t.Fatalf("section Y -4 imported %d at y 7, want stone", got)
	}
	if got, _ := ch.Block(3, 4*16+1, 3); got != block.Dirt.DefaultState() {
		t.Fatalf("section Y 0 imported %d at y 65, want dirt", got)
	}
	if got, _ := ch.Block(3, 3*16+1, 3); got != 0 {
		t.Fatalf("unstored section holds %d, want air", got)
	}
}

// TestImportLight installs a section sky light array and checks it surfaces
// in the serialized light body of the chunk.
func TestImportLight(t *testing.T) {
	sky := make([]byte, chunk.SectionVolume/2)
	sky[0] = 0xAB
	sec := sectionNBT(1, []nbt.Value{paletteEntry("minecraft:stone", nil)}, nil)
	sec.Put("SkyLight", nbt.ByteArray(sky))

	dir := t.TempDir()
	writeRegion(t, filepath.Join(dir, "r.0.0.mca"), map[[2]int32][]byte{
		{0, 0}: chunkTree(0, sec),
	})
	g, err := Config{}.Open(dir)
	if err != nil {
		t.Fatalf("failed to open region folder: %v", err)
	}
	ch := chunk.New(4)
	g.GenerateChunk(0, 0, ch)

	var buf protocol.Buffer
	if err := ch.Write(&buf, 0, 0); err != nil {
		t.Fatalf("failed to write chunk packet: %v", err)
	}
	// Skip the frame header, coordinates, heightmaps, section data, block
	// entities and the trust edges flag to reach the light masks.
	r := protocol.NewReader(buf.Bytes()[4+8:])
	r.Bytes(4)
	r.Bytes(int(r.VarInt()))
	r.VarInt()
	r.Bool()
	if n := r.VarInt(); n != 1 {
		t.Fatalf("sky mask holds %d words, want 1", n)
	}
	mask := r.Uint64()
	if err := r.Err(); err != nil {
		t.Fatalf("failed to decode the sky mask: %v", err)
	}
	if mask != 1<<2 {
		t.Fatalf("sky mask is %b, want bit 2 for section 1", mask)
	}
}
