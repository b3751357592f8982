package mcregion

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/protocol/nbt"
	"github.com/basalt-mc/basalt/server/world/chunk"
)

// stagedSection is one decoded section held back until the whole chunk tree
// has decoded, so an error partway cannot leave a half-written column.
type stagedSection struct {
	index     int
	hasBlocks bool
	// fill applies when cells is nil: single-entry palettes without a data
	// array mean the whole section holds one state.
	fill  uint16
	cells []uint16

	skyLight   []byte
	blockLight []byte
}

// stageSections decodes the sections list of a chunk tree. Section indices
// are relative to the chunk's yPos, so the lowest stored section becomes
// the bottom of the column.
func (g *Importer) stageSections(root *nbt.Compound) ([]stagedSection, error) {
	minY, ok := root.Int("yPos")
	if !ok {
		return nil, errors.New("chunk tree has no yPos")
	}
	list, ok := root.List("sections")
	if !ok {
		return nil, errors.New("chunk tree has no sections list")
	}
	staged := make([]stagedSection, 0, len(list.Elems))
	for _, el := range list.Elems {
		sec, ok := el.(*nbt.Compound)
		if !ok {
			continue
		}
		y, ok := sec.Byte("Y")
		if !ok {
			continue
		}
		s := stagedSection{index: int(int32(y) - minY)}
		if s.index < 0 {
			// Light-only padding below the world.
			continue
		}
		if sky, ok := sec.ByteArray("SkyLight"); ok && len(sky) == chunk.SectionVolume/2 {
			s.skyLight = sky
		}
		if bl, ok := sec.ByteArray("BlockLight"); ok && len(bl) == chunk.SectionVolume/2 {
			s.blockLight = bl
		}
		if bs, ok := sec.Compound("block_states"); ok {
			if err := g.stageBlocks(bs, &s); err != nil {
				return nil, fmt.Errorf("section %d: %w", y, err)
			}
		}
		if s.hasBlocks || s.skyLight != nil || s.blockLight != nil {
			staged = append(staged, s)
		}
	}
	return staged, nil
}

// stageBlocks resolves the palette of one block_states compound and unpacks
// its cell data. Entries never pack across word boundaries and block
// palettes use at least 4 bits per cell.
func (g *Importer) stageBlocks(bs *nbt.Compound, s *stagedSection) error {
	list, ok := bs.List("palette")
	if !ok || len(list.Elems) == 0 {
		return errors.New("block states without a palette")
	}
	palette := make([]uint16, 0, len(list.Elems))
	for _, el := range list.Elems {
		entry, ok := el.(*nbt.Compound)
		if !ok {
			return errors.New("palette entry is not a compound")
		}
		palette = append(palette, g.resolveState(entry))
	}

	data, ok := bs.LongArray("data")
	if !ok {
		s.hasBlocks = true
		s.fill = palette[0]
		return nil
	}
	width := max(bits.Len(uint(len(palette)-1)), 4)
	perWord := 64 / width
	if need := (chunk.SectionVolume + perWord - 1) / perWord; len(data) < need {
		return fmt.Errorf("data holds %d words, need %d", len(data), need)
	}
	mask := uint64(1)<<width - 1

	cells := make([]uint16, chunk.SectionVolume)
	for i := range cells {
		idx := uint64(data[i/perWord]) >> (uint(i%perWord) * uint(width)) & mask
		if int(idx) >= len(palette) {
			return fmt.Errorf("cell %d references palette entry %d of %d", i, idx, len(palette))
		}
		cells[i] = palette[idx]
	}
	s.hasBlocks = true
	s.cells = cells
	return nil
}

// resolveState maps one palette compound to a registry state id. Unknown
// kinds resolve to air and are reported once per name.
func (g *Importer) resolveState(entry *nbt.Compound) uint16 {
	name, _ := entry.String("Name")
	var props map[string]string
	if pc, ok := entry.Compound("Properties"); ok {
		props = make(map[string]string, pc.Len())
		pc.Range(func(k string, v nbt.Value) bool {
			if s, ok := v.(nbt.String); ok {
				props[k] = string(s)
			}
			return true
		})
	}
	if id, ok := block.StateID(name, props); ok {
		return id
	}
	if _, seen := g.unknown[name]; !seen {
		g.unknown[name] = struct{}{}
		g.log.Debug("Unknown block in save, importing as air.", "name", name)
	}
	return 0
}

// commit writes staged sections into the chunk, in vanilla cell order, x
// varying fastest and y slowest. Sections above the column height are
// dropped.
func commit(staged []stagedSection, ch *chunk.Chunk) {
	for _, s := range staged {
		if s.index >= ch.SectionCount() {
			continue
		}
		sec := ch.Section(s.index)
		if s.hasBlocks {
			if s.cells == nil {
				sec.FillBlocks(s.fill)
			} else {
				for i, id := range s.cells {
					sec.SetBlock(uint8(i&15), uint8(i>>8), uint8(i>>4&15), id)
				}
			}
		}
		if s.skyLight != nil {
			sec.SetSkyLight(s.skyLight)
		}
		if s.blockLight != nil {
			sec.SetBlockLight(s.blockLight)
		}
	}
}
