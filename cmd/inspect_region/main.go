// Command inspect_region imports a window of chunks from a world save and
// prints the block kinds found in it, together with any palette entries the
// block registry cannot represent. The window is centered on the save
// origin, the way the server loads a world folder.
//
// Usage:
//
//	inspect_region <world folder> [chunks per axis]
package main

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"github.com/basalt-mc/basalt/server/world/mcregion"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect_region <world folder> [chunks per axis]")
		os.Exit(2)
	}
	size := 8
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "bad chunk count %q\n", os.Args[2])
			os.Exit(2)
		}
		size = n
	}

	imp, err := mcregion.Config{
		OriginX: -int32(size) / 2,
		OriginZ: -int32(size) / 2,
	}.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	counts := make(map[uint16]int)
	for z := int32(0); z < int32(size); z++ {
		for x := int32(0); x < int32(size); x++ {
			ch := chunk.New(24)
			imp.GenerateChunk(x, z, ch)
			count(ch, counts)
		}
	}

	fmt.Printf("%d of %d chunks imported\n", imp.Imported(), size*size)

	type stat struct {
		id uint16
		n  int
	}
	stats := make([]stat, 0, len(counts))
	for id, n := range counts {
		stats = append(stats, stat{id, n})
	}
	slices.SortFunc(stats, func(a, b stat) int {
		if a.n != b.n {
			return cmp.Compare(b.n, a.n)
		}
		return cmp.Compare(a.id, b.id)
	})
	for _, s := range stats {
		fmt.Printf("%9d  %s (state %d)\n", s.n, block.KindOf(s.id).Name(), s.id)
	}

	if unknown := imp.UnknownBlocks(); len(unknown) > 0 {
		fmt.Printf("\n%d kinds imported as air:\n", len(unknown))
		for _, name := range unknown {
			fmt.Println("  " + name)
		}
	}
}

// count tallies the non-air cells of one chunk by state id.
func count(ch *chunk.Chunk, counts map[uint16]int) {
	for i := 0; i < ch.SectionCount(); i++ {
		sec := ch.Section(i)
		if sec.NonAirCount() == 0 {
			continue
		}
		for y := uint8(0); y < 16; y++ {
			for z := uint8(0); z < 16; z++ {
				for x := uint8(0); x < 16; x++ {
					if id := sec.Block(x, y, z); id != 0 {
						counts[id]++
					}
				}
			}
		}
	}
}
