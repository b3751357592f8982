// Package mcregion imports chunk columns from the Anvil region files of a
// saved world. The importer is a world.Generator: chunks present in the
// save are decoded into the grid and everything else is delegated to a
// fallback generator, so a save can sit in the middle of generated terrain.
//
// Only the modern chunk layout is understood, block states as palette and
// data pairs under a sections list, with per-section light arrays. Payloads
// must use compression id 2, zlib. The importer is not safe for concurrent
// use; the world generates its grid from one goroutine.
package mcregion

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/basalt-mc/basalt/server/protocol/nbt"
	"github.com/basalt-mc/basalt/server/world"
	"github.com/basalt-mc/basalt/server/world/chunk"
	"golang.org/x/exp/maps"
)

// Config holds the construction parameters of an importer.
type Config struct {
	// Log reports skipped chunks and unresolvable palette entries. Nil
	// defaults to slog.Default().
	Log *slog.Logger
	// Fallback generates chunks the save has no data for. Nil leaves such
	// chunks empty.
	Fallback world.Generator
	// OriginX and OriginZ are the save-space chunk coordinates mapped to
	// world chunk (0, 0), letting a world window into any part of the save.
	OriginX, OriginZ int32
}

// Open validates the world folder and returns an importer reading from it.
// The folder may be a world directory holding a region subdirectory, or the
// region directory itself. Region files are read lazily, one whole file at
// a time, when a chunk in them is first requested.
func (conf Config) Open(folder string) (*Importer, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	dir := folder
	if st, err := os.Stat(filepath.Join(folder, "region")); err == nil && st.IsDir() {
		dir = filepath.Join(folder, "region")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("mcregion: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("mcregion: %v is not a directory", dir)
	}
	return &Importer{
		log:      conf.Log,
		fallback: conf.Fallback,
		originX:  conf.OriginX,
		originZ:  conf.OriginZ,
		dir:      dir,
		regions:  make(map[[2]int32]*regionFile),
		unknown:  make(map[string]struct{}),
	}, nil
}

// Importer reads chunks out of one region directory.
type Importer struct {
	log      *slog.Logger
	fallback world.Generator
	originX  int32
	originZ  int32
	dir      string

	// regions caches whole region files by region coordinates. Missing and
	// unreadable files cache as nil so they are probed only once.
	regions map[[2]int32]*regionFile

	unknown  map[string]struct{}
	imported int
}

// GenerateChunk fills the chunk from the save, or hands it to the fallback
// generator when the save holds nothing usable for it. A corrupt chunk is
// logged, skipped and generated by the fallback instead.
func (g *Importer) GenerateChunk(x, z int32, ch *chunk.Chunk) {
	sx, sz := g.originX+x, g.originZ+z
	staged, err := g.loadChunk(sx, sz)
	if err != nil {
		g.log.Warn("Skipping unreadable chunk.", "cx", sx, "cz", sz, "err", err)
	}
	if staged == nil {
		if g.fallback != nil {
			g.fallback.GenerateChunk(x, z, ch)
		}
		return
	}
	g.imported++
	commit(staged, ch)
}

// Imported returns the number of chunks decoded from the save so far.
func (g *Importer) Imported() int { return g.imported }

// UnknownBlocks returns the sorted distinct palette names that did not
// resolve against the block registry and were imported as air.
func (g *Importer) UnknownBlocks() []string {
	names := maps.Keys(g.unknown)
	slices.Sort(names)
	return names
}

// loadChunk decodes the staged sections of one save chunk. A nil return
// with a nil error means the save holds no data for the chunk.
func (g *Importer) loadChunk(sx, sz int32) ([]stagedSection, error) {
	reg := g.region(sx>>5, sz>>5)
	if reg == nil {
		return nil, nil
	}
	payload, err := reg.payload(sx, sz)
	if err != nil || payload == nil {
		return nil, err
	}
	raw, err := inflate(payload)
	if err != nil {
		return nil, err
	}
	_, root, err := nbt.Decode(raw)
	if err != nil {
		return nil, err
	}
	return g.stageSections(root)
}

// region returns the cached region file at region coordinates, reading it
// from disk on first use.
func (g *Importer) region(rx, rz int32) *regionFile {
	key := [2]int32{rx, rz}
	if reg, ok := g.regions[key]; ok {
		return reg
	}
	name := filepath.Join(g.dir, fmt.Sprintf("r.%d.%d.mca", rx, rz))
	data, err := os.ReadFile(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			g.log.Warn("Skipping unreadable region file.", "path", name, "err", err)
		}
		g.regions[key] = nil
		return nil
	}
	if len(data) < 2*sectorSize {
		g.log.Warn("Skipping region file shorter than its header.", "path", name)
		g.regions[key] = nil
		return nil
	}
	reg := &regionFile{data: data}
	g.regions[key] = reg
	return reg
}
