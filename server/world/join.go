package world

import (
	"github.com/basalt-mc/basalt/server/block"
	"github.com/basalt-mc/basalt/server/player"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/basalt-mc/basalt/server/protocol/nbt"
	"github.com/go-gl/mathgl/mgl64"
)

// dimension is the identity every player joins under. The world has a single
// dimension.
const dimension = "minecraft:overworld"

// brandPayload is the length prefixed server brand shown on the client's
// debug screen.
var brandPayload = []byte("\x06basalt")

// AddPlayer creates a player from conf standing at pos, rosters it and
// writes the complete join state to its client: login data, tag tables, the
// initial chunk view and everything already standing within view. The
// player is announced to the tab list of every client.
func (w *World) AddPlayer(conf player.Config, pos mgl64.Vec3) *player.Player {
	if conf.Log == nil {
		conf.Log = w.log
	}
	p := conf.New(w, pos)

	index := len(w.players)
	if n := len(w.freePlayers); n > 0 {
		index = w.freePlayers[n-1]
		w.freePlayers = w.freePlayers[:n-1]
		w.players[index] = p
	} else {
		w.players = append(w.players, p)
	}
	p.Attach(index)

	chunkX, chunkZ := p.ChunkPosition()
	if ch := w.Chunk(chunkX, chunkZ); ch != nil {
		p.AttachChunk(ch, ch.AddPlayer(index))
	}

	w.writeLogin(p, chunkX, chunkZ)
	w.publishJoin(p)

	// The full tab list is in p's buffer at this point, so player spawns
	// are safe to write.
	view := p.EntityViewRadius()
	for x := max(chunkX-view, 0); x < min(chunkX+view+1, w.chunksX); x++ {
		for z := max(chunkZ-view, 0); z < min(chunkZ+view+1, w.chunksZ); z++ {
			w.WriteSpawns(w.chunks[x+z*w.chunksX], p, p.Buffer())
		}
	}

	p.Flush()
	w.log.Info("Player joined.", "name", p.Name(), "uuid", p.UUID(), "entityID", p.NetworkID())
	return p
}

// writeLogin writes the join packets that set up the client's play state,
// ending with the chunk square around the player. Chunks are streamed one
// ring wider than the view radius so that later view shifts only ever send
// chunks the client does not hold.
func (w *World) writeLogin(p *player.Player, chunkX, chunkZ int32) {
	p.WritePacket(&protocol.Login{
		EntityID:         p.NetworkID(),
		GameMode:         w.conf.GameMode,
		PreviousGameMode: -1,
		DimensionNames:   []string{dimension},
		RegistryCodec:    w.codec,
		DimensionType:    dimension,
		DimensionName:    dimension,
		ViewDistance:     p.ViewRadius(),
		SimulationDist:   p.ViewRadius(),
	})
	if flags := abilityFlags(w.conf.GameMode); flags != 0 {
		p.WritePacket(&protocol.PlayerAbilities{Flags: flags, FlyingSpeed: 0.05, FOVModifier: 0.1})
	}
	p.WritePacket(&protocol.UpdateTags{Registries: blockTags()})
	p.WritePacket(&protocol.CustomPayload{Channel: "minecraft:brand", Data: brandPayload})

	pos := p.Position()
	p.WritePacket(&protocol.PlayerPosition{X: pos[0], Y: pos[1], Z: pos[2]})
	p.WritePacket(&protocol.SetChunkCacheCenter{ChunkX: chunkX, ChunkZ: chunkZ})

	view := p.ViewRadius() + 1
	for x := chunkX - view; x <= chunkX+view; x++ {
		for z := chunkZ - view; z <= chunkZ+view; z++ {
			ch := w.Chunk(x, z)
			if ch == nil {
				ch = w.emptyChunk
			}
			_ = ch.Write(p.Buffer(), x, z)
		}
	}
}

// publishJoin announces a joining player: its tab list entry goes to every
// other client together with its spawn where in range, and the joiner
// receives the full current list including itself.
func (w *World) publishJoin(p *player.Player) {
	entry := w.playerInfoEntry(p)
	chunkX, chunkZ := p.ChunkPosition()

	list := make([]protocol.PlayerInfoEntry, 0, w.PlayerCount())
	for _, q := range w.players {
		if q == nil {
			continue
		}
		list = append(list, w.playerInfoEntry(q))
		if q == p {
			continue
		}
		q.WritePacket(&protocol.PlayerInfoAdd{Entries: []protocol.PlayerInfoEntry{entry}})
		qX, qZ := q.ChunkPosition()
		if chunkDistance(qX, qZ, chunkX, chunkZ) <= q.EntityViewRadius() {
			writePlayerSpawn(p, q.Buffer())
		}
	}
	p.WritePacket(&protocol.PlayerInfoAdd{Entries: list})
}

func (w *World) playerInfoEntry(p *player.Player) protocol.PlayerInfoEntry {
	return protocol.PlayerInfoEntry{
		Profile:  protocol.GameProfile{UUID: p.UUID(), Name: p.Name()},
		GameMode: int32(w.conf.GameMode),
	}
}

// abilityFlags returns the client ability flags implied by a game mode.
func abilityFlags(gameMode uint8) uint8 {
	switch gameMode {
	case 1:
		return protocol.AbilityInvulnerable | protocol.AbilityMayFly | protocol.AbilityInstabuild
	case 3:
		return protocol.AbilityInvulnerable | protocol.AbilityMayFly | protocol.AbilityFlying
	default:
		return 0
	}
}

// blockTags builds the block tag tables announced at login from the
// registry, so client side prediction of fences, walls and rails agrees
// with the server rules. Entries are kind ids.
func blockTags() []protocol.TagRegistry {
	named := []struct {
		name string
		tag  block.Tag
	}{
		{"minecraft:fences", block.TagFences},
		{"minecraft:walls", block.TagWalls},
		{"minecraft:rails", block.TagRails},
		{"minecraft:stairs", block.TagStairs},
	}
	tags := make([]protocol.Tag, 0, len(named))
	for _, t := range named {
		var entries []int32
		for k := 0; k < block.KindCount(); k++ {
			if block.Kind(k).Is(t.tag) {
				entries = append(entries, int32(k))
			}
		}
		if len(entries) > 0 {
			tags = append(tags, protocol.Tag{Name: t.name, Entries: entries})
		}
	}
	return []protocol.TagRegistry{{Name: "minecraft:block", Tags: tags}}
}

// registryCodec builds the login registry data: a single overworld
// dimension type of the given height, the plains biome backing biome
// palette id zero and the chat type player chat renders with.
func registryCodec(height int32) []byte {
	root := nbt.NewCompound()
	root.Put("minecraft:dimension_type", registryList("minecraft:dimension_type",
		registryEntry(dimension, 0, overworldElement(height))))
	root.Put("minecraft:worldgen/biome", registryList("minecraft:worldgen/biome",
		registryEntry("minecraft:plains", 0, plainsElement())))
	root.Put("minecraft:chat_type", registryList("minecraft:chat_type",
		registryEntry("minecraft:chat", 0, chatElement())))
	return nbt.AppendNamed(nil, "", root)
}

func registryList(typ string, entries ...nbt.Value) *nbt.Compound {
	c := nbt.NewCompound()
	c.Put("type", nbt.String(typ))
	c.Put("value", nbt.ListOf(entries...))
	return c
}

func registryEntry(name string, id int32, element *nbt.Compound) nbt.Value {
	c := nbt.NewCompound()
	c.Put("name", nbt.String(name))
	c.Put("id", nbt.Int(id))
	c.Put("element", element)
	return c
}

func overworldElement(height int32) *nbt.Compound {
	c := nbt.NewCompound()
	c.Put("piglin_safe", nbt.Byte(0))
	c.Put("has_raids", nbt.Byte(0))
	c.Put("monster_spawn_light_level", nbt.Int(7))
	c.Put("monster_spawn_block_light_limit", nbt.Int(0))
	c.Put("natural", nbt.Byte(1))
	c.Put("ambient_light", nbt.Float(0))
	c.Put("infiniburn", nbt.String("#minecraft:infiniburn_overworld"))
	c.Put("respawn_anchor_works", nbt.Byte(0))
	c.Put("has_skylight", nbt.Byte(1))
	c.Put("bed_works", nbt.Byte(1))
	c.Put("effects", nbt.String(dimension))
	c.Put("min_y", nbt.Int(0))
	c.Put("height", nbt.Int(height))
	c.Put("logical_height", nbt.Int(height))
	c.Put("coordinate_scale", nbt.Double(1))
	c.Put("ultrawarm", nbt.Byte(0))
	c.Put("has_ceiling", nbt.Byte(0))
	return c
}

func plainsElement() *nbt.Compound {
	effects := nbt.NewCompound()
	effects.Put("fog_color", nbt.Int(12638463))
	effects.Put("water_color", nbt.Int(4159204))
	effects.Put("water_fog_color", nbt.Int(329011))
	effects.Put("sky_color", nbt.Int(7907327))
	c := nbt.NewCompound()
	c.Put("precipitation", nbt.String("rain"))
	c.Put("temperature", nbt.Float(0.8))
	c.Put("downfall", nbt.Float(0.4))
	c.Put("effects", effects)
	return c
}

func chatElement() *nbt.Compound {
	c := nbt.NewCompound()
	c.Put("chat", chatDecoration("chat.type.text"))
	c.Put("narration", chatDecoration("chat.type.text.narrate"))
	return c
}

func chatDecoration(key string) *nbt.Compound {
	d := nbt.NewCompound()
	d.Put("translation_key", nbt.String(key))
	d.Put("parameters", nbt.ListOf(nbt.String("sender"), nbt.String("content")))
	return d
}
