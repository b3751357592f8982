package server

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"strings"

	"github.com/basalt-mc/basalt/server/world"
	"github.com/basalt-mc/basalt/server/world/generator"
	"github.com/basalt-mc/basalt/server/world/mcregion"
	"github.com/google/uuid"
)

// Config contains options for starting a server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set
	// to slog.Default().
	Log *slog.Logger
	// Address is the TCP address the server listens on. Defaults to the
	// standard Java edition port on all interfaces.
	Address string
	// QueryAddress is the UDP address the GS4 query responder listens on.
	// If empty, no query responder is started.
	QueryAddress string
	// Name is the name of the server, shown in query responses.
	Name string
	// MOTD is the description shown in the server list. Defaults to Name.
	MOTD string
	// MaxPlayers is the maximum amount of players allowed to join at once.
	// If set to 0, the amount of maximum players grows with every join.
	MaxPlayers int
	// ViewRadius is the radius in chunks streamed around every player.
	ViewRadius int
	// GameMode is the game mode every player joins in: 0 survival,
	// 1 creative, 2 adventure, 3 spectator.
	GameMode uint8
	// WorldSizeX and WorldSizeZ are the dimensions of the world's chunk
	// grid. Values below 1 fall back to the world package default.
	WorldSizeX, WorldSizeZ int32
	// Generator fills the world's chunks at startup. If nil, the world is
	// all air.
	Generator world.Generator
	// Allower decides which connections may proceed past login. By
	// returning false in the Allow method, for example when the player is
	// not whitelisted, it prevents the player from joining.
	Allower Allower
	// JoinMessage and QuitMessage are colour tagged chat messages broadcast
	// when a player joins or quits. They must have exactly one formatting
	// argument, which is replaced with the player's name. Empty messages
	// are not broadcast.
	JoinMessage, QuitMessage string
	// ShutdownMessage is the kick reason shown to online players when the
	// server closes.
	ShutdownMessage string
}

// Allower decides which connections may proceed past the login state.
type Allower interface {
	// Allow is called at login with the connection's remote address and the
	// profile it authenticated as. Returning false denies the join, showing
	// the returned message as the reason.
	Allow(addr net.Addr, name string, id uuid.UUID) (string, bool)
	// Restricted reports whether joins are currently gated. Query
	// responses expose it as the whitelist flag.
	Restricted() bool
}

// allower is the default Allower. It allows all connections.
type allower struct{}

func (allower) Allow(net.Addr, string, uuid.UUID) (string, bool) { return "", true }
func (allower) Restricted() bool                                 { return false }

// New creates a Server using fields of conf. The world is created and
// generated; connections are accepted once Server.Listen is called.
func (conf Config) New() *Server {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Address == "" {
		conf.Address = ":25565"
	}
	if conf.Name == "" {
		conf.Name = "Basalt Server"
	}
	if conf.MOTD == "" {
		conf.MOTD = conf.Name
	}
	if conf.ViewRadius <= 0 {
		conf.ViewRadius = 8
	}
	if conf.Allower == nil {
		conf.Allower = allower{}
	}
	if conf.ShutdownMessage == "" {
		conf.ShutdownMessage = "Server closed"
	}

	srv := &Server{
		conf:     conf,
		log:      conf.Log,
		profiles: make(map[uuid.UUID]string),
		closing:  make(chan struct{}),
	}
	srv.tps.Store(math.Float64bits(20))
	srv.world = world.Config{
		Log:       conf.Log,
		SizeX:     conf.WorldSizeX,
		SizeZ:     conf.WorldSizeZ,
		Generator: conf.Generator,
		GameMode:  conf.GameMode,
		Tick:      srv.tick,
	}.New()
	return srv
}

// UserConfig is the user configuration of a server. It holds settings that
// affect different aspects of the server, such as its name and maximum
// players. UserConfig may be serialised and can be converted to a Config by
// calling UserConfig.Config().
type UserConfig struct {
	// Network holds settings related to network aspects of the server.
	Network struct {
		// Address is the address on which the server should listen. Players
		// may connect to this address in order to join.
		Address string
		// QueryAddress is the UDP address the GS4 query responder should
		// listen on. Leave empty to disable the query responder.
		QueryAddress string
	}
	Server struct {
		// Name is the name of the server, shown in query responses.
		Name string
		// MOTD is the message shown for the server in the server list.
		MOTD string
		// DisableJoinQuitMessages specifies if default join and quit
		// messages for players should be disabled.
		DisableJoinQuitMessages bool
	}
	World struct {
		// SizeX and SizeZ are the dimensions of the world in chunks. The
		// world is generated up front; larger worlds take longer to start.
		SizeX, SizeZ int
		// Generator selects how the world's terrain is built. Valid values
		// are "default" and "flat".
		Generator string
		// Seed controls the procedural decoration of the terrain generator.
		Seed int64
		// Folder is a world directory whose region/*.mca files are imported
		// as terrain. Chunks outside the imported regions fall back to the
		// generator. Leave empty to generate everything.
		Folder string
		// GameMode is the game mode players join in. Valid values are
		// "survival", "creative", "adventure" and "spectator".
		GameMode string
	}
	Players struct {
		// MaxCount is the maximum amount of players allowed to join the
		// server at the same time. If set to 0, the amount of maximum
		// players will grow every time a player joins.
		MaxCount int
		// ViewRadius is the radius in chunks streamed around every player.
		ViewRadius int
	}
	Whitelist struct {
		// Enabled controls if the whitelist is enforced for players
		// attempting to join.
		Enabled bool
		// File is the path to the whitelist TOML file that stores player
		// names.
		File string
	}
}

// Config converts a UserConfig to a Config, so that it may be used for
// creating a Server. An error is returned if the generator selection is
// invalid or loading the whitelist or world folder failed.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:          log,
		Address:      uc.Network.Address,
		QueryAddress: uc.Network.QueryAddress,
		Name:         uc.Server.Name,
		MOTD:         uc.Server.MOTD,
		MaxPlayers:   uc.Players.MaxCount,
		ViewRadius:   uc.Players.ViewRadius,
		WorldSizeX:   int32(uc.World.SizeX),
		WorldSizeZ:   int32(uc.World.SizeZ),
	}

	mode, ok := parseGameMode(uc.World.GameMode)
	if !ok {
		return conf, fmt.Errorf("unknown game mode %q", uc.World.GameMode)
	}
	conf.GameMode = mode

	switch strings.ToLower(strings.TrimSpace(uc.World.Generator)) {
	case "", "default":
		conf.Generator = generator.NewDefault(uc.World.Seed)
	case "flat":
		conf.Generator = generator.NewFlat()
	default:
		return conf, fmt.Errorf("unknown generator %q", uc.World.Generator)
	}
	if uc.World.Folder != "" {
		// Center the world grid on the save's origin, where vanilla worlds
		// keep their spawn.
		imp, err := mcregion.Config{
			Log:      log,
			Fallback: conf.Generator,
			OriginX:  -int32(uc.World.SizeX) / 2,
			OriginZ:  -int32(uc.World.SizeZ) / 2,
		}.Open(uc.World.Folder)
		if err != nil {
			return conf, fmt.Errorf("open world folder: %w", err)
		}
		conf.Generator = imp
	}

	if !uc.Server.DisableJoinQuitMessages {
		conf.JoinMessage = "<yellow>%v joined the game</yellow>"
		conf.QuitMessage = "<yellow>%v left the game</yellow>"
	}

	whitelistFile := strings.TrimSpace(uc.Whitelist.File)
	if whitelistFile == "" {
		whitelistFile = "whitelist.toml"
	}
	wl, err := LoadWhitelist(whitelistFile)
	if err != nil {
		return conf, fmt.Errorf("load whitelist: %w", err)
	}
	wl.SetEnabled(uc.Whitelist.Enabled)
	conf.Allower = wl
	return conf, nil
}

// parseGameMode translates a configured game mode name to its id.
func parseGameMode(name string) (uint8, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "survival":
		return 0, true
	case "", "creative":
		return 1, true
	case "adventure":
		return 2, true
	case "spectator":
		return 3, true
	}
	return 0, false
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Network.Address = ":25565"
	c.Server.Name = "Basalt Server"
	c.Server.MOTD = "A Basalt server"
	c.World.SizeX, c.World.SizeZ = 16, 16
	c.World.Generator = "default"
	c.World.Seed = 0
	c.World.GameMode = "creative"
	c.Players.MaxCount = 20
	c.Players.ViewRadius = 8
	c.Whitelist.File = "whitelist.toml"
	return c
}
