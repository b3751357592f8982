package query

import (
	"runtime/debug"
	"strconv"
	"strings"
)

// fallbackVersion is advertised when the source leaves Version empty.
const fallbackVersion = "1.19.1"

// Data summarises the information returned by the query responder. The
// structure is intentionally high level so that the server package can
// supply values without being aware of the exact key/value pairs that are
// sent over the wire.
type Data struct {
	// HostName is the public server name.
	HostName string
	// MOTD is the optional secondary server name shown in some clients.
	MOTD string
	// GameMode represents the default game mode of the world.
	GameMode string
	// Difficulty is the textual representation of the server difficulty.
	Difficulty string
	// WorldName holds the name of the world exposed by the server.
	WorldName string
	// Engine identifies the software that powers the server. When empty the
	// package falls back to the compiled engineLabel.
	Engine string
	// Version represents the game version string advertised to clients.
	Version string
	// PlayerCount reports the amount of online players.
	PlayerCount int
	// MaxPlayers is the configured player capacity.
	MaxPlayers int
	// HostIP is the textual representation of the listening IP address.
	HostIP string
	// HostPort is the listening port number.
	HostPort int
	// Plugins contains a semi-colon separated description of active plugins.
	Plugins string
	// PlayerNames lists the names of online players in sorted order.
	PlayerNames []string
	// GameType describes the type of game. Defaults to "SMP" when empty.
	GameType string
	// GameID is the identifier of the title shown to clients. Defaults to
	// "MINECRAFT" when empty.
	GameID string
	// WhitelistEnabled indicates whether the server whitelist is enabled.
	WhitelistEnabled bool
}

type keyValue struct {
	key   string
	value string
}

// applyDefaults ensures that required fields are initialised before the data
// is serialised into key/value pairs.
func (d *Data) applyDefaults() {
	if d.HostIP == "" {
		d.HostIP = "0.0.0.0"
	}
	if d.Engine == "" {
		d.Engine = engineLabel
	}
	if d.Version == "" {
		d.Version = fallbackVersion
	}
	if d.GameType == "" {
		d.GameType = "SMP"
	}
	if d.GameID == "" {
		d.GameID = "MINECRAFT"
	}
	d.HostPort = int(uint16(d.HostPort))
}

// keyValues converts Data into the ordered key/value pairs required by the
// query protocol.
func (d Data) keyValues() []keyValue {
	whitelist := "off"
	if d.WhitelistEnabled {
		whitelist = "on"
	}
	values := []keyValue{
		{"hostname", d.HostName},
		{"gametype", d.GameType},
		{"game_id", d.GameID},
		{"version", d.Version},
		{"server_engine", d.Engine},
	}
	if d.WorldName != "" {
		values = append(values, keyValue{"map", d.WorldName})
	}
	values = append(values,
		keyValue{"numplayers", strconv.Itoa(d.PlayerCount)},
		keyValue{"maxplayers", strconv.Itoa(d.MaxPlayers)},
		keyValue{"whitelist", whitelist},
		keyValue{"hostport", strconv.Itoa(d.HostPort)},
		keyValue{"hostip", d.HostIP},
	)
	if d.GameMode != "" {
		values = append(values, keyValue{"gamemode", d.GameMode})
	}
	if d.Difficulty != "" {
		values = append(values, keyValue{"difficulty", d.Difficulty})
	}
	if d.MOTD != "" {
		values = append(values, keyValue{"motd", d.MOTD})
	}
	values = append(values, keyValue{"plugins", d.Plugins})
	if len(d.PlayerNames) > 0 {
		values = append(values, keyValue{"players", strings.Join(d.PlayerNames, ", ")})
	}
	return values
}

// engineLabel is the engine identifier shown by query clients.
var engineLabel = buildEngineLabel()

// buildEngineLabel inspects build metadata to determine the engine label
// reported through the query interface. The build information is optional,
// so sane defaults are supplied when it cannot be determined.
func buildEngineLabel() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return "Basalt"
	}
	version := info.Main.Version
	if version == "" {
		version = "dev"
	}
	return "Basalt (" + version + ")"
}
