// Package protocol implements the wire codec of the Minecraft Java Edition
// protocol at a single pinned version: reading and writing of primitives,
// varints, strings and blobs, the packet catalog for every connection state,
// and the tick-local packet buffer used to frame clientbound packets.
//
// The codec is slice based. Reading happens through a Reader that advances a
// cursor over a byte slice and records the first error it encounters. Writing
// happens into pre-sized byte slices through Put* helpers that return the
// number of bytes written, so that composite writers can chain them without
// intermediate allocations.
package protocol

// Version is the protocol version number the codec implements. Packet ids and
// field orders throughout this package match this version byte for byte.
const Version = 760

// VersionName is the game version corresponding to Version, as advertised in
// the status response.
const VersionName = "1.19.1"

// connection states, in the order a connection progresses through them.
const (
	StateHandshake = iota
	StateStatus
	StateLogin
	StatePlay
)
