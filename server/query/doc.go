// Package query implements the GS4 query protocol, answering the handshake
// and full stat requests tools use to poll a server's state.
//
// The responder owns its own UDP socket and renders responses from a Source
// callback the server supplies, so the package stays agnostic of the server
// internals.
package query
