package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// Handshake, status and login state packet ids.
const (
	IDIntention byte = 0x00

	IDStatusRequest byte = 0x00
	IDPingRequest   byte = 0x01

	IDStatusResponse byte = 0x00
	IDPongResponse   byte = 0x01

	IDHello byte = 0x00

	IDLoginDisconnect byte = 0x00
	IDLoginSuccess    byte = 0x02
)

// Handshake intentions.
const (
	IntentStatus int32 = 1
	IntentLogin  int32 = 2
)

// Intention is the first packet of every connection. It names the protocol
// version the client speaks and whether it wants the status or login state.
type Intention struct {
	Protocol int32
	Host     string
	Port     uint16
	Intent   int32
}

// ParseHandshake decodes the single handshake state packet.
func ParseHandshake(id byte, payload []byte) (*Intention, error) {
	if id != IDIntention {
		return nil, fmt.Errorf("unexpected handshake packet 0x%02x", id)
	}
	r := NewReader(payload)
	pkt := &Intention{
		Protocol: r.VarInt(),
		Host:     r.String(256),
		Port:     r.Uint16(),
		Intent:   r.VarInt(),
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("intention: %w", err)
	}
	return pkt, nil
}

// StatusRequest asks for the server list JSON.
type StatusRequest struct{}

// PingRequest asks for a PongResponse echo of its timestamp.
type PingRequest struct {
	Time int64
}

// ParseStatus decodes a serverbound status state packet.
func ParseStatus(id byte, payload []byte) (any, error) {
	r := NewReader(payload)
	var pkt any
	switch id {
	case IDStatusRequest:
		pkt = &StatusRequest{}
	case IDPingRequest:
		pkt = &PingRequest{Time: r.Int64()}
	default:
		return nil, fmt.Errorf("unexpected status packet 0x%02x", id)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("packet 0x%02x: %w", id, err)
	}
	return pkt, nil
}

// StatusResponse carries the server list JSON.
type StatusResponse struct {
	JSON string
}

func (*StatusResponse) ID() byte { return IDStatusResponse }

func (p *StatusResponse) Size() int { return StringSize(p.JSON) }

func (p *StatusResponse) Write(b []byte) int {
	return PutString(b, p.JSON)
}

// PongResponse echoes a PingRequest timestamp.
type PongResponse struct {
	Time int64
}

func (*PongResponse) ID() byte { return IDPongResponse }

func (*PongResponse) Size() int { return 8 }

func (p *PongResponse) Write(b []byte) int {
	return PutInt64(b, p.Time)
}

// Hello starts the login state. The signature data clients attach when they
// hold a profile key is skipped, the optional profile UUID is kept so online
// UUIDs survive in offline mode.
type Hello struct {
	Name    string
	UUID    uuid.UUID
	HasUUID bool
}

// ParseLogin decodes a serverbound login state packet.
func ParseLogin(id byte, payload []byte) (*Hello, error) {
	if id != IDHello {
		return nil, fmt.Errorf("unexpected login packet 0x%02x", id)
	}
	r := NewReader(payload)
	pkt := &Hello{Name: r.String(16)}
	if r.Bool() {
		r.Int64()   // key expiry
		r.Blob(512) // public key
		r.Blob(4096)
	}
	if r.Bool() {
		pkt.UUID = r.UUID()
		pkt.HasUUID = true
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("hello: %w", err)
	}
	return pkt, nil
}

// LoginDisconnect kicks the client during login with a chat component
// reason.
type LoginDisconnect struct {
	Reason string
}

func (*LoginDisconnect) ID() byte { return IDLoginDisconnect }

func (p *LoginDisconnect) Size() int { return StringSize(p.Reason) }

func (p *LoginDisconnect) Write(b []byte) int {
	return PutString(b, p.Reason)
}

// LoginSuccess completes login and moves the connection to the play state.
type LoginSuccess struct {
	Profile GameProfile
}

func (*LoginSuccess) ID() byte { return IDLoginSuccess }

func (p *LoginSuccess) Size() int { return p.Profile.size() }

func (p *LoginSuccess) Write(b []byte) int {
	return p.Profile.put(b)
}
