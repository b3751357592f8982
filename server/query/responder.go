package query

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	queryTypeHandshake   = 0x09
	queryTypeInformation = 0x00
)

var (
	querySplitNum  = [...]byte{'s', 'p', 'l', 'i', 't', 'n', 'u', 'm', 0x00}
	queryPlayerKey = [...]byte{0x00, 0x01, 'p', 'l', 'a', 'y', 'e', 'r', '_', 0x00, 0x00}
	queryVersion   = [...]byte{0xfe, 0xfd}
)

// Logger provides the logging capabilities used by the query implementation.
type Logger interface {
	Debug(msg string, args ...any)
}

// Source produces Data for the query responder. The host and port values
// represent the address that the query listener is bound to and should be
// reflected in the returned Data structure.
type Source func(host string, port int) Data

// Config holds what the responder needs besides its listen address.
type Config struct {
	// Log receives per-request debug logging. Nil defaults to slog.Default().
	Log Logger
	// Source supplies the server state rendered into responses. It is
	// called on the responder's goroutine and must be safe for that.
	Source Source
}

// Listen binds a UDP socket on addr and starts answering query requests on
// it until the responder is closed.
func (conf Config) Listen(addr string) (*Responder, error) {
	if conf.Source == nil {
		return nil, errors.New("query: Source must be set")
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	host, port := "0.0.0.0", 0
	if local, _ := net.ResolveUDPAddr("udp", conn.LocalAddr().String()); local != nil {
		if local.IP != nil && !local.IP.IsUnspecified() {
			host = local.IP.String()
		}
		port = local.Port
	}

	r := &Responder{
		conn:   conn,
		log:    conf.Log,
		source: conf.Source,
		host:   host,
		port:   port,
	}
	go r.serve()
	return r, nil
}

// Responder answers GS4 query requests on its own UDP socket.
type Responder struct {
	conn   net.PacketConn
	log    Logger
	source Source
	host   string
	port   int

	mu     sync.Mutex
	tokens map[string]token
	rng    *rand.Rand
}

type token struct {
	value  int32
	expiry time.Time
}

// Addr returns the address the responder is listening on.
func (r *Responder) Addr() net.Addr { return r.conn.LocalAddr() }

// Close stops the responder and releases its socket.
func (r *Responder) Close() {
	_ = r.conn.Close()
}

// serve reads datagrams until the socket closes. Anything that is not a
// query request is dropped.
func (r *Responder) serve() {
	buf := make([]byte, 1472)
	for {
		n, addr, err := r.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		r.handleQuery(buf[:n], addr)
	}
}

// handleQuery recognises and processes query requests, reporting whether the
// datagram was one.
func (r *Responder) handleQuery(b []byte, addr net.Addr) bool {
	if len(b) < 7 || b[0] != queryVersion[0] || b[1] != queryVersion[1] {
		return false
	}
	reqType := b[2]
	sequence := int32(binary.BigEndian.Uint32(b[3:7]))
	switch reqType {
	case queryTypeHandshake:
		token := r.newToken(addr.String())
		r.writeHandshake(addr, sequence, token)
		return true
	case queryTypeInformation:
		if len(b) <= 7 {
			return true
		}
		token, ok := parseTokenValue(b[7:])
		if !ok {
			return true
		}
		if !r.validateToken(addr.String(), token) {
			return true
		}
		r.writeInfo(addr, sequence)
		return true
	default:
		return false
	}
}

// newToken issues a temporary token for the provided address. The token is
// required by the query protocol to guard against amplification attacks.
func (r *Responder) newToken(addr string) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tokens == nil {
		r.tokens = make(map[string]token)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	value := r.rng.Int31()
	r.tokens[addr] = token{
		value:  value,
		expiry: time.Now().Add(30 * time.Second),
	}
	return value
}

// validateToken checks whether a previously issued token remains valid for
// the provided address.
func (r *Responder) validateToken(addr string, value int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[addr]
	if !ok || time.Now().After(token.expiry) || token.value != value {
		delete(r.tokens, addr)
		return false
	}
	return true
}

// writeHandshake constructs the handshake response that carries the issued
// token as a null padded decimal string.
func (r *Responder) writeHandshake(addr net.Addr, sequence, token int32) {
	buf := bytes.NewBuffer(make([]byte, 0, 1+4+12))
	buf.WriteByte(queryTypeHandshake)
	_ = binary.Write(buf, binary.BigEndian, sequence)

	tokenStr := strconv.FormatInt(int64(token), 10)
	if len(tokenStr) > 12 {
		tokenStr = tokenStr[:12]
	}
	buf.WriteString(tokenStr)
	if padding := 12 - len(tokenStr); padding > 0 {
		buf.Write(make([]byte, padding))
	}
	if _, err := r.conn.WriteTo(buf.Bytes(), addr); err != nil {
		r.log.Debug("query handshake write failed", "err", err, "raddr", addr.String())
	}
}

// writeInfo renders the full server information payload for a validated
// query request.
func (r *Responder) writeInfo(addr net.Addr, sequence int32) {
	data := r.source(r.host, r.port)
	data.applyDefaults()

	buf := bytes.NewBuffer(make([]byte, 0, 256))
	buf.WriteByte(queryTypeInformation)
	_ = binary.Write(buf, binary.BigEndian, sequence)
	buf.Write(querySplitNum[:])
	buf.WriteByte(0x80)
	buf.WriteByte(0x00)

	for _, kv := range data.keyValues() {
		buf.WriteString(kv.key)
		buf.WriteByte(0x00)
		buf.WriteString(kv.value)
		buf.WriteByte(0x00)
	}
	buf.WriteByte(0x00)
	buf.Write(queryPlayerKey[:])
	for _, name := range data.PlayerNames {
		buf.WriteString(name)
		buf.WriteByte(0x00)
	}
	buf.WriteByte(0x00)

	if _, err := r.conn.WriteTo(buf.Bytes(), addr); err != nil {
		r.log.Debug("query info write failed", "err", err, "raddr", addr.String())
	}
}

// parseTokenValue accepts both forms clients send the challenge token in: a
// null padded ASCII decimal and a raw big endian int32.
func parseTokenValue(payload []byte) (int32, bool) {
	trimmed := payload
	if len(trimmed) >= 4 {
		if i := bytes.Index(trimmed, []byte{0xff, 0xff, 0xff, 0x01}); i >= 0 {
			trimmed = trimmed[:i]
		}
	}
	trimmed = bytes.TrimRight(trimmed, "\x00")
	if len(trimmed) > 0 {
		if value, err := strconv.ParseInt(string(trimmed), 10, 32); err == nil {
			return int32(value), true
		}
	}
	if len(payload) >= 4 {
		return int32(binary.BigEndian.Uint32(payload[:4])), true
	}
	return 0, false
}
