// Package session implements the connection layer under a player: framed
// packet reads on a per-connection goroutine, a write queue flushed by a
// writer goroutine and an inbound frame queue drained by the tick thread. A
// session carries a connection through the handshake, status and login
// states and is then promoted to the play state by installing a Handler.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	// maxFrame is the largest packet a frame header may announce, the full
	// 21 bit range of a three byte length header.
	maxFrame = 2097151
	// readGrowth is the step by which the read buffer grows when a partial
	// frame fills it.
	readGrowth = 64 << 10
	// maxWriteBacklog caps the outbound bytes queued for a client that does
	// not read fast enough before it is dropped.
	maxWriteBacklog = 4 << 20
	// maxInboundQueue caps the frames buffered between two ticks before the
	// client is considered to be flooding.
	maxInboundQueue = 4096
	// closeFlushTimeout bounds the final flush of queued outbound bytes,
	// such as a disconnect reason, when the session closes.
	closeFlushTimeout = 5 * time.Second
)

// Framing violations, kept apart from plain connection failures so that
// teardown can log them at the right level.
var (
	errHeaderTooLong   = errors.New("session: frame length header exceeds three bytes")
	errFrameTooLarge   = errors.New("session: frame length exceeds maximum")
	errInboundOverflow = errors.New("session: inbound queue overflow")
)

// Handler receives the frames of a session promoted to the play state.
type Handler interface {
	// HandlePacket handles one framed packet, id byte first. It only ever
	// runs on the tick thread. Returning an error tears the session down.
	HandlePacket(frame []byte) error
	// Disconnected reports the connection dropping on its own. It runs on
	// the session's read goroutine and must only schedule work.
	Disconnected()
}

// Session is one client connection. Reads happen on the goroutine calling
// ReadFrame or ReadLoop, writes on a goroutine owned by the session.
type Session struct {
	log  *slog.Logger
	conn net.Conn

	// Read state, owned by the reading goroutine. Buffered bytes not yet
	// decoded live in rbuf[roff:rlen].
	rbuf []byte
	roff int
	rlen int
	rerr error

	mu      sync.Mutex
	handler Handler
	inbound [][]byte
	closed  bool

	wmu     sync.Mutex
	wcond   sync.Cond
	wbuf    []byte
	wspare  []byte
	wclosed bool
}

// New wraps an accepted connection in a session and starts its writer
// goroutine. The caller's goroutine becomes the read side by negotiating
// with ReadFrame and then entering ReadLoop.
func New(conn net.Conn, log *slog.Logger) *Session {
	s := &Session{
		log:  log,
		conn: conn,
		rbuf: make([]byte, readGrowth),
	}
	s.wcond.L = &s.wmu
	go s.writeLoop()
	return s
}

// RemoteAddr returns the address of the connected client.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// SetReadDeadline bounds how long reads may block. The server uses it to
// limit the handshake, status and login states; the zero time removes the
// bound again.
func (s *Session) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// ReadFrame reads the next framed packet, blocking until one is complete.
// The frame aliases the session's read buffer and is valid until the next
// read call.
func (s *Session) ReadFrame() ([]byte, error) {
	for {
		frame, n, err := decodeFrame(s.rbuf[s.roff:s.rlen])
		if err != nil {
			return nil, err
		}
		if n > 0 {
			s.roff += n
			return frame, nil
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

// fill reads more bytes from the connection, compacting or growing the read
// buffer when a partial frame has filled it.
func (s *Session) fill() error {
	if s.rerr != nil {
		return s.rerr
	}
	if s.rlen == len(s.rbuf) {
		if s.roff > 0 {
			s.rlen = copy(s.rbuf, s.rbuf[s.roff:s.rlen])
			s.roff = 0
		} else {
			grown := make([]byte, len(s.rbuf)+readGrowth)
			copy(grown, s.rbuf)
			s.rbuf = grown
		}
	}
	n, err := s.conn.Read(s.rbuf[s.rlen:])
	s.rlen += n
	if err != nil {
		if n == 0 {
			return err
		}
		// Decode what arrived before surfacing the error.
		s.rerr = err
	}
	return nil
}

// Handle installs h to receive the session's inbound frames. It reports
// false when the session already closed, in which case h will never run.
func (s *Session) Handle(h Handler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.handler = h
	return true
}

// ReadLoop pumps frames into the inbound queue until the connection fails or
// the session closes. It blocks the calling goroutine; the tick thread
// empties the queue through DispatchInbound.
func (s *Session) ReadLoop() {
	for {
		frame, err := s.ReadFrame()
		if err != nil {
			s.teardown(err)
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.inbound) >= maxInboundQueue {
			s.mu.Unlock()
			s.teardown(errInboundOverflow)
			return
		}
		s.inbound = append(s.inbound, append([]byte(nil), frame...))
		s.mu.Unlock()
	}
}

// teardown closes the session from the read side and tells the handler the
// connection dropped. An explicit Close beats it to the handler slot, in
// which case nobody is notified.
func (s *Session) teardown(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	h := s.handler
	s.handler = nil
	s.inbound = nil
	s.mu.Unlock()

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		// Client hung up.
	case errors.Is(err, errHeaderTooLong), errors.Is(err, errFrameTooLarge), errors.Is(err, errInboundOverflow):
		s.log.Warn("Session violated framing limits.", "raddr", s.conn.RemoteAddr(), "err", err)
	default:
		s.log.Debug("Session read failed.", "raddr", s.conn.RemoteAddr(), "err", err)
	}
	s.closeWrite()
	if h != nil {
		h.Disconnected()
	}
}

// DispatchInbound hands the queued inbound frames to the handler in arrival
// order. It runs on the tick thread. A handler error or panic closes the
// session and is returned for the caller to act on.
func (s *Session) DispatchInbound() error {
	s.mu.Lock()
	frames := s.inbound
	s.inbound = nil
	s.mu.Unlock()

	for _, frame := range frames {
		s.mu.Lock()
		h := s.handler
		s.mu.Unlock()
		if h == nil {
			return nil
		}
		if err := dispatch(h, frame); err != nil {
			s.Close()
			return err
		}
	}
	return nil
}

// dispatch runs one frame through the handler, converting a panic into an
// error so that a broken handler costs one client, not the server.
func dispatch(h Handler, frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling packet: %v", r)
		}
	}()
	return h.HandlePacket(frame)
}

// Send queues b for delivery by the writer goroutine, copying it. A client
// whose backlog exceeds the cap is dropped.
func (s *Session) Send(b []byte) {
	s.wmu.Lock()
	if s.wclosed {
		s.wmu.Unlock()
		return
	}
	if len(s.wbuf)+len(b) > maxWriteBacklog {
		s.wmu.Unlock()
		s.log.Warn("Session write backlog overflow.", "raddr", s.conn.RemoteAddr())
		s.Close()
		return
	}
	s.wbuf = append(s.wbuf, b...)
	s.wmu.Unlock()
	s.wcond.Signal()
}

// Close tears the session down: the handler slot is nulled before Close
// returns, queued outbound bytes get a bounded final flush and the
// connection is closed. Close may be called more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.handler = nil
	s.inbound = nil
	s.mu.Unlock()

	s.closeWrite()
}

// closeWrite stops the writer goroutine after a bounded flush of what is
// already queued. The writer closes the connection on its way out, which
// also unblocks the read side.
func (s *Session) closeWrite() {
	_ = s.conn.SetWriteDeadline(time.Now().Add(closeFlushTimeout))
	s.wmu.Lock()
	s.wclosed = true
	s.wmu.Unlock()
	s.wcond.Signal()
}

// writeLoop flushes the write queue to the connection until the session
// closes or a write fails.
func (s *Session) writeLoop() {
	s.wmu.Lock()
	for {
		for len(s.wbuf) == 0 && !s.wclosed {
			s.wcond.Wait()
		}
		if len(s.wbuf) == 0 {
			s.wmu.Unlock()
			_ = s.conn.Close()
			return
		}
		out := s.wbuf
		s.wbuf = s.wspare[:0]
		s.wspare = nil
		s.wmu.Unlock()

		_, err := s.conn.Write(out)

		s.wmu.Lock()
		if err != nil {
			s.wclosed = true
			s.wbuf = nil
			s.wmu.Unlock()
			_ = s.conn.Close()
			return
		}
		s.wspare = out[:0]
	}
}

// decodeFrame splits one length-framed packet off buf. A zero n means more
// bytes are needed; the returned frame aliases buf. Frames shorter than
// three bytes only decode once three bytes arrived, except for the two byte
// encoding of a single byte packet.
func decodeFrame(buf []byte) (frame []byte, n int, err error) {
	switch {
	case len(buf) >= 3:
		size, header, err := frameHeader(buf)
		if err != nil {
			return nil, 0, err
		}
		if size > maxFrame {
			return nil, 0, errFrameTooLarge
		}
		if len(buf)-header < size {
			return nil, 0, nil
		}
		return buf[header : header+size], header + size, nil
	case len(buf) == 2 && buf[0] == 1:
		return buf[1:2], 2, nil
	default:
		return nil, 0, nil
	}
}

// frameHeader decodes the varint length header of a frame, at most three
// bytes long.
func frameHeader(buf []byte) (size, header int, err error) {
	for i := 0; i < 3; i++ {
		size |= int(buf[i]&0x7F) << (7 * i)
		if buf[i]&0x80 == 0 {
			return size, i + 1, nil
		}
	}
	return 0, 0, errHeaderTooLong
}
