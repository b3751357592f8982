package protocol

import (
	"errors"
	"fmt"
)

// MaxPacketSize is the maximum serialized payload size of a single packet,
// leaving room for the three byte frame header and the packet id inside the
// two MiB frame budget.
const MaxPacketSize = 1<<21 - 4

// ErrPacketTooLarge is returned when a packet's payload exceeds
// MaxPacketSize, either up front from its size hint or after writing.
var ErrPacketTooLarge = errors.New("protocol: packet exceeds maximum size")

// Buffer accumulates framed packets for a single flush to a connection.
// Frames are laid out back to back, each as a varint length followed by the
// packet id and payload. Payloads of at most 126 bytes get a single length
// byte. Larger payloads get a three byte length header with the continuation
// bits of the first two bytes forced on, so the header size is known before
// the payload is written.
type Buffer struct {
	b []byte
}

// Len returns the number of framed bytes currently held.
func (buf *Buffer) Len() int {
	return len(buf.b)
}

// Bytes returns the framed bytes written so far. The slice is only valid
// until the next write or Reset.
func (buf *Buffer) Bytes() []byte {
	return buf.b
}

// Reset discards all written frames but keeps the allocated space.
func (buf *Buffer) Reset() {
	buf.b = buf.b[:0]
}

// reserve grows the buffer by n bytes and returns the slice to write them to.
func (buf *Buffer) reserve(n int) []byte {
	need := len(buf.b) + n
	if need > cap(buf.b) {
		c := cap(buf.b) * 2
		if c < need {
			c = need
		}
		if c < 4096 {
			c = 4096
		}
		grown := make([]byte, len(buf.b), c)
		copy(grown, buf.b)
		buf.b = grown
	}
	off := len(buf.b)
	buf.b = buf.b[:need]
	return buf.b[off:]
}

// WritePacket frames and appends a single packet.
func (buf *Buffer) WritePacket(p Packet) error {
	return buf.WriteCustom(p.ID(), p.Size(), func(b []byte) (int, error) {
		return p.Write(b), nil
	})
}

// WriteCustom frames a packet whose payload is produced by fn. expected is an
// upper bound on the payload size; fn receives a slice of that length and
// returns how many bytes it actually wrote.
func (buf *Buffer) WriteCustom(id byte, expected int, fn func(b []byte) (int, error)) error {
	if expected > MaxPacketSize {
		return fmt.Errorf("%w: %d byte payload", ErrPacketTooLarge, expected)
	}
	off := len(buf.b)
	b := buf.reserve(4 + expected)
	n, err := fn(b[4:])
	if err != nil {
		buf.b = buf.b[:off]
		return err
	}
	if n > expected {
		buf.b = buf.b[:off]
		return fmt.Errorf("protocol: packet 0x%02x wrote %d bytes into a %d byte reservation", id, n, expected)
	}
	if n <= 126 {
		// Tight frame: single length byte, shift the payload up next to it.
		b[0] = byte(n + 1)
		b[1] = id
		copy(b[2:], b[4:4+n])
		buf.b = buf.b[:off+2+n]
		return nil
	}
	v := uint32(n + 1)
	b[0] = byte(v)&0x7F | 0x80
	b[1] = byte(v>>7)&0x7F | 0x80
	b[2] = byte(v >> 14)
	b[3] = id
	buf.b = buf.b[:off+4+n]
	return nil
}

// WriteFramed appends bytes that already carry their frame headers, such as a
// chunk's cached packet bytes.
func (buf *Buffer) WriteFramed(frames []byte) {
	b := buf.reserve(len(frames))
	copy(b, frames)
}
