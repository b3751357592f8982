package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrTruncated is returned when a read runs past the end of the input.
var ErrTruncated = errors.New("protocol: not enough remaining bytes")

// ErrVarIntTooLarge is returned when a varint exceeds its 5 byte limit.
var ErrVarIntTooLarge = errors.New("protocol: varint exceeds 5 bytes")

// Reader decodes wire primitives from a byte slice. Methods advance an
// internal cursor; the first failure is recorded and every later read
// returns the zero value, so call sites may decode a full packet and check
// Err once at the end.
type Reader struct {
	b   []byte
	off int
	err error
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.b) - r.off
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.fail(ErrTruncated)
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() uint8 {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

// Bool reads a single byte, interpreting any non-zero value as true.
func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Int16 reads a big-endian int16.
func (r *Reader) Int16() int16 {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return int16(binary.BigEndian.Uint16(p))
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() uint16 {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint16(p)
}

// Int32 reads a big-endian int32.
func (r *Reader) Int32() int32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(p))
}

// Int64 reads a big-endian int64.
func (r *Reader) Int64() int64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(p))
}

// Uint64 reads a big-endian uint64.
func (r *Reader) Uint64() uint64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return binary.BigEndian.Uint64(p)
}

// Uint128 reads a big-endian 128-bit value as its high and low halves.
func (r *Reader) Uint128() (hi, lo uint64) {
	hi = r.Uint64()
	lo = r.Uint64()
	return hi, lo
}

// UUID reads a 128-bit UUID.
func (r *Reader) UUID() uuid.UUID {
	var id uuid.UUID
	p := r.take(16)
	if p != nil {
		copy(id[:], p)
	}
	return id
}

// Float32 reads a big-endian IEEE 754 float.
func (r *Reader) Float32() float32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return math.Float32frombits(binary.BigEndian.Uint32(p))
}

// Float64 reads a big-endian IEEE 754 double.
func (r *Reader) Float64() float64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p))
}

// VarInt reads an LEB128 encoded int32 of at most 5 bytes.
func (r *Reader) VarInt() int32 {
	var v uint32
	for i := 0; i < 5; i++ {
		b := r.Uint8()
		if r.err != nil {
			return 0
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(v)
		}
	}
	r.fail(ErrVarIntTooLarge)
	return 0
}

// Blob reads a varint length-prefixed byte run of at most max bytes. The
// returned slice aliases the input.
func (r *Reader) Blob(max int) []byte {
	n := r.VarInt()
	if r.err != nil {
		return nil
	}
	if n < 0 || int(n) > max {
		r.fail(fmt.Errorf("protocol: blob of %v bytes exceeds maximum %v", n, max))
		return nil
	}
	return r.take(int(n))
}

// String reads a varint length-prefixed UTF-8 string of at most max runes.
func (r *Reader) String(max int) string {
	p := r.Blob(max * 4)
	if r.err != nil {
		return ""
	}
	if !utf8.Valid(p) {
		r.fail(errors.New("protocol: string is not valid UTF-8"))
		return ""
	}
	if len(p) > max && utf8.RuneCount(p) > max {
		r.fail(fmt.Errorf("protocol: string of %v runes exceeds maximum %v", utf8.RuneCount(p), max))
		return ""
	}
	return string(p)
}

// Bytes reads exactly n bytes. The returned slice aliases the input.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

// GreedyBlob reads every remaining byte.
func (r *Reader) GreedyBlob() []byte {
	return r.take(r.Remaining())
}

// BlockPos reads a position packed into a big-endian int64 as 26/26/12 bit
// x/z/y fields.
func (r *Reader) BlockPos() BlockPos {
	v := r.Int64()
	return BlockPos{
		X: int32(v >> 38),
		Y: int32(v << 52 >> 52),
		Z: int32(v << 26 >> 38),
	}
}
