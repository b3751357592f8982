package protocol

import (
	"encoding/binary"
	"math"
	"math/bits"
)

// MaxStringLength is the maximum rune count accepted for a length-prefixed
// string unless the field specifies a smaller limit.
const MaxStringLength = 32767

// VarIntSize returns the number of bytes the varint encoding of v occupies,
// between 1 and 5.
func VarIntSize(v int32) int {
	if v == 0 {
		return 1
	}
	return (31-bits.LeadingZeros32(uint32(v)))/7 + 1
}

// PutVarInt writes v to b in LEB128 form, continuation bit in the MSB, and
// returns the number of bytes written. b must have room for VarIntSize(v)
// bytes.
func PutVarInt(b []byte, v int32) int {
	u, n := uint32(v), 0
	for u >= 0x80 {
		b[n] = byte(u) | 0x80
		u >>= 7
		n++
	}
	b[n] = byte(u)
	return n + 1
}

// PutUint8 writes a single byte.
func PutUint8(b []byte, v uint8) int {
	b[0] = v
	return 1
}

// PutBool writes a bool as a 0x00 or 0x01 byte.
func PutBool(b []byte, v bool) int {
	if v {
		b[0] = 1
	} else {
		b[0] = 0
	}
	return 1
}

// PutUint16 writes v big-endian.
func PutUint16(b []byte, v uint16) int {
	binary.BigEndian.PutUint16(b, v)
	return 2
}

// PutInt16 writes v big-endian.
func PutInt16(b []byte, v int16) int {
	binary.BigEndian.PutUint16(b, uint16(v))
	return 2
}

// PutInt32 writes v big-endian.
func PutInt32(b []byte, v int32) int {
	binary.BigEndian.PutUint32(b, uint32(v))
	return 4
}

// PutInt64 writes v big-endian.
func PutInt64(b []byte, v int64) int {
	binary.BigEndian.PutUint64(b, uint64(v))
	return 8
}

// PutUint64 writes v big-endian.
func PutUint64(b []byte, v uint64) int {
	binary.BigEndian.PutUint64(b, v)
	return 8
}

// PutUint128 writes the high and low halves of a 128-bit value big-endian.
// It is used for UUID fields.
func PutUint128(b []byte, hi, lo uint64) int {
	binary.BigEndian.PutUint64(b, hi)
	binary.BigEndian.PutUint64(b[8:], lo)
	return 16
}

// PutFloat32 writes the IEEE 754 bits of v big-endian.
func PutFloat32(b []byte, v float32) int {
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
	return 4
}

// PutFloat64 writes the IEEE 754 bits of v big-endian.
func PutFloat64(b []byte, v float64) int {
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return 8
}

// StringSize returns the encoded size of a varint length-prefixed string.
func StringSize(s string) int {
	return VarIntSize(int32(len(s))) + len(s)
}

// PutString writes s prefixed by its byte length as a varint.
func PutString(b []byte, s string) int {
	n := PutVarInt(b, int32(len(s)))
	n += copy(b[n:], s)
	return n
}

// BlobSize returns the encoded size of a varint length-prefixed byte run.
func BlobSize(p []byte) int {
	return VarIntSize(int32(len(p))) + len(p)
}

// PutBlob writes p prefixed by its length as a varint.
func PutBlob(b []byte, p []byte) int {
	n := PutVarInt(b, int32(len(p)))
	n += copy(b[n:], p)
	return n
}
