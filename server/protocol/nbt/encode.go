package nbt

import (
	"encoding/binary"
	"math"
)

// AppendNamed appends root in its named form: the compound tag id, the root
// name and the entries. The network form of the protocol uses an empty root
// name.
func AppendNamed(dst []byte, name string, root *Compound) []byte {
	dst = append(dst, TagCompound)
	dst = appendString(dst, name)
	return appendCompound(dst, root)
}

// Append appends root without a root name, as stored inside item stacks.
func Append(dst []byte, root *Compound) []byte {
	dst = append(dst, TagCompound)
	return appendCompound(dst, root)
}

func appendCompound(dst []byte, c *Compound) []byte {
	for _, e := range c.entries {
		dst = append(dst, e.value.tagType())
		dst = appendString(dst, e.name)
		dst = appendValue(dst, e.value)
	}
	return append(dst, TagEnd)
}

func appendValue(dst []byte, v Value) []byte {
	switch v := v.(type) {
	case Byte:
		return append(dst, byte(v))
	case Short:
		return binary.BigEndian.AppendUint16(dst, uint16(v))
	case Int:
		return binary.BigEndian.AppendUint32(dst, uint32(v))
	case Long:
		return binary.BigEndian.AppendUint64(dst, uint64(v))
	case Float:
		return binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	case Double:
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(float64(v)))
	case ByteArray:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v)))
		return append(dst, v...)
	case String:
		return appendString(dst, string(v))
	case List:
		t := v.Type
		if len(v.Elems) > 0 {
			t = v.Elems[0].tagType()
		}
		dst = append(dst, t)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v.Elems)))
		for _, e := range v.Elems {
			dst = appendValue(dst, e)
		}
		return dst
	case *Compound:
		return appendCompound(dst, v)
	case IntArray:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v)))
		for _, i := range v {
			dst = binary.BigEndian.AppendUint32(dst, uint32(i))
		}
		return dst
	case LongArray:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v)))
		for _, l := range v {
			dst = binary.BigEndian.AppendUint64(dst, uint64(l))
		}
		return dst
	}
	panic("nbt: unknown value type")
}

// appendString writes the u16 length prefix and the CESU-8 bytes. Strings
// whose CESU-8 form exceeds 65535 bytes have no wire form, so this panics.
func appendString(dst []byte, s string) []byte {
	start := len(dst)
	dst = append(dst, 0, 0)
	dst = appendCESU8(dst, s)
	n := len(dst) - start - 2
	if n > math.MaxUint16 {
		panic("nbt: string exceeds 65535 bytes")
	}
	binary.BigEndian.PutUint16(dst[start:], uint16(n))
	return dst
}
