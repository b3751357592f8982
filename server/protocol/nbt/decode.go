package nbt

import (
	"errors"
	"fmt"
	"math"

	"github.com/basalt-mc/basalt/server/protocol"
)

// Decode limits. maxDecodeSize caps the approximate in-memory size of the
// decoded tree so a small payload cannot expand into an enormous one, and
// maxDepth caps list and compound nesting.
const (
	maxDecodeSize = 2 * 1024 * 1024
	maxDepth      = 512
)

// ErrTooLarge is returned when a decoded tree would exceed maxDecodeSize.
var ErrTooLarge = errors.New("nbt: decoded tree exceeds size limit")

// ErrTooDeep is returned when nesting exceeds maxDepth.
var ErrTooDeep = errors.New("nbt: nesting exceeds depth limit")

// Decode reads a named root tag. The root must be a compound, or a single
// TAG_End byte standing for an empty tree. Trailing bytes after the root are
// not consumed and not an error.
func Decode(b []byte) (name string, root *Compound, err error) {
	r := protocol.NewReader(b)
	t := r.Uint8()
	if err := r.Err(); err != nil {
		return "", nil, fmt.Errorf("nbt: %w", err)
	}
	if t == TagEnd {
		return "", NewCompound(), nil
	}
	if t != TagCompound {
		return "", nil, fmt.Errorf("nbt: root must be a compound, got tag %d", t)
	}
	d := &decoder{r: r}
	if name, err = d.string(); err != nil {
		return "", nil, err
	}
	if root, err = d.compound(0); err != nil {
		return "", nil, err
	}
	return name, root, nil
}

type decoder struct {
	r    *protocol.Reader
	size int
}

// account charges n bytes against the size limit.
func (d *decoder) account(n int) error {
	d.size += n
	if d.size > maxDecodeSize {
		return ErrTooLarge
	}
	return nil
}

func (d *decoder) value(t byte, depth int) (Value, error) {
	switch t {
	case TagByte:
		d.size++
		return Byte(d.r.Uint8()), d.err()
	case TagShort:
		d.size += 2
		return Short(d.r.Int16()), d.err()
	case TagInt:
		d.size += 4
		return Int(d.r.Int32()), d.err()
	case TagLong:
		d.size += 8
		return Long(d.r.Int64()), d.err()
	case TagFloat:
		d.size += 4
		return Float(d.r.Float32()), d.err()
	case TagDouble:
		d.size += 8
		return Double(d.r.Float64()), d.err()
	case TagByteArray:
		return d.byteArray()
	case TagString:
		s, err := d.string()
		return String(s), err
	case TagList:
		if depth > maxDepth {
			return nil, ErrTooDeep
		}
		return d.list(depth + 1)
	case TagCompound:
		if depth > maxDepth {
			return nil, ErrTooDeep
		}
		return d.compound(depth + 1)
	case TagIntArray:
		return d.intArray()
	case TagLongArray:
		return d.longArray()
	}
	return nil, fmt.Errorf("nbt: unknown tag %d", t)
}

func (d *decoder) compound(depth int) (*Compound, error) {
	c := NewCompound()
	for {
		t := d.r.Uint8()
		if err := d.err(); err != nil {
			return nil, err
		}
		if t == TagEnd {
			return c, nil
		}
		d.size += 8
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		v, err := d.value(t, depth)
		if err != nil {
			return nil, err
		}
		i, ok := c.search(name)
		if ok {
			return nil, fmt.Errorf("nbt: duplicate key %q in compound", name)
		}
		c.entries = append(c.entries, entry{})
		copy(c.entries[i+1:], c.entries[i:])
		c.entries[i] = entry{name: name, value: v}
	}
}

func (d *decoder) list(depth int) (Value, error) {
	t := d.r.Uint8()
	length := d.r.Int32()
	if err := d.err(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return List{Type: t}, nil
	}
	if int(length) > d.r.Remaining() {
		return nil, fmt.Errorf("nbt: list of %d elements exceeds remaining input", length)
	}
	if t == TagEnd {
		return nil, errors.New("nbt: non-empty list of TAG_End")
	}
	if err := d.account(int(length) * 8); err != nil {
		return nil, err
	}
	elems := make([]Value, 0, length)
	for i := int32(0); i < length; i++ {
		v, err := d.value(t, depth)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return List{Type: t, Elems: elems}, nil
}

func (d *decoder) string() (string, error) {
	n := d.r.Uint16()
	if err := d.err(); err != nil {
		return "", err
	}
	if err := d.account(int(n) + 24); err != nil {
		return "", err
	}
	p := d.r.Bytes(int(n))
	if err := d.err(); err != nil {
		return "", err
	}
	return decodeCESU8(p)
}

func (d *decoder) byteArray() (Value, error) {
	n, err := d.arrayLen(1)
	if err != nil {
		return nil, err
	}
	p := d.r.Bytes(n)
	if err := d.err(); err != nil {
		return nil, err
	}
	return ByteArray(append([]byte(nil), p...)), nil
}

func (d *decoder) intArray() (Value, error) {
	n, err := d.arrayLen(4)
	if err != nil {
		return nil, err
	}
	a := make(IntArray, n)
	for i := range a {
		a[i] = d.r.Int32()
	}
	if err := d.err(); err != nil {
		return nil, err
	}
	return a, nil
}

func (d *decoder) longArray() (Value, error) {
	n, err := d.arrayLen(8)
	if err != nil {
		return nil, err
	}
	a := make(LongArray, n)
	for i := range a {
		a[i] = d.r.Int64()
	}
	if err := d.err(); err != nil {
		return nil, err
	}
	return a, nil
}

// arrayLen reads and validates an array length of elemSize byte elements,
// charging the payload against the size limit.
func (d *decoder) arrayLen(elemSize int) (int, error) {
	length := d.r.Int32()
	if err := d.err(); err != nil {
		return 0, err
	}
	if length < 0 {
		return 0, errors.New("nbt: negative array length")
	}
	if length > math.MaxInt32/int32(elemSize) || int(length)*elemSize > d.r.Remaining() {
		return 0, fmt.Errorf("nbt: array of %d elements exceeds remaining input", length)
	}
	if err := d.account(int(length) * elemSize); err != nil {
		return 0, err
	}
	return int(length), nil
}

func (d *decoder) err() error {
	if err := d.r.Err(); err != nil {
		return fmt.Errorf("nbt: %w", err)
	}
	return nil
}
