// Package nbt implements the binary named tag format used across the
// protocol, with the Java specific string flavour: length prefixed,
// big-endian and CESU-8 encoded, converted to and from UTF-8 at the codec
// boundary.
//
// Compounds keep their entries sorted by name, so a decoded tree re-encodes
// to the same bytes and lookups stay logarithmic.
package nbt

// Tag type ids as they appear on the wire.
const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// Value is a single tag value. The concrete types are Byte, Short, Int,
// Long, Float, Double, ByteArray, String, List, *Compound, IntArray and
// LongArray.
type Value interface {
	tagType() byte
}

type (
	// Byte is a TAG_Byte.
	Byte int8
	// Short is a TAG_Short.
	Short int16
	// Int is a TAG_Int.
	Int int32
	// Long is a TAG_Long.
	Long int64
	// Float is a TAG_Float.
	Float float32
	// Double is a TAG_Double.
	Double float64
	// ByteArray is a TAG_Byte_Array. The signedness of Java bytes is left to
	// the caller.
	ByteArray []byte
	// String is a TAG_String.
	String string
	// IntArray is a TAG_Int_Array.
	IntArray []int32
	// LongArray is a TAG_Long_Array.
	LongArray []int64
)

// List is a TAG_List. Type is the element tag type, which an empty list
// keeps even without elements. Elements must all be of Type.
type List struct {
	Type  byte
	Elems []Value
}

func (Byte) tagType() byte      { return TagByte }
func (Short) tagType() byte     { return TagShort }
func (Int) tagType() byte       { return TagInt }
func (Long) tagType() byte      { return TagLong }
func (Float) tagType() byte     { return TagFloat }
func (Double) tagType() byte    { return TagDouble }
func (ByteArray) tagType() byte { return TagByteArray }
func (String) tagType() byte    { return TagString }
func (List) tagType() byte      { return TagList }
func (*Compound) tagType() byte { return TagCompound }
func (IntArray) tagType() byte  { return TagIntArray }
func (LongArray) tagType() byte { return TagLongArray }

// ListOf builds a List from elements of a single tag type. It panics when
// elements of mixed types are passed, as such a list has no wire form.
func ListOf(elems ...Value) List {
	if len(elems) == 0 {
		return List{}
	}
	t := elems[0].tagType()
	for _, e := range elems[1:] {
		if e.tagType() != t {
			panic("nbt: list elements must share one tag type")
		}
	}
	return List{Type: t, Elems: elems}
}

type entry struct {
	name  string
	value Value
}

// Compound is a TAG_Compound holding uniquely named values sorted by name.
type Compound struct {
	entries []entry
}

// NewCompound returns an empty compound.
func NewCompound() *Compound {
	return &Compound{}
}

// Len returns the number of entries.
func (c *Compound) Len() int {
	return len(c.entries)
}

// search returns the index of name and whether it is present. Without a
// match, the index is where name would be inserted.
func (c *Compound) search(name string) (int, bool) {
	lo, hi := 0, len(c.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if c.entries[mid].name < name {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(c.entries) && c.entries[lo].name == name
}

// Get returns the value stored under name.
func (c *Compound) Get(name string) (Value, bool) {
	i, ok := c.search(name)
	if !ok {
		return nil, false
	}
	return c.entries[i].value, true
}

// Put stores v under name, replacing any previous value.
func (c *Compound) Put(name string, v Value) {
	i, ok := c.search(name)
	if ok {
		c.entries[i].value = v
		return
	}
	c.entries = append(c.entries, entry{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = entry{name: name, value: v}
}

// Remove deletes the value stored under name and reports whether it was
// present.
func (c *Compound) Remove(name string) bool {
	i, ok := c.search(name)
	if !ok {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

// Range calls fn for every entry in name order until fn returns false.
func (c *Compound) Range(fn func(name string, v Value) bool) {
	for _, e := range c.entries {
		if !fn(e.name, e.value) {
			return
		}
	}
}

// Byte returns the TAG_Byte stored under name.
func (c *Compound) Byte(name string) (int8, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	b, ok := v.(Byte)
	return int8(b), ok
}

// Short returns the TAG_Short stored under name.
func (c *Compound) Short(name string) (int16, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	s, ok := v.(Short)
	return int16(s), ok
}

// Int returns the TAG_Int stored under name.
func (c *Compound) Int(name string) (int32, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	i, ok := v.(Int)
	return int32(i), ok
}

// Long returns the TAG_Long stored under name.
func (c *Compound) Long(name string) (int64, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	l, ok := v.(Long)
	return int64(l), ok
}

// Float returns the TAG_Float stored under name.
func (c *Compound) Float(name string) (float32, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	f, ok := v.(Float)
	return float32(f), ok
}

// Double returns the TAG_Double stored under name.
func (c *Compound) Double(name string) (float64, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	d, ok := v.(Double)
	return float64(d), ok
}

// String returns the TAG_String stored under name.
func (c *Compound) String(name string) (string, bool) {
	v, ok := c.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// List returns the TAG_List stored under name.
func (c *Compound) List(name string) (List, bool) {
	v, ok := c.Get(name)
	if !ok {
		return List{}, false
	}
	l, ok := v.(List)
	return l, ok
}

// Compound returns the TAG_Compound stored under name.
func (c *Compound) Compound(name string) (*Compound, bool) {
	v, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Compound)
	return sub, ok
}

// ByteArray returns the TAG_Byte_Array stored under name.
func (c *Compound) ByteArray(name string) ([]byte, bool) {
	v, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	b, ok := v.(ByteArray)
	return []byte(b), ok
}

// IntArray returns the TAG_Int_Array stored under name.
func (c *Compound) IntArray(name string) ([]int32, bool) {
	v, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	a, ok := v.(IntArray)
	return []int32(a), ok
}

// LongArray returns the TAG_Long_Array stored under name.
func (c *Compound) LongArray(name string) ([]int64, bool) {
	v, ok := c.Get(name)
	if !ok {
		return nil, false
	}
	a, ok := v.(LongArray)
	return []int64(a), ok
}
