// Package block holds the static block state registry: every block kind the
// server knows, the enumeration of its property permutations into contiguous
// state ids, and the per-state attribute records the world logic consults.
package block

import (
	"fmt"
	"strings"

	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/cespare/xxhash/v2"
)

// Tag is a bit set of block tag memberships used by connection rules and
// sent to clients in the tag tables.
type Tag uint8

const (
	// TagFences holds wooden fences and the nether brick fence.
	TagFences Tag = 1 << iota
	// TagWalls holds cobblestone wall style blocks.
	TagWalls
	// TagPanes holds glass panes and iron bars.
	TagPanes
	// TagRails holds all rail variants.
	TagRails
	// TagStairs holds all stair kinds.
	TagStairs
)

// Attributes is the flat per-state attribute record.
type Attributes struct {
	// Hardness is the base breaking time factor. Negative means unbreakable.
	Hardness float64
	// Replaceable blocks are overwritten by placements instead of offsetting
	// the placement to the clicked face.
	Replaceable bool
	// Air marks states skipped by collision and not counted in sections.
	Air bool
	// Solid states occupy their voxel as a full cube for movement collision.
	Solid bool
	// Sturdy reports per face whether attachments such as fences can connect
	// to it, indexed by cube.Face.
	Sturdy [6]bool
}

// SturdyFace reports whether the given face supports attachments.
func (a Attributes) SturdyFace(f cube.Face) bool {
	return a.Sturdy[f]
}

// sturdyAll marks all six faces sturdy, the full cube case.
var sturdyAll = [6]bool{true, true, true, true, true, true}

// Property is one enumerated state axis of a block kind. The last declared
// property varies fastest in the state enumeration.
type Property struct {
	Name   string
	Values []string
}

// boolProp returns a true/false property in the conventional value order.
func boolProp(name string) Property {
	return Property{Name: name, Values: []string{"true", "false"}}
}

// Definition describes a block kind to Register.
type Definition struct {
	// Name is the namespaced kind name, such as minecraft:stone.
	Name string
	// Properties are the state axes, outermost first.
	Properties []Property
	// Defaults picks the default state. Axes left out default to their first
	// value.
	Defaults map[string]string
	// Attributes is the record shared by every state of the kind.
	Attributes Attributes
	// Derive, when set, adjusts the record per state.
	Derive func(base Attributes, props map[string]string) Attributes
	// Tags are the tag sets the kind belongs to.
	Tags Tag
}

// Kind identifies a registered block kind. Kinds are numbered in
// registration order, which is also the id order of the block registry sent
// to clients.
type Kind uint16

type kindInfo struct {
	name     string
	base     uint16
	count    uint16
	defState uint16
	props    []Property
	strides  []uint16
	tags     Tag
}

var (
	kinds      []kindInfo
	kindIndex  = map[string]Kind{}
	stateKinds []Kind
	stateAttrs []Attributes
	stateIndex = map[uint64]uint16{}
)

// Register adds a block kind to the registry, assigning it the next
// contiguous run of state ids, and returns its kind. It must be called
// during package initialization; definitions that cannot be enumerated
// panic.
func Register(def Definition) Kind {
	if _, ok := kindIndex[def.Name]; ok {
		panic("block: kind " + def.Name + " registered twice")
	}
	count := 1
	strides := make([]uint16, len(def.Properties))
	for i := len(def.Properties) - 1; i >= 0; i-- {
		if len(def.Properties[i].Values) == 0 {
			panic("block: property " + def.Properties[i].Name + " of " + def.Name + " has no values")
		}
		strides[i] = uint16(count)
		count *= len(def.Properties[i].Values)
	}
	if len(stateKinds)+count > 1<<16 {
		panic("block: state ids exhausted registering " + def.Name)
	}

	k := Kind(len(kinds))
	base := uint16(len(stateKinds))
	props := make(map[string]string, len(def.Properties))
	for off := 0; off < count; off++ {
		for i, p := range def.Properties {
			props[p.Name] = p.Values[off/int(strides[i])%len(p.Values)]
		}
		attrs := def.Attributes
		if def.Derive != nil {
			attrs = def.Derive(attrs, props)
		}
		id := base + uint16(off)
		stateKinds = append(stateKinds, k)
		stateAttrs = append(stateAttrs, attrs)
		stateIndex[xxhash.Sum64String(canonical(def.Name, def.Properties, id-base, strides))] = id
	}

	info := kindInfo{
		name:    def.Name,
		base:    base,
		count:   uint16(count),
		props:   def.Properties,
		strides: strides,
		tags:    def.Tags,
	}
	info.defState = base
	for i, p := range def.Properties {
		if v, ok := def.Defaults[p.Name]; ok {
			idx := valueIndex(p, v)
			if idx < 0 {
				panic(fmt.Sprintf("block: %v has no %v value %q", def.Name, p.Name, v))
			}
			info.defState += uint16(idx) * strides[i]
		}
	}
	kinds = append(kinds, info)
	kindIndex[def.Name] = k
	return k
}

func valueIndex(p Property, v string) int {
	for i, have := range p.Values {
		if have == v {
			return i
		}
	}
	return -1
}

// canonical renders the state string of offset off, such as
// minecraft:rail[shape=north_south].
func canonical(name string, props []Property, off uint16, strides []uint16) string {
	if len(props) == 0 {
		return name
	}
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('[')
	for i, p := range props {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		sb.WriteString(p.Values[int(off/strides[i])%len(p.Values)])
	}
	sb.WriteByte(']')
	return sb.String()
}

// StateCount returns the number of registered state ids.
func StateCount() int {
	return len(stateKinds)
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	return len(kinds)
}

// Valid reports whether id is a registered state.
func Valid(id uint16) bool {
	return int(id) < len(stateKinds)
}

// KindOf returns the kind owning the state id. Unregistered ids map to the
// zero kind.
func KindOf(id uint16) Kind {
	if !Valid(id) {
		return 0
	}
	return stateKinds[id]
}

// AttributesOf returns the attribute record of the state id. Unregistered
// ids get a zero record.
func AttributesOf(id uint16) Attributes {
	if !Valid(id) {
		return Attributes{}
	}
	return stateAttrs[id]
}

// IsAir reports whether the state is an air state.
func IsAir(id uint16) bool {
	return AttributesOf(id).Air
}

// Is reports whether the state's kind belongs to the tag set.
func Is(id uint16, t Tag) bool {
	return KindOf(id).Is(t)
}

// KindByName returns the kind registered under the namespaced name.
func KindByName(name string) (Kind, bool) {
	k, ok := kindIndex[name]
	return k, ok
}

// Name returns the namespaced kind name.
func (k Kind) Name() string {
	return kinds[k].name
}

// Is reports whether the kind belongs to the tag set.
func (k Kind) Is(t Tag) bool {
	return kinds[k].tags&t != 0
}

// DefaultState returns the id of the kind's default state.
func (k Kind) DefaultState() uint16 {
	return kinds[k].defState
}

// States returns the first state id of the kind and the number of states it
// owns.
func (k Kind) States() (base uint16, count int) {
	return kinds[k].base, int(kinds[k].count)
}

// Value returns the value of the named property in the given state.
func Value(id uint16, prop string) (string, bool) {
	if !Valid(id) {
		return "", false
	}
	info := &kinds[stateKinds[id]]
	off := id - info.base
	for i, p := range info.props {
		if p.Name == prop {
			return p.Values[int(off/info.strides[i])%len(p.Values)], true
		}
	}
	return "", false
}

// With returns the state equal to id except for the named property set to
// value. It returns id unchanged and false when the property or value does
// not exist on the state's kind.
func With(id uint16, prop, value string) (uint16, bool) {
	if !Valid(id) {
		return id, false
	}
	info := &kinds[stateKinds[id]]
	off := id - info.base
	for i, p := range info.props {
		if p.Name != prop {
			continue
		}
		idx := valueIndex(p, value)
		if idx < 0 {
			return id, false
		}
		old := int(off/info.strides[i]) % len(p.Values)
		return id + uint16(idx-old)*info.strides[i], true
	}
	return id, false
}

// StateID resolves a full state descriptor, as found in region file
// palettes, to its id. Properties not declared by the kind are ignored;
// declared properties missing from props take the kind's default value.
func StateID(name string, props map[string]string) (uint16, bool) {
	k, ok := kindIndex[name]
	if !ok {
		return 0, false
	}
	info := &kinds[k]
	var sb strings.Builder
	sb.WriteString(name)
	if len(info.props) > 0 {
		sb.WriteByte('[')
		for i, p := range info.props {
			if i > 0 {
				sb.WriteByte(',')
			}
			v, ok := props[p.Name]
			if !ok {
				v = p.Values[int((info.defState-info.base)/info.strides[i])%len(p.Values)]
			}
			sb.WriteString(p.Name)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
		sb.WriteByte(']')
	}
	id, ok := stateIndex[xxhash.Sum64String(sb.String())]
	if !ok || stateKinds[id] != k {
		return 0, false
	}
	return id, true
}
