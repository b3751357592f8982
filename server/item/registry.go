// Package item holds the static item registry: every item kind the server
// knows under its network id, together with the properties the inventory and
// interaction logic consult.
package item

import "github.com/basalt-mc/basalt/server/block"

// Kind identifies a registered item kind. Kinds are numbered in registration
// order, which is also the id order clients use in slot payloads.
type Kind int32

type kindInfo struct {
	name         string
	maxStackSize int8
	blockState   uint16
	hasBlock     bool
}

var (
	kinds     []kindInfo
	kindIndex = map[string]Kind{}
)

// Definition describes an item kind to Register.
type Definition struct {
	// Name is the namespaced kind name, such as minecraft:stone.
	Name string
	// MaxStackSize caps the count of a stack of this kind. Zero means the
	// usual 64.
	MaxStackSize int8
	// Block names the block kind placed when this item is used on a block
	// face. Empty for items that do not place anything.
	Block string
}

// Register adds an item kind to the registry and returns its kind. It must be
// called during package initialization; a Block reference to an unregistered
// block kind panics.
func Register(def Definition) Kind {
	if _, ok := kindIndex[def.Name]; ok {
		panic("item: kind " + def.Name + " registered twice")
	}
	info := kindInfo{name: def.Name, maxStackSize: def.MaxStackSize}
	if info.maxStackSize == 0 {
		info.maxStackSize = 64
	}
	if def.Block != "" {
		bk, ok := block.KindByName(def.Block)
		if !ok {
			panic("item: " + def.Name + " places unregistered block " + def.Block)
		}
		info.blockState = bk.DefaultState()
		info.hasBlock = true
	}
	k := Kind(len(kinds))
	kinds = append(kinds, info)
	kindIndex[def.Name] = k
	return k
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	return len(kinds)
}

// KindByID returns the kind with the given network id.
func KindByID(id int32) (Kind, bool) {
	if id < 0 || int(id) >= len(kinds) {
		return 0, false
	}
	return Kind(id), true
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

// MaxStackSize returns the largest count a stack of this kind may hold.
func (k Kind) MaxStackSize() int8 {
	return kinds[k].maxStackSize
}

// BlockState returns the block state placed when this item is used on a block
// face, or false for items that do not place blocks.
func (k Kind) BlockState() (uint16, bool) {
	return kinds[k].blockState, kinds[k].hasBlock
}
