package item

import (
	"bytes"

	"github.com/basalt-mc/basalt/server/protocol"
)

// Stack is an amount of items of one kind held in an inventory slot. The zero
// Stack is the empty slot.
type Stack struct {
	kind  Kind
	count int8
	nbt   []byte
}

// NewStack returns a stack of count items of the given kind.
func NewStack(kind Kind, count int8) Stack {
	return Stack{kind: kind, count: count}
}

// Kind returns the item kind of the stack.
func (s Stack) Kind() Kind {
	return s.kind
}

// Count returns the number of items in the stack.
func (s Stack) Count() int8 {
	return s.count
}

// NBT returns the raw serialized NBT attached to the stack, if any.
func (s Stack) NBT() []byte {
	return s.nbt
}

// WithNBT returns the stack with the raw NBT blob attached.
func (s Stack) WithNBT(nbt []byte) Stack {
	s.nbt = nbt
	return s
}

// Empty reports whether the stack holds nothing. Air stacks and stacks with a
// count of zero or less are empty.
func (s Stack) Empty() bool {
	return s.kind == 0 || s.count <= 0
}

// Equal reports whether two stacks hold the same items, comparing kind, count
// and NBT. Two empty stacks are always equal.
func (s Stack) Equal(o Stack) bool {
	if s.Empty() || o.Empty() {
		return s.Empty() == o.Empty()
	}
	return s.kind == o.kind && s.count == o.count && bytes.Equal(s.nbt, o.nbt)
}

// Proto returns the wire form of the stack.
func (s Stack) Proto() protocol.ItemStack {
	if s.Empty() {
		return protocol.ItemStack{}
	}
	return protocol.ItemStack{Present: true, ItemID: int32(s.kind), Count: s.count, NBT: s.nbt}
}

// FromProto converts a wire slot into a stack. It returns false when the item
// id is not a registered kind.
func FromProto(p protocol.ItemStack) (Stack, bool) {
	if !p.Present {
		return Stack{}, true
	}
	k, ok := KindByID(p.ItemID)
	if !ok {
		return Stack{}, false
	}
	return Stack{kind: k, count: p.Count, nbt: p.NBT}, true
}
