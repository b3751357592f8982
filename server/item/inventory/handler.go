package inventory

import "github.com/basalt-mc/basalt/server/item"

// Handler handles changes to an Inventory.
type Handler interface {
	// HandleSlotChange handles the stack in a slot being replaced through
	// SetItem.
	HandleSlotChange(s Slot, before, after item.Stack)
}

// NopHandler implements Handler and does nothing. Inventories use it when no
// other handler is assigned.
type NopHandler struct{}

// HandleSlotChange ...
func (NopHandler) HandleSlotChange(Slot, item.Stack, item.Stack) {}
