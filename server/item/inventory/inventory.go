// Package inventory implements the player inventory window: 46 slots indexed
// the way the client indexes them, with per-slot tracking of what the client
// currently displays so that the server can resend exactly the slots that
// changed.
package inventory

import (
	"fmt"

	"github.com/basalt-mc/basalt/server/item"
	"github.com/basalt-mc/basalt/server/protocol"
)

// NumSlots is the slot count of the player inventory window.
const NumSlots = 46

// Slot addresses one slot of the player inventory window, using the client's
// slot index order.
type Slot int

const (
	// SlotCraftingResult is the output slot of the 2x2 crafting grid.
	SlotCraftingResult Slot = 4
	// SlotHead through SlotFeet are the armour slots.
	SlotHead  Slot = 5
	SlotChest Slot = 6
	SlotLegs  Slot = 7
	SlotFeet  Slot = 8
	// SlotOffHand is the shield slot.
	SlotOffHand Slot = 45
)

// CraftingInput returns the slot of cell i of the 2x2 crafting grid.
func CraftingInput(i int) Slot {
	if i < 0 || i >= 4 {
		panic(fmt.Sprintf("inventory: crafting input %v out of range", i))
	}
	return Slot(i)
}

// Main returns the slot of cell i of the 27 main storage cells.
func Main(i int) Slot {
	if i < 0 || i >= 27 {
		panic(fmt.Sprintf("inventory: main slot %v out of range", i))
	}
	return Slot(9 + i)
}

// Hotbar returns the slot of hotbar cell i.
func Hotbar(i int) Slot {
	if i < 0 || i >= 9 {
		panic(fmt.Sprintf("inventory: hotbar slot %v out of range", i))
	}
	return Slot(36 + i)
}

// SlotFromIndex validates a client supplied slot index.
func SlotFromIndex(i int16) (Slot, bool) {
	if i < 0 || i >= NumSlots {
		return 0, false
	}
	return Slot(i), true
}

type slot struct {
	server       item.Stack
	remote       item.Stack
	remoteKnown  bool
	maybeChanged bool
}

// Inventory tracks the stacks the server holds and, per slot, the last stack
// the client is known to display. Differences are pushed to the client in
// Sync, which the player runs once per tick.
type Inventory struct {
	slots        [NumSlots]slot
	stateID      int32
	maybeChanged bool
	handler      Handler
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{handler: NopHandler{}}
}

// Handle assigns h to handle the slot changes of the inventory. Passing nil
// reverts to NopHandler.
func (inv *Inventory) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	inv.handler = h
}

// Item returns the stack held in the slot.
func (inv *Inventory) Item(s Slot) item.Stack {
	return inv.slots[s].server
}

// SetItem puts st into the slot. The slot is resent to the client on the next
// Sync if the client displays something else.
func (inv *Inventory) SetItem(s Slot, st item.Stack) {
	sl := &inv.slots[s]
	before := sl.server
	sl.server = st
	sl.maybeChanged = true
	inv.maybeChanged = true
	inv.handler.HandleSlotChange(s, before, st)
}

// SetClientItem records that the client displays st in the slot after a
// change the client made on its own. The server's stack wins on the next Sync
// if it differs.
func (inv *Inventory) SetClientItem(s Slot, st item.Stack) {
	sl := &inv.slots[s]
	sl.remote, sl.remoteKnown = st, true
	sl.maybeChanged = true
	inv.maybeChanged = true
}

// InvalidateClientItem records that the client's display of the slot is no
// longer known, typically because the client predicted the outcome of an
// action locally. The next Sync resends the slot unless the server holds
// nothing in it.
func (inv *Inventory) InvalidateClientItem(s Slot) {
	sl := &inv.slots[s]
	sl.remote, sl.remoteKnown = item.Stack{}, false
	sl.maybeChanged = true
	inv.maybeChanged = true
}

// Sync writes a ContainerSetSlot for every slot whose server stack may differ
// from what the client displays.
func (inv *Inventory) Sync(buf *protocol.Buffer) {
	if !inv.maybeChanged {
		return
	}
	for i := range inv.slots {
		sl := &inv.slots[i]
		if !sl.maybeChanged {
			continue
		}
		differs := !sl.server.Equal(sl.remote)
		if !sl.remoteKnown {
			differs = !sl.server.Empty()
		}
		if differs {
			inv.stateID++
			_ = buf.WritePacket(&protocol.ContainerSetSlot{
				WindowID: 0,
				StateID:  inv.stateID,
				Slot:     int16(i),
				Item:     sl.server.Proto(),
			})
		}
		sl.maybeChanged = false
	}
	inv.maybeChanged = false
}
