package player

import (
	"github.com/basalt-mc/basalt/server/entity"
	"github.com/basalt-mc/basalt/server/item"
	"github.com/basalt-mc/basalt/server/item/inventory"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/go-gl/mathgl/mgl64"
)

// UseResult is returned by HandleTickUsingItem to decide whether a held item
// use keeps going.
type UseResult uint8

const (
	// UseContinue keeps the use running into the next tick.
	UseContinue UseResult = iota
	// UseFinish completes the use, calling HandleFinishUsingItem.
	UseFinish
	// UseAbort cancels the use, calling HandleAbortUsingItem.
	UseAbort
)

// Handler handles events of a Player. Game rules beyond plain state keeping,
// such as what eating an apple does, live behind this interface.
type Handler interface {
	// HandleTick runs at the start of every player tick.
	HandleTick(p *Player)
	// HandleUseItem handles the player starting to use the held item with a
	// click. Returning true begins a held use that HandleTickUsingItem ticks
	// until it finishes or aborts.
	HandleUseItem(p *Player, hand protocol.Hand) bool
	// HandleTickUsingItem runs every tick while a held use is active, with
	// the number of ticks the use has been held.
	HandleTickUsingItem(p *Player, s inventory.Slot, ticks int) UseResult
	// HandleFinishUsingItem handles a held use completing, either through
	// UseFinish or through the client releasing the item.
	HandleFinishUsingItem(p *Player, s inventory.Slot, ticks int)
	// HandleAbortUsingItem handles a held use being cancelled.
	HandleAbortUsingItem(p *Player)
	// HandleAttackStrengthReset handles the attack charge dropping back to
	// zero after a swing, an attack or a held item change.
	HandleAttackStrengthReset(p *Player)
	// HandleSwapItemWithOffHand handles the offhand swap key.
	HandleSwapItemWithOffHand(p *Player)
	// HandleSetCreativeModeSlot handles a direct slot write from a creative
	// mode client, after the inventory recorded the client's view.
	HandleSetCreativeModeSlot(p *Player, s inventory.Slot, st item.Stack)
	// HandleAttackEntity handles the player attacking e.
	HandleAttackEntity(p *Player, e *entity.Entity)
	// HandleInteractEntityAt handles a positioned right click on e. Returning
	// true consumes the interaction, blocking item use for the rest of the
	// tick.
	HandleInteractEntityAt(p *Player, e *entity.Entity, hand protocol.Hand, pos mgl64.Vec3) bool
}

// NopHandler implements Handler and does nothing. Players use it when no
// other handler is assigned.
type NopHandler struct{}

// HandleTick ...
func (NopHandler) HandleTick(*Player) {}

// HandleUseItem ...
func (NopHandler) HandleUseItem(*Player, protocol.Hand) bool { return false }

// HandleTickUsingItem ...
func (NopHandler) HandleTickUsingItem(*Player, inventory.Slot, int) UseResult { return UseAbort }

// HandleFinishUsingItem ...
func (NopHandler) HandleFinishUsingItem(*Player, inventory.Slot, int) {}

// HandleAbortUsingItem ...
func (NopHandler) HandleAbortUsingItem(*Player) {}

// HandleAttackStrengthReset ...
func (NopHandler) HandleAttackStrengthReset(*Player) {}

// HandleSwapItemWithOffHand ...
func (NopHandler) HandleSwapItemWithOffHand(*Player) {}

// HandleSetCreativeModeSlot ...
func (NopHandler) HandleSetCreativeModeSlot(*Player, inventory.Slot, item.Stack) {}

// HandleAttackEntity ...
func (NopHandler) HandleAttackEntity(*Player, *entity.Entity) {}

// HandleInteractEntityAt ...
func (NopHandler) HandleInteractEntityAt(*Player, *entity.Entity, protocol.Hand, mgl64.Vec3) bool {
	return false
}
