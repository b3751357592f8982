package player

import (
	"fmt"
	"math"

	"github.com/basalt-mc/basalt/server/block/cube"
	"github.com/basalt-mc/basalt/server/item"
	"github.com/basalt-mc/basalt/server/item/inventory"
	"github.com/basalt-mc/basalt/server/protocol"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// HandlePacket decodes and applies one serverbound play state packet. It runs
// on the tick goroutine, between ticks, so handlers may touch world state
// freely. A non-nil error means the client broke the protocol and must be
// disconnected.
func (p *Player) HandlePacket(id byte, payload []byte) error {
	pk, err := protocol.ParsePlay(id, payload)
	if err != nil {
		return err
	}
	switch pk := pk.(type) {
	case *protocol.AcceptTeleportation:
		// An accept with nothing pending is the second copy of a
		// confirmation the expiry re-send solicited twice and passes
		// silently. A wrong id against a pending teleport gets the
		// client kicked.
		if t := p.pendingTeleport; t != nil {
			if t.id != pk.TeleportID {
				return fmt.Errorf("teleport accept %v while awaiting %v", pk.TeleportID, t.id)
			}
			p.position = t.awaiting
			p.pendingTeleport = nil
		}

	case *protocol.ServKeepAlive:
		if pk.Challenge == p.keepAliveChallenge {
			p.keepAliveChallenge = 0
		}

	case *protocol.PlayerHandAction:
		return p.handleHandAction(pk)

	case *protocol.UseItemOn:
		p.recordAck(pk.Sequence)
		p.inv.InvalidateClientItem(inventory.Hotbar(int(p.hotbarSlot)))
		if p.interactedWithEntity {
			return nil
		}
		if p.beginUsingItem(pk.Hand) {
			return nil
		}
		p.abortUsingItem()
		if state, ok := p.HeldItem().Kind().BlockState(); ok {
			pos := pk.Hit.Pos.Side(pk.Hit.Face)
			p.level.SetBlock(cube.Pos{pos.X, pos.Y, pos.Z}, state)
		}

	case *protocol.UseItem:
		p.recordAck(pk.Sequence)
		p.inv.InvalidateClientItem(inventory.Hotbar(int(p.hotbarSlot)))
		if p.interactedWithEntity {
			return nil
		}
		if p.beginUsingItem(pk.Hand) {
			return nil
		}
		p.abortUsingItem()

	case *protocol.Swing:
		if p.attackStrength > 0 {
			p.attackStrength = 0
			p.handler.HandleAttackStrengthReset(p)
		}
		anim := protocol.AnimationSwingMainArm
		if pk.Hand == protocol.HandOff {
			anim = protocol.AnimationSwingOffHand
		}
		_ = p.selfEvents.WritePacket(&protocol.AnimateEntity{EntityID: p.networkID, Animation: anim})

	case *protocol.InteractEntity:
		return p.handleInteractEntity(pk)

	case *protocol.SetCarriedItem:
		if pk.Slot < 0 || pk.Slot > 8 {
			return fmt.Errorf("hotbar slot %v out of range", pk.Slot)
		}
		if uint8(pk.Slot) != p.hotbarSlot {
			p.abortUsingItem()
			held := p.inv.Item(inventory.Hotbar(int(pk.Slot))).Kind()
			if held != p.heldItem {
				p.heldItem = held
				p.attackStrength = 0
				p.handler.HandleAttackStrengthReset(p)
			}
			p.hotbarSlot = uint8(pk.Slot)
		}

	case *protocol.SetCreativeModeSlot:
		slot, ok := inventory.SlotFromIndex(pk.Slot)
		if !ok {
			return fmt.Errorf("inventory slot %v out of range", pk.Slot)
		}
		st, ok := item.FromProto(pk.Item)
		if !ok {
			return fmt.Errorf("unknown item id %v", pk.Item.ItemID)
		}
		p.abortUsingItem()
		p.inv.SetClientItem(slot, st)
		p.handler.HandleSetCreativeModeSlot(p, slot, st)

	case *protocol.MovePlayerPos:
		if p.pendingTeleport != nil {
			return nil
		}
		if invalidMovement(pk.X, pk.Y, pk.Z, 0, 0) {
			return fmt.Errorf("invalid move value")
		}
		if p.moveTo(pk.X, pk.Y, pk.Z) {
			p.onGround = pk.OnGround
		}

	case *protocol.MovePlayerPosRot:
		if p.pendingTeleport != nil {
			return nil
		}
		if invalidMovement(pk.X, pk.Y, pk.Z, pk.Yaw, pk.Pitch) {
			return fmt.Errorf("invalid move value")
		}
		if p.moveTo(pk.X, pk.Y, pk.Z) {
			p.yaw, p.pitch = pk.Yaw, pk.Pitch
			p.onGround = pk.OnGround
		}

	case *protocol.MovePlayerRot:
		if p.pendingTeleport != nil {
			return nil
		}
		if invalidMovement(0, 0, 0, pk.Yaw, pk.Pitch) {
			return fmt.Errorf("invalid move value")
		}
		p.yaw, p.pitch = pk.Yaw, pk.Pitch
		p.onGround = pk.OnGround

	case *protocol.MovePlayerStatusOnly:
		if p.pendingTeleport != nil {
			return nil
		}
		p.onGround = pk.OnGround

	case *protocol.PlayerMoveAction:
		if pk.Action > protocol.StartFallFlying {
			return fmt.Errorf("move action %v", pk.Action)
		}
		p.handleMoveAction(pk.Action)

	case *protocol.ChatCommand:
		p.Message(text.Colourf("<red>Unknown command: /%v</red>", pk.Command))

	case *protocol.ServCustomPayload:
		if pk.Channel == "minecraft:brand" {
			r := protocol.NewReader(pk.Data)
			brand := r.String(128)
			if err := r.Err(); err != nil {
				return fmt.Errorf("brand payload: %w", err)
			}
			p.brand = brand
		}

	case *protocol.ClientInformation, *protocol.ServPlayerAbilities:
		// Accepted without effect.
	}
	return nil
}

// recordAck stores the block prediction sequence to echo back on the next
// view tick. The echoed watermark never moves backwards: sequences behind
// one already waiting are dropped and recorded once per player.
func (p *Player) recordAck(seq int32) {
	if p.hasAckSequence && seq < p.ackSequence {
		if !p.staleAckLogged {
			p.staleAckLogged = true
			p.conf.Log.Debug("Dropped a stale block change ack.", "name", p.conf.Name, "sequence", seq, "pending", p.ackSequence)
		}
		return
	}
	p.ackSequence, p.hasAckSequence = seq, true
}

// handleHandAction applies a PlayerHandAction packet: digging, dropping and
// item release. Every action carries an ack sequence the client waits on
// before trusting its own block predictions again.
func (p *Player) handleHandAction(pk *protocol.PlayerHandAction) error {
	p.recordAck(pk.Sequence)

	hotbar := inventory.Hotbar(int(p.hotbarSlot))
	switch pk.Action {
	case protocol.StartDestroyBlock:
		p.abortUsingItem()
		p.startDigging(pk.Pos)
	case protocol.AbortDestroyBlock:
		p.abortUsingItem()
		p.stopDigging(true)
	case protocol.StopDestroyBlock:
		p.abortUsingItem()
		p.finishDigging(pk.Pos)
	case protocol.DropAllItems:
		p.inv.SetClientItem(hotbar, item.Stack{})
	case protocol.DropItem:
		p.inv.InvalidateClientItem(hotbar)
	case protocol.ReleaseUseItem:
		if u := p.using; u != nil {
			if u.slot == hotbar && u.stack.Kind() == p.inv.Item(hotbar).Kind() {
				p.handler.HandleFinishUsingItem(p, u.slot, u.ticks)
			}
			p.meta.setHandFlags(p.meta.handFlags &^ protocol.HandFlagActive)
			p.using = nil
		}
		p.inv.InvalidateClientItem(hotbar)
	case protocol.SwapItemWithOffHand:
		p.handler.HandleSwapItemWithOffHand(p)
	default:
		return fmt.Errorf("hand action %v", pk.Action)
	}
	return nil
}

// destroyBlock clears the block at pos, showing the break particles and
// sound to everyone with the chunk in view. The block change reaching the
// viewers also drops any crack overlay still standing on the position.
func (p *Player) destroyBlock(pos protocol.BlockPos) {
	bp := cube.Pos{pos.X, pos.Y, pos.Z}
	state, ok := p.level.Block(bp)
	if !ok || state == 0 {
		return
	}
	if ch := p.level.Chunk(pos.X>>4, pos.Z>>4); ch != nil {
		_ = ch.Viewable().WritePacket(&protocol.LevelEvent{
			Event: protocol.LevelEventDestroyBlock,
			Pos:   pos,
			Data:  int32(state),
		})
	}
	p.level.SetBlock(bp, 0)
}

// handleInteractEntity applies a click on another entity. Targeting yourself
// is a protocol violation; targets that despawned this tick are skipped.
func (p *Player) handleInteractEntity(pk *protocol.InteractEntity) error {
	if pk.EntityID == p.networkID {
		return fmt.Errorf("interact with own entity id %v", pk.EntityID)
	}

	p.abortUsingItem()

	e := p.level.EntityByNetworkID(pk.EntityID)
	if e == nil {
		return nil
	}
	switch pk.Kind {
	case protocol.InteractKindInteract:
		if p.interactedWithEntity {
			return nil
		}
		if p.beginUsingItem(pk.Hand) {
			return nil
		}
		p.abortUsingItem()
	case protocol.InteractKindAttack:
		p.handler.HandleAttackEntity(p, e)
		p.attackStrength = 0
		p.handler.HandleAttackStrengthReset(p)
	case protocol.InteractKindInteractAt:
		if p.interactedWithEntity {
			return nil
		}
		at := mgl64.Vec3{float64(pk.X), float64(pk.Y), float64(pk.Z)}
		if p.handler.HandleInteractEntityAt(p, e, pk.Hand, at) {
			p.abortUsingItem()
			p.interactedWithEntity = true
			return nil
		}
		if p.beginUsingItem(pk.Hand) {
			return nil
		}
		p.abortUsingItem()
	default:
		return fmt.Errorf("interact kind %v", pk.Kind)
	}
	return nil
}

// handleMoveAction applies sneaking and sprinting state to the player's
// broadcast metadata. The riding and elytra actions have nothing to act on
// here and are accepted silently.
func (p *Player) handleMoveAction(action protocol.MoveAction) {
	switch action {
	case protocol.PressShiftKey:
		p.meta.setFlags(p.meta.flags | protocol.EntityFlagSneaking)
		p.meta.setPose(protocol.PoseSneaking)
	case protocol.ReleaseShiftKey:
		p.meta.setFlags(p.meta.flags &^ protocol.EntityFlagSneaking)
		p.meta.setPose(protocol.PoseStanding)
	case protocol.StartSprinting:
		p.meta.setFlags(p.meta.flags | protocol.EntityFlagSprinting)
	case protocol.StopSprinting:
		p.meta.setFlags(p.meta.flags &^ protocol.EntityFlagSprinting)
	}
}

// moveTo applies a client reported position through swept collision,
// teleporting the client back when the move is over ten blocks long and onto
// the collided position when collision cut the move materially short. It
// reports whether the packet's position was accepted.
func (p *Player) moveTo(x, y, z float64) bool {
	delta := mgl64.Vec3{x - p.position[0], y - p.position[1], z - p.position[2]}
	if delta.LenSqr() > 100 {
		p.Teleport(p.position)
		return false
	}

	moved, hitX, hitY, hitZ := p.level.Move(p.crawlingBBox(), delta)
	p.position = p.position.Add(moved)

	if (hitX || hitY || hitZ) && delta.Sub(moved).LenSqr() > 0.5 {
		p.Teleport(p.position)
	}
	return true
}

// invalidMovement reports whether a movement packet carries values the client
// could never legitimately produce.
func invalidMovement(x, y, z float64, yaw, pitch float32) bool {
	for _, v := range [...]float64{x, y, z, float64(yaw), float64(pitch)} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return pitch < -90 || pitch > 90
}
