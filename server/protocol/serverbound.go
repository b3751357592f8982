package protocol

import "fmt"

// AcceptTeleportation confirms a PlayerPosition teleport by id.
type AcceptTeleportation struct {
	TeleportID int32
}

// ChatCommand is a slash command without its leading slash. The signature
// and last seen message data trailing the command text is ignored.
type ChatCommand struct {
	Command string
}

// ClientInformation carries the client's settings. The server keeps its
// configured view radius and ignores the cosmetic settings.
type ClientInformation struct {
	Language     string
	ViewDistance int8
	ChatMode     int32
	ChatColors   bool
	SkinParts    uint8
	MainHand     int32
	TextFilter   bool
	AllowListing bool
}

// ServCustomPayload is a mod channel message from the client.
type ServCustomPayload struct {
	Channel string
	Data    []byte
}

// Interaction kinds carried by InteractEntity.
const (
	InteractKindInteract int32 = iota
	InteractKindAttack
	InteractKindInteractAt
)

// InteractEntity is a click on another entity.
type InteractEntity struct {
	EntityID int32
	Kind     int32
	X, Y, Z  float32
	Hand     Hand
	Sneaking bool
}

// ServKeepAlive echoes a KeepAlive challenge.
type ServKeepAlive struct {
	Challenge int64
}

// MovePlayerPos updates the client's own position.
type MovePlayerPos struct {
	X, Y, Z  float64
	OnGround bool
}

// MovePlayerPosRot updates the client's own position and rotation.
type MovePlayerPosRot struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool
}

// MovePlayerRot updates the client's own rotation.
type MovePlayerRot struct {
	Yaw, Pitch float32
	OnGround   bool
}

// MovePlayerStatusOnly updates only the client's on ground flag.
type MovePlayerStatusOnly struct {
	OnGround bool
}

// ServPlayerAbilities reports the client toggling flight.
type ServPlayerAbilities struct {
	Flying bool
}

// PlayerHandAction is a block digging or item dropping action.
type PlayerHandAction struct {
	Action   HandAction
	Pos      BlockPos
	Face     Face
	Sequence int32
}

// PlayerMoveAction is a sneaking or sprinting state change.
type PlayerMoveAction struct {
	EntityID int32
	Action   MoveAction
	Data     int32
}

// SetCarriedItem selects a hotbar slot.
type SetCarriedItem struct {
	Slot int16
}

// SetCreativeModeSlot writes an inventory slot directly, as permitted in
// creative mode.
type SetCreativeModeSlot struct {
	Slot int16
	Item ItemStack
}

// Swing is an arm swing animation request.
type Swing struct {
	Hand Hand
}

// UseItemOn is a click on a block face with the item in the given hand.
type UseItemOn struct {
	Hand     Hand
	Hit      BlockHitResult
	Sequence int32
}

// UseItem is a click into the air with the item in the given hand.
type UseItem struct {
	Hand     Hand
	Sequence int32
}

// ParsePlay decodes a serverbound play state packet. Packets the server does
// not act on decode to nil without an error, so unknown ids never break the
// connection. Malformed payloads return an error.
func ParsePlay(id byte, payload []byte) (any, error) {
	r := NewReader(payload)
	var pkt any
	greedy := false
	switch id {
	case IDAcceptTeleportation:
		pkt = &AcceptTeleportation{TeleportID: r.VarInt()}
	case IDChatCommand:
		pkt = &ChatCommand{Command: r.String(256)}
		greedy = true
	case IDClientInformation:
		pkt = &ClientInformation{
			Language:     r.String(16),
			ViewDistance: int8(r.Uint8()),
			ChatMode:     r.VarInt(),
			ChatColors:   r.Bool(),
			SkinParts:    r.Uint8(),
			MainHand:     r.VarInt(),
			TextFilter:   r.Bool(),
			AllowListing: r.Bool(),
		}
	case IDServCustomPayload:
		pkt = &ServCustomPayload{Channel: r.String(MaxStringLength), Data: r.GreedyBlob()}
		greedy = true
	case IDInteractEntity:
		p := &InteractEntity{EntityID: r.VarInt(), Kind: r.VarInt()}
		switch p.Kind {
		case InteractKindInteract:
			p.Hand = Hand(r.VarInt())
		case InteractKindInteractAt:
			p.X, p.Y, p.Z = r.Float32(), r.Float32(), r.Float32()
			p.Hand = Hand(r.VarInt())
		}
		p.Sneaking = r.Bool()
		pkt = p
	case IDServKeepAlive:
		pkt = &ServKeepAlive{Challenge: r.Int64()}
	case IDMovePlayerPos:
		pkt = &MovePlayerPos{X: r.Float64(), Y: r.Float64(), Z: r.Float64(), OnGround: r.Bool()}
	case IDMovePlayerPosRot:
		pkt = &MovePlayerPosRot{
			X: r.Float64(), Y: r.Float64(), Z: r.Float64(),
			Yaw: r.Float32(), Pitch: r.Float32(), OnGround: r.Bool(),
		}
	case IDMovePlayerRot:
		pkt = &MovePlayerRot{Yaw: r.Float32(), Pitch: r.Float32(), OnGround: r.Bool()}
	case IDMovePlayerStatusOnly:
		pkt = &MovePlayerStatusOnly{OnGround: r.Bool()}
	case IDServPlayerAbilities:
		pkt = &ServPlayerAbilities{Flying: r.Uint8()&AbilityFlying != 0}
	case IDPlayerHandAction:
		pkt = &PlayerHandAction{
			Action:   HandAction(r.VarInt()),
			Pos:      r.BlockPos(),
			Face:     Face(r.Uint8()),
			Sequence: r.VarInt(),
		}
	case IDPlayerMoveAction:
		pkt = &PlayerMoveAction{EntityID: r.VarInt(), Action: MoveAction(r.VarInt()), Data: r.VarInt()}
	case IDSetCarriedItem:
		pkt = &SetCarriedItem{Slot: r.Int16()}
	case IDSetCreativeModeSlot:
		pkt = &SetCreativeModeSlot{Slot: r.Int16(), Item: readItemStack(r)}
		greedy = true
	case IDSwing:
		pkt = &Swing{Hand: Hand(r.VarInt())}
	case IDUseItemOn:
		pkt = &UseItemOn{Hand: Hand(r.VarInt()), Hit: readBlockHit(r), Sequence: r.VarInt()}
	case IDUseItem:
		pkt = &UseItem{Hand: Hand(r.VarInt()), Sequence: r.VarInt()}
	default:
		return nil, nil
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("packet 0x%02x: %w", id, err)
	}
	if !greedy && r.Remaining() != 0 {
		return nil, fmt.Errorf("packet 0x%02x: %d trailing bytes", id, r.Remaining())
	}
	return pkt, nil
}
