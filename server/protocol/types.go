package protocol

import "github.com/google/uuid"

// BlockPos is an integer block position. On the wire it packs into a single
// big-endian int64 with 26 bits of x, 26 bits of z and 12 bits of y.
type BlockPos struct {
	X, Y, Z int32
}

// Side returns the position offset one block towards the given face.
func (p BlockPos) Side(face Face) BlockPos {
	switch face {
	case FaceDown:
		p.Y--
	case FaceUp:
		p.Y++
	case FaceNorth:
		p.Z--
	case FaceSouth:
		p.Z++
	case FaceWest:
		p.X--
	case FaceEast:
		p.X++
	}
	return p
}

// PutBlockPos writes p in its packed int64 form.
func PutBlockPos(b []byte, p BlockPos) int {
	v := (int64(p.X)&0x3FFFFFF)<<38 | (int64(p.Z)&0x3FFFFFF)<<12 | int64(p.Y)&0xFFF
	return PutInt64(b, v)
}

// DegreesToByte quantizes an angle in degrees to the protocol's 1/256th of a
// full turn byte form.
func DegreesToByte(v float32) uint8 {
	return uint8(int64(v * 256.0 / 360.0))
}

// ByteToDegrees is the inverse of DegreesToByte.
func ByteToDegrees(b uint8) float32 {
	return float32(b) * 360.0 / 256.0
}

// VelocityToShort quantizes a velocity in blocks per tick to the protocol's
// 1/8000th block fixed point form, saturating at the int16 range.
func VelocityToShort(v float32) int16 {
	f := v * 8000.0
	if f > 32767 {
		f = 32767
	} else if f < -32768 {
		f = -32768
	}
	return int16(f)
}

// Face is one of the six block faces.
type Face uint8

const (
	FaceDown Face = iota
	FaceUp
	FaceNorth
	FaceSouth
	FaceWest
	FaceEast
)

// Hand distinguishes the main hand from the off hand in interactions.
type Hand uint8

const (
	HandMain Hand = iota
	HandOff
)

// HandAction is the action field of a PlayerHandAction packet.
type HandAction uint8

const (
	StartDestroyBlock HandAction = iota
	AbortDestroyBlock
	StopDestroyBlock
	DropAllItems
	DropItem
	ReleaseUseItem
	SwapItemWithOffHand
)

// MoveAction is the action field of a PlayerMoveAction packet.
type MoveAction uint8

const (
	PressShiftKey MoveAction = iota
	ReleaseShiftKey
	StopSleeping
	StartSprinting
	StopSprinting
	StartRidingJump
	StopRidingJump
	OpenHorseInventory
	StartFallFlying
)

// GameEventType enumerates the event field of a GameEvent packet.
type GameEventType uint8

const (
	EventNoRespawnBlock GameEventType = iota
	EventStartRaining
	EventStopRaining
	EventChangeGameMode
	EventWinGame
	EventDemoEvent
	EventArrowHitPlayer
	EventRainLevelChange
	EventThunderLevelChange
	EventPufferFishSting
	EventGuardianElderEffect
	EventImmediateRespawn
)

// GameProfile identifies a player: the UUID the server authenticated (or
// derived, in offline mode), the username and any signed properties such as
// skin textures.
type GameProfile struct {
	UUID       uuid.UUID
	Name       string
	Properties []ProfileProperty
}

// ProfileProperty is a single key/value entry of a GameProfile, optionally
// signed by the session server.
type ProfileProperty struct {
	Name      string
	Value     string
	Signature string
}

func (p GameProfile) size() int {
	n := 16 + StringSize(p.Name) + VarIntSize(int32(len(p.Properties)))
	for _, prop := range p.Properties {
		n += StringSize(prop.Name) + StringSize(prop.Value) + 1
		if prop.Signature != "" {
			n += StringSize(prop.Signature)
		}
	}
	return n
}

func (p GameProfile) put(b []byte) int {
	n := copy(b, p.UUID[:])
	n += PutString(b[n:], p.Name)
	n += PutVarInt(b[n:], int32(len(p.Properties)))
	for _, prop := range p.Properties {
		n += PutString(b[n:], prop.Name)
		n += PutString(b[n:], prop.Value)
		n += PutBool(b[n:], prop.Signature != "")
		if prop.Signature != "" {
			n += PutString(b[n:], prop.Signature)
		}
	}
	return n
}

// BlockHitResult describes where on a block a UseItemOn interaction landed.
type BlockHitResult struct {
	Pos    BlockPos
	Face   Face
	Offset [3]float32
	Inside bool
}

func readBlockHit(r *Reader) BlockHitResult {
	return BlockHitResult{
		Pos:    r.BlockPos(),
		Face:   Face(r.VarInt()),
		Offset: [3]float32{r.Float32(), r.Float32(), r.Float32()},
		Inside: r.Bool(),
	}
}

// ItemStack is the wire form of an item slot: a present flag, the item's
// network id, a count and an NBT blob (a single TAG_End byte when empty).
type ItemStack struct {
	Present bool
	ItemID  int32
	Count   int8
	NBT     []byte
}

func readItemStack(r *Reader) ItemStack {
	if !r.Bool() {
		return ItemStack{}
	}
	s := ItemStack{Present: true}
	s.ItemID = r.VarInt()
	s.Count = int8(r.Uint8())
	if r.Remaining() > 0 && r.b[r.off] == 0 {
		r.Uint8()
	} else {
		s.NBT = r.GreedyBlob()
	}
	return s
}

func (s ItemStack) size() int {
	if !s.Present {
		return 1
	}
	n := 1 + VarIntSize(s.ItemID) + 1
	if len(s.NBT) == 0 {
		return n + 1
	}
	return n + len(s.NBT)
}

func (s ItemStack) put(b []byte) int {
	if !s.Present {
		return PutBool(b, false)
	}
	n := PutBool(b, true)
	n += PutVarInt(b[n:], s.ItemID)
	n += PutUint8(b[n:], uint8(s.Count))
	if len(s.NBT) == 0 {
		n += PutUint8(b[n:], 0)
	} else {
		n += copy(b[n:], s.NBT)
	}
	return n
}
