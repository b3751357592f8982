package protocol

import "github.com/google/uuid"

// AddEntity spawns a non-player entity for the receiving client.
type AddEntity struct {
	EntityID   int32
	UUID       uuid.UUID
	Kind       int32
	X, Y, Z    float64
	Pitch, Yaw uint8
	HeadYaw    uint8
	Data       int32
	VX, VY, VZ int16
}

func (*AddEntity) ID() byte { return IDAddEntity }

func (*AddEntity) Size() int { return 5 + 16 + 5 + 3*8 + 3 + 5 + 3*2 }

func (p *AddEntity) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += copy(b[n:], p.UUID[:])
	n += PutVarInt(b[n:], p.Kind)
	n += PutFloat64(b[n:], p.X)
	n += PutFloat64(b[n:], p.Y)
	n += PutFloat64(b[n:], p.Z)
	n += PutUint8(b[n:], p.Pitch)
	n += PutUint8(b[n:], p.Yaw)
	n += PutUint8(b[n:], p.HeadYaw)
	n += PutVarInt(b[n:], p.Data)
	n += PutInt16(b[n:], p.VX)
	n += PutInt16(b[n:], p.VY)
	n += PutInt16(b[n:], p.VZ)
	return n
}

// AddPlayer spawns another player's entity for the receiving client. The
// player must have been announced through PlayerInfo first.
type AddPlayer struct {
	EntityID   int32
	UUID       uuid.UUID
	X, Y, Z    float64
	Yaw, Pitch uint8
}

func (*AddPlayer) ID() byte { return IDAddPlayer }

func (*AddPlayer) Size() int { return 5 + 16 + 3*8 + 2 }

func (p *AddPlayer) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += copy(b[n:], p.UUID[:])
	n += PutFloat64(b[n:], p.X)
	n += PutFloat64(b[n:], p.Y)
	n += PutFloat64(b[n:], p.Z)
	n += PutUint8(b[n:], p.Yaw)
	n += PutUint8(b[n:], p.Pitch)
	return n
}

// Animation values accepted by AnimateEntity.
const (
	AnimationSwingMainArm uint8 = 0
	AnimationHurt         uint8 = 1
	AnimationWakeUp       uint8 = 2
	AnimationSwingOffHand uint8 = 3
	AnimationCriticalHit  uint8 = 4
)

// AnimateEntity plays a one-shot animation on an entity, such as an arm
// swing.
type AnimateEntity struct {
	EntityID  int32
	Animation uint8
}

func (*AnimateEntity) ID() byte { return IDAnimateEntity }

func (*AnimateEntity) Size() int { return 5 + 1 }

func (p *AnimateEntity) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutUint8(b[n:], p.Animation)
	return n
}

// BlockChangedAck tells the client that all block interactions up to and
// including the given sequence number have been processed, letting it discard
// its local predictions for them.
type BlockChangedAck struct {
	Sequence int32
}

func (*BlockChangedAck) ID() byte { return IDBlockChangedAck }

func (*BlockChangedAck) Size() int { return 5 }

func (p *BlockChangedAck) Write(b []byte) int {
	return PutVarInt(b, p.Sequence)
}

// BlockDestruction displays a block breaking progress overlay. Progress runs
// from 0 to 9, any other value clears the overlay.
type BlockDestruction struct {
	EntityID int32
	Pos      BlockPos
	Progress uint8
}

func (*BlockDestruction) ID() byte { return IDBlockDestruction }

func (*BlockDestruction) Size() int { return 5 + 8 + 1 }

func (p *BlockDestruction) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutBlockPos(b[n:], p.Pos)
	n += PutUint8(b[n:], p.Progress)
	return n
}

// BlockUpdate replaces a single block state at a position.
type BlockUpdate struct {
	Pos   BlockPos
	State int32
}

func (*BlockUpdate) ID() byte { return IDBlockUpdate }

func (*BlockUpdate) Size() int { return 8 + 5 }

func (p *BlockUpdate) Write(b []byte) int {
	n := PutBlockPos(b, p.Pos)
	n += PutVarInt(b[n:], p.State)
	return n
}

// ContainerSetSlot overwrites a single slot of an open container. Window 0
// is the player's own inventory.
type ContainerSetSlot struct {
	WindowID int8
	StateID  int32
	Slot     int16
	Item     ItemStack
}

func (*ContainerSetSlot) ID() byte { return IDContainerSetSlot }

func (p *ContainerSetSlot) Size() int { return 1 + 5 + 2 + p.Item.size() }

func (p *ContainerSetSlot) Write(b []byte) int {
	n := PutUint8(b, uint8(p.WindowID))
	n += PutVarInt(b[n:], p.StateID)
	n += PutInt16(b[n:], p.Slot)
	n += p.Item.put(b[n:])
	return n
}

// CustomPayload carries a mod channel message. The server uses it to announce
// its brand on minecraft:brand.
type CustomPayload struct {
	Channel string
	Data    []byte
}

func (*CustomPayload) ID() byte { return IDCustomPayload }

func (p *CustomPayload) Size() int { return StringSize(p.Channel) + len(p.Data) }

func (p *CustomPayload) Write(b []byte) int {
	n := PutString(b, p.Channel)
	n += copy(b[n:], p.Data)
	return n
}

// Disconnect kicks the client with a chat component reason. It is valid in
// the play state; the login state uses LoginDisconnect instead.
type Disconnect struct {
	Reason string
}

func (*Disconnect) ID() byte { return IDDisconnect }

func (p *Disconnect) Size() int { return StringSize(p.Reason) }

func (p *Disconnect) Write(b []byte) int {
	return PutString(b, p.Reason)
}

// GameEvent triggers a client side game state change such as a weather or
// game mode switch.
type GameEvent struct {
	Event GameEventType
	Param float32
}

func (*GameEvent) ID() byte { return IDGameEvent }

func (*GameEvent) Size() int { return 1 + 4 }

func (p *GameEvent) Write(b []byte) int {
	n := PutUint8(b, uint8(p.Event))
	n += PutFloat32(b[n:], p.Param)
	return n
}

// KeepAlive must be echoed by the client within the timeout window to keep
// the connection open.
type KeepAlive struct {
	Challenge int64
}

func (*KeepAlive) ID() byte { return IDKeepAlive }

func (*KeepAlive) Size() int { return 8 }

func (p *KeepAlive) Write(b []byte) int {
	return PutInt64(b, p.Challenge)
}

// LevelEvent plays a sound or particle effect bound to a block position, such
// as a block breaking.
type LevelEvent struct {
	Event  int32
	Pos    BlockPos
	Data   int32
	Global bool
}

func (*LevelEvent) ID() byte { return IDLevelEvent }

func (*LevelEvent) Size() int { return 4 + 8 + 4 + 1 }

func (p *LevelEvent) Write(b []byte) int {
	n := PutInt32(b, p.Event)
	n += PutBlockPos(b[n:], p.Pos)
	n += PutInt32(b[n:], p.Data)
	n += PutBool(b[n:], p.Global)
	return n
}

// LevelEventDestroyBlock is the LevelEvent id for block break particles and
// sound, with the block state id as data.
const LevelEventDestroyBlock int32 = 2001

// Login is the first play state packet. It carries the world membership of
// the player together with the registry codec the client needs to interpret
// dimension and biome references.
type Login struct {
	EntityID         int32
	Hardcore         bool
	GameMode         uint8
	PreviousGameMode int8
	DimensionNames   []string
	RegistryCodec    []byte
	DimensionType    string
	DimensionName    string
	HashedSeed       int64
	MaxPlayers       int32
	ViewDistance     int32
	SimulationDist   int32
	ReducedDebug     bool
	RespawnScreen    bool
	Debug            bool
	Flat             bool
}

func (*Login) ID() byte { return IDLogin }

func (p *Login) Size() int {
	n := 4 + 1 + 1 + 1 + 5
	for _, name := range p.DimensionNames {
		n += StringSize(name)
	}
	n += len(p.RegistryCodec)
	n += StringSize(p.DimensionType) + StringSize(p.DimensionName)
	n += 8 + 5 + 5 + 5 + 1 + 1 + 1 + 1 + 1
	return n
}

func (p *Login) Write(b []byte) int {
	n := PutInt32(b, p.EntityID)
	n += PutBool(b[n:], p.Hardcore)
	n += PutUint8(b[n:], p.GameMode)
	n += PutUint8(b[n:], uint8(p.PreviousGameMode))
	n += PutVarInt(b[n:], int32(len(p.DimensionNames)))
	for _, name := range p.DimensionNames {
		n += PutString(b[n:], name)
	}
	n += copy(b[n:], p.RegistryCodec)
	n += PutString(b[n:], p.DimensionType)
	n += PutString(b[n:], p.DimensionName)
	n += PutInt64(b[n:], p.HashedSeed)
	n += PutVarInt(b[n:], p.MaxPlayers)
	n += PutVarInt(b[n:], p.ViewDistance)
	n += PutVarInt(b[n:], p.SimulationDist)
	n += PutBool(b[n:], p.ReducedDebug)
	n += PutBool(b[n:], p.RespawnScreen)
	n += PutBool(b[n:], p.Debug)
	n += PutBool(b[n:], p.Flat)
	n += PutBool(b[n:], false) // no death location
	return n
}

// MoveEntityPos moves an entity by a sub-block delta without changing its
// rotation. Deltas are in 1/4096ths of a block.
type MoveEntityPos struct {
	EntityID   int32
	DX, DY, DZ int16
	OnGround   bool
}

func (*MoveEntityPos) ID() byte { return IDMoveEntityPos }

func (*MoveEntityPos) Size() int { return 5 + 3*2 + 1 }

func (p *MoveEntityPos) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutInt16(b[n:], p.DX)
	n += PutInt16(b[n:], p.DY)
	n += PutInt16(b[n:], p.DZ)
	n += PutBool(b[n:], p.OnGround)
	return n
}

// MoveEntityPosRot moves an entity by a sub-block delta and rotates it.
type MoveEntityPosRot struct {
	EntityID   int32
	DX, DY, DZ int16
	Yaw, Pitch uint8
	OnGround   bool
}

func (*MoveEntityPosRot) ID() byte { return IDMoveEntityPosRot }

func (*MoveEntityPosRot) Size() int { return 5 + 3*2 + 2 + 1 }

func (p *MoveEntityPosRot) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutInt16(b[n:], p.DX)
	n += PutInt16(b[n:], p.DY)
	n += PutInt16(b[n:], p.DZ)
	n += PutUint8(b[n:], p.Yaw)
	n += PutUint8(b[n:], p.Pitch)
	n += PutBool(b[n:], p.OnGround)
	return n
}

// MoveEntityRot rotates an entity in place.
type MoveEntityRot struct {
	EntityID   int32
	Yaw, Pitch uint8
	OnGround   bool
}

func (*MoveEntityRot) ID() byte { return IDMoveEntityRot }

func (*MoveEntityRot) Size() int { return 5 + 2 + 1 }

func (p *MoveEntityRot) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutUint8(b[n:], p.Yaw)
	n += PutUint8(b[n:], p.Pitch)
	n += PutBool(b[n:], p.OnGround)
	return n
}

// Ability flags carried by PlayerAbilities.
const (
	AbilityInvulnerable uint8 = 1 << iota
	AbilityFlying
	AbilityMayFly
	AbilityInstabuild
)

// PlayerAbilities sets the client side ability flags together with the
// flying and field of view speed modifiers.
type PlayerAbilities struct {
	Flags       uint8
	FlyingSpeed float32
	FOVModifier float32
}

func (*PlayerAbilities) ID() byte { return IDPlayerAbilities }

func (*PlayerAbilities) Size() int { return 1 + 4 + 4 }

func (p *PlayerAbilities) Write(b []byte) int {
	n := PutUint8(b, p.Flags)
	n += PutFloat32(b[n:], p.FlyingSpeed)
	n += PutFloat32(b[n:], p.FOVModifier)
	return n
}

// PlayerInfoEntry is a single player announced through PlayerInfoAdd.
type PlayerInfoEntry struct {
	Profile  GameProfile
	GameMode int32
	Ping     int32
}

// PlayerInfoAdd announces players to the tab list. A player entity cannot be
// spawned for a client before its profile has been announced here.
type PlayerInfoAdd struct {
	Entries []PlayerInfoEntry
}

func (*PlayerInfoAdd) ID() byte { return IDPlayerInfo }

func (p *PlayerInfoAdd) Size() int {
	n := 5 + 5
	for _, e := range p.Entries {
		n += e.Profile.size() + 5 + 5 + 1 + 1
	}
	return n
}

func (p *PlayerInfoAdd) Write(b []byte) int {
	n := PutVarInt(b, 0) // action: add player
	n += PutVarInt(b[n:], int32(len(p.Entries)))
	for _, e := range p.Entries {
		n += e.Profile.put(b[n:])
		n += PutVarInt(b[n:], e.GameMode)
		n += PutVarInt(b[n:], e.Ping)
		n += PutBool(b[n:], false) // no display name
		n += PutBool(b[n:], false) // no signature data
	}
	return n
}

// PlayerInfoRemove removes players from the tab list.
type PlayerInfoRemove struct {
	UUIDs []uuid.UUID
}

func (*PlayerInfoRemove) ID() byte { return IDPlayerInfo }

func (p *PlayerInfoRemove) Size() int { return 5 + 5 + 16*len(p.UUIDs) }

func (p *PlayerInfoRemove) Write(b []byte) int {
	n := PutVarInt(b, 4) // action: remove player
	n += PutVarInt(b[n:], int32(len(p.UUIDs)))
	for _, id := range p.UUIDs {
		n += copy(b[n:], id[:])
	}
	return n
}

// Relative teleport flags carried by PlayerPosition.
const (
	TeleportRelativeX uint8 = 1 << iota
	TeleportRelativeY
	TeleportRelativeZ
	TeleportRelativePitch
	TeleportRelativeYaw
)

// PlayerPosition teleports the receiving client's own player. The client
// confirms it with an AcceptTeleportation carrying the same id.
type PlayerPosition struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	Relative   uint8
	TeleportID int32
	Dismount   bool
}

func (*PlayerPosition) ID() byte { return IDPlayerPosition }

func (*PlayerPosition) Size() int { return 3*8 + 2*4 + 1 + 5 + 1 }

func (p *PlayerPosition) Write(b []byte) int {
	n := PutFloat64(b, p.X)
	n += PutFloat64(b[n:], p.Y)
	n += PutFloat64(b[n:], p.Z)
	n += PutFloat32(b[n:], p.Yaw)
	n += PutFloat32(b[n:], p.Pitch)
	n += PutUint8(b[n:], p.Relative)
	n += PutVarInt(b[n:], p.TeleportID)
	n += PutBool(b[n:], p.Dismount)
	return n
}

// RemoveEntities despawns entities for the receiving client.
type RemoveEntities struct {
	EntityIDs []int32
}

func (*RemoveEntities) ID() byte { return IDRemoveEntities }

func (p *RemoveEntities) Size() int { return 5 + 5*len(p.EntityIDs) }

func (p *RemoveEntities) Write(b []byte) int {
	n := PutVarInt(b, int32(len(p.EntityIDs)))
	for _, id := range p.EntityIDs {
		n += PutVarInt(b[n:], id)
	}
	return n
}

// RotateHead turns an entity's head. Clients render body yaw following the
// head with a delay, so head rotation is sent alongside MoveEntityRot.
type RotateHead struct {
	EntityID int32
	HeadYaw  uint8
}

func (*RotateHead) ID() byte { return IDRotateHead }

func (*RotateHead) Size() int { return 5 + 1 }

func (p *RotateHead) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutUint8(b[n:], p.HeadYaw)
	return n
}

// SetChunkCacheCenter moves the client's chunk cache center so that newly
// sent chunks around the player are retained.
type SetChunkCacheCenter struct {
	ChunkX, ChunkZ int32
}

func (*SetChunkCacheCenter) ID() byte { return IDSetChunkCacheCenter }

func (*SetChunkCacheCenter) Size() int { return 5 + 5 }

func (p *SetChunkCacheCenter) Write(b []byte) int {
	n := PutVarInt(b, p.ChunkX)
	n += PutVarInt(b[n:], p.ChunkZ)
	return n
}

// SetEntityData updates entity metadata. Data holds the already serialized
// metadata entries including the end marker.
type SetEntityData struct {
	EntityID int32
	Data     []byte
}

func (*SetEntityData) ID() byte { return IDSetEntityData }

func (p *SetEntityData) Size() int { return 5 + len(p.Data) }

func (p *SetEntityData) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += copy(b[n:], p.Data)
	return n
}

// SetEntityMotion pushes a velocity onto an entity, in 1/8000ths of a block
// per tick.
type SetEntityMotion struct {
	EntityID   int32
	VX, VY, VZ int16
}

func (*SetEntityMotion) ID() byte { return IDSetEntityMotion }

func (*SetEntityMotion) Size() int { return 5 + 3*2 }

func (p *SetEntityMotion) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutInt16(b[n:], p.VX)
	n += PutInt16(b[n:], p.VY)
	n += PutInt16(b[n:], p.VZ)
	return n
}

// Equipment slots used by SetEquipment.
const (
	EquipmentMainHand uint8 = iota
	EquipmentOffHand
	EquipmentBoots
	EquipmentLeggings
	EquipmentChestplate
	EquipmentHelmet
)

// EquipmentEntry pairs an equipment slot with the item shown in it.
type EquipmentEntry struct {
	Slot uint8
	Item ItemStack
}

// SetEquipment shows held and worn items on another entity.
type SetEquipment struct {
	EntityID int32
	Entries  []EquipmentEntry
}

func (*SetEquipment) ID() byte { return IDSetEquipment }

func (p *SetEquipment) Size() int {
	n := 5
	for _, e := range p.Entries {
		n += 1 + e.Item.size()
	}
	return n
}

func (p *SetEquipment) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	for i, e := range p.Entries {
		slot := e.Slot
		if i != len(p.Entries)-1 {
			slot |= 0x80
		}
		n += PutUint8(b[n:], slot)
		n += e.Item.put(b[n:])
	}
	return n
}

// SystemChat shows a system message in chat, or above the hotbar when
// Overlay is set.
type SystemChat struct {
	Content string
	Overlay bool
}

func (*SystemChat) ID() byte { return IDSystemChat }

func (p *SystemChat) Size() int { return StringSize(p.Content) + 1 }

func (p *SystemChat) Write(b []byte) int {
	n := PutString(b, p.Content)
	n += PutBool(b[n:], p.Overlay)
	return n
}

// TeleportEntity moves an entity to an absolute position, used when a
// relative move cannot express the change.
type TeleportEntity struct {
	EntityID   int32
	X, Y, Z    float64
	Yaw, Pitch uint8
	OnGround   bool
}

func (*TeleportEntity) ID() byte { return IDTeleportEntity }

func (*TeleportEntity) Size() int { return 5 + 3*8 + 2 + 1 }

func (p *TeleportEntity) Write(b []byte) int {
	n := PutVarInt(b, p.EntityID)
	n += PutFloat64(b[n:], p.X)
	n += PutFloat64(b[n:], p.Y)
	n += PutFloat64(b[n:], p.Z)
	n += PutUint8(b[n:], p.Yaw)
	n += PutUint8(b[n:], p.Pitch)
	n += PutBool(b[n:], p.OnGround)
	return n
}

// Tag is a named group of registry ids within one tag registry.
type Tag struct {
	Name    string
	Entries []int32
}

// TagRegistry groups the tags of a single registry, such as minecraft:block.
type TagRegistry struct {
	Name string
	Tags []Tag
}

// UpdateTags sends the server's tag tables. The client needs at least the
// block and item tags it references during prediction.
type UpdateTags struct {
	Registries []TagRegistry
}

func (*UpdateTags) ID() byte { return IDUpdateTags }

func (p *UpdateTags) Size() int {
	n := 5
	for _, r := range p.Registries {
		n += StringSize(r.Name) + 5
		for _, t := range r.Tags {
			n += StringSize(t.Name) + 5 + 5*len(t.Entries)
		}
	}
	return n
}

func (p *UpdateTags) Write(b []byte) int {
	n := PutVarInt(b, int32(len(p.Registries)))
	for _, r := range p.Registries {
		n += PutString(b[n:], r.Name)
		n += PutVarInt(b[n:], int32(len(r.Tags)))
		for _, t := range r.Tags {
			n += PutString(b[n:], t.Name)
			n += PutVarInt(b[n:], int32(len(t.Entries)))
			for _, e := range t.Entries {
				n += PutVarInt(b[n:], e)
			}
		}
	}
	return n
}
