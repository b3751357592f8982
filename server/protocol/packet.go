package protocol

// Packet is a clientbound packet. Size reports an upper bound on the
// serialized payload size so a buffer reservation can be made up front, and
// Write serializes the payload into b, returning the exact number of bytes
// written.
type Packet interface {
	ID() byte
	Size() int
	Write(b []byte) int
}

// Clientbound play packet ids.
const (
	IDAddEntity           byte = 0x00
	IDAddPlayer           byte = 0x02
	IDAnimateEntity       byte = 0x03
	IDBlockChangedAck     byte = 0x05
	IDBlockDestruction    byte = 0x06
	IDBlockUpdate         byte = 0x09
	IDContainerSetSlot    byte = 0x13
	IDCustomPayload       byte = 0x16
	IDDisconnect          byte = 0x19
	IDGameEvent           byte = 0x1d
	IDKeepAlive           byte = 0x20
	IDLevelChunkWithLight byte = 0x21
	IDLevelEvent          byte = 0x22
	IDLogin               byte = 0x25
	IDMoveEntityPos       byte = 0x28
	IDMoveEntityPosRot    byte = 0x29
	IDMoveEntityRot       byte = 0x2a
	IDPlayerAbilities     byte = 0x31
	IDPlayerInfo          byte = 0x37
	IDPlayerPosition      byte = 0x39
	IDRemoveEntities      byte = 0x3b
	IDRotateHead          byte = 0x3f
	IDSetChunkCacheCenter byte = 0x4b
	IDSetEntityData       byte = 0x50
	IDSetEntityMotion     byte = 0x52
	IDSetEquipment        byte = 0x53
	IDSystemChat          byte = 0x62
	IDTeleportEntity      byte = 0x66
	IDUpdateTags          byte = 0x6b
)

// Serverbound play packet ids. The ones whose names collide with a
// clientbound packet carry a Serv prefix.
const (
	IDAcceptTeleportation  byte = 0x00
	IDChatCommand          byte = 0x04
	IDClientInformation    byte = 0x08
	IDServCustomPayload    byte = 0x0d
	IDInteractEntity       byte = 0x10
	IDServKeepAlive        byte = 0x12
	IDMovePlayerPos        byte = 0x14
	IDMovePlayerPosRot     byte = 0x15
	IDMovePlayerRot        byte = 0x16
	IDMovePlayerStatusOnly byte = 0x17
	IDServPlayerAbilities  byte = 0x1c
	IDPlayerHandAction     byte = 0x1d
	IDPlayerMoveAction     byte = 0x1e
	IDSetCarriedItem       byte = 0x28
	IDSetCreativeModeSlot  byte = 0x2b
	IDSwing                byte = 0x2f
	IDUseItemOn            byte = 0x31
	IDUseItem              byte = 0x32
)
