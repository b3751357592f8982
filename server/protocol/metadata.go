package protocol

// Entity metadata field types used in SetEntityData payloads.
const (
	MetaTypeByte   int32 = 0
	MetaTypeVarInt int32 = 1
	MetaTypePose   int32 = 18
)

// MetaEnd terminates a metadata payload.
const MetaEnd byte = 0xFF

// Well known metadata indices shared by all entity kinds.
const (
	MetaIndexFlags uint8 = 0
	MetaIndexPose  uint8 = 6
	// MetaIndexHandFlags is the living entity hand state byte.
	MetaIndexHandFlags uint8 = 8
)

// Shared entity flag bits stored at MetaIndexFlags.
const (
	EntityFlagOnFire    uint8 = 1 << 0
	EntityFlagSneaking  uint8 = 1 << 1
	EntityFlagSprinting uint8 = 1 << 3
	EntityFlagInvisible uint8 = 1 << 5
	EntityFlagGlowing   uint8 = 1 << 6
)

// Hand state bits stored at MetaIndexHandFlags.
const (
	// HandFlagActive marks the entity as actively using the held item.
	HandFlagActive uint8 = 1 << 0
	// HandFlagOffHand selects the off hand as the active one.
	HandFlagOffHand uint8 = 1 << 1
)

// Entity poses stored at MetaIndexPose.
const (
	PoseStanding int32 = 0
	PoseSneaking int32 = 5
)

// PutMetaByte writes a byte-typed metadata entry.
func PutMetaByte(b []byte, index uint8, v uint8) int {
	n := PutUint8(b, index)
	n += PutVarInt(b[n:], MetaTypeByte)
	n += PutUint8(b[n:], v)
	return n
}

// PutMetaVarInt writes a varint-typed metadata entry.
func PutMetaVarInt(b []byte, index uint8, v int32) int {
	n := PutUint8(b, index)
	n += PutVarInt(b[n:], MetaTypeVarInt)
	n += PutVarInt(b[n:], v)
	return n
}

// PutMetaPose writes a pose-typed metadata entry.
func PutMetaPose(b []byte, index uint8, pose int32) int {
	n := PutUint8(b, index)
	n += PutVarInt(b[n:], MetaTypePose)
	n += PutVarInt(b[n:], pose)
	return n
}
