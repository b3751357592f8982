package player

import (
	"github.com/basalt-mc/basalt/server/protocol"
)

// metadata tracks the entity metadata published for a player and which
// entries changed since they were last written. Changed entries are batched
// into a single SetEntityData per tick.
type metadata struct {
	flags     uint8
	pose      int32
	handFlags uint8

	dirtyFlags     bool
	dirtyPose      bool
	dirtyHandFlags bool
}

func (m *metadata) setFlags(v uint8) {
	if m.flags != v {
		m.flags, m.dirtyFlags = v, true
	}
}

func (m *metadata) setPose(v int32) {
	if m.pose != v {
		m.pose, m.dirtyPose = v, true
	}
}

func (m *metadata) setHandFlags(v uint8) {
	if m.handFlags != v {
		m.handFlags, m.dirtyHandFlags = v, true
	}
}

// writeCurrent emits a SetEntityData carrying every entry that differs from
// its default, used when the player entity spawns for a client mid-session.
func (m *metadata) writeCurrent(buf *protocol.Buffer, entityID int32) {
	var scratch [16]byte
	n := 0
	if m.flags != 0 {
		n += protocol.PutMetaByte(scratch[n:], protocol.MetaIndexFlags, m.flags)
	}
	if m.pose != protocol.PoseStanding {
		n += protocol.PutMetaPose(scratch[n:], protocol.MetaIndexPose, m.pose)
	}
	if m.handFlags != 0 {
		n += protocol.PutMetaByte(scratch[n:], protocol.MetaIndexHandFlags, m.handFlags)
	}
	if n == 0 {
		return
	}
	scratch[n] = protocol.MetaEnd
	n++
	_ = buf.WritePacket(&protocol.SetEntityData{EntityID: entityID, Data: scratch[:n]})
}

// writeChanges emits a SetEntityData carrying the dirty entries, if any, and
// marks everything clean.
func (m *metadata) writeChanges(buf *protocol.Buffer, entityID int32) {
	if !m.dirtyFlags && !m.dirtyPose && !m.dirtyHandFlags {
		return
	}
	var scratch [16]byte
	n := 0
	if m.dirtyFlags {
		n += protocol.PutMetaByte(scratch[n:], protocol.MetaIndexFlags, m.flags)
	}
	if m.dirtyPose {
		n += protocol.PutMetaPose(scratch[n:], protocol.MetaIndexPose, m.pose)
	}
	if m.dirtyHandFlags {
		n += protocol.PutMetaByte(scratch[n:], protocol.MetaIndexHandFlags, m.handFlags)
	}
	scratch[n] = protocol.MetaEnd
	n++
	m.dirtyFlags, m.dirtyPose, m.dirtyHandFlags = false, false, false
	_ = buf.WritePacket(&protocol.SetEntityData{EntityID: entityID, Data: scratch[:n]})
}
