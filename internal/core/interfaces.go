package core

import "github.com/meetowl/signaling/internal/domain"

// Frame is a marshaled signaling message ready for the wire.
type Frame []byte

// SignalConnection abstracts the messaging transport of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}
