package app

import (
	"github.com/pion/webrtc/v4"

	"github.com/meetowl/signaling/internal/domain"
)

// Outbound message kinds (relay -> client).
const (
	MsgRoomParticipants = "room-participants"
	MsgUserJoined       = "user-joined"
	MsgOffer            = "offer"
	MsgAnswer           = "answer"
	MsgICECandidate     = "ice-candidate"
	MsgUserMuted        = "user-muted"
	MsgUserUnmuted      = "user-unmuted"
	MsgUserSpeaking     = "user-speaking"
	MsgUserLeft         = "user-left"
)

// PeerInfo identifies one room member on the wire. The connection id travels
// as socketId, which is what deployed clients expect.
type PeerInfo struct {
	UserID   string        `json:"userId"`
	UserName string        `json:"userName"`
	SocketID domain.ConnID `json:"socketId"`
}

type roomParticipantsMsg struct {
	Type         string     `json:"type"`
	Participants []PeerInfo `json:"participants"`
}

type userJoinedMsg struct {
	Type     string        `json:"type"`
	UserID   string        `json:"userId"`
	UserName string        `json:"userName"`
	SocketID domain.ConnID `json:"socketId"`
}

type offerForwardMsg struct {
	Type     string                    `json:"type"`
	Offer    webrtc.SessionDescription `json:"offer"`
	From     domain.ConnID             `json:"from"`
	UserID   string                    `json:"userId"`
	UserName string                    `json:"userName"`
}

type answerForwardMsg struct {
	Type   string                    `json:"type"`
	Answer webrtc.SessionDescription `json:"answer"`
	From   domain.ConnID             `json:"from"`
}

type candidateForwardMsg struct {
	Type      string                  `json:"type"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      domain.ConnID           `json:"from"`
}

// presenceMsg covers user-muted, user-unmuted and user-left, which share a shape.
type presenceMsg struct {
	Type     string        `json:"type"`
	UserID   string        `json:"userId"`
	SocketID domain.ConnID `json:"socketId"`
}

type speakingMsg struct {
	Type       string        `json:"type"`
	UserID     string        `json:"userId"`
	SocketID   domain.ConnID `json:"socketId"`
	IsSpeaking bool          `json:"isSpeaking"`
}
