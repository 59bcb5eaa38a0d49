package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/core"
	"github.com/meetowl/signaling/internal/domain"
)

// session is the per-connection state: identity, current room and the
// transport endpoint. The transport itself stays adapter-owned.
type session struct {
	id     domain.ConnID
	part   domain.Participant
	room   domain.RoomID // "" while unjoined
	conn   core.SignalConnection
	cancel context.CancelFunc
}

// Relay is the signaling orchestrator. It owns the participant sessions,
// drives the room registry and fans messages out to the right connections.
// Delivery is best effort: a frame that cannot be handed to a target is
// dropped without signaling the sender, the upper negotiation layer retries.
type Relay struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*session
	rooms    *core.Registry
}

func NewRelay(rooms *core.Registry) *Relay {
	return &Relay{
		sessions: make(map[domain.ConnID]*session),
		rooms:    rooms,
	}
}

// Connect registers a freshly established connection in the unjoined state.
func (r *Relay) Connect(id domain.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{id: id, conn: conn, cancel: cancel}
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Msg("connection registered")
}

// Join binds the client-supplied identity and adds the connection to roomID.
// The joiner receives the baseline member list before anyone else learns of
// it, so its own welcome list never includes itself. A join while already in
// a room is treated as an implicit leave-then-join.
func (r *Relay) Join(id domain.ConnID, roomID domain.RoomID, p domain.Participant) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("join from unknown connection")
		return
	}
	var (
		prevPeers []*session
		prevMsg   presenceMsg
	)
	if s.room != "" {
		prevPeers, prevMsg = r.departLocked(s)
	}
	s.part = p
	s.room = roomID
	r.rooms.AddMember(roomID, id)
	peers := r.peersLocked(roomID, id)
	// Peer identities must be captured while the lock is held: a concurrent
	// join may rewrite a peer's participant at any moment after release.
	list := make([]PeerInfo, 0, len(peers))
	for _, ps := range peers {
		list = append(list, PeerInfo{UserID: ps.part.UserID, UserName: ps.part.UserName, SocketID: ps.id})
	}
	r.mu.Unlock()

	if len(prevPeers) > 0 {
		r.fanOut(prevPeers, prevMsg)
	}
	r.sendTo(s.conn, roomParticipantsMsg{Type: MsgRoomParticipants, Participants: list})
	r.fanOut(peers, userJoinedMsg{Type: MsgUserJoined, UserID: p.UserID, UserName: p.UserName, SocketID: id})

	log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("room", string(roomID)).Str("user", p.UserID).Int("peers", len(peers)).Msg("joined room")
}

// Leave removes the connection from its current room without tearing the
// connection down. A leave while unjoined is a no-op.
func (r *Relay) Leave(id domain.ConnID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.room == "" {
		r.mu.Unlock()
		return
	}
	room := s.room
	peers, msg := r.departLocked(s)
	r.mu.Unlock()

	r.fanOut(peers, msg)
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("room", string(room)).Msg("left room")
}

// Disconnect tears the session down entirely: registry pruned, remaining
// members notified, connection context canceled. Safe to call more than
// once for the same connection; every call after the first is a no-op, so
// an explicit leave followed by a transport drop never double-notifies.
func (r *Relay) Disconnect(id domain.ConnID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	var (
		peers []*session
		msg   presenceMsg
	)
	if s.room != "" {
		peers, msg = r.departLocked(s)
	}
	r.mu.Unlock()

	if len(peers) > 0 {
		r.fanOut(peers, msg)
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Msg("connection gone")
}

// ForwardOffer relays an SDP offer point-to-point, tagged with the sender's
// identity so the receiver knows who is calling.
func (r *Relay) ForwardOffer(from, to domain.ConnID, offer webrtc.SessionDescription) {
	r.mu.RLock()
	src, okSrc := r.sessions[from]
	dst, okDst := r.sessions[to]
	var part domain.Participant
	if okSrc {
		part = src.part
	}
	r.mu.RUnlock()
	if !okSrc {
		return
	}
	if !okDst {
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("to", string(to)).Msg("offer target gone, dropped")
		return
	}
	r.sendTo(dst.conn, offerForwardMsg{Type: MsgOffer, Offer: offer, From: from, UserID: part.UserID, UserName: part.UserName})
}

func (r *Relay) ForwardAnswer(from, to domain.ConnID, answer webrtc.SessionDescription) {
	r.mu.RLock()
	dst, ok := r.sessions[to]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("to", string(to)).Msg("answer target gone, dropped")
		return
	}
	r.sendTo(dst.conn, answerForwardMsg{Type: MsgAnswer, Answer: answer, From: from})
}

func (r *Relay) ForwardCandidate(from, to domain.ConnID, cand webrtc.ICECandidateInit) {
	r.mu.RLock()
	dst, ok := r.sessions[to]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("to", string(to)).Msg("candidate target gone, dropped")
		return
	}
	r.sendTo(dst.conn, candidateForwardMsg{Type: MsgICECandidate, Candidate: cand, From: from})
}

// SetMuted announces a mute state change to everyone else in the room.
func (r *Relay) SetMuted(id domain.ConnID, muted bool) {
	peers, part, ok := r.roomPeers(id)
	if !ok {
		return
	}
	kind := MsgUserMuted
	if !muted {
		kind = MsgUserUnmuted
	}
	r.fanOut(peers, presenceMsg{Type: kind, UserID: part.UserID, SocketID: id})
}

// Speaking announces a voice-activity change to everyone else in the room.
func (r *Relay) Speaking(id domain.ConnID, isSpeaking bool) {
	peers, part, ok := r.roomPeers(id)
	if !ok {
		return
	}
	r.fanOut(peers, speakingMsg{Type: MsgUserSpeaking, UserID: part.UserID, SocketID: id, IsSpeaking: isSpeaking})
}

// Rooms lists every live room with its member count.
func (r *Relay) Rooms() []core.RoomInfo {
	return r.rooms.Snapshot()
}

// RoomParticipants is the read-only room view for the HTTP API.
func (r *Relay) RoomParticipants(roomID domain.RoomID) []PeerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.rooms.ListMembers(roomID, "")
	out := make([]PeerInfo, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			out = append(out, PeerInfo{UserID: s.part.UserID, UserName: s.part.UserName, SocketID: s.id})
		}
	}
	return out
}

// roomPeers snapshots the sender's roommates and identity in one lock hold.
func (r *Relay) roomPeers(id domain.ConnID) ([]*session, domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.room == "" {
		return nil, domain.Participant{}, false
	}
	return r.peersLocked(s.room, id), s.part, true
}

// departLocked prunes the registry and clears the room affiliation, returning
// the members to notify and the departure message. Caller holds r.mu.
func (r *Relay) departLocked(s *session) ([]*session, presenceMsg) {
	roomID := s.room
	r.rooms.RemoveMember(roomID, s.id)
	peers := r.peersLocked(roomID, s.id)
	s.room = ""
	return peers, presenceMsg{Type: MsgUserLeft, UserID: s.part.UserID, SocketID: s.id}
}

// peersLocked resolves registry membership to live sessions. Caller holds r.mu.
func (r *Relay) peersLocked(roomID domain.RoomID, except domain.ConnID) []*session {
	ids := r.rooms.ListMembers(roomID, except)
	out := make([]*session, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *Relay) sendTo(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal outbound")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Msg("frame dropped")
	}
}

// fanOut snapshots were taken under the lock; the actual writes happen
// outside it so a slow receiver never blocks membership changes.
func (r *Relay) fanOut(peers []*session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal broadcast")
		return
	}
	sent := 0
	for _, s := range peers {
		if err := s.conn.TrySend(core.Frame(b)); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(s.id)).Msg("broadcast frame dropped")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.relay").Int("sent_to", sent).Int("dropped", len(peers)-sent).Msg("broadcast result")
}
