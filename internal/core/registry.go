package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/domain"
)

// Registry is the sole owner of room-membership truth: a threadsafe
// in-memory table of room id to the set of member connection ids.
// A room exists here if and only if it has at least one member; empty
// rooms are pruned on removal so existence never needs its own flag.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]map[domain.ConnID]struct{})}
}

// AddMember inserts id into the member set of roomID, creating the room
// entry if absent. Re-adding a present member is a no-op.
func (r *Registry) AddMember(roomID domain.RoomID, id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[domain.ConnID]struct{})
		r.rooms[roomID] = members
	}
	members[id] = struct{}{}
	log.Debug().Str("module", "core.registry").Str("room", string(roomID)).Str("conn", string(id)).Int("members", len(members)).Msg("member added")
}

// RemoveMember removes id from roomID and deletes the room entry when the
// set drains. Removing a non-member or from an unknown room is a no-op.
func (r *Registry) RemoveMember(roomID domain.RoomID, id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
	log.Debug().Str("module", "core.registry").Str("room", string(roomID)).Str("conn", string(id)).Int("members", len(members)).Msg("member removed")
}

// ListMembers answers "who else is here": the current member set of roomID
// excluding the requesting connection.
func (r *Registry) ListMembers(roomID domain.RoomID, except domain.ConnID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]domain.ConnID, 0, len(members))
	for id := range members {
		if id == except {
			continue
		}
		out = append(out, id)
	}
	return out
}

// MemberCount reports set size. Observability only.
func (r *Registry) MemberCount(roomID domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Contains reports whether roomID currently has any members.
func (r *Registry) Contains(roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Snapshot lists every live room with its member count.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(members)})
	}
	return out
}
