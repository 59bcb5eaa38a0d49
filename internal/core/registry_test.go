package core

import (
	"sync"
	"testing"

	"github.com/meetowl/signaling/internal/domain"
)

func TestRegistry_AddRemove(t *testing.T) {
	tests := []struct {
		name      string
		ops       func(r *Registry)
		room      domain.RoomID
		wantCount int
		wantExist bool
	}{
		{
			name: "single join",
			ops: func(r *Registry) {
				r.AddMember("r1", "a")
			},
			room:      "r1",
			wantCount: 1,
			wantExist: true,
		},
		{
			name: "join is idempotent",
			ops: func(r *Registry) {
				r.AddMember("r1", "a")
				r.AddMember("r1", "a")
			},
			room:      "r1",
			wantCount: 1,
			wantExist: true,
		},
		{
			name: "join then leave removes the room",
			ops: func(r *Registry) {
				r.AddMember("r1", "a")
				r.RemoveMember("r1", "a")
			},
			room:      "r1",
			wantCount: 0,
			wantExist: false,
		},
		{
			name: "leave keeps remaining members",
			ops: func(r *Registry) {
				r.AddMember("r1", "a")
				r.AddMember("r1", "b")
				r.RemoveMember("r1", "b")
			},
			room:      "r1",
			wantCount: 1,
			wantExist: true,
		},
		{
			name: "remove non-member is a no-op",
			ops: func(r *Registry) {
				r.AddMember("r1", "a")
				r.RemoveMember("r1", "b")
			},
			room:      "r1",
			wantCount: 1,
			wantExist: true,
		},
		{
			name: "remove from unknown room is a no-op",
			ops: func(r *Registry) {
				r.RemoveMember("nope", "a")
			},
			room:      "nope",
			wantCount: 0,
			wantExist: false,
		},
		{
			name: "rooms are independent",
			ops: func(r *Registry) {
				r.AddMember("r1", "a")
				r.AddMember("r2", "b")
				r.RemoveMember("r2", "b")
			},
			room:      "r1",
			wantCount: 1,
			wantExist: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.ops(r)

			if got := r.MemberCount(tt.room); got != tt.wantCount {
				t.Errorf("MemberCount(%q) = %d, want %d", tt.room, got, tt.wantCount)
			}
			if got := r.Contains(tt.room); got != tt.wantExist {
				t.Errorf("Contains(%q) = %v, want %v", tt.room, got, tt.wantExist)
			}
		})
	}
}

func TestRegistry_ListMembersExcludesRequester(t *testing.T) {
	r := NewRegistry()
	r.AddMember("r1", "a")
	r.AddMember("r1", "b")
	r.AddMember("r1", "c")

	got := r.ListMembers("r1", "b")
	if len(got) != 2 {
		t.Fatalf("ListMembers() returned %d members, want 2", len(got))
	}
	for _, id := range got {
		if id == "b" {
			t.Error("ListMembers() included the requester")
		}
	}
}

func TestRegistry_ListMembersUnknownRoom(t *testing.T) {
	r := NewRegistry()
	if got := r.ListMembers("ghost", "a"); len(got) != 0 {
		t.Errorf("ListMembers() on unknown room returned %d members, want 0", len(got))
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.AddMember("r1", "a")
	r.AddMember("r1", "b")
	r.AddMember("r2", "c")

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() returned %d rooms, want 2", len(snap))
	}
	counts := make(map[domain.RoomID]int, len(snap))
	for _, info := range snap {
		counts[info.ID] = info.MemberCount
	}
	if counts["r1"] != 2 {
		t.Errorf("room r1 member count = %d, want 2", counts["r1"])
	}
	if counts["r2"] != 1 {
		t.Errorf("room r2 member count = %d, want 1", counts["r2"])
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	ids := []domain.ConnID{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.ConnID) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.AddMember("r1", id)
				r.ListMembers("r1", id)
				r.MemberCount("r1")
				r.RemoveMember("r1", id)
			}
		}(id)
	}
	wg.Wait()

	if r.Contains("r1") {
		t.Errorf("room survived after every member left, count = %d", r.MemberCount("r1"))
	}
}
