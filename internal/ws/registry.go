package ws

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Member is the send side of a connected session as seen by the registry.
// Sessions implement it; tests substitute fakes.
type Member interface {
	// Deliver queues a payload for the member without blocking. A non-nil
	// error marks the member as dead for broadcast purposes.
	Deliver(payload []byte) error
	// Kick closes the member's connection with the given close code.
	Kick(code int, reason string)
}

// room is one broadcast group. Membership mutations and snapshotting hold
// the room lock; socket and database I/O never do.
type room struct {
	mu      sync.Mutex
	members map[Member]struct{}
}

// Registry is the in-memory map of room keys to member sets. It is shared by
// every connection goroutine. Membership mutations (Join, Leave) hold the
// registry lock for their whole body so that room creation, the member
// insert, and empty-room eviction are mutually exclusive; per-room locks
// guard membership snapshots, so broadcasts in different rooms proceed in
// parallel and never block a mutation while delivering.
//
// Rooms are created lazily on first Join and evicted when the last member
// leaves — no empty rooms are retained.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds m to the room identified by key, creating the room if absent.
// Joining a room twice is a no-op.
//
// The member insert happens without releasing the registry lock: Leave evicts
// empty rooms under the same lock, so dropping it between the table lookup
// and the insert could strand the member in an evicted room object that no
// broadcast will ever find.
func (r *Registry) Join(key string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{members: make(map[Member]struct{})}
		r.rooms[key] = rm
	}
	rm.mu.Lock()
	rm.members[m] = struct{}{}
	rm.mu.Unlock()
}

// Leave removes m from the room identified by key. When the member set
// becomes empty the room entry is evicted. Leaving a room the member never
// joined is a no-op.
func (r *Registry) Leave(key string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return
	}
	rm.mu.Lock()
	delete(rm.members, m)
	empty := len(rm.members) == 0
	rm.mu.Unlock()
	if empty {
		delete(r.rooms, key)
	}
}

// Broadcast delivers payload to every current member of the room. Membership
// is snapshotted under the room lock; delivery happens outside it, so a slow
// socket cannot stall joins or other broadcasts.
//
// A member whose delivery fails is logged, removed from the room, and kicked
// — it never fails the broadcast for the remaining members. When except is
// non-nil that member is skipped. Returns the number of successful
// deliveries.
func (r *Registry) Broadcast(key string, payload []byte, except Member) int {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	snapshot := make([]Member, 0, len(rm.members))
	for m := range rm.members {
		if m == except {
			continue
		}
		snapshot = append(snapshot, m)
	}
	rm.mu.Unlock()

	delivered := 0
	for _, m := range snapshot {
		if err := m.Deliver(payload); err != nil {
			log.Warn().
				Str("component", "ws.registry").
				Str("room", key).
				Err(err).
				Msg("dropping member after failed delivery")
			r.Leave(key, m)
			m.Kick(CloseDeliveryFailure, "delivery failure")
			continue
		}
		delivered++
	}
	return delivered
}

// MemberCount reports the current size of a room's member set (0 when the
// room does not exist).
func (r *Registry) MemberCount(key string) int {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

// RoomCount reports the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CloseAll kicks every member of every room with the given close code and
// clears the registry. Used on server shutdown to drain gracefully: every
// session receives a close frame rather than being dropped silently.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*room)
	r.mu.Unlock()

	seen := make(map[Member]struct{})
	for _, rm := range rooms {
		rm.mu.Lock()
		for m := range rm.members {
			seen[m] = struct{}{}
		}
		rm.members = make(map[Member]struct{})
		rm.mu.Unlock()
	}
	for m := range seen {
		m.Kick(code, reason)
	}
}
