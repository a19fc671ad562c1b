package signaling

// Registry tracks which socket IDs belong to which room. It is the only
// shared mutable state in the relay and is owned by the hub's event loop
// goroutine: all mutation happens from that single goroutine, so the
// registry itself carries no lock.
//
// Signaling is best-effort: leaving a room you are not in, or listing
// members of a room that does not exist, is a no-op rather than an error.
type Registry struct {
	// rooms maps room IDs to the set of member socket IDs.
	rooms map[string]map[string]struct{}

	// roomOf maps a socket ID to the room it currently occupies.
	// A connection is a member of at most one room at a time.
	roomOf map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[string]struct{}),
		roomOf: make(map[string]string),
	}
}

// Join adds the socket to the room's member set, creating the room if
// absent. A socket joining a second room implicitly leaves its first one.
// Joining a room it is already in is a no-op (no double-count). There is no
// capacity limit: two-party exclusivity is product policy, not enforced here.
func (r *Registry) Join(roomID, socketID string) {
	if roomID == "" || socketID == "" {
		return
	}
	if current, ok := r.roomOf[socketID]; ok {
		if current == roomID {
			return
		}
		r.Leave(current, socketID)
	}
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[socketID] = struct{}{}
	r.roomOf[socketID] = roomID
}

// Leave removes the socket from the room. Empty rooms are discarded so no
// orphaned state is retained. Unknown rooms or non-members are a no-op.
func (r *Registry) Leave(roomID, socketID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := members[socketID]; !ok {
		return
	}
	delete(members, socketID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
	if r.roomOf[socketID] == roomID {
		delete(r.roomOf, socketID)
	}
}

// MembersOf returns the other sockets in the room, used for relay
// targeting. The excluding socket (normally the sender) is omitted.
func (r *Registry) MembersOf(roomID, excluding string) []string {
	members, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	for id := range members {
		if id != excluding {
			out = append(out, id)
		}
	}
	return out
}

// RoomOf returns the room the socket currently occupies, if any.
func (r *Registry) RoomOf(socketID string) (string, bool) {
	roomID, ok := r.roomOf[socketID]
	return roomID, ok
}

// Drop performs the implicit leave for a disconnected socket and reports
// which room it occupied so the hub can notify the remaining members.
func (r *Registry) Drop(socketID string) (roomID string, ok bool) {
	roomID, ok = r.roomOf[socketID]
	if ok {
		r.Leave(roomID, socketID)
	}
	return roomID, ok
}

// Count returns the number of members in the room; zero for unknown rooms.
func (r *Registry) Count(roomID string) int {
	return len(r.rooms[roomID])
}

// Clear empties the registry. Called on relay shutdown.
func (r *Registry) Clear() {
	r.rooms = make(map[string]map[string]struct{})
	r.roomOf = make(map[string]string)
}
