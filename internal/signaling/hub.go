package signaling

import (
	"github.com/rs/zerolog"
)

// Conn is one client's signaling channel as the hub sees it: an identity
// plus an ordered, non-blocking send queue. The websocket Client implements
// it; tests substitute an in-memory fake so the relay logic is exercised
// independent of any transport.
type Conn interface {
	ID() string
	// Enqueue queues an outbound message, reporting false when the peer's
	// queue is full or gone. Messages enqueued from the hub goroutine are
	// delivered in order.
	Enqueue(msg *Message) bool
	Close() error
}

// inbound pairs a message with the connection it arrived on.
type inbound struct {
	conn Conn
	msg  *Message
}

// Hub is the signaling relay. It manages room membership and forwards
// offer/answer/candidate messages between the occupants of a room.
//
// All state (the registry and the connection table) is owned by the single
// goroutine running Run; clients talk to it through channels, so per-sender
// message order is preserved end to end.
type Hub struct {
	registry *Registry
	conns    map[string]Conn

	register   chan Conn
	unregister chan Conn
	inbound    chan inbound
	quit       chan struct{}

	log zerolog.Logger
}

// NewHub creates a hub with an empty registry.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		conns:      make(map[string]Conn),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		inbound:    make(chan inbound, 64),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// Register hands a new connection to the hub loop. After Stop it returns
// without registering, so late pumps never block on a dead loop.
func (h *Hub) Register(c Conn) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

// Unregister reports a dropped connection. The hub performs the implicit
// leave and notifies the remaining room members.
func (h *Hub) Unregister(c Conn) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Dispatch hands an incoming message to the hub loop.
func (h *Hub) Dispatch(c Conn, msg *Message) {
	select {
	case h.inbound <- inbound{conn: c, msg: msg}:
	case <-h.quit:
	}
}

// Stop shuts the hub down. The loop closes every connection and clears the
// registry before returning.
func (h *Hub) Stop() {
	close(h.quit)
}

// Run is the hub's event loop. Call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for id, c := range h.conns {
				c.Close()
				delete(h.conns, id)
			}
			h.registry.Clear()
			h.log.Info().Msg("signaling hub stopped")
			return

		case c := <-h.register:
			h.conns[c.ID()] = c
			// Tell the client its own socket id; the browser client used to
			// read it off the socket.io handle.
			c.Enqueue(&Message{Event: EventConnected, SocketID: c.ID()})
			h.log.Info().Str("socket", c.ID()).Msg("client connected")

		case c := <-h.unregister:
			if _, ok := h.conns[c.ID()]; !ok {
				continue
			}
			delete(h.conns, c.ID())
			if roomID, ok := h.registry.Drop(c.ID()); ok {
				h.notifyLeft(roomID, c.ID())
			}
			c.Close()
			h.log.Info().Str("socket", c.ID()).Msg("client disconnected")

		case in := <-h.inbound:
			h.handle(in.conn, in.msg)
		}
	}
}

// handle dispatches one message from a connection. Bad messages (unknown
// room, sender not a member) are dropped silently: the relay is best-effort
// and never fails because of a stray client.
func (h *Hub) handle(c Conn, msg *Message) {
	switch canonicalEvent(msg.Event) {
	case EventJoin:
		h.handleJoin(c, msg)

	case EventOffer:
		h.forwardDescription(c, msg, true)

	case EventAnswer:
		h.forwardDescription(c, msg, false)

	case EventCandidate:
		roomID, ok := h.senderRoom(c, msg)
		if !ok {
			return
		}
		// Candidates are not directionally targeted in the two-party case.
		h.broadcast(roomID, c.ID(), &Message{
			Event:     EventCandidate,
			RoomID:    roomID,
			Candidate: msg.Candidate,
		})

	case EventLeave:
		roomID, ok := h.senderRoom(c, msg)
		if !ok {
			return
		}
		h.registry.Leave(roomID, c.ID())
		h.notifyLeft(roomID, c.ID())

	default:
		h.log.Debug().Str("event", msg.Event).Str("socket", c.ID()).Msg("unknown event dropped")
	}
}

func (h *Hub) handleJoin(c Conn, msg *Message) {
	if msg.RoomID == "" {
		return
	}
	prev, hadRoom := h.registry.RoomOf(c.ID())
	h.registry.Join(msg.RoomID, c.ID())
	// Switching rooms is an implicit leave: the abandoned room's occupants
	// get the same user-left an explicit leave or a disconnect would send.
	if hadRoom && prev != msg.RoomID {
		h.notifyLeft(prev, c.ID())
	}
	h.log.Info().Str("socket", c.ID()).Str("room", msg.RoomID).Msg("joined room")

	// Let the existing occupants know a new participant is ready to
	// negotiate; the first occupant reacts by sending an offer.
	h.broadcast(msg.RoomID, c.ID(), &Message{
		Event:    EventUserJoined,
		RoomID:   msg.RoomID,
		SocketID: c.ID(),
		UserID:   msg.UserID,
	})
}

// forwardDescription relays an offer or answer: directly to the explicit
// target when one is named, otherwise to every other member of the sender's
// room. Offers are augmented with the sender's socket id so the receiver
// knows whom to answer.
func (h *Hub) forwardDescription(c Conn, msg *Message, isOffer bool) {
	roomID, ok := h.senderRoom(c, msg)
	if !ok {
		return
	}
	out := &Message{
		RoomID: roomID,
		SDP:    msg.SDP,
	}
	if isOffer {
		out.Event = EventOffer
		out.FromSocket = c.ID()
	} else {
		out.Event = EventAnswer
	}
	if msg.TargetSocket != "" {
		// The target must share the sender's room; SDP never crosses rooms.
		if room, ok := h.registry.RoomOf(msg.TargetSocket); !ok || room != roomID {
			h.log.Debug().
				Str("socket", c.ID()).
				Str("target", msg.TargetSocket).
				Msg("description for out-of-room target dropped")
			return
		}
		h.sendTo(msg.TargetSocket, out)
		return
	}
	h.broadcast(roomID, c.ID(), out)
}

// senderRoom resolves the room a message applies to. The named room must be
// the one the sender actually occupies; a message naming a foreign room, or
// from a connection in no room at all, is dropped.
func (h *Hub) senderRoom(c Conn, msg *Message) (string, bool) {
	current, ok := h.registry.RoomOf(c.ID())
	if !ok {
		return "", false
	}
	if msg.RoomID != "" && msg.RoomID != current {
		h.log.Debug().
			Str("socket", c.ID()).
			Str("claimed", msg.RoomID).
			Str("actual", current).
			Msg("message for foreign room dropped")
		return "", false
	}
	return current, true
}

func (h *Hub) notifyLeft(roomID, socketID string) {
	h.broadcast(roomID, socketID, &Message{
		Event:    EventUserLeft,
		RoomID:   roomID,
		SocketID: socketID,
	})
}

// broadcast delivers a message to every member of the room except the
// excluded socket.
func (h *Hub) broadcast(roomID, excluding string, msg *Message) {
	for _, id := range h.registry.MembersOf(roomID, excluding) {
		h.sendTo(id, msg)
	}
}

func (h *Hub) sendTo(socketID string, msg *Message) {
	c, ok := h.conns[socketID]
	if !ok {
		return
	}
	if !c.Enqueue(msg) {
		h.log.Warn().Str("socket", socketID).Str("event", msg.Event).Msg("send queue full, message dropped")
	}
}
