package signaling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeConn is an in-memory Conn for exercising the relay without a
// websocket.
type fakeConn struct {
	id     string
	recv   chan *Message
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, recv: make(chan *Message, 32)}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Enqueue(msg *Message) bool {
	select {
	case c.recv <- msg:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// drain discards everything queued so far.
func (c *fakeConn) drain() {
	for {
		select {
		case <-c.recv:
		default:
			return
		}
	}
}

// next pops the next queued message, or nil if there is none.
func (c *fakeConn) next() *Message {
	select {
	case msg := <-c.recv:
		return msg
	default:
		return nil
	}
}

// newTestHub builds a hub whose loop is driven synchronously by the test:
// conns are installed directly and messages go through handle, so every
// assertion runs against a settled state.
func newTestHub(conns ...*fakeConn) *Hub {
	h := NewHub(zerolog.Nop())
	for _, c := range conns {
		h.conns[c.id] = c
	}
	return h
}

func TestHub_JoinNotifiesExistingMembers(t *testing.T) {
	a, b := newFakeConn("A"), newFakeConn("B")
	h := newTestHub(a, b)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1", UserID: "mentor-7"})
	if msg := a.next(); msg != nil {
		t.Fatalf("solo joiner received %+v, want nothing", msg)
	}

	h.handle(b, &Message{Event: EventCreateOrJoin, RoomID: "R1", UserID: "learner-9"})

	msg := a.next()
	if msg == nil || msg.Event != EventUserJoined {
		t.Fatalf("first occupant got %+v, want user-joined", msg)
	}
	if msg.SocketID != "B" || msg.UserID != "learner-9" {
		t.Fatalf("user-joined payload = %+v", msg)
	}
	if b.next() != nil {
		t.Fatalf("joiner notified about itself")
	}
}

func TestHub_OfferAnswerScenario(t *testing.T) {
	// Two connections A and B join R1; A (first) receives user-joined for
	// B and offers; B answers; the relay carries both directly.
	a, b := newFakeConn("A"), newFakeConn("B")
	h := newTestHub(a, b)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	a.drain()

	offerSDP := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.handle(a, &Message{Event: EventOffer, RoomID: "R1", TargetSocket: "B", SDP: offerSDP})

	got := b.next()
	if got == nil || got.Event != EventOffer {
		t.Fatalf("B got %+v, want offer", got)
	}
	if got.FromSocket != "A" {
		t.Fatalf("forwarded offer FromSocket = %q, want A", got.FromSocket)
	}
	if string(got.SDP) != string(offerSDP) {
		t.Fatalf("offer SDP not forwarded verbatim: %s", got.SDP)
	}

	answerSDP := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	h.handle(b, &Message{Event: EventAnswer, RoomID: "R1", TargetSocket: got.FromSocket, SDP: answerSDP})

	got = a.next()
	if got == nil || got.Event != EventAnswer {
		t.Fatalf("A got %+v, want answer", got)
	}
	if string(got.SDP) != string(answerSDP) {
		t.Fatalf("answer SDP not forwarded verbatim: %s", got.SDP)
	}
}

func TestHub_OfferBroadcastFallback(t *testing.T) {
	// Without an explicit target the offer goes to all other members.
	a, b, c := newFakeConn("A"), newFakeConn("B"), newFakeConn("C")
	h := newTestHub(a, b, c)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(c, &Message{Event: EventJoin, RoomID: "R1"})
	a.drain()
	b.drain()

	h.handle(a, &Message{Event: EventOffer, RoomID: "R1", SDP: json.RawMessage(`{}`)})

	for _, peer := range []*fakeConn{b, c} {
		msg := peer.next()
		if msg == nil || msg.Event != EventOffer || msg.FromSocket != "A" {
			t.Fatalf("%s got %+v, want broadcast offer from A", peer.id, msg)
		}
	}
	if a.next() != nil {
		t.Fatalf("sender received its own offer")
	}
}

func TestHub_CandidateStaysInRoom(t *testing.T) {
	a, b := newFakeConn("A"), newFakeConn("B")
	outsider := newFakeConn("X")
	h := newTestHub(a, b, outsider)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(outsider, &Message{Event: EventJoin, RoomID: "R2"})
	a.drain()

	cand := json.RawMessage(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host"}`)
	h.handle(a, &Message{Event: EventICECandidate, RoomID: "R1", Candidate: cand})

	msg := b.next()
	if msg == nil || msg.Event != EventCandidate || string(msg.Candidate) != string(cand) {
		t.Fatalf("B got %+v, want relayed candidate", msg)
	}
	if outsider.next() != nil {
		t.Fatalf("candidate leaked across rooms")
	}
	if a.next() != nil {
		t.Fatalf("candidate echoed to sender")
	}
}

func TestHub_ForeignRoomMessagesDropped(t *testing.T) {
	a, b, x := newFakeConn("A"), newFakeConn("B"), newFakeConn("X")
	h := newTestHub(a, b, x)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(x, &Message{Event: EventJoin, RoomID: "R2"})
	a.drain()

	// X names R1 but is a member of R2: dropped, no crash.
	h.handle(x, &Message{Event: EventCandidate, RoomID: "R1", Candidate: json.RawMessage(`{}`)})
	// A connection in no room at all is also dropped.
	loner := newFakeConn("L")
	h.conns["L"] = loner
	h.handle(loner, &Message{Event: EventOffer, RoomID: "R1", SDP: json.RawMessage(`{}`)})

	if a.next() != nil || b.next() != nil {
		t.Fatalf("foreign-room message was relayed")
	}
}

func TestHub_RoomSwitchNotifiesAbandonedRoom(t *testing.T) {
	// Joining another room is an implicit leave of the current one; the
	// peer left behind must hear about it like any other departure.
	a, b := newFakeConn("A"), newFakeConn("B")
	h := newTestHub(a, b)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	a.drain()

	h.handle(b, &Message{Event: EventJoin, RoomID: "R2"})

	msg := a.next()
	if msg == nil || msg.Event != EventUserLeft || msg.SocketID != "B" {
		t.Fatalf("A got %+v after B switched rooms, want user-left for B", msg)
	}
	if got := h.registry.Count("R1"); got != 1 {
		t.Fatalf("R1 count after switch = %d, want 1", got)
	}
	if roomID, _ := h.registry.RoomOf("B"); roomID != "R2" {
		t.Fatalf("B is in %q, want R2", roomID)
	}

	// Re-joining the room it already occupies must not fake a departure.
	h.handle(b, &Message{Event: EventJoin, RoomID: "R2"})
	if msg := a.next(); msg != nil {
		t.Fatalf("A got %+v after a same-room re-join, want nothing", msg)
	}
}

func TestHub_TargetedDescriptionCannotCrossRooms(t *testing.T) {
	a, b := newFakeConn("A"), newFakeConn("B")
	outsider := newFakeConn("X")
	h := newTestHub(a, b, outsider)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(outsider, &Message{Event: EventJoin, RoomID: "R2"})
	a.drain()

	// A names a target outside its room: dropped, not delivered globally.
	h.handle(a, &Message{Event: EventOffer, RoomID: "R1", TargetSocket: "X", SDP: json.RawMessage(`{}`)})
	if msg := outsider.next(); msg != nil {
		t.Fatalf("out-of-room target received %+v", msg)
	}
	// An unknown target is equally a drop, not a broadcast.
	h.handle(a, &Message{Event: EventAnswer, RoomID: "R1", TargetSocket: "ghost", SDP: json.RawMessage(`{}`)})
	if msg := b.next(); msg != nil {
		t.Fatalf("unknown target fell back to broadcast: %+v", msg)
	}

	// In-room targeting still works.
	h.handle(a, &Message{Event: EventOffer, RoomID: "R1", TargetSocket: "B", SDP: json.RawMessage(`{}`)})
	if msg := b.next(); msg == nil || msg.Event != EventOffer {
		t.Fatalf("in-room target got %+v, want offer", msg)
	}
}

func TestHub_StoppedHubDoesNotBlockCallers(t *testing.T) {
	// Nothing drains the channels once the loop is gone; Register,
	// Unregister and Dispatch must still return.
	h := NewHub(zerolog.Nop())
	h.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c := newFakeConn("A")
		h.Register(c)
		h.Dispatch(c, &Message{Event: EventJoin, RoomID: "R1"})
		h.Unregister(c)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub call blocked after Stop")
	}
}

func TestHub_LeaveNotifiesRemaining(t *testing.T) {
	a, b := newFakeConn("A"), newFakeConn("B")
	h := newTestHub(a, b)

	h.handle(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.handle(b, &Message{Event: EventJoin, RoomID: "R1"})
	a.drain()

	h.handle(b, &Message{Event: EventLeaveRoom, RoomID: "R1"})

	msg := a.next()
	if msg == nil || msg.Event != EventUserLeft || msg.SocketID != "B" {
		t.Fatalf("A got %+v, want user-left for B", msg)
	}
	if got := h.registry.Count("R1"); got != 1 {
		t.Fatalf("room count after leave = %d, want 1", got)
	}
}

func TestHub_RunLifecycle(t *testing.T) {
	// Full loop: register, join, disconnect, stop. The solo occupant's
	// disconnect must leave no stale room state behind.
	h := NewHub(zerolog.Nop())
	go h.Run()
	defer h.Stop()

	a := newFakeConn("A")
	h.Register(a)

	msg := waitMsg(t, a)
	if msg.Event != EventConnected || msg.SocketID != "A" {
		t.Fatalf("welcome = %+v, want connected{A}", msg)
	}

	h.Dispatch(a, &Message{Event: EventJoin, RoomID: "R1"})
	h.Unregister(a)

	// Re-register a observer and join the same room: it must be alone.
	b := newFakeConn("B")
	h.Register(b)
	waitMsg(t, b) // welcome
	h.Dispatch(b, &Message{Event: EventJoin, RoomID: "R1"})

	select {
	case msg := <-b.recv:
		t.Fatalf("B received %+v in a room that should be empty", msg)
	case <-time.After(50 * time.Millisecond):
	}
	if !a.closed {
		t.Fatalf("disconnected conn was not closed")
	}
}

func waitMsg(t *testing.T, c *fakeConn) *Message {
	t.Helper()
	select {
	case msg := <-c.recv:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message on %s", c.id)
		return nil
	}
}
