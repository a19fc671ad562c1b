package signaling

import "encoding/json"

// Event names for all C2S (Client to Server) and S2C (Server to Client)
// signaling messages. The browser client historically used socket.io event
// names, so the relay accepts the aliases it emitted.
const (
	EventJoin         = "join"
	EventCreateOrJoin = "create-or-join" // alias of join
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventCandidate    = "candidate"
	EventICECandidate = "ice-candidate" // alias of candidate
	EventLeave        = "leave"
	EventLeaveRoom    = "leave-room" // alias of leave

	EventConnected  = "connected"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
)

// Message is the JSON envelope for every signaling message.
//
// SDP and Candidate are kept as raw JSON: the relay never inspects them, it
// only forwards them between the two peers in a room. SDP carries a
// {type, sdp} session description, Candidate an ICE candidate descriptor.
type Message struct {
	Event        string          `json:"event"`
	RoomID       string          `json:"roomId,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	SocketID     string          `json:"socketId,omitempty"`
	TargetSocket string          `json:"targetSocket,omitempty"`
	FromSocket   string          `json:"fromSocket,omitempty"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// canonicalEvent collapses the wire aliases into one name per operation.
func canonicalEvent(event string) string {
	switch event {
	case EventCreateOrJoin:
		return EventJoin
	case EventICECandidate:
		return EventCandidate
	case EventLeaveRoom:
		return EventLeave
	default:
		return event
	}
}
