package signalclient

import (
	"encoding/json"

	"github.com/prashanna2005/SkillBridge/internal/signaling"
)

// UserJoined announces a new room occupant.
type UserJoined struct {
	SocketID string
	UserID   string
}

// Description is a forwarded SDP offer or answer.
type Description struct {
	SDP        json.RawMessage
	FromSocket string
}

// Events routes incoming signaling messages to typed channels. The
// negotiation driver selects over these instead of parsing the wire
// envelope itself.
type Events struct {
	source interface {
		Incoming() <-chan *signaling.Message
	}

	Connected  chan string
	UserJoined chan UserJoined
	Offer      chan Description
	Answer     chan Description
	Candidate  chan json.RawMessage
	UserLeft   chan string
}

// NewEvents creates the event router for a connected client.
func NewEvents(c *Client) *Events {
	return &Events{
		source:     c,
		Connected:  make(chan string, 1),
		UserJoined: make(chan UserJoined, 4),
		Offer:      make(chan Description, 4),
		Answer:     make(chan Description, 4),
		Candidate:  make(chan json.RawMessage, 32),
		UserLeft:   make(chan string, 4),
	}
}

// Start consumes the client's incoming channel until it closes. Run it in
// its own goroutine.
func (e *Events) Start() {
	for msg := range e.source.Incoming() {
		switch msg.Event {
		case signaling.EventConnected:
			select {
			case e.Connected <- msg.SocketID:
			default:
			}

		case signaling.EventUserJoined:
			e.UserJoined <- UserJoined{SocketID: msg.SocketID, UserID: msg.UserID}

		case signaling.EventOffer:
			e.Offer <- Description{SDP: msg.SDP, FromSocket: msg.FromSocket}

		case signaling.EventAnswer:
			e.Answer <- Description{SDP: msg.SDP}

		case signaling.EventCandidate, signaling.EventICECandidate:
			e.Candidate <- msg.Candidate

		case signaling.EventUserLeft:
			e.UserLeft <- msg.SocketID

		default:
			// Unknown events are ignored; the schema may grow.
		}
	}
}
