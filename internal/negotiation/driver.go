// Package negotiation drives the WebRTC handshake for a call session over
// the signaling relay: offer/answer exchange, ICE candidate streaming, and
// the screen-share track swap.
package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/prashanna2005/SkillBridge/internal/call"
	"github.com/prashanna2005/SkillBridge/internal/media"
	"github.com/prashanna2005/SkillBridge/internal/signalclient"
	"github.com/prashanna2005/SkillBridge/internal/signaling"
)

// Signaler is the outbound half of the signaling channel.
type Signaler interface {
	Send(msg *signaling.Message)
	Close()
}

// Config assembles a Driver.
type Config struct {
	RoomID   string
	UserID   string
	Peer     PeerConnection
	Signaler Signaler
	Events   *signalclient.Events
	Devices  media.Devices
	Logger   zerolog.Logger
}

// Driver implements call.Strategy on a real peer connection. The offerer
// role follows membership order: whoever receives user-joined (the earlier
// occupant) creates the offer; the newcomer answers.
type Driver struct {
	log     zerolog.Logger
	pc      PeerConnection
	sig     Signaler
	events  *signalclient.Events
	devices media.Devices
	roomID  string
	userID  string

	mu      sync.Mutex
	selfID  string
	offered bool
	// pending holds candidates that arrived before the remote description;
	// they are flushed as soon as it is set.
	pending     []webrtc.ICECandidateInit
	videoSender TrackSender
	cameraTrack *media.Track
	screenTrack *media.Track

	closeOnce sync.Once
	done      chan struct{}
}

var _ call.Strategy = (*Driver)(nil)

// NewDriver creates a driver; Connect wires it to a session.
func NewDriver(cfg Config) *Driver {
	return &Driver{
		log:     cfg.Logger.With().Str("room", cfg.RoomID).Logger(),
		pc:      cfg.Peer,
		sig:     cfg.Signaler,
		events:  cfg.Events,
		devices: cfg.Devices,
		roomID:  cfg.RoomID,
		userID:  cfg.UserID,
		done:    make(chan struct{}),
	}
}

// Connect attaches the session's local tracks, installs the peer-connection
// callbacks, and starts the event loop that reacts to relay traffic.
func (d *Driver) Connect(ctx context.Context, sess *call.Session) error {
	for _, t := range sess.Local().Tracks() {
		sender, err := d.pc.AddTrack(t.Local())
		if err != nil {
			return err
		}
		if t.Kind() == webrtc.RTPCodecTypeVideo {
			d.mu.Lock()
			d.videoSender = sender
			d.cameraTrack = t
			d.mu.Unlock()
		}
	}

	// Stream locally gathered candidates to the relay as they appear.
	d.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || d.closed() {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			d.log.Warn().Err(err).Msg("candidate marshal failed")
			return
		}
		d.sig.Send(&signaling.Message{
			Event:     signaling.EventCandidate,
			RoomID:    d.roomID,
			Candidate: raw,
		})
	})

	// The first remote track is what flips the call to connected.
	d.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if d.closed() {
			return
		}
		d.log.Debug().Str("kind", track.Kind().String()).Msg("remote track arrived")
		sess.MarkConnected()
	})

	go d.run(ctx, sess)
	return nil
}

// run consumes relay events until the session ends or the context is
// cancelled. Everything that arrives after Close is ignored: a late
// negotiation step must not resurrect a finished call.
func (d *Driver) run(ctx context.Context, sess *call.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return

		case selfID := <-d.events.Connected:
			d.mu.Lock()
			d.selfID = selfID
			d.mu.Unlock()
			d.log.Debug().Str("socket", selfID).Msg("joining room")
			d.sig.Send(&signaling.Message{
				Event:  signaling.EventJoin,
				RoomID: d.roomID,
				UserID: d.userID,
			})

		case joined := <-d.events.UserJoined:
			d.sendOffer(joined.SocketID)

		case offer := <-d.events.Offer:
			d.acceptOffer(offer)

		case answer := <-d.events.Answer:
			d.acceptAnswer(answer, sess)

		case raw := <-d.events.Candidate:
			d.addCandidate(raw)

		case <-d.events.UserLeft:
			sess.PeerLeft()
			return
		}
	}
}

// sendOffer runs on the earlier occupant when a newcomer joins the room.
func (d *Driver) sendOffer(target string) {
	offer, err := d.pc.CreateOffer()
	if err != nil {
		d.log.Error().Err(err).Msg("create offer failed")
		return
	}
	if err := d.pc.SetLocalDescription(offer); err != nil {
		d.log.Error().Err(err).Msg("set local offer failed")
		return
	}
	raw, err := json.Marshal(offer)
	if err != nil {
		d.log.Error().Err(err).Msg("offer marshal failed")
		return
	}

	d.mu.Lock()
	d.offered = true
	d.mu.Unlock()

	d.sig.Send(&signaling.Message{
		Event:        signaling.EventOffer,
		RoomID:       d.roomID,
		TargetSocket: target,
		SDP:          raw,
	})
}

// acceptOffer runs on the newcomer: apply the remote offer, flush queued
// candidates, answer back to whoever offered. Failures are logged and
// non-fatal; the session's guard timeout bounds a stalled handshake.
func (d *Driver) acceptOffer(offer signalclient.Description) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(offer.SDP, &desc); err != nil {
		d.log.Warn().Err(err).Msg("bad offer SDP")
		return
	}
	if err := d.pc.SetRemoteDescription(desc); err != nil {
		d.log.Warn().Err(err).Msg("set remote offer failed")
		return
	}
	d.flushPending()

	answer, err := d.pc.CreateAnswer()
	if err != nil {
		d.log.Error().Err(err).Msg("create answer failed")
		return
	}
	if err := d.pc.SetLocalDescription(answer); err != nil {
		d.log.Error().Err(err).Msg("set local answer failed")
		return
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		d.log.Error().Err(err).Msg("answer marshal failed")
		return
	}
	d.sig.Send(&signaling.Message{
		Event:        signaling.EventAnswer,
		RoomID:       d.roomID,
		TargetSocket: offer.FromSocket,
		SDP:          raw,
	})
}

// acceptAnswer completes the offerer's handshake. An answer with no offer
// outstanding is a protocol violation and kills the call.
func (d *Driver) acceptAnswer(answer signalclient.Description, sess *call.Session) {
	d.mu.Lock()
	offered := d.offered
	d.mu.Unlock()
	if !offered {
		d.log.Error().Msg("answer received before any offer was sent, aborting call")
		sess.End()
		return
	}

	var desc webrtc.SessionDescription
	if err := json.Unmarshal(answer.SDP, &desc); err != nil {
		d.log.Warn().Err(err).Msg("bad answer SDP")
		return
	}
	if err := d.pc.SetRemoteDescription(desc); err != nil {
		d.log.Warn().Err(err).Msg("set remote answer failed")
		return
	}
	d.flushPending()
}

// addCandidate applies an incoming candidate, or queues it when the remote
// description is not set yet. Candidates are order-independent otherwise.
func (d *Driver) addCandidate(raw json.RawMessage) {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &candidate); err != nil {
		d.log.Warn().Err(err).Msg("bad candidate")
		return
	}

	d.mu.Lock()
	if d.pc.RemoteDescription() == nil {
		d.pending = append(d.pending, candidate)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if err := d.pc.AddICECandidate(candidate); err != nil {
		d.log.Warn().Err(err).Msg("add candidate failed")
	}
}

// flushPending applies the candidates that arrived before the remote
// description.
func (d *Driver) flushPending() {
	d.mu.Lock()
	queued := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, candidate := range queued {
		if err := d.pc.AddICECandidate(candidate); err != nil {
			d.log.Warn().Err(err).Msg("add queued candidate failed")
		}
	}
}

// StartScreenShare swaps the outgoing video track for a display capture on
// the existing video sender; no renegotiation happens. The camera capture
// keeps running so StopScreenShare can swap it straight back.
func (d *Driver) StartScreenShare(ctx context.Context) error {
	d.mu.Lock()
	sender := d.videoSender
	sharing := d.screenTrack != nil
	d.mu.Unlock()

	if sender == nil {
		return errors.New("negotiation: no video sender, voice calls cannot screen-share")
	}
	if sharing {
		return errors.New("negotiation: screen share already active")
	}

	screen, err := d.devices.CaptureDisplay(ctx)
	if err != nil {
		return err
	}
	if err := sender.ReplaceTrack(screen.Local()); err != nil {
		screen.Stop()
		return err
	}

	d.mu.Lock()
	d.screenTrack = screen
	d.mu.Unlock()
	d.log.Info().Msg("screen share started")
	return nil
}

// StopScreenShare restores the camera track and stops the display capture.
func (d *Driver) StopScreenShare() error {
	d.mu.Lock()
	screen := d.screenTrack
	d.screenTrack = nil
	camera := d.cameraTrack
	sender := d.videoSender
	d.mu.Unlock()

	if screen == nil {
		return nil
	}
	defer screen.Stop()

	if sender == nil || camera == nil {
		return nil
	}
	return sender.ReplaceTrack(camera.Local())
}

// Close releases the peer connection and the signaling channel. Safe to
// call more than once; the first call sends a best-effort leave.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		d.sig.Send(&signaling.Message{
			Event:  signaling.EventLeaveRoom,
			RoomID: d.roomID,
		})

		d.mu.Lock()
		screen := d.screenTrack
		d.screenTrack = nil
		d.mu.Unlock()
		if screen != nil {
			screen.Stop()
		}

		err = d.pc.Close()
		d.sig.Close()
	})
	return err
}

func (d *Driver) closed() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

