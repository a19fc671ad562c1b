// Package call implements the per-attempt call session state machine:
// idle -> connecting -> connected -> ended. A session object is single-use;
// a new call starts a fresh session.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashanna2005/SkillBridge/internal/media"
)

// Type selects which local devices a call captures.
type Type string

const (
	TypeVoice Type = "voice"
	TypeVideo Type = "video"
)

// Status is the UI-facing call state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusEnded      Status = "ended"
)

// Strategy acquires the remote side of a call. The signaled implementation
// negotiates a real peer connection; the loopback implementation mirrors
// the local stream after a short delay when no signaling endpoint is
// configured.
type Strategy interface {
	// Connect starts remote-stream acquisition for the session. The
	// strategy reports progress through MarkConnected / SetRemote /
	// PeerLeft on the session.
	Connect(ctx context.Context, sess *Session) error

	// Close releases the strategy's resources. It must be safe to call
	// after a failed or never-started Connect.
	Close() error
}

// Config assembles a session.
type Config struct {
	RoomID       string
	Kind         Type
	Devices      media.Devices
	Strategy     Strategy
	GuardTimeout time.Duration

	// OnStatus, when set, observes every status change.
	OnStatus func(Status)

	Logger zerolog.Logger
}

// Session is one call attempt. All methods are safe for concurrent use;
// negotiation callbacks and UI actions race freely against each other.
type Session struct {
	mu     sync.Mutex
	status Status

	roomID   string
	kind     Type
	devices  media.Devices
	strategy Strategy
	guardDur time.Duration
	onStatus func(Status)
	log      zerolog.Logger

	local  *media.Stream
	remote *media.Stream

	guard   *time.Timer
	seconds int
	endOnce sync.Once
	done    chan struct{}
}

// New creates an idle session.
func New(cfg Config) *Session {
	guard := cfg.GuardTimeout
	if guard <= 0 {
		guard = 2500 * time.Millisecond
	}
	return &Session{
		status:   StatusIdle,
		roomID:   cfg.RoomID,
		kind:     cfg.Kind,
		devices:  cfg.Devices,
		strategy: cfg.Strategy,
		guardDur: guard,
		onStatus: cfg.OnStatus,
		log:      cfg.Logger.With().Str("room", cfg.RoomID).Logger(),
		done:     make(chan struct{}),
	}
}

// Start acquires local media and begins connecting. A media acquisition
// failure aborts the attempt before the session ever enters connecting:
// the error is returned to the caller and no partial state survives.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusIdle {
		s.mu.Unlock()
		return fmt.Errorf("call: session already started (status %s)", s.status)
	}
	s.mu.Unlock()

	stream, err := s.devices.Capture(ctx, s.kind == TypeVideo)
	if err != nil {
		return fmt.Errorf("call: local media unavailable: %w", err)
	}

	s.mu.Lock()
	s.local = stream
	s.setStatusLocked(StatusConnecting)
	// The guard keeps the UI from hanging in "connecting" forever: if no
	// remote track arrives in time the call is forced to connected in a
	// degraded state (media may never flow; the user can still hang up).
	s.guard = time.AfterFunc(s.guardDur, func() {
		if s.forceConnected() {
			s.log.Warn().Dur("after", s.guardDur).Msg("guard timeout: forcing connected without remote media")
		}
	})
	s.mu.Unlock()

	if err := s.strategy.Connect(ctx, s); err != nil {
		s.End()
		return fmt.Errorf("call: negotiation start failed: %w", err)
	}
	return nil
}

// MarkConnected transitions connecting -> connected. Calls in any other
// state, including after End, are no-ops so late negotiation callbacks
// cannot resurrect a finished session.
func (s *Session) MarkConnected() {
	if s.forceConnected() {
		s.log.Info().Msg("call connected")
	}
}

func (s *Session) forceConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusConnecting {
		return false
	}
	if s.guard != nil {
		s.guard.Stop()
	}
	s.setStatusLocked(StatusConnected)
	go s.countDuration()
	return true
}

// countDuration ticks the elapsed counter once per second while the call
// stays connected.
func (s *Session) countDuration() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.status == StatusConnected {
				s.seconds++
			}
			s.mu.Unlock()
		}
	}
}

// SetRemote records the remote stream once negotiation (or the loopback
// mirror) produces one.
func (s *Session) SetRemote(stream *media.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusEnded {
		return
	}
	s.remote = stream
}

// PeerLeft ends the call when the other participant leaves the room.
func (s *Session) PeerLeft() {
	s.log.Info().Msg("peer left, ending call")
	s.End()
}

// End hangs up. It is idempotent: local tracks are stopped, the strategy
// (peer connection and signaling channel) is closed, and the terminal
// status is set exactly once. Each release runs even if another fails.
func (s *Session) End() {
	s.endOnce.Do(func() {
		s.mu.Lock()
		if s.guard != nil {
			s.guard.Stop()
		}
		local := s.local
		s.remote = nil
		s.setStatusLocked(StatusEnded)
		s.mu.Unlock()

		close(s.done)

		var errs []error
		if local != nil {
			local.Stop()
		}
		if err := s.strategy.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := errors.Join(errs...); err != nil {
			s.log.Warn().Err(err).Msg("cleanup error on call end")
		}
		s.log.Info().Dur("duration", s.duration()).Msg("call ended")
	})
}

// Status returns the current call state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Local returns the local media stream; nil before Start succeeds.
func (s *Session) Local() *media.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

// Remote returns the remote media stream; nil until negotiation delivers
// one.
func (s *Session) Remote() *media.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// RoomID returns the session's room identifier.
func (s *Session) RoomID() string { return s.roomID }

// Kind returns the call type.
func (s *Session) Kind() Type { return s.kind }

// Duration reports how long the call has been connected.
func (s *Session) Duration() time.Duration {
	return s.duration()
}

func (s *Session) duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.seconds) * time.Second
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setStatusLocked(status Status) {
	if s.status == status {
		return
	}
	s.status = status
	if s.onStatus != nil {
		cb := s.onStatus
		go cb(status)
	}
}
