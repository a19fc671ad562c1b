// Package media models local media capture for call participants. Headless
// Go clients have no camera or microphone, so the default implementation
// synthesizes silent/blank tracks; the abstraction exists so the call state
// machine can treat capture failure (permission denied, no device) the same
// way the browser client does.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Capture failure classes. Both are fatal to a call attempt.
var (
	ErrPermissionDenied = errors.New("media: permission denied")
	ErrNoDevice         = errors.New("media: no capture device available")
)

// Devices is the capture port. Video is requested for video calls only;
// audio is always captured.
type Devices interface {
	// Capture acquires the local stream for a call.
	Capture(ctx context.Context, withVideo bool) (*Stream, error)

	// CaptureDisplay acquires a screen-share video track.
	CaptureDisplay(ctx context.Context) (*Track, error)
}

// Track is one local media track plus its capture teardown. Stop is
// idempotent.
type Track struct {
	local    webrtc.TrackLocal
	stop     func()
	stopOnce sync.Once
}

// NewTrack wraps a pion local track with its teardown hook.
func NewTrack(local webrtc.TrackLocal, stop func()) *Track {
	return &Track{local: local, stop: stop}
}

// Local returns the underlying pion track.
func (t *Track) Local() webrtc.TrackLocal { return t.local }

// Kind reports audio or video.
func (t *Track) Kind() webrtc.RTPCodecType { return t.local.Kind() }

// Stop ends capture for this track. Calling it again is a no-op.
func (t *Track) Stop() {
	t.stopOnce.Do(func() {
		if t.stop != nil {
			t.stop()
		}
	})
}

// Stream is the set of local tracks acquired for one call.
type Stream struct {
	tracks []*Track
}

// NewStream groups captured tracks.
func NewStream(tracks ...*Track) *Stream {
	return &Stream{tracks: tracks}
}

// Tracks returns all tracks in the stream.
func (s *Stream) Tracks() []*Track { return s.tracks }

// VideoTrack returns the stream's video track, if any.
func (s *Stream) VideoTrack() *Track {
	for _, t := range s.tracks {
		if t.Kind() == webrtc.RTPCodecTypeVideo {
			return t
		}
	}
	return nil
}

// Stop ends capture on every track. Idempotent.
func (s *Stream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}
