package media

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 100 * time.Millisecond
)

// SyntheticDevices produces silent Opus audio and blank VP8 video tracks.
// It stands in for getUserMedia in headless clients: the tracks are real
// pion tracks that bind to a peer connection and carry a steady sample
// cadence, which is enough for loopback drills and signaling soak tests.
type SyntheticDevices struct{}

var _ Devices = SyntheticDevices{}

func (SyntheticDevices) Capture(ctx context.Context, withVideo bool) (*Stream, error) {
	audio, err := syntheticTrack(webrtc.MimeTypeOpus, "audio", "skillbridge-mic", audioFrameInterval)
	if err != nil {
		return nil, err
	}
	tracks := []*Track{audio}

	if withVideo {
		video, err := syntheticTrack(webrtc.MimeTypeVP8, "video", "skillbridge-cam", videoFrameInterval)
		if err != nil {
			audio.Stop()
			return nil, err
		}
		tracks = append(tracks, video)
	}
	return NewStream(tracks...), nil
}

func (SyntheticDevices) CaptureDisplay(ctx context.Context) (*Track, error) {
	return syntheticTrack(webrtc.MimeTypeVP8, "video", "skillbridge-screen", videoFrameInterval)
}

// syntheticTrack creates a local track fed by a pump goroutine writing
// empty samples at the frame interval until the track is stopped.
func syntheticTrack(mimeType, id, streamID string, interval time.Duration) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType}, id, streamID,
	)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		sample := pionmedia.Sample{Data: []byte{0}, Duration: interval}
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// WriteSample is a no-op until the track is bound.
				if err := local.WriteSample(sample); err != nil {
					return
				}
			}
		}
	}()

	return NewTrack(local, func() { close(done) }), nil
}

// DeniedDevices always fails capture; it models a user rejecting the
// permission prompt and backs the fatal-error paths in tests and drills.
type DeniedDevices struct{}

var _ Devices = DeniedDevices{}

func (DeniedDevices) Capture(context.Context, bool) (*Stream, error) {
	return nil, ErrPermissionDenied
}

func (DeniedDevices) CaptureDisplay(context.Context) (*Track, error) {
	return nil, ErrPermissionDenied
}
