package negotiation

import (
	pionlog "github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// TrackSender is one outbound track slot on the peer connection. Screen
// share swaps tracks through it instead of renegotiating.
type TrackSender interface {
	ReplaceTrack(track webrtc.TrackLocal) error
	Track() webrtc.TrackLocal
}

// PeerConnection is the slice of *webrtc.PeerConnection the driver needs.
// Tests substitute a fake so negotiation logic runs without ICE gathering
// or a network.
type PeerConnection interface {
	AddTrack(track webrtc.TrackLocal) (TrackSender, error)
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	RemoteDescription() *webrtc.SessionDescription
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	Close() error
}

// NewPeerConnection builds a pion peer connection with STUN-only ICE, the
// same shape the browser client used. TURN relay is out of scope.
func NewPeerConnection(stunURL string, loggerFactory pionlog.LoggerFactory) (PeerConnection, error) {
	settings := webrtc.SettingEngine{}
	if loggerFactory != nil {
		settings.LoggerFactory = loggerFactory
	}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{stunURL}},
		},
	})
	if err != nil {
		return nil, err
	}
	return &pionPeer{pc: pc}, nil
}

// pionPeer adapts *webrtc.PeerConnection to the PeerConnection port.
type pionPeer struct {
	pc *webrtc.PeerConnection
}

func (p *pionPeer) AddTrack(track webrtc.TrackLocal) (TrackSender, error) {
	return p.pc.AddTrack(track)
}

func (p *pionPeer) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

func (p *pionPeer) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

func (p *pionPeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

func (p *pionPeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *pionPeer) RemoteDescription() *webrtc.SessionDescription {
	return p.pc.RemoteDescription()
}

func (p *pionPeer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *pionPeer) OnICECandidate(f func(*webrtc.ICECandidate)) {
	p.pc.OnICECandidate(f)
}

func (p *pionPeer) OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	p.pc.OnTrack(f)
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}
