package webrtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
)

const keyframeInterval = 3 * time.Second

// Factory builds pion-backed transport handles. It implements
// ports.TransportFactory.
type Factory struct {
	logger *zap.SugaredLogger
}

func NewFactory(logger *zap.SugaredLogger) *Factory {
	return &Factory{logger: logger}
}

// NewTransport creates a receive-only peer connection wired to the given
// event sinks.
func (f *Factory) NewTransport(cfg ports.TransportConfig, events ports.TransportEvents) (ports.MediaTransport, error) {
	iceServers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	t := &Transport{
		pc:             pc,
		maxBitrateKbps: cfg.MaxBitrateKbps,
		logger:         f.logger,
	}

	// Video only; the drone pipeline carries no audio.
	if _, err := pc.AddTransceiverFromKind(
		webrtc.RTPCodecTypeVideo,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly},
	); err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to add video transceiver: %w", err)
	}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		f.logger.Debugw("ice connection state", "state", state.String())
		if mapped, ok := mapICEState(state); ok && events.OnConnectionState != nil {
			events.OnConnectionState(mapped)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		// nil marks end of gathering; the backend does not need a sentinel.
		if candidate == nil || events.OnCandidate == nil {
			return
		}
		init := candidate.ToJSON()
		events.OnCandidate(domain.ICECandidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		f.logger.Infow("remote track arrived",
			"track_id", remote.ID(),
			"mime", remote.Codec().MimeType,
			"ssrc", remote.SSRC(),
		)

		track := newRemoteTrack(remote)
		t.setTrack(track)

		go t.keyframeLoop(remote.SSRC())
		go drainRTCP(receiver)

		if events.OnTrack != nil {
			events.OnTrack(track)
		}
	})

	return t, nil
}

// Transport wraps one pion peer connection. It implements
// ports.MediaTransport.
type Transport struct {
	pc             *webrtc.PeerConnection
	maxBitrateKbps int
	logger         *zap.SugaredLogger

	mu     sync.Mutex
	track  *remoteTrack
	closed bool
}

func (t *Transport) setTrack(track *remoteTrack) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.track = track
}

// CreateOffer builds the receive-only offer, applies the bandwidth ceiling
// and installs it as the local description.
func (t *Transport) CreateOffer(ctx context.Context) (string, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}

	if t.maxBitrateKbps > 0 {
		offer.SDP = WithBitrateCeiling(offer.SDP, t.maxBitrateKbps)
	}

	if err := t.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	return offer.SDP, nil
}

func (t *Transport) SetRemoteAnswer(ctx context.Context, sdp string) error {
	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}
	if err := t.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

// Counters merges packet-level counters kept by the track reader with what
// the stats layer knows about loss, jitter and path RTT.
func (t *Transport) Counters(ctx context.Context) (domain.TransportCounters, error) {
	t.mu.Lock()
	track := t.track
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return domain.TransportCounters{}, domain.ErrSessionClosed
	}

	counters := domain.TransportCounters{At: time.Now()}
	if track != nil {
		bytes, packets, frames := track.counters()
		counters.BytesReceived = bytes
		counters.PacketsReceived = packets
		counters.FramesDecoded = frames
	}

	for _, s := range t.pc.GetStats() {
		switch stats := s.(type) {
		case webrtc.InboundRTPStreamStats:
			counters.PacketsLost = int64(stats.PacketsLost)
			counters.JitterSec = stats.Jitter
		case webrtc.ICECandidatePairStats:
			if stats.State == webrtc.StatsICECandidatePairStateSucceeded && stats.CurrentRoundTripTime > 0 {
				counters.RTTSec = stats.CurrentRoundTripTime
			}
		}
	}

	return counters, nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	return t.pc.Close()
}

// keyframeLoop periodically requests a keyframe so the decoder recovers
// quickly from loss on the radio link. Stops when the connection closes.
func (t *Transport) keyframeLoop(ssrc webrtc.SSRC) {
	ticker := time.NewTicker(keyframeInterval)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return
		}

		err := t.pc.WriteRTCP([]rtcp.Packet{
			&rtcp.PictureLossIndication{MediaSSRC: uint32(ssrc)},
		})
		if err != nil {
			t.logger.Debugw("failed to send PLI", "error", err)
			return
		}
	}
}

// drainRTCP keeps the receiver's RTCP path flowing so the interceptor chain
// generates receiver reports.
func drainRTCP(receiver *webrtc.RTPReceiver) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := receiver.Read(buf); err != nil {
			return
		}
	}
}

// mapICEState collapses pion's ICE states onto the session state machine.
// Intermediate states that do not move the machine report !ok.
func mapICEState(state webrtc.ICEConnectionState) (domain.ConnectionState, bool) {
	switch state {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		return domain.StateConnected, true
	case webrtc.ICEConnectionStateFailed:
		return domain.StateFailed, true
	case webrtc.ICEConnectionStateDisconnected, webrtc.ICEConnectionStateClosed:
		return domain.StateDisconnected, true
	default:
		return "", false
	}
}
