package domain

import "time"

type PeerID string

// ConnectionState is the externally observable state of the media session.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateFailed       ConnectionState = "failed"
)

// ICEServer mirrors the STUN/TURN entries handed out by the backend when a
// session is allocated.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// SessionGrant is the backend's response to a session request.
type SessionGrant struct {
	PeerID     PeerID      `json:"peer_id"`
	ICEServers []ICEServer `json:"ice_servers"`
}

// LinkHints carries optional bandwidth/SDP hints for constrained uplinks
// (cellular). Absence must not block negotiation.
type LinkHints struct {
	MaxBitrateKbps int `json:"max_bitrate_kbps"`
}

// ICECandidate is one locally gathered candidate, forwarded to the backend.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// TransportCounters is one raw read of the transport's receive-side counters.
// Monotonic fields are diffed between reads to derive rates.
type TransportCounters struct {
	At              time.Time
	BytesReceived   uint64
	PacketsReceived uint64
	PacketsLost     int64
	FramesDecoded   uint64
	JitterSec       float64
	RTTSec          float64
	FrameWidth      int
	FrameHeight     int
}

// StatsSnapshot is the normalized per-tick view derived from two successive
// counter reads. The first snapshot after (re)connect has no previous read
// and reports zero rates.
type StatsSnapshot struct {
	At          time.Time `json:"at"`
	Resolution  string    `json:"resolution"`
	FPS         float64   `json:"fps"`
	BitrateKbps float64   `json:"bitrate_kbps"`
	RTTMs       float64   `json:"rtt_ms"`
	JitterMs    float64   `json:"jitter_ms"`
	PacketsLost int64     `json:"packets_lost"`
}
