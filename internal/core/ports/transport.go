package ports

import (
	"context"

	"github.com/pion/rtp"

	"skylink/internal/core/domain"
)

// MediaTrack is one incoming media track exposed by the transport.
type MediaTrack interface {
	ID() string
	Codec() string
	ReadPacket() (*rtp.Packet, error)
}

// Renderer receives the session's incoming track. BindTrack may be called at
// most once per track; Clear detaches whatever is bound and must be safe to
// call when nothing is.
type Renderer interface {
	BindTrack(track MediaTrack)
	Clear()
}

// TransportEvents are the callbacks a transport fires. All of them may be
// invoked from transport-internal goroutines.
type TransportEvents struct {
	OnConnectionState func(state domain.ConnectionState)
	OnCandidate       func(candidate domain.ICECandidate)
	OnTrack           func(track MediaTrack)
}

// TransportConfig parameterizes a new transport handle.
type TransportConfig struct {
	ICEServers []domain.ICEServer

	// MaxBitrateKbps, when > 0, is inserted as a bandwidth ceiling into the
	// offer's session description.
	MaxBitrateKbps int
}

// MediaTransport abstracts the native peer-connection handle. A handle is
// exclusively owned by one session and never reused after Close.
type MediaTransport interface {
	// CreateOffer builds a receive-only offer, applies the configured
	// bandwidth ceiling and sets it as the local description.
	CreateOffer(ctx context.Context) (sdp string, err error)

	SetRemoteAnswer(ctx context.Context, sdp string) error

	// Counters reads the transport's receive-side counters.
	Counters(ctx context.Context) (domain.TransportCounters, error)

	Close() error
}

// TransportFactory creates transport handles. Injected so session logic is
// testable without a live ICE stack.
type TransportFactory interface {
	NewTransport(cfg TransportConfig, events TransportEvents) (MediaTransport, error)
}
