package ports

import (
	"context"

	"skylink/internal/core/domain"
)

// ControlAPI is the backend's pipeline configuration and lifecycle surface.
type ControlAPI interface {
	SubmitVideoConfig(ctx context.Context, cfg domain.StreamConfig) error
	SubmitStreamingConfig(ctx context.Context, cfg domain.StreamConfig) error
	StartPipeline(ctx context.Context) error
	StopPipeline(ctx context.Context) error
	RestartPipeline(ctx context.Context) error

	// LiveUpdate applies a single parameter to the running pipeline without
	// a restart.
	LiveUpdate(ctx context.Context, property string, value interface{}) error
}

// SignalingAPI is the backend's peer-session surface. Offer/answer/candidate
// exchange is carried over request/response calls rather than a dedicated
// signaling socket.
type SignalingAPI interface {
	CreateSession(ctx context.Context) (*domain.SessionGrant, error)

	// FetchLinkHints returns optional bandwidth hints for constrained links.
	// A nil result is not an error; negotiation proceeds without hints.
	FetchLinkHints(ctx context.Context) (*domain.LinkHints, error)

	SendOffer(ctx context.Context, peerID domain.PeerID, sdp string) (answer string, err error)
	SendCandidate(ctx context.Context, peerID domain.PeerID, candidate domain.ICECandidate) error

	// Best-effort lifecycle/telemetry notifications.
	NotifyConnected(ctx context.Context, peerID domain.PeerID) error
	NotifyDisconnect(ctx context.Context, peerID domain.PeerID) error
	ReportStats(ctx context.Context, peerID domain.PeerID, snapshot domain.StatsSnapshot) error
}

// StatusSource delivers authoritative status pushed by the backend. The
// stream is broadcast and read-only; consumers must never mutate a message.
type StatusSource interface {
	Updates() <-chan domain.VideoStatus
}
