package ports

import (
	"context"

	"skylink/internal/core/domain"
)

// Viewer is the service surface consumed by the local HTTP API.
type Viewer interface {
	Config() domain.StreamConfig
	Validation() domain.ValidationState
	Dirty() bool
	Status() domain.VideoStatus

	Edit(ctx context.Context, patch domain.ConfigPatch) domain.ValidationState
	Submit(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	LiveUpdate(property string, value interface{}) error
	LiveUpdateImmediate(property string, value interface{}) error

	SessionState() domain.ConnectionState
	LastSnapshot() (domain.StatsSnapshot, bool)
	Connect(ctx context.Context) error
	Disconnect()
}

// MetricsSink receives viewer telemetry. Implemented by the Prometheus
// collector; a no-op implementation is used in tests.
type MetricsSink interface {
	ObserveSnapshot(snapshot domain.StatsSnapshot)
	SessionStateChanged(from, to domain.ConnectionState)
	LiveUpdateResult(ok bool)
	SubmissionResult(ok bool)
	StatusPushReceived()
}
