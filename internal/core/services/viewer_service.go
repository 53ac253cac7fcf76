package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
	apperrors "skylink/pkg/errors"
	"skylink/pkg/tracing"
)

// ViewerService ties the editable configuration, the authoritative status
// feed, the live-update channel and the peer session into the single surface
// the local API serves. It implements ports.Viewer.
type ViewerService struct {
	store   *ConfigStore
	control ports.ControlAPI
	session *SessionManager
	live    *LiveUpdateChannel
	source  ports.StatusSource
	metrics ports.MetricsSink
	logger  *zap.SugaredLogger

	mu         sync.Mutex
	status     domain.VideoStatus
	validation domain.ValidationState
}

// NewViewerService wires the viewer. Run must be called to consume status
// pushes.
func NewViewerService(
	store *ConfigStore,
	control ports.ControlAPI,
	session *SessionManager,
	live *LiveUpdateChannel,
	source ports.StatusSource,
	metrics ports.MetricsSink,
	logger *zap.SugaredLogger,
) *ViewerService {
	s := &ViewerService{
		store:   store,
		control: control,
		session: session,
		live:    live,
		source:  source,
		metrics: metrics,
		logger:  logger,
	}
	s.validation = ValidateConfig(store.Snapshot())
	return s
}

// Run consumes the authoritative status stream until ctx is cancelled or the
// source closes its channel. Intended to run in its own goroutine.
func (s *ViewerService) Run(ctx context.Context) {
	updates := s.source.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-updates:
			if !ok {
				s.logger.Warnw("status stream closed")
				return
			}
			s.applyStatus(ctx, status)
		}
	}
}

// applyStatus installs a pushed status snapshot. The embedded config seeds
// the editable store only while no unsubmitted edits exist. The session
// follows the server: it is established when the server reports a running
// webrtc stream and torn down when the stream is gone or switched off webrtc.
func (s *ViewerService) applyStatus(ctx context.Context, status domain.VideoStatus) {
	s.metrics.StatusPushReceived()

	s.store.Seed(status.Config)

	s.mu.Lock()
	s.status = status
	s.validation = ValidateConfig(s.store.Snapshot())
	s.mu.Unlock()

	wantSession := status.Available &&
		status.Streaming &&
		status.Config != nil &&
		status.Config.Mode == domain.ModeWebRTC

	if !wantSession {
		if state := s.session.State(); state == domain.StateConnecting || state == domain.StateConnected {
			s.logger.Infow("stream no longer served over webrtc, tearing session down")
			s.session.Disconnect()
		}
		return
	}

	// Only a disconnected session is connected automatically. A failed one
	// stays failed until the operator intervenes, so a broken backend does
	// not trigger a reconnect storm on every push.
	if s.session.State() == domain.StateDisconnected {
		s.logger.Infow("stream served over webrtc, connecting")
		go func() {
			if err := s.session.Connect(ctx); err != nil && err != domain.ErrSessionActive {
				s.logger.Warnw("automatic session connect failed", "error", err)
			}
		}()
	}
}

// Config returns the editable configuration.
func (s *ViewerService) Config() domain.StreamConfig {
	return s.store.Snapshot()
}

// Validation returns the field errors for the active transport mode.
func (s *ViewerService) Validation() domain.ValidationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation
}

// Dirty reports whether unsubmitted edits exist.
func (s *ViewerService) Dirty() bool {
	return s.store.Dirty()
}

// Status returns the last authoritative status push.
func (s *ViewerService) Status() domain.VideoStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// servedModeLocked returns the transport mode the backend actually serves.
// The local draft may carry a different, unsubmitted mode; routing decisions
// follow the server. Before the first push carries a config the draft is all
// there is.
func (s *ViewerService) servedModeLocked() domain.TransportMode {
	if s.status.Config != nil {
		return s.status.Config.Mode
	}
	return s.store.Snapshot().Mode
}

// Edit merges a patch into the editable configuration and returns the
// recomputed validation state. Switching the transport mode away from webrtc
// tears down any active session. Live-updatable tuning fields changed while
// a UDP stream is running are additionally forwarded over the live channel.
func (s *ViewerService) Edit(ctx context.Context, patch domain.ConfigPatch) domain.ValidationState {
	if patch.Mode != nil && *patch.Mode != domain.ModeWebRTC {
		if state := s.session.State(); state == domain.StateConnecting || state == domain.StateConnected {
			s.session.Disconnect()
		}
	}

	cfg := s.store.Edit(ctx, patch)

	s.mu.Lock()
	s.validation = ValidateConfig(cfg)
	validation := s.validation
	streaming := s.status.Streaming
	served := s.servedModeLocked()
	s.mu.Unlock()

	if streaming && SupportsLiveUpdate(served) {
		s.pushLiveFields(patch)
	}

	return validation
}

// pushLiveFields forwards the tuning fields present in the patch over the
// debounced channel. Mode and address fields never travel this path.
func (s *ViewerService) pushLiveFields(patch domain.ConfigPatch) {
	if patch.Quality != nil {
		s.live.Push("quality", *patch.Quality)
	}
	if patch.BitrateKbps != nil {
		s.live.Push("bitrate", *patch.BitrateKbps)
	}
	if patch.GOPSize != nil {
		s.live.Push("gop_size", *patch.GOPSize)
	}
	if patch.Framerate != nil {
		s.live.Push("framerate", *patch.Framerate)
	}
	if patch.Codec != nil {
		// Codec is a discrete selection, not a slider; apply without delay.
		if err := s.live.PushImmediate("codec", *patch.Codec); err != nil {
			s.logger.Warnw("codec live update rejected", "error", err)
		}
	}
}

// Submit pushes the full edited configuration to the backend. Blocked
// configurations are rejected locally without any network traffic. On
// failure the dirty flag is retained so the operator can retry.
func (s *ViewerService) Submit(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "viewer.submit")
	var retErr error
	defer func() { tracing.EndSpan(span, retErr) }()

	s.mu.Lock()
	blocked := s.validation.Blocked
	available := s.status.Available
	s.mu.Unlock()

	if blocked {
		retErr = apperrors.NewValidationError("configuration has field errors")
		return retErr
	}
	if !available {
		retErr = apperrors.WrapError(domain.ErrVideoUnavailable, apperrors.ErrCodeUnavailable, "video capability not available", 503)
		return retErr
	}

	cfg := s.store.Snapshot()

	if err := s.control.SubmitVideoConfig(ctx, cfg); err != nil {
		s.metrics.SubmissionResult(false)
		retErr = apperrors.WrapError(err, apperrors.ErrCodeSubmissionRejected, "video config rejected", 502)
		return retErr
	}
	if err := s.control.SubmitStreamingConfig(ctx, cfg); err != nil {
		s.metrics.SubmissionResult(false)
		retErr = apperrors.WrapError(err, apperrors.ErrCodeSubmissionRejected, "streaming config rejected", 502)
		return retErr
	}

	s.store.MarkSubmitted(ctx)
	s.metrics.SubmissionResult(true)
	s.logger.Infow("configuration submitted", "mode", cfg.Mode)
	return nil
}

// Start asks the backend to start the pipeline.
func (s *ViewerService) Start(ctx context.Context) error {
	s.mu.Lock()
	available := s.status.Available
	s.mu.Unlock()
	if !available {
		return apperrors.WrapError(domain.ErrVideoUnavailable, apperrors.ErrCodeUnavailable, "video capability not available", 503)
	}
	if err := s.control.StartPipeline(ctx); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeSubmissionRejected, "failed to start pipeline", 502)
	}
	return nil
}

// Stop asks the backend to stop the pipeline. Any active session is torn
// down first so the sampler never outlives the stream.
func (s *ViewerService) Stop(ctx context.Context) error {
	s.session.Disconnect()
	if err := s.control.StopPipeline(ctx); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeSubmissionRejected, "failed to stop pipeline", 502)
	}
	return nil
}

// Restart asks the backend to restart the pipeline with its current
// configuration.
func (s *ViewerService) Restart(ctx context.Context) error {
	if err := s.control.RestartPipeline(ctx); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeSubmissionRejected, "failed to restart pipeline", 502)
	}
	return nil
}

// LiveUpdate schedules a debounced single-parameter update. Only tuning
// properties qualify, only while the pipeline is streaming, and only on a
// transport that applies changes in place.
func (s *ViewerService) LiveUpdate(property string, value interface{}) error {
	if err := s.liveGate(property); err != nil {
		return err
	}
	s.live.Push(property, value)
	return nil
}

// LiveUpdateImmediate bypasses the debounce window for discrete selections.
func (s *ViewerService) LiveUpdateImmediate(property string, value interface{}) error {
	if err := s.liveGate(property); err != nil {
		return err
	}
	return s.live.PushImmediate(property, value)
}

func (s *ViewerService) liveGate(property string) error {
	if !IsLiveProperty(property) {
		return apperrors.NewValidationError("property cannot be changed live: " + property)
	}

	s.mu.Lock()
	streaming := s.status.Streaming
	served := s.servedModeLocked()
	s.mu.Unlock()
	if !streaming {
		return apperrors.WrapError(domain.ErrNotStreaming, apperrors.ErrCodeConflict, "pipeline is not streaming", 409)
	}

	if !SupportsLiveUpdate(served) {
		return apperrors.WrapError(domain.ErrLiveUpdateNotSupported, apperrors.ErrCodeConflict, "transport does not support live updates", 409)
	}
	return nil
}

// SessionState returns the peer-session connection state.
func (s *ViewerService) SessionState() domain.ConnectionState {
	return s.session.State()
}

// LastSnapshot returns the most recent local stats snapshot.
func (s *ViewerService) LastSnapshot() (domain.StatsSnapshot, bool) {
	return s.session.LastSnapshot()
}

// Connect negotiates a webrtc viewing session. The pipeline must be serving
// webrtc; any other mode is a conflict, not a transport failure.
func (s *ViewerService) Connect(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "viewer.connect")
	var retErr error
	defer func() { tracing.EndSpan(span, retErr) }()

	s.mu.Lock()
	available := s.status.Available
	streaming := s.status.Streaming
	served := s.servedModeLocked()
	s.mu.Unlock()

	if !available {
		retErr = apperrors.WrapError(domain.ErrVideoUnavailable, apperrors.ErrCodeUnavailable, "video capability not available", 503)
		return retErr
	}
	if !streaming {
		retErr = apperrors.WrapError(domain.ErrNotStreaming, apperrors.ErrCodeConflict, "pipeline is not streaming", 409)
		return retErr
	}
	if served != domain.ModeWebRTC {
		retErr = apperrors.NewConflictError("served transport mode is not webrtc")
		return retErr
	}

	retErr = s.session.Connect(ctx)
	return retErr
}

// Disconnect tears down the peer session if one exists.
func (s *ViewerService) Disconnect() {
	s.session.Disconnect()
}

// Close releases background resources held by the viewer.
func (s *ViewerService) Close() {
	s.session.Disconnect()
	s.live.Close()
}
