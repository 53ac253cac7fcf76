package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
	apperrors "skylink/pkg/errors"
	"skylink/pkg/retry"
	"skylink/pkg/tracing"
)

const notifyTimeout = 5 * time.Second

// SessionConfig parameterizes the session lifecycle.
type SessionConfig struct {
	// MaxBitrateKbps is the default bandwidth ceiling applied to the offer.
	// Link hints from the backend override it when present.
	MaxBitrateKbps int

	// SamplingInterval drives the statistics sampler.
	SamplingInterval time.Duration

	// Retry is the reconnect policy applied when negotiation fails. Disabled
	// by default: a failed session stays failed until the operator acts.
	Retry retry.Config
}

// SessionManager owns the peer-connection lifecycle: signaling, candidate
// exchange, bandwidth shaping, state tracking and statistics sampling. At
// most one session exists at a time; a generation counter invalidates
// in-flight completions of superseded sessions so late network responses
// cannot resurrect a torn-down session.
type SessionManager struct {
	signaling ports.SignalingAPI
	factory   ports.TransportFactory
	renderer  ports.Renderer
	metrics   ports.MetricsSink
	logger    *zap.SugaredLogger
	cfg       SessionConfig

	mu           sync.Mutex
	generation   uint64
	state        domain.ConnectionState
	peerID       domain.PeerID
	transport    ports.MediaTransport
	sampler      *StatsSampler
	lastSnapshot *domain.StatsSnapshot

	onStateChange func(state domain.ConnectionState)
	onSnapshot    SnapshotObserver
}

// NewSessionManager creates a manager in the disconnected state.
func NewSessionManager(
	signaling ports.SignalingAPI,
	factory ports.TransportFactory,
	renderer ports.Renderer,
	metrics ports.MetricsSink,
	cfg SessionConfig,
	logger *zap.SugaredLogger,
) *SessionManager {
	if cfg.SamplingInterval <= 0 {
		cfg.SamplingInterval = 2 * time.Second
	}
	return &SessionManager{
		signaling: signaling,
		factory:   factory,
		renderer:  renderer,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		state:     domain.StateDisconnected,
	}
}

// OnStateChange registers the state observer. Must be set before Connect.
func (m *SessionManager) OnStateChange(fn func(state domain.ConnectionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnSnapshot registers the local stats observer. Must be set before Connect.
func (m *SessionManager) OnSnapshot(fn SnapshotObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSnapshot = fn
}

// State returns the externally observable connection state.
func (m *SessionManager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PeerID returns the server-assigned correlation id of the current session.
func (m *SessionManager) PeerID() domain.PeerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerID
}

// LastSnapshot returns the most recent stats snapshot, if any.
func (m *SessionManager) LastSnapshot() (domain.StatsSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSnapshot == nil {
		return domain.StatsSnapshot{}, false
	}
	return *m.lastSnapshot, true
}

// Connect negotiates a new session. It returns ErrSessionActive if one is
// already connecting or connected; the caller must Disconnect first. The
// externally observable state stays connecting until the ICE layer reports
// connected; the offer/answer exchange completing is not enough.
func (m *SessionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == domain.StateConnecting || m.state == domain.StateConnected {
		m.mu.Unlock()
		return domain.ErrSessionActive
	}
	m.generation++
	gen := m.generation
	m.lastSnapshot = nil
	m.setStateLocked(domain.StateConnecting)
	m.mu.Unlock()

	attempts := 1
	if m.cfg.Retry.Enabled {
		attempts = m.cfg.Retry.MaxAttempts + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				m.fail(gen, ctx.Err())
				return ctx.Err()
			case <-time.After(retry.Delay(m.cfg.Retry, attempt-1)):
			}
			if m.stale(gen) {
				return domain.ErrStaleCompletion
			}
			m.logger.Infow("retrying session negotiation", "attempt", attempt)
			m.mu.Lock()
			m.setStateLocked(domain.StateConnecting)
			m.mu.Unlock()
		}

		err := m.connectOnce(ctx, gen)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrStaleCompletion) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// connectOnce runs one full negotiation attempt. On failure the session is
// moved to failed and any partially created transport is released.
func (m *SessionManager) connectOnce(ctx context.Context, gen uint64) error {
	ctx, span := tracing.StartSpan(ctx, "session.connect")
	var retErr error
	defer func() { tracing.EndSpan(span, retErr) }()

	grant, err := m.signaling.CreateSession(ctx)
	if err != nil {
		retErr = m.failSignaling(gen, "session request rejected", err)
		return retErr
	}
	if m.stale(gen) {
		retErr = domain.ErrStaleCompletion
		return retErr
	}

	maxBitrate := m.cfg.MaxBitrateKbps
	if hints, err := m.signaling.FetchLinkHints(ctx); err != nil {
		// Hints are optional; their absence must not block negotiation.
		m.logger.Debugw("link hints unavailable", "error", err)
	} else if hints != nil && hints.MaxBitrateKbps > 0 {
		maxBitrate = hints.MaxBitrateKbps
	}

	transport, err := m.factory.NewTransport(
		ports.TransportConfig{
			ICEServers:     grant.ICEServers,
			MaxBitrateKbps: maxBitrate,
		},
		ports.TransportEvents{
			OnConnectionState: func(state domain.ConnectionState) {
				m.handleTransportState(gen, state)
			},
			OnCandidate: func(candidate domain.ICECandidate) {
				m.forwardCandidate(gen, grant.PeerID, candidate)
			},
			OnTrack: func(track ports.MediaTrack) {
				if m.stale(gen) {
					return
				}
				m.logger.Infow("incoming track bound",
					"peer_id", grant.PeerID,
					"track_id", track.ID(),
					"codec", track.Codec(),
				)
				m.renderer.BindTrack(track)
			},
		},
	)
	if err != nil {
		retErr = m.failSignaling(gen, "failed to create transport", err)
		return retErr
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		transport.Close()
		retErr = domain.ErrStaleCompletion
		return retErr
	}
	m.peerID = grant.PeerID
	m.transport = transport
	m.mu.Unlock()

	offer, err := transport.CreateOffer(ctx)
	if err != nil {
		retErr = m.failSignaling(gen, "failed to build offer", err)
		return retErr
	}

	answer, err := m.signaling.SendOffer(ctx, grant.PeerID, offer)
	if err != nil {
		retErr = m.failSignaling(gen, "offer rejected", err)
		return retErr
	}
	// The answer may arrive after the operator already disconnected. A stale
	// completion must not touch the torn-down session.
	if m.stale(gen) {
		retErr = domain.ErrStaleCompletion
		return retErr
	}

	if err := transport.SetRemoteAnswer(ctx, answer); err != nil {
		retErr = m.failSignaling(gen, "failed to apply answer", err)
		return retErr
	}

	m.logger.Infow("offer/answer exchange complete, waiting for ICE",
		"peer_id", grant.PeerID,
	)
	return nil
}

// Disconnect tears the session down. Safe to call repeatedly, from any
// state, and mid-negotiation: the generation bump turns every in-flight
// completion into a no-op. Teardown order is significant: stop sampling,
// close the transport handle, clear the renderer, notify the backend.
func (m *SessionManager) Disconnect() {
	m.mu.Lock()
	m.generation++
	peerID := m.peerID
	transport := m.transport
	sampler := m.sampler
	m.peerID = ""
	m.transport = nil
	m.sampler = nil
	m.lastSnapshot = nil
	m.setStateLocked(domain.StateDisconnected)
	m.mu.Unlock()

	if sampler != nil {
		sampler.Stop()
	}
	if transport != nil {
		if err := transport.Close(); err != nil {
			m.logger.Warnw("failed to close transport", "error", err)
		}
	}
	m.renderer.Clear()
	if peerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := m.signaling.NotifyDisconnect(ctx, peerID); err != nil {
			m.logger.Warnw("failed to notify backend of disconnect",
				"peer_id", peerID,
				"error", err,
			)
		}
	}
}

func (m *SessionManager) handleTransportState(gen uint64, state domain.ConnectionState) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}

	switch state {
	case domain.StateConnected:
		if m.state != domain.StateConnecting {
			m.mu.Unlock()
			return
		}
		m.setStateLocked(domain.StateConnected)
		peerID := m.peerID
		sampler := m.newSamplerLocked(gen, peerID)
		m.sampler = sampler
		m.mu.Unlock()

		sampler.Start()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := m.signaling.NotifyConnected(ctx, peerID); err != nil {
				m.logger.Warnw("failed to notify backend of connection",
					"peer_id", peerID,
					"error", err,
				)
			}
		}()

	case domain.StateFailed, domain.StateDisconnected:
		if m.state == domain.StateDisconnected {
			m.mu.Unlock()
			return
		}
		sampler := m.sampler
		m.sampler = nil
		m.setStateLocked(domain.StateFailed)
		m.mu.Unlock()

		if sampler != nil {
			sampler.Stop()
		}
		m.logger.Warnw("media transport lost", "ice_state", state)

	default:
		m.mu.Unlock()
	}
}

// newSamplerLocked builds the sampler for the current transport. Must be
// called with the mutex held.
func (m *SessionManager) newSamplerLocked(gen uint64, peerID domain.PeerID) *StatsSampler {
	transport := m.transport
	return NewStatsSampler(
		m.cfg.SamplingInterval,
		transport.Counters,
		func(snapshot domain.StatsSnapshot) {
			m.publishSnapshot(gen, peerID, snapshot)
		},
		m.logger,
	)
}

func (m *SessionManager) publishSnapshot(gen uint64, peerID domain.PeerID, snapshot domain.StatsSnapshot) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.lastSnapshot = &snapshot
	observer := m.onSnapshot
	m.mu.Unlock()

	m.metrics.ObserveSnapshot(snapshot)
	if observer != nil {
		observer(snapshot)
	}

	// Server-side logging is best-effort and never propagates errors.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := m.signaling.ReportStats(ctx, peerID, snapshot); err != nil {
			m.logger.Debugw("failed to report stats", "error", err)
		}
	}()
}

func (m *SessionManager) forwardCandidate(gen uint64, peerID domain.PeerID, candidate domain.ICECandidate) {
	if m.stale(gen) {
		return
	}
	// Fire-and-forget, one candidate at a time; ordering is not significant
	// to the remote side.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := m.signaling.SendCandidate(ctx, peerID, candidate); err != nil {
			m.logger.Warnw("failed to forward ICE candidate",
				"peer_id", peerID,
				"error", err,
			)
		}
	}()
}

// failSignaling releases resources of the failed attempt and reports a
// SignalingError, unless the attempt was already superseded.
func (m *SessionManager) failSignaling(gen uint64, msg string, cause error) error {
	if m.stale(gen) {
		return domain.ErrStaleCompletion
	}
	m.fail(gen, cause)
	return apperrors.WrapError(cause, apperrors.ErrCodeSignaling, msg, 502)
}

func (m *SessionManager) fail(gen uint64, cause error) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	transport := m.transport
	sampler := m.sampler
	m.transport = nil
	m.sampler = nil
	m.setStateLocked(domain.StateFailed)
	m.mu.Unlock()

	if sampler != nil {
		sampler.Stop()
	}
	if transport != nil {
		transport.Close()
	}
	m.renderer.Clear()

	m.logger.Errorw("session failed", "error", cause)
}

// setStateLocked transitions the state and notifies observers. Must be
// called with the mutex held.
func (m *SessionManager) setStateLocked(state domain.ConnectionState) {
	if m.state == state {
		return
	}
	from := m.state
	m.state = state
	m.metrics.SessionStateChanged(from, state)

	if m.onStateChange != nil {
		fn := m.onStateChange
		go fn(state)
	}
	m.logger.Infow("session state changed",
		"from", string(from),
		"to", string(state),
	)
}

func (m *SessionManager) stale(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation != gen
}
