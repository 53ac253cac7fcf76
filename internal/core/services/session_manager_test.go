package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"skylink/internal/core/domain"
	apperrors "skylink/pkg/errors"
	"skylink/pkg/retry"
)

func newTestSession(t *testing.T, signaling *fakeSignaling, factory *fakeFactory, renderer *fakeRenderer) *SessionManager {
	t.Helper()
	return NewSessionManager(
		signaling,
		factory,
		renderer,
		noopMetrics{},
		SessionConfig{
			MaxBitrateKbps:   2500,
			SamplingInterval: 20 * time.Millisecond,
		},
		zaptest.NewLogger(t).Sugar(),
	)
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSessionManager_ConnectHappyPath(t *testing.T) {
	signaling := &fakeSignaling{}
	factory := &fakeFactory{transport: &fakeTransport{}}
	renderer := &fakeRenderer{}
	m := newTestSession(t, signaling, factory, renderer)

	err := m.Connect(context.Background())
	assert.NoError(t, err)

	// Negotiation done but ICE not yet up: still connecting.
	assert.Equal(t, domain.StateConnecting, m.State())
	assert.Equal(t, domain.PeerID("peer-1"), m.PeerID())

	factory.fireState(domain.StateConnected)
	eventually(t, func() bool { return m.State() == domain.StateConnected }, "never reached connected")
	eventually(t, func() bool {
		signaling.mu.Lock()
		defer signaling.mu.Unlock()
		return len(signaling.connected) == 1
	}, "backend never notified of connection")

	m.Disconnect()
}

func TestSessionManager_DoubleConnectRejected(t *testing.T) {
	signaling := &fakeSignaling{}
	factory := &fakeFactory{transport: &fakeTransport{}}
	m := newTestSession(t, signaling, factory, &fakeRenderer{})

	assert.NoError(t, m.Connect(context.Background()))
	err := m.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionActive)

	m.Disconnect()
}

func TestSessionManager_SignalingFailureEntersFailed(t *testing.T) {
	signaling := &fakeSignaling{
		createSession: func(ctx context.Context) (*domain.SessionGrant, error) {
			return nil, errors.New("backend down")
		},
	}
	m := newTestSession(t, signaling, &fakeFactory{transport: &fakeTransport{}}, &fakeRenderer{})

	err := m.Connect(context.Background())
	assert.Error(t, err)
	appErr := apperrors.GetAppError(err)
	if assert.NotNil(t, appErr) {
		assert.Equal(t, apperrors.ErrCodeSignaling, appErr.Code)
	}
	assert.Equal(t, domain.StateFailed, m.State())

	// A failed session can be reconnected without an explicit Disconnect.
	signaling.createSession = nil
	assert.NoError(t, m.Connect(context.Background()))
	m.Disconnect()
}

func TestSessionManager_OfferFailureReleasesTransport(t *testing.T) {
	transport := &fakeTransport{offerErr: errors.New("no codecs")}
	factory := &fakeFactory{transport: transport}
	renderer := &fakeRenderer{}
	m := newTestSession(t, &fakeSignaling{}, factory, renderer)

	err := m.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, domain.StateFailed, m.State())
	assert.Equal(t, 1, transport.closeCount())
	assert.Equal(t, 1, renderer.clearCount())
}

func TestSessionManager_DisconnectTearsEverythingDown(t *testing.T) {
	signaling := &fakeSignaling{}
	transport := &fakeTransport{}
	factory := &fakeFactory{transport: transport}
	renderer := &fakeRenderer{}
	m := newTestSession(t, signaling, factory, renderer)

	assert.NoError(t, m.Connect(context.Background()))
	factory.fireState(domain.StateConnected)
	eventually(t, func() bool { return m.State() == domain.StateConnected }, "never connected")

	m.Disconnect()

	assert.Equal(t, domain.StateDisconnected, m.State())
	assert.Equal(t, domain.PeerID(""), m.PeerID())
	assert.Equal(t, 1, transport.closeCount())
	assert.Equal(t, 1, renderer.clearCount())
	assert.Equal(t, 1, signaling.disconnectCount())

	_, ok := m.LastSnapshot()
	assert.False(t, ok, "snapshot must be cleared on disconnect")
}

func TestSessionManager_DisconnectIdempotent(t *testing.T) {
	signaling := &fakeSignaling{}
	transport := &fakeTransport{}
	factory := &fakeFactory{transport: transport}
	m := newTestSession(t, signaling, factory, &fakeRenderer{})

	assert.NoError(t, m.Connect(context.Background()))
	m.Disconnect()
	m.Disconnect()
	m.Disconnect()

	assert.Equal(t, 1, transport.closeCount())
	assert.Equal(t, 1, signaling.disconnectCount(), "backend must be notified exactly once")
	assert.Equal(t, domain.StateDisconnected, m.State())
}

func TestSessionManager_StaleAnswerIgnoredAfterDisconnect(t *testing.T) {
	release := make(chan struct{})
	signaling := &fakeSignaling{
		sendOffer: func(ctx context.Context, peerID domain.PeerID, sdp string) (string, error) {
			<-release
			return "answer-sdp", nil
		},
	}
	transport := &fakeTransport{}
	factory := &fakeFactory{transport: transport}
	m := newTestSession(t, signaling, factory, &fakeRenderer{})

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background()) }()

	eventually(t, func() bool { return m.PeerID() == "peer-1" }, "offer never sent")

	// Operator disconnects while the answer is still in flight.
	m.Disconnect()
	close(release)

	err := <-done
	assert.ErrorIs(t, err, domain.ErrStaleCompletion)
	assert.Equal(t, domain.StateDisconnected, m.State(), "late answer must not resurrect the session")
	assert.Equal(t, 1, transport.closeCount())
}

func TestSessionManager_StaleTransportEventIgnored(t *testing.T) {
	signaling := &fakeSignaling{}
	factory := &fakeFactory{transport: &fakeTransport{}}
	m := newTestSession(t, signaling, factory, &fakeRenderer{})

	assert.NoError(t, m.Connect(context.Background()))
	m.Disconnect()

	// The old transport's ICE callback fires after teardown.
	factory.fireState(domain.StateConnected)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, domain.StateDisconnected, m.State())
	signaling.mu.Lock()
	defer signaling.mu.Unlock()
	assert.Empty(t, signaling.connected)
}

func TestSessionManager_TransportLossEntersFailed(t *testing.T) {
	signaling := &fakeSignaling{}
	factory := &fakeFactory{transport: &fakeTransport{}}
	m := newTestSession(t, signaling, factory, &fakeRenderer{})

	assert.NoError(t, m.Connect(context.Background()))
	factory.fireState(domain.StateConnected)
	eventually(t, func() bool { return m.State() == domain.StateConnected }, "never connected")

	factory.fireState(domain.StateFailed)
	eventually(t, func() bool { return m.State() == domain.StateFailed }, "never entered failed")
}

func TestSessionManager_SamplerRunsWhileConnected(t *testing.T) {
	signaling := &fakeSignaling{}
	transport := &fakeTransport{}
	factory := &fakeFactory{transport: transport}
	m := newTestSession(t, signaling, factory, &fakeRenderer{})

	assert.NoError(t, m.Connect(context.Background()))
	factory.fireState(domain.StateConnected)

	eventually(t, func() bool {
		_, ok := m.LastSnapshot()
		return ok
	}, "sampler never produced a snapshot")
	eventually(t, func() bool {
		signaling.mu.Lock()
		defer signaling.mu.Unlock()
		return len(signaling.statsReported) > 0
	}, "stats never reported to backend")

	m.Disconnect()
}

func TestSessionManager_RetryAfterFailure(t *testing.T) {
	attempts := 0
	signaling := &fakeSignaling{
		createSession: func(ctx context.Context) (*domain.SessionGrant, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("transient")
			}
			return &domain.SessionGrant{PeerID: "peer-2"}, nil
		},
	}
	factory := &fakeFactory{transport: &fakeTransport{}}
	m := NewSessionManager(
		signaling,
		factory,
		&fakeRenderer{},
		noopMetrics{},
		SessionConfig{
			SamplingInterval: 20 * time.Millisecond,
			Retry: retry.Config{
				Enabled:      true,
				MaxAttempts:  2,
				InitialDelay: time.Millisecond,
				MaxDelay:     5 * time.Millisecond,
				Multiplier:   2,
			},
		},
		zaptest.NewLogger(t).Sugar(),
	)

	assert.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, domain.PeerID("peer-2"), m.PeerID())
	m.Disconnect()
}
