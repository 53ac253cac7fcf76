package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"skylink/internal/core/domain"
	"skylink/internal/core/ports"
)

// noopMetrics satisfies ports.MetricsSink for tests that do not assert on
// telemetry.
type noopMetrics struct{}

func (noopMetrics) ObserveSnapshot(domain.StatsSnapshot)            {}
func (noopMetrics) SessionStateChanged(_, _ domain.ConnectionState) {}
func (noopMetrics) LiveUpdateResult(bool)                           {}
func (noopMetrics) SubmissionResult(bool)                           {}
func (noopMetrics) StatusPushReceived()                             {}

type MockControlAPI struct {
	mock.Mock
}

func (m *MockControlAPI) SubmitVideoConfig(ctx context.Context, cfg domain.StreamConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockControlAPI) SubmitStreamingConfig(ctx context.Context, cfg domain.StreamConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockControlAPI) StartPipeline(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockControlAPI) StopPipeline(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockControlAPI) RestartPipeline(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockControlAPI) LiveUpdate(ctx context.Context, property string, value interface{}) error {
	args := m.Called(ctx, property, value)
	return args.Error(0)
}

// fakeSignaling is a hand-rolled SignalingAPI whose behavior is set per test
// through function fields. Unset fields succeed with zero values.
type fakeSignaling struct {
	mu sync.Mutex

	createSession func(ctx context.Context) (*domain.SessionGrant, error)
	sendOffer     func(ctx context.Context, peerID domain.PeerID, sdp string) (string, error)

	candidates    []domain.ICECandidate
	connected     []domain.PeerID
	disconnected  []domain.PeerID
	statsReported []domain.StatsSnapshot
}

func (f *fakeSignaling) CreateSession(ctx context.Context) (*domain.SessionGrant, error) {
	if f.createSession != nil {
		return f.createSession(ctx)
	}
	return &domain.SessionGrant{PeerID: "peer-1"}, nil
}

func (f *fakeSignaling) FetchLinkHints(ctx context.Context) (*domain.LinkHints, error) {
	return nil, nil
}

func (f *fakeSignaling) SendOffer(ctx context.Context, peerID domain.PeerID, sdp string) (string, error) {
	if f.sendOffer != nil {
		return f.sendOffer(ctx, peerID, sdp)
	}
	return "answer-sdp", nil
}

func (f *fakeSignaling) SendCandidate(ctx context.Context, peerID domain.PeerID, candidate domain.ICECandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, candidate)
	return nil
}

func (f *fakeSignaling) NotifyConnected(ctx context.Context, peerID domain.PeerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, peerID)
	return nil
}

func (f *fakeSignaling) NotifyDisconnect(ctx context.Context, peerID domain.PeerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, peerID)
	return nil
}

func (f *fakeSignaling) ReportStats(ctx context.Context, peerID domain.PeerID, snapshot domain.StatsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsReported = append(f.statsReported, snapshot)
	return nil
}

func (f *fakeSignaling) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disconnected)
}

func (f *fakeSignaling) statsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statsReported)
}

// fakeTransport records lifecycle calls; the factory hands its event sinks
// back to the test so ICE transitions can be injected.
type fakeTransport struct {
	mu       sync.Mutex
	closed   int
	counters domain.TransportCounters

	offerErr  error
	answerErr error
}

func (t *fakeTransport) CreateOffer(ctx context.Context) (string, error) {
	if t.offerErr != nil {
		return "", t.offerErr
	}
	return "offer-sdp", nil
}

func (t *fakeTransport) SetRemoteAnswer(ctx context.Context, sdp string) error {
	return t.answerErr
}

func (t *fakeTransport) Counters(ctx context.Context) (domain.TransportCounters, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters, nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type fakeFactory struct {
	mu        sync.Mutex
	transport *fakeTransport
	events    ports.TransportEvents
	err       error
}

func (f *fakeFactory) NewTransport(cfg ports.TransportConfig, events ports.TransportEvents) (ports.MediaTransport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
	return f.transport, nil
}

func (f *fakeFactory) eventsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events.OnConnectionState != nil
}

func (f *fakeFactory) fireState(state domain.ConnectionState) {
	f.mu.Lock()
	fn := f.events.OnConnectionState
	f.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

type fakeRenderer struct {
	mu      sync.Mutex
	bound   []ports.MediaTrack
	cleared int
}

func (r *fakeRenderer) BindTrack(track ports.MediaTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound = append(r.bound, track)
}

func (r *fakeRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *fakeRenderer) clearCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleared
}

// fakeStatusSource feeds scripted status pushes to the viewer loop.
type fakeStatusSource struct {
	ch chan domain.VideoStatus
}

func newFakeStatusSource() *fakeStatusSource {
	return &fakeStatusSource{ch: make(chan domain.VideoStatus, 8)}
}

func (s *fakeStatusSource) Updates() <-chan domain.VideoStatus {
	return s.ch
}

// memDraftRepo is an in-memory ConfigRepository.
type memDraftRepo struct {
	mu    sync.Mutex
	draft *domain.StreamConfig
}

func (r *memDraftRepo) LoadDraft(ctx context.Context) (*domain.StreamConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft == nil {
		return nil, nil
	}
	cfg := *r.draft
	return &cfg, nil
}

func (r *memDraftRepo) SaveDraft(ctx context.Context, cfg domain.StreamConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = &cfg
	return nil
}

func (r *memDraftRepo) ClearDraft(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = nil
	return nil
}
