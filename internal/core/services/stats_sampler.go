package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"skylink/internal/core/domain"
)

// CountersFunc reads the transport's current receive-side counters.
type CountersFunc func(ctx context.Context) (domain.TransportCounters, error)

// SnapshotObserver receives each derived snapshot.
type SnapshotObserver func(snapshot domain.StatsSnapshot)

// StatsSampler polls the active session's transport counters on a fixed
// interval and derives normalized snapshots. It must be stopped the moment
// the session leaves connected; a sampler running against a closed handle
// reports stale numbers as current.
type StatsSampler struct {
	interval time.Duration
	read     CountersFunc
	observer SnapshotObserver
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	prev    *domain.TransportCounters
	stop    chan struct{}
	running bool
}

// NewStatsSampler creates a sampler; Start launches it.
func NewStatsSampler(interval time.Duration, read CountersFunc, observer SnapshotObserver, logger *zap.SugaredLogger) *StatsSampler {
	return &StatsSampler{
		interval: interval,
		read:     read,
		observer: observer,
		logger:   logger,
	}
}

// Start begins sampling. Starting a running sampler is a no-op.
func (s *StatsSampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.prev = nil
	s.stop = make(chan struct{})

	go s.loop(s.stop)
}

// Stop halts sampling. Safe to call repeatedly and on a sampler that never
// started.
func (s *StatsSampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
	s.prev = nil
}

func (s *StatsSampler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample(stop)
		}
	}
}

func (s *StatsSampler) sample(stop chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	cur, err := s.read(ctx)
	if err != nil {
		s.logger.Debugw("failed to read transport counters", "error", err)
		return
	}

	s.mu.Lock()
	// A tick may already have been in flight when Stop was called.
	if !s.running || s.stop != stop {
		s.mu.Unlock()
		return
	}
	snapshot := DeriveSnapshot(s.prev, cur)
	prev := cur
	s.prev = &prev
	s.mu.Unlock()

	s.observer(snapshot)
}

// DeriveSnapshot computes a normalized snapshot from two successive counter
// reads. With no previous read the rates are zero, never a spurious spike
// computed against absolute counters.
func DeriveSnapshot(prev *domain.TransportCounters, cur domain.TransportCounters) domain.StatsSnapshot {
	snapshot := domain.StatsSnapshot{
		At:          cur.At,
		RTTMs:       cur.RTTSec * 1000,
		JitterMs:    cur.JitterSec * 1000,
		PacketsLost: cur.PacketsLost,
	}

	if cur.FrameWidth > 0 && cur.FrameHeight > 0 {
		snapshot.Resolution = fmt.Sprintf("%dx%d", cur.FrameWidth, cur.FrameHeight)
	}

	if prev == nil || prev.At.IsZero() {
		return snapshot
	}

	elapsed := cur.At.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return snapshot
	}

	if cur.BytesReceived >= prev.BytesReceived {
		snapshot.BitrateKbps = float64(cur.BytesReceived-prev.BytesReceived) * 8 / elapsed / 1000
	}
	if cur.FramesDecoded >= prev.FramesDecoded {
		snapshot.FPS = float64(cur.FramesDecoded-prev.FramesDecoded) / elapsed
	}

	return snapshot
}
