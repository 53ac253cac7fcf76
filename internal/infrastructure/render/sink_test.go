package render

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"go.uber.org/zap/zaptest"
)

// scriptedTrack serves a fixed number of packets, then blocks until closed.
type scriptedTrack struct {
	mu      sync.Mutex
	left    int
	closed  chan struct{}
	onEmpty sync.Once
}

func newScriptedTrack(packets int) *scriptedTrack {
	return &scriptedTrack{left: packets, closed: make(chan struct{})}
}

func (t *scriptedTrack) ID() string    { return "track-1" }
func (t *scriptedTrack) Codec() string { return "video/H264" }

func (t *scriptedTrack) ReadPacket() (*rtp.Packet, error) {
	t.mu.Lock()
	if t.left > 0 {
		t.left--
		t.mu.Unlock()
		return &rtp.Packet{Header: rtp.Header{SequenceNumber: 1}}, nil
	}
	t.mu.Unlock()

	<-t.closed
	return nil, errors.New("track closed")
}

func (t *scriptedTrack) close() {
	t.onEmpty.Do(func() { close(t.closed) })
}

func TestSink_DeliversPackets(t *testing.T) {
	var mu sync.Mutex
	received := 0
	handler := func(pkt *rtp.Packet) {
		mu.Lock()
		defer mu.Unlock()
		received++
	}

	sink := NewSink(handler, zaptest.NewLogger(t).Sugar())
	track := newScriptedTrack(5)
	defer track.close()

	sink.BindTrack(track)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := received
		mu.Unlock()
		if n == 5 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("received %d packets, want 5", received)
}

func TestSink_ClearStopsDelivery(t *testing.T) {
	var mu sync.Mutex
	received := 0
	handler := func(pkt *rtp.Packet) {
		mu.Lock()
		defer mu.Unlock()
		received++
	}

	sink := NewSink(handler, zaptest.NewLogger(t).Sugar())
	track := newScriptedTrack(1_000_000)
	defer track.close()

	sink.BindTrack(track)
	time.Sleep(10 * time.Millisecond)
	sink.Clear()

	mu.Lock()
	after := received
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// One in-flight packet may still land; the stream must not keep flowing.
	if received > after+1 {
		t.Errorf("received %d packets after Clear (was %d)", received, after)
	}
}

func TestSink_ClearWithNothingBound(t *testing.T) {
	sink := NewSink(nil, zaptest.NewLogger(t).Sugar())
	sink.Clear()
	sink.Clear()
}
