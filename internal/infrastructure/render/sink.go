package render

import (
	"sync"

	"github.com/pion/rtp"
	"go.uber.org/zap"

	"skylink/internal/core/ports"
)

// PacketHandler consumes the incoming RTP stream, typically a decoder or a
// local relay socket. It must not retain the packet after returning.
type PacketHandler func(pkt *rtp.Packet)

// Sink drives the read loop of the bound track and hands packets to the
// configured handler. It implements ports.Renderer. Reading continuously is
// not optional: the transport's receive counters advance as a side effect of
// the reads.
type Sink struct {
	handler PacketHandler
	logger  *zap.SugaredLogger

	mu   sync.Mutex
	gen  uint64
	busy bool
}

// NewSink creates a sink. A nil handler discards packets after accounting,
// which is enough for a stats-only deployment.
func NewSink(handler PacketHandler, logger *zap.SugaredLogger) *Sink {
	return &Sink{handler: handler, logger: logger}
}

// BindTrack starts reading the track until Clear is called or the track
// errors out.
func (s *Sink) BindTrack(track ports.MediaTrack) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.busy = true
	s.mu.Unlock()

	s.logger.Infow("renderer bound", "track_id", track.ID(), "codec", track.Codec())
	go s.loop(gen, track)
}

// Clear detaches the current track. The read loop notices on its next
// packet and exits; a sink with nothing bound is left as is.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return
	}
	s.gen++
	s.busy = false
}

func (s *Sink) loop(gen uint64, track ports.MediaTrack) {
	for {
		pkt, err := track.ReadPacket()
		if err != nil {
			s.logger.Debugw("track read ended", "track_id", track.ID(), "error", err)
			s.mu.Lock()
			if s.gen == gen {
				s.busy = false
			}
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		stale := s.gen != gen
		s.mu.Unlock()
		if stale {
			return
		}

		if s.handler != nil {
			s.handler(pkt)
		}
	}
}
