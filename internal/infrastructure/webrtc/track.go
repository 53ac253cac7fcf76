package webrtc

import (
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// remoteTrack adapts a pion TrackRemote to ports.MediaTrack and keeps
// packet-level receive counters as a side effect of reading. A packet with
// the RTP marker bit set closes a video frame, which is how frames are
// counted without decoding.
type remoteTrack struct {
	remote *webrtc.TrackRemote

	bytesReceived   atomic.Uint64
	packetsReceived atomic.Uint64
	framesReceived  atomic.Uint64
}

func newRemoteTrack(remote *webrtc.TrackRemote) *remoteTrack {
	return &remoteTrack{remote: remote}
}

func (t *remoteTrack) ID() string {
	return t.remote.ID()
}

func (t *remoteTrack) Codec() string {
	return t.remote.Codec().MimeType
}

func (t *remoteTrack) ReadPacket() (*rtp.Packet, error) {
	pkt, _, err := t.remote.ReadRTP()
	if err != nil {
		return nil, err
	}

	t.bytesReceived.Add(uint64(len(pkt.Payload)) + uint64(pkt.Header.MarshalSize()))
	t.packetsReceived.Add(1)
	if pkt.Marker {
		t.framesReceived.Add(1)
	}
	return pkt, nil
}

func (t *remoteTrack) counters() (bytes, packets, frames uint64) {
	return t.bytesReceived.Load(), t.packetsReceived.Load(), t.framesReceived.Load()
}
