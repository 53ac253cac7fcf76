package webrtc

import (
	"strings"
	"testing"
)

const sampleSDP = "v=0\r\n" +
	"o=- 123456 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=rtpmap:96 H264/90000\r\n" +
	"a=recvonly\r\n"

func TestWithBitrateCeiling_InsertsAfterConnection(t *testing.T) {
	got := WithBitrateCeiling(sampleSDP, 2500)

	want := "c=IN IP4 0.0.0.0\r\nb=AS:2500\r\na=rtpmap:96 H264/90000"
	if !strings.Contains(got, want) {
		t.Errorf("bandwidth line not inserted after c= line:\n%s", got)
	}
}

func TestWithBitrateCeiling_ReplacesExisting(t *testing.T) {
	withBW := strings.Replace(sampleSDP,
		"c=IN IP4 0.0.0.0\r\n",
		"c=IN IP4 0.0.0.0\r\nb=AS:9000\r\n", 1)

	got := WithBitrateCeiling(withBW, 1500)

	if strings.Contains(got, "b=AS:9000") {
		t.Error("stale bandwidth line survived")
	}
	if strings.Count(got, "b=AS:") != 1 {
		t.Errorf("want exactly one bandwidth line:\n%s", got)
	}
	if !strings.Contains(got, "b=AS:1500") {
		t.Errorf("new ceiling missing:\n%s", got)
	}
}

func TestWithBitrateCeiling_SkipsNonVideoSections(t *testing.T) {
	sdp := sampleSDP +
		"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
		"c=IN IP4 0.0.0.0\r\n"

	got := WithBitrateCeiling(sdp, 2000)

	if strings.Count(got, "b=AS:") != 1 {
		t.Errorf("want bandwidth line only in the video section:\n%s", got)
	}
	videoIdx := strings.Index(got, "m=video")
	appIdx := strings.Index(got, "m=application")
	bwIdx := strings.Index(got, "b=AS:")
	if bwIdx < videoIdx || bwIdx > appIdx {
		t.Errorf("bandwidth line outside the video section:\n%s", got)
	}
}

func TestWithBitrateCeiling_ZeroLeavesUntouched(t *testing.T) {
	if got := WithBitrateCeiling(sampleSDP, 0); got != sampleSDP {
		t.Error("zero ceiling must be a no-op")
	}
}
