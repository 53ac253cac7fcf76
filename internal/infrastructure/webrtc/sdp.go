package webrtc

import (
	"fmt"
	"strings"
)

// WithBitrateCeiling inserts a b=AS bandwidth line into every video media
// section of the SDP. An existing bandwidth line is replaced, not
// duplicated. Non-video sections are left untouched.
func WithBitrateCeiling(sdp string, kbps int) string {
	if kbps <= 0 {
		return sdp
	}

	lines := strings.Split(sdp, "\r\n")
	out := make([]string, 0, len(lines)+2)

	inVideo := false
	inserted := false
	for _, line := range lines {
		if strings.HasPrefix(line, "m=") {
			inVideo = strings.HasPrefix(line, "m=video")
			inserted = false
			out = append(out, line)
			continue
		}

		if inVideo && strings.HasPrefix(line, "b=AS:") {
			if !inserted {
				out = append(out, fmt.Sprintf("b=AS:%d", kbps))
				inserted = true
			}
			continue
		}

		// The bandwidth line goes right after the c= line per RFC 4566.
		if inVideo && !inserted && strings.HasPrefix(line, "c=") {
			out = append(out, line, fmt.Sprintf("b=AS:%d", kbps))
			inserted = true
			continue
		}

		out = append(out, line)
	}

	return strings.Join(out, "\r\n")
}
