package services

import (
	"strings"

	"skylink/internal/core/domain"
	"skylink/pkg/validation"
)

// liveUpdatable lists the properties the backend can change on a running
// pipeline without a restart. Only the UDP transport supports this.
var liveUpdatable = map[string]bool{
	"quality":   true,
	"bitrate":   true,
	"gop_size":  true,
	"framerate": true,
	"codec":     true,
}

// SupportsLiveUpdate reports whether the given transport mode can apply
// parameter changes in place.
func SupportsLiveUpdate(mode domain.TransportMode) bool {
	return mode == domain.ModeUDP
}

// IsLiveProperty reports whether the property may be pushed over the
// live-update channel at all.
func IsLiveProperty(property string) bool {
	return liveUpdatable[property]
}

// ValidateConfig recomputes the validation state for the active transport
// mode. Fields belonging to inactive modes never contribute; a missing value
// and a malformed one are reported with distinct codes.
func ValidateConfig(cfg domain.StreamConfig) domain.ValidationState {
	fields := make(map[string]domain.FieldErrorCode)

	switch cfg.Mode {
	case domain.ModeUDP:
		checkString(fields, domain.FieldUDPHost, cfg.UDPHost, validation.ValidateHost)
		checkPort(fields, domain.FieldUDPPort, cfg.UDPPort)

	case domain.ModeMulticast:
		checkString(fields, domain.FieldMulticastGroup, cfg.MulticastGroup, validation.ValidateMulticastGroup)
		checkPort(fields, domain.FieldMulticastPort, cfg.MulticastPort)
		if cfg.MulticastTTL == 0 {
			fields[domain.FieldMulticastTTL] = domain.FieldErrorRequired
		} else if err := validation.ValidateTTL(cfg.MulticastTTL); err != nil {
			fields[domain.FieldMulticastTTL] = domain.FieldErrorInvalidFormat
		}

	case domain.ModeRTSP:
		checkString(fields, domain.FieldRTSPURL, cfg.RTSPURL, validation.ValidateRTSPURL)
		checkString(fields, domain.FieldRTSPTransport, cfg.RTSPTransport, validation.ValidateRTSPTransport)

	case domain.ModeWebRTC:
		// No client-side fields; always passes.
	}

	return domain.ValidationState{
		Fields:  fields,
		Blocked: len(fields) > 0,
	}
}

func checkString(fields map[string]domain.FieldErrorCode, name, value string, validate func(string) error) {
	if strings.TrimSpace(value) == "" {
		fields[name] = domain.FieldErrorRequired
		return
	}
	if err := validate(value); err != nil {
		fields[name] = domain.FieldErrorInvalidFormat
	}
}

func checkPort(fields map[string]domain.FieldErrorCode, name string, port int) {
	if port == 0 {
		fields[name] = domain.FieldErrorRequired
		return
	}
	if err := validation.ValidatePort(port); err != nil {
		fields[name] = domain.FieldErrorInvalidFormat
	}
}
