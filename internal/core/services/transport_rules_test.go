package services

import (
	"testing"

	"skylink/internal/core/domain"
)

func TestValidateConfig_UDP(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		port   int
		fields map[string]domain.FieldErrorCode
	}{
		{
			name: "valid address",
			host: "192.168.1.10",
			port: 5600,
		},
		{
			name: "missing host",
			host: "",
			port: 5600,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldUDPHost: domain.FieldErrorRequired,
			},
		},
		{
			name: "malformed host",
			host: "not a host!",
			port: 5600,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldUDPHost: domain.FieldErrorInvalidFormat,
			},
		},
		{
			name: "privileged port",
			host: "192.168.1.10",
			port: 1023,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldUDPPort: domain.FieldErrorInvalidFormat,
			},
		},
		{
			name: "missing port",
			host: "192.168.1.10",
			port: 0,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldUDPPort: domain.FieldErrorRequired,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultStreamConfig()
			cfg.Mode = domain.ModeUDP
			cfg.UDPHost = tt.host
			cfg.UDPPort = tt.port

			state := ValidateConfig(cfg)
			assertFields(t, state, tt.fields)
		})
	}
}

func TestValidateConfig_Multicast(t *testing.T) {
	tests := []struct {
		name   string
		group  string
		port   int
		ttl    int
		fields map[string]domain.FieldErrorCode
	}{
		{
			name:  "valid group",
			group: "239.0.0.1",
			port:  5600,
			ttl:   1,
		},
		{
			name:  "low edge of range",
			group: "224.0.0.1",
			port:  5600,
			ttl:   1,
		},
		{
			name:  "below multicast range",
			group: "223.255.255.255",
			port:  5600,
			ttl:   1,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldMulticastGroup: domain.FieldErrorInvalidFormat,
			},
		},
		{
			name:  "above multicast range",
			group: "240.0.0.1",
			port:  5600,
			ttl:   1,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldMulticastGroup: domain.FieldErrorInvalidFormat,
			},
		},
		{
			name:  "ttl out of range",
			group: "239.0.0.1",
			port:  5600,
			ttl:   256,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldMulticastTTL: domain.FieldErrorInvalidFormat,
			},
		},
		{
			name:  "everything missing",
			group: "",
			port:  0,
			ttl:   0,
			fields: map[string]domain.FieldErrorCode{
				domain.FieldMulticastGroup: domain.FieldErrorRequired,
				domain.FieldMulticastPort:  domain.FieldErrorRequired,
				domain.FieldMulticastTTL:   domain.FieldErrorRequired,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultStreamConfig()
			cfg.Mode = domain.ModeMulticast
			cfg.MulticastGroup = tt.group
			cfg.MulticastPort = tt.port
			cfg.MulticastTTL = tt.ttl

			state := ValidateConfig(cfg)
			assertFields(t, state, tt.fields)
		})
	}
}

func TestValidateConfig_RTSP(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		transport string
		fields    map[string]domain.FieldErrorCode
	}{
		{
			name:      "valid url",
			url:       "rtsp://192.168.1.10:8554/stream",
			transport: "tcp",
		},
		{
			name:      "wrong scheme",
			url:       "http://192.168.1.10/stream",
			transport: "tcp",
			fields: map[string]domain.FieldErrorCode{
				domain.FieldRTSPURL: domain.FieldErrorInvalidFormat,
			},
		},
		{
			name:      "unknown transport",
			url:       "rtsp://192.168.1.10:8554/stream",
			transport: "sctp",
			fields: map[string]domain.FieldErrorCode{
				domain.FieldRTSPTransport: domain.FieldErrorInvalidFormat,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultStreamConfig()
			cfg.Mode = domain.ModeRTSP
			cfg.RTSPURL = tt.url
			cfg.RTSPTransport = tt.transport

			state := ValidateConfig(cfg)
			assertFields(t, state, tt.fields)
		})
	}
}

func TestValidateConfig_WebRTCAlwaysPasses(t *testing.T) {
	cfg := domain.DefaultStreamConfig()
	cfg.Mode = domain.ModeWebRTC
	// Garbage in the inactive modes' fields must not contribute.
	cfg.UDPHost = "!!!"
	cfg.MulticastGroup = "1.2.3.4"
	cfg.RTSPURL = "ftp://nope"

	state := ValidateConfig(cfg)
	if state.Blocked {
		t.Errorf("webrtc mode blocked by inactive fields: %v", state.Fields)
	}
}

func TestValidateConfig_InactiveModeFieldsIgnored(t *testing.T) {
	cfg := domain.DefaultStreamConfig()
	cfg.Mode = domain.ModeUDP
	cfg.MulticastGroup = "not-a-group"
	cfg.RTSPURL = "not-a-url"

	state := ValidateConfig(cfg)
	if state.Blocked {
		t.Errorf("udp mode blocked by inactive fields: %v", state.Fields)
	}
}

func TestSupportsLiveUpdate(t *testing.T) {
	if !SupportsLiveUpdate(domain.ModeUDP) {
		t.Error("udp must support live updates")
	}
	for _, mode := range []domain.TransportMode{domain.ModeMulticast, domain.ModeRTSP, domain.ModeWebRTC} {
		if SupportsLiveUpdate(mode) {
			t.Errorf("%s must not support live updates", mode)
		}
	}
}

func TestIsLiveProperty(t *testing.T) {
	for _, p := range []string{"quality", "bitrate", "gop_size", "framerate", "codec"} {
		if !IsLiveProperty(p) {
			t.Errorf("%s must be live-updatable", p)
		}
	}
	for _, p := range []string{"mode", "udp_host", "udp_port", "rtsp_url", ""} {
		if IsLiveProperty(p) {
			t.Errorf("%s must not be live-updatable", p)
		}
	}
}

func assertFields(t *testing.T, state domain.ValidationState, want map[string]domain.FieldErrorCode) {
	t.Helper()

	if len(want) == 0 {
		if state.Blocked {
			t.Errorf("unexpected field errors: %v", state.Fields)
		}
		return
	}

	if !state.Blocked {
		t.Error("expected the configuration to be blocked")
	}
	if len(state.Fields) != len(want) {
		t.Errorf("got %d field errors %v, want %d", len(state.Fields), state.Fields, len(want))
	}
	for field, code := range want {
		if got := state.Fields[field]; got != code {
			t.Errorf("field %s = %q, want %q", field, got, code)
		}
	}
}
