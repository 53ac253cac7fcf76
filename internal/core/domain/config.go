package domain

// TransportMode selects the pipeline's network transport.
type TransportMode string

const (
	ModeUDP       TransportMode = "udp"
	ModeMulticast TransportMode = "multicast"
	ModeRTSP      TransportMode = "rtsp"
	ModeWebRTC    TransportMode = "webrtc"
)

// Codec families with different quality knobs.
const (
	CodecMJPEG = "mjpeg"
	CodecH264  = "h264"
)

// StreamConfig is the user-editable pipeline configuration. All mode-specific
// fields are carried simultaneously; Mode tags which subset is active, so
// switching modes and back restores the previously entered values.
type StreamConfig struct {
	Device    string `json:"device"`
	Codec     string `json:"codec"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Framerate int    `json:"framerate"`

	// Quality applies to the MJPEG family, Bitrate/GOPSize to H264.
	Quality     int `json:"quality"`
	BitrateKbps int `json:"bitrate"`
	GOPSize     int `json:"gop_size"`

	Mode TransportMode `json:"mode"`

	UDPHost string `json:"udp_host"`
	UDPPort int    `json:"udp_port"`

	MulticastGroup string `json:"multicast_group"`
	MulticastPort  int    `json:"multicast_port"`
	MulticastTTL   int    `json:"multicast_ttl"`

	RTSPURL       string `json:"rtsp_url"`
	RTSPTransport string `json:"rtsp_transport"`

	AutoStart bool `json:"auto_start"`
}

// ConfigPatch carries whole-field replacements for StreamConfig. Nil fields
// are left untouched; there is no deep merging of mode-specific sub-objects.
type ConfigPatch struct {
	Device    *string `json:"device,omitempty"`
	Codec     *string `json:"codec,omitempty"`
	Width     *int    `json:"width,omitempty"`
	Height    *int    `json:"height,omitempty"`
	Framerate *int    `json:"framerate,omitempty"`

	Quality     *int `json:"quality,omitempty"`
	BitrateKbps *int `json:"bitrate,omitempty"`
	GOPSize     *int `json:"gop_size,omitempty"`

	Mode *TransportMode `json:"mode,omitempty"`

	UDPHost *string `json:"udp_host,omitempty"`
	UDPPort *int    `json:"udp_port,omitempty"`

	MulticastGroup *string `json:"multicast_group,omitempty"`
	MulticastPort  *int    `json:"multicast_port,omitempty"`
	MulticastTTL   *int    `json:"multicast_ttl,omitempty"`

	RTSPURL       *string `json:"rtsp_url,omitempty"`
	RTSPTransport *string `json:"rtsp_transport,omitempty"`

	AutoStart *bool `json:"auto_start,omitempty"`
}

// Apply merges the patch into cfg, replacing only the fields that are set.
func (p ConfigPatch) Apply(cfg *StreamConfig) {
	if p.Device != nil {
		cfg.Device = *p.Device
	}
	if p.Codec != nil {
		cfg.Codec = *p.Codec
	}
	if p.Width != nil {
		cfg.Width = *p.Width
	}
	if p.Height != nil {
		cfg.Height = *p.Height
	}
	if p.Framerate != nil {
		cfg.Framerate = *p.Framerate
	}
	if p.Quality != nil {
		cfg.Quality = *p.Quality
	}
	if p.BitrateKbps != nil {
		cfg.BitrateKbps = *p.BitrateKbps
	}
	if p.GOPSize != nil {
		cfg.GOPSize = *p.GOPSize
	}
	if p.Mode != nil {
		cfg.Mode = *p.Mode
	}
	if p.UDPHost != nil {
		cfg.UDPHost = *p.UDPHost
	}
	if p.UDPPort != nil {
		cfg.UDPPort = *p.UDPPort
	}
	if p.MulticastGroup != nil {
		cfg.MulticastGroup = *p.MulticastGroup
	}
	if p.MulticastPort != nil {
		cfg.MulticastPort = *p.MulticastPort
	}
	if p.MulticastTTL != nil {
		cfg.MulticastTTL = *p.MulticastTTL
	}
	if p.RTSPURL != nil {
		cfg.RTSPURL = *p.RTSPURL
	}
	if p.RTSPTransport != nil {
		cfg.RTSPTransport = *p.RTSPTransport
	}
	if p.AutoStart != nil {
		cfg.AutoStart = *p.AutoStart
	}
}

// IsZero reports whether the patch would change nothing.
func (p ConfigPatch) IsZero() bool {
	return p == ConfigPatch{}
}

// DefaultStreamConfig returns the configuration used before the first
// authoritative snapshot arrives.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Codec:          CodecH264,
		Width:          1280,
		Height:         720,
		Framerate:      30,
		Quality:        85,
		BitrateKbps:    2000,
		GOPSize:        30,
		Mode:           ModeUDP,
		UDPHost:        "192.168.1.10",
		UDPPort:        5600,
		MulticastGroup: "239.0.0.1",
		MulticastPort:  5600,
		MulticastTTL:   1,
		RTSPTransport:  "udp",
	}
}

// PipelineStats is the server's own view of the running pipeline, carried
// inside VideoStatus. It is display-only on the client.
type PipelineStats struct {
	FPS         float64 `json:"fps"`
	BitrateKbps float64 `json:"bitrate_kbps"`
	Clients     int     `json:"clients"`
}

// VideoStatus is the authoritative, server-owned snapshot pushed to the
// client. It is replaced wholesale on every push message and never partially
// mutated by a consumer.
type VideoStatus struct {
	Available           bool           `json:"available"`
	Streaming           bool           `json:"streaming"`
	Config              *StreamConfig  `json:"config,omitempty"`
	Stats               *PipelineStats `json:"stats,omitempty"`
	LastError           string         `json:"last_error,omitempty"`
	PipelineDescription string         `json:"pipeline,omitempty"`
}
