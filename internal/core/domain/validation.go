package domain

// FieldErrorCode distinguishes a missing value from a malformed one. Both
// block submission but the UI renders them differently.
type FieldErrorCode string

const (
	FieldErrorRequired      FieldErrorCode = "required"
	FieldErrorInvalidFormat FieldErrorCode = "invalid_format"
)

// Field names used in ValidationState, matching the StreamConfig JSON names.
const (
	FieldUDPHost        = "udp_host"
	FieldUDPPort        = "udp_port"
	FieldMulticastGroup = "multicast_group"
	FieldMulticastPort  = "multicast_port"
	FieldMulticastTTL   = "multicast_ttl"
	FieldRTSPURL        = "rtsp_url"
	FieldRTSPTransport  = "rtsp_transport"
)

// ValidationState is recomputed on every configuration change. Only fields
// relevant to the active transport mode ever appear in Fields.
type ValidationState struct {
	Fields  map[string]FieldErrorCode `json:"fields"`
	Blocked bool                      `json:"blocked"`
}
