package validation

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// HostnameRegex validates RFC 1123 hostnames
	HostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)
)

// ValidateHost validates an IPv4 address or hostname
func ValidateHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("host is required")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return fmt.Errorf("host must be an IPv4 address")
		}
		return nil
	}
	if len(host) > 253 {
		return fmt.Errorf("host is too long (max 253 characters)")
	}
	if !HostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid host format")
	}
	return nil
}

// ValidatePort validates a non-privileged UDP/TCP port
func ValidatePort(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("port must be in range 1024-65535")
	}
	return nil
}

// ValidateMulticastGroup validates an IPv4 multicast group address
// (224.0.0.0 through 239.255.255.255)
func ValidateMulticastGroup(group string) error {
	group = strings.TrimSpace(group)
	if group == "" {
		return fmt.Errorf("multicast group is required")
	}
	ip := net.ParseIP(group)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid multicast group format")
	}
	first := ip.To4()[0]
	if first < 224 || first > 239 {
		return fmt.Errorf("multicast group must be in range 224.0.0.0-239.255.255.255")
	}
	return nil
}

// ValidateTTL validates a multicast TTL value
func ValidateTTL(ttl int) error {
	if ttl < 1 || ttl > 255 {
		return fmt.Errorf("ttl must be in range 1-255")
	}
	return nil
}

// ValidateRTSPURL validates an RTSP URL of the form
// rtsp://[user:pass@]host[:port][/path]
func ValidateRTSPURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return fmt.Errorf("RTSP URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid RTSP URL format: %w", err)
	}
	if u.Scheme != "rtsp" {
		return fmt.Errorf("invalid URL scheme (must be rtsp)")
	}
	if u.Hostname() == "" {
		return fmt.Errorf("RTSP URL must have a host")
	}
	if port := u.Port(); port != "" {
		if !regexp.MustCompile(`^\d{1,5}$`).MatchString(port) {
			return fmt.Errorf("invalid RTSP URL port")
		}
	}
	return nil
}

// ValidateRTSPTransport validates the RTSP lower transport selection
func ValidateRTSPTransport(transport string) error {
	switch transport {
	case "udp", "tcp":
		return nil
	}
	return fmt.Errorf("invalid RTSP transport (must be udp or tcp)")
}
