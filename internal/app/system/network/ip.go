// Package network provides network-related utilities.
package network

import (
	"net/http"
	"strings"
)

// maxUserAgentLen bounds stored user agent strings; real browser UAs stay
// well under this, anything longer is abuse or noise.
const maxUserAgentLen = 512

// GetClientIP extracts the client IP address from the request.
// It checks X-Forwarded-For and X-Real-IP headers for reverse proxy setups,
// and falls back to RemoteAddr if neither is present.
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the chain (client IP)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr, stripping the port
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// GetUserAgent returns the request's User-Agent header, truncated to a
// storage-safe length for audit records.
func GetUserAgent(r *http.Request) string {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLen {
		return ua[:maxUserAgentLen]
	}
	return ua
}
