package network

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xRealIP    string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.7", "", "10.0.0.1:1234", "203.0.113.7"},
		{"forwarded chain", "203.0.113.7, 10.0.0.2", "", "10.0.0.1:1234", "203.0.113.7"},
		{"forwarded with spaces", "  203.0.113.7  ", "", "10.0.0.1:1234", "203.0.113.7"},
		{"real ip fallback", "", "198.51.100.4", "10.0.0.1:1234", "198.51.100.4"},
		{"remote addr strips port", "", "", "192.0.2.1:5678", "192.0.2.1"},
		{"remote addr no port", "", "", "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetUserAgent_Truncates(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", strings.Repeat("x", 2000))

	got := GetUserAgent(r)
	if len(got) != maxUserAgentLen {
		t.Errorf("GetUserAgent() length = %d, want %d", len(got), maxUserAgentLen)
	}
}

func TestGetUserAgent_Passthrough(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0")

	if got := GetUserAgent(r); got != "Mozilla/5.0" {
		t.Errorf("GetUserAgent() = %q, want %q", got, "Mozilla/5.0")
	}
}
