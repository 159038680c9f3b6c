package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"remote only", "", "192.0.2.1:54321", "192.0.2.1"},
		{"forwarded single", "203.0.113.5", "10.0.0.1:80", "203.0.113.5"},
		{"forwarded chain", "203.0.113.5, 70.41.3.18, 150.172.238.178", "10.0.0.1:80", "203.0.113.5"},
		{"forwarded blank hop", " , 70.41.3.18", "10.0.0.1:80", "10.0.0.1"},
		{"ipv6 remote", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote without port", "", "unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientAddress(r); got != tt.want {
				t.Fatalf("ClientAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}
