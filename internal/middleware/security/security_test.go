package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted peer ignores xff", remote: "203.0.113.7:5000", xff: "1.1.1.1", want: "203.0.113.7"},
		{name: "trusted proxy xff", remote: "10.0.0.2:80", xff: "198.51.100.1, 10.0.0.2", want: "198.51.100.1"},
		{name: "trusted proxy x-real-ip", remote: "127.0.0.1:80", xri: "198.51.100.9", want: "198.51.100.9"},
		{name: "garbage xff", remote: "192.168.1.1:80", xff: "nope", want: "192.168.1.1"},
		{name: "no port", remote: "198.51.100.4", want: "198.51.100.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/transactions", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{name: "normal", method: http.MethodGet, target: "/api/transactions?category=Food", agent: "curl/8.0", want: false},
		{name: "traversal", method: http.MethodGet, target: "/../etc/passwd", want: true},
		{name: "sql in query", method: http.MethodGet, target: "/transactions?category=x%27+union+select", want: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: true},
		{name: "trace method", method: "TRACE", target: "/", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Fatalf("DetectSuspiciousRequest = %v, want %v", got, tt.want)
			}
		})
	}
	if got := d.GetMetrics().SuspiciousRequests; got != 3 {
		t.Fatalf("suspicious count = %d, want 3", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/budgets", nil))
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing %s", name)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/budgets", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS expected over TLS")
	}
}
