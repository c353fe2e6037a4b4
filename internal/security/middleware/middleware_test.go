package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/hrmslite/internal/security/audit"
)

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		limiter *stubLimiter
		path    string
		want    int
	}{
		{"allowed", &stubLimiter{allow: true}, "/api/employees", http.StatusOK},
		{"denied", &stubLimiter{allow: false}, "/api/employees", http.StatusTooManyRequests},
		{"health check bypass", &stubLimiter{allow: false}, "/healthz", http.StatusOK},
		{"backend failure fails open", &stubLimiter{err: errors.New("down")}, "/api/attendance", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.limiter, discardLogger())(okHandler)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	if got := ClientIP(req); got != "192.0.2.10" {
		t.Errorf("ClientIP = %q, want 192.0.2.10", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("ClientIP with forwarded = %q, want 203.0.113.7", got)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc123" {
		t.Errorf("context request id = %q, want abc123", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("response header = %q, want abc123", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("generated request id not propagated: ctx=%q header=%q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/employees", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}
