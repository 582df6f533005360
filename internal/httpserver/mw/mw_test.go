package mw

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/k17ctf/ctfbot/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantStatus int
		wantOrigin string
		wantCreds  bool
	}{
		{name: "no origin passes", allowed: []string{"https://a.example"}, method: http.MethodGet, wantStatus: 200},
		{name: "listed origin", allowed: []string{"https://a.example/"}, origin: "https://a.example", method: http.MethodGet, wantStatus: 200, wantOrigin: "https://a.example", wantCreds: true},
		{name: "wildcard is not credentialed", allowed: []string{"*"}, origin: "https://b.example", method: http.MethodGet, wantStatus: 200, wantOrigin: "*"},
		{name: "listed origin beats wildcard", allowed: []string{"*", "https://a.example"}, origin: "https://a.example", method: http.MethodOptions, wantStatus: 204, wantOrigin: "https://a.example", wantCreds: true},
		{name: "unlisted origin gets no headers", allowed: []string{"https://a.example"}, origin: "https://evil.example", method: http.MethodGet, wantStatus: 200},
		{name: "unlisted preflight rejected", allowed: []string{"https://a.example"}, origin: "https://evil.example", method: http.MethodOptions, wantStatus: 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/cache", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %v, want %v", got, tt.wantCreds)
			}
		})
	}
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"panel.example.com", "panel.example.com", true},
		{"panel.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"panel.other.com", "*.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestEnforceHostIgnoresPortAndCase(t *testing.T) {
	h := EnforceHost([]string{"Panel.Example.com", "*.k17.dev"}, logger.Nop())(okHandler)

	tests := []struct {
		host string
		want int
	}{
		{"panel.example.com:8000", http.StatusOK},
		{"PANEL.example.com", http.StatusOK},
		{"ctf.k17.dev", http.StatusOK},
		{"k17.dev", http.StatusForbidden},
		{"evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/cache", nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.host, rec.Code, tt.want)
		}
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8", "192.168.1.5"}, false, logger.Nop())(okHandler)

	tests := []struct {
		remote string
		want   int
	}{
		{"10.1.2.3:5555", http.StatusOK},
		{"192.168.1.5:80", http.StatusOK},
		{"8.8.8.8:443", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.remote, rec.Code, tt.want)
		}
	}
}

func TestLoginLimiterRefill(t *testing.T) {
	l := newLoginLimiter(LoginLimitConfig{Burst: 2, RefillPerMinute: 60})
	now := time.Now()

	for i := 0; i < 2; i++ {
		if stop, _ := l.blocked("1.2.3.4|admin", now); stop {
			t.Fatalf("attempt %d should pass", i)
		}
		l.fail("1.2.3.4|admin", now)
	}
	stop, retry := l.blocked("1.2.3.4|admin", now)
	if !stop {
		t.Fatal("third attempt should be throttled")
	}
	if retry != 1 {
		t.Errorf("retry = %d, want 1", retry)
	}
	if stop, _ := l.blocked("1.2.3.4|other", now); stop {
		t.Error("other usernames have their own bucket")
	}
	if stop, _ := l.blocked("1.2.3.4|admin", now.Add(time.Second)); stop {
		t.Error("one token should refill after a second")
	}
}

func TestLoginRateLimitCountsOnlyFailures(t *testing.T) {
	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"password":"right"`) {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := LoginRateLimit(LoginLimitConfig{Burst: 2, RefillPerMinute: 1}, logger.Nop())(login)

	post := func(user, password string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login",
			strings.NewReader(`{"username":"`+user+`","password":"`+password+`"}`))
		req.RemoteAddr = "10.0.0.1:4444"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Successful logins never use up attempts.
	for i := 0; i < 5; i++ {
		if code := post("admin", "right"); code != http.StatusOK {
			t.Fatalf("good login %d: status = %d", i, code)
		}
	}

	if code := post("admin", "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if code := post("admin", "right"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	// The success above cleared the bucket, so two more failures fit.
	for i := 0; i < 2; i++ {
		if code := post("Admin", "wrong"); code != http.StatusUnauthorized {
			t.Fatalf("failure %d: status = %d, want 401", i, code)
		}
	}
	if code := post("admin", "right"); code != http.StatusTooManyRequests {
		t.Errorf("exhausted key: status = %d, want 429", code)
	}
	if code := post("someone", "wrong"); code != http.StatusUnauthorized {
		t.Errorf("other username: status = %d, want 401", code)
	}
}

func TestLogRecordsSessionUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Log(logger.FromZap(zap.New(core)), false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NoteUser(r.Context(), "admin")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/reload-cache", nil)
	req.RemoteAddr = "10.0.0.1:4444"
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log lines, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn for a mutation", e.Level)
	}
	fields := e.ContextMap()
	if fields["user"] != "admin" {
		t.Errorf("user = %v, want admin", fields["user"])
	}
	if fields["client_ip"] != "10.0.0.1" {
		t.Errorf("client_ip = %v", fields["client_ip"])
	}
	if fields["status"] != int64(http.StatusNoContent) {
		t.Errorf("status = %v", fields["status"])
	}

	// Outside Log, NoteUser is a no-op.
	NoteUser(context.Background(), "nobody")
}
