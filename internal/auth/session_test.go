package auth

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(ttl time.Duration, opts ...SessionOption) (*SessionManager, *MemorySessionStore, *clock) {
	store := NewMemorySessionStore()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewSessionManager(ttl, append([]SessionOption{WithStore(store)}, opts...)...)
	m.now = c.now
	return m, store, c
}

func TestSessionManagerCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(time.Hour)

	token, expires, err := m.Create(ctx, "admin")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(token))
	}
	if store.Len() != 1 {
		t.Fatalf("expected one stored session, got %d", store.Len())
	}
	if _, ok, _ := store.Get(ctx, token); ok {
		t.Fatal("raw token must not be used as the store key")
	}

	sess, ok, err := m.Validate(ctx, token)
	if err != nil || !ok {
		t.Fatalf("Validate = %v, %v; want valid", ok, err)
	}
	if sess.User != "admin" {
		t.Fatalf("User = %q, want admin", sess.User)
	}
	if !sess.ExpiresAt.Equal(expires) {
		t.Fatalf("ExpiresAt = %v, want %v", sess.ExpiresAt, expires)
	}
}

func TestSessionManagerRejectsEmptyUser(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	if _, _, err := m.Create(context.Background(), ""); err != ErrInvalidUser {
		t.Fatalf("Create(\"\") error = %v, want ErrInvalidUser", err)
	}
}

func TestSessionManagerUnknownToken(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	for _, token := range []string{"", "deadbeef"} {
		if _, ok, err := m.Validate(context.Background(), token); ok || err != nil {
			t.Fatalf("Validate(%q) = %v, %v; want invalid without error", token, ok, err)
		}
	}
}

func TestSessionManagerAbsoluteExpiry(t *testing.T) {
	ctx := context.Background()
	m, store, c := newTestManager(time.Hour)

	token, _, err := m.Create(ctx, "admin")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	c.advance(time.Hour + time.Second)

	if _, ok, _ := m.Validate(ctx, token); ok {
		t.Fatal("expired session validated")
	}
	if store.Len() != 0 {
		t.Fatal("expired session should be removed on validation")
	}
}

func TestSessionManagerIdleTimeoutSlides(t *testing.T) {
	ctx := context.Background()
	m, _, c := newTestManager(time.Hour, WithIdleTimeout(10*time.Minute))

	token, expires, err := m.Create(ctx, "admin")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if want := c.t.Add(10 * time.Minute); !expires.Equal(want) {
		t.Fatalf("initial expiry = %v, want %v", expires, want)
	}

	// Keep the session busy past the idle window.
	for i := 0; i < 5; i++ {
		c.advance(8 * time.Minute)
		if _, ok, err := m.Validate(ctx, token); !ok || err != nil {
			t.Fatalf("step %d: Validate = %v, %v; want valid", i, ok, err)
		}
	}

	// Idle for too long.
	c.advance(11 * time.Minute)
	if _, ok, _ := m.Validate(ctx, token); ok {
		t.Fatal("idle session validated")
	}
}

func TestSessionManagerIdleNeverPassesAbsolute(t *testing.T) {
	ctx := context.Background()
	m, _, c := newTestManager(30*time.Minute, WithIdleTimeout(20*time.Minute))
	start := c.t

	token, _, err := m.Create(ctx, "admin")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	c.advance(15 * time.Minute)
	sess, ok, _ := m.Validate(ctx, token)
	if !ok {
		t.Fatal("session should still be valid")
	}
	if want := start.Add(30 * time.Minute); !sess.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want capped at %v", sess.ExpiresAt, want)
	}
	c.advance(16 * time.Minute)
	if _, ok, _ := m.Validate(ctx, token); ok {
		t.Fatal("session outlived its absolute TTL")
	}
}

func TestSessionManagerRevoke(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(time.Hour)

	token, _, _ := m.Create(ctx, "admin")
	if err := m.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, ok, _ := m.Validate(ctx, token); ok {
		t.Fatal("revoked session validated")
	}
}

func TestSessionManagerPurgeExpired(t *testing.T) {
	ctx := context.Background()
	m, store, c := newTestManager(time.Hour)

	if _, _, err := m.Create(ctx, "old"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	c.advance(45 * time.Minute)
	if _, _, err := m.Create(ctx, "new"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	c.advance(30 * time.Minute)

	n, err := m.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired returned error: %v", err)
	}
	if n != 1 || store.Len() != 1 {
		t.Fatalf("purged %d, remaining %d; want 1 and 1", n, store.Len())
	}
}
