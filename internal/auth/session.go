package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidUser is returned when creating a session without a user name.
var ErrInvalidUser = errors.New("user is required")

// SessionStore persists sessions keyed by the hash of their token.
type SessionStore interface {
	Save(ctx context.Context, record SessionRecord) error
	Get(ctx context.Context, tokenHash string) (SessionRecord, bool, error)
	Delete(ctx context.Context, tokenHash string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
	Ping(ctx context.Context) error
}

// SessionRecord is one stored session. The raw token is never stored.
type SessionRecord struct {
	TokenHash         string    `json:"token_hash"`
	User              string    `json:"user"`
	ExpiresAt         time.Time `json:"expires_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
}

// Session is what a validated token resolves to.
type Session struct {
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionOption configures a SessionManager instance.
type SessionOption func(*SessionManager)

// WithStore injects a custom SessionStore implementation.
func WithStore(store SessionStore) SessionOption {
	return func(m *SessionManager) {
		if store != nil {
			m.store = store
		}
	}
}

// WithIdleTimeout expires sessions left unused for d. Each successful
// Validate pushes the expiry forward, never past the absolute TTL.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// SessionManager coordinates session creation and validation against a backing store.
type SessionManager struct {
	store       SessionStore
	absoluteTTL time.Duration
	idleTimeout time.Duration
	tokenLength int
	now         func() time.Time
}

// NewSessionManager constructs a SessionManager with the provided absolute TTL.
// Without WithStore it keeps sessions in memory.
func NewSessionManager(ttl time.Duration, opts ...SessionOption) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	m := &SessionManager{
		absoluteTTL: ttl,
		tokenLength: 32,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.store == nil {
		m.store = NewMemorySessionStore()
	}
	return m
}

// Create issues a new session token for user.
func (m *SessionManager) Create(ctx context.Context, user string) (string, time.Time, error) {
	if user == "" {
		return "", time.Time{}, ErrInvalidUser
	}
	token, err := generateToken(m.tokenLength)
	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now()
	absolute := now.Add(m.absoluteTTL)
	expires := absolute
	if m.idleTimeout > 0 && now.Add(m.idleTimeout).Before(absolute) {
		expires = now.Add(m.idleTimeout)
	}

	err = m.store.Save(ctx, SessionRecord{
		TokenHash:         hashToken(token),
		User:              user,
		ExpiresAt:         expires.UTC(),
		AbsoluteExpiresAt: absolute.UTC(),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Validate resolves a token. ok is false for unknown or expired tokens.
func (m *SessionManager) Validate(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}
	key := hashToken(token)
	rec, ok, err := m.store.Get(ctx, key)
	if err != nil || !ok {
		return Session{}, false, err
	}

	now := m.now()
	absolute := rec.AbsoluteExpiresAt
	if absolute.IsZero() {
		absolute = rec.ExpiresAt
	}
	if now.After(rec.ExpiresAt) || now.After(absolute) {
		_ = m.store.Delete(ctx, key)
		return Session{}, false, nil
	}

	expires := rec.ExpiresAt
	if m.idleTimeout > 0 {
		refreshTo := now.Add(m.idleTimeout)
		if refreshTo.After(absolute) {
			refreshTo = absolute
		}
		if refreshTo.After(rec.ExpiresAt) {
			rec.ExpiresAt = refreshTo.UTC()
			if err := m.store.Save(ctx, rec); err != nil {
				return Session{}, false, err
			}
			expires = refreshTo
		}
	}
	return Session{User: rec.User, ExpiresAt: expires}, true, nil
}

// Revoke deletes the session behind token.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, hashToken(token))
}

// PurgeExpired removes expired sessions and reports how many went.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int, error) {
	return m.store.PurgeExpired(ctx, m.now())
}

// Ping verifies the session store is reachable.
func (m *SessionManager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func generateToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
