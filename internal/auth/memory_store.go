package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore keeps sessions in-process. Sessions do not survive a
// restart of the panel.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
}

// NewMemorySessionStore constructs an in-memory store implementation.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]SessionRecord)}
}

func (s *MemorySessionStore) Save(_ context.Context, rec SessionRecord) error {
	s.mu.Lock()
	s.sessions[rec.TokenHash] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, tokenHash string) (SessionRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.sessions[tokenHash]
	s.mu.RUnlock()
	return rec, ok, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	delete(s.sessions, tokenHash)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.sessions {
		if now.After(rec.ExpiresAt) {
			delete(s.sessions, key)
			n++
		}
	}
	return n, nil
}

func (s *MemorySessionStore) Ping(context.Context) error { return nil }

// Len reports the number of stored sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
