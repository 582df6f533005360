package scheduler

import (
	"context"
	"time"

	"github.com/k17ctf/ctfbot/internal/logger"
)

// SessionPurger drops expired panel sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// SessionSweeper periodically purges expired panel sessions so an in-memory
// store does not grow without bound.
type SessionSweeper struct {
	sessions SessionPurger
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSessionSweeper creates a new sweeper
func NewSessionSweeper(sessions SessionPurger, log logger.Logger, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SessionSweeper{
		sessions: sessions,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (s *SessionSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the sweeper
func (s *SessionSweeper) Stop() {
	close(s.stopCh)
}

// Sweep runs one purge pass.
func (s *SessionSweeper) Sweep(ctx context.Context) int {
	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", logger.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", logger.Int("count", n))
	}
	return n
}
