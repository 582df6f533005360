package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// RetiredStore is the slice of the store the collector needs.
type RetiredStore interface {
	GetTrackedMessages(ctx context.Context, filter store.TrackedMessageFilter) ([]domain.TrackedMessage, error)
	DeleteTrackedMessage(ctx context.Context, messageID domain.Snowflake) error
}

// GarbageCollector hard-deletes tracked messages that have been retired for
// longer than the threshold. Active rows are never touched. A zero threshold
// disables it and retired rows are kept forever.
type GarbageCollector struct {
	store     RetiredStore
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	st RetiredStore,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold < 0 {
		threshold = 0
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &GarbageCollector{
		store:     st,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Enabled reports whether a retention threshold is configured.
func (gc *GarbageCollector) Enabled() bool {
	return gc.threshold > 0
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if !gc.Enabled() {
		gc.logger.Info("retired message retention disabled, keeping all rows")
		return nil
	}

	// Run immediately on start
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
}

// Collect removes retired rows older than the threshold and reports how many went.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	if !gc.Enabled() {
		return 0, nil
	}

	rows, err := gc.store.GetTrackedMessages(ctx, store.TrackedMessageFilter{IncludeInactive: true})
	if err != nil {
		return 0, err
	}

	now := gc.now()
	deleted := 0
	for _, msg := range rows {
		if msg.IsActive || msg.UpdatedAt.IsZero() {
			continue
		}
		retiredFor := now.Sub(msg.UpdatedAt)
		if retiredFor < gc.threshold {
			continue
		}

		// Best effort, the next run retries.
		if err := gc.store.DeleteTrackedMessage(ctx, msg.MessageID); err != nil {
			gc.logger.Warn("failed to delete retired message",
				logger.Stringer("message_id", msg.MessageID),
				logger.Error(err))
			continue
		}

		gc.logger.Info("garbage collected retired message",
			logger.Stringer("message_id", msg.MessageID),
			logger.Stringer("channel_id", msg.ChannelID),
			logger.String("retired_for", retiredFor.String()))
		deleted++
	}

	if deleted > 0 {
		gc.logger.Info("garbage collection completed", logger.Int("deleted", deleted))
	} else {
		gc.logger.Debug("no retired messages to garbage collect")
	}
	return deleted, nil
}
