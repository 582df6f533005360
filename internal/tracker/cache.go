package tracker

import (
	"context"
	"fmt"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/errors"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// GetAll returns a copy of the cache keyed by message id as text.
func (e *Engine) GetAll() map[string]domain.CacheEntry {
	view := *e.view.Load()
	out := make(map[string]domain.CacheEntry, len(view))
	for id, entry := range view {
		out[id.String()] = entry.Clone()
	}
	return out
}

// GetOne returns a single cache entry without touching the store.
func (e *Engine) GetOne(messageID domain.Snowflake) (domain.CacheEntry, error) {
	entry, ok := (*e.view.Load())[messageID]
	if !ok {
		return domain.CacheEntry{}, errors.NewNotFound("message", messageID.String())
	}
	return entry.Clone(), nil
}

// Reload replaces the cache from the store.
func (e *Engine) Reload(ctx context.Context) error {
	return e.submit(ctx, "reload", e.reconcile)
}

// reconcile loads every active leaderboard row and replaces the cache
// wholesale. An empty store gets one bootstrap counter in the fallback channel.
func (e *Engine) reconcile(ctx context.Context) error {
	rows, err := e.store.GetTrackedMessages(ctx, store.TrackedMessageFilter{FeatureType: domain.FeatureCTFLeaderboard})
	if err != nil {
		return fmt.Errorf("failed to load tracked messages: %w", err)
	}

	if len(rows) > 0 {
		next := make(cacheMap, len(rows))
		for i := range rows {
			next[rows[i].MessageID] = rows[i].Entry()
		}
		e.cache = next
		e.logger.Info("tracked messages loaded", logger.Int("count", len(next)))
		return nil
	}

	// Nothing active remains, so nothing stale may survive a failed bootstrap.
	e.cache = cacheMap{}
	e.logger.Info("no tracked messages found, creating bootstrap counter",
		logger.Stringer("channel_id", e.opts.FallbackChannelID))

	msg, err := e.createLive(ctx, e.opts.FallbackChannelID, domain.SubtypeCounter, &domain.CounterMetadata{Count: 0})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap counter: %w", err)
	}
	e.cache = cacheMap{msg.MessageID: msg.Entry()}
	return nil
}
