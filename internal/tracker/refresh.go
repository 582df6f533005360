package tracker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/k17ctf/ctfbot/internal/discord"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// Refresh runs one refresh pass now instead of waiting for the next tick.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.submit(ctx, "refresh", e.refreshAll)
}

// refreshAll re-renders every cached message. Entries are independent: a
// failure on one is logged and never stops the others.
func (e *Engine) refreshAll(ctx context.Context) error {
	start := time.Now()
	ids := make([]domain.Snowflake, 0, len(e.cache))
	for id := range e.cache {
		ids = append(ids, id)
	}

	for _, id := range ids {
		entry, ok := e.cache[id]
		if !ok {
			continue
		}
		e.refreshSafely(ctx, id, entry)
	}

	e.logger.Debug("refresh pass complete",
		logger.Int("entries", len(ids)),
		logger.Duration("took", time.Since(start)))
	return nil
}

func (e *Engine) refreshSafely(ctx context.Context, id domain.Snowflake, entry domain.CacheEntry) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("refresh panicked",
				logger.Stringer("message_id", id),
				logger.String("panic", fmt.Sprint(r)))
		}
	}()
	e.refreshEntry(ctx, id, entry)
}

func (e *Engine) refreshEntry(ctx context.Context, id domain.Snowflake, entry domain.CacheEntry) {
	if _, err := e.platform.TextChannel(ctx, entry.ChannelID); err != nil {
		e.logger.Warn("channel unavailable, skipping",
			logger.Stringer("message_id", id),
			logger.Stringer("channel_id", entry.ChannelID),
			logger.Error(err))
		return
	}

	if _, err := e.platform.FetchMessage(ctx, entry.ChannelID, id); err != nil {
		if stderrors.Is(err, discord.ErrMessageNotFound) {
			e.retire(ctx, id, entry)
			return
		}
		e.logger.Warn("failed to fetch message, will retry next tick",
			logger.Stringer("message_id", id),
			logger.Error(err))
		return
	}

	switch md := entry.Metadata.(type) {
	case *domain.CounterMetadata:
		e.advanceCounter(ctx, id, entry, md)
	case *domain.CTFdMetadata:
		content, err := e.renderCTFd(ctx, md)
		if err != nil {
			e.logger.Warn("failed to render leaderboard",
				logger.Stringer("message_id", id),
				logger.String("domain", md.Domain),
				logger.Error(err))
			return
		}
		if err := e.platform.EditMessage(ctx, entry.ChannelID, id, content); err != nil {
			e.logger.Warn("failed to edit leaderboard message",
				logger.Stringer("message_id", id),
				logger.Error(err))
		}
	default:
		e.logger.Warn("unsupported metadata, skipping",
			logger.Stringer("message_id", id),
			logger.String("message_type", entry.Subtype.String()))
	}
}

// advanceCounter edits first; only a successful edit moves the cache and
// then the store. A failed store write leaves the store one tick behind.
func (e *Engine) advanceCounter(ctx context.Context, id domain.Snowflake, entry domain.CacheEntry, md *domain.CounterMetadata) {
	next := md.Count + 1
	if err := e.platform.EditMessage(ctx, entry.ChannelID, id, CounterContent(next)); err != nil {
		e.logger.Warn("failed to edit counter message",
			logger.Stringer("message_id", id),
			logger.Error(err))
		return
	}

	updated := &domain.CounterMetadata{Count: next}
	entry.Metadata = updated
	e.cache[id] = entry

	if err := e.store.UpdateTrackedMessageMetadata(ctx, id, updated); err != nil {
		e.logger.Warn("failed to persist counter, store behind cache",
			logger.Stringer("message_id", id),
			logger.Uint64("counter", next),
			logger.Error(err))
	}
}

// retire handles a message deleted on the platform side. If the store write
// fails the entry stays cached and retirement is retried next tick.
func (e *Engine) retire(ctx context.Context, id domain.Snowflake, entry domain.CacheEntry) {
	if err := e.store.DeactivateTrackedMessage(ctx, id); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		e.logger.Error("failed to retire tracked message",
			logger.Stringer("message_id", id),
			logger.Error(err))
		return
	}
	delete(e.cache, id)

	e.logger.Info("tracked message no longer exists, retired",
		logger.Stringer("message_id", id),
		logger.Stringer("channel_id", entry.ChannelID))
	e.audit(ctx, entry.GuildID, store.ActionMessageRetired, map[string]any{
		"message_id": id.String(),
		"channel_id": entry.ChannelID.String(),
	})
}

// audit records an action; failures only log.
func (e *Engine) audit(ctx context.Context, guildID domain.Snowflake, action string, details map[string]any) {
	err := e.store.LogAction(ctx, store.AuditEntry{
		GuildID:    guildID,
		ActionType: action,
		Details:    details,
		Timestamp:  e.now().UTC(),
	})
	if err != nil {
		e.logger.Warn("failed to write audit log",
			logger.String("action", action),
			logger.Error(err))
	}
}
