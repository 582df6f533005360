package tracker

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/k17ctf/ctfbot/internal/ctfd"
	"github.com/k17ctf/ctfbot/internal/discord"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/errors"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// CreateRequest describes a new tracked message.
type CreateRequest struct {
	ChannelID      domain.Snowflake
	Subtype        domain.Subtype
	InitialCounter uint64

	// ctfd_tracker only
	Domain         string
	APIKey         string
	ForumChannelID domain.Snowflake
}

// Created identifies a freshly tracked message.
type Created struct {
	MessageID domain.Snowflake `json:"message_id"`
	ChannelID domain.Snowflake `json:"channel_id"`
	GuildID   domain.Snowflake `json:"guild_id"`
}

// SetCounter overwrites a counter's value. The store is authoritative: once
// it is written, a failed live edit is logged and the call still succeeds.
func (e *Engine) SetCounter(ctx context.Context, messageID domain.Snowflake, value uint64) error {
	return e.submit(ctx, "set_counter", func(ctx context.Context) error {
		entry, ok := e.cache[messageID]
		if !ok {
			return errors.NewNotFound("message", messageID.String())
		}
		prev, ok := entry.Counter()
		if !ok {
			return errors.NewInvalidRequest(fmt.Sprintf("message %s is not a counter", messageID))
		}

		updated := &domain.CounterMetadata{Count: value}
		if err := e.store.UpdateTrackedMessageMetadata(ctx, messageID, updated); err != nil {
			return errors.NewInternal(fmt.Errorf("failed to persist counter: %w", err))
		}
		entry.Metadata = updated
		e.cache[messageID] = entry

		if err := e.platform.EditMessage(ctx, entry.ChannelID, messageID, CounterContent(value)); err != nil {
			e.logger.Warn("counter stored but live message not updated",
				logger.Stringer("message_id", messageID),
				logger.Uint64("counter", value),
				logger.Error(err))
		}

		e.logger.Info("counter set",
			logger.Stringer("message_id", messageID),
			logger.Uint64("from", prev),
			logger.Uint64("to", value))
		e.audit(ctx, entry.GuildID, store.ActionCounterSet, map[string]any{
			"message_id": messageID.String(),
			"previous":   prev,
			"value":      value,
		})
		return nil
	})
}

// Create posts a new tracked message and starts tracking it.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	var created *Created
	err := e.submit(ctx, "create_message", func(ctx context.Context) error {
		md, err := e.validateCreate(req)
		if err != nil {
			return err
		}

		msg, err := e.createLive(ctx, req.ChannelID, req.Subtype, md)
		if err != nil {
			return err
		}
		e.cache[msg.MessageID] = msg.Entry()

		e.logger.Info("tracked message created",
			logger.Stringer("message_id", msg.MessageID),
			logger.Stringer("channel_id", msg.ChannelID),
			logger.String("message_type", msg.Subtype.String()))
		e.audit(ctx, msg.GuildID, store.ActionMessageCreated, map[string]any{
			"message_id":   msg.MessageID.String(),
			"channel_id":   msg.ChannelID.String(),
			"message_type": msg.Subtype.String(),
		})

		created = &Created{MessageID: msg.MessageID, ChannelID: msg.ChannelID, GuildID: msg.GuildID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *Engine) validateCreate(req CreateRequest) (domain.Metadata, error) {
	if req.ChannelID.IsZero() {
		return nil, errors.NewInvalidRequest("channel_id is required")
	}

	switch req.Subtype {
	case domain.SubtypeCounter:
		return &domain.CounterMetadata{Count: req.InitialCounter}, nil
	case domain.SubtypeCTFdTracker:
		if req.Domain == "" {
			return nil, errors.NewInvalidRequest("ctfd_domain is required for ctfd_tracker messages")
		}
		base, err := ctfd.NormalizeDomain(req.Domain)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		return &domain.CTFdMetadata{Domain: base, APIKey: req.APIKey, ForumChannelID: req.ForumChannelID}, nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown message type %q", req.Subtype))
	}
}

// createLive resolves the channel, posts the initial content and persists
// the row. The cache is left to the caller so it is only written after the
// store write succeeded.
func (e *Engine) createLive(ctx context.Context, channelID domain.Snowflake, subtype domain.Subtype, md domain.Metadata) (*domain.TrackedMessage, error) {
	ch, err := e.platform.TextChannel(ctx, channelID)
	if err != nil {
		switch {
		case stderrors.Is(err, discord.ErrForbidden):
			return nil, errors.NewForbidden(fmt.Sprintf("Bot cannot access channel %s", channelID))
		case stderrors.Is(err, discord.ErrChannelNotFound), stderrors.Is(err, discord.ErrNotTextChannel):
			return nil, errors.NewInvalidRequest(fmt.Sprintf("Channel %s not found or is not a text channel", channelID))
		default:
			return nil, errors.NewInternal(fmt.Errorf("resolve channel %s: %w", channelID, err))
		}
	}

	content := ""
	switch v := md.(type) {
	case *domain.CounterMetadata:
		content = CounterContent(v.Count)
	case *domain.CTFdMetadata:
		content, err = e.renderCTFd(ctx, v)
		if err != nil {
			e.logger.Warn("initial leaderboard render failed, posting placeholder",
				logger.String("domain", v.Domain),
				logger.Error(err))
			content = pendingContent(v)
		}
	}

	sent, err := e.platform.SendMessage(ctx, channelID, content)
	if err != nil {
		if stderrors.Is(err, discord.ErrForbidden) {
			return nil, errors.NewForbidden(fmt.Sprintf("Bot does not have permission to send messages in channel %s", channelID))
		}
		return nil, errors.NewInternal(fmt.Errorf("send message: %w", err))
	}

	msg := &domain.TrackedMessage{
		MessageID:   sent.ID,
		ChannelID:   channelID,
		GuildID:     ch.GuildID,
		FeatureType: domain.FeatureCTFLeaderboard,
		Subtype:     subtype,
		Metadata:    md,
		IsActive:    true,
	}
	id, err := e.store.AddTrackedMessage(ctx, msg)
	if err != nil {
		if derr := e.platform.DeleteMessage(ctx, channelID, sent.ID); derr != nil {
			e.logger.Warn("failed to clean up unsaved message",
				logger.Stringer("message_id", sent.ID),
				logger.Error(derr))
		}
		return nil, errors.NewInternal(fmt.Errorf("persist tracked message: %w", err))
	}
	msg.ID = id
	return msg, nil
}

// Delete stops tracking a message. Removing the live message is best effort;
// the store row is soft-deleted and the cache entry dropped either way.
func (e *Engine) Delete(ctx context.Context, messageID domain.Snowflake, deleteLive bool) error {
	return e.submit(ctx, "delete_message", func(ctx context.Context) error {
		entry, ok := e.cache[messageID]
		if !ok {
			return errors.NewNotFound("message", messageID.String())
		}

		if deleteLive {
			if err := e.platform.DeleteMessage(ctx, entry.ChannelID, messageID); err != nil {
				e.logger.Warn("failed to delete live message, continuing",
					logger.Stringer("message_id", messageID),
					logger.Error(err))
			}
		}

		if err := e.store.DeactivateTrackedMessage(ctx, messageID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
			return errors.NewInternal(fmt.Errorf("failed to deactivate tracked message: %w", err))
		}
		delete(e.cache, messageID)

		e.logger.Info("tracked message deleted",
			logger.Stringer("message_id", messageID),
			logger.Bool("live_deleted", deleteLive))
		e.audit(ctx, entry.GuildID, store.ActionMessageDeleted, map[string]any{
			"message_id":     messageID.String(),
			"channel_id":     entry.ChannelID.String(),
			"delete_discord": deleteLive,
		})
		return nil
	})
}
