package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"
)

type trackedMessageRow struct {
	ID          int64          `db:"id"`
	MessageID   int64          `db:"message_id"`
	ChannelID   int64          `db:"channel_id"`
	GuildID     int64          `db:"guild_id"`
	FeatureType string         `db:"feature_type"`
	MessageType string         `db:"message_type"`
	Metadata    sql.NullString `db:"metadata"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

const trackedMessageColumns = `id, message_id, channel_id, guild_id, feature_type, message_type, metadata, is_active, created_at, updated_at`

func (r trackedMessageRow) toDomain() domain.TrackedMessage {
	// Unknown subtypes fall back to counter rather than dropping the row.
	subtype, err := domain.ParseSubtype(r.MessageType)
	if err != nil {
		subtype = domain.SubtypeCounter
	}
	return domain.TrackedMessage{
		ID:          r.ID,
		MessageID:   domain.Snowflake(r.MessageID),
		ChannelID:   domain.Snowflake(r.ChannelID),
		GuildID:     domain.Snowflake(r.GuildID),
		FeatureType: r.FeatureType,
		Subtype:     subtype,
		Metadata:    domain.DecodeMetadata(subtype, []byte(r.Metadata.String)),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// AddTrackedMessage inserts the message, or on a message_id conflict replaces
// its metadata and reactivates it. Returns the row id.
func (s *SQLStore) AddTrackedMessage(ctx context.Context, msg *domain.TrackedMessage) (int64, error) {
	md := msg.Metadata
	if md == nil {
		md = domain.DecodeMetadata(msg.Subtype, nil)
	}
	blob, err := domain.EncodeMetadata(md)
	if err != nil {
		return 0, fmt.Errorf("encode metadata for %s: %w", msg.MessageID, err)
	}

	now := s.now()
	var id int64
	err = s.db.GetContext(ctx, &id, s.q(`
		INSERT INTO tracked_messages
			(message_id, channel_id, guild_id, feature_type, message_type, metadata, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?)
		ON CONFLICT (message_id) DO UPDATE SET
			metadata = excluded.metadata,
			is_active = TRUE,
			updated_at = excluded.updated_at
		RETURNING id
	`), int64(msg.MessageID), int64(msg.ChannelID), int64(msg.GuildID), msg.FeatureType,
		string(msg.Subtype), string(blob), now, now)
	if err != nil {
		return 0, fmt.Errorf("upsert tracked message %s: %w", msg.MessageID, err)
	}
	return id, nil
}

// GetTrackedMessages lists tracked messages newest first.
func (s *SQLStore) GetTrackedMessages(ctx context.Context, filter TrackedMessageFilter) ([]domain.TrackedMessage, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeInactive {
		conds = append(conds, "is_active = ?")
		args = append(args, true)
	}
	if filter.FeatureType != "" {
		conds = append(conds, "feature_type = ?")
		args = append(args, filter.FeatureType)
	}
	if !filter.GuildID.IsZero() {
		conds = append(conds, "guild_id = ?")
		args = append(args, int64(filter.GuildID))
	}

	query := "SELECT " + trackedMessageColumns + " FROM tracked_messages"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	var rows []trackedMessageRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list tracked messages: %w", err)
	}

	out := make([]domain.TrackedMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetTrackedMessage returns one active tracked message or ErrNotFound.
func (s *SQLStore) GetTrackedMessage(ctx context.Context, messageID domain.Snowflake) (*domain.TrackedMessage, error) {
	var row trackedMessageRow
	err := s.db.GetContext(ctx, &row, s.q(
		"SELECT "+trackedMessageColumns+" FROM tracked_messages WHERE message_id = ? AND is_active = ?"),
		int64(messageID), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tracked message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked message %s: %w", messageID, err)
	}
	msg := row.toDomain()
	return &msg, nil
}

func (s *SQLStore) UpdateTrackedMessageMetadata(ctx context.Context, messageID domain.Snowflake, md domain.Metadata) error {
	blob, err := domain.EncodeMetadata(md)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", messageID, err)
	}
	return s.execOne(ctx, "update metadata", messageID, `
		UPDATE tracked_messages SET metadata = ?, updated_at = ? WHERE message_id = ?
	`, string(blob), s.now(), int64(messageID))
}

// DeactivateTrackedMessage soft-deletes the row; it stays for audit.
func (s *SQLStore) DeactivateTrackedMessage(ctx context.Context, messageID domain.Snowflake) error {
	return s.execOne(ctx, "deactivate", messageID, `
		UPDATE tracked_messages SET is_active = ?, updated_at = ? WHERE message_id = ?
	`, false, s.now(), int64(messageID))
}

// DeleteTrackedMessage removes the row and, by cascade, its reaction roles.
func (s *SQLStore) DeleteTrackedMessage(ctx context.Context, messageID domain.Snowflake) error {
	return s.execOne(ctx, "delete", messageID, `DELETE FROM tracked_messages WHERE message_id = ?`, int64(messageID))
}

func (s *SQLStore) execOne(ctx context.Context, op string, messageID domain.Snowflake, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("%s tracked message %s: %w", op, messageID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s tracked message %s: %w", op, messageID, ErrNotFound)
	}
	return nil
}
