package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"
)

// Audit action types written by the bot.
const (
	ActionCounterSet     = "counter_set"
	ActionMessageCreated = "message_created"
	ActionMessageDeleted = "message_deleted"
	ActionMessageRetired = "message_retired"
)

// AuditEntry is one audit_logs row.
type AuditEntry struct {
	ID         int64            `json:"id"`
	GuildID    domain.Snowflake `json:"guild_id"`
	UserID     domain.Snowflake `json:"user_id,omitempty"` // zero for actions taken by the bot itself
	ActionType string           `json:"action_type"`
	Details    map[string]any   `json:"details"`
	Timestamp  time.Time        `json:"timestamp"`
}

type auditRow struct {
	ID         int64          `db:"id"`
	GuildID    int64          `db:"guild_id"`
	UserID     sql.NullInt64  `db:"user_id"`
	ActionType string         `db:"action_type"`
	Details    sql.NullString `db:"details"`
	Timestamp  time.Time      `db:"timestamp"`
}

func (s *SQLStore) LogAction(ctx context.Context, entry AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	user := sql.NullInt64{Int64: int64(entry.UserID), Valid: !entry.UserID.IsZero()}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO audit_logs (guild_id, user_id, action_type, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`), int64(entry.GuildID), user, entry.ActionType, string(details), ts)
	if err != nil {
		return fmt.Errorf("log action %s: %w", entry.ActionType, err)
	}
	return nil
}

// GetAuditLogs returns the newest entries for a guild, optionally one action type.
func (s *SQLStore) GetAuditLogs(ctx context.Context, guildID domain.Snowflake, limit int, actionType string) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT id, guild_id, user_id, action_type, details, timestamp FROM audit_logs WHERE guild_id = ?"
	args := []any{int64(guildID)}
	if actionType != "" {
		query += " AND action_type = ?"
		args = append(args, actionType)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("get audit logs for %s: %w", guildID, err)
	}

	out := make([]AuditEntry, 0, len(rows))
	for _, r := range rows {
		e := AuditEntry{
			ID:         r.ID,
			GuildID:    domain.Snowflake(r.GuildID),
			ActionType: r.ActionType,
			Timestamp:  r.Timestamp,
		}
		if r.UserID.Valid {
			e.UserID = domain.Snowflake(r.UserID.Int64)
		}
		if r.Details.Valid {
			// Malformed details degrade to empty.
			_ = json.Unmarshal([]byte(r.Details.String), &e.Details)
		}
		out = append(out, e)
	}
	return out, nil
}
