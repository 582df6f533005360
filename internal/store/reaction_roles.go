package store

import (
	"context"
	"fmt"

	"github.com/k17ctf/ctfbot/internal/domain"
)

// ReactionRole maps an emoji on a tracked message to a guild role.
type ReactionRole struct {
	MessageID domain.Snowflake `json:"message_id"`
	Emoji     string           `json:"emoji"`
	RoleID    domain.Snowflake `json:"role_id"`
	Mode      string           `json:"mode"` // toggle | add | remove
}

// ReactionRoleMessage groups the reaction roles of one message.
type ReactionRoleMessage struct {
	MessageID domain.Snowflake `json:"message_id"`
	ChannelID domain.Snowflake `json:"channel_id"`
	GuildID   domain.Snowflake `json:"guild_id"`
	Reactions []ReactionRole   `json:"reactions"`
}

type reactionRoleRow struct {
	MessageID int64  `db:"message_id"`
	Emoji     string `db:"emoji"`
	RoleID    int64  `db:"role_id"`
	Mode      string `db:"mode"`
}

func (r reactionRoleRow) toReactionRole() ReactionRole {
	return ReactionRole{
		MessageID: domain.Snowflake(r.MessageID),
		Emoji:     r.Emoji,
		RoleID:    domain.Snowflake(r.RoleID),
		Mode:      r.Mode,
	}
}

// AddReactionRole upserts on (message_id, emoji).
func (s *SQLStore) AddReactionRole(ctx context.Context, rr ReactionRole) error {
	if rr.Mode == "" {
		rr.Mode = "toggle"
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO reaction_role_configs (message_id, emoji, role_id, mode)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (message_id, emoji) DO UPDATE SET
			role_id = excluded.role_id,
			mode = excluded.mode
	`), int64(rr.MessageID), rr.Emoji, int64(rr.RoleID), rr.Mode)
	if err != nil {
		return fmt.Errorf("add reaction role %s on %s: %w", rr.Emoji, rr.MessageID, err)
	}
	return nil
}

// GetReactionRoles returns the configs of an active tracked message.
func (s *SQLStore) GetReactionRoles(ctx context.Context, messageID domain.Snowflake) ([]ReactionRole, error) {
	var rows []reactionRoleRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT rrc.message_id, rrc.emoji, rrc.role_id, rrc.mode
		FROM reaction_role_configs rrc
		JOIN tracked_messages tm ON rrc.message_id = tm.message_id
		WHERE rrc.message_id = ? AND tm.is_active = ?
		ORDER BY rrc.id
	`), int64(messageID), true)
	if err != nil {
		return nil, fmt.Errorf("get reaction roles for %s: %w", messageID, err)
	}

	out := make([]ReactionRole, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toReactionRole())
	}
	return out, nil
}

// GetReactionRoleMessages lists active reaction-role messages with their configs.
func (s *SQLStore) GetReactionRoleMessages(ctx context.Context) ([]ReactionRoleMessage, error) {
	var rows []struct {
		reactionRoleRow
		ChannelID int64 `db:"channel_id"`
		GuildID   int64 `db:"guild_id"`
	}
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT tm.message_id, tm.channel_id, tm.guild_id, rrc.emoji, rrc.role_id, rrc.mode
		FROM tracked_messages tm
		JOIN reaction_role_configs rrc ON tm.message_id = rrc.message_id
		WHERE tm.feature_type = ? AND tm.is_active = ?
		ORDER BY tm.message_id, rrc.id
	`), FeatureReactionRoles, true)
	if err != nil {
		return nil, fmt.Errorf("get reaction role messages: %w", err)
	}

	var out []ReactionRoleMessage
	for _, r := range rows {
		id := domain.Snowflake(r.MessageID)
		if len(out) == 0 || out[len(out)-1].MessageID != id {
			out = append(out, ReactionRoleMessage{
				MessageID: id,
				ChannelID: domain.Snowflake(r.ChannelID),
				GuildID:   domain.Snowflake(r.GuildID),
			})
		}
		last := &out[len(out)-1]
		last.Reactions = append(last.Reactions, r.toReactionRole())
	}
	return out, nil
}
