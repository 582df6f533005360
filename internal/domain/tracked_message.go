package domain

import (
	"encoding/json"
	"time"
)

// TrackedMessage is a Discord message whose content the bot maintains.
//
// It mirrors one row of the tracked_messages table. Placement fields are set
// at creation and never change afterwards.
type TrackedMessage struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the store row id.
	ID int64

	// MessageID is the Discord message id. Unique across all rows,
	// active or not.
	MessageID Snowflake

	// ChannelID and GuildID place the message.
	ChannelID Snowflake
	GuildID   Snowflake

	// FeatureType groups rows by bot feature (ex: ctf_leaderboard).
	FeatureType string

	// ─────────────────────────────
	// Behaviour
	// ─────────────────────────────

	// Subtype is fixed at creation.
	Subtype Subtype

	// Metadata is the subtype-specific payload.
	Metadata Metadata

	// ─────────────────────────────
	// Liveness
	// ─────────────────────────────

	// IsActive false means retired or deleted; kept for audit.
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry projects the message onto its cache representation.
func (m *TrackedMessage) Entry() CacheEntry {
	md := m.Metadata
	if md == nil {
		md = DecodeMetadata(m.Subtype, nil)
	}
	return CacheEntry{
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Subtype:   m.Subtype,
		Metadata:  md.Clone(),
	}
}

type trackedMessageJSON struct {
	ID          int64     `json:"id"`
	MessageID   Snowflake `json:"message_id"`
	ChannelID   Snowflake `json:"channel_id"`
	GuildID     Snowflake `json:"guild_id"`
	FeatureType string    `json:"feature_type"`
	MessageType Subtype   `json:"message_type"`
	Metadata    any       `json:"metadata"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MarshalJSON renders the row for the control panel, ids as strings.
func (m TrackedMessage) MarshalJSON() ([]byte, error) {
	md := m.Metadata
	if md == nil {
		md = DecodeMetadata(m.Subtype, nil)
	}
	return json.Marshal(trackedMessageJSON{
		ID:          m.ID,
		MessageID:   m.MessageID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		FeatureType: m.FeatureType,
		MessageType: m.Subtype,
		Metadata:    PublicMetadata(md),
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	})
}
