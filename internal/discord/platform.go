package discord

import (
	"context"
	"errors"

	"github.com/k17ctf/ctfbot/internal/domain"
)

// Sentinel errors. Implementations wrap them so callers can branch with errors.Is.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotTextChannel  = errors.New("channel is not a text channel")
	ErrForbidden       = errors.New("missing permissions")
)

// Channel is the subset of channel state the bot needs.
type Channel struct {
	ID      domain.Snowflake
	GuildID domain.Snowflake
	Name    string
}

// Message is a posted chat message.
type Message struct {
	ID        domain.Snowflake
	ChannelID domain.Snowflake
	GuildID   domain.Snowflake
	Content   string
}

// Thread is an open discussion thread under a forum channel.
type Thread struct {
	ID   domain.Snowflake
	Name string
}

// Platform is everything the tracker asks of the chat platform.
type Platform interface {
	// TextChannel resolves a channel that messages can be posted to.
	// Returns ErrChannelNotFound or ErrNotTextChannel otherwise.
	TextChannel(ctx context.Context, channelID domain.Snowflake) (*Channel, error)

	SendMessage(ctx context.Context, channelID domain.Snowflake, content string) (*Message, error)
	FetchMessage(ctx context.Context, channelID, messageID domain.Snowflake) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID domain.Snowflake, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID domain.Snowflake) error

	// ActiveForumThreads lists non-archived threads whose parent is forumID.
	ActiveForumThreads(ctx context.Context, forumID domain.Snowflake) ([]Thread, error)
}
