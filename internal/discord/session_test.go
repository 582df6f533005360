package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "boom"},
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound error
		want     error
	}{
		{name: "unknown message", err: restError(404, discordgo.ErrCodeUnknownMessage), notFound: ErrMessageNotFound, want: ErrMessageNotFound},
		{name: "unknown channel", err: restError(404, discordgo.ErrCodeUnknownChannel), notFound: ErrMessageNotFound, want: ErrChannelNotFound},
		{name: "missing access", err: restError(403, discordgo.ErrCodeMissingAccess), notFound: ErrChannelNotFound, want: ErrForbidden},
		{name: "missing permissions", err: restError(403, discordgo.ErrCodeMissingPermissions), notFound: ErrChannelNotFound, want: ErrForbidden},
		{name: "bare 404", err: restError(404, 0), notFound: ErrChannelNotFound, want: ErrChannelNotFound},
		{name: "bare 403", err: restError(403, 0), notFound: ErrMessageNotFound, want: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, tt.notFound), tt.want)
		})
	}
}

func TestMapErrorLeavesTransientErrors(t *testing.T) {
	transient := restError(502, 0)
	got := mapError(transient, ErrMessageNotFound)
	assert.Equal(t, transient, got)
	assert.False(t, errors.Is(got, ErrMessageNotFound))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapError(plain, ErrMessageNotFound))
}

func TestIsTextChannel(t *testing.T) {
	assert.True(t, isTextChannel(discordgo.ChannelTypeGuildText))
	assert.True(t, isTextChannel(discordgo.ChannelTypeGuildNews))
	assert.False(t, isTextChannel(discordgo.ChannelTypeGuildVoice))
	assert.False(t, isTextChannel(discordgo.ChannelTypeGuildForum))
}

func TestForumThreads(t *testing.T) {
	threads := []*discordgo.Channel{
		{ID: "1", ParentID: "100", Name: "web/login-bypass"},
		{ID: "2", ParentID: "100", Name: "pwn/heap", ThreadMetadata: &discordgo.ThreadMetadata{Archived: true}},
		{ID: "3", ParentID: "200", Name: "other forum"},
		{ID: "bad", ParentID: "100", Name: "unparseable"},
	}

	got := forumThreads(threads, "100")
	assert.Equal(t, []Thread{{ID: domain.Snowflake(1), Name: "web/login-bypass"}}, got)
}

func TestToMessage(t *testing.T) {
	m, err := toMessage(&discordgo.Message{ID: "913554033065750541", ChannelID: "55", GuildID: "66", Content: "Counting: 0"})
	assert.NoError(t, err)
	assert.Equal(t, domain.Snowflake(913554033065750541), m.ID)
	assert.Equal(t, domain.Snowflake(66), m.GuildID)

	_, err = toMessage(&discordgo.Message{ID: ""})
	assert.Error(t, err)
}
