package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/logger"
)

// Session implements Platform on a discordgo gateway session.
type Session struct {
	dg    *discordgo.Session
	log   logger.Logger
	ready chan struct{}
}

var _ Platform = (*Session)(nil)

// New prepares a session. Call Open to connect.
func New(token string, log logger.Logger) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	s := &Session{dg: dg, log: log, ready: make(chan struct{})}
	dg.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info("✅ Discord session ready",
			logger.String("user", r.User.Username),
			logger.Int("guilds", len(r.Guilds)),
			logger.String("bot_id", r.User.ID))
		close(s.ready)
	})
	return s, nil
}

// Open connects to the gateway and waits for the Ready event so the
// channel state cache is populated before the first lookup.
func (s *Session) Open(ctx context.Context) error {
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	wait, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	select {
	case <-s.ready:
		return nil
	case <-wait.Done():
		_ = s.dg.Close()
		return fmt.Errorf("discord gateway not ready: %w", wait.Err())
	}
}

func (s *Session) Close() error {
	return s.dg.Close()
}

func (s *Session) TextChannel(ctx context.Context, channelID domain.Snowflake) (*Channel, error) {
	ch, err := s.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !isTextChannel(ch.Type) {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotTextChannel)
	}
	return toChannel(ch), nil
}

// channel prefers the gateway state cache and falls back to REST.
func (s *Session) channel(ctx context.Context, channelID domain.Snowflake) (*discordgo.Channel, error) {
	if ch, err := s.dg.State.Channel(channelID.String()); err == nil {
		return ch, nil
	}
	ch, err := s.dg.Channel(channelID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("resolve channel %s: %w", channelID, mapError(err, ErrChannelNotFound))
	}
	return ch, nil
}

func (s *Session) SendMessage(ctx context.Context, channelID domain.Snowflake, content string) (*Message, error) {
	m, err := s.dg.ChannelMessageSend(channelID.String(), content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", channelID, mapError(err, ErrChannelNotFound))
	}
	return toMessage(m)
}

func (s *Session) FetchMessage(ctx context.Context, channelID, messageID domain.Snowflake) (*Message, error) {
	m, err := s.dg.ChannelMessage(channelID.String(), messageID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, mapError(err, ErrMessageNotFound))
	}
	return toMessage(m)
}

func (s *Session) EditMessage(ctx context.Context, channelID, messageID domain.Snowflake, content string) error {
	_, err := s.dg.ChannelMessageEdit(channelID.String(), messageID.String(), content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, mapError(err, ErrMessageNotFound))
	}
	return nil
}

func (s *Session) DeleteMessage(ctx context.Context, channelID, messageID domain.Snowflake) error {
	err := s.dg.ChannelMessageDelete(channelID.String(), messageID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, mapError(err, ErrMessageNotFound))
	}
	return nil
}

func (s *Session) ActiveForumThreads(ctx context.Context, forumID domain.Snowflake) ([]Thread, error) {
	forum, err := s.channel(ctx, forumID)
	if err != nil {
		return nil, err
	}
	list, err := s.dg.GuildThreadsActive(forum.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list active threads in guild %s: %w", forum.GuildID, mapError(err, ErrChannelNotFound))
	}
	return forumThreads(list.Threads, forum.ID), nil
}

func forumThreads(threads []*discordgo.Channel, forumID string) []Thread {
	var out []Thread
	for _, th := range threads {
		if th.ParentID != forumID {
			continue
		}
		if th.ThreadMetadata != nil && th.ThreadMetadata.Archived {
			continue
		}
		id, err := domain.ParseSnowflake(th.ID)
		if err != nil {
			continue
		}
		out = append(out, Thread{ID: id, Name: th.Name})
	}
	return out
}

func isTextChannel(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return true
	default:
		return false
	}
}

// mapError translates REST failures into sentinels. notFound is the sentinel
// used for a bare 404 without a JSON error code.
func mapError(err error, notFound error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage:
			return fmt.Errorf("%w: %v", ErrMessageNotFound, err)
		case discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", ErrChannelNotFound, err)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	if rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", notFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	return err
}

func toChannel(ch *discordgo.Channel) *Channel {
	id, _ := domain.ParseSnowflake(ch.ID)
	guild, _ := domain.ParseSnowflake(ch.GuildID)
	return &Channel{ID: id, GuildID: guild, Name: ch.Name}
}

func toMessage(m *discordgo.Message) (*Message, error) {
	id, err := domain.ParseSnowflake(m.ID)
	if err != nil {
		return nil, err
	}
	ch, _ := domain.ParseSnowflake(m.ChannelID)
	guild, _ := domain.ParseSnowflake(m.GuildID)
	return &Message{ID: id, ChannelID: ch, GuildID: guild, Content: m.Content}, nil
}
