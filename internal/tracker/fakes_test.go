package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/k17ctf/ctfbot/internal/ctfd"
	"github.com/k17ctf/ctfbot/internal/discord"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	testGuild    domain.Snowflake = 66
	testChannel  domain.Snowflake = 55
	testFallback domain.Snowflake = 913554033065750541
)

var errTransient = errors.New("502 bad gateway")

type fakePlatform struct {
	mu        sync.Mutex
	nextID    domain.Snowflake
	channels  map[domain.Snowflake]discord.Channel
	forbidden map[domain.Snowflake]bool
	messages  map[domain.Snowflake]string
	fetchErr  map[domain.Snowflake]error
	editErr   map[domain.Snowflake]error
	threads   map[domain.Snowflake][]discord.Thread
	edits     int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID: 1000,
		channels: map[domain.Snowflake]discord.Channel{
			testChannel:  {ID: testChannel, GuildID: testGuild, Name: "leaderboard"},
			testFallback: {ID: testFallback, GuildID: testGuild, Name: "general"},
		},
		forbidden: map[domain.Snowflake]bool{},
		messages:  map[domain.Snowflake]string{},
		fetchErr:  map[domain.Snowflake]error{},
		editErr:   map[domain.Snowflake]error{},
		threads:   map[domain.Snowflake][]discord.Thread{},
	}
}

func (f *fakePlatform) content(id domain.Snowflake) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.messages[id]
	return c, ok
}

func (f *fakePlatform) put(id domain.Snowflake, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[id] = content
}

func (f *fakePlatform) TextChannel(_ context.Context, id domain.Snowflake) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil, discord.ErrChannelNotFound
	}
	return &ch, nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID domain.Snowflake, content string) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forbidden[channelID] {
		return nil, discord.ErrForbidden
	}
	f.nextID++
	f.messages[f.nextID] = content
	return &discord.Message{ID: f.nextID, ChannelID: channelID, Content: content}, nil
}

func (f *fakePlatform) FetchMessage(_ context.Context, channelID, messageID domain.Snowflake) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[messageID]; err != nil {
		return nil, err
	}
	c, ok := f.messages[messageID]
	if !ok {
		return nil, discord.ErrMessageNotFound
	}
	return &discord.Message{ID: messageID, ChannelID: channelID, Content: c}, nil
}

func (f *fakePlatform) EditMessage(_ context.Context, _, messageID domain.Snowflake, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editErr[messageID]; err != nil {
		return err
	}
	if _, ok := f.messages[messageID]; !ok {
		return discord.ErrMessageNotFound
	}
	f.messages[messageID] = content
	f.edits++
	return nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _, messageID domain.Snowflake) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return discord.ErrMessageNotFound
	}
	delete(f.messages, messageID)
	return nil
}

func (f *fakePlatform) ActiveForumThreads(_ context.Context, forumID domain.Snowflake) ([]discord.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threads[forumID], nil
}

type fakeScoreboard struct {
	snap  *ctfd.Snapshot
	err   error
	panic bool
}

func (f *fakeScoreboard) Fetch(_ context.Context, _, _ string) (*ctfd.Snapshot, error) {
	if f.panic {
		panic("scoreboard exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

// flakyStore fails selected writes on top of a real store.
type flakyStore struct {
	*store.SQLStore
	failUpdate     bool
	failDeactivate bool
}

func (s *flakyStore) UpdateTrackedMessageMetadata(ctx context.Context, id domain.Snowflake, md domain.Metadata) error {
	if s.failUpdate {
		return errors.New("database is locked")
	}
	return s.SQLStore.UpdateTrackedMessageMetadata(ctx, id, md)
}

func (s *flakyStore) DeactivateTrackedMessage(ctx context.Context, id domain.Snowflake) error {
	if s.failDeactivate {
		return errors.New("database is locked")
	}
	return s.SQLStore.DeactivateTrackedMessage(ctx, id)
}

type harness struct {
	engine     *Engine
	store      *flakyStore
	platform   *fakePlatform
	scoreboard *fakeScoreboard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{
		Dialect:    store.DialectSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "tracker.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		store:    &flakyStore{SQLStore: st},
		platform: newFakePlatform(),
		scoreboard: &fakeScoreboard{snap: &ctfd.Snapshot{
			Standings: []ctfd.Standing{{Pos: 1, Name: "K17", Score: 4200}},
		}},
	}
	h.engine = New(h.store, h.platform, h.scoreboard, logger.Nop(), Options{
		FallbackChannelID: testFallback,
		RefreshInterval:   time.Hour,
	})
	return h
}

// seed stores a tracked message and posts its live counterpart.
func (h *harness) seed(t *testing.T, id domain.Snowflake, md domain.Metadata) {
	t.Helper()
	_, err := h.store.AddTrackedMessage(context.Background(), &domain.TrackedMessage{
		MessageID:   id,
		ChannelID:   testChannel,
		GuildID:     testGuild,
		FeatureType: domain.FeatureCTFLeaderboard,
		Subtype:     md.Subtype(),
		Metadata:    md,
	})
	require.NoError(t, err)
	h.platform.put(id, "seeded")
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.engine.Start(context.Background()))
	t.Cleanup(h.engine.Stop)
}

func (h *harness) storedCounter(t *testing.T, id domain.Snowflake) uint64 {
	t.Helper()
	msg, err := h.store.GetTrackedMessage(context.Background(), id)
	require.NoError(t, err)
	c, ok := msg.Metadata.(*domain.CounterMetadata)
	require.True(t, ok)
	return c.Count
}
