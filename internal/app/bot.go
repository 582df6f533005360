package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/k17ctf/ctfbot/internal/config"
	"github.com/k17ctf/ctfbot/internal/ctfd"
	"github.com/k17ctf/ctfbot/internal/discord"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/ipc"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/scheduler"
	"github.com/k17ctf/ctfbot/internal/store"
	"github.com/k17ctf/ctfbot/internal/tracker"
	"github.com/k17ctf/ctfbot/internal/version"
)

// Bot is the Discord process: gateway session, tracker engine and the
// administrative socket.
type Bot struct {
	cfg     *config.Config
	logger  logger.Logger
	store   *store.SQLStore
	session *discord.Session
	engine  *tracker.Engine
	ipc     *ipc.Server
	gc      *scheduler.GarbageCollector
}

// NewBot wires the bot process. Nothing connects until Run.
func NewBot(ctx context.Context, cfg *config.Config) (*Bot, error) {
	cfg.RequireBot()
	log := NewLogger(cfg)

	fallback, err := domain.ParseSnowflake(cfg.FallbackChannelID)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback channel: %w", err)
	}

	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	session, err := discord.New(cfg.DiscordToken, log.Named("discord"))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine := tracker.New(st, session, ctfd.NewClient(cfg.CTFdTimeout), log.Named("tracker"), tracker.Options{
		FallbackChannelID: fallback,
		RefreshInterval:   cfg.RefreshInterval,
		LeaderboardSize:   cfg.LeaderboardSize,
	})

	return &Bot{
		cfg:     cfg,
		logger:  log,
		store:   st,
		session: session,
		engine:  engine,
		ipc:     ipc.NewServer(cfg.IPCSocket, engine, log.Named("ipc"), cfg.IPCTimeout),
		gc:      scheduler.NewGarbageCollector(st, log.Named("gc"), cfg.GCInterval, cfg.RetiredRetention),
	}, nil
}

// Run connects to Discord, reconciles the cache and serves until SIGINT/SIGTERM.
func (b *Bot) Run() error {
	b.logger.Infof("🚀 Starting ctfbot %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer b.closeStore()

	if err := b.session.Open(ctx); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("failed to close discord session", logger.Error(err))
		}
	}()

	// Reconciliation must finish before the first tick; a failure here is fatal.
	if err := b.engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}
	defer b.engine.Stop()
	b.logger.Info("tracker started",
		logger.Int("tracked", len(b.engine.GetAll())),
		logger.Duration("interval", b.cfg.RefreshInterval))

	if err := b.ipc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ipc server: %w", err)
	}
	defer b.ipc.Stop()

	if err := b.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	defer b.gc.Stop()

	<-ctx.Done()
	b.logger.Info("⏳ Shutting down gracefully...")
	return nil
}

func (b *Bot) closeStore() {
	if err := b.store.Close(); err != nil {
		b.logger.Warn("failed to close database", logger.Error(err))
		return
	}
	b.logger.Info("✅ Database closed cleanly")
}
