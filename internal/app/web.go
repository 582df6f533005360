package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/k17ctf/ctfbot/internal/auth"
	"github.com/k17ctf/ctfbot/internal/config"
	"github.com/k17ctf/ctfbot/internal/httpserver"
	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/httpserver/static"
	"github.com/k17ctf/ctfbot/internal/ipc"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/redis"
	"github.com/k17ctf/ctfbot/internal/scheduler"
	"github.com/k17ctf/ctfbot/internal/store"
	"github.com/k17ctf/ctfbot/internal/version"
)

// Web is the control panel process. It reaches the bot only over IPC and
// reads the database directly for the tracked-message listing.
type Web struct {
	cfg         *config.Config
	logger      logger.Logger
	store       *store.SQLStore
	redisClient *goredis.Client
	sweeper     *scheduler.SessionSweeper
	server      *httpserver.Server
}

// NewWeb wires the panel process.
func NewWeb(ctx context.Context, cfg *config.Config) (*Web, error) {
	cfg.RequireWeb()
	log := NewLogger(cfg)

	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// Sessions live in Redis when configured so logins survive restarts.
	backend := "memory"
	var sessionStore auth.SessionStore = auth.NewMemorySessionStore()
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log.Named("redis"))
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		sessionStore = auth.NewRedisSessionStore(redisClient)
		backend = "redis"
	}

	sessions := auth.NewSessionManager(cfg.SessionTTL,
		auth.WithStore(sessionStore),
		auth.WithIdleTimeout(cfg.SessionIdleTimeout))

	d := deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		Bot:            ipc.NewClient(cfg.IPCSocket, cfg.IPCTimeout),
		Messages:       st,
		Sessions:       sessions,
		SessionBackend: backend,
		Credentials:    auth.Credentials{User: cfg.PanelUser, PasswordHash: cfg.PanelPasswordHash},
		CookieSecure:   cfg.CookieSecure,
		LoginBurst:     cfg.LoginBurst,
		LoginPerMinute: cfg.LoginPerMinute,
		RequestTimeout: cfg.IPCTimeout + 5*time.Second,
		Static:         static.FS(cfg.StaticDir),
	}

	return &Web{
		cfg:         cfg,
		logger:      log,
		store:       st,
		redisClient: redisClient,
		sweeper:     scheduler.NewSessionSweeper(sessions, log.Named("sessions"), cfg.SessionSweep),
		server:      httpserver.New(cfg.ListenPort, log, d),
	}, nil
}

// Run serves the panel until SIGINT/SIGTERM.
func (w *Web) Run() error {
	w.logger.Infof("🚀 Starting ctfbot panel %s on %s", version.Version, w.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.server.Start(); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		w.logger.Info("⏳ Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ShutdownTimeout)
		defer cancel()
		if err := w.server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return nil
	})
	err := g.Wait()

	w.sweeper.Stop()
	w.close()
	return err
}

func (w *Web) close() {
	if w.redisClient != nil {
		if err := w.redisClient.Close(); err != nil {
			w.logger.Warnf("failed to close redis: %v", err)
		} else {
			w.logger.Info("✅ Redis closed cleanly")
		}
	}
	if err := w.store.Close(); err != nil {
		w.logger.Warn("failed to close database", logger.Error(err))
	}
	w.logger.Info("✅ ctfbot panel stopped cleanly")
}
