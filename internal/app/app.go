package app

import (
	"context"
	"fmt"

	"github.com/k17ctf/ctfbot/internal/config"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLog,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
}

// OpenStore opens the configured database and applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*store.SQLStore, error) {
	opts := store.Options{
		Dialect:      store.Dialect(cfg.DBDialect),
		SQLitePath:   cfg.DBSQLitePath,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}
	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info("✅ Database ready", logger.String("dialect", cfg.DBDialect))
	return st, nil
}
