package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect selects the SQL engine behind the store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// FeatureReactionRoles is the feature type of reaction-role messages.
const FeatureReactionRoles = "reaction_roles"

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Options configures Open.
type Options struct {
	Dialect      Dialect
	SQLitePath   string
	DSN          string
	MaxOpenConns int
}

// TrackedMessageFilter narrows GetTrackedMessages. Zero values mean "any".
type TrackedMessageFilter struct {
	FeatureType     string
	GuildID         domain.Snowflake
	IncludeInactive bool
}

// Store is the persistence interface.
type Store interface {
	AddTrackedMessage(ctx context.Context, msg *domain.TrackedMessage) (int64, error)
	GetTrackedMessages(ctx context.Context, filter TrackedMessageFilter) ([]domain.TrackedMessage, error)
	GetTrackedMessage(ctx context.Context, messageID domain.Snowflake) (*domain.TrackedMessage, error)
	UpdateTrackedMessageMetadata(ctx context.Context, messageID domain.Snowflake, md domain.Metadata) error
	DeactivateTrackedMessage(ctx context.Context, messageID domain.Snowflake) error
	DeleteTrackedMessage(ctx context.Context, messageID domain.Snowflake) error

	AddReactionRole(ctx context.Context, rr ReactionRole) error
	GetReactionRoles(ctx context.Context, messageID domain.Snowflake) ([]ReactionRole, error)
	GetReactionRoleMessages(ctx context.Context) ([]ReactionRoleMessage, error)

	LogAction(ctx context.Context, entry AuditEntry) error
	GetAuditLogs(ctx context.Context, guildID domain.Snowflake, limit int, actionType string) ([]AuditEntry, error)

	Ping(ctx context.Context) error
	Close() error
}

// SQLStore implements Store over sqlx for both dialects.
type SQLStore struct {
	dialect Dialect
	db      *sqlx.DB
	now     func() time.Time
}

// Open connects, pings and applies pending migrations.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	var driverName, dsn string
	switch opts.Dialect {
	case DialectSQLite, "":
		opts.Dialect = DialectSQLite
		driverName = "sqlite"
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join("data", "ctfbot.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	case DialectPostgres:
		driverName = "pgx"
		dsn = opts.DSN
		if dsn == "" {
			return nil, errors.New("postgres dialect requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Dialect, err)
	}
	if opts.Dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", opts.Dialect, err)
	}

	s := &SQLStore{dialect: opts.Dialect, db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Dialect reports the engine in use.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) migrate(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var done []string
	if err := s.db.SelectContext(ctx, &done, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(done))
	for _, v := range done {
		applied[v] = true
	}

	files, err := migrationFiles(s.dialect)
	if err != nil {
		return err
	}
	for _, file := range files {
		version := filepath.Base(file)
		if applied[version] {
			continue
		}
		ddl, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, string(ddl)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"), version, s.now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", version, err)
		}
	}
	return nil
}

func migrationFiles(d Dialect) ([]string, error) {
	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", d))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// q rewrites ? placeholders for the active driver.
func (s *SQLStore) q(query string) string { return s.db.Rebind(strings.TrimSpace(query)) }
