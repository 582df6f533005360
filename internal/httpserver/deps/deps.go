package deps

import (
	"context"
	"io/fs"
	"time"

	"github.com/k17ctf/ctfbot/internal/auth"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/ipc"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// Bot relays administrative requests to the running bot.
type Bot interface {
	Do(ctx context.Context, req ipc.Request) (*ipc.Response, error)
}

// Messages is the read-only view of the tracked message table.
type Messages interface {
	GetTrackedMessages(ctx context.Context, filter store.TrackedMessageFilter) ([]domain.TrackedMessage, error)
	GetTrackedMessage(ctx context.Context, messageID domain.Snowflake) (*domain.TrackedMessage, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time     // for testing, defaults to time.Now
	AllowedHosts   []string             // Host headers allowed to access the server
	AllowedCIDRS   []string             // IPs allowed to reach the panel and readyz
	AllowedOrigins []string             // CORS origins, "*" allows any
	TrustProxy     bool                 // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Bot            Bot                  // IPC client to the bot process
	Messages       Messages             // tracked message table
	Sessions       *auth.SessionManager // panel sessions
	SessionBackend string               // "memory" | "redis", reported by /api/infra
	Credentials    auth.Credentials     // the single panel login
	CookieSecure   bool                 // set Secure on the session cookie
	LoginBurst     int                  // login attempts allowed per IP before throttling
	LoginPerMinute int                  // login attempts refilled per IP per minute
	RequestTimeout time.Duration        // per-request deadline, must cover one IPC exchange
	Static         fs.FS                // frontend files (index.html at the root)
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
