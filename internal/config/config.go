package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CTFBOT_"

type Config struct {
	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // rotating log file, empty disables
	LogMaxSizeMB  int    // rotate after N megabytes (default: 10)
	LogMaxBackups int    // rotated files kept (default: 5)

	// Bot
	DiscordToken      string        // gateway token
	FallbackChannelID string        // channel receiving the bootstrap counter when the store is empty
	RefreshInterval   time.Duration // tracked message refresh cadence (default: 1m)
	CTFdTimeout       time.Duration // scoreboard API timeout (default: 10s)
	LeaderboardSize   int           // standings rendered per tracker (default: 10)
	GCInterval        time.Duration // retired row cleanup cadence (default: 24h)
	RetiredRetention  time.Duration // how long retired rows are kept, 0 keeps them forever (default: 0)

	// Database
	DBDialect      string // "sqlite" | "postgres"
	DBSQLitePath   string // ex: ./data/ctfbot.db
	DBDSN          string // postgres DSN
	DBMaxOpenConns int    // pool size

	// Administrative channel
	IPCSocket  string        // unix socket path shared by bot and panel
	IPCTimeout time.Duration // deadline for one request/reply exchange

	// Web control panel
	ListenPort         string        // ex: ":8000"
	ShutdownTimeout    time.Duration // ex: 5s
	StaticDir          string        // optional on-disk frontend overriding the embedded one
	PanelUser          string        // login user name
	PanelPasswordHash  string        // pbkdf2 hash produced by `ctfbot hash-password`
	SessionTTL         time.Duration // absolute session lifetime
	SessionIdleTimeout time.Duration // idle expiry, refreshed on use
	SessionSweep       time.Duration // expired session purge interval
	AllowedOrigins     []string      // CORS origins, "*" allows any
	AllowedCIDRS       []string      // optional, restrict panel access to specific IPs
	AllowedHosts       []string      // optional, Host headers the panel answers to
	CookieSecure       bool          // true => session cookie carries the Secure flag
	TrustProxy         bool          // true => trust X-Forwarded-For headers
	LoginBurst         int           // failed logins allowed per IP and username before throttling
	LoginPerMinute     int           // failed-login allowance refilled per minute

	// Redis (session store, optional)
	RedisAddr           string        // ex: "localhost:6379", empty => in-memory sessions
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
}

// overlay holds values read from the optional YAML config file. Environment
// variables always win over it.
var overlay = map[string]string{}

// Load reads configuration shared by every subcommand. path is an optional
// YAML file whose keys are the lower-case variable names without the prefix
// (ex: `log_level: debug`).
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG_FILE")
	}
	if err := loadOverlay(path); err != nil {
		return nil, err
	}

	cfg := &Config{
		// Logging
		LogLevel:      getenv("CTFBOT_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("CTFBOT_PRETTY_LOG", true),
		LogFile:       getenv("CTFBOT_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("CTFBOT_LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getenvInt("CTFBOT_LOG_MAX_BACKUPS", 5),

		// Bot
		DiscordToken:      getenv("CTFBOT_DISCORD_TOKEN", ""),
		FallbackChannelID: getenv("CTFBOT_FALLBACK_CHANNEL_ID", ""),
		RefreshInterval:   mustDuration("CTFBOT_REFRESH_INTERVAL", time.Minute),
		CTFdTimeout:       mustDuration("CTFBOT_CTFD_TIMEOUT", 10*time.Second),
		LeaderboardSize:   getenvInt("CTFBOT_LEADERBOARD_SIZE", 10),
		GCInterval:        mustDuration("CTFBOT_GC_INTERVAL", 24*time.Hour),
		RetiredRetention:  mustDuration("CTFBOT_RETIRED_RETENTION", 0),

		// Database
		DBDialect:      strings.ToLower(getenv("CTFBOT_DB_DIALECT", "sqlite")),
		DBSQLitePath:   getenv("CTFBOT_DB_SQLITE_PATH", "./data/ctfbot.db"),
		DBDSN:          getenv("CTFBOT_DB_DSN", os.Getenv("DATABASE_URL")),
		DBMaxOpenConns: getenvInt("CTFBOT_DB_MAX_OPEN_CONNS", 10),

		// IPC
		IPCSocket:  getenv("CTFBOT_IPC_SOCKET", "/tmp/k17_bot_ipc.sock"),
		IPCTimeout: mustDuration("CTFBOT_IPC_TIMEOUT", 30*time.Second),

		// Web
		ListenPort:         getenv("CTFBOT_LISTEN_PORT", ":8000"),
		ShutdownTimeout:    mustDuration("CTFBOT_SHUTDOWN_TIMEOUT", 5*time.Second),
		StaticDir:          getenv("CTFBOT_STATIC_DIR", ""),
		PanelUser:          getenv("CTFBOT_PANEL_USER", "admin"),
		PanelPasswordHash:  getenv("CTFBOT_PANEL_PASSWORD_HASH", ""),
		SessionTTL:         mustDuration("CTFBOT_SESSION_TTL", 24*time.Hour),
		SessionIdleTimeout: mustDuration("CTFBOT_SESSION_IDLE_TIMEOUT", 2*time.Hour),
		SessionSweep:       mustDuration("CTFBOT_SESSION_SWEEP_INTERVAL", 10*time.Minute),
		AllowedOrigins:     splitAndTrim(getenv("CTFBOT_ALLOWED_ORIGINS", "*")),
		AllowedCIDRS:       parseAllowedIPs(getenv("CTFBOT_ALLOWED_CIDRS", "")),
		AllowedHosts:       splitAndTrim(getenv("CTFBOT_ALLOWED_HOSTS", "")),
		CookieSecure:       mustBool("CTFBOT_COOKIE_SECURE", false),
		TrustProxy:         mustBool("CTFBOT_TRUST_PROXY", false),
		LoginBurst:         getenvInt("CTFBOT_LOGIN_BURST", 5),
		LoginPerMinute:     getenvInt("CTFBOT_LOGIN_PER_MINUTE", 5),

		// Redis settings
		RedisAddr:           getenv("CTFBOT_REDIS_ADDR", ""),
		RedisUser:           getenv("CTFBOT_REDIS_USERNAME", ""),
		RedisPassword:       getenv("CTFBOT_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("CTFBOT_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
	}

	switch cfg.DBDialect {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported CTFBOT_DB_DIALECT %q", cfg.DBDialect)
	}
	if cfg.DBDialect == "postgres" && cfg.DBDSN == "" {
		return nil, fmt.Errorf("CTFBOT_DB_DIALECT=postgres requires CTFBOT_DB_DSN or DATABASE_URL")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.DiscordToken = "***REDACTED***"
		cfgCopy.PanelPasswordHash = "***REDACTED***"
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.DBDSN = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg, nil
}

// RequireBot panics when a variable only the bot process needs is missing.
func (c *Config) RequireBot() {
	c.DiscordToken = requireEnv("CTFBOT_DISCORD_TOKEN")
	c.FallbackChannelID = requireEnv("CTFBOT_FALLBACK_CHANNEL_ID")
	if _, err := strconv.ParseUint(c.FallbackChannelID, 10, 64); err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid channel id for CTFBOT_FALLBACK_CHANNEL_ID: %s", c.FallbackChannelID))
	}
	if c.RefreshInterval <= 0 {
		panic("❌ FATAL: CTFBOT_REFRESH_INTERVAL must be > 0")
	}
}

// RequireWeb panics when a variable only the control panel needs is missing.
func (c *Config) RequireWeb() {
	c.PanelPasswordHash = requireEnv("CTFBOT_PANEL_PASSWORD_HASH")
}

func loadOverlay(path string) error {
	overlay = map[string]string{}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config yaml: %w", err)
	}

	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		if !strings.HasPrefix(key, envPrefix) && !strings.HasPrefix(key, "REDIS_") {
			key = envPrefix + key
		}
		switch val := v.(type) {
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			overlay[key] = strings.Join(parts, ",")
		case nil:
		default:
			overlay[key] = fmt.Sprint(val)
		}
	}
	return nil
}

// helpers
func lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return overlay[key]
}

func getenv(key, def string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := lookup(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
