package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "single value", value: "value1", expected: []string{"value1"}},
		{name: "multiple values", value: "value1, value2, value3", expected: []string{"value1", "value2", "value3"}},
		{name: "quoted values", value: `"a", 'b'`, expected: []string{"a", "b"}},
		{name: "empty parts dropped", value: "a,,b,", expected: []string{"a", "b"}},
		{name: "empty", value: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.value)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() length = %v, want %v", len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", key: "TEST_BOOL", value: "true", def: false, expected: true},
		{name: "false value", key: "TEST_BOOL_FALSE", value: "false", def: true, expected: false},
		{name: "invalid value uses default", key: "TEST_BOOL_INVALID", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", key: "TEST_BOOL_MISSING", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CTFBOT_CONFIG_FILE", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval = %v, want 1m", cfg.RefreshInterval)
	}
	if cfg.DBDialect != "sqlite" {
		t.Errorf("DBDialect = %q, want sqlite", cfg.DBDialect)
	}
	if cfg.IPCSocket != "/tmp/k17_bot_ipc.sock" {
		t.Errorf("IPCSocket = %q", cfg.IPCSocket)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
	if cfg.RetiredRetention != 0 {
		t.Errorf("RetiredRetention = %v, want 0 (retired rows kept)", cfg.RetiredRetention)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctfbot.yaml")
	content := `
log_level: warn
refresh_interval: 30s
leaderboard_size: 5
allowed_origins:
  - https://panel.example.com
  - https://admin.example.com
REDIS_POOL_SIZE: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// Environment wins over the file.
	t.Setenv("CTFBOT_LEADERBOARD_SIZE", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { overlay = map[string]string{} })

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.LeaderboardSize != 7 {
		t.Errorf("LeaderboardSize = %d, want 7 (env override)", cfg.LeaderboardSize)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.RedisPoolSize != 4 {
		t.Errorf("RedisPoolSize = %d, want 4", cfg.RedisPoolSize)
	}
}

func TestLoadRejectsUnknownDialect(t *testing.T) {
	t.Setenv("CTFBOT_DB_DIALECT", "mysql")

	if _, err := Load(""); err == nil {
		t.Error("Load() should reject an unknown dialect")
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	t.Setenv("CTFBOT_DB_DIALECT", "postgres")
	t.Setenv("CTFBOT_DB_DSN", "")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(""); err == nil {
		t.Error("Load() should require a DSN for postgres")
	}
}

func TestRequireBot(t *testing.T) {
	t.Run("missing token panics", func(t *testing.T) {
		t.Setenv("CTFBOT_DISCORD_TOKEN", "")
		cfg := &Config{RefreshInterval: time.Minute}
		defer func() {
			if r := recover(); r == nil {
				t.Error("RequireBot() should have panicked")
			}
		}()
		cfg.RequireBot()
	})

	t.Run("non numeric channel panics", func(t *testing.T) {
		t.Setenv("CTFBOT_DISCORD_TOKEN", "token")
		t.Setenv("CTFBOT_FALLBACK_CHANNEL_ID", "general")
		cfg := &Config{RefreshInterval: time.Minute}
		defer func() {
			if r := recover(); r == nil {
				t.Error("RequireBot() should have panicked")
			}
		}()
		cfg.RequireBot()
	})

	t.Run("valid", func(t *testing.T) {
		t.Setenv("CTFBOT_DISCORD_TOKEN", "token")
		t.Setenv("CTFBOT_FALLBACK_CHANNEL_ID", "913554033065750541")
		cfg := &Config{RefreshInterval: time.Minute}
		cfg.RequireBot()
		if cfg.FallbackChannelID != "913554033065750541" {
			t.Errorf("FallbackChannelID = %q", cfg.FallbackChannelID)
		}
	})
}
