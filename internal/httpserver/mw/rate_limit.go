package mw

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/utils"
)

// maxLoginPeek bounds how much of a login body is read to find the username.
const maxLoginPeek = 64 << 10

// LoginLimitConfig tunes the failed-login throttle.
type LoginLimitConfig struct {
	Burst           int // failed attempts allowed back to back
	RefillPerMinute int
	MaxEntries      int
	SweepInterval   time.Duration
	IdleTTL         time.Duration
	TrustProxy      bool
}

type bucket struct {
	tokens   float64
	lastRef  time.Time
	lastSeen time.Time
}

// loginLimiter holds one token bucket per client IP and username. Only
// failed attempts take a token; a successful login clears the bucket.
type loginLimiter struct {
	cfg       LoginLimitConfig
	rate      float64
	capacity  float64
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLoginLimiter(cfg LoginLimitConfig) *loginLimiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMinute < 1 {
		cfg.RefillPerMinute = 1
	}
	return &loginLimiter{
		cfg:       cfg,
		rate:      float64(cfg.RefillPerMinute) / 60.0,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[string]*bucket, 64),
		lastSweep: time.Now(),
	}
}

// refillLocked tops up b for the time since its last refill.
func (l *loginLimiter) refillLocked(b *bucket, now time.Time) {
	if elapsed := now.Sub(b.lastRef).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		b.lastRef = now
	}
}

// blocked reports whether key has no attempts left and, if so, how long to wait.
func (l *loginLimiter) blocked(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		l.sweepLocked(now)
	}

	b := l.buckets[key]
	if b == nil {
		return false, 0
	}
	l.refillLocked(b, now)
	if b.tokens >= 1.0 {
		return false, 0
	}
	sec := int(math.Ceil((1.0 - b.tokens) / l.rate))
	return true, max(sec, 1)
}

// fail takes one token from key and returns what is left.
func (l *loginLimiter) fail(key string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries {
		l.sweepLocked(now)
	}

	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.capacity, lastRef: now}
		l.buckets[key] = b
	}
	l.refillLocked(b, now)
	b.tokens = math.Max(0, b.tokens-1.0)
	b.lastSeen = now
	return int(math.Floor(b.tokens))
}

func (l *loginLimiter) reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *loginLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// loginKey pairs the client IP with the lowercased username from the JSON
// body. The body is restored for the handler.
func loginKey(r *http.Request, trustProxy bool) string {
	ip := utils.ClientIP(r, trustProxy)
	if r.Body == nil {
		return ip
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLoginPeek))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ip
	}

	var body struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ip
	}
	return ip + "|" + strings.ToLower(strings.TrimSpace(body.Username))
}

// LoginRateLimit throttles password guessing per client IP and username.
// Requests answered 401 take a token; an exhausted key gets 429 with
// Retry-After until the bucket refills.
func LoginRateLimit(cfg LoginLimitConfig, log logger.Logger) func(http.Handler) http.Handler {
	l := newLoginLimiter(cfg)
	limitStr := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			key := loginKey(r, l.cfg.TrustProxy)

			if stop, retry := l.blocked(key, now); stop {
				log.Warn("login throttled",
					logger.String("key", key),
					logger.Int("retry_after", retry))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Limit", limitStr)
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeDetail(w, http.StatusTooManyRequests, "Too many failed login attempts")
				return
			}

			ww := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(ww, r)

			switch ww.status {
			case http.StatusUnauthorized:
				remaining := l.fail(key, time.Now())
				log.Debug("failed login counted",
					logger.String("key", key),
					logger.Int("remaining", remaining))
			case http.StatusOK:
				l.reset(key)
			}
		})
	}
}
