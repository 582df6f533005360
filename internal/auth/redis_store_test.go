package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSessionKey(t *testing.T) {
	if got := sessionKey("abc"); got != "ctfbot:session:abc" {
		t.Fatalf("sessionKey = %q", got)
	}
}

// Runs against a real server when CTFBOT_TEST_REDIS_ADDR is set.
func TestRedisSessionStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("CTFBOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CTFBOT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSessionStore(client)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	rec := SessionRecord{
		TokenHash:         hashToken("token-" + time.Now().String()),
		User:              "admin",
		ExpiresAt:         time.Now().Add(time.Minute).UTC(),
		AbsoluteExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, rec.TokenHash) })

	got, ok, err := store.Get(ctx, rec.TokenHash)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v; want found", ok, err)
	}
	if got.User != "admin" {
		t.Fatalf("User = %q", got.User)
	}
	ttl := client.TTL(ctx, sessionKey(rec.TokenHash)).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("TTL = %v, want within one minute", ttl)
	}

	if err := store.Delete(ctx, rec.TokenHash); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, rec.TokenHash); ok {
		t.Fatal("deleted session still present")
	}
}
