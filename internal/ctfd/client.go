package ctfd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/k17ctf/ctfbot/internal/utils"
)

// Standing is one scoreboard row.
type Standing struct {
	Pos   int    `json:"pos"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
}

// Challenge is one challenge as seen by the API key's account.
type Challenge struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Value      int64  `json:"value"`
	Solves     int    `json:"solves"`
	SolvedByMe bool   `json:"solved_by_me"`
}

// Snapshot is what one refresh pulls from the competition platform.
type Snapshot struct {
	Standings  []Standing
	Challenges []Challenge
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// Client talks to the CTFd REST API.
type Client struct {
	http *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient creates a new scoreboard client.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NormalizeDomain turns user input into a base URL: bare hosts get https://,
// trailing slashes are dropped.
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("ctfd domain is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid ctfd domain %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid ctfd domain %q: unsupported scheme %s", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid ctfd domain %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Fetch pulls the scoreboard and challenge list concurrently.
func (c *Client) Fetch(ctx context.Context, domain, apiKey string) (*Snapshot, error) {
	base, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := get[[]Standing](gctx, c.http, base+"/api/v1/scoreboard", apiKey)
		if err != nil {
			return fmt.Errorf("fetch scoreboard: %w", err)
		}
		snap.Standings = rows
		return nil
	})
	g.Go(func() error {
		rows, err := get[[]Challenge](gctx, c.http, base+"/api/v1/challenges", apiKey)
		if err != nil {
			return fmt.Errorf("fetch challenges: %w", err)
		}
		snap.Challenges = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func get[T any](ctx context.Context, client *http.Client, endpoint, apiKey string) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Token "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return zero, err
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(bytes.TrimSpace(body))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return zero, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return zero, fmt.Errorf("api error: %s", env.Message)
	}
	return env.Data, nil
}
