package ipc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/tracker"
	"github.com/k17ctf/ctfbot/internal/utils"
)

// ErrUnavailable means nothing is listening on the socket. It is a transport
// condition, distinct from an error reply.
var ErrUnavailable = stderrors.New(UnavailableMessage)

// Client sends administrative requests to a running bot.
type Client struct {
	path    string
	timeout time.Duration
}

// NewClient creates a new IPC client.
func NewClient(path string, timeout time.Duration) *Client {
	if path == "" {
		path = DefaultSocketPath
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{path: path, timeout: timeout}
}

// Do performs one exchange. Transport failures to reach the bot return
// ErrUnavailable; any reply, success or error, is returned as-is.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		if isUnavailable(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("dial ipc socket: %w", err)
	}
	defer utils.Close(conn)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("write ipc request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(io.LimitReader(conn, 16<<20)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read ipc reply: %w", err)
	}
	return &resp, nil
}

func isUnavailable(err error) bool {
	return stderrors.Is(err, syscall.ENOENT) || stderrors.Is(err, syscall.ECONNREFUSED)
}

// call runs req and turns an error reply into an error.
func (c *Client) call(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decode ipc data: %w", err)
		}
	}
	return nil
}

func (c *Client) GetCache(ctx context.Context) (map[string]domain.CacheEntry, error) {
	var out map[string]domain.CacheEntry
	if err := c.call(ctx, Request{Action: ActionGetCache}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCacheMessage(ctx context.Context, messageID domain.Snowflake) (*domain.CacheEntry, error) {
	var out domain.CacheEntry
	if err := c.call(ctx, Request{Action: ActionGetCacheMessage, MessageID: messageID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCounter(ctx context.Context, messageID domain.Snowflake, value int64) error {
	return c.call(ctx, Request{Action: ActionUpdateCounter, MessageID: messageID, Value: &value}, nil)
}

func (c *Client) TriggerUpdate(ctx context.Context) error {
	return c.call(ctx, Request{Action: ActionTriggerUpdate}, nil)
}

func (c *Client) ReloadCache(ctx context.Context) error {
	return c.call(ctx, Request{Action: ActionReloadCache}, nil)
}

// CreateMessage asks the bot to post and track a new message.
func (c *Client) CreateMessage(ctx context.Context, req Request) (*tracker.Created, error) {
	req.Action = ActionCreateMessage
	var out tracker.Created
	if err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID domain.Snowflake, deleteLive bool) error {
	return c.call(ctx, Request{Action: ActionDeleteMessage, MessageID: messageID, DeleteDiscordMessage: &deleteLive}, nil)
}
