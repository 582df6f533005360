package ipc

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/errors"
	"github.com/oklog/ulid/v2"
)

// DefaultSocketPath is where the bot listens unless configured otherwise.
const DefaultSocketPath = "/tmp/k17_bot_ipc.sock"

// UnavailableMessage is reported when no bot is listening.
const UnavailableMessage = "Bot is not running or IPC not available"

// maxRequestSize bounds a single request body.
const maxRequestSize = 64 << 10

// Action names an administrative operation.
type Action string

const (
	ActionGetCache        Action = "get_cache"
	ActionGetCacheMessage Action = "get_cache_message"
	ActionUpdateCounter   Action = "update_counter"
	ActionTriggerUpdate   Action = "trigger_update"
	ActionReloadCache     Action = "reload_cache"
	ActionCreateMessage   Action = "create_message"
	ActionDeleteMessage   Action = "delete_message"
)

// Actions lists every action the server understands.
var Actions = []Action{
	ActionGetCache,
	ActionGetCacheMessage,
	ActionUpdateCounter,
	ActionTriggerUpdate,
	ActionReloadCache,
	ActionCreateMessage,
	ActionDeleteMessage,
}

// Request is one administrative call. Only the fields of Action are read.
type Request struct {
	Action Action `json:"action"`

	MessageID domain.Snowflake `json:"message_id,omitempty"`
	Value     *int64           `json:"value,omitempty"`

	ChannelID      domain.Snowflake `json:"channel_id,omitempty"`
	MessageType    string           `json:"message_type,omitempty"`
	InitialCounter int64            `json:"initial_counter,omitempty"`
	CTFdDomain     string           `json:"ctfd_domain,omitempty"`
	CTFdAPIKey     string           `json:"ctfd_api_key,omitempty"`
	ForumChannelID domain.Snowflake `json:"forum_channel_id,omitempty"`

	DeleteDiscordMessage *bool `json:"delete_discord_message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the single reply written before the connection closes.
type Response struct {
	Status  string           `json:"status"`
	Data    json.RawMessage  `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty"`
}

// Err converts an error reply into a BotError, nil on success.
func (r *Response) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	code := r.Code
	if code == "" {
		code = errors.ErrInternal
	}
	return errors.New(code, r.Message)
}

func success(data any, message string) Response {
	resp := Response{Status: StatusSuccess, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return failure(errors.NewInternal(err))
		}
		resp.Data = raw
	}
	return resp
}

func failure(err error) Response {
	bErr := errors.From(err)
	return Response{Status: StatusError, Message: bErr.Message, Code: bErr.Code}
}

func newRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
