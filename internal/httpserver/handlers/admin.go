package handlers

import (
	"net/http"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/ipc"
	"github.com/k17ctf/ctfbot/internal/logger"
)

// Ids may arrive as strings or numbers; strings keep 64-bit precision in browsers.
type updateCounterRequest struct {
	MessageID domain.Snowflake `json:"message_id"`
	Value     *int64           `json:"value"`
}

type createMessageRequest struct {
	ChannelID      domain.Snowflake `json:"channel_id"`
	MessageType    string           `json:"message_type"`
	InitialCounter int64            `json:"initial_counter"`
	CTFdDomain     string           `json:"ctfd_domain"`
	CTFdAPIKey     string           `json:"ctfd_api_key"`
	ForumChannelID domain.Snowflake `json:"forum_channel_id"`
}

type deleteMessageRequest struct {
	MessageID            domain.Snowflake `json:"message_id"`
	DeleteDiscordMessage *bool            `json:"delete_discord_message"`
}

// UpdateCounter overwrites a counter value.
func UpdateCounter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateCounterRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if body.MessageID.IsZero() || body.Value == nil {
			writeDetail(w, http.StatusBadRequest, "message_id and value are required")
			return
		}
		d.Logger.Info("counter update requested",
			logger.Stringer("message_id", body.MessageID),
			logger.Int64("value", *body.Value))
		relay(d, w, r, ipc.Request{
			Action:    ipc.ActionUpdateCounter,
			MessageID: body.MessageID,
			Value:     body.Value,
		}, http.StatusInternalServerError)
	}
}

// CreateMessage posts and tracks a new message.
func CreateMessage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createMessageRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if body.ChannelID.IsZero() {
			writeDetail(w, http.StatusBadRequest, "channel_id is required")
			return
		}
		if body.MessageType == "" {
			body.MessageType = string(domain.SubtypeCounter)
		}
		relay(d, w, r, ipc.Request{
			Action:         ipc.ActionCreateMessage,
			ChannelID:      body.ChannelID,
			MessageType:    body.MessageType,
			InitialCounter: body.InitialCounter,
			CTFdDomain:     body.CTFdDomain,
			CTFdAPIKey:     body.CTFdAPIKey,
			ForumChannelID: body.ForumChannelID,
		}, http.StatusInternalServerError)
	}
}

// DeleteMessage stops tracking a message, removing the live one unless told not to.
func DeleteMessage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body deleteMessageRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if body.MessageID.IsZero() {
			writeDetail(w, http.StatusBadRequest, "message_id is required")
			return
		}
		deleteLive := true
		if body.DeleteDiscordMessage != nil {
			deleteLive = *body.DeleteDiscordMessage
		}
		relay(d, w, r, ipc.Request{
			Action:               ipc.ActionDeleteMessage,
			MessageID:            body.MessageID,
			DeleteDiscordMessage: &deleteLive,
		}, http.StatusInternalServerError)
	}
}
