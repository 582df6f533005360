package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/ipc"
)

// Cache returns the bot's whole live cache.
func Cache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relay(d, w, r, ipc.Request{Action: ipc.ActionGetCache}, http.StatusInternalServerError)
	}
}

// CacheMessage returns one live cache entry.
func CacheMessage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathSnowflake(w, r)
		if !ok {
			return
		}
		relay(d, w, r, ipc.Request{Action: ipc.ActionGetCacheMessage, MessageID: id}, http.StatusNotFound)
	}
}

func pathSnowflake(w http.ResponseWriter, r *http.Request) (domain.Snowflake, bool) {
	raw := chi.URLParam(r, "messageID")
	id, err := domain.ParseSnowflake(raw)
	if err != nil || id.IsZero() {
		writeDetail(w, http.StatusBadRequest, "Invalid message id: "+raw)
		return 0, false
	}
	return id, true
}
