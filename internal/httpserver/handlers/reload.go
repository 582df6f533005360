package handlers

import (
	"net/http"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/ipc"
	"github.com/k17ctf/ctfbot/internal/logger"
)

// TriggerUpdate runs one refresh pass on the bot and waits for it.
func TriggerUpdate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Logger.Info("manual refresh triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		relay(d, w, r, ipc.Request{Action: ipc.ActionTriggerUpdate}, http.StatusInternalServerError)
	}
}

// ReloadCache rebuilds the bot's cache from the database.
func ReloadCache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Logger.Info("cache reload triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		relay(d, w, r, ipc.Request{Action: ipc.ActionReloadCache}, http.StatusInternalServerError)
	}
}
