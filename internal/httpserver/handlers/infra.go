package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/ipc"
)

type componentStatus struct {
	OK       bool   `json:"ok"`
	Tracked  *int   `json:"tracked,omitempty"`
	Backend  string `json:"backend,omitempty"`
	Impact   string `json:"impact,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of everything the panel depends on.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"bot":      checkBot(ctx, d),
			"database": checkPing(ctx, d.Messages.Ping, "tracked-messages-unavailable"),
			"sessions": checkPing(ctx, d.Sessions.Ping, "logins-unavailable"),
		}
		sessions := components["sessions"]
		sessions.Backend = d.SessionBackend
		components["sessions"] = sessions

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if db, ok := components["database"]; ok && !db.OK {
		return "critical"
	}
	if sess, ok := components["sessions"]; ok && !sess.OK {
		return "critical"
	}
	// Bot down = panel can only show stored rows
	if bot, ok := components["bot"]; ok && !bot.OK {
		return "degraded"
	}
	return "operational"
}

func checkPing(ctx context.Context, ping func(context.Context) error, impact string) componentStatus {
	start := time.Now()
	if err := ping(ctx); err != nil {
		return componentStatus{OK: false, Impact: impact, Error: err.Error()}
	}
	return componentStatus{OK: true, Duration: time.Since(start).String()}
}

func checkBot(ctx context.Context, d deps.Deps) componentStatus {
	start := time.Now()
	resp, err := d.Bot.Do(ctx, ipc.Request{Action: ipc.ActionGetCache})
	if err != nil {
		msg := err.Error()
		if stderrors.Is(err, ipc.ErrUnavailable) {
			msg = ipc.UnavailableMessage
		}
		return componentStatus{OK: false, Impact: "live-updates-unavailable", Error: msg}
	}
	if err := resp.Err(); err != nil {
		return componentStatus{OK: false, Impact: "live-updates-unavailable", Error: err.Error()}
	}

	var cache map[string]json.RawMessage
	_ = json.Unmarshal(resp.Data, &cache)
	n := len(cache)
	return componentStatus{OK: true, Tracked: &n, Duration: time.Since(start).String()}
}
