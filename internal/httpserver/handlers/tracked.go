package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/logger"
	"github.com/k17ctf/ctfbot/internal/store"
)

// TrackedMessages lists active leaderboard rows straight from the database,
// so it works while the bot is down.
func TrackedMessages(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.TrackedMessageFilter{FeatureType: domain.FeatureCTFLeaderboard}
		if raw := r.URL.Query().Get("guild_id"); raw != "" {
			guild, err := domain.ParseSnowflake(raw)
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "Invalid guild id: "+raw)
				return
			}
			filter.GuildID = guild
		}
		filter.IncludeInactive = r.URL.Query().Get("include_inactive") == "true"

		rows, err := d.Messages.GetTrackedMessages(r.Context(), filter)
		if err != nil {
			d.Logger.Error("failed to list tracked messages", logger.Error(err))
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		if rows == nil {
			rows = []domain.TrackedMessage{}
		}
		writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: rows})
	}
}

// TrackedMessage returns one active row.
func TrackedMessage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathSnowflake(w, r)
		if !ok {
			return
		}
		row, err := d.Messages.GetTrackedMessage(r.Context(), id)
		if stderrors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Message not found")
			return
		}
		if err != nil {
			d.Logger.Error("failed to load tracked message",
				logger.Stringer("message_id", id),
				logger.Error(err))
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: row})
	}
}
