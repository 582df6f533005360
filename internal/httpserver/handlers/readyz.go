package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/logger"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz is ready once the database and the session store answer.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := d.Messages.Ping(ctx); err != nil {
			d.Logger.Warn("readyz: database ping failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false})
			return
		}
		if err := d.Sessions.Ping(ctx); err != nil {
			d.Logger.Warn("readyz: session store ping failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
