package mw

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/k17ctf/ctfbot/internal/auth"
	"github.com/k17ctf/ctfbot/internal/logger"
)

// SessionCookie names the panel session cookie.
const SessionCookie = "ctfbot_session"

type sessionKey struct{}

// SessionFrom returns the session RequireSession stored on the context.
func SessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

// RequireSession rejects requests without a valid session cookie.
func RequireSession(sessions *auth.SessionManager, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}
			sess, ok, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				log.Error("session lookup failed", logger.Error(err))
				writeDetail(w, http.StatusServiceUnavailable, "Session store unavailable")
				return
			}
			if !ok {
				unauthorized(w)
				return
			}
			NoteUser(r.Context(), sess.User)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeDetail(w, http.StatusUnauthorized, "Not authenticated")
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
