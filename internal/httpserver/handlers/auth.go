package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/k17ctf/ctfbot/internal/auth"
	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/httpserver/mw"
	"github.com/k17ctf/ctfbot/internal/logger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the panel credentials and sets the session cookie.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}

		if err := d.Credentials.Check(body.Username, body.Password); err != nil {
			if !stderrors.Is(err, auth.ErrInvalidCredentials) {
				d.Logger.Error("password verification failed", logger.Error(err))
			}
			d.Logger.Warn("rejected panel login",
				logger.String("user", body.Username),
				logger.String("remote_ip", r.RemoteAddr))
			writeDetail(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}

		mw.NoteUser(r.Context(), body.Username)
		token, expires, err := d.Sessions.Create(r.Context(), body.Username)
		if err != nil {
			d.Logger.Error("failed to create session", logger.Error(err))
			writeDetail(w, http.StatusServiceUnavailable, "Session store unavailable")
			return
		}

		setSessionCookie(w, d, token, expires)
		d.Logger.Info("panel login", logger.String("user", body.Username))
		writeJSON(w, http.StatusOK, successResponse{
			Status: "success",
			Data:   sessionResponse{User: body.Username, ExpiresAt: expires},
		})
	}
}

// Logout revokes the current session and clears the cookie.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(mw.SessionCookie); err == nil {
			if err := d.Sessions.Revoke(r.Context(), cookie.Value); err != nil {
				d.Logger.Warn("failed to revoke session", logger.Error(err))
			}
		}
		clearSessionCookie(w, d)
		writeJSON(w, http.StatusOK, successResponse{Status: "success", Message: "Logged out"})
	}
}

// Session describes the caller's session.
func Session(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := mw.SessionFrom(r.Context())
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, successResponse{
			Status: "success",
			Data:   sessionResponse{User: sess.User, ExpiresAt: sess.ExpiresAt},
		})
	}
}

func setSessionCookie(w http.ResponseWriter, d deps.Deps, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     mw.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   d.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, d deps.Deps) {
	http.SetCookie(w, &http.Cookie{
		Name:     mw.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   d.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
