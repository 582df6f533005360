package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/httpserver/handlers"
	"github.com/k17ctf/ctfbot/internal/httpserver/mw"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	limited := append(panel(d), mw.LoginRateLimit(mw.LoginLimitConfig{
		Burst:           d.LoginBurst,
		RefillPerMinute: d.LoginPerMinute,
		MaxEntries:      10000,
		TrustProxy:      d.TrustProxy,
	}, d.Logger.Named("login")))
	r.With(limited...).Post("/api/login", handlers.Login(d))
	r.With(panel(d)...).Post("/api/logout", handlers.Logout(d))
	r.With(authenticated(d)...).Get("/api/session", handlers.Session(d))
}
