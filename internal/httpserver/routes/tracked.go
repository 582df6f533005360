package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/httpserver/handlers"
)

func init() { Register(registerTracked) }

func registerTracked(r chi.Router, d deps.Deps) {
	g := r.With(authenticated(d)...)
	g.Get("/api/tracked-messages", handlers.TrackedMessages(d))
	g.Get("/api/tracked-messages/{messageID}", handlers.TrackedMessage(d))
}
