package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/httpserver/handlers"
)

func init() { Register(registerStatic) }

// The page itself is public; it asks /api/session and shows the login form.
func registerStatic(r chi.Router, d deps.Deps) {
	g := r.With(panel(d)...)
	g.Get("/", handlers.Index(d))
	g.Handle("/static/*", handlers.Static(d))
}
