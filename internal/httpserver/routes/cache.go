package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
	"github.com/k17ctf/ctfbot/internal/httpserver/handlers"
)

func init() { Register(registerCache) }

func registerCache(r chi.Router, d deps.Deps) {
	g := r.With(authenticated(d)...)
	g.Get("/api/cache", handlers.Cache(d))
	g.Get("/api/cache/{messageID}", handlers.CacheMessage(d))
	g.Post("/api/update-counter", handlers.UpdateCounter(d))
	g.Post("/api/trigger-update", handlers.TriggerUpdate(d))
	g.Post("/api/reload-cache", handlers.ReloadCache(d))
	g.Post("/api/create-message", handlers.CreateMessage(d))
	g.Post("/api/delete-message", handlers.DeleteMessage(d))
}
