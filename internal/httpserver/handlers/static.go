package handlers

import (
	"io/fs"
	"net/http"

	"github.com/k17ctf/ctfbot/internal/httpserver/deps"
)

// Index serves the control panel page.
func Index(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(d.Static, "index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(data)
	}
}

// Static serves the frontend assets under /static/.
func Static(d deps.Deps) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(d.Static)))
}
