// Package web serves the embedded browser chat client.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed static/*
var assets embed.FS

// Handler returns an http.Handler that serves the embedded chat UI.
// Unknown paths fall back to index.html.
func Handler() http.Handler {
	staticFS, _ := fs.Sub(assets, "static")
	fileServer := http.FileServer(http.FS(staticFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := strings.TrimPrefix(r.URL.Path, "/")

		if reqPath == "" {
			reqPath = "index.html"
		}

		if _, err := fs.Stat(staticFS, reqPath); err != nil {
			r.URL.Path = "/"
			reqPath = "index.html"
		}

		ext := path.Ext(reqPath)
		mimeTypes := map[string]string{
			".html": "text/html; charset=utf-8",
			".css":  "text/css; charset=utf-8",
			".js":   "application/javascript",
			".ico":  "image/x-icon",
		}

		if mime, ok := mimeTypes[ext]; ok {
			w.Header().Set("Content-Type", mime)
		}

		fileServer.ServeHTTP(w, r)
	})
}
