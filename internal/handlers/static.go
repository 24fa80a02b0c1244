package handlers

import (
	"embed"
	"net/http"
	"strings"
)

//go:embed static
var staticFS embed.FS

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	filepath := strings.TrimPrefix(r.URL.Path, "/static/")

	// Prevent directory traversal attacks
	if filepath == "" || strings.Contains(filepath, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	switch {
	case strings.HasSuffix(filepath, ".css"):
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case strings.HasSuffix(filepath, ".js"):
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	case strings.HasSuffix(filepath, ".svg"):
		w.Header().Set("Content-Type", "image/svg+xml")
	}

	http.ServeFileFS(w, r, staticFS, "static/"+filepath)
}
