package handler

import (
	"net/http"
	"strings"
)

type HomeHandler struct {
	static http.Handler
}

// NewHomeHandler serves the prebuilt marketing site from staticDir when set.
func NewHomeHandler(staticDir string) *HomeHandler {
	h := &HomeHandler{}
	if staticDir != "" {
		h.static = http.FileServer(http.Dir(staticDir))
	}
	return h
}

// Fallback handles every path no other route matched.
func (h *HomeHandler) Fallback(w http.ResponseWriter, r *http.Request) {
	if h.static != nil && !strings.HasPrefix(r.URL.Path, "/api/") && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		h.static.ServeHTTP(w, r)
		return
	}
	writeError(w, http.StatusNotFound, "not found")
}
