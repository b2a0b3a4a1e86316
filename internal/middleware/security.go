package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders sets browser hardening headers. Only /api/ responses get a CSP;
// static files served from STATIC_DIR keep their own policy.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			csp := "default-src 'none'; frame-ancestors 'none'"
			if nonce := GetNonce(r.Context()); nonce != "" {
				csp += "; style-src 'nonce-" + nonce + "'"
			}
			h.Set("Content-Security-Policy", csp)
		}

		next.ServeHTTP(w, r)
	})
}
