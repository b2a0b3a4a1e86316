package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the marketing site to call the API from the listed origins.
// A single "*" allows any origin; credentials are never shared since auth uses bearer tokens.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})
}
