package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/syntaxduel/syntaxduel/internal/ctxkeys"
	"github.com/syntaxduel/syntaxduel/internal/model"
	"github.com/syntaxduel/syntaxduel/internal/service"
)

// Authenticator resolves a bearer token to its account. *service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Account, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth verifies the bearer token and adds the account to the context.
// Requests without a valid token never reach next.
func RequireAuth(auth Authenticator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			account, err := auth.Authenticate(r.Context(), token)
			if errors.Is(err, service.ErrInvalidToken) {
				slog.Debug("bearer token rejected", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
				return
			}
			if err != nil {
				slog.Error("failed to authenticate request", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			// Security: Remove password hash from context
			account.PasswordHash = nil

			ctx := ctxkeys.WithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]string{"error": message})
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}
