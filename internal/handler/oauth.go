package handler

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/syntaxduel/syntaxduel/internal/config"
	"github.com/syntaxduel/syntaxduel/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10 minutes
)

type OAuthHandler struct {
	authService *service.AuthService
	google      *service.OAuthProvider
	github      *service.OAuthProvider
	cfg         *config.Config
}

func NewOAuthHandler(authService *service.AuthService, google, github *service.OAuthProvider, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		authService: authService,
		google:      google,
		github:      github,
		cfg:         cfg,
	}
}

// GoogleAuth redirects user to Google OAuth consent screen
func (h *OAuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, h.google)
}

// GoogleCallback handles the OAuth callback from Google
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.finishFlow(w, r, h.google)
}

// GitHubAuth redirects user to GitHub OAuth consent screen
func (h *OAuthHandler) GitHubAuth(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, h.github)
}

// GitHubCallback handles the OAuth callback from GitHub
func (h *OAuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	h.finishFlow(w, r, h.github)
}

func (h *OAuthHandler) startFlow(w http.ResponseWriter, r *http.Request, provider *service.OAuthProvider) {
	if provider == nil || provider.Config.ClientID == "" {
		slog.Warn("oauth provider not configured", "path", r.URL.Path)
		h.fail(w, r)
		return
	}

	state, err := generateOAuthState()
	if err != nil {
		slog.Error("failed to generate oauth state", "error", err)
		h.fail(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(), // APP_ENV is more reliable than r.TLS behind load balancers
		SameSite: http.SameSiteLaxMode,
		MaxAge:   oauthStateMaxAge,
	})

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) finishFlow(w http.ResponseWriter, r *http.Request, provider *service.OAuthProvider) {
	if provider == nil {
		h.fail(w, r)
		return
	}

	query := r.URL.Query()

	// Validate state parameter for CSRF protection
	state := query.Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		slog.Warn("oauth state validation failed", "provider", provider.Name, "error", err)
		h.fail(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if providerErr := query.Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error", "provider", provider.Name, "error", providerErr)
		h.fail(w, r)
		return
	}

	code := query.Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", provider.Name)
		h.fail(w, r)
		return
	}

	identity, err := provider.Identify(r.Context(), code)
	if err != nil {
		slog.Error("oauth identification failed", "provider", provider.Name, "error", err)
		h.fail(w, r)
		return
	}

	account, err := h.authService.Reconcile(r.Context(), identity)
	if err != nil {
		slog.Error("oauth reconciliation failed", "provider", provider.Name, "error", err, "email", identity.Email)
		h.fail(w, r)
		return
	}

	token, err := h.authService.IssueSession(account)
	if err != nil {
		slog.Error("failed to issue session token", "error", err, "account_id", account.ID)
		h.fail(w, r)
		return
	}

	slog.Info("account logged in with oauth", "provider", provider.Name, "account_id", account.ID)
	http.Redirect(w, r, h.cfg.AppURL+"/?token="+url.QueryEscape(token), http.StatusFound)
}

// fail sends the browser back to the login page without a token.
func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.cfg.AppURL+h.cfg.LoginPath, http.StatusFound)
}

// generateOAuthState creates a random state token for OAuth CSRF protection
func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
