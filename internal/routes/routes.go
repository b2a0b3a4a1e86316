package routes

import (
	"net/http"

	"github.com/syntaxduel/syntaxduel/internal/app"
	"github.com/syntaxduel/syntaxduel/internal/handler"
	"github.com/syntaxduel/syntaxduel/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.Cfg.StaticDir)
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	oauth := handler.NewOAuthHandler(app.AuthService, app.Google, app.GitHub, app.Cfg)
	account := handler.NewAccountHandler()

	requireAuth := middleware.RequireAuth(app.AuthService)

	mux := http.NewServeMux()

	// Probes
	mux.HandleFunc("GET /healthz", health.Health)

	// Local accounts
	mux.HandleFunc("POST /api/register", auth.Register)
	mux.HandleFunc("GET /api/confirm-email", auth.ConfirmEmail)
	mux.HandleFunc("POST /api/login", auth.Login)

	// OAuth
	mux.HandleFunc("GET /api/google", oauth.GoogleAuth)
	mux.HandleFunc("GET /api/google/callback", oauth.GoogleCallback)
	mux.HandleFunc("GET /api/github", oauth.GitHubAuth)
	mux.HandleFunc("GET /api/github/callback", oauth.GitHubCallback)

	// Session
	mux.HandleFunc("GET /api/me", requireAuth(account.Me))

	// Static marketing site, or 404
	mux.HandleFunc("/", home.Fallback)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.CORS(app.Cfg.CORSOrigins), // Answers preflight requests before anything else runs
		middleware.RequestLogging,
		middleware.NonceMiddleware,
		middleware.SecurityHeaders,
	)
}
