package app

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/syntaxduel/syntaxduel/internal/config"
	"github.com/syntaxduel/syntaxduel/internal/db"
	"github.com/syntaxduel/syntaxduel/internal/repository"
	"github.com/syntaxduel/syntaxduel/internal/service"
)

// devJWTSecret signs tokens in development when JWT_SECRET is unset.
const devJWTSecret = "syntaxduel-development-secret"

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	Accounts     repository.AccountRepository
	TokenService *service.TokenService
	EmailService *service.EmailService
	AuthService  *service.AuthService
	Google       *service.OAuthProvider
	GitHub       *service.OAuthProvider
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	mailer, err := service.NewMailer(cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	a := Build(cfg, database, mailer)
	return a, nil
}

// Build wires repositories and services around an open, migrated database.
func Build(cfg *config.Config, database *sqlx.DB, mailer service.Mailer) *App {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		slog.Warn("JWT_SECRET not set, using development secret")
		secret = devJWTSecret
	}

	accounts := repository.NewAccountRepository(database)
	tokenService := service.NewTokenService(secret, cfg.JWTExpiry, cfg.TokenEmailVerifyExpiry)
	emailService := service.NewEmailService(mailer, cfg.EmailFrom, cfg.AppURL, cfg.AppName)
	authService := service.NewAuthService(accounts, tokenService, emailService)

	return &App{
		Cfg:          cfg,
		DB:           database,
		Accounts:     accounts,
		TokenService: tokenService,
		EmailService: emailService,
		AuthService:  authService,
		Google:       service.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL()),
		GitHub:       service.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL()),
	}
}

// Close waits for in-flight emails and closes the database.
func (a *App) Close() error {
	if a.EmailService != nil {
		a.EmailService.Wait()
	}
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
