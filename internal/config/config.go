package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName   string `env:"APP_NAME" envDefault:"SyntaxDuel"`
	AppEnv    string `env:"APP_ENV" envDefault:"development"` // 'development' or 'production'
	AppURL    string `env:"APP_URL" envDefault:"http://localhost:3000"`
	Port      string `env:"PORT" envDefault:"3000"`
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login.html"`
	StaticDir string `env:"STATIC_DIR"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Database (driver switch: sqlite or pgx)
	DBDriver     string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBConnection string `env:"DB_CONNECTION" envDefault:"./data/users.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"`

	// Security
	JWTSecret              string        `env:"JWT_SECRET"`
	JWTExpiry              time.Duration `env:"JWT_EXPIRY" envDefault:"168h"`               // 7 days
	TokenEmailVerifyExpiry time.Duration `env:"TOKEN_EMAIL_VERIFY_EXPIRY" envDefault:"24h"` // 24 hours

	// OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	// Email
	MailProvider string `env:"MAIL_PROVIDER" envDefault:"log"` // "log", "resend" or "smtp"
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"noreply@example.com"`
	ResendAPIKey string `env:"RESEND_API_KEY"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// Observability (optional)
	SentryDSN string `env:"SENTRY_DSN"`
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		slog.Warn("config parse failed, using defaults", "error", err)
	}

	if cfg.IsProduction() {
		warnProduction(cfg)
	}

	return cfg
}

// Parse reads the configuration from the process environment.
// On error the returned config still carries every default.
func Parse() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		defaults := &Config{}
		_ = env.ParseWithOptions(defaults, env.Options{Environment: map[string]string{}})
		return defaults, err
	}
	return cfg, nil
}

// warnProduction reports configuration that works locally but is unsafe in production.
// Missing values are not fatal: provider and mail credentials are optional features.
func warnProduction(cfg *Config) {
	if cfg.JWTSecret == "" {
		slog.Warn("production deployment without JWT_SECRET", "hint", "session and confirmation tokens are refused")
	}
	if cfg.MailProvider == "log" {
		slog.Warn("production deployment with MAIL_PROVIDER=log", "hint", "confirmation emails are only logged")
	}
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GoogleRedirectURL returns the configured callback or one derived from AppURL.
func (c *Config) GoogleRedirectURL() string {
	if c.GoogleCallbackURL != "" {
		return c.GoogleCallbackURL
	}
	return c.AppURL + "/api/google/callback"
}

// GitHubRedirectURL returns the configured callback or one derived from AppURL.
func (c *Config) GitHubRedirectURL() string {
	if c.GitHubCallbackURL != "" {
		return c.GitHubCallbackURL
	}
	return c.AppURL + "/api/github/callback"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets and credentials are excluded, so it is safe to log.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:   c.AppName,
		AppEnv:    c.AppEnv,
		AppURL:    c.AppURL,
		Port:      c.Port,
		LoginPath: c.LoginPath,
		StaticDir: c.StaticDir,

		CORSOrigins: c.CORSOrigins,

		DBDriver: c.DBDriver,

		JWTExpiry:              c.JWTExpiry,
		TokenEmailVerifyExpiry: c.TokenEmailVerifyExpiry,

		GoogleClientID:    c.GoogleClientID,
		GoogleCallbackURL: c.GoogleCallbackURL,
		GitHubClientID:    c.GitHubClientID,
		GitHubCallbackURL: c.GitHubCallbackURL,

		MailProvider: c.MailProvider,
		EmailFrom:    c.EmailFrom,
		SMTPHost:     c.SMTPHost,
		SMTPPort:     c.SMTPPort,
	}
}
