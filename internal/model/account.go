package model

import (
	"time"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

type Account struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Email             string    `db:"email"`
	PasswordHash      *string   `db:"password_hash"` // Nullable for OAuth-only accounts
	IsVerified        bool      `db:"is_verified"`
	ConfirmationToken *string   `db:"confirmation_token"` // Cleared once confirmed
	OAuthProvider     *string   `db:"oauth_provider"`
	CreatedAt         time.Time `db:"created_at"`
}

func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// Provider returns the OAuth provider tag, or "" for local accounts.
func (a *Account) Provider() string {
	if a.OAuthProvider == nil {
		return ""
	}
	return *a.OAuthProvider
}
