package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/syntaxduel/syntaxduel/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"

	// githubPlaceholderDomain is used when GitHub exposes no email at all.
	// The address is not routable and not guaranteed unique.
	githubPlaceholderDomain = "github.user"
)

// OAuthProvider performs the authorization code flow against one identity provider.
type OAuthProvider struct {
	Name       string
	Config     *oauth2.Config
	ProfileURL string
	EmailsURL  string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		Name: model.ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		ProfileURL: googleUserInfoURL,
	}
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		Name: model.ProviderGitHub,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
		ProfileURL: githubUserURL,
		EmailsURL:  githubEmailsURL,
	}
}

// AuthCodeURL returns the consent screen URL carrying the CSRF state.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// Identify exchanges the authorization code and fetches the user's profile.
func (p *OAuthProvider) Identify(ctx context.Context, code string) (Identity, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%s token exchange failed: %w", p.Name, err)
	}

	client := p.Config.Client(ctx, token)

	switch p.Name {
	case model.ProviderGoogle:
		return p.googleIdentity(ctx, client)
	case model.ProviderGitHub:
		return p.githubIdentity(ctx, client)
	default:
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownProvider, p.Name)
	}
}

func (p *OAuthProvider) googleIdentity(ctx context.Context, client *http.Client) (Identity, error) {
	var userInfo struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err := getJSON(ctx, client, p.ProfileURL, &userInfo)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get google user info: %w", err)
	}

	if userInfo.Email == "" {
		return Identity{}, fmt.Errorf("google profile has no email: %w", ErrInvalidEmail)
	}

	return Identity{
		Email:    userInfo.Email,
		Name:     userInfo.Name,
		Provider: model.ProviderGoogle,
	}, nil
}

func (p *OAuthProvider) githubIdentity(ctx context.Context, client *http.Client) (Identity, error) {
	var userInfo struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	err := getJSON(ctx, client, p.ProfileURL, &userInfo)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get github user info: %w", err)
	}

	email := userInfo.Email

	// GitHub API may not return email in main response if it's private
	if email == "" && p.EmailsURL != "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		err = getJSON(ctx, client, p.EmailsURL, &emails)
		if err != nil {
			slog.Warn("failed to get github user emails", "error", err, "login", userInfo.Login)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	if email == "" {
		if userInfo.Login == "" {
			return Identity{}, fmt.Errorf("github profile has neither email nor login: %w", ErrInvalidEmail)
		}
		email = userInfo.Login + "@" + githubPlaceholderDomain
	}

	name := userInfo.Name
	if name == "" {
		name = userInfo.Login
	}

	return Identity{
		Email:    email,
		Name:     name,
		Provider: model.ProviderGitHub,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
