// Package oauthtest runs a fake Google/GitHub authorization server for tests.
package oauthtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

// BadCode is rejected by the token endpoint.
const BadCode = "bad-code"

// GitHubEmail mirrors an entry of GitHub's /user/emails response.
type GitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type googleUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type githubUser struct {
	Login string  `json:"login"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	google       googleUser
	github       githubUser
	githubEmails []GitHubEmail
	exchanges    int
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("GET /google/userinfo", s.authorized(func() any { return s.google }))
	mux.HandleFunc("GET /github/user", s.authorized(func() any { return s.github }))
	mux.HandleFunc("GET /github/user/emails", s.authorized(func() any { return s.githubEmails }))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) SetGoogleUser(email, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.google = googleUser{Email: email, Name: name}
}

// SetGitHubUser sets the /user profile; an empty email is reported as null.
func (s *Server) SetGitHubUser(login, name, email string, emails ...GitHubEmail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.github = githubUser{Login: login, Name: name}
	if email != "" {
		s.github.Email = &email
	}
	s.githubEmails = append([]GitHubEmail{}, emails...)
}

// Exchanges counts successful code exchanges.
func (s *Server) Exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchanges
}

func (s *Server) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   s.URL + "/authorize",
		TokenURL:  s.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func (s *Server) GoogleProfileURL() string { return s.URL + "/google/userinfo" }
func (s *Server) GitHubUserURL() string    { return s.URL + "/github/user" }
func (s *Server) GitHubEmailsURL() string  { return s.URL + "/github/user/emails" }

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	if code == "" || code == BadCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	s.mu.Lock()
	s.exchanges++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "access-" + code,
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func (s *Server) authorized(body func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer access-") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		s.mu.Lock()
		payload := body()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, payload)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
