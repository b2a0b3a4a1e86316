package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntaxduel/syntaxduel/internal/app"
	"github.com/syntaxduel/syntaxduel/internal/config"
	"github.com/syntaxduel/syntaxduel/internal/db/dbtest"
	"github.com/syntaxduel/syntaxduel/internal/model"
	"github.com/syntaxduel/syntaxduel/internal/service"
	"github.com/syntaxduel/syntaxduel/internal/service/oauthtest"
	"golang.org/x/crypto/bcrypt"
)

const appURL = "http://syntaxduel.test"

type captureMailer struct {
	mu   sync.Mutex
	sent []service.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg service.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) Sent() []service.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.Message(nil), m.sent...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	app      *app.App
	handler  http.Handler
	mailer   *captureMailer
	provider *oauthtest.Server
	clock    *clock
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppName:                "SyntaxDuel",
		AppEnv:                 "development",
		AppURL:                 appURL,
		LoginPath:              "/login.html",
		CORSOrigins:            []string{"*"},
		JWTSecret:              "test-secret",
		JWTExpiry:              7 * 24 * time.Hour,
		TokenEmailVerifyExpiry: 24 * time.Hour,
		GoogleClientID:         "google-id",
		GoogleClientSecret:     "google-secret",
		GitHubClientID:         "github-id",
		GitHubClientSecret:     "github-secret",
		EmailFrom:              "noreply@syntaxduel.test",
	}
	for _, fn := range configure {
		fn(cfg)
	}

	mailer := &captureMailer{}
	c := &clock{t: time.Now().UTC().Truncate(time.Second)}

	a := app.Build(cfg, dbtest.Open(t), mailer)
	a.TokenService.WithClock(c.Now)
	a.AuthService.WithPasswordCost(bcrypt.MinCost).WithClock(c.Now)
	t.Cleanup(a.EmailService.Wait)

	provider := oauthtest.NewServer(t)
	a.Google.Config.Endpoint = provider.Endpoint()
	a.Google.ProfileURL = provider.GoogleProfileURL()
	a.GitHub.Config.Endpoint = provider.Endpoint()
	a.GitHub.ProfileURL = provider.GitHubUserURL()
	a.GitHub.EmailsURL = provider.GitHubEmailsURL()

	return &testEnv{
		app:      a,
		handler:  SetupRoutes(a),
		mailer:   mailer,
		provider: provider,
		clock:    c,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) register(t *testing.T, name, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return e.postJSON(t, "/api/register", map[string]string{"name": name, "email": email, "password": password})
}

func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return e.postJSON(t, "/api/login", map[string]string{"email": email, "password": password})
}

func (e *testEnv) confirm(token string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, "/api/confirm-email?token="+url.QueryEscape(token), nil))
}

// confirmationToken returns the token from the last confirmation email sent to email.
func (e *testEnv) confirmationToken(t *testing.T, email string) string {
	t.Helper()
	e.app.EmailService.Wait()

	for _, msg := range e.mailer.Sent() {
		if msg.To != email {
			continue
		}
		start := strings.Index(msg.Text, appURL+"/api/confirm-email?")
		require.GreaterOrEqual(t, start, 0, "confirmation link missing from email")
		link := strings.Fields(msg.Text[start:])[0]
		u, err := url.Parse(link)
		require.NoError(t, err)
		return u.Query().Get("token")
	}
	t.Fatalf("no confirmation email sent to %s", email)
	return ""
}

// oauthLogin runs the redirect and callback legs of a provider login.
func (e *testEnv) oauthLogin(t *testing.T, provider, code string) *httptest.ResponseRecorder {
	t.Helper()

	start := e.do(httptest.NewRequest(http.MethodGet, "/api/"+provider, nil))
	require.Equal(t, http.StatusTemporaryRedirect, start.Code)

	consent, err := url.Parse(start.Header().Get("Location"))
	require.NoError(t, err)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range start.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.True(t, stateCookie.HttpOnly)
	assert.Equal(t, state, stateCookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/api/"+provider+"/callback?"+url.Values{"state": {state}, "code": {code}}.Encode(), nil)
	req.AddCookie(stateCookie)
	return e.do(req)
}

type loginBody struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegisterConfirmLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.register(t, "Ada Lovelace", "ada@example.com", "correct-horse")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	// Correct password, but the address is not confirmed yet
	rec = env.login(t, "ada@example.com", "correct-horse")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := env.confirmationToken(t, "ada@example.com")
	rec = env.confirm(token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Account confirmed")
	assert.Contains(t, rec.Body.String(), appURL+"/login.html")

	rec = env.login(t, "ada@example.com", "correct-horse")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[loginBody](t, rec)
	assert.True(t, login.Success)
	assert.Equal(t, "Ada Lovelace", login.User.Name)
	assert.Equal(t, "ada@example.com", login.User.Email)

	claims, err := env.app.TokenService.VerifySession(login.Token)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	rec = env.login(t, "ada@example.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK, env.register(t, "Ada", "ada@example.com", "correct-horse").Code)

	rec := env.register(t, "Ada Again", "ada@example.com", "correct-horse")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already exists", decode[map[string]string](t, rec)["error"])
}

func TestRegisterAcceptsFormBody(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"name": {"Grace"}, "email": {"grace@example.com"}, "password": {"correct-horse"}}
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegisterRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing name", body: map[string]string{"email": "a@example.com", "password": "correct-horse"}},
		{name: "missing password", body: map[string]string{"name": "A", "email": "a@example.com"}},
		{name: "invalid email", body: map[string]string{"name": "A", "email": "nope", "password": "correct-horse"}},
		{name: "password over bcrypt limit", body: map[string]string{"name": "A", "email": "a@example.com", "password": strings.Repeat("x", 73)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON(t, "/api/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
}

func TestRegisterSucceedsWhenMailFails(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	rec := env.register(t, "Ada", "ada@example.com", "correct-horse")
	assert.Equal(t, http.StatusOK, rec.Code)

	account, err := env.app.Accounts.ByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.False(t, account.IsVerified)
}

func TestConfirmRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.register(t, "Ada", "ada@example.com", "correct-horse").Code)
	require.Equal(t, http.StatusOK, env.register(t, "Bob", "bob@example.com", "correct-horse").Code)
	adaToken := env.confirmationToken(t, "ada@example.com")

	// Signed with the right key but never stored for any account
	env.clock.Advance(time.Second)
	neverIssued, err := env.app.TokenService.IssueConfirmation("bob@example.com")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"never issued": neverIssued,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.confirm(token)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "Confirmation failed")
		})
	}

	require.Equal(t, http.StatusOK, env.confirm(adaToken).Code)
	assert.Equal(t, http.StatusBadRequest, env.confirm(adaToken).Code, "token is single use")

	bob, err := env.app.Accounts.ByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, bob.IsVerified)
}

func TestConfirmExpiresAfter24Hours(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.register(t, "Ada", "ada@example.com", "correct-horse").Code)
	token := env.confirmationToken(t, "ada@example.com")

	env.clock.Advance(24*time.Hour + time.Minute)

	assert.Equal(t, http.StatusBadRequest, env.confirm(token).Code)
	assert.Equal(t, http.StatusUnauthorized, env.login(t, "ada@example.com", "correct-horse").Code)
}

func TestLoginMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.login(t, "", "whatever")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.ErrInvalidCredentials.Error(), decode[map[string]string](t, rec)["error"])

	rec = env.login(t, "ada@example.com", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.login(t, "ghost@example.com", "whatever-pass")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleLoginCreatesAccountOnce(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SetGoogleUser("grace@example.com", "Grace Hopper")

	rec := env.oauthLogin(t, "google", "code-1")
	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, appURL+"/", location.Scheme+"://"+location.Host+location.Path)

	claims, err := env.app.TokenService.VerifySession(location.Query().Get("token"))
	require.NoError(t, err)

	account, err := env.app.Accounts.ByEmail(context.Background(), "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.UserID)
	assert.True(t, account.IsVerified)
	assert.Equal(t, model.ProviderGoogle, account.Provider())
	assert.False(t, account.HasPassword())

	rec = env.oauthLogin(t, "google", "code-2")
	require.Equal(t, http.StatusFound, rec.Code)
	location, err = url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	claims, err = env.app.TokenService.VerifySession(location.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.UserID)

	var count int
	require.NoError(t, env.app.DB.Get(&count, `SELECT COUNT(*) FROM accounts`))
	assert.Equal(t, 1, count)
}

func TestGitHubLoginWithoutEmail(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SetGitHubUser("octocat", "", "")

	rec := env.oauthLogin(t, "github", "code-1")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), appURL+"/?token=")

	account, err := env.app.Accounts.ByEmail(context.Background(), "octocat@github.user")
	require.NoError(t, err)
	assert.Equal(t, "octocat", account.Name)
	assert.Equal(t, model.ProviderGitHub, account.Provider())
}

func TestOAuthCallbackFailuresRedirectToLogin(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SetGoogleUser("grace@example.com", "Grace")
	loginPage := appURL + "/login.html"

	callback := func(query url.Values, cookie string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/google/callback?"+query.Encode(), nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookie})
		}
		return env.do(req)
	}

	tests := []struct {
		name   string
		query  url.Values
		cookie string
	}{
		{name: "missing state cookie", query: url.Values{"state": {"s1"}, "code": {"c"}}},
		{name: "state mismatch", query: url.Values{"state": {"s1"}, "code": {"c"}}, cookie: "s2"},
		{name: "provider error", query: url.Values{"state": {"s1"}, "error": {"access_denied"}}, cookie: "s1"},
		{name: "missing code", query: url.Values{"state": {"s1"}}, cookie: "s1"},
		{name: "exchange rejected", query: url.Values{"state": {"s1"}, "code": {oauthtest.BadCode}}, cookie: "s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := callback(tt.query, tt.cookie)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, loginPage, rec.Header().Get("Location"))
		})
	}

	var count int
	require.NoError(t, env.app.DB.Get(&count, `SELECT COUNT(*) FROM accounts`))
	assert.Zero(t, count)
}

func TestOAuthUnconfiguredProviderRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.GitHubClientID = "" })

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/github", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, appURL+"/login.html", rec.Header().Get("Location"))
}

func TestOAuthLoginReturnsExistingLocalAccount(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.register(t, "Ada", "ada@example.com", "correct-horse").Code)
	env.provider.SetGitHubUser("ada-gh", "Ada GH", "ada@example.com")

	rec := env.oauthLogin(t, "github", "code-1")
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	claims, err := env.app.TokenService.VerifySession(location.Query().Get("token"))
	require.NoError(t, err)

	local, err := env.app.Accounts.ByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, local.ID, claims.UserID)
	assert.Empty(t, local.Provider())
}

func TestProductionWithoutSecretRejectsTokens(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.AppEnv = "production"
		cfg.JWTSecret = ""
	})

	rec := env.register(t, "Ada Lovelace", "ada@example.com", "correct-horse")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env.app.EmailService.Wait()
	assert.Empty(t, env.mailer.Sent())

	claims := service.SessionClaims{
		UserID: "victim",
		Type:   "session",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(env.clock.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SetGoogleUser("grace@example.com", "Grace Hopper")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

	callback := env.oauthLogin(t, "google", "code-1")
	location, err := url.Parse(callback.Header().Get("Location"))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+location.Query().Get("token"))
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "grace@example.com", body["user"]["email"])
	assert.Equal(t, "Grace Hopper", body["user"]["name"])
	assert.Equal(t, true, body["user"]["is_verified"])
	assert.Equal(t, "google", body["user"]["oauth_provider"])
	assert.NotContains(t, body["user"], "password_hash")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "https://syntaxduel.dev")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	rec := env.do(req)
	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeadersOnAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.confirm("bogus")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'none'")
	assert.Contains(t, csp, "style-src 'nonce-")
}

func TestFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>SyntaxDuel</h1>"), 0o644))
	env := newTestEnv(t, func(cfg *config.Config) { cfg.StaticDir = dir })

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SyntaxDuel")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[map[string]string](t, rec)["error"])
}
