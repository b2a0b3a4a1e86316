package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/syntaxduel/syntaxduel/internal/model"
	"github.com/syntaxduel/syntaxduel/internal/repository"
	"github.com/syntaxduel/syntaxduel/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields       = errors.New("all fields are required")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidName         = errors.New("invalid name")
	ErrPasswordTooLong     = errors.New("password is too long")
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrAccountNotVerified  = errors.New("account is not confirmed or does not exist")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidConfirmation = errors.New("invalid or expired confirmation token")
	ErrUnknownProvider     = errors.New("unknown oauth provider")
)

// IsValidationError reports whether err is caused by bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrPasswordTooLong)
}

// Identity is an external identity assertion from an OAuth provider.
type Identity struct {
	Email    string
	Name     string
	Provider string
}

type AuthService struct {
	accounts     repository.AccountRepository
	tokens       *TokenService
	emails       *EmailService
	passwordCost int
	now          func() time.Time
}

func NewAuthService(accounts repository.AccountRepository, tokens *TokenService, emails *EmailService) *AuthService {
	return &AuthService{
		accounts:     accounts,
		tokens:       tokens,
		emails:       emails,
		passwordCost: bcrypt.DefaultCost,
		now:          time.Now,
	}
}

// WithPasswordCost overrides the bcrypt cost.
func (s *AuthService) WithPasswordCost(cost int) *AuthService {
	s.passwordCost = cost
	return s
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Register creates an unverified local account and emails a confirmation link.
// Mail delivery is best-effort and never fails the registration.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.Account, error) {
	name = validation.NormalizeName(name)
	email = validation.NormalizeEmail(email)

	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	err := validation.ValidateName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	err = validation.ValidateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooLong, err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	confirmationToken, err := s.tokens.IssueConfirmation(email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue confirmation token: %w", err)
	}

	account := &model.Account{
		ID:                uuid.New().String(),
		Name:              name,
		Email:             email,
		PasswordHash:      &hash,
		IsVerified:        false,
		ConfirmationToken: &confirmationToken,
		CreatedAt:         s.now().UTC(),
	}

	err = s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.emails.DispatchConfirmationEmail(email, name, confirmationToken)

	slog.Info("account registered", "account_id", account.ID, "email", email)
	return account, nil
}

// ConfirmEmail consumes a confirmation token and marks its account verified.
// Every failure that is the caller's fault collapses into ErrInvalidConfirmation.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*model.Account, error) {
	claims, err := s.tokens.VerifyConfirmation(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfirmation, err)
	}

	// Single conditional UPDATE: only the first request with the stored token succeeds
	confirmed, err := s.accounts.Confirm(ctx, claims.Email, token)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm account: %w", err)
	}
	if !confirmed {
		return nil, ErrInvalidConfirmation
	}

	account, err := s.accounts.ByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmed account: %w", err)
	}

	slog.Info("account confirmed", "account_id", account.ID, "email", account.Email)
	return account, nil
}

// Login checks local credentials. Missing and unconfirmed accounts share one error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Account, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	account, err := s.accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotVerified
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !account.IsVerified {
		return nil, ErrAccountNotVerified
	}

	if !account.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	err = s.ComparePassword(password, *account.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	slog.Info("account logged in with password", "account_id", account.ID)
	return account, nil
}

// Reconcile maps an OAuth identity to an account: an existing account with the
// same email is returned unchanged, otherwise a verified account is created.
func (s *AuthService) Reconcile(ctx context.Context, identity Identity) (*model.Account, error) {
	email := validation.NormalizeEmail(identity.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	provider := identity.Provider
	if provider != model.ProviderGoogle && provider != model.ProviderGitHub {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	account, err := s.accounts.ByEmail(ctx, email)
	if err == nil {
		slog.Info("account authenticated via oauth", "account_id", account.ID, "provider", provider)
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to lookup account: %w", err)
	}

	name := validation.NormalizeName(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	account = &model.Account{
		ID:            uuid.New().String(),
		Name:          name,
		Email:         email,
		IsVerified:    true, // the provider vouches for the address
		OAuthProvider: &provider,
		CreatedAt:     s.now().UTC(),
	}

	err = s.accounts.Create(ctx, account)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// Lost a race with a concurrent callback for the same email
		existing, lookupErr := s.accounts.ByEmail(ctx, email)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to lookup account: %w", lookupErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("new oauth account created", "account_id", account.ID, "email", email, "provider", provider)
	return account, nil
}

// Authenticate resolves a bearer token to its account.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*model.Account, error) {
	claims, err := s.tokens.VerifySession(bearer)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.ByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// IssueSession mints the bearer token returned after a successful login.
func (s *AuthService) IssueSession(account *model.Account) (string, error) {
	token, _, err := s.tokens.IssueSession(account)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return token, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
