package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/syntaxduel/syntaxduel/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSigningKey = errors.New("token signing key is not configured")
)

const (
	tokenTypeSession      = "session"
	tokenTypeConfirmation = "confirmation"
)

// SessionClaims are carried by bearer tokens issued at login.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// ConfirmationClaims are carried by email confirmation tokens.
type ConfirmationClaims struct {
	Email string `json:"email"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 tokens with a shared secret.
// Tokens are stateless: there is no revocation list.
type TokenService struct {
	secret             []byte
	sessionExpiry      time.Duration
	confirmationExpiry time.Duration
	now                func() time.Time
}

func NewTokenService(secret string, sessionExpiry, confirmationExpiry time.Duration) *TokenService {
	return &TokenService{
		secret:             []byte(secret),
		sessionExpiry:      sessionExpiry,
		confirmationExpiry: confirmationExpiry,
		now:                time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) SessionExpiry() time.Duration {
	return s.sessionExpiry
}

// IssueSession returns a signed session token for the account and its expiry.
func (s *TokenService) IssueSession(account *model.Account) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionExpiry)

	claims := SessionClaims{
		UserID: account.ID,
		Email:  account.Email,
		Type:   tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := s.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *TokenService) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	err := s.parse(tokenString, claims)
	if err != nil {
		return nil, err
	}

	if claims.Type != tokenTypeSession || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IssueConfirmation returns a signed confirmation token bound to the email.
func (s *TokenService) IssueConfirmation(email string) (string, error) {
	now := s.now()

	claims := ConfirmationClaims{
		Email: email,
		Type:  tokenTypeConfirmation,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.confirmationExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return s.sign(claims)
}

func (s *TokenService) VerifyConfirmation(tokenString string) (*ConfirmationClaims, error) {
	claims := &ConfirmationClaims{}
	err := s.parse(tokenString, claims)
	if err != nil {
		return nil, err
	}

	if claims.Type != tokenTypeConfirmation || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSigningKey
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims) error {
	if tokenString == "" || len(s.secret) == 0 {
		return ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
