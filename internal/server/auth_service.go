package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "cumulus/internal/auth"
	"cumulus/internal/models"
	"cumulus/internal/store"
)

const (
	sessionCookieName = "cumulus_session"
	authTypeBearer    = "bearer"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthService encapsulates registration and session operations backed by the
// store.
type AuthService struct {
	accounts            store.AccountStore
	sessions            store.SessionStore
	defaultStorageLimit int64
	sessionTTL          time.Duration
}

type authLoginResult struct {
	Account   *models.Account
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(accounts store.AccountStore, sessions store.SessionStore, defaultStorageLimit int64, sessionTTL time.Duration) *AuthService {
	if accounts == nil || sessions == nil {
		return nil
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:            accounts,
		sessions:            sessions,
		defaultStorageLimit: defaultStorageLimit,
		sessionTTL:          sessionTTL,
	}
}

// Register validates the signup payload, hashes the password, and creates the
// account with the default storage limit.
func (a *AuthService) Register(ctx context.Context, name, email, password string, now time.Time) (*models.Account, error) {
	if a == nil || a.accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}

	name = strings.TrimSpace(name)
	if err := internalauth.ValidateDisplayName(name); err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidName)
	}
	normalized, err := internalauth.NormalizeEmail(email)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidEmail)
	}
	if err := internalauth.ValidatePassword(password); err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidPassword)
	}

	hash, err := internalauth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account, err := a.accounts.CreateAccount(ctx, name, normalized, hash, a.defaultStorageLimit, now)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, conflictCode(fmt.Errorf("email already registered"), ErrCodeEmailTaken)
		}
		return nil, err
	}
	return account, nil
}

// Login verifies credentials and mints a session token. Only the SHA-256 of
// the token is persisted.
func (a *AuthService) Login(ctx context.Context, email, password string, now time.Time) (*authLoginResult, error) {
	if a == nil || a.accounts == nil || a.sessions == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeEmail(email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if strings.TrimSpace(password) == "" {
		return nil, errInvalidCredentials
	}

	account, err := a.accounts.GetAccountByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Disabled || !internalauth.VerifyPassword(account.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	tokenHash := hashSessionToken(token)
	expiresAt := now.Add(a.sessionTTL)
	if err := a.sessions.CreateSession(ctx, account.ID, tokenHash, expiresAt, now); err != nil {
		return nil, err
	}

	return &authLoginResult{
		Account:   account,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// AuthenticateSessionToken resolves a raw token to its live account, or nil.
func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	if a == nil || a.sessions == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.sessions.GetAccountBySessionTokenHash(ctx, hashSessionToken(token), now)
}

// RevokeSessionToken invalidates the session behind a raw token.
func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.sessions == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.sessions.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

// SessionTTL reports the configured session lifetime.
func (a *AuthService) SessionTTL() time.Duration {
	if a == nil || a.sessionTTL <= 0 {
		return 24 * time.Hour
	}
	return a.sessionTTL
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
