package store

import (
	"context"
	"time"

	"cumulus/internal/models"
)

// Ledger is the per-account storage accounting surface. Reserve and Release
// are atomic with respect to each other for the same account.
type Ledger interface {
	ReserveStorage(ctx context.Context, accountID string, n int64) error
	ReleaseStorage(ctx context.Context, accountID string, n int64) error
}

// AccountStore abstracts account persistence, including the quota ledger.
type AccountStore interface {
	Ledger
	CreateAccount(ctx context.Context, name, email, passwordHash string, storageLimit int64, now time.Time) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
}

// FileStore is the catalog persistence surface.
//
// This is intentionally separate from AccountStore to keep ledger and
// catalog responsibilities decoupled.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.File) error
	GetFileForAccount(ctx context.Context, fileID, accountID string) (*models.File, error)
	ListFilesByAccount(ctx context.Context, accountID string) ([]models.File, error)
	DeleteFile(ctx context.Context, fileID string) (bool, error)
	CountFilesByAccount(ctx context.Context, accountID string) (int, error)
	CountFilesUploadedSince(ctx context.Context, accountID string, cutoff time.Time) (int, error)
}

// SessionStore abstracts session token persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, accountID, tokenHash string, expiresAt, createdAt time.Time) error
	GetAccountBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

// Backend aggregates the persistence surfaces the HTTP server needs.
type Backend interface {
	AccountStore
	FileStore
	SessionStore
}

var (
	_ AccountStore = (*Store)(nil)
	_ FileStore    = (*Store)(nil)
	_ SessionStore = (*Store)(nil)
	_ Backend      = (*Store)(nil)
)
