package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cumulus/internal/models"
)

// CreateSession creates a session bound to one account and token hash.
func (s *Store) CreateSession(ctx context.Context, accountID, tokenHash string, expiresAt, createdAt time.Time) error {
	accountID = strings.TrimSpace(accountID)
	tokenHash = strings.TrimSpace(tokenHash)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, NULL, ?)
	`, sessionID, accountID, tokenHash, dbFormatTime(expiresAt), dbFormatTime(createdAt))
	return err
}

// GetAccountBySessionTokenHash returns the owning account for an active,
// non-revoked session token hash.
func (s *Store) GetAccountBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.name, a.email, a.password_hash, a.storage_used, a.storage_limit, a.disabled, a.created_at, a.updated_at
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token_hash = ?
		  AND s.revoked_at IS NULL
		  AND s.expires_at > ?
		  AND a.disabled = 0
		LIMIT 1
	`, tokenHash, dbFormatTime(now))

	return scanAccount(row)
}

// RevokeSessionByTokenHash marks one session revoked by token hash.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = ?
		WHERE token_hash = ?
		  AND revoked_at IS NULL
	`, dbFormatTime(revokedAt), tokenHash)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry or revoked.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE expires_at <= ? OR revoked_at IS NOT NULL
	`, dbFormatTime(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
