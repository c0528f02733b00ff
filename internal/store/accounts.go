package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cumulus/internal/models"
)

const accountColumns = "id, name, email, password_hash, storage_used, storage_limit, disabled, created_at, updated_at"

// CreateAccount inserts one account with zero usage. A duplicate email
// surfaces as ErrEmailTaken.
func (s *Store) CreateAccount(ctx context.Context, name, email, passwordHash string, storageLimit int64, now time.Time) (*models.Account, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, fmt.Errorf("password hash is required")
	}
	if storageLimit <= 0 {
		storageLimit = models.DefaultStorageLimit
	}

	accountID, err := GenerateAccountID()
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, storage_used, storage_limit, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, 0, ?, ?)
	`, accountID, name, email, passwordHash, storageLimit, dbFormatTime(now), dbFormatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: accounts.email") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return &models.Account{
		ID:           accountID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		StorageUsed:  0,
		StorageLimit: storageLimit,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// GetAccountByEmail returns an account by normalized email, or nil.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = ?
		LIMIT 1
	`, email)
	return scanAccount(row)
}

// GetAccountByID returns an account by id, or nil.
func (s *Store) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ?
		LIMIT 1
	`, id)
	return scanAccount(row)
}

// ListAccounts returns all accounts sorted by email.
func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY email ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		if account == nil {
			continue
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SetAccountDisabled updates one account's disabled state by email.
func (s *Store) SetAccountDisabled(ctx context.Context, email string, disabled bool, now time.Time) (*models.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	disabledInt := 0
	if disabled {
		disabledInt = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET disabled = ?, updated_at = ?
		WHERE email = ?
	`, disabledInt, dbFormatTime(now), email)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetAccountByEmail(ctx, email)
}

// SetStorageLimit changes one account's quota ceiling. Limits below current
// usage are rejected so the ledger invariant holds.
func (s *Store) SetStorageLimit(ctx context.Context, email string, limit int64, now time.Time) (*models.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("storage limit must be positive")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET storage_limit = ?, updated_at = ?
		WHERE email = ? AND storage_used <= ?
	`, limit, dbFormatTime(now), email, limit)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		account, err := s.GetAccountByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("limit %d below current usage %d", limit, account.StorageUsed)
	}
	return s.GetAccountByEmail(ctx, email)
}

// ReserveStorage atomically charges n bytes against one account's quota.
// The check and the increment are a single conditional UPDATE, so two
// concurrent reservations can never jointly exceed the limit.
func (s *Store) ReserveStorage(ctx context.Context, accountID string, n int64) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrAccountNotFound
	}
	if n < 0 {
		return fmt.Errorf("reserve amount must be >= 0")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET storage_used = storage_used + ?, updated_at = ?
		WHERE id = ? AND storage_used + ? <= storage_limit
	`, n, dbFormatTime(time.Now()), accountID, n)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	account, err := s.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}
	return ErrQuotaExceeded
}

// ReleaseStorage returns n bytes to one account's quota, clamped at zero.
// An underflow is persisted as zero and reported via ErrStorageUnderflow so
// the caller can log the bookkeeping bug without failing the request.
func (s *Store) ReleaseStorage(ctx context.Context, accountID string, n int64) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrAccountNotFound
	}
	if n < 0 {
		return fmt.Errorf("release amount must be >= 0")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var used int64
	err = tx.QueryRowContext(ctx, "SELECT storage_used FROM accounts WHERE id = ?", accountID).Scan(&used)
	if err == sql.ErrNoRows {
		err = ErrAccountNotFound
		return err
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE accounts
		SET storage_used = MAX(storage_used - ?, 0), updated_at = ?
		WHERE id = ?
	`, n, dbFormatTime(time.Now()), accountID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	if used < n {
		return ErrStorageUnderflow
	}
	return nil
}

func scanAccount(scanner interface {
	Scan(dest ...any) error
}) (*models.Account, error) {
	var account models.Account
	var disabled int
	var createdAt string
	var updatedAt string
	if err := scanner.Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash,
		&account.StorageUsed, &account.StorageLimit, &disabled, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	account.Disabled = disabled != 0
	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	parsedUpdated, err := dbParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = parsedCreated
	account.UpdatedAt = parsedUpdated
	return &account, nil
}
