package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cumulus/internal/models"
)

const fileColumns = "id, account_id, name, size_bytes, media_type, storage_key, is_shared, uploaded_at"

// CreateFile inserts one catalog entry. The id is generated when absent.
func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	if strings.TrimSpace(file.AccountID) == "" {
		return fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(file.Name) == "" {
		return fmt.Errorf("file name is required")
	}
	if strings.TrimSpace(file.StorageKey) == "" {
		return fmt.Errorf("storage key is required")
	}
	if file.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be >= 0")
	}

	if strings.TrimSpace(file.ID) == "" {
		id, err := GenerateFileID()
		if err != nil {
			return err
		}
		file.ID = id
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	isShared := 0
	if file.IsShared {
		isShared = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, account_id, name, size_bytes, media_type, storage_key, is_shared, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, file.ID, file.AccountID, file.Name, file.SizeBytes, nullableString(file.MediaType), file.StorageKey, isShared, dbFormatTime(file.UploadedAt))
	return err
}

// GetFileForAccount returns one file scoped to its owner. A file that exists
// but belongs to another account comes back nil, same as a missing id.
func (s *Store) GetFileForAccount(ctx context.Context, fileID, accountID string) (*models.File, error) {
	fileID = strings.TrimSpace(fileID)
	accountID = strings.TrimSpace(accountID)
	if fileID == "" || accountID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE id = ? AND account_id = ?
		LIMIT 1
	`, fileID, accountID)
	return scanFile(row)
}

// ListFilesByAccount lists one account's files, newest first.
func (s *Store) ListFilesByAccount(ctx context.Context, accountID string) ([]models.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE account_id = ?
		ORDER BY uploaded_at DESC, id ASC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// DeleteFile deletes one catalog entry and reports whether a row was removed.
func (s *Store) DeleteFile(ctx context.Context, fileID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountFilesByAccount returns the number of cataloged files for one account.
func (s *Store) CountFilesByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE account_id = ?", accountID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountFilesUploadedSince counts one account's files uploaded at or after cutoff.
func (s *Store) CountFilesUploadedSince(ctx context.Context, accountID string, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM files
		WHERE account_id = ? AND uploaded_at >= ?
	`, accountID, dbFormatTime(cutoff)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SumFileSizesByAccount totals the cataloged sizes for one account. The
// result must always equal the ledger's storage_used.
func (s *Store) SumFileSizesByAccount(ctx context.Context, accountID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE account_id = ?", accountID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.File, error) {
	var file models.File
	var mediaType sql.NullString
	var isShared int
	var uploadedAt string
	if err := scanner.Scan(&file.ID, &file.AccountID, &file.Name, &file.SizeBytes,
		&mediaType, &file.StorageKey, &isShared, &uploadedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if mediaType.Valid {
		file.MediaType = mediaType.String
	}
	file.IsShared = isShared != 0
	parsed, err := dbParseTime(uploadedAt)
	if err != nil {
		return nil, err
	}
	file.UploadedAt = parsed
	return &file, nil
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}
