package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cumulus/internal/blobstore"
	"cumulus/internal/models"
	"cumulus/internal/store"
)

const recentUploadWindow = 7 * 24 * time.Hour

// FileService orchestrates uploads and deletes across the quota ledger, the
// blob store, and the file catalog. Each operation runs the steps in a fixed
// order and unwinds already-applied steps when a later one fails, so an
// account's storage_used never drifts from the bytes it actually holds.
type FileService struct {
	accounts store.AccountStore
	catalog  store.FileStore
	blobs    blobstore.BlobStore
	logger   *slog.Logger
}

// UploadInput describes one incoming file.
type UploadInput struct {
	Name      string
	MediaType string
	SizeBytes int64
}

func NewFileService(backend store.Backend, blobs blobstore.BlobStore, logger *slog.Logger) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{
		accounts: backend,
		catalog:  backend,
		blobs:    blobs,
		logger:   logger,
	}
}

// Upload admits one file for the account: reserve quota, persist the blob,
// then catalog it. A failure at any step releases the reservation and removes
// the blob if it was written.
func (f *FileService) Upload(ctx context.Context, account *models.Account, in UploadInput, content io.Reader) (*models.File, error) {
	if account == nil {
		return nil, fmt.Errorf("account is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, badRequestCode(fmt.Errorf("filename is required"), ErrCodeMissingRequired)
	}
	if in.SizeBytes < 0 {
		return nil, badRequest(fmt.Errorf("size must be >= 0"))
	}

	if err := f.accounts.ReserveStorage(ctx, account.ID, in.SizeBytes); err != nil {
		switch {
		case errors.Is(err, store.ErrQuotaExceeded):
			return nil, quotaExceeded(fmt.Errorf("storage quota exceeded"))
		case errors.Is(err, store.ErrAccountNotFound):
			return nil, notFoundCode(fmt.Errorf("account not found"), ErrCodeAccountNotFound)
		default:
			return nil, storeFailure(err)
		}
	}
	reserved := in.SizeBytes

	result, err := f.blobs.Put(ctx, content, filepath.Ext(name))
	if err != nil {
		f.releaseReservation(ctx, account.ID, reserved, "upload blob write failed")
		return nil, makeAPIError(500, "internal", ErrCodeBlobFailure, err)
	}

	// The declared size comes from the multipart header; the blob store
	// reports what actually landed on disk. Reconcile the reservation when
	// they disagree.
	if result.SizeBytes != reserved {
		if err := f.adjustReservation(ctx, account.ID, reserved, result.SizeBytes); err != nil {
			f.deleteBlob(ctx, result.Key, "upload reservation adjust failed")
			f.releaseReservation(ctx, account.ID, reserved, "upload reservation adjust failed")
			return nil, err
		}
		reserved = result.SizeBytes
	}

	file := &models.File{
		AccountID:  account.ID,
		Name:       name,
		SizeBytes:  result.SizeBytes,
		MediaType:  strings.TrimSpace(in.MediaType),
		StorageKey: result.Key,
		UploadedAt: time.Now().UTC(),
	}
	if err := f.catalog.CreateFile(ctx, file); err != nil {
		f.deleteBlob(ctx, result.Key, "upload catalog insert failed")
		f.releaseReservation(ctx, account.ID, reserved, "upload catalog insert failed")
		return nil, storeFailure(err)
	}

	return file, nil
}

// Delete retires one file owned by the account: remove the blob, drop the
// catalog entry, then release the quota. A file owned by another account is
// indistinguishable from a missing one.
func (f *FileService) Delete(ctx context.Context, accountID, fileID string) (*models.File, error) {
	file, err := f.catalog.GetFileForAccount(ctx, fileID, accountID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if file == nil {
		return nil, notFound(fmt.Errorf("file not found"))
	}

	if err := f.blobs.Delete(ctx, file.StorageKey); err != nil {
		// Catalog entry stays, so the delete can be retried.
		return nil, makeAPIError(500, "internal", ErrCodeBlobFailure, err)
	}

	removed, err := f.catalog.DeleteFile(ctx, file.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !removed {
		// A concurrent delete won the race; it also released the quota.
		return nil, notFound(fmt.Errorf("file not found"))
	}

	if err := f.accounts.ReleaseStorage(ctx, accountID, file.SizeBytes); err != nil {
		if errors.Is(err, store.ErrStorageUnderflow) {
			f.logger.Warn("storage release clamped at zero",
				"account_id", accountID, "file_id", file.ID, "size_bytes", file.SizeBytes)
		} else {
			// The file is gone either way; usage reconciliation is a
			// maintenance concern, not a request failure.
			f.logger.Error("storage release failed after delete",
				"account_id", accountID, "file_id", file.ID, "size_bytes", file.SizeBytes, "error", err)
		}
	}

	return file, nil
}

// Get returns one cataloged file scoped to its owner.
func (f *FileService) Get(ctx context.Context, accountID, fileID string) (*models.File, error) {
	file, err := f.catalog.GetFileForAccount(ctx, fileID, accountID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if file == nil {
		return nil, notFound(fmt.Errorf("file not found"))
	}
	return file, nil
}

// Open returns one file's metadata and a reader over its content.
func (f *FileService) Open(ctx context.Context, accountID, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := f.Get(ctx, accountID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := f.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, makeAPIError(500, "internal", ErrCodeBlobFailure, err)
	}
	return file, rc, nil
}

// List returns the account's files, newest first.
func (f *FileService) List(ctx context.Context, accountID string) ([]models.File, error) {
	files, err := f.catalog.ListFilesByAccount(ctx, accountID)
	if err != nil {
		return nil, storeFailure(err)
	}
	return files, nil
}

// Stats summarizes the account's catalog and ledger state.
func (f *FileService) Stats(ctx context.Context, accountID string, now time.Time) (*models.DashboardStats, error) {
	account, err := f.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if account == nil {
		return nil, notFoundCode(fmt.Errorf("account not found"), ErrCodeAccountNotFound)
	}

	total, err := f.catalog.CountFilesByAccount(ctx, accountID)
	if err != nil {
		return nil, storeFailure(err)
	}
	recent, err := f.catalog.CountFilesUploadedSince(ctx, accountID, now.Add(-recentUploadWindow))
	if err != nil {
		return nil, storeFailure(err)
	}

	return &models.DashboardStats{
		TotalFiles:    total,
		RecentUploads: recent,
		StorageUsed:   account.StorageUsed,
		StorageLimit:  account.StorageLimit,
	}, nil
}

func (f *FileService) adjustReservation(ctx context.Context, accountID string, declared, actual int64) error {
	if actual > declared {
		if err := f.accounts.ReserveStorage(ctx, accountID, actual-declared); err != nil {
			if errors.Is(err, store.ErrQuotaExceeded) {
				return quotaExceeded(fmt.Errorf("storage quota exceeded"))
			}
			return storeFailure(err)
		}
		return nil
	}
	f.releaseReservation(ctx, accountID, declared-actual, "upload size reconcile")
	return nil
}

func (f *FileService) releaseReservation(ctx context.Context, accountID string, n int64, reason string) {
	if n <= 0 {
		return
	}
	if err := f.accounts.ReleaseStorage(ctx, accountID, n); err != nil && !errors.Is(err, store.ErrStorageUnderflow) {
		f.logger.Error("compensating storage release failed",
			"account_id", accountID, "size_bytes", n, "reason", reason, "error", err)
	}
}

func (f *FileService) deleteBlob(ctx context.Context, key, reason string) {
	if err := f.blobs.Delete(ctx, key); err != nil {
		f.logger.Error("compensating blob delete failed", "key", key, "reason", reason, "error", err)
	}
}
