package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"cumulus/internal/blobstore"
	"cumulus/internal/models"
	"cumulus/internal/store"
)

// fakeBackend is an in-memory store.Backend with per-call failure hooks.
type fakeBackend struct {
	accounts map[string]*models.Account
	files    map[string]*models.File

	reserveErr    error
	releaseErr    error
	createFileErr error
	releaseCalls  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts: map[string]*models.Account{},
		files:    map[string]*models.File{},
	}
}

func (b *fakeBackend) addAccount(id string, used, limit int64) *models.Account {
	account := &models.Account{ID: id, Name: "Test", Email: id + "@example.com", StorageUsed: used, StorageLimit: limit}
	b.accounts[id] = account
	return account
}

func (b *fakeBackend) ReserveStorage(ctx context.Context, accountID string, n int64) error {
	if b.reserveErr != nil {
		return b.reserveErr
	}
	account, ok := b.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	if account.StorageUsed+n > account.StorageLimit {
		return store.ErrQuotaExceeded
	}
	account.StorageUsed += n
	return nil
}

func (b *fakeBackend) ReleaseStorage(ctx context.Context, accountID string, n int64) error {
	b.releaseCalls++
	if b.releaseErr != nil {
		return b.releaseErr
	}
	account, ok := b.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.StorageUsed -= n
	if account.StorageUsed < 0 {
		account.StorageUsed = 0
		return store.ErrStorageUnderflow
	}
	return nil
}

func (b *fakeBackend) CreateAccount(ctx context.Context, name, email, passwordHash string, storageLimit int64, now time.Time) (*models.Account, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *fakeBackend) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, account := range b.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return b.accounts[id], nil
}

func (b *fakeBackend) CreateFile(ctx context.Context, file *models.File) error {
	if b.createFileErr != nil {
		return b.createFileErr
	}
	if file.ID == "" {
		file.ID = fmt.Sprintf("fl-%020d", len(b.files)+1)
	}
	clone := *file
	b.files[file.ID] = &clone
	return nil
}

func (b *fakeBackend) GetFileForAccount(ctx context.Context, fileID, accountID string) (*models.File, error) {
	file, ok := b.files[fileID]
	if !ok || file.AccountID != accountID {
		return nil, nil
	}
	clone := *file
	return &clone, nil
}

func (b *fakeBackend) ListFilesByAccount(ctx context.Context, accountID string) ([]models.File, error) {
	out := []models.File{}
	for _, file := range b.files {
		if file.AccountID == accountID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (b *fakeBackend) DeleteFile(ctx context.Context, fileID string) (bool, error) {
	if _, ok := b.files[fileID]; !ok {
		return false, nil
	}
	delete(b.files, fileID)
	return true, nil
}

func (b *fakeBackend) CountFilesByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	for _, file := range b.files {
		if file.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (b *fakeBackend) CountFilesUploadedSince(ctx context.Context, accountID string, cutoff time.Time) (int, error) {
	count := 0
	for _, file := range b.files {
		if file.AccountID == accountID && !file.UploadedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (b *fakeBackend) CreateSession(ctx context.Context, accountID, tokenHash string, expiresAt, createdAt time.Time) error {
	return nil
}

func (b *fakeBackend) GetAccountBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	return nil, nil
}

func (b *fakeBackend) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	return nil
}

// fakeBlobStore keeps blobs in memory and can be made to fail writes.
type fakeBlobStore struct {
	blobs   map[string][]byte
	putErr  error
	nextKey int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (b *fakeBlobStore) Put(ctx context.Context, r io.Reader, suggestedExt string) (blobstore.PutResult, error) {
	if b.putErr != nil {
		return blobstore.PutResult{}, b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return blobstore.PutResult{}, err
	}
	b.nextKey++
	key := fmt.Sprintf("aa/bb/%032d%s", b.nextKey, suggestedExt)
	b.blobs[key] = data
	return blobstore.PutResult{Key: key, SizeBytes: int64(len(data))}, nil
}

func (b *fakeBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	delete(b.blobs, key)
	return nil
}

func (b *fakeBlobStore) Size(ctx context.Context, key string) (int64, error) {
	data, ok := b.blobs[key]
	if !ok {
		return 0, fmt.Errorf("blob %s not found", key)
	}
	return int64(len(data)), nil
}

func newTestFileService(backend *fakeBackend, blobs *fakeBlobStore) *FileService {
	return NewFileService(backend, blobs, nil)
}

func TestUploadHappyPath(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	content := strings.Repeat("x", 400)
	file, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "report.pdf", MediaType: "application/pdf", SizeBytes: 400,
	}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if file.SizeBytes != 400 {
		t.Fatalf("expected size 400, got %d", file.SizeBytes)
	}
	if backend.accounts["ac-1"].StorageUsed != 400 {
		t.Fatalf("expected usage 400, got %d", backend.accounts["ac-1"].StorageUsed)
	}
	if len(blobs.blobs) != 1 {
		t.Fatalf("expected one blob, got %d", len(blobs.blobs))
	}
	if _, ok := backend.files[file.ID]; !ok {
		t.Fatal("expected catalog entry")
	}
}

func TestUploadQuotaExceeded(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 700, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	_, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "big.bin", SizeBytes: 400,
	}, strings.NewReader(strings.Repeat("x", 400)))
	if err == nil {
		t.Fatal("expected quota error")
	}
	if httpStatusFromError(err) != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", httpStatusFromError(err))
	}
	if backend.accounts["ac-1"].StorageUsed != 700 {
		t.Fatalf("usage must be unchanged, got %d", backend.accounts["ac-1"].StorageUsed)
	}
	if len(blobs.blobs) != 0 {
		t.Fatal("no blob may be written on quota failure")
	}
}

func TestUploadBlobFailureReleasesReservation(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	blobs := newFakeBlobStore()
	blobs.putErr = errors.New("disk full")
	svc := newTestFileService(backend, blobs)

	_, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "a.txt", SizeBytes: 100,
	}, strings.NewReader(strings.Repeat("x", 100)))
	if err == nil {
		t.Fatal("expected error")
	}
	if httpStatusFromError(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", httpStatusFromError(err))
	}
	if backend.accounts["ac-1"].StorageUsed != 0 {
		t.Fatalf("reservation must be released, usage %d", backend.accounts["ac-1"].StorageUsed)
	}
}

func TestUploadCatalogFailureCompensates(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	backend.createFileErr = errors.New("catalog down")
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	_, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "a.txt", SizeBytes: 100,
	}, strings.NewReader(strings.Repeat("x", 100)))
	if err == nil {
		t.Fatal("expected error")
	}
	if backend.accounts["ac-1"].StorageUsed != 0 {
		t.Fatalf("reservation must be released, usage %d", backend.accounts["ac-1"].StorageUsed)
	}
	if len(blobs.blobs) != 0 {
		t.Fatal("blob must be removed when catalog insert fails")
	}
}

func TestUploadReconcilesUndeclaredSize(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	// Declared 100, actually 250.
	file, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "grow.bin", SizeBytes: 100,
	}, strings.NewReader(strings.Repeat("x", 250)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if file.SizeBytes != 250 {
		t.Fatalf("expected actual size 250, got %d", file.SizeBytes)
	}
	if backend.accounts["ac-1"].StorageUsed != 250 {
		t.Fatalf("expected usage 250, got %d", backend.accounts["ac-1"].StorageUsed)
	}
}

func TestDeleteReleasesQuota(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	file, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "a.txt", SizeBytes: 300,
	}, strings.NewReader(strings.Repeat("x", 300)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	deleted, err := svc.Delete(context.Background(), "ac-1", file.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != file.ID {
		t.Fatalf("expected file %s, got %s", file.ID, deleted.ID)
	}
	if backend.accounts["ac-1"].StorageUsed != 0 {
		t.Fatalf("expected usage 0, got %d", backend.accounts["ac-1"].StorageUsed)
	}
	if len(blobs.blobs) != 0 {
		t.Fatal("blob must be removed")
	}
}

func TestDeleteTwiceIsNotFound(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	file, err := svc.Upload(context.Background(), account, UploadInput{
		Name: "a.txt", SizeBytes: 300,
	}, strings.NewReader(strings.Repeat("x", 300)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Delete(context.Background(), "ac-1", file.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	releasesAfterFirst := backend.releaseCalls

	_, err = svc.Delete(context.Background(), "ac-1", file.ID)
	if err == nil {
		t.Fatal("expected not found")
	}
	if httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", httpStatusFromError(err))
	}
	if backend.releaseCalls != releasesAfterFirst {
		t.Fatal("second delete must not release quota again")
	}
}

func TestDeleteOtherAccountsFileIsNotFound(t *testing.T) {
	backend := newFakeBackend()
	owner := backend.addAccount("ac-1", 0, 1000)
	backend.addAccount("ac-2", 0, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	file, err := svc.Upload(context.Background(), owner, UploadInput{
		Name: "a.txt", SizeBytes: 100,
	}, strings.NewReader(strings.Repeat("x", 100)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, err = svc.Delete(context.Background(), "ac-2", file.ID)
	if httpStatusFromError(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign file, got %v", err)
	}
	if _, ok := backend.files[file.ID]; !ok {
		t.Fatal("owner's file must survive")
	}
}

func TestStats(t *testing.T) {
	backend := newFakeBackend()
	account := backend.addAccount("ac-1", 0, 1000)
	blobs := newFakeBlobStore()
	svc := newTestFileService(backend, blobs)

	now := time.Now().UTC()
	for i, size := range []int64{100, 200} {
		_, err := svc.Upload(context.Background(), account, UploadInput{
			Name: fmt.Sprintf("f%d.txt", i), SizeBytes: size,
		}, strings.NewReader(strings.Repeat("x", int(size))))
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}
	// One stale entry outside the recent window.
	backend.files["fl-old"] = &models.File{
		ID: "fl-old", AccountID: "ac-1", Name: "old.txt", SizeBytes: 0,
		StorageKey: "aa/bb/old", UploadedAt: now.Add(-30 * 24 * time.Hour),
	}

	stats, err := svc.Stats(context.Background(), "ac-1", now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 3 {
		t.Fatalf("expected 3 files, got %d", stats.TotalFiles)
	}
	if stats.RecentUploads != 2 {
		t.Fatalf("expected 2 recent uploads, got %d", stats.RecentUploads)
	}
	if stats.StorageUsed != 300 || stats.StorageLimit != 1000 {
		t.Fatalf("unexpected usage %d/%d", stats.StorageUsed, stats.StorageLimit)
	}
	if stats.TotalFolders != 0 || stats.SharedFiles != 0 {
		t.Fatal("folders and shares are reserved surface and must be zero")
	}
}
