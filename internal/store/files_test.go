package store

import (
	"context"
	"testing"
	"time"

	"cumulus/internal/models"
)

func testFile(t *testing.T, st *Store, accountID, name string, size int64, uploadedAt time.Time) *models.File {
	t.Helper()
	file := &models.File{
		AccountID:  accountID,
		Name:       name,
		SizeBytes:  size,
		MediaType:  "text/plain",
		StorageKey: "aa/bb/" + name,
		UploadedAt: uploadedAt,
	}
	if err := st.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("create file: %v", err)
	}
	return file
}

func TestCreateAndGetFile(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "files@example.com", 1000)

	file := testFile(t, st, account.ID, "report.txt", 42, time.Now().UTC())
	if file.ID == "" {
		t.Fatal("expected generated file id")
	}

	got, err := st.GetFileForAccount(ctx, file.ID, account.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected file, got nil")
	}
	if got.Name != "report.txt" || got.SizeBytes != 42 || got.MediaType != "text/plain" {
		t.Fatalf("unexpected file: %+v", got)
	}
	if got.IsShared {
		t.Fatal("sharing flag must default to false")
	}
}

func TestGetFileForAccountScopesOwner(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	owner := testAccount(t, st, "owner@example.com", 1000)
	other := testAccount(t, st, "other@example.com", 1000)

	file := testFile(t, st, owner.ID, "secret.txt", 5, time.Now().UTC())

	got, err := st.GetFileForAccount(ctx, file.ID, other.ID)
	if err != nil {
		t.Fatalf("cross-account get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for other account, got %+v", got)
	}
}

func TestListFilesByAccountNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "list@example.com", 1000)

	base := time.Now().UTC().Add(-time.Hour)
	testFile(t, st, account.ID, "old.txt", 1, base)
	testFile(t, st, account.ID, "new.txt", 2, base.Add(30*time.Minute))

	files, err := st.ListFilesByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "new.txt" {
		t.Fatalf("expected newest first, got %q", files[0].Name)
	}
}

func TestDeleteFile(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "del@example.com", 1000)
	file := testFile(t, st, account.ID, "gone.txt", 3, time.Now().UTC())

	deleted, err := st.DeleteFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected row to be removed")
	}

	again, err := st.DeleteFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if again {
		t.Fatal("second delete must report no row")
	}
}

func TestFileCountsAndSums(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "count@example.com", 1000)

	now := time.Now().UTC()
	testFile(t, st, account.ID, "recent.txt", 10, now.Add(-time.Hour))
	testFile(t, st, account.ID, "ancient.txt", 20, now.Add(-30*24*time.Hour))

	total, err := st.CountFilesByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 files, got %d", total)
	}

	recent, err := st.CountFilesUploadedSince(ctx, account.ID, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if recent != 1 {
		t.Fatalf("expected 1 recent file, got %d", recent)
	}

	sum, err := st.SumFileSizesByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != 30 {
		t.Fatalf("expected sum 30, got %d", sum)
	}
}

func TestDeleteAccountCascadesFiles(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "cascade@example.com", 1000)
	file := testFile(t, st, account.ID, "orphan.txt", 1, time.Now().UTC())

	if _, err := st.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", account.ID); err != nil {
		t.Fatalf("delete account row: %v", err)
	}

	got, err := st.GetFileForAccount(ctx, file.ID, account.ID)
	if err != nil {
		t.Fatalf("get after cascade: %v", err)
	}
	if got != nil {
		t.Fatalf("expected cascade delete, got %+v", got)
	}
}
