package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadAccountSeeds(t *testing.T) {
	path := writeSeedFile(t, `accounts:
  - name: Alice
    email: Alice@Example.com
    password: secret-1
    storage_limit: 2048
  - email: bob@example.com
    password: secret-2
`)

	seeds, err := loadAccountSeeds(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("expected 2 seeds, got %d", len(seeds))
	}
	if seeds[0].Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", seeds[0].Email)
	}
	if seeds[0].StorageLimit != 2048 {
		t.Fatalf("expected limit 2048, got %d", seeds[0].StorageLimit)
	}
	if seeds[1].Name != "bob@example.com" {
		t.Fatalf("expected name to default to email, got %q", seeds[1].Name)
	}
}

func TestLoadAccountSeedsRejectsBadEmail(t *testing.T) {
	path := writeSeedFile(t, `accounts:
  - email: not-an-email
    password: secret-1
`)
	if _, err := loadAccountSeeds(path); err == nil {
		t.Fatal("expected error for invalid email")
	}
}

func TestLoadAccountSeedsRejectsShortPassword(t *testing.T) {
	path := writeSeedFile(t, `accounts:
  - email: short@example.com
    password: abc
`)
	if _, err := loadAccountSeeds(path); err == nil {
		t.Fatal("expected error for short password")
	}
}
