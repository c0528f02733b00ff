package store

import (
	"context"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "session@example.com", 1000)

	now := time.Now().UTC()
	if err := st.CreateSession(ctx, account.ID, "hash-1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetAccountBySessionTokenHash(ctx, "hash-1", now)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != account.ID {
		t.Fatalf("expected account %s, got %+v", account.ID, got)
	}

	if err := st.RevokeSessionByTokenHash(ctx, "hash-1", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = st.GetAccountBySessionTokenHash(ctx, "hash-1", now)
	if err != nil {
		t.Fatalf("lookup after revoke: %v", err)
	}
	if got != nil {
		t.Fatal("revoked session must not resolve")
	}
}

func TestSessionExpiry(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "expiry@example.com", 1000)

	now := time.Now().UTC()
	if err := st.CreateSession(ctx, account.ID, "hash-2", now.Add(time.Minute), now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := st.GetAccountBySessionTokenHash(ctx, "hash-2", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatal("expired session must not resolve")
	}
}

func TestSessionDisabledAccount(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "locked@example.com", 1000)

	now := time.Now().UTC()
	if err := st.CreateSession(ctx, account.ID, "hash-3", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := st.SetAccountDisabled(ctx, account.Email, true, now); err != nil {
		t.Fatalf("disable: %v", err)
	}

	got, err := st.GetAccountBySessionTokenHash(ctx, "hash-3", now)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatal("disabled account session must not resolve")
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	account := testAccount(t, st, "sweep@example.com", 1000)

	now := time.Now().UTC()
	if err := st.CreateSession(ctx, account.ID, "hash-live", now.Add(time.Hour), now); err != nil {
		t.Fatalf("create live: %v", err)
	}
	if err := st.CreateSession(ctx, account.ID, "hash-dead", now.Add(-time.Hour), now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("create dead: %v", err)
	}

	removed, err := st.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	got, err := st.GetAccountBySessionTokenHash(ctx, "hash-live", now)
	if err != nil {
		t.Fatalf("lookup live: %v", err)
	}
	if got == nil {
		t.Fatal("live session must survive sweep")
	}
}
