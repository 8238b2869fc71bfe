package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func newTestSyncStore(t *testing.T) (*JSONSyncStore, *JSONStore) {
	t.Helper()
	files, err := NewJSONStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create JSON store: %v", err)
	}
	return NewJSONSyncStore(files), files
}

func TestJSONSyncStoreStableIDs(t *testing.T) {
	s, _ := newTestSyncStore(t)
	ctx := context.Background()

	first, err := s.UpsertAccount(ctx, "Alice")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := s.UpsertAccount(ctx, "  alice ")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected normalized usernames to share an id, got %d and %d", first, second)
	}

	other, _ := s.UpsertAccount(ctx, "bob")
	if other == first {
		t.Error("Expected distinct accounts to get distinct ids")
	}
}

func TestJSONSyncStoreHistoryWrite(t *testing.T) {
	s, files := newTestSyncStore(t)
	ctx := context.Background()

	id, _ := s.UpsertAccount(ctx, "alice")
	date := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	following := 120
	if err := s.UpsertHistory(ctx, id, date, 512, &following); err != nil {
		t.Fatalf("UpsertHistory failed: %v", err)
	}

	account := files.LoadAccount("alice")
	if len(account.History) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(account.History))
	}
	if account.History[0].Date != "2024-03-15" {
		t.Errorf("Expected date 2024-03-15, got %s", account.History[0].Date)
	}
	if account.History[0].Followers != 512 {
		t.Errorf("Expected 512 followers, got %d", account.History[0].Followers)
	}
}

func TestJSONSyncStoreUnknownID(t *testing.T) {
	s, _ := newTestSyncStore(t)

	if err := s.UpsertHistory(context.Background(), 99, time.Now(), 1, nil); err == nil {
		t.Error("Expected error for unknown account id")
	}
	if err := s.ReplaceFollowerSnapshot(context.Background(), 99, nil); err == nil {
		t.Error("Expected error for unknown account id")
	}
}

func TestFollowerSnapshotRoundTrip(t *testing.T) {
	files, err := NewJSONStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create JSON store: %v", err)
	}

	rows := []FollowerRow{
		{Username: "fan1", FullName: "Fan One", IsVerified: true},
		{Username: "fan2", IsPrivate: true},
	}
	if err := files.SaveFollowerSnapshot("Alice", rows); err != nil {
		t.Fatalf("SaveFollowerSnapshot failed: %v", err)
	}

	loaded := files.LoadFollowerSnapshot("alice")
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 followers, got %d", len(loaded))
	}
	if loaded[0].Username != "fan1" || !loaded[0].IsVerified {
		t.Errorf("Unexpected first follower: %+v", loaded[0])
	}

	// Empty replacement means zero followers recorded, not a no-op
	if err := files.SaveFollowerSnapshot("alice", nil); err != nil {
		t.Fatalf("SaveFollowerSnapshot with empty set failed: %v", err)
	}
	if loaded := files.LoadFollowerSnapshot("alice"); len(loaded) != 0 {
		t.Errorf("Expected empty snapshot after replacement, got %d rows", len(loaded))
	}
}

func TestLoadFollowerSnapshotMalformed(t *testing.T) {
	files, err := NewJSONStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create JSON store: %v", err)
	}

	if err := os.WriteFile(files.FollowerSnapshotPath("alice"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write malformed file: %v", err)
	}

	if loaded := files.LoadFollowerSnapshot("alice"); len(loaded) != 0 {
		t.Errorf("Expected malformed snapshot to load as empty, got %d rows", len(loaded))
	}
}

func TestListUsernamesIgnoresFollowerFiles(t *testing.T) {
	files, err := NewJSONStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to create JSON store: %v", err)
	}

	if err := files.UpsertHistory("alice", HistoryEntry{Date: "2024-03-15", Followers: 1}); err != nil {
		t.Fatalf("UpsertHistory failed: %v", err)
	}
	if err := files.SaveFollowerSnapshot("alice", []FollowerRow{{Username: "fan"}}); err != nil {
		t.Fatalf("SaveFollowerSnapshot failed: %v", err)
	}

	usernames, err := files.ListUsernames()
	if err != nil {
		t.Fatalf("ListUsernames failed: %v", err)
	}
	if len(usernames) != 1 || usernames[0] != "alice" {
		t.Errorf("Expected only [alice], got %v", usernames)
	}
}

func TestJSONSyncStoreListAccounts(t *testing.T) {
	s, files := newTestSyncStore(t)

	list := []string{"zoe", "alice"}
	data, _ := json.Marshal(list)
	if err := os.WriteFile(files.dataDir+"/"+accountsFileName, data, 0644); err != nil {
		t.Fatalf("Failed to write accounts file: %v", err)
	}

	accounts, err := s.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	for _, a := range accounts {
		if a.IsDeleted {
			t.Errorf("File-backed account %s should be active", a.Username)
		}
		if a.ID == 0 {
			t.Errorf("Account %s should have an assigned id", a.Username)
		}
	}
}
