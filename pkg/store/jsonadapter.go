package store

import (
	"context"
	"fmt"
	"time"
)

// JSONSyncStore adapts the flat-file backend to the sync driver's store
// surface. The file backend has no surrogate ids, so the adapter hands
// out ephemeral ones valid for the life of the process.
type JSONSyncStore struct {
	files  *JSONStore
	ids    map[string]int64
	names  map[int64]string
	nextID int64
}

// NewJSONSyncStore wraps a JSONStore for use by the sync driver
func NewJSONSyncStore(files *JSONStore) *JSONSyncStore {
	return &JSONSyncStore{
		files:  files,
		ids:    make(map[string]int64),
		names:  make(map[int64]string),
		nextID: 1,
	}
}

func (s *JSONSyncStore) idFor(username string) int64 {
	normalized := NormalizeUsername(username)
	if id, ok := s.ids[normalized]; ok {
		return id
	}
	id := s.nextID
	s.nextID++
	s.ids[normalized] = id
	s.names[id] = normalized
	return id
}

// UpsertAccount registers a username and returns its ephemeral id. The
// snapshot file itself is created lazily on the first history write.
func (s *JSONSyncStore) UpsertAccount(ctx context.Context, username string) (int64, error) {
	return s.idFor(username), nil
}

// UpsertHistory writes one measurement into the account's snapshot file
func (s *JSONSyncStore) UpsertHistory(ctx context.Context, accountID int64, date time.Time, followers int, following *int) error {
	username, ok := s.names[accountID]
	if !ok {
		return fmt.Errorf("unknown account id %d", accountID)
	}
	if followers < 0 {
		return fmt.Errorf("follower count cannot be negative")
	}
	return s.files.UpsertHistory(username, HistoryEntry{
		Date:      date.Format(DateFormat),
		Followers: followers,
		Following: following,
	})
}

// ReplaceFollowerSnapshot replaces the account's stored follower list
func (s *JSONSyncStore) ReplaceFollowerSnapshot(ctx context.Context, accountID int64, records []FollowerRow) error {
	username, ok := s.names[accountID]
	if !ok {
		return fmt.Errorf("unknown account id %d", accountID)
	}
	return s.files.SaveFollowerSnapshot(username, records)
}

// ListAccounts lists tracked accounts from the accounts file and any
// existing snapshot files. The file backend has no soft-delete flag, so
// every account is active.
func (s *JSONSyncStore) ListAccounts(ctx context.Context) ([]Account, error) {
	usernames, err := s.files.ListUsernames()
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(usernames))
	for _, username := range usernames {
		accounts = append(accounts, Account{
			ID:       s.idFor(username),
			Username: username,
		})
	}
	return accounts, nil
}
