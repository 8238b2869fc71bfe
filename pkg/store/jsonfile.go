package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"igtracker/pkg/logger"
)

// AccountFile is the per-account JSON snapshot:
// {"username": ..., "history": [{"date","followers","following"}, ...]}
// History entries are unique by date and kept sorted ascending.
type AccountFile struct {
	Username string         `json:"username"`
	History  []HistoryEntry `json:"history"`
}

// JSONStore is the flat-file persistence backend, one file per account
type JSONStore struct {
	dataDir string
	logger  logger.Logger
}

// accountsFileName is the account list file inside the data directory
const accountsFileName = "accounts.json"

// NewJSONStore creates the JSON file backend, creating the data
// directory if needed
func NewJSONStore(dataDir string, log logger.Logger) (*JSONStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONStore{dataDir: dataDir, logger: log}, nil
}

// AccountPath returns the snapshot file path for a username
func (s *JSONStore) AccountPath(username string) string {
	return filepath.Join(s.dataDir, NormalizeUsername(username)+".json")
}

// LoadAccount reads an account's snapshot file. A missing or malformed
// file yields a fresh empty state, never an error: losing one file's
// history beats aborting the whole sweep.
func (s *JSONStore) LoadAccount(username string) *AccountFile {
	normalized := NormalizeUsername(username)
	account := &AccountFile{Username: normalized, History: []HistoryEntry{}}

	data, err := os.ReadFile(s.AccountPath(normalized))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("username", normalized).Warn("could not read snapshot file, starting fresh")
		}
		return account
	}

	var parsed AccountFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.logger.WithError(err).WithField("username", normalized).Warn("malformed snapshot file, resetting")
		return account
	}

	parsed.Username = normalized
	if parsed.History == nil {
		parsed.History = []HistoryEntry{}
	}
	return &parsed
}

// UpsertHistory writes one measurement into an account's snapshot file,
// replacing any prior entry for the same date and keeping history sorted
// by date ascending.
func (s *JSONStore) UpsertHistory(username string, entry HistoryEntry) error {
	account := s.LoadAccount(username)

	replaced := false
	for i := range account.History {
		if account.History[i].Date == entry.Date {
			account.History[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		account.History = append(account.History, entry)
	}

	sort.Slice(account.History, func(i, j int) bool {
		return account.History[i].Date < account.History[j].Date
	})

	return s.save(account)
}

// save writes a snapshot file atomically via a temp file rename
func (s *JSONStore) save(account *AccountFile) error {
	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := s.AccountPath(account.Username)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	return nil
}

// isAccountSnapshotFile filters directory entries down to per-account
// history files, excluding the accounts list and follower snapshots
func isAccountSnapshotFile(isDir bool, name string) bool {
	if isDir || name == accountsFileName {
		return false
	}
	if strings.HasSuffix(name, ".followers.json") {
		return false
	}
	return strings.HasSuffix(name, ".json")
}

// FollowerSnapshotPath returns the follower-snapshot file path for a
// username
func (s *JSONStore) FollowerSnapshotPath(username string) string {
	return filepath.Join(s.dataDir, NormalizeUsername(username)+".followers.json")
}

// SaveFollowerSnapshot replaces an account's stored follower list with
// the given set. An empty set writes an empty list, meaning the account
// currently has zero recorded followers.
func (s *JSONStore) SaveFollowerSnapshot(username string, rows []FollowerRow) error {
	if rows == nil {
		rows = []FollowerRow{}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal follower snapshot: %w", err)
	}

	path := s.FollowerSnapshotPath(username)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write follower snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename follower snapshot: %w", err)
	}
	return nil
}

// LoadFollowerSnapshot reads an account's stored follower list. Missing
// or malformed files yield an empty list.
func (s *JSONStore) LoadFollowerSnapshot(username string) []FollowerRow {
	data, err := os.ReadFile(s.FollowerSnapshotPath(username))
	if err != nil {
		return []FollowerRow{}
	}

	var rows []FollowerRow
	if err := json.Unmarshal(data, &rows); err != nil {
		s.logger.WithError(err).WithField("username", username).Warn("malformed follower snapshot, resetting")
		return []FollowerRow{}
	}
	return rows
}

// accountsListEntry accepts both plain strings and {"username": ...}
// objects from the accounts list file
type accountsListEntry struct {
	Username string `json:"username"`
	raw      string
}

func (e *accountsListEntry) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.raw = asString
		return nil
	}

	var asObject struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return err
	}
	e.Username = asObject.Username
	return nil
}

func (e *accountsListEntry) value() string {
	if e.raw != "" {
		return e.raw
	}
	return e.Username
}

// ListUsernames returns the tracked usernames, sorted and deduplicated.
// The accounts.json list is authoritative; when it is missing or empty,
// the usernames of existing snapshot files are used instead. Entries
// without a username are skipped.
func (s *JSONStore) ListUsernames() ([]string, error) {
	seen := make(map[string]bool)

	accountsPath := filepath.Join(s.dataDir, accountsFileName)
	if data, err := os.ReadFile(accountsPath); err == nil {
		var entries []accountsListEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			s.logger.WithError(err).WithField("file", accountsPath).Warn("could not parse accounts list")
		} else {
			for _, entry := range entries {
				if name := NormalizeUsername(entry.value()); name != "" {
					seen[name] = true
				}
			}
		}
	}

	if len(seen) == 0 {
		entries, err := os.ReadDir(s.dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data directory: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if !isAccountSnapshotFile(entry.IsDir(), name) {
				continue
			}
			account := s.LoadAccount(strings.TrimSuffix(name, ".json"))
			if account.Username != "" {
				seen[account.Username] = true
			}
		}
	}

	usernames := make([]string, 0, len(seen))
	for name := range seen {
		usernames = append(usernames, name)
	}
	sort.Strings(usernames)

	return usernames, nil
}

// LoadAllAccounts reads every snapshot file in the data directory,
// skipping the accounts list and anything malformed
func (s *JSONStore) LoadAllAccounts() ([]*AccountFile, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	var accounts []*AccountFile
	for _, entry := range entries {
		name := entry.Name()
		if !isAccountSnapshotFile(entry.IsDir(), name) {
			continue
		}
		account := s.LoadAccount(strings.TrimSuffix(name, ".json"))
		if account.Username != "" {
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}
