package store

import (
	"errors"
	"strings"
	"time"
)

// ErrAccountNotFound is returned by account lookups that do not create
var ErrAccountNotFound = errors.New("account not found")

// Account is a tracked Instagram account
type Account struct {
	ID        int64
	Username  string
	CreatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// HistoryEntry is one follower-count measurement for an account.
// Following is nullable: anonymous fetches sometimes omit it.
type HistoryEntry struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Followers int    `json:"followers"`
	Following *int   `json:"following"`
}

// FollowerRow is one row of an account's follower snapshot
type FollowerRow struct {
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsPrivate     bool   `json:"is_private"`
	IsVerified    bool   `json:"is_verified"`
}

// DateFormat is the calendar-date layout used throughout the store
const DateFormat = "2006-01-02"

// NormalizeUsername trims and lowercases a username. Every write path
// goes through this so "Foo" and "foo" resolve to the same account.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
