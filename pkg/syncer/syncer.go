package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igtracker/pkg/backoff"
	"igtracker/pkg/config"
	igerrors "igtracker/pkg/errors"
	"igtracker/pkg/instagram"
	"igtracker/pkg/logger"
	"igtracker/pkg/store"
)

// ProfileFetcher is the slice of the Instagram client the driver needs
type ProfileFetcher interface {
	FetchProfile(username string) (*instagram.Profile, error)
	FetchFollowers(userID string, after string) (*instagram.FollowerPage, error)
}

// Store is the persistence surface the driver writes through
type Store interface {
	UpsertAccount(ctx context.Context, username string) (int64, error)
	UpsertHistory(ctx context.Context, accountID int64, date time.Time, followers int, following *int) error
	ReplaceFollowerSnapshot(ctx context.Context, accountID int64, records []store.FollowerRow) error
	ListAccounts(ctx context.Context) ([]store.Account, error)
}

// SleepFunc suspends between accounts; injectable so tests run instantly
type SleepFunc func(ctx context.Context, delay time.Duration) error

// Result summarizes one sweep
type Result struct {
	Synced  int
	Failed  int
	Skipped int
}

// ErrNoAccounts is returned when the store lists nothing to sync
var ErrNoAccounts = errors.New("no accounts to sync")

// persistError marks a storage failure. Unlike fetch errors, which skip
// a single account, a failed write aborts the whole sweep.
type persistError struct {
	err error
}

func (e *persistError) Error() string {
	return "persist: " + e.err.Error()
}

func (e *persistError) Unwrap() error {
	return e.err
}

// Driver runs the sequential account sweep: fetch profile stats, write
// the daily history row, enumerate followers, replace the snapshot,
// then sleep. Accounts are processed one at a time with blocking delays
// between them to stay under the upstream abuse-detection thresholds.
type Driver struct {
	fetcher    ProfileFetcher
	store      Store
	policy     *backoff.Policy
	log        logger.Logger
	accountCap int
	sleep      SleepFunc
	now        func() time.Time
}

// New creates a sync driver
func New(fetcher ProfileFetcher, st Store, policy *backoff.Policy, cfg *config.SyncConfig, log logger.Logger) *Driver {
	return &Driver{
		fetcher:    fetcher,
		store:      st,
		policy:     policy,
		log:        log,
		accountCap: cfg.AccountCap,
		sleep:      backoff.Wait,
		now:        time.Now,
	}
}

// SetSleep overrides the inter-account sleep, used by tests
func (d *Driver) SetSleep(sleep SleepFunc) {
	d.sleep = sleep
}

// SetNow overrides the clock, used by tests
func (d *Driver) SetNow(now func() time.Time) {
	d.now = now
}

// Sweep syncs every stored account in priority order: active accounts
// first, soft-deleted accounts last. A per-account fetch failure is
// logged and skipped; the sweep aborts only on a storage failure or
// context cancellation.
func (d *Driver) Sweep(ctx context.Context) (Result, error) {
	var result Result

	accounts, err := d.store.ListAccounts(ctx)
	if err != nil {
		return result, fmt.Errorf("listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return result, ErrNoAccounts
	}

	if d.accountCap > 0 && len(accounts) > d.accountCap {
		dropped := accounts[d.accountCap:]
		accounts = accounts[:d.accountCap]
		result.Skipped = len(dropped)

		activeDropped := 0
		for _, acct := range dropped {
			if !acct.IsDeleted {
				activeDropped++
			}
		}
		if activeDropped > 0 {
			d.log.WarnWithFields("account cap excludes active accounts", map[string]interface{}{
				"cap":            d.accountCap,
				"skipped":        len(dropped),
				"skipped_active": activeDropped,
			})
		}
	}

	d.log.InfoWithFields("starting sweep", map[string]interface{}{
		"accounts": len(accounts),
	})

	for _, acct := range accounts {
		priority := priorityFor(acct)

		if err := d.processAccount(ctx, acct.ID, acct.Username, priority, &result); err != nil {
			return result, err
		}
		if err := d.sleep(ctx, d.policy.AccountDelay(priority)); err != nil {
			return result, err
		}
	}

	d.log.InfoWithFields("sweep finished", map[string]interface{}{
		"synced":  result.Synced,
		"failed":  result.Failed,
		"skipped": result.Skipped,
	})
	return result, nil
}

// SyncUsernames syncs a caller-supplied list of usernames, creating or
// reviving each account first. Used for the initial import-driven sync
// and for single-account runs.
func (d *Driver) SyncUsernames(ctx context.Context, usernames []string) (Result, error) {
	var result Result

	if len(usernames) == 0 {
		return result, ErrNoAccounts
	}

	for _, username := range usernames {
		id, err := d.store.UpsertAccount(ctx, username)
		if err != nil {
			return result, fmt.Errorf("upserting account %q: %w", username, err)
		}
		if err := d.processAccount(ctx, id, store.NormalizeUsername(username), backoff.PriorityActive, &result); err != nil {
			return result, err
		}
		if err := d.sleep(ctx, d.policy.AccountDelay(backoff.PriorityActive)); err != nil {
			return result, err
		}
	}
	return result, nil
}

// processAccount runs one account and updates the counters. Fetch errors
// are absorbed here; storage failures and cancellation propagate.
func (d *Driver) processAccount(ctx context.Context, id int64, username string, priority backoff.Priority, result *Result) error {
	err := d.syncOne(ctx, id, username, priority)
	if err == nil {
		result.Synced++
		d.log.WithField("username", username).Info("account synced")
		return nil
	}

	var pe *persistError
	if errors.As(err, &pe) {
		return pe.err
	}

	result.Failed++
	d.log.WithError(err).WithField("username", username).Error("account sync failed")

	if igerrors.IsConnection(err) {
		if werr := d.sleep(ctx, d.policy.ErrorDelay(priority)); werr != nil {
			return werr
		}
	}
	return nil
}

// syncOne runs the per-account state machine. The history write lands
// before follower enumeration starts, so an enumeration failure leaves
// the day's counts committed and only the snapshot stale.
func (d *Driver) syncOne(ctx context.Context, id int64, username string, priority backoff.Priority) error {
	profile, err := d.fetcher.FetchProfile(username)
	if err != nil {
		return err
	}

	following := profile.Following
	if err := d.store.UpsertHistory(ctx, id, d.now().UTC(), profile.Followers, &following); err != nil {
		return &persistError{err}
	}

	rows, err := d.collectFollowers(profile.ID)
	if err != nil {
		d.log.WithError(err).WithField("username", username).Warn("follower enumeration failed, keeping previous snapshot")
		if igerrors.IsConnection(err) {
			return err
		}
		return nil
	}

	if err := d.store.ReplaceFollowerSnapshot(ctx, id, rows); err != nil {
		return &persistError{err}
	}
	return nil
}

// collectFollowers walks the paginated follower list to the end
func (d *Driver) collectFollowers(userID string) ([]store.FollowerRow, error) {
	var rows []store.FollowerRow
	after := ""

	for {
		page, err := d.fetcher.FetchFollowers(userID, after)
		if err != nil {
			return nil, err
		}
		for _, user := range page.Users {
			rows = append(rows, store.FollowerRow{
				Username:      user.Username,
				FullName:      user.FullName,
				ProfilePicURL: user.ProfilePicURL,
				IsPrivate:     user.IsPrivate,
				IsVerified:    user.IsVerified,
			})
		}
		if !page.HasNextPage() {
			return rows, nil
		}
		after = page.NextMaxID
	}
}

func priorityFor(acct store.Account) backoff.Priority {
	if acct.IsDeleted {
		return backoff.PriorityDeprioritized
	}
	return backoff.PriorityActive
}
