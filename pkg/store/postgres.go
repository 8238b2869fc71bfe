package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"igtracker/pkg/config"
	"igtracker/pkg/logger"
)

// schemaStatements is the idempotent DDL for the tracker schema. Safe to
// run on every start; it only ever adds, never drops.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS follower_history (
		id BIGSERIAL PRIMARY KEY,
		account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		followers INTEGER NOT NULL,
		following INTEGER,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		CONSTRAINT follower_history_unique UNIQUE(account_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS account_followers (
		id BIGSERIAL PRIMARY KEY,
		account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		follower_username TEXT NOT NULL,
		full_name TEXT,
		profile_pic_url TEXT,
		is_private BOOLEAN,
		is_verified BOOLEAN,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT account_followers_unique UNIQUE(account_id, follower_username)
	)`,
	`CREATE INDEX IF NOT EXISTS account_followers_account_id_idx
		ON account_followers (account_id)`,
	`ALTER TABLE accounts
		ADD COLUMN IF NOT EXISTS is_deleted BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE accounts
		ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS accounts_is_deleted_idx
		ON accounts (is_deleted, COALESCE(deleted_at, '1970-01-01'::timestamptz), username)`,
	`CREATE TABLE IF NOT EXISTS admin_devices (
		id SERIAL PRIMARY KEY,
		device_uuid TEXT NOT NULL UNIQUE,
		label TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
}

// Postgres is the database-backed account store
type Postgres struct {
	pool      *pgxpool.Pool
	batchSize int
	logger    logger.Logger
}

// ConnectPostgres opens a connection pool and verifies connectivity.
// Connectivity failure here is fatal for the caller.
func ConnectPostgres(ctx context.Context, cfg *config.DatabaseConfig, batchSize int, log logger.Logger) (*Postgres, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	return &Postgres{pool: pool, batchSize: batchSize, logger: log}, nil
}

// Close releases the connection pool
func (s *Postgres) Close() {
	s.pool.Close()
}

// EnsureSchema idempotently creates all tables, indexes and columns
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	s.logger.Debug("database schema ensured")
	return nil
}

// UpsertAccount inserts or revives an account and returns its surrogate id.
// Touching an account always clears its soft-delete flags.
func (s *Postgres) UpsertAccount(ctx context.Context, username string) (int64, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return 0, fmt.Errorf("username is empty after normalization")
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (username, is_deleted, deleted_at)
		VALUES ($1, FALSE, NULL)
		ON CONFLICT (username) DO UPDATE
		SET is_deleted = FALSE,
		    deleted_at = NULL
		RETURNING id`,
		normalized,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert account %q: %w", normalized, err)
	}

	return id, nil
}

// UpsertHistory writes the follower-count measurement for one calendar
// date, replacing any prior measurement for the same date in place.
// Followers is required; callers must reject entries without a count.
func (s *Postgres) UpsertHistory(ctx context.Context, accountID int64, date time.Time, followers int, following *int) error {
	if followers < 0 {
		return fmt.Errorf("follower count must not be negative")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO follower_history (account_id, date, followers, following)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, date)
		DO UPDATE SET followers = EXCLUDED.followers,
		              following = EXCLUDED.following`,
		accountID, date.Format(DateFormat), followers, following,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert history for account %d: %w", accountID, err)
	}

	return nil
}

// ReplaceFollowerSnapshot transactionally replaces the stored follower
// list for an account with the given records. An empty list means the
// account now has zero followers recorded, not "snapshot unchanged".
func (s *Postgres) ReplaceFollowerSnapshot(ctx context.Context, accountID int64, records []FollowerRow) error {
	rows := make([][]interface{}, len(records))
	fetchedAt := time.Now()
	for i, r := range records {
		rows[i] = []interface{}{
			accountID, NormalizeUsername(r.Username), r.FullName,
			r.ProfilePicURL, r.IsPrivate, r.IsVerified, fetchedAt,
		}
	}

	statements, err := BuildBatchStatements(
		`INSERT INTO account_followers
		(account_id, follower_username, full_name, profile_pic_url, is_private, is_verified, fetched_at)
		VALUES %s
		ON CONFLICT (account_id, follower_username) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    profile_pic_url = EXCLUDED.profile_pic_url,
		    is_private = EXCLUDED.is_private,
		    is_verified = EXCLUDED.is_verified,
		    fetched_at = EXCLUDED.fetched_at`,
		rows, s.batchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to build snapshot statements: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM account_followers WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to clear prior snapshot: %w", err)
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			return fmt.Errorf("failed to insert snapshot batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.DebugWithFields("follower snapshot replaced", map[string]interface{}{
		"account_id": accountID,
		"followers":  len(records),
	})

	return nil
}

// ListAccounts returns all accounts in sync priority order: active
// accounts first, then soft-deleted ones, each group ordered by
// soft-delete timestamp (nulls as epoch) then username. This ordering is
// the sole prioritization mechanism for the sweep.
func (s *Postgres) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, created_at, is_deleted, deleted_at
		FROM accounts
		ORDER BY is_deleted ASC,
		         COALESCE(deleted_at, '1970-01-01'::timestamptz) ASC,
		         username ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.CreatedAt, &a.IsDeleted, &a.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	return accounts, nil
}

// FindAccount looks up an account by username without creating or
// reviving it. Returns ErrAccountNotFound when no such account exists.
func (s *Postgres) FindAccount(ctx context.Context, username string) (*Account, error) {
	normalized := NormalizeUsername(username)

	var a Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, created_at, is_deleted, deleted_at
		FROM accounts
		WHERE username = $1`,
		normalized,
	).Scan(&a.ID, &a.Username, &a.CreatedAt, &a.IsDeleted, &a.DeletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account %q: %w", normalized, err)
	}

	return &a, nil
}

// History returns all history entries for an account, oldest first
func (s *Postgres) History(ctx context.Context, accountID int64) ([]HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, followers, following
		FROM follower_history
		WHERE account_id = $1
		ORDER BY date ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var date time.Time
		var entry HistoryEntry
		if err := rows.Scan(&date, &entry.Followers, &entry.Following); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Date = date.Format(DateFormat)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return entries, nil
}

// RegisterDevice records an admin device in the device registry
func (s *Postgres) RegisterDevice(ctx context.Context, deviceUUID, label string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admin_devices (device_uuid, label)
		VALUES ($1, $2)
		ON CONFLICT (device_uuid) DO UPDATE SET label = EXCLUDED.label`,
		deviceUUID, label,
	)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// VerifyDevice reports whether a device UUID is registered
func (s *Postgres) VerifyDevice(ctx context.Context, deviceUUID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_devices WHERE device_uuid = $1)`,
		deviceUUID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to verify device: %w", err)
	}
	return exists, nil
}
