package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igtracker/pkg/backoff"
	"igtracker/pkg/logger"
	"igtracker/pkg/store"
	"igtracker/pkg/syncer"
)

var (
	accountCap int
	dataDir    string
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync follower counts for every tracked account",
	Long: `Run one full sweep over all tracked accounts: fetch current follower
and following counts, record a daily history entry, and replace each
account's follower snapshot.

Accounts come from PostgreSQL when a database is configured, otherwise
from accounts.json and existing snapshot files in the data directory.
Active accounts are synced before soft-deleted ones. The sweep is
best-effort: a failing account is logged and skipped, and the run keeps
going.`,
	Example: `  # Sweep using the configured backend
  igtracker sync

  # Limit the run to the 50 highest-priority accounts
  igtracker sync --account-cap 50`,
	Args: cobra.NoArgs,
	Run:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVar(&accountCap, "account-cap", 0, "maximum accounts per run (0 for unlimited)")
	syncCmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory for the JSON file backend")
}

func runSync(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if accountCap > 0 {
		flags["account-cap"] = accountCap
	}
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	ctx := context.Background()

	var st syncer.Store
	if cfg.Database.Enabled() {
		pg, err := store.ConnectPostgres(ctx, &cfg.Database, cfg.Sync.SnapshotBatchSize, log)
		if err != nil {
			log.WithError(err).Error("database connection failed")
			os.Exit(1)
		}
		defer pg.Close()

		if err := pg.EnsureSchema(ctx); err != nil {
			log.WithError(err).Error("schema setup failed")
			os.Exit(1)
		}
		st = pg
	} else {
		files, err := store.NewJSONStore(cfg.Output.DataDirectory, log)
		if err != nil {
			log.WithError(err).Error("could not open data directory")
			os.Exit(1)
		}
		st = store.NewJSONSyncStore(files)
	}

	client, _ := buildClient(cfg)
	policy := backoff.NewPolicy(&cfg.Sync)
	driver := syncer.New(client, st, policy, &cfg.Sync, log)

	result, err := driver.Sweep(ctx)
	if err != nil {
		log.WithError(err).Error("sweep aborted")
		os.Exit(1)
	}

	fmt.Printf("Sweep complete: %d synced, %d failed, %d skipped\n",
		result.Synced, result.Failed, result.Skipped)
}
