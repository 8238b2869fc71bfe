package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"igtracker/pkg/logger"
	"igtracker/pkg/store"
)

var importDataDir string

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import JSON snapshot files into PostgreSQL",
	Long: `Read every per-account JSON snapshot file from the data directory and
upsert the accounts and their full follower history into PostgreSQL.

The import is idempotent: re-running it updates existing rows in place
instead of duplicating them.`,
	Example: `  igtracker import

  # Import from a specific data directory
  igtracker import --data-dir ./data`,
	Args: cobra.NoArgs,
	Run:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importDataDir, "data-dir", "", "data directory to import from")
}

func runImport(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if importDataDir != "" {
		flags["data-dir"] = importDataDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	if !cfg.Database.Enabled() {
		log.Error("no database configured, set IGTRACKER_POSTGRES_HOST and IGTRACKER_POSTGRES_DB")
		os.Exit(1)
	}

	files, err := store.NewJSONStore(cfg.Output.DataDirectory, log)
	if err != nil {
		log.WithError(err).Error("could not open data directory")
		os.Exit(1)
	}

	accounts, err := files.LoadAllAccounts()
	if err != nil {
		log.WithError(err).Error("could not list accounts to import")
		os.Exit(1)
	}
	if len(accounts) == 0 {
		log.Error("no accounts found to import")
		os.Exit(1)
	}

	ctx := context.Background()
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

	imported := 0
	rows := 0
	for _, account := range accounts {
		id, err := pg.UpsertAccount(ctx, account.Username)
		if err != nil {
			log.WithError(err).WithField("username", account.Username).Error("account import failed")
			os.Exit(1)
		}

		for _, entry := range account.History {
			date, err := time.Parse(store.DateFormat, entry.Date)
			if err != nil {
				log.WithFields(map[string]interface{}{
					"username": account.Username,
					"date":     entry.Date,
				}).Warn("skipping history entry with unparseable date")
				continue
			}
			if err := pg.UpsertHistory(ctx, id, date, entry.Followers, entry.Following); err != nil {
				log.WithError(err).WithField("username", account.Username).Error("history import failed")
				os.Exit(1)
			}
			rows++
		}

		log.WithFields(map[string]interface{}{
			"username": account.Username,
			"entries":  len(account.History),
		}).Info("account imported")
		imported++
	}

	fmt.Printf("Imported %d accounts, %d history rows\n", imported, rows)
}
