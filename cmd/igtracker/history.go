package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"igtracker/pkg/logger"
	"igtracker/pkg/store"
)

var historyDataDir string

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <username>",
	Short: "Show the recorded follower history for an account",
	Long: `Print every recorded follower-count measurement for one account,
oldest first. Reads from PostgreSQL when a database is configured,
otherwise from the account's JSON snapshot file.`,
	Example: `  igtracker history cristiano`,
	Args:    cobra.ExactArgs(1),
	Run:     runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDataDir, "data-dir", "", "data directory for the JSON file backend")
}

func runHistory(cmd *cobra.Command, args []string) {
	username := strings.TrimSpace(args[0])

	flags := make(map[string]interface{})
	if historyDataDir != "" {
		flags["data-dir"] = historyDataDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	var entries []store.HistoryEntry
	if cfg.Database.Enabled() {
		ctx := context.Background()
		pg, err := store.ConnectPostgres(ctx, &cfg.Database, cfg.Sync.SnapshotBatchSize, log)
		if err != nil {
			log.WithError(err).Error("database connection failed")
			os.Exit(1)
		}
		defer pg.Close()

		account, err := pg.FindAccount(ctx, username)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				fmt.Fprintf(os.Stderr, "no such account: %s\n", store.NormalizeUsername(username))
			} else {
				log.WithError(err).Error("account lookup failed")
			}
			os.Exit(1)
		}

		entries, err = pg.History(ctx, account.ID)
		if err != nil {
			log.WithError(err).Error("history query failed")
			os.Exit(1)
		}
	} else {
		files, err := store.NewJSONStore(cfg.Output.DataDirectory, log)
		if err != nil {
			log.WithError(err).Error("could not open data directory")
			os.Exit(1)
		}
		entries = files.LoadAccount(username).History
	}

	if len(entries) == 0 {
		fmt.Printf("No history recorded for %s\n", store.NormalizeUsername(username))
		return
	}

	for _, entry := range entries {
		fmt.Println(formatHistoryEntry(entry))
	}
}

// formatHistoryEntry renders one measurement as a fixed-width line
func formatHistoryEntry(entry store.HistoryEntry) string {
	following := "-"
	if entry.Following != nil {
		following = fmt.Sprintf("%d", *entry.Following)
	}
	return fmt.Sprintf("%s  followers=%-8d following=%s", entry.Date, entry.Followers, following)
}
