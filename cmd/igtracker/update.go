package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igtracker/pkg/backoff"
	"igtracker/pkg/logger"
	"igtracker/pkg/store"
	"igtracker/pkg/syncer"
)

var updateDataDir string

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <username>",
	Short: "Sync a single account into the JSON file backend",
	Long: `Fetch current follower and following counts for one account and record
today's history entry in its JSON snapshot file, along with a fresh
follower-list snapshot.`,
	Example: `  igtracker update cristiano

  # Write into a specific data directory
  igtracker update cristiano --data-dir ./data`,
	Args: cobra.ExactArgs(1),
	Run:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateDataDir, "data-dir", "", "data directory for the JSON file backend")
}

func runUpdate(cmd *cobra.Command, args []string) {
	username := strings.TrimSpace(args[0])
	if username == "" {
		fmt.Fprintln(os.Stderr, "a username is required")
		os.Exit(1)
	}

	flags := make(map[string]interface{})
	if updateDataDir != "" {
		flags["data-dir"] = updateDataDir
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	files, err := store.NewJSONStore(cfg.Output.DataDirectory, log)
	if err != nil {
		log.WithError(err).Error("could not open data directory")
		os.Exit(1)
	}

	client, _ := buildClient(cfg)
	policy := backoff.NewPolicy(&cfg.Sync)
	driver := syncer.New(client, store.NewJSONSyncStore(files), policy, &cfg.Sync, log)

	// A single account has nothing after it, skip the inter-account sleep
	driver.SetSleep(func(ctx context.Context, _ time.Duration) error { return nil })

	result, err := driver.SyncUsernames(context.Background(), []string{username})
	if err != nil {
		log.WithError(err).WithField("username", username).Error("update failed")
		os.Exit(1)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}

	account := files.LoadAccount(username)
	if len(account.History) > 0 {
		latest := account.History[len(account.History)-1]
		fmt.Printf("%s: %d followers on %s\n", account.Username, latest.Followers, latest.Date)
	}
}
