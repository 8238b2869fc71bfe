package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"igtracker/pkg/auth"
	"igtracker/pkg/config"
	"igtracker/pkg/instagram"
	"igtracker/pkg/logger"
	"igtracker/pkg/ratelimit"
	"igtracker/pkg/session"
)

var (
	// Version information, set at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	sessionID   string
	sessionFile string
	accountName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igtracker",
	Short: "Track Instagram follower counts over time",
	Long: `igtracker periodically fetches follower and following counts, plus full
follower-list snapshots, for a set of Instagram accounts and persists
them so growth can be tracked over time.

Two storage backends are supported:
  - PostgreSQL (configure IGTRACKER_POSTGRES_* variables)
  - Per-account JSON files (the default, under the data directory)

Authenticated sessions raise the throughput ceiling considerably; store
one with 'igtracker auth login' or point --session-file at an exported
session.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igtracker.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session-id", "", "Instagram session ID")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "path to an exported Instagram session file")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")

	rootCmd.SetVersionTemplate(`igtracker {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with the standard precedence and
// initializes the global logger from it.
func loadConfig(extraFlags map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{})
	if sessionID != "" {
		flags["session-id"] = sessionID
	}
	if sessionFile != "" {
		flags["session-file"] = sessionFile
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	for k, v := range extraFlags {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if accountName != "" {
		cfg.Instagram.Username = accountName
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newCredentialSource opens the credential store, returning nil when no
// store is available so the resolver falls through to file sources.
func newCredentialSource(log logger.Logger) session.CredentialSource {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("credential store unavailable")
		return nil
	}
	return manager
}

// buildClient creates the throttled Instagram client and resolves a
// session for it. Returns the client and whether it is authenticated.
func buildClient(cfg *config.Config) (*instagram.Client, bool) {
	log := logger.GetLogger()
	limiter := ratelimit.NewTokenBucket(cfg.Sync.RequestsPerMinute, time.Minute)
	client := instagram.NewClient(30*time.Second, limiter, log)
	client.SetHeader("User-Agent", cfg.Instagram.UserAgent)

	resolver := session.NewResolver(newCredentialSource(log), log)
	authenticated := resolver.Resolve(&cfg.Instagram, client)
	if !authenticated {
		log.Warn("no session resolved, continuing anonymously with reduced throughput")
	}
	return client, authenticated
}
