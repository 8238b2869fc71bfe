package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igtracker/pkg/logger"
	"igtracker/pkg/store"
)

var deviceLabel string

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage the admin device registry",
	Long: `Manage the registry of admin devices allowed to access the tracker's
dashboard. Requires a configured PostgreSQL database.`,
}

var deviceRegisterCmd = &cobra.Command{
	Use:   "register <uuid>",
	Short: "Register an admin device",
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceRegister,
}

var deviceVerifyCmd = &cobra.Command{
	Use:   "verify <uuid>",
	Short: "Check whether a device is registered",
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceVerify,
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceRegisterCmd)
	deviceCmd.AddCommand(deviceVerifyCmd)

	deviceRegisterCmd.Flags().StringVar(&deviceLabel, "label", "", "human-readable device label")
}

func openDeviceStore() (*store.Postgres, context.Context) {
	cfg, err := loadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	if !cfg.Database.Enabled() {
		log.Error("no database configured, set IGTRACKER_POSTGRES_HOST and IGTRACKER_POSTGRES_DB")
		os.Exit(1)
	}

	ctx := context.Background()
	pg, err := store.ConnectPostgres(ctx, &cfg.Database, cfg.Sync.SnapshotBatchSize, log)
	if err != nil {
		log.WithError(err).Error("database connection failed")
		os.Exit(1)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		log.WithError(err).Error("schema setup failed")
		os.Exit(1)
	}
	return pg, ctx
}

func runDeviceRegister(cmd *cobra.Command, args []string) {
	pg, ctx := openDeviceStore()
	defer pg.Close()

	if err := pg.RegisterDevice(ctx, args[0], deviceLabel); err != nil {
		logger.GetLogger().WithError(err).Error("device registration failed")
		os.Exit(1)
	}
	fmt.Printf("Device registered: %s\n", args[0])
}

func runDeviceVerify(cmd *cobra.Command, args []string) {
	pg, ctx := openDeviceStore()
	defer pg.Close()

	ok, err := pg.VerifyDevice(ctx, args[0])
	if err != nil {
		logger.GetLogger().WithError(err).Error("device lookup failed")
		os.Exit(1)
	}
	if !ok {
		fmt.Printf("Device not registered: %s\n", args[0])
		os.Exit(1)
	}
	fmt.Printf("Device registered: %s\n", args[0])
}
