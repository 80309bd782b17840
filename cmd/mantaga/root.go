package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mantaga/internal/config"
	"mantaga/internal/logger"
	"mantaga/internal/storage"
)

var version = "0.3.0"

var (
	cfg config.Config
	db  *storage.DB
)

var rootCmd = &cobra.Command{
	Use:   "mantaga",
	Short: "Purchase-order intake, invoice reconciliation and SKU catalog tooling",
	Long: `mantaga extracts retailer LPOs (PDF, text or mail), reconciles them against
delivered quantities, keeps the SKU master catalog and projects invoiced lines
into brand performance.

Configuration is read from the environment and an optional .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
			cfg.DBPath = dbPath
		}
		return logger.Setup(cfg.LoggerConfig())
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "sqlite path (overrides DB_PATH)")
}

// openDB opens the store once per invocation; Execute closes it.
func openDB() (*storage.DB, error) {
	if db != nil {
		return db, nil
	}
	opened, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	db = opened
	return db, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if db != nil {
		_ = db.Close()
	}

	if err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		_ = logger.Close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	_ = logger.Close()
}

func main() {
	Execute()
}
