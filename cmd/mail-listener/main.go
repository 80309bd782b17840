package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mantaga/internal/config"
	"mantaga/internal/listener"
	"mantaga/internal/logger"
	"mantaga/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "mail-listener",
	Short:         "Poll the LPO mailbox, turn new mails into orders and export reconciliation sheets",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
			cfg.MailListenerProvider = provider
		}
		if err := logger.Setup(cfg.LoggerConfig()); err != nil {
			return err
		}

		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := listener.NewService(db, cfg)
		if once, _ := cmd.Flags().GetBool("once"); once {
			res, err := svc.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		return svc.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().Bool("once", false, "run a single fetch/process/export cycle and print its result")
	rootCmd.Flags().String("provider", "", "override MAIL_LISTENER_PROVIDER (gmail|imap)")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log := logger.WithComponent("mail-listener")
		log.Error().Err(err).Msg("listener exited")
		_ = logger.Close()
		cancel()
		os.Exit(1)
	}
	_ = logger.Close()
}
