package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mantaga/internal/connectors"
	gmailconnector "mantaga/internal/connectors/gmail"
	imapconnector "mantaga/internal/connectors/imap"
	"mantaga/internal/listener"
	"mantaga/internal/pipeline"
)

var mailFetchCmd = &cobra.Command{
	Use:   "mail:fetch",
	Short: "Download new mails into the raw mail archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		label, _ := cmd.Flags().GetString("label")
		max, _ := cmd.Flags().GetInt("max")

		store, err := openDB()
		if err != nil {
			return err
		}
		conn, err := makeConnector(cmd.Context(), provider)
		if err != nil {
			return err
		}
		res, err := connectors.NewFetchService(store, cfg.RawMailDir, conn).FetchAndStore(cmd.Context(), label, max)
		if err != nil {
			return err
		}
		fmt.Printf("mail fetch done provider=%s fetched=%d new=%d\n", provider, res.Fetched, res.New)
		return nil
	},
}

var mailProcessCmd = &cobra.Command{
	Use:   "mail:process",
	Short: "Turn fetched LPO mails into orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		messageID, _ := cmd.Flags().GetString("message-id")
		batch, _ := cmd.Flags().GetInt("batch")

		store, err := openDB()
		if err != nil {
			return err
		}
		processor := pipeline.NewProcessingService(store, cfg)
		if strings.TrimSpace(messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(cmd.Context(), provider, messageID)
			if err != nil {
				return err
			}
			fmt.Printf("processed email id=%d orders=%v duplicates=%v skipped=%v\n", res.EmailID, res.Orders, res.Duplicates, res.Skipped)
			return nil
		}
		n, orders, err := processor.ProcessPending(cmd.Context(), batch, provider)
		if err != nil {
			return err
		}
		fmt.Printf("processed pending emails=%d orders=%v\n", n, orders)
		return nil
	},
}

var mailListenCmd = &cobra.Command{
	Use:   "mail:listen",
	Short: "Poll the configured mailbox until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		return listener.NewService(store, cfg).Run(cmd.Context())
	},
}

func makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func init() {
	rootCmd.AddCommand(mailFetchCmd, mailProcessCmd, mailListenCmd)

	mailFetchCmd.Flags().String("provider", "imap", "gmail|imap")
	mailFetchCmd.Flags().String("label", "INBOX", "mailbox/label")
	mailFetchCmd.Flags().Int("max", 50, "max messages")

	mailProcessCmd.Flags().String("provider", "", "only process mails of this provider")
	mailProcessCmd.Flags().String("message-id", "", "process one message by its Message-ID (requires --provider)")
	mailProcessCmd.Flags().Int("batch", 20, "batch size")
}
