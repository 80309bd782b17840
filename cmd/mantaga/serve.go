package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mantaga/internal/brandsync"
	"mantaga/internal/httpapi"
	"mantaga/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("serve")
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		store, err := openDB()
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpapi.NewRouter(store, cfg, brandsync.NewFromConfig(store, cfg)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		log.Info().Str("addr", addr).Msg("http server listening")

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("http server stopping")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default HTTP_ADDR)")
}
