package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mantaga/internal/config"
	"mantaga/internal/connectors"
	gmailconnector "mantaga/internal/connectors/gmail"
	imapconnector "mantaga/internal/connectors/imap"
	"mantaga/internal/logger"
	"mantaga/internal/pipeline"
	"mantaga/internal/reconcile"
	"mantaga/internal/storage"
)

const emailExported = "exported"

// Service polls a mailbox, turns new LPO mails into orders and optionally exports them.
type Service struct {
	db   *storage.DB
	cfg  config.Config
	log  zerolog.Logger
	dial func(ctx context.Context, provider string) (connectors.MailConnector, error)
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	s := &Service{db: db, cfg: cfg, log: logger.WithComponent("listener")}
	s.dial = s.makeConnector
	return s
}

type CycleResult struct {
	Provider  string   `json:"provider"`
	Fetched   int      `json:"fetched"`
	New       int      `json:"new"`
	Processed int      `json:"processed"`
	Orders    []string `json:"orders"`
	Exported  int      `json:"exported"`
}

// Run polls until ctx is cancelled. A failing cycle is logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	s.log.Info().Str("provider", s.cfg.MailListenerProvider).Dur("interval", interval).Msg("listener started")

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("listener stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	res := CycleResult{Provider: provider, Orders: []string{}}

	mailConnector, err := s.dial(ctx, provider)
	if err != nil {
		return res, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched, res.New = fetchResult.Fetched, fetchResult.New

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	processed, orders, err := processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}
	res.Processed = processed
	res.Orders = append(res.Orders, orders...)

	if s.cfg.MailListenerAutoExport {
		n, err := s.exportProcessed(ctx, provider)
		if err != nil {
			return res, err
		}
		res.Exported = n
	}

	if err := s.db.SetMetadata(ctx, lastCycleKey(provider), time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn().Err(err).Msg("last cycle time not recorded")
	}
	s.log.Info().
		Str("provider", provider).
		Int("fetched", res.Fetched).
		Int("new", res.New).
		Int("processed", res.Processed).
		Int("orders", len(res.Orders)).
		Int("exported", res.Exported).
		Msg("listener cycle done")
	return res, nil
}

// exportProcessed writes one workbook per order linked to a processed mail, then marks the mail exported.
func (s *Service) exportProcessed(ctx context.Context, provider string) (int, error) {
	emails, err := s.db.ListEmailsByStatus(ctx, pipeline.EmailProcessed, 200)
	if err != nil {
		return 0, err
	}

	recon := reconcile.NewService(s.db, nil)
	exported := 0
	for _, email := range emails {
		if email.Provider != provider {
			continue
		}
		orders, err := s.db.ListEmailOrders(ctx, email.ID)
		if err != nil {
			return exported, err
		}
		for _, poNumber := range orders {
			po, summary, err := recon.Order(ctx, poNumber)
			if err != nil {
				return exported, err
			}
			filename := fmt.Sprintf("%d_%s.xlsx", email.ID, sanitizeFilename(poNumber))
			outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
			if _, err := os.Stat(outputPath); err == nil {
				continue
			}
			if err := pipeline.ExportOrderXLSX(po, summary, outputPath); err != nil {
				return exported, err
			}
			exported++
		}
		if err := s.db.UpdateEmailStatus(ctx, email.ID, emailExported); err != nil {
			return exported, err
		}
	}
	return exported, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func lastCycleKey(provider string) string {
	return "listener." + provider + ".lastCycleAt"
}

func sanitizeFilename(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
