package connectors

import (
	"context"

	"github.com/rs/zerolog"

	"mantaga/internal/logger"
	"mantaga/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	log       zerolog.Logger
}

type FetchResult struct {
	Fetched int `json:"fetched"`
	Stored  int `json:"stored"`
	New     int `json:"new"`
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       logger.WithComponent("fetch"),
	}
}

// FetchAndStore archives up to max messages from label. Messages seen before keep their
// processing status; New counts only those still waiting to be processed.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		row, err := s.store.Store(ctx, msg)
		if err != nil {
			return res, err
		}
		res.Stored++
		if row.Status == "fetched" {
			res.New++
		}
	}

	s.log.Info().
		Str("provider", s.connector.Provider()).
		Str("label", label).
		Int("fetched", res.Fetched).
		Int("new", res.New).
		Msg("mailbox fetched")
	return res, nil
}
