package brandsync

import (
	"context"
	"strings"

	"mantaga/internal"
	"mantaga/internal/config"
)

type PerformanceStore interface {
	UpsertBrandPerformance(ctx context.Context, rows []internal.BrandPerformanceRow) error
}

// LocalProjector writes the projection into the brand_performance table. Rows are keyed by
// (poNumber, invoiceNumber, barcode) and overwritten, so a replay cannot double count.
type LocalProjector struct {
	store PerformanceStore
}

func NewLocalProjector(store PerformanceStore) *LocalProjector {
	return &LocalProjector{store: store}
}

func (l *LocalProjector) Name() string { return "local" }

func (l *LocalProjector) Project(ctx context.Context, p Projection) error {
	return l.store.UpsertBrandPerformance(ctx, p.LineItems)
}

// Store is everything the default wiring needs from the database.
type Store interface {
	Ledger
	SkuSource
	PerformanceStore
}

// NewFromConfig projects into the local table, and to the HTTP endpoint when BRAND_SYNC_URL is set.
func NewFromConfig(store Store, cfg config.Config) *Service {
	projectors := []Projector{NewLocalProjector(store)}
	if strings.TrimSpace(cfg.BrandSyncURL) != "" {
		projectors = append(projectors, NewClient(cfg))
	}
	return NewService(store, store, projectors...)
}
