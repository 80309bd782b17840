package brandsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mantaga/internal"
	"mantaga/internal/catalog"
	"mantaga/internal/logger"
)

// Ledger remembers which (poNumber, invoiceNumber) pairs were already projected.
type Ledger interface {
	HasBrandSync(ctx context.Context, poNumber, invoiceNumber string) (bool, error)
	RecordBrandSync(ctx context.Context, poNumber, invoiceNumber, target string, lineCount int) error
}

type SkuSource interface {
	ListSkus(ctx context.Context) ([]internal.SkuRecord, error)
}

type Projector interface {
	Name() string
	Project(ctx context.Context, p Projection) error
}

type Projection struct {
	PONumber      string                         `json:"poNumber"`
	InvoiceNumber string                         `json:"invoiceNumber"`
	InvoiceDate   string                         `json:"invoiceDate"`
	LineItems     []internal.BrandPerformanceRow `json:"lineItems"`
}

// Key is the idempotency key of the projection.
func (p Projection) Key() string {
	return p.PONumber + ":" + p.InvoiceNumber
}

type Result struct {
	PONumber      string `json:"poNumber"`
	InvoiceNumber string `json:"invoiceNumber"`
	Target        string `json:"target"`
	Lines         int    `json:"lines"`
	Skipped       bool   `json:"skipped"`
}

type Service struct {
	ledger     Ledger
	skus       SkuSource
	projectors []Projector
	log        zerolog.Logger
}

func NewService(ledger Ledger, skus SkuSource, projectors ...Projector) *Service {
	return &Service{ledger: ledger, skus: skus, projectors: projectors, log: logger.WithComponent("brandsync")}
}

// Sync projects the invoiced lines of po once per (poNumber, invoiceNumber). Replays of an
// already recorded pair return a skipped result without calling any projector.
func (s *Service) Sync(ctx context.Context, po internal.PurchaseOrder) (Result, error) {
	if strings.TrimSpace(po.InvoiceNumber) == "" {
		return Result{}, internal.NewValidationError("invoiceNumber", "order has no invoice to sync")
	}
	if len(s.projectors) == 0 {
		return Result{}, fmt.Errorf("brand sync: no projector configured")
	}

	res := Result{PONumber: po.PONumber, InvoiceNumber: po.InvoiceNumber, Target: s.target()}
	done, err := s.ledger.HasBrandSync(ctx, po.PONumber, po.InvoiceNumber)
	if err != nil {
		return Result{}, fmt.Errorf("brand sync ledger: %w", err)
	}
	if done {
		res.Skipped = true
		s.log.Info().Str("po_number", po.PONumber).Str("invoice_number", po.InvoiceNumber).Msg("brand sync already recorded")
		return res, nil
	}

	start := time.Now()
	projection, err := s.build(ctx, po)
	if err != nil {
		return Result{}, err
	}
	for _, p := range s.projectors {
		if err := p.Project(ctx, projection); err != nil {
			return Result{}, fmt.Errorf("project to %s: %w", p.Name(), err)
		}
	}
	if err := s.ledger.RecordBrandSync(ctx, po.PONumber, po.InvoiceNumber, res.Target, len(projection.LineItems)); err != nil {
		return Result{}, fmt.Errorf("brand sync ledger: %w", err)
	}

	res.Lines = len(projection.LineItems)
	s.log.Info().
		Str("po_number", po.PONumber).
		Str("invoice_number", po.InvoiceNumber).
		Str("target", res.Target).
		Int("lines", res.Lines).
		Dur("took", time.Since(start)).
		Msg("brand performance synced")
	return res, nil
}

func (s *Service) build(ctx context.Context, po internal.PurchaseOrder) (Projection, error) {
	skus, err := s.skus.ListSkus(ctx)
	if err != nil {
		return Projection{}, fmt.Errorf("load catalog: %w", err)
	}
	idx := catalog.BuildIndex(skus)

	p := Projection{
		PONumber:      po.PONumber,
		InvoiceNumber: po.InvoiceNumber,
		InvoiceDate:   po.InvoiceDate,
		LineItems:     []internal.BrandPerformanceRow{},
	}
	// one row per barcode; a product listed on two lines is summed
	byBarcode := map[string]int{}
	for _, l := range po.Lines {
		if l.QuantityDelivered.IsZero() {
			continue
		}
		if i, ok := byBarcode[l.Barcode]; ok {
			row := &p.LineItems[i]
			row.Quantity = row.Quantity.Add(l.QuantityDelivered)
			row.AmountExclVat = row.AmountExclVat.Add(l.AmountInvoiced)
			row.AmountInclVat = row.AmountInclVat.Add(l.TotalInclVatInvoiced)
			continue
		}
		row := internal.BrandPerformanceRow{
			PONumber:      po.PONumber,
			InvoiceNumber: po.InvoiceNumber,
			InvoiceDate:   po.InvoiceDate,
			Barcode:       l.Barcode,
			ProductName:   l.ProductName,
			Quantity:      l.QuantityDelivered,
			AmountExclVat: l.AmountInvoiced,
			AmountInclVat: l.TotalInclVatInvoiced,
		}
		if sku, ok := idx.Lookup(l.Barcode); ok {
			row.Brand = sku.Brand
			row.Client = sku.Client
		}
		byBarcode[l.Barcode] = len(p.LineItems)
		p.LineItems = append(p.LineItems, row)
	}
	return p, nil
}

func (s *Service) target() string {
	names := make([]string, 0, len(s.projectors))
	for _, p := range s.projectors {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}
