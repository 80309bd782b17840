package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mantaga/internal"
	"mantaga/internal/brandsync"
	"mantaga/internal/logger"
	"mantaga/internal/util"
)

type Store interface {
	GetPurchaseOrder(ctx context.Context, poNumber string) (internal.PurchaseOrder, error)
	PatchPurchaseOrderHeader(ctx context.Context, po internal.PurchaseOrder) error
	PatchLineItem(ctx context.Context, item internal.LineItem) error
}

type BrandSyncer interface {
	Sync(ctx context.Context, po internal.PurchaseOrder) (brandsync.Result, error)
}

type Service struct {
	store  Store
	syncer BrandSyncer
	log    zerolog.Logger
}

// NewService wires the reconciliation service. syncer may be nil when no projection is configured.
func NewService(store Store, syncer BrandSyncer) *Service {
	return &Service{store: store, syncer: syncer, log: logger.WithComponent("reconcile")}
}

type SaveInvoiceRequest struct {
	PONumber      string               `json:"poNumber"`
	InvoiceNumber string               `json:"invoiceNumber"`
	InvoiceDate   string               `json:"invoiceDate"`
	Customer      string               `json:"customer,omitempty"`
	DeliveryDate  string               `json:"deliveryDate,omitempty"`
	Status        internal.OrderStatus `json:"status,omitempty"`
	CommissionPct *decimal.Decimal     `json:"commissionPct,omitempty"`
	// Delivered maps a line ID (or, failing that, a barcode) to the delivered quantity.
	Delivered            map[string]decimal.Decimal `json:"delivered"`
	SyncBrandPerformance bool                       `json:"syncBrandPerformance"`
}

type LineError struct {
	LineID  string `json:"lineId"`
	Barcode string `json:"barcode,omitempty"`
	Err     string `json:"error"`
}

type SaveInvoiceResult struct {
	Order          internal.PurchaseOrder        `json:"order"`
	Summary        Summary                       `json:"summary"`
	Warnings       []internal.DataQualityWarning `json:"warnings"`
	LineErrors     []LineError                   `json:"lineErrors"`
	BrandSync      *brandsync.Result             `json:"brandSync,omitempty"`
	BrandSyncError string                        `json:"brandSyncError,omitempty"`
}

func validateSave(req SaveInvoiceRequest) (SaveInvoiceRequest, error) {
	if strings.TrimSpace(req.PONumber) == "" {
		return req, internal.NewValidationError("poNumber", "PO number is required")
	}
	if strings.TrimSpace(req.InvoiceNumber) == "" {
		return req, internal.NewValidationError("invoiceNumber", "invoice number is required")
	}
	if strings.TrimSpace(req.InvoiceDate) == "" {
		return req, internal.NewValidationError("invoiceDate", "invoice date is required")
	}
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)

	iso := util.NormalizeISODate(req.InvoiceDate)
	if iso == "" {
		return req, internal.NewValidationError("invoiceDate", "expected YYYY-MM-DD or DD/MM/YYYY")
	}
	req.InvoiceDate = iso

	if strings.TrimSpace(req.DeliveryDate) != "" {
		iso := util.NormalizeISODate(req.DeliveryDate)
		if iso == "" {
			return req, internal.NewValidationError("deliveryDate", "expected YYYY-MM-DD or DD/MM/YYYY")
		}
		req.DeliveryDate = iso
	}
	if req.Status != "" && !req.Status.Valid() {
		return req, internal.NewValidationError("status", fmt.Sprintf("unknown status %q", req.Status))
	}
	if req.CommissionPct != nil && (req.CommissionPct.IsNegative() || req.CommissionPct.GreaterThan(hundred)) {
		return req, internal.NewValidationError("commissionPct", "must be between 0 and 100")
	}
	return req, nil
}

// SaveInvoice finalizes the reconciliation of one order. The header is written first, then every
// line including undelivered ones. Line failures are collected and do not stop the remaining lines;
// repeating the call re-applies the same overwrite. The brand projection runs only on request.
func (s *Service) SaveInvoice(ctx context.Context, req SaveInvoiceRequest) (SaveInvoiceResult, error) {
	req, err := validateSave(req)
	if err != nil {
		return SaveInvoiceResult{}, err
	}

	po, err := s.store.GetPurchaseOrder(ctx, req.PONumber)
	if err != nil {
		return SaveInvoiceResult{}, err
	}

	res := SaveInvoiceResult{Warnings: []internal.DataQualityWarning{}, LineErrors: []LineError{}}
	lines := make([]internal.LineItem, len(po.Lines))
	for i, l := range po.Lines {
		q := l.QuantityDelivered
		if v, ok := deliveredFor(req.Delivered, l); ok {
			q = v
		}
		lines[i] = ApplyDelivery(l, q)
		res.Warnings = append(res.Warnings, DeliveryWarnings(lines[i])...)
	}
	po.Lines = lines
	summary := Summarize(po)

	po.InvoiceNumber = req.InvoiceNumber
	po.InvoiceDate = req.InvoiceDate
	if req.Customer != "" {
		po.Customer = strings.TrimSpace(req.Customer)
	}
	if req.DeliveryDate != "" {
		po.DeliveryDate = req.DeliveryDate
	}
	if req.Status != "" {
		po.Status = req.Status
	}
	if req.CommissionPct != nil {
		po.CommissionPct = *req.CommissionPct
	}
	po.CommissionAmount = Commission(summary.GrandTotal, po.CommissionPct)

	if err := s.store.PatchPurchaseOrderHeader(ctx, po); err != nil {
		return SaveInvoiceResult{}, fmt.Errorf("save header of %s: %w", po.PONumber, err)
	}

	for _, l := range po.Lines {
		if err := s.store.PatchLineItem(ctx, l); err != nil {
			if ctx.Err() != nil {
				return SaveInvoiceResult{}, ctx.Err()
			}
			s.log.Warn().Err(err).Str("po_number", po.PONumber).Str("line_id", l.ID).Msg("line update failed")
			res.LineErrors = append(res.LineErrors, LineError{LineID: l.ID, Barcode: l.Barcode, Err: err.Error()})
		}
	}

	res.Order = po
	res.Summary = summary
	s.log.Info().
		Str("po_number", po.PONumber).
		Str("invoice_number", po.InvoiceNumber).
		Str("grand_total", summary.GrandTotal.StringFixed(2)).
		Str("commission", po.CommissionAmount.StringFixed(2)).
		Int("lines", len(po.Lines)).
		Int("line_errors", len(res.LineErrors)).
		Int("warnings", len(res.Warnings)).
		Msg("invoice saved")

	if req.SyncBrandPerformance {
		switch {
		case s.syncer == nil:
			res.BrandSyncError = "brand sync is not configured"
		case len(res.LineErrors) > 0:
			res.BrandSyncError = "brand sync skipped: some lines were not saved"
		default:
			sr, err := s.syncer.Sync(ctx, po)
			if err != nil {
				s.log.Warn().Err(err).Str("po_number", po.PONumber).Msg("brand sync failed")
				res.BrandSyncError = err.Error()
			} else {
				res.BrandSync = &sr
			}
		}
	}
	return res, nil
}

func deliveredFor(delivered map[string]decimal.Decimal, l internal.LineItem) (decimal.Decimal, bool) {
	if v, ok := delivered[l.ID]; ok {
		return v, true
	}
	if l.Barcode != "" {
		if v, ok := delivered[l.Barcode]; ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

// Order loads an order with its reconciliation summary.
func (s *Service) Order(ctx context.Context, poNumber string) (internal.PurchaseOrder, Summary, error) {
	po, err := s.store.GetPurchaseOrder(ctx, poNumber)
	if err != nil {
		return internal.PurchaseOrder{}, Summary{}, err
	}
	return po, Summarize(po), nil
}

// SyncBrandPerformance replays the projection for an already invoiced order.
func (s *Service) SyncBrandPerformance(ctx context.Context, poNumber string) (brandsync.Result, error) {
	if s.syncer == nil {
		return brandsync.Result{}, fmt.Errorf("brand sync is not configured")
	}
	po, err := s.store.GetPurchaseOrder(ctx, poNumber)
	if err != nil {
		return brandsync.Result{}, err
	}
	return s.syncer.Sync(ctx, po)
}
