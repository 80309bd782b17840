package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mantaga/internal"
	"mantaga/internal/catalog"
	"mantaga/internal/config"
	"mantaga/internal/logger"
	"mantaga/internal/storage"
	"mantaga/internal/util"
)

type IngestService struct {
	db        *storage.DB
	extractor *Extractor
	catalog   *catalog.Service
	log       zerolog.Logger
}

func NewIngestService(db *storage.DB, cfg config.Config) *IngestService {
	return &IngestService{
		db:        db,
		extractor: NewExtractor(cfg.LPOSuppliers),
		catalog:   catalog.NewService(db),
		log:       logger.WithComponent("ingest"),
	}
}

type IngestResult struct {
	TraceID  string                        `json:"traceId"`
	Source   internal.DocumentSource       `json:"source"`
	Order    *internal.PurchaseOrder       `json:"order,omitempty"`
	Skipped  int                           `json:"skipped"`
	Warnings []internal.DataQualityWarning `json:"warnings"`
	Skus     *catalog.UpsertResult         `json:"skus,omitempty"`
}

// SourceFromFilename maps a file extension onto the extractor that reads it.
func SourceFromFilename(name string) (internal.DocumentSource, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		return internal.SourceText, nil
	case ".pdf":
		return internal.SourcePDF, nil
	case ".xlsx", ".xlsm":
		return internal.SourceXLSX, nil
	case ".csv":
		return internal.SourceCSV, nil
	case ".htm", ".html":
		return internal.SourceHTML, nil
	case ".eml":
		return internal.SourceEmail, nil
	default:
		return "", fmt.Errorf("unsupported document type %q", filepath.Ext(name))
	}
}

// Extract parses a purchase-order document without touching the store.
func (s *IngestService) Extract(source internal.DocumentSource, content []byte) (Extraction, error) {
	switch source {
	case internal.SourceText:
		return s.extractor.Extract(string(content))
	case internal.SourcePDF:
		return s.extractor.ExtractPDF(content)
	default:
		return Extraction{}, fmt.Errorf("%s is not a purchase-order format", source)
	}
}

// IngestDocument stores one document. Text and PDF become purchase orders; spreadsheets and
// HTML tables are merged into the SKU catalog.
func (s *IngestService) IngestDocument(ctx context.Context, source internal.DocumentSource, ref string, content []byte) (IngestResult, error) {
	switch source {
	case internal.SourceText, internal.SourcePDF:
		ex, err := s.Extract(source, content)
		if err != nil {
			return IngestResult{}, err
		}
		return s.IngestExtraction(ctx, ex, ref)
	case internal.SourceXLSX, internal.SourceCSV, internal.SourceHTML:
		var (
			recs []internal.SkuRecord
			err  error
		)
		switch source {
		case internal.SourceXLSX:
			recs, err = ExtractSkusFromXLSX(content)
		case internal.SourceCSV:
			recs, err = ExtractSkusFromCSV(bytes.NewReader(content))
		default:
			recs, err = ExtractSkusFromHTML(string(content))
		}
		if err != nil {
			return IngestResult{}, err
		}
		return s.ImportSkus(ctx, source, ref, recs)
	default:
		return IngestResult{}, fmt.Errorf("unsupported source %q", source)
	}
}

// IngestExtraction inserts an extracted order. A PO number that already exists yields a
// DuplicateKeyError and nothing is written.
func (s *IngestService) IngestExtraction(ctx context.Context, ex Extraction, ref string) (IngestResult, error) {
	start := time.Now()
	trace := uuid.NewString()
	po := ex.Order

	if err := s.db.InsertPurchaseOrder(ctx, po); err != nil {
		return IngestResult{}, err
	}

	res := IngestResult{TraceID: trace, Source: po.Source, Order: &po, Skipped: ex.Skipped, Warnings: ex.Warnings}
	if res.Warnings == nil {
		res.Warnings = []internal.DataQualityWarning{}
	}
	s.log.Info().
		Str("trace_id", trace).
		Str("po_number", po.PONumber).
		Str("supplier", po.Supplier).
		Int("lines", len(po.Lines)).
		Int("skipped", ex.Skipped).
		Int("warnings", len(ex.Warnings)).
		Msg("purchase order ingested")
	if len(po.Lines) == 0 {
		s.log.Warn().Str("po_number", po.PONumber).Msg("purchase order has no line items; review manually")
	}

	s.recordRun(ctx, trace, "lpo", util.FirstNonEmpty(ref, po.PONumber), start,
		map[string]int{"lines": len(po.Lines), "skipped": ex.Skipped, "warnings": len(ex.Warnings)})
	return res, nil
}

func (s *IngestService) ImportSkus(ctx context.Context, source internal.DocumentSource, ref string, recs []internal.SkuRecord) (IngestResult, error) {
	start := time.Now()
	trace := uuid.NewString()

	up, err := s.catalog.Upsert(ctx, recs)
	if err != nil {
		return IngestResult{}, err
	}

	s.recordRun(ctx, trace, "sku_import", ref, start,
		map[string]int{"records": len(recs), "inserted": up.Inserted, "updated": up.Updated, "skipped": up.Skipped, "commissionUpdated": up.CommissionUpdated, "errors": len(up.Errors)})
	return IngestResult{TraceID: trace, Source: source, Skus: &up, Warnings: []internal.DataQualityWarning{}}, nil
}

// recordRun writes the runs ledger row. A failure there never fails the ingest.
func (s *IngestService) recordRun(ctx context.Context, trace, kind, ref string, start time.Time, counts map[string]int) {
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	if err := s.db.InsertRun(ctx, trace, kind, ref, timings, counts); err != nil {
		s.log.Warn().Err(err).Str("trace_id", trace).Str("kind", kind).Msg("run not recorded")
	}
}
