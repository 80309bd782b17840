package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mantaga/internal"
	"mantaga/internal/logger"
)

// Store is the subset of the catalog store the upsert needs.
type Store interface {
	GetSku(ctx context.Context, barcode string) (internal.SkuRecord, error)
	InsertSku(ctx context.Context, rec internal.SkuRecord) error
	UpdateSku(ctx context.Context, rec internal.SkuRecord) error
	SetClientCommission(ctx context.Context, client string, pct decimal.Decimal) (int, error)
	ListSkus(ctx context.Context) ([]internal.SkuRecord, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store) *Service {
	return &Service{store: store, log: logger.WithComponent("catalog")}
}

type UpsertResult struct {
	Inserted          int                    `json:"inserted"`
	Updated           int                    `json:"updated"`
	Skipped           int                    `json:"skipped"`
	CommissionUpdated int                    `json:"commissionUpdated"`
	Errors            []internal.RecordError `json:"errors"`
}

// Upsert merges a batch into the catalog in input order. Existing records only gain values for
// fields that are empty; a supplied commission is written to every record of the client.
// A failing record is reported in Errors and the batch continues.
func (s *Service) Upsert(ctx context.Context, batch []internal.SkuRecord) (UpsertResult, error) {
	res := UpsertResult{Errors: []internal.RecordError{}}
	for i, in := range batch {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in.Barcode = strings.TrimSpace(in.Barcode)
		if in.Barcode == "" {
			res.Skipped++
			continue
		}
		if err := s.upsertOne(ctx, in, &res); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			s.log.Warn().Err(err).Str("barcode", in.Barcode).Int("index", i).Msg("sku upsert failed")
			res.Errors = append(res.Errors, internal.RecordError{Index: i, Barcode: in.Barcode, Err: err.Error()})
		}
	}

	s.log.Info().
		Int("batch", len(batch)).
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("commission_updated", res.CommissionUpdated).
		Int("errors", len(res.Errors)).
		Msg("sku batch merged")
	return res, nil
}

func (s *Service) upsertOne(ctx context.Context, in internal.SkuRecord, res *UpsertResult) error {
	existing, err := s.store.GetSku(ctx, in.Barcode)
	if err != nil && !internal.IsNotFound(err) {
		return err
	}

	if internal.IsNotFound(err) {
		if err := s.store.InsertSku(ctx, in); err != nil {
			return err
		}
		res.Inserted++
		if in.MantagaCommissionPct.Valid && in.Client != "" {
			return s.propagateCommission(ctx, in.Client, in.MantagaCommissionPct.Decimal, res)
		}
		return nil
	}

	merged, changed := MergeEmpty(existing, in)
	client := existing.Client
	if client == "" {
		client = in.Client
	}

	// Without a client the correction has nowhere to spread but this record.
	commissionOnRecord := false
	if in.MantagaCommissionPct.Valid && client == "" && !sameNullDecimal(merged.MantagaCommissionPct, in.MantagaCommissionPct) {
		merged.MantagaCommissionPct = in.MantagaCommissionPct
		commissionOnRecord = true
	}

	if changed || commissionOnRecord {
		if err := s.store.UpdateSku(ctx, merged); err != nil {
			return err
		}
		if changed {
			res.Updated++
		}
		if commissionOnRecord {
			res.CommissionUpdated++
		}
	}

	if in.MantagaCommissionPct.Valid && client != "" {
		return s.propagateCommission(ctx, client, in.MantagaCommissionPct.Decimal, res)
	}
	return nil
}

func (s *Service) propagateCommission(ctx context.Context, client string, pct decimal.Decimal, res *UpsertResult) error {
	n, err := s.store.SetClientCommission(ctx, client, pct)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info().Str("client", client).Str("commission_pct", pct.String()).Int("records", n).Msg("client commission corrected")
	}
	res.CommissionUpdated += n
	return nil
}

// MergeEmpty fills the empty fields of existing from incoming and reports whether anything changed.
// The commission percentage is not merged here; it is a client-wide attribute handled by Upsert.
func MergeEmpty(existing, incoming internal.SkuRecord) (internal.SkuRecord, bool) {
	merged := existing
	changed := false

	dst := stringFields(&merged)
	src := stringFields(&incoming)
	for i := range dst {
		if strings.TrimSpace(*dst[i]) == "" && strings.TrimSpace(*src[i]) != "" {
			*dst[i] = *src[i]
			changed = true
		}
	}

	if !merged.ClientSellinPrice.Valid && incoming.ClientSellinPrice.Valid {
		merged.ClientSellinPrice = incoming.ClientSellinPrice
		changed = true
	}
	return merged, changed
}

func stringFields(r *internal.SkuRecord) []*string {
	return []*string{
		&r.Client, &r.Brand, &r.SkuName, &r.Category, &r.Subcategory, &r.CasePack, &r.ShelfLife,
		&r.NutritionInfo, &r.IngredientsInfo, &r.PackshotURL,
		&r.AmazonASIN, &r.TalabatSKU, &r.NoonZSKU, &r.CareemCode,
	}
}

func sameNullDecimal(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// AddSku inserts a single record entered by hand. Unlike Upsert it refuses an existing barcode.
func (s *Service) AddSku(ctx context.Context, rec internal.SkuRecord) (internal.SkuRecord, error) {
	rec.Barcode = strings.TrimSpace(rec.Barcode)
	if rec.Barcode == "" {
		return internal.SkuRecord{}, internal.NewValidationError("barcode", "barcode is required")
	}
	if strings.TrimSpace(rec.SkuName) == "" {
		return internal.SkuRecord{}, internal.NewValidationError("skuName", "SKU name is required")
	}
	if err := s.store.InsertSku(ctx, rec); err != nil {
		return internal.SkuRecord{}, err
	}
	s.log.Info().Str("barcode", rec.Barcode).Str("client", rec.Client).Msg("sku added")
	return rec, nil
}
