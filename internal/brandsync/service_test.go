package brandsync

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"mantaga/internal"
)

type memLedger map[string]int

func (m memLedger) HasBrandSync(_ context.Context, po, inv string) (bool, error) {
	_, ok := m[po+":"+inv]
	return ok, nil
}

func (m memLedger) RecordBrandSync(_ context.Context, po, inv, _ string, lines int) error {
	m[po+":"+inv] = lines
	return nil
}

type staticSkus []internal.SkuRecord

func (s staticSkus) ListSkus(context.Context) ([]internal.SkuRecord, error) { return s, nil }

type recordingProjector struct {
	calls []Projection
}

func (r *recordingProjector) Name() string { return "memory" }

func (r *recordingProjector) Project(_ context.Context, p Projection) error {
	r.calls = append(r.calls, p)
	return nil
}

func invoicedOrder() internal.PurchaseOrder {
	return internal.PurchaseOrder{
		PONumber:      "LPO-1001",
		InvoiceNumber: "INV-77",
		InvoiceDate:   "2024-02-05",
		Lines: []internal.LineItem{
			{ID: "a", Barcode: "6291234567890", QuantityDelivered: decimal.NewFromInt(5), AmountInvoiced: decimal.NewFromInt(100), TotalInclVatInvoiced: decimal.NewFromInt(105)},
			{ID: "b", Barcode: "6291234567891", QuantityDelivered: decimal.Zero},
			{ID: "c", Barcode: "6291234567890", QuantityDelivered: decimal.NewFromInt(1), AmountInvoiced: decimal.NewFromInt(20), TotalInclVatInvoiced: decimal.NewFromInt(21)},
		},
	}
}

func TestSyncIsIdempotentPerInvoice(t *testing.T) {
	ledger := memLedger{}
	proj := &recordingProjector{}
	svc := NewService(ledger, staticSkus{{Barcode: "6291234567890", Brand: "Crunchy", Client: "Acme"}}, proj)
	ctx := context.Background()

	first, err := svc.Sync(ctx, invoicedOrder())
	if err != nil {
		t.Fatal(err)
	}
	if first.Skipped || first.Lines != 1 {
		t.Fatalf("first=%+v", first)
	}
	row := proj.calls[0].LineItems[0]
	if row.Brand != "Crunchy" || !row.Quantity.Equal(decimal.NewFromInt(6)) || !row.AmountInclVat.Equal(decimal.NewFromInt(126)) {
		t.Fatalf("row=%+v", row)
	}

	second, err := svc.Sync(ctx, invoicedOrder())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped || len(proj.calls) != 1 {
		t.Fatalf("second=%+v calls=%d", second, len(proj.calls))
	}
}

func TestSyncRequiresInvoice(t *testing.T) {
	svc := NewService(memLedger{}, staticSkus{}, &recordingProjector{})
	po := invoicedOrder()
	po.InvoiceNumber = ""
	if _, err := svc.Sync(context.Background(), po); !internal.IsValidation(err) {
		t.Fatalf("err=%v", err)
	}
}
