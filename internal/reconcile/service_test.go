package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"mantaga/internal"
	"mantaga/internal/brandsync"
)

type fakeStore struct {
	orders       map[string]internal.PurchaseOrder
	headerWrites int
	lineWrites   int
	failLine     string
}

func newFakeStore(po internal.PurchaseOrder) *fakeStore {
	return &fakeStore{orders: map[string]internal.PurchaseOrder{po.PONumber: po}}
}

func (f *fakeStore) GetPurchaseOrder(_ context.Context, poNumber string) (internal.PurchaseOrder, error) {
	po, ok := f.orders[poNumber]
	if !ok {
		return internal.PurchaseOrder{}, internal.ErrNotFound
	}
	po.Lines = append([]internal.LineItem(nil), po.Lines...)
	return po, nil
}

func (f *fakeStore) PatchPurchaseOrderHeader(_ context.Context, po internal.PurchaseOrder) error {
	f.headerWrites++
	stored := f.orders[po.PONumber]
	lines := stored.Lines
	stored = po
	stored.Lines = lines
	f.orders[po.PONumber] = stored
	return nil
}

func (f *fakeStore) PatchLineItem(_ context.Context, item internal.LineItem) error {
	if item.ID == f.failLine {
		return errors.New("write conflict")
	}
	f.lineWrites++
	po := f.orders[item.PONumber]
	for i := range po.Lines {
		if po.Lines[i].ID == item.ID {
			po.Lines[i] = item
		}
	}
	f.orders[item.PONumber] = po
	return nil
}

type countingSyncer struct{ calls int }

func (c *countingSyncer) Sync(_ context.Context, po internal.PurchaseOrder) (brandsync.Result, error) {
	c.calls++
	return brandsync.Result{PONumber: po.PONumber, InvoiceNumber: po.InvoiceNumber, Lines: len(po.Lines)}, nil
}

func testOrder() internal.PurchaseOrder {
	return internal.PurchaseOrder{
		PONumber: "LPO-1",
		Status:   internal.StatusPending,
		Lines:    []internal.LineItem{line("1", "10", "10"), line("2", "4", "2.50")},
	}
}

func TestSaveInvoiceValidationGate(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := NewService(store, nil)

	_, err := svc.SaveInvoice(context.Background(), SaveInvoiceRequest{
		PONumber:    "LPO-1",
		InvoiceDate: "2024-02-05",
		Delivered:   map[string]decimal.Decimal{"1": d("5")},
	})
	var verr *internal.ValidationError
	if !errors.As(err, &verr) || verr.Field != "invoiceNumber" {
		t.Fatalf("err=%v", err)
	}
	if store.headerWrites != 0 || store.lineWrites != 0 {
		t.Fatalf("store mutated: header=%d lines=%d", store.headerWrites, store.lineWrites)
	}
	if got := store.orders["LPO-1"].Lines[0].QuantityDelivered; !got.IsZero() {
		t.Fatalf("delivered=%s", got)
	}
}

func TestSaveInvoicePersistsEveryLine(t *testing.T) {
	store := newFakeStore(testOrder())
	syncer := &countingSyncer{}
	svc := NewService(store, syncer)
	pct := d("10")

	res, err := svc.SaveInvoice(context.Background(), SaveInvoiceRequest{
		PONumber:      "LPO-1",
		InvoiceNumber: "INV-9",
		InvoiceDate:   "05/02/2024",
		Status:        internal.StatusPartial,
		CommissionPct: &pct,
		Delivered:     map[string]decimal.Decimal{"1": d("5")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if store.lineWrites != 2 {
		t.Fatalf("lineWrites=%d", store.lineWrites)
	}
	stored := store.orders["LPO-1"]
	if stored.InvoiceDate != "2024-02-05" || stored.Status != internal.StatusPartial {
		t.Fatalf("header=%+v", stored)
	}
	if !res.Summary.GrandTotal.Equal(d("52.5")) || !stored.CommissionAmount.Equal(d("5.25")) {
		t.Fatalf("grand=%s commission=%s", res.Summary.GrandTotal, stored.CommissionAmount)
	}
	if !stored.Lines[1].QuantityDelivered.IsZero() || !stored.Lines[1].TotalInclVatInvoiced.IsZero() {
		t.Fatalf("undelivered line=%+v", stored.Lines[1])
	}
	if syncer.calls != 0 || res.BrandSync != nil {
		t.Fatal("brand sync ran without opt-in")
	}
}

func TestSaveInvoiceRetryIsStable(t *testing.T) {
	store := newFakeStore(testOrder())
	svc := NewService(store, nil)
	req := SaveInvoiceRequest{
		PONumber: "LPO-1", InvoiceNumber: "INV-9", InvoiceDate: "2024-02-05",
		Delivered: map[string]decimal.Decimal{"1": d("5"), "2": d("4")},
	}

	first, err := svc.SaveInvoice(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.SaveInvoice(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Summary.GrandTotal.Equal(second.Summary.GrandTotal) {
		t.Fatalf("first=%s second=%s", first.Summary.GrandTotal, second.Summary.GrandTotal)
	}
}

func TestSaveInvoiceCollectsLineErrors(t *testing.T) {
	store := newFakeStore(testOrder())
	store.failLine = "1"
	syncer := &countingSyncer{}
	svc := NewService(store, syncer)

	res, err := svc.SaveInvoice(context.Background(), SaveInvoiceRequest{
		PONumber: "LPO-1", InvoiceNumber: "INV-9", InvoiceDate: "2024-02-05",
		Delivered:            map[string]decimal.Decimal{"1": d("5"), "2": d("4")},
		SyncBrandPerformance: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.LineErrors) != 1 || res.LineErrors[0].LineID != "1" || store.lineWrites != 1 {
		t.Fatalf("lineErrors=%+v writes=%d", res.LineErrors, store.lineWrites)
	}
	if syncer.calls != 0 || res.BrandSyncError == "" {
		t.Fatalf("sync should be held back, calls=%d", syncer.calls)
	}
}

func TestSaveInvoiceSyncsOnOptIn(t *testing.T) {
	store := newFakeStore(testOrder())
	syncer := &countingSyncer{}
	svc := NewService(store, syncer)

	res, err := svc.SaveInvoice(context.Background(), SaveInvoiceRequest{
		PONumber: "LPO-1", InvoiceNumber: "INV-9", InvoiceDate: "2024-02-05",
		Delivered:            map[string]decimal.Decimal{"6291000000001": d("10")},
		SyncBrandPerformance: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if syncer.calls != 1 || res.BrandSync == nil || res.BrandSync.InvoiceNumber != "INV-9" {
		t.Fatalf("sync=%+v calls=%d", res.BrandSync, syncer.calls)
	}
	if got := store.orders["LPO-1"].Lines[0].QuantityDelivered; !got.Equal(d("10")) {
		t.Fatalf("barcode-keyed delivery not applied: %s", got)
	}
}

func TestSaveInvoiceUnknownOrder(t *testing.T) {
	svc := NewService(newFakeStore(testOrder()), nil)
	_, err := svc.SaveInvoice(context.Background(), SaveInvoiceRequest{PONumber: "LPO-404", InvoiceNumber: "X", InvoiceDate: "2024-01-01"})
	if !internal.IsNotFound(err) {
		t.Fatalf("err=%v", err)
	}
}
