package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"mantaga/internal"
	"mantaga/internal/brandsync"
	"mantaga/internal/catalog"
	"mantaga/internal/config"
	"mantaga/internal/reconcile"
	"mantaga/internal/storage"
)

func openTestDB(t *testing.T) (*storage.DB, string) {
	t.Helper()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, tmp
}

func TestSmokeLPOToInvoiceXLSX(t *testing.T) {
	db, tmp := openTestDB(t)
	ctx := context.Background()
	cfg := config.Config{LPOSuppliers: []string{"Talabat"}}
	ingest := NewIngestService(db, cfg)

	skuSheet := mkXLSX([][]any{
		{"Client", "Brand", "Barcode", "SKU Name"},
		{"Acme", "Crunchy", "6291000000017", "Chips 150g"},
	})
	skuRes, err := ingest.IngestDocument(ctx, internal.SourceXLSX, "catalog.xlsx", skuSheet)
	if err != nil {
		t.Fatal(err)
	}
	if skuRes.Skus == nil || skuRes.Skus.Inserted != 1 {
		t.Fatalf("sku result=%+v", skuRes.Skus)
	}

	res, err := ingest.IngestDocument(ctx, internal.SourceText, "lpo.txt", []byte(sampleLPO))
	if err != nil {
		t.Fatal(err)
	}
	if res.Order == nil || len(res.Order.Lines) != 2 || res.Skipped != 1 {
		t.Fatalf("ingest=%+v", res)
	}
	if _, err := ingest.IngestDocument(ctx, internal.SourceText, "lpo.txt", []byte(sampleLPO)); !internal.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	syncer := brandsync.NewService(db, db, brandsync.NewLocalProjector(db))
	recon := reconcile.NewService(db, syncer)
	pct := decimal.NewFromInt(10)
	saved, err := recon.SaveInvoice(ctx, reconcile.SaveInvoiceRequest{
		PONumber:             "LPO-20240315-01",
		InvoiceNumber:        "INV-1",
		InvoiceDate:          "20/03/2024",
		CommissionPct:        &pct,
		Delivered:            map[string]decimal.Decimal{"6291000000017": decimal.NewFromInt(4)},
		SyncBrandPerformance: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 4 x 24.10 = 96.40, +5% = 101.22
	if got := saved.Summary.GrandTotal.StringFixed(2); got != "101.22" {
		t.Fatalf("grand=%s", got)
	}
	if saved.BrandSync == nil || saved.BrandSync.Lines != 1 || saved.BrandSyncError != "" {
		t.Fatalf("brand sync=%+v err=%q", saved.BrandSync, saved.BrandSyncError)
	}

	perf, err := db.ListBrandPerformance(ctx, "LPO-20240315-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(perf) != 1 || perf[0].Brand != "Crunchy" || perf[0].Client != "Acme" {
		t.Fatalf("performance=%+v", perf)
	}

	po, summary, err := recon.Order(ctx, "LPO-20240315-01")
	if err != nil {
		t.Fatal(err)
	}
	if po.InvoiceDate != "2024-03-20" || po.CommissionAmount.StringFixed(2) != "10.12" {
		t.Fatalf("order=%+v", po)
	}

	out := filepath.Join(tmp, "out", "order.xlsx")
	if err := ExportOrderXLSX(po, summary, out); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Lines")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d", len(rows))
	}

	rep, err := catalog.NewService(db).Report(ctx)
	if err != nil {
		t.Fatal(err)
	}
	reportPath := filepath.Join(tmp, "out", "skus.xlsx")
	if err := ExportSkuReportXLSX(rep, reportPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(reportPath); err != nil {
		t.Fatal(err)
	}
}

func TestSmokeEmailToOrder(t *testing.T) {
	db, tmp := openTestDB(t)
	ctx := context.Background()

	raw := strings.Join([]string{
		"From: buyer@talabat.example",
		"To: orders@mantaga.example",
		"Subject: LPO LPO-20240315-01",
		"Message-ID: <lpo-1@talabat.example>",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		strings.ReplaceAll(sampleLPO, "\n", "\r\n"),
	}, "\r\n")
	rawPath := filepath.Join(tmp, "lpo.eml")
	if err := os.WriteFile(rawPath, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	msg := internal.FetchedMailMessage{Provider: "imap", MessageID: "<lpo-1@talabat.example>", Subject: "LPO LPO-20240315-01"}
	if _, err := db.UpsertEmail(ctx, msg, "hash", rawPath); err != nil {
		t.Fatal(err)
	}

	proc := NewProcessingService(db, config.Config{LPOSuppliers: []string{"Talabat"}})
	n, orders, err := proc.ProcessPending(ctx, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(orders) != 1 || orders[0] != "LPO-20240315-01" {
		t.Fatalf("n=%d orders=%v", n, orders)
	}

	email, err := db.GetEmailByProviderMessageID(ctx, "imap", msg.MessageID)
	if err != nil {
		t.Fatal(err)
	}
	if email.Status != EmailProcessed {
		t.Fatalf("status=%q", email.Status)
	}
	linked, err := db.ListEmailOrders(ctx, email.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(linked) != 1 {
		t.Fatalf("linked=%v", linked)
	}

	// A second pass sees the order already stored and links it again without failing.
	res, err := proc.ProcessEmail(ctx, email)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Duplicates) != 1 || len(res.Orders) != 0 {
		t.Fatalf("reprocess=%+v", res)
	}
}

func TestDetectPurchaseOrder(t *testing.T) {
	if r := DetectPurchaseOrder("LPO 4455", sampleLPO, nil); !r.IsPurchaseOrder {
		t.Fatalf("expected purchase order, score=%v", r.Score)
	}
	if r := DetectPurchaseOrder("Lunch on Friday?", "see you there", nil); r.IsPurchaseOrder {
		t.Fatalf("unexpected purchase order, score=%v", r.Score)
	}
	if r := DetectPurchaseOrder("Documents", "please find the purchase order attached", []string{"LPO-123.pdf"}); !r.IsPurchaseOrder {
		t.Fatalf("attachment not scored, score=%v", r.Score)
	}
}
