package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"mantaga/internal"
	"mantaga/internal/catalog"
	"mantaga/internal/reconcile"
)

var orderHeaders = []string{
	"line_no", "barcode", "product_name", "qty_ordered", "unit_cost", "vat_pct",
	"amount_excl_vat", "vat_amount", "amount_incl_vat",
	"qty_delivered", "amount_invoiced", "vat_invoiced", "total_incl_vat_invoiced",
}

// ExportOrderXLSX writes the lines of one order and its reconciliation summary to an xlsx workbook.
func ExportOrderXLSX(po internal.PurchaseOrder, summary reconcile.Summary, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "Lines"); err != nil {
		return err
	}
	sheet = "Lines"

	writeHeader(f, sheet, orderHeaders)
	for i, l := range po.Lines {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, l.LineNo)
		set(2, l.Barcode)
		set(3, l.ProductName)
		set(4, num(l.QuantityOrdered))
		set(5, num(l.UnitCost))
		set(6, num(l.VatPct))
		set(7, num(l.AmountExclVat))
		set(8, num(l.VatAmount))
		set(9, num(l.AmountInclVat))
		set(10, num(l.QuantityDelivered))
		set(11, num(l.AmountInvoiced))
		set(12, num(l.VatAmountInvoiced))
		set(13, num(l.TotalInclVatInvoiced))
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return err
	}
	rows := [][]any{
		{"po_number", po.PONumber},
		{"supplier", po.Supplier},
		{"customer", po.Customer},
		{"delivery_location", po.DeliveryLocation},
		{"order_date", po.OrderDate},
		{"delivery_date", po.DeliveryDate},
		{"invoice_number", po.InvoiceNumber},
		{"invoice_date", po.InvoiceDate},
		{"status", string(po.Status)},
		{"ordered_total", num(summary.OrderedTotal)},
		{"invoiced_total", num(summary.InvoicedTotal)},
		{"vat_total", num(summary.VatTotal)},
		{"grand_total", num(summary.GrandTotal)},
		{"service_level_pct", serviceLevel(summary.ServiceLevel)},
		{"commission_pct", num(po.CommissionPct)},
		{"commission_amount", num(po.CommissionAmount)},
		{"lines", summary.LineCount},
		{"lines_delivered", summary.LinesDelivered},
		{"lines_short", summary.LinesShort},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetSheetRow("Summary", cell, &row)
	}
	return save(f, outputPath)
}

// ExportSkuReportXLSX writes the catalog completeness report, one row per SKU.
func ExportSkuReportXLSX(rep catalog.Report, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	writeHeader(f, sheet, []string{"client", "barcode", "sku_name", "level", "missing"})
	for i, c := range rep.Records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{c.Client, c.Barcode, c.SkuName, string(c.Level), joinMissing(c.Missing)}
		_ = f.SetSheetRow(sheet, cell, &row)
	}

	if _, err := f.NewSheet("Clients"); err != nil {
		return err
	}
	writeHeader(f, "Clients", []string{"client", "red", "amber", "green"})
	r := 2
	for _, client := range sortedClients(rep.ByClient) {
		counts := rep.ByClient[client]
		cell, _ := excelize.CoordinatesToCellName(1, r)
		row := []any{client, counts.Red, counts.Amber, counts.Green}
		_ = f.SetSheetRow("Clients", cell, &row)
		r++
	}
	return save(f, outputPath)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func save(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func serviceLevel(v *decimal.Decimal) any {
	if v == nil {
		return ""
	}
	return v.InexactFloat64()
}

func joinMissing(fields []string) string {
	return strings.Join(fields, ", ")
}

func sortedClients(m map[string]catalog.LevelCounts) []string {
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
