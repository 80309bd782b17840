package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"mantaga/internal"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestExtractSkusFromXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Client", "Brand", "EAN", "Product Name", "Case Pack", "Mantaga Commission %"},
		{"Acme", "Crunchy", int64(6291000000017), "Chips 150g", "12", "8.5"},
		{"", "", "", "", "", ""},
		{"Acme", "Crunchy", "", "", "6", ""},
		{"Acme", "", "6291000000024", "Water 1.5L", "", ""},
	})
	recs, err := ExtractSkusFromXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("len=%d recs=%+v", len(recs), recs)
	}
	if recs[0].Barcode != "6291000000017" || recs[0].SkuName != "Chips 150g" || recs[0].CasePack != "12" {
		t.Fatalf("first=%+v", recs[0])
	}
	if !recs[0].MantagaCommissionPct.Valid || recs[0].MantagaCommissionPct.Decimal.String() != "8.5" {
		t.Fatalf("commission=%v", recs[0].MantagaCommissionPct)
	}
	if recs[1].MantagaCommissionPct.Valid {
		t.Fatalf("empty commission parsed: %v", recs[1].MantagaCommissionPct)
	}
}

func TestExtractSkusFromXLSXWithoutHeader(t *testing.T) {
	blob := mkXLSX([][]any{{"foo", "bar"}, {"1", "2"}})
	if _, err := ExtractSkusFromXLSX(blob); !internal.IsExtraction(err) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if _, err := ExtractSkusFromXLSX([]byte("nope")); !internal.IsExtraction(err) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractSkusFromCSV(t *testing.T) {
	data := "\ufeffBarcode,SKU_Name,Talabat-SKU,Client Sellin Price\n" +
		"6291000000017.0,\"Chips, 150g\",TB-1,\"1,250.00\"\n" +
		",,,\n"
	recs, err := ExtractSkusFromCSV(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("len=%d", len(recs))
	}
	rec := recs[0]
	if rec.Barcode != "6291000000017" || rec.SkuName != "Chips, 150g" || rec.TalabatSKU != "TB-1" {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.ClientSellinPrice.Decimal.String() != "1250" {
		t.Fatalf("price=%v", rec.ClientSellinPrice)
	}
}

func TestExtractSkusFromHTML(t *testing.T) {
	html := `<p>see below</p>
<table><tr><td>hello</td></tr></table>
<table>
<tr><th>Barcode</th><th>Description</th><th>Brand</th></tr>
<tr><td>6291000000017</td><td>Chips   150g</td><td>Crunchy</td></tr>
</table>`
	recs, err := ExtractSkusFromHTML(html)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].SkuName != "Chips 150g" || recs[0].Brand != "Crunchy" {
		t.Fatalf("recs=%+v", recs)
	}
}

func TestExtractSkusFromRowsDuplicateColumn(t *testing.T) {
	recs, err := ExtractSkusFromRows([][]string{
		{"Barcode", "EAN", "Name"},
		{"111", "222", "x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Barcode != "111" {
		t.Fatalf("barcode=%q", recs[0].Barcode)
	}
}
