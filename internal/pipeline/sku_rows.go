package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"mantaga/internal"
	"mantaga/internal/util"
)

type skuField int

const (
	fieldBarcode skuField = iota
	fieldClient
	fieldBrand
	fieldSkuName
	fieldCategory
	fieldSubcategory
	fieldCasePack
	fieldShelfLife
	fieldNutrition
	fieldIngredients
	fieldPackshot
	fieldAmazonASIN
	fieldTalabatSKU
	fieldNoonZSKU
	fieldCareemCode
	fieldSellinPrice
	fieldCommission
)

var headerSynonyms = map[skuField][]string{
	fieldBarcode:     {"barcode", "bar code", "ean", "ean code", "gtin", "upc"},
	fieldClient:      {"client", "client name", "principal"},
	fieldBrand:       {"brand", "brand name"},
	fieldSkuName:     {"sku name", "product name", "product", "item name", "item description", "description", "name"},
	fieldCategory:    {"category"},
	fieldSubcategory: {"subcategory", "sub category"},
	fieldCasePack:    {"case pack", "case size", "pack size", "units per case"},
	fieldShelfLife:   {"shelf life", "shelf life days"},
	fieldNutrition:   {"nutrition", "nutrition info", "nutrition facts", "nutritional information"},
	fieldIngredients: {"ingredients", "ingredients info", "ingredient list"},
	fieldPackshot:    {"packshot", "packshot url", "image", "image url"},
	fieldAmazonASIN:  {"amazon asin", "asin"},
	fieldTalabatSKU:  {"talabat sku", "talabat"},
	fieldNoonZSKU:    {"noon zsku", "noon sku", "zsku"},
	fieldCareemCode:  {"careem code", "careem sku"},
	fieldSellinPrice: {"client sellin price", "client sell in price", "sellin price", "sell in price"},
	fieldCommission:  {"mantaga commission", "mantaga commission pct", "commission", "commission pct"},
}

// headerLookup is keyed by util.NormalizeKey output.
var headerLookup = func() map[string]skuField {
	out := map[string]skuField{}
	for f, names := range headerSynonyms {
		for _, n := range names {
			out[n] = f
		}
	}
	return out
}()

// ExtractSkusFromRows maps spreadsheet rows onto catalog records. The first non-empty row is the
// header; rows that carry neither a barcode nor a SKU name are dropped.
func ExtractSkusFromRows(rows [][]string) ([]internal.SkuRecord, error) {
	return extractSkuRows(internal.SourceRows, rows)
}

func extractSkuRows(source internal.DocumentSource, rows [][]string) ([]internal.SkuRecord, error) {
	headerIdx := -1
	for i, row := range rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, internal.NewExtractionError(source, "no rows", nil)
	}

	columns := map[int]skuField{}
	for i, h := range rows[headerIdx] {
		if f, ok := headerLookup[util.NormalizeKey(h)]; ok {
			if _, dup := columnFor(columns, f); !dup {
				columns[i] = f
			}
		}
	}
	if len(columns) == 0 {
		return nil, internal.NewExtractionError(source, "no recognizable header column", nil)
	}

	body := rows[headerIdx+1:]
	if len(body) == 0 {
		return nil, internal.NewExtractionError(source, "header without data rows", nil)
	}

	out := []internal.SkuRecord{}
	for _, row := range body {
		if isBlankRow(row) {
			continue
		}
		rec := internal.SkuRecord{}
		for idx, f := range columns {
			if idx >= len(row) {
				continue
			}
			setSkuField(&rec, f, row[idx])
		}
		if rec.Barcode == "" && rec.SkuName == "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func columnFor(columns map[int]skuField, f skuField) (int, bool) {
	for idx, c := range columns {
		if c == f {
			return idx, true
		}
	}
	return -1, false
}

func setSkuField(rec *internal.SkuRecord, f skuField, raw string) {
	value := util.NormalizeSpaces(raw)
	switch f {
	case fieldBarcode:
		rec.Barcode = util.NormalizeBarcode(value)
	case fieldClient:
		rec.Client = value
	case fieldBrand:
		rec.Brand = value
	case fieldSkuName:
		rec.SkuName = value
	case fieldCategory:
		rec.Category = value
	case fieldSubcategory:
		rec.Subcategory = value
	case fieldCasePack:
		rec.CasePack = value
	case fieldShelfLife:
		rec.ShelfLife = value
	case fieldNutrition:
		rec.NutritionInfo = value
	case fieldIngredients:
		rec.IngredientsInfo = value
	case fieldPackshot:
		rec.PackshotURL = value
	case fieldAmazonASIN:
		rec.AmazonASIN = value
	case fieldTalabatSKU:
		rec.TalabatSKU = value
	case fieldNoonZSKU:
		rec.NoonZSKU = value
	case fieldCareemCode:
		rec.CareemCode = value
	case fieldSellinPrice:
		rec.ClientSellinPrice = nullAmount(value)
	case fieldCommission:
		rec.MantagaCommissionPct = nullAmount(value)
	}
}

func nullAmount(value string) decimal.NullDecimal {
	d, ok := util.ParseAmount(value)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ExtractSkusFromXLSX reads the first sheet that has a recognizable header.
func ExtractSkusFromXLSX(content []byte) ([]internal.SkuRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, internal.NewExtractionError(internal.SourceXLSX, "unreadable workbook", err)
	}
	defer f.Close()

	var lastErr error = internal.NewExtractionError(internal.SourceXLSX, "workbook has no sheets", nil)
	for _, sheet := range f.GetSheetList() {
		// raw values keep long barcodes out of scientific notation
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			lastErr = internal.NewExtractionError(internal.SourceXLSX, "sheet "+sheet, err)
			continue
		}
		recs, err := extractSkuRows(internal.SourceXLSX, rows)
		if err != nil {
			lastErr = err
			continue
		}
		return recs, nil
	}
	return nil, lastErr
}

func ExtractSkusFromCSV(r io.Reader) ([]internal.SkuRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows := [][]string{}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, internal.NewExtractionError(internal.SourceCSV, "malformed csv", err)
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return extractSkuRows(internal.SourceCSV, rows)
}

// ExtractSkusFromHTML reads the first table whose header row maps to catalog columns.
func ExtractSkusFromHTML(html string) ([]internal.SkuRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, internal.NewExtractionError(internal.SourceHTML, "unreadable html", err)
	}

	var (
		found   []internal.SkuRecord
		lastErr error = internal.NewExtractionError(internal.SourceHTML, "no table", nil)
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := [][]string{}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			rows = append(rows, cells)
		})
		recs, err := extractSkuRows(internal.SourceHTML, rows)
		if err != nil {
			lastErr = err
			return true
		}
		found = recs
		return false
	})
	if found == nil {
		return nil, lastErr
	}
	return found, nil
}
