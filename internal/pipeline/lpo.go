package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mantaga/internal"
	"mantaga/internal/util"
)

const (
	numberToken = `(\d[\d,]*(?:\.\d+)?)`
	// seq barcode, then name qty unitCost [extra columns] as one span, then amountExclVat vatPct% vatAmount amountInclVat
	itemCore = `(\d{1,4})\s+(\d{10,13})\s+(\S.*?)\s+` + numberToken + `\s+(\d{1,2}(?:\.\d+)?)\s*%\s+` +
		numberToken + `\s+` + numberToken

	maxExtraColumns = 3
)

var (
	reItemLine = regexp.MustCompile(`^` + itemCore + `$`)
	reItemText = regexp.MustCompile(`\b` + itemCore + `\b`)
	reNumber   = regexp.MustCompile(`^` + numberToken + `$`)

	poNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bPO\s*#\s*:?\s*([A-Z0-9][A-Z0-9\-/]*)`),
		regexp.MustCompile(`(?i)\bPurchase\s+Order\s*(?:No\.?|Number|#)?\s*:\s*([A-Z0-9][A-Z0-9\-/]*)`),
		regexp.MustCompile(`(?i)\bL?PO\s+(?:No\.?|Number)\s*:?\s*([A-Z0-9][A-Z0-9\-/]*)`),
	}

	reOrderDate    = regexp.MustCompile(`(?i)\border\s+date\s*:?\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4})`)
	reDeliveryDate = regexp.MustCompile(`(?i)\bdelivery\s+date\s*:?\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4})`)
	reAnyDate      = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)

	reCustomer = regexp.MustCompile(`(?i)\b(?:customer|bill\s+to)\s*:\s*([^\n]+)`)
	reLocation = regexp.MustCompile(`(?i)\b(?:delivery\s+location|deliver\s+to|ship\s+to)\s*:\s*([^\n]+)`)
	reNextLab  = regexp.MustCompile(`(?i)\s{2,}|\t|\s+(?:order\s+date|delivery\s+date|delivery\s+location|deliver\s+to|ship\s+to|bill\s+to|customer|supplier|vendor|po\s*#|purchase\s+order|lpo\s+no|tel|phone|trn)\b`)

	reGrandTotal = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+incl(?:uding|\.)?\s*vat)\s*[:\-]?\s*(?:aed\s*)?(\d[\d,]*(?:\.\d+)?)`)
)

var totalTolerance = decimal.RequireFromString("0.01")

// Extraction is the outcome of parsing one purchase-order document.
type Extraction struct {
	Order    internal.PurchaseOrder
	Skipped  int
	Warnings []internal.DataQualityWarning
}

type Extractor struct {
	suppliers []string
	now       func() time.Time
}

func NewExtractor(suppliers []string) *Extractor {
	return &Extractor{suppliers: suppliers, now: time.Now}
}

// Extract parses PDF-extracted LPO text. It always yields an order, possibly without lines;
// only input that is not text at all is an ExtractionError.
func (e *Extractor) Extract(rawText string) (Extraction, error) {
	return e.extract(internal.SourceText, rawText)
}

func (e *Extractor) extract(source internal.DocumentSource, rawText string) (Extraction, error) {
	if strings.TrimSpace(rawText) == "" {
		return Extraction{}, internal.NewExtractionError(source, "empty document", nil)
	}
	if !utf8.ValidString(rawText) || strings.ContainsRune(rawText, 0) {
		return Extraction{}, internal.NewExtractionError(source, "input is not text", nil)
	}

	po := internal.PurchaseOrder{
		PONumber:         extractPONumber(rawText),
		DeliveryDate:     matchDate(reDeliveryDate, rawText),
		Supplier:         e.matchSupplier(rawText),
		Customer:         extractLabeled(reCustomer, rawText),
		DeliveryLocation: extractLabeled(reLocation, rawText),
		Status:           internal.StatusPending,
		Source:           source,
		Lines:            []internal.LineItem{},
	}
	if po.PONumber == "" {
		po.PONumber = fmt.Sprintf("PO-%d", e.now().UnixMilli())
	}
	po.OrderDate = matchDate(reOrderDate, rawText)
	if po.OrderDate == "" {
		po.OrderDate = firstUnlabeledDate(rawText)
	}

	out := Extraction{}
	lines := util.SplitLines(rawText)
	matched := 0
	for _, line := range lines {
		m := reItemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		matched++
		e.acceptRow(&po, &out, m)
	}
	if matched == 0 {
		// Some PDFs come out as one run of text without row breaks.
		flat := util.NormalizeSpaces(rawText)
		for _, m := range reItemText.FindAllStringSubmatch(flat, -1) {
			e.acceptRow(&po, &out, m)
		}
	}

	if printed, ok := grandTotal(rawText); ok && len(po.Lines) > 0 {
		sum := po.TotalInclVat()
		if sum.Sub(printed).Abs().GreaterThan(totalTolerance) {
			out.Warnings = append(out.Warnings, internal.DataQualityWarning{
				Code:     internal.WarnTotalMismatch,
				PONumber: po.PONumber,
				Message:  fmt.Sprintf("document total %s differs from line sum %s; line sum is used", printed.StringFixed(2), sum.StringFixed(2)),
			})
		}
	}

	out.Order = po
	return out, nil
}

func (e *Extractor) acceptRow(po *internal.PurchaseOrder, out *Extraction, m []string) {
	exclVat, okExcl := util.ParseAmount(m[4])
	vatPct, okPct := util.ParseAmount(m[5])
	vatAmount, okVat := util.ParseAmount(m[6])
	inclVat, okIncl := util.ParseAmount(m[7])
	if !okExcl || !okPct || !okVat || !okIncl {
		out.Skipped++
		return
	}
	name, qty, unitCost, ok := splitItemSpan(m[3], exclVat)
	if !ok {
		out.Skipped++
		return
	}
	if !qty.IsPositive() || !exclVat.IsPositive() {
		out.Skipped++
		return
	}

	line := internal.LineItem{
		ID:                   uuid.NewString(),
		PONumber:             po.PONumber,
		LineNo:               len(po.Lines) + 1,
		Barcode:              m[2],
		ProductName:          name,
		QuantityOrdered:      qty,
		UnitCost:             unitCost,
		VatPct:               vatPct,
		AmountExclVat:        exclVat,
		VatAmount:            vatAmount,
		AmountInclVat:        inclVat,
		QuantityDelivered:    decimal.Zero,
		AmountInvoiced:       decimal.Zero,
		VatAmountInvoiced:    decimal.Zero,
		TotalInclVatInvoiced: decimal.Zero,
	}
	if seq, err := strconv.Atoi(m[1]); err == nil && seq > 0 && !hasLineNo(po.Lines, seq) {
		line.LineNo = seq
	}
	if !vatPct.Equal(internal.VatRatePct) {
		out.Warnings = append(out.Warnings, internal.DataQualityWarning{
			Code:     internal.WarnVatRateMismatch,
			PONumber: po.PONumber,
			LineID:   line.ID,
			Barcode:  line.Barcode,
			Message:  fmt.Sprintf("line VAT %s%% differs from the %s%% rate", vatPct.String(), internal.VatRatePct.String()),
		})
	}
	po.Lines = append(po.Lines, line)
}

// splitItemSpan finds the quantity and unit cost columns inside "name qty unitCost [extra columns]".
// Among the possible splits the one whose qty*unitCost matches the excl-VAT amount wins, else the
// one with the shortest name.
func splitItemSpan(span string, exclVat decimal.Decimal) (string, decimal.Decimal, decimal.Decimal, bool) {
	tokens := strings.Fields(span)
	first := -1
	for i := 1; i+1 < len(tokens); i++ {
		if len(tokens)-(i+2) > maxExtraColumns {
			continue
		}
		if !reNumber.MatchString(tokens[i]) || !reNumber.MatchString(tokens[i+1]) {
			continue
		}
		qty, okQty := util.ParseAmount(tokens[i])
		unitCost, okCost := util.ParseAmount(tokens[i+1])
		if !okQty || !okCost {
			continue
		}
		if first < 0 {
			first = i
		}
		if qty.Mul(unitCost).Round(2).Sub(exclVat).Abs().LessThanOrEqual(totalTolerance) {
			return strings.Join(tokens[:i], " "), qty, unitCost, true
		}
	}
	if first < 0 {
		return "", decimal.Zero, decimal.Zero, false
	}
	qty, _ := util.ParseAmount(tokens[first])
	unitCost, _ := util.ParseAmount(tokens[first+1])
	return strings.Join(tokens[:first], " "), qty, unitCost, true
}

func hasLineNo(lines []internal.LineItem, n int) bool {
	for _, l := range lines {
		if l.LineNo == n {
			return true
		}
	}
	return false
}

func extractPONumber(text string) string {
	for _, re := range poNumberPatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return strings.ToUpper(strings.TrimRight(m[1], "-/"))
		}
	}
	return ""
}

func matchDate(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return util.ParseDMY(m[1])
}

func firstUnlabeledDate(text string) string {
	stripped := reDeliveryDate.ReplaceAllString(text, " ")
	for _, m := range reAnyDate.FindAllStringSubmatch(stripped, -1) {
		if iso := util.ParseDMY(m[1]); iso != "" {
			return iso
		}
	}
	return ""
}

func (e *Extractor) matchSupplier(text string) string {
	lower := strings.ToLower(text)
	for _, s := range e.suppliers {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return s
		}
	}
	return ""
}

func extractLabeled(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	value := m[1]
	if loc := reNextLab.FindStringIndex(value); loc != nil {
		value = value[:loc[0]]
	}
	return util.NormalizeSpaces(value)
}

func grandTotal(text string) (decimal.Decimal, bool) {
	matches := reGrandTotal.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return decimal.Zero, false
	}
	return util.ParseAmount(matches[len(matches)-1][1])
}
