package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mantaga/internal"
)

var hundred = decimal.NewFromInt(100)

// ApplyDelivery recomputes the invoiced amounts of a line from the delivered quantity.
// Out-of-range quantities are not rejected; see DeliveryWarnings.
func ApplyDelivery(item internal.LineItem, quantityDelivered decimal.Decimal) internal.LineItem {
	out := item
	out.QuantityDelivered = quantityDelivered
	out.AmountInvoiced = quantityDelivered.Mul(item.UnitCost)
	out.VatAmountInvoiced = out.AmountInvoiced.Mul(internal.VatRate)
	out.TotalInclVatInvoiced = out.AmountInvoiced.Add(out.VatAmountInvoiced)
	return out
}

func DeliveryWarnings(item internal.LineItem) []internal.DataQualityWarning {
	var out []internal.DataQualityWarning
	warn := func(code internal.WarningCode, msg string) {
		out = append(out, internal.DataQualityWarning{
			Code:     code,
			PONumber: item.PONumber,
			LineID:   item.ID,
			Barcode:  item.Barcode,
			Message:  msg,
		})
	}

	if item.QuantityDelivered.IsNegative() {
		warn(internal.WarnNegativeDelivery, fmt.Sprintf("delivered quantity %s is negative", item.QuantityDelivered))
	}
	if item.QuantityDelivered.GreaterThan(item.QuantityOrdered) {
		warn(internal.WarnOverDelivery, fmt.Sprintf("delivered %s exceeds ordered %s", item.QuantityDelivered, item.QuantityOrdered))
	}
	if !item.VatPct.Equal(internal.VatRatePct) {
		warn(internal.WarnVatRateMismatch, fmt.Sprintf("line VAT %s%% differs from the %s%% rate", item.VatPct, internal.VatRatePct))
	}
	return out
}

type Summary struct {
	OrderedTotal  decimal.Decimal `json:"orderedTotal"`
	InvoicedTotal decimal.Decimal `json:"invoicedTotal"`
	VatTotal      decimal.Decimal `json:"vatTotal"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	// ServiceLevel is a percentage of the VAT-inclusive ordered value; nil when nothing was ordered.
	ServiceLevel   *decimal.Decimal `json:"serviceLevel"`
	LineCount      int              `json:"lineCount"`
	LinesDelivered int              `json:"linesDelivered"`
	LinesShort     int              `json:"linesShort"`
}

func Summarize(po internal.PurchaseOrder) Summary {
	s := Summary{
		OrderedTotal:  po.TotalInclVat(),
		InvoicedTotal: decimal.Zero,
		VatTotal:      decimal.Zero,
		GrandTotal:    decimal.Zero,
		LineCount:     len(po.Lines),
	}
	for _, l := range po.Lines {
		s.InvoicedTotal = s.InvoicedTotal.Add(l.AmountInvoiced)
		s.VatTotal = s.VatTotal.Add(l.VatAmountInvoiced)
		s.GrandTotal = s.GrandTotal.Add(l.TotalInclVatInvoiced)
		if l.QuantityDelivered.GreaterThanOrEqual(l.QuantityOrdered) {
			s.LinesDelivered++
		} else {
			s.LinesShort++
		}
	}
	if !s.OrderedTotal.IsZero() {
		level := s.GrandTotal.Div(s.OrderedTotal).Mul(hundred).Round(2)
		s.ServiceLevel = &level
	}
	return s
}

// Commission is grandTotal * pct / 100, rounded half away from zero to fils.
func Commission(grandTotal, pct decimal.Decimal) decimal.Decimal {
	return grandTotal.Mul(pct).Div(hundred).Round(2)
}
