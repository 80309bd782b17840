package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"mantaga/internal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(id, ordered, unitCost string) internal.LineItem {
	q := d(ordered)
	cost := d(unitCost)
	excl := q.Mul(cost)
	vat := excl.Mul(internal.VatRate)
	return internal.LineItem{
		ID: id, PONumber: "LPO-1", Barcode: "629100000000" + id,
		QuantityOrdered: q, UnitCost: cost, VatPct: decimal.NewFromInt(5),
		AmountExclVat: excl, VatAmount: vat, AmountInclVat: excl.Add(vat),
	}
}

func TestApplyDelivery(t *testing.T) {
	item := line("1", "10", "24.10")
	got := ApplyDelivery(item, d("5"))
	if !got.AmountInvoiced.Equal(d("120.5")) {
		t.Fatalf("amountInvoiced=%s", got.AmountInvoiced)
	}
	if !got.VatAmountInvoiced.Equal(d("6.025")) {
		t.Fatalf("vat=%s", got.VatAmountInvoiced)
	}
	if !got.TotalInclVatInvoiced.Equal(d("126.525")) {
		t.Fatalf("total=%s", got.TotalInclVatInvoiced)
	}
	if !item.QuantityDelivered.IsZero() {
		t.Fatal("input line was mutated")
	}
}

func TestApplyDeliveryIsIdempotent(t *testing.T) {
	item := line("1", "10", "3.75")
	once := ApplyDelivery(item, d("7"))
	twice := ApplyDelivery(once, d("7"))
	if !once.TotalInclVatInvoiced.Equal(twice.TotalInclVatInvoiced) || !once.AmountInvoiced.Equal(twice.AmountInvoiced) {
		t.Fatalf("once=%+v twice=%+v", once, twice)
	}
}

func TestDeliveryWarnings(t *testing.T) {
	over := ApplyDelivery(line("1", "10", "1"), d("12"))
	if w := DeliveryWarnings(over); len(w) != 1 || w[0].Code != internal.WarnOverDelivery {
		t.Fatalf("over=%+v", w)
	}
	if !over.AmountInvoiced.Equal(d("12")) {
		t.Fatal("over-delivery must not be clamped")
	}

	neg := ApplyDelivery(line("2", "10", "1"), d("-1"))
	if w := DeliveryWarnings(neg); len(w) != 1 || w[0].Code != internal.WarnNegativeDelivery {
		t.Fatalf("neg=%+v", w)
	}

	odd := line("3", "1", "1")
	odd.VatPct = d("15")
	if w := DeliveryWarnings(odd); len(w) != 1 || w[0].Code != internal.WarnVatRateMismatch {
		t.Fatalf("vat=%+v", w)
	}
}

func TestSummarize(t *testing.T) {
	po := internal.PurchaseOrder{PONumber: "LPO-1", Lines: []internal.LineItem{
		ApplyDelivery(line("1", "10", "10"), d("10")),
		ApplyDelivery(line("2", "10", "10"), d("5")),
	}}
	s := Summarize(po)
	if !s.OrderedTotal.Equal(d("210")) || !s.GrandTotal.Equal(d("157.5")) {
		t.Fatalf("summary=%+v", s)
	}
	if s.ServiceLevel == nil || !s.ServiceLevel.Equal(d("75")) {
		t.Fatalf("serviceLevel=%v", s.ServiceLevel)
	}
	if s.LinesDelivered != 1 || s.LinesShort != 1 {
		t.Fatalf("lines delivered=%d short=%d", s.LinesDelivered, s.LinesShort)
	}
	if !s.OrderedTotal.Equal(po.TotalInclVat()) {
		t.Fatal("ordered total must equal the line sum")
	}
}

func TestSummarizeWithoutOrderedValue(t *testing.T) {
	s := Summarize(internal.PurchaseOrder{PONumber: "LPO-EMPTY"})
	if s.ServiceLevel != nil {
		t.Fatalf("serviceLevel=%v", *s.ServiceLevel)
	}
}

func TestCommissionRoundsHalfUp(t *testing.T) {
	cases := []struct {
		grand, pct, want string
	}{
		{"157.50", "12", "18.9"},
		{"100.05", "5", "5.00"},
		{"0.5", "1", "0.01"},
	}
	for _, tc := range cases {
		if got := Commission(d(tc.grand), d(tc.pct)); !got.Equal(d(tc.want)) {
			t.Fatalf("Commission(%s, %s)=%s want %s", tc.grand, tc.pct, got, tc.want)
		}
	}
}
