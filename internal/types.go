package internal

import (
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPartial   OrderStatus = "partial"
	StatusDelivered OrderStatus = "delivered"
	StatusComplete  OrderStatus = "complete"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusDelivered, StatusComplete:
		return true
	default:
		return false
	}
}

type DocumentSource string

const (
	SourceText  DocumentSource = "text"
	SourcePDF   DocumentSource = "pdf"
	SourceXLSX  DocumentSource = "xlsx"
	SourceCSV   DocumentSource = "csv"
	SourceHTML  DocumentSource = "html"
	SourceEmail DocumentSource = "email"
	SourceRows  DocumentSource = "rows"
)

// VatRatePct is the VAT percentage applied to every invoiced line.
var VatRatePct = decimal.NewFromInt(5)

// VatRate is VatRatePct as a fraction.
var VatRate = decimal.RequireFromString("0.05")

type PurchaseOrder struct {
	PONumber         string          `json:"poNumber"`
	OrderDate        string          `json:"orderDate,omitempty"`
	DeliveryDate     string          `json:"deliveryDate,omitempty"`
	Supplier         string          `json:"supplier,omitempty"`
	DeliveryLocation string          `json:"deliveryLocation,omitempty"`
	Customer         string          `json:"customer,omitempty"`
	Status           OrderStatus     `json:"status"`
	CommissionPct    decimal.Decimal `json:"commissionPct"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	InvoiceNumber    string          `json:"invoiceNumber,omitempty"`
	InvoiceDate      string          `json:"invoiceDate,omitempty"`
	Source           DocumentSource  `json:"source,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
	Lines            []LineItem      `json:"lines"`
}

// TotalExclVat sums the extracted excl-VAT amounts of all lines.
func (po PurchaseOrder) TotalExclVat() decimal.Decimal {
	total := decimal.Zero
	for _, l := range po.Lines {
		total = total.Add(l.AmountExclVat)
	}
	return total
}

func (po PurchaseOrder) TotalVat() decimal.Decimal {
	total := decimal.Zero
	for _, l := range po.Lines {
		total = total.Add(l.VatAmount)
	}
	return total
}

func (po PurchaseOrder) TotalInclVat() decimal.Decimal {
	total := decimal.Zero
	for _, l := range po.Lines {
		total = total.Add(l.AmountInclVat)
	}
	return total
}

type LineItem struct {
	ID              string          `json:"id"`
	PONumber        string          `json:"poNumber"`
	LineNo          int             `json:"lineNo"`
	Barcode         string          `json:"barcode"`
	ProductName     string          `json:"productName"`
	QuantityOrdered decimal.Decimal `json:"quantityOrdered"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	VatPct          decimal.Decimal `json:"vatPct"`
	AmountExclVat   decimal.Decimal `json:"amountExclVat"`
	VatAmount       decimal.Decimal `json:"vatAmount"`
	AmountInclVat   decimal.Decimal `json:"amountInclVat"`

	// Reconciliation fields, produced only by reconcile.ApplyDelivery.
	QuantityDelivered    decimal.Decimal `json:"quantityDelivered"`
	AmountInvoiced       decimal.Decimal `json:"amountInvoiced"`
	VatAmountInvoiced    decimal.Decimal `json:"vatAmountInvoiced"`
	TotalInclVatInvoiced decimal.Decimal `json:"totalInclVatInvoiced"`
}

type SkuRecord struct {
	Barcode              string              `json:"barcode"`
	Client               string              `json:"client,omitempty"`
	Brand                string              `json:"brand,omitempty"`
	SkuName              string              `json:"skuName,omitempty"`
	Category             string              `json:"category,omitempty"`
	Subcategory          string              `json:"subcategory,omitempty"`
	CasePack             string              `json:"casePack,omitempty"`
	ShelfLife            string              `json:"shelfLife,omitempty"`
	NutritionInfo        string              `json:"nutritionInfo,omitempty"`
	IngredientsInfo      string              `json:"ingredientsInfo,omitempty"`
	PackshotURL          string              `json:"packshotUrl,omitempty"`
	AmazonASIN           string              `json:"amazonAsin,omitempty"`
	TalabatSKU           string              `json:"talabatSku,omitempty"`
	NoonZSKU             string              `json:"noonZsku,omitempty"`
	CareemCode           string              `json:"careemCode,omitempty"`
	ClientSellinPrice    decimal.NullDecimal `json:"clientSellinPrice"`
	MantagaCommissionPct decimal.NullDecimal `json:"mantagaCommissionPct"`
	UpdatedAt            string              `json:"updatedAt,omitempty"`
}

type WarningCode string

const (
	WarnOverDelivery     WarningCode = "over_delivery"
	WarnNegativeDelivery WarningCode = "negative_delivery"
	WarnVatRateMismatch  WarningCode = "vat_rate_mismatch"
	WarnTotalMismatch    WarningCode = "total_mismatch"
)

// DataQualityWarning is advisory. It is surfaced for review and never blocks a save.
type DataQualityWarning struct {
	Code     WarningCode `json:"code"`
	PONumber string      `json:"poNumber,omitempty"`
	LineID   string      `json:"lineId,omitempty"`
	Barcode  string      `json:"barcode,omitempty"`
	Message  string      `json:"message"`
}

type RecordError struct {
	Index   int    `json:"index"`
	Barcode string `json:"barcode,omitempty"`
	Err     string `json:"error"`
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type BrandPerformanceRow struct {
	PONumber      string          `json:"poNumber"`
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   string          `json:"invoiceDate"`
	Barcode       string          `json:"barcode"`
	ProductName   string          `json:"productName"`
	Brand         string          `json:"brand,omitempty"`
	Client        string          `json:"client,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	AmountExclVat decimal.Decimal `json:"amountExclVat"`
	AmountInclVat decimal.Decimal `json:"amountInclVat"`
}
