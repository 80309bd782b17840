package pipeline

import (
	"regexp"
	"strings"
)

type DetectResult struct {
	IsPurchaseOrder bool
	Score           float64
	Reason          string
}

var detectKeywords = []string{"lpo", "purchase order", "po#", "po no", "delivery date", "vat", "barcode", "invoice"}

var reBarcodeToken = regexp.MustCompile(`\b\d{10,13}\b`)

// DetectPurchaseOrder scores a mail by LPO vocabulary, barcode-like tokens and document attachments.
func DetectPurchaseOrder(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	barcodeHits := len(reBarcodeToken.FindAllString(text, 3))
	if barcodeHits >= 2 {
		score += 0.4
	} else if barcodeHits == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".pdf") || strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".csv") {
			score += 0.25
			if strings.Contains(ln, "lpo") || strings.Contains(ln, "po") {
				score += 0.2
			}
			break
		}
	}

	if score > 1 {
		score = 1
	}

	isPO := score >= 0.45
	reason := "rules_negative"
	if isPO {
		reason = "rules_positive"
	}

	return DetectResult{IsPurchaseOrder: isPO, Score: score, Reason: reason}
}
