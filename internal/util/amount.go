package util

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reThousandDot   = regexp.MustCompile(`^\d{1,3}(?:(?:\.\d{3}){2,}|(?:\.\d{3})+,\d+)$`)
	reThousandComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reDecimalComma  = regexp.MustCompile(`^\d+,\d{1,2}$`)
	reCurrency      = regexp.MustCompile(`(?i)^(aed|usd|dhs?)\.?\s*`)
)

// ParseAmount parses a numeric token as printed on purchase orders and spreadsheets:
// "120.50", "1,234.50", "1.234,50", "1 234", "AED 99". Negative values keep their sign.
func ParseAmount(input string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(input, "\u00A0", " "))
	s = reCurrency.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	} else if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	norm := normalizeNumericToken(s)
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandDot.MatchString(compact) {
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.ReplaceAll(compact, ",", ".")
	}
	if reThousandComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if reDecimalComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

// ParseDMY converts a DD/MM/YYYY (or D/M/YYYY, '-' or '.' separated) date into YYYY-MM-DD.
// It returns "" when the value is not a real calendar date.
func ParseDMY(input string) string {
	s := strings.TrimSpace(input)
	s = strings.NewReplacer("-", "/", ".", "/").Replace(s)
	t, err := time.Parse("2/1/2006", s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// NormalizeISODate accepts YYYY-MM-DD or DD/MM/YYYY and returns YYYY-MM-DD, or "" when neither parses.
func NormalizeISODate(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	return ParseDMY(s)
}
