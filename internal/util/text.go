package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reKeyJunk    = regexp.MustCompile(`[_\-./#:()%]+`)
	reNonDigits  = regexp.MustCompile(`\D`)
	reSciBarcode = regexp.MustCompile(`^\d+(?:\.\d+)?[eE]\+?\d+$`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeKey lowercases a column header and folds separators so that
// "SKU_Name", "sku-name" and " Sku  Name " all become "sku name".
func NormalizeKey(input string) string {
	s := strings.ToLower(strings.ReplaceAll(input, "\u00A0", " "))
	s = reKeyJunk.ReplaceAllString(s, " ")
	return NormalizeSpaces(s)
}

// NormalizeBarcode strips everything but digits. Spreadsheet cells sometimes carry
// barcodes as floats ("6291234567890.0") or in scientific notation which cannot be recovered.
func NormalizeBarcode(input string) string {
	s := strings.TrimSpace(input)
	if s == "" || reSciBarcode.MatchString(s) {
		return ""
	}
	if idx := strings.Index(s, "."); idx > 0 && strings.Trim(s[idx+1:], "0") == "" {
		s = s[:idx]
	}
	return reNonDigits.ReplaceAllString(s, "")
}

func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = NormalizeSpaces(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
