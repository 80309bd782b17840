package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"mantaga/internal"
)

// PDFText returns the plain text of every readable page, separated by newlines.
func PDFText(content []byte) (text string, err error) {
	defer func() {
		// the pdf reader panics on some truncated xref tables
		if r := recover(); r != nil {
			text, err = "", internal.NewExtractionError(internal.SourcePDF, "unreadable pdf", fmt.Errorf("%v", r))
		}
	}()
	if len(content) == 0 {
		return "", internal.NewExtractionError(internal.SourcePDF, "empty document", nil)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", internal.NewExtractionError(internal.SourcePDF, "unreadable pdf", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ExtractPDF runs the text extractor over a PDF purchase order.
func (e *Extractor) ExtractPDF(content []byte) (Extraction, error) {
	text, err := PDFText(content)
	if err != nil {
		return Extraction{}, err
	}
	return e.extract(internal.SourcePDF, text)
}
