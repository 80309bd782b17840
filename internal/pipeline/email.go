package pipeline

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"mantaga/internal"
)

type EmailAttachment struct {
	FileName    string
	ContentType string
	Kind        internal.DocumentSource
	Content     []byte
}

// EmailDocuments is what a mailed LPO carries: the body and any attachments the
// extractors understand. Other attachments are listed by name only.
type EmailDocuments struct {
	Subject         string
	From            string
	Text            string
	HTML            string
	Attachments     []EmailAttachment
	AttachmentNames []string
}

func ExtractDocumentsFromEmail(raw []byte) (EmailDocuments, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return EmailDocuments{}, internal.NewExtractionError(internal.SourceEmail, "unreadable message", err)
	}

	out := EmailDocuments{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    env.Text,
		HTML:    env.HTML,
	}

	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, att := range parts {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, filename)

		kind := attachmentKind(filename, att.ContentType)
		if kind == "" {
			continue
		}
		out.Attachments = append(out.Attachments, EmailAttachment{
			FileName:    filename,
			ContentType: att.ContentType,
			Kind:        kind,
			Content:     att.Content,
		})
	}
	return out, nil
}

func attachmentKind(filename, contentType string) internal.DocumentSource {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return internal.SourcePDF
	case ".xlsx", ".xlsm":
		return internal.SourceXLSX
	case ".csv":
		return internal.SourceCSV
	case ".htm", ".html":
		return internal.SourceHTML
	}
	switch strings.ToLower(contentType) {
	case "application/pdf":
		return internal.SourcePDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return internal.SourceXLSX
	case "text/csv":
		return internal.SourceCSV
	}
	return ""
}
