package connectors

import (
	"context"

	"mantaga/internal"
)

// MailConnector pulls raw LPO mails from one mailbox provider.
type MailConnector interface {
	Provider() string
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
