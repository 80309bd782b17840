package listener

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mantaga/internal"
	"mantaga/internal/config"
	"mantaga/internal/connectors"
	"mantaga/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
}

func (f *fakeConnector) Provider() string { return "imap" }

func (f *fakeConnector) FetchInbox(_ context.Context, _ string, _ int) ([]internal.FetchedMailMessage, error) {
	return f.messages, nil
}

const lpoMail = "From: buyer@talabat.example\r\n" +
	"Subject: LPO 9001\r\n" +
	"Message-ID: <9001@talabat.example>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"LPO No: 9001\r\n" +
	"Delivery Date: 18/03/2024\r\n" +
	"1 6291000000017 Crunchy Chips 150g 5 24.10 120.50 5% 6.03 126.53\r\n" +
	"2 6291000000031 Water 1.5L 10 2.00 20.00 5% 1.00 21.00\r\n"

func TestRunOnceFetchesProcessesAndExports(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := config.Config{
		RawMailDir:               filepath.Join(tmp, "raw"),
		OutputDir:                filepath.Join(tmp, "out"),
		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoExport:   true,
	}
	svc := NewService(db, cfg)
	fake := &fakeConnector{messages: []internal.FetchedMailMessage{{
		Provider:  "imap",
		MessageID: "<9001@talabat.example>",
		Subject:   "LPO 9001",
		Raw:       []byte(lpoMail),
	}}}
	svc.dial = func(context.Context, string) (connectors.MailConnector, error) { return fake, nil }

	ctx := context.Background()
	res, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.New != 1 || res.Processed != 1 || res.Exported != 1 {
		t.Fatalf("result=%+v", res)
	}
	if len(res.Orders) != 1 || res.Orders[0] != "9001" {
		t.Fatalf("orders=%v", res.Orders)
	}

	if last, err := db.GetMetadata(ctx, lastCycleKey("imap")); err != nil || last == nil {
		t.Fatalf("last cycle=%v err=%v", last, err)
	}

	entries, err := os.ReadDir(filepath.Join(tmp, "out", "listener"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), "_9001.xlsx") {
		t.Fatalf("entries=%v", entries)
	}

	// The same mail fetched again keeps its status and is not processed twice.
	res, err = svc.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.New != 0 || res.Processed != 0 || res.Exported != 0 {
		t.Fatalf("second cycle=%+v", res)
	}
}
