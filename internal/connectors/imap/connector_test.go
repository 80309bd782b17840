package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

func TestToFetched(t *testing.T) {
	msg := &imap.Message{
		Uid:          42,
		InternalDate: time.Date(2024, 3, 15, 9, 30, 0, 0, time.FixedZone("GST", 4*3600)),
		Envelope: &imap.Envelope{
			Subject: "LPO 4455",
			From: []*imap.Address{
				{PersonalName: "Buyer", MailboxName: "buyer", HostName: "talabat.example"},
				{MailboxName: "ops", HostName: "talabat.example"},
			},
		},
	}
	got := toFetched(msg, []byte("raw"))
	if got.MessageID != "imap-42" {
		t.Fatalf("messageId=%q", got.MessageID)
	}
	if got.From != "Buyer <buyer@talabat.example>, ops@talabat.example" {
		t.Fatalf("from=%q", got.From)
	}
	if got.ReceivedAt != "2024-03-15T05:30:00Z" {
		t.Fatalf("received=%q", got.ReceivedAt)
	}
}
