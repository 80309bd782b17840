package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mantaga/internal/config"
)

func TestRecordRunLogsLedgerFailure(t *testing.T) {
	db, _ := openTestDB(t)
	svc := NewIngestService(db, config.Config{})
	var buf bytes.Buffer
	svc.log = zerolog.New(&buf)

	svc.recordRun(context.Background(), "trace-ok", "lpo", "LPO-1", time.Now(), map[string]int{"lines": 1})
	if buf.Len() != 0 {
		t.Fatalf("unexpected log: %s", buf.String())
	}

	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	svc.recordRun(context.Background(), "trace-1", "sku_import", "batch.csv", time.Now(), map[string]int{"records": 2})
	out := buf.String()
	if !strings.Contains(out, "run not recorded") || !strings.Contains(out, `"trace_id":"trace-1"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("ledger failure not logged: %s", out)
	}
}
