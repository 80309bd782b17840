package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	t.Cleanup(func() { _ = Setup(DefaultConfig()) })

	cfg := DefaultConfig()
	cfg.Format, cfg.Output, cfg.Level = "json", path, "warn"
	if err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("level=%s", zerolog.GlobalLevel())
	}

	log := WithComponent("reconcile")
	log.Info().Msg("dropped")
	log.Warn().Str("po_number", "LPO-1").Msg("kept")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(raw)
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"reconcile"`) || !strings.Contains(out, `"po_number":"LPO-1"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if err := Setup(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetupClosesPreviousLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { _ = Setup(DefaultConfig()) })

	cfg := DefaultConfig()
	cfg.Format, cfg.Output = "json", filepath.Join(dir, "first.log")
	if err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	first := logFile
	if first == nil {
		t.Fatal("file output not tracked")
	}

	cfg.Output = filepath.Join(dir, "second.log")
	if err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Write([]byte("x")); err == nil {
		t.Fatal("previous log file still open")
	}

	second := logFile
	if err := Close(); err != nil {
		t.Fatal(err)
	}
	if logFile != nil {
		t.Fatal("Close kept the file")
	}
	if _, err := second.Write([]byte("x")); err == nil {
		t.Fatal("log file still open after Close")
	}
	if err := Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
