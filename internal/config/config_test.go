package config

import (
	"testing"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("LPO_SUPPLIERS", " Talabat , ,Noon ")
	t.Setenv("BRAND_SYNC_RATE_LIMIT_RPS", "not-a-number")
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("MAIL_LISTENER_AUTO_EXPORT", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Fatalf("db path=%q", cfg.DBPath)
	}
	if len(cfg.LPOSuppliers) != 2 || cfg.LPOSuppliers[0] != "Talabat" || cfg.LPOSuppliers[1] != "Noon" {
		t.Fatalf("suppliers=%q", cfg.LPOSuppliers)
	}
	if cfg.BrandSyncRateLimitRPS != 5 {
		t.Fatalf("invalid int should fall back, got %d", cfg.BrandSyncRateLimitRPS)
	}
	if cfg.IMAPSecure {
		t.Fatal("IMAP_SECURE=off not honoured")
	}
	if !cfg.MailListenerAutoExport {
		t.Fatal("unknown bool should fall back to the default")
	}
}

func TestRequireAndLoggerConfig(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogFormat: "json"}
	if err := cfg.Require("IMAP_HOST", "  "); err == nil {
		t.Fatal("expected missing env var error")
	}
	if err := cfg.Require("IMAP_HOST", "mail.example.com"); err != nil {
		t.Fatal(err)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != "debug" || lc.Format != "json" || lc.Output != "stderr" || lc.TimeFormat == "" {
		t.Fatalf("logger config=%+v", lc)
	}
}
