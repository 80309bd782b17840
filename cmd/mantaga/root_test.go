package main

import "testing"

func TestCommandTree(t *testing.T) {
	for _, name := range []string{
		"lpo:extract", "lpo:ingest", "lpo:show", "lpo:list", "invoice:save", "brand:sync", "export:xlsx",
		"sku:import", "sku:add", "sku:report", "mail:fetch", "mail:process", "mail:listen", "serve",
	} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd || cmd.Name() != name {
			t.Fatalf("%s: cmd=%v err=%v", name, cmd, err)
		}
		if cmd.RunE == nil {
			t.Fatalf("%s has no RunE", name)
		}
	}
}
