package main

import "testing"

func TestFlags(t *testing.T) {
	for _, name := range []string{"once", "provider"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Fatalf("missing --%s", name)
		}
	}
}
