package util

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain decimal", input: "120.50", want: "120.5"},
		{name: "thousand comma", input: "1,234.50", want: "1234.5"},
		{name: "thousand dot decimal comma", input: "1.234,50", want: "1234.5"},
		{name: "decimal comma", input: "24,10", want: "24.1"},
		{name: "currency prefix", input: "AED 99", want: "99"},
		{name: "percent", input: "5%", want: "5"},
		{name: "negative parens", input: "(12.00)", want: "-12"},
		{name: "space thousands", input: "1 000", want: "1000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAmount(tc.input)
			if !ok {
				t.Fatalf("not parsed: %q", tc.input)
			}
			if got.String() != tc.want {
				t.Fatalf("got %s want %s", got.String(), tc.want)
			}
		})
	}
}

func TestParseAmountRejectsText(t *testing.T) {
	for _, input := range []string{"", "n/a", "abc12"} {
		if _, ok := ParseAmount(input); ok {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}

func TestParseDMY(t *testing.T) {
	if got := ParseDMY("05/03/2024"); got != "2024-03-05" {
		t.Fatalf("got %q", got)
	}
	if got := ParseDMY("5-3-2024"); got != "2024-03-05" {
		t.Fatalf("got %q", got)
	}
	if got := ParseDMY("31/02/2024"); got != "" {
		t.Fatalf("expected invalid date to be empty, got %q", got)
	}
}

func TestNormalizeKeyAndBarcode(t *testing.T) {
	if got := NormalizeKey(" SKU_Name "); got != "sku name" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeKey("Talabat-SKU"); got != "talabat sku" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeBarcode("6291234567890.0"); got != "6291234567890" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeBarcode("6.29123E+12"); got != "" {
		t.Fatalf("got %q", got)
	}
}
