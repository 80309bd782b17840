package catalog

import (
	"testing"

	"mantaga/internal"
)

func completeSku() internal.SkuRecord {
	return internal.SkuRecord{
		Barcode: "6291000000001", Client: "Acme", Brand: "Crunchy", SkuName: "Chips 50g",
		CasePack: "24", ShelfLife: "180 days", TalabatSKU: "TB-1",
		PackshotURL: "https://cdn.example/1.png", NutritionInfo: "per 100g", IngredientsInfo: "potato, salt",
	}
}

func TestClassify(t *testing.T) {
	green := completeSku()

	amber := completeSku()
	amber.PackshotURL = ""

	red := completeSku()
	red.TalabatSKU = ""
	red.NutritionInfo = ""

	cases := []struct {
		name    string
		rec     internal.SkuRecord
		level   Level
		missing int
	}{
		{"complete", green, LevelGreen, 0},
		{"no packshot", amber, LevelAmber, 1},
		{"no talabat sku", red, LevelRed, 2},
	}
	for _, tc := range cases {
		got := Classify(tc.rec)
		if got.Level != tc.level || len(got.Missing) != tc.missing {
			t.Fatalf("%s: level=%s missing=%v", tc.name, got.Level, got.Missing)
		}
	}
}

func TestBuildReportCountsPerClient(t *testing.T) {
	a := completeSku()
	b := completeSku()
	b.Barcode = "6291000000002"
	b.Brand = ""
	c := completeSku()
	c.Barcode = "6291000000003"
	c.Client = "Other"

	rep := BuildReport(BuildIndex([]internal.SkuRecord{a, b, c}))
	if rep.Total != 3 || rep.Counts.Green != 2 || rep.Counts.Red != 1 {
		t.Fatalf("report=%+v", rep.Counts)
	}
	if acme := rep.ByClient["Acme"]; acme.Red != 1 || acme.Green != 1 {
		t.Fatalf("acme=%+v", acme)
	}
}
