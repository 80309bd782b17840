package catalog

import (
	"context"
	"strings"

	"mantaga/internal"
)

type Level string

const (
	LevelRed   Level = "red"
	LevelAmber Level = "amber"
	LevelGreen Level = "green"
)

type Classification struct {
	Barcode string   `json:"barcode"`
	SkuName string   `json:"skuName,omitempty"`
	Client  string   `json:"client,omitempty"`
	Level   Level    `json:"level"`
	Missing []string `json:"missing,omitempty"`
}

type fieldCheck struct {
	name  string
	value func(internal.SkuRecord) string
}

var requiredFields = []fieldCheck{
	{"client", func(r internal.SkuRecord) string { return r.Client }},
	{"brand", func(r internal.SkuRecord) string { return r.Brand }},
	{"barcode", func(r internal.SkuRecord) string { return r.Barcode }},
	{"skuName", func(r internal.SkuRecord) string { return r.SkuName }},
	{"casePack", func(r internal.SkuRecord) string { return r.CasePack }},
	{"shelfLife", func(r internal.SkuRecord) string { return r.ShelfLife }},
	{"talabatSku", func(r internal.SkuRecord) string { return r.TalabatSKU }},
}

var contentFields = []fieldCheck{
	{"packshotUrl", func(r internal.SkuRecord) string { return r.PackshotURL }},
	{"nutritionInfo", func(r internal.SkuRecord) string { return r.NutritionInfo }},
	{"ingredientsInfo", func(r internal.SkuRecord) string { return r.IngredientsInfo }},
}

// Classify derives the completeness level of a record. Missing lists every empty field that
// drove the decision, required fields first.
func Classify(rec internal.SkuRecord) Classification {
	c := Classification{Barcode: rec.Barcode, SkuName: rec.SkuName, Client: rec.Client, Level: LevelGreen}

	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(rec)) == "" {
			c.Missing = append(c.Missing, f.name)
		}
	}
	if len(c.Missing) > 0 {
		c.Level = LevelRed
	}

	contentGaps := 0
	for _, f := range contentFields {
		if strings.TrimSpace(f.value(rec)) == "" {
			c.Missing = append(c.Missing, f.name)
			contentGaps++
		}
	}
	if c.Level == LevelGreen && contentGaps > 0 {
		c.Level = LevelAmber
	}
	return c
}

type LevelCounts struct {
	Red   int `json:"red"`
	Amber int `json:"amber"`
	Green int `json:"green"`
}

func (lc *LevelCounts) add(l Level) {
	switch l {
	case LevelRed:
		lc.Red++
	case LevelAmber:
		lc.Amber++
	default:
		lc.Green++
	}
}

type Report struct {
	Total    int                    `json:"total"`
	Counts   LevelCounts            `json:"counts"`
	ByClient map[string]LevelCounts `json:"byClient"`
	Records  []Classification       `json:"records"`
}

// Report classifies the whole catalog.
func (s *Service) Report(ctx context.Context) (Report, error) {
	skus, err := s.store.ListSkus(ctx)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(BuildIndex(skus)), nil
}

func BuildReport(idx *Index) Report {
	rep := Report{ByClient: map[string]LevelCounts{}, Records: []Classification{}}
	for _, client := range idx.Clients() {
		counts := LevelCounts{}
		for _, rec := range idx.ByClient[client] {
			c := Classify(rec)
			counts.add(c.Level)
			rep.Counts.add(c.Level)
			rep.Records = append(rep.Records, c)
			rep.Total++
		}
		rep.ByClient[client] = counts
	}
	return rep
}
