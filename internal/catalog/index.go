package catalog

import (
	"sort"

	"mantaga/internal"
)

// Index is an in-memory view of the catalog keyed by barcode and by client.
type Index struct {
	ByBarcode map[string]internal.SkuRecord
	ByClient  map[string][]internal.SkuRecord
}

func BuildIndex(skus []internal.SkuRecord) *Index {
	idx := &Index{
		ByBarcode: map[string]internal.SkuRecord{},
		ByClient:  map[string][]internal.SkuRecord{},
	}

	for _, s := range skus {
		if s.Barcode == "" {
			continue
		}
		idx.ByBarcode[s.Barcode] = s
		idx.ByClient[s.Client] = append(idx.ByClient[s.Client], s)
	}

	return idx
}

func (idx *Index) Lookup(barcode string) (internal.SkuRecord, bool) {
	rec, ok := idx.ByBarcode[barcode]
	return rec, ok
}

// Clients returns client names in sorted order; records without a client sort first under "".
func (idx *Index) Clients() []string {
	out := make([]string, 0, len(idx.ByClient))
	for c := range idx.ByClient {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
