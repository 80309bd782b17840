package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"mantaga/internal"
	"mantaga/internal/catalog"
	"mantaga/internal/pipeline"
)

var skuImportCmd = &cobra.Command{
	Use:   "sku:import [file]",
	Short: "Merge a SKU sheet (xlsx, csv or html) into the catalog without overwriting filled fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := pipeline.SourceFromFilename(args[0])
		if err != nil {
			return err
		}
		if source != internal.SourceXLSX && source != internal.SourceCSV && source != internal.SourceHTML {
			return fmt.Errorf("%s is not a catalog sheet", args[0])
		}
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		store, err := openDB()
		if err != nil {
			return err
		}
		res, err := pipeline.NewIngestService(store, cfg).IngestDocument(cmd.Context(), source, args[0], content)
		if err != nil {
			return err
		}
		return printJSON(res.Skus)
	},
}

var skuAddCmd = &cobra.Command{
	Use:   "sku:add",
	Short: "Add one SKU to the catalog",
	Example: `  mantaga sku:add --barcode 6291000000017 --name "Crunchy Chips 150g" --client Acme --brand Crunchy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		get := func(name string) string {
			v, _ := flags.GetString(name)
			return strings.TrimSpace(v)
		}
		rec := internal.SkuRecord{
			Barcode:     get("barcode"),
			SkuName:     get("name"),
			Client:      get("client"),
			Brand:       get("brand"),
			Category:    get("category"),
			Subcategory: get("subcategory"),
			CasePack:    get("case-pack"),
			ShelfLife:   get("shelf-life"),
			TalabatSKU:  get("talabat-sku"),
			NoonZSKU:    get("noon-zsku"),
			AmazonASIN:  get("amazon-asin"),
			CareemCode:  get("careem-code"),
		}
		if v := get("commission"); v != "" {
			pct, err := decimal.NewFromString(v)
			if err != nil {
				return internal.NewValidationError("commission", "not a number: "+v)
			}
			rec.MantagaCommissionPct = decimal.NewNullDecimal(pct)
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		saved, err := catalog.NewService(store).AddSku(cmd.Context(), rec)
		if err != nil {
			return err
		}
		return printJSON(saved)
	},
}

var skuReportCmd = &cobra.Command{
	Use:   "sku:report",
	Short: "Classify catalog completeness (red, amber, green) per client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		store, err := openDB()
		if err != nil {
			return err
		}
		rep, err := catalog.NewService(store).Report(cmd.Context())
		if err != nil {
			return err
		}
		if out != "" {
			if err := pipeline.ExportSkuReportXLSX(rep, out); err != nil {
				return err
			}
			fmt.Printf("report of %d skus written to %s\n", rep.Total, out)
			return nil
		}
		fmt.Printf("total=%d red=%d amber=%d green=%d\n", rep.Total, rep.Counts.Red, rep.Counts.Amber, rep.Counts.Green)
		clients := make([]string, 0, len(rep.ByClient))
		for client := range rep.ByClient {
			clients = append(clients, client)
		}
		sort.Strings(clients)
		for _, client := range clients {
			c := rep.ByClient[client]
			name := client
			if name == "" {
				name = "(no client)"
			}
			fmt.Printf("  %-30s red=%d amber=%d green=%d\n", name, c.Red, c.Amber, c.Green)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(skuImportCmd, skuAddCmd, skuReportCmd)

	for _, f := range []string{"barcode", "name", "client", "brand", "category", "subcategory", "case-pack",
		"shelf-life", "talabat-sku", "noon-zsku", "amazon-asin", "careem-code", "commission"} {
		skuAddCmd.Flags().String(f, "", strings.ReplaceAll(f, "-", " "))
	}
	_ = skuAddCmd.MarkFlagRequired("barcode")

	skuReportCmd.Flags().String("out", "", "write the report to an xlsx workbook instead of stdout")
}
