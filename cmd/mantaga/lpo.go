package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"mantaga/internal"
	"mantaga/internal/brandsync"
	"mantaga/internal/connectors"
	"mantaga/internal/logger"
	"mantaga/internal/pipeline"
	"mantaga/internal/reconcile"
)

var lpoExtractCmd = &cobra.Command{
	Use:   "lpo:extract [file]",
	Short: "Parse an LPO (pdf or text) and print the extraction without storing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := pipeline.SourceFromFilename(args[0])
		if err != nil {
			return err
		}
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ex, err := pipeline.NewIngestService(nil, cfg).Extract(source, content)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"order":    ex.Order,
			"skipped":  ex.Skipped,
			"warnings": ex.Warnings,
		})
	},
}

var lpoIngestCmd = &cobra.Command{
	Use:   "lpo:ingest [file...]",
	Short: "Store LPO documents (pdf, txt, eml) and SKU sheets (xlsx, csv, html)",
	Example: `  mantaga lpo:ingest ./inbox/LPO-4455.pdf
  mantaga lpo:ingest ./inbox/*.eml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("lpo:ingest")
		store, err := openDB()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ingest := pipeline.NewIngestService(store, cfg)
		processor := pipeline.NewProcessingService(store, cfg)
		mailStore := connectors.NewMailStoreService(store, cfg.RawMailDir)

		failed := 0
		for _, path := range args {
			source, err := pipeline.SourceFromFilename(path)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			if source == internal.SourceEmail {
				email, err := mailStore.Store(ctx, internal.FetchedMailMessage{
					Provider:  "file",
					MessageID: filepath.Base(path),
					Raw:       content,
				})
				if err != nil {
					return err
				}
				res, err := processor.ProcessEmail(ctx, email)
				if err != nil {
					failed++
					log.Error().Err(err).Str("file", path).Msg("mail not processed")
					continue
				}
				fmt.Printf("%s: orders=%v duplicates=%v skuRecords=%d\n", path, res.Orders, res.Duplicates, res.SkuRecords)
				continue
			}

			res, err := ingest.IngestDocument(ctx, source, path, content)
			if err != nil {
				if internal.IsDuplicateKey(err) || internal.IsExtraction(err) {
					failed++
					log.Warn().Err(err).Str("file", path).Msg("document not stored")
					continue
				}
				return err
			}
			switch {
			case res.Order != nil:
				fmt.Printf("%s: po=%s lines=%d skipped=%d warnings=%d\n", path, res.Order.PONumber, len(res.Order.Lines), res.Skipped, len(res.Warnings))
			case res.Skus != nil:
				fmt.Printf("%s: inserted=%d updated=%d skipped=%d errors=%d\n", path, res.Skus.Inserted, res.Skus.Updated, res.Skus.Skipped, len(res.Skus.Errors))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents not stored", failed, len(args))
		}
		return nil
	},
}

var lpoShowCmd = &cobra.Command{
	Use:   "lpo:show [poNumber]",
	Short: "Print an order with its reconciliation summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		po, summary, err := reconcile.NewService(store, nil).Order(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"order": po, "summary": summary})
	},
}

var lpoListCmd = &cobra.Command{
	Use:   "lpo:list",
	Short: "List stored orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := openDB()
		if err != nil {
			return err
		}
		orders, err := store.ListPurchaseOrders(cmd.Context(), status, limit)
		if err != nil {
			return err
		}
		for _, po := range orders {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", po.PONumber, po.OrderDate, po.Status, po.Supplier, po.InvoiceNumber)
		}
		return nil
	},
}

var invoiceSaveCmd = &cobra.Command{
	Use:   "invoice:save [poNumber]",
	Short: "Record delivered quantities and invoice details for an order",
	Example: `  mantaga invoice:save LPO-4455 --invoice INV-201 --date 2024-03-20 \
    --deliver 6291000000017=4 --deliver 6291000000031=10 --commission 8 --sync`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		invoiceNumber, _ := flags.GetString("invoice")
		invoiceDate, _ := flags.GetString("date")
		customer, _ := flags.GetString("customer")
		deliveryDate, _ := flags.GetString("delivery-date")
		status, _ := flags.GetString("status")
		deliver, _ := flags.GetStringArray("deliver")
		sync, _ := flags.GetBool("sync")

		req := reconcile.SaveInvoiceRequest{
			PONumber:             args[0],
			InvoiceNumber:        invoiceNumber,
			InvoiceDate:          invoiceDate,
			Customer:             customer,
			DeliveryDate:         deliveryDate,
			Status:               internal.OrderStatus(status),
			Delivered:            map[string]decimal.Decimal{},
			SyncBrandPerformance: sync,
		}
		if flags.Changed("commission") {
			raw, _ := flags.GetString("commission")
			pct, err := decimal.NewFromString(raw)
			if err != nil {
				return internal.NewValidationError("commission", "not a number: "+raw)
			}
			req.CommissionPct = &pct
		}
		for _, d := range deliver {
			key, qty, ok := strings.Cut(d, "=")
			if !ok {
				return internal.NewValidationError("deliver", "expected lineId=qty or barcode=qty, got "+d)
			}
			q, err := decimal.NewFromString(strings.TrimSpace(qty))
			if err != nil {
				return internal.NewValidationError("deliver", "not a number: "+qty)
			}
			req.Delivered[strings.TrimSpace(key)] = q
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		res, err := reconcile.NewService(store, brandsync.NewFromConfig(store, cfg)).SaveInvoice(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := printJSON(res); err != nil {
			return err
		}
		if len(res.LineErrors) > 0 {
			return fmt.Errorf("%d lines were not saved", len(res.LineErrors))
		}
		return nil
	},
}

var brandSyncCmd = &cobra.Command{
	Use:   "brand:sync [poNumber]",
	Short: "Project the invoiced lines of an order into brand performance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		res, err := reconcile.NewService(store, brandsync.NewFromConfig(store, cfg)).SyncBrandPerformance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var exportXLSXCmd = &cobra.Command{
	Use:   "export:xlsx [poNumber]",
	Short: "Write an order and its reconciliation summary to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = filepath.Join(cfg.OutputDir, args[0]+".xlsx")
		}
		store, err := openDB()
		if err != nil {
			return err
		}
		po, summary, err := reconcile.NewService(store, nil).Order(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := pipeline.ExportOrderXLSX(po, summary, out); err != nil {
			return err
		}
		fmt.Printf("exported %s (%d lines) to %s\n", po.PONumber, len(po.Lines), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lpoExtractCmd, lpoIngestCmd, lpoShowCmd, lpoListCmd, invoiceSaveCmd, brandSyncCmd, exportXLSXCmd)

	lpoListCmd.Flags().String("status", "", "pending|partial|delivered|complete")
	lpoListCmd.Flags().Int("limit", 50, "max orders")

	invoiceSaveCmd.Flags().String("invoice", "", "invoice number [REQUIRED]")
	invoiceSaveCmd.Flags().String("date", "", "invoice date, YYYY-MM-DD or DD/MM/YYYY [REQUIRED]")
	invoiceSaveCmd.Flags().String("customer", "", "customer name")
	invoiceSaveCmd.Flags().String("delivery-date", "", "delivery date")
	invoiceSaveCmd.Flags().String("status", "", "order status")
	invoiceSaveCmd.Flags().String("commission", "", "commission percentage")
	invoiceSaveCmd.Flags().StringArray("deliver", nil, "delivered quantity as lineId=qty or barcode=qty (repeatable)")
	invoiceSaveCmd.Flags().Bool("sync", false, "project to brand performance after saving")
	_ = invoiceSaveCmd.MarkFlagRequired("invoice")
	_ = invoiceSaveCmd.MarkFlagRequired("date")

	exportXLSXCmd.Flags().String("out", "", "output xlsx path (default OUTPUT_DIR/<poNumber>.xlsx)")
}
