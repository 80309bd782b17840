package storage

import (
	"context"

	"mantaga/internal"
)

// HasBrandSync reports whether the (poNumber, invoiceNumber) pair was already projected.
func (d *DB) HasBrandSync(ctx context.Context, poNumber, invoiceNumber string) (bool, error) {
	var exists bool
	err := d.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM brand_syncs WHERE poNumber = ? AND invoiceNumber = ?)`,
		poNumber, invoiceNumber,
	).Scan(&exists)
	return exists, err
}

func (d *DB) RecordBrandSync(ctx context.Context, poNumber, invoiceNumber, target string, lineCount int) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO brand_syncs (poNumber, invoiceNumber, target, lineCount) VALUES (?, ?, ?, ?)
ON CONFLICT(poNumber, invoiceNumber) DO UPDATE SET target = excluded.target, lineCount = excluded.lineCount, syncedAt = CURRENT_TIMESTAMP
`, poNumber, invoiceNumber, target, lineCount)
	return err
}

// UpsertBrandPerformance writes projection rows. Replays overwrite the same keys.
func (d *DB) UpsertBrandPerformance(ctx context.Context, rows []internal.BrandPerformanceRow) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO brand_performance (poNumber, invoiceNumber, barcode, invoiceDate, productName, brand, client, quantity, amountExclVat, amountInclVat)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(poNumber, invoiceNumber, barcode) DO UPDATE SET
  invoiceDate = excluded.invoiceDate,
  productName = excluded.productName,
  brand = excluded.brand,
  client = excluded.client,
  quantity = excluded.quantity,
  amountExclVat = excluded.amountExclVat,
  amountInclVat = excluded.amountInclVat,
  updatedAt = CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.PONumber, r.InvoiceNumber, r.Barcode, r.InvoiceDate, r.ProductName, r.Brand, r.Client,
			r.Quantity, r.AmountExclVat, r.AmountInclVat); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListBrandPerformance(ctx context.Context, poNumber string) ([]internal.BrandPerformanceRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT poNumber, invoiceNumber, barcode, invoiceDate, productName, brand, client, quantity, amountExclVat, amountInclVat
FROM brand_performance WHERE poNumber = ? ORDER BY invoiceNumber ASC, barcode ASC
`, poNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BrandPerformanceRow
	for rows.Next() {
		var r internal.BrandPerformanceRow
		if err := rows.Scan(&r.PONumber, &r.InvoiceNumber, &r.Barcode, &r.InvoiceDate, &r.ProductName, &r.Brand, &r.Client,
			&r.Quantity, &r.AmountExclVat, &r.AmountInclVat); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
