package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mantaga/internal"
)

const skuColumns = `barcode, client, brand, skuName, category, subcategory, casePack, shelfLife,
       nutritionInfo, ingredientsInfo, packshotUrl, amazonAsin, talabatSku, noonZsku, careemCode,
       clientSellinPrice, mantagaCommissionPct, updatedAt`

func (d *DB) GetSku(ctx context.Context, barcode string) (internal.SkuRecord, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+skuColumns+` FROM skus WHERE barcode = ?`, barcode)
	rec, err := scanSku(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.SkuRecord{}, fmt.Errorf("sku %s: %w", barcode, internal.ErrNotFound)
	}
	return rec, err
}

// InsertSku adds a catalog record. An existing barcode yields a DuplicateKeyError.
func (d *DB) InsertSku(ctx context.Context, rec internal.SkuRecord) error {
	res, err := d.conn.ExecContext(ctx, `
INSERT INTO skus (`+skuColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(barcode) DO NOTHING
`, skuArgs(rec)...)
	if err != nil {
		return fmt.Errorf("insert sku %s: %w", rec.Barcode, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internal.NewDuplicateKeyError("sku", rec.Barcode)
	}
	return nil
}

// UpdateSku overwrites every attribute of the record keyed by its barcode.
func (d *DB) UpdateSku(ctx context.Context, rec internal.SkuRecord) error {
	args := append(skuArgs(rec)[1:], rec.Barcode)
	res, err := d.conn.ExecContext(ctx, `
UPDATE skus SET
  client = ?, brand = ?, skuName = ?, category = ?, subcategory = ?, casePack = ?, shelfLife = ?,
  nutritionInfo = ?, ingredientsInfo = ?, packshotUrl = ?, amazonAsin = ?, talabatSku = ?, noonZsku = ?, careemCode = ?,
  clientSellinPrice = ?, mantagaCommissionPct = ?, updatedAt = CURRENT_TIMESTAMP
WHERE barcode = ?
`, args...)
	if err != nil {
		return fmt.Errorf("update sku %s: %w", rec.Barcode, err)
	}
	return expectOneRow(res, "sku "+rec.Barcode)
}

// SetClientCommission writes pct onto every record of the client and returns how many rows changed value.
func (d *DB) SetClientCommission(ctx context.Context, client string, pct decimal.Decimal) (int, error) {
	res, err := d.conn.ExecContext(ctx, `
UPDATE skus SET mantagaCommissionPct = ?, updatedAt = CURRENT_TIMESTAMP
WHERE client = ? AND (mantagaCommissionPct IS NULL OR mantagaCommissionPct <> ?)
`, pct, client, pct)
	if err != nil {
		return 0, fmt.Errorf("set commission for client %s: %w", client, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (d *DB) ListSkus(ctx context.Context) ([]internal.SkuRecord, error) {
	return d.querySkus(ctx, `SELECT `+skuColumns+` FROM skus ORDER BY client ASC, barcode ASC`)
}

func (d *DB) ListSkusByClient(ctx context.Context, client string) ([]internal.SkuRecord, error) {
	return d.querySkus(ctx, `SELECT `+skuColumns+` FROM skus WHERE client = ? ORDER BY barcode ASC`, client)
}

func (d *DB) querySkus(ctx context.Context, query string, args ...any) ([]internal.SkuRecord, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SkuRecord
	for rows.Next() {
		rec, err := scanSku(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func skuArgs(rec internal.SkuRecord) []any {
	return []any{
		rec.Barcode, rec.Client, rec.Brand, rec.SkuName, rec.Category, rec.Subcategory, rec.CasePack, rec.ShelfLife,
		rec.NutritionInfo, rec.IngredientsInfo, rec.PackshotURL, rec.AmazonASIN, rec.TalabatSKU, rec.NoonZSKU, rec.CareemCode,
		rec.ClientSellinPrice, rec.MantagaCommissionPct,
	}
}

func scanSku(row rowScanner) (internal.SkuRecord, error) {
	var rec internal.SkuRecord
	err := row.Scan(
		&rec.Barcode, &rec.Client, &rec.Brand, &rec.SkuName, &rec.Category, &rec.Subcategory, &rec.CasePack, &rec.ShelfLife,
		&rec.NutritionInfo, &rec.IngredientsInfo, &rec.PackshotURL, &rec.AmazonASIN, &rec.TalabatSKU, &rec.NoonZSKU, &rec.CareemCode,
		&rec.ClientSellinPrice, &rec.MantagaCommissionPct, &rec.UpdatedAt,
	)
	return rec, err
}
