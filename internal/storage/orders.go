package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"mantaga/internal"
)

const orderColumns = `poNumber, orderDate, deliveryDate, supplier, deliveryLocation, customer, status,
       commissionPct, commissionAmount, invoiceNumber, invoiceDate, source, createdAt, updatedAt`

const lineColumns = `id, poNumber, lineNo, barcode, productName, quantityOrdered, unitCost, vatPct,
       amountExclVat, vatAmount, amountInclVat, quantityDelivered, amountInvoiced, vatAmountInvoiced, totalInclVatInvoiced`

type rowScanner interface {
	Scan(dest ...any) error
}

// InsertPurchaseOrder stores a newly extracted order with its lines. Line items without an ID get one.
// An existing PO number yields a DuplicateKeyError and leaves the store untouched.
func (d *DB) InsertPurchaseOrder(ctx context.Context, po internal.PurchaseOrder) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM purchase_orders WHERE poNumber = ?)`, po.PONumber).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return internal.NewDuplicateKeyError("purchase order", po.PONumber)
	}

	status := po.Status
	if status == "" {
		status = internal.StatusPending
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO purchase_orders (poNumber, orderDate, deliveryDate, supplier, deliveryLocation, customer, status,
  commissionPct, commissionAmount, invoiceNumber, invoiceDate, source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, po.PONumber, po.OrderDate, po.DeliveryDate, po.Supplier, po.DeliveryLocation, po.Customer, string(status),
		po.CommissionPct, po.CommissionAmount, po.InvoiceNumber, po.InvoiceDate, string(po.Source)); err != nil {
		return fmt.Errorf("insert purchase order %s: %w", po.PONumber, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO line_items (`+lineColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range po.Lines {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		lineNo := l.LineNo
		if lineNo == 0 {
			lineNo = i + 1
		}
		if _, err := stmt.ExecContext(ctx,
			l.ID, po.PONumber, lineNo, l.Barcode, l.ProductName, l.QuantityOrdered, l.UnitCost, l.VatPct,
			l.AmountExclVat, l.VatAmount, l.AmountInclVat, l.QuantityDelivered, l.AmountInvoiced, l.VatAmountInvoiced, l.TotalInclVatInvoiced,
		); err != nil {
			return fmt.Errorf("insert line %d of %s: %w", lineNo, po.PONumber, err)
		}
	}

	return tx.Commit()
}

// GetPurchaseOrder loads the header and all line items of an order.
func (d *DB) GetPurchaseOrder(ctx context.Context, poNumber string) (internal.PurchaseOrder, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE poNumber = ?`, poNumber)
	po, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.PurchaseOrder{}, fmt.Errorf("purchase order %s: %w", poNumber, internal.ErrNotFound)
	}
	if err != nil {
		return internal.PurchaseOrder{}, err
	}

	lines, err := d.ListLineItems(ctx, poNumber)
	if err != nil {
		return internal.PurchaseOrder{}, err
	}
	po.Lines = lines
	return po, nil
}

// ListPurchaseOrders returns headers with lines, newest first. An empty status returns all orders.
func (d *DB) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]internal.PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + orderColumns + ` FROM purchase_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY createdAt DESC, poNumber ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []internal.PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, po)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Lines are loaded after the cursor is closed: the pool holds a single connection.
	for i := range out {
		lines, err := d.ListLineItems(ctx, out[i].PONumber)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (d *DB) ListLineItems(ctx context.Context, poNumber string) ([]internal.LineItem, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+lineColumns+` FROM line_items WHERE poNumber = ? ORDER BY lineNo ASC`, poNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.LineItem{}
	for rows.Next() {
		var l internal.LineItem
		if err := rows.Scan(
			&l.ID, &l.PONumber, &l.LineNo, &l.Barcode, &l.ProductName, &l.QuantityOrdered, &l.UnitCost, &l.VatPct,
			&l.AmountExclVat, &l.VatAmount, &l.AmountInclVat, &l.QuantityDelivered, &l.AmountInvoiced, &l.VatAmountInvoiced, &l.TotalInclVatInvoiced,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// PatchPurchaseOrderHeader overwrites the reconciliation header fields of an order.
func (d *DB) PatchPurchaseOrderHeader(ctx context.Context, po internal.PurchaseOrder) error {
	res, err := d.conn.ExecContext(ctx, `
UPDATE purchase_orders SET
  customer = ?, deliveryDate = ?, status = ?, commissionPct = ?, commissionAmount = ?,
  invoiceNumber = ?, invoiceDate = ?, updatedAt = CURRENT_TIMESTAMP
WHERE poNumber = ?
`, po.Customer, po.DeliveryDate, string(po.Status), po.CommissionPct, po.CommissionAmount, po.InvoiceNumber, po.InvoiceDate, po.PONumber)
	if err != nil {
		return err
	}
	return expectOneRow(res, "purchase order "+po.PONumber)
}

// PatchLineItem overwrites the delivery and invoice fields of one line, keyed by line identity.
func (d *DB) PatchLineItem(ctx context.Context, item internal.LineItem) error {
	res, err := d.conn.ExecContext(ctx, `
UPDATE line_items SET
  quantityDelivered = ?, amountInvoiced = ?, vatAmountInvoiced = ?, totalInclVatInvoiced = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, item.QuantityDelivered, item.AmountInvoiced, item.VatAmountInvoiced, item.TotalInclVatInvoiced, item.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "line item "+item.ID)
}

func scanOrder(row rowScanner) (internal.PurchaseOrder, error) {
	var po internal.PurchaseOrder
	var status, source string
	if err := row.Scan(
		&po.PONumber, &po.OrderDate, &po.DeliveryDate, &po.Supplier, &po.DeliveryLocation, &po.Customer, &status,
		&po.CommissionPct, &po.CommissionAmount, &po.InvoiceNumber, &po.InvoiceDate, &source, &po.CreatedAt, &po.UpdatedAt,
	); err != nil {
		return internal.PurchaseOrder{}, err
	}
	po.Status = internal.OrderStatus(status)
	po.Source = internal.DocumentSource(source)
	po.Lines = []internal.LineItem{}
	return po, nil
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, internal.ErrNotFound)
	}
	return nil
}
