package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY between our own statements.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS purchase_orders (
  poNumber TEXT PRIMARY KEY,
  orderDate TEXT NOT NULL DEFAULT '',
  deliveryDate TEXT NOT NULL DEFAULT '',
  supplier TEXT NOT NULL DEFAULT '',
  deliveryLocation TEXT NOT NULL DEFAULT '',
  customer TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  commissionPct TEXT NOT NULL DEFAULT '0',
  commissionAmount TEXT NOT NULL DEFAULT '0',
  invoiceNumber TEXT NOT NULL DEFAULT '',
  invoiceDate TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_purchase_orders_status ON purchase_orders(status);

CREATE TABLE IF NOT EXISTS line_items (
  id TEXT PRIMARY KEY,
  poNumber TEXT NOT NULL,
  lineNo INTEGER NOT NULL,
  barcode TEXT NOT NULL,
  productName TEXT NOT NULL DEFAULT '',
  quantityOrdered TEXT NOT NULL,
  unitCost TEXT NOT NULL,
  vatPct TEXT NOT NULL,
  amountExclVat TEXT NOT NULL,
  vatAmount TEXT NOT NULL,
  amountInclVat TEXT NOT NULL,
  quantityDelivered TEXT NOT NULL DEFAULT '0',
  amountInvoiced TEXT NOT NULL DEFAULT '0',
  vatAmountInvoiced TEXT NOT NULL DEFAULT '0',
  totalInclVatInvoiced TEXT NOT NULL DEFAULT '0',
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(poNumber) REFERENCES purchase_orders(poNumber)
);
CREATE INDEX IF NOT EXISTS idx_line_items_po ON line_items(poNumber, lineNo);

CREATE TABLE IF NOT EXISTS skus (
  barcode TEXT PRIMARY KEY,
  client TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  skuName TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  subcategory TEXT NOT NULL DEFAULT '',
  casePack TEXT NOT NULL DEFAULT '',
  shelfLife TEXT NOT NULL DEFAULT '',
  nutritionInfo TEXT NOT NULL DEFAULT '',
  ingredientsInfo TEXT NOT NULL DEFAULT '',
  packshotUrl TEXT NOT NULL DEFAULT '',
  amazonAsin TEXT NOT NULL DEFAULT '',
  talabatSku TEXT NOT NULL DEFAULT '',
  noonZsku TEXT NOT NULL DEFAULT '',
  careemCode TEXT NOT NULL DEFAULT '',
  clientSellinPrice TEXT,
  mantagaCommissionPct TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_skus_client ON skus(client);

CREATE TABLE IF NOT EXISTS brand_syncs (
  poNumber TEXT NOT NULL,
  invoiceNumber TEXT NOT NULL,
  target TEXT NOT NULL,
  lineCount INTEGER NOT NULL,
  syncedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(poNumber, invoiceNumber)
);

CREATE TABLE IF NOT EXISTS brand_performance (
  poNumber TEXT NOT NULL,
  invoiceNumber TEXT NOT NULL,
  barcode TEXT NOT NULL,
  invoiceDate TEXT NOT NULL DEFAULT '',
  productName TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  client TEXT NOT NULL DEFAULT '',
  quantity TEXT NOT NULL,
  amountExclVat TEXT NOT NULL,
  amountInclVat TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(poNumber, invoiceNumber, barcode)
);
CREATE INDEX IF NOT EXISTS idx_brand_performance_brand ON brand_performance(brand);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS email_orders (
  emailId INTEGER NOT NULL,
  poNumber TEXT NOT NULL,
  PRIMARY KEY(emailId, poNumber),
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  kind TEXT NOT NULL,
  ref TEXT NOT NULL DEFAULT '',
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(ctx context.Context, traceID, kind, ref string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.ExecContext(ctx, `INSERT INTO runs (traceId, kind, ref, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`,
		traceID, kind, ref, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
