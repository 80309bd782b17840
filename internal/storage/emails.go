package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mantaga/internal"
)

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func (d *DB) UpsertEmail(ctx context.Context, msg internal.FetchedMailMessage, hash, rawRef string) (internal.EmailRow, error) {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, 'fetched', ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}
	return d.GetEmailByProviderMessageID(ctx, msg.Provider, msg.MessageID)
}

func (d *DB) GetEmailByProviderMessageID(ctx context.Context, provider, messageID string) (internal.EmailRow, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID)
	email, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.EmailRow{}, fmt.Errorf("email provider=%s messageId=%s: %w", provider, messageID, internal.ErrNotFound)
	}
	return email, err
}

func (d *DB) ListEmailsByStatus(ctx context.Context, status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(ctx context.Context, emailID int, status string) error {
	_, err := d.conn.ExecContext(ctx, `UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) LinkEmailOrder(ctx context.Context, emailID int, poNumber string) error {
	_, err := d.conn.ExecContext(ctx, `INSERT INTO email_orders (emailId, poNumber) VALUES (?, ?) ON CONFLICT DO NOTHING`, emailID, poNumber)
	return err
}

func (d *DB) ListEmailOrders(ctx context.Context, emailID int) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT poNumber FROM email_orders WHERE emailId = ? ORDER BY poNumber ASC`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var po string
		if err := rows.Scan(&po); err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func scanEmail(row rowScanner) (internal.EmailRow, error) {
	var e internal.EmailRow
	var subject, sender, receivedAt sql.NullString
	if err := row.Scan(&e.ID, &e.Provider, &e.MessageID, &subject, &sender, &receivedAt, &e.Hash, &e.Status, &e.RawRef); err != nil {
		return internal.EmailRow{}, err
	}
	e.Subject = subject.String
	e.Sender = sender.String
	e.ReceivedAt = receivedAt.String
	return e, nil
}
