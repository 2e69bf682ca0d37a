package invoices

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres. Vendor and invoice subtrees are stored as jsonb.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `file_id, file_name, vendor, invoice, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var vendorRaw, invoiceRaw []byte
	var updatedAt sql.NullTime
	if err := row.Scan(&rec.FileID, &rec.FileName, &vendorRaw, &invoiceRaw, &rec.CreatedAt, &updatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(vendorRaw, &rec.Vendor); err != nil {
		return Record{}, fmt.Errorf("decode vendor file_id=%s: %w", rec.FileID, err)
	}
	if err := json.Unmarshal(invoiceRaw, &rec.Invoice); err != nil {
		return Record{}, fmt.Errorf("decode invoice file_id=%s: %w", rec.FileID, err)
	}
	if rec.Invoice.LineItems == nil {
		rec.Invoice.LineItems = []LineItem{}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		rec.UpdatedAt = &t
	}
	return rec, nil
}

// GetByFileID fetches a record by file id.
func (r *PGRepo) GetByFileID(ctx context.Context, fileID string) (Record, error) {
	query := `SELECT ` + selectColumns + ` FROM invoices WHERE file_id = $1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO invoices (
    file_id,
    file_name,
    vendor,
    invoice,
    created_at,
    updated_at
) VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6)`

	vendorJSON, err := json.Marshal(rec.Vendor)
	if err != nil {
		return err
	}
	if rec.Invoice.LineItems == nil {
		rec.Invoice.LineItems = []LineItem{}
	}
	invoiceJSON, err := json.Marshal(rec.Invoice)
	if err != nil {
		return err
	}
	var updatedAt sql.NullTime
	if rec.UpdatedAt != nil {
		updatedAt = sql.NullTime{Time: *rec.UpdatedAt, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		rec.FileID,
		rec.FileName,
		string(vendorJSON),
		string(invoiceJSON),
		rec.CreatedAt,
		updatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update replaces the present subtrees in a single statement and returns the new row.
func (r *PGRepo) Update(ctx context.Context, fileID string, p Patch) (Record, error) {
	p = p.normalized()
	query := `
UPDATE invoices
SET file_name = COALESCE($2::text, file_name),
    vendor = COALESCE($3::jsonb, vendor),
    invoice = COALESCE($4::jsonb, invoice),
    updated_at = $5
WHERE file_id = $1
RETURNING ` + selectColumns

	vendorArg, err := jsonArg(p.Vendor)
	if err != nil {
		return Record{}, err
	}
	invoiceArg, err := jsonArg(p.Invoice)
	if err != nil {
		return Record{}, err
	}
	var fileNameArg any
	if p.FileName != nil {
		fileNameArg = *p.FileName
	}

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, fileID, fileNameArg, vendorArg, invoiceArg, p.UpdatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns records whose vendor name contains f.VendorName, newest first.
func (r *PGRepo) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM invoices`
	args := []any{}
	if needle := strings.TrimSpace(f.VendorName); needle != "" {
		query += ` WHERE position(lower($1) in lower(vendor->>'name')) > 0`
		args = append(args, needle)
	}
	query += ` ORDER BY created_at DESC, file_id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record.
func (r *PGRepo) Delete(ctx context.Context, fileID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM invoices WHERE file_id = $1`, fileID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func jsonArg[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

var _ Repo = (*PGRepo)(nil)
