package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
)

const transactionCols = `id, remote_id, amount, type, category, note, ts, photo_uri, loc_full, loc_short, loc_lat, loc_lng, synced`

// PutTransaction inserts a new transaction and returns its local id.
// The category/type binding is enforced here: a mismatch is rejected before
// anything touches disk.
func (s *Store) PutTransaction(ctx context.Context, t domain.Transaction) (int64, error) {
	if err := domain.CheckCategory(t.Category, t.Type); err != nil {
		return 0, fmt.Errorf("store.PutTransaction: %w", err)
	}

	full, short, lat, lng := locationArgs(t.Location)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (remote_id, amount, type, category, note, ts, photo_uri, loc_full, loc_short, loc_lat, loc_lng, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RemoteID, t.Amount.String(), string(t.Type), string(t.Category), t.Note, t.Timestamp, t.PhotoURI,
		full, short, lat, lng, boolInt(t.Synced))
	if err != nil {
		return 0, fmt.Errorf("store.PutTransaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.PutTransaction: last insert id: %w", err)
	}
	s.notify(KindTransactions)
	return id, nil
}

// UpdateTransaction overwrites the record with t's id. Missing id is
// ErrNotFound.
func (s *Store) UpdateTransaction(ctx context.Context, t domain.Transaction) error {
	if err := domain.CheckCategory(t.Category, t.Type); err != nil {
		return fmt.Errorf("store.UpdateTransaction: %w", err)
	}

	full, short, lat, lng := locationArgs(t.Location)
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET remote_id = ?, amount = ?, type = ?, category = ?, note = ?, ts = ?, photo_uri = ?,
		    loc_full = ?, loc_short = ?, loc_lat = ?, loc_lng = ?, synced = ?
		WHERE id = ?`,
		t.RemoteID, t.Amount.String(), string(t.Type), string(t.Category), t.Note, t.Timestamp, t.PhotoURI,
		full, short, lat, lng, boolInt(t.Synced), t.ID)
	if err != nil {
		return fmt.Errorf("store.UpdateTransaction: %w", err)
	}
	if err := affected(res, "UpdateTransaction"); err != nil {
		return err
	}
	s.notify(KindTransactions)
	return nil
}

// DeleteTransaction removes the record by local id. Missing id is ErrNotFound.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store.DeleteTransaction: %w", err)
	}
	if err := affected(res, "DeleteTransaction"); err != nil {
		return err
	}
	s.notify(KindTransactions)
	return nil
}

// GetTransaction fetches one record by local id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return domain.Transaction{}, fmt.Errorf("store.GetTransaction: %w", ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("store.GetTransaction: %w", err)
	}
	return t, nil
}

// GetTransactionByRemoteID fetches one record by its remote document id, or
// ErrNotFound when no local record carries it.
func (s *Store) GetTransactionByRemoteID(ctx context.Context, remoteID string) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE remote_id = ?`, remoteID)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return domain.Transaction{}, fmt.Errorf("store.GetTransactionByRemoteID: %w", ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("store.GetTransactionByRemoteID: %w", err)
	}
	return t, nil
}

// ListTransactions returns every transaction, newest first. The ordering is
// stable (timestamp desc, id desc) so report output is reproducible.
func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionCols+` FROM transactions ORDER BY ts DESC, id DESC`)
}

// UnsyncedTransactions returns records awaiting upload, oldest first.
func (s *Store) UnsyncedTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE synced = 0 ORDER BY id ASC`)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		t           domain.Transaction
		amount      string
		typ, cat    string
		synced      int
		full, short sql.NullString
		lat, lng    sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.RemoteID, &amount, &typ, &cat, &t.Note, &t.Timestamp, &t.PhotoURI,
		&full, &short, &lat, &lng, &synced)
	if err != nil {
		return domain.Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	t.Type = domain.TransactionType(typ)
	t.Category = domain.Category(cat)
	t.Synced = synced != 0
	if full.Valid {
		t.Location = &domain.Location{
			Full:  full.String,
			Short: short.String,
			Lat:   lat.Float64,
			Lng:   lng.Float64,
		}
	}
	return t, nil
}

func locationArgs(loc *domain.Location) (full, short sql.NullString, lat, lng sql.NullFloat64) {
	if loc == nil {
		return
	}
	full = sql.NullString{String: loc.Full, Valid: true}
	short = sql.NullString{String: loc.Short, Valid: true}
	lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
	lng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
	return
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
