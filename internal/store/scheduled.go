package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
)

const scheduledCols = `id, remote_id, amount, type, category, note, ts, photo_uri, loc_full, loc_short, loc_lat, loc_lng, scheduled_date, notification_sent, expiration_notification_sent, synced`

// PutScheduled inserts a new scheduled transaction and returns its local id.
func (s *Store) PutScheduled(ctx context.Context, st domain.ScheduledTransaction) (int64, error) {
	if err := domain.CheckCategory(st.Category, st.Type); err != nil {
		return 0, fmt.Errorf("store.PutScheduled: %w", err)
	}

	full, short, lat, lng := locationArgs(st.Location)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_transactions (remote_id, amount, type, category, note, ts, photo_uri,
			loc_full, loc_short, loc_lat, loc_lng, scheduled_date, notification_sent, expiration_notification_sent, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RemoteID, st.Amount.String(), string(st.Type), string(st.Category), st.Note, st.Timestamp, st.PhotoURI,
		full, short, lat, lng, st.ScheduledDate, boolInt(st.NotificationSent), boolInt(st.ExpirationNotificationSent), boolInt(st.Synced))
	if err != nil {
		return 0, fmt.Errorf("store.PutScheduled: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.PutScheduled: last insert id: %w", err)
	}
	s.notify(KindScheduled)
	return id, nil
}

// UpdateScheduled overwrites the record with st's id. Missing id is ErrNotFound.
func (s *Store) UpdateScheduled(ctx context.Context, st domain.ScheduledTransaction) error {
	if err := domain.CheckCategory(st.Category, st.Type); err != nil {
		return fmt.Errorf("store.UpdateScheduled: %w", err)
	}

	full, short, lat, lng := locationArgs(st.Location)
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_transactions
		SET remote_id = ?, amount = ?, type = ?, category = ?, note = ?, ts = ?, photo_uri = ?,
		    loc_full = ?, loc_short = ?, loc_lat = ?, loc_lng = ?,
		    scheduled_date = ?, notification_sent = ?, expiration_notification_sent = ?, synced = ?
		WHERE id = ?`,
		st.RemoteID, st.Amount.String(), string(st.Type), string(st.Category), st.Note, st.Timestamp, st.PhotoURI,
		full, short, lat, lng, st.ScheduledDate, boolInt(st.NotificationSent), boolInt(st.ExpirationNotificationSent), boolInt(st.Synced), st.ID)
	if err != nil {
		return fmt.Errorf("store.UpdateScheduled: %w", err)
	}
	if err := affected(res, "UpdateScheduled"); err != nil {
		return err
	}
	s.notify(KindScheduled)
	return nil
}

// DeleteScheduled removes the record by local id. Missing id is ErrNotFound.
func (s *Store) DeleteScheduled(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store.DeleteScheduled: %w", err)
	}
	if err := affected(res, "DeleteScheduled"); err != nil {
		return err
	}
	s.notify(KindScheduled)
	return nil
}

// GetScheduled fetches one record by local id.
func (s *Store) GetScheduled(ctx context.Context, id int64) (domain.ScheduledTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledCols+` FROM scheduled_transactions WHERE id = ?`, id)
	st, err := scanScheduled(row)
	if err == sql.ErrNoRows {
		return domain.ScheduledTransaction{}, fmt.Errorf("store.GetScheduled: %w", ErrNotFound)
	}
	if err != nil {
		return domain.ScheduledTransaction{}, fmt.Errorf("store.GetScheduled: %w", err)
	}
	return st, nil
}

// GetScheduledByRemoteID fetches one record by remote document id.
func (s *Store) GetScheduledByRemoteID(ctx context.Context, remoteID string) (domain.ScheduledTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledCols+` FROM scheduled_transactions WHERE remote_id = ?`, remoteID)
	st, err := scanScheduled(row)
	if err == sql.ErrNoRows {
		return domain.ScheduledTransaction{}, fmt.Errorf("store.GetScheduledByRemoteID: %w", ErrNotFound)
	}
	if err != nil {
		return domain.ScheduledTransaction{}, fmt.Errorf("store.GetScheduledByRemoteID: %w", err)
	}
	return st, nil
}

// ListScheduled returns every scheduled transaction ordered by scheduled date.
func (s *Store) ListScheduled(ctx context.Context) ([]domain.ScheduledTransaction, error) {
	return s.queryScheduled(ctx,
		`SELECT `+scheduledCols+` FROM scheduled_transactions ORDER BY scheduled_date ASC, id ASC`)
}

// DuePendingScheduled returns scheduled transactions whose date has passed and
// whose due notification has not fired yet. The notification worker consumes
// this; firing is out of scope here.
func (s *Store) DuePendingScheduled(ctx context.Context, nowMillis int64) ([]domain.ScheduledTransaction, error) {
	return s.queryScheduled(ctx,
		`SELECT `+scheduledCols+` FROM scheduled_transactions WHERE scheduled_date <= ? AND notification_sent = 0 ORDER BY scheduled_date ASC, id ASC`,
		nowMillis)
}

// UnsyncedScheduled returns records awaiting upload, oldest first.
func (s *Store) UnsyncedScheduled(ctx context.Context) ([]domain.ScheduledTransaction, error) {
	return s.queryScheduled(ctx,
		`SELECT `+scheduledCols+` FROM scheduled_transactions WHERE synced = 0 ORDER BY id ASC`)
}

func (s *Store) queryScheduled(ctx context.Context, query string, args ...any) ([]domain.ScheduledTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query scheduled: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledTransaction
	for rows.Next() {
		st, err := scanScheduled(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan scheduled: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanScheduled(row rowScanner) (domain.ScheduledTransaction, error) {
	var (
		st           domain.ScheduledTransaction
		amount       string
		typ, cat     string
		synced       int
		notif, expir int
		full, short  sql.NullString
		lat, lng     sql.NullFloat64
	)
	err := row.Scan(&st.ID, &st.RemoteID, &amount, &typ, &cat, &st.Note, &st.Timestamp, &st.PhotoURI,
		&full, &short, &lat, &lng, &st.ScheduledDate, &notif, &expir, &synced)
	if err != nil {
		return domain.ScheduledTransaction{}, err
	}
	if st.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.ScheduledTransaction{}, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	st.Type = domain.TransactionType(typ)
	st.Category = domain.Category(cat)
	st.NotificationSent = notif != 0
	st.ExpirationNotificationSent = expir != 0
	st.Synced = synced != 0
	if full.Valid {
		st.Location = &domain.Location{
			Full:  full.String,
			Short: short.String,
			Lat:   lat.Float64,
			Lng:   lng.Float64,
		}
	}
	return st, nil
}
