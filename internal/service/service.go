// Package service is the local-origin write path. Every mutation lands in
// the local store first with the sync flag cleared, then nudges the sync
// engine; the engine owns everything after that.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/report"
	"github.com/dvloznov/spendwise/internal/store"
)

type Finance struct {
	store  *store.Store
	engine SyncEngine
	photos PhotoUploader
	log    zerolog.Logger
	now    func() time.Time
}

// NewFinance wires the service. photos may be nil when no bucket is
// configured; photo uploads then fail with a clear error.
func NewFinance(st *store.Store, engine SyncEngine, photos PhotoUploader, log zerolog.Logger) *Finance {
	return &Finance{
		store:  st,
		engine: engine,
		photos: photos,
		log:    log.With().Str("component", "service").Logger(),
		now:    time.Now,
	}
}

// AddTransaction stores a new transaction and schedules its upload. The
// category's bound type is validated by the store; mismatches are rejected
// before anything is written.
func (f *Finance) AddTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	t.ID = 0
	t.RemoteID = ""
	t.Synced = false
	if t.Timestamp == 0 {
		t.Timestamp = f.now().UnixMilli()
	}
	id, err := f.store.PutTransaction(ctx, t)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransaction: %w", err)
	}
	t.ID = id
	f.engine.Notify()
	return t, nil
}

// AddTransactionWithPhoto uploads the photo first, then stores the
// transaction carrying the returned URI.
func (f *Finance) AddTransactionWithPhoto(ctx context.Context, t domain.Transaction, photoPath string) (domain.Transaction, error) {
	if f.photos == nil {
		return domain.Transaction{}, fmt.Errorf("AddTransactionWithPhoto: no photo bucket configured")
	}
	uri, err := f.photos.UploadPhoto(ctx, photoPath)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("AddTransactionWithPhoto: %w", err)
	}
	t.PhotoURI = uri
	return f.AddTransaction(ctx, t)
}

// UpdateTransaction applies a local edit. The sync flag is forced false so
// the new values get uploaded, whatever state the record was in.
func (f *Finance) UpdateTransaction(ctx context.Context, t domain.Transaction) error {
	cur, err := f.store.GetTransaction(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	t.RemoteID = cur.RemoteID
	t.Synced = false
	if err := f.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	f.engine.Notify()
	return nil
}

// DeleteTransaction removes the record locally and, when it was uploaded,
// schedules a best-effort remote delete.
func (f *Finance) DeleteTransaction(ctx context.Context, id int64) error {
	cur, err := f.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if err := f.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if cur.RemoteID != "" {
		f.engine.EnqueueDelete(remote.CollectionTransactions, cur.RemoteID)
	}
	return nil
}

// History returns transactions newest first.
func (f *Finance) History(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := f.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return txs, nil
}

// Report builds the financial report from one consistent store snapshot.
func (f *Finance) Report(ctx context.Context) (string, error) {
	txs, budgets, err := f.store.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("Report: %w", err)
	}
	return report.Build(report.Snapshot{Transactions: txs, Budgets: budgets, Now: f.now()}), nil
}

// AddScheduled stores a future-dated transaction with both one-shot
// notification flags cleared.
func (f *Finance) AddScheduled(ctx context.Context, st domain.ScheduledTransaction) (domain.ScheduledTransaction, error) {
	st.ID = 0
	st.RemoteID = ""
	st.Synced = false
	st.NotificationSent = false
	st.ExpirationNotificationSent = false
	if st.Timestamp == 0 {
		st.Timestamp = f.now().UnixMilli()
	}
	id, err := f.store.PutScheduled(ctx, st)
	if err != nil {
		return domain.ScheduledTransaction{}, fmt.Errorf("AddScheduled: %w", err)
	}
	st.ID = id
	f.engine.Notify()
	return st, nil
}

// DeleteScheduled mirrors DeleteTransaction for scheduled records.
func (f *Finance) DeleteScheduled(ctx context.Context, id int64) error {
	cur, err := f.store.GetScheduled(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteScheduled: %w", err)
	}
	if err := f.store.DeleteScheduled(ctx, id); err != nil {
		return fmt.Errorf("DeleteScheduled: %w", err)
	}
	if cur.RemoteID != "" {
		f.engine.EnqueueDelete(remote.CollectionScheduled, cur.RemoteID)
	}
	return nil
}

// DuePending lists scheduled transactions whose date has passed and whose
// due notification has not fired yet.
func (f *Finance) DuePending(ctx context.Context) ([]domain.ScheduledTransaction, error) {
	due, err := f.store.DuePendingScheduled(ctx, f.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("DuePending: %w", err)
	}
	return due, nil
}

// MarkNotificationSent flips the due-notification flag. The flag is one-shot:
// marking an already-notified record is a no-op, and the flag never reverts.
func (f *Finance) MarkNotificationSent(ctx context.Context, id int64) error {
	return f.markScheduledFlag(ctx, id, func(st *domain.ScheduledTransaction) bool {
		if st.NotificationSent {
			return false
		}
		st.NotificationSent = true
		return true
	})
}

// MarkExpirationNotificationSent flips the expiration flag, independently of
// the due-notification flag and with the same one-shot rule.
func (f *Finance) MarkExpirationNotificationSent(ctx context.Context, id int64) error {
	return f.markScheduledFlag(ctx, id, func(st *domain.ScheduledTransaction) bool {
		if st.ExpirationNotificationSent {
			return false
		}
		st.ExpirationNotificationSent = true
		return true
	})
}

func (f *Finance) markScheduledFlag(ctx context.Context, id int64, set func(*domain.ScheduledTransaction) bool) error {
	st, err := f.store.GetScheduled(ctx, id)
	if err != nil {
		return fmt.Errorf("markScheduledFlag: %w", err)
	}
	if !set(&st) {
		return nil
	}
	st.Synced = false
	if err := f.store.UpdateScheduled(ctx, st); err != nil {
		return fmt.Errorf("markScheduledFlag: %w", err)
	}
	f.engine.Notify()
	return nil
}

// SetBudget creates or replaces the budget for a category (nil category is
// the general budget). At most one budget exists per category and at most
// one general budget; a conflicting add updates the existing record.
func (f *Finance) SetBudget(ctx context.Context, b domain.Budget) (domain.Budget, error) {
	if !b.Limit.IsPositive() {
		return domain.Budget{}, fmt.Errorf("SetBudget: limit must be positive, got %s", b.Limit)
	}
	if b.Percentage != nil && b.Category == nil {
		return domain.Budget{}, fmt.Errorf("SetBudget: percentage budget requires a category")
	}

	existing, err := f.store.GetBudgetByCategory(ctx, b.Category)
	switch {
	case err == nil:
		b.ID = existing.ID
		b.RemoteID = existing.RemoteID
		b.Synced = false
		if err := f.store.UpdateBudget(ctx, b); err != nil {
			return domain.Budget{}, fmt.Errorf("SetBudget: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		b.ID = 0
		b.RemoteID = ""
		b.Synced = false
		id, perr := f.store.PutBudget(ctx, b)
		if perr != nil {
			return domain.Budget{}, fmt.Errorf("SetBudget: %w", perr)
		}
		b.ID = id
	default:
		return domain.Budget{}, fmt.Errorf("SetBudget: %w", err)
	}

	f.engine.Notify()
	return b, nil
}

// DeleteBudget removes a budget and propagates the delete remotely when the
// record was uploaded.
func (f *Finance) DeleteBudget(ctx context.Context, id int64) error {
	cur, err := f.store.GetBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	if err := f.store.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	if cur.RemoteID != "" {
		f.engine.EnqueueDelete(remote.CollectionBudgets, cur.RemoteID)
	}
	return nil
}

// Budgets lists all budgets in store order.
func (f *Finance) Budgets(ctx context.Context) ([]domain.Budget, error) {
	budgets, err := f.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}
	return budgets, nil
}

// Spent returns the gross expense total, a convenience over the aggregator.
func (f *Finance) Spent(ctx context.Context) (decimal.Decimal, error) {
	txs, err := f.store.ListTransactions(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Spent: %w", err)
	}
	return report.Compute(txs).Expense, nil
}
