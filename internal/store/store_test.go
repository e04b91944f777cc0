package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "spendwise.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTransaction() domain.Transaction {
	return domain.Transaction{
		Amount:    decimal.NewFromInt(100),
		Type:      domain.Expense,
		Category:  domain.CategoryFood,
		Note:      "groceries",
		Timestamp: 1700000000000,
	}
}

func TestTransactionCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleTransaction()
	id, err := s.PutTransaction(ctx, in)
	if err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := s.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !got.Amount.Equal(in.Amount) || got.Category != in.Category || got.Note != in.Note {
		t.Fatalf("got %+v, want fields of %+v", got, in)
	}
	if got.Synced {
		t.Fatal("new transaction must start unsynced")
	}

	got.Note = "weekly groceries"
	got.Synced = true
	got.RemoteID = "r1"
	if err := s.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	byRemote, err := s.GetTransactionByRemoteID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetTransactionByRemoteID: %v", err)
	}
	if byRemote.ID != id || byRemote.Note != "weekly groceries" || !byRemote.Synced {
		t.Fatalf("unexpected record: %+v", byRemote)
	}

	if err := s.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := s.GetTransaction(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := sampleTransaction()
	tx.ID = 12345
	if err := s.UpdateTransaction(ctx, tx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestPutTransaction_RejectsCategoryTypeMismatch(t *testing.T) {
	s := openTestStore(t)

	tx := sampleTransaction()
	tx.Type = domain.Income // FOOD is bound to EXPENSE
	if _, err := s.PutTransaction(context.Background(), tx); err == nil {
		t.Fatal("expected category/type mismatch to be rejected")
	}
}

func TestTransactionLocationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := sampleTransaction()
	in.Location = &domain.Location{Full: "12 Main St, Springfield", Short: "Main St", Lat: 51.5, Lng: -0.1}
	id, err := s.PutTransaction(ctx, in)
	if err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	got, err := s.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Location == nil || *got.Location != *in.Location {
		t.Fatalf("location round trip: got %+v, want %+v", got.Location, in.Location)
	}
}

func TestUnsyncedTransactions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pending := sampleTransaction()
	pendingID, err := s.PutTransaction(ctx, pending)
	if err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}

	synced := sampleTransaction()
	synced.RemoteID = "r1"
	synced.Synced = true
	if _, err := s.PutTransaction(ctx, synced); err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}

	unsynced, err := s.UnsyncedTransactions(ctx)
	if err != nil {
		t.Fatalf("UnsyncedTransactions: %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != pendingID {
		t.Fatalf("unexpected unsynced set: %+v", unsynced)
	}
}

func TestBudgetsByCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	general := domain.Budget{Limit: decimal.NewFromInt(200)}
	if _, err := s.PutBudget(ctx, general); err != nil {
		t.Fatalf("PutBudget general: %v", err)
	}
	food := domain.CategoryFood
	scoped := domain.Budget{Category: &food, Limit: decimal.NewFromInt(50)}
	if _, err := s.PutBudget(ctx, scoped); err != nil {
		t.Fatalf("PutBudget scoped: %v", err)
	}

	gotGeneral, err := s.GetBudgetByCategory(ctx, nil)
	if err != nil {
		t.Fatalf("GetBudgetByCategory(nil): %v", err)
	}
	if gotGeneral.Category != nil || !gotGeneral.Limit.Equal(general.Limit) {
		t.Fatalf("unexpected general budget: %+v", gotGeneral)
	}

	gotFood, err := s.GetBudgetByCategory(ctx, &food)
	if err != nil {
		t.Fatalf("GetBudgetByCategory(FOOD): %v", err)
	}
	if gotFood.Category == nil || *gotFood.Category != food {
		t.Fatalf("unexpected scoped budget: %+v", gotFood)
	}

	travel := domain.CategoryTravel
	if _, err := s.GetBudgetByCategory(ctx, &travel); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuePendingScheduled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := int64(1700000000000)

	due := domain.ScheduledTransaction{Transaction: sampleTransaction(), ScheduledDate: now - 1000}
	dueID, err := s.PutScheduled(ctx, due)
	if err != nil {
		t.Fatalf("PutScheduled: %v", err)
	}

	notified := domain.ScheduledTransaction{Transaction: sampleTransaction(), ScheduledDate: now - 1000, NotificationSent: true}
	if _, err := s.PutScheduled(ctx, notified); err != nil {
		t.Fatalf("PutScheduled: %v", err)
	}

	future := domain.ScheduledTransaction{Transaction: sampleTransaction(), ScheduledDate: now + 1000}
	if _, err := s.PutScheduled(ctx, future); err != nil {
		t.Fatalf("PutScheduled: %v", err)
	}

	got, err := s.DuePendingScheduled(ctx, now)
	if err != nil {
		t.Fatalf("DuePendingScheduled: %v", err)
	}
	if len(got) != 1 || got[0].ID != dueID {
		t.Fatalf("unexpected due set: %+v", got)
	}
}

func TestMessagesOrderedOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, text := range []string{"first", "second", "third"} {
		m := domain.AiMessage{Text: text, IsAi: i%2 == 1, Timestamp: int64(1000 + i)}
		if _, err := s.PutMessage(ctx, m); err != nil {
			t.Fatalf("PutMessage: %v", err)
		}
	}
	msgs, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Text != "first" || msgs[2].Text != "third" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
}

func TestWatchTransactions_EmitsAndDedups(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := s.WatchTransactions(ctx)

	// Initial snapshot arrives immediately, even when empty.
	snap := recvSnapshot(t, stream)
	if len(snap) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", snap)
	}

	id, err := s.PutTransaction(ctx, sampleTransaction())
	if err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	snap = recvSnapshot(t, stream)
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("expected snapshot with new record, got %+v", snap)
	}

	// A write that leaves values unchanged must not emit.
	if err := s.UpdateTransaction(ctx, snap[0]); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	select {
	case extra := <-stream:
		t.Fatalf("value-equal write emitted %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}

	// A real change emits again.
	changed := snap[0]
	changed.Note = "changed"
	if err := s.UpdateTransaction(ctx, changed); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	snap = recvSnapshot(t, stream)
	if len(snap) != 1 || snap[0].Note != "changed" {
		t.Fatalf("expected changed snapshot, got %+v", snap)
	}
}

func recvSnapshot[T any](t *testing.T, stream <-chan []T) []T {
	t.Helper()
	select {
	case snap := <-stream:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSchemaVersionMismatchResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spendwise.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.PutTransaction(ctx, sampleTransaction()); err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate an old on-disk schema.
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := raw.Exec("PRAGMA user_version = 999"); err != nil {
		t.Fatalf("setting user_version: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("closing raw handle: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	txs, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected destructive reset, found %d records", len(txs))
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spendwise.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := s.PutTransaction(ctx, sampleTransaction())
	if err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetTransaction(ctx, id); err != nil {
		t.Fatalf("GetTransaction after reopen: %v", err)
	}
}

func TestSnapshotReadsBothKinds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PutTransaction(ctx, sampleTransaction()); err != nil {
		t.Fatalf("PutTransaction: %v", err)
	}
	if _, err := s.PutBudget(ctx, domain.Budget{Limit: decimal.NewFromInt(200)}); err != nil {
		t.Fatalf("PutBudget: %v", err)
	}

	txs, budgets, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(txs) != 1 || len(budgets) != 1 {
		t.Fatalf("got %d transactions and %d budgets, want 1 and 1", len(txs), len(budgets))
	}
}
