package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/logger"
	"github.com/dvloznov/spendwise/internal/store"
)

type fakeEngine struct {
	notifies int
	deletes  []string
}

func (f *fakeEngine) Notify() { f.notifies++ }

func (f *fakeEngine) EnqueueDelete(collection, remoteID string) {
	f.deletes = append(f.deletes, collection+"/"+remoteID)
}

func newTestFinance(t *testing.T) (*Finance, *store.Store, *fakeEngine) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "finance.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := &fakeEngine{}
	return NewFinance(st, engine, nil, logger.Nop()), st, engine
}

func TestAddTransaction(t *testing.T) {
	finance, st, engine := newTestFinance(t)
	ctx := context.Background()

	got, err := finance.AddTransaction(ctx, domain.Transaction{
		Amount:   decimal.NewFromInt(25),
		Type:     domain.Expense,
		Category: domain.CategoryFood,
		Note:     "lunch",
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if got.ID == 0 || got.Synced || got.RemoteID != "" {
		t.Fatalf("new transaction must be local-only and unsynced: %+v", got)
	}
	if got.Timestamp == 0 {
		t.Fatal("timestamp must be filled in")
	}
	if engine.notifies != 1 {
		t.Fatalf("expected 1 sync nudge, got %d", engine.notifies)
	}

	stored, err := st.GetTransaction(ctx, got.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.Note != "lunch" {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestAddTransaction_RejectsCategoryMismatch(t *testing.T) {
	finance, _, engine := newTestFinance(t)

	_, err := finance.AddTransaction(context.Background(), domain.Transaction{
		Amount:   decimal.NewFromInt(25),
		Type:     domain.Income,
		Category: domain.CategoryFood,
	})
	if err == nil {
		t.Fatal("expected category/type mismatch to be rejected")
	}
	if engine.notifies != 0 {
		t.Fatal("rejected write must not nudge the engine")
	}
}

func TestUpdateTransaction_RearmsSyncFlag(t *testing.T) {
	finance, st, engine := newTestFinance(t)
	ctx := context.Background()

	added, err := finance.AddTransaction(ctx, domain.Transaction{
		Amount:   decimal.NewFromInt(25),
		Type:     domain.Expense,
		Category: domain.CategoryFood,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	// Simulate a completed upload.
	added.RemoteID = "r1"
	added.Synced = true
	if err := st.UpdateTransaction(ctx, added); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	added.Note = "edited"
	added.Synced = true // callers cannot force the flag
	if err := finance.UpdateTransaction(ctx, added); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	stored, err := st.GetTransaction(ctx, added.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.Synced {
		t.Fatal("local edit must clear the sync flag")
	}
	if stored.RemoteID != "r1" {
		t.Fatalf("remote id must survive edits, got %q", stored.RemoteID)
	}
	if engine.notifies != 2 {
		t.Fatalf("expected 2 sync nudges, got %d", engine.notifies)
	}
}

func TestDeleteTransaction_PropagatesRemoteDelete(t *testing.T) {
	finance, st, engine := newTestFinance(t)
	ctx := context.Background()

	added, err := finance.AddTransaction(ctx, domain.Transaction{
		Amount:   decimal.NewFromInt(25),
		Type:     domain.Expense,
		Category: domain.CategoryFood,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	added.RemoteID = "r1"
	added.Synced = true
	if err := st.UpdateTransaction(ctx, added); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	if err := finance.DeleteTransaction(ctx, added.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := st.GetTransaction(ctx, added.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected local delete, got %v", err)
	}
	if len(engine.deletes) != 1 || engine.deletes[0] != "transactions/r1" {
		t.Fatalf("unexpected remote deletes: %v", engine.deletes)
	}
}

func TestDeleteTransaction_LocalOnlySkipsRemote(t *testing.T) {
	finance, _, engine := newTestFinance(t)
	ctx := context.Background()

	added, err := finance.AddTransaction(ctx, domain.Transaction{
		Amount:   decimal.NewFromInt(10),
		Type:     domain.Expense,
		Category: domain.CategoryFood,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := finance.DeleteTransaction(ctx, added.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if len(engine.deletes) != 0 {
		t.Fatalf("never-uploaded record must not trigger a remote delete: %v", engine.deletes)
	}
}

func TestSetBudget_UpsertsPerCategory(t *testing.T) {
	finance, st, _ := newTestFinance(t)
	ctx := context.Background()

	food := domain.CategoryFood
	first, err := finance.SetBudget(ctx, domain.Budget{Category: &food, Limit: decimal.NewFromInt(50)})
	if err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	// A second budget for the same category replaces the first.
	second, err := finance.SetBudget(ctx, domain.Budget{Category: &food, Limit: decimal.NewFromInt(80)})
	if err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected upsert onto id %d, got %d", first.ID, second.ID)
	}

	budgets, err := st.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 1 || !budgets[0].Limit.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected budgets: %+v", budgets)
	}
}

func TestSetBudget_SingleGeneralBudget(t *testing.T) {
	finance, st, _ := newTestFinance(t)
	ctx := context.Background()

	if _, err := finance.SetBudget(ctx, domain.Budget{Limit: decimal.NewFromInt(200)}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if _, err := finance.SetBudget(ctx, domain.Budget{Limit: decimal.NewFromInt(300)}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	budgets, err := st.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 1 || budgets[0].Category != nil {
		t.Fatalf("expected one general budget, got %+v", budgets)
	}
}

func TestSetBudget_Validation(t *testing.T) {
	finance, _, _ := newTestFinance(t)
	ctx := context.Background()

	if _, err := finance.SetBudget(ctx, domain.Budget{Limit: decimal.Zero}); err == nil {
		t.Fatal("expected non-positive limit to be rejected")
	}
	pct := decimal.NewFromInt(20)
	if _, err := finance.SetBudget(ctx, domain.Budget{Limit: decimal.NewFromInt(100), Percentage: &pct}); err == nil {
		t.Fatal("expected percentage without category to be rejected")
	}
}

func TestMarkNotificationSent_OneShot(t *testing.T) {
	finance, st, engine := newTestFinance(t)
	ctx := context.Background()

	added, err := finance.AddScheduled(ctx, domain.ScheduledTransaction{
		Transaction: domain.Transaction{
			Amount:   decimal.NewFromInt(100),
			Type:     domain.Expense,
			Category: domain.CategoryHousing,
		},
		ScheduledDate: 1800000000000,
	})
	if err != nil {
		t.Fatalf("AddScheduled: %v", err)
	}
	nudges := engine.notifies

	if err := finance.MarkNotificationSent(ctx, added.ID); err != nil {
		t.Fatalf("MarkNotificationSent: %v", err)
	}
	stored, err := st.GetScheduled(ctx, added.ID)
	if err != nil {
		t.Fatalf("GetScheduled: %v", err)
	}
	if !stored.NotificationSent || stored.ExpirationNotificationSent {
		t.Fatalf("flags wrong after first mark: %+v", stored)
	}
	if stored.Synced {
		t.Fatal("flag change must re-arm the sync flag")
	}
	if engine.notifies != nudges+1 {
		t.Fatalf("expected one nudge for the flag change, got %d", engine.notifies-nudges)
	}

	// Marking again is a no-op and must not nudge the engine.
	if err := finance.MarkNotificationSent(ctx, added.ID); err != nil {
		t.Fatalf("MarkNotificationSent again: %v", err)
	}
	if engine.notifies != nudges+1 {
		t.Fatal("repeated mark must be a no-op")
	}

	// The expiration flag is independent.
	if err := finance.MarkExpirationNotificationSent(ctx, added.ID); err != nil {
		t.Fatalf("MarkExpirationNotificationSent: %v", err)
	}
	stored, err = st.GetScheduled(ctx, added.ID)
	if err != nil {
		t.Fatalf("GetScheduled: %v", err)
	}
	if !stored.NotificationSent || !stored.ExpirationNotificationSent {
		t.Fatalf("flags wrong after expiration mark: %+v", stored)
	}
}

func TestAddTransactionWithPhoto_NoUploaderConfigured(t *testing.T) {
	finance, _, _ := newTestFinance(t)

	_, err := finance.AddTransactionWithPhoto(context.Background(), domain.Transaction{
		Amount:   decimal.NewFromInt(10),
		Type:     domain.Expense,
		Category: domain.CategoryFood,
	}, "/tmp/receipt.jpg")
	if err == nil {
		t.Fatal("expected error when no photo bucket is configured")
	}
}

func TestReportAndSpent(t *testing.T) {
	finance, _, _ := newTestFinance(t)
	ctx := context.Background()

	for _, in := range []domain.Transaction{
		{Amount: decimal.NewFromInt(100), Type: domain.Expense, Category: domain.CategoryFood},
		{Amount: decimal.NewFromInt(1000), Type: domain.Income, Category: domain.CategorySalary},
	} {
		if _, err := finance.AddTransaction(ctx, in); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}

	spent, err := finance.Spent(ctx)
	if err != nil {
		t.Fatalf("Spent: %v", err)
	}
	if !spent.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("spent = %s, want 100", spent)
	}

	text, err := finance.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if text == "" {
		t.Fatal("expected a non-empty report")
	}
}
