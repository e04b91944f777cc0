package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
)

func tx(typ domain.TransactionType, cat domain.Category, amount int64) domain.Transaction {
	return domain.Transaction{
		Amount:    decimal.NewFromInt(amount),
		Type:      typ,
		Category:  cat,
		Timestamp: 1700000000000,
	}
}

func TestBuild_EmptySnapshot(t *testing.T) {
	got := Build(Snapshot{Now: time.Now()})
	if got != NoDataSentinel {
		t.Fatalf("got %q, want %q", got, NoDataSentinel)
	}
}

func TestCompute(t *testing.T) {
	totals := Compute([]domain.Transaction{
		tx(domain.Expense, domain.CategoryFood, 100),
		tx(domain.Expense, domain.CategoryTransport, 50),
		tx(domain.Income, domain.CategorySalary, 1000),
	})
	if !totals.Income.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("income = %s, want 1000", totals.Income)
	}
	if !totals.Expense.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expense = %s, want 150", totals.Expense)
	}
	if !totals.Net.Equal(decimal.NewFromInt(850)) {
		t.Fatalf("net = %s, want 850", totals.Net)
	}
}

func TestExpenseByCategory(t *testing.T) {
	byCat := ExpenseByCategory([]domain.Transaction{
		tx(domain.Expense, domain.CategoryFood, 60),
		tx(domain.Expense, domain.CategoryFood, 40),
		tx(domain.Expense, domain.CategoryTransport, 50),
		tx(domain.Income, domain.CategorySalary, 1000),
	})
	if !byCat[domain.CategoryFood].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("FOOD = %s, want 100", byCat[domain.CategoryFood])
	}
	if !byCat[domain.CategoryTransport].Equal(decimal.NewFromInt(50)) {
		t.Fatalf("TRANSPORT = %s, want 50", byCat[domain.CategoryTransport])
	}
	if _, ok := byCat[domain.CategorySalary]; ok {
		t.Fatal("income must not appear in expense aggregation")
	}
}

func TestBuild_FullReport(t *testing.T) {
	snap := Snapshot{
		Transactions: []domain.Transaction{
			tx(domain.Expense, domain.CategoryFood, 100),
			tx(domain.Expense, domain.CategoryTransport, 50),
			tx(domain.Income, domain.CategorySalary, 1000),
		},
		Budgets: []domain.Budget{
			{Limit: decimal.NewFromInt(200)},
		},
		Now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	got := Build(snap)

	for _, want := range []string{
		"2025-06-01",
		"Total income: 1000",
		"Total expense: 150",
		"Net: 850",
		"General budget: spent 150 of 200 (75%)",
		"EXPENSE - FOOD: 100",
		"EXPENSE - TRANSPORT: 50",
		"INCOME - SALARY: 1000",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
}

func TestBuild_CategoryBudgetLines(t *testing.T) {
	food := domain.CategoryFood
	travel := domain.CategoryTravel
	snap := Snapshot{
		Transactions: []domain.Transaction{
			tx(domain.Expense, domain.CategoryFood, 30),
		},
		Budgets: []domain.Budget{
			{Category: &food, Limit: decimal.NewFromInt(60)},
			{Category: &travel, Limit: decimal.NewFromInt(100)},
		},
		Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	got := Build(snap)

	if !strings.Contains(got, "Budget for FOOD: spent 30 of 60 (50%)") {
		t.Fatalf("missing food budget line:\n%s", got)
	}
	// No spend recorded against the category yet.
	if !strings.Contains(got, "Budget for TRAVEL: spent 0 of 100 (0%)") {
		t.Fatalf("missing travel budget line:\n%s", got)
	}
}

func TestUsage_ZeroLimit(t *testing.T) {
	if got := usage(decimal.NewFromInt(50), decimal.Zero); !got.IsZero() {
		t.Fatalf("usage with zero limit = %s, want 0", got)
	}
}

func TestTransactionLine_Note(t *testing.T) {
	withNote := tx(domain.Expense, domain.CategoryFood, 10)
	withNote.Note = "coffee"
	if got := transactionLine(withNote); !strings.HasSuffix(got, "(coffee)") {
		t.Fatalf("note missing: %q", got)
	}
	if got := transactionLine(tx(domain.Expense, domain.CategoryFood, 10)); strings.Contains(got, "()") {
		t.Fatalf("empty note rendered: %q", got)
	}
}
