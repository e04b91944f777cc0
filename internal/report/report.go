// Package report turns a point-in-time snapshot of transactions and budgets
// into the text report the assistant reads. Building a report has no side
// effects; everything is computed from the snapshot passed in.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
)

// NoDataSentinel is returned when the snapshot holds no transactions.
const NoDataSentinel = "No financial data is available yet."

// Snapshot is one consistent read of the local store. Transactions are
// expected newest first and budgets in store order; Build preserves both.
type Snapshot struct {
	Transactions []domain.Transaction
	Budgets      []domain.Budget
	Now          time.Time
}

// Totals are the gross sums over a snapshot. Net is income minus expense.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// Compute sums the snapshot's transactions by type.
func Compute(txs []domain.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case domain.Income:
			t.Income = t.Income.Add(tx.Amount)
		case domain.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// ExpenseByCategory sums expense transactions per category.
func ExpenseByCategory(txs []domain.Transaction) map[domain.Category]decimal.Decimal {
	out := make(map[domain.Category]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != domain.Expense {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// Build renders the full report. With no transactions it returns
// NoDataSentinel and computes nothing else.
func Build(snap Snapshot) string {
	if len(snap.Transactions) == 0 {
		return NoDataSentinel
	}

	totals := Compute(snap.Transactions)
	byCategory := ExpenseByCategory(snap.Transactions)

	var b strings.Builder
	fmt.Fprintf(&b, "FINANCIAL REPORT (%s)\n", snap.Now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total income: %s\n", totals.Income.String())
	fmt.Fprintf(&b, "Total expense: %s\n", totals.Expense.String())
	fmt.Fprintf(&b, "Net: %s\n", totals.Net.String())

	if len(snap.Budgets) > 0 {
		b.WriteString("\nBUDGETS\n")
		for _, budget := range snap.Budgets {
			b.WriteString(budgetLine(budget, totals.Expense, byCategory))
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nTRANSACTIONS\n")
	for _, tx := range snap.Transactions {
		b.WriteString(transactionLine(tx))
		b.WriteByte('\n')
	}
	return b.String()
}

func budgetLine(budget domain.Budget, totalExpense decimal.Decimal, byCategory map[domain.Category]decimal.Decimal) string {
	spent := totalExpense
	label := "General budget"
	if budget.Category != nil {
		spent = byCategory[*budget.Category]
		label = fmt.Sprintf("Budget for %s", string(*budget.Category))
	}
	return fmt.Sprintf("%s: spent %s of %s (%s%%)",
		label, spent.String(), budget.Limit.String(), usage(spent, budget.Limit).String())
}

// usage is spent/limit*100, or zero when the limit is not positive.
func usage(spent, limit decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return spent.Div(limit).Mul(decimal.NewFromInt(100)).Round(2)
}

func transactionLine(tx domain.Transaction) string {
	date := time.UnixMilli(tx.Timestamp).UTC().Format("2006-01-02")
	line := fmt.Sprintf("[%s] %s - %s: %s", date, tx.Type, tx.Category, tx.Amount.String())
	if tx.Note != "" {
		line += fmt.Sprintf(" (%s)", tx.Note)
	}
	return line
}
