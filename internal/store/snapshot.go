package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/spendwise/internal/domain"
)

// Snapshot reads transactions and budgets in one database transaction so the
// report aggregator computes over an internally consistent view, never a
// dirty read spanning concurrent sync writes.
func (s *Store) Snapshot(ctx context.Context) ([]domain.Transaction, []domain.Budget, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("store.Snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	txs, err := scanAllTransactions(ctx, tx)
	if err != nil {
		return nil, nil, fmt.Errorf("store.Snapshot: %w", err)
	}
	budgets, err := scanAllBudgets(ctx, tx)
	if err != nil {
		return nil, nil, fmt.Errorf("store.Snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("store.Snapshot: commit: %w", err)
	}
	return txs, budgets, nil
}

func scanAllTransactions(ctx context.Context, tx queryer) ([]domain.Transaction, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+transactionCols+` FROM transactions ORDER BY ts DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanAllBudgets(ctx context.Context, tx queryer) ([]domain.Budget, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+budgetCols+` FROM budgets ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
