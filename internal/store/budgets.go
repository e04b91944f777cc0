package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
)

const budgetCols = `id, remote_id, category, spend_limit, percentage, synced`

// PutBudget inserts a new budget and returns its local id. Category
// uniqueness (at most one budget per category, one general budget) is
// enforced by the service layer's upsert; the store only persists.
func (s *Store) PutBudget(ctx context.Context, b domain.Budget) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (remote_id, category, spend_limit, percentage, synced)
		VALUES (?, ?, ?, ?, ?)`,
		b.RemoteID, categoryArg(b.Category), b.Limit.String(), percentArg(b.Percentage), boolInt(b.Synced))
	if err != nil {
		return 0, fmt.Errorf("store.PutBudget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.PutBudget: last insert id: %w", err)
	}
	s.notify(KindBudgets)
	return id, nil
}

// UpdateBudget overwrites the record with b's id. Missing id is ErrNotFound.
func (s *Store) UpdateBudget(ctx context.Context, b domain.Budget) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE budgets SET remote_id = ?, category = ?, spend_limit = ?, percentage = ?, synced = ?
		WHERE id = ?`,
		b.RemoteID, categoryArg(b.Category), b.Limit.String(), percentArg(b.Percentage), boolInt(b.Synced), b.ID)
	if err != nil {
		return fmt.Errorf("store.UpdateBudget: %w", err)
	}
	if err := affected(res, "UpdateBudget"); err != nil {
		return err
	}
	s.notify(KindBudgets)
	return nil
}

// DeleteBudget removes the record by local id. Missing id is ErrNotFound.
func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store.DeleteBudget: %w", err)
	}
	if err := affected(res, "DeleteBudget"); err != nil {
		return err
	}
	s.notify(KindBudgets)
	return nil
}

// GetBudget fetches one record by local id.
func (s *Store) GetBudget(ctx context.Context, id int64) (domain.Budget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetCols+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return domain.Budget{}, fmt.Errorf("store.GetBudget: %w", ErrNotFound)
	}
	if err != nil {
		return domain.Budget{}, fmt.Errorf("store.GetBudget: %w", err)
	}
	return b, nil
}

// GetBudgetByRemoteID fetches one record by remote document id.
func (s *Store) GetBudgetByRemoteID(ctx context.Context, remoteID string) (domain.Budget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetCols+` FROM budgets WHERE remote_id = ?`, remoteID)
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return domain.Budget{}, fmt.Errorf("store.GetBudgetByRemoteID: %w", ErrNotFound)
	}
	if err != nil {
		return domain.Budget{}, fmt.Errorf("store.GetBudgetByRemoteID: %w", err)
	}
	return b, nil
}

// GetBudgetByCategory fetches the budget for a category, or with nil the
// general budget. ErrNotFound when none exists.
func (s *Store) GetBudgetByCategory(ctx context.Context, category *domain.Category) (domain.Budget, error) {
	var row *sql.Row
	if category == nil {
		row = s.db.QueryRowContext(ctx, `SELECT `+budgetCols+` FROM budgets WHERE category IS NULL`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+budgetCols+` FROM budgets WHERE category = ?`, string(*category))
	}
	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return domain.Budget{}, fmt.Errorf("store.GetBudgetByCategory: %w", ErrNotFound)
	}
	if err != nil {
		return domain.Budget{}, fmt.Errorf("store.GetBudgetByCategory: %w", err)
	}
	return b, nil
}

// ListBudgets returns every budget in insertion order.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	return s.queryBudgets(ctx, `SELECT `+budgetCols+` FROM budgets ORDER BY id ASC`)
}

// UnsyncedBudgets returns records awaiting upload, oldest first.
func (s *Store) UnsyncedBudgets(ctx context.Context) ([]domain.Budget, error) {
	return s.queryBudgets(ctx, `SELECT `+budgetCols+` FROM budgets WHERE synced = 0 ORDER BY id ASC`)
}

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]domain.Budget, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query budgets: %w", err)
	}
	defer rows.Close()

	var out []domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row rowScanner) (domain.Budget, error) {
	var (
		b        domain.Budget
		category sql.NullString
		limit    string
		percent  sql.NullString
		synced   int
	)
	if err := row.Scan(&b.ID, &b.RemoteID, &category, &limit, &percent, &synced); err != nil {
		return domain.Budget{}, err
	}
	var err error
	if b.Limit, err = decimal.NewFromString(limit); err != nil {
		return domain.Budget{}, fmt.Errorf("bad limit %q: %w", limit, err)
	}
	if category.Valid {
		c := domain.Category(category.String)
		b.Category = &c
	}
	if percent.Valid {
		p, err := decimal.NewFromString(percent.String)
		if err != nil {
			return domain.Budget{}, fmt.Errorf("bad percentage %q: %w", percent.String, err)
		}
		b.Percentage = &p
	}
	b.Synced = synced != 0
	return b, nil
}

func categoryArg(c *domain.Category) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}

func percentArg(p *decimal.Decimal) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: p.String(), Valid: true}
}
