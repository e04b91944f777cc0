package domain

import "github.com/shopspring/decimal"

// BudgetType classifies a budget. It is inferred from the record's fields
// rather than stored: a nil category means the single general budget, and a
// category budget with a percentage limit is percentage-typed.
type BudgetType string

const (
	BudgetGeneral            BudgetType = "GENERAL"
	BudgetCategoryFixed      BudgetType = "CATEGORY_FIXED"
	BudgetCategoryPercentage BudgetType = "CATEGORY_PERCENTAGE"
)

// Budget caps spending, either overall (Category == nil) or for one category.
// At most one budget may exist per category, and at most one general budget.
type Budget struct {
	ID       int64
	RemoteID string
	Category *Category
	Limit    decimal.Decimal
	// Percentage is the share-of-income limit for percentage-typed category
	// budgets; nil otherwise.
	Percentage *decimal.Decimal
	Synced     bool
}

// Type infers the budget type from the fields, per the inference rule above.
func (b Budget) Type() BudgetType {
	if b.Category == nil {
		return BudgetGeneral
	}
	if b.Percentage != nil {
		return BudgetCategoryPercentage
	}
	return BudgetCategoryFixed
}

// Equal compares all fields plus sync state.
func (b Budget) Equal(o Budget) bool {
	if b.ID != o.ID || b.RemoteID != o.RemoteID || b.Synced != o.Synced {
		return false
	}
	return b.SameValues(o)
}

// SameValues ignores ids and sync state.
func (b Budget) SameValues(o Budget) bool {
	if !b.Limit.Equal(o.Limit) {
		return false
	}
	if (b.Category == nil) != (o.Category == nil) {
		return false
	}
	if b.Category != nil && *b.Category != *o.Category {
		return false
	}
	if (b.Percentage == nil) != (o.Percentage == nil) {
		return false
	}
	if b.Percentage != nil && !b.Percentage.Equal(*o.Percentage) {
		return false
	}
	return true
}
