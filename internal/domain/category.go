package domain

import "fmt"

// TransactionType says which direction money moved.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// ParseTransactionType parses the wire representation of a transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Income, Expense:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("ParseTransactionType: unknown type %q", s)
}

// Category is a fixed spending/earning category. Every category is permanently
// bound to exactly one transaction type; a FOOD transaction can never be INCOME.
type Category string

const (
	CategoryFood          Category = "FOOD"
	CategoryTransport     Category = "TRANSPORT"
	CategoryHousing       Category = "HOUSING"
	CategoryUtilities     Category = "UTILITIES"
	CategoryHealth        Category = "HEALTH"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryShopping      Category = "SHOPPING"
	CategoryEducation     Category = "EDUCATION"
	CategoryTravel        Category = "TRAVEL"
	CategoryOtherExpense  Category = "OTHER_EXPENSE"

	CategorySalary      Category = "SALARY"
	CategoryBusiness    Category = "BUSINESS"
	CategoryInvestment  Category = "INVESTMENT"
	CategoryGift        Category = "GIFT"
	CategoryOtherIncome Category = "OTHER_INCOME"
)

// categoryTypes is the static binding from category to transaction type.
// Lookup failures mean the category value itself is invalid.
var categoryTypes = map[Category]TransactionType{
	CategoryFood:          Expense,
	CategoryTransport:     Expense,
	CategoryHousing:       Expense,
	CategoryUtilities:     Expense,
	CategoryHealth:        Expense,
	CategoryEntertainment: Expense,
	CategoryShopping:      Expense,
	CategoryEducation:     Expense,
	CategoryTravel:        Expense,
	CategoryOtherExpense:  Expense,
	CategorySalary:        Income,
	CategoryBusiness:      Income,
	CategoryInvestment:    Income,
	CategoryGift:          Income,
	CategoryOtherIncome:   Income,
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryTransport, CategoryHousing, CategoryUtilities,
		CategoryHealth, CategoryEntertainment, CategoryShopping,
		CategoryEducation, CategoryTravel, CategoryOtherExpense,
		CategorySalary, CategoryBusiness, CategoryInvestment, CategoryGift,
		CategoryOtherIncome,
	}
}

// ParseCategory parses the wire representation of a category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryTypes[c]; !ok {
		return "", fmt.Errorf("ParseCategory: unknown category %q", s)
	}
	return c, nil
}

// Type returns the transaction type this category is bound to.
func (c Category) Type() TransactionType {
	return categoryTypes[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryTypes[c]
	return ok
}

// CheckCategory rejects transactions whose category is unknown or bound to a
// different type than the transaction declares. Enforced at store-write time.
func CheckCategory(c Category, t TransactionType) error {
	bound, ok := categoryTypes[c]
	if !ok {
		return fmt.Errorf("CheckCategory: unknown category %q", c)
	}
	if bound != t {
		return fmt.Errorf("CheckCategory: category %s is bound to %s, not %s", c, bound, t)
	}
	return nil
}
