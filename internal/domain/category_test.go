package domain

import "testing"

func TestCategoryTypeBindingRoundTrip(t *testing.T) {
	for _, c := range Categories() {
		parsed, err := ParseCategory(string(c))
		if err != nil {
			t.Fatalf("ParseCategory(%q): %v", c, err)
		}
		if parsed != c {
			t.Fatalf("ParseCategory(%q) = %q", c, parsed)
		}
		if parsed.Type() != c.Type() {
			t.Fatalf("category %q: type changed across round trip: %q != %q", c, parsed.Type(), c.Type())
		}
	}
}

func TestParseCategory_Unknown(t *testing.T) {
	if _, err := ParseCategory("CRYPTO"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestCheckCategory(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		txType   TransactionType
		wantErr  bool
	}{
		{"expense category with expense type", CategoryFood, Expense, false},
		{"income category with income type", CategorySalary, Income, false},
		{"expense category with income type", CategoryFood, Income, true},
		{"income category with expense type", CategorySalary, Expense, true},
		{"unknown category", Category("CRYPTO"), Expense, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCategory(tt.category, tt.txType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCategory(%q, %q) error = %v, wantErr %v", tt.category, tt.txType, err, tt.wantErr)
			}
		})
	}
}

func TestParseTransactionType(t *testing.T) {
	if _, err := ParseTransactionType("TRANSFER"); err == nil {
		t.Fatal("expected error for unknown type")
	}
	typ, err := ParseTransactionType("INCOME")
	if err != nil {
		t.Fatalf("ParseTransactionType: %v", err)
	}
	if typ != Income {
		t.Fatalf("got %q, want %q", typ, Income)
	}
}
