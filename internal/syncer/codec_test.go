package syncer

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
)

func TestEncodeTransaction_OmitsEmptyOptionals(t *testing.T) {
	fields := encodeTransaction(domain.Transaction{
		Amount:    decimal.NewFromInt(10),
		Type:      domain.Expense,
		Category:  domain.CategoryFood,
		Timestamp: 1700000000000,
	})
	if _, ok := fields["photoUri"]; ok {
		t.Fatal("empty photoUri must be omitted")
	}
	if _, ok := fields["location"]; ok {
		t.Fatal("nil location must be omitted")
	}
	if fields["amount"] != "10" {
		t.Fatalf("amount = %v, want \"10\"", fields["amount"])
	}
}

func TestDecodeTransaction_Location(t *testing.T) {
	got, err := decodeTransaction(remote.Document{
		ID: "r1",
		Fields: map[string]any{
			"amount":    "3.20",
			"type":      "EXPENSE",
			"category":  "TRANSPORT",
			"timestamp": int64(1700000000000),
			"location": map[string]any{
				"full":  "King's Cross Station, London",
				"short": "King's Cross",
				"lat":   51.53,
				"lng":   -0.12,
			},
		},
	})
	if err != nil {
		t.Fatalf("decodeTransaction: %v", err)
	}
	if got.RemoteID != "r1" {
		t.Fatalf("remote id = %q", got.RemoteID)
	}
	if got.Location == nil || got.Location.Short != "King's Cross" || got.Location.Lat != 51.53 {
		t.Fatalf("location not decoded: %+v", got.Location)
	}
}

func TestDecodeTransaction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"bad amount", map[string]any{"amount": "x", "type": "EXPENSE", "category": "FOOD"}},
		{"bad type", map[string]any{"amount": "1", "type": "TRANSFER", "category": "FOOD"}},
		{"bad category", map[string]any{"amount": "1", "type": "EXPENSE", "category": "CRYPTO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeTransaction(remote.Document{ID: "x", Fields: tt.fields}); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestBudgetCodecRoundTrip(t *testing.T) {
	food := domain.CategoryFood
	pct := decimal.NewFromInt(15)
	in := domain.Budget{Category: &food, Limit: decimal.NewFromInt(60), Percentage: &pct}

	got, err := decodeBudget(remote.Document{ID: "b1", Fields: encodeBudget(in)})
	if err != nil {
		t.Fatalf("decodeBudget: %v", err)
	}
	if got.Category == nil || *got.Category != food {
		t.Fatalf("category lost: %+v", got)
	}
	if got.Percentage == nil || !got.Percentage.Equal(pct) {
		t.Fatalf("percentage lost: %+v", got)
	}

	// General budgets have neither category nor percentage.
	general, err := decodeBudget(remote.Document{ID: "b2", Fields: encodeBudget(domain.Budget{Limit: decimal.NewFromInt(200)})})
	if err != nil {
		t.Fatalf("decodeBudget general: %v", err)
	}
	if general.Category != nil || general.Percentage != nil {
		t.Fatalf("general budget grew optionals: %+v", general)
	}
}

func TestDecodeScheduled_Flags(t *testing.T) {
	got, err := decodeScheduled(remote.Document{
		ID: "s1",
		Fields: map[string]any{
			"amount":           "70",
			"type":             "EXPENSE",
			"category":         "HOUSING",
			"timestamp":        int64(1700000000000),
			"scheduledDate":    int64(1800000000000),
			"notificationSent": true,
		},
	})
	if err != nil {
		t.Fatalf("decodeScheduled: %v", err)
	}
	if got.ScheduledDate != 1800000000000 || !got.NotificationSent || got.ExpirationNotificationSent {
		t.Fatalf("unexpected scheduled record: %+v", got)
	}
}

func TestSynced(t *testing.T) {
	if Synced(true, "") {
		t.Fatal("flag without remote id is not synced")
	}
	if Synced(false, "r1") {
		t.Fatal("remote id without flag is not synced")
	}
	if !Synced(true, "r1") {
		t.Fatal("flag plus remote id is synced")
	}
}
