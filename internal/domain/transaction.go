package domain

import (
	"github.com/shopspring/decimal"
)

// Location is an optional place tag attached to a transaction.
type Location struct {
	Full  string
	Short string
	Lat   float64
	Lng   float64
}

// Transaction is a single recorded income or expense.
//
// ID is the local primary key, assigned by the local store and stable for the
// record's lifetime; it is the only key on-device consumers use. RemoteID is
// empty until the record is uploaded, never changes once set, and is the join
// key when reconciling remote deltas. Amount is always non-negative; the sign
// is carried by Type.
type Transaction struct {
	ID        int64
	RemoteID  string
	Amount    decimal.Decimal
	Type      TransactionType
	Category  Category
	Note      string
	Timestamp int64 // epoch millis
	PhotoURI  string
	Location  *Location
	Synced    bool
}

// Equal compares all user-visible fields plus sync state. Used to collapse
// value-equal writes into no-ops.
func (t Transaction) Equal(o Transaction) bool {
	if t.ID != o.ID || t.RemoteID != o.RemoteID || t.Type != o.Type ||
		t.Category != o.Category || t.Note != o.Note ||
		t.Timestamp != o.Timestamp || t.PhotoURI != o.PhotoURI ||
		t.Synced != o.Synced {
		return false
	}
	if !t.Amount.Equal(o.Amount) {
		return false
	}
	return locationsEqual(t.Location, o.Location)
}

// SameValues compares the user-entered fields only, ignoring ids and sync
// state. The listener uses it to recognize its own upload echoes.
func (t Transaction) SameValues(o Transaction) bool {
	return t.Type == o.Type && t.Category == o.Category && t.Note == o.Note &&
		t.Timestamp == o.Timestamp && t.PhotoURI == o.PhotoURI &&
		t.Amount.Equal(o.Amount) && locationsEqual(t.Location, o.Location)
}

func locationsEqual(a, b *Location) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ScheduledTransaction is a transaction planned for a future date.
//
// NotificationSent and ExpirationNotificationSent are independent one-shot
// flags: each transitions false to true exactly once and never reverts.
type ScheduledTransaction struct {
	Transaction
	ScheduledDate              int64 // epoch millis
	NotificationSent           bool
	ExpirationNotificationSent bool
}

// Equal compares all fields including the one-shot notification flags.
func (s ScheduledTransaction) Equal(o ScheduledTransaction) bool {
	return s.Transaction.Equal(o.Transaction) &&
		s.ScheduledDate == o.ScheduledDate &&
		s.NotificationSent == o.NotificationSent &&
		s.ExpirationNotificationSent == o.ExpirationNotificationSent
}

// SameValues ignores ids and sync state, like Transaction.SameValues.
func (s ScheduledTransaction) SameValues(o ScheduledTransaction) bool {
	return s.Transaction.SameValues(o.Transaction) &&
		s.ScheduledDate == o.ScheduledDate &&
		s.NotificationSent == o.NotificationSent &&
		s.ExpirationNotificationSent == o.ExpirationNotificationSent
}
