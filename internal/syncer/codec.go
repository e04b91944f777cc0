package syncer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
)

// Remote document field layout. Amounts travel as decimal strings so no
// precision is lost crossing the boundary; the remote id is the document key
// and never appears in the body.

func encodeTransaction(t domain.Transaction) map[string]any {
	fields := map[string]any{
		"amount":    t.Amount.String(),
		"type":      string(t.Type),
		"category":  string(t.Category),
		"note":      t.Note,
		"timestamp": t.Timestamp,
	}
	if t.PhotoURI != "" {
		fields["photoUri"] = t.PhotoURI
	}
	if t.Location != nil {
		fields["location"] = map[string]any{
			"full":  t.Location.Full,
			"short": t.Location.Short,
			"lat":   t.Location.Lat,
			"lng":   t.Location.Lng,
		}
	}
	return fields
}

func decodeTransaction(doc remote.Document) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(str(doc.Fields, "amount"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("decodeTransaction %s: amount: %w", doc.ID, err)
	}
	typ, err := domain.ParseTransactionType(str(doc.Fields, "type"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("decodeTransaction %s: %w", doc.ID, err)
	}
	cat, err := domain.ParseCategory(str(doc.Fields, "category"))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("decodeTransaction %s: %w", doc.ID, err)
	}

	t := domain.Transaction{
		RemoteID:  doc.ID,
		Amount:    amount,
		Type:      typ,
		Category:  cat,
		Note:      str(doc.Fields, "note"),
		Timestamp: i64(doc.Fields, "timestamp"),
		PhotoURI:  str(doc.Fields, "photoUri"),
	}
	if loc, ok := doc.Fields["location"].(map[string]any); ok {
		t.Location = &domain.Location{
			Full:  str(loc, "full"),
			Short: str(loc, "short"),
			Lat:   f64(loc, "lat"),
			Lng:   f64(loc, "lng"),
		}
	}
	return t, nil
}

func encodeScheduled(s domain.ScheduledTransaction) map[string]any {
	fields := encodeTransaction(s.Transaction)
	fields["scheduledDate"] = s.ScheduledDate
	fields["notificationSent"] = s.NotificationSent
	fields["expirationNotificationSent"] = s.ExpirationNotificationSent
	return fields
}

func decodeScheduled(doc remote.Document) (domain.ScheduledTransaction, error) {
	t, err := decodeTransaction(doc)
	if err != nil {
		return domain.ScheduledTransaction{}, err
	}
	return domain.ScheduledTransaction{
		Transaction:                t,
		ScheduledDate:              i64(doc.Fields, "scheduledDate"),
		NotificationSent:           boolField(doc.Fields, "notificationSent"),
		ExpirationNotificationSent: boolField(doc.Fields, "expirationNotificationSent"),
	}, nil
}

func encodeBudget(b domain.Budget) map[string]any {
	fields := map[string]any{
		"limit": b.Limit.String(),
	}
	if b.Category != nil {
		fields["category"] = string(*b.Category)
	}
	if b.Percentage != nil {
		fields["percentage"] = b.Percentage.String()
	}
	return fields
}

func decodeBudget(doc remote.Document) (domain.Budget, error) {
	limit, err := decimal.NewFromString(str(doc.Fields, "limit"))
	if err != nil {
		return domain.Budget{}, fmt.Errorf("decodeBudget %s: limit: %w", doc.ID, err)
	}

	b := domain.Budget{
		RemoteID: doc.ID,
		Limit:    limit,
	}
	if _, ok := doc.Fields["category"]; ok {
		cat, err := domain.ParseCategory(str(doc.Fields, "category"))
		if err != nil {
			return domain.Budget{}, fmt.Errorf("decodeBudget %s: %w", doc.ID, err)
		}
		b.Category = &cat
	}
	if raw, ok := doc.Fields["percentage"].(string); ok {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.Budget{}, fmt.Errorf("decodeBudget %s: percentage: %w", doc.ID, err)
		}
		b.Percentage = &p
	}
	return b, nil
}

func encodeMessage(m domain.AiMessage) map[string]any {
	return map[string]any{
		"text":      m.Text,
		"isAi":      m.IsAi,
		"timestamp": m.Timestamp,
	}
}

func decodeMessage(doc remote.Document) (domain.AiMessage, error) {
	if _, ok := doc.Fields["text"]; !ok {
		return domain.AiMessage{}, fmt.Errorf("decodeMessage %s: missing text", doc.ID)
	}
	return domain.AiMessage{
		RemoteID:  doc.ID,
		Text:      str(doc.Fields, "text"),
		IsAi:      boolField(doc.Fields, "isAi"),
		Timestamp: i64(doc.Fields, "timestamp"),
	}, nil
}

// Loose readers: the document store hands numbers back as int64 or float64
// depending on the client, so both are accepted.

func str(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func i64(fields map[string]any, key string) int64 {
	switch v := fields[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func f64(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func boolField(fields map[string]any, key string) bool {
	b, _ := fields[key].(bool)
	return b
}
