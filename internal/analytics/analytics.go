// Package analytics exports local records to a BigQuery dataset for ad-hoc
// trend analysis. The export is one-way and read-only over the local store.
package analytics

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/report"
)

const (
	transactionsTable = "transactions"
	reportsTable      = "report_snapshots"
)

// TransactionRow is the BigQuery shape of one transaction.
type TransactionRow struct {
	UserID   string              `bigquery:"user_id"`
	RemoteID bigquery.NullString `bigquery:"remote_id"`

	Date     civil.Date          `bigquery:"transaction_date"`
	Type     string              `bigquery:"type"`
	Category string              `bigquery:"category"`
	Amount   *big.Rat            `bigquery:"amount"`
	Note     bigquery.NullString `bigquery:"note"`

	LocationFull bigquery.NullString `bigquery:"location_full"`

	ExportedAt time.Time `bigquery:"exported_at"`
}

// Exporter writes rows into one project/dataset.
type Exporter struct {
	client  *bigquery.Client
	dataset string
	userID  string
}

func NewExporter(ctx context.Context, projectID, dataset, userID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analytics.NewExporter: bigquery client: %w", err)
	}
	return &Exporter{client: client, dataset: dataset, userID: userID}, nil
}

func (e *Exporter) Close() error {
	return e.client.Close()
}

// ExportTransactions inserts all given transactions in one batch.
func (e *Exporter) ExportTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, e.row(tx, now))
	}

	inserter := e.client.Dataset(e.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("analytics.ExportTransactions: inserting rows: %w", err)
	}
	return nil
}

// ReportRow is one line of an exported report snapshot. A snapshot is one
// totals row (null category) plus one row per expense category, all sharing
// a run id.
type ReportRow struct {
	RunID    string              `bigquery:"run_id"`
	UserID   string              `bigquery:"user_id"`
	Date     civil.Date          `bigquery:"report_date"`
	Category bigquery.NullString `bigquery:"category"`
	Income   *big.Rat            `bigquery:"income"`
	Expense  *big.Rat            `bigquery:"expense"`
	Net      *big.Rat            `bigquery:"net"`
}

// ExportReport computes the aggregates over the snapshot and inserts them as
// one report run.
func (e *Exporter) ExportReport(ctx context.Context, txs []domain.Transaction, now time.Time) error {
	totals := report.Compute(txs)
	date := civil.DateOf(now.UTC())
	runID := uuid.NewString()

	rows := []*ReportRow{{
		RunID:   runID,
		UserID:  e.userID,
		Date:    date,
		Income:  totals.Income.Rat(),
		Expense: totals.Expense.Rat(),
		Net:     totals.Net.Rat(),
	}}
	for category, spent := range report.ExpenseByCategory(txs) {
		rows = append(rows, &ReportRow{
			RunID:    runID,
			UserID:   e.userID,
			Date:     date,
			Category: bigquery.NullString{StringVal: string(category), Valid: true},
			Expense:  spent.Rat(),
		})
	}

	inserter := e.client.Dataset(e.dataset).Table(reportsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("analytics.ExportReport: inserting rows: %w", err)
	}
	return nil
}

func (e *Exporter) row(tx domain.Transaction, exportedAt time.Time) *TransactionRow {
	row := &TransactionRow{
		UserID:     e.userID,
		Date:       civil.DateOf(time.UnixMilli(tx.Timestamp).UTC()),
		Type:       string(tx.Type),
		Category:   string(tx.Category),
		Amount:     tx.Amount.Rat(),
		ExportedAt: exportedAt,
	}
	if tx.RemoteID != "" {
		row.RemoteID = bigquery.NullString{StringVal: tx.RemoteID, Valid: true}
	}
	if tx.Note != "" {
		row.Note = bigquery.NullString{StringVal: tx.Note, Valid: true}
	}
	if tx.Location != nil {
		row.LocationFull = bigquery.NullString{StringVal: tx.Location.Full, Valid: true}
	}
	return row
}
