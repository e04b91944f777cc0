package syncer

import (
	"context"
	"fmt"
)

// initialSync reconciles every collection against a full remote snapshot
// before any listener attaches. Remote documents are upserted through the
// same merge path the listeners use; synced local records absent from the
// snapshot are removed, unsynced ones are kept for upload.
func (e *Engine) initialSync(ctx context.Context) error {
	if err := e.initialTransactions(ctx); err != nil {
		return fmt.Errorf("initial sync transactions: %w", err)
	}
	if err := e.initialScheduled(ctx); err != nil {
		return fmt.Errorf("initial sync scheduled transactions: %w", err)
	}
	if err := e.initialBudgets(ctx); err != nil {
		return fmt.Errorf("initial sync budgets: %w", err)
	}
	if err := e.initialMessages(ctx); err != nil {
		return fmt.Errorf("initial sync messages: %w", err)
	}
	e.log.Info().Msg("Initial sync complete")
	return nil
}
