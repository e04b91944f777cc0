package store

import (
	"context"

	"github.com/dvloznov/spendwise/internal/domain"
)

// Watch streams emit the current snapshot immediately on subscription and
// again after every write to the kind, deduplicated: a write that leaves the
// snapshot value-equal to the last emission produces nothing. Delivery is
// conflated (latest snapshot wins) so a slow consumer never blocks writers.
// The channel closes when ctx is done.

// WatchTransactions streams transaction list snapshots.
func (s *Store) WatchTransactions(ctx context.Context) <-chan []domain.Transaction {
	return watchKind(ctx, s, KindTransactions, s.ListTransactions, transactionsEqual)
}

// WatchScheduled streams scheduled-transaction list snapshots.
func (s *Store) WatchScheduled(ctx context.Context) <-chan []domain.ScheduledTransaction {
	return watchKind(ctx, s, KindScheduled, s.ListScheduled, scheduledEqual)
}

// WatchBudgets streams budget list snapshots.
func (s *Store) WatchBudgets(ctx context.Context) <-chan []domain.Budget {
	return watchKind(ctx, s, KindBudgets, s.ListBudgets, budgetsEqual)
}

// WatchMessages streams chat history snapshots.
func (s *Store) WatchMessages(ctx context.Context) <-chan []domain.AiMessage {
	return watchKind(ctx, s, KindMessages, s.ListMessages, messagesEqual)
}

func watchKind[T any](ctx context.Context, s *Store, kind Kind,
	list func(context.Context) ([]T, error), equal func(a, b []T) bool) <-chan []T {

	out := make(chan []T, 1)
	trigger := s.subscribe(kind)

	go func() {
		defer close(out)
		defer s.unsubscribe(kind, trigger)

		var last []T
		emitted := false

		emit := func() {
			snap, err := list(ctx)
			if err != nil {
				return
			}
			if emitted && equal(last, snap) {
				return
			}
			last, emitted = snap, true
			// Conflate: replace a pending snapshot rather than block.
			for {
				select {
				case out <- snap:
					return
				case <-ctx.Done():
					return
				default:
				}
				select {
				case <-out:
				default:
				}
			}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				emit()
			}
		}
	}()

	return out
}

func transactionsEqual(a, b []domain.Transaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func scheduledEqual(a, b []domain.ScheduledTransaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func budgetsEqual(a, b []domain.Budget) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func messagesEqual(a, b []domain.AiMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
