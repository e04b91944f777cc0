// Package remote defines the remote document store contract the sync engine
// runs against, plus error classification shared by its implementations.
package remote

import (
	"context"
	"errors"
)

// Remote collection names. All but CollectionUsers live under the
// authenticated user's partition; CollectionUsers is the top-level profile
// collection used by identity provisioning.
const (
	CollectionTransactions = "transactions"
	CollectionScheduled    = "scheduledTransactions"
	CollectionBudgets      = "budgets"
	CollectionMessages     = "aiMessages"
	CollectionUsers        = "users"
)

// ErrUnavailable marks a transient network or service failure. The upload
// path retries these with backoff.
var ErrUnavailable = errors.New("remote: unavailable")

// ErrPermissionDenied marks a non-retryable authorization failure. The
// affected record stays unsynced indefinitely.
var ErrPermissionDenied = errors.New("remote: permission denied")

// Document is one remote record. ID is the server-assigned document key and
// is never part of Fields. The merge rule is remote-wins, so no server
// timestamp travels with the document.
type Document struct {
	ID     string
	Fields map[string]any
}

// EventKind tags a listener delta.
type EventKind int

const (
	Added EventKind = iota
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is one remote delta. For Removed only Doc.ID is meaningful. Events
// arrive in server order per document; there is no cross-document ordering.
type Event struct {
	Kind EventKind
	Doc  Document
}

// Subscription is a live listener on one collection. Close is idempotent.
type Subscription interface {
	// Events yields deltas until the subscription is closed or its context
	// is cancelled. Consumers select against their own context rather than
	// relying on channel closure.
	Events() <-chan Event
	Close()
}

// Store is the remote document store.
type Store interface {
	// Create writes a new document and returns the server-assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update overwrites the document's fields.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// GetAll returns a full snapshot of the collection.
	GetAll(ctx context.Context, collection string) ([]Document, error)
	// Listen opens a live subscription on the collection.
	Listen(ctx context.Context, collection string) (Subscription, error)
}
