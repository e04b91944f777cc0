package remote

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production Store backed by Cloud Firestore. Documents
// live under users/<uid>/<collection>, except the top-level users collection.
type FirestoreStore struct {
	client *firestore.Client
	userID string
}

// NewFirestore creates a Firestore-backed store partitioned by the verified
// user id. Application Default Credentials are assumed.
func NewFirestore(ctx context.Context, projectID, userID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("remote.NewFirestore: %w", err)
	}
	return &FirestoreStore{client: client, userID: userID}, nil
}

// Close releases the underlying client.
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func (f *FirestoreStore) col(name string) *firestore.CollectionRef {
	if name == CollectionUsers {
		return f.client.Collection(CollectionUsers)
	}
	return f.client.Collection(CollectionUsers).Doc(f.userID).Collection(name)
}

// Create writes a new document with a server-assigned id and a server
// timestamp for merge ordering.
func (f *FirestoreStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := f.col(collection).Add(ctx, stamped(fields))
	if err != nil {
		return "", classify("remote.Create", err)
	}
	return ref.ID, nil
}

// Update overwrites the document's fields and refreshes the server timestamp.
func (f *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := f.col(collection).Doc(id).Set(ctx, stamped(fields)); err != nil {
		return classify("remote.Update", err)
	}
	return nil
}

// Delete removes the document. Firestore treats deleting a missing document
// as success, matching the contract.
func (f *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.col(collection).Doc(id).Delete(ctx); err != nil {
		return classify("remote.Delete", err)
	}
	return nil
}

// GetAll returns a full snapshot of the collection.
func (f *FirestoreStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	iter := f.col(collection).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("remote.GetAll", err)
		}
		out = append(out, Document{
			ID:     snap.Ref.ID,
			Fields: snap.Data(),
		})
	}
	return out, nil
}

// Listen opens a snapshot listener on the collection. The first snapshot
// replays the current contents as Added events; the sync engine's merges are
// idempotent so the replay is harmless after initial sync.
func (f *FirestoreStore) Listen(ctx context.Context, collection string) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &firestoreSub{
		events: make(chan Event, 16),
		cancel: cancel,
	}

	snaps := f.col(collection).Snapshots(ctx)
	go func() {
		defer close(sub.events)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				// Cancelled or the stream died; the engine restarts
				// listeners with a fresh Start.
				return
			}
			for _, change := range snap.Changes {
				ev := Event{
					Doc: Document{
						ID:     change.Doc.Ref.ID,
						Fields: change.Doc.Data(),
					},
				}
				switch change.Kind {
				case firestore.DocumentAdded:
					ev.Kind = Added
				case firestore.DocumentModified:
					ev.Kind = Modified
				case firestore.DocumentRemoved:
					ev.Kind = Removed
				}
				select {
				case sub.events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub, nil
}

type firestoreSub struct {
	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

func (s *firestoreSub) Events() <-chan Event {
	return s.events
}

func (s *firestoreSub) Close() {
	s.once.Do(s.cancel)
}

// stamped copies fields and attaches the server-side merge-ordering
// timestamp. The input map is never mutated.
func stamped(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updatedAt"] = firestore.ServerTimestamp
	return out
}

// classify maps grpc status codes onto the package error taxonomy so callers
// can branch with errors.Is.
func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%s: %w: %v", op, ErrPermissionDenied, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
