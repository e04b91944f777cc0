// Package memory is an in-memory remote.Store. It backs offline mode and the
// sync engine tests: it emits listener events for its own writes the way a
// real document store echoes uploads back, and supports failure injection.
// Data is lost on process exit.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dvloznov/spendwise/internal/remote"
)

// Store is an in-memory implementation of remote.Store. Safe for concurrent
// use.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]remote.Document
	subs        map[string][]*subscription
	forced      error
	createCalls map[string]int
	updateCalls map[string]int
	deleteCalls map[string]int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]remote.Document),
		subs:        make(map[string][]*subscription),
		createCalls: make(map[string]int),
		updateCalls: make(map[string]int),
		deleteCalls: make(map[string]int),
	}
}

// SetError forces every subsequent mutating call to fail with err until
// cleared with nil. Used to simulate outages.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = err
}

// CreateCalls reports how many Create calls the collection has seen,
// including failed ones.
func (s *Store) CreateCalls(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls[collection]
}

// UpdateCalls reports how many Update calls the collection has seen.
func (s *Store) UpdateCalls(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCalls[collection]
}

// DeleteCalls reports how many Delete calls the collection has seen.
func (s *Store) DeleteCalls(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls[collection]
}

// Create implements remote.Store.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	s.createCalls[collection]++
	if s.forced != nil {
		err := s.forced
		s.mu.Unlock()
		return "", err
	}
	doc := remote.Document{
		ID:     uuid.NewString(),
		Fields: copyFields(fields),
	}
	s.put(collection, doc)
	subs := s.subscribers(collection)
	s.mu.Unlock()

	deliver(subs, remote.Event{Kind: remote.Added, Doc: doc})
	return doc.ID, nil
}

// Update implements remote.Store. Like a document-store Set, it upserts.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	s.updateCalls[collection]++
	if s.forced != nil {
		err := s.forced
		s.mu.Unlock()
		return err
	}
	_, existed := s.collections[collection][id]
	doc := remote.Document{
		ID:     id,
		Fields: copyFields(fields),
	}
	s.put(collection, doc)
	subs := s.subscribers(collection)
	s.mu.Unlock()

	kind := remote.Modified
	if !existed {
		kind = remote.Added
	}
	deliver(subs, remote.Event{Kind: kind, Doc: doc})
	return nil
}

// Delete implements remote.Store. Deleting a missing document succeeds.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	s.deleteCalls[collection]++
	if s.forced != nil {
		err := s.forced
		s.mu.Unlock()
		return err
	}
	doc, existed := s.collections[collection][id]
	if existed {
		delete(s.collections[collection], id)
	}
	subs := s.subscribers(collection)
	s.mu.Unlock()

	if existed {
		deliver(subs, remote.Event{Kind: remote.Removed, Doc: remote.Document{ID: doc.ID}})
	}
	return nil
}

// GetAll implements remote.Store.
func (s *Store) GetAll(ctx context.Context, collection string) ([]remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forced != nil {
		return nil, s.forced
	}
	var out []remote.Document
	for _, doc := range s.collections[collection] {
		out = append(out, remote.Document{
			ID:     doc.ID,
			Fields: copyFields(doc.Fields),
		})
	}
	return out, nil
}

// Listen implements remote.Store.
func (s *Store) Listen(ctx context.Context, collection string) (remote.Subscription, error) {
	sub := &subscription{
		events: make(chan remote.Event, 64),
		done:   make(chan struct{}),
	}
	sub.closer = func() {
		s.mu.Lock()
		subs := s.subs[collection]
		for i, c := range subs {
			if c == sub {
				s.subs[collection] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(sub.done)
	}

	s.mu.Lock()
	s.subs[collection] = append(s.subs[collection], sub)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Inject seeds or overwrites a document without counting as a client call and
// emits the matching event, simulating a delta written by another device.
// An empty doc id gets a generated one. Returns the document id.
func (s *Store) Inject(collection string, doc remote.Document) string {
	s.mu.Lock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Fields = copyFields(doc.Fields)
	_, existed := s.collections[collection][doc.ID]
	s.put(collection, doc)
	subs := s.subscribers(collection)
	s.mu.Unlock()

	kind := remote.Added
	if existed {
		kind = remote.Modified
	}
	deliver(subs, remote.Event{Kind: kind, Doc: doc})
	return doc.ID
}

// RemoveRemote deletes a document as another device would, emitting Removed.
func (s *Store) RemoveRemote(collection, id string) {
	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	subs := s.subscribers(collection)
	s.mu.Unlock()

	if existed {
		deliver(subs, remote.Event{Kind: remote.Removed, Doc: remote.Document{ID: id}})
	}
}

// Emit re-delivers an event verbatim to every listener on the collection.
// Tests use it to replay duplicate deltas.
func (s *Store) Emit(collection string, ev remote.Event) {
	s.mu.Lock()
	subs := s.subscribers(collection)
	s.mu.Unlock()
	deliver(subs, ev)
}

// Doc returns the stored document and whether it exists.
func (s *Store) Doc(collection, id string) (remote.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return remote.Document{}, false
	}
	doc.Fields = copyFields(doc.Fields)
	return doc, true
}

// Len reports the number of documents in the collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// put stores the document. Caller holds the lock.
func (s *Store) put(collection string, doc remote.Document) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]remote.Document)
	}
	s.collections[collection][doc.ID] = doc
}

// subscribers snapshots the listener list. Caller holds the lock.
func (s *Store) subscribers(collection string) []*subscription {
	subs := make([]*subscription, len(s.subs[collection]))
	copy(subs, s.subs[collection])
	return subs
}

func deliver(subs []*subscription, ev remote.Event) {
	for _, sub := range subs {
		select {
		case sub.events <- ev:
		case <-sub.done:
		}
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

type subscription struct {
	events chan remote.Event
	done   chan struct{}
	once   sync.Once
	closer func()
}

func (s *subscription) Events() <-chan remote.Event {
	return s.events
}

func (s *subscription) Close() {
	s.once.Do(s.closer)
}

var _ remote.Store = (*Store)(nil)
