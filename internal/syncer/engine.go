// Package syncer keeps the local store and the remote document store
// converging: a one-shot bulk pull at startup, live listeners applying remote
// deltas, and an upload path pushing local-origin mutations with retry.
package syncer

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/store"
)

const (
	// maxAttempts bounds retries of one remote call on transient failure.
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
	// resyncInterval re-scans unsynced records even without a nudge, which
	// is what picks work back up after an outage.
	resyncInterval = 30 * time.Second
)

// syncedCollections are the per-user collections the engine mirrors. The
// users collection belongs to identity provisioning, not the engine.
var syncedCollections = []string{
	remote.CollectionTransactions,
	remote.CollectionScheduled,
	remote.CollectionBudgets,
	remote.CollectionMessages,
}

type deletion struct {
	collection string
	remoteID   string
}

// Engine owns both sync directions. Construct with New, then Start once;
// Start runs the initial bulk pull before any listener attaches, so remote
// snapshots and listener deltas can never double-insert.
type Engine struct {
	store  *store.Store
	remote remote.Store
	log    zerolog.Logger

	locks   *keyedMutex
	wake    chan struct{}
	deletes chan deletion

	mu      stdsync.Mutex
	cancel  context.CancelFunc
	subs    []remote.Subscription
	wg      stdsync.WaitGroup
	started bool
}

// New creates an engine. Nothing runs until Start.
func New(st *store.Store, rs remote.Store, log zerolog.Logger) *Engine {
	return &Engine{
		store:   st,
		remote:  rs,
		log:     log.With().Str("component", "syncer").Logger(),
		locks:   newKeyedMutex(),
		wake:    make(chan struct{}, 1),
		deletes: make(chan deletion, 64),
	}
}

// Start performs the initial sync and then attaches listeners and the upload
// worker. It fails fast if the bulk pull cannot complete. Start may be called
// again after Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("syncer.Start: already started")
	}

	ctx, cancel := context.WithCancel(ctx)

	if err := e.initialSync(ctx); err != nil {
		cancel()
		return fmt.Errorf("syncer.Start: %w", err)
	}

	var subs []remote.Subscription
	for _, collection := range syncedCollections {
		sub, err := e.remote.Listen(ctx, collection)
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			cancel()
			return fmt.Errorf("syncer.Start: listen %s: %w", collection, err)
		}
		subs = append(subs, sub)
	}

	e.cancel = cancel
	e.subs = subs
	e.started = true

	for i, collection := range syncedCollections {
		e.wg.Add(1)
		go e.listen(ctx, collection, subs[i])
	}
	e.wg.Add(1)
	go e.uploadLoop(ctx)
	e.wg.Add(1)
	go e.deleteLoop(ctx)

	// First upload pass picks up anything left unsynced across restarts.
	e.Notify()

	e.log.Info().Msg("Sync engine started")
	return nil
}

// Stop cancels listeners and workers and waits for them to drain. In-flight
// per-record merges complete; nothing is left half-applied.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	cancel, subs := e.cancel, e.subs
	e.cancel, e.subs, e.started = nil, nil, false
	e.mu.Unlock()

	cancel()
	for _, sub := range subs {
		sub.Close()
	}
	e.wg.Wait()
	e.log.Info().Msg("Sync engine stopped")
}

// Notify nudges the upload worker to scan for unsynced records now. Safe to
// call from any goroutine, started or not; pending nudges conflate.
func (e *Engine) Notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// EnqueueDelete schedules a best-effort remote delete. The local delete has
// already happened and stays authoritative locally whatever the outcome.
func (e *Engine) EnqueueDelete(collection, remoteID string) {
	if remoteID == "" {
		return
	}
	select {
	case e.deletes <- deletion{collection: collection, remoteID: remoteID}:
	default:
		e.log.Warn().
			Str("collection", collection).
			Str("remote_id", remoteID).
			Msg("Delete queue full, dropping remote delete")
	}
}

func (e *Engine) uploadLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		case <-ticker.C:
		}
		e.uploadPass(ctx)
	}
}

// uploadPass pushes every unsynced record once. Failures stay unsynced and
// are retried on the next pass; errors never propagate past the engine.
func (e *Engine) uploadPass(ctx context.Context) {
	e.uploadTransactions(ctx)
	e.uploadScheduled(ctx)
	e.uploadBudgets(ctx)
	e.uploadMessages(ctx)
}

func (e *Engine) deleteLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.deletes:
			err := e.withRetry(ctx, func() error {
				return e.remote.Delete(ctx, d.collection, d.remoteID)
			})
			if err != nil {
				e.log.Warn().
					Err(err).
					Str("collection", d.collection).
					Str("remote_id", d.remoteID).
					Msg("Best-effort remote delete failed")
			}
		}
	}
}

func (e *Engine) listen(ctx context.Context, collection string, sub remote.Subscription) {
	defer e.wg.Done()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			e.apply(ctx, collection, ev)
		}
	}
}

// apply routes one remote delta to the per-kind reconciliation. Each merge is
// atomic per record and idempotent, so replays and upload echoes collapse to
// no-ops.
func (e *Engine) apply(ctx context.Context, collection string, ev remote.Event) {
	switch collection {
	case remote.CollectionTransactions:
		e.applyTransaction(ctx, ev)
	case remote.CollectionScheduled:
		e.applyScheduled(ctx, ev)
	case remote.CollectionBudgets:
		e.applyBudget(ctx, ev)
	case remote.CollectionMessages:
		e.applyMessage(ctx, ev)
	default:
		e.log.Warn().Str("collection", collection).Msg("Delta for unknown collection")
	}
}

// withRetry runs op, retrying transient failures with exponential backoff up
// to maxAttempts. Non-retryable errors return immediately.
func (e *Engine) withRetry(ctx context.Context, op func() error) error {
	backoff := baseBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !errors.Is(err, remote.ErrUnavailable) || attempt >= maxAttempts {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

// logUploadErr reports one failed upload at the right severity. Permission
// failures are terminal for the record until an operator intervenes, so they
// log at error level.
func (e *Engine) logUploadErr(err error, collection string, localID int64) {
	ev := e.log.Warn()
	if errors.Is(err, remote.ErrPermissionDenied) {
		ev = e.log.Error()
	}
	ev.Err(err).
		Str("collection", collection).
		Int64("local_id", localID).
		Msg("Upload failed, record stays unsynced")
}
