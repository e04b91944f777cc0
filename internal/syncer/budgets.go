package syncer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/store"
)

func (e *Engine) uploadBudgets(ctx context.Context) {
	recs, err := e.store.UnsyncedBudgets(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Scanning unsynced budgets failed")
		return
	}
	for _, rec := range recs {
		if err := e.uploadBudget(ctx, rec); err != nil {
			e.logUploadErr(err, remote.CollectionBudgets, rec.ID)
		}
	}
}

func (e *Engine) uploadBudget(ctx context.Context, rec domain.Budget) error {
	fields := encodeBudget(rec)

	if rec.RemoteID == "" {
		var remoteID string
		err := e.withRetry(ctx, func() error {
			id, err := e.remote.Create(ctx, remote.CollectionBudgets, fields)
			remoteID = id
			return err
		})
		if err != nil {
			return err
		}

		release := e.locks.lock(lockKey(remote.CollectionBudgets, remoteID))
		defer release()

		cur, err := e.store.GetBudget(ctx, rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			e.EnqueueDelete(remote.CollectionBudgets, remoteID)
			return nil
		}
		if err != nil {
			return err
		}
		cur.RemoteID = remoteID
		cur.Synced = cur.SameValues(rec)
		return e.store.UpdateBudget(ctx, cur)
	}

	err := e.withRetry(ctx, func() error {
		return e.remote.Update(ctx, remote.CollectionBudgets, rec.RemoteID, fields)
	})
	if err != nil {
		return err
	}

	release := e.locks.lock(lockKey(remote.CollectionBudgets, rec.RemoteID))
	defer release()

	cur, err := e.store.GetBudget(ctx, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !cur.Synced && cur.SameValues(rec) {
		cur.Synced = true
		return e.store.UpdateBudget(ctx, cur)
	}
	return nil
}

func (e *Engine) applyBudget(ctx context.Context, ev remote.Event) {
	release := e.locks.lock(lockKey(remote.CollectionBudgets, ev.Doc.ID))
	defer release()

	log := e.log.With().
		Str("collection", remote.CollectionBudgets).
		Str("remote_id", ev.Doc.ID).
		Logger()

	if ev.Kind == remote.Removed {
		cur, err := e.store.GetBudgetByRemoteID(ctx, ev.Doc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Applying remote delete failed")
			return
		}
		if err := e.store.DeleteBudget(ctx, cur.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("Applying remote delete failed")
		}
		return
	}

	in, err := decodeBudget(ev.Doc)
	if err != nil {
		log.Warn().Err(err).Msg("Skipping malformed remote budget")
		return
	}
	in.Synced = true

	cur, err := e.store.GetBudgetByRemoteID(ctx, ev.Doc.ID)
	if errors.Is(err, store.ErrNotFound) {
		e.mergeBudgetByCategory(ctx, log, in)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Applying remote budget failed")
		return
	}

	in.ID = cur.ID
	if cur.Equal(in) {
		return
	}
	if err := e.store.UpdateBudget(ctx, in); err != nil {
		log.Error().Err(err).Msg("Applying remote budget failed")
	}
}

// mergeBudgetByCategory reconciles a remote budget whose id matches no local
// record. At most one budget exists per category, so the document folds into
// the local budget for its category, adopting the remote id and superseding
// any pending local edit. This also covers the upload echo, where the pending
// record carries the same values. Only with no local budget for the category
// does the document insert fresh.
func (e *Engine) mergeBudgetByCategory(ctx context.Context, log zerolog.Logger, in domain.Budget) {
	cur, err := e.store.GetBudgetByCategory(ctx, in.Category)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := e.store.PutBudget(ctx, in); err != nil {
			log.Error().Err(err).Msg("Inserting remote budget failed")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Applying remote budget failed")
		return
	}

	in.ID = cur.ID
	if cur.Equal(in) {
		return
	}
	if err := e.store.UpdateBudget(ctx, in); err != nil {
		log.Error().Err(err).Msg("Applying remote budget failed")
	}
}

func (e *Engine) initialBudgets(ctx context.Context) error {
	docs, err := e.remote.GetAll(ctx, remote.CollectionBudgets)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		e.applyBudget(ctx, remote.Event{Kind: remote.Added, Doc: doc})
	}

	locals, err := e.store.ListBudgets(ctx)
	if err != nil {
		return err
	}
	for _, rec := range locals {
		if Synced(rec.Synced, rec.RemoteID) && !seen[rec.RemoteID] {
			if err := e.store.DeleteBudget(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}
