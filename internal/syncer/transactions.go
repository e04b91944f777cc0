package syncer

import (
	"context"
	"errors"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/store"
)

func (e *Engine) uploadTransactions(ctx context.Context) {
	recs, err := e.store.UnsyncedTransactions(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Scanning unsynced transactions failed")
		return
	}
	for _, rec := range recs {
		if err := e.uploadTransaction(ctx, rec); err != nil {
			e.logUploadErr(err, remote.CollectionTransactions, rec.ID)
		}
	}
}

func (e *Engine) uploadTransaction(ctx context.Context, rec domain.Transaction) error {
	fields := encodeTransaction(rec)

	if rec.RemoteID == "" {
		var remoteID string
		err := e.withRetry(ctx, func() error {
			id, err := e.remote.Create(ctx, remote.CollectionTransactions, fields)
			remoteID = id
			return err
		})
		if err != nil {
			return err
		}

		release := e.locks.lock(lockKey(remote.CollectionTransactions, remoteID))
		defer release()

		cur, err := e.store.GetTransaction(ctx, rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted locally while the create was in flight.
			e.EnqueueDelete(remote.CollectionTransactions, remoteID)
			return nil
		}
		if err != nil {
			return err
		}
		cur.RemoteID = remoteID
		// A concurrent local edit keeps the record unsynced so the new
		// values get their own upload.
		cur.Synced = cur.SameValues(rec)
		return e.store.UpdateTransaction(ctx, cur)
	}

	err := e.withRetry(ctx, func() error {
		return e.remote.Update(ctx, remote.CollectionTransactions, rec.RemoteID, fields)
	})
	if err != nil {
		return err
	}

	release := e.locks.lock(lockKey(remote.CollectionTransactions, rec.RemoteID))
	defer release()

	cur, err := e.store.GetTransaction(ctx, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !cur.Synced && cur.SameValues(rec) {
		cur.Synced = true
		return e.store.UpdateTransaction(ctx, cur)
	}
	return nil
}

func (e *Engine) applyTransaction(ctx context.Context, ev remote.Event) {
	release := e.locks.lock(lockKey(remote.CollectionTransactions, ev.Doc.ID))
	defer release()

	log := e.log.With().
		Str("collection", remote.CollectionTransactions).
		Str("remote_id", ev.Doc.ID).
		Logger()

	if ev.Kind == remote.Removed {
		cur, err := e.store.GetTransactionByRemoteID(ctx, ev.Doc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Applying remote delete failed")
			return
		}
		if err := e.store.DeleteTransaction(ctx, cur.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("Applying remote delete failed")
		}
		return
	}

	in, err := decodeTransaction(ev.Doc)
	if err != nil {
		log.Warn().Err(err).Msg("Skipping malformed remote transaction")
		return
	}
	in.Synced = true

	cur, err := e.store.GetTransactionByRemoteID(ctx, ev.Doc.ID)
	if errors.Is(err, store.ErrNotFound) {
		// The document may be our own create echoing back before the id
		// was recorded locally. Adopt a value-equal pending record instead
		// of inserting a duplicate.
		adopted, aerr := e.adoptTransactionEcho(ctx, in)
		if aerr != nil {
			log.Error().Err(aerr).Msg("Adopting upload echo failed")
			return
		}
		if adopted {
			return
		}
		if _, err := e.store.PutTransaction(ctx, in); err != nil {
			log.Error().Err(err).Msg("Inserting remote transaction failed")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Applying remote transaction failed")
		return
	}

	in.ID = cur.ID
	// Photo and location survive a remote document that omits them.
	if in.PhotoURI == "" {
		in.PhotoURI = cur.PhotoURI
	}
	if in.Location == nil {
		in.Location = cur.Location
	}
	if cur.Equal(in) {
		return
	}
	if err := e.store.UpdateTransaction(ctx, in); err != nil {
		log.Error().Err(err).Msg("Applying remote transaction failed")
	}
}

func (e *Engine) adoptTransactionEcho(ctx context.Context, in domain.Transaction) (bool, error) {
	pending, err := e.store.UnsyncedTransactions(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range pending {
		if rec.RemoteID == "" && rec.SameValues(in) {
			rec.RemoteID = in.RemoteID
			rec.Synced = true
			if err := e.store.UpdateTransaction(ctx, rec); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) initialTransactions(ctx context.Context) error {
	docs, err := e.remote.GetAll(ctx, remote.CollectionTransactions)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		e.applyTransaction(ctx, remote.Event{Kind: remote.Added, Doc: doc})
	}

	locals, err := e.store.ListTransactions(ctx)
	if err != nil {
		return err
	}
	for _, rec := range locals {
		// A synced record missing from the remote snapshot was deleted on
		// another device. Unsynced records are pending uploads and stay.
		if Synced(rec.Synced, rec.RemoteID) && !seen[rec.RemoteID] {
			if err := e.store.DeleteTransaction(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}
