package syncer

import (
	"context"
	"errors"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/store"
)

func (e *Engine) uploadScheduled(ctx context.Context) {
	recs, err := e.store.UnsyncedScheduled(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Scanning unsynced scheduled transactions failed")
		return
	}
	for _, rec := range recs {
		if err := e.uploadOneScheduled(ctx, rec); err != nil {
			e.logUploadErr(err, remote.CollectionScheduled, rec.ID)
		}
	}
}

func (e *Engine) uploadOneScheduled(ctx context.Context, rec domain.ScheduledTransaction) error {
	fields := encodeScheduled(rec)

	if rec.RemoteID == "" {
		var remoteID string
		err := e.withRetry(ctx, func() error {
			id, err := e.remote.Create(ctx, remote.CollectionScheduled, fields)
			remoteID = id
			return err
		})
		if err != nil {
			return err
		}

		release := e.locks.lock(lockKey(remote.CollectionScheduled, remoteID))
		defer release()

		cur, err := e.store.GetScheduled(ctx, rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			e.EnqueueDelete(remote.CollectionScheduled, remoteID)
			return nil
		}
		if err != nil {
			return err
		}
		cur.RemoteID = remoteID
		cur.Synced = cur.SameValues(rec)
		return e.store.UpdateScheduled(ctx, cur)
	}

	err := e.withRetry(ctx, func() error {
		return e.remote.Update(ctx, remote.CollectionScheduled, rec.RemoteID, fields)
	})
	if err != nil {
		return err
	}

	release := e.locks.lock(lockKey(remote.CollectionScheduled, rec.RemoteID))
	defer release()

	cur, err := e.store.GetScheduled(ctx, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !cur.Synced && cur.SameValues(rec) {
		cur.Synced = true
		return e.store.UpdateScheduled(ctx, cur)
	}
	return nil
}

func (e *Engine) applyScheduled(ctx context.Context, ev remote.Event) {
	release := e.locks.lock(lockKey(remote.CollectionScheduled, ev.Doc.ID))
	defer release()

	log := e.log.With().
		Str("collection", remote.CollectionScheduled).
		Str("remote_id", ev.Doc.ID).
		Logger()

	if ev.Kind == remote.Removed {
		cur, err := e.store.GetScheduledByRemoteID(ctx, ev.Doc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Applying remote delete failed")
			return
		}
		if err := e.store.DeleteScheduled(ctx, cur.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("Applying remote delete failed")
		}
		return
	}

	in, err := decodeScheduled(ev.Doc)
	if err != nil {
		log.Warn().Err(err).Msg("Skipping malformed remote scheduled transaction")
		return
	}
	in.Synced = true

	cur, err := e.store.GetScheduledByRemoteID(ctx, ev.Doc.ID)
	if errors.Is(err, store.ErrNotFound) {
		adopted, aerr := e.adoptScheduledEcho(ctx, in)
		if aerr != nil {
			log.Error().Err(aerr).Msg("Adopting upload echo failed")
			return
		}
		if adopted {
			return
		}
		if _, err := e.store.PutScheduled(ctx, in); err != nil {
			log.Error().Err(err).Msg("Inserting remote scheduled transaction failed")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Applying remote scheduled transaction failed")
		return
	}

	in.ID = cur.ID
	if in.PhotoURI == "" {
		in.PhotoURI = cur.PhotoURI
	}
	if in.Location == nil {
		in.Location = cur.Location
	}
	if cur.Equal(in) {
		return
	}
	if err := e.store.UpdateScheduled(ctx, in); err != nil {
		log.Error().Err(err).Msg("Applying remote scheduled transaction failed")
	}
}

func (e *Engine) adoptScheduledEcho(ctx context.Context, in domain.ScheduledTransaction) (bool, error) {
	pending, err := e.store.UnsyncedScheduled(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range pending {
		if rec.RemoteID == "" && rec.SameValues(in) {
			rec.RemoteID = in.RemoteID
			rec.Synced = true
			if err := e.store.UpdateScheduled(ctx, rec); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) initialScheduled(ctx context.Context) error {
	docs, err := e.remote.GetAll(ctx, remote.CollectionScheduled)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		e.applyScheduled(ctx, remote.Event{Kind: remote.Added, Doc: doc})
	}

	locals, err := e.store.ListScheduled(ctx)
	if err != nil {
		return err
	}
	for _, rec := range locals {
		if Synced(rec.Synced, rec.RemoteID) && !seen[rec.RemoteID] {
			if err := e.store.DeleteScheduled(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}
