package syncer

import (
	"context"
	"errors"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/remote"
	"github.com/dvloznov/spendwise/internal/store"
)

func (e *Engine) uploadMessages(ctx context.Context) {
	recs, err := e.store.UnsyncedMessages(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Scanning unsynced messages failed")
		return
	}
	for _, rec := range recs {
		if err := e.uploadMessage(ctx, rec); err != nil {
			e.logUploadErr(err, remote.CollectionMessages, rec.ID)
		}
	}
}

func (e *Engine) uploadMessage(ctx context.Context, rec domain.AiMessage) error {
	fields := encodeMessage(rec)

	if rec.RemoteID == "" {
		var remoteID string
		err := e.withRetry(ctx, func() error {
			id, err := e.remote.Create(ctx, remote.CollectionMessages, fields)
			remoteID = id
			return err
		})
		if err != nil {
			return err
		}

		release := e.locks.lock(lockKey(remote.CollectionMessages, remoteID))
		defer release()

		cur, err := e.store.GetMessage(ctx, rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			e.EnqueueDelete(remote.CollectionMessages, remoteID)
			return nil
		}
		if err != nil {
			return err
		}
		cur.RemoteID = remoteID
		cur.Synced = cur.SameValues(rec)
		return e.store.UpdateMessage(ctx, cur)
	}

	// Messages are immutable once written, but the update path still exists
	// for records that lost their synced flag, for example after a merge.
	err := e.withRetry(ctx, func() error {
		return e.remote.Update(ctx, remote.CollectionMessages, rec.RemoteID, fields)
	})
	if err != nil {
		return err
	}

	release := e.locks.lock(lockKey(remote.CollectionMessages, rec.RemoteID))
	defer release()

	cur, err := e.store.GetMessage(ctx, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !cur.Synced && cur.SameValues(rec) {
		cur.Synced = true
		return e.store.UpdateMessage(ctx, cur)
	}
	return nil
}

func (e *Engine) applyMessage(ctx context.Context, ev remote.Event) {
	release := e.locks.lock(lockKey(remote.CollectionMessages, ev.Doc.ID))
	defer release()

	log := e.log.With().
		Str("collection", remote.CollectionMessages).
		Str("remote_id", ev.Doc.ID).
		Logger()

	if ev.Kind == remote.Removed {
		cur, err := e.store.GetMessageByRemoteID(ctx, ev.Doc.ID)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Applying remote delete failed")
			return
		}
		if err := e.store.DeleteMessage(ctx, cur.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Msg("Applying remote delete failed")
		}
		return
	}

	in, err := decodeMessage(ev.Doc)
	if err != nil {
		log.Warn().Err(err).Msg("Skipping malformed remote message")
		return
	}
	in.Synced = true

	cur, err := e.store.GetMessageByRemoteID(ctx, ev.Doc.ID)
	if errors.Is(err, store.ErrNotFound) {
		adopted, aerr := e.adoptMessageEcho(ctx, in)
		if aerr != nil {
			log.Error().Err(aerr).Msg("Adopting upload echo failed")
			return
		}
		if adopted {
			return
		}
		if _, err := e.store.PutMessage(ctx, in); err != nil {
			log.Error().Err(err).Msg("Inserting remote message failed")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Applying remote message failed")
		return
	}

	in.ID = cur.ID
	if cur.Equal(in) {
		return
	}
	if err := e.store.UpdateMessage(ctx, in); err != nil {
		log.Error().Err(err).Msg("Applying remote message failed")
	}
}

func (e *Engine) adoptMessageEcho(ctx context.Context, in domain.AiMessage) (bool, error) {
	pending, err := e.store.UnsyncedMessages(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range pending {
		if rec.RemoteID == "" && rec.SameValues(in) {
			rec.RemoteID = in.RemoteID
			rec.Synced = true
			if err := e.store.UpdateMessage(ctx, rec); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) initialMessages(ctx context.Context) error {
	docs, err := e.remote.GetAll(ctx, remote.CollectionMessages)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		seen[doc.ID] = true
		e.applyMessage(ctx, remote.Event{Kind: remote.Added, Doc: doc})
	}

	locals, err := e.store.ListMessages(ctx)
	if err != nil {
		return err
	}
	for _, rec := range locals {
		if Synced(rec.Synced, rec.RemoteID) && !seen[rec.RemoteID] {
			if err := e.store.DeleteMessage(ctx, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}
