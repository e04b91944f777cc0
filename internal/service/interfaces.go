package service

import "context"

// SyncEngine is the slice of the sync engine the service needs: a nudge
// after local writes and a best-effort remote delete.
type SyncEngine interface {
	Notify()
	EnqueueDelete(collection, remoteID string)
}

// PhotoUploader stores a local image and returns a durable URI for it.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, filePath string) (string, error)
}
