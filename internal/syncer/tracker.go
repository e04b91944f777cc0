package syncer

// Synced reports whether a record has converged with the remote store: it
// must both carry a remote document id and have its sync flag set. This is a
// derived view over local-store fields; there is no separate tracker state.
func Synced(synced bool, remoteID string) bool {
	return synced && remoteID != ""
}
