package storage

import "context"

// DraftCache is the local key/value store that keeps monthly drafts across
// restarts before they reach the remote store.
type DraftCache interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
