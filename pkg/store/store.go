// Package store provides the durable string-keyed map the engine persists
// into. It is a boundary, not a source of truth: absence of a key is an
// expected state and durability is best effort.
package store

import "context"

// Store is a synchronous string-keyed get/set/remove map.
// Get returns apperrors.ErrNotFound when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
