package ports

import "context"

// KVStore is the durable key/value persistence behind the credential store.
// Implementations must apply SetMany and Delete atomically.
type KVStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetMany writes every pair in a single operation.
	SetMany(ctx context.Context, values map[string]string) error
	// Delete removes all keys in a single operation. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
