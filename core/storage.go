package core

import "context"

// Storage is the durable client storage: a string keyed store of serialized records
// that survives process restarts.
type Storage interface {
	// Load returns (nil, nil) when key holds nothing.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	// Delete does not fail when key holds nothing.
	Delete(ctx context.Context, key string) error
	Close() error
}
