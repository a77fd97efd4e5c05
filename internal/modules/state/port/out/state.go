package out

import "context"

// KVStore is the durable key-value store the game document lives in.
type KVStore interface {
	// Get returns found=false when key has never been written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
