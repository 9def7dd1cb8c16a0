package kv

import "context"

// Store is a string key-value store. Get reports found=false for a missing
// key; err is reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}
