package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetValue when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the backend-agnostic keyspace every concrete backend implements.
// Implementations must be observably identical: same results, same errors,
// same ordering. GetArray and GetTx results are deterministic (lexicographic
// membership, newest-first history with ties broken by descending id).
type Store interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DelValue(ctx context.Context, key string) error
	IncrValue(ctx context.Context, key string) error
	// GetMultipleValues returns one entry per key, in key order; missing keys yield "".
	GetMultipleValues(ctx context.Context, keys []string) ([]string, error)

	// GetObject returns an empty object for a missing key.
	GetObject(ctx context.Context, key string) (*Object, error)
	SetObject(ctx context.Context, key string, obj *Object) error

	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	GetArray(ctx context.Context, key string) ([]string, error)

	IndexTx(ctx context.Context, txType, address, txID string, timestamp int64) error
	CountTx(ctx context.Context, txType, address string) (int64, error)
	GetTx(ctx context.Context, txType, address string, limit, offset int) ([]string, error)

	Close() error
}
