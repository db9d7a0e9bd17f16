package redis

import (
	"context"
	"errors"
	"slices"

	"github.com/ltonetwork/indexer/pkg/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store implements storage.Store on a shared Redis deployment (single node or cluster).
// Objects are JSON strings, sets are Redis sets and transaction history is a sorted
// set scored by timestamp.
type Store struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// New wraps an already connected client.
func New(client redis.UniversalClient, logger *zap.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	return v, err
}

func (s *Store) SetValue(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *Store) DelValue(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *Store) IncrValue(ctx context.Context, key string) error {
	return s.client.Incr(ctx, key).Err()
}

// GetMultipleValues pipelines plain GETs rather than MGET so keys may live in
// different cluster slots.
func (s *Store) GetMultipleValues(ctx context.Context, keys []string) ([]string, error) {
	out := make([]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.Get(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, cmd := range cmds {
		v, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Store) GetObject(ctx context.Context, key string) (*storage.Object, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return storage.NewObject(), nil
	}
	if err != nil {
		return nil, err
	}
	return storage.DecodeObject(v)
}

func (s *Store) SetObject(ctx context.Context, key string, obj *storage.Object) error {
	data, err := storage.EncodeObject(obj)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *Store) SAdd(ctx context.Context, key, member string) error {
	return s.client.SAdd(ctx, key, member).Err()
}

func (s *Store) SRem(ctx context.Context, key, member string) error {
	return s.client.SRem(ctx, key, member).Err()
}

// GetArray returns the set members sorted, matching the embedded backend.
func (s *Store) GetArray(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(members)
	return members, nil
}

// IndexTx keeps the first timestamp seen for txID so redelivery is a no-op.
func (s *Store) IndexTx(ctx context.Context, txType, address, txID string, timestamp int64) error {
	return s.client.ZAddNX(ctx, storage.TxIndexKey(txType, address), redis.Z{
		Score:  float64(timestamp),
		Member: txID,
	}).Err()
}

func (s *Store) CountTx(ctx context.Context, txType, address string) (int64, error) {
	return s.client.ZCard(ctx, storage.TxIndexKey(txType, address)).Result()
}

func (s *Store) GetTx(ctx context.Context, txType, address string, limit, offset int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	start := int64(offset)
	return s.client.ZRevRange(ctx, storage.TxIndexKey(txType, address), start, start+int64(limit)-1).Result()
}

func (s *Store) Close() error {
	return s.client.Close()
}
