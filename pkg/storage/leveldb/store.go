package leveldb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ltonetwork/indexer/pkg/storage"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_errors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// key suffixes; keyspace keys never contain a NUL byte
const (
	sep          = "\x00"
	txEntryTag   = sep + "e" + sep
	txMemberTag  = sep + "m" + sep
	txCounterTag = sep + "c"
)

// Store implements storage.Store on an embedded LevelDB database.
//
// Scalars and objects live under their own key. A set member is a separate
// key "<set>\x00<member>" so membership changes never rewrite the whole set.
// Transaction history keeps an entry per (timestamp, id), a membership marker
// and a counter, written together in one batch.
type Store struct {
	db     *leveldb.DB
	locks  *xsync.Map[string, *sync.Mutex]
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the database directory, recovering it when the
// manifest is corrupted.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if !ldb_errors.IsCorrupted(err) {
			return nil, fmt.Errorf("open leveldb %s: %w", path, err)
		}
		logger.Warn("LevelDB corrupted, recovering", zap.String("path", path), zap.Error(err))
		if db, err = leveldb.RecoverFile(path, nil); err != nil {
			return nil, fmt.Errorf("recover leveldb %s: %w", path, err)
		}
	}
	logger.Info("Opened LevelDB", zap.String("path", path))
	return New(db, logger), nil
}

// New wraps an open database.
func New(db *leveldb.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		locks:  xsync.NewMap[string, *sync.Mutex](),
		logger: logger,
	}
}

// lock serialises read-modify-write operations on one key.
func (s *Store) lock(key string) func() {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

func (s *Store) get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	return v, err
}

func (s *Store) GetValue(_ context.Context, key string) (string, error) {
	v, err := s.get([]byte(key))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) SetValue(_ context.Context, key, value string) error {
	return s.db.Put([]byte(key), []byte(value), nil)
}

func (s *Store) DelValue(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), nil)
}

func (s *Store) IncrValue(_ context.Context, key string) error {
	unlock := s.lock(key)
	defer unlock()

	n, err := s.counter([]byte(key))
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), []byte(strconv.FormatInt(n+1, 10)), nil)
}

// counter reads an integer value, 0 when absent.
func (s *Store) counter(key []byte) (int64, error) {
	v, err := s.get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value of %q is not an integer: %w", key, err)
	}
	return n, nil
}

func (s *Store) GetMultipleValues(_ context.Context, keys []string) ([]string, error) {
	out := make([]string, len(keys))
	for i, key := range keys {
		v, err := s.get([]byte(key))
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = string(v)
	}
	return out, nil
}

func (s *Store) GetObject(_ context.Context, key string) (*storage.Object, error) {
	v, err := s.get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return storage.NewObject(), nil
	}
	if err != nil {
		return nil, err
	}
	return storage.DecodeObject(v)
}

func (s *Store) SetObject(_ context.Context, key string, obj *storage.Object) error {
	data, err := storage.EncodeObject(obj)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), data, nil)
}

func memberKey(key, member string) []byte {
	return []byte(key + sep + member)
}

func (s *Store) SAdd(_ context.Context, key, member string) error {
	return s.db.Put(memberKey(key, member), nil, nil)
}

func (s *Store) SRem(_ context.Context, key, member string) error {
	return s.db.Delete(memberKey(key, member), nil)
}

// GetArray returns members in key order, i.e. sorted.
func (s *Store) GetArray(_ context.Context, key string) ([]string, error) {
	prefix := []byte(key + sep)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	members := make([]string, 0)
	for iter.Next() {
		members = append(members, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return members, nil
}

func txEntryKey(indexKey string, timestamp int64, txID string) []byte {
	if timestamp < 0 {
		timestamp = 0
	}
	return []byte(fmt.Sprintf("%s%s%020d%s%s", indexKey, txEntryTag, timestamp, sep, txID))
}

// IndexTx records txID once; a redelivered transaction leaves the index untouched.
func (s *Store) IndexTx(_ context.Context, txType, address, txID string, timestamp int64) error {
	indexKey := storage.TxIndexKey(txType, address)
	unlock := s.lock(indexKey)
	defer unlock()

	member := []byte(indexKey + txMemberTag + txID)
	exists, err := s.db.Has(member, nil)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	counterKey := []byte(indexKey + txCounterTag)
	n, err := s.counter(counterKey)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(txEntryKey(indexKey, timestamp, txID), []byte(txID))
	batch.Put(member, []byte(strconv.FormatInt(timestamp, 10)))
	batch.Put(counterKey, []byte(strconv.FormatInt(n+1, 10)))
	return s.db.Write(batch, nil)
}

func (s *Store) CountTx(_ context.Context, txType, address string) (int64, error) {
	return s.counter([]byte(storage.TxIndexKey(txType, address) + txCounterTag))
}

// GetTx walks the history backwards: newest first, equal timestamps by descending id.
func (s *Store) GetTx(_ context.Context, txType, address string, limit, offset int) ([]string, error) {
	out := make([]string, 0)
	if limit <= 0 {
		return out, nil
	}

	prefix := []byte(storage.TxIndexKey(txType, address) + txEntryTag)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	skipped := 0
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, string(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
