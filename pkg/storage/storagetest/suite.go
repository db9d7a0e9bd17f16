// Package storagetest holds the behaviour every storage.Store backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/ltonetwork/indexer/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) storage.Store

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("values", func(t *testing.T) { testValues(t, newStore(t)) })
	t.Run("incr", func(t *testing.T) { testIncr(t, newStore(t)) })
	t.Run("multiple values", func(t *testing.T) { testMultipleValues(t, newStore(t)) })
	t.Run("objects", func(t *testing.T) { testObjects(t, newStore(t)) })
	t.Run("sets", func(t *testing.T) { testSets(t, newStore(t)) })
	t.Run("tx history", func(t *testing.T) { testTxHistory(t, newStore(t)) })
}

func testValues(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetValue(ctx, "lto:missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SetValue(ctx, "lto:k", "v1"))
	require.NoError(t, s.SetValue(ctx, "lto:k", "v2"))
	v, err := s.GetValue(ctx, "lto:k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.DelValue(ctx, "lto:k"))
	_, err = s.GetValue(ctx, "lto:k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// deleting an absent key is fine
	require.NoError(t, s.DelValue(ctx, "lto:k"))
}

func testIncr(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrValue(ctx, "lto:counter"))
	}
	v, err := s.GetValue(ctx, "lto:counter")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	require.NoError(t, s.SetValue(ctx, "lto:counter", "41"))
	require.NoError(t, s.IncrValue(ctx, "lto:counter"))
	v, err = s.GetValue(ctx, "lto:counter")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func testMultipleValues(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.SetValue(ctx, "lto:a", "1"))
	require.NoError(t, s.SetValue(ctx, "lto:c", "3"))

	values, err := s.GetMultipleValues(ctx, []string{"lto:a", "lto:b", "lto:c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", "3"}, values)

	values, err = s.GetMultipleValues(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func testObjects(t *testing.T, s storage.Store) {
	ctx := context.Background()

	empty, err := s.GetObject(ctx, "lto:obj")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	obj := storage.NewObject()
	require.NoError(t, obj.Set("zeta", map[string]any{"sender": "A", "type": 100}))
	require.NoError(t, obj.Set("alpha", "x"))
	require.NoError(t, s.SetObject(ctx, "lto:obj", obj))

	got, err := s.GetObject(ctx, "lto:obj")
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, got.Keys())

	var alpha string
	ok, err := got.Get("alpha", &alpha)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", alpha)

	got.Delete("zeta")
	require.NoError(t, s.SetObject(ctx, "lto:obj", got))
	got, err = s.GetObject(ctx, "lto:obj")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, got.Keys())
}

func testSets(t *testing.T, s storage.Store) {
	ctx := context.Background()

	members, err := s.GetArray(ctx, "lto:set")
	require.NoError(t, err)
	assert.Empty(t, members)

	for _, m := range []string{"c", "a", "b", "a"} {
		require.NoError(t, s.SAdd(ctx, "lto:set", m))
	}
	members, err = s.GetArray(ctx, "lto:set")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, members)

	require.NoError(t, s.SRem(ctx, "lto:set", "b"))
	require.NoError(t, s.SRem(ctx, "lto:set", "missing"))
	members, err = s.GetArray(ctx, "lto:set")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, members)

	// a set whose name prefixes another set must not see its members
	require.NoError(t, s.SAdd(ctx, "lto:set:other", "z"))
	members, err = s.GetArray(ctx, "lto:set")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, members)
}

func testTxHistory(t *testing.T, s storage.Store) {
	ctx := context.Background()

	n, err := s.CountTx(ctx, "transfer", "3Jaddr")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.IndexTx(ctx, "transfer", "3Jaddr", "tx1", 1000))
	require.NoError(t, s.IndexTx(ctx, "transfer", "3Jaddr", "tx3", 3000))
	require.NoError(t, s.IndexTx(ctx, "transfer", "3Jaddr", "tx2a", 2000))
	require.NoError(t, s.IndexTx(ctx, "transfer", "3Jaddr", "tx2b", 2000))
	// redelivery keeps the original entry
	require.NoError(t, s.IndexTx(ctx, "transfer", "3Jaddr", "tx1", 9000))
	require.NoError(t, s.IndexTx(ctx, "all", "3Jaddr", "tx9", 9000))

	n, err = s.CountTx(ctx, "transfer", "3Jaddr")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	ids, err := s.GetTx(ctx, "transfer", "3Jaddr", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx3", "tx2b", "tx2a", "tx1"}, ids)

	ids, err = s.GetTx(ctx, "transfer", "3Jaddr", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx2b", "tx2a"}, ids)

	ids, err = s.GetTx(ctx, "transfer", "3Jaddr", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.GetTx(ctx, "transfer", "3Jaddr", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.GetTx(ctx, "transfer", "3Jother", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
