package identity_test

import (
	"context"
	"testing"

	"github.com/ltonetwork/indexer/pkg/indexer/identity"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/ltonetwork/indexer/pkg/storage"
	storageleveldb "github.com/ltonetwork/indexer/pkg/storage/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	ldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"go.uber.org/zap/zaptest"
)

func newGateway(t *testing.T) *storage.Gateway {
	t.Helper()
	db, err := leveldb.Open(ldbstorage.NewMemStorage(), nil)
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	g := storage.NewGateway(storageleveldb.New(db, logger), logger)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestIndexStoresSenderPublicKey(t *testing.T) {
	g := newGateway(t)
	ix := identity.NewIndexer(g, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, types.Document{Transaction: types.Generic{Meta: types.Meta{
		Sender: "3Na", SenderPublicKey: "pk-a",
	}}}))
	require.NoError(t, ix.Index(ctx, types.Document{Transaction: types.Generic{Meta: types.Meta{
		Sender: "3Nb",
	}}}))

	pk, err := g.GetPublicKey(ctx, "3Na")
	require.NoError(t, err)
	assert.Equal(t, "pk-a", pk)

	_, err = g.GetPublicKey(ctx, "3Nb")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func grant(id string, associationType int, recipient string, ts int64) types.Document {
	return types.Document{Transaction: types.RoleGrant{
		Meta:            types.Meta{ID: id, Type: types.TypeAssociation, Sender: "3Nidentity", Timestamp: ts},
		Party:           recipient,
		AssociationType: associationType,
	}}
}

func TestIndexRegistersVerificationMethods(t *testing.T) {
	g := newGateway(t)
	ix := identity.NewIndexer(g, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, grant("tx1", 0x101, "3Nkey1", 1000)))
	require.NoError(t, ix.Index(ctx, grant("tx2", 0x120, "3Nkey2", 2000)))
	// role associations are not verification methods
	require.NoError(t, ix.Index(ctx, grant("tx3", 101, "3Nparty", 3000)))
	require.NoError(t, ix.Index(ctx, grant("tx4", 0x121, "3Nother", 4000)))

	methods, err := g.GetVerificationMethods(ctx, "3Nidentity")
	require.NoError(t, err)
	assert.Equal(t, []types.VerificationMethod{
		{Relationships: 0x101, Sender: "3Nidentity", Recipient: "3Nkey1", CreatedAt: 1000},
		{Relationships: 0x120, Sender: "3Nidentity", Recipient: "3Nkey2", CreatedAt: 2000},
	}, methods)
}

func TestIndexRevokesVerificationMethod(t *testing.T) {
	g := newGateway(t)
	ix := identity.NewIndexer(g, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, grant("tx1", 0x101, "3Nkey1", 1000)))
	require.NoError(t, ix.Index(ctx, grant("tx2", 0x102, "3Nkey2", 2000)))
	require.NoError(t, ix.Index(ctx, types.Document{Transaction: types.RoleRevoke{
		Meta:            types.Meta{ID: "tx3", Type: types.TypeRevokeAssociation, Sender: "3Nidentity", Timestamp: 3000},
		Party:           "3Nkey1",
		AssociationType: 0x101,
	}}))

	methods, err := g.GetVerificationMethods(ctx, "3Nidentity")
	require.NoError(t, err)
	assert.Equal(t, []types.VerificationMethod{
		{Relationships: 0x102, Sender: "3Nidentity", Recipient: "3Nkey2", CreatedAt: 2000},
	}, methods)
}
