package storage_test

import (
	"context"
	"testing"

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

func TestGatewayRoleAssociations(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	roles, err := g.GetRolesFor(ctx, "3Nrecipient")
	require.NoError(t, err)
	assert.Empty(t, roles)

	require.NoError(t, g.SaveRoleAssociation(ctx, "3Nrecipient", "3Nroot", types.Role{Role: "authority", Type: 100}))
	require.NoError(t, g.SaveRoleAssociation(ctx, "3Nrecipient", "3Nroot", types.Role{Role: "notary", Type: 101}))
	// re-granting keeps the position and takes the latest sender
	require.NoError(t, g.SaveRoleAssociation(ctx, "3Nrecipient", "3Nother", types.Role{Role: "authority", Type: 100}))

	roles, err = g.GetRolesFor(ctx, "3Nrecipient")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssignments{
		{Role: "authority", Sender: "3Nother", Type: 100},
		{Role: "notary", Sender: "3Nroot", Type: 101},
	}, roles)

	require.NoError(t, g.RemoveRoleAssociation(ctx, "3Nrecipient", types.Role{Role: "authority", Type: 100}))
	require.NoError(t, g.RemoveRoleAssociation(ctx, "3Nrecipient", types.Role{Role: "unknown", Type: 1}))

	roles, err = g.GetRolesFor(ctx, "3Nrecipient")
	require.NoError(t, err)
	assert.Equal(t, []string{"notary"}, roles.Names())
}

func TestGatewayAnchors(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	_, ok, err := g.GetAnchor(ctx, "abcdef")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := types.AnchorRecord{ID: "tx1", BlockHeight: 12, Position: 3}
	require.NoError(t, g.SaveAnchor(ctx, "ABCDEF", rec))

	got, ok, err := g.GetAnchor(ctx, "abcdef")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestGatewayStats(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	n, err := g.GetOperationStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, g.IncrOperationStats(ctx))
	require.NoError(t, g.IncrOperationStats(ctx))
	n, err = g.GetOperationStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// 2019-01-02T10:00:00Z
	day := storage.Day(1546423200000)
	assert.EqualValues(t, 17898, day)

	require.NoError(t, g.IncrTxStats(ctx, "anchor", day))
	require.NoError(t, g.IncrTxStats(ctx, "anchor", day))
	require.NoError(t, g.IncrTxStats(ctx, "anchor", day+2))

	stats, err := g.GetTxStats(ctx, "anchor", day, day+2)
	require.NoError(t, err)
	assert.Equal(t, []storage.PeriodCount{
		{Period: "2019-01-02 00:00:00", Count: 2},
		{Period: "2019-01-03 00:00:00", Count: 0},
		{Period: "2019-01-04 00:00:00", Count: 1},
	}, stats)

	stats, err = g.GetTxStats(ctx, "anchor", day+1, day)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestGatewayProcessingHeight(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	_, ok, err := g.GetProcessingHeight(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.SaveProcessingHeight(ctx, 1200))
	h, ok, err := g.GetProcessingHeight(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1200, h)

	require.NoError(t, g.ClearProcessingHeight(ctx))
	_, ok, err = g.GetProcessingHeight(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayPublicKeys(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	_, err := g.GetPublicKey(ctx, "3Nabc")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, g.SavePublicKey(ctx, "3Nabc", "pubkey"))
	pk, err := g.GetPublicKey(ctx, "3Nabc")
	require.NoError(t, err)
	assert.Equal(t, "pubkey", pk)
}

func TestGatewayVerificationMethods(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	methods, err := g.GetVerificationMethods(ctx, "3Nidentity")
	require.NoError(t, err)
	assert.Empty(t, methods)

	require.NoError(t, g.SaveVerificationMethod(ctx, types.VerificationMethod{
		Relationships: 0x101, Sender: "3Nidentity", Recipient: "3Nkey1", CreatedAt: 1000,
	}))
	require.NoError(t, g.SaveVerificationMethod(ctx, types.VerificationMethod{
		Relationships: 0x102, Sender: "3Nidentity", Recipient: "3Nkey2", CreatedAt: 2000,
	}))
	// re-registering keeps the position and takes the new relationships
	require.NoError(t, g.SaveVerificationMethod(ctx, types.VerificationMethod{
		Relationships: 0x103, Sender: "3Nidentity", Recipient: "3Nkey1", CreatedAt: 3000,
	}))

	methods, err = g.GetVerificationMethods(ctx, "3Nidentity")
	require.NoError(t, err)
	assert.Equal(t, []types.VerificationMethod{
		{Relationships: 0x103, Sender: "3Nidentity", Recipient: "3Nkey1", CreatedAt: 3000},
		{Relationships: 0x102, Sender: "3Nidentity", Recipient: "3Nkey2", CreatedAt: 2000},
	}, methods)

	require.NoError(t, g.RevokeVerificationMethod(ctx, "3Nidentity", "3Nkey1", 4000))
	require.NoError(t, g.RevokeVerificationMethod(ctx, "3Nidentity", "3Nunknown", 4000))

	methods, err = g.GetVerificationMethods(ctx, "3Nidentity")
	require.NoError(t, err)
	assert.Equal(t, []types.VerificationMethod{
		{Relationships: 0x102, Sender: "3Nidentity", Recipient: "3Nkey2", CreatedAt: 2000},
	}, methods)

	obj, err := g.Store().GetObject(ctx, storage.VerificationKey("3Nidentity"))
	require.NoError(t, err)
	assert.Equal(t, []string{"3Nkey1", "3Nkey2"}, obj.Keys())
}

func TestGatewaySupply(t *testing.T) {
	g := newGateway(t)
	ctx := context.Background()

	burned, err := g.GetTxFeeBurned(ctx)
	require.NoError(t, err)
	assert.Zero(t, burned)

	_, ok, err := g.GetFeeBurnFeatureHeight(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	supply, err := g.GetSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Supply{}, supply)

	require.NoError(t, g.SetTxFeeBurned(ctx, 30000000))
	require.NoError(t, g.SetFeeBurnFeatureHeight(ctx, 1200))

	burned, err = g.GetTxFeeBurned(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 30000000, burned)

	h, ok, err := g.GetFeeBurnFeatureHeight(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1200, h)

	supply, err = g.GetSupply(ctx)
	require.NoError(t, err)
	require.NotNil(t, supply.FeeBurnFeatureHeight)
	assert.EqualValues(t, 1200, *supply.FeeBurnFeatureHeight)
	assert.EqualValues(t, 30000000, supply.TxFeeBurned)

	v, err := g.Store().GetValue(ctx, storage.TxFeeBurnedKey)
	require.NoError(t, err)
	assert.Equal(t, "30000000", v)
}
