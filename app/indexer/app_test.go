package indexer

import (
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/pkg/config"
	"github.com/ltonetwork/indexer/pkg/indexer/association"
	"github.com/ltonetwork/indexer/pkg/indexer/trust"
	"github.com/ltonetwork/indexer/pkg/node"
	"github.com/ltonetwork/indexer/pkg/storage"
	storageleveldb "github.com/ltonetwork/indexer/pkg/storage/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	ldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"go.uber.org/zap/zaptest"
)

func indexerNames(t *testing.T, cfg config.Config) []string {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db, err := leveldb.Open(ldbstorage.NewMemStorage(), nil)
	require.NoError(t, err)
	gateway := storage.NewGateway(storageleveldb.New(db, logger), logger)
	t.Cleanup(func() { _ = gateway.Close() })

	pool := pond.NewPool(2)
	t.Cleanup(pool.StopAndWait)

	nodeClient := node.NewClient(node.NewHTTPWithOpts(node.Opts{Endpoints: []string{"http://node"}}), 0, logger)
	resolver := trust.NewResolver(cfg.Roles, gateway, nodeClient, pool, logger)
	engine := association.NewEngine(cfg.AssociationIndexing, association.NewSetBackend(gateway.Store(), pool, logger), gateway, logger)

	var names []string
	for _, ix := range newIndexers(cfg, gateway, resolver, engine, nodeClient, pool, logger) {
		names = append(names, ix.Name())
	}
	return names
}

func TestIndexersRunCountersLast(t *testing.T) {
	cfg := config.Config{
		AssociationIndexing: config.IndexTrust,
		AnchorIndexing:      config.IndexAll,
		TrustNetwork:        true,
		Transactions:        true,
		Identity:            true,
		StatsOperations:     true,
		StatsTransactions:   true,
		StatsSupply:         true,
	}

	assert.Equal(t,
		[]string{"history", "identity", "anchor", "trust", "association", "stats", "supply"},
		indexerNames(t, cfg))
}

func TestIndexersFollowConfig(t *testing.T) {
	cfg := config.Config{
		AssociationIndexing: config.IndexNone,
		AnchorIndexing:      config.IndexNone,
		StatsTransactions:   true,
	}

	assert.Equal(t, []string{"anchor", "association", "stats"}, indexerNames(t, cfg))
}
