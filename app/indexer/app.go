package indexer

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/app/indexer/types"
	"github.com/ltonetwork/indexer/pkg/config"
	"github.com/ltonetwork/indexer/pkg/indexer"
	"github.com/ltonetwork/indexer/pkg/indexer/anchor"
	"github.com/ltonetwork/indexer/pkg/indexer/association"
	"github.com/ltonetwork/indexer/pkg/indexer/history"
	"github.com/ltonetwork/indexer/pkg/indexer/identity"
	"github.com/ltonetwork/indexer/pkg/indexer/stats"
	"github.com/ltonetwork/indexer/pkg/indexer/trust"
	"github.com/ltonetwork/indexer/pkg/logging"
	"github.com/ltonetwork/indexer/pkg/monitor"
	"github.com/ltonetwork/indexer/pkg/node"
	"github.com/ltonetwork/indexer/pkg/retry"
	"github.com/ltonetwork/indexer/pkg/storage"
	"github.com/ltonetwork/indexer/pkg/storage/graph"
	storageleveldb "github.com/ltonetwork/indexer/pkg/storage/leveldb"
	storageredis "github.com/ltonetwork/indexer/pkg/storage/redis"
	"go.uber.org/zap"
)

// Initialize wires configuration, storage, node client and indexers into an App.
func Initialize(ctx context.Context) *types.App {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Unable to open storage", zap.Error(err), zap.String("type", string(cfg.StorageType)))
	}
	gateway := storage.NewGateway(store, logger)

	pool := pond.NewPool(16)

	nodeClient := node.NewClient(
		node.NewHTTPWithOpts(node.Opts{Endpoints: cfg.NodeURLs, APIKey: cfg.NodeAPIKey}),
		cfg.SponsorFee,
		logger,
	)

	backend, err := associationBackend(ctx, cfg, store, pool, logger)
	if err != nil {
		logger.Fatal("Unable to set up association backend", zap.Error(err))
	}

	resolver := trust.NewResolver(cfg.Roles, gateway, nodeClient, pool, logger)
	associations := association.NewEngine(cfg.AssociationIndexing, backend, gateway, logger)

	indexers := newIndexers(cfg, gateway, resolver, associations, nodeClient, pool, logger)

	dispatcher := indexer.NewDispatcher(logger, indexers...)
	logger.Info("Indexers enabled", zap.Strings("indexers", dispatcher.Names()))

	mon := monitor.New(nodeClient, gateway, dispatcher, monitor.Options{
		StartingBlock: cfg.StartingBlock,
		StartFromLast: cfg.StartFromLast,
		RestartSync:   cfg.RestartSync,
		Interval:      cfg.MonitorInterval,
		Retry:         retry.DefaultConfig(),
	}, logger)

	return &types.App{
		Config:       cfg,
		Storage:      gateway,
		Roles:        resolver,
		Associations: associations,
		Monitor:      mon,
		Pool:         pool,
		Logger:       logger,
	}
}

// newIndexers builds the enabled indexers in dispatch order. Counters are not
// idempotent, so they run after every indexer that can fail on the same transaction.
func newIndexers(
	cfg config.Config,
	gateway *storage.Gateway,
	resolver *trust.Resolver,
	associations *association.Engine,
	nodeClient *node.Client,
	pool pond.Pool,
	logger *zap.Logger,
) []indexer.Indexer {
	indexers := make([]indexer.Indexer, 0, 7)
	if cfg.Transactions {
		indexers = append(indexers, history.NewIndexer(gateway, logger))
	}
	if cfg.Identity {
		indexers = append(indexers, identity.NewIndexer(gateway, logger))
	}
	indexers = append(indexers, anchor.NewIndexer(cfg.AnchorIndexing, gateway, gateway, logger))
	if cfg.TrustNetwork {
		indexers = append(indexers, resolver)
	}
	indexers = append(indexers, associations)
	if cfg.StatsOperations || cfg.StatsTransactions {
		indexers = append(indexers, stats.NewIndexer(gateway, pool, cfg.StatsOperations, cfg.StatsTransactions, logger))
	}
	if cfg.StatsSupply {
		indexers = append(indexers, stats.NewSupplyIndexer(gateway, nodeClient, cfg.FeeBurnFeature, cfg.FeeBurnAmount, logger))
	}
	return indexers
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.StorageType {
	case config.StorageRedis:
		client, err := storageredis.NewClient(ctx, storageredis.Options{
			URL:      cfg.RedisURL,
			Cluster:  cfg.RedisCluster,
			Password: cfg.RedisPassword,
		}, logger)
		if err != nil {
			return nil, err
		}
		return storageredis.New(client, logger), nil
	case config.StorageLevelDB:
		return storageleveldb.Open(cfg.LevelDBName, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

// associationBackend is chosen once; the engine never branches on it again.
func associationBackend(ctx context.Context, cfg config.Config, store storage.Store, pool pond.Pool, logger *zap.Logger) (association.Backend, error) {
	if !cfg.AssociationUseGraph {
		return association.NewSetBackend(store, pool, logger), nil
	}
	client, err := storageredis.NewClient(ctx, storageredis.Options{
		URL:      "redis://" + cfg.GraphAddr(),
		Password: cfg.RedisPassword,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect graph backend: %w", err)
	}
	return graph.New(client, graph.DefaultGraph, logger), nil
}
