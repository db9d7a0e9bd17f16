package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/ltonetwork/indexer/pkg/utils"
)

// ErrInvalidConfig wraps every validation failure reported by Load.
var ErrInvalidConfig = errors.New("invalid config")

// IndexingMode gates association and anchor indexing.
type IndexingMode string

const (
	IndexNone  IndexingMode = "none"
	IndexTrust IndexingMode = "trust"
	IndexAll   IndexingMode = "all"
)

// ParseIndexingMode accepts none, trust or all (case-insensitive).
func ParseIndexingMode(s string) (IndexingMode, error) {
	switch m := IndexingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case IndexNone, IndexTrust, IndexAll:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown indexing mode %q", ErrInvalidConfig, s)
	}
}

// StorageType selects the active storage backend.
type StorageType string

const (
	StorageRedis   StorageType = "redis"
	StorageLevelDB StorageType = "leveldb"
)

// Config is read once at startup and never mutated.
type Config struct {
	Addr        string
	LogLevel    string
	LogEncoding string

	NodeURLs   []string
	NodeAPIKey string
	SponsorFee int64

	// StartingBlock is where a fresh index begins; StartFromLast starts at the
	// chain head instead.
	StartingBlock   uint64
	StartFromLast   bool
	RestartSync     bool
	MonitorInterval time.Duration

	StorageType   StorageType
	RedisURL      string
	RedisCluster  []string
	RedisPassword string
	GraphHost     string
	GraphPort     int
	LevelDBName   string

	AssociationIndexing IndexingMode
	AssociationUseGraph bool
	AnchorIndexing      IndexingMode
	TrustNetwork        bool
	Transactions        bool
	Identity            bool
	StatsOperations     bool
	StatsTransactions   bool
	StatsSupply         bool
	// FeeBurnFeature is the node feature id that activates fee burning;
	// FeeBurnAmount is burned per transaction from then on.
	FeeBurnFeature int
	FeeBurnAmount  int64

	Roles types.Hierarchy
}

// GraphAddr is the host:port of the graph backend.
func (c Config) GraphAddr() string {
	return fmt.Sprintf("%s:%d", c.GraphHost, c.GraphPort)
}

// Load gathers the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Addr:        utils.Env("ADDR", ":3000"),
		LogLevel:    utils.Env("LOG_LEVEL", "info"),
		LogEncoding: utils.Env("LOG_ENCODING", "json"),

		NodeURLs:   utils.EnvList("NODE_URL", ","),
		NodeAPIKey: utils.Env("NODE_API_KEY", ""),
		SponsorFee: int64(utils.EnvUint64("FEE_SPONSOR", 500000000)),

		RestartSync:     utils.EnvBool("RESTART_SYNC", false),
		MonitorInterval: utils.EnvDuration("MONITOR_INTERVAL", 10*time.Second),

		StorageType:   StorageType(strings.ToLower(utils.Env("STORAGE_TYPE", string(StorageLevelDB)))),
		RedisURL:      utils.Env("REDIS_URL", ""),
		RedisCluster:  utils.EnvList("REDIS_CLUSTER", ";"),
		RedisPassword: utils.Env("REDIS_PASSWORD", ""),
		GraphHost:     utils.Env("REDIS_GRAPH_HOST", "localhost"),
		GraphPort:     utils.EnvInt("REDIS_GRAPH_PORT", 6380),
		LevelDBName:   utils.Env("LEVELDB_NAME", "lto-index"),

		AssociationUseGraph: utils.EnvBool("ASSOCIATION_USE_GRAPH", false),
		TrustNetwork:        utils.EnvBool("TRUST_NETWORK_INDEXING", true),
		Transactions:        utils.EnvBool("TRANSACTION_INDEXING", true),
		Identity:            utils.EnvBool("IDENTITY_INDEXING", true),
		StatsOperations:     utils.EnvBool("STATS_OPERATIONS", true),
		StatsTransactions:   utils.EnvBool("STATS_TRANSACTIONS", true),
		StatsSupply:         utils.EnvBool("STATS_SUPPLY", true),
		FeeBurnFeature:      utils.EnvInt("FEE_BURN_FEATURE", 12),
		FeeBurnAmount:       int64(utils.EnvUint64("FEE_BURN_AMOUNT", 10000000)),
	}
	if len(cfg.NodeURLs) == 0 {
		cfg.NodeURLs = []string{"http://localhost:6869"}
	}

	var err error
	if cfg.StartingBlock, cfg.StartFromLast, err = parseStartingBlock(utils.Env("STARTING_BLOCK", "1")); err != nil {
		return Config{}, err
	}
	if cfg.AssociationIndexing, err = ParseIndexingMode(utils.Env("ASSOCIATION_INDEXING", string(IndexTrust))); err != nil {
		return Config{}, fmt.Errorf("ASSOCIATION_INDEXING: %w", err)
	}
	if cfg.AnchorIndexing, err = ParseIndexingMode(utils.Env("ANCHOR_INDEXING", string(IndexAll))); err != nil {
		return Config{}, fmt.Errorf("ANCHOR_INDEXING: %w", err)
	}

	switch cfg.StorageType {
	case StorageLevelDB:
	case StorageRedis:
		if cfg.RedisURL == "" && len(cfg.RedisCluster) == 0 {
			return Config{}, fmt.Errorf("%w: STORAGE_TYPE=redis requires REDIS_URL or REDIS_CLUSTER", ErrInvalidConfig)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown STORAGE_TYPE %q", ErrInvalidConfig, cfg.StorageType)
	}

	if cfg.Roles, err = LoadRoles(utils.Env("ROLES_FILE", "")); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseStartingBlock(v string) (uint64, bool, error) {
	if strings.EqualFold(v, "last") {
		return 0, true, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, false, fmt.Errorf("%w: STARTING_BLOCK must be a positive height or \"last\", got %q", ErrInvalidConfig, v)
	}
	return n, false, nil
}
