package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options selects a single Redis server (URL) or a cluster (Cluster seed nodes).
type Options struct {
	// URL is a redis:// or rediss:// URL. Takes precedence over Cluster.
	URL string
	// Cluster lists host:port (or redis:// URL) seed nodes.
	Cluster  []string
	Password string
}

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, o Options, logger *zap.Logger) (redis.UniversalClient, error) {
	var (
		client redis.UniversalClient
		target string
	)

	switch {
	case o.URL != "":
		opt, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if o.Password != "" {
			opt.Password = o.Password
		}
		opt.PoolSize = 10
		opt.MinIdleConns = 2
		opt.DialTimeout = 5 * time.Second
		opt.ReadTimeout = 3 * time.Second
		opt.WriteTimeout = 3 * time.Second
		client = redis.NewClient(opt)
		target = opt.Addr
	case len(o.Cluster) > 0:
		addrs := make([]string, 0, len(o.Cluster))
		for _, node := range o.Cluster {
			addrs = append(addrs, clusterAddr(node))
		}
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        addrs,
			Password:     o.Password,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		target = strings.Join(addrs, ",")
	default:
		return nil, errors.New("redis url or cluster nodes are required")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", target, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", target),
		zap.Bool("cluster", o.URL == "" && len(o.Cluster) > 0))

	return client, nil
}

// clusterAddr strips an optional redis:// scheme and path from a seed node.
func clusterAddr(node string) string {
	node = strings.TrimPrefix(node, "redis://")
	node = strings.TrimPrefix(node, "rediss://")
	if at := strings.LastIndex(node, "@"); at >= 0 {
		node = node[at+1:]
	}
	if slash := strings.Index(node, "/"); slash >= 0 {
		node = node[:slash]
	}
	return node
}
