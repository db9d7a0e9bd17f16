// Package stats counts indexed operations and transactions per type and day.
package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/pkg/indexer/anchor"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/ltonetwork/indexer/pkg/storage"
	"go.uber.org/zap"
)

// AllTypes aggregates the daily transaction count over every type.
const AllTypes = "all"

type Store interface {
	IncrOperationStats(ctx context.Context) error
	IncrTxStats(ctx context.Context, txType string, day int64) error
}

type Indexer struct {
	store        Store
	pool         pond.Pool
	operations   bool
	transactions bool
	logger       *zap.Logger
}

func NewIndexer(store Store, pool pond.Pool, operations, transactions bool, logger *zap.Logger) *Indexer {
	return &Indexer{store: store, pool: pool, operations: operations, transactions: transactions, logger: logger}
}

func (i *Indexer) Name() string { return "stats" }

// Operations is the number of operations tx represents: one per anchored hash, at least one.
func Operations(tx types.Transaction) int {
	a, ok := tx.(types.Anchor)
	if !ok {
		return 1
	}
	hashes, _ := anchor.Hashes(a)
	return max(1, len(hashes))
}

// Index bumps the counters concurrently; every counter is an independent key.
func (i *Indexer) Index(ctx context.Context, doc types.Document) error {
	meta := doc.Transaction.Header()

	var counters []func(context.Context) error
	if i.operations {
		for n := Operations(doc.Transaction); n > 0; n-- {
			counters = append(counters, i.store.IncrOperationStats)
		}
	}
	if i.transactions {
		day := storage.Day(meta.Timestamp)
		for _, bucket := range []string{types.TypeName(meta.Type), AllTypes} {
			counters = append(counters, func(ctx context.Context) error {
				return i.store.IncrTxStats(ctx, bucket, day)
			})
		}
	}
	if len(counters) == 0 {
		return nil
	}

	errs := make([]error, len(counters))
	group := i.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for n, incr := range counters {
		group.Submit(func() {
			if errs[n] = groupCtx.Err(); errs[n] == nil {
				errs[n] = incr(groupCtx)
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("stats for tx %s: %w", meta.ID, err)
	}
	return nil
}
