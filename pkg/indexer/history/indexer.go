// Package history keeps per-address transaction history.
package history

import (
	"context"
	"fmt"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

// AllTypes is the history bucket holding every transaction of an address.
const AllTypes = "all"

type Store interface {
	IndexTx(ctx context.Context, txType, address, txID string, timestamp int64) error
}

type Indexer struct {
	store  Store
	logger *zap.Logger
}

func NewIndexer(store Store, logger *zap.Logger) *Indexer {
	return &Indexer{store: store, logger: logger}
}

func (i *Indexer) Name() string { return "history" }

// Index files the transaction under its type and under "all", for the sender
// and every address it touches.
func (i *Indexer) Index(ctx context.Context, doc types.Document) error {
	meta := doc.Transaction.Header()
	typeName := types.TypeName(meta.Type)

	addresses := append([]string{meta.Sender}, meta.Recipients...)
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		for _, bucket := range []string{typeName, AllTypes} {
			if err := i.store.IndexTx(ctx, bucket, addr, meta.ID, meta.Timestamp); err != nil {
				return fmt.Errorf("index %s for %s: %w", bucket, addr, err)
			}
		}
	}
	return nil
}
