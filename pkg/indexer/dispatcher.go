// Package indexer routes every transaction of a block through the enabled
// per-concern indexers.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

// Indexer consumes decoded transactions. Index returns types.ErrUnhandledType
// for variants it does not consume.
type Indexer interface {
	Name() string
	Index(ctx context.Context, doc types.Document) error
}

// Dispatcher calls its indexers in a fixed order, one transaction at a time.
type Dispatcher struct {
	indexers []Indexer
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger, indexers ...Indexer) *Dispatcher {
	return &Dispatcher{indexers: indexers, logger: logger}
}

// Names lists the enabled indexers in call order.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.indexers))
	for i, ix := range d.indexers {
		out[i] = ix.Name()
	}
	return out
}

// Index decodes raw once and hands it to every indexer. The first failing
// indexer aborts the call; the caller must not advance its checkpoint.
func (d *Dispatcher) Index(ctx context.Context, raw types.RawTransaction, height uint64, position int) error {
	tx, err := types.Decode(raw)
	if err != nil {
		if !errors.Is(err, types.ErrMissingField) {
			return fmt.Errorf("decode tx %s: %w", raw.ID, err)
		}
		d.logger.Debug("Transaction is missing fields, indexing as generic",
			zap.String("tx_id", raw.ID),
			zap.Int("type", raw.Type),
			zap.Error(err))
	}

	doc := types.Document{Transaction: tx, BlockHeight: height, Position: position}
	for _, ix := range d.indexers {
		err := ix.Index(ctx, doc)
		if errors.Is(err, types.ErrUnhandledType) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: tx %s at %d/%d: %w", ix.Name(), raw.ID, height, position, err)
		}
	}
	return nil
}
