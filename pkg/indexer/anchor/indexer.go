// Package anchor indexes hashes anchored by data (12) and anchor (15) transactions.
package anchor

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ltonetwork/indexer/pkg/config"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// DataKey marks a data entry that carries an anchor.
const DataKey = "⚓"

const base64Prefix = "base64:"

type Store interface {
	SaveAnchor(ctx context.Context, hash string, rec types.AnchorRecord) error
}

type RoleReader interface {
	GetRolesFor(ctx context.Context, address string) (types.RoleAssignments, error)
}

type Indexer struct {
	mode   config.IndexingMode
	store  Store
	roles  RoleReader
	logger *zap.Logger
}

func NewIndexer(mode config.IndexingMode, store Store, roles RoleReader, logger *zap.Logger) *Indexer {
	return &Indexer{mode: mode, store: store, roles: roles, logger: logger}
}

func (i *Indexer) Name() string { return "anchor" }

func (i *Indexer) Index(ctx context.Context, doc types.Document) error {
	tx, ok := doc.Transaction.(types.Anchor)
	if !ok {
		return types.ErrUnhandledType
	}

	switch i.mode {
	case config.IndexAll:
	case config.IndexTrust:
		roles, err := i.roles.GetRolesFor(ctx, tx.Sender)
		if err != nil {
			return fmt.Errorf("roles of sender %s: %w", tx.Sender, err)
		}
		if len(roles) == 0 {
			i.logger.Debug("Sender is not part of trust network, skipping anchors", zap.String("tx_id", tx.ID))
			return nil
		}
	default:
		return nil
	}

	hashes, errs := Hashes(tx)
	for _, err := range errs {
		i.logger.Warn("Skipping undecodable anchor", zap.String("tx_id", tx.ID), zap.Error(err))
	}

	rec := types.AnchorRecord{ID: tx.ID, BlockHeight: doc.BlockHeight, Position: doc.Position}
	for _, hash := range hashes {
		i.logger.Debug("Saving anchor", zap.String("hash", hash), zap.String("tx_id", tx.ID))
		if err := i.store.SaveAnchor(ctx, hash, rec); err != nil {
			return fmt.Errorf("save anchor %s: %w", hash, err)
		}
	}
	return nil
}

// Hashes returns the hex encoded hashes anchored by tx. Entries that fail to
// decode are reported separately and left out.
func Hashes(tx types.Anchor) ([]string, []error) {
	var (
		hashes []string
		errs   []error
	)
	switch tx.Type {
	case types.TypeData:
		for _, entry := range tx.Data {
			if entry.Key != DataKey {
				continue
			}
			value, ok := entry.Value.(string)
			if !ok {
				errs = append(errs, fmt.Errorf("anchor data value is %T, not a string", entry.Value))
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, base64Prefix))
			if err != nil {
				errs = append(errs, fmt.Errorf("decode base64 anchor: %w", err))
				continue
			}
			hashes = append(hashes, hex.EncodeToString(raw))
		}
	case types.TypeAnchor:
		for _, a := range tx.Anchors {
			raw, err := base58.Decode(a)
			if err != nil {
				errs = append(errs, fmt.Errorf("decode base58 anchor %q: %w", a, err))
				continue
			}
			hashes = append(hashes, hex.EncodeToString(raw))
		}
	}
	return hashes, errs
}
