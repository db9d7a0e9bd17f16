// Package identity records the public key behind every sending address and the
// verification methods identities register through association transactions.
package identity

import (
	"context"
	"fmt"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

type Store interface {
	SavePublicKey(ctx context.Context, address, publicKey string) error
	SaveVerificationMethod(ctx context.Context, m types.VerificationMethod) error
	RevokeVerificationMethod(ctx context.Context, address, recipient string, revokedAt int64) error
}

type Indexer struct {
	store  Store
	logger *zap.Logger
}

func NewIndexer(store Store, logger *zap.Logger) *Indexer {
	return &Indexer{store: store, logger: logger}
}

func (i *Indexer) Name() string { return "identity" }

func (i *Indexer) Index(ctx context.Context, doc types.Document) error {
	meta := doc.Transaction.Header()
	if meta.Sender != "" && meta.SenderPublicKey != "" {
		if err := i.store.SavePublicKey(ctx, meta.Sender, meta.SenderPublicKey); err != nil {
			return fmt.Errorf("save public key of %s: %w", meta.Sender, err)
		}
	}

	switch tx := doc.Transaction.(type) {
	case types.RoleGrant:
		if !types.IsVerificationMethod(tx.AssociationType) {
			return nil
		}
		i.logger.Debug("Saving verification method",
			zap.String("tx_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.String("recipient", tx.Party))
		m := types.VerificationMethod{
			Relationships: tx.AssociationType,
			Sender:        tx.Sender,
			Recipient:     tx.Party,
			CreatedAt:     tx.Timestamp,
		}
		if err := i.store.SaveVerificationMethod(ctx, m); err != nil {
			return fmt.Errorf("save verification method %s of %s: %w", tx.Party, tx.Sender, err)
		}
	case types.RoleRevoke:
		if !types.IsVerificationMethod(tx.AssociationType) {
			return nil
		}
		i.logger.Debug("Revoking verification method",
			zap.String("tx_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.String("recipient", tx.Party))
		if err := i.store.RevokeVerificationMethod(ctx, tx.Sender, tx.Party, tx.Timestamp); err != nil {
			return fmt.Errorf("revoke verification method %s of %s: %w", tx.Party, tx.Sender, err)
		}
	}
	return nil
}
