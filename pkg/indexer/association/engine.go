// Package association indexes the directed association graph between addresses.
package association

import (
	"context"
	"fmt"

	"github.com/ltonetwork/indexer/pkg/config"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

// Backend stores association edges. Removing an edge also removes every
// edge below its recipient.
type Backend interface {
	SaveAssociation(ctx context.Context, sender, recipient string) error
	RemoveAssociation(ctx context.Context, sender, recipient string) error
	GetAssociations(ctx context.Context, address string) (types.Associations, error)
}

// RoleReader tells whether a sender is part of the trust network.
type RoleReader interface {
	GetRolesFor(ctx context.Context, address string) (types.RoleAssignments, error)
}

// Engine applies association transactions to the active Backend, gated by the
// configured indexing mode.
type Engine struct {
	mode    config.IndexingMode
	backend Backend
	roles   RoleReader
	logger  *zap.Logger
}

// NewEngine selects the backend once; it is never switched afterwards.
func NewEngine(mode config.IndexingMode, backend Backend, roles RoleReader, logger *zap.Logger) *Engine {
	return &Engine{mode: mode, backend: backend, roles: roles, logger: logger}
}

func (e *Engine) Name() string { return "association" }

// Index handles association (16) and revoke association (17) transactions.
func (e *Engine) Index(ctx context.Context, doc types.Document) error {
	var (
		sender, recipient string
		remove            bool
	)
	switch tx := doc.Transaction.(type) {
	case types.RoleGrant:
		sender, recipient = tx.Sender, tx.Party
	case types.RoleRevoke:
		sender, recipient, remove = tx.Sender, tx.Party, true
	default:
		return types.ErrUnhandledType
	}

	ok, err := e.shouldIndex(ctx, sender)
	if err != nil || !ok {
		return err
	}

	if remove {
		e.logger.Debug("Removing association", zap.String("sender", sender), zap.String("recipient", recipient))
		if err := e.backend.RemoveAssociation(ctx, sender, recipient); err != nil {
			return fmt.Errorf("remove association %s -> %s: %w", sender, recipient, err)
		}
		return nil
	}

	e.logger.Debug("Saving association", zap.String("sender", sender), zap.String("recipient", recipient))
	if err := e.backend.SaveAssociation(ctx, sender, recipient); err != nil {
		return fmt.Errorf("save association %s -> %s: %w", sender, recipient, err)
	}
	return nil
}

func (e *Engine) shouldIndex(ctx context.Context, sender string) (bool, error) {
	switch e.mode {
	case config.IndexAll:
		return true, nil
	case config.IndexTrust:
		roles, err := e.roles.GetRolesFor(ctx, sender)
		if err != nil {
			return false, fmt.Errorf("roles of sender %s: %w", sender, err)
		}
		if len(roles) == 0 {
			e.logger.Debug("Sender is not part of trust network", zap.String("sender", sender))
			return false, nil
		}
		return true, nil
	default:
		e.logger.Debug("Association indexing disabled")
		return false, nil
	}
}

// GetAssociations returns the direct children and parents of address.
func (e *Engine) GetAssociations(ctx context.Context, address string) (types.Associations, error) {
	return e.backend.GetAssociations(ctx, address)
}
