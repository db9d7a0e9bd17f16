// Package trust maintains the trust network: role grants and revocations
// carried by association transactions, and the sponsorship side effects they
// trigger on the node.
package trust

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

// Node is the subset of the node client the resolver needs.
type Node interface {
	GetNodeWallet(ctx context.Context) (string, error)
	GetSponsorsOf(ctx context.Context, address string) ([]string, error)
	Sponsor(ctx context.Context, address string) error
	CancelSponsor(ctx context.Context, address string) error
}

// RoleStore persists raw role assignments.
type RoleStore interface {
	GetRolesFor(ctx context.Context, address string) (types.RoleAssignments, error)
	SaveRoleAssociation(ctx context.Context, recipient, sender string, role types.Role) error
	RemoveRoleAssociation(ctx context.Context, recipient string, role types.Role) error
}

// Resolver applies role grants/revocations against a fixed role hierarchy.
type Resolver struct {
	roles  types.Hierarchy
	store  RoleStore
	node   Node
	pool   pond.Pool
	logger *zap.Logger
}

// NewResolver binds the hierarchy loaded at startup to its collaborators.
func NewResolver(roles types.Hierarchy, store RoleStore, node Node, pool pond.Pool, logger *zap.Logger) *Resolver {
	return &Resolver{roles: roles, store: store, node: node, pool: pool, logger: logger}
}

func (r *Resolver) Name() string { return "trust" }

// Index handles association (16) and revoke association (17) transactions.
func (r *Resolver) Index(ctx context.Context, doc types.Document) error {
	switch tx := doc.Transaction.(type) {
	case types.RoleGrant:
		return r.grant(ctx, tx)
	case types.RoleRevoke:
		return r.revoke(ctx, tx)
	default:
		return types.ErrUnhandledType
	}
}

// heldRoles lists the role names address holds: root first for the node
// wallet, then the stored assignments in storage order. The node wallet and
// the stored roles are fetched concurrently; the wallet is returned for reuse.
func (r *Resolver) heldRoles(ctx context.Context, address string) ([]string, string, error) {
	var (
		wallet    string
		raw       types.RoleAssignments
		walletErr error
		rolesErr  error
	)

	group := r.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	group.Submit(func() {
		if err := groupCtx.Err(); err != nil {
			walletErr = err
			return
		}
		wallet, walletErr = r.node.GetNodeWallet(groupCtx)
	})
	group.Submit(func() {
		if err := groupCtx.Err(); err != nil {
			rolesErr = err
			return
		}
		raw, rolesErr = r.store.GetRolesFor(groupCtx, address)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, "", err
	}
	if walletErr != nil {
		return nil, "", fmt.Errorf("node wallet: %w", walletErr)
	}
	if rolesErr != nil {
		return nil, "", rolesErr
	}

	held := make([]string, 0, len(raw)+1)
	if address == wallet {
		held = append(held, types.RootRole)
	}
	return append(held, raw.Names()...), wallet, nil
}

// issuable collects every issue entry of sender's roles that matches associationType,
// in held-role then declared order. Duplicates are kept.
func (r *Resolver) issuable(ctx context.Context, sender string, associationType int) ([]types.Role, string, error) {
	held, wallet, err := r.heldRoles(ctx, sender)
	if err != nil {
		return nil, "", fmt.Errorf("roles of sender %s: %w", sender, err)
	}

	var matches []types.Role
	for _, name := range held {
		def, ok := r.roles.Lookup(name)
		if !ok {
			continue
		}
		for _, issue := range def.Issues {
			if issue.Type == associationType {
				matches = append(matches, issue)
			}
		}
	}
	return matches, wallet, nil
}

// grant saves every role the sender may issue for the association type and
// sponsors the party when one of them is sponsored. The node wallet issues as root.
func (r *Resolver) grant(ctx context.Context, tx types.RoleGrant) error {
	matches, wallet, err := r.issuable(ctx, tx.Sender, tx.AssociationType)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		r.logger.Debug("Sender cannot issue a role for this association type",
			zap.String("tx_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.Int("association_type", tx.AssociationType))
		return nil
	}

	r.logger.Debug("Saving role association",
		zap.String("tx_id", tx.ID),
		zap.String("party", tx.Party),
		zap.Int("roles", len(matches)))

	sponsored := false
	// one roles object per party: writes stay sequential to keep declared order
	for _, role := range matches {
		if err := r.store.SaveRoleAssociation(ctx, tx.Party, tx.Sender, role); err != nil {
			return fmt.Errorf("save role %s for %s: %w", role.Role, tx.Party, err)
		}
		sponsored = sponsored || r.roles.IsSponsored(role.Role)
	}
	if !sponsored {
		return nil
	}

	sponsors, err := r.node.GetSponsorsOf(ctx, tx.Party)
	if err != nil {
		return fmt.Errorf("sponsors of %s: %w", tx.Party, err)
	}
	if slices.Contains(sponsors, wallet) {
		return nil
	}

	r.logger.Debug("Party is being given a sponsored role, sending a transaction to the node",
		zap.String("tx_id", tx.ID),
		zap.String("party", tx.Party))
	if err := r.node.Sponsor(ctx, tx.Party); err != nil {
		r.logger.Error("Error saving a role association",
			zap.String("tx_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.String("party", tx.Party),
			zap.Error(err))
	}
	return nil
}

func (r *Resolver) revoke(ctx context.Context, tx types.RoleRevoke) error {
	matches, _, err := r.issuable(ctx, tx.Sender, tx.AssociationType)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		r.logger.Debug("Sender cannot revoke a role for this association type",
			zap.String("tx_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.Int("association_type", tx.AssociationType))
		return nil
	}

	r.logger.Debug("Removing role association",
		zap.String("tx_id", tx.ID),
		zap.String("party", tx.Party),
		zap.Int("roles", len(matches)))

	for _, role := range matches {
		if err := r.store.RemoveRoleAssociation(ctx, tx.Party, role); err != nil {
			return fmt.Errorf("remove role %s from %s: %w", role.Role, tx.Party, err)
		}
	}

	remaining, err := r.store.GetRolesFor(ctx, tx.Party)
	if err != nil {
		return fmt.Errorf("roles of party %s: %w", tx.Party, err)
	}
	if slices.ContainsFunc(remaining.Names(), r.roles.IsSponsored) {
		return nil
	}

	r.logger.Debug("Party has no more sponsored roles, sending a transaction to the node",
		zap.String("tx_id", tx.ID),
		zap.String("party", tx.Party))
	if err := r.node.CancelSponsor(ctx, tx.Party); err != nil {
		r.logger.Error("Error removing a role association",
			zap.String("tx_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.String("party", tx.Party),
			zap.Error(err))
	}
	return nil
}

// GetRolesFor expands the roles held by address into the roles and
// authorizations it may issue. Nothing is cached; every call reads storage.
func (r *Resolver) GetRolesFor(ctx context.Context, address string) (types.RoleData, error) {
	held, _, err := r.heldRoles(ctx, address)
	if err != nil {
		return types.RoleData{}, fmt.Errorf("get roles for %s: %w", address, err)
	}

	data := types.RoleData{
		Roles:               held,
		IssuesRoles:         []types.Role{},
		IssuesAuthorization: []string{},
	}
	seenRoles := map[types.Role]struct{}{}
	seenAuth := map[string]struct{}{}

	for _, name := range held {
		def, ok := r.roles.Lookup(name)
		if !ok {
			continue
		}
		for _, issue := range def.Issues {
			if _, dup := seenRoles[issue]; dup {
				continue
			}
			seenRoles[issue] = struct{}{}
			data.IssuesRoles = append(data.IssuesRoles, issue)
		}
		for _, auth := range def.Authorization {
			if _, dup := seenAuth[auth]; dup {
				continue
			}
			seenAuth[auth] = struct{}{}
			data.IssuesAuthorization = append(data.IssuesAuthorization, auth)
		}
	}
	return data, nil
}
