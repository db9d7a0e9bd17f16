package association

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/ltonetwork/indexer/pkg/storage"
	"go.uber.org/zap"
)

// SetBackend keeps each address' children and parents as two sets in the keyspace.
type SetBackend struct {
	store  storage.Store
	pool   pond.Pool
	logger *zap.Logger
}

var _ Backend = (*SetBackend)(nil)

func NewSetBackend(store storage.Store, pool pond.Pool, logger *zap.Logger) *SetBackend {
	return &SetBackend{store: store, pool: pool, logger: logger}
}

// both runs the two halves of an edge update concurrently and waits for both.
func (b *SetBackend) both(ctx context.Context, first, second func(context.Context) error) error {
	var firstErr, secondErr error

	group := b.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	group.Submit(func() {
		if firstErr = groupCtx.Err(); firstErr == nil {
			firstErr = first(groupCtx)
		}
	})
	group.Submit(func() {
		if secondErr = groupCtx.Err(); secondErr == nil {
			secondErr = second(groupCtx)
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	return errors.Join(firstErr, secondErr)
}

func (b *SetBackend) SaveAssociation(ctx context.Context, sender, recipient string) error {
	err := b.both(ctx,
		func(ctx context.Context) error { return b.store.SAdd(ctx, storage.AssocChildrenKey(sender), recipient) },
		func(ctx context.Context) error { return b.store.SAdd(ctx, storage.AssocParentsKey(recipient), sender) },
	)
	if err != nil {
		return err
	}
	b.logger.Debug("Added association", zap.String("parent", sender), zap.String("child", recipient))
	return nil
}

func (b *SetBackend) removeEdge(ctx context.Context, parent, child string) error {
	return b.both(ctx,
		func(ctx context.Context) error { return b.store.SRem(ctx, storage.AssocChildrenKey(parent), child) },
		func(ctx context.Context) error { return b.store.SRem(ctx, storage.AssocParentsKey(child), parent) },
	)
}

// RemoveAssociation drops sender -> recipient and then every edge below recipient.
func (b *SetBackend) RemoveAssociation(ctx context.Context, sender, recipient string) error {
	if err := b.removeEdge(ctx, sender, recipient); err != nil {
		return err
	}
	removed, err := b.cascade(ctx, recipient)
	if err != nil {
		return fmt.Errorf("cascade below %s: %w", recipient, err)
	}
	b.logger.Debug("Removed association",
		zap.String("parent", sender),
		zap.String("child", recipient),
		zap.Int("descendant_edges", removed))
	return nil
}

type frame struct {
	node     string
	children []string
	next     int
}

// cascade removes every edge reachable from root, depth first. An edge is
// deleted only once the subtree below its child is gone, so an interrupted
// cascade leaves every remaining subtree reachable from root and a rerun
// finishes the job. Each node is expanded once, which bounds cycles.
func (b *SetBackend) cascade(ctx context.Context, root string) (int, error) {
	children, err := b.store.GetArray(ctx, storage.AssocChildrenKey(root))
	if err != nil {
		return 0, err
	}

	removed := 0
	visited := map[string]struct{}{root: {}}
	stack := []*frame{{node: root, children: children}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.children) {
			child := top.children[top.next]
			top.next++

			if _, seen := visited[child]; seen {
				if err := b.removeEdge(ctx, top.node, child); err != nil {
					return removed, err
				}
				removed++
				continue
			}
			visited[child] = struct{}{}

			grandchildren, err := b.store.GetArray(ctx, storage.AssocChildrenKey(child))
			if err != nil {
				return removed, err
			}
			stack = append(stack, &frame{node: child, children: grandchildren})
			continue
		}

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			break
		}
		if err := b.removeEdge(ctx, stack[len(stack)-1].node, top.node); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// GetAssociations reads the one-hop neighbourhood of address.
func (b *SetBackend) GetAssociations(ctx context.Context, address string) (types.Associations, error) {
	children, err := b.store.GetArray(ctx, storage.AssocChildrenKey(address))
	if err != nil {
		return types.Associations{}, err
	}
	parents, err := b.store.GetArray(ctx, storage.AssocParentsKey(address))
	if err != nil {
		return types.Associations{}, err
	}
	return types.Associations{Children: children, Parents: parents}, nil
}
