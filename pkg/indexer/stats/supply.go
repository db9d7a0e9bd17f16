package stats

import (
	"context"
	"fmt"
	"sync"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

// recheckBlocks is how many blocks pass before the node is asked again for an
// unscheduled fee burn feature.
const recheckBlocks = 1000

type SupplyStore interface {
	GetTxFeeBurned(ctx context.Context) (int64, error)
	SetTxFeeBurned(ctx context.Context, amount int64) error
	GetFeeBurnFeatureHeight(ctx context.Context) (uint64, bool, error)
	SetFeeBurnFeatureHeight(ctx context.Context, height uint64) error
}

type FeatureNode interface {
	FeatureActivationHeight(ctx context.Context, feature int) (uint64, bool, error)
}

// SupplyIndexer adds burnAmount to the burned fees for every transaction at or
// above the activation height of the fee burn feature.
type SupplyIndexer struct {
	store      SupplyStore
	node       FeatureNode
	feature    int
	burnAmount int64
	logger     *zap.Logger

	mu        sync.Mutex
	height    uint64
	known     bool
	checked   bool
	checkedAt uint64
}

func NewSupplyIndexer(store SupplyStore, node FeatureNode, feature int, burnAmount int64, logger *zap.Logger) *SupplyIndexer {
	return &SupplyIndexer{store: store, node: node, feature: feature, burnAmount: burnAmount, logger: logger}
}

func (s *SupplyIndexer) Name() string { return "supply" }

func (s *SupplyIndexer) Index(ctx context.Context, doc types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, ok, err := s.activationHeight(ctx, doc.BlockHeight)
	if err != nil {
		return err
	}
	if !ok || doc.BlockHeight < height {
		return nil
	}

	burned, err := s.store.GetTxFeeBurned(ctx)
	if err != nil {
		return fmt.Errorf("get tx fee burned: %w", err)
	}
	if err := s.store.SetTxFeeBurned(ctx, burned+s.burnAmount); err != nil {
		return fmt.Errorf("set tx fee burned: %w", err)
	}
	return nil
}

// activationHeight resolves the fee burn height from storage, then the node.
// While the node has not scheduled the feature it is asked at most once every
// recheckBlocks blocks.
func (s *SupplyIndexer) activationHeight(ctx context.Context, blockHeight uint64) (uint64, bool, error) {
	if s.known {
		return s.height, true, nil
	}

	h, ok, err := s.store.GetFeeBurnFeatureHeight(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("get fee burn height: %w", err)
	}
	if !ok {
		if s.checked && blockHeight < s.checkedAt+recheckBlocks {
			return 0, false, nil
		}
		s.checked, s.checkedAt = true, blockHeight
		if h, ok, err = s.node.FeatureActivationHeight(ctx, s.feature); err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, nil
		}
		if err := s.store.SetFeeBurnFeatureHeight(ctx, h); err != nil {
			return 0, false, fmt.Errorf("set fee burn height: %w", err)
		}
		s.logger.Info("Fee burn feature scheduled", zap.Int("feature", s.feature), zap.Uint64("activation_height", h))
	}

	s.height, s.known = h, true
	return h, true, nil
}
