package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// Gateway maps indexer concepts (anchors, roles, stats, checkpoints) onto a Store.
// Object updates are read-modify-write and rely on the single indexing writer.
type Gateway struct {
	store  Store
	logger *zap.Logger
}

// NewGateway wraps the active backend.
func NewGateway(store Store, logger *zap.Logger) *Gateway {
	return &Gateway{store: store, logger: logger}
}

// Store exposes the backend for components that own their own key layout.
func (g *Gateway) Store() Store {
	return g.store
}

// Close closes the backend.
func (g *Gateway) Close() error {
	return g.store.Close()
}

// SaveAnchor records the transaction that anchored hash.
func (g *Gateway) SaveAnchor(ctx context.Context, hash string, rec types.AnchorRecord) error {
	obj := NewObject()
	if err := obj.Set("id", rec.ID); err != nil {
		return err
	}
	if err := obj.Set("blockHeight", rec.BlockHeight); err != nil {
		return err
	}
	if err := obj.Set("position", rec.Position); err != nil {
		return err
	}
	return g.store.SetObject(ctx, AnchorKey(hash), obj)
}

// GetAnchor returns the anchoring transaction of hash; ok is false when unknown.
func (g *Gateway) GetAnchor(ctx context.Context, hash string) (types.AnchorRecord, bool, error) {
	obj, err := g.store.GetObject(ctx, AnchorKey(hash))
	if err != nil {
		return types.AnchorRecord{}, false, err
	}
	if obj.Len() == 0 {
		return types.AnchorRecord{}, false, nil
	}
	raw, err := obj.MarshalJSON()
	if err != nil {
		return types.AnchorRecord{}, false, err
	}
	var rec types.AnchorRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.AnchorRecord{}, false, fmt.Errorf("decode anchor %s: %w", hash, err)
	}
	return rec, true, nil
}

func (g *Gateway) SavePublicKey(ctx context.Context, address, publicKey string) error {
	return g.store.SetValue(ctx, PublicKeyKey(address), publicKey)
}

// GetPublicKey returns ErrNotFound for addresses never seen as sender.
func (g *Gateway) GetPublicKey(ctx context.Context, address string) (string, error) {
	return g.store.GetValue(ctx, PublicKeyKey(address))
}

// SaveVerificationMethod registers m under its sender, keyed by recipient. A
// later registration of the same recipient replaces the earlier one.
func (g *Gateway) SaveVerificationMethod(ctx context.Context, m types.VerificationMethod) error {
	key := VerificationKey(m.Sender)
	obj, err := g.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	if err := obj.Set(m.Recipient, m); err != nil {
		return err
	}
	return g.store.SetObject(ctx, key, obj)
}

// RevokeVerificationMethod marks the method of recipient under address as
// revoked at revokedAt. Unknown recipients are ignored.
func (g *Gateway) RevokeVerificationMethod(ctx context.Context, address, recipient string, revokedAt int64) error {
	key := VerificationKey(address)
	obj, err := g.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	var m types.VerificationMethod
	ok, err := obj.Get(recipient, &m)
	if err != nil {
		return fmt.Errorf("decode verification method %s of %s: %w", recipient, address, err)
	}
	if !ok {
		return nil
	}
	m.RevokedAt = revokedAt
	if err := obj.Set(recipient, m); err != nil {
		return err
	}
	return g.store.SetObject(ctx, key, obj)
}

// GetVerificationMethods returns the unrevoked methods of address in registration order.
func (g *Gateway) GetVerificationMethods(ctx context.Context, address string) ([]types.VerificationMethod, error) {
	obj, err := g.store.GetObject(ctx, VerificationKey(address))
	if err != nil {
		return nil, fmt.Errorf("get verification methods of %s: %w", address, err)
	}
	out := make([]types.VerificationMethod, 0, obj.Len())
	for _, recipient := range obj.Keys() {
		var m types.VerificationMethod
		if _, err := obj.Get(recipient, &m); err != nil {
			return nil, fmt.Errorf("get verification methods of %s: %w", address, err)
		}
		if m.RevokedAt != 0 {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// GetRolesFor returns the roles held by address in storage order.
func (g *Gateway) GetRolesFor(ctx context.Context, address string) (types.RoleAssignments, error) {
	obj, err := g.store.GetObject(ctx, RolesKey(address))
	if err != nil {
		return nil, fmt.Errorf("get roles for %s: %w", address, err)
	}
	out := make(types.RoleAssignments, 0, obj.Len())
	for _, name := range obj.Keys() {
		var a types.RoleAssignment
		if _, err := obj.Get(name, &a); err != nil {
			return nil, fmt.Errorf("get roles for %s: %w", address, err)
		}
		a.Role = name
		out = append(out, a)
	}
	return out, nil
}

// SaveRoleAssociation grants role to recipient; a later grant of the same role overwrites in place.
func (g *Gateway) SaveRoleAssociation(ctx context.Context, recipient, sender string, role types.Role) error {
	key := RolesKey(recipient)
	obj, err := g.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	if err := obj.Set(role.Role, types.RoleAssignment{Sender: sender, Type: role.Type}); err != nil {
		return err
	}
	return g.store.SetObject(ctx, key, obj)
}

// RemoveRoleAssociation drops role from recipient. Removing an absent role is a no-op write.
func (g *Gateway) RemoveRoleAssociation(ctx context.Context, recipient string, role types.Role) error {
	key := RolesKey(recipient)
	obj, err := g.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	obj.Delete(role.Role)
	return g.store.SetObject(ctx, key, obj)
}

// Day converts a millisecond timestamp into the stats day bucket.
func Day(timestampMillis int64) int64 {
	return timestampMillis / dayMillis
}

func (g *Gateway) IncrTxStats(ctx context.Context, txType string, day int64) error {
	return g.store.IncrValue(ctx, TxStatsKey(txType, day))
}

func (g *Gateway) IncrOperationStats(ctx context.Context) error {
	return g.store.IncrValue(ctx, OperationStatsKey)
}

// GetOperationStats returns the number of indexed operations, 0 before the first one.
func (g *Gateway) GetOperationStats(ctx context.Context) (int64, error) {
	v, err := g.store.GetValue(ctx, OperationStatsKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (g *Gateway) SetTxFeeBurned(ctx context.Context, amount int64) error {
	return g.store.SetValue(ctx, TxFeeBurnedKey, strconv.FormatInt(amount, 10))
}

// GetTxFeeBurned returns the burned fees so far, 0 before the first burn.
func (g *Gateway) GetTxFeeBurned(ctx context.Context) (int64, error) {
	v, err := g.store.GetValue(ctx, TxFeeBurnedKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (g *Gateway) SetFeeBurnFeatureHeight(ctx context.Context, height uint64) error {
	return g.store.SetValue(ctx, FeeBurnHeightKey, strconv.FormatUint(height, 10))
}

// GetFeeBurnFeatureHeight returns the activation height of fee burning; ok is
// false while it is unknown.
func (g *Gateway) GetFeeBurnFeatureHeight(ctx context.Context) (uint64, bool, error) {
	v, err := g.store.GetValue(ctx, FeeBurnHeightKey)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	h, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse fee burn height %q: %w", v, err)
	}
	return h, true, nil
}

// GetSupply reads the fee burn state.
func (g *Gateway) GetSupply(ctx context.Context) (types.Supply, error) {
	burned, err := g.GetTxFeeBurned(ctx)
	if err != nil {
		return types.Supply{}, fmt.Errorf("get tx fee burned: %w", err)
	}
	supply := types.Supply{TxFeeBurned: burned}
	h, ok, err := g.GetFeeBurnFeatureHeight(ctx)
	if err != nil {
		return types.Supply{}, err
	}
	if ok {
		supply.FeeBurnFeatureHeight = &h
	}
	return supply, nil
}

// PeriodCount is the number of transactions of one type indexed on one day.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// GetTxStats returns one entry per day in [fromDay, toDay].
func (g *Gateway) GetTxStats(ctx context.Context, txType string, fromDay, toDay int64) ([]PeriodCount, error) {
	if toDay < fromDay {
		return []PeriodCount{}, nil
	}
	keys := make([]string, 0, toDay-fromDay+1)
	for d := fromDay; d <= toDay; d++ {
		keys = append(keys, TxStatsKey(txType, d))
	}
	values, err := g.store.GetMultipleValues(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]PeriodCount, len(keys))
	for i := range keys {
		day := fromDay + int64(i)
		var n int64
		if values[i] != "" {
			if n, err = strconv.ParseInt(values[i], 10, 64); err != nil {
				return nil, fmt.Errorf("parse stats for day %d: %w", day, err)
			}
		}
		out[i] = PeriodCount{
			Period: time.UnixMilli(day * dayMillis).UTC().Format("2006-01-02 00:00:00"),
			Count:  n,
		}
	}
	return out, nil
}

func (g *Gateway) IndexTx(ctx context.Context, txType, address, txID string, timestamp int64) error {
	return g.store.IndexTx(ctx, txType, address, txID, timestamp)
}

func (g *Gateway) CountTx(ctx context.Context, txType, address string) (int64, error) {
	return g.store.CountTx(ctx, txType, address)
}

func (g *Gateway) GetTx(ctx context.Context, txType, address string, limit, offset int) ([]string, error) {
	return g.store.GetTx(ctx, txType, address, limit, offset)
}

// GetProcessingHeight returns the last fully indexed block; ok is false before the first block.
func (g *Gateway) GetProcessingHeight(ctx context.Context) (uint64, bool, error) {
	v, err := g.store.GetValue(ctx, ProcessingHeightKey)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	h, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse processing height %q: %w", v, err)
	}
	return h, true, nil
}

func (g *Gateway) SaveProcessingHeight(ctx context.Context, height uint64) error {
	return g.store.SetValue(ctx, ProcessingHeightKey, strconv.FormatUint(height, 10))
}

func (g *Gateway) ClearProcessingHeight(ctx context.Context) error {
	g.logger.Info("Clearing processing height")
	return g.store.DelValue(ctx, ProcessingHeightKey)
}
