package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"go.uber.org/zap"
)

// ErrNoWallet is returned when the node reports no wallet addresses.
var ErrNoWallet = errors.New("node has no wallet address")

// Block is a block as returned by the sequence endpoint.
type Block struct {
	Height       uint64                 `json:"height"`
	Timestamp    int64                  `json:"timestamp"`
	Transactions []types.RawTransaction `json:"transactions"`
}

// Client is the indexer's view of an LTO public node.
type Client struct {
	http       *HTTPClient
	sponsorFee int64
	logger     *zap.Logger

	walletMu sync.Mutex
	wallet   string
}

// NewClient wraps an HTTPClient. sponsorFee is attached to sponsorship transactions.
func NewClient(h *HTTPClient, sponsorFee int64, logger *zap.Logger) *Client {
	return &Client{http: h, sponsorFee: sponsorFee, logger: logger}
}

// GetNodeWallet returns the first wallet address of the node. The answer is cached
// after the first success since the wallet does not change while the node runs.
func (c *Client) GetNodeWallet(ctx context.Context) (string, error) {
	c.walletMu.Lock()
	defer c.walletMu.Unlock()
	if c.wallet != "" {
		return c.wallet, nil
	}

	var addresses []string
	if err := c.http.doJSON(ctx, http.MethodGet, addressesPath, nil, &addresses); err != nil {
		return "", fmt.Errorf("get node wallet: %w", err)
	}
	if len(addresses) == 0 || addresses[0] == "" {
		return "", ErrNoWallet
	}
	c.wallet = addresses[0]
	return c.wallet, nil
}

type sponsorshipStatus struct {
	Sponsor []string `json:"sponsor"`
}

// GetSponsorsOf lists the accounts currently sponsoring address.
func (c *Client) GetSponsorsOf(ctx context.Context, address string) ([]string, error) {
	var status sponsorshipStatus
	path := fmt.Sprintf(sponsorshipStatusPath, url.PathEscape(address))
	if err := c.http.doJSON(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, fmt.Errorf("get sponsors of %s: %w", address, err)
	}
	if status.Sponsor == nil {
		return []string{}, nil
	}
	return status.Sponsor, nil
}

// Sponsor makes the node wallet sponsor address.
func (c *Client) Sponsor(ctx context.Context, address string) error {
	return c.sponsorship(ctx, types.TypeSponsorship, address)
}

// CancelSponsor withdraws the node wallet's sponsorship of address.
func (c *Client) CancelSponsor(ctx context.Context, address string) error {
	return c.sponsorship(ctx, types.TypeCancelSponsorship, address)
}

type unsignedTx struct {
	Type      int    `json:"type"`
	Version   int    `json:"version"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Fee       int64  `json:"fee"`
}

// sponsorship signs a (cancel) sponsorship with the node wallet and broadcasts it.
func (c *Client) sponsorship(ctx context.Context, txType int, address string) error {
	wallet, err := c.GetNodeWallet(ctx)
	if err != nil {
		return err
	}

	unsigned := unsignedTx{
		Type:      txType,
		Version:   1,
		Sender:    wallet,
		Recipient: address,
		Fee:       c.sponsorFee,
	}
	var signed map[string]any
	if err := c.http.doJSON(ctx, http.MethodPost, signPath, unsigned, &signed); err != nil {
		return fmt.Errorf("sign %s for %s: %w", types.TypeName(txType), address, err)
	}

	var broadcast struct {
		ID string `json:"id"`
	}
	if err := c.http.doJSON(ctx, http.MethodPost, broadcastPath, signed, &broadcast); err != nil {
		return fmt.Errorf("broadcast %s for %s: %w", types.TypeName(txType), address, err)
	}

	c.logger.Info("Broadcast sponsorship transaction",
		zap.String("type", types.TypeName(txType)),
		zap.String("recipient", address),
		zap.String("tx_id", broadcast.ID))
	return nil
}

// LastHeight returns the current chain height.
func (c *Client) LastHeight(ctx context.Context) (uint64, error) {
	var out struct {
		Height uint64 `json:"height"`
	}
	if err := c.http.doJSON(ctx, http.MethodGet, heightPath, nil, &out); err != nil {
		return 0, fmt.Errorf("get height: %w", err)
	}
	return out.Height, nil
}

// BlocksSeq returns the blocks in [from, to], ascending.
func (c *Client) BlocksSeq(ctx context.Context, from, to uint64) ([]Block, error) {
	if to < from {
		return []Block{}, nil
	}
	var blocks []Block
	if err := c.http.doJSON(ctx, http.MethodGet, fmt.Sprintf(blocksSeqPath, from, to), nil, &blocks); err != nil {
		return nil, fmt.Errorf("get blocks %d-%d: %w", from, to, err)
	}
	return blocks, nil
}

type activationStatus struct {
	Features []struct {
		ID               int     `json:"id"`
		ActivationHeight *uint64 `json:"activationHeight"`
	} `json:"features"`
}

// FeatureActivationHeight returns the height at which feature activates; ok is
// false while the node has not scheduled it.
func (c *Client) FeatureActivationHeight(ctx context.Context, feature int) (uint64, bool, error) {
	var status activationStatus
	if err := c.http.doJSON(ctx, http.MethodGet, activationStatusPath, nil, &status); err != nil {
		return 0, false, fmt.Errorf("get activation status: %w", err)
	}
	for _, f := range status.Features {
		if f.ID == feature && f.ActivationHeight != nil {
			return *f.ActivationHeight, true, nil
		}
	}
	return 0, false, nil
}
