// Package monitor follows the chain and feeds every new block, in order, to
// the indexers. It owns the processing checkpoint.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/ltonetwork/indexer/pkg/logging"
	"github.com/ltonetwork/indexer/pkg/node"
	"github.com/ltonetwork/indexer/pkg/retry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of blocks requested per node call.
const DefaultBatchSize = 100

type Node interface {
	LastHeight(ctx context.Context) (uint64, error)
	BlocksSeq(ctx context.Context, from, to uint64) ([]node.Block, error)
}

type Checkpoint interface {
	GetProcessingHeight(ctx context.Context) (uint64, bool, error)
	SaveProcessingHeight(ctx context.Context, height uint64) error
	ClearProcessingHeight(ctx context.Context) error
}

// Indexer processes one transaction; the dispatcher implements it.
type Indexer interface {
	Index(ctx context.Context, raw types.RawTransaction, height uint64, position int) error
}

type Options struct {
	StartingBlock uint64
	StartFromLast bool
	RestartSync   bool
	Interval      time.Duration
	BatchSize     int
	Retry         retry.Config
}

// Status is a snapshot for health reporting.
type Status struct {
	ProcessingHeight uint64 `json:"processingHeight"`
	ChainHeight      uint64 `json:"chainHeight"`
	Syncing          bool   `json:"syncing"`
}

type Monitor struct {
	node       Node
	checkpoint Checkpoint
	indexer    Indexer
	opts       Options
	logger     *zap.Logger

	cron      *cron.Cron
	next      atomic.Uint64
	processed atomic.Uint64
	head      atomic.Uint64
	syncing   atomic.Bool
}

func New(n Node, checkpoint Checkpoint, indexer Indexer, opts Options, logger *zap.Logger) *Monitor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.StartingBlock == 0 {
		opts.StartingBlock = 1
	}
	return &Monitor{node: n, checkpoint: checkpoint, indexer: indexer, opts: opts, logger: logger}
}

// Init resolves the first block to index from the checkpoint or the options.
func (m *Monitor) Init(ctx context.Context) error {
	if m.opts.RestartSync {
		if err := m.checkpoint.ClearProcessingHeight(ctx); err != nil {
			return fmt.Errorf("clear checkpoint: %w", err)
		}
	}

	height, ok, err := m.checkpoint.GetProcessingHeight(ctx)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}

	switch {
	case ok:
		m.processed.Store(height)
		m.next.Store(height + 1)
	case m.opts.StartFromLast:
		head, err := m.lastHeight(ctx)
		if err != nil {
			return err
		}
		m.next.Store(max(head, 1))
	default:
		m.next.Store(m.opts.StartingBlock)
	}

	m.logger.Info("Block monitor initialised",
		zap.Uint64("next_block", m.next.Load()),
		zap.Bool("resumed", ok))
	return nil
}

// Start schedules Sync every Interval. A tick is skipped while the previous
// one is still running.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.Init(ctx); err != nil {
		return err
	}

	cl := logging.CronLogger(m.logger)
	m.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	spec := "@every " + m.opts.Interval.String()
	if _, err := m.cron.AddFunc(spec, func() {
		if err := m.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("Block sync failed", zap.Uint64("next_block", m.next.Load()), zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}

	m.cron.Start()
	m.logger.Info("Block monitor started", zap.String("schedule", spec))
	return nil
}

// Stop waits for a running Sync to finish.
func (m *Monitor) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// Status reports how far indexing got.
func (m *Monitor) Status() Status {
	return Status{
		ProcessingHeight: m.processed.Load(),
		ChainHeight:      m.head.Load(),
		Syncing:          m.syncing.Load(),
	}
}

// Sync indexes every block between the checkpoint and the chain head.
func (m *Monitor) Sync(ctx context.Context) error {
	if !m.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer m.syncing.Store(false)

	head, err := m.lastHeight(ctx)
	if err != nil {
		return err
	}
	m.head.Store(head)

	for next := m.next.Load(); next <= head; next = m.next.Load() {
		to := min(next+uint64(m.opts.BatchSize)-1, head)

		var blocks []node.Block
		err := retry.WithBackoff(ctx, m.opts.Retry, m.logger, "fetch blocks", func() error {
			var err error
			blocks, err = m.node.BlocksSeq(ctx, next, to)
			return permanentOnClientError(err)
		})
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			m.logger.Warn("Node returned no blocks", zap.Uint64("from", next), zap.Uint64("to", to))
			return nil
		}

		for _, block := range blocks {
			if err := m.processBlock(ctx, block); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Monitor) processBlock(ctx context.Context, block node.Block) error {
	expected := m.next.Load()
	if block.Height != expected {
		return fmt.Errorf("node returned block %d, expected %d", block.Height, expected)
	}

	for position, tx := range block.Transactions {
		if err := m.indexer.Index(ctx, tx, block.Height, position); err != nil {
			return fmt.Errorf("block %d: %w", block.Height, err)
		}
	}

	if err := m.checkpoint.SaveProcessingHeight(ctx, block.Height); err != nil {
		return fmt.Errorf("save checkpoint %d: %w", block.Height, err)
	}
	m.processed.Store(block.Height)
	m.next.Store(block.Height + 1)

	m.logger.Debug("Indexed block",
		zap.Uint64("height", block.Height),
		zap.Int("transactions", len(block.Transactions)))
	return nil
}

func (m *Monitor) lastHeight(ctx context.Context) (uint64, error) {
	var head uint64
	err := retry.WithBackoff(ctx, m.opts.Retry, m.logger, "fetch chain height", func() error {
		var err error
		head, err = m.node.LastHeight(ctx)
		return permanentOnClientError(err)
	})
	return head, err
}

// permanentOnClientError stops retries on 4xx responses.
func permanentOnClientError(err error) error {
	var statusErr *node.StatusError
	if errors.As(err, &statusErr) && statusErr.Code < 500 {
		return retry.Permanent(err)
	}
	return err
}
