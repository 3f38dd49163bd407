// Copyright 2025 Interlayer Labs
//
// Package cursor implements the two contract-sync cursor modes: block-range
// (query [from, safe], commit, advance) and sequence-aware (walk forward by
// a cheap monotonic counter). Both report ReorgEvents when a previously
// committed block hash no longer matches the canonical chain.
package cursor

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// ReorgEvent is emitted when a cursor finds the canonical chain no longer
// matches what was committed at an already-processed height.
type ReorgEvent struct {
	Domain       types.Domain
	LocalRoot    common.Hash // block hash we had committed
	CanonicalRoot common.Hash // block hash the chain now reports
	Index        uint64      // block height at which the mismatch was found
	Timestamp    time.Time
	ReorgPeriod  uint64
}

// BlockRangeCursor drives the block-range mode described for most event
// kinds: messages, IGP payments, merkle insertions.
type BlockRangeCursor struct {
	Domain     types.Domain
	Stream     string
	Kind       chain.EventKind
	ChunkSize  uint64
	ReorgPeriod uint64
	SafetyMargin uint64

	indexer chain.Indexer
	db      *origindb.DB
	onReorg func(ReorgEvent)
	limiter *rate.Limiter
}

func NewBlockRangeCursor(domain types.Domain, stream string, kind chain.EventKind, indexer chain.Indexer, db *origindb.DB, chunkSize, reorgPeriod, safetyMargin uint64, onReorg func(ReorgEvent)) *BlockRangeCursor {
	return &BlockRangeCursor{
		Domain: domain, Stream: stream, Kind: kind, ChunkSize: chunkSize,
		ReorgPeriod: reorgPeriod, SafetyMargin: safetyMargin,
		indexer: indexer, db: db, onReorg: onReorg,
	}
}

// WithRateLimit caps how often this cursor hits the origin chain's RPC
// endpoint -- shared across every stream on one origin since they all
// target the same node.
func (c *BlockRangeCursor) WithRateLimit(limiter *rate.Limiter) *BlockRangeCursor {
	c.limiter = limiter
	return c
}

// Tick performs one query-commit-advance step and returns the events
// committed, or (nil, nil) if the tip is empty and the caller should sleep
// the chain's estimated block time.
func (c *BlockRangeCursor) Tick(ctx context.Context) ([]chain.LogEvent, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	state, err := c.db.GetCursor(c.Stream)
	if err != nil {
		return nil, fmt.Errorf("cursor: load state for %s: %w", c.Stream, err)
	}
	from := uint64(0)
	if state != nil {
		from = state.NextFromBlock
		if err := c.checkForReorg(ctx, state); err != nil {
			return nil, err
		}
		reloaded, err := c.db.GetCursor(c.Stream)
		if err != nil {
			return nil, fmt.Errorf("cursor: reload state for %s: %w", c.Stream, err)
		}
		if reloaded != nil {
			from = reloaded.NextFromBlock
		}
	}

	safe, err := c.indexer.GetFinalizedBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if from > safe {
		return nil, nil // nothing new yet; caller sleeps estimated_block_time
	}

	to := from + c.ChunkSize - 1
	if to > safe {
		to = safe
	}

	events, err := c.indexer.FetchLogs(ctx, c.Kind, chain.BlockRange{From: from, To: to})
	if err != nil {
		return nil, err
	}

	blockHash, err := c.indexer.BlockHash(ctx, to)
	if err != nil {
		return nil, err
	}
	if err := c.db.PutCursor(c.Stream, &origindb.CursorState{NextFromBlock: to + 1, BlockHashAtLastCommit: blockHash}); err != nil {
		return nil, fmt.Errorf("cursor: commit state for %s: %w", c.Stream, err)
	}
	return events, nil
}

// checkForReorg re-derives the block hash at the last committed height and
// compares it against what we stored; a mismatch means the chain reorged
// underneath us and we must backtrack.
func (c *BlockRangeCursor) checkForReorg(ctx context.Context, state *origindb.CursorState) error {
	if state.NextFromBlock == 0 || state.BlockHashAtLastCommit == (common.Hash{}) {
		return nil // nothing committed yet, or just backtracked
	}
	lastCommitted := state.NextFromBlock - 1
	canonical, err := c.indexer.BlockHash(ctx, lastCommitted)
	if err != nil {
		return err
	}
	if canonical == state.BlockHashAtLastCommit {
		return nil
	}
	event := ReorgEvent{
		Domain:        c.Domain,
		LocalRoot:     state.BlockHashAtLastCommit,
		CanonicalRoot: canonical,
		Index:         lastCommitted,
		ReorgPeriod:   c.ReorgPeriod,
	}
	if c.onReorg != nil {
		c.onReorg(event)
	}
	return c.Backtrack(ctx)
}

// Backtrack moves the cursor backward by reorg_period + safety_margin
// blocks to re-scan the suspect window.
func (c *BlockRangeCursor) Backtrack(ctx context.Context) error {
	state, err := c.db.GetCursor(c.Stream)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	step := c.ReorgPeriod + c.SafetyMargin
	newFrom := uint64(0)
	if state.NextFromBlock > step {
		newFrom = state.NextFromBlock - step
	}
	return c.db.PutCursor(c.Stream, &origindb.CursorState{NextFromBlock: newFrom, BlockHashAtLastCommit: common.Hash{}})
}

// SequenceCursor drives sequence-aware mode for event kinds with a cheap
// monotonic counter (e.g. EVM mailbox dispatch nonces).
type SequenceCursor struct {
	Domain types.Domain
	Stream string
	Kind   chain.EventKind

	indexer chain.Indexer
	db      *origindb.DB
}

func NewSequenceCursor(domain types.Domain, stream string, kind chain.EventKind, indexer chain.Indexer, db *origindb.DB) *SequenceCursor {
	return &SequenceCursor{Domain: domain, Stream: stream, Kind: kind, indexer: indexer, db: db}
}

// Advance reports the latest sequence value the chain has reached; callers
// combine this with a processor-owned "last processed nonce" watermark to
// decide how far to walk forward.
func (c *SequenceCursor) Advance(ctx context.Context) (uint64, error) {
	return c.indexer.LatestSequence(ctx, c.Kind)
}
