// Copyright 2025 Interlayer Labs
//
// Package contractsync drives the cursors for one origin chain, writing
// every observed event into that origin's database. It is the write side
// of the relayer's chain observation boundary; the Message Processor reads
// what this package commits.
package contractsync

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/cursor"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// ReorgHandler is notified when a cursor backtracks; the pending-operation
// scheduler uses this to mark affected operations Reorged.
type ReorgHandler func(cursor.ReorgEvent)

// Syncer owns every cursor for one origin domain.
type Syncer struct {
	domain types.Domain
	db     *origindb.DB
	log    *logging.Logger

	dispatched *cursor.BlockRangeCursor
	gasPayment *cursor.BlockRangeCursor
	insertions *cursor.BlockRangeCursor
	reorgs     ReorgHandler
}

// Config parameterizes the cursors for one origin.
type Config struct {
	Domain            types.Domain
	ChunkSize         uint64
	ReorgPeriod       uint64
	SafetyMargin      uint64
	RPCRateLimit      rate.Limit // requests/sec budget shared by all three streams; 0 disables limiting
	RPCRateBurst      int
}

func New(cfg Config, indexer chain.Indexer, db *origindb.DB, log *logging.Logger, onReorg ReorgHandler) *Syncer {
	s := &Syncer{domain: cfg.Domain, db: db, log: log, reorgs: onReorg}
	wrap := func(e cursor.ReorgEvent) {
		if log != nil {
			log.Warn("reorg detected, backtracking cursor",
				logging.Field{Key: "domain", Value: cfg.Domain},
				logging.Field{Key: "index", Value: e.Index},
			)
		}
		if onReorg != nil {
			onReorg(e)
		}
	}

	var limiter *rate.Limiter
	if cfg.RPCRateLimit > 0 {
		limiter = rate.NewLimiter(cfg.RPCRateLimit, cfg.RPCRateBurst)
	}

	s.dispatched = cursor.NewBlockRangeCursor(cfg.Domain, "dispatched_message", chain.EventDispatchedMessage, indexer, db, cfg.ChunkSize, cfg.ReorgPeriod, cfg.SafetyMargin, wrap).WithRateLimit(limiter)
	s.gasPayment = cursor.NewBlockRangeCursor(cfg.Domain, "interchain_gas_payment", chain.EventInterchainGasPayment, indexer, db, cfg.ChunkSize, cfg.ReorgPeriod, cfg.SafetyMargin, wrap).WithRateLimit(limiter)
	s.insertions = cursor.NewBlockRangeCursor(cfg.Domain, "merkle_tree_insertion", chain.EventMerkleTreeInsertion, indexer, db, cfg.ChunkSize, cfg.ReorgPeriod, cfg.SafetyMargin, wrap).WithRateLimit(limiter)
	return s
}

// TickAll advances every stream once, committing observed events to the
// database. Returns the number of events committed across all streams.
func (s *Syncer) TickAll(ctx context.Context) (int, error) {
	total := 0
	n, err := s.tickDispatched(ctx)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.tickGasPayments(ctx)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.tickInsertions(ctx)
	if err != nil {
		return total, err
	}
	total += n
	return total, nil
}

func (s *Syncer) tickDispatched(ctx context.Context) (int, error) {
	events, err := s.dispatched.Tick(ctx)
	if err != nil {
		return 0, fmt.Errorf("contractsync: dispatched tick: %w", err)
	}
	for _, e := range events {
		msg, ok := e.Payload.(*types.HyperlaneMessage)
		if !ok {
			return 0, fmt.Errorf("contractsync: dispatched event payload has wrong type %T", e.Payload)
		}
		if err := s.writeMessage(msg); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

// writeMessage stores msg at its nonce. A nonce already stored with
// identical content is a no-op (an idempotent re-deliver of a range we've
// already scanned); different content at a stored nonce is an error. It
// does not compare N against the highest stored nonce, so a gap in the
// nonce sequence is not detected here.
func (s *Syncer) writeMessage(msg *types.HyperlaneMessage) error {
	existing, err := s.db.GetMessageByNonce(msg.Nonce)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.ID() != msg.ID() {
			return fmt.Errorf("contractsync: conflicting content at nonce %d for domain %d: unhandled reorg window", msg.Nonce, s.domain)
		}
		return nil // idempotent re-write
	}
	return s.db.PutMessage(msg.Nonce, msg)
}

// tickGasPayments correlates each payment to the leaf index of the message
// it pays for (via the message_id_to_nonce index written by tickDispatched)
// rather than the payment's position within this page of events, since a
// chain may emit several payments for one message or none at all.
func (s *Syncer) tickGasPayments(ctx context.Context) (int, error) {
	events, err := s.gasPayment.Tick(ctx)
	if err != nil {
		return 0, fmt.Errorf("contractsync: gas payment tick: %w", err)
	}
	committed := 0
	for _, e := range events {
		payment, ok := e.Payload.(*types.InterchainGasPayment)
		if !ok {
			return committed, fmt.Errorf("contractsync: gas payment event payload has wrong type %T", e.Payload)
		}
		nonce, known, err := s.db.GetNonceByMessageID(payment.MessageID)
		if err != nil {
			return committed, err
		}
		if !known {
			// the dispatch event for this message hasn't been scanned yet;
			// it will be picked up once the dispatched stream catches up and
			// this payment's block range is re-walked after a cursor reset.
			continue
		}
		if err := s.db.PutGasPayment(nonce, payment); err != nil {
			return committed, err
		}
		committed++
	}
	return committed, nil
}

func (s *Syncer) tickInsertions(ctx context.Context) (int, error) {
	events, err := s.insertions.Tick(ctx)
	if err != nil {
		return 0, fmt.Errorf("contractsync: insertion tick: %w", err)
	}
	for _, e := range events {
		insertion, ok := e.Payload.(*types.MerkleTreeInsertion)
		if !ok {
			return 0, fmt.Errorf("contractsync: insertion event payload has wrong type %T", e.Payload)
		}
		if err := s.db.PutMerkleInsertion(insertion.LeafIndex, insertion); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}
