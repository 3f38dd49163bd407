// Copyright 2025 Interlayer Labs
//
// Package processor implements the per-origin Message Processor: it walks
// dispatched messages in nonce order, applies whitelist/blacklist filters,
// and hands surviving messages to the destination-specific pending-op queue.
package processor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

const processedCursorStream = "message_processor"

// SchedulerFor resolves the pending-operation scheduler for a message's
// destination domain; the Relayer wires one scheduler per destination.
type SchedulerFor func(destination types.Domain) *pendingop.Scheduler

// Processor walks one origin's committed messages in nonce order and hands
// each one that passes Filters to its destination's scheduler.
type Processor struct {
	Origin       types.Domain
	DB           *origindb.DB
	Filters      FilterSet
	SchedulerFor SchedulerFor
	Log          *logging.Logger

	// IdleDelay is how long Run sleeps after finding no new message before
	// checking again.
	IdleDelay time.Duration
}

// Run walks forward from the last processed nonce until ctx is cancelled,
// advancing its own cursor only after a message has been either handed off
// or filtered out -- so a restart resumes exactly where it left off.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		advanced, err := p.tick(ctx)
		if err != nil {
			if p.Log != nil {
				p.Log.Error("processor tick failed", logging.Field{Key: "error", Value: err.Error()})
			}
		}
		if !advanced {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.idleDelay()):
			}
		}
	}
}

func (p *Processor) idleDelay() time.Duration {
	if p.IdleDelay > 0 {
		return p.IdleDelay
	}
	return time.Second
}

// tick processes exactly one message if one is available past the
// committed cursor, and reports whether it made progress.
func (p *Processor) tick(ctx context.Context) (bool, error) {
	state, err := p.DB.GetCursor(processedCursorStream)
	if err != nil {
		return false, err
	}
	nextNonce := uint32(0)
	if state != nil {
		nextNonce = uint32(state.NextFromBlock)
	}

	message, err := p.DB.GetMessageByNonce(nextNonce)
	if err != nil {
		return false, err
	}
	if message == nil {
		return false, nil
	}

	if p.Filters.Allows(message) {
		if sched := p.SchedulerFor(message.Destination); sched != nil {
			sched.Enqueue(pendingop.New(message))
		} else if p.Log != nil {
			p.Log.Warn("no scheduler for destination, dropping",
				logging.Field{Key: "destination", Value: message.Destination},
				logging.Field{Key: "nonce", Value: message.Nonce},
			)
		}
	}

	if err := p.DB.PutCursor(processedCursorStream, &origindb.CursorState{NextFromBlock: uint64(nextNonce) + 1}); err != nil {
		return false, err
	}
	return true, nil
}

// AdminRetry looks up an in-flight message by id across the scheduler for
// its recorded destination and bumps it to priority -- the message_retry
// admin endpoint.
func AdminRetry(sched *pendingop.Scheduler, messageID common.Hash) bool {
	return sched.Retry(messageID)
}
