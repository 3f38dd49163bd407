// Copyright 2025 Interlayer Labs

package lander

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/metrics"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// BuildingStage pops ready-to-submit operations off the scheduler's submit
// queue and turns them into Transaction precursors. It never signs or
// submits -- that is the Inclusion Stage's job.
type BuildingStage struct {
	Mailbox      chain.Mailbox
	OriginDBFor  func(origin types.Domain) *origindb.DB
	MaxBatchSize int
	Registry     *Registry
	Out          chan<- *Transaction
}

// Drain blocks for the first operation, then greedily pulls any more that
// are already queued (up to MaxBatchSize) before emitting one Transaction
// per drained operation. EVM's mailbox has no multicall batching today, so each
// Transaction carries exactly one payload; chains that do batch would fan
// a whole drained set into fewer transactions here.
func (b *BuildingStage) Drain(ctx context.Context, submitQueue <-chan *pendingop.PendingOperation) error {
	var batch []*pendingop.PendingOperation
	select {
	case op, ok := <-submitQueue:
		if !ok {
			return nil
		}
		batch = append(batch, op)
	case <-ctx.Done():
		return ctx.Err()
	}
drain:
	for len(batch) < b.MaxBatchSize {
		select {
		case op, ok := <-submitQueue:
			if !ok {
				break drain
			}
			batch = append(batch, op)
		default:
			break drain
		}
	}

	for _, op := range batch {
		tx, err := b.build(ctx, op)
		if err != nil {
			op.Status = pendingop.Dropped
			op.DropReason = pendingop.DropReverted
			metrics.DroppedTotal.WithLabelValues(strconv.FormatUint(uint64(op.Destination), 10), string(op.DropReason)).Inc()
			continue
		}
		if b.Registry != nil {
			b.Registry.Put(tx)
		}
		select {
		case b.Out <- tx:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *BuildingStage) build(ctx context.Context, op *pendingop.PendingOperation) (*Transaction, error) {
	db := b.OriginDBFor(op.Origin)
	if db == nil {
		return nil, fmt.Errorf("lander: no origin database for domain %d", op.Origin)
	}
	message, err := db.GetMessageByNonce(op.Nonce)
	if err != nil || message == nil {
		return nil, fmt.Errorf("lander: no origin message for nonce %d", op.Nonce)
	}
	calldata, err := b.Mailbox.ProcessCalldata(ctx, message, op.Metadata)
	if err != nil {
		return nil, fmt.Errorf("lander: build calldata for %s: %w", op.MessageID, err)
	}

	op.TxUUID = uuid.NewString()
	op.Status = pendingop.InTransaction

	return &Transaction{
		UUID:           op.TxUUID,
		Destination:    uint32(op.Destination),
		Status:         TxPending,
		PayloadDetails: []PayloadDetails{{Op: op, Calldata: calldata}},
	}, nil
}
