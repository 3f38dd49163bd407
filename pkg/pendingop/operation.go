// Copyright 2025 Interlayer Labs
//
// Package pendingop implements the PendingOperation state machine and the
// per-destination scheduler: a prepare queue (min-heap on next_attempt_after)
// feeding a submit queue (FIFO) that the Lander's Building Stage drains.
package pendingop

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Status is a PendingOperation's lifecycle state.
type Status string

const (
	FirstPrepareAttempt Status = "first_prepare_attempt"
	PrepareRetry        Status = "prepare_retry"
	ReadyToSubmit       Status = "ready_to_submit"
	InTransaction       Status = "in_transaction"
	Done                Status = "done"
	Dropped             Status = "dropped"
	Reorged             Status = "reorged"
)

// DropReason records why an operation was dropped, for observability.
type DropReason string

const (
	DropReverted    DropReason = "reverted"
	DropNonceReused DropReason = "nonce_reused"
	DropReorgedOut  DropReason = "reorged"
)

// PendingOperation tracks one dispatched message through metadata build,
// gas-policy evaluation and delivery.
type PendingOperation struct {
	MessageID    common.Hash
	Nonce        uint32
	Origin       types.Domain
	Destination  types.Domain
	Status       Status
	DropReason   DropReason `json:",omitempty"`
	Attempts     int
	NextAttemptAfter time.Time
	ISMAddress   *common.Address `json:",omitempty"`
	Metadata     []byte          `json:",omitempty"`
	TxUUID       string          `json:",omitempty"`
	Priority     bool // set by the admin retry channel
}

func New(message *types.HyperlaneMessage) *PendingOperation {
	return &PendingOperation{
		MessageID:   message.ID(),
		Nonce:       message.Nonce,
		Origin:      message.Origin,
		Destination: message.Destination,
		Status:      FirstPrepareAttempt,
	}
}

func (op *PendingOperation) Encode() ([]byte, error) {
	buf, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("pendingop: encode %s: %w", op.MessageID, err)
	}
	return buf, nil
}

func Decode(buf []byte) (*PendingOperation, error) {
	var op PendingOperation
	if err := json.Unmarshal(buf, &op); err != nil {
		return nil, fmt.Errorf("pendingop: decode: %w", err)
	}
	return &op, nil
}

// NextBackoff computes the next retry delay, doubling each attempt up to
// maxInterval.
func NextBackoff(attempts int, base, maxInterval time.Duration) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= maxInterval {
			return maxInterval
		}
	}
	return d
}
