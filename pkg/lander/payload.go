// Copyright 2025 Interlayer Labs
//
// Package lander implements the three-stage delivery pipeline: Building
// turns PendingOperations into chain-specific Transactions, Inclusion gets
// them mined, Finality confirms them past the reorg window.
package lander

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
)

// PayloadDetails is one message's operation and calldata inside a
// transaction (a transaction may batch several payloads together).
type PayloadDetails struct {
	Op       *pendingop.PendingOperation
	Calldata []byte
}

// TxStatus is a landed-or-landing transaction's lifecycle state.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxMempool   TxStatus = "mempool"
	TxIncluded  TxStatus = "included"
	TxFinalized TxStatus = "finalized"
	TxDropped   TxStatus = "dropped"
)

// Transaction is one submitted (or about-to-be-submitted) unit of work.
type Transaction struct {
	UUID           string
	Destination    uint32
	Status         TxStatus
	DropReason     string
	PayloadDetails []PayloadDetails

	Nonce         uint64
	NonceAssigned bool
	GasLimit      uint64
	GasFeeCap     uint64
	GasTipCap     uint64
	TxHashes      []common.Hash
	IncludedHash  common.Hash
	IncludedBlock uint64
	LastSubmitAt  time.Time
	Signed        *gethtypes.Transaction

	// Reorged marks a transaction the Finality Stage bounced back to
	// TxPending after its inclusion block fell out of the canonical
	// chain -- the admin inspect/reprocess_reorged_transactions surface.
	Reorged bool
}

func (t *Transaction) hasHash(h common.Hash) bool {
	for _, existing := range t.TxHashes {
		if existing == h {
			return true
		}
	}
	return false
}

func (t *Transaction) addHash(h common.Hash) {
	if !t.hasHash(h) {
		t.TxHashes = append(t.TxHashes, h)
	}
}

// ReadyForResubmission implements the policy: immediate if never
// submitted, otherwise wait at least resubmissionDelay since the last
// submit.
func (t *Transaction) ReadyForResubmission(resubmissionDelay time.Duration) bool {
	if t.LastSubmitAt.IsZero() {
		return true
	}
	return time.Since(t.LastSubmitAt) >= resubmissionDelay
}
