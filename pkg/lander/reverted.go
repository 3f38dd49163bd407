// Copyright 2025 Interlayer Labs

package lander

import (
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
)

// AnalyzeRevert decides, for a transaction whose receipt came back failed,
// which of its payloads actually caused the revert and which can be
// resubmitted on their own. A single-payload transaction (every EVM mailbox
// call today, since the mailbox has no multicall entrypoint) has only one
// possible culprit: the payload itself. A chain adapter that does support
// batched multicall submission would report a per-subcall success bitmap on
// its TxReceipt and this is where that bitmap would be consulted to split
// survivors from the culprit instead of condemning the whole batch.
func AnalyzeRevert(tx *Transaction, log *logging.Logger) (survivors []PayloadDetails) {
	if len(tx.PayloadDetails) == 1 {
		pd := tx.PayloadDetails[0]
		pd.Op.Status = pendingop.Dropped
		pd.Op.DropReason = pendingop.DropReverted
		if log != nil {
			log.Warn("payload reverted on-chain, dropping",
				logging.Field{Key: "message_id", Value: pd.Op.MessageID.Hex()},
				logging.Field{Key: "tx_hash", Value: tx.IncludedHash.Hex()},
			)
		}
		return nil
	}

	// No per-subcall bitmap is available yet for any wired chain adapter;
	// condemn every payload in the batch rather than guess which one failed.
	for _, pd := range tx.PayloadDetails {
		pd.Op.Status = pendingop.Dropped
		pd.Op.DropReason = pendingop.DropReverted
	}
	return nil
}
