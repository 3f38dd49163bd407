// Copyright 2025 Interlayer Labs

package lander

import (
	"context"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/lander/noncemgr"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// FinalityStage watches an included transaction until it sits deep enough
// behind the destination chain's tip to be irreversible, or reports that a
// reorg pulled it back out of the canonical chain.
type FinalityStage struct {
	Provider    chain.Provider
	ReorgPeriod uint64
	OriginDBFor func(origin types.Domain) *origindb.DB
	Registry    *Registry
	Nonces      *noncemgr.Manager
	Log         *logging.Logger
}

// Result reports what Check decided for one transaction this tick.
type Result int

const (
	StillPending Result = iota
	Finalized
	ReorgedOut
)

// Check compares the transaction's inclusion block to the current tip. A
// transaction included less than ReorgPeriod blocks ago is still pending;
// deep enough, it is finalized; if its receipt is no longer found, or now
// sits in a different block than the one recorded, it reports ReorgedOut
// and the caller hands it back to the Inclusion Stage via Revert.
func (f *FinalityStage) Check(ctx context.Context, tx *Transaction) (Result, error) {
	if tx.Status != TxIncluded {
		return StillPending, nil
	}

	receipt, err := f.Provider.TransactionReceipt(ctx, tx.IncludedHash)
	if err != nil {
		if chain.IsTransient(err) {
			return StillPending, nil
		}
		return StillPending, err
	}
	if receipt == nil || receipt.BlockNumber != tx.IncludedBlock {
		return ReorgedOut, nil
	}

	tip, err := f.Provider.CurrentBlock(ctx)
	if err != nil {
		if chain.IsTransient(err) {
			return StillPending, nil
		}
		return StillPending, err
	}

	if tip < tx.IncludedBlock+f.ReorgPeriod {
		return StillPending, nil
	}

	tx.Status = TxFinalized
	if f.Nonces != nil && tx.NonceAssigned {
		f.Nonces.MarkCommitted(tx.Nonce, tx.UUID)
	}
	for _, pd := range tx.PayloadDetails {
		pd.Op.Status = pendingop.Done
		db := f.OriginDBFor(pd.Op.Origin)
		if db != nil {
			_ = db.MarkDelivered(pd.Op.MessageID, &chain.LogMeta{
				TxHash:      tx.IncludedHash,
				BlockNumber: tx.IncludedBlock,
			})
		}
	}
	if f.Registry != nil {
		f.Registry.Remove(tx.UUID)
	}
	return Finalized, nil
}

// Revert transitions tx back to TxPending and drops its recorded inclusion
// so the Inclusion Stage resubmits it fresh -- called when Check reports
// ReorgedOut.
func (f *FinalityStage) Revert(tx *Transaction) {
	tx.Status = TxPending
	tx.IncludedHash = [32]byte{}
	tx.IncludedBlock = 0
	tx.Reorged = true
	for _, pd := range tx.PayloadDetails {
		pd.Op.Status = pendingop.Reorged
	}
}
