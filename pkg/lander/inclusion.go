// Copyright 2025 Interlayer Labs

package lander

import (
	"context"
	"fmt"
	"time"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/lander/noncemgr"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/origindb"
	"github.com/interlayer-labs/relayer-core/pkg/pendingop"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// gasEscalationFactorNumerator/Denominator bump the fee cap by 12.5% on
// each resubmission, comfortably above the 10% most clients require to
// accept a replacement transaction at the same nonce.
const (
	gasEscalationFactorNumerator   = 9
	gasEscalationFactorDenominator = 8
	gasEstimateBufferNumerator     = 6
	gasEstimateBufferDenominator   = 5
)

// InclusionStage assigns a nonce, signs and submits a Transaction, then
// re-signs and resubmits at an escalated fee cap when it has sat unmined
// past the resubmission delay.
type InclusionStage struct {
	Mailbox           chain.Mailbox
	Signer            chain.Signer
	Provider          chain.Provider
	Nonces            *noncemgr.Manager
	OriginDBFor       func(origin types.Domain) *origindb.DB
	Registry          *Registry
	ResubmissionDelay time.Duration
	Log               *logging.Logger
}

// Submit assigns the transaction's nonce on first submission, estimates
// gas across its payloads, builds and signs, then broadcasts.
func (s *InclusionStage) Submit(ctx context.Context, tx *Transaction) error {
	if !tx.NonceAssigned {
		tx.Nonce = s.Nonces.AssignNext(tx.UUID)
		tx.NonceAssigned = true
	}

	if tx.GasLimit == 0 {
		var total uint64
		for _, pd := range tx.PayloadDetails {
			db := s.OriginDBFor(pd.Op.Origin)
			message, err := db.GetMessageByNonce(pd.Op.Nonce)
			if err != nil || message == nil {
				return fmt.Errorf("lander: no origin message for %s", tx.UUID)
			}
			est, err := s.Mailbox.EstimateProcessCost(ctx, message, pd.Op.Metadata)
			if err != nil {
				return fmt.Errorf("lander: estimate gas for %s: %w", tx.UUID, err)
			}
			total += est
		}
		tx.GasLimit = total * gasEstimateBufferNumerator / gasEstimateBufferDenominator
	}

	feeCap := tx.GasFeeCap
	if feeCap != 0 {
		feeCap = feeCap * gasEscalationFactorNumerator / gasEscalationFactorDenominator
	}

	calldata := tx.PayloadDetails[0].Calldata
	unsigned, err := s.Signer.BuildTransaction(ctx, s.Mailbox.Address(), calldata, tx.Nonce, tx.GasLimit, feeCap)
	if err != nil {
		return fmt.Errorf("lander: build transaction for %s: %w", tx.UUID, err)
	}
	signed, err := s.Signer.SignTransaction(ctx, unsigned)
	if err != nil {
		return fmt.Errorf("lander: sign transaction for %s: %w", tx.UUID, err)
	}

	if native, ok := signed.(*gethtypes.Transaction); ok {
		tx.Signed = native
		tx.GasFeeCap = native.GasFeeCap().Uint64()
		tx.GasTipCap = native.GasTipCap().Uint64()
	}

	hash, err := s.Provider.Send(ctx, signed)
	if err != nil {
		return fmt.Errorf("lander: send transaction for %s: %w", tx.UUID, err)
	}
	tx.addHash(hash)
	tx.LastSubmitAt = time.Now()
	tx.Status = TxMempool
	tx.Reorged = false

	for _, pd := range tx.PayloadDetails {
		pd.Op.Status = pendingop.InTransaction
	}
	return nil
}

// PollOnce checks every hash this transaction has ever been broadcast under
// and reports whether one of them has been mined. A transaction can have
// several hashes after fee-escalated resubmission; only one can ever land.
func (s *InclusionStage) PollOnce(ctx context.Context, tx *Transaction) (bool, error) {
	for _, hash := range tx.TxHashes {
		receipt, err := s.Provider.TransactionReceipt(ctx, hash)
		if err != nil {
			if chain.IsTransient(err) {
				continue
			}
			return false, err
		}
		if receipt == nil {
			continue
		}
		tx.Status = TxIncluded
		tx.IncludedHash = receipt.TxHash
		tx.IncludedBlock = receipt.BlockNumber
		if !receipt.Success {
			tx.Status = TxDropped
			tx.DropReason = string(pendingop.DropReverted)
			AnalyzeRevert(tx, s.Log)
			if s.Registry != nil {
				s.Registry.Remove(tx.UUID)
			}
		}
		return true, nil
	}
	return false, nil
}

// MaybeResubmit resubmits tx at an escalated fee cap if it is still
// unmined and has waited out ResubmissionDelay since its last broadcast.
func (s *InclusionStage) MaybeResubmit(ctx context.Context, tx *Transaction) error {
	if tx.Status != TxPending && tx.Status != TxMempool {
		return nil
	}
	if !tx.ReadyForResubmission(s.ResubmissionDelay) {
		return nil
	}
	return s.Submit(ctx, tx)
}

// CheckNonceReuse reports whether the chain's finalized nonce has advanced
// past tx's assigned nonce without ever mining one of tx's own hashes --
// meaning some other transaction consumed that nonce out of band. When so,
// it drops tx and every payload it carries with DropNonceReused.
func (s *InclusionStage) CheckNonceReuse(tx *Transaction) bool {
	if !tx.NonceAssigned || tx.Status == TxIncluded || tx.Status == TxFinalized || tx.Status == TxDropped {
		return false
	}
	if s.Nonces.FinalizedNonce() <= tx.Nonce {
		return false
	}
	tx.Status = TxDropped
	tx.DropReason = string(pendingop.DropNonceReused)
	for _, pd := range tx.PayloadDetails {
		pd.Op.Status = pendingop.Dropped
		pd.Op.DropReason = pendingop.DropNonceReused
	}
	if s.Registry != nil {
		s.Registry.Remove(tx.UUID)
	}
	return true
}

// Reprocess resubmits a reorg-captured transaction immediately, bypassing
// the resubmission-delay gate -- the admin reprocess_reorged_transactions
// endpoint.
func (s *InclusionStage) Reprocess(ctx context.Context, tx *Transaction) error {
	return s.Submit(ctx, tx)
}
