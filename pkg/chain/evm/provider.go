// Copyright 2025 Interlayer Labs

package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	interchain "github.com/interlayer-labs/relayer-core/pkg/chain"
)

// evmProvider is the Lander's low-level submit/poll surface for EVM chains.
type evmProvider struct {
	eth *ethclient.Client
}

func (p *evmProvider) Send(ctx context.Context, signedTx interface{}) (common.Hash, error) {
	tx, ok := signedTx.(*types.Transaction)
	if !ok {
		return common.Hash{}, fmt.Errorf("evm: Send expects *types.Transaction, got %T", signedTx)
	}
	if err := p.eth.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return tx.Hash(), nil
}

func (p *evmProvider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*interchain.TxReceipt, error) {
	receipt, err := p.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if err.Error() == "not found" {
			return nil, nil
		}
		return nil, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return &interchain.TxReceipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		BlockHash:   receipt.BlockHash,
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (p *evmProvider) CurrentBlock(ctx context.Context) (uint64, error) {
	head, err := p.eth.BlockNumber(ctx)
	if err != nil {
		return 0, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return head, nil
}

func (p *evmProvider) NonceAt(ctx context.Context, addr common.Address, finalized bool) (uint64, error) {
	var (
		n   uint64
		err error
	)
	if finalized {
		n, err = p.eth.NonceAt(ctx, addr, nil)
	} else {
		n, err = p.eth.PendingNonceAt(ctx, addr)
	}
	if err != nil {
		return 0, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return n, nil
}

func (p *evmProvider) SuggestGasPrice(ctx context.Context) (uint64, error) {
	price, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return 0, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return price.Uint64(), nil
}
