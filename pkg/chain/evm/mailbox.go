// Copyright 2025 Interlayer Labs

package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	interchain "github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

type evmMailbox struct {
	rpc     *rpcClient
	address common.Address
	signer  *evmSigner
}

func (m *evmMailbox) Count(ctx context.Context) (uint32, error) {
	var count uint32
	if err := m.rpc.call(ctx, m.rpc.mailboxABI, m.address, "count", &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *evmMailbox) Delivered(ctx context.Context, id common.Hash) (bool, error) {
	var delivered bool
	if err := m.rpc.call(ctx, m.rpc.mailboxABI, m.address, "delivered", &delivered, id); err != nil {
		return false, err
	}
	return delivered, nil
}

func (m *evmMailbox) DefaultISM(ctx context.Context) (common.Address, error) {
	var ism common.Address
	if err := m.rpc.call(ctx, m.rpc.mailboxABI, m.address, "defaultIsm", &ism); err != nil {
		return common.Address{}, err
	}
	return ism, nil
}

func (m *evmMailbox) RecipientISM(ctx context.Context, recipient common.Address) (common.Address, error) {
	var ism common.Address
	if err := m.rpc.call(ctx, m.rpc.mailboxABI, m.address, "recipientIsm", &ism, recipient); err != nil {
		return common.Address{}, err
	}
	return ism, nil
}

func (m *evmMailbox) Address() common.Address { return m.address }

func (m *evmMailbox) ProcessCalldata(ctx context.Context, message *types.HyperlaneMessage, metadata []byte) ([]byte, error) {
	data, err := m.rpc.mailboxABI.Pack("process", metadata, message.Encode())
	if err != nil {
		return nil, fmt.Errorf("evm: pack process: %w", err)
	}
	return data, nil
}

func (m *evmMailbox) EstimateProcessCost(ctx context.Context, message *types.HyperlaneMessage, metadata []byte) (uint64, error) {
	data, err := m.rpc.mailboxABI.Pack("process", metadata, message.Encode())
	if err != nil {
		return 0, fmt.Errorf("evm: pack process: %w", err)
	}
	gas, err := m.signer.estimateGas(ctx, m.address, data)
	if err != nil {
		return 0, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return gas, nil
}
