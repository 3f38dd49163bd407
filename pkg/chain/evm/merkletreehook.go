// Copyright 2025 Interlayer Labs

package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

type evmMerkleTreeHook struct {
	rpc     *rpcClient
	address common.Address
	domain  types.Domain
}

func (h *evmMerkleTreeHook) Count(ctx context.Context) (uint64, error) {
	var count uint32
	if err := h.rpc.call(ctx, h.rpc.treeHookABI, h.address, "count", &count); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (h *evmMerkleTreeHook) Tree(ctx context.Context, reorgPeriod uint64) (uint64, common.Hash, error) {
	var count uint32
	if err := h.rpc.call(ctx, h.rpc.treeHookABI, h.address, "count", &count); err != nil {
		return 0, common.Hash{}, err
	}
	var root common.Hash
	if err := h.rpc.call(ctx, h.rpc.treeHookABI, h.address, "root", &root); err != nil {
		return 0, common.Hash{}, err
	}
	return uint64(count), root, nil
}

func (h *evmMerkleTreeHook) LatestCheckpoint(ctx context.Context, reorgPeriod uint64) (types.Checkpoint, error) {
	var out struct {
		Root  common.Hash
		Index uint32
	}
	if err := h.rpc.call(ctx, h.rpc.treeHookABI, h.address, "latestCheckpoint", &out); err != nil {
		return types.Checkpoint{}, fmt.Errorf("evm: latestCheckpoint: %w", err)
	}
	return types.Checkpoint{
		MerkleTreeAddress: h.address,
		OriginDomain:      h.domain,
		Root:              out.Root,
		Index:             out.Index,
	}, nil
}
