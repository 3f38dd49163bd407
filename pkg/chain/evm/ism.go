// Copyright 2025 Interlayer Labs

package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	interchain "github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

type evmISM struct {
	rpc *rpcClient
}

func (i *evmISM) ModuleType(ctx context.Context, ism common.Address) (interchain.ISMModuleType, error) {
	var moduleType uint8
	if err := i.rpc.call(ctx, i.rpc.ismABI, ism, "moduleType", &moduleType); err != nil {
		return interchain.ISMUnused, err
	}
	return interchain.ISMModuleType(moduleType), nil
}

func (i *evmISM) Route(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (interchain.RoutingResult, error) {
	var child common.Address
	if err := i.rpc.call(ctx, i.rpc.ismABI, ism, "route", &child, message.Encode()); err != nil {
		return interchain.RoutingResult{}, err
	}
	return interchain.RoutingResult{ChildISM: child}, nil
}

func (i *evmISM) ModulesAndThreshold(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (interchain.AggregationResult, error) {
	var out struct {
		Modules   []common.Address
		Threshold uint8
	}
	if err := i.rpc.call(ctx, i.rpc.ismABI, ism, "modulesAndThreshold", &out, message.Encode()); err != nil {
		return interchain.AggregationResult{}, err
	}
	return interchain.AggregationResult{Modules: out.Modules, Threshold: int(out.Threshold)}, nil
}

func (i *evmISM) ValidatorsAndThreshold(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (interchain.MultisigConfig, error) {
	var out struct {
		Validators []common.Address
		Threshold  uint8
	}
	if err := i.rpc.call(ctx, i.rpc.ismABI, ism, "validatorsAndThreshold", &out, message.Encode()); err != nil {
		return interchain.MultisigConfig{}, err
	}
	return interchain.MultisigConfig{Validators: out.Validators, Threshold: int(out.Threshold)}, nil
}

func (i *evmISM) CcipReadConfig(ctx context.Context, ism common.Address, message *types.HyperlaneMessage) (interchain.CcipReadConfig, error) {
	var urls []string
	if err := i.rpc.call(ctx, i.rpc.ismABI, ism, "getOffchainVerifyInfo", &urls, message.Encode()); err != nil {
		return interchain.CcipReadConfig{}, err
	}
	return interchain.CcipReadConfig{URLs: urls, CallData: message.Encode()}, nil
}

func (i *evmISM) Verify(ctx context.Context, ism common.Address, metadata []byte, message *types.HyperlaneMessage) (bool, error) {
	var ok bool
	if err := i.rpc.call(ctx, i.rpc.ismABI, ism, "verify", &ok, metadata, message.Encode()); err != nil {
		return false, err
	}
	return ok, nil
}
