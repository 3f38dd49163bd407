// Copyright 2025 Interlayer Labs

package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	interchain "github.com/interlayer-labs/relayer-core/pkg/chain"
)

type evmValidatorAnnounce struct {
	rpc     *rpcClient
	address common.Address
}

func (v *evmValidatorAnnounce) GetAnnouncedStorageLocations(ctx context.Context, validators []common.Address) (map[common.Address][]string, error) {
	var locations [][]string
	if err := v.rpc.call(ctx, v.rpc.vaABI, v.address, "getAnnouncedStorageLocations", &locations, validators); err != nil {
		return nil, err
	}
	if len(locations) != len(validators) {
		return nil, &interchain.CommunicationError{Err: errMismatchedStorageLocations}
	}
	out := make(map[common.Address][]string, len(validators))
	for i, validator := range validators {
		out[validator] = locations[i]
	}
	return out, nil
}
