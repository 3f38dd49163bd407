// Copyright 2025 Interlayer Labs

package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// evmSigner owns the relayer's hot key for one EVM chain and is the single
// place transactions get nonced, signed and broadcast -- grounded on the
// teacher's pkg/ethereum.Client.SendContractTransaction, generalized away
// from a single hardcoded contract call.
type evmSigner struct {
	eth        *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

func newEVMSigner(eth *ethclient.Client, privateKeyHex string, chainID *big.Int) (*evmSigner, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("evm: parse private key: %w", err)
	}
	return &evmSigner{
		eth:        eth,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:    chainID,
	}, nil
}

func (s *evmSigner) Address() common.Address { return s.address }

// BuildTransaction constructs a dynamic-fee transaction precursor; the
// Inclusion Stage signs it (and can rebuild with an escalated fee cap on
// resubmission, reusing the same nonce).
func (s *evmSigner) BuildTransaction(ctx context.Context, to common.Address, data []byte, nonce uint64, gasLimit, gasFeeCapWei uint64) (interface{}, error) {
	tipCap, err := s.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: suggest tip cap: %w", err)
	}
	feeCap := new(big.Int).SetUint64(gasFeeCapWei)
	if feeCap.Sign() == 0 {
		head, err := s.eth.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("evm: header: %w", err)
		}
		feeCap = new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	}), nil
}

func (s *evmSigner) SignTransaction(ctx context.Context, unsigned interface{}) (interface{}, error) {
	tx, ok := unsigned.(*types.Transaction)
	if !ok {
		return nil, fmt.Errorf("evm: SignTransaction expects *types.Transaction, got %T", unsigned)
	}
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
}

func (s *evmSigner) estimateGas(ctx context.Context, to common.Address, data []byte) (uint64, error) {
	return s.eth.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &to, Data: data})
}
