// Copyright 2025 Interlayer Labs
//
// Package evm implements the chain.Adapter trait for EVM-compatible chains
// on top of go-ethereum's ethclient, using ad hoc ABI packing the way the
// teacher's pkg/ethereum.Client talks to contracts -- no generated bindings.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Config describes one EVM chain instance.
type Config struct {
	Name                string
	Domain              types.Domain
	RPCURL              string
	MailboxAddress      common.Address
	MerkleTreeHookAddr  common.Address
	ValidatorAnnounceAddr common.Address
	ReorgPeriod         uint64
	EstimatedBlockTime  time.Duration
	SignerPrivateKeyHex string // empty for a read-only adapter
}

// Adapter is the concrete chain.Adapter for one EVM chain.
type Adapter struct {
	cfg    Config
	eth    *ethclient.Client
	rpc    *rpcClient
	signer *evmSigner

	indexer           *evmIndexer
	mailbox           *evmMailbox
	merkleTreeHook    *evmMerkleTreeHook
	ism               *evmISM
	validatorAnnounce *evmValidatorAnnounce
	provider          *evmProvider
}

var _ chain.Adapter = (*Adapter)(nil)

// Dial connects to the chain's JSON-RPC endpoint and builds every
// capability struct the Adapter interface exposes.
func Dial(ctx context.Context, cfg Config) (*Adapter, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", cfg.Name, err)
	}
	rpc, err := newRPCClient(eth)
	if err != nil {
		return nil, err
	}

	var signer *evmSigner
	if cfg.SignerPrivateKeyHex != "" {
		chainID, err := eth.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("evm: fetch chain id for %s: %w", cfg.Name, err)
		}
		signer, err = newEVMSigner(eth, cfg.SignerPrivateKeyHex, chainID)
		if err != nil {
			return nil, err
		}
	}

	a := &Adapter{
		cfg:    cfg,
		eth:    eth,
		rpc:    rpc,
		signer: signer,
		indexer: &evmIndexer{
			rpc:          rpc,
			eth:          eth,
			mailboxAddr:  cfg.MailboxAddress,
			treeHookAddr: cfg.MerkleTreeHookAddr,
			vaAddr:       cfg.ValidatorAnnounceAddr,
			reorgPeriod:  cfg.ReorgPeriod,
			originDomain: cfg.Domain,
		},
		mailbox:        &evmMailbox{rpc: rpc, address: cfg.MailboxAddress, signer: signer},
		merkleTreeHook: &evmMerkleTreeHook{rpc: rpc, address: cfg.MerkleTreeHookAddr, domain: cfg.Domain},
		ism:            &evmISM{rpc: rpc},
		validatorAnnounce: &evmValidatorAnnounce{rpc: rpc, address: cfg.ValidatorAnnounceAddr},
		provider:          &evmProvider{eth: eth},
	}
	return a, nil
}

func (a *Adapter) Domain() types.Domain          { return a.cfg.Domain }
func (a *Adapter) Name() string                  { return a.cfg.Name }
func (a *Adapter) ReorgPeriod() uint64            { return a.cfg.ReorgPeriod }
func (a *Adapter) EstimatedBlockTime() time.Duration { return a.cfg.EstimatedBlockTime }

func (a *Adapter) Indexer() chain.Indexer                     { return a.indexer }
func (a *Adapter) Mailbox() chain.Mailbox                     { return a.mailbox }
func (a *Adapter) MerkleTreeHook() chain.MerkleTreeHook        { return a.merkleTreeHook }
func (a *Adapter) ISM() chain.ISM                             { return a.ism }
func (a *Adapter) ValidatorAnnounce() chain.ValidatorAnnounce  { return a.validatorAnnounce }
func (a *Adapter) Provider() chain.Provider                   { return a.provider }

func (a *Adapter) Signer() chain.Signer {
	if a.signer == nil {
		return nil
	}
	return a.signer
}

// ChainID returns the chain's numeric id, used by the nonce manager and gas
// policy to key per-chain state.
func (a *Adapter) ChainID(ctx context.Context) (*big.Int, error) {
	return a.eth.ChainID(ctx)
}
