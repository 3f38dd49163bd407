// Copyright 2025 Interlayer Labs

package evm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	interchain "github.com/interlayer-labs/relayer-core/pkg/chain"
)

// rpcClient is the thin wrapper every capability struct shares; it holds
// the parsed contract ABIs once and packs/unpacks ad hoc, the way the
// teacher's pkg/ethereum.Client.CallContract does, rather than using
// generated contract bindings.
type rpcClient struct {
	eth         *ethclient.Client
	mailboxABI  abi.ABI
	ismABI      abi.ABI
	treeHookABI abi.ABI
	vaABI       abi.ABI
	eventsABI   abi.ABI
}

func newRPCClient(eth *ethclient.Client) (*rpcClient, error) {
	mbox, err := abi.JSON(strings.NewReader(mailboxABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse mailbox abi: %w", err)
	}
	ism, err := abi.JSON(strings.NewReader(ismABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse ism abi: %w", err)
	}
	tree, err := abi.JSON(strings.NewReader(merkleTreeHookABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse merkle tree hook abi: %w", err)
	}
	va, err := abi.JSON(strings.NewReader(validatorAnnounceABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse validator announce abi: %w", err)
	}
	events, err := abi.JSON(strings.NewReader(eventsABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse events abi: %w", err)
	}
	return &rpcClient{eth: eth, mailboxABI: mbox, ismABI: ism, treeHookABI: tree, vaABI: va, eventsABI: events}, nil
}

func (c *rpcClient) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("evm: pack %s: %w", method, err)
	}
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return &interchain.CommunicationError{Transient: true, Err: fmt.Errorf("evm: call %s: %w", method, err)}
	}
	if out == nil {
		return nil
	}
	return contractABI.UnpackIntoInterface(out, method, result)
}
