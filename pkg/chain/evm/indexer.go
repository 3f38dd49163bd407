// Copyright 2025 Interlayer Labs

package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	interchain "github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

var (
	dispatchTopic     = crypto.Keccak256Hash([]byte(DispatchEventSig))
	gasPaymentTopic   = crypto.Keccak256Hash([]byte(GasPaymentEventSig))
	insertedTopic     = crypto.Keccak256Hash([]byte(InsertedIntoTreeEventSig))
	announcementTopic = crypto.Keccak256Hash([]byte(ValidatorAnnouncementEventSig))
)

type evmIndexer struct {
	rpc            *rpcClient
	eth            *ethclient.Client
	mailboxAddr    common.Address
	treeHookAddr   common.Address
	vaAddr         common.Address
	reorgPeriod    uint64
	originDomain   types.Domain
}

func (ix *evmIndexer) GetFinalizedBlockNumber(ctx context.Context) (uint64, error) {
	head, err := ix.eth.BlockNumber(ctx)
	if err != nil {
		return 0, &interchain.CommunicationError{Transient: true, Err: err}
	}
	if head < ix.reorgPeriod {
		return 0, nil
	}
	return head - ix.reorgPeriod, nil
}

func (ix *evmIndexer) topicAndAddressFor(kind interchain.EventKind) (common.Hash, common.Address, error) {
	switch kind {
	case interchain.EventDispatchedMessage:
		return dispatchTopic, ix.mailboxAddr, nil
	case interchain.EventInterchainGasPayment:
		return gasPaymentTopic, ix.mailboxAddr, nil
	case interchain.EventMerkleTreeInsertion:
		return insertedTopic, ix.treeHookAddr, nil
	case interchain.EventAnnouncement:
		return announcementTopic, ix.vaAddr, nil
	default:
		return common.Hash{}, common.Address{}, fmt.Errorf("evm: unsupported event kind %q for log filtering", kind)
	}
}

func (ix *evmIndexer) FetchLogs(ctx context.Context, kind interchain.EventKind, r interchain.BlockRange) ([]interchain.LogEvent, error) {
	topic, addr, err := ix.topicAndAddressFor(kind)
	if err != nil {
		return nil, err
	}
	logs, err := ix.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		return nil, &interchain.CommunicationError{Transient: true, Err: fmt.Errorf("evm: filter logs: %w", err)}
	}

	events := make([]interchain.LogEvent, 0, len(logs))
	for _, lg := range logs {
		payload, err := ix.decode(kind, lg)
		if err != nil {
			return nil, fmt.Errorf("evm: decode %s log at block %d: %w", kind, lg.BlockNumber, err)
		}
		events = append(events, interchain.LogEvent{
			Kind:    kind,
			Payload: payload,
			Meta: interchain.LogMeta{
				TxHash:      lg.TxHash,
				BlockNumber: lg.BlockNumber,
				BlockHash:   lg.BlockHash,
				LogIndex:    uint32(lg.Index),
			},
		})
	}
	return events, nil
}

func (ix *evmIndexer) decode(kind interchain.EventKind, lg gethtypes.Log) (interface{}, error) {
	switch kind {
	case interchain.EventDispatchedMessage:
		var out struct{ Message []byte }
		if err := ix.rpc.eventsABI.UnpackIntoInterface(&out, "Dispatch", lg.Data); err != nil {
			return nil, err
		}
		return types.DecodeHyperlaneMessage(out.Message)

	case interchain.EventInterchainGasPayment:
		var out struct {
			DestinationDomain uint32
			GasAmount         *big.Int
			Payment           *big.Int
		}
		if err := ix.rpc.eventsABI.UnpackIntoInterface(&out, "GasPayment", lg.Data); err != nil {
			return nil, err
		}
		if len(lg.Topics) < 2 {
			return nil, fmt.Errorf("evm: GasPayment log missing messageId topic")
		}
		return &types.InterchainGasPayment{
			MessageID:   lg.Topics[1],
			Destination: out.DestinationDomain,
			GasAmount:   out.GasAmount.Uint64(),
			Payment:     out.Payment.Uint64(),
		}, nil

	case interchain.EventMerkleTreeInsertion:
		var out struct {
			MessageId [32]byte
			Index     uint32
		}
		if err := ix.rpc.eventsABI.UnpackIntoInterface(&out, "InsertedIntoTree", lg.Data); err != nil {
			return nil, err
		}
		return &types.MerkleTreeInsertion{LeafIndex: out.Index, MessageID: common.Hash(out.MessageId)}, nil

	case interchain.EventAnnouncement:
		var out struct{ StorageLocation string }
		if err := ix.rpc.eventsABI.UnpackIntoInterface(&out, "ValidatorAnnouncement", lg.Data); err != nil {
			return nil, err
		}
		if len(lg.Topics) < 2 {
			return nil, fmt.Errorf("evm: ValidatorAnnouncement log missing validator topic")
		}
		return &types.SignedAnnouncement{
			Announcement: types.Announcement{
				Validator:       common.BytesToAddress(lg.Topics[1].Bytes()),
				MailboxDomain:   ix.originDomain,
				StorageLocation: out.StorageLocation,
			},
		}, nil

	default:
		return nil, fmt.Errorf("evm: unsupported event kind %q for decode", kind)
	}
}

// LatestSequence supports sequence-aware cursor mode; EVM mailboxes expose a
// monotonic dispatch nonce via the Mailbox.count() view so dispatched
// messages can be tailed by nonce instead of re-scanning block ranges.
func (ix *evmIndexer) LatestSequence(ctx context.Context, kind interchain.EventKind) (uint64, error) {
	if kind != interchain.EventDispatchedMessage {
		return 0, fmt.Errorf("evm: sequence mode unsupported for event kind %q", kind)
	}
	var count uint32
	if err := ix.rpc.call(ctx, ix.rpc.mailboxABI, ix.mailboxAddr, "count", &count); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (ix *evmIndexer) BlockHash(ctx context.Context, height uint64) (common.Hash, error) {
	header, err := ix.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		return common.Hash{}, &interchain.CommunicationError{Transient: true, Err: err}
	}
	return header.Hash(), nil
}
