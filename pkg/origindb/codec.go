// Copyright 2025 Interlayer Labs

package origindb

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Fixed-width codecs for the small structs the per-origin database stores.
// Every encoding here is a flat, versionless binary layout -- there is no
// schema migration story because the database is a rebuildable cache of
// on-chain state, not a system of record.

func encodeGasPayment(p *types.InterchainGasPayment) []byte {
	buf := make([]byte, 32+4+8+8)
	copy(buf[0:32], p.MessageID[:])
	binary.BigEndian.PutUint32(buf[32:36], p.Destination)
	binary.BigEndian.PutUint64(buf[36:44], p.GasAmount)
	binary.BigEndian.PutUint64(buf[44:52], p.Payment)
	return buf
}

func decodeGasPayment(buf []byte) (*types.InterchainGasPayment, error) {
	if len(buf) != 52 {
		return nil, fmt.Errorf("origindb: gas payment record has %d bytes, want 52", len(buf))
	}
	return &types.InterchainGasPayment{
		MessageID:   common.BytesToHash(buf[0:32]),
		Destination: binary.BigEndian.Uint32(buf[32:36]),
		GasAmount:   binary.BigEndian.Uint64(buf[36:44]),
		Payment:     binary.BigEndian.Uint64(buf[44:52]),
	}, nil
}

func encodeMerkleInsertion(m *types.MerkleTreeInsertion) []byte {
	buf := make([]byte, 4+32)
	binary.BigEndian.PutUint32(buf[0:4], m.LeafIndex)
	copy(buf[4:36], m.MessageID[:])
	return buf
}

func decodeMerkleInsertion(buf []byte) (*types.MerkleTreeInsertion, error) {
	if len(buf) != 36 {
		return nil, fmt.Errorf("origindb: merkle insertion record has %d bytes, want 36", len(buf))
	}
	return &types.MerkleTreeInsertion{
		LeafIndex: binary.BigEndian.Uint32(buf[0:4]),
		MessageID: common.BytesToHash(buf[4:36]),
	}, nil
}

func encodeLogMeta(m *chain.LogMeta) []byte {
	buf := make([]byte, 32+8+32+4)
	copy(buf[0:32], m.TxHash[:])
	binary.BigEndian.PutUint64(buf[32:40], m.BlockNumber)
	copy(buf[40:72], m.BlockHash[:])
	binary.BigEndian.PutUint32(buf[72:76], m.LogIndex)
	return buf
}

func decodeLogMeta(buf []byte) (*chain.LogMeta, error) {
	if len(buf) != 76 {
		return nil, fmt.Errorf("origindb: log meta record has %d bytes, want 76", len(buf))
	}
	return &chain.LogMeta{
		TxHash:      common.BytesToHash(buf[0:32]),
		BlockNumber: binary.BigEndian.Uint64(buf[32:40]),
		BlockHash:   common.BytesToHash(buf[40:72]),
		LogIndex:    binary.BigEndian.Uint32(buf[72:76]),
	}, nil
}

// CursorState is the persisted progress of one block-range-mode cursor.
type CursorState struct {
	NextFromBlock      uint64
	BlockHashAtLastCommit common.Hash
}

func encodeCursorState(c *CursorState) []byte {
	buf := make([]byte, 8+32)
	binary.BigEndian.PutUint64(buf[0:8], c.NextFromBlock)
	copy(buf[8:40], c.BlockHashAtLastCommit[:])
	return buf
}

func decodeCursorState(buf []byte) (*CursorState, error) {
	if len(buf) != 40 {
		return nil, fmt.Errorf("origindb: cursor state record has %d bytes, want 40", len(buf))
	}
	return &CursorState{
		NextFromBlock:         binary.BigEndian.Uint64(buf[0:8]),
		BlockHashAtLastCommit: common.BytesToHash(buf[8:40]),
	}, nil
}
