// Copyright 2025 Interlayer Labs
//
// Package origindb implements the per-origin database described in the
// spec: a flat key -> value keyspace layered over pkg/kvstore, one logical
// "table" per key prefix. Values are stored exactly as their encoders
// produce them (such as the fixed-width records of codec.go); no length
// prefix is added.
package origindb

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/types"
)

func messageByNonceKey(domain types.Domain, nonce uint32) []byte {
	key := make([]byte, len("message_by_nonce/")+4+4)
	n := copy(key, "message_by_nonce/")
	binary.BigEndian.PutUint32(key[n:], domain)
	binary.BigEndian.PutUint32(key[n+4:], nonce)
	return key
}

func messageIDToNonceKey(id common.Hash) []byte {
	return append([]byte("message_id_to_nonce/"), id[:]...)
}

func gasPaymentByLeafKey(index uint32) []byte {
	key := make([]byte, len("gas_payment_by_leaf/")+4)
	n := copy(key, "gas_payment_by_leaf/")
	binary.BigEndian.PutUint32(key[n:], index)
	return key
}

func merkleInsertionKey(index uint32) []byte {
	key := make([]byte, len("merkle_insertion/")+4)
	n := copy(key, "merkle_insertion/")
	binary.BigEndian.PutUint32(key[n:], index)
	return key
}

func deliveredKey(id common.Hash) []byte {
	return append([]byte("delivered/"), id[:]...)
}

func cursorKey(stream string) []byte {
	return []byte(fmt.Sprintf("cursor/%s", stream))
}

func pendingOpStatusKey(messageID common.Hash) []byte {
	return append([]byte("pending_op_status/"), messageID[:]...)
}

func nonceManagerKey(chain string, address common.Address) []byte {
	return []byte(fmt.Sprintf("nonce_manager/%s/%s", chain, address.Hex()))
}
