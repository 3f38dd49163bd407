// Copyright 2025 Interlayer Labs
//
// Package types defines the canonical wire types shared by every stage of
// the relayer pipeline: the dispatched message itself, validator checkpoints,
// storage-location announcements and the log metadata the chain adapters
// attach to every event they observe.
package types

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Domain is a 32-bit identifier for a chain/environment pair.
type Domain = uint32

// HyperlaneMessage is the canonical unit of cross-chain communication.
//
// Once observed at Nonce N on Origin D the message is immutable: reorg
// tolerance must either reproduce the identical bytes or drop it.
type HyperlaneMessage struct {
	Version     uint8
	Nonce       uint32
	Origin      Domain
	Sender      common.Hash // 32-byte identifier, left-padded address on EVM
	Destination Domain
	Recipient   common.Hash
	Body        []byte
}

// Encode produces the canonical bit-exact wire encoding:
//
//	version(1) || nonce(4 BE) || origin(4 BE) || sender(32) || destination(4 BE) || recipient(32) || body(rest)
func (m *HyperlaneMessage) Encode() []byte {
	buf := make([]byte, 1+4+4+32+4+32+len(m.Body))
	off := 0
	buf[off] = m.Version
	off++
	binary.BigEndian.PutUint32(buf[off:], m.Nonce)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], m.Origin)
	off += 4
	copy(buf[off:], m.Sender[:])
	off += 32
	binary.BigEndian.PutUint32(buf[off:], m.Destination)
	off += 4
	copy(buf[off:], m.Recipient[:])
	off += 32
	copy(buf[off:], m.Body)
	return buf
}

// DecodeHyperlaneMessage is the inverse of Encode. It returns an error if buf
// is shorter than the fixed-size prefix.
func DecodeHyperlaneMessage(buf []byte) (*HyperlaneMessage, error) {
	const fixedLen = 1 + 4 + 4 + 32 + 4 + 32
	if len(buf) < fixedLen {
		return nil, fmt.Errorf("types: message too short: got %d bytes, need at least %d", len(buf), fixedLen)
	}
	m := &HyperlaneMessage{}
	off := 0
	m.Version = buf[off]
	off++
	m.Nonce = binary.BigEndian.Uint32(buf[off:])
	off += 4
	m.Origin = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.Sender[:], buf[off:off+32])
	off += 32
	m.Destination = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.Recipient[:], buf[off:off+32])
	off += 32
	m.Body = append([]byte(nil), buf[off:]...)
	return m, nil
}

// ID returns keccak256 of the canonical encoding. Unique within (Origin, Nonce).
func (m *HyperlaneMessage) ID() common.Hash {
	return crypto.Keccak256Hash(m.Encode())
}

// RecipientAddress returns the EVM-style right-20-byte view of Recipient,
// valid when Recipient was produced from an EVM address.
func (m *HyperlaneMessage) RecipientAddress() common.Address {
	return common.BytesToAddress(m.Recipient[12:])
}

// SenderAddress is the EVM-style view of Sender.
func (m *HyperlaneMessage) SenderAddress() common.Address {
	return common.BytesToAddress(m.Sender[12:])
}

// AddressToIdentifier left-pads a 20-byte EVM address into the 32-byte
// identifier format used by Sender/Recipient.
func AddressToIdentifier(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr[:])
	return h
}
