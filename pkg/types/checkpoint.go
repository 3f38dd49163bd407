// Copyright 2025 Interlayer Labs

package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Checkpoint is a validator-signed merkle snapshot of one origin's tree.
type Checkpoint struct {
	MerkleTreeAddress common.Address
	OriginDomain      Domain
	Root              common.Hash
	Index             uint32
	MessageID         common.Hash
}

// DomainHash computes keccak(domain(4 BE) || mailbox_address(32) || "HYPERLANE"),
// the per-origin salt mixed into every checkpoint and announcement signature.
func DomainHash(domain Domain, mailbox common.Address) common.Hash {
	buf := make([]byte, 4+32+len("HYPERLANE"))
	binary.BigEndian.PutUint32(buf, domain)
	copy(buf[4:36], AddressToIdentifier(mailbox)[:])
	copy(buf[36:], "HYPERLANE")
	return crypto.Keccak256Hash(buf)
}

// SigningHash returns the EIP-191 digest a validator signs for this
// checkpoint: EIP191("\x19Ethereum Signed Message:\n32" || keccak(domain_hash || root || index)).
func (c *Checkpoint) SigningHash() common.Hash {
	domainHash := DomainHash(c.OriginDomain, c.MerkleTreeAddress)
	inner := make([]byte, 32+32+4)
	copy(inner[0:32], domainHash[:])
	copy(inner[32:64], c.Root[:])
	binary.BigEndian.PutUint32(inner[64:], c.Index)
	digest := crypto.Keccak256(inner)
	return eip191Hash(digest)
}

func eip191Hash(digest []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(digest))
}

// SignedCheckpoint pairs a Checkpoint with one validator's 65-byte ECDSA signature.
type SignedCheckpoint struct {
	Checkpoint Checkpoint
	Signature  []byte // 65 bytes: r(32) || s(32) || v(1)
}

// RecoverSigner recovers the address that produced Signature over this
// checkpoint's signing hash.
func (sc *SignedCheckpoint) RecoverSigner() (common.Address, error) {
	hash := sc.Checkpoint.SigningHash()
	sig := normalizeRecoveryID(sc.Signature)
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// normalizeRecoveryID accepts signatures whose recovery byte is 27/28
// (the common Ethereum convention) as well as the raw 0/1 form expected by
// go-ethereum's SigToPub.
func normalizeRecoveryID(sig []byte) []byte {
	if len(sig) != 65 {
		return sig
	}
	out := append([]byte(nil), sig...)
	if out[64] >= 27 {
		out[64] -= 27
	}
	return out
}

// MultisigSignedCheckpoint groups signatures from >= threshold validators
// over the same (root, index).
type MultisigSignedCheckpoint struct {
	Checkpoint Checkpoint
	Signatures map[common.Address][]byte // validator -> 65-byte signature
}

// Threshold-quality check: does this group meet or exceed threshold?
func (m *MultisigSignedCheckpoint) MeetsThreshold(threshold int) bool {
	return len(m.Signatures) >= threshold
}

// Announcement is a validator-authored pointer to its checkpoint storage
// location (filesystem URI, S3 bucket, GCS bucket).
type Announcement struct {
	Validator       common.Address
	MailboxAddress  common.Address
	MailboxDomain   Domain
	StorageLocation string
}

// SigningHash implements the announcement preimage: analogous to Checkpoint
// but with suffix "HYPERLANE_ANNOUNCEMENT" and the storage location bytes
// appended before the outer hash.
func (a *Announcement) SigningHash() common.Hash {
	buf := make([]byte, 4+32+len("HYPERLANE_ANNOUNCEMENT"))
	binary.BigEndian.PutUint32(buf, a.MailboxDomain)
	copy(buf[4:36], AddressToIdentifier(a.MailboxAddress)[:])
	copy(buf[36:], "HYPERLANE_ANNOUNCEMENT")
	domainHash := crypto.Keccak256(buf)

	inner := append(append([]byte(nil), domainHash...), []byte(a.StorageLocation)...)
	digest := crypto.Keccak256(inner)
	return eip191Hash(digest)
}

// SignedAnnouncement pairs an Announcement with the validator's signature.
type SignedAnnouncement struct {
	Announcement Announcement
	Signature    []byte
}

func (sa *SignedAnnouncement) RecoverSigner() (common.Address, error) {
	hash := sa.Announcement.SigningHash()
	sig := normalizeRecoveryID(sa.Signature)
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// MerkleTreeInsertion is one leaf appended to an origin's incremental Merkle
// tree, observed as a log event.
type MerkleTreeInsertion struct {
	LeafIndex uint32
	MessageID common.Hash
}

// InterchainGasPayment records an IGP payment observed on the origin chain.
type InterchainGasPayment struct {
	MessageID   common.Hash
	Destination Domain
	GasAmount   uint64
	Payment     uint64 // native-token amount, smallest unit
}
