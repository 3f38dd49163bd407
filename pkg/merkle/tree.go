// Copyright 2025 Interlayer Labs
//
// Package merkle implements the 32-deep incremental Merkle tree each origin
// rebuilds locally from its stream of dispatched-message insertions, plus
// the sibling-hash proof structure the multisig metadata sub-builder
// attaches to a message when it submits for verification. The tree stores
// only branch[32] and count -- there is no interior node graph to manage.
package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Depth is the fixed tree depth used by every origin's incremental tree.
const Depth = 32

// MaxLeaves is the maximum number of leaves a Depth-32 tree can hold.
const MaxLeaves = (1 << Depth) - 1

// ZeroHashes is the precomputed table of empty-subtree hashes at each level.
// ZeroHashes[0] is the all-zero leaf; ZeroHashes[i+1] = keccak(ZeroHashes[i] || ZeroHashes[i]).
var ZeroHashes [Depth + 1]common.Hash

// InitialRoot is the root of the empty tree, ZeroHashes[Depth].
var InitialRoot common.Hash

func init() {
	ZeroHashes[0] = common.Hash{}
	for i := 0; i < Depth; i++ {
		ZeroHashes[i+1] = hashPair(ZeroHashes[i], ZeroHashes[i])
	}
	InitialRoot = ZeroHashes[Depth]
}

func hashPair(left, right common.Hash) common.Hash {
	buf := make([]byte, 64)
	copy(buf[0:32], left[:])
	copy(buf[32:64], right[:])
	return crypto.Keccak256Hash(buf)
}

// IncrementalTree is an append-only Merkle tree of message ids.
type IncrementalTree struct {
	branch [Depth]common.Hash
	count  uint64
}

// NewIncrementalTree returns an empty tree with Root() == InitialRoot.
func NewIncrementalTree() *IncrementalTree {
	t := &IncrementalTree{}
	copy(t.branch[:], ZeroHashes[:Depth])
	return t
}

// Count returns the number of leaves ingested so far.
func (t *IncrementalTree) Count() uint64 { return t.count }

// Ingest appends a single leaf in O(Depth). Callers (the Contract Sync /
// Merkle Tree Builder) must guarantee insertions arrive in strict
// leaf-index order -- a gap must be resolved by backfill before Ingest is
// called again.
func (t *IncrementalTree) Ingest(leaf common.Hash) error {
	if t.count >= MaxLeaves {
		return fmt.Errorf("merkle: tree full at count=%d (depth=%d)", t.count, Depth)
	}
	node := leaf
	size := t.count
	for i := 0; i < Depth; i++ {
		if size&1 == 1 {
			node = hashPair(t.branch[i], node)
			size >>= 1
			continue
		}
		t.branch[i] = node
		t.count++
		return nil
	}
	return fmt.Errorf("merkle: depth exceeded during ingest")
}

// Root returns the root over all leaves ingested so far.
func (t *IncrementalTree) Root() common.Hash {
	node := ZeroHashes[0]
	size := t.count
	for i := 0; i < Depth; i++ {
		if size&1 == 1 {
			node = hashPair(t.branch[i], node)
		} else {
			node = hashPair(node, ZeroHashes[i])
		}
		size >>= 1
	}
	return node
}

// Snapshot is a replayable view over a known leaf sequence, used to answer
// proof_at(index, count) queries against historical counts rather than
// only the tree's current tip.
type Snapshot struct {
	leaves []common.Hash
}

// NewSnapshot wraps leaves (in leaf-index order, starting at 0).
func NewSnapshot(leaves []common.Hash) *Snapshot {
	return &Snapshot{leaves: leaves}
}

// RootAt reconstructs the root after exactly count leaves.
func (s *Snapshot) RootAt(count uint64) (common.Hash, error) {
	if count > uint64(len(s.leaves)) {
		return common.Hash{}, fmt.Errorf("merkle: count %d exceeds %d known leaves", count, len(s.leaves))
	}
	t := NewIncrementalTree()
	for i := uint64(0); i < count; i++ {
		if err := t.Ingest(s.leaves[i]); err != nil {
			return common.Hash{}, err
		}
	}
	return t.Root(), nil
}

// ProofAt returns the 32 sibling hashes needed to recompute RootAt(count)
// from leaf(index), using the standard sibling/zero-hash scheme. Requires
// index < count <= len(leaves).
func (s *Snapshot) ProofAt(index, count uint64) ([Depth]common.Hash, error) {
	var proof [Depth]common.Hash
	if index >= count {
		return proof, fmt.Errorf("merkle: index %d must be < count %d", index, count)
	}
	if count > uint64(len(s.leaves)) {
		return proof, fmt.Errorf("merkle: count %d exceeds %d known leaves", count, len(s.leaves))
	}

	level := make([]common.Hash, count)
	copy(level, s.leaves[:count])

	idx := index
	for d := 0; d < Depth; d++ {
		siblingIdx := idx ^ 1
		if siblingIdx < uint64(len(level)) {
			proof[d] = level[siblingIdx]
		} else {
			proof[d] = ZeroHashes[d]
		}

		next := make([]common.Hash, (len(level)+1)/2)
		for i := range next {
			l := 2 * i
			right := ZeroHashes[d]
			if l+1 < len(level) {
				right = level[l+1]
			}
			next[i] = hashPair(level[l], right)
		}
		level = next
		idx >>= 1
	}
	return proof, nil
}

// VerifyProof recomputes the root from leaf, index and a 32-entry proof and
// compares it against root.
func VerifyProof(leaf common.Hash, index uint64, proof [Depth]common.Hash, root common.Hash) bool {
	node := leaf
	idx := index
	for d := 0; d < Depth; d++ {
		if idx&1 == 1 {
			node = hashPair(proof[d], node)
		} else {
			node = hashPair(node, proof[d])
		}
		idx >>= 1
	}
	return node == root
}
