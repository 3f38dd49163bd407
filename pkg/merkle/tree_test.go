// Copyright 2025 Interlayer Labs

package merkle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestInitialRootConstant(t *testing.T) {
	require.Equal(t,
		"0x27ae5ba08d7291c96c8cbddcc148bf48a6d68c7974b94356f53754ef6171d757",
		InitialRoot.Hex(),
	)
	require.Equal(t, InitialRoot, NewIncrementalTree().Root())
}

func leafHash(i int) common.Hash {
	return crypto.Keccak256Hash([]byte{byte(i)})
}

// textbookRoot rebuilds the root level by level from the full leaf list,
// padding each odd-length level with that level's empty-subtree hash.
func textbookRoot(leaves []common.Hash) common.Hash {
	level := append([]common.Hash(nil), leaves...)
	for d := 0; d < Depth; d++ {
		if len(level)%2 == 1 {
			level = append(level, ZeroHashes[d])
		}
		next := make([]common.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	if len(level) == 0 {
		return ZeroHashes[Depth]
	}
	return level[0]
}

func TestIngestMatchesReferenceRoot(t *testing.T) {
	const n = 37
	leaves := make([]common.Hash, n)
	tree := NewIncrementalTree()
	for i := 0; i < n; i++ {
		leaves[i] = leafHash(i)
		require.NoError(t, tree.Ingest(leaves[i]))
		require.EqualValues(t, i+1, tree.Count())

		snap := NewSnapshot(leaves[:i+1])
		root, err := snap.RootAt(uint64(i + 1))
		require.NoError(t, err)
		require.Equal(t, tree.Root(), root, "incremental root diverged from snapshot replay at count=%d", i+1)
		require.Equal(t, textbookRoot(leaves[:i+1]), tree.Root(), "incremental root diverged from textbook rebuild at count=%d", i+1)
	}
}

func TestProofAtRoundTrips(t *testing.T) {
	const n = 9
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = leafHash(i)
	}
	snap := NewSnapshot(leaves)
	root, err := snap.RootAt(n)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		proof, err := snap.ProofAt(uint64(i), n)
		require.NoError(t, err)
		require.True(t, VerifyProof(leaves[i], uint64(i), proof, root))
	}
}

func TestProveAtHistoricalCount(t *testing.T) {
	const n = 5
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = leafHash(i)
	}
	snap := NewSnapshot(leaves)

	// Prove leaf 2 against the tree's state as of target index 3 (4 leaves),
	// not the full 5-leaf tip -- this is what the multisig sub-builder does
	// when the chosen checkpoint index is behind the tree's current count.
	proof, err := ProveAt(snap, leaves[2], 2, 3)
	require.NoError(t, err)
	require.NoError(t, proof.Validate())

	wireForm := proof.MarshalBinary()
	decoded, err := UnmarshalProof(wireForm)
	require.NoError(t, err)
	require.Equal(t, proof, decoded)
}

func TestIngestSequentialCounts(t *testing.T) {
	tree := NewIncrementalTree()
	require.NoError(t, tree.Ingest(leafHash(0)))
	require.NoError(t, tree.Ingest(leafHash(1)))
	require.EqualValues(t, 2, tree.Count())
}

func TestProofAtRejectsIndexBeyondCount(t *testing.T) {
	snap := NewSnapshot([]common.Hash{leafHash(0), leafHash(1)})
	_, err := snap.ProofAt(2, 2)
	require.Error(t, err)
}
