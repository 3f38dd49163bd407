// Copyright 2025 Interlayer Labs

package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/origindb"
)

// ReplaySnapshot rebuilds a Snapshot for one origin by walking its committed
// merkle_tree_insertion records from leaf 0 up to (but not including)
// count, the way the Merkle Tree Builder reconstructs state on boot instead
// of trusting an on-disk tree cache. A gap (a missing leaf before count) is
// fatal: Contract Sync guarantees insertions commit in strict index order,
// so a gap here means the database was truncated or corrupted.
func ReplaySnapshot(db *origindb.DB, count uint32) (*Snapshot, error) {
	leaves := make([]common.Hash, 0, count)
	for i := uint32(0); i < count; i++ {
		insertion, err := db.GetMerkleInsertion(i)
		if err != nil {
			return nil, fmt.Errorf("merkle: replay insertion %d: %w", i, err)
		}
		if insertion == nil {
			return nil, fmt.Errorf("merkle: replay gap at leaf %d (count=%d)", i, count)
		}
		leaves = append(leaves, insertion.MessageID)
	}
	return NewSnapshot(leaves), nil
}

// ReplayTree is ReplaySnapshot's counterpart for callers that only need the
// live incremental tree (its current Root and Count), not historical
// proof-at-count queries.
func ReplayTree(db *origindb.DB, count uint32) (*IncrementalTree, error) {
	t := NewIncrementalTree()
	for i := uint32(0); i < count; i++ {
		insertion, err := db.GetMerkleInsertion(i)
		if err != nil {
			return nil, fmt.Errorf("merkle: replay insertion %d: %w", i, err)
		}
		if insertion == nil {
			return nil, fmt.Errorf("merkle: replay gap at leaf %d (count=%d)", i, count)
		}
		if err := t.Ingest(insertion.MessageID); err != nil {
			return nil, err
		}
	}
	return t, nil
}
