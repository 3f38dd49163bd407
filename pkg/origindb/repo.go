// Copyright 2025 Interlayer Labs

package origindb

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/kvstore"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// DB is the per-origin database: one instance per origin domain, backed by
// its own kvstore.Store so chains never share write paths.
type DB struct {
	domain types.Domain
	store  *kvstore.Store
}

func New(domain types.Domain, store *kvstore.Store) *DB {
	return &DB{domain: domain, store: store}
}

func (db *DB) PutMessage(nonce uint32, msg *types.HyperlaneMessage) error {
	if err := db.store.Set(messageByNonceKey(db.domain, nonce), msg.Encode()); err != nil {
		return err
	}
	id := msg.ID()
	idBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(idBuf, nonce)
	return db.store.Set(messageIDToNonceKey(id), idBuf)
}

func (db *DB) GetMessageByNonce(nonce uint32) (*types.HyperlaneMessage, error) {
	buf, err := db.store.Get(messageByNonceKey(db.domain, nonce))
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return types.DecodeHyperlaneMessage(buf)
}

func (db *DB) GetNonceByMessageID(id common.Hash) (uint32, bool, error) {
	buf, err := db.store.Get(messageIDToNonceKey(id))
	if err != nil {
		return 0, false, err
	}
	if buf == nil {
		return 0, false, nil
	}
	if len(buf) != 4 {
		return 0, false, fmt.Errorf("origindb: message_id_to_nonce record has %d bytes, want 4", len(buf))
	}
	return binary.BigEndian.Uint32(buf), true, nil
}

func (db *DB) PutGasPayment(leafIndex uint32, p *types.InterchainGasPayment) error {
	return db.store.Set(gasPaymentByLeafKey(leafIndex), encodeGasPayment(p))
}

func (db *DB) GetGasPayment(leafIndex uint32) (*types.InterchainGasPayment, error) {
	buf, err := db.store.Get(gasPaymentByLeafKey(leafIndex))
	if err != nil || buf == nil {
		return nil, err
	}
	return decodeGasPayment(buf)
}

func (db *DB) PutMerkleInsertion(index uint32, m *types.MerkleTreeInsertion) error {
	return db.store.Set(merkleInsertionKey(index), encodeMerkleInsertion(m))
}

func (db *DB) GetMerkleInsertion(index uint32) (*types.MerkleTreeInsertion, error) {
	buf, err := db.store.Get(merkleInsertionKey(index))
	if err != nil || buf == nil {
		return nil, err
	}
	return decodeMerkleInsertion(buf)
}

// MerkleInsertionsInRange scans [from, to] inclusive, used to serve
// GET /merkle_tree_insertions?from=N&to=M on the admin server.
func (db *DB) MerkleInsertionsInRange(from, to uint32) ([]*types.MerkleTreeInsertion, error) {
	var out []*types.MerkleTreeInsertion
	for i := from; i <= to; i++ {
		m, err := db.GetMerkleInsertion(i)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m)
		}
		if i == to {
			break // guard against uint32 wraparound when to == max uint32
		}
	}
	return out, nil
}

func (db *DB) MarkDelivered(id common.Hash, meta *chain.LogMeta) error {
	return db.store.Set(deliveredKey(id), encodeLogMeta(meta))
}

func (db *DB) IsDelivered(id common.Hash) (bool, error) {
	return db.store.Has(deliveredKey(id))
}

func (db *DB) PutCursor(stream string, state *CursorState) error {
	return db.store.Set(cursorKey(stream), encodeCursorState(state))
}

func (db *DB) GetCursor(stream string) (*CursorState, error) {
	buf, err := db.store.Get(cursorKey(stream))
	if err != nil || buf == nil {
		return nil, err
	}
	return decodeCursorState(buf)
}

// PutPendingOpStatus and GetPendingOpStatus pass raw bytes through; the
// pendingop package owns the PendingOperation wire encoding, the way the
// mailbox/ISM schemas are owned by their respective packages.
func (db *DB) PutPendingOpStatus(messageID common.Hash, encoded []byte) error {
	return db.store.Set(pendingOpStatusKey(messageID), encoded)
}

func (db *DB) GetPendingOpStatus(messageID common.Hash) ([]byte, error) {
	return db.store.Get(pendingOpStatusKey(messageID))
}

func (db *DB) PutNonceManagerState(chainName string, address common.Address, encoded []byte) error {
	return db.store.Set(nonceManagerKey(chainName, address), encoded)
}

func (db *DB) GetNonceManagerState(chainName string, address common.Address) ([]byte, error) {
	return db.store.Get(nonceManagerKey(chainName, address))
}
