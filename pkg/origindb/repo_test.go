// Copyright 2025 Interlayer Labs

package origindb

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/kvstore"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	store := kvstore.NewWithDB(dbm.NewMemDB())
	return New(1000, store)
}

func TestPutGetMessageByNonce(t *testing.T) {
	db := newTestDB(t)
	msg := &types.HyperlaneMessage{
		Version: 3, Nonce: 7, Origin: 1000, Destination: 2000,
		Sender:    types.AddressToIdentifier(common.HexToAddress("0x1")),
		Recipient: types.AddressToIdentifier(common.HexToAddress("0x2")),
		Body:      []byte("payload"),
	}
	require.NoError(t, db.PutMessage(7, msg))

	got, err := db.GetMessageByNonce(7)
	require.NoError(t, err)
	require.Equal(t, msg.ID(), got.ID())

	nonce, ok, err := db.GetNonceByMessageID(msg.ID())
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 7, nonce)

	missing, err := db.GetMessageByNonce(8)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGasPaymentRoundTrip(t *testing.T) {
	db := newTestDB(t)
	p := &types.InterchainGasPayment{MessageID: common.HexToHash("0xabc"), Destination: 2000, GasAmount: 100000, Payment: 42}
	require.NoError(t, db.PutGasPayment(3, p))

	got, err := db.GetGasPayment(3)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestMerkleInsertionRangeScan(t *testing.T) {
	db := newTestDB(t)
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, db.PutMerkleInsertion(i, &types.MerkleTreeInsertion{LeafIndex: i, MessageID: common.BigToHash(nil)}))
	}
	out, err := db.MerkleInsertionsInRange(1, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestDeliveredMarker(t *testing.T) {
	db := newTestDB(t)
	id := common.HexToHash("0xdead")
	ok, err := db.IsDelivered(id)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.MarkDelivered(id, &chain.LogMeta{BlockNumber: 10}))
	ok, err = db.IsDelivered(id)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCursorStateRoundTrip(t *testing.T) {
	db := newTestDB(t)
	state := &CursorState{NextFromBlock: 1234, BlockHashAtLastCommit: common.HexToHash("0xfeed")}
	require.NoError(t, db.PutCursor("dispatched_message", state))

	got, err := db.GetCursor("dispatched_message")
	require.NoError(t, err)
	require.Equal(t, state, got)

	missing, err := db.GetCursor("unknown_stream")
	require.NoError(t, err)
	require.Nil(t, missing)
}
