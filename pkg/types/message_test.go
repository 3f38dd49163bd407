// Copyright 2025 Interlayer Labs

package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("hello"),
		make([]byte, 1024),
	}
	for _, body := range cases {
		m := &HyperlaneMessage{
			Version:     3,
			Nonce:       0,
			Origin:      1000,
			Sender:      AddressToIdentifier(common.HexToAddress("0x0000000000000000000000000000000000000001")),
			Destination: 2000,
			Recipient:   AddressToIdentifier(common.HexToAddress("0x0000000000000000000000000000000000000002")),
			Body:        body,
		}
		encoded := m.Encode()
		decoded, err := DecodeHyperlaneMessage(encoded)
		require.NoError(t, err)
		require.Equal(t, m.Version, decoded.Version)
		require.Equal(t, m.Nonce, decoded.Nonce)
		require.Equal(t, m.Origin, decoded.Origin)
		require.Equal(t, m.Sender, decoded.Sender)
		require.Equal(t, m.Destination, decoded.Destination)
		require.Equal(t, m.Recipient, decoded.Recipient)
		require.Equal(t, len(body), len(decoded.Body))
		require.Equal(t, m.ID(), decoded.ID())
	}
}

func TestDecodeTooShort(t *testing.T) {
	_, err := DecodeHyperlaneMessage(make([]byte, 10))
	require.Error(t, err)
}

func TestNonceZeroIsValid(t *testing.T) {
	m := &HyperlaneMessage{Nonce: 0, Origin: 1, Destination: 2}
	require.Equal(t, uint32(0), m.Nonce)
	require.NotEqual(t, common.Hash{}, m.ID())
}

func TestScenario1MultisigMetadataRecovers(t *testing.T) {
	// Scenario 1 from the end-to-end test matrix: a single 1-of-1 multisig
	// checkpoint whose root equals the dispatched message's id, signed by a
	// known validator key, must recover to that validator's address.
	m := &HyperlaneMessage{
		Version:     1,
		Nonce:       0,
		Origin:      1000,
		Sender:      AddressToIdentifier(common.HexToAddress("0x0000000000000000000000000000000000000001")),
		Destination: 2000,
		Recipient:   AddressToIdentifier(common.HexToAddress("0x0000000000000000000000000000000000000002")),
		Body:        []byte("hello"),
	}
	require.NotEqual(t, common.Hash{}, m.ID())

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	validator := crypto.PubkeyToAddress(key.PublicKey)
	checkpoint := Checkpoint{
		MerkleTreeAddress: common.HexToAddress("0x0000000000000000000000000000000000000003"),
		OriginDomain:      m.Origin,
		Root:              m.ID(),
		Index:             m.Nonce,
		MessageID:         m.ID(),
	}
	digest := checkpoint.SigningHash()
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)
	quorum := MultisigSignedCheckpoint{Checkpoint: checkpoint, Signatures: map[common.Address][]byte{validator: sig}}
	require.True(t, quorum.MeetsThreshold(1))
	recovered, err := (&SignedCheckpoint{Checkpoint: checkpoint, Signature: sig}).RecoverSigner()
	require.NoError(t, err)
	require.Equal(t, validator, recovered)
}
