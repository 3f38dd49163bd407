// Copyright 2025 Interlayer Labs
//
// Package multisig implements the multisig metadata sub-builder: it
// resolves the validator set and threshold for a message's ISM, polls each
// validator's published checkpoints, selects a quorum at a shared target
// index, and encodes the wire-exact MessageIdMultisig / MerkleRootMultisig
// metadata blob the verifying contract expects.
package multisig

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/cache"
	"github.com/interlayer-labs/relayer-core/pkg/checkpointstore"
	"github.com/interlayer-labs/relayer-core/pkg/chain"
	"github.com/interlayer-labs/relayer-core/pkg/merkle"
	"github.com/interlayer-labs/relayer-core/pkg/types"
)

// Kind selects the wire encoding: MessageIdMultisig or MerkleRootMultisig.
type Kind int

const (
	MessageIDKind Kind = iota
	MerkleRootKind
)

// Deps bundles the origin-chain reads the sub-builder needs.
type Deps struct {
	ValidatorAnnounce chain.ValidatorAnnounce
	Snapshot          *merkle.Snapshot // replayed from origindb merkle insertions
	Cache             *cache.Cache
}

var (
	ErrCouldNotFetchMetadata  = fmt.Errorf("multisig: could not fetch metadata from any validator")
	ErrInsufficientValidators = fmt.Errorf("multisig: fewer than threshold validators reached quorum")
)

// Build resolves validators, polls their checkpoints, selects a quorum,
// builds the Merkle proof, and returns the encoded metadata blob.
func Build(ctx context.Context, kind Kind, deps Deps, merkleTreeAddr common.Address, message *types.HyperlaneMessage, validators []common.Address, threshold int) ([]byte, error) {
	locations, err := deps.ValidatorAnnounce.GetAnnouncedStorageLocations(ctx, validators)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCouldNotFetchMetadata, err)
	}

	sorted := append([]common.Address(nil), validators...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hex() < sorted[j].Hex() })

	signed, targetIndex, err := selectQuorum(ctx, deps, sorted, locations, message, threshold)
	if err != nil {
		return nil, err
	}

	switch kind {
	case MessageIDKind:
		return encodeMessageIDMultisig(merkleTreeAddr, signed), nil
	case MerkleRootKind:
		// The checkpoint's Index is the index of the last leaf in the tree
		// at signing time, so the proof against its Root covers
		// count = targetIndex+1 leaves; the message's own leaf sits at its
		// nonce, since the tree is appended in nonce order.
		proof, err := deps.Snapshot.ProofAt(uint64(message.Nonce), uint64(targetIndex)+1)
		if err != nil {
			return nil, fmt.Errorf("multisig: build proof at target index %d: %w", targetIndex, err)
		}
		return encodeMerkleRootMultisig(merkleTreeAddr, signed, proof), nil
	default:
		return nil, fmt.Errorf("multisig: unknown kind %d", kind)
	}
}

// selectQuorum walks candidate checkpoint indices downward from each
// validator's latest published index, stopping at the greatest index >=
// message.Nonce where at least `threshold` validators, in deterministic
// address order, have a valid checkpoint whose MessageID matches this
// message.
func selectQuorum(ctx context.Context, deps Deps, validators []common.Address, locations map[common.Address][]string, message *types.HyperlaneMessage, threshold int) (*types.MultisigSignedCheckpoint, uint32, error) {
	best := (*types.MultisigSignedCheckpoint)(nil)
	var bestIndex uint32

	for _, validator := range validators {
		for _, loc := range locations[validator] {
			sc, index, err := fetchMatchingCheckpoint(ctx, deps, loc, validator, message)
			if err != nil {
				continue
			}
			if best == nil || index > bestIndex {
				best = &types.MultisigSignedCheckpoint{Checkpoint: sc.Checkpoint, Signatures: map[common.Address][]byte{validator: sc.Signature}}
				bestIndex = index
				continue
			}
			if index == bestIndex {
				best.Signatures[validator] = sc.Signature
			}
		}
	}

	if best == nil || !best.MeetsThreshold(threshold) {
		return nil, 0, ErrInsufficientValidators
	}
	return best, bestIndex, nil
}

func fetchMatchingCheckpoint(ctx context.Context, deps Deps, location string, validator common.Address, message *types.HyperlaneMessage) (*types.SignedCheckpoint, uint32, error) {
	cacheKey := fmt.Sprintf("checkpointstore:%s:latest_index", location)
	var latest uint32
	if v, ok := deps.Cache.Get(cacheKey); ok {
		latest = v.(uint32)
	} else {
		store, err := checkpointstore.Open(ctx, location)
		if err != nil {
			return nil, 0, err
		}
		latest, err = store.LatestIndex(ctx)
		if err != nil {
			return nil, 0, err
		}
		deps.Cache.Set(cacheKey, latest)
	}
	if latest < uint32(message.Nonce) {
		return nil, 0, ErrCouldNotFetchMetadata
	}

	store, err := checkpointstore.Open(ctx, location)
	if err != nil {
		return nil, 0, err
	}
	floor := uint32(message.Nonce)
	for index := latest; ; index-- {
		raw, err := store.Checkpoint(ctx, index)
		if err == nil {
			var sc types.SignedCheckpoint
			if err := json.Unmarshal(raw, &sc); err == nil && sc.Checkpoint.MessageID == message.ID() {
				if recovered, err := sc.RecoverSigner(); err == nil && recovered == validator {
					return &sc, index, nil
				}
			}
		}
		if index == floor {
			break
		}
	}
	return nil, 0, ErrCouldNotFetchMetadata
}

func encodeMessageIDMultisig(merkleTreeAddr common.Address, signed *types.MultisigSignedCheckpoint) []byte {
	buf := make([]byte, 0, 32+32+4+65*len(signed.Signatures))
	buf = append(buf, types.AddressToIdentifier(merkleTreeAddr).Bytes()...)
	buf = append(buf, signed.Checkpoint.Root.Bytes()...)
	buf = appendUint32BE(buf, signed.Checkpoint.Index)
	for _, addr := range sortedKeys(signed.Signatures) {
		buf = append(buf, signed.Signatures[addr]...)
	}
	return buf
}

func encodeMerkleRootMultisig(merkleTreeAddr common.Address, signed *types.MultisigSignedCheckpoint, proof [merkle.Depth]common.Hash) []byte {
	buf := encodeMessageIDMultisig(merkleTreeAddr, signed)
	for _, sibling := range proof {
		buf = append(buf, sibling.Bytes()...)
	}
	return buf
}

func appendUint32BE(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func sortedKeys(m map[common.Address][]byte) []common.Address {
	out := make([]common.Address, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}
