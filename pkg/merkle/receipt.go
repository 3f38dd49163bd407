// Copyright 2025 Interlayer Labs
//
// Portable proof structure attached to a message by the multisig metadata
// sub-builder: the 32-level sibling path plus the signed leaf fields the
// MerkleRootMultisig ISM needs to recompute the root on-chain and compare
// it against the signed checkpoint.

package merkle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Proof is a portable Merkle inclusion proof that can be independently
// re-verified without trusting the relayer that produced it.
type Proof struct {
	Leaf    common.Hash             `json:"leaf"`
	Index   uint32                  `json:"index"`
	Root    common.Hash             `json:"root"`
	Path    [Depth]common.Hash      `json:"path"`
}

// Validate recomputes the root from Leaf/Index/Path and checks it against
// Root. Fail-closed: any mismatch is an error, never a best-effort result.
func (p *Proof) Validate() error {
	if !VerifyProof(p.Leaf, uint64(p.Index), p.Path, p.Root) {
		return fmt.Errorf("merkle: proof recomputation mismatch for leaf %s at index %d", p.Leaf, p.Index)
	}
	return nil
}

// MarshalBinary encodes the proof the way a MerkleRootMultisig ISM expects
// its 32x32-byte proof argument: leaf(32) || root(32) || index(4 BE) ||
// path[0..32](32 each).
func (p *Proof) MarshalBinary() []byte {
	buf := make([]byte, 32+32+4+Depth*32)
	off := 0
	copy(buf[off:], p.Leaf[:])
	off += 32
	copy(buf[off:], p.Root[:])
	off += 32
	buf[off] = byte(p.Index >> 24)
	buf[off+1] = byte(p.Index >> 16)
	buf[off+2] = byte(p.Index >> 8)
	buf[off+3] = byte(p.Index)
	off += 4
	for _, h := range p.Path {
		copy(buf[off:], h[:])
		off += 32
	}
	return buf
}

// UnmarshalProof is the inverse of MarshalBinary.
func UnmarshalProof(buf []byte) (*Proof, error) {
	const want = 32 + 32 + 4 + Depth*32
	if len(buf) != want {
		return nil, fmt.Errorf("merkle: proof wire size mismatch: got %d, want %d", len(buf), want)
	}
	p := &Proof{}
	off := 0
	copy(p.Leaf[:], buf[off:off+32])
	off += 32
	copy(p.Root[:], buf[off:off+32])
	off += 32
	p.Index = uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3])
	off += 4
	for i := range p.Path {
		copy(p.Path[i][:], buf[off:off+32])
		off += 32
	}
	return p, nil
}

// jsonProof is the hex-encoded wire form used when a proof needs to travel
// through JSON (admin endpoints, checkpoint storage debug dumps).
type jsonProof struct {
	Leaf  string   `json:"leaf"`
	Index uint32   `json:"index"`
	Root  string   `json:"root"`
	Path  []string `json:"path"`
}

func (p *Proof) MarshalJSON() ([]byte, error) {
	jp := jsonProof{
		Leaf:  p.Leaf.Hex(),
		Index: p.Index,
		Root:  p.Root.Hex(),
		Path:  make([]string, Depth),
	}
	for i, h := range p.Path {
		jp.Path[i] = h.Hex()
	}
	return json.Marshal(jp)
}

func (p *Proof) UnmarshalJSON(data []byte) error {
	var jp jsonProof
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	if len(jp.Path) != Depth {
		return fmt.Errorf("merkle: json proof path length %d != %d", len(jp.Path), Depth)
	}
	leafBytes, err := decodeHex32(jp.Leaf)
	if err != nil {
		return fmt.Errorf("leaf: %w", err)
	}
	rootBytes, err := decodeHex32(jp.Root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	p.Leaf = common.BytesToHash(leafBytes)
	p.Root = common.BytesToHash(rootBytes)
	p.Index = jp.Index
	for i, s := range jp.Path {
		b, err := decodeHex32(s)
		if err != nil {
			return fmt.Errorf("path[%d]: %w", i, err)
		}
		p.Path[i] = common.BytesToHash(b)
	}
	return nil
}

func decodeHex32(s string) ([]byte, error) {
	s = trimHexPrefix(s)
	if len(s) != 64 {
		return nil, fmt.Errorf("expected 64 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ProveAt builds a Proof for the given leaf index against the snapshot's
// state at root_index+1 leaves, as used by the multisig sub-builder (step
// 6: "build a proof at message.nonce ... reflecting the tree's state at
// count = target_index + 1").
func ProveAt(s *Snapshot, leaf common.Hash, index uint32, targetIndex uint32) (*Proof, error) {
	count := uint64(targetIndex) + 1
	path, err := s.ProofAt(uint64(index), count)
	if err != nil {
		return nil, err
	}
	root, err := s.RootAt(count)
	if err != nil {
		return nil, err
	}
	return &Proof{Leaf: leaf, Index: index, Root: root, Path: path}, nil
}
