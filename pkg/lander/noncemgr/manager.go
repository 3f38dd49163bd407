// Copyright 2025 Interlayer Labs
//
// Package noncemgr implements the EVM nonce manager: per (chain, signer)
// state tracking finalized_nonce, upper_nonce and a freed/taken/committed
// map, so the Inclusion Stage never double-assigns or stalls on a gap.
package noncemgr

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/interlayer-labs/relayer-core/pkg/chain"
)

// Status is one nonce's lifecycle state.
type Status int

const (
	Freed Status = iota
	Taken
	Committed
)

type nonceEntry struct {
	status Status
	txUUID string
}

// Manager owns nonce assignment for one (chain, signer) pair.
type Manager struct {
	mu            sync.Mutex
	finalizedNonce uint64
	upperNonce    uint64
	entries       map[uint64]nonceEntry
	provider      chain.Provider
	address       common.Address
}

func New(provider chain.Provider, address common.Address) *Manager {
	return &Manager{entries: make(map[uint64]nonceEntry), provider: provider, address: address}
}

// AssignNext returns the smallest Freed nonce, or bumps upper_nonce.
func (m *Manager) AssignNext(txUUID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	for nonce := m.finalizedNonce; nonce < m.upperNonce; nonce++ {
		if e, ok := m.entries[nonce]; ok && e.status == Freed {
			m.entries[nonce] = nonceEntry{status: Taken, txUUID: txUUID}
			return nonce
		}
	}
	nonce := m.upperNonce
	m.entries[nonce] = nonceEntry{status: Taken, txUUID: txUUID}
	m.upperNonce++
	return nonce
}

func (m *Manager) MarkCommitted(nonce uint64, txUUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[nonce] = nonceEntry{status: Committed, txUUID: txUUID}
}

func (m *Manager) MarkFreed(nonce uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[nonce] = nonceEntry{status: Freed}
}

// StatusOf reports the nonce's current lifecycle status.
func (m *Manager) StatusOf(nonce uint64) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[nonce]
	return e.status, ok
}

// Refresh queries the chain's finalized nonce and advances our watermark.
// If the chain is ahead of upper_nonce, some out-of-band transaction ran;
// bump upper_nonce to account for it.
func (m *Manager) Refresh(ctx context.Context) error {
	finalized, err := m.provider.NonceAt(ctx, m.address, true)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizedNonce = finalized
	if finalized+1 > m.upperNonce {
		m.upperNonce = finalized + 1
	}
	return nil
}

// Override forces upper_nonce to an explicit value, or resets it to the
// last known finalized nonce when newUpper is nil -- the admin recovery
// surface the spec names.
func (m *Manager) Override(newUpper *uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if newUpper == nil {
		m.upperNonce = m.finalizedNonce
		return
	}
	m.upperNonce = *newUpper
}

func (m *Manager) UpperNonce() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upperNonce
}

// FinalizedNonce reports the chain's last-observed finalized nonce, as of
// the most recent Refresh.
func (m *Manager) FinalizedNonce() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalizedNonce
}
