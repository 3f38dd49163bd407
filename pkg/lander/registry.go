// Copyright 2025 Interlayer Labs

package lander

import "sync"

// Registry tracks every Transaction currently owned by one destination's
// Lander pipeline, keyed by UUID, so the admin server can list and act on
// reorg-captured transactions without reaching into scheduler internals.
type Registry struct {
	mu  sync.RWMutex
	txs map[string]*Transaction
}

func NewRegistry() *Registry {
	return &Registry{txs: make(map[string]*Transaction)}
}

func (r *Registry) Put(tx *Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.UUID] = tx
}

func (r *Registry) Get(uuid string) (*Transaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[uuid]
	return tx, ok
}

func (r *Registry) Remove(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.txs, uuid)
}

// Reorged lists transactions whose payloads were bounced back to pending
// by a Finality Stage reorg detection -- the inspect_reorged_transactions
// admin endpoint.
func (r *Registry) Reorged() []*Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Transaction
	for _, tx := range r.txs {
		if tx.Reorged {
			out = append(out, tx)
		}
	}
	return out
}

func (r *Registry) All() []*Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		out = append(out, tx)
	}
	return out
}
