// Copyright 2025 Interlayer Labs
//
// Package kvstore wraps CometBFT's dbm.DB as the relayer's persistence
// layer -- the same key-value engine the teacher uses for its ledger
// store, generalized here into the per-origin database: flat key -> value
// pairs rather than relational rows. Values are stored as given; this
// layer adds no length prefix.
package kvstore

import (
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// Store is a thin, durable key-value wrapper. Every write goes through
// SetSync so a crash never silently drops an acknowledged commit -- the
// same durability guarantee the teacher's kvdb.KVAdapter gives the ledger.
type Store struct {
	db dbm.DB
}

// Open opens (or creates) a goleveldb-backed store at dir/name.db, the
// backend the teacher wires via cometbft-db's goleveldb driver.
func Open(name, dir string) (*Store, error) {
	db, err := dbm.NewDB(name, dbm.GoLevelDBBackend, dir)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open %s in %s: %w", name, dir, err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open dbm.DB, mainly so tests can supply a
// dbm.NewMemDB() store without touching the filesystem.
func NewWithDB(db dbm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("kvstore: get %q: %w", key, err)
	}
	return v, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	ok, err := s.db.Has(key)
	if err != nil {
		return false, fmt.Errorf("kvstore: has %q: %w", key, err)
	}
	return ok, nil
}

func (s *Store) Set(key, value []byte) error {
	if err := s.db.SetSync(key, value); err != nil {
		return fmt.Errorf("kvstore: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key []byte) error {
	if err := s.db.DeleteSync(key); err != nil {
		return fmt.Errorf("kvstore: delete %q: %w", key, err)
	}
	return nil
}

// Iterator returns an ascending iterator over [start, end); end=nil means
// unbounded. Callers must Close() it.
func (s *Store) Iterator(start, end []byte) (dbm.Iterator, error) {
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("kvstore: iterator: %w", err)
	}
	return it, nil
}

// NewBatch starts an atomic write batch for callers that need several rows
// committed together.
func (s *Store) NewBatch() dbm.Batch {
	return s.db.NewBatch()
}

func (s *Store) Close() error {
	return s.db.Close()
}
