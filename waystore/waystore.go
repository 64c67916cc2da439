// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package waystore implements the WayID -> []NodeID store: an
// arena-resident hash map whose values are themselves arena-resident
// variable-length sequences.
package waystore

import (
	"sync"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/osm"
)

// sequenceHeaderSize is the 4-byte element count prefixing every stored
// node-id sequence.
const sequenceHeaderSize = 4

// Sequence is a read-only, zero-copy view over a stored node-id sequence:
// each element is decoded from the arena on access rather than eagerly
// materialized into a slice, the way an iterator pair would be used in
// a language with manual memory management.
type Sequence struct {
	arena  *arenabuf.Arena
	offset int64
	n      int32
}

// Len returns the number of node ids in the sequence.
func (s Sequence) Len() int { return int(s.n) }

// At returns the i'th node id.
func (s Sequence) At(i int) osm.NodeID {
	off := s.offset + sequenceHeaderSize + int64(i)*8
	return osm.NodeID(s.arena.Uint64(off))
}

// Slice materializes the sequence into an owned []osm.NodeID, for callers
// (the geometry assembler) that need to index back and forth repeatedly.
func (s Sequence) Slice() []osm.NodeID {
	out := make([]osm.NodeID, s.n)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Store maps a WayID to its stored node-id sequence.
type Store struct {
	arena *arenabuf.Arena

	mu    sync.Mutex
	table *arenabuf.HashTable
}

// New constructs a WayStore backed by arena.
func New(arena *arenabuf.Arena) *Store {
	return &Store{arena: arena}
}

// Reserve presizes the backing hash table for the expected way count.
func (s *Store) Reserve(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureTableLocked(n)
}

func (s *Store) ensureTableLocked(hint int) error {
	if s.table != nil {
		return nil
	}
	table, err := arenabuf.NewHashTable(s.arena, hint)
	if err != nil {
		return err
	}
	s.table = table
	return nil
}

// Insert constructs the node-id sequence for id in the arena and returns
// a Handle to it. Re-inserting an id that is already present is
// undefined: it overwrites the id's table entry, leaving the first
// sequence's arena bytes allocated but unreachable.
func (s *Store) Insert(id osm.WayID, nodes []osm.NodeID) (osm.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTableLocked(0); err != nil {
		return 0, err
	}

	offset, err := s.arena.Alloc(sequenceHeaderSize + len(nodes)*8)
	if err != nil {
		return 0, err
	}

	s.arena.PutUint32(offset, uint32(len(nodes)))
	for i, id := range nodes {
		s.arena.PutUint64(offset+sequenceHeaderSize+int64(i)*8, uint64(id))
	}

	if _, err := s.table.Insert(int64(id), offset); err != nil {
		return 0, err
	}

	return osm.Handle(offset), nil
}

// Resolve decodes the sequence stored at handle. Handles are opaque and
// assumed valid by contract (they come from a prior Insert); this does
// not re-validate against the hash table.
func (s *Store) Resolve(handle osm.Handle) Sequence {
	offset := int64(handle)
	n := int32(s.arena.Uint32(offset))
	return Sequence{arena: s.arena, offset: offset, n: n}
}

// Lookup resolves id to its stored sequence via the hash table.
func (s *Store) Lookup(id osm.WayID) (Sequence, error) {
	s.mu.Lock()
	table := s.table
	s.mu.Unlock()

	if table == nil {
		return Sequence{}, osm.NewError(osm.NotFound, "way", int64(id), nil)
	}
	offset, ok := table.Get(int64(id))
	if !ok {
		return Sequence{}, osm.NewError(osm.NotFound, "way", int64(id), nil)
	}
	return s.Resolve(osm.Handle(offset)), nil
}

// LookupHandle resolves id to the Handle under which it was inserted.
func (s *Store) LookupHandle(id osm.WayID) (osm.Handle, error) {
	s.mu.Lock()
	table := s.table
	s.mu.Unlock()

	if table == nil {
		return 0, osm.NewError(osm.NotFound, "way", int64(id), nil)
	}
	offset, ok := table.Get(int64(id))
	if !ok {
		return 0, osm.NewError(osm.NotFound, "way", int64(id), nil)
	}
	return osm.Handle(offset), nil
}

// Contains reports whether id has been inserted.
func (s *Store) Contains(id osm.WayID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return false
	}
	_, ok := s.table.Get(int64(id))
	return ok
}

// Size returns the number of ways inserted.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return 0
	}
	return s.table.Count()
}

// Clear drops the table; arena capacity already consumed is not
// reclaimed (see nodestore.Sparse.Clear).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
}
