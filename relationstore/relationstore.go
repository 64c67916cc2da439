// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package relationstore implements the RelationID -> (outer, inner)
// store: an arena-resident hash map whose values are a pair of
// arena-resident WayID sequences.
package relationstore

import (
	"sync"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/osm"
)

const sequenceHeaderSize = 4

// relationHeaderSize is the fixed-width record pointing at a relation's
// two way-id sequences: outerOffset(8) + outerLen(4) + innerOffset(8) +
// innerLen(4).
const relationHeaderSize = 24

// Sequence is a read-only view over a stored way-id sequence.
type Sequence struct {
	arena  *arenabuf.Arena
	offset int64
	n      int32
}

// Len returns the number of way ids in the sequence.
func (s Sequence) Len() int { return int(s.n) }

// At returns the i'th way id.
func (s Sequence) At(i int) osm.WayID {
	off := s.offset + sequenceHeaderSize + int64(i)*8
	return osm.WayID(s.arena.Int64(off))
}

// Slice materializes the sequence into an owned []osm.WayID.
func (s Sequence) Slice() []osm.WayID {
	out := make([]osm.WayID, s.n)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Relation bundles the outer and inner way-id sequences resolved from a
// Handle or a RelationID.
type Relation struct {
	Outer Sequence
	Inner Sequence
}

// Store maps a RelationID to its outer and inner way-id sequences.
type Store struct {
	arena *arenabuf.Arena

	mu    sync.Mutex
	table *arenabuf.HashTable
}

// New constructs a RelationStore backed by arena.
func New(arena *arenabuf.Arena) *Store {
	return &Store{arena: arena}
}

// Reserve presizes the backing hash table for the expected relation
// count.
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

func (s *Store) writeSequence(ids []osm.WayID) (int64, error) {
	offset, err := s.arena.Alloc(sequenceHeaderSize + len(ids)*8)
	if err != nil {
		return 0, err
	}
	s.arena.PutUint32(offset, uint32(len(ids)))
	for i, id := range ids {
		s.arena.PutInt64(offset+sequenceHeaderSize+int64(i)*8, int64(id))
	}
	return offset, nil
}

// Insert stores the outer and inner way-id sequences for id and returns a
// Handle to the pair. Callers conventionally insert synthetic relations
// (e.g. stitched multipolygon rings) under negative pseudo-ids, but this
// store does not enforce any ordering or uniqueness on id.
func (s *Store) Insert(id osm.RelationID, outer, inner []osm.WayID) (osm.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTableLocked(0); err != nil {
		return 0, err
	}

	outerOffset, err := s.writeSequence(outer)
	if err != nil {
		return 0, err
	}
	innerOffset, err := s.writeSequence(inner)
	if err != nil {
		return 0, err
	}

	headerOffset, err := s.arena.Alloc(relationHeaderSize)
	if err != nil {
		return 0, err
	}

	s.arena.PutInt64(headerOffset, outerOffset)
	s.arena.PutUint32(headerOffset+8, uint32(len(outer)))
	s.arena.PutInt64(headerOffset+12, innerOffset)
	s.arena.PutUint32(headerOffset+20, uint32(len(inner)))

	if _, err := s.table.Insert(int64(id), headerOffset); err != nil {
		return 0, err
	}

	return osm.Handle(headerOffset), nil
}

// Resolve decodes the relation stored at handle.
func (s *Store) Resolve(handle osm.Handle) Relation {
	header := int64(handle)
	outerOffset := s.arena.Int64(header)
	outerLen := int32(s.arena.Uint32(header + 8))
	innerOffset := s.arena.Int64(header + 12)
	innerLen := int32(s.arena.Uint32(header + 20))

	return Relation{
		Outer: Sequence{arena: s.arena, offset: outerOffset, n: outerLen},
		Inner: Sequence{arena: s.arena, offset: innerOffset, n: innerLen},
	}
}

// Lookup resolves id to its stored relation via the hash table.
func (s *Store) Lookup(id osm.RelationID) (Relation, error) {
	s.mu.Lock()
	table := s.table
	s.mu.Unlock()

	if table == nil {
		return Relation{}, osm.NewError(osm.NotFound, "relation", int64(id), nil)
	}
	offset, ok := table.Get(int64(id))
	if !ok {
		return Relation{}, osm.NewError(osm.NotFound, "relation", int64(id), nil)
	}
	return s.Resolve(osm.Handle(offset)), nil
}

// Contains reports whether id has been inserted.
func (s *Store) Contains(id osm.RelationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return false
	}
	_, ok := s.table.Get(int64(id))
	return ok
}

// Size returns the number of relations inserted.
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
