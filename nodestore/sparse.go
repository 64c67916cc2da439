// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package nodestore

import (
	"sync"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/osm"
)

// Sparse is the hash-map NodeStore layout, suited to a full-planet extract
// with a large, non-contiguous id space. insert is add-only with
// most-recent-wins semantics; lookup fails with NotFound rather than
// OutOfRange, since there is no reserved range to exceed.
type Sparse struct {
	arena *arenabuf.Arena

	mu    sync.Mutex
	table *arenabuf.HashTable
}

// NewSparse constructs a Sparse node store backed by arena.
func NewSparse(arena *arenabuf.Arena) *Sparse {
	return &Sparse{arena: arena}
}

// Reserve presizes the backing hash table. It is a sizing hint only: it
// has no effect once the table has already been created (by an earlier
// Reserve or Insert).
func (s *Sparse) Reserve(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureTableLocked(n)
}

func (s *Sparse) ensureTableLocked(hint int) error {
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

func packLatpLon(c osm.LatpLon) int64 {
	return int64(uint32(c.Latp))<<32 | int64(uint32(c.Lon))
}

func unpackLatpLon(v int64) osm.LatpLon {
	return osm.LatpLon{
		Latp: int32(uint32(v >> 32)),
		Lon:  int32(uint32(v)),
	}
}

// Insert records coord under id, overwriting any prior value for id.
func (s *Sparse) Insert(id osm.NodeID, coord osm.LatpLon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureTableLocked(0); err != nil {
		return err
	}
	_, err := s.table.Insert(int64(id), packLatpLon(coord))
	return err
}

// Lookup returns the coordinate stored for id, or a NotFound error if id
// was never inserted.
func (s *Sparse) Lookup(id osm.NodeID) (osm.LatpLon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return osm.LatpLon{}, osm.NewError(osm.NotFound, "node", int64(id), nil)
	}
	v, ok := s.table.Get(int64(id))
	if !ok {
		return osm.LatpLon{}, osm.NewError(osm.NotFound, "node", int64(id), nil)
	}
	return unpackLatpLon(v), nil
}

// Contains reports whether id has been inserted.
func (s *Sparse) Contains(id osm.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return false
	}
	_, ok := s.table.Get(int64(id))
	return ok
}

// Size returns the number of distinct ids inserted.
func (s *Sparse) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return 0
	}
	return s.table.Count()
}

// Clear drops the table. Arena capacity already consumed by the old
// table is not reclaimed, since the arena is a bump allocator with no
// free list for hash-table storage; only the logical size resets.
func (s *Sparse) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
}

var _ Store = (*Sparse)(nil)
