// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package arenabuf

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tilemaker-go/osmstore/osm"
)

// slotSize is the width of one hash-table slot: an 8-byte key, an 8-byte
// value, and a 1-byte occupancy flag (arena pages come back zero-filled
// from the OS, so a flag byte is how an empty slot is told apart from a
// slot whose key happens to be zero).
const slotSize = 17

const defaultTableCapacity = 16

// HashTable is an arena-resident, open-addressed hash map from a signed
// 64-bit key to a 64-bit value, used by the Sparse node store to map a
// node id to its packed coordinate, and by WayStore/RelationStore to map
// an id to the arena offset of its stored record. It is add-only: no
// caller ever needs to remove a key.
type HashTable struct {
	arena *Arena

	mu       sync.Mutex // guards capacity/tableOffset/count during rehash
	capacity int64
	tableOffset int64
	count    int64
}

// NewHashTable allocates a table sized for at least expected entries
// (rounded up to the next power of two, at least defaultTableCapacity).
// It returns an OutOfSpace *osm.Error if the arena has no room, leaving
// the arena untouched.
func NewHashTable(a *Arena, expected int) (*HashTable, error) {
	capacity := int64(defaultTableCapacity)
	for capacity < int64(expected)*2 {
		capacity *= 2
	}

	offset, err := a.Alloc(int(capacity) * slotSize)
	if err != nil {
		return nil, err
	}

	return &HashTable{arena: a, capacity: capacity, tableOffset: offset}, nil
}

func hashKey(key int64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return xxhash.Sum64(buf[:])
}

// Count returns the number of distinct keys currently stored.
func (h *HashTable) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int(h.count)
}

// Insert stores value under key, overwriting any previous value for the
// same key. It returns true if key was not previously present. A caller
// that needs the arena to grow before this can succeed gets an
// OutOfSpace error with no observable state change: the rehash below
// allocates its replacement table before touching anything the old
// table's readers can see.
func (h *HashTable) Insert(key, value int64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if (h.count+1)*4 >= h.capacity*3 { // load factor >= 0.75
		if err := h.rehashLocked(h.capacity * 2); err != nil {
			return false, err
		}
	}

	isNew, err := h.insertLocked(key, value)
	if err != nil {
		return false, err
	}
	if isNew {
		h.count++
	}
	return isNew, nil
}

// insertLocked must be called with h.mu held. It assumes the table has
// room (the caller has already ensured the load factor is acceptable).
func (h *HashTable) insertLocked(key, value int64) (bool, error) {
	idx := hashKey(key) % uint64(h.capacity)

	for range make([]struct{}, h.capacity) {
		slotOffset := h.tableOffset + int64(idx)*slotSize
		slot := h.arena.At(slotOffset, slotSize)

		if slot[16] == 0 { // unoccupied
			binary.LittleEndian.PutUint64(slot[0:8], uint64(key))
			binary.LittleEndian.PutUint64(slot[8:16], uint64(value))
			slot[16] = 1
			return true, nil
		}

		existingKey := int64(binary.LittleEndian.Uint64(slot[0:8]))
		if existingKey == key {
			binary.LittleEndian.PutUint64(slot[8:16], uint64(value))
			return false, nil
		}

		idx = (idx + 1) % uint64(h.capacity)
	}

	// Every slot occupied by a different key: the load-factor check above
	// should make this unreachable, but fail safely rather than loop
	// forever.
	return false, osm.NewError(osm.OutOfSpace, "hashtable", key, nil)
}

// Get returns the value stored for key, and whether it was found.
func (h *HashTable) Get(key int64) (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := hashKey(key) % uint64(h.capacity)

	for range make([]struct{}, h.capacity) {
		slotOffset := h.tableOffset + int64(idx)*slotSize
		slot := h.arena.At(slotOffset, slotSize)

		if slot[16] == 0 {
			return 0, false
		}

		existingKey := int64(binary.LittleEndian.Uint64(slot[0:8]))
		if existingKey == key {
			return int64(binary.LittleEndian.Uint64(slot[8:16])), true
		}

		idx = (idx + 1) % uint64(h.capacity)
	}

	return 0, false
}

// rehashLocked allocates a new table of the given capacity, copies every
// occupied slot across, and only then swaps it in. If the allocation
// fails, h is left exactly as it was.
func (h *HashTable) rehashLocked(newCapacity int64) error {
	newOffset, err := h.arena.Alloc(int(newCapacity) * slotSize)
	if err != nil {
		return err
	}

	oldOffset, oldCapacity := h.tableOffset, h.capacity

	// Temporarily point inserts at the new (empty) table so insertLocked
	// can be reused for migration.
	h.tableOffset, h.capacity = newOffset, newCapacity

	for i := int64(0); i < oldCapacity; i++ {
		slot := h.arena.At(oldOffset+i*slotSize, slotSize)
		if slot[16] == 0 {
			continue
		}
		key := int64(binary.LittleEndian.Uint64(slot[0:8]))
		value := int64(binary.LittleEndian.Uint64(slot[8:16]))
		if _, err := h.insertLocked(key, value); err != nil {
			// Unreachable in practice: newCapacity is always large enough
			// for oldCapacity's occupants plus headroom.
			h.tableOffset, h.capacity = oldOffset, oldCapacity
			return err
		}
	}

	return nil
}
