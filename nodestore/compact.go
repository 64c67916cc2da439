// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package nodestore

import (
	"sync"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/osm"
)

const latpLonSize = 8 // two int32s

// Compact is the dense-array NodeStore layout, suited to a filtered
// extract where node ids have been renumbered into a small contiguous
// range. insert/lookup are O(1) array indexing; an id at or beyond the
// reserved capacity fails with OutOfRange.
type Compact struct {
	arena *arenabuf.Arena

	mu       sync.Mutex
	offset   int64
	reserved int
	present  []bool // plain Go memory, lets Contains/Size answer honestly
	// without changing Lookup's "zero value for an unwritten slot" behavior.
	count int
}

// NewCompact constructs a Compact node store backed by arena.
func NewCompact(arena *arenabuf.Arena) *Compact {
	return &Compact{arena: arena}
}

// Reserve allocates the backing vector, sized for n node ids. Calling
// Reserve again is a no-op if n has not grown or if any id has already
// been written; Compact capacity cannot be changed after data has been
// written, because ids double as array indices.
func (c *Compact) Reserve(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reserved >= n || c.count > 0 {
		return nil
	}

	offset, err := c.arena.Alloc(n * latpLonSize)
	if err != nil {
		return err
	}

	c.offset = offset
	c.reserved = n
	c.present = make([]bool, n)
	return nil
}

// Insert writes c at id. It fails with OutOfRange if id is beyond the
// reserved capacity.
func (c *Compact) Insert(id osm.NodeID, coord osm.LatpLon) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int64(id) >= int64(c.reserved) {
		return osm.NewError(osm.OutOfRange, "node", int64(id), nil)
	}

	c.writeLocked(id, coord)
	if !c.present[id] {
		c.present[id] = true
		c.count++
	}
	return nil
}

func (c *Compact) writeLocked(id osm.NodeID, coord osm.LatpLon) {
	off := c.offset + int64(id)*latpLonSize
	c.arena.PutUint32(off, uint32(coord.Latp))
	c.arena.PutUint32(off+4, uint32(coord.Lon))
}

// Lookup returns the coordinate at id. A reserved-but-never-written id
// returns the zero LatpLon rather than an error; OutOfRange is only
// returned when id falls outside the reservation.
func (c *Compact) Lookup(id osm.NodeID) (osm.LatpLon, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int64(id) >= int64(c.reserved) {
		return osm.LatpLon{}, osm.NewError(osm.OutOfRange, "node", int64(id), nil)
	}

	off := c.offset + int64(id)*latpLonSize
	return osm.LatpLon{
		Latp: int32(c.arena.Uint32(off)),
		Lon:  int32(c.arena.Uint32(off + 4)),
	}, nil
}

// Contains reports whether id has actually been written (as opposed to
// merely being within the reserved range).
func (c *Compact) Contains(id osm.NodeID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int64(id) >= int64(c.reserved) {
		return false
	}
	return c.present[id]
}

// Size returns the number of distinct ids actually written.
func (c *Compact) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Clear zeroes the vector in place; capacity is retained.
func (c *Compact) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reserved == 0 {
		return
	}

	zeroed := c.arena.At(c.offset, c.reserved*latpLonSize)
	for i := range zeroed {
		zeroed[i] = 0
	}
	for i := range c.present {
		c.present[i] = false
	}
	c.count = 0
}

var _ Store = (*Compact)(nil)
