// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package nodestore implements two node coordinate store layouts:
// Compact, a dense array indexed directly by NodeID, and Sparse, an
// arena-resident hash map. Both satisfy the same Store capability
// interface; callers pick one at construction time based on whether the
// id space is small and contiguous (Compact) or large and scattered
// (Sparse).
package nodestore

import "github.com/tilemaker-go/osmstore/osm"

// Store is the capability interface both NodeStore layouts satisfy.
type Store interface {
	// Reserve hints at the number of nodes to expect. Compact uses it as
	// the store's fixed capacity; Sparse uses it to presize its hash
	// table.
	Reserve(n int) error
	// Insert records c under id. Compact fails with OutOfRange if id is
	// beyond the reserved capacity; Sparse never fails on id range.
	Insert(id osm.NodeID, c osm.LatpLon) error
	// Lookup returns the coordinate stored for id. Compact returns the
	// zero LatpLon for a reserved-but-unwritten id; Sparse fails with
	// NotFound if id was never inserted.
	Lookup(id osm.NodeID) (osm.LatpLon, error)
	// Contains reports whether id has been inserted.
	Contains(id osm.NodeID) bool
	// Size returns the number of nodes actually inserted.
	Size() int
	// Clear empties the store. Capacity (for Compact) is retained.
	Clear()
}
