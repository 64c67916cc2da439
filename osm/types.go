// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package osm holds the identifiers, core entities, and error kinds shared
// by every store and the geometry assembler. It has no dependency on the
// arena, so entity shapes can be reasoned about independently of how they
// are physically laid out in memory.
package osm

// NodeID is a 64-bit OSM node identifier. In Compact node-store mode it
// doubles as a dense array index and must stay within the reserved
// capacity.
type NodeID uint64

// WayID is a 64-bit OSM way identifier. Positive values are real OSM ways;
// negative values are pseudo-ids synthesized for multipolygon relations.
type WayID int64

// RelationID aliases WayID: relations are keyed the same way ways are,
// using decreasing pseudo-ids assigned by the caller.
type RelationID = WayID

// Handle is an opaque 64-bit reference: an arena offset for ways and
// relations, a packed (store, segment, slot) triple for generated
// geometries. It is only meaningful to the store that produced it, and only valid while that store has not been
// cleared. Handles survive arena growth; they do not survive clear().
type Handle uint64

// LatpLon is a Mercator-projected latitude ("latp") and a longitude, both
// stored as integers in units of 1/10,000,000 of a degree.
type LatpLon struct {
	Latp int32
	Lon  int32
}

// scale converts the 1e-7 degree integer units to floating-point degrees.
const scale = 1e7

// Float64s returns the (lon, latp) pair as floating-point degrees, in the
// (x, y) order the geometry assembler uses when building points.
func (c LatpLon) Float64s() (x, y float64) {
	return float64(c.Lon) / scale, float64(c.Latp) / scale
}

// IsZero reports whether c is the zero value, i.e. the value a Compact
// node store returns for a reserved-but-never-written id.
func (c LatpLon) IsZero() bool {
	return c.Latp == 0 && c.Lon == 0
}

// Way is a non-empty ordered sequence of node ids. A way is closed iff its
// first and last node ids are equal.
type Way struct {
	ID    WayID
	Nodes []NodeID
}

// Closed reports whether the way's first and last nodes coincide.
func (w Way) Closed() bool {
	return len(w.Nodes) > 1 && w.Nodes[0] == w.Nodes[len(w.Nodes)-1]
}

// Relation carries the outer and inner way-id sequences of an OSM
// multipolygon relation.
type Relation struct {
	ID    RelationID
	Outer []WayID
	Inner []WayID
}

// Which selects one of the two parallel geometry stores a façade owns.
type Which int

const (
	// OSM is the geometry store for geometries derived directly from OSM
	// ways and relations.
	OSM Which = iota
	// SHP is the geometry store for geometries imported from shapefiles
	// or other non-OSM sources, kept in a parallel but independent deque
	// set so the two provenances never collide on handles.
	SHP
)

func (w Which) String() string {
	if w == SHP {
		return "shp"
	}
	return "osm"
}

// Stats is a point-in-time snapshot of store sizes, surfaced by the CLI
// stats command and mirrored into Prometheus gauges.
type Stats struct {
	Nodes        int
	Ways         int
	Relations    int
	ArenaBytes   int64
	ArenaGrowths int64
}
