// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package geomstore holds the two parallel geometry stores an assembler
// writes into: an OSM-derived set and an SHP-derived set, each three
// append-only deques (points, linestrings, multipolygons).
package geomstore

import (
	"github.com/paulmach/orb"

	"github.com/tilemaker-go/osmstore/internal/segdeque"
	"github.com/tilemaker-go/osmstore/osm"
)

// whichBit marks which of the two parallel stores (OSM or SHP) a Handle
// addresses, so Retrieve-by-kind calls don't need the caller to also pass
// Which back in.
const whichBit = uint64(1) << 63

func packHandle(which osm.Which, segment, slot int) osm.Handle {
	h := uint64(segment)<<32 | uint64(uint32(slot))
	if which == osm.SHP {
		h |= whichBit
	}
	return osm.Handle(h)
}

func unpackHandle(h osm.Handle) (which osm.Which, segment, slot int) {
	v := uint64(h)
	if v&whichBit != 0 {
		which = osm.SHP
	} else {
		which = osm.OSM
	}
	segment = int((v &^ whichBit) >> 32)
	slot = int(uint32(v))
	return
}

type deques struct {
	points        segdeque.Deque[orb.Point]
	linestrings   segdeque.Deque[orb.LineString]
	multipolygons segdeque.Deque[orb.MultiPolygon]
}

// Store holds the OSM-derived and SHP-derived geometry deques.
type Store struct {
	sets [2]deques // indexed by osm.Which
}

// New constructs an empty geometry store pair.
func New() *Store {
	return &Store{}
}

// StorePoint appends pt to which's point deque and returns its handle.
func (s *Store) StorePoint(which osm.Which, pt orb.Point) osm.Handle {
	segment, slot := s.sets[which].points.Append(pt)
	return packHandle(which, segment, slot)
}

// StoreLinestring appends ls to which's linestring deque and returns its
// handle.
func (s *Store) StoreLinestring(which osm.Which, ls orb.LineString) osm.Handle {
	segment, slot := s.sets[which].linestrings.Append(ls)
	return packHandle(which, segment, slot)
}

// StoreMultiPolygon appends mp to which's multipolygon deque and returns
// its handle.
func (s *Store) StoreMultiPolygon(which osm.Which, mp orb.MultiPolygon) osm.Handle {
	segment, slot := s.sets[which].multipolygons.Append(mp)
	return packHandle(which, segment, slot)
}

// RetrievePoint resolves a handle returned by StorePoint.
func (s *Store) RetrievePoint(h osm.Handle) (orb.Point, error) {
	which, segment, slot := unpackHandle(h)
	v, ok := s.sets[which].points.At(segment, slot)
	if !ok {
		return orb.Point{}, osm.NewError(osm.NotFound, "point", int64(h), nil)
	}
	return v, nil
}

// RetrieveLinestring resolves a handle returned by StoreLinestring.
func (s *Store) RetrieveLinestring(h osm.Handle) (orb.LineString, error) {
	which, segment, slot := unpackHandle(h)
	v, ok := s.sets[which].linestrings.At(segment, slot)
	if !ok {
		return nil, osm.NewError(osm.NotFound, "linestring", int64(h), nil)
	}
	return v, nil
}

// RetrieveMultiPolygon resolves a handle returned by StoreMultiPolygon.
func (s *Store) RetrieveMultiPolygon(h osm.Handle) (orb.MultiPolygon, error) {
	which, segment, slot := unpackHandle(h)
	v, ok := s.sets[which].multipolygons.At(segment, slot)
	if !ok {
		return nil, osm.NewError(osm.NotFound, "multipolygon", int64(h), nil)
	}
	return v, nil
}

// Sizes returns the element counts of each of the six deques, in the
// order points, linestrings, multipolygons, for OSM then SHP.
func (s *Store) Sizes() (osmPoints, osmLines, osmPolys, shpPoints, shpLines, shpPolys int) {
	return s.sets[osm.OSM].points.Len(), s.sets[osm.OSM].linestrings.Len(), s.sets[osm.OSM].multipolygons.Len(),
		s.sets[osm.SHP].points.Len(), s.sets[osm.SHP].linestrings.Len(), s.sets[osm.SHP].multipolygons.Len()
}

// Clear empties every deque in both sets.
func (s *Store) Clear() {
	for i := range s.sets {
		s.sets[i].points.Clear()
		s.sets[i].linestrings.Clear()
		s.sets[i].multipolygons.Clear()
	}
}
