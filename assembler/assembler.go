// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package assembler turns stored way and relation references into
// concrete geometries: a way becomes a linestring or a polygon outer
// ring; a relation's outer and inner way sequences are stitched into a
// winding-correct multipolygon.
package assembler

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/tilemaker-go/osmstore/nodestore"
	"github.com/tilemaker-go/osmstore/osm"
	"github.com/tilemaker-go/osmstore/waystore"
)

// Assembler resolves node coordinates and way node-id sequences into
// orb geometries. It holds no geometry of its own; callers decide
// whether to keep the result or hand it to a geometry store.
type Assembler struct {
	nodes nodestore.Store
	ways  *waystore.Store
}

// New constructs an Assembler reading from nodes and ways.
func New(nodes nodestore.Store, ways *waystore.Store) *Assembler {
	return &Assembler{nodes: nodes, ways: ways}
}

// WayIsClosed reports whether the way at handle starts and ends on the
// same node id.
func (a *Assembler) WayIsClosed(handle osm.Handle) bool {
	seq := a.ways.Resolve(handle)
	n := seq.Len()
	return n > 1 && seq.At(0) == seq.At(n-1)
}

// WayAsLinestring resolves the way at handle into an ordered sequence
// of projected points. It applies no projection correction beyond the
// stored LatpLon -> (x, y) conversion.
func (a *Assembler) WayAsLinestring(handle osm.Handle) (orb.LineString, error) {
	seq := a.ways.Resolve(handle)
	return a.linestringFromIDs(seq.Slice())
}

// WayAsPolygon resolves the way at handle into a single-ring polygon
// with corrected (counter-clockwise) winding. It does not verify that
// the way is closed; an unclosed input way yields a polygon whose ring
// does not close, which is the caller's responsibility to avoid.
func (a *Assembler) WayAsPolygon(handle osm.Handle) (orb.Polygon, error) {
	seq := a.ways.Resolve(handle)
	ring, err := a.ringFromIDs(seq.Slice())
	if err != nil {
		return nil, err
	}
	correctOuter(ring)
	return orb.Polygon{ring}, nil
}

// RelationAsMultiPolygon runs the three-stage stitching algorithm: ring
// stitching (independently for outer and inner way sequences),
// materialization with inner-to-outer containment attachment, and
// winding correction. An empty outer sequence produces an empty
// multipolygon rather than an error.
func (a *Assembler) RelationAsMultiPolygon(outer, inner []osm.WayID) (orb.MultiPolygon, error) {
	outerChains, err := a.stitch(outer)
	if err != nil {
		return nil, err
	}
	if len(outerChains) == 0 {
		return orb.MultiPolygon{}, nil
	}

	innerChains, err := a.stitch(inner)
	if err != nil {
		return nil, err
	}

	innerRings := make([]orb.Ring, 0, len(innerChains))
	for _, c := range innerChains {
		ring, err := a.ringFromIDs(c.nodes)
		if err != nil {
			return nil, err
		}
		innerRings = append(innerRings, ring)
	}

	mp := make(orb.MultiPolygon, 0, len(outerChains))
	for _, c := range outerChains {
		outerRing, err := a.ringFromIDs(c.nodes)
		if err != nil {
			return nil, err
		}

		poly := orb.Polygon{outerRing}
		for _, innerRing := range innerRings {
			if ringWithin(innerRing, outerRing) {
				poly = append(poly, innerRing)
			}
		}

		correctPolygon(poly)
		mp = append(mp, poly)
	}

	return mp, nil
}

func (a *Assembler) linestringFromIDs(ids []osm.NodeID) (orb.LineString, error) {
	ls := make(orb.LineString, len(ids))
	for i, id := range ids {
		coord, err := a.nodes.Lookup(id)
		if err != nil {
			return nil, err
		}
		x, y := coord.Float64s()
		ls[i] = orb.Point{x, y}
	}
	return ls, nil
}

func (a *Assembler) ringFromIDs(ids []osm.NodeID) (orb.Ring, error) {
	ls, err := a.linestringFromIDs(ids)
	if err != nil {
		return nil, err
	}
	return orb.Ring(ls), nil
}

// ringWithin reports whether inner lies within outer, using inner's
// first vertex as a representative point. Source data in the scenarios
// this assembler targets never has an inner ring straddling an outer
// boundary, so a single point-in-polygon test is sufficient.
func ringWithin(inner, outer orb.Ring) bool {
	if len(inner) == 0 {
		return false
	}
	return planar.RingContains(outer, inner[0])
}

func correctOuter(r orb.Ring) {
	if r.Orientation() != orb.CCW {
		r.Reverse()
	}
}

func correctInner(r orb.Ring) {
	if r.Orientation() != orb.CW {
		r.Reverse()
	}
}

// correctPolygon canonicalizes winding in place: outer ring
// counter-clockwise, every inner ring clockwise.
func correctPolygon(p orb.Polygon) {
	if len(p) == 0 {
		return
	}
	correctOuter(p[0])
	for _, inner := range p[1:] {
		correctInner(inner)
	}
}

// chain is a working, possibly-unclosed node-id sequence built up during
// stitching.
type chain struct {
	nodes []osm.NodeID
}

func (c *chain) closed() bool {
	return len(c.nodes) > 1 && c.nodes[0] == c.nodes[len(c.nodes)-1]
}

func reverseIDs(ids []osm.NodeID) []osm.NodeID {
	out := make([]osm.NodeID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// tryJoin attempts to attach nodes to c by matching endpoints, trying
// the four cases in order: append, append-reversed, prepend,
// prepend-reversed. It reports whether a join happened.
func tryJoin(c *chain, nodes []osm.NodeID) bool {
	if len(nodes) == 0 || len(c.nodes) == 0 {
		return false
	}

	first, last := nodes[0], nodes[len(nodes)-1]
	cFirst, cLast := c.nodes[0], c.nodes[len(c.nodes)-1]

	switch {
	case cLast == first:
		c.nodes = append(c.nodes, nodes[1:]...)
	case cLast == last:
		rev := reverseIDs(nodes)
		c.nodes = append(c.nodes, rev[1:]...)
	case last == cFirst:
		joined := append([]osm.NodeID{}, nodes[:len(nodes)-1]...)
		c.nodes = append(joined, c.nodes...)
	case first == cFirst:
		rev := reverseIDs(nodes)
		joined := append([]osm.NodeID{}, rev[:len(rev)-1]...)
		c.nodes = append(joined, c.nodes...)
	default:
		return false
	}
	return true
}

// stitch runs the ring-stitching algorithm over a single sequence of
// way ids (outer or inner), returning the resulting chains. A chain may
// be unclosed if the input ways don't fully ring up; that is a
// documented, silently-accepted failure mode rather than an error.
func (a *Assembler) stitch(wayIDs []osm.WayID) ([]*chain, error) {
	sequences := make([][]osm.NodeID, len(wayIDs))
	for i, id := range wayIDs {
		seq, err := a.ways.Lookup(id)
		if err != nil {
			return nil, err
		}
		sequences[i] = seq.Slice()
	}

	done := make([]bool, len(wayIDs))
	remaining := len(wayIDs)
	var chains []*chain

	for remaining > 0 {
		progressed := false

		for i, nodes := range sequences {
			if done[i] {
				continue
			}

			if len(nodes) > 1 && nodes[0] == nodes[len(nodes)-1] {
				chains = append(chains, &chain{nodes: append([]osm.NodeID{}, nodes...)})
				done[i] = true
				remaining--
				progressed = true
				continue
			}

			joinedAny := false
			for _, c := range chains {
				if c.closed() {
					continue
				}
				if tryJoin(c, nodes) {
					joinedAny = true
					break
				}
			}
			if joinedAny {
				done[i] = true
				remaining--
				progressed = true
			}
		}

		if !progressed {
			for i, nodes := range sequences {
				if done[i] {
					continue
				}
				chains = append(chains, &chain{nodes: append([]osm.NodeID{}, nodes...)})
				done[i] = true
				remaining--
				break
			}
		}
	}

	return chains, nil
}
