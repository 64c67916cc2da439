// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package assembler

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/nodestore"
	"github.com/tilemaker-go/osmstore/osm"
	"github.com/tilemaker-go/osmstore/waystore"
)

type fixture struct {
	asm   *Assembler
	ways  *waystore.Store
	nodes *nodestore.Compact
}

func newFixture(t *testing.T, numNodes int) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.arena")
	a, err := arenabuf.Create(path, 1<<20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	nodes := nodestore.NewCompact(a)
	if err := nodes.Reserve(numNodes); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	ways := waystore.New(a)

	return &fixture{asm: New(nodes, ways), ways: ways, nodes: nodes}
}

func (f *fixture) putNode(t *testing.T, id osm.NodeID, x, y float64) {
	t.Helper()
	if err := f.nodes.Insert(id, osm.LatpLon{Latp: int32(y * 10_000_000), Lon: int32(x * 10_000_000)}); err != nil {
		t.Fatalf("node Insert failed: %v", err)
	}
}

func (f *fixture) putWay(t *testing.T, id osm.WayID, nodes ...osm.NodeID) osm.Handle {
	t.Helper()
	h, err := f.ways.Insert(id, nodes)
	if err != nil {
		t.Fatalf("way Insert failed: %v", err)
	}
	return h
}

func TestSingleClosedWayBecomesPolygon(t *testing.T) {
	f := newFixture(t, 10)
	f.putNode(t, 1, 0, 0)
	f.putNode(t, 2, 10, 0)
	f.putNode(t, 3, 10, 10)
	f.putNode(t, 4, 0, 10)

	h := f.putWay(t, 100, 1, 2, 3, 4, 1)

	if !f.asm.WayIsClosed(h) {
		t.Fatalf("expected way to be closed")
	}

	poly, err := f.asm.WayAsPolygon(h)
	if err != nil {
		t.Fatalf("WayAsPolygon failed: %v", err)
	}
	if len(poly) != 1 {
		t.Fatalf("expected single ring, got %d", len(poly))
	}
	if poly[0].Orientation() != orb.CCW {
		t.Fatalf("expected corrected CCW winding, got %v", poly[0].Orientation())
	}
	if len(poly[0]) != 5 {
		t.Fatalf("expected 5 points (closed ring), got %d", len(poly[0]))
	}
}

func TestOpenWayBecomesLinestring(t *testing.T) {
	f := newFixture(t, 10)
	f.putNode(t, 1, 0, 0)
	f.putNode(t, 2, 5, 5)
	f.putNode(t, 3, 10, 0)

	h := f.putWay(t, 1, 1, 2, 3)

	if f.asm.WayIsClosed(h) {
		t.Fatalf("expected way to be open")
	}

	ls, err := f.asm.WayAsLinestring(h)
	if err != nil {
		t.Fatalf("WayAsLinestring failed: %v", err)
	}
	if len(ls) != 3 {
		t.Fatalf("expected 3 points, got %d", len(ls))
	}
}

func TestTwoWayOuterStitchingAppend(t *testing.T) {
	f := newFixture(t, 10)
	f.putNode(t, 1, 0, 0)
	f.putNode(t, 2, 10, 0)
	f.putNode(t, 3, 10, 10)
	f.putNode(t, 4, 0, 10)

	// way A: 1 -> 2 -> 3, way B: 3 -> 4 -> 1. B's first node matches A's
	// last, so stitching should append B onto A forming a closed ring.
	f.putWay(t, 1, 1, 2, 3)
	f.putWay(t, 2, 3, 4, 1)

	mp, err := f.asm.RelationAsMultiPolygon([]osm.WayID{1, 2}, nil)
	if err != nil {
		t.Fatalf("RelationAsMultiPolygon failed: %v", err)
	}
	if len(mp) != 1 {
		t.Fatalf("expected 1 polygon from stitched outer, got %d", len(mp))
	}
	if len(mp[0]) != 1 {
		t.Fatalf("expected 1 ring (no inner matches), got %d", len(mp[0]))
	}
	ring := mp[0][0]
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("expected stitched ring to close, got %v", ring)
	}
}

func TestTwoWayOuterStitchingReversedJoin(t *testing.T) {
	f := newFixture(t, 10)
	f.putNode(t, 1, 0, 0)
	f.putNode(t, 2, 10, 0)
	f.putNode(t, 3, 10, 10)
	f.putNode(t, 4, 0, 10)

	// way A: 1 -> 2 -> 3, way B: 1 -> 4 -> 3 (B's endpoints both need to
	// be reversed relative to A to link up: B's last node (3) matches
	// A's last node (3), forcing the "append reversed" case).
	f.putWay(t, 1, 1, 2, 3)
	f.putWay(t, 2, 1, 4, 3)

	mp, err := f.asm.RelationAsMultiPolygon([]osm.WayID{1, 2}, nil)
	if err != nil {
		t.Fatalf("RelationAsMultiPolygon failed: %v", err)
	}
	if len(mp) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(mp))
	}
	ring := mp[0][0]
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("expected stitched ring to close, got %v", ring)
	}
	if len(ring) != 5 {
		t.Fatalf("expected 5 points in closed ring, got %d", len(ring))
	}
}

func TestRelationWithInnerRingContainment(t *testing.T) {
	f := newFixture(t, 20)
	// outer: a 0,0 -> 10,10 square
	f.putNode(t, 1, 0, 0)
	f.putNode(t, 2, 10, 0)
	f.putNode(t, 3, 10, 10)
	f.putNode(t, 4, 0, 10)
	// inner: a small 3,3 -> 6,6 square, fully inside the outer
	f.putNode(t, 11, 3, 3)
	f.putNode(t, 12, 6, 3)
	f.putNode(t, 13, 6, 6)
	f.putNode(t, 14, 3, 6)

	f.putWay(t, 1, 1, 2, 3, 4, 1)
	f.putWay(t, 2, 11, 12, 13, 14, 11)

	mp, err := f.asm.RelationAsMultiPolygon([]osm.WayID{1}, []osm.WayID{2})
	if err != nil {
		t.Fatalf("RelationAsMultiPolygon failed: %v", err)
	}
	if len(mp) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(mp))
	}
	if len(mp[0]) != 2 {
		t.Fatalf("expected outer + 1 inner ring, got %d rings", len(mp[0]))
	}
	if mp[0][0].Orientation() != orb.CCW {
		t.Fatalf("expected outer ring CCW, got %v", mp[0][0].Orientation())
	}
	if mp[0][1].Orientation() != orb.CW {
		t.Fatalf("expected inner ring CW, got %v", mp[0][1].Orientation())
	}
}

func TestRelationWithEmptyOuterReturnsEmptyMultiPolygon(t *testing.T) {
	f := newFixture(t, 4)
	mp, err := f.asm.RelationAsMultiPolygon(nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mp) != 0 {
		t.Fatalf("expected empty multipolygon, got %d polygons", len(mp))
	}
}

func TestRelationWithMultipleDisjointOuterRings(t *testing.T) {
	f := newFixture(t, 20)
	// two separate closed squares, each its own way.
	f.putNode(t, 1, 0, 0)
	f.putNode(t, 2, 1, 0)
	f.putNode(t, 3, 1, 1)
	f.putNode(t, 4, 0, 1)

	f.putNode(t, 11, 100, 100)
	f.putNode(t, 12, 101, 100)
	f.putNode(t, 13, 101, 101)
	f.putNode(t, 14, 100, 101)

	f.putWay(t, 1, 1, 2, 3, 4, 1)
	f.putWay(t, 2, 11, 12, 13, 14, 11)

	mp, err := f.asm.RelationAsMultiPolygon([]osm.WayID{1, 2}, nil)
	if err != nil {
		t.Fatalf("RelationAsMultiPolygon failed: %v", err)
	}
	if len(mp) != 2 {
		t.Fatalf("expected 2 disjoint polygons, got %d", len(mp))
	}
}

func TestLookupFailurePropagatesFromStitch(t *testing.T) {
	f := newFixture(t, 4)
	// way id 1 was never inserted.
	_, err := f.asm.RelationAsMultiPolygon([]osm.WayID{1}, nil)
	if !osm.IsKind(err, osm.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
