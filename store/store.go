// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package store implements the top-level façade: a single mutable
// object owning one arena, one node store, one way store, one relation
// store, and the two geometry stores, wrapping every node, way and
// relation insert in the arena's resize-retry loop. The geometry stores
// live in ordinary Go memory rather than the arena, so their Store*
// methods are not run through that loop.
package store

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/tilemaker-go/osmstore/assembler"
	"github.com/tilemaker-go/osmstore/geomstore"
	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/nodestore"
	"github.com/tilemaker-go/osmstore/osm"
	"github.com/tilemaker-go/osmstore/relationstore"
	"github.com/tilemaker-go/osmstore/telemetry"
	"github.com/tilemaker-go/osmstore/waystore"
)

// NodeStoreKind selects the node-store layout a Store uses.
type NodeStoreKind int

const (
	// CompactNodeStore is the dense-array layout, suited to a filtered
	// extract with renumbered, contiguous ids.
	CompactNodeStore NodeStoreKind = iota
	// SparseNodeStore is the hash-map layout, suited to a full-planet
	// extract with a large, scattered id space.
	SparseNodeStore
)

const defaultWayCacheSize = 4096

// Options configures a new Store.
type Options struct {
	ArenaPath         string
	InitialArenaSize  int64
	NodeStoreKind     NodeStoreKind
	ExpectedNodes     int
	ExpectedWays      int
	ExpectedRelations int
	WayCacheSize      int

	Logger   *logrus.Logger
	Registry prometheus.Registerer
	Tracer   trace.Tracer
}

// wayGeomKey distinguishes a linestring request from a polygon request
// for the same way handle in the assembled-geometry cache.
type wayGeomKey struct {
	handle  osm.Handle
	polygon bool
}

// Store is the façade: component G.
type Store struct {
	arena     *arenabuf.Arena
	nodes     nodestore.Store
	ways      *waystore.Store
	relations *relationstore.Store
	geoms     *geomstore.Store
	asm       *assembler.Assembler

	wmu sync.Mutex

	log      *logrus.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	wayCache *lru.Cache[wayGeomKey, orb.Geometry]
}

// New constructs a Store backed by a fresh arena file at opts.ArenaPath.
func New(opts Options) (*Store, error) {
	initialSize := opts.InitialArenaSize
	if initialSize <= 0 {
		initialSize = arenabuf.DefaultInitialSize
	}

	arena, err := arenabuf.Create(opts.ArenaPath, initialSize)
	if err != nil {
		return nil, err
	}

	var nodes nodestore.Store
	switch opts.NodeStoreKind {
	case SparseNodeStore:
		nodes = nodestore.NewSparse(arena)
	default:
		nodes = nodestore.NewCompact(arena)
	}
	if opts.ExpectedNodes > 0 {
		if err := nodes.Reserve(opts.ExpectedNodes); err != nil {
			arena.Close()
			return nil, err
		}
	}

	ways := waystore.New(arena)
	if opts.ExpectedWays > 0 {
		if err := ways.Reserve(opts.ExpectedWays); err != nil {
			arena.Close()
			return nil, err
		}
	}

	relations := relationstore.New(arena)
	if opts.ExpectedRelations > 0 {
		if err := relations.Reserve(opts.ExpectedRelations); err != nil {
			arena.Close()
			return nil, err
		}
	}

	geoms := geomstore.New()
	asm := assembler.New(nodes, ways)

	cacheSize := opts.WayCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultWayCacheSize
	}
	wayCache, err := lru.New[wayGeomKey, orb.Geometry](cacheSize)
	if err != nil {
		arena.Close()
		return nil, errors.Wrap(err, "construct way geometry cache")
	}

	log := opts.Logger
	if log == nil {
		log = telemetry.NewLogger("info")
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Store{
		arena:     arena,
		nodes:     nodes,
		ways:      ways,
		relations: relations,
		geoms:     geoms,
		asm:       asm,
		log:       log,
		metrics:   telemetry.NewMetrics(reg),
		tracer:    opts.Tracer,
		wayCache:  wayCache,
	}, nil
}

// retry runs op through the resize-retry loop and reports any growths
// it triggered to the arena-growths counter.
func (s *Store) retry(op func() error) error {
	before := s.arena.Growths()
	err := arenabuf.Retry(s.arena, op)
	if grew := s.arena.Growths() - before; grew > 0 {
		s.metrics.ArenaGrowths.Add(float64(grew))
		s.log.WithField("arena_bytes", s.arena.Size()).Info("arena grew")
	}
	return err
}

// InsertNode records coord under id, growing the arena and retrying as
// needed.
func (s *Store) InsertNode(id osm.NodeID, coord osm.LatpLon) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	err := s.retry(func() error {
		return s.nodes.Insert(id, coord)
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"node_id": id, "error": err}).Warn("insert_node failed")
		return err
	}
	s.metrics.Nodes.Set(float64(s.nodes.Size()))
	return nil
}

// InsertWay stores the node-id sequence for id and returns a handle to
// it, growing the arena and retrying as needed.
func (s *Store) InsertWay(id osm.WayID, nodeIDs []osm.NodeID) (osm.Handle, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	var handle osm.Handle
	err := s.retry(func() error {
		h, err := s.ways.Insert(id, nodeIDs)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"way_id": id, "error": err}).Warn("insert_way failed")
		return 0, err
	}
	s.metrics.Ways.Set(float64(s.ways.Size()))
	return handle, nil
}

// InsertRelation stores the outer and inner way-id sequences for id and
// returns a handle to the pair.
func (s *Store) InsertRelation(id osm.RelationID, outer, inner []osm.WayID) (osm.Handle, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	var handle osm.Handle
	err := s.retry(func() error {
		h, err := s.relations.Insert(id, outer, inner)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"relation_id": id, "error": err}).Warn("insert_relation failed")
		return 0, err
	}
	s.metrics.Relations.Set(float64(s.relations.Size()))
	return handle, nil
}

// LookupNode returns the coordinate stored for id.
func (s *Store) LookupNode(id osm.NodeID) (osm.LatpLon, error) {
	return s.nodes.Lookup(id)
}

// WayIsClosed reports whether the way at handle starts and ends on the
// same node.
func (s *Store) WayIsClosed(handle osm.Handle) bool {
	return s.asm.WayIsClosed(handle)
}

// WayAsLinestring resolves the way at handle into a linestring,
// memoized behind a bounded cache keyed by handle.
func (s *Store) WayAsLinestring(handle osm.Handle) (orb.LineString, error) {
	key := wayGeomKey{handle: handle}
	if cached, ok := s.wayCache.Get(key); ok {
		return cached.(orb.LineString), nil
	}

	span := s.startSpan("way_as_linestring")
	defer span.end()

	start := time.Now()
	ls, err := s.asm.WayAsLinestring(handle)
	s.observeAssemble(start, err)
	if err != nil {
		return nil, err
	}
	s.wayCache.Add(key, ls)
	return ls, nil
}

// WayAsPolygon resolves the way at handle into a winding-corrected
// single-ring polygon, memoized behind a bounded cache keyed by handle.
func (s *Store) WayAsPolygon(handle osm.Handle) (orb.Polygon, error) {
	key := wayGeomKey{handle: handle, polygon: true}
	if cached, ok := s.wayCache.Get(key); ok {
		return cached.(orb.Polygon), nil
	}

	span := s.startSpan("way_as_polygon")
	defer span.end()

	start := time.Now()
	poly, err := s.asm.WayAsPolygon(handle)
	s.observeAssemble(start, err)
	if err != nil {
		return nil, err
	}
	s.wayCache.Add(key, poly)
	return poly, nil
}

// RelationAsMultiPolygon resolves the relation at relationHandle (its
// outer and inner way-id sequences) into a winding-corrected
// multipolygon.
func (s *Store) RelationAsMultiPolygon(relationHandle osm.Handle) (orb.MultiPolygon, error) {
	span := s.startSpan("relation_as_multipolygon")
	defer span.end()

	rel := s.relations.Resolve(relationHandle)
	start := time.Now()
	mp, err := s.asm.RelationAsMultiPolygon(rel.Outer.Slice(), rel.Inner.Slice())
	s.observeAssemble(start, err)
	return mp, err
}

// RelationAsMultiPolygonByID is a convenience wrapper looking the
// relation up by id rather than by a previously returned handle.
func (s *Store) RelationAsMultiPolygonByID(id osm.RelationID) (orb.MultiPolygon, error) {
	rel, err := s.relations.Lookup(id)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	mp, err := s.asm.RelationAsMultiPolygon(rel.Outer.Slice(), rel.Inner.Slice())
	s.observeAssemble(start, err)
	return mp, err
}

// StorePoint appends pt to which's point deque.
func (s *Store) StorePoint(which osm.Which, pt orb.Point) osm.Handle {
	return s.geoms.StorePoint(which, pt)
}

// StoreLinestring appends ls to which's linestring deque.
func (s *Store) StoreLinestring(which osm.Which, ls orb.LineString) osm.Handle {
	return s.geoms.StoreLinestring(which, ls)
}

// StoreMultiPolygon appends mp to which's multipolygon deque.
func (s *Store) StoreMultiPolygon(which osm.Which, mp orb.MultiPolygon) osm.Handle {
	return s.geoms.StoreMultiPolygon(which, mp)
}

// RetrievePoint resolves a handle returned by StorePoint.
func (s *Store) RetrievePoint(h osm.Handle) (orb.Point, error) { return s.geoms.RetrievePoint(h) }

// RetrieveLinestring resolves a handle returned by StoreLinestring.
func (s *Store) RetrieveLinestring(h osm.Handle) (orb.LineString, error) {
	return s.geoms.RetrieveLinestring(h)
}

// RetrieveMultiPolygon resolves a handle returned by StoreMultiPolygon.
func (s *Store) RetrieveMultiPolygon(h osm.Handle) (orb.MultiPolygon, error) {
	return s.geoms.RetrieveMultiPolygon(h)
}

// Clear empties all three entity stores and both geometry stores. Arena
// capacity consumed by the entity stores is not reclaimed; only the
// logical size resets.
func (s *Store) Clear() {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.nodes.Clear()
	s.ways.Clear()
	s.relations.Clear()
	s.geoms.Clear()
	s.wayCache.Purge()

	s.metrics.Nodes.Set(0)
	s.metrics.Ways.Set(0)
	s.metrics.Relations.Set(0)
}

// Stats returns a point-in-time snapshot of store sizes.
func (s *Store) Stats() osm.Stats {
	return osm.Stats{
		Nodes:        s.nodes.Size(),
		Ways:         s.ways.Size(),
		Relations:    s.relations.Size(),
		ArenaBytes:   s.arena.Size(),
		ArenaGrowths: s.arena.Growths(),
	}
}

// Close unmaps and removes the backing arena file.
func (s *Store) Close() error {
	return s.arena.Close()
}

type endableSpan struct {
	span trace.Span
}

func (e endableSpan) end() {
	if e.span != nil {
		e.span.End()
	}
}

// startSpan opens a span under s.tracer, if one was configured. The
// façade has no long-lived context of its own to thread through, so it
// starts every span from a fresh background context; a caller wanting
// its own trace to be the parent should use its own tracer and manage
// spans around these calls instead.
func (s *Store) startSpan(name string) endableSpan {
	if s.tracer == nil {
		return endableSpan{}
	}
	_, span := s.tracer.Start(context.Background(), name)
	return endableSpan{span: span}
}

func (s *Store) observeAssemble(start time.Time, err error) {
	s.metrics.AssembleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.AssembleErrors.Add(1)
		s.log.WithError(err).Warn("assembly failed")
	}
}
