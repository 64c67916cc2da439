// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package relationstore

import (
	"path/filepath"
	"testing"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/osm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.arena")
	a, err := arenabuf.Create(path, 1<<20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return New(a)
}

func TestInsertThenLookup(t *testing.T) {
	s := newTestStore(t)

	outer := []osm.WayID{10, 11}
	inner := []osm.WayID{20}
	handle, err := s.Insert(1, outer, inner)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rel, err := s.Lookup(1)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := rel.Outer.Slice(); len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("unexpected outer sequence: %v", got)
	}
	if got := rel.Inner.Slice(); len(got) != 1 || got[0] != 20 {
		t.Fatalf("unexpected inner sequence: %v", got)
	}

	viaHandle := s.Resolve(handle)
	if viaHandle.Outer.Slice()[0] != 10 {
		t.Fatalf("Resolve(handle) mismatch with Lookup result")
	}
}

func TestLookupAbsentIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Lookup(99); !osm.IsKind(err, osm.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if s.Contains(99) {
		t.Fatalf("expected Contains(99) to be false")
	}
}

func TestInsertWithEmptyInnerRings(t *testing.T) {
	s := newTestStore(t)

	handle, err := s.Insert(5, []osm.WayID{1, 2, 3}, nil)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	rel := s.Resolve(handle)
	if rel.Outer.Len() != 3 {
		t.Fatalf("expected outer length 3, got %d", rel.Outer.Len())
	}
	if rel.Inner.Len() != 0 {
		t.Fatalf("expected inner length 0, got %d", rel.Inner.Len())
	}
}

func TestSizeAndClear(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Insert(1, []osm.WayID{1}, nil); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := s.Insert(2, []osm.WayID{2}, nil); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if s.Size() != 2 {
		t.Fatalf("expected size 2, got %d", s.Size())
	}

	s.Clear()
	if s.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", s.Size())
	}
	if s.Contains(1) {
		t.Fatalf("expected Contains(1) to be false after Clear")
	}
}
