// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package nodestore

import (
	"path/filepath"
	"testing"

	"github.com/tilemaker-go/osmstore/internal/arenabuf"
	"github.com/tilemaker-go/osmstore/osm"
)

func newTestCompact(t *testing.T, n int) *Compact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.arena")
	a, err := arenabuf.Create(path, 1<<20)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	c := NewCompact(a)
	if err := c.Reserve(n); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	return c
}

func TestCompactInsertThenLookup(t *testing.T) {
	c := newTestCompact(t, 10)

	coord := osm.LatpLon{Latp: 100, Lon: 200}
	if err := c.Insert(3, coord); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := c.Lookup(3)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != coord {
		t.Fatalf("expected %v, got %v", coord, got)
	}
	if !c.Contains(3) {
		t.Fatalf("expected Contains(3) to be true")
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestCompactLookupUnwrittenIDReturnsZeroValue(t *testing.T) {
	c := newTestCompact(t, 10)

	got, err := c.Lookup(5)
	if err != nil {
		t.Fatalf("expected no error for unwritten-but-reserved id, got %v", err)
	}
	if got != (osm.LatpLon{}) {
		t.Fatalf("expected zero value, got %v", got)
	}
	if c.Contains(5) {
		t.Fatalf("expected Contains(5) to be false")
	}
}

func TestCompactInsertBeyondCapacityReturnsOutOfRange(t *testing.T) {
	c := newTestCompact(t, 4)

	err := c.Insert(4, osm.LatpLon{Latp: 1, Lon: 1})
	if !osm.IsKind(err, osm.OutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestCompactLookupBeyondCapacityReturnsOutOfRange(t *testing.T) {
	c := newTestCompact(t, 4)

	_, err := c.Lookup(100)
	if !osm.IsKind(err, osm.OutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestCompactReinsertOverwritesWithoutDoubleCounting(t *testing.T) {
	c := newTestCompact(t, 4)

	if err := c.Insert(1, osm.LatpLon{Latp: 1, Lon: 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := c.Insert(1, osm.LatpLon{Latp: 2, Lon: 2}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1 after reinsert, got %d", c.Size())
	}
	got, _ := c.Lookup(1)
	if got != (osm.LatpLon{Latp: 2, Lon: 2}) {
		t.Fatalf("expected overwritten value, got %v", got)
	}
}

func TestCompactClearResetsSizeButKeepsCapacity(t *testing.T) {
	c := newTestCompact(t, 4)

	if err := c.Insert(0, osm.LatpLon{Latp: 9, Lon: 9}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	c.Clear()

	if c.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", c.Size())
	}
	if c.Contains(0) {
		t.Fatalf("expected Contains(0) to be false after Clear")
	}

	if err := c.Insert(3, osm.LatpLon{Latp: 7, Lon: 7}); err != nil {
		t.Fatalf("expected reserved capacity to survive Clear, got %v", err)
	}
}
