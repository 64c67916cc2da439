// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package osm

import "testing"

func TestLatpLonFloat64s(t *testing.T) {
	c := LatpLon{Latp: 100_000_000, Lon: 50_000_000}
	x, y := c.Float64s()
	if x != 5.0 {
		t.Fatalf("expected lon 5.0, got %v", x)
	}
	if y != 10.0 {
		t.Fatalf("expected latp 10.0, got %v", y)
	}
}

func TestLatpLonIsZero(t *testing.T) {
	if !(LatpLon{}).IsZero() {
		t.Fatalf("expected zero value to report IsZero")
	}
	if (LatpLon{Latp: 1}).IsZero() {
		t.Fatalf("expected non-zero value to report !IsZero")
	}
}

func TestWayClosed(t *testing.T) {
	cases := []struct {
		name string
		way  Way
		want bool
	}{
		{"closed square", Way{Nodes: []NodeID{1, 2, 3, 1}}, true},
		{"open line", Way{Nodes: []NodeID{1, 2, 3}}, false},
		{"single node", Way{Nodes: []NodeID{1}}, false},
		{"empty", Way{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.way.Closed(); got != c.want {
				t.Fatalf("Closed() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestWhichString(t *testing.T) {
	if OSM.String() != "osm" {
		t.Fatalf("expected osm, got %s", OSM.String())
	}
	if SHP.String() != "shp" {
		t.Fatalf("expected shp, got %s", SHP.String())
	}
}
