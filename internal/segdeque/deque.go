// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package segdeque implements the segmented, append-only growable array
// the geometry stores use: appending a new segment only grows the slice
// of segment pointers, never moves an element already stored in an
// existing segment, so handles addressing earlier elements stay valid
// for the deque's whole lifetime.
//
// Geometry values (points, linestrings, polygons) hold ordinary Go slices
// internally, so unlike the id/value stores they are not suited to living
// in raw mmap bytes — they live in GC-managed segments instead, addressed
// by (segment, slot) pairs rather than by arena offsets.
package segdeque

import "sync"

// SegmentSize is the number of elements per segment.
const SegmentSize = 512

// Deque is a segmented, append-only sequence of T. The zero value is
// ready to use.
type Deque[T any] struct {
	mu       sync.RWMutex
	segments [][]T
}

// Append adds v to the deque and returns the (segment, slot) indices
// identifying its stable position.
func (d *Deque[T]) Append(v T) (segment, slot int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	last := len(d.segments) - 1
	if last < 0 || len(d.segments[last]) == SegmentSize {
		d.segments = append(d.segments, make([]T, 0, SegmentSize))
		last++
	}

	d.segments[last] = append(d.segments[last], v)
	return last, len(d.segments[last]) - 1
}

// At returns the element at (segment, slot), and whether it exists.
func (d *Deque[T]) At(segment, slot int) (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var zero T
	if segment < 0 || segment >= len(d.segments) {
		return zero, false
	}
	seg := d.segments[segment]
	if slot < 0 || slot >= len(seg) {
		return zero, false
	}
	return seg[slot], true
}

// Len returns the total number of elements appended.
func (d *Deque[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.segments) == 0 {
		return 0
	}
	full := (len(d.segments) - 1) * SegmentSize
	return full + len(d.segments[len(d.segments)-1])
}

// Clear drops every element. Capacity (the already-allocated segments) is
// not retained, since geometry segments are ordinary Go memory rather
// than arena capacity.
func (d *Deque[T]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.segments = nil
}
