// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package osm

import "fmt"

// ErrorKind discriminates the error kinds a store or the façade can
// return. OutOfSpace is caught internally by the arena's resize-retry
// loop and never surfaces to a caller; the other three are returned
// verbatim.
type ErrorKind int

const (
	// OutOfSpace means the arena could not satisfy an allocation at its
	// current size. Callers never see this: the façade's resize-retry
	// loop grows the arena and retries.
	OutOfSpace ErrorKind = iota
	// OutOfRange means a Compact node id fell outside the reserved
	// capacity.
	OutOfRange
	// NotFound means a Sparse node id, way id, or relation id was never
	// inserted.
	NotFound
	// GrowthFailure means extending or remapping the backing file
	// failed; it is fatal and always surfaces.
	GrowthFailure
)

func (k ErrorKind) String() string {
	switch k {
	case OutOfSpace:
		return "out of space"
	case OutOfRange:
		return "out of range"
	case NotFound:
		return "not found"
	case GrowthFailure:
		return "growth failure"
	default:
		return "unknown"
	}
}

// Error is the typed error every store and the façade return. It always
// names the offending id so a caller (or a log line) doesn't need to
// reconstruct context from a bare message.
type Error struct {
	Kind  ErrorKind
	Which string // "node", "way", "relation", ...
	ID    int64
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s %d: %v", e.Which, e.Kind, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s %d", e.Which, e.Kind, e.ID)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind as e, so
// errors.Is matches on kind alone (Which and ID are ignored). To check
// against a bare ErrorKind, use IsKind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// NewError constructs a typed error for the given entity kind and id.
func NewError(kind ErrorKind, which string, id int64, cause error) *Error {
	return &Error{Kind: kind, Which: which, ID: id, Cause: cause}
}

// IsKind reports whether err (or something it wraps) is an *osm.Error of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
