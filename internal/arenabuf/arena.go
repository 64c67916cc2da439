// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package arenabuf implements the mmap-backed, self-growing arena that
// backs every entity store in this module. It owns exactly one OS file and
// one mapped region, hands out position-independent byte offsets (never
// pointers) to its callers, and exposes the resize-retry loop that every
// mutating operation in the façade runs inside of.
package arenabuf

import (
	"encoding/binary"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/tilemaker-go/osmstore/osm"
)

// DefaultInitialSize is the arena's default starting size: 1GB.
const DefaultInitialSize int64 = 1_024_000_000

// Arena is a single memory-mapped file, doubled on demand, sized 1GB by
// default. All byte offsets handed out by Alloc remain meaningful across
// Grow: only the base address of the mapping changes, which is why every
// accessor re-resolves through At() instead of caching a slice.
type Arena struct {
	path    string
	file    *os.File
	rmu     sync.RWMutex // guards data/size across Grow
	data    []byte
	tail    int64 // atomic: next free byte offset (bump allocator)
	growths int64 // atomic: number of completed Grow calls
}

// Create opens a fresh arena backed by a new file at path, sized to
// initialSize bytes. The file is created with exclusive-create
// semantics: any pre-existing file at path is removed first, since the
// arena is scratch space, not a database.
func Create(path string, initialSize int64) (*Arena, error) {
	if initialSize <= 0 {
		initialSize = DefaultInitialSize
	}

	_ = os.Remove(path) // best-effort; O_EXCL below is the real guard

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, osm.NewError(osm.GrowthFailure, "arena", 0, errors.Wrapf(err, "create arena file %s", path))
	}

	if err := f.Truncate(initialSize); err != nil {
		f.Close()
		os.Remove(path)
		return nil, osm.NewError(osm.GrowthFailure, "arena", 0, errors.Wrapf(err, "truncate arena file to %d bytes", initialSize))
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(initialSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, osm.NewError(osm.GrowthFailure, "arena", 0, errors.Wrap(err, "mmap arena file"))
	}

	return &Arena{path: path, file: f, data: data}, nil
}

// ScratchPath builds a collision-resistant arena file path under dir,
// suffixed with a fresh UUID so concurrent test runs or repeated CLI
// invocations never fight over the same backing file.
func ScratchPath(dir string) string {
	return dir + "/osmstore-" + uuid.NewString() + ".arena"
}

// Size returns the current size of the mapping in bytes.
func (a *Arena) Size() int64 {
	a.rmu.RLock()
	defer a.rmu.RUnlock()
	return int64(len(a.data))
}

// Growths returns the number of times Grow has completed successfully.
func (a *Arena) Growths() int64 {
	return atomic.LoadInt64(&a.growths)
}

// Used returns the number of bytes currently allocated by Alloc.
func (a *Arena) Used() int64 {
	return atomic.LoadInt64(&a.tail)
}

// Close unmaps the region, closes the file, and removes it from disk.
// The backing file never outlives the process; there is no durable
// format to preserve across runs.
func (a *Arena) Close() error {
	a.rmu.Lock()
	defer a.rmu.Unlock()

	var errs []error
	if a.data != nil {
		if err := unix.Munmap(a.data); err != nil {
			errs = append(errs, err)
		}
		a.data = nil
	}
	if a.file != nil {
		if err := a.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Wrap(errs[0], "close arena")
	}
	return nil
}

// Alloc reserves n bytes from the arena and returns their offset. It never
// grows the arena itself: if there isn't room, it returns an *osm.Error of
// kind OutOfSpace without mutating any state, so the façade's resize-retry
// loop can grow the arena and retry the whole calling operation from
// scratch (the precondition for the retry protocol's idempotency
// requirement).
func (a *Arena) Alloc(n int) (int64, error) {
	size := a.Size()
	for {
		cur := atomic.LoadInt64(&a.tail)
		next := cur + int64(n)
		if next > size {
			return 0, osm.NewError(osm.OutOfSpace, "arena", 0, nil)
		}
		if atomic.CompareAndSwapInt64(&a.tail, cur, next) {
			return cur, nil
		}
	}
}

// At returns a byte slice view into the current mapping, from offset for
// n bytes. The slice is only valid until the next Grow; no caller in this
// module holds one across a mutating call.
func (a *Arena) At(offset int64, n int) []byte {
	a.rmu.RLock()
	defer a.rmu.RUnlock()
	return a.data[offset : offset+int64(n)]
}

// Grow doubles the file on disk and remaps it in place. Every offset
// previously returned by Alloc stays valid: At() re-resolves against the
// new mapping on its next call.
func (a *Arena) Grow() error {
	a.rmu.Lock()
	defer a.rmu.Unlock()

	oldSize := int64(len(a.data))
	newSize := oldSize * 2
	if newSize <= oldSize {
		newSize = oldSize + DefaultInitialSize
	}

	if err := unix.Munmap(a.data); err != nil {
		return osm.NewError(osm.GrowthFailure, "arena", 0, errors.Wrap(err, "unmap before grow"))
	}
	a.data = nil

	if err := a.file.Truncate(newSize); err != nil {
		return osm.NewError(osm.GrowthFailure, "arena", 0, errors.Wrapf(err, "truncate arena file to %d bytes", newSize))
	}

	data, err := unix.Mmap(int(a.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return osm.NewError(osm.GrowthFailure, "arena", 0, errors.Wrap(err, "remap arena file"))
	}

	a.data = data
	atomic.AddInt64(&a.growths, 1)
	return nil
}

// Retry runs op, and whenever op fails with an OutOfSpace *osm.Error,
// grows a and retries op from the beginning. Every other error,
// including GrowthFailure, propagates immediately. Callers must write
// op so that it either completes fully or fails with OutOfSpace before
// making any observable change, since it may run more than once.
func Retry(a *Arena, op func() error) error {
	for {
		err := op()
		if err == nil {
			return nil
		}
		if !osm.IsKind(err, osm.OutOfSpace) {
			return err
		}
		if growErr := a.Grow(); growErr != nil {
			return growErr
		}
	}
}

// --- fixed-width primitive accessors -------------------------------------

// PutUint32 writes v at offset.
func (a *Arena) PutUint32(offset int64, v uint32) {
	binary.LittleEndian.PutUint32(a.At(offset, 4), v)
}

// Uint32 reads a uint32 at offset.
func (a *Arena) Uint32(offset int64) uint32 {
	return binary.LittleEndian.Uint32(a.At(offset, 4))
}

// PutInt64 writes v at offset.
func (a *Arena) PutInt64(offset int64, v int64) {
	binary.LittleEndian.PutUint64(a.At(offset, 8), uint64(v))
}

// Int64 reads an int64 at offset.
func (a *Arena) Int64(offset int64) int64 {
	return int64(binary.LittleEndian.Uint64(a.At(offset, 8)))
}

// PutUint64 writes v at offset.
func (a *Arena) PutUint64(offset int64, v uint64) {
	binary.LittleEndian.PutUint64(a.At(offset, 8), v)
}

// Uint64 reads a uint64 at offset.
func (a *Arena) Uint64(offset int64) uint64 {
	return binary.LittleEndian.Uint64(a.At(offset, 8))
}

// PutFloat64 writes v at offset, bit-for-bit.
func (a *Arena) PutFloat64(offset int64, v float64) {
	a.PutUint64(offset, math.Float64bits(v))
}

// Float64 reads a float64 at offset.
func (a *Arena) Float64(offset int64) float64 {
	return math.Float64frombits(a.Uint64(offset))
}
