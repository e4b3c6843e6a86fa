package sflmalloc

import (
	"encoding/binary"

	"github.com/cznic/mathutil"
)

// Arena is the default implementation of the Region a host supplies to an
// Allocator. It models a single contiguous, monotonically growing memory
// region as a sparse map of fixed-size pages, so that offsets handed out by
// Grow stay valid for the arena's whole lifetime — growing it never
// reallocates or moves previously written bytes, unlike a plain growable
// []byte would.
//
// An Arena is not safe for concurrent use; callers serialize access the same
// way the allocator itself expects to be serialized.
type Arena struct {
	pages map[int64]*[pgSize]byte
	size  int64
}

const (
	pgBits = 12
	pgSize = 1 << pgBits
	pgMask = pgSize - 1
)

var zeroPage [pgSize]byte

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{pages: map[int64]*[pgSize]byte{}}
}

// Size returns the current extent of the region in bytes.
func (a *Arena) Size() int64 { return a.size }

// Grow extends the region by delta bytes and returns the offset at which
// the new region begins. delta must be a positive multiple of ALIGNMENT.
func (a *Arena) Grow(delta int64) (base int64, err error) {
	if delta <= 0 || delta%ALIGNMENT != 0 {
		return 0, &ErrInvalid{"Arena.Grow: delta not a positive multiple of ALIGNMENT", delta}
	}

	base = a.size
	a.size += delta
	return base, nil
}

func (a *Arena) page(off int64, write bool) *[pgSize]byte {
	pgI := off >> pgBits
	pg := a.pages[pgI]
	if pg == nil {
		if !write {
			return &zeroPage
		}
		pg = new([pgSize]byte)
		a.pages[pgI] = pg
	}
	return pg
}

// ReadAt copies len(b) bytes starting at off into b. It panics if the range
// [off, off+len(b)) is not within [0, Size()) — an out-of-range read is
// always a bug in the allocator, never a condition a client can provoke.
func (a *Arena) ReadAt(b []byte, off int64) {
	if off < 0 || off+int64(len(b)) > a.size {
		panic(&ErrInvalid{"Arena.ReadAt: out of range", off})
	}

	for rem := len(b); rem > 0; {
		pgO := int(off & pgMask)
		nc := mathutil.Min(rem, pgSize-pgO)
		copy(b[:nc], a.page(off, false)[pgO:])
		b = b[nc:]
		off += int64(nc)
		rem -= nc
	}
}

// WriteAt writes b starting at off. It panics under the same conditions as
// ReadAt.
func (a *Arena) WriteAt(b []byte, off int64) {
	if off < 0 || off+int64(len(b)) > a.size {
		panic(&ErrInvalid{"Arena.WriteAt: out of range", off})
	}

	for rem := len(b); rem > 0; {
		pgO := int(off & pgMask)
		nc := mathutil.Min(rem, pgSize-pgO)
		copy(a.page(off, true)[pgO:], b[:nc])
		b = b[nc:]
		off += int64(nc)
		rem -= nc
	}
}

// Zero clears n bytes starting at off.
func (a *Arena) Zero(off, n int64) {
	for rem := n; rem > 0; {
		pgO := int(off & pgMask)
		nc := int64(mathutil.Min(int(rem), pgSize-pgO))
		if pgO == 0 && nc == pgSize {
			delete(a.pages, off>>pgBits)
		} else {
			pg := a.page(off, true)
			for i := int64(0); i < nc; i++ {
				pg[int64(pgO)+i] = 0
			}
		}
		off += nc
		rem -= nc
	}
}

// ReadWord reads a big-endian uint32 at off.
func (a *Arena) ReadWord(off int64) uint32 {
	var b [4]byte
	a.ReadAt(b[:], off)
	return binary.BigEndian.Uint32(b[:])
}

// WriteWord writes v as a big-endian uint32 at off.
func (a *Arena) WriteWord(off int64, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	a.WriteAt(b[:], off)
}

// ReadAddr reads an absolute 8-byte big-endian address at off, used only by
// the free-list head table, whose entries must be able to name any heap
// address rather than a small relative delta.
func (a *Arena) ReadAddr(off int64) int64 {
	var b [8]byte
	a.ReadAt(b[:], off)
	return int64(binary.BigEndian.Uint64(b[:]))
}

// WriteAddr writes v as an absolute 8-byte big-endian address at off.
func (a *Arena) WriteAddr(off int64, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	a.WriteAt(b[:], off)
}

// ReadOffset reads a signed, ALIGNMENT-scaled relative offset word at off,
// encoded relative to base, and returns the absolute address it names, or 0
// if the stored delta is 0 ("no neighbor"). base need not equal off: the
// delta is always taken against base, so two different words that both
// encode a link to or from the same block agree on the same number
// regardless of which word within the block stores it.
func (a *Arena) ReadOffset(off, base int64) int64 {
	d := int32(a.ReadWord(off))
	if d == 0 {
		return 0
	}
	return base + int64(d)*ALIGNMENT
}

// WriteOffset writes the relative offset from base to target (or 0 if
// target is 0) as a signed ALIGNMENT-scaled delta word at off. base and
// target must both be ALIGNMENT-aligned block addresses, or the division
// truncates silently.
func (a *Arena) WriteOffset(off, base, target int64) {
	if target == 0 {
		a.WriteWord(off, 0)
		return
	}
	a.WriteWord(off, uint32(int32((target-base)/ALIGNMENT)))
}
