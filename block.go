package sflmalloc

// ALIGNMENT is the payload alignment guarantee this allocator provides.
const ALIGNMENT = 16

// WSIZE is the size in bytes of a header/footer word.
const WSIZE = 4

const (
	flagAlloc = 1 << 0
	flagPfree = 1 << 1
	flagMask  = flagAlloc | flagPfree
)

// packTag encodes (size, alloc, pfree) into a 4-byte header/footer word.
// size's low two bits are always zero (it is a multiple of ALIGNMENT=16) and
// are reused to carry the two state bits.
func packTag(size uint32, alloc, pfree bool) uint32 {
	w := size
	if alloc {
		w |= flagAlloc
	}
	if pfree {
		w |= flagPfree
	}
	return w
}

func tagSize(w uint32) uint32  { return w &^ flagMask }
func tagAlloc(w uint32) bool   { return w&flagAlloc != 0 }
func tagPfree(w uint32) bool   { return w&flagPfree != 0 }

// header reads the header word of the block at address b.
func (a *Allocator) header(b int64) uint32 { return a.mem.ReadWord(b) }

// writeHeader writes the header word of the block at address b.
func (a *Allocator) writeHeader(b int64, size uint32, alloc, pfree bool) {
	a.mem.WriteWord(b, packTag(size, alloc, pfree))
}

// footerOff returns the offset of the footer word of a block of the given size
// starting at b. Only free blocks carry a footer — callers must not call
// this for allocated blocks.
func footerOff(b int64, size uint32) int64 { return b + int64(size) - WSIZE }

// writeFooter writes the footer word, mirroring the header.
func (a *Allocator) writeFooter(b int64, size uint32, alloc, pfree bool) {
	a.mem.WriteWord(footerOff(b, size), packTag(size, alloc, pfree))
}

// blockSize reads the size field out of the header at b.
func (a *Allocator) blockSize(b int64) uint32 { return tagSize(a.header(b)) }

// blockAlloc reports whether the block at b is allocated.
func (a *Allocator) blockAlloc(b int64) bool { return tagAlloc(a.header(b)) }

// blockPfree reports whether the block immediately preceding b is free.
func (a *Allocator) blockPfree(b int64) bool { return tagPfree(a.header(b)) }

// setPfree rewrites only the pfree bit of the block at b, preserving size
// and the alloc bit.
func (a *Allocator) setPfree(b int64, pfree bool) {
	w := a.header(b)
	if pfree {
		w |= flagPfree
	} else {
		w &^= flagPfree
	}
	a.mem.WriteWord(b, w)
}
