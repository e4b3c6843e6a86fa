package sflmalloc

// Region is the host collaborator an Allocator grows into: a single,
// contiguous, monotonically growing byte-addressable region. Arena is the
// default in-process implementation; a host embedding this allocator in,
// say, a process-wide arena backed by mmap could supply its own.
type Region interface {
	Size() int64
	Grow(delta int64) (base int64, err error)
	ReadAt(b []byte, off int64)
	WriteAt(b []byte, off int64)
	Zero(off, n int64)
	ReadWord(off int64) uint32
	WriteWord(off int64, v uint32)
	ReadAddr(off int64) int64
	WriteAddr(off int64, v int64)
	ReadOffset(off, base int64) int64
	WriteOffset(off, base, target int64)
}

const growChunk = 4096

const (
	padSize        = 4
	prologueHdrOff = headTableSize + padSize
	prologueFtrOff = prologueHdrOff + WSIZE
	firstBlockOff  = prologueFtrOff + WSIZE
	initExtent     = firstBlockOff + WSIZE // + epilogue header
)

// Allocator is the free-list allocator engine. It is not safe for
// concurrent use; the host serializes calls.
type Allocator struct {
	mem        Region
	firstBlock int64 // address of the first possible user block
	epilogue   int64 // address of the current epilogue header
}

// New initializes a fresh Allocator over mem. mem must be empty
// (Size() == 0); New lays down the free-list head table, the alignment pad,
// the prologue and the epilogue. It returns an *ErrInvalid if mem is not
// empty, and an *ErrNoSpace if the host's Region refuses the initial
// extension.
func New(mem Region) (*Allocator, error) {
	if mem.Size() != 0 {
		return nil, &ErrInvalid{"New: Region is not empty", mem.Size()}
	}

	if _, err := mem.Grow(initExtent); err != nil {
		return nil, &ErrNoSpace{Requested: initExtent, Cause: err}
	}

	mem.WriteWord(prologueHdrOff, packTag(WSIZE, true, false))
	mem.WriteWord(prologueFtrOff, packTag(WSIZE, true, false))
	mem.WriteWord(firstBlockOff, packTag(0, true, false)) // epilogue

	return &Allocator{mem: mem, firstBlock: firstBlockOff, epilogue: firstBlockOff}, nil
}

func roundUp(n, m int64) int64 { return (n + m - 1) / m * m }

// Allocate reserves space for requested payload bytes and returns a pointer
// to it, or 0 ("null") if the heap could not be grown.
func (a *Allocator) Allocate(requested int) int64 {
	if requested < 0 {
		return 0
	}

	s := uint32(requested) + WSIZE
	if s < ALIGNMENT {
		s = ALIGNMENT
	} else {
		s = uint32(roundUp(int64(s), ALIGNMENT))
	}

	b, found := a.findFit(s)
	if !found {
		var ok bool
		b, ok = a.grow(s)
		if !ok {
			return 0
		}
	}

	return a.placeAndSplit(b, s, found) + WSIZE
}

// findFit implements the fit policy: an exact-size hit in the size's own
// class short-circuits; otherwise a best-fit scan runs over classes
// [index(s), 23]. It never mutates a list — callers decide what to do with
// the winner.
func (a *Allocator) findFit(s uint32) (int64, bool) {
	i := sizeClass(s)
	h := a.headAddr(i)
	if h != 0 && a.blockSize(h) == s {
		return h, true
	}
	if h == 0 {
		i++
	}

	for ; i < numClasses; i++ {
		var best int64
		var bestSize uint32
		for b := a.headAddr(i); b != 0; b = a.freeNext(b) {
			sz := a.blockSize(b)
			switch {
			case sz == s:
				return b, true
			case sz > s && (best == 0 || sz < bestSize):
				best, bestSize = b, sz
			}
		}
		if best != 0 {
			return best, true
		}
	}

	return 0, false
}

// grow extends the heap by round_up(minSize, 4096) bytes and returns the
// address of the resulting free block. The new region inherits the old
// epilogue's pfree bit, and — since the old epilogue's address becomes a
// live block boundary rather than a heap edge — is coalesced backward into
// a free predecessor before it is handed to the caller, exactly as Release
// coalesces a newly freed block: otherwise a free block that happened to
// sit against the old epilogue and the freshly grown region would end up as
// two adjacent free blocks in separate class lists. The returned block is
// not registered in any free list — the caller (placeAndSplit) either
// consumes it whole or inserts its residual.
func (a *Allocator) grow(minSize uint32) (int64, bool) {
	chunk := uint32(roundUp(int64(minSize), growChunk))
	pfree := a.blockPfree(a.epilogue)

	if _, err := a.mem.Grow(int64(chunk)); err != nil {
		return 0, false
	}

	newBlock := a.epilogue
	a.writeHeader(newBlock, chunk, false, pfree)
	a.writeFooter(newBlock, chunk, false, pfree)

	a.epilogue = newBlock + int64(chunk)
	a.mem.WriteWord(a.epilogue, packTag(0, true, false))

	newBlock, _ = a.coalesceBackward(newBlock, chunk)
	return newBlock, true
}

// placeAndSplit implements the split policy and marks the winning block
// allocated. b is a free block of size >= s, either found in a class list
// (inList) or freshly grown (not inList). It returns the address of the
// allocated block: b itself when the block is handed out whole, otherwise
// b + (old - s), since the split carves the allocated portion off the right
// end and leaves the residual at the original address b ("split from the
// right").
func (a *Allocator) placeAndSplit(b int64, s uint32, inList bool) int64 {
	old := a.blockSize(b)
	pfree := a.blockPfree(b)

	if old-s < ALIGNMENT {
		if inList {
			a.removeFree(b, old, noHint)
		}
		a.writeHeader(b, old, true, pfree)
		a.setPfree(nextBlock(b, old), false)
		return b
	}

	residualSize := old - s
	allocated := b + int64(residualSize)

	if inList {
		oldClass, newClass := sizeClass(old), sizeClass(residualSize)
		if oldClass != newClass {
			a.removeFree(b, old, oldClass)
			a.insertFree(b, residualSize)
		}
	} else {
		a.insertFree(b, residualSize)
	}

	a.writeHeader(b, residualSize, false, pfree)
	a.writeFooter(b, residualSize, false, pfree)

	a.writeHeader(allocated, s, true, true) // predecessor is the residual: always free
	a.setPfree(nextBlock(allocated, s), false)

	return allocated
}

// Release deallocates the block pointed to by ptr. ptr == 0 is a no-op.
func (a *Allocator) Release(ptr int64) {
	if ptr == 0 {
		return
	}

	b := ptr - WSIZE
	size := a.blockSize(b)
	pfree := a.blockPfree(b)
	a.writeHeader(b, size, false, pfree)
	a.writeFooter(b, size, false, pfree)

	b, size = a.coalesceForward(b, size)
	b, size = a.coalesceBackward(b, size)

	a.setPfree(nextBlock(b, size), true)
	a.insertFree(b, size)
}

// coalesceForward merges b with its physically next block if that block is
// free.
func (a *Allocator) coalesceForward(b int64, size uint32) (int64, uint32) {
	next := nextBlock(b, size)
	if a.isEpilogue(next) || a.blockAlloc(next) {
		return b, size
	}

	nextSize := a.blockSize(next)
	a.removeFree(next, nextSize, noHint)

	newSize := size + nextSize
	pfree := a.blockPfree(b)
	a.writeHeader(b, newSize, false, pfree)
	a.writeFooter(b, newSize, false, pfree)
	return b, newSize
}

// coalesceBackward merges b with its physically previous block if pfree(b)
// indicates that block is free. Safe only via pfree, since allocated
// predecessors carry no footer to read.
func (a *Allocator) coalesceBackward(b int64, size uint32) (int64, uint32) {
	if !a.blockPfree(b) {
		return b, size
	}

	left, leftSize, ok := a.leftBlock(b)
	if !ok {
		return b, size
	}

	a.removeFree(left, leftSize, noHint)

	newSize := leftSize + size
	pfree := a.blockPfree(left)
	a.writeHeader(left, newSize, false, pfree)
	a.writeFooter(left, newSize, false, pfree)
	return left, newSize
}

// Resize changes the size of the block pointed to by ptr. It returns 0
// ("null") if newLen == 0 (after releasing ptr), or if a fallback
// reallocation could not find space — in the latter case ptr remains valid
// and untouched.
func (a *Allocator) Resize(ptr int64, newLen int) int64 {
	if newLen == 0 {
		a.Release(ptr)
		return 0
	}
	if ptr == 0 {
		return a.Allocate(newLen)
	}

	b := ptr - WSIZE
	old := a.blockSize(b)
	r := uint32(roundUp(int64(newLen)+WSIZE, ALIGNMENT))
	if r < ALIGNMENT {
		r = ALIGNMENT
	}

	switch {
	case r == old:
		return ptr
	case r < old:
		return a.shrinkInPlace(ptr, b, old, r)
	}

	if newPtr, ok := a.growInPlace(ptr, b, old, r); ok {
		return newPtr
	}

	newPtr := a.Allocate(newLen)
	if newPtr == 0 {
		return 0
	}

	var buf [256]byte
	copyLen := int64(old - WSIZE)
	for off := int64(0); off < copyLen; {
		n := copyLen - off
		if n > int64(len(buf)) {
			n = int64(len(buf))
		}
		a.mem.ReadAt(buf[:n], ptr+off)
		a.mem.WriteAt(buf[:n], newPtr+off)
		off += n
	}

	a.Release(ptr)
	return newPtr
}

// shrinkInPlace carves a trailing free residual off a block being shrunk,
// merging it with the physically next block if that one is free.
// The residual's predecessor is the shrunk, still-allocated block, which
// can never be free, so the residual's pfree is always false.
func (a *Allocator) shrinkInPlace(ptr, b int64, old, r uint32) int64 {
	pfree := a.blockPfree(b)
	a.writeHeader(b, r, true, pfree)

	residual := b + int64(r)
	residualSize := old - r
	a.writeHeader(residual, residualSize, false, false)
	a.writeFooter(residual, residualSize, false, false)
	residual, residualSize = a.coalesceForward(residual, residualSize)
	a.setPfree(nextBlock(residual, residualSize), true)
	a.insertFree(residual, residualSize)

	return ptr
}

// growInPlace attempts to satisfy a grow-resize by consuming the physically
// next block, if it is free and big enough.
func (a *Allocator) growInPlace(ptr, b int64, old, r uint32) (int64, bool) {
	next := nextBlock(b, old)
	if a.isEpilogue(next) || a.blockAlloc(next) {
		return 0, false
	}

	nextSize := a.blockSize(next)
	combined := old + nextSize
	if combined < r {
		return 0, false
	}

	a.removeFree(next, nextSize, noHint)
	pfree := a.blockPfree(b)

	residualSize := combined - r
	if residualSize >= ALIGNMENT {
		residual := b + int64(r)
		a.writeHeader(residual, residualSize, false, false)
		a.writeFooter(residual, residualSize, false, false)
		a.insertFree(residual, residualSize)
		a.writeHeader(b, r, true, pfree)
		a.setPfree(nextBlock(residual, residualSize), true)
	} else {
		a.writeHeader(b, combined, true, pfree)
		a.setPfree(nextBlock(b, combined), false)
	}

	return ptr, true
}

// Calloc allocates space for n elements of size sz and zeroes it. Overflow
// of n*sz is the caller's responsibility.
func (a *Allocator) Calloc(n, sz int) int64 {
	ptr := a.Allocate(n * sz)
	if ptr == 0 {
		return 0
	}

	a.mem.Zero(ptr, a.PayloadLen(ptr))
	return ptr
}

// PayloadLen returns the usable size in bytes of the block ptr points to.
func (a *Allocator) PayloadLen(ptr int64) int64 {
	return int64(a.blockSize(ptr-WSIZE)) - WSIZE
}

// ReadAt reads len(dst) bytes from ptr's payload at the given offset.
func (a *Allocator) ReadAt(ptr int64, off int64, dst []byte) { a.mem.ReadAt(dst, ptr+off) }

// WriteAt writes src into ptr's payload at the given offset.
func (a *Allocator) WriteAt(ptr int64, off int64, src []byte) { a.mem.WriteAt(src, ptr+off) }
