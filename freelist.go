package sflmalloc

// headTableSize is the byte size of the free-list head table: one 8-byte
// absolute address per class.
const headTableSize = numClasses * 8

// noHint tells removeFree to recompute the owning class from size rather than
// trust a caller-supplied index.
const noHint = -1

func headOff(i int) int64 { return int64(i) * 8 }

func (a *Allocator) headAddr(i int) int64          { return a.mem.ReadAddr(headOff(i)) }
func (a *Allocator) setHeadAddr(i int, addr int64) { a.mem.WriteAddr(headOff(i), addr) }

// freeNextOff/freePrevOff locate the intra-class doubly linked list pointers
// within a free block's body, directly after the header word: next-offset at
// b+WSIZE, prev-offset at b+2*WSIZE. Neither slot overlaps the header or
// footer, so linking a block into a list never disturbs its boundary tags.
const (
	freeNextOff = WSIZE
	freePrevOff = 2 * WSIZE
)

// freeNext/freePrev read the linked-list pointers, both encoded relative to
// b itself — not to the word that stores them — so the delta is always an
// exact multiple of ALIGNMENT: every block address is ALIGNMENT-aligned
// relative to the heap's first block, and the codec divides by ALIGNMENT.
func (a *Allocator) freeNext(b int64) int64 { return a.mem.ReadOffset(b+freeNextOff, b) }
func (a *Allocator) freePrev(b int64) int64 { return a.mem.ReadOffset(b+freePrevOff, b) }

func (a *Allocator) setFreeNext(b, target int64) { a.mem.WriteOffset(b+freeNextOff, b, target) }
func (a *Allocator) setFreePrev(b, target int64) { a.mem.WriteOffset(b+freePrevOff, b, target) }

// insertFree links a free block of the given size onto the front of its
// class's list.
func (a *Allocator) insertFree(b int64, size uint32) {
	i := sizeClass(size)
	h := a.headAddr(i)
	a.setFreeNext(b, h)
	a.setFreePrev(b, 0)
	if h != 0 {
		a.setFreePrev(h, b)
	}
	a.setHeadAddr(i, b)
}

// removeFree unlinks a free block from its class's list. iHint is the class
// index if the caller already knows it, or noHint to have it recomputed
// from size.
func (a *Allocator) removeFree(b int64, size uint32, iHint int) {
	i := iHint
	if i == noHint {
		i = sizeClass(size)
	}

	n := a.freeNext(b)
	p := a.freePrev(b)
	if p != 0 {
		a.setFreeNext(p, n)
	} else {
		a.setHeadAddr(i, n)
	}
	if n != 0 {
		a.setFreePrev(n, p)
	}
}
