package sflmalloc

// nextBlock returns the address of the block physically following b, given
// b's size. It does not distinguish the epilogue from a real block — the
// caller checks tagAlloc/size==0 where that matters: the epilogue is a
// synthetic zero-size allocated block that terminates forward traversal.
func nextBlock(b int64, size uint32) int64 { return b + int64(size) }

// leftBlock returns the address and size of the block physically preceding
// b, read via b's left neighbor's footer at b-WSIZE, whose size field gives
// the stride back to its header. ok is false when b is the first user
// block — the prologue sentinel guarantees there is never a real left
// neighbor to find there, so the footer read is skipped entirely rather
// than interpreted: the prologue's encoded size is a fixed sentinel value,
// not a physical block span, and is never consulted by navigation.
func (a *Allocator) leftBlock(b int64) (left int64, size uint32, ok bool) {
	if b == a.firstBlock {
		return 0, 0, false
	}

	w := a.mem.ReadWord(b - WSIZE)
	size = tagSize(w)
	return b - int64(size), size, true
}

// isEpilogue reports whether b is the current epilogue header address.
func (a *Allocator) isEpilogue(b int64) bool { return b == a.epilogue }
