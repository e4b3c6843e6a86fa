package sflmalloc

import "testing"

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := New(NewArena())
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// rawFreeBlock carves out a free block directly at addr for testing the
// free-list primitives in isolation, bypassing Allocate/Release.
func (a *Allocator) rawFreeBlock(addr int64, size uint32, pfree bool) {
	a.writeHeader(addr, size, false, pfree)
	a.writeFooter(addr, size, false, pfree)
}

func TestInsertRemoveSingleton(t *testing.T) {
	a := newTestAllocator(t)
	if _, err := a.mem.Grow(ALIGNMENT * 4); err != nil {
		t.Fatal(err)
	}

	addr := a.epilogue
	a.rawFreeBlock(addr, 64, false)
	a.insertFree(addr, 64)

	i := sizeClass(64)
	if got := a.headAddr(i); got != addr {
		t.Fatalf("headAddr(%d) = %#x, want %#x", i, got, addr)
	}
	if n := a.freeNext(addr); n != 0 {
		t.Fatalf("freeNext(singleton) = %#x, want 0", n)
	}
	if p := a.freePrev(addr); p != 0 {
		t.Fatalf("freePrev(singleton) = %#x, want 0", p)
	}

	a.removeFree(addr, 64, noHint)
	if got := a.headAddr(i); got != 0 {
		t.Fatalf("headAddr(%d) after remove = %#x, want 0", i, got)
	}
}

func TestInsertOrderAndUnlinkMiddle(t *testing.T) {
	a := newTestAllocator(t)
	if _, err := a.mem.Grow(ALIGNMENT * 16); err != nil {
		t.Fatal(err)
	}

	base := a.epilogue
	addrs := []int64{base, base + 64, base + 128}
	for _, addr := range addrs {
		a.rawFreeBlock(addr, 64, false)
		a.insertFree(addr, 64)
	}

	i := sizeClass(64)
	// Insert pushes to the front, so the list is newest-first.
	want := []int64{addrs[2], addrs[1], addrs[0]}
	got := []int64{}
	for n := a.headAddr(i); n != 0; n = a.freeNext(n) {
		got = append(got, n)
	}
	if len(got) != len(want) {
		t.Fatalf("list length = %d, want %d", len(got), len(want))
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("list[%d] = %#x, want %#x", k, got[k], want[k])
		}
	}

	// Unlink the middle node (addrs[1]) and check the chain heals.
	a.removeFree(addrs[1], 64, noHint)
	got = got[:0]
	for n := a.headAddr(i); n != 0; n = a.freeNext(n) {
		got = append(got, n)
	}
	want = []int64{addrs[2], addrs[0]}
	if len(got) != len(want) {
		t.Fatalf("list length after unlink = %d, want %d", len(got), len(want))
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("list[%d] after unlink = %#x, want %#x", k, got[k], want[k])
		}
	}
	if p := a.freePrev(addrs[2]); p != 0 {
		t.Fatalf("freePrev(head) = %#x, want 0", p)
	}
	if n := a.freeNext(addrs[2]); n != addrs[0] {
		t.Fatalf("freeNext(head) = %#x, want %#x", n, addrs[0])
	}
}
