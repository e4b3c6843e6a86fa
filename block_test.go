package sflmalloc

import "testing"

func TestPackTagRoundTrip(t *testing.T) {
	cases := []struct {
		size         uint32
		alloc, pfree bool
	}{
		{16, true, false},
		{16, false, true},
		{4112, true, true},
		{0, true, false}, // epilogue shape
	}

	for _, c := range cases {
		w := packTag(c.size, c.alloc, c.pfree)
		if got := tagSize(w); got != c.size {
			t.Errorf("tagSize(%#x) = %d, want %d", w, got, c.size)
		}
		if got := tagAlloc(w); got != c.alloc {
			t.Errorf("tagAlloc(%#x) = %v, want %v", w, got, c.alloc)
		}
		if got := tagPfree(w); got != c.pfree {
			t.Errorf("tagPfree(%#x) = %v, want %v", w, got, c.pfree)
		}
	}
}

func TestHeaderFooterAndSetPfree(t *testing.T) {
	mem := NewArena()
	a, err := New(mem)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Grow(ALIGNMENT * 4); err != nil {
		t.Fatal(err)
	}

	b := a.firstBlock
	a.writeHeader(b, 64, true, false)
	a.writeFooter(b, 64, true, false) // footer region is payload for allocated blocks, written here only to test the codec

	if got := a.blockSize(b); got != 64 {
		t.Fatalf("blockSize = %d, want 64", got)
	}
	if !a.blockAlloc(b) {
		t.Fatal("blockAlloc = false, want true")
	}
	if a.blockPfree(b) {
		t.Fatal("blockPfree = true, want false")
	}

	a.setPfree(b, true)
	if !a.blockPfree(b) {
		t.Fatal("setPfree(true) did not stick")
	}
	if got := a.blockSize(b); got != 64 {
		t.Fatalf("setPfree corrupted size: got %d, want 64", got)
	}
	if !a.blockAlloc(b) {
		t.Fatal("setPfree corrupted alloc bit")
	}
}
