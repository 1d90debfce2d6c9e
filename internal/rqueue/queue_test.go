package rqueue

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		if err := q.Insert(i); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("len = %d, want 5", q.Len())
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Remove()
		if !ok || v != i {
			t.Fatalf("remove #%d = (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}
	if _, ok := q.Remove(); ok {
		t.Fatalf("remove on empty queue returned ok=true")
	}
}

func TestQueuePeekDoesNotConsume(t *testing.T) {
	q := New[string]()
	q.Insert("a")
	q.Insert("b")
	for i := 0; i < 3; i++ {
		v, ok := q.Peek()
		if !ok || v != "a" {
			t.Fatalf("peek #%d = (%q, %v)", i, v, ok)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("peek mutated length: %d", q.Len())
	}
}

// TestQueueGrowsAcrossManyBlocks exercises doubling block growth well past
// the first few blocks, and interleaves removes so that blocks drain and
// get recycled onto the free-list mid-stream.
func TestQueueGrowsAcrossManyBlocks(t *testing.T) {
	q := New[int]()
	const n = 10000
	for i := 0; i < n; i++ {
		if err := q.Insert(i); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if i%3 == 0 {
			if v, ok := q.Remove(); ok {
				_ = v
			}
		}
	}
	// drain whatever remains and check strict ascending order.
	last := -1
	for {
		v, ok := q.Remove()
		if !ok {
			break
		}
		if v <= last {
			t.Fatalf("fifo order violated: got %d after %d", v, last)
		}
		last = v
	}
}

func TestQueueFreeListReuse(t *testing.T) {
	q := New[int]()
	// fill and drain the first block a few times; capacity should not grow
	// without bound since drained blocks are recycled.
	for round := 0; round < 50; round++ {
		for i := 0; i < firstBlockCap; i++ {
			if err := q.Insert(i); err != nil {
				t.Fatalf("round %d insert %d: %v", round, i, err)
			}
		}
		for i := 0; i < firstBlockCap; i++ {
			if _, ok := q.Remove(); !ok {
				t.Fatalf("round %d remove %d: empty", round, i)
			}
		}
	}
	if q.cap > firstBlockCap*2 {
		t.Fatalf("capacity grew unbounded from repeated fill/drain: cap=%d", q.cap)
	}
}

func TestQueueFree(t *testing.T) {
	q := New[int]()
	q.Insert(1)
	q.Insert(2)
	q.Free()
	if q.Len() != 0 {
		t.Fatalf("len after Free = %d, want 0", q.Len())
	}
	if err := q.Insert(3); err != nil {
		t.Fatalf("insert after Free: %v", err)
	}
	v, ok := q.Remove()
	if !ok || v != 3 {
		t.Fatalf("remove after Free = (%d, %v)", v, ok)
	}
}
