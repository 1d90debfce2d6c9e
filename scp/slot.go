// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package scp

// kind distinguishes what a bound slot is carrying, for the dispatcher and
// the fragmenter.
type kind uint8

const (
	kindSingle kind = iota
	kindBulkRead
	kindBulkWrite
)

// bulkState is shared by every fragment of one Read or Write call. It is
// never touched outside the connection's worker goroutine, so its fields
// need no synchronization of their own; its identity (a pointer) is what
// the slot table and the pending queue use to recognize sibling fragments.
type bulkState struct {
	kind     kind
	done     BulkCallback
	userBuf  []byte // destination (Read) or source (Write)
	destAddr uint16
	destCPU  uint8

	total     int // fragment count decided at submission time
	remaining int // fragments neither completed nor cancelled yet
	failed    bool
	err       error // first error seen, latched
}

// slot is one row of the outstanding-request table: everything the retry
// state machine and the dispatcher need to drive one in-flight request
// through to completion, independent of whatever request object it is
// currently bound to.
type slot struct {
	active         bool // bound to a live request
	cancelled      bool // cancelled but a send is still in flight
	sendInProgress bool // a Socket.Send for this slot has not yet completed
	kind           kind
	seq            uint16
	attempts       int

	buf     []byte // reused across rebinds, grown on demand
	wireLen int    // valid bytes in buf for the in-flight send

	timer Timer // owned for the lifetime of the connection, never recreated

	// single-request completion
	singleDone SingleCallback
	nArgsRecv  int // receive-args negotiated for this request, 0-3

	// bulk-fragment bookkeeping; bulk ties sibling fragments together.
	bulk       *bulkState
	fragAddr   uint32
	fragOffset uint32 // this fragment's offset into bulk.userBuf
	fragLen    uint32
}

// reset clears everything about slot except the fields the connection keeps
// stable across its whole lifetime: the Timer handle and the byte buffer
// (which is only ever grown, never reallocated down).
func (s *slot) reset() {
	timer, buf := s.timer, s.buf
	*s = slot{timer: timer, buf: buf}
}

// ensureCap grows buf, if necessary, to hold at least n bytes, preserving no
// existing content (callers always Pack a fresh header before sending).
func (s *slot) ensureCap(n int) {
	if cap(s.buf) >= n {
		s.buf = s.buf[:n]
		return
	}
	s.buf = make([]byte, n)
}

// slotTable is the fixed-size outstanding-request table: membership and
// lookup are both linear scans, which is the cheaper choice at the small N
// (typically well under 16) this engine is sized for, and needs no locking
// because it is only ever touched from the connection's single worker
// goroutine.
type slotTable struct {
	slots []slot
}

func newSlotTable(n int) *slotTable {
	t := &slotTable{slots: make([]slot, n)}
	return t
}

func (t *slotTable) len() int { return len(t.slots) }

func (t *slotTable) at(i int) *slot { return &t.slots[i] }

// findFree returns the index of an inactive slot, or -1 if the table is
// full.
func (t *slotTable) findFree() int {
	for i := range t.slots {
		if !t.slots[i].active {
			return i
		}
	}
	return -1
}

// findBySeq returns the index of the active slot bound to seq, or -1.
func (t *slotTable) findBySeq(seq uint16) int {
	for i := range t.slots {
		if t.slots[i].active && t.slots[i].seq == seq {
			return i
		}
	}
	return -1
}

// countSendInProgress returns the number of slots with a send still
// in-flight; teardown cannot complete while this is nonzero.
func (t *slotTable) countSendInProgress() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].sendInProgress {
			n++
		}
	}
	return n
}

// eachActive calls fn for the index of every currently active slot.
func (t *slotTable) eachActive(fn func(i int)) {
	for i := range t.slots {
		if t.slots[i].active {
			fn(i)
		}
	}
}

// hasLiveSibling reports whether any slot other than excluding is still
// bound to a fragment of the same bulk transfer.
func (t *slotTable) hasLiveSibling(b *bulkState, excluding int) bool {
	for i := range t.slots {
		if i == excluding {
			continue
		}
		if t.slots[i].active && t.slots[i].bulk == b {
			return true
		}
	}
	return false
}
