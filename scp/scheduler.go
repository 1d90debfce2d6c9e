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

// processQueue binds as many queued requests to free slots as it can, and
// starts the first send for each one bound. It is called after every event
// that might free a slot (a response, a timeout, a cancellation) or admit a
// new request, so a queued request never waits longer than it has to for an
// already-idle slot.
func (c *Conn) processQueue() {
	for c.state == stateOpen && c.queue.Len() > 0 {
		r, _ := c.queue.Peek()

		if r.kind != kindSingle && r.bulk.failed {
			// A sibling fragment already doomed this transfer; this one
			// was never going to be sent. Retire it without consuming a
			// slot and let the shared completion counter converge.
			c.queue.Remove()
			c.retireBulkFragment(r.bulk)
			continue
		}

		i := c.slots.findFree()
		if i < 0 {
			return
		}
		c.queue.Remove()
		c.bindAndSend(i, r)
	}
}

func (c *Conn) nextSeqNum() uint16 {
	seq := c.nextSeq
	c.nextSeq++
	return seq
}

// bindAndSend binds request r into slot i and starts transmission of its
// first (and, for a single request, only) packet.
func (c *Conn) bindAndSend(i int, r *request) {
	s := c.slots.at(i)
	s.reset()
	s.active = true
	s.seq = c.nextSeqNum()

	switch r.kind {
	case kindSingle:
		s.kind = kindSingle
		s.singleDone = r.singleDone
		s.nArgsRecv = r.nArgsRecv
		n := WireSize(c.opts.D, c.opts.Framing)
		s.ensureCap(n)
		wn := Pack(s.buf, c.opts.Framing, c.opts.D, r.destAddr, r.destCPU, r.cmd, s.seq, r.nArgs, r.a1, r.a2, r.a3, r.payload)
		s.wireLen = wn
		c.startSend(i)

	case kindBulkRead, kindBulkWrite:
		s.kind = r.kind
		s.bulk = r.bulk
		s.fragAddr = r.fragAddr
		s.fragOffset = r.fragOffset
		s.fragLen = r.fragLen
		c.packBulkFragment(i)
		c.startSend(i)
	}
}

// retireBulkFragment accounts for one fragment that will never be sent
// because its transfer was already cancelled, firing the shared callback
// once the last fragment — sent or not — has been accounted for.
func (c *Conn) retireBulkFragment(b *bulkState) {
	b.remaining--
	if b.remaining == 0 {
		c.stats.BulkDone(b.kind == kindBulkRead, len(b.userBuf), b.err != nil)
		b.done(nil, b.err)
	}
}
