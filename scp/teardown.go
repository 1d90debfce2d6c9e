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

// failSlotExhausted is reached once a request's attempts (or a transport
// send failure on its last attempt) are exhausted. A single request fails
// outright; one fragment of a bulk transfer failing dooms the whole
// transfer, cancelling every live sibling fragment in one synchronous pass
// rather than waiting for each to individually time out.
func (c *Conn) failSlotExhausted(i int, err error) {
	s := c.slots.at(i)
	if s.kind == kindSingle {
		done := s.singleDone
		s.active = false
		done(SingleResponse{}, err)
		return
	}
	c.failBulkTransfer(i, err)
}

// failBulkTransfer marks the fragment at i's transfer as failed (the first
// error latches; later ones are discarded) and cancels every other live
// fragment bound to the same transfer, then retires i itself.
func (c *Conn) failBulkTransfer(i int, err error) {
	s := c.slots.at(i)
	b := s.bulk
	if !b.failed {
		b.failed = true
		b.err = err
	}
	c.cancelBulkSiblings(b, i)
	c.freeBulkSlot(i)
}

// cancelBulkSiblings stops every slot other than excluding that is bound to
// a fragment of b. A slot with no send in flight is retired immediately; a
// slot whose send is still in flight is only marked cancelled — it is
// retired once that send completes, in onSendComplete, since the engine
// must not reuse a slot while the substrate still owns its buffer.
func (c *Conn) cancelBulkSiblings(b *bulkState, excluding int) {
	c.slots.eachActive(func(i int) {
		if i == excluding {
			return
		}
		s := c.slots.at(i)
		if s.bulk != b {
			return
		}
		s.timer.Stop()
		if s.sendInProgress {
			s.cancelled = true
			return
		}
		c.freeBulkSlot(i)
	})
}

// freeBulkSlot retires slot i's fragment and, once every fragment of its
// transfer has been retired (completed, failed, or cancelled), fires the
// transfer's callback exactly once.
func (c *Conn) freeBulkSlot(i int) {
	s := c.slots.at(i)
	b := s.bulk
	s.active = false
	b.remaining--
	if b.remaining == 0 {
		var result []byte
		if b.err == nil && b.kind == kindBulkRead {
			result = b.userBuf
		}
		c.stats.BulkDone(b.kind == kindBulkRead, len(b.userBuf), b.err != nil)
		b.done(result, b.err)
	}
}

// finishCancel is reached from onSendComplete once a cancelled slot's
// in-flight send has finally completed; only now can the slot safely be
// retired, since the substrate no longer holds a reference to its buffer.
// A single request is only ever cancelled by teardown, so its callback
// receives ErrClosed here.
func (c *Conn) finishCancel(i int) {
	s := c.slots.at(i)
	if s.kind == kindSingle {
		done := s.singleDone
		s.active = false
		done(SingleResponse{}, ErrClosed)
	} else {
		c.freeBulkSlot(i)
	}
	c.processQueue()
	c.completeTeardownIfDone()
}

// beginTeardown closes the socket and every slot's timer exactly once,
// fails every request still sitting in the queue, and cancels every slot
// still active. completeTeardownIfDone is then checked after each of those
// asynchronous releases reports back, since a send already in flight on
// the substrate cannot be abandoned mid-flight.
func (c *Conn) beginTeardown() {
	c.failQueued()

	c.slots.eachActive(func(i int) {
		s := c.slots.at(i)
		s.timer.Stop()

		if s.kind == kindSingle {
			if s.sendInProgress {
				s.cancelled = true
				return
			}
			done := s.singleDone
			s.active = false
			done(SingleResponse{}, ErrClosed)
			return
		}

		b := s.bulk
		if !b.failed {
			b.failed = true
			b.err = ErrClosed
		}
		if s.sendInProgress {
			s.cancelled = true
			return
		}
		c.freeBulkSlot(i)
	})

	c.sock.Close(func() {
		c.loop.Post(func() {
			c.sockClosed = true
			c.completeTeardownIfDone()
		})
	})

	for i := 0; i < c.slots.len(); i++ {
		s := c.slots.at(i)
		s.timer.Close(func() {
			c.loop.Post(func() {
				c.timersClosed++
				c.completeTeardownIfDone()
			})
		})
	}

	c.completeTeardownIfDone()
}

// failQueued drains the pending queue, failing every request that never
// got a chance to bind to a slot.
func (c *Conn) failQueued() {
	for c.queue.Len() > 0 {
		r, _ := c.queue.Peek()
		c.queue.Remove()
		if r.kind == kindSingle {
			r.singleDone(SingleResponse{}, ErrClosed)
			continue
		}
		b := r.bulk
		if !b.failed {
			b.failed = true
			b.err = ErrClosed
		}
		b.remaining--
		if b.remaining == 0 {
			b.done(nil, ErrClosed)
		}
	}
}

// completeTeardownIfDone moves the connection to stateClosed, and invokes
// every registered CloseCallback — there may be more than one, if Close was
// called again while teardown was already underway — the first time the
// socket, every timer, and every in-flight send have all finished
// releasing their resources.
func (c *Conn) completeTeardownIfDone() {
	if c.state != stateClosing {
		return
	}
	if !c.sockClosed {
		return
	}
	if c.timersClosed < c.slots.len() {
		return
	}
	if c.slots.countSendInProgress() > 0 {
		return
	}
	c.state = stateClosed
	cbs := c.closeCallbacks
	c.closeCallbacks = nil
	for _, cb := range cbs {
		cb()
	}
}
