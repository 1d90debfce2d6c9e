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

// startSend transmits whatever is currently packed into slot i's buffer and
// counts it as one attempt. The response timer is armed only once the send
// itself has completed, in onSendComplete — a response can never be racing
// against a send that hasn't finished yet.
func (c *Conn) startSend(i int) {
	s := c.slots.at(i)
	s.sendInProgress = true
	s.attempts++
	c.stats.AttemptSent(s.attempts)
	seq := s.seq
	buf := s.buf[:s.wireLen]
	c.sock.Send(buf, func(err error) { c.onSendComplete(i, seq, err) })
}

// onSendComplete is the Socket.Send completion for slot i's most recent
// attempt, guarded against the slot having since been rebound (seq no
// longer matches) or freed.
func (c *Conn) onSendComplete(i int, seq uint16, err error) {
	s := c.slots.at(i)
	if !s.active || s.seq != seq {
		return
	}
	s.sendInProgress = false

	if s.cancelled {
		c.finishCancel(i)
		return
	}
	if err != nil {
		c.onAttemptFailed(i, transportError(err))
		return
	}
	s.timer.Start(c.opts.T, func() { c.onTimerExpiry(i, seq) })
}

// onTimerExpiry fires when no response arrived within T of the most recent
// attempt. It either retries or, once attempts are exhausted, fails the
// request with ErrTimeout.
func (c *Conn) onTimerExpiry(i int, seq uint16) {
	s := c.slots.at(i)
	if !s.active || s.seq != seq || s.cancelled {
		return
	}
	c.onAttemptFailed(i, ErrTimeout)
}

// onAttemptFailed is reached either from a timer expiry or from a
// transport-level send failure; both retry identically until attempts are
// exhausted, at which point the request fails with whichever error
// triggered the final attempt.
func (c *Conn) onAttemptFailed(i int, err error) {
	s := c.slots.at(i)
	if s.attempts >= c.opts.A {
		if err == ErrTimeout {
			c.stats.Timeout()
		}
		c.failSlotExhausted(i, err)
		c.processQueue()
		return
	}
	c.startSend(i)
}
