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

// handleDatagram is the Socket's receive callback. A datagram that cannot
// be matched to a live, fully-sent slot is simply dropped: duplicates,
// stale retransmission echoes and garbage off the wire are all
// indistinguishable from each other at this layer, and UDP gives no
// reliability guarantee to violate by ignoring them.
func (c *Conn) handleDatagram(buf []byte, n int, err error) {
	if err != nil || n <= 0 {
		return
	}
	data := buf[:n]
	minLen := headerOffset(c.opts.Framing) + headerBase
	if len(data) < minLen {
		return
	}

	seq := UnpackSeq(data, c.opts.Framing)
	i := c.slots.findBySeq(seq)
	if i < 0 {
		return
	}
	s := c.slots.at(i)
	if !s.active || s.cancelled || s.sendInProgress {
		return
	}

	if s.kind == kindSingle {
		c.handleSingleResponse(i, Unpack(data, c.opts.Framing, s.nArgsRecv))
		return
	}
	c.handleBulkResponse(i, Unpack(data, c.opts.Framing, 0))
}

func (c *Conn) handleSingleResponse(i int, u Unpacked) {
	s := c.slots.at(i)
	s.timer.Stop()
	done := s.singleDone
	s.active = false
	done(SingleResponse{
		CmdRC:         u.CmdRC,
		A1:            u.A1,
		A2:            u.A2,
		A3:            u.A3,
		NArgsReceived: u.NArgs,
		Payload:       append([]byte(nil), u.Payload...),
	}, nil)
	c.processQueue()
}

func (c *Conn) handleBulkResponse(i int, u Unpacked) {
	s := c.slots.at(i)
	s.timer.Stop()

	if u.CmdRC != StatusOK {
		c.failBulkTransfer(i, badReturnCodeError(u.CmdRC))
		c.processQueue()
		return
	}

	if s.kind == kindBulkRead {
		dst := s.bulk.userBuf[s.fragOffset : s.fragOffset+s.fragLen]
		copy(dst, u.Payload)
	}
	c.freeBulkSlot(i)
	c.processQueue()
}
