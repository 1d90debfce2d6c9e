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

// packBulkFragment packs the fragment already bound to slot i — its
// address, offset and length were fixed at submission time — into the
// slot's wire buffer. The transfer unit is recomputed from this
// fragment's own address and length, not inherited from the transfer as
// a whole: a short last fragment can classify differently than the
// fragments before it.
func (c *Conn) packBulkFragment(i int) {
	s := c.slots.at(i)
	b := s.bulk

	cmd := CmdRead
	var payload []byte
	if s.kind == kindBulkWrite {
		cmd = CmdWrite
		payload = b.userBuf[s.fragOffset : s.fragOffset+s.fragLen]
	}

	n := WireSize(c.opts.D, c.opts.Framing)
	s.ensureCap(n)
	unit := RWUnit(s.fragAddr, s.fragLen)
	wn := Pack(s.buf, c.opts.Framing, c.opts.D, b.destAddr, b.destCPU, cmd, s.seq, 3, s.fragAddr, s.fragLen, unit, payload)
	s.wireLen = wn
}
