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

import "encoding/binary"

// Wire layout, little-endian, after an optional 2-byte zero framing prefix:
//
//	offset  size  field
//	0       1     flags (fixed 0x87 outbound)
//	1       1     tag (fixed 0xFF)
//	2       1     dest_port_cpu (dest cpu & 0x1F)
//	3       1     srce_port_cpu (fixed 0xFF)
//	4       2     dest_addr
//	6       2     srce_addr (fixed 0)
//	8       2     cmd_rc
//	10      2     seq_num
//	12      4*n   arg1..argN (present args only)
//	12+4*n  <=D   payload
const (
	headerBase  = 12
	maxArgs     = 3
	argSize     = 4
	framingSize = 2

	flagsOutbound   = 0x87
	tagOutbound     = 0xFF
	srcePortCPUFill = 0xFF
	cpuMask         = 0x1F
)

// WireSize returns the capacity a slot buffer needs to hold the largest
// packet this connection can ever pack: a full 3-argument header plus D
// bytes of payload, plus the framing prefix if enabled.
func WireSize(d int, framing bool) int {
	n := headerBase + maxArgs*argSize + d
	if framing {
		n += framingSize
	}
	return n
}

func headerOffset(framing bool) int {
	if framing {
		return framingSize
	}
	return 0
}

// Pack writes a request/response header plus up to min(len(payload), d)
// bytes of payload into buf, and returns the number of bytes written. buf
// must be at least WireSize(d, framing) bytes. Arguments beyond nArgs are
// omitted entirely — the payload begins immediately after the nArgs-th
// argument slot, per the wire format's variable header length.
func Pack(buf []byte, framing bool, d int, destAddr uint16, destCPU uint8, cmdOrRC uint16, seq uint16, nArgs int, a1, a2, a3 uint32, payload []byte) int {
	off := headerOffset(framing)
	if framing {
		buf[0] = 0
		buf[1] = 0
	}
	buf[off+0] = flagsOutbound
	buf[off+1] = tagOutbound
	buf[off+2] = destCPU & cpuMask
	buf[off+3] = srcePortCPUFill
	binary.LittleEndian.PutUint16(buf[off+4:], destAddr)
	binary.LittleEndian.PutUint16(buf[off+6:], 0)
	binary.LittleEndian.PutUint16(buf[off+8:], cmdOrRC)
	binary.LittleEndian.PutUint16(buf[off+10:], seq)

	pos := off + headerBase
	args := [maxArgs]uint32{a1, a2, a3}
	if nArgs > maxArgs {
		nArgs = maxArgs
	}
	for i := 0; i < nArgs; i++ {
		binary.LittleEndian.PutUint32(buf[pos:], args[i])
		pos += argSize
	}

	plen := len(payload)
	if plen > d {
		plen = d
	}
	pos += copy(buf[pos:pos+plen], payload[:plen])
	return pos
}

// UnpackSeq reads only the sequence number field, without validating or
// touching any other part of the packet. Callers must already know buf is
// at least long enough to contain the fixed header.
func UnpackSeq(buf []byte, framing bool) uint16 {
	off := headerOffset(framing)
	return binary.LittleEndian.Uint16(buf[off+10:])
}

// Unpacked is the result of decoding one datagram's header, arguments, and
// payload view (Payload aliases buf — it is not copied).
type Unpacked struct {
	DestAddr   uint16
	DestCPU    uint8
	CmdRC      uint16
	Seq        uint16
	NArgs      int
	A1, A2, A3 uint32
	Payload    []byte
}

// Unpack decodes buf, clamping nArgsRequested down to whatever the buffer's
// length actually permits (a short datagram yields fewer arguments and a
// shorter, or empty, payload view rather than an error).
func Unpack(buf []byte, framing bool, nArgsRequested int) Unpacked {
	var u Unpacked
	off := headerOffset(framing)
	if len(buf) < off+headerBase {
		return u
	}
	u.DestCPU = buf[off+2] & cpuMask
	u.DestAddr = binary.LittleEndian.Uint16(buf[off+4:])
	u.CmdRC = binary.LittleEndian.Uint16(buf[off+8:])
	u.Seq = binary.LittleEndian.Uint16(buf[off+10:])

	avail := len(buf) - (off + headerBase)
	nArgs := nArgsRequested
	if nArgs > maxArgs {
		nArgs = maxArgs
	}
	if byArgs := avail / argSize; nArgs > byArgs {
		nArgs = byArgs
	}
	if nArgs < 0 {
		nArgs = 0
	}

	pos := off + headerBase
	var args [maxArgs]uint32
	for i := 0; i < nArgs; i++ {
		args[i] = binary.LittleEndian.Uint32(buf[pos:])
		pos += argSize
	}
	u.NArgs = nArgs
	u.A1, u.A2, u.A3 = args[0], args[1], args[2]
	u.Payload = buf[pos:]
	return u
}

// Transfer unit sizes used as the third argument of bulk read/write packets.
const (
	UnitByte uint32 = 1
	UnitShort uint32 = 2
	UnitWord  uint32 = 4
)

// RWUnit picks the widest transfer unit that evenly divides both address
// and length: Word when both are 4-aligned, Short when both are 2-aligned,
// Byte otherwise.
func RWUnit(address, length uint32) uint32 {
	if address%4 == 0 && length%4 == 0 {
		return UnitWord
	}
	if address%2 == 0 && length%2 == 0 {
		return UnitShort
	}
	return UnitByte
}
