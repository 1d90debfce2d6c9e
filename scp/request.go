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

// SingleCallback is invoked exactly once for a single request: on success
// with the decoded response, on failure with err set and a zero response.
type SingleCallback func(resp SingleResponse, err error)

// SingleResponse carries the decoded fields of a single request's reply.
type SingleResponse struct {
	CmdRC         uint16
	A1, A2, A3    uint32
	NArgsReceived int // how many of A1..A3 the remote actually sent
	Payload       []byte
}

// BulkCallback is invoked exactly once for a bulk request, after every
// fragment has either completed or the transfer has failed and every live
// fragment has been cancelled. For a Read, buf holds the bytes actually
// received on success; for a Write it is nil.
type BulkCallback func(buf []byte, err error)

// request is the item posted onto the pending queue; processQueue consumes
// it once a slot is available. A bulk transfer is decomposed into one
// request per fragment at submission time, all sharing a single *bulkState,
// so up to N fragments of the same transfer can be outstanding at once.
type request struct {
	kind kind

	// single
	destAddr   uint16
	destCPU    uint8
	cmd        uint16
	nArgs      int // send-args: how many of a1..a3 to place on the wire
	nArgsRecv  int // receive-args: how many reply args to decode (0-3)
	a1, a2, a3 uint32
	payload    []byte
	singleDone SingleCallback

	// bulk fragment
	bulk       *bulkState
	fragAddr   uint32
	fragOffset uint32
	fragLen    uint32
}
