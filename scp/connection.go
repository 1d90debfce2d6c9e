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

// Package scp implements the asynchronous transport engine for a single
// connection of a lightweight request/response protocol layered on
// unreliable datagram delivery: a request queue, an outstanding-slot table,
// a sequence-number response matcher, a per-slot retry/timeout state
// machine, a bulk read/write fragmenter, and a cancellation/teardown
// protocol. It does not know the meaning of any SCP command beyond the two
// (CmdRead, CmdWrite) it must itself place on the wire to drive a bulk
// transfer; everything else is an opaque command code supplied by the
// caller of SendSingle.
package scp

import (
	"github.com/xtaci/scpgo/internal/rqueue"
	"github.com/xtaci/scpgo/internal/stats"
)

// CloseCallback is invoked exactly once when Close's teardown has fully
// completed: the socket and every slot timer have released their
// resources, and any requests still pending have been failed with
// ErrClosed.
type CloseCallback func()

type connState uint8

const (
	stateOpen connState = iota
	stateClosing
	stateClosed
)

// Conn is one asynchronous connection: everything routes through a single
// worker goroutine owned by loop, so no field below is ever touched by two
// goroutines at once and no lock is needed.
type Conn struct {
	opts   Options
	loop   Loop
	sock   Socket
	remote interface{ String() string }

	slots *slotTable
	queue *rqueue.Queue[*request]

	nextSeq uint16

	state          connState
	closeCallbacks []CloseCallback
	sockClosed     bool
	timersClosed   int

	stats stats.Counter
}

// Stats returns a snapshot of this connection's lifetime counters: packets
// sent, retransmits, timeouts, completed/failed bulk transfers, and bytes
// moved. Safe to call from any goroutine.
func (c *Conn) Stats() stats.Counters { return c.stats.Snapshot() }

// Open establishes a connection to remote over loop, validating opts and
// binding a socket before returning. If any step of initialization fails,
// Open tears down whatever it already allocated before returning the error
// — no partially-initialized Conn, and no leaked socket, is ever returned.
func Open(loop Loop, remote interface{ String() string }, opts Options) (*Conn, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &Conn{
		opts:   opts,
		loop:   loop,
		remote: remote,
		slots:  newSlotTable(opts.N),
		queue:  rqueue.New[*request](),
	}

	sock, err := loop.NewSocket(remote)
	if err != nil {
		return nil, transportError(err)
	}
	c.sock = sock

	for i := 0; i < opts.N; i++ {
		c.slots.at(i).timer = loop.NewTimer()
	}

	sock.BindRecv(
		func(maxSize int) []byte { return make([]byte, maxSize) },
		func(buf []byte, n int, err error) { c.handleDatagram(buf, n, err) },
	)

	return c, nil
}

// SendSingle submits a one-shot request/response exchange. nArgs is how many
// of a1..a3 are placed on the outgoing request (0-3); nArgsRecv is how many
// reply args the remote is expected to send back and therefore how many
// this connection decodes from the response before the payload begins —
// these are independent counts, since a command's request and response
// shapes need not match. done is invoked exactly once, from the
// connection's worker, once the response arrives, the attempts are
// exhausted, or the connection is closed first.
func (c *Conn) SendSingle(destAddr uint16, destCPU uint8, cmd uint16, a1, a2, a3 uint32, nArgs, nArgsRecv int, payload []byte, done SingleCallback) {
	c.loop.Post(func() {
		if c.state != stateOpen {
			done(SingleResponse{}, ErrClosed)
			return
		}
		r := &request{
			kind:       kindSingle,
			destAddr:   destAddr,
			destCPU:    destCPU,
			cmd:        cmd,
			nArgs:      nArgs,
			nArgsRecv:  nArgsRecv,
			a1:         a1,
			a2:         a2,
			a3:         a3,
			payload:    payload,
			singleDone: done,
		}
		if err := c.queue.Insert(r); err != nil {
			done(SingleResponse{}, &Error{Code: CodeClosed, message: "scp: request queue exhausted"})
			return
		}
		c.processQueue()
	})
}

// Read fetches len(buf) bytes starting at addr on destAddr/destCPU into buf,
// fragmenting the transfer into chunks of at most opts.D bytes. done
// receives the same buf back on success, filled in place, the way Write's
// caller gets back the same buffer it supplied.
func (c *Conn) Read(destAddr uint16, destCPU uint8, addr uint32, buf []byte, done BulkCallback) {
	c.submitBulk(kindBulkRead, destAddr, destCPU, addr, buf, done)
}

// Write stores buf starting at addr on destAddr/destCPU, fragmenting the
// transfer into chunks of at most opts.D bytes.
func (c *Conn) Write(destAddr uint16, destCPU uint8, addr uint32, buf []byte, done BulkCallback) {
	c.submitBulk(kindBulkWrite, destAddr, destCPU, addr, buf, done)
}

func (c *Conn) submitBulk(k kind, destAddr uint16, destCPU uint8, addr uint32, buf []byte, done BulkCallback) {
	c.loop.Post(func() {
		if c.state != stateOpen {
			done(nil, ErrClosed)
			return
		}
		if len(buf) == 0 {
			// An empty bulk transfer trivially succeeds with no fragments
			// ever placed on the wire.
			c.stats.BulkDone(k == kindBulkRead, 0, false)
			done(buf, nil)
			return
		}

		d := uint32(c.opts.D)
		if d == 0 {
			d = 1
		}
		b := &bulkState{
			kind:     k,
			done:     done,
			userBuf:  buf,
			destAddr: destAddr,
			destCPU:  destCPU,
		}

		var offset uint32
		for offset < uint32(len(buf)) {
			chunk := d
			if rem := uint32(len(buf)) - offset; rem < chunk {
				chunk = rem
			}
			r := &request{
				kind:       k,
				bulk:       b,
				fragAddr:   addr + offset,
				fragOffset: offset,
				fragLen:    chunk,
			}
			if err := c.queue.Insert(r); err != nil {
				// Out of memory growing the queue: the transfer is marked
				// failed, so processQueue retires the fragments already
				// queued without ever binding them, and the transfer
				// converges on a single callback carrying a CodeClosed
				// error.
				b.failed = true
				b.err = &Error{Code: CodeClosed, message: "scp: request queue exhausted"}
				break
			}
			b.total++
			offset += chunk
		}
		b.remaining = b.total
		if b.total == 0 {
			c.stats.BulkDone(k == kindBulkRead, 0, true)
			done(nil, b.err)
			return
		}
		c.processQueue()
	})
}

// Close begins teardown: the socket and every armed slot timer are closed,
// and every request still in the queue or bound to a slot is failed with
// ErrClosed. closed is invoked once teardown has completed for this
// connection. Close is safe to call more than once — teardown itself only
// ever runs once — and a closed invoked after teardown has already
// finished simply fires right away.
func (c *Conn) Close(closed CloseCallback) {
	c.loop.Post(func() {
		if c.state == stateClosed {
			closed()
			return
		}
		c.closeCallbacks = append(c.closeCallbacks, closed)
		if c.state == stateClosing {
			return
		}
		c.state = stateClosing
		c.beginTeardown()
	})
}
