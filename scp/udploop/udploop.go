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

// Package udploop is the production scp.Loop: one worker goroutine per Loop
// draining a channel of posted closures, a net.PacketConn per Socket with
// its own background read-pump goroutine, and time.AfterFunc-backed
// Timers. It is the only place in this module that touches the network.
package udploop

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/xtaci/scpgo/scp"
)

var (
	_ scp.Loop   = (*Loop)(nil)
	_ scp.Socket = (*Socket)(nil)
	_ scp.Timer  = (*Timer)(nil)
)

// Loop is a single worker goroutine that every Socket and Timer callback is
// marshalled onto via Post, giving scp.Conn its single-threaded semantics
// without any locking of its own.
type Loop struct {
	work chan func()
	quit chan struct{}
}

// New starts a Loop's worker goroutine. Run Close when the loop is no
// longer needed to stop it.
func New() *Loop {
	l := &Loop{
		work: make(chan func(), 256),
		quit: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.work:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Post schedules fn to run on the worker goroutine. Safe from any
// goroutine, including the worker goroutine itself.
func (l *Loop) Post(fn func()) {
	select {
	case l.work <- fn:
	case <-l.quit:
	}
}

// Now returns the wall clock; the production loop has no virtual time.
func (l *Loop) Now() time.Time { return time.Now() }

// Close stops the worker goroutine. Callbacks still queued when it stops,
// or posted afterwards, are not run.
func (l *Loop) Close() { close(l.quit) }

// NewSocket dials a UDP socket to remote and returns a Socket bound to it.
func (l *Loop) NewSocket(remote interface{ String() string }) (scp.Socket, error) {
	raddr, err := net.ResolveUDPAddr("udp", remote.String())
	if err != nil {
		return nil, errors.Wrap(err, "udploop: resolve remote address")
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrap(err, "udploop: dial")
	}
	return &Socket{loop: l, conn: conn}, nil
}

// NewTimer returns an initially unarmed Timer.
func (l *Loop) NewTimer() scp.Timer {
	return &Timer{loop: l}
}

// Socket is one dialed UDP connection, read by a single background
// goroutine that posts every received datagram (or read error) back onto
// the owning Loop.
type Socket struct {
	loop *Loop
	conn *net.UDPConn

	stopRead chan struct{}
}

// BindRecv starts the background read-pump goroutine. It is called exactly
// once, immediately after the Socket is created.
func (s *Socket) BindRecv(alloc func(maxSize int) []byte, recv func(buf []byte, n int, err error)) {
	s.stopRead = make(chan struct{})
	go s.readPump(alloc, recv)
}

func (s *Socket) readPump(alloc func(maxSize int) []byte, recv func(buf []byte, n int, err error)) {
	const maxDatagram = 65507
	for {
		buf := alloc(maxDatagram)
		n, err := s.conn.Read(buf)
		select {
		case <-s.stopRead:
			return
		default:
		}
		if err != nil {
			s.loop.Post(func() { recv(nil, 0, err) })
			if isPermanent(err) {
				return
			}
			continue
		}
		s.loop.Post(func() { recv(buf, n, nil) })
	}
}

func isPermanent(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return !ne.Timeout()
	}
	return true
}

// Send writes buf to the remote address in its own goroutine — UDP writes
// can block under backpressure on some platforms — and posts the outcome
// back onto the Loop.
func (s *Socket) Send(buf []byte, completion func(err error)) {
	go func() {
		_, err := s.conn.Write(buf)
		s.loop.Post(func() { completion(err) })
	}()
}

// Close closes the underlying connection and stops the read pump.
func (s *Socket) Close(closed func()) {
	if s.stopRead != nil {
		close(s.stopRead)
	}
	s.conn.Close()
	s.loop.Post(closed)
}

// Timer wraps time.AfterFunc, restartable via Stop+Start any number of
// times over its lifetime.
type Timer struct {
	loop *Loop
	t    *time.Timer
}

// Start arms the timer, replacing any previous pending firing.
func (t *Timer) Start(d time.Duration, expiry func()) {
	if t.t != nil {
		t.t.Stop()
	}
	loop := t.loop
	t.t = time.AfterFunc(d, func() { loop.Post(expiry) })
}

// Stop disarms the timer if it is currently armed.
func (t *Timer) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
}

// Close stops the timer and reports completion. time.Timer needs no
// further release of resources, so this simply defers to Stop.
func (t *Timer) Close(closed func()) {
	t.Stop()
	t.loop.Post(closed)
}
