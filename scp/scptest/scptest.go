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

// Package scptest is an in-memory scp.Loop for deterministic tests: a
// virtual clock advanced explicitly by the test rather than real time, and
// a Socket whose sends and deliveries are entirely under the test's
// control. Nothing in this package touches a real network.
package scptest

import (
	"time"

	"github.com/xtaci/scpgo/scp"
)

var (
	_ scp.Loop   = (*Loop)(nil)
	_ scp.Socket = (*Socket)(nil)
	_ scp.Timer  = (*Timer)(nil)
)

// Loop is a single-threaded, single-goroutine test harness: Post runs its
// argument immediately, and Advance is the only thing that moves time
// forward and fires due timers.
type Loop struct {
	now     time.Time
	sockets []*Socket
	timers  []*Timer

	// FailNewSocket, when set, is returned by the next call to NewSocket
	// instead of creating a socket.
	FailNewSocket error
}

// NewLoop returns a Loop whose virtual clock starts at start.
func NewLoop(start time.Time) *Loop {
	return &Loop{now: start}
}

// Post runs fn immediately. There is only ever one goroutine driving a
// test, so there is nothing to marshal onto.
func (l *Loop) Post(fn func()) { fn() }

// Now returns the loop's virtual clock.
func (l *Loop) Now() time.Time { return l.now }

// LastSocket returns the most recently created Socket, for tests that open
// exactly one connection per Loop and need to reach into it to set OnSend
// or Peer, or to inspect Sent().
func (l *Loop) LastSocket() *Socket {
	if len(l.sockets) == 0 {
		return nil
	}
	return l.sockets[len(l.sockets)-1]
}

// NewSocket returns a new in-memory Socket, unless FailNewSocket is set.
func (l *Loop) NewSocket(remote interface{ String() string }) (scp.Socket, error) {
	if l.FailNewSocket != nil {
		err := l.FailNewSocket
		l.FailNewSocket = nil
		return nil, err
	}
	s := &Socket{loop: l, remote: remote.String()}
	l.sockets = append(l.sockets, s)
	return s, nil
}

// NewTimer returns a new, initially unarmed Timer tracked by this loop's
// Advance.
func (l *Loop) NewTimer() scp.Timer {
	t := &Timer{loop: l}
	l.timers = append(l.timers, t)
	return t
}

// Advance moves the virtual clock forward by d, firing every timer whose
// deadline falls at or before the new time, earliest deadline first (ties
// broken by the order the timers were created). Firing a timer may itself arm new timers with
// earlier deadlines than still-pending ones (a retry re-arming for a
// shorter remainder never happens here, but a nested Start always could in
// principle), so the scan restarts after each firing.
func (l *Loop) Advance(d time.Duration) {
	target := l.now.Add(d)
	for {
		idx := -1
		for i, t := range l.timers {
			if !t.armed || t.deadline.After(target) {
				continue
			}
			if idx == -1 || t.deadline.Before(l.timers[idx].deadline) {
				idx = i
			}
		}
		if idx == -1 {
			break
		}
		t := l.timers[idx]
		t.armed = false
		l.now = t.deadline
		expiry := t.expiry
		l.Post(expiry)
	}
	l.now = target
}

// Socket is an in-memory UDP stand-in. Sent datagrams are recorded for
// assertions; inbound datagrams only ever arrive via Deliver, called
// explicitly by the test (directly, or by wiring two Sockets together).
type Socket struct {
	loop   *Loop
	remote string
	closed bool

	sent [][]byte

	alloc func(maxSize int) []byte
	recv  func(buf []byte, n int, err error)

	// OnSend, when set, is consulted for every Send and may return a
	// non-nil error to simulate a transport failure, or drop the
	// datagram entirely by returning (nil, false).
	OnSend func(buf []byte) (err error, deliver bool)

	// Reply, when set, is called after a successfully-delivered Send's
	// completion has already been reported, and any non-nil return value
	// is fed back in via Deliver. Building the mock's response this way,
	// rather than calling Deliver directly from OnSend, keeps a response
	// from ever reaching the connection before its own send has been
	// marked complete — an ordering no real network could produce.
	Reply func(sent []byte) []byte

	// Peer, when set, receives every successfully-sent datagram directly,
	// letting two scp.Conn values talk to each other in one test process.
	Peer *Socket
}

// Sent returns every datagram handed to Send so far, in order.
func (s *Socket) Sent() [][]byte { return s.sent }

// BindRecv records the callbacks invoked by Deliver.
func (s *Socket) BindRecv(alloc func(maxSize int) []byte, recv func(buf []byte, n int, err error)) {
	s.alloc = alloc
	s.recv = recv
}

// Send records buf and reports completion, honoring OnSend, Reply and Peer
// if set.
func (s *Socket) Send(buf []byte, completion func(err error)) {
	cp := append([]byte(nil), buf...)
	s.sent = append(s.sent, cp)

	deliver := true
	var err error
	if s.OnSend != nil {
		err, deliver = s.OnSend(cp)
	}
	s.loop.Post(func() { completion(err) })
	if !deliver || err != nil {
		return
	}
	if s.Peer != nil {
		s.Peer.Deliver(cp)
	}
	if s.Reply != nil {
		if resp := s.Reply(cp); resp != nil {
			s.Deliver(resp)
		}
	}
}

// Deliver simulates an inbound datagram arriving on this socket.
func (s *Socket) Deliver(data []byte) {
	if s.recv == nil {
		return
	}
	buf := s.alloc(len(data))
	n := copy(buf, data)
	s.loop.Post(func() { s.recv(buf, n, nil) })
}

// DeliverError simulates a receive-path error, such as a closed socket
// being read from.
func (s *Socket) DeliverError(err error) {
	if s.recv == nil {
		return
	}
	s.loop.Post(func() { s.recv(nil, 0, err) })
}

// Close marks the socket closed and reports completion.
func (s *Socket) Close(closed func()) {
	s.closed = true
	s.loop.Post(closed)
}

// Timer is a virtual-time timer driven entirely by its owning Loop's
// Advance.
type Timer struct {
	loop     *Loop
	armed    bool
	deadline time.Time
	expiry   func()
}

// Start arms the timer to fire after d of virtual time.
func (t *Timer) Start(d time.Duration, expiry func()) {
	t.armed = true
	t.deadline = t.loop.now.Add(d)
	t.expiry = expiry
}

// Stop disarms the timer.
func (t *Timer) Stop() { t.armed = false }

// Close disarms the timer and reports completion.
func (t *Timer) Close(closed func()) {
	t.armed = false
	t.loop.Post(closed)
}
