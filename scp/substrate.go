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

import "time"

// Loop, Socket and Timer are the external collaborators this package treats
// as out of scope for the engine itself: UDP I/O, event scheduling, and the
// clock. Package scp/udploop implements Loop against a real net.PacketConn;
// package scp/scptest implements it in memory for deterministic tests.
//
// Every callback a Socket or Timer invokes MUST be delivered through
// Loop.Post, never called directly from another goroutine — Post is what
// gives the connection its single-threaded, lock-free semantics.
type Loop interface {
	// NewSocket opens a socket bound for communication with remote.
	NewSocket(remote interface{ String() string }) (Socket, error)
	// NewTimer returns a new, initially unarmed timer handle.
	NewTimer() Timer
	// Now returns the loop's notion of the current time.
	Now() time.Time
	// Post schedules fn to run on the loop's single worker goroutine. Safe
	// to call from any goroutine.
	Post(fn func())
}

// Socket is a single bound UDP endpoint to one remote address.
type Socket interface {
	// BindRecv starts the receive path. alloc is called to obtain a buffer
	// sized at least maxSize for one inbound datagram; recv is then called
	// with the number of bytes actually read (or an error). Both callbacks
	// must be delivered via Loop.Post.
	BindRecv(alloc func(maxSize int) []byte, recv func(buf []byte, n int, err error))
	// Send transmits buf asynchronously; completion reports the outcome.
	// The substrate owns buf until completion fires. Multiple sends may be
	// outstanding concurrently.
	Send(buf []byte, completion func(err error))
	// Close releases the socket; closed is invoked exactly once, via
	// Loop.Post, when the close has finished.
	Close(closed func())
}

// Timer is a one-shot, restartable timer handle owned by a single slot for
// the lifetime of the connection.
type Timer interface {
	// Start arms the timer to fire expiry once after d, via Loop.Post.
	// Starting an already-armed timer re-arms it.
	Start(d time.Duration, expiry func())
	// Stop disarms the timer; it is a no-op if not armed. A pending expiry
	// racing with Stop may still fire once; callers must tolerate that.
	Stop()
	// Close releases the timer; closed is invoked exactly once, via
	// Loop.Post, when the close has finished. Safe whether or not the
	// timer is currently armed.
	Close(closed func())
}
