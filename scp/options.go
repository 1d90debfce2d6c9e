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

import (
	"time"

	"github.com/pkg/errors"
)

// Options configures a single Open call. All of D, T, A and N are mandatory
// sizing knobs with no sensible engine-chosen default, mirroring the
// distilled protocol's own parameterization.
type Options struct {
	// D is the maximum payload bytes carried in one packet; bulk transfers
	// are fragmented into chunks of at most D bytes.
	D int
	// T is the per-attempt response timeout.
	T time.Duration
	// A is the maximum number of attempts (including the first send)
	// before a request fails with ErrTimeout.
	A int
	// N is the outstanding-slot table size: the maximum number of
	// requests this connection will have in flight at once.
	N int
	// Framing, when true, prepends a 2-byte zero framing field ahead of
	// the SCP header on every packet sent and expects it on every packet
	// received (used when the substrate multiplexes SCP over a stream
	// rather than a datagram socket).
	Framing bool
}

func (o Options) validate() error {
	switch {
	case o.D < 0:
		return errors.Wrap(errInvalidOptions, "D must be >= 0")
	case o.T <= 0:
		return errors.Wrap(errInvalidOptions, "T must be > 0")
	case o.A < 1:
		return errors.Wrap(errInvalidOptions, "A must be >= 1")
	case o.N < 1:
		return errors.Wrap(errInvalidOptions, "N must be >= 1")
	}
	return nil
}
