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
	"errors"
	"testing"
)

func TestErrNameAndStrerrorForDefinedCodes(t *testing.T) {
	cases := []struct {
		err      error
		wantName string
	}{
		{nil, "OK"},
		{ErrBadReturnCode, "BadReturnCode"},
		{ErrTimeout, "Timeout"},
		{ErrClosed, "Closed"},
	}
	for _, c := range cases {
		if got := ErrName(c.err); got != c.wantName {
			t.Errorf("ErrName(%v) = %q, want %q", c.err, got, c.wantName)
		}
		if c.err == nil {
			if got := Strerror(c.err); got != "success" {
				t.Errorf("Strerror(nil) = %q, want %q", got, "success")
			}
			continue
		}
		if got := Strerror(c.err); got != c.err.Error() {
			t.Errorf("Strerror(%v) = %q, want %q", c.err, got, c.err.Error())
		}
	}
}

// namedSubstrateError is a stand-in for a substrate-originated error that
// names itself, the way udploop's network errors might via net.Error.
type namedSubstrateError struct{ name string }

func (e *namedSubstrateError) Error() string { return "substrate: " + e.name }
func (e *namedSubstrateError) Name() string  { return e.name }

func TestErrNameDelegatesToOpaqueSubstrateError(t *testing.T) {
	cause := &namedSubstrateError{name: "ConnRefused"}
	wrapped := transportError(cause)

	if got := ErrName(wrapped); got != "ConnRefused" {
		t.Fatalf("ErrName(transportError) = %q, want %q", got, "ConnRefused")
	}
	if !errors.Is(wrapped, wrapped) {
		t.Fatalf("errors.Is(wrapped, wrapped) = false, want true")
	}

	plain := errors.New("boom")
	if got := ErrName(transportError(plain)); got != "boom" {
		t.Fatalf("ErrName(transportError(plain)) = %q, want %q", got, "boom")
	}
}

func TestErrNameUnknownFallsBackToUnknown(t *testing.T) {
	if got := ErrName(errors.New("something else")); got != "Unknown" {
		t.Fatalf("ErrName(unrecognized) = %q, want %q", got, "Unknown")
	}
}

func TestTransportErrorNilIsNil(t *testing.T) {
	if err := transportError(nil); err != nil {
		t.Fatalf("transportError(nil) = %v, want nil", err)
	}
}
