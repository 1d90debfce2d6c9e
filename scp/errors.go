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

import "errors"

// Code is an engine-defined completion code. Positive values are defined by
// this package; a substrate transport error carries Code -1 and keeps the
// substrate's own error as its cause (see transportError).
type Code int

const (
	// CodeBadReturnCode: a bulk read/write received a non-OK SCP status.
	CodeBadReturnCode Code = 1
	// CodeTimeout: all configured attempts were exhausted with no response.
	CodeTimeout Code = 2
	// CodeClosed: the request was pending when the connection was torn down.
	CodeClosed Code = 3
)

// Error is the error type returned through every completion callback's
// error argument; a substrate failure is wrapped in one as its cause.
type Error struct {
	Code    Code
	RC      uint16 // the offending SCP status; meaningful only when Code == CodeBadReturnCode
	message string
	cause   error // set only for transport passthrough
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

var (
	// ErrBadReturnCode is a zero-RC stand-in for comparisons and ErrName
	// lookups; the actual failure delivered to a bulk callback is built by
	// badReturnCodeError so it can carry the offending status.
	ErrBadReturnCode = &Error{Code: CodeBadReturnCode, message: "scp: bad return code"}
	// ErrTimeout is delivered when a request's attempts are exhausted.
	ErrTimeout = &Error{Code: CodeTimeout, message: "scp: timeout"}
	// ErrClosed is delivered to every request still pending at teardown.
	ErrClosed = &Error{Code: CodeClosed, message: "scp: connection closed"}

	// errInvalidOptions is returned by Open for a malformed Options value.
	errInvalidOptions = errors.New("scp: invalid options")
)

// badReturnCodeError builds the error delivered to a bulk callback when a
// fragment's remote replied with a non-OK status, carrying that status in
// its RC field so the caller can read it back via errors.As.
func badReturnCodeError(rc uint16) *Error {
	return &Error{Code: CodeBadReturnCode, RC: rc, message: "scp: bad return code"}
}

// namedError lets a substrate attach a short symbolic name to its own
// errors, consulted by ErrName below.
type namedError interface {
	Name() string
}

// transportError wraps an error reported by the I/O substrate (a failed
// send, a failed bind) so it can still be compared against the engine's own
// sentinels via errors.Is/As without colliding with them.
func transportError(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: -1, message: "scp: transport error", cause: cause}
}

// Strerror renders a human-readable description of an error returned
// through a completion callback, including a nil error ("success").
func Strerror(err error) string {
	if err == nil {
		return "success"
	}
	return err.Error()
}

// ErrName returns a short symbolic name for an error returned through a
// completion callback. A substrate error wrapped by transportError is named
// by its cause's namedError Name when it has one, and by the cause's Error
// text otherwise. Any other error is named by its own namedError Name if it
// implements one, and "Unknown" otherwise.
func ErrName(err error) string {
	if err == nil {
		return "OK"
	}
	var e *Error
	if errors.As(err, &e) {
		if e.cause != nil {
			if ne, ok := e.cause.(namedError); ok {
				return ne.Name()
			}
			return e.cause.Error()
		}
		switch e.Code {
		case CodeBadReturnCode:
			return "BadReturnCode"
		case CodeTimeout:
			return "Timeout"
		case CodeClosed:
			return "Closed"
		}
	}
	if ne, ok := err.(namedError); ok {
		return ne.Name()
	}
	return "Unknown"
}
