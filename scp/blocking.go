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

import "context"

// SendSingleSync blocks the calling goroutine until SendSingle's callback
// fires or ctx is cancelled first. On ctx cancellation the request is not
// retracted — it still runs to completion on the connection's worker, its
// eventual result simply discarded — since the engine has no way to pull a
// send back once it may already be on the wire.
func (c *Conn) SendSingleSync(ctx context.Context, destAddr uint16, destCPU uint8, cmd uint16, a1, a2, a3 uint32, nArgs, nArgsRecv int, payload []byte) (SingleResponse, error) {
	type result struct {
		resp SingleResponse
		err  error
	}
	ch := make(chan result, 1)
	c.SendSingle(destAddr, destCPU, cmd, a1, a2, a3, nArgs, nArgsRecv, payload, func(resp SingleResponse, err error) {
		ch <- result{resp, err}
	})
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return SingleResponse{}, ctx.Err()
	}
}

// ReadSync blocks until Read's callback fires or ctx is cancelled first.
func (c *Conn) ReadSync(ctx context.Context, destAddr uint16, destCPU uint8, addr uint32, buf []byte) ([]byte, error) {
	type result struct {
		buf []byte
		err error
	}
	ch := make(chan result, 1)
	c.Read(destAddr, destCPU, addr, buf, func(buf []byte, err error) {
		ch <- result{buf, err}
	})
	select {
	case r := <-ch:
		return r.buf, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WriteSync blocks until Write's callback fires or ctx is cancelled first.
func (c *Conn) WriteSync(ctx context.Context, destAddr uint16, destCPU uint8, addr uint32, buf []byte) error {
	ch := make(chan error, 1)
	c.Write(destAddr, destCPU, addr, buf, func(_ []byte, err error) {
		ch <- err
	})
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseSync blocks until teardown has fully completed.
func (c *Conn) CloseSync(ctx context.Context) error {
	ch := make(chan struct{})
	c.Close(func() { close(ch) })
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
