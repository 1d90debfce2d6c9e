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

package scp_test

import (
	"testing"
	"time"

	"github.com/xtaci/scpgo/scp"
	"github.com/xtaci/scpgo/scp/scptest"
)

type testAddr string

func (a testAddr) String() string { return string(a) }

func open(t *testing.T, opts scp.Options) (*scp.Conn, *scptest.Loop, *scptest.Socket) {
	t.Helper()
	loop := scptest.NewLoop(time.Unix(0, 0))
	conn, err := scp.Open(loop, testAddr("mock:1"), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return conn, loop, loop.LastSocket()
}

// echo builds a response that mirrors a request's header fields and
// payload back with the given return code, as scenario 1 expects of the
// mock remote.
func echo(req []byte, rc uint16, framing bool) []byte {
	u := scp.Unpack(req, framing, 3)
	resp := make([]byte, scp.WireSize(len(u.Payload), framing))
	n := scp.Pack(resp, framing, len(u.Payload), u.DestAddr, u.DestCPU, rc, u.Seq, u.NArgs, u.A1, u.A2, u.A3, u.Payload)
	return resp[:n]
}

func TestSingleEchoThreeArgs(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, _, sock := open(t, opts)
	sock.Reply = func(sent []byte) []byte { return echo(sent, 0, false) }

	var resp scp.SingleResponse
	var callErr error
	called := false
	conn.SendSingle(0x0101, 0, 0, 0x11121314, 0x21222324, 0x31323334, 3, 3, []byte("Hello, world!"), func(r scp.SingleResponse, err error) {
		called = true
		resp, callErr = r, err
	})

	if !called {
		t.Fatal("callback never invoked")
	}
	if callErr != nil {
		t.Fatalf("err = %v, want nil", callErr)
	}
	if resp.CmdRC != 0 || resp.A1 != 0x11121314 || resp.A2 != 0x21222324 || resp.A3 != 0x31323334 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.NArgsReceived != 3 {
		t.Fatalf("NArgsReceived = %d, want 3", resp.NArgsReceived)
	}
	if string(resp.Payload) != "Hello, world!" {
		t.Fatalf("payload = %q", resp.Payload)
	}
	if len(sock.Sent()) != 1 {
		t.Fatalf("sent %d packets, want 1", len(sock.Sent()))
	}
}

func TestSingleRecvFewerArgsThanRequested(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, _, sock := open(t, opts)
	// The remote only ever sends one reply arg back, regardless of how many
	// args the request carried; the payload immediately follows it.
	sock.Reply = func(sent []byte) []byte {
		u := scp.Unpack(sent, false, 3)
		resp := make([]byte, scp.WireSize(len(u.Payload), false))
		n := scp.Pack(resp, false, len(u.Payload), u.DestAddr, u.DestCPU, 0, u.Seq, 1, u.A1, 0, 0, u.Payload)
		return resp[:n]
	}

	var resp scp.SingleResponse
	var callErr error
	called := false
	// nArgs=3 on the request, nArgsRecv=1 on the reply: the two counts are
	// independent, and decoding must use nArgsRecv or the payload offset
	// comes out wrong.
	conn.SendSingle(0x0101, 0, 0, 0xAAAAAAAA, 0xBBBBBBBB, 0xCCCCCCCC, 3, 1, []byte("tail"), func(r scp.SingleResponse, err error) {
		called = true
		resp, callErr = r, err
	})

	if !called {
		t.Fatal("callback never invoked")
	}
	if callErr != nil {
		t.Fatalf("err = %v, want nil", callErr)
	}
	if resp.NArgsReceived != 1 {
		t.Fatalf("NArgsReceived = %d, want 1", resp.NArgsReceived)
	}
	if resp.A1 != 0xAAAAAAAA {
		t.Fatalf("A1 = %#x, want %#x", resp.A1, 0xAAAAAAAA)
	}
	if resp.A2 != 0 || resp.A3 != 0 {
		t.Fatalf("A2/A3 = %#x/%#x, want 0/0", resp.A2, resp.A3)
	}
	if string(resp.Payload) != "tail" {
		t.Fatalf("payload = %q, want %q (decoding with nArgsRecv must not swallow it into an arg slot)", resp.Payload, "tail")
	}
}

func TestSingleTimeout(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, loop, sock := open(t, opts)
	sock.OnSend = func(buf []byte) (error, bool) { return nil, false } // black hole

	var callErr error
	called := false
	conn.SendSingle(0x0101, 0, 0, 0, 0, 0, 0, 0, nil, func(r scp.SingleResponse, err error) {
		called = true
		callErr = err
	})

	loop.Advance(100 * time.Millisecond)
	loop.Advance(100 * time.Millisecond)
	loop.Advance(100 * time.Millisecond)

	if !called {
		t.Fatal("callback never invoked")
	}
	if callErr != scp.ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", callErr)
	}
	if len(sock.Sent()) != 3 {
		t.Fatalf("sent %d attempts, want 3", len(sock.Sent()))
	}
	first := scp.UnpackSeq(sock.Sent()[0], false)
	for _, pkt := range sock.Sent() {
		if scp.UnpackSeq(pkt, false) != first {
			t.Fatalf("attempts do not share one sequence number")
		}
	}
}

func TestRetransmitThenSuccess(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, loop, sock := open(t, opts)
	sock.OnSend = func(buf []byte) (error, bool) {
		return nil, len(sock.Sent()) == 3 // only the 3rd attempt gets answered
	}
	sock.Reply = func(sent []byte) []byte { return echo(sent, 0, false) }

	var callErr error
	called := false
	conn.SendSingle(0, 0, 0, 0, 0, 0, 0, 0, nil, func(r scp.SingleResponse, err error) {
		called = true
		callErr = err
	})

	loop.Advance(100 * time.Millisecond)
	if called {
		t.Fatal("callback fired too early")
	}
	loop.Advance(100 * time.Millisecond)

	if !called {
		t.Fatal("callback never invoked")
	}
	if callErr != nil {
		t.Fatalf("err = %v, want nil", callErr)
	}
	if len(sock.Sent()) != 3 {
		t.Fatalf("sent %d attempts, want 3", len(sock.Sent()))
	}
}

func TestNonObstruction(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, loop, sock := open(t, opts)

	sock.OnSend = func(buf []byte) (error, bool) {
		seq := scp.UnpackSeq(buf, false)
		if seq == 0 {
			return nil, false // the very first request is a black hole
		}
		return nil, true
	}
	sock.Reply = func(sent []byte) []byte {
		seq := scp.UnpackSeq(sent, false)
		if seq == 0 {
			return nil
		}
		return echo(sent, 0, false)
	}

	results := make([]error, 5)
	done := make([]bool, 5)
	for i := 0; i < 5; i++ {
		i := i
		conn.SendSingle(0, 0, 0, 0, 0, 0, 0, 0, nil, func(r scp.SingleResponse, err error) {
			done[i] = true
			results[i] = err
		})
		loop.Advance(50 * time.Millisecond) // submissions are spaced T/2 apart; the mock answers good requests at once
	}

	loop.Advance(300 * time.Millisecond)

	if !done[0] || results[0] != scp.ErrTimeout {
		t.Fatalf("request 0 = done=%v err=%v, want Timeout", done[0], results[0])
	}
	for i := 1; i < 5; i++ {
		if !done[i] || results[i] != nil {
			t.Fatalf("request %d = done=%v err=%v, want success", i, done[i], results[i])
		}
	}
}

func TestBulkReadSpanningMultipleFragments(t *testing.T) {
	const d = 32
	opts := scp.Options{D: d, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, _, sock := open(t, opts)

	const offset = 10
	length := 3*2*d - d/2 // 6 fragments at D=32
	mem := make([]byte, offset+length)
	for i := 0; i < length; i++ {
		mem[offset+i] = byte(i % 256)
	}

	sock.Reply = func(sent []byte) []byte {
		u := scp.Unpack(sent, false, 3)
		addr, reqLen := u.A1, u.A2
		data := mem[addr : addr+reqLen]
		resp := make([]byte, scp.WireSize(int(reqLen), false))
		n := scp.Pack(resp, false, int(reqLen), 0, 0, scp.StatusOK, u.Seq, 0, 0, 0, 0, data)
		return resp[:n]
	}

	var gotBuf []byte
	var gotErr error
	called := false
	conn.Read(0x0101, 0, offset, make([]byte, length), func(buf []byte, err error) {
		called = true
		gotBuf, gotErr = buf, err
	})

	if !called {
		t.Fatal("callback never invoked")
	}
	if gotErr != nil {
		t.Fatalf("err = %v, want nil", gotErr)
	}
	if string(gotBuf) != string(mem[offset:offset+length]) {
		t.Fatal("buffer contents do not match pre-filled memory")
	}
	if len(sock.Sent()) != 6 {
		t.Fatalf("sent %d fragments, want 6", len(sock.Sent()))
	}
}

func TestBulkReadErrorMidStream(t *testing.T) {
	const d = 32
	opts := scp.Options{D: d, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, _, sock := open(t, opts)

	length := 3*2*d - d/2
	const badRC = 0x07

	sock.Reply = func(sent []byte) []byte {
		u := scp.Unpack(sent, false, 3)
		n := len(sock.Sent())
		rc := uint16(scp.StatusOK)
		if n == 4 {
			rc = badRC
		}
		resp := make([]byte, scp.WireSize(int(u.A2), false))
		wn := scp.Pack(resp, false, int(u.A2), 0, 0, rc, u.Seq, 0, 0, 0, 0, make([]byte, u.A2))
		return resp[:wn]
	}

	var gotErr error
	calls := 0
	conn.Read(0x0101, 0, 10, make([]byte, length), func(buf []byte, err error) {
		calls++
		gotErr = err
	})

	if calls != 1 {
		t.Fatalf("callback invoked %d times, want 1", calls)
	}
	e, ok := gotErr.(*scp.Error)
	if !ok || e.Code != scp.CodeBadReturnCode {
		t.Fatalf("err = %v, want BadReturnCode", gotErr)
	}
	if e.RC != badRC {
		t.Fatalf("e.RC = %#x, want %#x", e.RC, badRC)
	}
}

func TestZeroLengthBulkCompletesSynchronously(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, _, sock := open(t, opts)

	called := false
	var gotErr error
	conn.Write(0, 0, 0, nil, func(buf []byte, err error) {
		called = true
		gotErr = err
	})

	if !called {
		t.Fatal("zero-length write must complete without waiting on the wire")
	}
	if gotErr != nil {
		t.Fatalf("err = %v, want nil", gotErr)
	}
	if len(sock.Sent()) != 0 {
		t.Fatal("zero-length write must not place anything on the wire")
	}
}

func TestBulkFragmentUnitRecomputedPerFragment(t *testing.T) {
	const d = 4
	opts := scp.Options{D: d, T: 100 * time.Millisecond, A: 3, N: 4}
	conn, _, sock := open(t, opts)
	sock.Reply = func(sent []byte) []byte {
		u := scp.Unpack(sent, false, 3)
		resp := make([]byte, scp.WireSize(0, false))
		n := scp.Pack(resp, false, 0, 0, 0, scp.StatusOK, u.Seq, 0, 0, 0, 0, nil)
		return resp[:n]
	}

	called := false
	var gotErr error
	// addr=0, len=6, D=4: two fragments, (addr=0,len=4) then (addr=4,len=2).
	// The first is 4-aligned on both ends (Word); the second is not
	// (Short), so a unit computed once from the whole transfer (addr=0,
	// len=6, itself Short) would mislabel the first fragment.
	conn.Write(0x0101, 0, 0, make([]byte, 6), func(buf []byte, err error) {
		called = true
		gotErr = err
	})

	if !called {
		t.Fatal("callback never invoked")
	}
	if gotErr != nil {
		t.Fatalf("err = %v, want nil", gotErr)
	}
	if len(sock.Sent()) != 2 {
		t.Fatalf("sent %d fragments, want 2", len(sock.Sent()))
	}

	first := scp.Unpack(sock.Sent()[0], false, 3)
	second := scp.Unpack(sock.Sent()[1], false, 3)
	if first.A3 != scp.UnitWord {
		t.Fatalf("fragment 0 unit = %d, want Word", first.A3)
	}
	if second.A3 != scp.UnitShort {
		t.Fatalf("fragment 1 unit = %d, want Short", second.A3)
	}
}

func TestCloseIsIdempotentAndFailsPending(t *testing.T) {
	opts := scp.Options{D: 32, T: 100 * time.Millisecond, A: 3, N: 2}
	conn, _, sock := open(t, opts)
	sock.OnSend = func(buf []byte) (error, bool) { return nil, false }

	var callErr error
	conn.SendSingle(0, 0, 0, 0, 0, 0, 0, 0, nil, func(r scp.SingleResponse, err error) {
		callErr = err
	})

	closes := 0
	conn.Close(func() { closes++ })
	conn.Close(func() { closes++ })

	if callErr != scp.ErrClosed {
		t.Fatalf("pending request err = %v, want ErrClosed", callErr)
	}
	if closes != 2 {
		t.Fatalf("close callback fired %d times, want 2", closes)
	}
}

func TestRWUnitBoundary(t *testing.T) {
	if got := scp.RWUnit(4, 8); got != scp.UnitWord {
		t.Fatalf("RWUnit(4,8) = %d, want Word", got)
	}
	if got := scp.RWUnit(2, 6); got != scp.UnitShort {
		t.Fatalf("RWUnit(2,6) = %d, want Short", got)
	}
	if got := scp.RWUnit(1, 1); got != scp.UnitByte {
		t.Fatalf("RWUnit(1,1) = %d, want Byte", got)
	}
}
