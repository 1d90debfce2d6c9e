package scp

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	const d = 32
	buf := make([]byte, WireSize(d, false))
	payload := []byte("Hello, world!")
	n := Pack(buf, false, d, 0x0101, 0x03, 0x1234, 0xABCD, 3, 0x11121314, 0x21222324, 0x31323334, payload)
	buf = buf[:n]

	if got := UnpackSeq(buf, false); got != 0xABCD {
		t.Fatalf("UnpackSeq = %#x, want %#x", got, 0xABCD)
	}

	u := Unpack(buf, false, 3)
	if u.DestAddr != 0x0101 {
		t.Errorf("DestAddr = %#x, want %#x", u.DestAddr, 0x0101)
	}
	if u.DestCPU != 0x03 {
		t.Errorf("DestCPU = %#x, want %#x", u.DestCPU, 0x03)
	}
	if u.CmdRC != 0x1234 {
		t.Errorf("CmdRC = %#x, want %#x", u.CmdRC, 0x1234)
	}
	if u.Seq != 0xABCD {
		t.Errorf("Seq = %#x, want %#x", u.Seq, 0xABCD)
	}
	if u.NArgs != 3 || u.A1 != 0x11121314 || u.A2 != 0x21222324 || u.A3 != 0x31323334 {
		t.Errorf("args = %d %#x %#x %#x", u.NArgs, u.A1, u.A2, u.A3)
	}
	if string(u.Payload) != string(payload) {
		t.Errorf("payload = %q, want %q", u.Payload, payload)
	}
}

func TestPackTruncatesPayloadToD(t *testing.T) {
	const d = 4
	buf := make([]byte, WireSize(d, false))
	n := Pack(buf, false, d, 0, 0, 0, 0, 0, 0, 0, 0, []byte("abcdefgh"))
	u := Unpack(buf[:n], false, 0)
	if string(u.Payload) != "abcd" {
		t.Fatalf("payload = %q, want %q", u.Payload, "abcd")
	}
}

func TestUnpackClampsArgsToBufferLength(t *testing.T) {
	const d = 0
	buf := make([]byte, WireSize(d, false))
	n := Pack(buf, false, d, 0, 0, 0, 0, 3, 1, 2, 3, nil)
	// Chop off the last argument to simulate a short/garbled datagram.
	short := buf[:n-argSize]
	u := Unpack(short, false, 3)
	if u.NArgs != 2 {
		t.Fatalf("NArgs = %d, want 2", u.NArgs)
	}
	if u.A1 != 1 || u.A2 != 2 {
		t.Fatalf("args = %#x %#x, want 1 2", u.A1, u.A2)
	}
}

func TestPackUnpackWithFraming(t *testing.T) {
	const d = 8
	buf := make([]byte, WireSize(d, true))
	n := Pack(buf, true, d, 7, 1, 9, 42, 1, 100, 0, 0, []byte("xy"))
	buf = buf[:n]
	if buf[0] != 0 || buf[1] != 0 {
		t.Fatalf("framing prefix not zeroed: %v", buf[:2])
	}
	if got := UnpackSeq(buf, true); got != 42 {
		t.Fatalf("UnpackSeq = %d, want 42", got)
	}
	u := Unpack(buf, true, 1)
	if u.A1 != 100 || string(u.Payload) != "xy" {
		t.Fatalf("A1=%d Payload=%q", u.A1, u.Payload)
	}
}

func TestRWUnit(t *testing.T) {
	cases := []struct {
		addr, length uint32
		want         uint32
	}{
		{0, 0, UnitWord},
		{4, 8, UnitWord},
		{4, 6, UnitShort},
		{2, 4, UnitShort},
		{2, 6, UnitShort},
		{1, 4, UnitByte},
		{4, 1, UnitByte},
		{3, 3, UnitByte},
	}
	for _, c := range cases {
		if got := RWUnit(c.addr, c.length); got != c.want {
			t.Errorf("RWUnit(%d, %d) = %d, want %d", c.addr, c.length, got, c.want)
		}
	}
}
