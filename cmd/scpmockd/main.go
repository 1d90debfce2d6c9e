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

// Command scpmockd is a standalone SCP remote: it answers CmdRead/CmdWrite
// against an in-memory byte array and echoes anything else, so scpcli (or
// any other SCP client) has something real to dial over UDP without needing
// actual target hardware. It talks raw UDP directly, the way a real remote
// would — it is the thing on the other end of a scp.Conn, not a user of one.
package main

import (
	"log"
	"math/rand"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/scpgo/scp"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "scpmockd"
	myApp.Usage = "SCP-over-UDP mock remote"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen, l",
			Value: ":29900",
			Usage: "UDP listen address",
		},
		cli.IntFlag{
			Name:  "memsize",
			Value: 1 << 16,
			Usage: "size in bytes of the backing memory CmdRead/CmdWrite address",
		},
		cli.IntFlag{
			Name:  "droprate",
			Value: 0,
			Usage: "percent (0-100) of incoming requests silently dropped, for exercising retry/timeout",
		},
		cli.BoolFlag{
			Name:  "framing",
			Usage: "expect and emit the 2-byte zero framing prefix",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress the per-datagram trace line",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command line",
		},
	}
	myApp.Action = run
	if err := myApp.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(c *cli.Context) error {
	config := Config{}
	config.Listen = c.String("listen")
	config.MemSize = c.Int("memsize")
	config.DropRate = c.Int("droprate")
	config.Framing = c.Bool("framing")
	config.Log = c.String("log")
	config.Quiet = c.Bool("quiet")

	if c.String("c") != "" {
		if err := parseJSONConfig(&config, c.String("c")); err != nil {
			return errors.Wrap(err, "parseJSONConfig")
		}
	}

	if config.Log != "" {
		f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		log.SetOutput(f)
	}

	addr, err := net.ResolveUDPAddr("udp", config.Listen)
	if err != nil {
		return errors.Wrap(err, "resolve listen address")
	}
	pc, err := net.ListenUDP("udp", addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	defer pc.Close()

	log.Println("version:", VERSION)
	log.Println("listening on:", pc.LocalAddr())
	log.Println("memsize:", config.MemSize, "droprate:", config.DropRate, "framing:", config.Framing)
	color.Green("scpmockd ready on %s", pc.LocalAddr())

	mem := make([]byte, config.MemSize)
	const maxDatagram = 65507
	buf := make([]byte, maxDatagram)
	resp := make([]byte, maxDatagram)

	for {
		n, raddr, err := pc.ReadFromUDP(buf)
		if err != nil {
			log.Println("read:", err)
			continue
		}
		if config.DropRate > 0 && rand.Intn(100) < config.DropRate {
			continue
		}

		wn, ok := handle(mem, buf[:n], resp, config.Framing)
		if !ok {
			continue
		}
		if _, err := pc.WriteToUDP(resp[:wn], raddr); err != nil {
			log.Println("write:", err)
			continue
		}
		if !config.Quiet {
			log.Println("served", n, "bytes from", raddr)
		}
	}
}

// handle decodes one inbound SCP request and builds its response in resp,
// returning the response length and whether a response should be sent at
// all (a datagram too short to be a valid header is simply ignored).
func handle(mem []byte, req []byte, resp []byte, framing bool) (int, bool) {
	// The fixed header (see scp/codec.go) is 12 bytes, plus a 2-byte
	// framing prefix when framing is enabled; anything shorter cannot be a
	// real SCP request.
	minLen := 12
	if framing {
		minLen += 2
	}
	if len(req) < minLen {
		return 0, false
	}
	u := scp.Unpack(req, framing, 3)

	switch u.CmdRC {
	case scp.CmdRead:
		addr, length := u.A1, u.A2
		if int(addr) > len(mem) || int(addr+length) > len(mem) {
			n := scp.Pack(resp, framing, 0, u.DestAddr, u.DestCPU, 1 /* out of range */, u.Seq, 0, 0, 0, 0, nil)
			return n, true
		}
		data := mem[addr : addr+length]
		n := scp.Pack(resp, framing, int(length), u.DestAddr, u.DestCPU, scp.StatusOK, u.Seq, 0, 0, 0, 0, data)
		return n, true

	case scp.CmdWrite:
		addr, length := u.A1, u.A2
		if int(addr) > len(mem) || int(addr+length) > len(mem) || int(length) > len(u.Payload) {
			n := scp.Pack(resp, framing, 0, u.DestAddr, u.DestCPU, 1, u.Seq, 0, 0, 0, 0, nil)
			return n, true
		}
		copy(mem[addr:addr+length], u.Payload[:length])
		n := scp.Pack(resp, framing, 0, u.DestAddr, u.DestCPU, scp.StatusOK, u.Seq, 0, 0, 0, 0, nil)
		return n, true

	default:
		// Anything else is treated as a single request/response exchange:
		// echo the arguments and payload back with rc=0.
		n := scp.Pack(resp, framing, len(u.Payload), u.DestAddr, u.DestCPU, scp.StatusOK, u.Seq, u.NArgs, u.A1, u.A2, u.A3, u.Payload)
		return n, true
	}
}
