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

// Command scpcli is a thin driver that opens a connection to a real or mock
// SCP remote and runs one scripted request, reporting the connection's
// lifetime stats on exit. It is not part of the engine; it exists the way
// kcptun's client binary exists alongside kcp-go, to exercise the library
// from the outside.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/scpgo/internal/stats"
	"github.com/xtaci/scpgo/scp"
	"github.com/xtaci/scpgo/scp/udploop"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

// remoteAddr is the minimal net.Addr-shaped value scp.Open needs: anything
// with a String() method identifying the remote for logging and for
// udploop's net.ResolveUDPAddr call.
type remoteAddr string

func (a remoteAddr) String() string { return string(a) }

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "scpcli"
	myApp.Usage = "SCP-over-UDP client harness"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "remoteaddr, r",
			Value: "127.0.0.1:29900",
			Usage: "SCP remote address, eg: \"IP:port\"",
		},
		cli.IntFlag{
			Name:  "d",
			Value: 64,
			Usage: "maximum payload bytes per packet; bulk transfers fragment at this size",
		},
		cli.IntFlag{
			Name:  "timeoutms",
			Value: 200,
			Usage: "per-attempt response timeout, in milliseconds",
		},
		cli.IntFlag{
			Name:  "attempts",
			Value: 3,
			Usage: "maximum attempts per request before it fails with Timeout",
		},
		cli.IntFlag{
			Name:  "slots",
			Value: 8,
			Usage: "outstanding-slot table size",
		},
		cli.BoolFlag{
			Name:  "framing",
			Usage: "prepend a 2-byte zero framing field to every packet",
		},
		cli.StringFlag{
			Name:  "op",
			Value: "single",
			Usage: "single, read, or write",
		},
		cli.IntFlag{
			Name:  "destaddr",
			Usage: "destination address field for the request",
		},
		cli.IntFlag{
			Name:  "destcpu",
			Usage: "destination CPU field for the request",
		},
		cli.IntFlag{
			Name:  "cmd",
			Usage: "command code for op=single",
		},
		cli.IntFlag{
			Name:  "addr",
			Usage: "memory address for op=read/write",
		},
		cli.IntFlag{
			Name:  "length",
			Value: 128,
			Usage: "byte count for op=read",
		},
		cli.StringFlag{
			Name:  "payload",
			Usage: "payload bytes for op=single/write, as a literal string",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect connection stats to file, aware of Go's time.Format in the filename",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 10,
			Usage: "stats collection period, in seconds",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress the request/response trace line",
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
	config.RemoteAddr = c.String("remoteaddr")
	config.D = c.Int("d")
	config.TimeoutMs = c.Int("timeoutms")
	config.Attempts = c.Int("attempts")
	config.Slots = c.Int("slots")
	config.Framing = c.Bool("framing")
	config.Op = c.String("op")
	config.DestAddr = c.Int("destaddr")
	config.DestCPU = c.Int("destcpu")
	config.Cmd = c.Int("cmd")
	config.Addr = c.Int("addr")
	config.Length = c.Int("length")
	config.Payload = c.String("payload")
	config.Log = c.String("log")
	config.SnmpLog = c.String("snmplog")
	config.SnmpPeriod = c.Int("snmpperiod")
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

	log.Println("version:", VERSION)
	log.Println("remote address:", config.RemoteAddr)
	log.Println("d:", config.D, "timeoutms:", config.TimeoutMs, "attempts:", config.Attempts, "slots:", config.Slots)
	log.Println("framing:", config.Framing)
	log.Println("op:", config.Op)

	loop := udploop.New()
	defer loop.Close()

	opts := scp.Options{
		D:       config.D,
		T:       time.Duration(config.TimeoutMs) * time.Millisecond,
		A:       config.Attempts,
		N:       config.Slots,
		Framing: config.Framing,
	}

	conn, err := scp.Open(loop, remoteAddr(config.RemoteAddr), opts)
	if err != nil {
		return errors.Wrap(err, "scp.Open")
	}

	if config.SnmpLog != "" {
		go stats.LoggerFunc(conn.Stats, config.SnmpLog, time.Duration(config.SnmpPeriod)*time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.Attempts+1)*time.Duration(config.TimeoutMs)*time.Millisecond*4)
	defer cancel()

	switch config.Op {
	case "single":
		resp, err := conn.SendSingleSync(ctx, uint16(config.DestAddr), uint8(config.DestCPU), uint16(config.Cmd), 0, 0, 0, 0, 3, []byte(config.Payload))
		report(config.Quiet, "single", err, len(resp.Payload))
	case "read":
		buf, err := conn.ReadSync(ctx, uint16(config.DestAddr), uint8(config.DestCPU), uint32(config.Addr), make([]byte, config.Length))
		report(config.Quiet, "read", err, len(buf))
	case "write":
		err := conn.WriteSync(ctx, uint16(config.DestAddr), uint8(config.DestCPU), uint32(config.Addr), []byte(config.Payload))
		report(config.Quiet, "write", err, len(config.Payload))
	default:
		return errors.Errorf("unknown op %q", config.Op)
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer closeCancel()
	if err := conn.CloseSync(closeCtx); err != nil {
		log.Println("close:", err)
	}

	snap := conn.Stats()
	color.Cyan("sent=%d retransmits=%d timeouts=%d bulkOK=%d bulkFail=%d bytesRead=%d bytesWritten=%d",
		snap.PacketsSent, snap.Retransmits, snap.Timeouts, snap.BulkCompleted, snap.BulkFailed, snap.BytesRead, snap.BytesWritten)
	return nil
}

func report(quiet bool, op string, err error, n int) {
	if quiet {
		return
	}
	if err != nil {
		color.Red("%s: error: %s (%s)", op, scp.Strerror(err), scp.ErrName(err))
		return
	}
	fmt.Println(op, "ok,", n, "bytes")
}
