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

// Package stats holds the atomic counters a Conn updates as it runs, and an
// optional periodic CSV logger for them.
package stats

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Counters is a snapshot of a Conn's lifetime statistics. It is returned by
// value, never shared, so callers may hold onto one without racing the live
// connection.
type Counters struct {
	PacketsSent    uint64
	Retransmits    uint64
	Timeouts       uint64
	BulkCompleted  uint64
	BulkFailed     uint64
	BytesRead      uint64
	BytesWritten   uint64
}

// Header names Counters' fields in the order ToSlice emits them, for a CSV
// writer's first row.
func (Counters) Header() []string {
	return []string{
		"PacketsSent", "Retransmits", "Timeouts",
		"BulkCompleted", "BulkFailed", "BytesRead", "BytesWritten",
	}
}

// ToSlice renders the counters as strings, in Header's order.
func (c Counters) ToSlice() []string {
	return []string{
		fmt.Sprint(c.PacketsSent),
		fmt.Sprint(c.Retransmits),
		fmt.Sprint(c.Timeouts),
		fmt.Sprint(c.BulkCompleted),
		fmt.Sprint(c.BulkFailed),
		fmt.Sprint(c.BytesRead),
		fmt.Sprint(c.BytesWritten),
	}
}

// Counter is a set of atomically-updated counters. A Conn owns one; every
// field is touched only via the methods below, so it is safe to read a
// Snapshot from any goroutine even though the connection itself is
// single-threaded.
type Counter struct {
	packetsSent   uint64
	retransmits   uint64
	timeouts      uint64
	bulkCompleted uint64
	bulkFailed    uint64
	bytesRead     uint64
	bytesWritten  uint64
}

// AttemptSent records one packet placed on the wire; attempt is the 1-based
// attempt number for its slot, so the first attempt of a request counts as a
// send and every attempt after it additionally counts as a retransmit.
func (c *Counter) AttemptSent(attempt int) {
	atomic.AddUint64(&c.packetsSent, 1)
	if attempt > 1 {
		atomic.AddUint64(&c.retransmits, 1)
	}
}

// Timeout records one request failing with ErrTimeout.
func (c *Counter) Timeout() { atomic.AddUint64(&c.timeouts, 1) }

// BulkDone records one bulk transfer reaching its terminal callback, success
// or failure, and the bytes it moved on success.
func (c *Counter) BulkDone(read bool, n int, failed bool) {
	if failed {
		atomic.AddUint64(&c.bulkFailed, 1)
		return
	}
	atomic.AddUint64(&c.bulkCompleted, 1)
	if read {
		atomic.AddUint64(&c.bytesRead, uint64(n))
	} else {
		atomic.AddUint64(&c.bytesWritten, uint64(n))
	}
}

// Snapshot returns the current value of every counter.
func (c *Counter) Snapshot() Counters {
	return Counters{
		PacketsSent:   atomic.LoadUint64(&c.packetsSent),
		Retransmits:   atomic.LoadUint64(&c.retransmits),
		Timeouts:      atomic.LoadUint64(&c.timeouts),
		BulkCompleted: atomic.LoadUint64(&c.bulkCompleted),
		BulkFailed:    atomic.LoadUint64(&c.bulkFailed),
		BytesRead:     atomic.LoadUint64(&c.bytesRead),
		BytesWritten:  atomic.LoadUint64(&c.bytesWritten),
	}
}

// Logger periodically appends a Counter's snapshot to a CSV file, the same
// directory/timeformat-split ticker shape kcptun's SnmpLogger uses for
// kcp.DefaultSnmp, rebound to a single connection's counters.
func Logger(c *Counter, path string, interval time.Duration) {
	LoggerFunc(c.Snapshot, path, interval)
}

// LoggerFunc is Logger generalized over any snapshot source, for callers
// that only hold a Snapshot method (scp.Conn.Stats) rather than a *Counter.
func LoggerFunc(snapshot func() Counters, path string, interval time.Duration) {
	if path == "" || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		logdir, logfile := filepath.Split(path)
		f, err := os.OpenFile(logdir+time.Now().Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Println(err)
			return
		}
		w := csv.NewWriter(f)
		if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
			if err := w.Write(append([]string{"Unix"}, Counters{}.Header()...)); err != nil {
				log.Println(err)
			}
		}
		snap := snapshot()
		if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, snap.ToSlice()...)); err != nil {
			log.Println(err)
		}
		w.Flush()
		f.Close()
	}
}
