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

// Package stats aggregates the server's running totals behind a single
// owning goroutine driven by a message channel, rather than a read/write
// lock around a shared struct: one goroutine owns the counters and every
// producer — the listener and every per-client scheduler task — posts
// events into a shared channel. This keeps the hot path lock-free and
// makes the LogTotals read trivially consistent.
package stats

import (
	"fmt"
	"log"
	"time"
)

// EventKind enumerates the totals the aggregator tracks.
type EventKind int

const (
	NewClient EventKind = iota
	ProcessedClient
	LostClient
	BytesSent
	TimeSpent
	LogTotals
)

// Event is one message posted to the aggregator. N carries the byte
// count for BytesSent; D carries the duration for TimeSpent; Done, when
// non-nil, is closed once LogTotals has been applied, letting the
// orchestrator wait for the final totals line during shutdown.
type Event struct {
	Kind EventKind
	N    int
	D    time.Duration
	Done chan<- struct{}
}

// Totals is a monotonically-growing snapshot of server activity.
type Totals struct {
	Connects         uint64
	ProcessedClients uint64
	LostClients      uint64
	BytesSent        uint64
	TimeSpent        time.Duration
}

// Aggregator owns the hot counters. Construct with New and run Run in
// its own goroutine; every other component only ever sends on Events().
type Aggregator struct {
	events chan Event
	totals Totals
	logger *log.Logger
}

// New returns an Aggregator with a generously-sized event channel (4096
// events) so producers rarely wait on stats. Sends are plain channel
// sends: a producer blocks while the buffer is full, and no event is
// dropped.
func New(logger *log.Logger) *Aggregator {
	return &Aggregator{
		events: make(chan Event, 4096),
		logger: logger,
	}
}

// Events returns the channel producers post to.
func (a *Aggregator) Events() chan<- Event {
	return a.events
}

// Snapshot returns the current totals. Only safe to call from the
// goroutine running Run, or after Run has returned.
func (a *Aggregator) Snapshot() Totals {
	return a.totals
}

// Run applies events in arrival order until cancellation is observed via
// a closed done channel, draining any events still in-flight up to
// drainTimeout before returning. It logs one final totals line on exit.
func (a *Aggregator) Run(done <-chan struct{}, drainTimeout time.Duration) {
	for {
		select {
		case ev := <-a.events:
			a.apply(ev)
		case <-done:
			a.drain(drainTimeout)
			a.logTotals()
			return
		}
	}
}

func (a *Aggregator) drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case ev := <-a.events:
			a.apply(ev)
		default:
			return
		}
	}
}

func (a *Aggregator) apply(ev Event) {
	switch ev.Kind {
	case NewClient:
		a.totals.Connects++
	case ProcessedClient:
		a.totals.ProcessedClients++
	case LostClient:
		a.totals.LostClients++
	case BytesSent:
		a.totals.BytesSent += uint64(ev.N)
	case TimeSpent:
		a.totals.TimeSpent += ev.D
	case LogTotals:
		a.logTotals()
	}
	if ev.Done != nil {
		close(ev.Done)
	}
}

func (a *Aggregator) logTotals() {
	a.logger.Printf("TOTALS connects=%d elapsed=%s bytes=%d",
		a.totals.Connects, FormatElapsed(a.totals.TimeSpent), a.totals.BytesSent)
}

// FormatElapsed renders a duration as "Nw Nd Nh Nm S.mmms", a
// human-readable weeks/days/hours/minutes/seconds.ms breakdown.
func FormatElapsed(d time.Duration) string {
	weeks := d / (7 * 24 * time.Hour)
	d -= weeks * 7 * 24 * time.Hour

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second
	d -= seconds * time.Second

	millis := d / time.Millisecond

	return fmt.Sprintf("%dw %dd %dh %dm %d.%03ds", weeks, days, hours, minutes, seconds, millis)
}
