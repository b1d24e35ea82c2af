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

// Package scheduler owns the set of live clients and drives the
// Scheduled -> Writing -> {Scheduled, Dropped} state machine: every
// accepted client gets its own goroutine, which is simpler to reason
// about than a single-task priority heap and has no head-of-line
// blocking when one write stalls. Each goroutine sleeps until its next
// send time, writes one line, and re-arms relative to now() rather than
// to the old deadline, so a temporarily-lagging scheduler converges
// instead of bursting.
package scheduler

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/xtaci/endlesssh-go/internal/client"
	"github.com/xtaci/endlesssh-go/internal/line"
	"github.com/xtaci/endlesssh-go/internal/stats"
)

// Scheduler dispatches one goroutine per accepted client.
type Scheduler struct {
	delay         time.Duration
	maxLineLength int
	events        chan<- stats.Event
}

// New returns a Scheduler that sends one line per delay per client, each
// up to maxLineLength bytes, reporting through events.
func New(delay time.Duration, maxLineLength int, events chan<- stats.Event) *Scheduler {
	return &Scheduler{delay: delay, maxLineLength: maxLineLength, events: events}
}

// Dispatch starts a dedicated goroutine running c's lifecycle until it
// is dropped (write failure) or ctx is canceled (graceful shutdown,
// which drops the client silently without counting it as lost).
func (s *Scheduler) Dispatch(ctx context.Context, c *client.Client) {
	go s.run(ctx, c)
}

func (s *Scheduler) run(ctx context.Context, c *client.Client) {
	defer c.Close()

	for {
		wait := time.Until(c.SendNext)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.events <- stats.Event{Kind: stats.ProcessedClient}

		ln := line.Generate(s.maxLineLength)

		// Bound the write by a deadline no longer than the tick interval
		// (capped at writeDeadlineCap) so a peer that never drains its
		// receive buffer can't wedge this goroutine past cancellation;
		// a deadline-exceeded write is treated as a would-block, not a
		// lost client.
		_ = c.Stream.SetWriteDeadline(time.Now().Add(writeDeadline(s.delay)))
		n, err := writeFull(c.Stream, ln)
		if err == nil && n > 0 {
			c.BytesSent += uint64(n)
			s.events <- stats.Event{Kind: stats.BytesSent, N: n}
		}

		if err != nil && !isWouldBlock(err) {
			c.Close()
			s.events <- stats.Event{Kind: stats.LostClient}
			return
		}

		// time_spent/stats.TimeSpent accrue every tick that isn't a hard
		// failure, including a 0-byte would-block tick: the client is
		// still being held open for delay, whether or not the write
		// actually went through.
		c.TimeSpent += s.delay
		s.events <- stats.Event{Kind: stats.TimeSpent, D: s.delay}

		// success, or a would-block tick counted as 0 bytes: re-arm
		// relative to now, not to the old deadline, so the schedule
		// converges to wall-clock spacing instead of catching up.
		c.SendNext = time.Now().Add(s.delay)
	}
}

// writeDeadlineCap bounds how long a single write may block a
// scheduler goroutine, so a peer with a permanently-full receive buffer
// cannot delay shutdown beyond this much past cancellation.
const writeDeadlineCap = 2 * time.Second

func writeDeadline(delay time.Duration) time.Duration {
	if delay < writeDeadlineCap {
		return delay
	}
	return writeDeadlineCap
}

// writeFull writes the entire line, the way a net.Conn.Write is
// documented to either write all of p or return a non-nil error.
func writeFull(w net.Conn, p []byte) (int, error) {
	return w.Write(p)
}

// isWouldBlock reports whether err represents a transient "would block"
// condition that should be retried on the next tick with 0 bytes
// credited, as opposed to a terminal error (reset, broken pipe, not
// connected) that drops the client.
func isWouldBlock(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
