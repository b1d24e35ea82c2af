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

// Package client holds the per-connection record the listener hands to
// the scheduler: one owner at a time, a single Close path that both
// closes the stream and returns the admission permit exactly once.
package client

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/xtaci/endlesssh-go/internal/admission"
)

// Client is one accepted connection: Addr is immutable, Stream is owned,
// SendNext and TimeSpent only move forward, BytesSent only grows, and
// the slot token is released exactly once by Close.
type Client struct {
	Addr      net.Addr
	Stream    net.Conn
	SendNext  time.Time
	TimeSpent time.Duration
	BytesSent uint64

	token     admission.Token
	closeOnce sync.Once
}

// New constructs a Client owning stream and tok, eligible to be sent its
// first line at sendNext (accept time + delay).
func New(stream net.Conn, addr net.Addr, sendNext time.Time, tok admission.Token) *Client {
	return &Client{
		Addr:     addr,
		Stream:   stream,
		SendNext: sendNext,
		token:    tok,
	}
}

// Close closes the stream and releases the admission permit. It is safe
// to call more than once: only the first call has any effect, which is
// the mechanism that makes "released exactly once" hold regardless of
// how many paths in the scheduler reach it (normal re-arm never calls
// Close; write failure and cancellation both do, and sync.Once makes
// either-or-both safe).
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		_ = c.Stream.Close()
		c.token.Release()
	})
}

// String renders a short diagnostic line with the client's address, time
// spent and bytes sent.
func (c *Client) String() string {
	return fmt.Sprintf("client{addr=%s time_spent=%s bytes_sent=%d}", c.Addr, c.TimeSpent, c.BytesSent)
}
