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

// Package admission bounds the number of concurrently-serviced clients
// with a non-blocking counting gate. It is backed by
// golang.org/x/sync/semaphore so acquisition never blocks the accept
// loop: TryAcquire either returns a Token immediately or reports
// failure, and the listener must discard the connection rather than
// queue for a permit.
package admission

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting semaphore parameterized by max clients, maintaining
// the invariant available + live == max clients at every quiescent
// moment. The semaphore enforces the bound; the atomic counter alongside
// it only mirrors the live count for logging, since semaphore.Weighted
// exposes no peek operation.
type Gate struct {
	sem  *semaphore.Weighted
	live int64
}

// New returns a Gate with maxClients permits available.
func New(maxClients int) *Gate {
	return &Gate{sem: semaphore.NewWeighted(int64(maxClients))}
}

// Token is the opaque handle returned by TryAcquire. Releasing it
// returns exactly one permit to the gate; Release is safe to call at
// most once per Token (enforced by the caller's single-owner discipline
// on the client record).
type Token struct {
	gate *Gate
}

// Release returns the permit. It is the caller's responsibility (the
// client record's single owner) to call this exactly once.
func (t Token) Release() {
	t.gate.sem.Release(1)
	atomic.AddInt64(&t.gate.live, -1)
}

// TryAcquire attempts to acquire one permit without blocking. ok is
// false when the gate is at capacity; the listener must then reject the
// connection outright rather than wait.
func (g *Gate) TryAcquire() (Token, bool) {
	if !g.sem.TryAcquire(1) {
		return Token{}, false
	}
	atomic.AddInt64(&g.live, 1)
	return Token{gate: g}, true
}

// Live returns the current number of acquired-but-not-released permits.
func (g *Gate) Live() int64 {
	return atomic.LoadInt64(&g.live)
}
