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

// Package tarpit is the top-level orchestrator: it wires the admission
// gate, the listener-to-scheduler handoff channel, and the stats channel
// together, installs signal watchers, and performs bounded graceful
// shutdown.
package tarpit

import (
	"context"
	"time"

	"github.com/xtaci/endlesssh-go/internal/admission"
	"github.com/xtaci/endlesssh-go/internal/client"
	"github.com/xtaci/endlesssh-go/internal/config"
	"github.com/xtaci/endlesssh-go/internal/listener"
	"github.com/xtaci/endlesssh-go/internal/logging"
	"github.com/xtaci/endlesssh-go/internal/scheduler"
	"github.com/xtaci/endlesssh-go/internal/signals"
	"github.com/xtaci/endlesssh-go/internal/stats"
)

// ShutdownBudget is the hard upper bound on graceful shutdown.
const ShutdownBudget = 10 * time.Second

// Run wires every component together and blocks until shutdown
// completes. It returns the final stats totals for callers that want to
// report them (e.g. the CLI, or a test harness), and a non-nil error
// when the listener exited for a fatal reason (an unrecoverable bind
// failure or an unclassified accept error) rather than graceful
// cancellation — callers must turn that into a non-zero exit status.
func Run(ctx context.Context, cfg config.Config, log *logging.Logger) (stats.Totals, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, line := range cfg.LogFields() {
		log.Infof("%s", line)
	}

	gate := admission.New(cfg.MaxClients)
	statsAgg := stats.New(log.StdLogger())
	handoff := make(chan *client.Client, cfg.MaxClients)

	statsRunDone := make(chan struct{})
	go func() {
		defer close(statsRunDone)
		statsAgg.Run(ctx.Done(), ShutdownBudget)
	}()

	signals.Watch(ctx, cancel, func() {
		statsAgg.Events() <- stats.Event{Kind: stats.LogTotals}
	})

	sched := scheduler.New(cfg.Delay, cfg.MaxLineLength, statsAgg.Events())

	lst := listener.New(cfg, gate, statsAgg.Events(), log)

	listenerDone := make(chan error, 1)
	go func() {
		listenerDone <- lst.Run(ctx, handoff)
	}()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		for {
			select {
			case c, ok := <-handoff:
				if !ok {
					return
				}
				sched.Dispatch(ctx, c)
			case <-ctx.Done():
				return
			}
		}
	}()

	var fatalErr error
	select {
	case err := <-listenerDone:
		if err != nil {
			log.Warnf("listener exited: %v", err)
			fatalErr = err
		}
		cancel()
	case <-ctx.Done():
		// Wait for the listener as well, so it cannot hand off a client
		// after drainHandoff below has run.
		select {
		case <-listenerDone:
		case <-time.After(ShutdownBudget):
			log.Warnf("listener did not exit within shutdown budget")
		}
	}

	select {
	case <-dispatchDone:
	case <-time.After(ShutdownBudget):
		log.Warnf("dispatch loop did not exit within shutdown budget")
	}

	// Anything still sitting in the handoff buffer never reached a
	// scheduler goroutine; close it directly so its permit is still
	// released exactly once.
	drainHandoff(handoff)

	select {
	case <-statsRunDone:
	case <-time.After(ShutdownBudget):
		log.Warnf("stats aggregator did not exit within shutdown budget")
	}

	return statsAgg.Snapshot(), fatalErr
}

// drainHandoff closes every client still buffered in handoff. Safe to
// call once the listener and dispatch loop have both exited, since
// nothing else can be sending on or receiving from the channel anymore.
func drainHandoff(handoff chan *client.Client) {
	for {
		select {
		case c := <-handoff:
			c.Close()
		default:
			return
		}
	}
}
