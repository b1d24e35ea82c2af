//go:build linux || darwin || freebsd

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

// Package signals installs the process-wide signal watchers:
// SIGINT/SIGTERM trip cancellation, SIGUSR1 requests a stats dump, and
// SIGPIPE is ignored so writes fail with an error instead of killing the
// process.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Watch spawns a goroutine that cancels cancel on SIGINT/SIGTERM and
// invokes onUSR1 (typically requesting a LogTotals stats event) on
// SIGUSR1. It ignores SIGPIPE process-wide. The goroutine exits once ctx
// is done.
func Watch(ctx context.Context, cancel context.CancelFunc, onUSR1 func()) {
	signal.Ignore(syscall.SIGPIPE)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					cancel()
					return
				case syscall.SIGUSR1:
					onUSR1()
				}
			}
		}
	}()
}
