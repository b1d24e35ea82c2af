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

// Package listener implements the admission controller: bind once,
// accept forever, tune each socket, gate admission, and hand the
// resulting client off to the scheduler.
package listener

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xtaci/endlesssh-go/internal/admission"
	"github.com/xtaci/endlesssh-go/internal/client"
	"github.com/xtaci/endlesssh-go/internal/config"
	"github.com/xtaci/endlesssh-go/internal/socktune"
	"github.com/xtaci/endlesssh-go/internal/stats"
)

// Logger is the minimal surface internal/logging.Logger satisfies.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Listener accepts connections for one bound address.
type Listener struct {
	cfg    config.Config
	gate   *admission.Gate
	events chan<- stats.Event
	log    Logger
}

// New returns a Listener that gates admissions through gate and reports
// one NewClient (connect) event per accepted connection on events.
func New(cfg config.Config, gate *admission.Gate, events chan<- stats.Event, log Logger) *Listener {
	return &Listener{cfg: cfg, gate: gate, events: events, log: log}
}

// Run binds the configured address and accepts connections until ctx is
// canceled, sending each admitted client to handoff. Handoff must have
// capacity >= MaxClients. Run returns nil on graceful cancellation and a
// non-nil error only on a fatal condition (bind failure, or an
// unclassified accept error).
func (l *Listener) Run(ctx context.Context, handoff chan<- *client.Client) error {
	lc := net.ListenConfig{}
	if l.cfg.BindFamily != config.BindIPv4 {
		lc.Control = socktune.SetV6Only(l.cfg.BindFamily == config.BindIPv6)
	}

	network := "tcp"
	switch l.cfg.BindFamily {
	case config.BindIPv4:
		network = "tcp4"
	case config.BindIPv6:
		network = "tcp6"
	}

	ln, err := lc.Listen(ctx, network, l.cfg.ListenAddress())
	if err != nil {
		return errors.Wrapf(err, "bind %s", l.cfg.ListenAddress())
	}
	defer ln.Close()

	l.log.Infof("listening on %s (%s)", ln.Addr(), l.cfg.BindFamily)

	// Unblock Accept promptly on cancellation: every suspension point in
	// the server races cancellation with biased priority.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if transient, errno := classifyAcceptError(err); transient {
				l.log.Debugf("accept: transient error %v (errno=%v)", err, errno)
				continue
			}
			return errors.Wrap(err, "accept")
		}

		l.events <- stats.Event{Kind: stats.NewClient}

		tcpConn, ok := conn.(*net.TCPConn)
		if !ok {
			l.log.Warnf("unexpected connection type %T from %s, dropping", conn, conn.RemoteAddr())
			conn.Close()
			continue
		}
		if err := socktune.SetMinRecvBuffer(tcpConn); err != nil {
			l.log.Warnf("set min recv buffer for %s: %v; dropping connection", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		tok, ok := l.gate.TryAcquire()
		if !ok {
			l.log.Warnf("queue full, rejecting %s", conn.RemoteAddr())
			conn.Close()
			continue
		}

		c := client.New(conn, conn.RemoteAddr(), time.Now().Add(l.cfg.Delay), tok)

		select {
		case handoff <- c:
			l.log.Infof("accepted %s (live=%d/%d)", conn.RemoteAddr(), l.gate.Live(), l.cfg.MaxClients)
		case <-ctx.Done():
			c.Close()
			return nil
		}
	}
}

// classifyAcceptError reports whether err is one of the transient accept
// errnos: EMFILE, ENFILE, ECONNABORTED, EINTR, ENOBUFS, ENOMEM, EPROTO.
// Anything else is fatal.
func classifyAcceptError(err error) (transient bool, errno syscall.Errno) {
	var se syscall.Errno
	if !errors.As(err, &se) {
		return false, 0
	}
	switch se {
	case unix.EMFILE, unix.ENFILE, unix.ECONNABORTED, unix.EINTR, unix.ENOBUFS, unix.ENOMEM, unix.EPROTO:
		return true, se
	default:
		return false, se
	}
}
