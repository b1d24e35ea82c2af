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

// Package socktune applies the low-level socket options the tarpit relies
// on: a minimal receive buffer on every accepted connection (so the
// attacker pays to send while we pay nothing to not-read) and an
// explicit IPV6_V6ONLY toggle on the listening socket, so dual-stack
// behavior is never left to the OS default. Both options are set one
// layer below the net package, straight through golang.org/x/sys/unix,
// rather than through net.TCPConn.SetReadBuffer.
package socktune

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MinRecvBuffer is the value requested for SO_RCVBUF. The kernel clamps
// it upward to its own minimum (typically a few hundred bytes); we never
// read from the peer again, so nothing larger is needed.
const MinRecvBuffer = 1

// SetMinRecvBuffer shrinks conn's kernel receive buffer to the smallest
// value the OS will accept. On failure the caller (internal/listener)
// logs and drops that connection: accepting without this tuning defeats
// the tarpit's asymmetric-resource property.
func SetMinRecvBuffer(conn *net.TCPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "SyscallConn")
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, MinRecvBuffer)
	})
	if err != nil {
		return errors.Wrap(err, "Control")
	}
	if sockErr != nil {
		return errors.Wrap(sockErr, "setsockopt(SO_RCVBUF)")
	}
	return nil
}

// SetV6Only sets IPV6_V6ONLY on a yet-unbound IPv6 listening socket
// according to the requested bind family: true for v6-only, false to
// force dual-stack regardless of the OS's /proc/sys default. Callers
// invoke this from a net.ListenConfig.Control hook, before bind(2).
func SetV6Only(v6Only bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			val := 0
			if v6Only {
				val = 1
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, val)
		})
		if err != nil {
			return errors.Wrap(err, "Control")
		}
		if sockErr != nil {
			return errors.Wrap(sockErr, "setsockopt(IPV6_V6ONLY)")
		}
		return nil
	}
}
