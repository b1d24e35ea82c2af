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

// Package config holds the immutable, validated server configuration.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// BindFamily selects which address family the listener binds.
type BindFamily int

const (
	BindIPv4 BindFamily = iota
	BindIPv6
	BindDual
)

func (b BindFamily) String() string {
	switch b {
	case BindIPv4:
		return "IPv4"
	case BindIPv6:
		return "IPv6"
	case BindDual:
		return "Dual Stack"
	default:
		return "unknown"
	}
}

// Defaults for the CLI surface.
const (
	DefaultPort          = 2223
	DefaultDelay         = 10000 * time.Millisecond
	DefaultMaxLineLength = 32
	DefaultMaxClients    = 64
)

// Config is immutable once the server has started.
type Config struct {
	Port          int
	Delay         time.Duration
	MaxLineLength int
	MaxClients    int
	BindFamily    BindFamily
}

// New returns a Config populated with the documented defaults.
func New() Config {
	return Config{
		Port:          DefaultPort,
		Delay:         DefaultDelay,
		MaxLineLength: DefaultMaxLineLength,
		MaxClients:    DefaultMaxClients,
		BindFamily:    BindDual,
	}
}

// Validate enforces the bounds every field must satisfy: delay is
// strictly positive, MaxLineLength is in [3, 255], MaxClients >= 1, and
// Port is a valid TCP port number.
func (c Config) Validate() error {
	if c.Delay <= 0 {
		return errors.Errorf("delay must be strictly positive, got %s", c.Delay)
	}
	if c.MaxLineLength < 3 || c.MaxLineLength > 255 {
		return errors.Errorf("max-line-length must be in [3, 255], got %d", c.MaxLineLength)
	}
	if c.MaxClients < 1 {
		return errors.Errorf("max-clients must be >= 1, got %d", c.MaxClients)
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be in [1, 65535], got %d", c.Port)
	}
	return nil
}

// ListenAddress returns the address the listener should bind: v4 binds
// 0.0.0.0:port, v6 and dual both bind [::]:port (dual-stack is then
// steered by the explicit IPV6_V6ONLY sockopt applied in
// internal/socktune rather than left to the OS default).
func (c Config) ListenAddress() string {
	if c.BindFamily == BindIPv4 {
		return fmt.Sprintf("0.0.0.0:%d", c.Port)
	}
	return fmt.Sprintf("[::]:%d", c.Port)
}

// LogFields renders the configuration as one line per field, for
// INFO-level startup logging.
func (c Config) LogFields() []string {
	return []string{
		fmt.Sprintf("port: %d", c.Port),
		fmt.Sprintf("delay: %s", c.Delay),
		fmt.Sprintf("max-line-length: %d", c.MaxLineLength),
		fmt.Sprintf("max-clients: %d", c.MaxClients),
		fmt.Sprintf("bind-family: %s", c.BindFamily),
	}
}
