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

package main

import (
	"context"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/xtaci/endlesssh-go/internal/config"
	"github.com/xtaci/endlesssh-go/internal/logging"
	"github.com/xtaci/endlesssh-go/internal/tarpit"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "endlesssh"
	myApp.Usage = "SSH tarpit: drip-feeds illegal banner lines to waste an attacker's connection"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "4",
			Usage: "bind IPv4 only",
		},
		cli.BoolFlag{
			Name:  "6",
			Usage: "bind IPv6 only",
		},
		cli.IntFlag{
			Name:  "delay, d",
			Value: int(config.DefaultDelay / time.Millisecond),
			Usage: "inter-line delay per client, in milliseconds",
		},
		cli.IntFlag{
			Name:  "max-line-length, l",
			Value: config.DefaultMaxLineLength,
			Usage: "upper bound on generated line length (3-255)",
		},
		cli.IntFlag{
			Name:  "max-clients, m",
			Value: config.DefaultMaxClients,
			Usage: "admission gate capacity",
		},
		cli.IntFlag{
			Name:  "port, p",
			Value: config.DefaultPort,
			Usage: "listening TCP port",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	only4 := c.Bool("4")
	only6 := c.Bool("6")
	if only4 && only6 {
		return cli.NewExitError("-4 and -6 are mutually exclusive", 2)
	}

	cfg := config.New()
	cfg.Port = c.Int("port")
	cfg.Delay = time.Duration(c.Int("delay")) * time.Millisecond
	cfg.MaxLineLength = c.Int("max-line-length")
	cfg.MaxClients = c.Int("max-clients")
	switch {
	case only4:
		cfg.BindFamily = config.BindIPv4
	case only6:
		cfg.BindFamily = config.BindIPv6
	default:
		cfg.BindFamily = config.BindDual
	}

	if err := cfg.Validate(); err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	log := logging.New()
	if _, err := tarpit.Run(context.Background(), cfg, log); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}
