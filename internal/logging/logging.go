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

// Package logging wraps the standard log.Logger with three levels
// (INFO/WARN/DEBUG), with fatih/color highlighting WARN lines.
package logging

import (
	"log"
	"os"

	"github.com/fatih/color"
)

// Logger is the leveled logger every component logs through.
type Logger struct {
	std   *log.Logger
	debug bool
}

// New returns a Logger writing to os.Stderr. debug enables Debugf
// output; it is driven by the ENDLESSSH_LOG environment variable.
func New() *Logger {
	return &Logger{
		std:   log.New(os.Stderr, "", log.LstdFlags),
		debug: os.Getenv("ENDLESSSH_LOG") == "debug",
	}
}

// Infof logs at INFO level.
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf("INFO "+format, args...)
}

// Warnf logs at WARN level, highlighted in red.
func (l *Logger) Warnf(format string, args ...any) {
	l.std.Print(color.RedString("WARN "+format, args...))
}

// Debugf logs at DEBUG level only when ENDLESSSH_LOG=debug.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.std.Printf("DEBUG "+format, args...)
}

// StdLogger exposes the underlying *log.Logger for components (like
// stats.Aggregator) that just need a plain Printf sink for the TOTALS
// line.
func (l *Logger) StdLogger() *log.Logger {
	return l.std
}
