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

// Package line generates bounded-length random banner lines for the
// tarpit: uniform random length, printable ASCII body, CRLF terminator,
// and an SSH- prefix guard so a generated line is never mistaken for a
// real protocol banner.
package line

import (
	"math/rand"
)

const (
	minLen = 3

	// printable ASCII range used for the line body.
	asciiLo = 32
	asciiHi = 126

	sshPrefix = "SSH-"
)

// Generate returns one random line of length in [3, maxLen], ending in
// CR LF, with a body drawn from printable ASCII, and the SSH- protocol
// prefix defeated by substitution. maxLen must be in [3, 255]; callers
// (internal/config.Config.Validate) are responsible for that bound.
func Generate(maxLen int) []byte {
	return generate(maxLen, rand.Intn)
}

// intn matches math/rand.Intn's signature so tests can inject a
// deterministic generator (see the SSH- prefix collision test).
type intn func(n int) int

func generate(maxLen int, randIntn intn) []byte {
	length := minLen + randIntn(maxLen-minLen+1)

	buf := make([]byte, length)
	for i := 0; i < length-2; i++ {
		buf[i] = byte(asciiLo + randIntn(asciiHi-asciiLo+1))
	}
	buf[length-2] = '\r'
	buf[length-1] = '\n'

	if length >= len(sshPrefix) && string(buf[:len(sshPrefix)]) == sshPrefix {
		buf[0] = 'X'
	}

	return buf
}
