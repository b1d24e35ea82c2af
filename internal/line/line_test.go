package line

import "testing"

func TestGenerateBounds(t *testing.T) {
	for maxLen := 3; maxLen <= 255; maxLen++ {
		for i := 0; i < 20; i++ {
			l := Generate(maxLen)
			if len(l) < minLen || len(l) > maxLen {
				t.Fatalf("maxLen=%d: got length %d", maxLen, len(l))
			}
			if l[len(l)-2] != '\r' || l[len(l)-1] != '\n' {
				t.Fatalf("maxLen=%d: line %q does not end in CRLF", maxLen, l)
			}
			for _, b := range l[:len(l)-2] {
				if b < asciiLo || b > asciiHi {
					t.Fatalf("maxLen=%d: byte %d out of printable ASCII range", maxLen, b)
				}
			}
		}
	}
}

func TestGenerateMinLength(t *testing.T) {
	// maxLen=3 must always yield exactly "<byte>\r\n", never underflowing.
	l := Generate(3)
	if len(l) != 3 {
		t.Fatalf("expected length 3, got %d", len(l))
	}
}

func TestGenerateNeverStartsWithSSHPrefix(t *testing.T) {
	for i := 0; i < 500; i++ {
		l := Generate(32)
		if len(l) >= 4 && string(l[:4]) == "SSH-" {
			t.Fatalf("line leaked the SSH- prefix: %q", l)
		}
	}
}

// TestGenerateSubstitutesForcedSSHPrefix injects a deterministic RNG that
// always yields the bytes for "SSH-" so we can assert the substitution
// rule directly by forcing the generator to emit exactly that prefix.
func TestGenerateSubstitutesForcedSSHPrefix(t *testing.T) {
	wanted := []int{'S' - asciiLo, 'S' - asciiLo, 'H' - asciiLo, '-' - asciiLo}
	idx := 0
	forcedLen := 10
	fakeRand := func(n int) int {
		if idx == 0 {
			idx++
			// first call picks the length: force maxLen itself.
			return forcedLen - minLen
		}
		v := wanted[(idx-1)%len(wanted)]
		idx++
		return v
	}

	l := generate(forcedLen, fakeRand)
	if l[0] != 'X' {
		t.Fatalf("expected first byte to be substituted with 'X', got %q", l[0])
	}
	if string(l[1:4]) != "SH-" {
		t.Fatalf("expected bytes 1-3 to remain SH-, got %q", l[1:4])
	}
}
