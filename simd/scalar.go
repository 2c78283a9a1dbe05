package simd

// Scalar reference implementations. These are the single source of truth
// for kernel semantics: every vectorized path must produce identical
// results, which the package tests verify on boundary shapes and random
// inputs.

// memchrScalar searches haystack[from:] byte by byte for any of the
// needles and returns the absolute index, or -1.
func memchrScalar(haystack []byte, from int, n1, n2, n3 byte) int {
	for i := from; i < len(haystack); i++ {
		b := haystack[i]
		if b == n1 || b == n2 || b == n3 {
			return i
		}
	}
	return -1
}

// memmemScalar is the naive substring search reference.
func memmemScalar(haystack, needle []byte) int {
	n := len(needle)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(haystack); i++ {
		if equalBytes(haystack[i:i+n], needle) {
			return i
		}
	}
	return -1
}

func equalBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// countLinesScalar counts newline bytes one at a time.
func countLinesScalar(haystack []byte) int {
	n := 0
	for _, b := range haystack {
		if b == '\n' {
			n++
		}
	}
	return n
}

// validUTF8Scalar validates UTF-8 one sequence at a time, rejecting
// overlong encodings, surrogates and out-of-range code points.
func validUTF8Scalar(p []byte) bool {
	i := 0
	n := len(p)
	for i < n {
		b := p[i]
		switch {
		case b < 0x80:
			i++
		case b < 0xC2:
			// Continuation byte or overlong 2-byte lead.
			return false
		case b < 0xE0:
			if i+1 >= n || !isCont(p[i+1]) {
				return false
			}
			i += 2
		case b < 0xF0:
			if i+2 >= n {
				return false
			}
			b1 := p[i+1]
			// E0 forbids overlong (second byte must be >= A0);
			// ED forbids surrogates (second byte must be < A0).
			lo, hi := byte(0x80), byte(0xBF)
			if b == 0xE0 {
				lo = 0xA0
			} else if b == 0xED {
				hi = 0x9F
			}
			if b1 < lo || b1 > hi || !isCont(p[i+2]) {
				return false
			}
			i += 3
		case b < 0xF5:
			if i+3 >= n {
				return false
			}
			b1 := p[i+1]
			// F0 forbids overlong (second byte must be >= 90);
			// F4 caps the domain at U+10FFFF (second byte must be < 90).
			lo, hi := byte(0x80), byte(0xBF)
			if b == 0xF0 {
				lo = 0x90
			} else if b == 0xF4 {
				hi = 0x8F
			}
			if b1 < lo || b1 > hi || !isCont(p[i+2]) || !isCont(p[i+3]) {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

func isCont(b byte) bool {
	return b&0xC0 == 0x80
}
