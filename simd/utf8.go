package simd

// IsASCII reports whether every byte of p is below 0x80. ASCII-only input
// lets the matcher skip all multi-byte handling, so this check runs ahead
// of matching on each buffer window.
func IsASCII(p []byte) bool {
	return firstNonASCII(p) == -1
}

// ValidUTF8 reports whether p is well-formed UTF-8: no truncated
// sequences, no overlong encodings, no surrogates, nothing above
// U+10FFFF.
//
// ASCII runs are skipped with the wide SWAR scan; only the bytes around
// multi-byte sequences are examined individually, so mostly-ASCII input
// validates at near memory speed.
func ValidUTF8(p []byte) bool {
	for len(p) > 0 {
		i := firstNonASCII(p)
		if i == -1 {
			return true
		}
		// Validate one multi-byte sequence at the boundary, then rescan
		// the remainder.
		n := seqLen(p[i])
		if n == 0 || i+n > len(p) || !validUTF8Scalar(p[i:i+n]) {
			return false
		}
		p = p[i+n:]
	}
	return true
}

// seqLen returns the encoded length implied by a lead byte, or 0 for
// bytes that cannot start a sequence.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC2:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	case b < 0xF5:
		return 4
	default:
		return 0
	}
}
