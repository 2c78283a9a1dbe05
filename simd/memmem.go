package simd

import "bytes"

// Memmem returns the index of the first instance of needle in haystack,
// or -1 if needle is not present.
//
// Short needles use a rare-byte heuristic: the two least frequent needle
// bytes (per the empirical rank table) seed a paired-byte SWAR probe, and
// each candidate is verified in full. Long needles fall back to the
// standard library's two-way search, which already guarantees O(n+m) and
// is hard to beat for large m.
//
// Example:
//
//	pos := simd.Memmem([]byte("hello world"), []byte("world"))
//	// pos == 6
func Memmem(haystack, needle []byte) int {
	nlen := len(needle)
	switch {
	case nlen == 0:
		return 0
	case nlen > len(haystack):
		return -1
	case nlen == 1:
		return Memchr(haystack, needle[0])
	case nlen > 32:
		return bytes.Index(haystack, needle)
	}

	rb := SelectRareBytes(needle)
	if rb.Index2 < rb.Index1 {
		// MemchrPair wants a forward offset.
		rb.Byte1, rb.Byte2 = rb.Byte2, rb.Byte1
		rb.Index1, rb.Index2 = rb.Index2, rb.Index1
	}
	offset := rb.Index2 - rb.Index1
	if offset == 0 {
		// Degenerate pair (single distinct position): plain byte probe.
		return memchrVerify(haystack, needle, rb.Byte1, rb.Index1)
	}

	pos := 0
	for pos < len(haystack) {
		i := MemchrPair(haystack[pos:], rb.Byte1, rb.Byte2, offset)
		if i < 0 {
			return -1
		}
		start := pos + i - rb.Index1
		if start >= 0 && start+nlen <= len(haystack) &&
			bytes.Equal(haystack[start:start+nlen], needle) {
			return start
		}
		pos += i + 1
	}
	return -1
}

// memchrVerify scans for probe occurrences and verifies the full needle
// at each candidate.
func memchrVerify(haystack, needle []byte, probe byte, probeIdx int) int {
	nlen := len(needle)
	pos := 0
	for pos < len(haystack) {
		i := Memchr(haystack[pos:], probe)
		if i < 0 {
			return -1
		}
		start := pos + i - probeIdx
		if start >= 0 && start+nlen <= len(haystack) &&
			bytes.Equal(haystack[start:start+nlen], needle) {
			return start
		}
		pos += i + 1
	}
	return -1
}
