package simd

import (
	"encoding/binary"
	"math/bits"
)

// Memchr returns the index of the first occurrence of needle in
// haystack, or -1.
func Memchr(haystack []byte, needle byte) int {
	return memchrSWAR(haystack, needle, needle, needle)
}

// Memchr2 returns the index of the first occurrence of either needle,
// or -1.
func Memchr2(haystack []byte, n1, n2 byte) int {
	return memchrSWAR(haystack, n1, n2, n2)
}

// Memchr3 returns the index of the first occurrence of any of the three
// needles, or -1.
func Memchr3(haystack []byte, n1, n2, n3 byte) int {
	return memchrSWAR(haystack, n1, n2, n3)
}

// MemchrPair returns the first index i with haystack[i] == b1 and
// haystack[i+offset] == b2, or -1. The pair probe filters far more
// candidates than a single byte when b1 is common; offset must be
// positive.
func MemchrPair(haystack []byte, b1, b2 byte, offset int) int {
	limit := len(haystack) - offset
	if limit <= 0 {
		return -1
	}

	m1 := broadcast(b1)
	m2 := broadcast(b2)
	idx := 0
	for idx+8 <= limit {
		a := binary.LittleEndian.Uint64(haystack[idx:])
		b := binary.LittleEndian.Uint64(haystack[idx+offset:])
		mask := zeroBytes(a^m1) & zeroBytes(b^m2)
		if mask != 0 {
			return idx + bits.TrailingZeros64(mask)/8
		}
		idx += 8
	}
	for ; idx < limit; idx++ {
		if haystack[idx] == b1 && haystack[idx+offset] == b2 {
			return idx
		}
	}
	return -1
}
