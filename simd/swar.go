package simd

import (
	"encoding/binary"
	"math/bits"
)

// SWAR constants (Hacker's Delight zero-byte detection).
const (
	lo8 = 0x0101010101010101
	hi8 = 0x8080808080808080
)

// broadcast replicates b into every byte of a uint64.
func broadcast(b byte) uint64 {
	return uint64(b) * lo8
}

// zeroBytes returns a mask with 0x80 set in every byte position of v that
// is zero. Matching bytes of an XOR-ed word show up as zero bytes, so this
// is the core match detector for all kernels.
func zeroBytes(v uint64) uint64 {
	return (v - lo8) & ^v & hi8
}

// memchrSWAR returns the index of the first occurrence of any of the
// needles (1 to 3 of them; unused slots must repeat an earlier needle) in
// haystack, or -1. The inner loop processes laneWords 8-byte words per
// iteration.
func memchrSWAR(haystack []byte, n1, n2, n3 byte) int {
	hlen := len(haystack)
	if hlen < 8 {
		return memchrScalar(haystack, 0, n1, n2, n3)
	}

	m1 := broadcast(n1)
	m2 := broadcast(n2)
	m3 := broadcast(n3)

	idx := 0
	stride := laneWords * 8

	// Wide unrolled loop.
	for idx+stride <= hlen {
		for w := 0; w < laneWords; w++ {
			chunk := binary.LittleEndian.Uint64(haystack[idx+w*8:])
			mask := zeroBytes(chunk^m1) | zeroBytes(chunk^m2) | zeroBytes(chunk^m3)
			if mask != 0 {
				return idx + w*8 + bits.TrailingZeros64(mask)/8
			}
		}
		idx += stride
	}

	// Single-word loop over the remainder.
	for idx+8 <= hlen {
		chunk := binary.LittleEndian.Uint64(haystack[idx:])
		mask := zeroBytes(chunk^m1) | zeroBytes(chunk^m2) | zeroBytes(chunk^m3)
		if mask != 0 {
			return idx + bits.TrailingZeros64(mask)/8
		}
		idx += 8
	}

	return memchrScalar(haystack, idx, n1, n2, n3)
}

// countByteSWAR counts occurrences of needle in haystack.
func countByteSWAR(haystack []byte, needle byte) int {
	hlen := len(haystack)
	m := broadcast(needle)
	count := 0
	idx := 0
	for idx+8 <= hlen {
		chunk := binary.LittleEndian.Uint64(haystack[idx:])
		// Each matching byte contributes exactly one 0x80 bit.
		count += bits.OnesCount64(zeroBytes(chunk ^ m))
		idx += 8
	}
	for ; idx < hlen; idx++ {
		if haystack[idx] == needle {
			count++
		}
	}
	return count
}

// firstNonASCII returns the index of the first byte >= 0x80, or -1 if the
// buffer is pure ASCII.
func firstNonASCII(haystack []byte) int {
	hlen := len(haystack)
	idx := 0
	stride := laneWords * 8
	for idx+stride <= hlen {
		for w := 0; w < laneWords; w++ {
			chunk := binary.LittleEndian.Uint64(haystack[idx+w*8:])
			if m := chunk & hi8; m != 0 {
				return idx + w*8 + bits.TrailingZeros64(m)/8
			}
		}
		idx += stride
	}
	for idx+8 <= hlen {
		chunk := binary.LittleEndian.Uint64(haystack[idx:])
		if m := chunk & hi8; m != 0 {
			return idx + bits.TrailingZeros64(m)/8
		}
		idx += 8
	}
	for ; idx < hlen; idx++ {
		if haystack[idx] >= 0x80 {
			return idx
		}
	}
	return -1
}
