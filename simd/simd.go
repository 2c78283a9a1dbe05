// Package simd provides portable vectorized primitives for the matching
// engine: byte search (memchr family), substring search (memmem), newline
// counting and UTF-8 validation.
//
// All kernels share one width-parameterized SWAR (SIMD Within A Register)
// core that processes 8-byte uint64 lanes, unrolled to 16 or 32 bytes per
// iteration depending on the host's vector capabilities. A plain scalar
// implementation of every kernel is kept as the single source of truth;
// the vectorized paths must match it exactly on all boundary conditions
// (needle shorter than a lane, buffer tail shorter than a lane, search
// position at buffer end).
package simd

import "golang.org/x/sys/cpu"

// laneWords is the number of 8-byte words processed per unrolled
// iteration. Hosts with 256-bit vector units get the wider stride; the
// narrower stride avoids wasted tail work elsewhere.
var laneWords = 2

func init() {
	if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD || cpu.PPC64.IsPOWER9 {
		laneWords = 4
	}
}
