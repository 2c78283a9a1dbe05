// Package conv provides checked narrowing conversions for opcode
// packing. Overflow panics: field widths are enforced by the encoder's
// own limits, so a failed conversion is a bug, not an input error.
package conv

import "math"

// IntToUint32 converts n to uint32, panicking when it does not fit.
func IntToUint32(n int) uint32 {
	// uint comparison so the bound works on 32-bit ints too.
	if n < 0 || uint(n) > math.MaxUint32 {
		panic("conv: int out of uint32 range")
	}
	return uint32(n)
}

// IntToUint16 converts n to uint16, panicking when it does not fit.
func IntToUint16(n int) uint16 {
	if n < 0 || n > math.MaxUint16 {
		panic("conv: int out of uint16 range")
	}
	return uint16(n)
}
