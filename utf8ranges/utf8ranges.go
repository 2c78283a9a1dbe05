// Package utf8ranges converts code point ranges into byte-level regex
// fragments that match exactly the UTF-8 encodings of those ranges.
//
// The pattern compiler works over a byte alphabet. To match a Unicode
// class it expands each code point range [lo, hi] into an alternation of
// byte ranges, so that UTF-8 matching needs no decoding loop at match
// time: the DFA consumes one encoded byte per transition.
//
// The encoder splits [lo, hi] at the UTF-8 encoding length boundaries
// (0x80, 0x800, 0x10000), excludes the surrogate block, and for each
// length-homogeneous sub-range factors shared leading bytes recursively.
// Continuation bytes collapse into single ranges ([\x80-\xbf]) whenever
// the low/high boundary pattern allows.
package utf8ranges

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Mode selects how continuation bytes are constrained in the generated
// fragment.
type Mode int

const (
	// Strict constrains continuation bytes to the valid 0x80-0xBF range.
	// The fragment matches well-formed UTF-8 only.
	Strict Mode = iota

	// Lean emits '.' wildcards for unconstrained continuation bytes.
	// The resulting DFA has fewer distinct edges and compiles to smaller
	// tables, at the cost of accepting some ill-formed input.
	Lean
)

// Encoding length band boundaries.
const (
	max1 = 0x7F
	max2 = 0x7FF
	max3 = 0xFFFF

	surrogateLo = 0xD800
	surrogateHi = 0xDFFF
)

// Encode returns a regex fragment matching exactly the UTF-8 encodings of
// code points in [lo, hi] (inclusive). The fragment uses only byte
// escapes, byte-range classes, grouping and alternation, so it can be fed
// back into the byte-mode pattern parser.
//
// Out-of-domain bounds are clamped to [0, 0x10FFFF]; the surrogate block
// U+D800-U+DFFF is always excluded. An empty range yields "".
//
// Example:
//
//	utf8ranges.Encode(0x80, 0x7FF, utf8ranges.Strict)
//	// "[\xc2-\xdf][\x80-\xbf]"
func Encode(lo, hi rune, mode Mode) string {
	if lo < 0 {
		lo = 0
	}
	if hi > utf8.MaxRune {
		hi = utf8.MaxRune
	}
	if lo > hi {
		return ""
	}

	cont := `[\x80-\xbf]`
	if mode == Lean {
		cont = `.`
	}

	// Split at encoding-length boundaries, cutting out surrogates.
	bands := [][2]rune{
		{0, max1},
		{max1 + 1, max2},
		{max2 + 1, surrogateLo - 1},
		{surrogateHi + 1, max3},
		{max3 + 1, utf8.MaxRune},
	}

	var alts []string
	for _, band := range bands {
		a, b := band[0], band[1]
		if a < lo {
			a = lo
		}
		if b > hi {
			b = hi
		}
		if a > b {
			continue
		}
		alts = append(alts, encodeRange(a, b, cont))
	}
	return group(alts)
}

// encodeRange encodes a range whose bounds share the same UTF-8 encoding
// length and contain no surrogates.
func encodeRange(a, b rune, cont string) string {
	var bufA, bufB [4]byte
	na := utf8.EncodeRune(bufA[:], a)
	nb := utf8.EncodeRune(bufB[:], b)
	if na != nb {
		// Caller splits at length bands; equal lengths are an invariant.
		panic(fmt.Sprintf("utf8ranges: length mismatch for %U..%U", a, b))
	}
	return tailPart(bufA[:na], bufB[:nb], cont)
}

// tailPart encodes the byte strings A..B (same length, A <= B
// lexicographically) as a fragment. Shared leading bytes are factored;
// the varying remainder splits into a "lower bound" piece, a compressed
// middle of full continuation ranges, and an "upper bound" piece.
func tailPart(a, b []byte, cont string) string {
	n := len(a)
	if n == 1 {
		return byteRange(a[0], b[0])
	}
	if a[0] == b[0] {
		return esc(a[0]) + tailPart(a[1:], b[1:], cont)
	}

	var alts []string
	midLo, midHi := a[0], b[0]

	// Lower piece: needed unless a's tail is the minimal continuation
	// sequence (all 0x80), in which case a's lead byte joins the middle.
	if !allBytes(a[1:], 0x80) {
		alts = append(alts, esc(a[0])+tailPart(a[1:], maxTail(n-1), cont))
		midLo++
	}

	// Upper piece, symmetric with the lower one.
	upper := ""
	if !allBytes(b[1:], 0xBF) {
		upper = esc(b[0]) + tailPart(minTail(n-1), b[1:], cont)
		midHi--
	}

	if midLo <= midHi {
		alts = append(alts, byteRange(midLo, midHi)+strings.Repeat(cont, n-1))
	}
	if upper != "" {
		alts = append(alts, upper)
	}
	return group(alts)
}

func allBytes(s []byte, v byte) bool {
	for _, c := range s {
		if c != v {
			return false
		}
	}
	return true
}

func minTail(n int) []byte {
	t := make([]byte, n)
	for i := range t {
		t[i] = 0x80
	}
	return t
}

func maxTail(n int) []byte {
	t := make([]byte, n)
	for i := range t {
		t[i] = 0xBF
	}
	return t
}

func esc(b byte) string {
	return fmt.Sprintf(`\x%02x`, b)
}

func byteRange(lo, hi byte) string {
	if lo == hi {
		return esc(lo)
	}
	return "[" + esc(lo) + "-" + esc(hi) + "]"
}

func group(alts []string) string {
	if len(alts) == 1 {
		return alts[0]
	}
	return "(" + strings.Join(alts, "|") + ")"
}
