// Package uniclass provides lookup tables mapping POSIX and Unicode
// character class names to ordered lists of inclusive code point ranges.
//
// POSIX classes (Alpha, Digit, Punct, ...) are static ASCII tables.
// Unicode general categories (L, Lu, Nd, ...), scripts (Greek, Han, ...)
// and properties (White_Space, ...) are sourced from the standard library
// unicode tables, converted once on first use and cached. All returned
// data is process-wide immutable; callers must not modify it.
//
// Lookup accepts a leading '^' prefix meaning "complement of this class".
// The complement itself is NOT applied here: the caller receives the base
// ranges plus a negated flag and applies Complement, which always excludes
// the surrogate block U+D800-U+DFFF from the complemented set. Surrogates
// are not valid scalar values, so complementing a class twice restores the
// original set only up to surrogate exclusion; this is a documented
// property of the tables, not a defect.
package uniclass

import (
	"sync"
	"unicode"
)

// Range is an inclusive code point interval [Lo, Hi].
type Range struct {
	Lo, Hi rune
}

// MaxRune is the upper bound of the class domain (same as unicode.MaxRune).
const MaxRune = unicode.MaxRune

// Surrogate block bounds, excluded when complementing over the full domain.
const (
	surrogateLo rune = 0xD800
	surrogateHi rune = 0xDFFF
)

// posixClasses holds the static ASCII class tables.
// Names are case-sensitive, matching POSIX [[:class:]] spelling with an
// initial capital (the parser normalizes).
var posixClasses = map[string][]Range{
	"ASCII":  {{0x00, 0x7F}},
	"Alpha":  {{'A', 'Z'}, {'a', 'z'}},
	"Alnum":  {{'0', '9'}, {'A', 'Z'}, {'a', 'z'}},
	"Blank":  {{'\t', '\t'}, {' ', ' '}},
	"Cntrl":  {{0x00, 0x1F}, {0x7F, 0x7F}},
	"Digit":  {{'0', '9'}},
	"Graph":  {{0x21, 0x7E}},
	"Lower":  {{'a', 'z'}},
	"Print":  {{0x20, 0x7E}},
	"Punct":  {{0x21, 0x2F}, {0x3A, 0x40}, {0x5B, 0x60}, {0x7B, 0x7E}},
	"Space":  {{'\t', '\r'}, {' ', ' '}},
	"Upper":  {{'A', 'Z'}},
	"Word":   {{'0', '9'}, {'A', 'Z'}, {'_', '_'}, {'a', 'z'}},
	"XDigit": {{'0', '9'}, {'A', 'F'}, {'a', 'f'}},
}

// unicodeCache caches converted stdlib unicode tables by name.
var (
	unicodeMu    sync.Mutex
	unicodeCache = map[string][]Range{}
)

// Lookup resolves a class name to its code point ranges.
//
// A leading '^' sets the negated result flag; the returned ranges are
// always the base (non-complemented) class. Returns (nil, false) for an
// unknown name. POSIX names shadow same-named Unicode tables.
//
// Example:
//
//	rs, neg := uniclass.Lookup("^Digit")
//	// rs = [{'0','9'}], neg = true
func Lookup(name string) (rs []Range, negated bool) {
	if len(name) > 0 && name[0] == '^' {
		negated = true
		name = name[1:]
	}
	if rs, ok := posixClasses[name]; ok {
		return rs, negated
	}
	if rs := unicodeRanges(name); rs != nil {
		return rs, negated
	}
	return nil, false
}

// unicodeRanges converts a stdlib unicode.RangeTable to []Range, caching
// the result. Returns nil for unknown names.
func unicodeRanges(name string) []Range {
	unicodeMu.Lock()
	defer unicodeMu.Unlock()

	if rs, ok := unicodeCache[name]; ok {
		return rs
	}

	tab := unicode.Categories[name]
	if tab == nil {
		tab = unicode.Scripts[name]
	}
	if tab == nil {
		tab = unicode.Properties[name]
	}
	if tab == nil {
		// Negative results are cached too (as nil), so repeated lookups of
		// a bad name stay cheap.
		unicodeCache[name] = nil
		return nil
	}

	rs := fromTable(tab)
	unicodeCache[name] = rs
	return rs
}

// fromTable flattens a unicode.RangeTable into inclusive ranges,
// expanding strided entries.
func fromTable(tab *unicode.RangeTable) []Range {
	var rs []Range
	for _, r := range tab.R16 {
		rs = appendStrided(rs, rune(r.Lo), rune(r.Hi), rune(r.Stride))
	}
	for _, r := range tab.R32 {
		rs = appendStrided(rs, rune(r.Lo), rune(r.Hi), rune(r.Stride))
	}
	return rs
}

func appendStrided(rs []Range, lo, hi, stride rune) []Range {
	if stride == 1 {
		return appendMerged(rs, lo, hi)
	}
	for c := lo; c <= hi; c += stride {
		rs = appendMerged(rs, c, c)
	}
	return rs
}

// appendMerged appends [lo, hi], merging with the previous range when
// adjacent or overlapping. RangeTable entries are already sorted, so a
// tail merge keeps the output ordered and disjoint.
func appendMerged(rs []Range, lo, hi rune) []Range {
	if n := len(rs); n > 0 && lo <= rs[n-1].Hi+1 {
		if hi > rs[n-1].Hi {
			rs[n-1].Hi = hi
		}
		return rs
	}
	return append(rs, Range{lo, hi})
}

// Complement returns the complement of rs over [0, MaxRune], always
// excluding the surrogate block U+D800-U+DFFF. The input must be sorted
// and disjoint (as returned by Lookup).
func Complement(rs []Range) []Range {
	var out []Range
	next := rune(0)
	for _, r := range rs {
		if r.Lo > next {
			out = appendNonSurrogate(out, next, r.Lo-1)
		}
		if r.Hi >= next {
			next = r.Hi + 1
		}
	}
	if next <= MaxRune {
		out = appendNonSurrogate(out, next, MaxRune)
	}
	return out
}

// appendNonSurrogate appends [lo, hi] with the surrogate block cut out.
func appendNonSurrogate(out []Range, lo, hi rune) []Range {
	if lo <= surrogateHi && hi >= surrogateLo {
		if lo < surrogateLo {
			out = append(out, Range{lo, surrogateLo - 1})
		}
		if hi > surrogateHi {
			out = append(out, Range{surrogateHi + 1, hi})
		}
		return out
	}
	return append(out, Range{lo, hi})
}
