// Package ranges provides an ordered disjoint range set over integer domains.
//
// A Set holds a sorted sequence of inclusive [lo, hi] intervals with no
// overlaps and no adjacent intervals (adjacent intervals are merged on
// insertion). It is the foundation for character class algebra in the
// pattern compiler: classes over bytes, over the extended byte+meta
// alphabet, and over Unicode code points are all represented as range sets.
//
// Sets have value semantics: they are copied and merged freely during
// class-set algebra, and all operations are total over the domain.
package ranges

// Integer is the constraint for range set domains. Code points use rune
// (int32), DFA alphabet symbols use uint16, raw bytes use uint8.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32
}

// Span is a single inclusive interval [Lo, Hi].
type Span[T Integer] struct {
	Lo, Hi T
}

// Set is an ordered, disjoint sequence of inclusive intervals.
//
// Invariant: spans are sorted by Lo, do not overlap, and are never
// adjacent (a span ending at v is never followed by one starting at v+1).
// The zero value is an empty set ready for use.
type Set[T Integer] struct {
	spans []Span[T]
}

// New creates a set containing the single interval [lo, hi].
// If lo > hi the set is empty.
func New[T Integer](lo, hi T) Set[T] {
	var s Set[T]
	s.Insert(lo, hi)
	return s
}

// adjacent reports whether b immediately follows a (b == a+1).
// Written to avoid overflow at the top of the domain: the subtraction is
// only evaluated when b > a.
func adjacent[T Integer](a, b T) bool {
	return b > a && b-a == 1
}

// Insert adds the inclusive interval [lo, hi] to the set, merging any
// overlapping or adjacent intervals. Inserting an empty interval
// (lo > hi) is a no-op.
func (s *Set[T]) Insert(lo, hi T) {
	if lo > hi {
		return
	}

	// Find the first span that could merge with [lo, hi]: the first span
	// whose Hi is >= lo-1 (overlapping or left-adjacent).
	i := 0
	for i < len(s.spans) && s.spans[i].Hi < lo && !adjacent(s.spans[i].Hi, lo) {
		i++
	}

	// Find the last span that could merge: spans with Lo <= hi+1.
	j := i
	for j < len(s.spans) && (s.spans[j].Lo <= hi || adjacent(hi, s.spans[j].Lo)) {
		j++
	}

	if i == j {
		// No merge: splice in a fresh span at i.
		s.spans = append(s.spans, Span[T]{})
		copy(s.spans[i+1:], s.spans[i:])
		s.spans[i] = Span[T]{lo, hi}
		return
	}

	// Merge spans[i:j] with [lo, hi] into a single span at i.
	if s.spans[i].Lo < lo {
		lo = s.spans[i].Lo
	}
	if s.spans[j-1].Hi > hi {
		hi = s.spans[j-1].Hi
	}
	s.spans[i] = Span[T]{lo, hi}
	s.spans = append(s.spans[:i+1], s.spans[j:]...)
}

// Erase removes the single value v from the set, splitting an interval in
// two when v falls strictly inside it. Removing an absent value is a no-op.
func (s *Set[T]) Erase(v T) {
	i := s.search(v)
	if i < 0 {
		return
	}
	sp := s.spans[i]
	switch {
	case sp.Lo == v && sp.Hi == v:
		s.spans = append(s.spans[:i], s.spans[i+1:]...)
	case sp.Lo == v:
		s.spans[i].Lo = v + 1
	case sp.Hi == v:
		s.spans[i].Hi = v - 1
	default:
		// Split [lo, hi] into [lo, v-1] and [v+1, hi].
		s.spans = append(s.spans, Span[T]{})
		copy(s.spans[i+1:], s.spans[i:])
		s.spans[i] = Span[T]{sp.Lo, v - 1}
		s.spans[i+1] = Span[T]{v + 1, sp.Hi}
	}
}

// search returns the index of the span containing v, or -1.
// Binary search on span starts.
func (s Set[T]) search(v T) int {
	lo, hi := 0, len(s.spans)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.spans[mid].Hi < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.spans) && s.spans[lo].Lo <= v && v <= s.spans[lo].Hi {
		return lo
	}
	return -1
}

// Contains reports whether v is covered by the set.
func (s Set[T]) Contains(v T) bool {
	return s.search(v) >= 0
}

// IsEmpty reports whether the set covers no values.
func (s Set[T]) IsEmpty() bool {
	return len(s.spans) == 0
}

// Len returns the number of disjoint spans in the set.
func (s Set[T]) Len() int {
	return len(s.spans)
}

// At returns the i-th span in ascending order.
func (s Set[T]) At(i int) Span[T] {
	return s.spans[i]
}

// Lo returns the smallest covered value. The second result is false when
// the set is empty.
func (s Set[T]) Lo() (T, bool) {
	if len(s.spans) == 0 {
		var zero T
		return zero, false
	}
	return s.spans[0].Lo, true
}

// Hi returns the largest covered value. The second result is false when
// the set is empty.
func (s Set[T]) Hi() (T, bool) {
	if len(s.spans) == 0 {
		var zero T
		return zero, false
	}
	return s.spans[len(s.spans)-1].Hi, true
}

// Count returns the total number of covered values.
func (s Set[T]) Count() int {
	n := 0
	for _, sp := range s.spans {
		n += int(int64(sp.Hi)-int64(sp.Lo)) + 1
	}
	return n
}

// Clone returns an independent copy of the set.
func (s Set[T]) Clone() Set[T] {
	out := Set[T]{spans: make([]Span[T], len(s.spans))}
	copy(out.spans, s.spans)
	return out
}

// All calls yield for each span in ascending order. Iteration stops early
// when yield returns false.
func (s Set[T]) All(yield func(lo, hi T) bool) {
	for _, sp := range s.spans {
		if !yield(sp.Lo, sp.Hi) {
			return
		}
	}
}

// Union adds every value of o to s (s |= o). Merge-walk over both sorted
// span lists, O(n+m).
func (s *Set[T]) Union(o Set[T]) {
	if o.IsEmpty() {
		return
	}
	if s.IsEmpty() {
		*s = o.Clone()
		return
	}
	merged := make([]Span[T], 0, len(s.spans)+len(o.spans))
	i, j := 0, 0
	var cur Span[T]
	take := func() Span[T] {
		if j >= len(o.spans) || (i < len(s.spans) && s.spans[i].Lo <= o.spans[j].Lo) {
			sp := s.spans[i]
			i++
			return sp
		}
		sp := o.spans[j]
		j++
		return sp
	}
	cur = take()
	for i < len(s.spans) || j < len(o.spans) {
		sp := take()
		if sp.Lo <= cur.Hi || adjacent(cur.Hi, sp.Lo) {
			if sp.Hi > cur.Hi {
				cur.Hi = sp.Hi
			}
		} else {
			merged = append(merged, cur)
			cur = sp
		}
	}
	merged = append(merged, cur)
	s.spans = merged
}

// Intersect keeps only values present in both s and o (s &= o).
// Merge-walk, O(n+m).
func (s *Set[T]) Intersect(o Set[T]) {
	out := s.spans[:0:0]
	i, j := 0, 0
	for i < len(s.spans) && j < len(o.spans) {
		a, b := s.spans[i], o.spans[j]
		lo, hi := a.Lo, a.Hi
		if b.Lo > lo {
			lo = b.Lo
		}
		if b.Hi < hi {
			hi = b.Hi
		}
		if lo <= hi {
			out = append(out, Span[T]{lo, hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	s.spans = out
}

// Subtract removes every value of o from s (s -= o). Merge-walk, O(n+m).
func (s *Set[T]) Subtract(o Set[T]) {
	out := s.spans[:0:0]
	j := 0
	for _, a := range s.spans {
		lo := a.Lo
		consumed := false
		for j < len(o.spans) && o.spans[j].Hi < lo {
			j++
		}
		for k := j; k < len(o.spans) && o.spans[k].Lo <= a.Hi; k++ {
			b := o.spans[k]
			if b.Lo > lo {
				out = append(out, Span[T]{lo, b.Lo - 1})
			}
			if b.Hi >= a.Hi {
				consumed = true
				break
			}
			lo = b.Hi + 1
		}
		if !consumed && lo <= a.Hi {
			out = append(out, Span[T]{lo, a.Hi})
		}
	}
	s.spans = out
}

// Complement replaces s with its complement over the closed domain
// [lo, hi]. Values of s outside the domain are discarded.
func (s *Set[T]) Complement(lo, hi T) {
	var out []Span[T]
	next := lo
	covered := false
	for _, sp := range s.spans {
		if sp.Hi < lo {
			continue
		}
		if sp.Lo > hi {
			break
		}
		spLo := sp.Lo
		if spLo < lo {
			spLo = lo
		}
		if spLo > next {
			out = append(out, Span[T]{next, spLo - 1})
		}
		if sp.Hi >= hi {
			covered = true
			break
		}
		next = sp.Hi + 1
	}
	if !covered && next <= hi {
		out = append(out, Span[T]{next, hi})
	}
	s.spans = out
}

// Equal reports whether s and o cover exactly the same values.
func (s Set[T]) Equal(o Set[T]) bool {
	if len(s.spans) != len(o.spans) {
		return false
	}
	for i := range s.spans {
		if s.spans[i] != o.spans[i] {
			return false
		}
	}
	return true
}

// Spans returns a copy of the underlying span list, for inspection and
// testing.
func (s Set[T]) Spans() []Span[T] {
	out := make([]Span[T], len(s.spans))
	copy(out, s.spans)
	return out
}
