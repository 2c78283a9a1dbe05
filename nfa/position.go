package nfa

import "fmt"

// Position identifies one symbol occurrence in a pattern, together with
// the flags the DFA construction needs. It is the state unit of the
// Glushkov (followpos) NFA: there are no epsilon transitions, every
// position consumes exactly one alphabet symbol.
//
// A Position packs into a single uint64 so position sets are flat slices
// and ordering is plain integer comparison:
//
//	bits  0-15  loc    symbol index into the program's class table,
//	             or the alternative number for accept positions
//	bits 16-31  iter   bounded-repetition copy index
//	bits 32-39  lazy   lazy quantifier group (0 = greedy)
//	bit  40     accept terminal marker for an alternative
//	bit  41     anchor zero-width assertion position
//	bit  42     negate belongs to a negative lookahead body
//	bit  43     ticked lookahead head/tail marker
type Position uint64

const (
	locBits  = 16
	iterBits = 16
	lazyBits = 8

	locMask  = 1<<locBits - 1
	iterMask = 1<<iterBits - 1
	lazyMask = 1<<lazyBits - 1

	iterShift = locBits
	lazyShift = locBits + iterBits

	flagAccept Position = 1 << 40
	flagAnchor Position = 1 << 41
	flagNegate Position = 1 << 42
	flagTicked Position = 1 << 43
	flagTail   Position = 1 << 44
)

// MaxLoc is the largest representable symbol index. Patterns needing more
// positions fail compilation with ErrorExceedsLength.
const MaxLoc = locMask

// MaxIter is the largest representable repetition copy index. Bounded
// repeats that would unroll further fail with ErrorExceedsLimits.
const MaxIter = iterMask

// MaxLazy is the largest lazy quantifier group index.
const MaxLazy = lazyMask

// NewPosition returns a greedy, unflagged position for symbol index loc.
func NewPosition(loc int) Position {
	return Position(loc & locMask)
}

// Accept returns an accept position for the given 1-based alternative.
func Accept(choice int) Position {
	return Position(choice&locMask) | flagAccept
}

// Loc returns the symbol index (or alternative number for accepts).
func (p Position) Loc() int {
	return int(p & locMask)
}

// Iter returns the bounded-repetition copy index.
func (p Position) Iter() int {
	return int(p>>iterShift) & iterMask
}

// Lazy returns the lazy group index, 0 for greedy positions.
func (p Position) Lazy() int {
	return int(p>>lazyShift) & lazyMask
}

// IsAccept reports whether this is an accept (terminal) position.
func (p Position) IsAccept() bool {
	return p&flagAccept != 0
}

// IsAnchor reports whether this position is a zero-width assertion.
func (p Position) IsAnchor() bool {
	return p&flagAnchor != 0
}

// IsNegated reports whether this position belongs to a negative
// lookahead body.
func (p Position) IsNegated() bool {
	return p&flagNegate != 0
}

// IsTicked reports whether this is a lookahead head/tail marker.
func (p Position) IsTicked() bool {
	return p&flagTicked != 0
}

// WithIter returns p retagged with the given copy index.
func (p Position) WithIter(iter int) Position {
	return p&^(iterMask<<iterShift) | Position(iter&iterMask)<<iterShift
}

// WithLazy returns p tagged with the given lazy group.
func (p Position) WithLazy(lazy int) Position {
	return p&^(lazyMask<<lazyShift) | Position(lazy&lazyMask)<<lazyShift
}

// WithAnchor returns p with the anchor flag set.
func (p Position) WithAnchor() Position {
	return p | flagAnchor
}

// WithNegate returns p with the negate flag set.
func (p Position) WithNegate() Position {
	return p | flagNegate
}

// WithTicked returns p with the ticked flag set.
func (p Position) WithTicked() Position {
	return p | flagTicked
}

// IsTail reports whether a ticked marker closes its lookahead group
// (head markers open it, tail markers close it).
func (p Position) IsTail() bool {
	return p&flagTail != 0
}

// Head returns a lookahead head marker for the given lookahead index.
func Head(look int) Position {
	return Position(look&locMask) | flagTicked
}

// Tail returns a lookahead tail marker for the given lookahead index.
func Tail(look int) Position {
	return Position(look&locMask) | flagTicked | flagTail
}

// Greedy returns p with the lazy tag cleared.
func (p Position) Greedy() Position {
	return p &^ (lazyMask << lazyShift)
}

// String formats a position for debugging.
func (p Position) String() string {
	s := fmt.Sprintf("%d", p.Loc())
	if it := p.Iter(); it != 0 {
		s += fmt.Sprintf(".%d", it)
	}
	if l := p.Lazy(); l != 0 {
		s += fmt.Sprintf("?%d", l)
	}
	if p.IsAccept() {
		s += "#"
	}
	if p.IsAnchor() {
		s += "^"
	}
	if p.IsNegated() {
		s += "!"
	}
	if p.IsTicked() {
		s += "'"
	}
	return s
}
