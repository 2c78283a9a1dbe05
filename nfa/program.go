package nfa

import (
	"sort"

	"github.com/coregx/redfa/internal/ranges"
)

// Symbol is one letter of the DFA alphabet: byte values 0-255 plus the
// zero-width meta symbols the anchor machinery consumes.
type Symbol = uint16

// Meta symbols. Anchor positions carry classes over these; the matcher
// feeds them to the automaton when the corresponding context condition
// holds at the current input boundary.
const (
	MetaBOB Symbol = 256 + iota // begin of buffer (\A, and ^ without multiline)
	MetaEOB                     // end of buffer (\z, and $ without multiline)
	MetaBOL                     // begin of line (^ with multiline)
	MetaEOL                     // end of line ($ with multiline)
	MetaBWB                     // word boundary (\b)
	MetaNWB                     // non-word-boundary (\B)
	MetaBWE                     // begin of word (\<)
	MetaEWE                     // end of word (\>)

	// MaxSymbol is the top of the alphabet, inclusive.
	MaxSymbol Symbol = MetaEWE
)

// MetaCount is the number of meta symbols.
const MetaCount = int(MaxSymbol) - 256 + 1

// Flags select pattern dialect options.
type Flags uint16

const (
	// FlagIgnoreCase folds ASCII letter case in literals and classes.
	FlagIgnoreCase Flags = 1 << iota

	// FlagDotAll makes '.' match newline as well.
	FlagDotAll

	// FlagMultiline makes ^ and $ match at line boundaries instead of
	// only at the buffer boundaries.
	FlagMultiline

	// FlagUnicode treats the pattern as UTF-8: literals and classes
	// match whole code points, expanded to byte alternations.
	FlagUnicode

	// FlagFreeSpace ignores unescaped whitespace and # comments outside
	// character classes.
	FlagFreeSpace

	// FlagLean lets UTF-8 class expansion emit unconstrained
	// continuation bytes. Smaller tables, accepts some ill-formed input.
	FlagLean
)

// Limits caps the compiler's resource usage. Exceeding any cap aborts
// compilation with ErrorExceedsLimits or ErrorExceedsLength; the caps
// bound pathological patterns instead of timeouts (compilation fails
// fast rather than hanging).
type Limits struct {
	// MaxPositions caps symbol positions (and therefore pattern length).
	// Hard ceiling is the 16-bit position encoding.
	MaxPositions int

	// MaxRepeat caps the upper bound of a bounded repetition {n,m}.
	MaxRepeat int

	// MaxChoices caps top-level alternatives.
	MaxChoices int

	// MaxLookaheads caps lookahead groups.
	MaxLookaheads int

	// MaxLazy caps lazy quantifier groups.
	MaxLazy int
}

// DefaultLimits returns the caps used when none are supplied.
func DefaultLimits() Limits {
	return Limits{
		MaxPositions:  MaxLoc,
		MaxRepeat:     255,
		MaxChoices:    1 << 12,
		MaxLookaheads: 64,
		MaxLazy:       MaxLazy,
	}
}

// Validate checks the limits against the representable ceilings.
func (l *Limits) Validate() error {
	if l.MaxPositions <= 0 || l.MaxPositions > MaxLoc {
		return &ParseError{Kind: ErrorExceedsLimits}
	}
	if l.MaxRepeat <= 0 || l.MaxRepeat > MaxIter {
		return &ParseError{Kind: ErrorExceedsLimits}
	}
	if l.MaxLazy <= 0 || l.MaxLazy > MaxLazy {
		return &ParseError{Kind: ErrorExceedsLimits}
	}
	return nil
}

// Program is the parsed form of a pattern: the position classes, the
// followpos map and the start set, plus the literal trie holding the
// plain-string alternatives. It is consumed by the DFA subset
// construction and discarded afterwards.
type Program struct {
	// classes[loc] is the symbol class consumed by positions at loc.
	classes []ranges.Set[Symbol]

	// follow maps each position to the positions reachable by consuming
	// one symbol from it. Target lists are sorted and deduplicated.
	follow map[Position][]Position

	// first is the start set: positions that can begin a match.
	first []Position

	// Trie holds the pure literal alternatives, nil if there are none.
	Trie *Trie

	// Choices is the number of top-level alternatives (including the
	// trie's literal alternatives).
	Choices int

	// Lookaheads is the number of lookahead groups.
	Lookaheads int

	// LazyGroups is the number of lazy quantifier groups.
	LazyGroups int

	// CanBeEmpty reports whether some alternative matches no input.
	CanBeEmpty bool

	// Flags are the dialect options the pattern compiled under.
	Flags Flags
}

// newProgram returns an empty program.
func newProgram(flags Flags) *Program {
	return &Program{
		follow: make(map[Position][]Position),
		Flags:  flags,
	}
}

// newLoc allocates a symbol position with the given class and returns
// its index, or -1 when the position budget is exhausted.
func (g *Program) newLoc(class ranges.Set[Symbol], limit int) int {
	if len(g.classes) >= limit {
		return -1
	}
	g.classes = append(g.classes, class)
	return len(g.classes) - 1
}

// ClassOf returns the symbol class consumed by p. Accept positions and
// lookahead markers consume nothing and yield the empty class.
func (g *Program) ClassOf(p Position) ranges.Set[Symbol] {
	if p.IsAccept() || p.IsTicked() {
		return ranges.Set[Symbol]{}
	}
	return g.classes[p.Loc()]
}

// Follow returns the followpos set of p.
func (g *Program) Follow(p Position) []Position {
	return g.follow[p]
}

// First returns the start set.
func (g *Program) First() []Position {
	return g.first
}

// Positions returns the number of allocated symbol positions.
func (g *Program) Positions() int {
	return len(g.classes)
}

// addFollow inserts targets into follow(p), keeping the list sorted and
// deduplicated.
func (g *Program) addFollow(p Position, targets []Position) {
	if len(targets) == 0 {
		return
	}
	list := g.follow[p]
	for _, t := range targets {
		i := sort.Search(len(list), func(i int) bool { return list[i] >= t })
		if i < len(list) && list[i] == t {
			continue
		}
		list = append(list, 0)
		copy(list[i+1:], list[i:])
		list[i] = t
	}
	g.follow[p] = list
}
