package nfa

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, pattern string, flags Flags) *Program {
	t.Helper()
	prog, err := Parse(pattern, flags, nil, DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", pattern, err)
	}
	return prog
}

func TestParseLiteralChain(t *testing.T) {
	// Force the position machinery with a group; plain "ab" would go to
	// the literal trie.
	prog := mustParse(t, "(ab)", 0)

	if got := prog.Positions(); got != 2 {
		t.Fatalf("Positions() = %d, want 2", got)
	}
	p0, p1 := NewPosition(0), NewPosition(1)
	if diff := cmp.Diff([]Position{p0}, prog.First()); diff != "" {
		t.Errorf("First() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{p1}, prog.Follow(p0)); diff != "" {
		t.Errorf("Follow(p0) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{Accept(1)}, prog.Follow(p1)); diff != "" {
		t.Errorf("Follow(p1) mismatch (-want +got):\n%s", diff)
	}
	if prog.CanBeEmpty {
		t.Error("CanBeEmpty = true for (ab)")
	}
}

func TestParseTrieAlternatives(t *testing.T) {
	prog := mustParse(t, "foo|bar|baz", 0)

	if prog.Trie == nil {
		t.Fatal("Trie = nil, want literal alternatives collected")
	}
	if got := prog.Positions(); got != 0 {
		t.Errorf("Positions() = %d, want 0 for pure literal pattern", got)
	}
	if got := prog.Choices; got != 3 {
		t.Errorf("Choices = %d, want 3", got)
	}
	n := prog.Trie.Root()
	for _, b := range []byte("bar") {
		var ok bool
		n, ok = prog.Trie.Step(n, b)
		if !ok {
			t.Fatalf("trie missing edge %q", b)
		}
	}
	if got := prog.Trie.Accept(n); got != 2 {
		t.Errorf("Accept(bar) = %d, want alternative 2", got)
	}
}

func TestParseMixedTrieAndPositions(t *testing.T) {
	prog := mustParse(t, "a+|stop", 0)

	if prog.Trie == nil {
		t.Fatal("Trie = nil, want literal alternative in trie")
	}
	if got := prog.Positions(); got != 1 {
		t.Errorf("Positions() = %d, want 1", got)
	}
	if got := prog.Choices; got != 2 {
		t.Errorf("Choices = %d, want 2", got)
	}
}

func TestParseBoundedRepeat(t *testing.T) {
	prog := mustParse(t, "(a){2,4}", 0)

	if got := prog.Positions(); got != 1 {
		t.Fatalf("Positions() = %d, want 1 (copies share the class)", got)
	}
	p := func(iter int) Position { return NewPosition(0).WithIter(iter) }
	acc := Accept(1)

	cases := []struct {
		name string
		from Position
		want []Position
	}{
		{"copy0", p(0), []Position{p(1)}},
		{"copy1", p(1), []Position{p(2), acc}},
		{"copy2", p(2), []Position{p(3), acc}},
		{"copy3", p(3), []Position{acc}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, prog.Follow(tc.from)); diff != "" {
				t.Errorf("Follow mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if diff := cmp.Diff([]Position{p(0)}, prog.First()); diff != "" {
		t.Errorf("First() mismatch (-want +got):\n%s", diff)
	}
	if prog.CanBeEmpty {
		t.Error("CanBeEmpty = true for a{2,4}")
	}
}

func TestParseUnboundedRepeat(t *testing.T) {
	prog := mustParse(t, "(a){2,}", 0)

	p := func(iter int) Position { return NewPosition(0).WithIter(iter) }
	// The last copy loops back to itself.
	if diff := cmp.Diff([]Position{p(1), Accept(1)}, prog.Follow(p(1))); diff != "" {
		t.Errorf("Follow(last copy) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{p(1)}, prog.Follow(p(0))); diff != "" {
		t.Errorf("Follow(first copy) mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLazyStar(t *testing.T) {
	prog := mustParse(t, "a*?b", 0)

	if got := prog.LazyGroups; got != 1 {
		t.Fatalf("LazyGroups = %d, want 1", got)
	}
	a := NewPosition(0).WithLazy(1)
	b := NewPosition(1)
	// Lazy tags occupy high bits, so b sorts before the tagged a.
	if diff := cmp.Diff([]Position{b, a}, prog.First()); diff != "" {
		t.Errorf("First() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{b, a}, prog.Follow(a)); diff != "" {
		t.Errorf("Follow(a) mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLookahead(t *testing.T) {
	prog := mustParse(t, "a(?=bc)", 0)

	if got := prog.Lookaheads; got != 1 {
		t.Fatalf("Lookaheads = %d, want 1", got)
	}
	a, b, c := NewPosition(0), NewPosition(1), NewPosition(2)
	head, tail := Head(1), Tail(1)
	if diff := cmp.Diff([]Position{head}, prog.Follow(a)); diff != "" {
		t.Errorf("Follow(a) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{b}, prog.Follow(head)); diff != "" {
		t.Errorf("Follow(head) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{tail}, prog.Follow(c)); diff != "" {
		t.Errorf("Follow(c) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{Accept(1)}, prog.Follow(tail)); diff != "" {
		t.Errorf("Follow(tail) mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNegativePattern(t *testing.T) {
	prog := mustParse(t, "(?^ab)", 0)

	a := NewPosition(0).WithNegate()
	b := NewPosition(1).WithNegate()
	if diff := cmp.Diff([]Position{a}, prog.First()); diff != "" {
		t.Errorf("First() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{b}, prog.Follow(a)); diff != "" {
		t.Errorf("Follow(a) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{Accept(1).WithNegate()}, prog.Follow(b)); diff != "" {
		t.Errorf("Follow(b) mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAnchors(t *testing.T) {
	prog := mustParse(t, "^a$", 0)

	if got := prog.Positions(); got != 3 {
		t.Fatalf("Positions() = %d, want 3", got)
	}
	bol := prog.First()[0]
	if !bol.IsAnchor() {
		t.Error("first position is not an anchor")
	}
	cls := prog.ClassOf(bol)
	if !cls.Contains(MetaBOB) {
		t.Errorf("anchor class = %v, want MetaBOB", cls.Spans())
	}
	eol := NewPosition(2)
	if !prog.ClassOf(eol).Contains(MetaEOB) {
		t.Errorf("trailing anchor class = %v, want MetaEOB", prog.ClassOf(eol).Spans())
	}
}

func TestParseMultilineAnchors(t *testing.T) {
	prog := mustParse(t, "^a", FlagMultiline)
	bol := prog.First()[0]
	if !prog.ClassOf(bol).Contains(MetaBOL) {
		t.Error("^ with FlagMultiline should consume MetaBOL")
	}
}

func TestParseClasses(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		flags   Flags
		in      []Symbol
		out     []Symbol
	}{
		{"range", "[a-c]", 0, []Symbol{'a', 'b', 'c'}, []Symbol{'d', '`'}},
		{"negated", "[^a]", 0, []Symbol{0x00, 'b', 0xFF}, []Symbol{'a'}},
		{"posix", "[[:digit:]]", 0, []Symbol{'0', '9'}, []Symbol{'a'}},
		{"posix negated", "[[:^digit:]]", 0, []Symbol{'a'}, []Symbol{'5'}},
		{"escape class", `[\d]`, 0, []Symbol{'7'}, []Symbol{'x'}},
		{"subtract", "[a-z--[aeiou]]", 0, []Symbol{'b', 'z'}, []Symbol{'a', 'e'}},
		{"intersect", "[a-f&&[d-z]]", 0, []Symbol{'d', 'e', 'f'}, []Symbol{'c', 'g'}},
		{"union", "[a-c||[x-z]]", 0, []Symbol{'b', 'y'}, []Symbol{'m'}},
		{"folded", "[a-c]", FlagIgnoreCase, []Symbol{'a', 'B'}, []Symbol{'d', 'D'}},
		{"literal bracket", "[]a]", 0, []Symbol{']', 'a'}, []Symbol{'b'}},
		{"backspace", `[\b]`, 0, []Symbol{0x08}, []Symbol{'b'}},
		{"hex range", `[\x41-\x43]`, 0, []Symbol{'A', 'C'}, []Symbol{'D'}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := Parse(tc.pattern, tc.flags, nil, DefaultLimits())
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tc.pattern, err)
			}
			if prog.Positions() != 1 {
				t.Fatalf("Positions() = %d, want 1", prog.Positions())
			}
			cls := prog.ClassOf(NewPosition(0))
			for _, s := range tc.in {
				if !cls.Contains(s) {
					t.Errorf("class %q should contain %q", tc.pattern, s)
				}
			}
			for _, s := range tc.out {
				if cls.Contains(s) {
					t.Errorf("class %q should not contain %q", tc.pattern, s)
				}
			}
		})
	}
}

func TestParseUnicodeLiteral(t *testing.T) {
	// U+03B1 encodes as 0xCE 0xB1. A bare multi-byte literal is still a
	// pure string and goes to the trie; a quantifier forces it through
	// the position machinery with one position per byte.
	prog := mustParse(t, "α", FlagUnicode)

	if got := prog.Positions(); got != 0 {
		t.Fatalf("literal Positions() = %d, want 0 (trie routed)", got)
	}
	if prog.Trie == nil {
		t.Fatal("literal produced no trie")
	}
	n := prog.Trie.Root()
	for _, b := range []byte{0xCE, 0xB1} {
		var ok bool
		if n, ok = prog.Trie.Step(n, b); !ok {
			t.Fatalf("trie missing byte %#x", b)
		}
	}
	if got := prog.Trie.Accept(n); got != 1 {
		t.Fatalf("trie Accept = %d, want 1", got)
	}

	prog = mustParse(t, "α+", FlagUnicode)
	if got := prog.Positions(); got != 2 {
		t.Fatalf("quantified Positions() = %d, want 2", got)
	}
	if !prog.ClassOf(NewPosition(0)).Contains(0xCE) {
		t.Error("lead byte class should contain 0xCE")
	}
	if !prog.ClassOf(NewPosition(1)).Contains(0xB1) {
		t.Error("continuation byte class should contain 0xB1")
	}
}

func TestParseUnicodeClassExpansion(t *testing.T) {
	// A multi-byte range expands into byte alternations; just check the
	// expansion produced positions and a sane start set.
	prog := mustParse(t, `[\x{80}-\x{7FF}]`, FlagUnicode)

	if prog.Positions() < 2 {
		t.Fatalf("Positions() = %d, want at least lead+continuation", prog.Positions())
	}
	first := prog.First()
	if len(first) == 0 {
		t.Fatal("empty start set")
	}
	cls := prog.ClassOf(first[0])
	if !cls.Contains(0xC2) || !cls.Contains(0xDF) {
		t.Errorf("lead class = %v, want 0xC2-0xDF", cls.Spans())
	}
}

func TestParseMacros(t *testing.T) {
	macros := map[string]string{
		"digit": `[0-9]`,
		"num":   `{digit}+`,
	}
	prog, err := Parse(`{num}`, 0, macros, DefaultLimits())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := prog.Positions(); got != 1 {
		t.Fatalf("Positions() = %d, want 1", got)
	}
	p := NewPosition(0)
	if diff := cmp.Diff([]Position{p, Accept(1)}, prog.Follow(p)); diff != "" {
		t.Errorf("Follow mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInlineModifiers(t *testing.T) {
	prog := mustParse(t, "(?i)(a)", 0)
	cls := prog.ClassOf(NewPosition(0))
	if !cls.Contains('a') || !cls.Contains('A') {
		t.Errorf("class after (?i) = %v, want folded", cls.Spans())
	}

	prog = mustParse(t, "((?i:a)(b))", 0)
	if prog.ClassOf(NewPosition(0)).Contains('A') != true {
		t.Error("scoped (?i:...) should fold inside the group")
	}
	if prog.ClassOf(NewPosition(1)).Contains('B') {
		t.Error("scoped (?i:...) leaked past its group")
	}
}

func TestParseFreeSpace(t *testing.T) {
	prog := mustParse(t, "(a b) # trailing comment", FlagFreeSpace)
	if got := prog.Positions(); got != 2 {
		t.Errorf("Positions() = %d, want 2 (whitespace ignored)", got)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		pattern string
		kind    ErrorKind
		pos     int
	}{
		{"", ErrorEmptyExpression, 0},
		{"(a", ErrorMismatchedParens, 0},
		{"a)", ErrorMismatchedParens, 1},
		{"x(y(z)", ErrorMismatchedParens, 1},
		{"[a", ErrorMismatchedBrackets, 0},
		{"a{3,1}", ErrorInvalidRepeat, 1},
		{"a{2", ErrorMismatchedBraces, 1},
		{`\Qab`, ErrorMismatchedQuotes, 0},
		{"*a", ErrorInvalidQuantifier, 0},
		{"a**", ErrorInvalidQuantifier, 2},
		{"^*", ErrorInvalidAnchor, 1},
		{"{nope}", ErrorUndefinedName, 0},
		{`\p{NoSuchClass}`, ErrorInvalidClass, 0},
		{"[z-a]", ErrorInvalidClassRange, 2},
		{`\k`, ErrorInvalidEscape, 0},
		{`\1`, ErrorInvalidEscape, 0},
		{"(?j)a", ErrorInvalidModifier, 2},
		{"a{1,99999}", ErrorExceedsLimits, 1},
	}
	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			_, err := Parse(tc.pattern, 0, nil, DefaultLimits())
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want %v", tc.pattern, tc.kind)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if pe.Kind != tc.kind {
				t.Errorf("kind = %v, want %v", pe.Kind, tc.kind)
			}
			if pe.Pos != tc.pos {
				t.Errorf("pos = %d, want %d", pe.Pos, tc.pos)
			}
		})
	}
}

func TestParseNullable(t *testing.T) {
	cases := []struct {
		pattern string
		empty   bool
	}{
		{"(a?)", true},
		{"(a*)", true},
		{"(a+)", false},
		{"(a){0,3}", true},
		{"(a){1,3}", false},
		{"(a|)", true},
	}
	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			prog := mustParse(t, tc.pattern, 0)
			if prog.CanBeEmpty != tc.empty {
				t.Errorf("CanBeEmpty = %v, want %v", prog.CanBeEmpty, tc.empty)
			}
		})
	}
}

func TestParseNestedRepeat(t *testing.T) {
	// Inner {2} uses one iter layer; the outer {2} must shift by the
	// inner width so copies stay disjoint.
	prog := mustParse(t, "(a{2}){2}", 0)

	p := func(iter int) Position { return NewPosition(0).WithIter(iter) }
	if diff := cmp.Diff([]Position{p(1)}, prog.Follow(p(0))); diff != "" {
		t.Errorf("Follow(p0) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{p(2)}, prog.Follow(p(1))); diff != "" {
		t.Errorf("Follow(p1) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{p(3)}, prog.Follow(p(2))); diff != "" {
		t.Errorf("Follow(p2) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Position{Accept(1)}, prog.Follow(p(3))); diff != "" {
		t.Errorf("Follow(p3) mismatch (-want +got):\n%s", diff)
	}
}
