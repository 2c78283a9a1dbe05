package nfa

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/coregx/redfa/internal/ranges"
	"github.com/coregx/redfa/uniclass"
	"github.com/coregx/redfa/utf8ranges"
)

// maxExpandDepth bounds macro and class-fragment expansion nesting.
const maxExpandDepth = 64

// Parse compiles a pattern into its followpos program. macros maps
// {name} references to sub-patterns and may be nil.
func Parse(pattern string, flags Flags, macros map[string]string, limits Limits) (*Program, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, &ParseError{Kind: ErrorEmptyExpression}
	}
	prog := newProgram(flags)
	p := &parser{prog: prog, pat: pattern, flags: flags, macros: macros, limits: limits}
	if err := p.parseTop(); err != nil {
		return nil, err
	}
	return prog, nil
}

// parser holds the state of one recursive descent over a pattern (or a
// macro body, or a UTF-8 expansion fragment; those get a child parser
// sharing the same program).
type parser struct {
	prog   *Program
	pat    string
	pos    int
	base   int // error-position offset when parsing expanded text
	flags  Flags
	macros map[string]string
	limits Limits
	depth  int
}

// result is the Glushkov summary of one subexpression: the positions
// that can start it, the positions that can end it, and whether it
// matches the empty string. The loc and look ranges delimit the
// positions the subexpression owns, so quantifiers can retag them when
// replicating or marking the subexpression.
type result struct {
	First    []Position
	Last     []Position
	Nullable bool

	locLo, locHi   int // class indexes owned, [lo, hi)
	lookLo, lookHi int // lookahead indexes owned, [lo, hi)
	iters          int // repetition layers consumed by iter tags
	anchor         bool
}

func (p *parser) err(k ErrorKind, at int) error {
	return &ParseError{Kind: k, Pos: p.base + at}
}

func (p *parser) empty() result {
	n := len(p.prog.classes)
	k := p.prog.Lookaheads + 1
	return result{Nullable: true, locLo: n, locHi: n, lookLo: k, lookHi: k}
}

func (p *parser) parseTop() error {
	choice := 0
	for {
		choice++
		if choice > p.limits.MaxChoices {
			return p.err(ErrorExceedsLimits, p.pos)
		}
		if lit, ok := p.literalAlt(); ok {
			if p.prog.Trie == nil {
				p.prog.Trie = NewTrie()
			}
			p.prog.Trie.Insert(lit, choice)
			if len(lit) == 0 {
				p.prog.CanBeEmpty = true
			}
		} else {
			r, err := p.parseConcat()
			if err != nil {
				return err
			}
			p.addAccept(r, choice)
		}
		if p.pos < len(p.pat) && p.pat[p.pos] == '|' {
			p.pos++
			continue
		}
		break
	}
	if p.pos < len(p.pat) {
		if p.pat[p.pos] == ')' {
			return p.err(ErrorMismatchedParens, p.pos)
		}
		return p.err(ErrorInvalidSyntax, p.pos)
	}
	p.prog.Choices = choice
	return nil
}

// addAccept terminates one top-level alternative: every last position
// gains a follow edge to the accept marker, and nullable alternatives
// put the marker straight into the start set.
func (p *parser) addAccept(r result, choice int) {
	acc := Accept(choice)
	for _, l := range r.Last {
		t := acc
		if l.IsNegated() {
			t = t.WithNegate()
		}
		p.prog.addFollow(l, []Position{t})
	}
	p.prog.first = mergePositions(p.prog.first, r.First)
	if r.Nullable {
		p.prog.first = mergePositions(p.prog.first, []Position{acc})
		p.prog.CanBeEmpty = true
	}
}

// literalAlt tries to consume the current top-level alternative as a
// plain literal for the trie. Only simple escapes are allowed; anything
// structural falls back to the position machinery. Case folding and
// free-space mode disable the fast path.
func (p *parser) literalAlt() ([]byte, bool) {
	if p.flags&(FlagIgnoreCase|FlagFreeSpace) != 0 {
		return nil, false
	}
	out := []byte{}
	i := p.pos
	for i < len(p.pat) {
		c := p.pat[i]
		switch c {
		case '|':
			p.pos = i
			return out, true
		case '(', ')', '[', ']', '{', '}', '*', '+', '?', '.', '^', '$':
			return nil, false
		case '\\':
			if i+1 >= len(p.pat) {
				return nil, false
			}
			if strings.IndexByte("AzbB<>QEdDwWsShHvVlpP", p.pat[i+1]) >= 0 {
				return nil, false
			}
			q := *p
			q.pos = i + 1
			r, err := q.escRune()
			if err != nil {
				return nil, false
			}
			if r < 0x80 || p.flags&FlagUnicode == 0 {
				out = append(out, byte(r))
			} else {
				out = utf8.AppendRune(out, r)
			}
			i = q.pos
		default:
			out = append(out, c)
			i++
		}
	}
	p.pos = i
	return out, true
}

// parseAlternation handles '|' inside groups; at the top level each
// alternative is instead a separate choice with its own accept marker.
func (p *parser) parseAlternation() (result, error) {
	r, err := p.parseConcat()
	if err != nil {
		return result{}, err
	}
	for p.pos < len(p.pat) && p.pat[p.pos] == '|' {
		p.pos++
		q, err := p.parseConcat()
		if err != nil {
			return result{}, err
		}
		r = p.alternate(r, q)
	}
	return r, nil
}

func (p *parser) parseConcat() (result, error) {
	var r result
	have := false
	for {
		p.skipSpace()
		if p.pos >= len(p.pat) || p.pat[p.pos] == '|' || p.pat[p.pos] == ')' {
			break
		}
		q, err := p.parseQuantified()
		if err != nil {
			return result{}, err
		}
		if !have {
			r, have = q, true
		} else {
			r = p.concat(r, q)
		}
	}
	if !have {
		r = p.empty()
	}
	return r, nil
}

func (p *parser) parseQuantified() (result, error) {
	r, err := p.parseAtom()
	if err != nil {
		return result{}, err
	}
	p.skipSpace()
	if p.pos >= len(p.pat) {
		return r, nil
	}
	at := p.pos
	applied := false
	switch p.pat[p.pos] {
	case '*', '+', '?':
		op := p.pat[p.pos]
		p.pos++
		if r.anchor && len(r.First) > 0 {
			return result{}, p.err(ErrorInvalidAnchor, at)
		}
		lazy, err := p.takeLazy()
		if err != nil {
			return result{}, err
		}
		switch op {
		case '*':
			r = p.star(r, lazy)
		case '+':
			r = p.plus(r, lazy)
		case '?':
			r = p.opt(r, lazy)
		}
		applied = true
	case '{':
		j := p.pos + 1
		if j >= len(p.pat) || (!isDigit(p.pat[j]) && p.pat[j] != ',') {
			return r, nil // {name} macro, next atom
		}
		if r.anchor && len(r.First) > 0 {
			return result{}, p.err(ErrorInvalidAnchor, at)
		}
		r, err = p.parseRepeat(r)
		if err != nil {
			return result{}, err
		}
		lazy, err := p.takeLazy()
		if err != nil {
			return result{}, err
		}
		if lazy > 0 {
			r = p.retagLazy(r, lazy)
		}
		applied = true
	}
	if applied && p.pos < len(p.pat) {
		switch p.pat[p.pos] {
		case '*', '+', '?':
			return result{}, p.err(ErrorInvalidQuantifier, p.pos)
		}
	}
	return r, nil
}

func (p *parser) parseAtom() (result, error) {
	at := p.pos
	switch c := p.pat[p.pos]; c {
	case '(':
		return p.parseGroup()
	case '[':
		return p.parseClass()
	case '.':
		p.pos++
		return p.dotResult(at)
	case '^':
		p.pos++
		if p.flags&FlagMultiline != 0 {
			return p.metaResult(MetaBOL, at)
		}
		return p.metaResult(MetaBOB, at)
	case '$':
		p.pos++
		if p.flags&FlagMultiline != 0 {
			return p.metaResult(MetaEOL, at)
		}
		return p.metaResult(MetaEOB, at)
	case '\\':
		return p.parseEscape()
	case '{':
		return p.parseMacro()
	case '*', '+', '?':
		return result{}, p.err(ErrorInvalidQuantifier, at)
	default:
		if p.flags&FlagUnicode != 0 {
			if c < 0x80 {
				p.pos++
				return p.literalRune(rune(c), at)
			}
			r, size := utf8.DecodeRuneInString(p.pat[p.pos:])
			if r != utf8.RuneError || size > 1 {
				p.pos += size
				return p.literalRune(r, at)
			}
			// Invalid UTF-8 in the pattern stays a raw byte.
		}
		p.pos++
		return p.symResult(p.byteClass(c), false, at)
	}
}

// Combinators.

func (p *parser) concat(a, b result) result {
	for _, l := range a.Last {
		p.prog.addFollow(l, b.First)
	}
	r := result{Nullable: a.Nullable && b.Nullable}
	if a.Nullable {
		r.First = mergePositions(a.First, b.First)
	} else {
		r.First = a.First
	}
	if b.Nullable {
		r.Last = mergePositions(a.Last, b.Last)
	} else {
		r.Last = b.Last
	}
	r.locLo, r.locHi = mergeSpan(a.locLo, a.locHi, b.locLo, b.locHi)
	r.lookLo, r.lookHi = mergeSpan(a.lookLo, a.lookHi, b.lookLo, b.lookHi)
	r.iters = max(a.iters, b.iters)
	r.anchor = a.anchor && b.anchor
	return r
}

func (p *parser) alternate(a, b result) result {
	r := result{
		First:    mergePositions(a.First, b.First),
		Last:     mergePositions(a.Last, b.Last),
		Nullable: a.Nullable || b.Nullable,
		iters:    max(a.iters, b.iters),
		anchor:   a.anchor && b.anchor,
	}
	r.locLo, r.locHi = mergeSpan(a.locLo, a.locHi, b.locLo, b.locHi)
	r.lookLo, r.lookHi = mergeSpan(a.lookLo, a.lookHi, b.lookLo, b.lookHi)
	return r
}

func (p *parser) star(r result, lazy int) result {
	for _, l := range r.Last {
		p.prog.addFollow(l, r.First)
	}
	r.Nullable = true
	if lazy > 0 {
		r = p.retagLazy(r, lazy)
	}
	return r
}

func (p *parser) plus(r result, lazy int) result {
	for _, l := range r.Last {
		p.prog.addFollow(l, r.First)
	}
	if lazy > 0 {
		r = p.retagLazy(r, lazy)
	}
	return r
}

func (p *parser) opt(r result, lazy int) result {
	r.Nullable = true
	if lazy > 0 {
		r = p.retagLazy(r, lazy)
	}
	return r
}

// takeLazy consumes a trailing '?' and allocates a lazy group for it.
func (p *parser) takeLazy() (int, error) {
	if p.pos < len(p.pat) && p.pat[p.pos] == '?' {
		at := p.pos
		p.pos++
		if p.prog.LazyGroups >= p.limits.MaxLazy {
			return 0, p.err(ErrorExceedsLimits, at)
		}
		p.prog.LazyGroups++
		return p.prog.LazyGroups, nil
	}
	return 0, nil
}

// Bounded repetition: the subexpression is virtually unrolled by
// replicating its internal follow edges with distinct iter tags, then
// the copies are chained like a written-out concatenation.

func (p *parser) parseRepeat(r result) (result, error) {
	at := p.pos // '{'
	p.pos++
	n := p.digits()
	bounded := true
	m := n
	if p.pos < len(p.pat) && p.pat[p.pos] == ',' {
		p.pos++
		if p.pos < len(p.pat) && isDigit(p.pat[p.pos]) {
			m = p.digits()
		} else {
			bounded = false
		}
	}
	if p.pos >= len(p.pat) || p.pat[p.pos] != '}' {
		return result{}, p.err(ErrorMismatchedBraces, at)
	}
	p.pos++
	switch {
	case bounded && m < n:
		return result{}, p.err(ErrorInvalidRepeat, at)
	case bounded && m > p.limits.MaxRepeat,
		!bounded && n > p.limits.MaxRepeat:
		return result{}, p.err(ErrorExceedsLimits, at)
	}
	if len(r.First) == 0 {
		return r, nil
	}
	if bounded && m == 0 {
		return p.empty(), nil
	}
	if !bounded && n == 0 {
		return p.star(r, 0), nil
	}
	if !bounded && n == 1 {
		return p.plus(r, 0), nil
	}
	sub := max(r.iters, 1)
	total := m
	if !bounded {
		total = n
	}
	if total*sub-1 > MaxIter {
		return result{}, p.err(ErrorExceedsLimits, at)
	}
	entries := p.snapshot(r)
	copies := make([]result, total)
	copies[0] = r
	for k := 1; k < total; k++ {
		copies[k] = p.iterCopy(r, entries, k*sub)
	}
	if !bounded {
		last := copies[total-1]
		for _, l := range last.Last {
			p.prog.addFollow(l, last.First)
		}
	}
	var whole result
	if n > 0 {
		whole = copies[0]
		for k := 1; k < n; k++ {
			whole = p.concat(whole, copies[k])
		}
		if bounded && m > n {
			whole = p.concat(whole, p.optTail(copies, n, m))
		}
	} else {
		whole = p.optTail(copies, 0, m)
	}
	whole.iters = total * sub
	return whole, nil
}

// optTail builds the optional suffix X(X(X...)?)? over copies[n:m].
func (p *parser) optTail(copies []result, n, m int) result {
	t := copies[m-1]
	t.Nullable = true
	for k := m - 2; k >= n; k-- {
		t = p.concat(copies[k], t)
		t.Nullable = true
	}
	return t
}

func (p *parser) digits() int {
	v := 0
	for p.pos < len(p.pat) && isDigit(p.pat[p.pos]) {
		if v < 1<<20 {
			v = v*10 + int(p.pat[p.pos]-'0')
		}
		p.pos++
	}
	return v
}

// Position retagging.

// inRange reports whether q belongs to the subexpression r: symbol
// positions by class index, lookahead markers by lookahead index.
func (p *parser) inRange(q Position, r result) bool {
	if q.IsAccept() {
		return false
	}
	if q.IsTicked() {
		return q.Loc() >= r.lookLo && q.Loc() < r.lookHi
	}
	return q.Loc() >= r.locLo && q.Loc() < r.locHi
}

type followEntry struct {
	key     Position
	targets []Position
}

// snapshot captures the follow edges internal to r.
func (p *parser) snapshot(r result) []followEntry {
	var out []followEntry
	for k, v := range p.prog.follow {
		if p.inRange(k, r) {
			out = append(out, followEntry{k, slices.Clone(v)})
		}
	}
	return out
}

// iterCopy replays r's internal edges with every owned position shifted
// by shift iter layers, yielding an independent copy of the sub-NFA.
func (p *parser) iterCopy(r result, entries []followEntry, shift int) result {
	f := func(q Position) Position {
		if p.inRange(q, r) {
			return q.WithIter(q.Iter() + shift)
		}
		return q
	}
	for _, e := range entries {
		p.prog.addFollow(f(e.key), mapPositions(e.targets, f))
	}
	c := r
	c.First = mapPositions(r.First, f)
	c.Last = mapPositions(r.Last, f)
	return c
}

// remapFollow rewrites every follow edge internal to r through f.
func (p *parser) remapFollow(r result, f func(Position) Position) {
	entries := p.snapshot(r)
	for _, e := range entries {
		delete(p.prog.follow, e.key)
	}
	for _, e := range entries {
		p.prog.addFollow(f(e.key), mapPositions(e.targets, f))
	}
}

// retagLazy marks all untagged positions of r with the lazy group, so
// DFA states can tell lazy continuations apart and drop them once an
// accept is reached. Lookahead markers keep their tags.
func (p *parser) retagLazy(r result, lazy int) result {
	f := func(q Position) Position {
		if p.inRange(q, r) && !q.IsTicked() && q.Lazy() == 0 {
			return q.WithLazy(lazy)
		}
		return q
	}
	p.remapFollow(r, f)
	r.First = mapPositions(r.First, f)
	r.Last = mapPositions(r.Last, f)
	return r
}

// Groups.

func (p *parser) parseGroup() (result, error) {
	open := p.pos
	p.pos++ // '('
	if p.pos < len(p.pat) && p.pat[p.pos] == '?' {
		p.pos++
		if p.pos >= len(p.pat) {
			return result{}, p.err(ErrorMismatchedParens, open)
		}
		switch p.pat[p.pos] {
		case ':':
			p.pos++
			r, err := p.parseAlternation()
			if err != nil {
				return result{}, err
			}
			return r, p.expectClose(open)
		case '=':
			p.pos++
			return p.parseLookahead(open)
		case '^':
			p.pos++
			return p.parseNegative(open)
		case '#':
			for p.pos < len(p.pat) && p.pat[p.pos] != ')' {
				p.pos++
			}
			if p.pos >= len(p.pat) {
				return result{}, p.err(ErrorMismatchedParens, open)
			}
			p.pos++
			return p.empty(), nil
		default:
			return p.parseModifiers(open)
		}
	}
	r, err := p.parseAlternation()
	if err != nil {
		return result{}, err
	}
	return r, p.expectClose(open)
}

func (p *parser) expectClose(open int) error {
	if p.pos < len(p.pat) && p.pat[p.pos] == ')' {
		p.pos++
		return nil
	}
	return p.err(ErrorMismatchedParens, open)
}

// parseLookahead compiles (?=B) as head-marker B tail-marker. The
// markers consume nothing; the DFA records which lookahead groups a
// state opens and closes and the matcher resolves the recorded head
// positions when a tail is reached.
func (p *parser) parseLookahead(open int) (result, error) {
	look := p.prog.Lookaheads + 1
	if look > p.limits.MaxLookaheads {
		return result{}, p.err(ErrorExceedsLimits, open)
	}
	p.prog.Lookaheads = look
	hr := p.markerResult(Head(look), look)
	body, err := p.parseAlternation()
	if err != nil {
		return result{}, err
	}
	tr := p.markerResult(Tail(look), look)
	r := p.concat(p.concat(hr, body), tr)
	return r, p.expectClose(open)
}

func (p *parser) markerResult(q Position, look int) result {
	n := len(p.prog.classes)
	return result{
		First: []Position{q},
		Last:  []Position{q},
		locLo: n, locHi: n,
		lookLo: look, lookHi: look + 1,
		iters: 1,
	}
}

// parseNegative compiles (?^B): B matches and the match is then
// discarded. Every position of the body is negate-tagged; an accept
// reached only through negated positions becomes a REDO opcode that
// clears the pending match instead of recording one.
func (p *parser) parseNegative(open int) (result, error) {
	body, err := p.parseAlternation()
	if err != nil {
		return result{}, err
	}
	f := func(q Position) Position {
		if p.inRange(q, body) {
			return q.WithNegate()
		}
		return q
	}
	p.remapFollow(body, f)
	body.First = mapPositions(body.First, f)
	body.Last = mapPositions(body.Last, f)
	return body, p.expectClose(open)
}

func (p *parser) parseModifiers(open int) (result, error) {
	minus := false
	saved := p.flags
	for p.pos < len(p.pat) {
		c := p.pat[p.pos]
		var f Flags
		switch c {
		case ')':
			p.pos++
			return p.empty(), nil
		case ':':
			p.pos++
			r, err := p.parseAlternation()
			if err != nil {
				return result{}, err
			}
			err = p.expectClose(open)
			p.flags = saved
			return r, err
		case '-':
			minus = true
			p.pos++
			continue
		case 'i':
			f = FlagIgnoreCase
		case 's':
			f = FlagDotAll
		case 'm':
			f = FlagMultiline
		case 'u':
			f = FlagUnicode
		case 'x':
			f = FlagFreeSpace
		default:
			return result{}, p.err(ErrorInvalidModifier, p.pos)
		}
		if minus {
			p.flags &^= f
		} else {
			p.flags |= f
		}
		p.pos++
	}
	return result{}, p.err(ErrorMismatchedParens, open)
}

// Macros.

func (p *parser) parseMacro() (result, error) {
	at := p.pos // '{'
	p.pos++
	start := p.pos
	for p.pos < len(p.pat) && p.pat[p.pos] != '}' {
		p.pos++
	}
	if p.pos >= len(p.pat) {
		return result{}, p.err(ErrorMismatchedBraces, at)
	}
	name := p.pat[start:p.pos]
	p.pos++
	body, ok := p.macros[name]
	if !ok {
		return result{}, p.err(ErrorUndefinedName, at)
	}
	return p.subParse(body, p.flags, at)
}

// subParse compiles expanded text (a macro body or a UTF-8 fragment)
// into the shared program. Errors are reported at the expansion site.
func (p *parser) subParse(text string, flags Flags, at int) (result, error) {
	if p.depth >= maxExpandDepth {
		return result{}, p.err(ErrorExceedsLimits, at)
	}
	sub := &parser{
		prog:   p.prog,
		pat:    text,
		flags:  flags,
		macros: p.macros,
		limits: p.limits,
		depth:  p.depth + 1,
	}
	r, err := sub.parseAlternation()
	if err == nil && sub.pos < len(text) {
		err = &ParseError{Kind: ErrorInvalidSyntax}
	}
	if err != nil {
		kind := ErrorInvalidSyntax
		if pe, ok := err.(*ParseError); ok {
			kind = pe.Kind
		}
		return result{}, p.err(kind, at)
	}
	return r, nil
}

// Atoms.

// symResult allocates a position consuming the given symbol class.
func (p *parser) symResult(set ranges.Set[Symbol], anchored bool, at int) (result, error) {
	loc := p.prog.newLoc(set, p.limits.MaxPositions)
	if loc < 0 {
		return result{}, p.err(ErrorExceedsLength, at)
	}
	q := NewPosition(loc)
	if anchored {
		q = q.WithAnchor()
	}
	k := p.prog.Lookaheads + 1
	return result{
		First: []Position{q},
		Last:  []Position{q},
		locLo: loc, locHi: loc + 1,
		lookLo: k, lookHi: k,
		iters:  1,
		anchor: anchored,
	}, nil
}

func (p *parser) metaResult(sym Symbol, at int) (result, error) {
	return p.symResult(ranges.New[Symbol](sym, sym), true, at)
}

// byteClass returns the class for a literal byte, case-folded when
// FlagIgnoreCase is set.
func (p *parser) byteClass(b byte) ranges.Set[Symbol] {
	s := ranges.New[Symbol](Symbol(b), Symbol(b))
	if p.flags&FlagIgnoreCase != 0 {
		switch {
		case b >= 'a' && b <= 'z':
			s.Insert(Symbol(b-32), Symbol(b-32))
		case b >= 'A' && b <= 'Z':
			s.Insert(Symbol(b+32), Symbol(b+32))
		}
	}
	return s
}

func (p *parser) dotResult(at int) (result, error) {
	if p.flags&FlagUnicode == 0 {
		s := ranges.New[Symbol](0, 0xFF)
		if p.flags&FlagDotAll == 0 {
			s.Erase('\n')
		}
		return p.symResult(s, false, at)
	}
	s := ranges.New[rune](0, uniclass.MaxRune)
	if p.flags&FlagDotAll == 0 {
		s.Erase('\n')
	}
	return p.runeClassResult(s, at)
}

// literalRune emits a literal code point: a single byte position, or a
// chain of byte positions for its UTF-8 encoding in Unicode mode. Case
// folding in Unicode mode goes through the full fold orbit, so even an
// ASCII literal can pick up multi-byte counterparts.
func (p *parser) literalRune(r rune, at int) (result, error) {
	if p.flags&FlagUnicode == 0 {
		return p.symResult(p.byteClass(byte(r)), false, at)
	}
	if p.flags&FlagIgnoreCase != 0 {
		set := ranges.New(r, r)
		p.foldRunes(&set)
		return p.runeClassResult(set, at)
	}
	if r < 0x80 {
		return p.symResult(p.byteClass(byte(r)), false, at)
	}
	var res result
	have := false
	for _, b := range utf8.AppendRune(nil, r) {
		br, err := p.symResult(ranges.New[Symbol](Symbol(b), Symbol(b)), false, at)
		if err != nil {
			return result{}, err
		}
		if !have {
			res, have = br, true
		} else {
			res = p.concat(res, br)
		}
	}
	return res, nil
}

// runeClassResult turns a code point class into positions: a plain byte
// class where possible, otherwise a byte-level UTF-8 fragment parsed
// inline into the same program.
func (p *parser) runeClassResult(set ranges.Set[rune], at int) (result, error) {
	if set.IsEmpty() {
		return result{}, p.err(ErrorEmptyClass, at)
	}
	if p.flags&FlagUnicode == 0 {
		var bs ranges.Set[Symbol]
		set.All(func(lo, hi rune) bool {
			if lo > 0xFF {
				return false
			}
			if hi > 0xFF {
				hi = 0xFF
			}
			bs.Insert(Symbol(lo), Symbol(hi))
			return true
		})
		if bs.IsEmpty() {
			return result{}, p.err(ErrorEmptyClass, at)
		}
		return p.symResult(bs, false, at)
	}
	if hi, ok := set.Hi(); ok && hi <= 0x7F {
		var bs ranges.Set[Symbol]
		set.All(func(lo, hi rune) bool {
			bs.Insert(Symbol(lo), Symbol(hi))
			return true
		})
		return p.symResult(bs, false, at)
	}
	mode := utf8ranges.Strict
	if p.flags&FlagLean != 0 {
		mode = utf8ranges.Lean
	}
	var alts []string
	set.All(func(lo, hi rune) bool {
		if f := utf8ranges.Encode(lo, hi, mode); f != "" {
			alts = append(alts, f)
		}
		return true
	})
	if len(alts) == 0 {
		return result{}, p.err(ErrorEmptyClass, at)
	}
	frag := strings.Join(alts, "|")
	flags := (p.flags &^ (FlagUnicode | FlagIgnoreCase | FlagFreeSpace)) | FlagDotAll
	return p.subParse(frag, flags, at)
}

// Escapes.

func (p *parser) parseEscape() (result, error) {
	at := p.pos
	p.pos++ // backslash
	if p.pos >= len(p.pat) {
		return result{}, p.err(ErrorInvalidEscape, at)
	}
	switch p.pat[p.pos] {
	case 'A':
		p.pos++
		return p.metaResult(MetaBOB, at)
	case 'z':
		p.pos++
		return p.metaResult(MetaEOB, at)
	case 'b':
		p.pos++
		return p.metaResult(MetaBWB, at)
	case 'B':
		p.pos++
		return p.metaResult(MetaNWB, at)
	case '<':
		p.pos++
		return p.metaResult(MetaBWE, at)
	case '>':
		p.pos++
		return p.metaResult(MetaEWE, at)
	case 'Q':
		p.pos++
		return p.parseQuoted(at)
	}
	set, ok, err := p.escClassSet()
	if err != nil {
		return result{}, err
	}
	if ok {
		return p.runeClassResult(set, at)
	}
	r, err := p.escRune()
	if err != nil {
		return result{}, err
	}
	return p.literalRune(r, at)
}

// parseQuoted consumes a \Q...\E literal span.
func (p *parser) parseQuoted(at int) (result, error) {
	end := strings.Index(p.pat[p.pos:], `\E`)
	if end < 0 {
		return result{}, p.err(ErrorMismatchedQuotes, at)
	}
	lit := p.pat[p.pos : p.pos+end]
	p.pos += end + 2
	res := p.empty()
	for i := 0; i < len(lit); i++ {
		br, err := p.symResult(p.byteClass(lit[i]), false, at)
		if err != nil {
			return result{}, err
		}
		res = p.concat(res, br)
	}
	return res, nil
}

// escClassSet handles class-valued escapes (\d \w \s \h \v \l and
// \p{...}); p.pos is at the escape letter. Reports ok=false for
// escapes it does not own.
func (p *parser) escClassSet() (ranges.Set[rune], bool, error) {
	at := p.pos - 1
	c := p.pat[p.pos]
	var rs []uniclass.Range
	neg := false
	switch c {
	case 'd', 'D':
		rs, _ = uniclass.Lookup("Digit")
		neg = c == 'D'
	case 'w', 'W':
		rs, _ = uniclass.Lookup("Word")
		neg = c == 'W'
	case 's', 'S':
		rs, _ = uniclass.Lookup("Space")
		neg = c == 'S'
	case 'h', 'H':
		rs, _ = uniclass.Lookup("Blank")
		neg = c == 'H'
	case 'v', 'V':
		rs = []uniclass.Range{{Lo: 0x0A, Hi: 0x0D}}
		neg = c == 'V'
	case 'l':
		rs, _ = uniclass.Lookup("Lower")
	case 'u':
		// \u{...} is a code point escape; bare \u is the Upper class.
		if p.pos+1 < len(p.pat) && p.pat[p.pos+1] == '{' {
			return ranges.Set[rune]{}, false, nil
		}
		rs, _ = uniclass.Lookup("Upper")
	case 'p', 'P':
		p.pos++
		name, err := p.className(at)
		if err != nil {
			return ranges.Set[rune]{}, false, err
		}
		base, lneg := uniclass.Lookup(name)
		if base == nil {
			return ranges.Set[rune]{}, false, p.err(ErrorInvalidClass, at)
		}
		set := runeSet(base)
		if lneg != (c == 'P') {
			p.complementRunes(&set)
		}
		return set, true, nil
	default:
		return ranges.Set[rune]{}, false, nil
	}
	p.pos++
	set := runeSet(rs)
	if neg {
		p.complementRunes(&set)
	}
	return set, true, nil
}

func (p *parser) className(at int) (string, error) {
	if p.pos < len(p.pat) && p.pat[p.pos] == '{' {
		p.pos++
		start := p.pos
		for p.pos < len(p.pat) && p.pat[p.pos] != '}' {
			p.pos++
		}
		if p.pos >= len(p.pat) {
			return "", p.err(ErrorMismatchedBraces, at)
		}
		name := p.pat[start:p.pos]
		p.pos++
		return name, nil
	}
	if p.pos < len(p.pat) && isAlpha(p.pat[p.pos]) {
		name := string(p.pat[p.pos])
		p.pos++
		return name, nil
	}
	return "", p.err(ErrorInvalidClass, at)
}

// escRune decodes a single-value escape; p.pos is at the character
// after the backslash and advances past the escape.
func (p *parser) escRune() (rune, error) {
	at := p.pos - 1
	c := p.pat[p.pos]
	p.pos++
	switch c {
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'f':
		return '\f', nil
	case 'a':
		return 0x07, nil
	case 'e':
		return 0x1B, nil
	case '0':
		v := rune(0)
		for k := 0; k < 2 && p.pos < len(p.pat) && p.pat[p.pos] >= '0' && p.pat[p.pos] <= '7'; k++ {
			v = v<<3 | rune(p.pat[p.pos]-'0')
			p.pos++
		}
		return v, nil
	case 'x':
		if p.pos < len(p.pat) && p.pat[p.pos] == '{' {
			return p.braceHex(at)
		}
		if p.pos+1 >= len(p.pat) {
			return 0, p.err(ErrorInvalidEscape, at)
		}
		hi, ok1 := hexVal(p.pat[p.pos])
		lo, ok2 := hexVal(p.pat[p.pos+1])
		if !ok1 || !ok2 {
			return 0, p.err(ErrorInvalidEscape, at)
		}
		p.pos += 2
		return hi<<4 | lo, nil
	case 'u':
		if p.pos < len(p.pat) && p.pat[p.pos] == '{' {
			return p.braceHex(at)
		}
		return 0, p.err(ErrorInvalidEscape, at)
	case 'c':
		if p.pos >= len(p.pat) {
			return 0, p.err(ErrorInvalidEscape, at)
		}
		k := p.pat[p.pos]
		if k < 0x40 || k > 0x7E {
			return 0, p.err(ErrorInvalidEscape, at)
		}
		p.pos++
		return rune(k & 0x1F), nil
	default:
		if c >= 0x80 || isAlnum(c) {
			return 0, p.err(ErrorInvalidEscape, at)
		}
		return rune(c), nil
	}
}

// braceHex parses {HEX} after \x or \u.
func (p *parser) braceHex(at int) (rune, error) {
	p.pos++ // '{'
	v := rune(0)
	n := 0
	for p.pos < len(p.pat) && p.pat[p.pos] != '}' {
		d, ok := hexVal(p.pat[p.pos])
		if !ok || n >= 6 {
			return 0, p.err(ErrorInvalidEscape, at)
		}
		v = v<<4 | d
		n++
		p.pos++
	}
	if p.pos >= len(p.pat) || n == 0 {
		return 0, p.err(ErrorInvalidEscape, at)
	}
	p.pos++
	if v > uniclass.MaxRune || (v >= 0xD800 && v <= 0xDFFF) {
		return 0, p.err(ErrorInvalidEscape, at)
	}
	if v > 0xFF && p.flags&FlagUnicode == 0 {
		return 0, p.err(ErrorInvalidEscape, at)
	}
	return v, nil
}

// Small helpers.

func (p *parser) skipSpace() {
	if p.flags&FlagFreeSpace == 0 {
		return
	}
	for p.pos < len(p.pat) {
		switch p.pat[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case '#':
			for p.pos < len(p.pat) && p.pat[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) complementRunes(s *ranges.Set[rune]) {
	s.Complement(0, uniclass.MaxRune)
	sur := ranges.New[rune](0xD800, 0xDFFF)
	s.Subtract(sur)
}

func runeSet(rs []uniclass.Range) ranges.Set[rune] {
	var s ranges.Set[rune]
	for _, r := range rs {
		s.Insert(r.Lo, r.Hi)
	}
	return s
}

func mergeSpan(aLo, aHi, bLo, bHi int) (int, int) {
	if aLo >= aHi {
		return bLo, bHi
	}
	if bLo >= bHi {
		return aLo, aHi
	}
	return min(aLo, bLo), max(aHi, bHi)
}

func mergePositions(a, b []Position) []Position {
	out := make([]Position, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func mapPositions(list []Position, f func(Position) Position) []Position {
	out := make([]Position, len(list))
	for i, q := range list {
		out[i] = f(q)
	}
	slices.Sort(out)
	return out
}

func hexVal(c byte) (rune, bool) {
	switch {
	case c >= '0' && c <= '9':
		return rune(c - '0'), true
	case c >= 'a' && c <= 'f':
		return rune(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return rune(c-'A') + 10, true
	}
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }
