package nfa

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/redfa/internal/ranges"
	"github.com/coregx/redfa/uniclass"
)

// posixNames maps the lowercase [[:name:]] spellings to the canonical
// table names.
var posixNames = map[string]string{
	"alnum":  "Alnum",
	"alpha":  "Alpha",
	"ascii":  "ASCII",
	"blank":  "Blank",
	"cntrl":  "Cntrl",
	"digit":  "Digit",
	"graph":  "Graph",
	"lower":  "Lower",
	"print":  "Print",
	"punct":  "Punct",
	"space":  "Space",
	"upper":  "Upper",
	"word":   "Word",
	"xdigit": "XDigit",
}

// parseClass compiles a [...] atom; p.pos is at the opening bracket.
func (p *parser) parseClass() (result, error) {
	at := p.pos
	set, err := p.nestedClass()
	if err != nil {
		return result{}, err
	}
	return p.runeClassResult(set, at)
}

// nestedClass parses one bracket expression into a code point set,
// applying case folding and negation. Also used for the operands of
// the class algebra operators.
func (p *parser) nestedClass() (ranges.Set[rune], error) {
	at := p.pos // '['
	p.pos++
	neg := false
	if p.pos < len(p.pat) && p.pat[p.pos] == '^' {
		neg = true
		p.pos++
	}
	set, err := p.classBody(at)
	if err != nil {
		return set, err
	}
	if p.flags&FlagIgnoreCase != 0 {
		p.foldRunes(&set)
	}
	if neg {
		p.complementRunes(&set)
	}
	return set, nil
}

// classBody parses the items between the brackets, consuming the
// closing ']'. A ']' directly after the opening bracket (or '^') is a
// literal member, per POSIX.
func (p *parser) classBody(at int) (ranges.Set[rune], error) {
	var set ranges.Set[rune]
	first := true
	for {
		if p.pos >= len(p.pat) {
			return set, p.err(ErrorMismatchedBrackets, at)
		}
		c := p.pat[p.pos]
		if c == ']' && !first {
			p.pos++
			if set.IsEmpty() {
				return set, p.err(ErrorEmptyClass, at)
			}
			return set, nil
		}
		first = false
		// Class algebra: [a-z&&[...]], [a-z--[...]], [a-z||[...]].
		if (c == '&' || c == '-' || c == '|') &&
			p.pos+2 < len(p.pat) && p.pat[p.pos+1] == c && p.pat[p.pos+2] == '[' {
			p.pos += 2
			sub, err := p.nestedClass()
			if err != nil {
				return set, err
			}
			switch c {
			case '&':
				set.Intersect(sub)
			case '-':
				set.Subtract(sub)
			case '|':
				set.Union(sub)
			}
			continue
		}
		if c == '[' && p.pos+1 < len(p.pat) && p.pat[p.pos+1] == ':' {
			px, err := p.posixItem()
			if err != nil {
				return set, err
			}
			set.Union(px)
			continue
		}
		lo, isClass, cls, err := p.classItem()
		if err != nil {
			return set, err
		}
		if isClass {
			set.Union(cls)
			continue
		}
		if p.pos+1 < len(p.pat) && p.pat[p.pos] == '-' &&
			p.pat[p.pos+1] != ']' &&
			!(p.pat[p.pos+1] == '-' && p.pos+2 < len(p.pat) && p.pat[p.pos+2] == '[') {
			rangeAt := p.pos
			p.pos++
			hi, hiClass, _, err := p.classItem()
			if err != nil {
				return set, err
			}
			if hiClass || hi < lo {
				return set, p.err(ErrorInvalidClassRange, rangeAt)
			}
			set.Insert(lo, hi)
			continue
		}
		set.Insert(lo, lo)
	}
}

// classItem parses one member: a literal character, an escape, or a
// class-valued escape like \d or \p{L}.
func (p *parser) classItem() (rune, bool, ranges.Set[rune], error) {
	var none ranges.Set[rune]
	c := p.pat[p.pos]
	if c == '\\' {
		at := p.pos
		p.pos++
		if p.pos >= len(p.pat) {
			return 0, false, none, p.err(ErrorInvalidEscape, at)
		}
		if p.pat[p.pos] == 'b' { // backspace inside classes
			p.pos++
			return 0x08, false, none, nil
		}
		set, ok, err := p.escClassSet()
		if err != nil {
			return 0, false, none, err
		}
		if ok {
			return 0, true, set, nil
		}
		r, err := p.escRune()
		return r, false, none, err
	}
	if p.flags&FlagUnicode != 0 && c >= 0x80 {
		r, size := utf8.DecodeRuneInString(p.pat[p.pos:])
		if r != utf8.RuneError || size > 1 {
			p.pos += size
			return r, false, none, nil
		}
	}
	p.pos++
	return rune(c), false, none, nil
}

// posixItem parses [:name:] or [:^name:]; p.pos is at the '['.
func (p *parser) posixItem() (ranges.Set[rune], error) {
	var set ranges.Set[rune]
	at := p.pos
	p.pos += 2 // "[:"
	neg := false
	if p.pos < len(p.pat) && p.pat[p.pos] == '^' {
		neg = true
		p.pos++
	}
	start := p.pos
	for p.pos < len(p.pat) && p.pat[p.pos] != ':' {
		p.pos++
	}
	if p.pos+1 >= len(p.pat) || p.pat[p.pos+1] != ']' {
		return set, p.err(ErrorMismatchedBrackets, at)
	}
	name := p.pat[start:p.pos]
	p.pos += 2
	canon, ok := posixNames[strings.ToLower(name)]
	if !ok {
		return set, p.err(ErrorInvalidClass, at)
	}
	rs, _ := uniclass.Lookup(canon)
	set = runeSet(rs)
	if neg {
		p.complementRunes(&set)
	}
	return set, nil
}

// Runes outside [foldMin, foldMax] have no case counterparts.
const (
	foldMin = 0x0041
	foldMax = 0x1E943
)

// foldRunes adds the case counterparts of every letter in s: the full
// simple fold orbits in Unicode mode, the ASCII pairs otherwise.
func (p *parser) foldRunes(s *ranges.Set[rune]) {
	var add ranges.Set[rune]
	s.All(func(lo, hi rune) bool {
		if p.flags&FlagUnicode != 0 {
			for c := max(lo, foldMin); c <= min(hi, foldMax); c++ {
				for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
					add.Insert(f, f)
				}
			}
			return true
		}
		if l, h := max(lo, 'a'), min(hi, 'z'); l <= h {
			add.Insert(l-32, h-32)
		}
		if l, h := max(lo, 'A'), min(hi, 'Z'); l <= h {
			add.Insert(l+32, h+32)
		}
		return true
	})
	s.Union(add)
}
