// Package redfa compiles regular expressions ahead of time into a
// table-driven DFA and matches them over byte slices or streams.
//
// Compilation runs the pattern through Glushkov position construction
// (nfa), subset construction with a fused literal trie (dfa), opcode
// encoding, and match-prediction analysis (predict). The resulting
// Pattern is immutable and safe to share across goroutines; each
// Matcher (matcher) holds the per-search state.
//
// Basic usage:
//
//	p, err := redfa.Compile(`[0-9]+`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := p.NewBytesMatcher([]byte("order 42, qty 7"))
//	for {
//	    start, end, choice, ok := m.Find()
//	    if !ok {
//	        break
//	    }
//	    fmt.Println(start, end, choice)
//	}
//
// Matches are reported POSIX leftmost-longest as [start, end) byte
// offsets plus the 1-based alternative number that matched.
package redfa

import (
	"io"
	"strconv"

	"github.com/coregx/redfa/dfa"
	"github.com/coregx/redfa/matcher"
	"github.com/coregx/redfa/nfa"
	"github.com/coregx/redfa/predict"
)

// config collects the knobs the functional options set.
type config struct {
	flags   nfa.Flags
	macros  map[string]string
	limits  nfa.Limits
	dfa     dfa.Config
	reverse bool
	lean    bool
}

// Option adjusts how Compile builds a Pattern.
type Option func(*config)

// WithFlags sets the dialect flags the pattern compiles under, as if
// the pattern opened with the matching inline (?...) modifiers.
func WithFlags(f nfa.Flags) Option {
	return func(c *config) { c.flags = f }
}

// WithMacros installs named subpatterns the pattern references as
// {name}.
func WithMacros(m map[string]string) Option {
	return func(c *config) { c.macros = m }
}

// WithLimits overrides the parser's structural limits.
func WithLimits(l nfa.Limits) Option {
	return func(c *config) { c.limits = l }
}

// WithMaxStates overrides the subset-construction state budget.
func WithMaxStates(n int) Option {
	return func(c *config) { c.dfa.MaxStates = n }
}

// WithReverseEdges encodes each state's byte transitions in descending
// order, for engines that scan backwards.
func WithReverseEdges() Option {
	return func(c *config) { c.reverse = true }
}

// WithLean skips the match-prediction tables. Compilation is faster
// and the Pattern smaller; matching attempts every input position.
func WithLean() Option {
	return func(c *config) { c.lean = true }
}

// Pattern is a compiled regular expression. It is immutable after
// Compile and may be shared by any number of concurrent matchers.
type Pattern struct {
	pattern string
	ops     *dfa.Opcodes
	pred    *predict.Predictor
	min     int
}

// Compile parses pattern and builds its automaton, opcode table and
// prediction tables. Errors are *nfa.ParseError or *dfa.BuildError.
func Compile(pattern string, opts ...Option) (*Pattern, error) {
	cfg := config{limits: nfa.DefaultLimits(), dfa: dfa.DefaultConfig()}
	for _, opt := range opts {
		opt(&cfg)
	}
	prog, err := nfa.Parse(pattern, cfg.flags, cfg.macros, cfg.limits)
	if err != nil {
		return nil, err
	}
	d, err := dfa.Build(prog, cfg.dfa)
	if err != nil {
		return nil, err
	}
	a := d.Analyze()
	p := &Pattern{
		pattern: pattern,
		ops:     d.Encode(cfg.reverse),
		min:     a.MinLen,
	}
	if cfg.lean {
		p.pred = &predict.Predictor{Min: a.MinLen}
	} else {
		p.pred = predict.New(a, trieLiterals(prog.Trie))
	}
	return p, nil
}

// MustCompile is Compile panicking on error, for package-level pattern
// variables.
func MustCompile(pattern string, opts ...Option) *Pattern {
	p, err := Compile(pattern, opts...)
	if err != nil {
		panic("redfa: Compile(" + strconv.Quote(pattern) + "): " + err.Error())
	}
	return p
}

// String returns the source text the pattern was compiled from.
func (p *Pattern) String() string { return p.pattern }

// NewMatcher returns a matcher reading input from r through a sliding
// window.
func (p *Pattern) NewMatcher(r io.Reader) *matcher.Matcher {
	return matcher.New(p.ops, p.pred, r)
}

// NewBytesMatcher returns a matcher over data, which must not be
// modified while the matcher is in use.
func (p *Pattern) NewBytesMatcher(data []byte) *matcher.Matcher {
	return matcher.NewBytes(p.ops, p.pred, data)
}

// Opcodes returns the encoded automaton.
func (p *Pattern) Opcodes() *dfa.Opcodes { return p.ops }

// Predictor returns the match-prediction tables, usable on their own
// for candidate scanning or serialization.
func (p *Pattern) Predictor() *predict.Predictor { return p.pred }

// MinLen returns the length in bytes of the shortest possible match.
func (p *Pattern) MinLen() int { return p.min }

// trieLiterals flattens the parser's literal trie into the byte
// strings it holds, feeding the many-literal scanner.
func trieLiterals(t *nfa.Trie) [][]byte {
	if t == nil {
		return nil
	}
	var out [][]byte
	var walk func(node int32, prefix []byte)
	walk = func(node int32, prefix []byte) {
		if t.Accept(node) > 0 {
			out = append(out, append([]byte(nil), prefix...))
		}
		for _, e := range t.Edges(node) {
			walk(e.Target, append(prefix, e.Byte))
		}
	}
	walk(0, nil)
	return out
}
