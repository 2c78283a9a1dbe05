// Package predict turns the analysis of a compiled automaton into the
// acceleration artifact the matcher consults before stepping opcodes: a
// bundle of literal, bitap, hashed and cut tables together with the
// scan routines that exploit them. The artifact round-trips through
// Marshal/Unmarshal independently of the opcode table.
package predict

import (
	"slices"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/redfa/dfa"
)

// Method identifies the scan strategy a predictor settled on.
type Method uint8

const (
	MethodNone        Method = iota // attempt every position
	MethodMemmem                    // literal prefix via substring search
	MethodBoyerMoore                // long literal, bad-character skip loop
	MethodBitap                     // shift-and over the byte/offset table
	MethodHash                      // chained-hash window probe
	MethodCut                       // rare-byte hunt at a fixed match offset
	MethodAhoCorasick               // many-literal alternation
)

// Strategy thresholds. A literal of bmThreshold bytes amortizes the
// Boyer-Moore skip loop; alternations past acThreshold literals beat
// per-byte scanning with an Aho-Corasick automaton.
const (
	bmThreshold = 8
	acThreshold = 8
	maxCutHunt  = 3
)

// byteSet is a 256-bit membership table.
type byteSet [32]byte

func (s *byteSet) add(b byte) { s[b>>3] |= 1 << (b & 7) }

func (s *byteSet) has(b byte) bool { return s[b>>3]&(1<<(b&7)) != 0 }

// Predictor is the finalized acceleration artifact. It is immutable
// after construction and safe for concurrent use.
type Predictor struct {
	Min   int    // shortest possible match length
	Exact bool   // the pattern is exactly Chr
	Chr   []byte // literal prefix of every match

	// Bit[b] has bit k set when byte b may appear at match offset k.
	Bit    [256]uint8
	BitLen int

	// PMH and PMA map chain hashes of match prefixes to offset bits;
	// PMA is the compact table covering only the first four offsets,
	// used when fewer than four bytes are guaranteed.
	PMH    []uint8
	PMA    []uint8
	PMHLen int

	// Cut lists the bytes every match carries at offset CutDepth-1.
	// Fst and Cbk hold the bytes possible at offset zero and at the
	// offset before the cut, for cheap candidate rejection. Lbm and
	// Lbk bound the lookback from a cut hit to the match start.
	CutDepth int
	Cut      []byte
	Fst      byteSet
	Cbk      byteSet
	Lbk, Lbm uint16

	method  Method
	shift   [256]uint8 // Boyer-Moore bad-character shifts for Chr
	skip    int        // shift taken when the final byte matched
	bitLen  int        // usable bitap window
	hashLen int        // usable hashed window
	hfa     [][]byte   // deep hash bitsets, not serialized
	lits    [][]byte
	maxLit  int
	ac      *ahocorasick.Automaton
}

// New builds a predictor from the automaton analysis. For a plain
// literal alternation, lits carries the alternatives so wide ones can
// delegate to an Aho-Corasick automaton; pass nil otherwise.
func New(a *dfa.Analysis, lits [][]byte) *Predictor {
	p := &Predictor{
		Min:      a.MinLen,
		Exact:    a.Exact,
		Chr:      slices.Clone(a.Prefix),
		Bit:      a.Bit,
		BitLen:   a.BitLen,
		PMH:      slices.Clone(a.PMH),
		PMHLen:   a.PMHLen,
		CutDepth: a.CutDepth,
		Cut:      slices.Clone(a.Cut),
		Lbk:      a.Lbk,
		Lbm:      a.Lbm,
		hfa:      a.HFA,
	}
	p.PMA = make([]uint8, len(p.PMH))
	for i, v := range p.PMH {
		p.PMA[i] = v & 0x0F
	}
	for _, b := range a.Fst {
		p.Fst.add(b)
	}
	for _, b := range a.Cbk {
		p.Cbk.add(b)
	}
	if len(lits) > acThreshold {
		builder := ahocorasick.NewBuilder()
		for _, lit := range lits {
			builder.AddPattern(lit)
		}
		if auto, err := builder.Build(); err == nil {
			p.ac = auto
			p.lits = lits
		}
	}
	p.finish()
	return p
}

// finish derives the scan state shared by New and Unmarshal.
func (p *Predictor) finish() {
	n := len(p.Chr)
	if n >= 2 {
		for i := range p.shift {
			p.shift[i] = uint8(n)
		}
		for j := 0; j < n-1; j++ {
			p.shift[p.Chr[j]] = uint8(n - 1 - j)
		}
		p.skip = int(p.shift[p.Chr[n-1]])
	}
	p.bitLen = min(p.BitLen, p.Min, 8)
	p.hashLen = min(p.PMHLen, p.Min, 8)
	for _, lit := range p.lits {
		p.maxLit = max(p.maxLit, len(lit))
	}
	p.method = p.selectMethod()
}

func (p *Predictor) selectMethod() Method {
	switch {
	case p.ac != nil:
		return MethodAhoCorasick
	case len(p.Chr) >= bmThreshold:
		return MethodBoyerMoore
	case len(p.Chr) >= 2:
		return MethodMemmem
	case p.CutDepth > 0 && len(p.Cut) <= maxCutHunt:
		return MethodCut
	case p.hashLen >= 2:
		return MethodHash
	case p.bitLen >= 1:
		return MethodBitap
	}
	return MethodNone
}

// Method returns the selected scan strategy.
func (p *Predictor) Method() Method {
	return p.method
}
