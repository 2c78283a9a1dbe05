package matcher

import (
	"io"

	"github.com/coregx/redfa/dfa"
	"github.com/coregx/redfa/nfa"
	"github.com/coregx/redfa/predict"
)

// Matcher drives one input stream through a compiled automaton. It is
// stateful across calls (a cursor into the stream) and single-threaded;
// the opcode table and predictor it interprets are immutable and may be
// shared by any number of matchers.
type Matcher struct {
	ops  *dfa.Opcodes
	pred *predict.Predictor
	buf  *Buffer

	pos                int // absolute scan cursor
	start, end, choice int

	// Lookahead head positions, valid when their generation matches.
	headPos []int
	headGen []int
	gen     int
}

// New returns a matcher reading from r.
func New(ops *dfa.Opcodes, pred *predict.Predictor, r io.Reader) *Matcher {
	return &Matcher{ops: ops, pred: pred, buf: NewBuffer(r)}
}

// NewBytes returns a matcher over in-memory input.
func NewBytes(ops *dfa.Opcodes, pred *predict.Predictor, data []byte) *Matcher {
	return &Matcher{ops: ops, pred: pred, buf: NewBytesBuffer(data)}
}

// Find returns the next match at or after the cursor and advances the
// cursor past it. Matches are reported leftmost-longest: the earliest
// start wins, and at that start the longest extent.
func (m *Matcher) Find() (start, end, choice int, ok bool) {
	for {
		winEnd := m.buf.end()
		if m.pos >= winEnd && m.buf.eof {
			if m.pos > winEnd {
				return 0, 0, 0, false
			}
			// One final attempt at the very end for zero-width matches.
			if e, ch := m.step(m.pos); e >= 0 {
				m.record(m.pos, e, ch)
				return m.start, m.end, m.choice, true
			}
			return 0, 0, 0, false
		}
		cand := m.buf.off + m.pred.Find(m.buf.data, m.pos-m.buf.off)
		if cand >= m.buf.end() && !m.buf.eof {
			m.buf.refill(max(0, cand-1))
			m.pos = max(m.pos, min(cand, m.buf.end()))
			continue
		}
		if e, ch := m.step(cand); e >= 0 {
			m.record(cand, e, ch)
			return m.start, m.end, m.choice, true
		}
		m.pos = cand + 1
	}
}

// Matches reports whether the whole input is one match. It consumes
// the input and is meant for a fresh matcher.
func (m *Matcher) Matches() bool {
	end, choice := m.step(0)
	for m.buf.refill(0) {
	}
	if end < 0 || end != m.buf.end() {
		return false
	}
	m.start, m.end, m.choice = 0, end, choice
	m.pos = end
	return true
}

// Scan attempts a match anchored at the cursor, lexer style: on
// success it advances past the token and returns its alternative;
// otherwise it returns 0 and leaves the cursor alone.
func (m *Matcher) Scan() int {
	end, choice := m.step(m.pos)
	if end < 0 {
		return 0
	}
	m.record(m.pos, end, choice)
	return choice
}

// Err returns the reader error that truncated the input, if any.
func (m *Matcher) Err() error { return m.buf.Err() }

// Start, End and Choice describe the last match. Text returns its
// bytes, valid until the next matching call.
func (m *Matcher) Start() int  { return m.start }
func (m *Matcher) End() int    { return m.end }
func (m *Matcher) Choice() int { return m.choice }

func (m *Matcher) Text() []byte {
	return m.buf.data[m.start-m.buf.off : m.end-m.buf.off]
}

func (m *Matcher) record(start, end, choice int) {
	m.start, m.end, m.choice = start, end, choice
	if end == start {
		m.pos = start + 1
	} else {
		m.pos = end
	}
}

// maxZeroWidth bounds consecutive zero-width transitions at one input
// position, so chained anchors work while a degenerate meta cycle
// cannot spin.
const maxZeroWidth = 32

// step interprets the opcode table from the absolute position start
// and returns the longest accepted end and its alternative, or (-1, 0).
// It refills the buffer as it runs off the window when more input
// exists, keeping one byte of left context for boundary conditions.
func (m *Matcher) step(start int) (int, int) {
	m.gen++
	cur := uint32(0)
	i := start
	end, choice := -1, 0
	zw := 0

steps:
	for {
		for i >= m.buf.end() && !m.buf.eof {
			if !m.buf.refill(max(0, start-1)) {
				break
			}
		}
		idx := i - m.buf.off
		haveByte := idx < len(m.buf.data)
		var b byte
		if haveByte {
			b = m.buf.data[idx]
		}

		// Marker prefix of the state: REDO, TAKE, TAIL*, HEAD*.
		j := cur
		take := 0
		tailEnd := -1
		redo := false
	markers:
		for {
			op := dfa.Op(m.ops.Words[j])
			switch {
			case op.IsRedo():
				redo = true
			case op.IsTake():
				take = op.Choice()
			case op.IsTail():
				if p, ok := m.headAt(op.Look()); ok && p > tailEnd {
					tailEnd = p
				}
			case op.IsHead():
				m.setHead(op.Look(), i)
			default:
				break markers
			}
			j++
		}
		if redo {
			end, choice = -1, 0
		}
		if take > 0 {
			e := i
			if tailEnd >= 0 {
				e = tailEnd
			}
			if e > end {
				end, choice = e, take
			}
		}

		// Transitions: first covering edge wins.
		for {
			op := dfa.Op(m.ops.Words[j])
			switch {
			case op.IsHalt():
				return end, choice
			case op.IsMeta():
				var tgt uint32
				if m.ops.Long {
					tgt = m.ops.Words[j+1]
					j += 2
				} else {
					tgt = op.Target()
					j++
				}
				if zw < maxZeroWidth && m.metaHolds(op.Meta(), i) {
					zw++
					cur = tgt
					continue steps
				}
			case op.IsLong():
				tgt := m.ops.Words[j+1]
				j += 2
				if haveByte && b >= op.LongLo() && b <= op.LongHi() {
					cur = tgt
					i++
					zw = 0
					continue steps
				}
			default:
				if haveByte && b >= op.Lo() && b <= op.Hi() {
					cur = op.Target()
					i++
					zw = 0
					continue steps
				}
				j++
			}
		}
	}
}

// metaHolds tests a zero-width condition at the absolute position i.
func (m *Matcher) metaHolds(sym nfa.Symbol, i int) bool {
	idx := i - m.buf.off
	atEnd := m.buf.eof && idx >= len(m.buf.data)
	prevWord := i > 0 && idx > 0 && isWordByte(m.buf.data[idx-1])
	nextWord := idx < len(m.buf.data) && isWordByte(m.buf.data[idx])

	switch sym {
	case nfa.MetaBOB:
		return i == 0
	case nfa.MetaEOB:
		return atEnd
	case nfa.MetaBOL:
		return i == 0 || (idx > 0 && m.buf.data[idx-1] == '\n')
	case nfa.MetaEOL:
		return atEnd || (idx < len(m.buf.data) && m.buf.data[idx] == '\n')
	case nfa.MetaBWB:
		return prevWord != nextWord
	case nfa.MetaNWB:
		return prevWord == nextWord
	case nfa.MetaBWE:
		return !prevWord && nextWord
	case nfa.MetaEWE:
		return prevWord && !nextWord
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (m *Matcher) setHead(k, pos int) {
	for k >= len(m.headPos) {
		m.headPos = append(m.headPos, 0)
		m.headGen = append(m.headGen, 0)
	}
	m.headPos[k] = pos
	m.headGen[k] = m.gen
}

func (m *Matcher) headAt(k int) (int, bool) {
	if k < len(m.headGen) && m.headGen[k] == m.gen {
		return m.headPos[k], true
	}
	return 0, false
}
