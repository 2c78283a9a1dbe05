package dfa

import (
	"github.com/coregx/redfa/internal/conv"
	"github.com/coregx/redfa/nfa"
)

// Opcode word layout. Every state is serialized as
//
//	[REDO] [TAKE choice] [TAIL k]* [HEAD k]* ([GOTO]|[META])* HALT
//
// A GOTO packs lo<<24 | hi<<16 | target and is recognized by lo <= hi;
// all special words carry a first byte of 0xF9 or higher with a second
// byte below it, a combination no valid GOTO can produce. When the
// table outgrows 16-bit targets it is encoded in long mode: every GOTO
// becomes a LONG word (lo and hi in the low 16 bits) and every META
// word drops its inline target; both are followed by a full 32-bit
// target word.
const (
	OpHalt     = 0xFF00FFFF
	opTakeBase = 0xFE000000
	OpRedo     = 0xFD000000
	opHeadBase = 0xFC000000
	opTailBase = 0xFB000000
	opMetaBase = 0xFA000000
	opLongBase = 0xF9000000
)

// Op is one 32-bit instruction word.
type Op uint32

// Special reports whether the word is an opcode rather than a short
// GOTO transition.
func (w Op) Special() bool {
	return uint32(w)>>24 >= 0xF9 && (uint32(w)>>16)&0xFF < uint32(w)>>24
}

func (w Op) IsHalt() bool { return uint32(w) == OpHalt }
func (w Op) IsTake() bool { return uint32(w)>>24 == 0xFE && w.Special() }
func (w Op) IsRedo() bool { return uint32(w) == OpRedo }
func (w Op) IsHead() bool { return uint32(w)>>24 == 0xFC && w.Special() }
func (w Op) IsTail() bool { return uint32(w)>>24 == 0xFB && w.Special() }
func (w Op) IsMeta() bool { return uint32(w)>>24 == 0xFA && w.Special() }
func (w Op) IsLong() bool { return uint32(w)>>24 == 0xF9 && w.Special() }

// Choice returns the alternative of a TAKE word.
func (w Op) Choice() int { return int(w & 0xFFFF) }

// Look returns the lookahead index of a HEAD or TAIL word.
func (w Op) Look() int { return int(w & 0xFFFF) }

// Meta returns the meta symbol of a META word.
func (w Op) Meta() nfa.Symbol { return nfa.Symbol(256 + (uint32(w)>>16)&0xFF) }

// Lo and Hi bound a short GOTO.
func (w Op) Lo() byte { return byte(w >> 24) }
func (w Op) Hi() byte { return byte(w >> 16) }

// Target is the word offset a short GOTO or META jumps to.
func (w Op) Target() uint32 { return uint32(w) & 0xFFFF }

// LongLo and LongHi bound a LONG transition; its target is the
// following word.
func (w Op) LongLo() byte { return byte(w >> 8) }
func (w Op) LongHi() byte { return byte(w) }

// Opcodes is the encoded automaton: the portable artifact a matcher
// interprets. Starts maps each state to the offset of its first word.
type Opcodes struct {
	Words  []uint32
	Starts []uint32
	Long   bool
}

// Encode serializes the DFA. With reverse set, each state's edges are
// emitted in descending range order; the matcher scans the edge list
// in emission order, so either way the first covering range wins.
func (d *DFA) Encode(reverse bool) *Opcodes {
	size := func(st *State, long bool) int {
		n := 1 // HALT
		if st.Redo {
			n++
		}
		if st.Accept > 0 {
			n++
		}
		n += len(st.Tails) + len(st.Heads)
		if long {
			n += 2 * len(st.Edges)
		} else {
			n += len(st.Edges)
		}
		return n
	}

	layout := func(long bool) ([]uint32, int) {
		offsets := make([]uint32, len(d.States))
		total := 0
		for i := range d.States {
			offsets[i] = conv.IntToUint32(total)
			total += size(&d.States[i], long)
		}
		return offsets, total
	}

	offsets, total := layout(false)
	long := total > 0xFFFF
	if long {
		offsets, total = layout(true)
	}

	words := make([]uint32, 0, total)
	for i := range d.States {
		st := &d.States[i]
		if st.Redo {
			words = append(words, OpRedo)
		}
		if st.Accept > 0 {
			words = append(words, opTakeBase|uint32(conv.IntToUint16(st.Accept)))
		}
		for _, k := range st.Tails {
			words = append(words, opTailBase|uint32(conv.IntToUint16(k)))
		}
		for _, k := range st.Heads {
			words = append(words, opHeadBase|uint32(conv.IntToUint16(k)))
		}
		edges := st.Edges
		if reverse {
			edges = make([]Edge, len(st.Edges))
			for j, e := range st.Edges {
				edges[len(st.Edges)-1-j] = e
			}
		}
		for _, e := range edges {
			t := offsets[e.Target]
			switch {
			case e.Lo >= 256:
				w := opMetaBase | uint32(e.Lo-256)<<16
				if long {
					words = append(words, w, t)
				} else {
					words = append(words, w|t)
				}
			case long:
				words = append(words, opLongBase|uint32(e.Lo)<<8|uint32(e.Hi), t)
			default:
				words = append(words, uint32(e.Lo)<<24|uint32(e.Hi)<<16|t)
			}
		}
		words = append(words, OpHalt)
	}
	return &Opcodes{Words: words, Starts: offsets, Long: long}
}
