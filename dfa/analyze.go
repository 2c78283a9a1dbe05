package dfa

import (
	"github.com/coregx/redfa/internal/sparse"
	"github.com/coregx/redfa/nfa"
	"github.com/coregx/redfa/simd"
)

// Analysis table sizes. All hash tables share the chain hash computed
// by Hash, so a scanner can roll one hash over the input and probe
// every table with it.
const (
	HashBits = 12
	HashSize = 1 << HashBits

	maxBitap    = 8
	maxHashLen  = 16
	maxFrontier = 1024
	maxPrefix   = 255
	maxCutBytes = 8
	lenCap      = 0xFFFF
)

// Hash chains byte b onto the running hash h.
func Hash(h uint32, b byte) uint32 {
	return ((h << 3) ^ uint32(b)) & (HashSize - 1)
}

// Analysis holds match-prediction data derived from a built automaton.
// Every table over-approximates: a set bit means some match could have
// that shape, a clear bit is a proof that none can. Scanners use the
// clear bits to reject input positions without running the automaton.
type Analysis struct {
	MinLen int    // shortest possible match length in bytes, capped at 0xFFFF
	Prefix []byte // literal bytes every match starts with
	Exact  bool   // the automaton matches Prefix and nothing else

	// Bit[b] has bit k set when some match carries byte b at offset k.
	// Offsets at or beyond BitLen are unconstrained.
	Bit    [256]uint8
	BitLen int

	// PMH[h] has bit k set when the chain hash of some match's first
	// k+1 bytes equals h. Valid for offsets below PMHLen.
	PMH    []uint8
	PMHLen int

	// HFA[d] is a bitset over chain hashes of match prefixes of length
	// d+1, carrying the hashed prediction past eight bytes. Truncated
	// early when the automaton branches too widely to stay useful.
	HFA [][]byte

	// Cut acceleration. When CutDepth > 0, every match carries one of
	// the Cut bytes at offset CutDepth-1, so a scanner may hunt for
	// those bytes and back up Lbm..Lbk positions to the candidate
	// start. Cbk lists the bytes possible one offset earlier and Fst
	// the bytes possible at offset zero, for cheap candidate checks.
	CutDepth int
	Cut      []byte
	Cbk      []byte
	Fst      []byte
	Lbk, Lbm uint16
}

// Analyze derives the acceleration tables for the automaton.
func (d *DFA) Analyze() *Analysis {
	a := &Analysis{PMH: make([]uint8, HashSize)}
	a.MinLen = d.minMatchLen()
	a.Prefix, a.Exact = d.literalPrefix()
	d.hashTables(a)
	a.pickCut()
	return a
}

// metaClosure inserts id and every state reachable from it over
// zero-width meta edges.
func (d *DFA) metaClosure(set *sparse.Set, id StateID) {
	if !set.Insert(uint32(id)) {
		return
	}
	for _, e := range d.States[id].Edges {
		if e.Lo >= nfa.MetaBOB {
			d.metaClosure(set, e.Target)
		}
	}
}

// minMatchLen runs a leveled reachability sweep counting consumed
// bytes. Meta edges are zero width, so each level closes over them
// before the accept check.
func (d *DFA) minMatchLen() int {
	cur := sparse.New(len(d.States))
	next := sparse.New(len(d.States))
	d.metaClosure(cur, 0)
	if d.CanBeEmpty {
		return 0
	}
	for _, id := range cur.Values() {
		if d.States[id].Accept > 0 {
			return 0
		}
	}
	for depth := 1; depth <= lenCap; depth++ {
		next.Clear()
		for _, id := range cur.Values() {
			for _, e := range d.States[id].Edges {
				if e.Lo < nfa.MetaBOB {
					d.metaClosure(next, e.Target)
				}
			}
		}
		for _, id := range next.Values() {
			if d.States[id].Accept > 0 {
				return depth
			}
		}
		if next.Len() == 0 {
			break
		}
		cur, next = next, cur
	}
	return lenCap
}

// literalPrefix walks the single-byte spine from the start state. The
// result is exact when the spine is the whole automaton.
func (d *DFA) literalPrefix() ([]byte, bool) {
	var out []byte
	id := StateID(0)
	for len(out) < maxPrefix {
		st := &d.States[id]
		if st.Accept > 0 || st.Redo {
			exact := st.Accept > 0 && !st.Redo && len(st.Edges) == 0 && !d.CanBeEmpty
			return out, exact
		}
		if len(st.Edges) != 1 {
			return out, false
		}
		e := st.Edges[0]
		if e.Lo != e.Hi || e.Lo >= nfa.MetaBOB {
			return out, false
		}
		out = append(out, byte(e.Lo))
		id = e.Target
	}
	return out, false
}

// hashTables fills Bit, PMH and HFA with one breadth-first sweep over
// (state, hash) pairs. The sweep stops once the pair frontier outgrows
// maxFrontier; deeper offsets then stay unconstrained.
func (d *DFA) hashTables(a *Analysis) {
	type node struct {
		id StateID
		h  uint32
	}
	scratch := sparse.New(len(d.States))
	d.metaClosure(scratch, 0)

	frontier := make(map[node]struct{})
	for _, id := range scratch.Values() {
		frontier[node{StateID(id), 0}] = struct{}{}
	}
	for depth := 0; depth < maxHashLen; depth++ {
		if len(frontier) == 0 || len(frontier) > maxFrontier {
			break
		}
		next := make(map[node]struct{})
		hfa := make([]byte, HashSize/8)
		for n := range frontier {
			for _, e := range d.States[n.id].Edges {
				if e.Lo >= nfa.MetaBOB {
					continue
				}
				scratch.Clear()
				d.metaClosure(scratch, e.Target)
				for b := uint32(e.Lo); b <= uint32(e.Hi); b++ {
					h := Hash(n.h, byte(b))
					if depth < maxBitap {
						a.Bit[b] |= 1 << depth
						a.PMH[h] |= 1 << depth
					}
					hfa[h>>3] |= 1 << (h & 7)
					for _, t := range scratch.Values() {
						next[node{StateID(t), h}] = struct{}{}
					}
				}
			}
		}
		a.HFA = append(a.HFA, hfa)
		if depth < maxBitap {
			a.BitLen = depth + 1
			a.PMHLen = depth + 1
		}
		frontier = next
	}
}

// pickCut chooses the scan offset whose byte set is cheapest to hunt
// for. Offset zero is the baseline; a deeper offset wins only when its
// bytes are rare enough to pay for the lookback on every hit.
func (a *Analysis) pickCut() {
	depth := min(a.BitLen, a.MinLen)
	if depth == 0 {
		return
	}
	a.Fst = a.bytesAt(0)
	best, bestCost := -1, 0
	for k := 0; k < depth; k++ {
		set := a.bytesAt(k)
		if len(set) > maxCutBytes {
			continue
		}
		cost := 16 * k
		for _, b := range set {
			cost += int(simd.ByteRank(b))
		}
		if best < 0 || cost < bestCost {
			best, bestCost = k, cost
		}
	}
	if best < 0 {
		return
	}
	a.CutDepth = best + 1
	a.Cut = a.bytesAt(best)
	if best > 0 {
		a.Cbk = a.bytesAt(best - 1)
	}
	a.Lbm, a.Lbk = uint16(best), uint16(best)
}

// bytesAt lists the bytes possible at the given match offset, in
// ascending order.
func (a *Analysis) bytesAt(k int) []byte {
	var out []byte
	for b := 0; b < 256; b++ {
		if a.Bit[b]&(1<<k) != 0 {
			out = append(out, byte(b))
		}
	}
	return out
}
