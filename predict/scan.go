package predict

import (
	"bytes"

	"github.com/coregx/redfa/dfa"
	"github.com/coregx/redfa/simd"
)

// Find returns the next position in data at or after pos that is worth
// attempting a match from. Positions below the result are proven not to
// start a match; the result itself is only a candidate. Positions too
// close to the end of data to judge are returned as candidates, so a
// caller refilling its buffer re-examines them with more bytes.
func (p *Predictor) Find(data []byte, pos int) int {
	if pos >= len(data) {
		return pos
	}
	switch p.method {
	case MethodAhoCorasick:
		return p.acScan(data, pos)
	case MethodBoyerMoore:
		return p.boyerMoore(data, pos)
	case MethodMemmem:
		if i := simd.Memmem(data[pos:], p.Chr); i >= 0 {
			return pos + i
		}
		return undetermined(pos, len(data), len(p.Chr))
	case MethodCut:
		return p.cutScan(data, pos)
	case MethodHash:
		return p.hashScan(data, pos)
	case MethodBitap:
		return p.bitapScan(data, pos)
	default:
		return pos
	}
}

// undetermined clamps the first position whose scan window runs past
// the end of data. Everything before it was definitively rejected.
func undetermined(pos, dataLen, window int) int {
	tail := dataLen - window + 1
	if tail < pos {
		return pos
	}
	return tail
}

func (p *Predictor) acScan(data []byte, pos int) int {
	if m := p.ac.Find(data, pos); m != nil {
		return m.Start
	}
	return undetermined(pos, len(data), p.maxLit)
}

// boyerMoore runs a Horspool skip loop over the literal prefix.
func (p *Predictor) boyerMoore(data []byte, pos int) int {
	n := len(p.Chr)
	i := pos
	for i+n <= len(data) {
		c := data[i+n-1]
		if c == p.Chr[n-1] {
			if bytes.Equal(data[i:i+n-1], p.Chr[:n-1]) {
				return i
			}
			i += p.skip
		} else {
			i += int(p.shift[c])
		}
	}
	return undetermined(pos, len(data), n)
}

// cutScan hunts for the cut bytes at their fixed offset and backs up to
// the candidate start, filtering hits through the first-byte and
// before-cut byte sets.
func (p *Predictor) cutScan(data []byte, pos int) int {
	k := p.CutDepth - 1
	i := pos + k
	for i < len(data) {
		var j int
		switch sub := data[i:]; len(p.Cut) {
		case 1:
			j = simd.Memchr(sub, p.Cut[0])
		case 2:
			j = simd.Memchr2(sub, p.Cut[0], p.Cut[1])
		default:
			j = simd.Memchr3(sub, p.Cut[0], p.Cut[1], p.Cut[2])
		}
		if j < 0 {
			break
		}
		i += j
		start := i - k
		if p.Fst.has(data[start]) && (k < 2 || p.Cbk.has(data[i-1])) {
			return start
		}
		i++
	}
	return undetermined(pos, len(data), k+1)
}

// hashScan probes the chained-hash tables over a sliding window. Short
// guaranteed windows use the compact PMA table, longer ones PMH, and a
// surviving candidate is extended through the deep bitsets.
func (p *Predictor) hashScan(data []byte, pos int) int {
	w := p.hashLen
	table := p.PMH
	if w <= 4 {
		table = p.PMA
	}
	for i := pos; i+w <= len(data); i++ {
		h := uint32(0)
		viable := true
		for k := 0; k < w; k++ {
			h = dfa.Hash(h, data[i+k])
			if table[h]&(1<<k) == 0 {
				viable = false
				break
			}
		}
		if viable && p.deepOK(data, i, h) {
			return i
		}
	}
	return undetermined(pos, len(data), w)
}

// deepOK extends a hash chain beyond the primary window through the
// per-depth bitsets. Running out of data leaves the candidate standing.
func (p *Predictor) deepOK(data []byte, i int, h uint32) bool {
	limit := min(len(p.hfa), p.Min)
	for d := p.hashLen; d < limit && i+d < len(data); d++ {
		h = dfa.Hash(h, data[i+d])
		if p.hfa[d][h>>3]&(1<<(h&7)) == 0 {
			return false
		}
	}
	return true
}

// bitapScan runs shift-and over the byte/offset table: bit k of state
// records that the last k+1 bytes could be the first k+1 bytes of a
// match.
func (p *Predictor) bitapScan(data []byte, pos int) int {
	m := p.bitLen
	state := uint32(0)
	for i := pos; i < len(data); i++ {
		state = ((state << 1) | 1) & uint32(p.Bit[data[i]])
		if state&(1<<(m-1)) != 0 {
			return i - m + 1
		}
	}
	return undetermined(pos, len(data), m)
}
