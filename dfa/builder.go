package dfa

import (
	"slices"

	"github.com/coregx/redfa/nfa"
)

// Build runs the subset construction over a parsed program.
func Build(prog *nfa.Program, cfg Config) (*DFA, error) {
	if cfg.MaxStates <= 0 {
		cfg.MaxStates = DefaultConfig().MaxStates
	}
	if cfg.MaxEdges <= 0 {
		cfg.MaxEdges = DefaultConfig().MaxEdges
	}
	b := &builder{
		prog:    prog,
		cfg:     cfg,
		buckets: make(map[uint64][]StateID),
	}
	root := int32(-1)
	if prog.Trie != nil {
		root = prog.Trie.Root()
	}
	if _, err := b.target(prog.First(), root); err != nil {
		return nil, err
	}
	// b.states grows while we expand; plain index loop doubles as the
	// work queue.
	for i := 0; i < len(b.states); i++ {
		if err := b.expand(StateID(i)); err != nil {
			return nil, err
		}
	}
	return &DFA{
		States:     b.states,
		Choices:    prog.Choices,
		Lookaheads: prog.Lookaheads,
		LazyGroups: prog.LazyGroups,
		Flags:      prog.Flags,
		CanBeEmpty: prog.CanBeEmpty,
	}, nil
}

type builder struct {
	prog   *nfa.Program
	cfg    Config
	states []State
	edges  int

	// buckets memoizes states by position-set hash; collisions fall
	// back to full equality.
	buckets map[uint64][]StateID
}

// target closes a position set and returns the canonical state for it,
// creating the state when it is new.
func (b *builder) target(set []nfa.Position, trieNode int32) (StateID, error) {
	st := b.close(set, trieNode)
	h := stateHash(st.positions, st.trieNode)
	for _, id := range b.buckets[h] {
		if b.states[id].trieNode == st.trieNode &&
			slices.Equal(b.states[id].positions, st.positions) {
			return id, nil
		}
	}
	if len(b.states) >= b.cfg.MaxStates {
		return 0, &BuildError{States: b.cfg.MaxStates}
	}
	id := StateID(len(b.states))
	b.states = append(b.states, st)
	b.buckets[h] = append(b.buckets[h], id)
	return id, nil
}

// close computes the marker closure of set: lookahead head/tail markers
// consume nothing, so a state containing one also contains everything
// that follows it. Accept and lookahead metadata is derived here, and
// lazy continuations are trimmed once the state accepts.
func (b *builder) close(set []nfa.Position, trieNode int32) State {
	all := make(map[nfa.Position]struct{}, len(set))
	queue := slices.Clone(set)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if _, ok := all[p]; ok {
			continue
		}
		all[p] = struct{}{}
		if p.IsTicked() {
			queue = append(queue, b.prog.Follow(p)...)
		}
	}
	positions := make([]nfa.Position, 0, len(all))
	for p := range all {
		positions = append(positions, p)
	}
	slices.Sort(positions)

	st := State{positions: positions, trieNode: trieNode}
	for _, p := range positions {
		switch {
		case p.IsAccept():
			if p.IsNegated() {
				st.Redo = true
			} else if ch := p.Loc(); st.Accept == 0 || ch < st.Accept {
				st.Accept = ch
			}
		case p.IsTicked():
			if p.IsTail() {
				st.Tails = insertSorted(st.Tails, p.Loc())
			} else {
				st.Heads = insertSorted(st.Heads, p.Loc())
			}
		}
	}
	if trieNode >= 0 && b.prog.Trie != nil {
		if ch := b.prog.Trie.Accept(trieNode); ch != 0 && (st.Accept == 0 || ch < st.Accept) {
			st.Accept = ch
		}
	}
	if st.Accept != 0 {
		st.positions = trimLazy(st.positions)
	}
	return st
}

// trimLazy drops lazy-tagged positions from an accepting state: the
// first lazy match wins, so their continuations must not extend it.
func trimLazy(positions []nfa.Position) []nfa.Position {
	out := positions[:0]
	for _, p := range positions {
		if p.Lazy() == 0 {
			out = append(out, p)
		}
	}
	return out
}

// expand computes the outgoing edges of one state. Overlapping symbol
// classes are split at their boundaries so every resulting edge is
// disjoint, then adjacent edges with equal targets are merged back.
func (b *builder) expand(id StateID) error {
	// Copy what we need: appending states below may move the arena.
	positions := b.states[id].positions
	trieNode := b.states[id].trieNode

	type contrib struct {
		lo, hi  nfa.Symbol
		targets []nfa.Position
	}
	var contribs []contrib
	for _, p := range positions {
		if p.IsAccept() || p.IsTicked() {
			continue
		}
		follow := b.prog.Follow(p)
		if len(follow) == 0 {
			continue
		}
		b.prog.ClassOf(p).All(func(lo, hi nfa.Symbol) bool {
			contribs = append(contribs, contrib{lo, hi, follow})
			return true
		})
	}
	var trieEdges []nfa.TrieEdge
	if trieNode >= 0 && b.prog.Trie != nil {
		trieEdges = b.prog.Trie.Edges(trieNode)
	}
	if len(contribs) == 0 && len(trieEdges) == 0 {
		return nil
	}

	cuts := make([]nfa.Symbol, 0, 2*len(contribs)+2*len(trieEdges))
	for _, c := range contribs {
		cuts = append(cuts, c.lo, c.hi+1)
	}
	for _, e := range trieEdges {
		cuts = append(cuts, nfa.Symbol(e.Byte), nfa.Symbol(e.Byte)+1)
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	var edges []Edge
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]-1
		var union []nfa.Position
		for _, c := range contribs {
			if c.lo <= lo && hi <= c.hi {
				union = mergePos(union, c.targets)
			}
		}
		next := int32(-1)
		if lo == hi && lo < 256 {
			for _, e := range trieEdges {
				if nfa.Symbol(e.Byte) == lo {
					next = e.Target
					break
				}
			}
		}
		if len(union) == 0 && next < 0 {
			continue
		}
		tid, err := b.target(union, next)
		if err != nil {
			return err
		}
		// Meta edges stay single-symbol; only byte ranges merge.
		if n := len(edges); n > 0 && hi < 256 && edges[n-1].Target == tid && edges[n-1].Hi+1 == lo {
			edges[n-1].Hi = hi
		} else {
			edges = append(edges, Edge{Lo: lo, Hi: hi, Target: tid})
		}
	}
	b.edges += len(edges)
	if b.edges > b.cfg.MaxEdges {
		return &BuildError{Edges: b.cfg.MaxEdges}
	}
	b.states[id].Edges = edges
	return nil
}

func mergePos(a, b []nfa.Position) []nfa.Position {
	if len(a) == 0 {
		return slices.Clone(b)
	}
	out := make([]nfa.Position, 0, len(a)+len(b))
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

func insertSorted(list []int, v int) []int {
	i, _ := slices.BinarySearch(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	return slices.Insert(list, i, v)
}

// stateHash is FNV-1a over the position set and trie node.
func stateHash(positions []nfa.Position, trieNode int32) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	mix := func(v uint64) {
		for k := 0; k < 8; k++ {
			h ^= v & 0xFF
			h *= prime
			v >>= 8
		}
	}
	for _, p := range positions {
		mix(uint64(p))
	}
	mix(uint64(uint32(trieNode)))
	return h
}
