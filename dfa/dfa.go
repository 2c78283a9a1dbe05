// Package dfa converts a followpos program into a deterministic finite
// automaton via subset construction, encodes it as a compact opcode
// table, and derives the acceleration tables the matcher uses to skip
// over non-matching input.
package dfa

import (
	"fmt"

	"github.com/coregx/redfa/nfa"
)

// StateID indexes a state in the DFA's arena.
type StateID uint32

// Edge is one transition: symbols in [Lo, Hi] (inclusive) lead to
// Target. Edges of a state are disjoint and sorted by Lo; byte symbols
// and zero-width meta symbols share the edge list.
type Edge struct {
	Lo, Hi nfa.Symbol
	Target StateID
}

// State is one subset-construction state. Identity is structural: two
// states with the same position set and trie node are the same state.
type State struct {
	positions []nfa.Position
	trieNode  int32

	// Accept is the lowest accepting alternative, 0 = none.
	Accept int

	// Redo marks an accept reached through a negative pattern; the
	// matcher discards the pending match instead of recording one.
	Redo bool

	// Heads and Tails list the lookahead groups opened and closed in
	// this state, sorted ascending.
	Heads []int
	Tails []int

	Edges []Edge
}

// DFA is the deterministic automaton. States[0] is the start state;
// the rest follow in discovery order.
type DFA struct {
	States []State

	Choices    int
	Lookaheads int
	LazyGroups int
	Flags      nfa.Flags
	CanBeEmpty bool
}

// Start returns the start state.
func (d *DFA) Start() *State {
	return &d.States[0]
}

// Len returns the number of states.
func (d *DFA) Len() int {
	return len(d.States)
}

// Config bounds the subset construction.
type Config struct {
	// MaxStates caps the number of DFA states; exceeding it aborts the
	// build with a BuildError.
	MaxStates int

	// MaxEdges caps the total number of transitions across all states.
	MaxEdges int
}

// DefaultConfig returns the default construction caps.
func DefaultConfig() Config {
	return Config{MaxStates: 1 << 19, MaxEdges: 1 << 22}
}

// BuildError reports that a construction cap was hit. The pattern is
// too branchy for the configured limits, not malformed.
type BuildError struct {
	States int
	Edges  int
}

func (e *BuildError) Error() string {
	if e.Edges > 0 {
		return fmt.Sprintf("dfa: construction exceeds %d edges", e.Edges)
	}
	return fmt.Sprintf("dfa: construction exceeds %d states", e.States)
}
