package dfa

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/redfa/nfa"
)

func mustBuild(t *testing.T, pattern string, flags nfa.Flags) *DFA {
	t.Helper()
	prog, err := nfa.Parse(pattern, flags, nil, nfa.DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	d, err := Build(prog, DefaultConfig())
	if err != nil {
		t.Fatalf("Build(%q): %v", pattern, err)
	}
	return d
}

// edgeTo follows the edge of state id covering sym.
func edgeTo(t *testing.T, d *DFA, id StateID, sym nfa.Symbol) StateID {
	t.Helper()
	for _, e := range d.States[id].Edges {
		if e.Lo <= sym && sym <= e.Hi {
			return e.Target
		}
	}
	t.Fatalf("state %d has no edge for symbol %d", id, sym)
	return 0
}

func walk(t *testing.T, d *DFA, input string) StateID {
	t.Helper()
	id := StateID(0)
	for i := 0; i < len(input); i++ {
		id = edgeTo(t, d, id, nfa.Symbol(input[i]))
	}
	return id
}

func TestBuildLiteralChain(t *testing.T) {
	d := mustBuild(t, "(ab)", 0)

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	id := walk(t, d, "ab")
	if got := d.States[id].Accept; got != 1 {
		t.Errorf("Accept after \"ab\" = %d, want 1", got)
	}
	if d.States[0].Accept != 0 {
		t.Error("start state accepts, want no accept")
	}
}

func TestBuildTrieAlternatives(t *testing.T) {
	d := mustBuild(t, "foo|bar|baz", 0)

	for _, tc := range []struct {
		input  string
		choice int
	}{
		{"foo", 1},
		{"bar", 2},
		{"baz", 3},
	} {
		id := walk(t, d, tc.input)
		if got := d.States[id].Accept; got != tc.choice {
			t.Errorf("Accept after %q = %d, want %d", tc.input, got, tc.choice)
		}
	}

	// "bar" and "baz" share their first two states.
	ba := walk(t, d, "ba")
	if got := len(d.States[ba].Edges); got != 2 {
		t.Errorf("state after \"ba\" has %d edges, want 2", got)
	}
}

func TestBuildStateDedup(t *testing.T) {
	// The state after each additional "a" is structurally identical, so
	// the loop folds into a self edge.
	d := mustBuild(t, "(a)(a)*", 0)

	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	s1 := edgeTo(t, d, 0, 'a')
	if got := edgeTo(t, d, s1, 'a'); got != s1 {
		t.Errorf("edge from %d on 'a' = %d, want self", s1, got)
	}
	if d.States[s1].Accept != 1 {
		t.Errorf("Accept = %d, want 1", d.States[s1].Accept)
	}
}

func TestBuildLeftmostAlternative(t *testing.T) {
	d := mustBuild(t, "(a)|(a)", 0)

	id := edgeTo(t, d, 0, 'a')
	if got := d.States[id].Accept; got != 1 {
		t.Errorf("Accept = %d, want lowest alternative 1", got)
	}
}

func TestBuildClassSplit(t *testing.T) {
	d := mustBuild(t, "([a-c]x|[b-d]y)", 0)

	edges := d.States[0].Edges
	if len(edges) != 3 {
		t.Fatalf("start state has %d edges, want 3: %+v", len(edges), edges)
	}
	want := []struct{ lo, hi nfa.Symbol }{
		{'a', 'a'},
		{'b', 'c'},
		{'d', 'd'},
	}
	for i, w := range want {
		if edges[i].Lo != w.lo || edges[i].Hi != w.hi {
			t.Errorf("edge %d = [%c, %c], want [%c, %c]",
				i, edges[i].Lo, edges[i].Hi, w.lo, w.hi)
		}
	}
	// The overlap can still reach both branches, the flanks only one.
	if edgeTo(t, d, 0, 'a') == edgeTo(t, d, 0, 'd') {
		t.Error("'a' and 'd' lead to the same state")
	}
	if edgeTo(t, d, 0, 'b') != edgeTo(t, d, 0, 'c') {
		t.Error("'b' and 'c' lead to different states")
	}
}

func TestBuildMixedTrieAndPositions(t *testing.T) {
	d := mustBuild(t, "a+|stop", 0)

	aa := edgeTo(t, d, 0, 'a')
	if d.States[aa].Accept != 1 {
		t.Errorf("Accept after \"a\" = %d, want 1", d.States[aa].Accept)
	}
	id := walk(t, d, "stop")
	if d.States[id].Accept != 2 {
		t.Errorf("Accept after \"stop\" = %d, want 2", d.States[id].Accept)
	}
}

func TestBuildLookahead(t *testing.T) {
	d := mustBuild(t, "a(?=b)", 0)

	// Lookahead groups number from 1.
	s1 := edgeTo(t, d, 0, 'a')
	if diff := cmp.Diff([]int{1}, d.States[s1].Heads); diff != "" {
		t.Errorf("Heads mismatch (-want +got):\n%s", diff)
	}
	s2 := edgeTo(t, d, s1, 'b')
	if diff := cmp.Diff([]int{1}, d.States[s2].Tails); diff != "" {
		t.Errorf("Tails mismatch (-want +got):\n%s", diff)
	}
	if d.States[s2].Accept != 1 {
		t.Errorf("Accept = %d, want 1", d.States[s2].Accept)
	}
}

func TestBuildNegativePattern(t *testing.T) {
	d := mustBuild(t, "(?^ab)", 0)

	id := walk(t, d, "ab")
	if !d.States[id].Redo {
		t.Error("Redo = false after negative body, want true")
	}
	if d.States[id].Accept != 0 {
		t.Errorf("Accept = %d, want 0 on redo state", d.States[id].Accept)
	}
}

func TestBuildAnchors(t *testing.T) {
	d := mustBuild(t, "^a$", 0)

	e0 := d.States[0].Edges
	if len(e0) != 1 || e0[0].Lo != nfa.MetaBOB || e0[0].Hi != nfa.MetaBOB {
		t.Fatalf("start edges = %+v, want single MetaBOB edge", e0)
	}
	s1 := e0[0].Target
	s2 := edgeTo(t, d, s1, 'a')
	if got := edgeTo(t, d, s2, nfa.MetaEOB); d.States[got].Accept != 1 {
		t.Errorf("Accept after MetaEOB = %d, want 1", d.States[got].Accept)
	}
}

func TestBuildLazyTrim(t *testing.T) {
	// Once a lazy repetition accepts, its continuation is dropped; the
	// accepting state must not loop.
	d := mustBuild(t, "(a+?)", 0)

	s1 := edgeTo(t, d, 0, 'a')
	if d.States[s1].Accept != 1 {
		t.Fatalf("Accept = %d, want 1", d.States[s1].Accept)
	}
	if len(d.States[s1].Edges) != 0 {
		t.Errorf("accepting state has edges %+v, want none", d.States[s1].Edges)
	}
	if d.LazyGroups != 1 {
		t.Errorf("LazyGroups = %d, want 1", d.LazyGroups)
	}
}

func TestBuildGreedyKeepsLoop(t *testing.T) {
	d := mustBuild(t, "(a+)", 0)

	s1 := edgeTo(t, d, 0, 'a')
	if got := edgeTo(t, d, s1, 'a'); got != s1 {
		t.Errorf("greedy repetition lost its self edge: got %d, want %d", got, s1)
	}
}

func TestBuildMaxStates(t *testing.T) {
	prog, err := nfa.Parse("(abc)", 0, nil, nfa.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	_, err = Build(prog, Config{MaxStates: 2})
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("Build err = %v, want BuildError", err)
	}
	if be.States != 2 {
		t.Errorf("BuildError.States = %d, want 2", be.States)
	}
}
