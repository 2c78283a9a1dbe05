package nfa

// Trie is a byte trie holding the plain literal alternatives of a
// pattern. Alternatives that are pure strings (no metacharacters) skip
// the position machinery entirely; the DFA construction walks the trie
// alongside the position sets and merges both into one automaton.
//
// Node 0 is the root. Nodes are arena-allocated and addressed by index.
type Trie struct {
	nodes []trieNode
}

// TrieEdge is one outgoing byte transition of a trie node.
type TrieEdge struct {
	Byte   byte
	Target int32
}

type trieNode struct {
	edges  []TrieEdge
	accept int // alternative number, 0 = none
}

// NewTrie returns a trie holding only the root node.
func NewTrie() *Trie {
	return &Trie{nodes: make([]trieNode, 1)}
}

// Root returns the root node index.
func (t *Trie) Root() int32 { return 0 }

// Insert adds literal as the given 1-based alternative. When two
// literals are identical the lower alternative number wins.
func (t *Trie) Insert(literal []byte, choice int) {
	n := int32(0)
	for _, b := range literal {
		next, ok := t.Step(n, b)
		if !ok {
			t.nodes = append(t.nodes, trieNode{})
			next = int32(len(t.nodes) - 1)
			edges := t.nodes[n].edges
			i := 0
			for i < len(edges) && edges[i].Byte < b {
				i++
			}
			edges = append(edges, TrieEdge{})
			copy(edges[i+1:], edges[i:])
			edges[i] = TrieEdge{Byte: b, Target: next}
			t.nodes[n].edges = edges
		}
		n = next
	}
	if t.nodes[n].accept == 0 || choice < t.nodes[n].accept {
		t.nodes[n].accept = choice
	}
}

// Step follows the edge labeled b out of node, reporting whether one
// exists.
func (t *Trie) Step(node int32, b byte) (int32, bool) {
	edges := t.nodes[node].edges
	lo, hi := 0, len(edges)
	for lo < hi {
		mid := (lo + hi) / 2
		if edges[mid].Byte < b {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(edges) && edges[lo].Byte == b {
		return edges[lo].Target, true
	}
	return 0, false
}

// Accept returns the alternative accepted at node, 0 if none.
func (t *Trie) Accept(node int32) int {
	return t.nodes[node].accept
}

// Edges returns the sorted outgoing transitions of node. The slice is
// owned by the trie and must not be modified.
func (t *Trie) Edges(node int32) []TrieEdge {
	return t.nodes[node].edges
}

// Len returns the number of nodes, root included.
func (t *Trie) Len() int {
	return len(t.nodes)
}
