// Package sparse implements a sparse set over a small integer universe.
//
// Insert, Contains and Clear are O(1), and iteration visits members in
// insertion order. The set never allocates after construction, which makes
// it suitable for the per-level state bookkeeping done while analyzing an
// automaton: the same set is cleared and refilled once per depth.
package sparse

// Set is a sparse set of uint32 values below a fixed capacity.
//
// The zero value is not usable; call New.
type Set struct {
	sparse []uint32
	dense  []uint32
}

// New returns an empty set able to hold values in [0, capacity).
func New(capacity int) *Set {
	return &Set{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Insert adds v to the set and reports whether it was absent.
func (s *Set) Insert(v uint32) bool {
	if s.Contains(v) {
		return false
	}
	s.sparse[v] = uint32(len(s.dense))
	s.dense = append(s.dense, v)
	return true
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v uint32) bool {
	i := s.sparse[v]
	return i < uint32(len(s.dense)) && s.dense[i] == v
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.dense)
}

// Clear empties the set without releasing its storage.
func (s *Set) Clear() {
	s.dense = s.dense[:0]
}

// Values returns the members in insertion order. The slice aliases the
// set's storage and is invalidated by Insert or Clear.
func (s *Set) Values() []uint32 {
	return s.dense
}
