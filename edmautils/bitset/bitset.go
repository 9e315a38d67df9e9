package bitset

import (
	mathbits "math/bits"

	"github.com/usbarmory/tamago/bits"
)

const wordBits = 32

// Set is a fixed-size set of resource ids, packed 32 ids to a word in the same
// layout the controller uses for its channel bit registers: id n lives in word n/32,
// bit n%32.
type Set struct {
	words []uint32
	size  int
}

// New creates an empty set able to hold ids [0, size)
func New(size int) Set {
	return Set{
		words: make([]uint32, (size+wordBits-1)/wordBits),
		size:  size,
	}
}

// FromWords creates a set of the given size from register-layout words. Missing words are
// treated as zero and bits at or beyond size are dropped.
func FromWords(size int, words ...uint32) Set {
	s := New(size)
	copy(s.words, words)
	s.trim()
	return s
}

func (s *Set) trim() {
	tail := s.size % wordBits
	if tail != 0 && len(s.words) > 0 {
		s.words[len(s.words)-1] &= (1 << tail) - 1
	}
}

// Len is the number of ids the set can hold
func (s Set) Len() int {
	return s.size
}

func (s Set) inRange(id int) bool {
	return id >= 0 && id < s.size
}

func (s *Set) Add(id int) {
	if !s.inRange(id) {
		return
	}
	bits.Set(&s.words[id/wordBits], id%wordBits)
}

func (s *Set) Remove(id int) {
	if !s.inRange(id) {
		return
	}
	bits.Clear(&s.words[id/wordBits], id%wordBits)
}

func (s Set) Contains(id int) bool {
	if !s.inRange(id) {
		return false
	}
	return bits.Get(&s.words[id/wordBits], id%wordBits, 1) == 1
}

func (s *Set) AddRange(first, count int) {
	for id := first; id < first+count; id++ {
		s.Add(id)
	}
}

func (s *Set) RemoveRange(first, count int) {
	for id := first; id < first+count; id++ {
		s.Remove(id)
	}
}

// ContainsRange reports whether every id in [first, first+count) is in the set
func (s Set) ContainsRange(first, count int) bool {
	if count <= 0 || first < 0 || first+count > s.size {
		return false
	}
	for id := first; id < first+count; id++ {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// Count returns the number of ids in the set
func (s Set) Count() int {
	count := 0
	for _, w := range s.words {
		count += mathbits.OnesCount32(w)
	}
	return count
}

func (s Set) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Word returns the register-layout word at index, or zero past the end of the set
func (s Set) Word(index int) uint32 {
	if index < 0 || index >= len(s.words) {
		return 0
	}
	return s.words[index]
}

func (s Set) Clone() Set {
	out := New(s.size)
	copy(out.words, s.words)
	return out
}

// Without returns a new set holding the ids of s that are in none of the excluded sets
func (s Set) Without(excluded ...Set) Set {
	out := s.Clone()
	for i := range out.words {
		for _, ex := range excluded {
			out.words[i] &^= ex.Word(i)
		}
	}
	return out
}

// Intersect returns a new set holding the ids present in both s and other
func (s Set) Intersect(other Set) Set {
	out := s.Clone()
	for i := range out.words {
		out.words[i] &= other.Word(i)
	}
	return out
}

// Next returns the lowest id at or above from that is in the set
func (s Set) Next(from int) (int, bool) {
	if from < 0 {
		from = 0
	}
	for w := from / wordBits; w < len(s.words); w++ {
		word := s.words[w]
		if w == from/wordBits {
			word &= ^uint32(0) << (from % wordBits)
		}
		if word != 0 {
			return w*wordBits + mathbits.TrailingZeros32(word), true
		}
	}
	return 0, false
}

// NextRun returns the lowest id at or above from that starts a run of count consecutive ids in the set
func (s Set) NextRun(from int, count int) (int, bool) {
	if count <= 0 {
		return 0, false
	}

	start, ok := s.Next(from)
	for ok && start+count <= s.size {
		run := 1
		for run < count && s.Contains(start+run) {
			run++
		}
		if run == count {
			return start, true
		}
		start, ok = s.Next(start + run + 1)
	}
	return 0, false
}

// Each calls cb with every id in the set in ascending order until cb returns true
func (s Set) Each(cb func(id int) (stop bool)) {
	for w, word := range s.words {
		for word != 0 {
			bit := mathbits.TrailingZeros32(word)
			if cb(w*wordBits + bit) {
				return
			}
			word &= word - 1
		}
	}
}
