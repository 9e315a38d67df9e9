package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromWordsTrimsTail(t *testing.T) {
	s := FromWords(40, 0xFFFFFFFF, 0xFFFFFFFF)
	require.Equal(t, 40, s.Count())
	require.Equal(t, uint32(0xFF), s.Word(1))
	require.False(t, s.Contains(40))
}

func TestAddRemove(t *testing.T) {
	s := New(64)
	s.Add(3)
	s.Add(35)
	s.Add(64)
	require.True(t, s.Contains(3))
	require.True(t, s.Contains(35))
	require.False(t, s.Contains(64))
	require.Equal(t, uint32(1<<3), s.Word(0))
	require.Equal(t, uint32(1<<3), s.Word(1))

	s.Remove(3)
	require.False(t, s.Contains(3))
	require.Equal(t, 1, s.Count())
}

func TestNext(t *testing.T) {
	s := FromWords(64, 0x00303000, 0x00C0003F)

	id, ok := s.Next(0)
	require.True(t, ok)
	require.Equal(t, 12, id)

	id, ok = s.Next(14)
	require.True(t, ok)
	require.Equal(t, 20, id)

	id, ok = s.Next(22)
	require.True(t, ok)
	require.Equal(t, 32, id)

	_, ok = s.Next(56)
	require.False(t, ok)
}

func TestWithout(t *testing.T) {
	owned := FromWords(16, 0xFFFF)
	reserved := FromWords(16, 0x000F)
	allocated := FromWords(16, 0x0030)

	avail := owned.Without(reserved, allocated)
	id, ok := avail.Next(0)
	require.True(t, ok)
	require.Equal(t, 6, id)
	require.Equal(t, 10, avail.Count())
	require.Equal(t, 16, owned.Count())
}

func TestNextRun(t *testing.T) {
	s := New(32)
	s.AddRange(2, 2)
	s.AddRange(8, 5)

	id, ok := s.NextRun(0, 3)
	require.True(t, ok)
	require.Equal(t, 8, id)

	id, ok = s.NextRun(0, 2)
	require.True(t, ok)
	require.Equal(t, 2, id)

	_, ok = s.NextRun(0, 6)
	require.False(t, ok)

	require.True(t, s.ContainsRange(8, 5))
	require.False(t, s.ContainsRange(7, 2))
}

func TestEach(t *testing.T) {
	s := FromWords(64, 0x11, 0x80000000)

	var ids []int
	s.Each(func(id int) bool {
		ids = append(ids, id)
		return false
	})
	require.Equal(t, []int{0, 4, 63}, ids)
}
