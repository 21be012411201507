package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topDown(s *Stack) []Value {
	vals := s.Values()
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	return vals
}

func goldenStack(t *testing.T) *Stack {
	s := NewStack(4, 0)
	require.NoError(t, s.Push(Int(1), UInt(2), Byte('3'), Codepoint(0x1F4BB)))
	require.NoError(t, s.Rotate(2, 1))
	require.NoError(t, s.Rotate(3, 1))
	return s
}

func TestStack_golden(t *testing.T) {
	t.Run("dup", func(t *testing.T) {
		s := goldenStack(t)
		require.NoError(t, s.Dup(1))
		require.NoError(t, s.Dup(1))
		assert.Equal(t, []Value{
			UInt(2), UInt(2), UInt(2), Byte('3'), Codepoint(0x1F4BB), Int(1),
		}, topDown(s))
	})
	t.Run("over", func(t *testing.T) {
		s := goldenStack(t)
		require.NoError(t, s.DupAt(1, 1))
		require.NoError(t, s.Dup(1))
		assert.Equal(t, []Value{
			Byte('3'), Byte('3'), UInt(2), Byte('3'), Codepoint(0x1F4BB), Int(1),
		}, topDown(s))
	})
}

func TestStack_lifo(t *testing.T) {
	s := NewStack(1, 0)
	vals := []Value{Bool(true), Int(-7), Float(2.5), Codepoint('λ')}
	for _, v := range vals {
		require.NoError(t, s.Push(v))
	}
	assert.True(t, s.Cap() >= len(vals), "stack must grow")
	for i := len(vals) - 1; i >= 0; i-- {
		v, err := s.Pop()
		require.NoError(t, err)
		assert.Equal(t, vals[i], v)
	}
	_, err := s.Pop()
	assert.True(t, errorIs(err, ErrStackUnderflow), "got %v", err)
}

func TestStack_popN(t *testing.T) {
	s := NewStack(0, 0)
	require.NoError(t, s.Push(Int(1), Int(2), Int(3)))
	top, err := s.PeekN(2)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(2), Int(3)}, top)
	assert.Equal(t, 3, s.Len())

	got, err := s.PopN(2)
	require.NoError(t, err)
	assert.Equal(t, top, got)
	assert.Equal(t, []Value{Int(1)}, s.Values())

	_, err = s.PopN(2)
	assert.True(t, errorIs(err, ErrStackUnderflow))
	assert.Equal(t, 1, s.Len(), "failed pop must not change the stack")
}

func TestStack_dupDrop(t *testing.T) {
	for _, count := range []int{1, 2, 3} {
		s := NewStack(2, 0)
		require.NoError(t, s.Push(Int(1), UInt(2), Byte(3), Bool(false)))
		before := s.Values()
		require.NoError(t, s.Dup(count))
		top, err := s.PeekN(count)
		require.NoError(t, err)
		assert.Equal(t, before[len(before)-count:], top, "dup(%v) copies the top block", count)
		require.NoError(t, s.Drop(0, count))
		assert.Equal(t, before, s.Values(), "drop(0, %v) undoes dup(%v)", count, count)
	}
}

func TestStack_dropOffset(t *testing.T) {
	s := NewStack(0, 0)
	require.NoError(t, s.Push(Int(1), Int(2), Int(3), Int(4), Int(5)))
	require.NoError(t, s.Drop(1, 2))
	assert.Equal(t, []Value{Int(1), Int(2), Int(5)}, s.Values())
	assert.True(t, errorIs(s.Drop(2, 2), ErrStackUnderflow))
}

func TestStack_rotate(t *testing.T) {
	seed := []Value{Int(0), Int(1), Int(2), Int(3), Int(4)}
	for _, count := range []int{1, 2, 3, 5} {
		for steps := -count; steps <= 2*count; steps++ {
			s := NewStack(len(seed), 0)
			require.NoError(t, s.Push(seed...))
			require.NoError(t, s.Rotate(count, steps))

			vals := s.Values()
			base := len(seed) - count
			assert.Equal(t, seed[:base], vals[:base], "slots below the window are untouched")
			k := ((steps % count) + count) % count
			for i := 0; i < count; i++ {
				assert.Equal(t, seed[base+(i+k)%count], vals[base+i],
					"rotate(%v, %v) slot %v", count, steps, i)
			}

			require.NoError(t, s.Rotate(count, count-k))
			assert.Equal(t, seed, s.Values(), "rotate(%v, %v) then rotate(%v, %v)", count, steps, count, count-k)
		}
	}

	s := NewStack(0, 0)
	require.NoError(t, s.Push(Int(1), Int(2)))
	require.NoError(t, s.Swap())
	assert.Equal(t, []Value{Int(2), Int(1)}, s.Values())
	assert.True(t, errorIs(s.Rotate(3, 1), ErrStackUnderflow))
}

func TestStack_refSurvivesGrowth(t *testing.T) {
	s := NewStack(2, 0)
	require.NoError(t, s.Push(Byte(51), Int(9)))
	ref, err := s.RefTo(1)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Push(UInt(uint64(i))))
	}
	assert.True(t, s.Cap() >= 102)
	require.NoError(t, s.store(ref.Offset, []Value{Byte('x')}))
	vals, err := s.load(ref.Offset, 1)
	require.NoError(t, err)
	assert.Equal(t, []Value{Byte(0x78)}, vals)
}

func TestStack_limit(t *testing.T) {
	s := NewStack(1, 3)
	require.NoError(t, s.Push(Int(1), Int(2), Int(3)))
	err := s.Push(Int(4))
	assert.True(t, errorIs(err, ErrOutOfMemory), "got %v", err)
	assert.Equal(t, 255, ExitStatus(err))
	assert.Equal(t, 3, s.Len())
}

func TestStack_rotateAtLimit(t *testing.T) {
	s := NewStack(4, 4)
	require.NoError(t, s.Push(Int(1), Int(2), Int(3), Int(4)))
	require.NoError(t, s.Rotate(2, 1))
	assert.Equal(t, []Value{Int(1), Int(2), Int(4), Int(3)}, s.Values())
	require.NoError(t, s.Rotate(4, 3))
	assert.Equal(t, []Value{Int(3), Int(1), Int(2), Int(4)}, s.Values())
	require.NoError(t, s.Swap())
	assert.Equal(t, []Value{Int(3), Int(1), Int(4), Int(2)}, s.Values())
	assert.Equal(t, 4, s.Cap(), "rotating never grows the buffer")
}
