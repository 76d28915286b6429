package bitvec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTestCount(t *testing.T) {
	v := New(70)
	v.Set(0)
	v.Set(3)
	v.Set(69)
	v.Set(3) // no-op

	assert.True(t, v.Test(0))
	assert.True(t, v.Test(69))
	assert.False(t, v.Test(1))
	assert.Equal(t, 3, v.Count())
	assert.Equal(t, []int{0, 3, 69}, v.Indices())

	v.Flip(3)
	v.Clear(0)
	assert.Equal(t, []int{69}, v.Indices())
}

func TestOutOfRangePanics(t *testing.T) {
	v := New(5)
	assert.Panics(t, func() { v.Set(5) })
	assert.Panics(t, func() { v.Test(-1) })
}

func TestCloneIsIndependent(t *testing.T) {
	v := FromIndices(8, 1, 2)
	c := v.Clone()
	require.True(t, v.Equal(c))

	c.Set(7)
	assert.False(t, v.Test(7), "clone shares storage with original")
	assert.False(t, v.Equal(c))
}

func TestKeyIsStructural(t *testing.T) {
	a := FromIndices(10, 1, 4, 9)
	b := New(10)
	b.Set(9)
	b.Set(4)
	b.Set(1)
	assert.Equal(t, a.Key(), b.Key())

	b.Clear(4)
	assert.NotEqual(t, a.Key(), b.Key())

	// same bits, different length
	assert.NotEqual(t, FromIndices(10, 1).Key(), FromIndices(11, 1).Key())
}

func TestCopyFrom(t *testing.T) {
	dst := FromIndices(6, 0, 5)
	src := FromIndices(6, 2)
	dst.CopyFrom(src)
	assert.Equal(t, []int{2}, dst.Indices())
	src.Set(3)
	assert.False(t, dst.Test(3))
}

func TestStrings(t *testing.T) {
	v := FromIndices(5, 0, 2)
	assert.Equal(t, "1 3 ", v.String())
	assert.Equal(t, "10100", v.Bits())
	assert.Equal(t, "", New(3).String())
}
