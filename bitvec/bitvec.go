// Package bitvec provides the fixed-length bit vector used to encode attribute
// subsets.  Bit i is set iff attribute i is selected.
package bitvec

import (
	"crypto/sha1"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Key is a canonical encoding of a vector's content.  Two vectors with the
// same length and the same set bits always have equal keys.
type Key [sha1.Size]byte

type Vector struct {
	n    int
	bits *bitset.BitSet
}

// New returns an empty vector with room for n attributes.
func New(n int) *Vector {
	if n < 0 {
		panic("bitvec: negative length")
	}
	return &Vector{n: n, bits: bitset.New(uint(n))}
}

// FromIndices returns a vector of length n with the given 0-based indices set.
func FromIndices(n int, indices ...int) *Vector {
	v := New(n)
	for _, i := range indices {
		v.Set(i)
	}
	return v
}

func (v *Vector) Len() int { return v.n }

func (v *Vector) check(i int) {
	if i < 0 || i >= v.n {
		panic("bitvec: index " + strconv.Itoa(i) + " out of range [0," + strconv.Itoa(v.n) + ")")
	}
}

func (v *Vector) Set(i int) {
	v.check(i)
	v.bits.Set(uint(i))
}

func (v *Vector) Clear(i int) {
	v.check(i)
	v.bits.Clear(uint(i))
}

func (v *Vector) Flip(i int) {
	v.check(i)
	v.bits.Flip(uint(i))
}

func (v *Vector) Test(i int) bool {
	v.check(i)
	return v.bits.Test(uint(i))
}

// SetTo sets bit i to val.
func (v *Vector) SetTo(i int, val bool) {
	v.check(i)
	v.bits.SetTo(uint(i), val)
}

// Count returns the number of set bits (the subset size).
func (v *Vector) Count() int { return int(v.bits.Count()) }

// Clone returns an independent copy sharing no storage with v.
func (v *Vector) Clone() *Vector {
	return &Vector{n: v.n, bits: v.bits.Clone()}
}

// CopyFrom overwrites v's bits with src's.  Both must have the same length.
func (v *Vector) CopyFrom(src *Vector) {
	if src.n != v.n {
		panic("bitvec: length mismatch")
	}
	src.bits.CopyFull(v.bits)
}

func (v *Vector) Equal(o *Vector) bool {
	if o == nil {
		return false
	}
	return v.n == o.n && v.bits.Equal(o.bits)
}

func (v *Vector) Key() Key {
	words := v.bits.Words()
	data := make([]byte, 8+len(words)*8)
	binary.LittleEndian.PutUint64(data, uint64(v.n))
	for i, w := range words {
		binary.LittleEndian.PutUint64(data[8+i*8:], w)
	}
	return sha1.Sum(data)
}

// Indices returns the 0-based set bits in ascending order.
func (v *Vector) Indices() []int {
	indices := make([]int, 0, v.Count())
	for i, ok := v.bits.NextSet(0); ok && int(i) < v.n; i, ok = v.bits.NextSet(i + 1) {
		indices = append(indices, int(i))
	}
	return indices
}

// String lists the selected attributes 1-based, each followed by a space.
func (v *Vector) String() string {
	var b strings.Builder
	for _, i := range v.Indices() {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte(' ')
	}
	return b.String()
}

// Bits renders the vector as a string of 0s and 1s, attribute 0 first.
func (v *Vector) Bits() string {
	var b strings.Builder
	b.Grow(v.n)
	for i := 0; i < v.n; i++ {
		if v.bits.Test(uint(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
