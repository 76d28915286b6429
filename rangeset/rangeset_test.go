package rangeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseTests = []struct {
	in    string
	upper int
	want  []int
}{
	{"", 4, []int{}},
	{"1,3", 4, []int{0, 2}},
	{"1,3,5-7", 9, []int{0, 2, 4, 5, 6}},
	{" 2 , 2,1 ", 4, []int{0, 1}},
	{"first,last", 4, []int{0, 4}},
	{"first-last", 2, []int{0, 1, 2}},
	{"3-last", 4, []int{2, 3, 4}},
}

func TestIndices(t *testing.T) {
	for _, tt := range parseTests {
		got, err := Indices(tt.in, tt.upper)
		require.NoError(t, err, "Indices(%q)", tt.in)
		assert.Equal(t, tt.want, got, "Indices(%q)", tt.in)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"0", "6", "a", "1,,2", "4-2", "-1", "1-x"} {
		_, err := Parse(in, 4)
		assert.ErrorIs(t, err, ErrSyntax, "Parse(%q)", in)
	}
	_, err := Parse("1", -1)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "1,3", Format([]int{2, 0}))
	assert.Equal(t, "1,3,5-7", Format([]int{0, 2, 4, 5, 6}))
	assert.Equal(t, "2-3,10", Format([]int{9, 1, 2, 2}))
}

func TestRoundTrip(t *testing.T) {
	for _, tt := range parseTests {
		s := Format(tt.want)
		got, err := Indices(s, tt.upper)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
