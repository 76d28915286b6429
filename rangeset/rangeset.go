// Package rangeset parses attribute range strings such as "1,3,5-7,last".
// Range strings are 1-based; parsed sets are 0-based.
package rangeset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

var ErrSyntax = errors.New("invalid attribute range")

// Parse returns the 0-based indices named by s.  upper is the largest valid
// 0-based index; "last" refers to it.  An empty s yields an empty set.
func Parse(s string, upper int) (*roaring.Bitmap, error) {
	set := roaring.New()
	s = strings.TrimSpace(s)
	if s == "" {
		return set, nil
	}
	if upper < 0 {
		return nil, fmt.Errorf("%w: %q: no attributes to select", ErrSyntax, s)
	}

	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		lo, hi, err := parseToken(tok, upper)
		if err != nil {
			return nil, err
		}
		set.AddRange(uint64(lo), uint64(hi)+1)
	}
	return set, nil
}

// Indices is Parse returning a sorted slice.
func Indices(s string, upper int) ([]int, error) {
	set, err := Parse(s, upper)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out, nil
}

func parseToken(tok string, upper int) (lo, hi int, err error) {
	if tok == "" {
		return 0, 0, fmt.Errorf("%w: empty element", ErrSyntax)
	}
	// a leading '-' can't start a range, so split on the first dash after it
	if i := strings.Index(tok[1:], "-"); i >= 0 {
		if lo, err = parseIndex(tok[:i+1], upper); err != nil {
			return 0, 0, err
		}
		if hi, err = parseIndex(tok[i+2:], upper); err != nil {
			return 0, 0, err
		}
		if lo > hi {
			return 0, 0, fmt.Errorf("%w: %q: start after end", ErrSyntax, tok)
		}
		return lo, hi, nil
	}
	lo, err = parseIndex(tok, upper)
	return lo, lo, err
}

func parseIndex(s string, upper int) (int, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "first":
		return 0, nil
	case "last":
		return upper, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an attribute number", ErrSyntax, s)
	}
	if n < 1 || n-1 > upper {
		return 0, fmt.Errorf("%w: attribute %v out of range [1,%v]", ErrSyntax, n, upper+1)
	}
	return n - 1, nil
}

// Format renders 0-based indices as a compact 1-based range string.
func Format(indices []int) string {
	set := roaring.New()
	for _, i := range indices {
		if i >= 0 {
			set.Add(uint32(i))
		}
	}

	var parts []string
	it := set.Iterator()
	start, prev := -1, -1
	flush := func() {
		switch {
		case start < 0:
		case start == prev:
			parts = append(parts, strconv.Itoa(start+1))
		default:
			parts = append(parts, strconv.Itoa(start+1)+"-"+strconv.Itoa(prev+1))
		}
	}
	for it.HasNext() {
		i := int(it.Next())
		if start >= 0 && i == prev+1 {
			prev = i
			continue
		}
		flush()
		start, prev = i, i
	}
	flush()
	return strings.Join(parts, ",")
}
