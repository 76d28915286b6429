// Package pop generates initial swarm positions.
package pop

import (
	"fmt"

	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/bitvec"
)

// New generates n random subsets over the attributes of data and returns
// them twice: once as the starting positions and once as independent copies
// for the personal bests.  If start is non-nil it becomes member 0 (the
// class attribute is dropped from it) and only n-1 members are random.
//
// Each random member draws a bit count k = |r mod nattr - 1| (at least 1)
// and then k attribute indices r mod nattr, redrawing any index equal to
// the class.  Duplicate draws leave fewer than k bits set.  All draws come
// from rng.Int63 in member order.
func New(rng gpso.Rng, n int, data gpso.Dataset, start []int) (pos, best []*bitvec.Vector, err error) {
	nattr := data.NumAttributes()
	class := -1
	if data.HasClass() {
		class = data.ClassIndex()
	}
	if nattr < 1 || (nattr == 1 && class == 0) {
		return nil, nil, gpso.ErrNoAttributes
	}

	pos = make([]*bitvec.Vector, n)
	best = make([]*bitvec.Vector, n)

	first := 0
	if start != nil && n > 0 {
		v := bitvec.New(nattr)
		for _, i := range start {
			if i < 0 || i >= nattr {
				return nil, nil, fmt.Errorf("%w: start set attribute %v out of range", gpso.ErrInvalidConfig, i+1)
			}
			if i != class {
				v.Set(i)
			}
		}
		pos[0], best[0] = v, v.Clone()
		first = 1
	}

	for i := first; i < n; i++ {
		v := bitvec.New(nattr)
		k := int(rng.Int63()%int64(nattr)) - 1
		if k < 0 {
			k = -k
		}
		if k == 0 {
			k = 1
		}
		for j := 0; j < k; j++ {
			bit := int(rng.Int63() % int64(nattr))
			for bit == class {
				bit = int(rng.Int63() % int64(nattr))
			}
			v.Set(bit)
		}
		pos[i], best[i] = v, v.Clone()
	}
	return pos, best, nil
}
