package bench

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Baaaaam/gpso/bitvec"
)

// CFS scores subsets with the correlation based merit
//
//	k*mean|r_cf| / sqrt(k + k*(k-1)*mean|r_ff|)
//
// where k is the subset size, r_cf the attribute to class correlations and
// r_ff the pairwise attribute correlations.  Undefined correlations, as for
// constant columns, count as zero.
type CFS struct {
	class int
	corr  *mat.SymDense
}

func NewCFS(t *Table) (*CFS, error) {
	if !t.HasClass() {
		return nil, errors.New("cfs needs a class attribute")
	}
	if r, _ := t.Data.Dims(); r < 2 {
		return nil, errors.New("cfs needs at least two rows")
	}
	corr := &mat.SymDense{}
	stat.CorrelationMatrix(corr, t.Data, nil)
	return &CFS{class: t.Class, corr: corr}, nil
}

func (c *CFS) r(i, j int) float64 {
	v := math.Abs(c.corr.At(i, j))
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (c *CFS) EvaluateSubset(v *bitvec.Vector) (float64, error) {
	var idx []int
	for _, i := range v.Indices() {
		if i != c.class {
			idx = append(idx, i)
		}
	}
	k := float64(len(idx))
	if k == 0 {
		return 0, nil
	}

	rcf := 0.0
	for _, i := range idx {
		rcf += c.r(i, c.class)
	}
	rcf /= k

	rff := 0.0
	if len(idx) > 1 {
		for a := range idx {
			for b := a + 1; b < len(idx); b++ {
				rff += c.r(idx[a], idx[b])
			}
		}
		rff /= k * (k - 1) / 2
	}
	return k * rcf / math.Sqrt(k+k*(k-1)*rff), nil
}
