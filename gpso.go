// Package gpso holds the collaborator interfaces, configuration and
// evaluation strategies shared by the geometric particle swarm attribute
// subset search.  The search loop itself lives in the search package.
package gpso

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Baaaaam/gpso/bitvec"
)

// Evaluator is any attribute evaluator handed to a search.  Only values
// implementing SubsetEvaluator can drive a subset search.
type Evaluator interface{}

type SubsetEvaluator interface {
	// EvaluateSubset returns the merit of the attribute subset encoded by v.
	// Higher is better.  v must not be retained or modified.
	EvaluateSubset(v *bitvec.Vector) (float64, error)
}

// Unsupervised is implemented by evaluators that score subsets without
// reference to a class attribute.  When Unsupervised reports true the
// dataset's class index is ignored during the search.
type Unsupervised interface {
	Unsupervised() bool
}

// AsSubsetEvaluator returns ev as a SubsetEvaluator or ErrEvaluatorType.
func AsSubsetEvaluator(ev Evaluator) (SubsetEvaluator, error) {
	sev, ok := ev.(SubsetEvaluator)
	if !ok || sev == nil {
		return nil, fmt.Errorf("%w: %T is not a subset evaluator", ErrEvaluatorType, ev)
	}
	return sev, nil
}

// IsUnsupervised reports whether ev ignores the class attribute.
func IsUnsupervised(ev Evaluator) bool {
	u, ok := ev.(Unsupervised)
	return ok && u.Unsupervised()
}

// Dataset describes the attributes a search runs over.
type Dataset interface {
	NumAttributes() int
	HasClass() bool
	// ClassIndex is only meaningful when HasClass is true.
	ClassIndex() int
}

// Schema is a plain Dataset.
type Schema struct {
	NAttr int
	Class int // negative for no class attribute
}

func (s Schema) NumAttributes() int { return s.NAttr }
func (s Schema) HasClass() bool     { return s.Class >= 0 }
func (s Schema) ClassIndex() int    { return s.Class }

// SubsetFunc adapts an infallible scoring function to a SubsetEvaluator.
type SubsetFunc func(v *bitvec.Vector) float64

func (fn SubsetFunc) EvaluateSubset(v *bitvec.Vector) (float64, error) { return fn(v), nil }

// Rng is the random stream consumed by the search.  *math/rand.Rand
// satisfies it.
type Rng interface {
	Int63() int64
	Float64() float64
}

type Evaler interface {
	// Eval evaluates each vector using ev and returns the merits in the same
	// order along with the number of evaluator calls n.  On error no merits
	// are returned.
	Eval(ev SubsetEvaluator, vs ...*bitvec.Vector) (vals []float64, n int, err error)
}

// SerialEvaler evaluates vectors one after another in order.
type SerialEvaler struct{}

func (SerialEvaler) Eval(ev SubsetEvaluator, vs ...*bitvec.Vector) ([]float64, int, error) {
	vals := make([]float64, len(vs))
	for i, v := range vs {
		val, err := ev.EvaluateSubset(v)
		if err != nil {
			return nil, i + 1, evalErr(v, err)
		}
		vals[i] = val
	}
	return vals, len(vs), nil
}

// ParallelEvaler evaluates up to Workers vectors concurrently.  The
// evaluator must be safe for concurrent use.  The first failure stops
// scheduling of further evaluations.
type ParallelEvaler struct {
	Workers int
}

func (pe ParallelEvaler) Eval(ev SubsetEvaluator, vs ...*bitvec.Vector) ([]float64, int, error) {
	vals := make([]float64, len(vs))
	var n atomic.Int64

	g, ctx := errgroup.WithContext(context.Background())
	if pe.Workers > 0 {
		g.SetLimit(pe.Workers)
	}
	for i, v := range vs {
		i, v := i, v
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			n.Add(1)
			val, err := ev.EvaluateSubset(v)
			if err != nil {
				return evalErr(v, err)
			}
			vals[i] = val
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, int(n.Load()), err
	}
	return vals, int(n.Load()), nil
}

func evalErr(v *bitvec.Vector, err error) error {
	return fmt.Errorf("%w: subset [%v]: %w", ErrEvaluation, v, err)
}

// CacheEvaler consults a Cache before delegating to the wrapped Evaler.
// Distinct contents missing from the cache are evaluated once per batch and
// inserted, so the evaluator sees each content at most once per Cache.
type CacheEvaler struct {
	ev    Evaler
	Cache *Cache
	hits  atomic.Int64
}

func NewCacheEvaler(ev Evaler, c *Cache) *CacheEvaler {
	if ev == nil {
		ev = SerialEvaler{}
	}
	if c == nil {
		c = NewCache()
	}
	return &CacheEvaler{ev: ev, Cache: c}
}

// Hits returns the number of vectors served without an evaluator call.
func (ce *CacheEvaler) Hits() int { return int(ce.hits.Load()) }

func (ce *CacheEvaler) Eval(ev SubsetEvaluator, vs ...*bitvec.Vector) ([]float64, int, error) {
	vals := make([]float64, len(vs))
	pending := map[bitvec.Key][]int{}
	newv := make([]*bitvec.Vector, 0, len(vs))
	keys := make([]bitvec.Key, 0, len(vs))
	for i, v := range vs {
		k := v.Key()
		if e, ok := ce.Cache.Get(k); ok {
			vals[i] = e.Merit
			continue
		}
		if _, ok := pending[k]; !ok {
			newv = append(newv, v)
			keys = append(keys, k)
		}
		pending[k] = append(pending[k], i)
	}

	newvals, n, err := ce.ev.Eval(ev, newv...)
	if err != nil {
		return nil, n, err
	}
	for j, val := range newvals {
		ce.Cache.Put(newv[j], val)
		for _, i := range pending[keys[j]] {
			vals[i] = val
		}
	}
	ce.hits.Add(int64(len(vs) - len(newv)))
	return vals, n, nil
}

// EvalLogger wraps a SubsetEvaluator, counting calls and logging each
// evaluation at debug level.
type EvalLogger struct {
	SubsetEvaluator
	Log   logrus.FieldLogger
	count atomic.Int64
}

func NewEvalLogger(ev SubsetEvaluator, log logrus.FieldLogger) *EvalLogger {
	if log == nil {
		log = NoopLogger()
	}
	return &EvalLogger{SubsetEvaluator: ev, Log: log}
}

func (el *EvalLogger) Count() int { return int(el.count.Load()) }

func (el *EvalLogger) EvaluateSubset(v *bitvec.Vector) (float64, error) {
	val, err := el.SubsetEvaluator.EvaluateSubset(v)
	n := el.count.Add(1)
	entry := el.Log.WithFields(logrus.Fields{
		"eval":     n,
		"subset":   v.String(),
		"features": v.Count(),
	})
	if err != nil {
		entry.WithError(err).Error("subset evaluation failed")
	} else {
		entry.WithField("merit", val).Debug("subset evaluated")
	}
	return val, err
}

// eqTol is the tolerance under which two merits are considered equal.
const eqTol = 1e-6

// Eq reports whether merits a and b are numerically equal.
func Eq(a, b float64) bool { return a-b < eqTol && b-a < eqTol }

// Better reports whether a subset with merit am and size ac is preferred
// over one with merit bm and size bc: higher merit wins, and among equal
// merits the smaller subset wins.
func Better(am float64, ac int, bm float64, bc int) bool {
	if am > bm {
		return true
	}
	return Eq(am, bm) && ac < bc
}
